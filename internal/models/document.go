package models

import (
	"crypto/rand"
	"encoding/binary"
	"encoding/hex"
	"time"
)

// Document wraps a plain record with the identity and timestamps a store
// would assign. The record itself stays free of persistence fields.
type Document[T any] struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
	Data      T         `json:"data"`
}

// NewDocument assigns a fresh object id and creation time to data
func NewDocument[T any](data T) Document[T] {
	now := time.Now().UTC()
	return Document[T]{
		ID:        NewObjectID(now),
		CreatedAt: now,
		UpdatedAt: now,
		Data:      data,
	}
}

// Touch returns a copy with data replaced and UpdatedAt advanced
func (d Document[T]) Touch(data T) Document[T] {
	d.Data = data
	d.UpdatedAt = time.Now().UTC()
	return d
}

// NewObjectID returns a 24 hex digit id: a 4 byte big-endian unix timestamp
// followed by 8 random bytes, so ids sort roughly by creation time.
func NewObjectID(at time.Time) string {
	var b [12]byte
	binary.BigEndian.PutUint32(b[:4], uint32(at.Unix()))
	_, _ = rand.Read(b[4:])
	return hex.EncodeToString(b[:])
}
