package uuidgen

import (
	"fmt"

	"github.com/google/uuid"
)

// Kind selects the UUID version used for an identifier
type Kind string

const (
	// KindToken identifies signed tokens (the jti claim). UUIDv7 keeps token
	// ids ordered by issue time in logs and revocation lists.
	KindToken Kind = "token"
	// KindRequest identifies a single HTTP request. UUIDv4.
	KindRequest Kind = "request"
)

// New generates a UUID of the version appropriate for kind
func New(kind Kind) (uuid.UUID, error) {
	switch kind {
	case KindToken:
		return uuid.NewV7()
	default:
		return uuid.NewRandom()
	}
}

// MustNew is like New but panics on error.
// Should only be used where UUID generation failure is unrecoverable.
func MustNew(kind Kind) uuid.UUID {
	id, err := New(kind)
	if err != nil {
		panic(fmt.Sprintf("failed to generate UUID for %s: %v", kind, err))
	}
	return id
}

// NewTokenID returns a fresh jti
func NewTokenID() string {
	return MustNew(KindToken).String()
}

// NewRequestID returns a fresh request id
func NewRequestID() string {
	return MustNew(KindRequest).String()
}
