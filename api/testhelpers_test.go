package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/ericfitz/storefront/internal/catalog"
	"github.com/ericfitz/storefront/internal/identity"
	"github.com/ericfitz/storefront/internal/schema"
)

const testSecret = "0123456789abcdef0123456789abcdef"

const (
	validProductID = "65937d25a1b2c3d4e5f60718"
	validOrderID   = "65937d25a1b2c3d4e5f60719"
)

type recordedValidation struct {
	schema     string
	source     string
	violations int
}

type spyRecorder struct {
	mu      sync.Mutex
	records []recordedValidation
}

func (s *spyRecorder) RecordValidation(_ context.Context, schemaName, source string, violations int, _ time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, recordedValidation{schema: schemaName, source: source, violations: violations})
}

func (s *spyRecorder) all() []recordedValidation {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]recordedValidation(nil), s.records...)
}

func newCatalogRegistry(t *testing.T) *schema.Registry {
	t.Helper()
	reg, err := catalog.NewRegistry()
	require.NoError(t, err)
	return reg
}

func newTestCredentials(t *testing.T) *identity.Service {
	t.Helper()
	svc, err := identity.NewService(identity.Config{
		Secret:     testSecret,
		AccessTTL:  time.Minute,
		RefreshTTL: time.Hour,
		BcryptCost: 4,
	})
	require.NoError(t, err)
	return svc
}

func doJSON(router http.Handler, method, path string, body any, headers map[string]string) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	switch b := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(b))
	default:
		data, _ := json.Marshal(b)
		reader = bytes.NewReader(data)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), "body: %s", w.Body.String())
	return out
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) Error {
	t.Helper()
	var out Error
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), "body: %s", w.Body.String())
	return out
}

func bearer(token string) map[string]string {
	return map[string]string{"Authorization": "Bearer " + token}
}

func init() {
	gin.SetMode(gin.TestMode)
}
