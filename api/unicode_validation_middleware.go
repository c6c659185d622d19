package api

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"golang.org/x/text/unicode/norm"

	"github.com/ericfitz/storefront/internal/slogging"
	"github.com/ericfitz/storefront/internal/unicodecheck"
)

// maxLoggedExcerpt bounds the rejected input written to the log, in runes
const maxLoggedExcerpt = 120

var jsonEscapeMarker = []byte(`\u`)

// UnicodeNormalizationMiddleware rejects JSON bodies carrying invisible or
// direction-changing characters and rewrites the rest to NFC, so "é" typed
// as one or two code points validates and compares the same way.
// Characters written as JSON \u escapes are checked after decoding.
func UnicodeNormalizationMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Body == nil || c.Request.Method == http.MethodGet || c.Request.Method == http.MethodHead {
			c.Next()
			return
		}
		if !strings.Contains(c.GetHeader("Content-Type"), "application/json") {
			c.Next()
			return
		}

		logger := slogging.FromGin(c)

		bodyBytes, err := io.ReadAll(c.Request.Body)
		_ = c.Request.Body.Close()
		if err != nil {
			// the body gate reports read failures, including size limits
			logger.Debug("Unicode check skipped, body read failed: %v", err)
			c.Request.Body = io.NopCloser(errReader{err})
			c.Next()
			return
		}

		if problem := unicodecheck.Find(string(bodyBytes), unicodecheck.DefaultMaxCombiningMarks); problem != unicodecheck.None {
			logger.Warn("Request contains problematic Unicode characters: %s in %q", problem, logExcerpt(string(bodyBytes)))
			rejectUnicode(c)
			return
		}

		normalized := norm.NFC.Bytes(bodyBytes)

		if bytes.Contains(normalized, jsonEscapeMarker) {
			decoded, ok := decodeJSONValue(normalized)
			if ok {
				cleaned, problem, offending := normalizeValue(decoded)
				if problem != unicodecheck.None {
					logger.Warn("Request contains escaped problematic Unicode characters: %s in %q", problem, logExcerpt(offending))
					rejectUnicode(c)
					return
				}
				if encoded, err := encodeJSONValue(cleaned); err == nil {
					normalized = encoded
				} else {
					logger.Debug("Re-encoding normalized body failed: %v", err)
				}
			}
			// undecodable bodies pass through for the body gate to report
		}

		c.Request.Body = io.NopCloser(bytes.NewReader(normalized))
		c.Request.ContentLength = int64(len(normalized))

		c.Next()
	}
}

func rejectUnicode(c *gin.Context) {
	HandleRequestError(c, &RequestError{
		Status:  http.StatusBadRequest,
		Code:    "invalid_request",
		Message: "Request contains unsupported Unicode characters (zero-width, bidirectional overrides, excessive combining marks, or control characters)",
	})
}

func decodeJSONValue(data []byte) (any, bool) {
	decoder := json.NewDecoder(bytes.NewReader(data))
	decoder.UseNumber()
	var v any
	if err := decoder.Decode(&v); err != nil || decoder.More() {
		return nil, false
	}
	return v, true
}

func encodeJSONValue(v any) ([]byte, error) {
	var buf bytes.Buffer
	encoder := json.NewEncoder(&buf)
	encoder.SetEscapeHTML(false)
	if err := encoder.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// normalizeValue composes every decoded string and object key to NFC. It
// stops at the first problematic string and returns it for logging.
func normalizeValue(v any) (any, unicodecheck.Problem, string) {
	switch t := v.(type) {
	case string:
		if p := unicodecheck.Find(t, unicodecheck.DefaultMaxCombiningMarks); p != unicodecheck.None {
			return nil, p, t
		}
		return norm.NFC.String(t), unicodecheck.None, ""
	case map[string]any:
		out := make(map[string]any, len(t))
		for key, elem := range t {
			if p := unicodecheck.Find(key, unicodecheck.DefaultMaxCombiningMarks); p != unicodecheck.None {
				return nil, p, key
			}
			cleaned, p, offending := normalizeValue(elem)
			if p != unicodecheck.None {
				return nil, p, offending
			}
			out[norm.NFC.String(key)] = cleaned
		}
		return out, unicodecheck.None, ""
	case []any:
		out := make([]any, len(t))
		for i, elem := range t {
			cleaned, p, offending := normalizeValue(elem)
			if p != unicodecheck.None {
				return nil, p, offending
			}
			out[i] = cleaned
		}
		return out, unicodecheck.None, ""
	default:
		return v, unicodecheck.None, ""
	}
}

func logExcerpt(s string) string {
	runes := []rune(s)
	if len(runes) > maxLoggedExcerpt {
		s = string(runes[:maxLoggedExcerpt]) + "..."
	}
	return unicodecheck.SanitizeForLogging(s)
}

type errReader struct{ err error }

func (r errReader) Read([]byte) (int, error) { return 0, r.err }
