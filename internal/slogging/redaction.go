package slogging

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"slices"
	"strings"
)

// RedactionAction defines how a matching attribute is rewritten
type RedactionAction string

const (
	// RedactionOmit removes the attribute
	RedactionOmit RedactionAction = "omit"
	// RedactionObfuscate replaces the value with [REDACTED]
	RedactionObfuscate RedactionAction = "obfuscate"
	// RedactionPartial keeps a short prefix and suffix of the value
	RedactionPartial RedactionAction = "partial"
)

// RedactionRule matches attribute keys by regular expression
type RedactionRule struct {
	FieldPattern string          `yaml:"field_pattern" json:"field_pattern"`
	Action       RedactionAction `yaml:"action" json:"action"`
	// LogLevels limits the rule to the named levels (empty = all levels)
	LogLevels []string `yaml:"log_levels,omitempty" json:"log_levels,omitempty"`

	compiled *regexp.Regexp
}

// RedactionConfig holds all redaction rules
type RedactionConfig struct {
	Enabled bool            `yaml:"enabled" json:"enabled"`
	Rules   []RedactionRule `yaml:"rules" json:"rules"`
}

// DefaultRedactionConfig covers the credentials that pass through the gate.
// Bearer and refresh tokens are partially shown; passwords and secrets are
// dropped.
func DefaultRedactionConfig() RedactionConfig {
	return RedactionConfig{
		Enabled: true,
		Rules: []RedactionRule{
			{FieldPattern: "(?i)(authorization|bearer|token|jwt)", Action: RedactionPartial},
			{FieldPattern: "(?i)(password|secret|private_key|api_key)", Action: RedactionOmit},
			{FieldPattern: "(?i)(cookie)", Action: RedactionPartial},
		},
	}
}

// CompileRules compiles the pattern of every rule
func (rc *RedactionConfig) CompileRules() error {
	for i := range rc.Rules {
		pattern, err := regexp.Compile(rc.Rules[i].FieldPattern)
		if err != nil {
			return fmt.Errorf("failed to compile redaction pattern '%s': %w", rc.Rules[i].FieldPattern, err)
		}
		rc.Rules[i].compiled = pattern
	}
	return nil
}

func (rule *RedactionRule) matches(key string, level slog.Level) bool {
	if rule.compiled == nil || !rule.compiled.MatchString(key) {
		return false
	}
	if len(rule.LogLevels) == 0 {
		return true
	}
	return slices.ContainsFunc(rule.LogLevels, func(l string) bool {
		return strings.EqualFold(l, level.String())
	})
}

// partialRedactValue keeps enough of a credential to correlate log lines
func partialRedactValue(value string) string {
	if value == "" {
		return value
	}
	if len(value) <= 12 {
		return "[REDACTED]"
	}
	if strings.HasPrefix(strings.ToLower(value), "bearer ") {
		return value[:7] + partialRedactValue(value[7:])
	}
	// JWT: first 8 of the header, last 4 of the signature
	if parts := strings.Split(value, "."); len(parts) == 3 && strings.HasPrefix(value, "eyJ") {
		header, sig := parts[0], parts[2]
		if len(header) > 8 {
			header = header[:8] + "..."
		}
		if len(sig) > 4 {
			sig = "..." + sig[len(sig)-4:]
		}
		return header + ".REDACTED." + sig
	}

	start, end := 6, 4
	if len(value) < 20 {
		start, end = 3, 2
	}
	return value[:start] + "...REDACTED..." + value[len(value)-end:]
}

// redactionHandler wraps another slog.Handler to apply redaction rules
type redactionHandler struct {
	handler slog.Handler
	config  RedactionConfig
}

// NewRedactionHandler creates a new redaction handler
func NewRedactionHandler(handler slog.Handler, config RedactionConfig) (slog.Handler, error) {
	config.Rules = slices.Clone(config.Rules)
	if err := config.CompileRules(); err != nil {
		return nil, err
	}
	return &redactionHandler{handler: handler, config: config}, nil
}

func (h *redactionHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.handler.Enabled(ctx, level)
}

func (h *redactionHandler) Handle(ctx context.Context, record slog.Record) error {
	if !h.config.Enabled {
		return h.handler.Handle(ctx, record)
	}

	out := slog.NewRecord(record.Time, record.Level, record.Message, record.PC)
	record.Attrs(func(attr slog.Attr) bool {
		if redacted, keep := h.redact(attr, record.Level); keep {
			out.AddAttrs(redacted)
		}
		return true
	})
	return h.handler.Handle(ctx, out)
}

func (h *redactionHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	if !h.config.Enabled {
		return &redactionHandler{handler: h.handler.WithAttrs(attrs), config: h.config}
	}
	kept := make([]slog.Attr, 0, len(attrs))
	for _, attr := range attrs {
		// level is unknown here; level-limited rules are applied as for info
		if redacted, keep := h.redact(attr, slog.LevelInfo); keep {
			kept = append(kept, redacted)
		}
	}
	return &redactionHandler{handler: h.handler.WithAttrs(kept), config: h.config}
}

func (h *redactionHandler) WithGroup(name string) slog.Handler {
	return &redactionHandler{handler: h.handler.WithGroup(name), config: h.config}
}

// redact applies the first matching rule to attr. Group values are walked
// so nested keys such as body.password are covered too.
func (h *redactionHandler) redact(attr slog.Attr, level slog.Level) (slog.Attr, bool) {
	if attr.Value.Kind() == slog.KindGroup {
		nested := attr.Value.Group()
		kept := make([]slog.Attr, 0, len(nested))
		for _, a := range nested {
			if r, keep := h.redact(a, level); keep {
				kept = append(kept, r)
			}
		}
		return slog.Attr{Key: attr.Key, Value: slog.GroupValue(kept...)}, true
	}

	for i := range h.config.Rules {
		rule := &h.config.Rules[i]
		if !rule.matches(attr.Key, level) {
			continue
		}
		switch rule.Action {
		case RedactionOmit:
			return slog.Attr{}, false
		case RedactionObfuscate:
			return slog.String(attr.Key, "[REDACTED]"), true
		case RedactionPartial:
			return slog.String(attr.Key, partialRedactValue(attr.Value.String())), true
		}
		return attr, true
	}
	return attr, true
}

// SanitizeLogMessage collapses newlines, tabs and repeated spaces so a
// message cannot forge extra log lines (CWE-117)
func SanitizeLogMessage(message string) string {
	return strings.Join(strings.Fields(message), " ")
}
