package slogging

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ericfitz/storefront/internal/uuidgen"
)

// Keys shared with the middleware that populates the gin context
const (
	// RequestIDHeader carries the request id in and out
	RequestIDHeader = "X-Request-ID"
	// UserIDKey is the gin context key holding the authenticated user id
	UserIDKey = "userID"
	// LoggerKey is the gin context key holding the request's *ContextLogger
	LoggerKey = "logger"
)

// GinContextLike defines a minimal interface for contexts that can be used with the logger
type GinContextLike interface {
	Get(key any) (any, bool)
	GetHeader(key string) string
	ClientIP() string
}

// WithContext returns a context-aware logger that includes request information
func (l *Logger) WithContext(c GinContextLike) *ContextLogger {
	requestID := c.GetHeader(RequestIDHeader)
	if requestID == "" {
		if v, ok := c.Get(RequestIDHeader); ok {
			requestID, _ = v.(string)
		}
	}
	if requestID == "" {
		requestID = uuidgen.NewRequestID()
		if setter, ok := c.(interface{ Set(any, any) }); ok {
			setter.Set(RequestIDHeader, requestID)
		}
		if setter, ok := c.(interface{ Header(string, string) }); ok {
			setter.Header(RequestIDHeader, requestID)
		}
	}

	userID := ""
	if v, ok := c.Get(UserIDKey); ok {
		userID = fmt.Sprintf("%v", v)
	}

	ctx := context.Background()
	if cc, ok := c.(context.Context); ok {
		ctx = cc
	}

	return &ContextLogger{
		logger: l,
		slogger: l.slogger.With(
			slog.String("request_id", requestID),
			slog.String("client_ip", c.ClientIP()),
			slog.String("user_id", userID),
		),
		ctx:       ctx,
		requestID: requestID,
	}
}

// FromGin returns the request logger stored by LoggerMiddleware, or a fresh
// one bound to c
func FromGin(c GinContextLike) *ContextLogger {
	if v, ok := c.Get(LoggerKey); ok {
		if logger, ok := v.(*ContextLogger); ok {
			return logger
		}
	}
	return Get().WithContext(c)
}

// ContextLogger adds request context to log messages
type ContextLogger struct {
	logger    *Logger
	slogger   *slog.Logger
	ctx       context.Context
	requestID string
}

// RequestID returns the id attached to every record
func (cl *ContextLogger) RequestID() string {
	return cl.requestID
}

func (cl *ContextLogger) logf(min LogLevel, level slog.Level, format string, args []any) {
	if cl.logger.level > min {
		return
	}
	message := format
	if len(args) > 0 {
		message = fmt.Sprintf(format, args...)
	}
	cl.slogger.Log(cl.ctx, level, SanitizeLogMessage(message))
}

// Debug logs a debug-level message with context
func (cl *ContextLogger) Debug(format string, args ...any) {
	cl.logf(LogLevelDebug, slog.LevelDebug, format, args)
}

// Info logs an info-level message with context
func (cl *ContextLogger) Info(format string, args ...any) {
	cl.logf(LogLevelInfo, slog.LevelInfo, format, args)
}

// Warn logs a warning-level message with context
func (cl *ContextLogger) Warn(format string, args ...any) {
	cl.logf(LogLevelWarn, slog.LevelWarn, format, args)
}

// Error logs an error-level message with context
func (cl *ContextLogger) Error(format string, args ...any) {
	cl.logf(LogLevelError, slog.LevelError, format, args)
}

// DebugCtx logs a debug message with additional structured attributes
func (cl *ContextLogger) DebugCtx(msg string, attrs ...slog.Attr) {
	cl.slogger.LogAttrs(cl.ctx, slog.LevelDebug, msg, attrs...)
}

// InfoCtx logs an info message with additional structured attributes
func (cl *ContextLogger) InfoCtx(msg string, attrs ...slog.Attr) {
	cl.slogger.LogAttrs(cl.ctx, slog.LevelInfo, msg, attrs...)
}

// WarnCtx logs a warning message with additional structured attributes
func (cl *ContextLogger) WarnCtx(msg string, attrs ...slog.Attr) {
	cl.slogger.LogAttrs(cl.ctx, slog.LevelWarn, msg, attrs...)
}

// ErrorCtx logs an error message with additional structured attributes
func (cl *ContextLogger) ErrorCtx(msg string, attrs ...slog.Attr) {
	cl.slogger.LogAttrs(cl.ctx, slog.LevelError, msg, attrs...)
}

// WithAttrs returns a new ContextLogger with additional attributes
func (cl *ContextLogger) WithAttrs(attrs ...slog.Attr) *ContextLogger {
	args := make([]any, 0, len(attrs))
	for _, attr := range attrs {
		args = append(args, attr)
	}
	return &ContextLogger{
		logger:    cl.logger,
		slogger:   cl.slogger.With(args...),
		ctx:       cl.ctx,
		requestID: cl.requestID,
	}
}
