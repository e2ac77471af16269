// Package logger builds zerolog loggers and carries request ids through
// contexts.
package logger

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Config configures a logger built by Build.
type Config struct {
	Level     string // debug, info, warn or error
	Console   bool   // human readable output instead of JSON
	Component string
}

type ctxKey string

const ctxReqIDKey ctxKey = "request_id"

// WithRequestID returns a copy of ctx carrying reqID. A new id is generated
// if reqID is empty.
func WithRequestID(ctx context.Context, reqID string) context.Context {
	if reqID == "" {
		reqID = NewID()
	}
	return context.WithValue(ctx, ctxReqIDKey, reqID)
}

// RequestID returns the request id in ctx, if any.
func RequestID(ctx context.Context) string {
	reqID, _ := ctx.Value(ctxReqIDKey).(string)
	return reqID
}

// NewID returns a random 16 character hex id.
func NewID() string {
	var b [8]byte
	_, _ = rand.Read(b[:])
	return hex.EncodeToString(b[:])
}

// ParseLevel returns the zerolog level named by level, defaulting to info.
func ParseLevel(level string) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return zerolog.DebugLevel
	case "warn":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// Build returns a logger writing to out, or to stderr if out is nil.
func Build(cfg Config, out io.Writer) zerolog.Logger {
	if out == nil {
		out = os.Stderr
	}

	zerolog.TimeFieldFormat = time.RFC3339Nano
	zerolog.TimestampFieldName = "timestamp"
	zerolog.MessageFieldName = "msg"

	if cfg.Console {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}
	}

	ctx := zerolog.New(out).Level(ParseLevel(cfg.Level)).With().Timestamp()
	if cfg.Component != "" {
		ctx = ctx.Str("component", cfg.Component)
	}
	return ctx.Logger()
}

// FromContext returns a child of parent with the request id in ctx attached.
// A nil parent yields a logger that discards everything.
func FromContext(ctx context.Context, parent *zerolog.Logger) *zerolog.Logger {
	var base zerolog.Logger
	if parent == nil {
		base = zerolog.New(io.Discard)
	} else {
		base = *parent
	}
	if reqID := RequestID(ctx); reqID != "" {
		base = base.With().Str("request_id", reqID).Logger()
	}
	return &base
}
