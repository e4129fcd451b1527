// Package observability holds the tracing, metrics and persistence logging shared across packages.
package observability

import (
	"context"
	"log/slog"
	"sync/atomic"
)

var storeLogging atomic.Bool

func init() {
	storeLogging.Store(true)
}

// SetStoreLogging toggles the per-write debug records emitted by StoreLogger. Failures are
// always logged.
func SetStoreLogging(enabled bool) {
	storeLogging.Store(enabled)
}

// StoreLogger writes structured records for writes against one table. It logs through
// slog's default logger so request-scoped attributes from the context are attached.
type StoreLogger struct {
	table string
}

// NewStoreLogger returns a logger for writes to table.
func NewStoreLogger(table string) *StoreLogger {
	return &StoreLogger{table: table}
}

// Created records a successful insert.
func (l *StoreLogger) Created(ctx context.Context, attrs ...any) {
	l.write(ctx, "insert", attrs)
}

// Updated records a successful update.
func (l *StoreLogger) Updated(ctx context.Context, attrs ...any) {
	l.write(ctx, "update", attrs)
}

func (l *StoreLogger) write(ctx context.Context, op string, attrs []any) {
	if !storeLogging.Load() {
		return
	}
	slog.DebugContext(ctx, l.table+" "+op, append([]any{"table", l.table, "op", op}, attrs...)...)
}

// Failed records a failed statement.
func (l *StoreLogger) Failed(ctx context.Context, op string, err error) {
	slog.ErrorContext(ctx, "store write failed", "table", l.table, "op", op, "error", err)
}
