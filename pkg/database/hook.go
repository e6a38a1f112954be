package database

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/rs/zerolog"
	"github.com/uptrace/bun"
)

// QueryHook logs bun queries through the context logger. Failed and slow
// queries are logged at warn, everything else at debug.
type QueryHook struct {
	slow time.Duration
}

var _ bun.QueryHook = (*QueryHook)(nil)

func NewQueryHook(slow time.Duration) *QueryHook {
	return &QueryHook{slow: slow}
}

func (h *QueryHook) BeforeQuery(ctx context.Context, _ *bun.QueryEvent) context.Context {
	return ctx
}

func (h *QueryHook) AfterQuery(ctx context.Context, event *bun.QueryEvent) {
	elapsed := time.Since(event.StartTime)
	logger := zerolog.Ctx(ctx)

	var ev *zerolog.Event
	switch {
	case event.Err != nil && !errors.Is(event.Err, sql.ErrNoRows):
		ev = logger.Warn().Err(event.Err)
	case h.slow > 0 && elapsed >= h.slow:
		ev = logger.Warn().Bool("slow", true)
	default:
		ev = logger.Debug()
	}

	ev.Str("operation", event.Operation()).
		Dur("elapsed", elapsed).
		Str("query", event.Query).
		Msg("db query")
}
