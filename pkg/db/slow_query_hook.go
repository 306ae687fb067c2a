package db

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"bugtracker/pkg/metrics"
)

type queryStartKey struct{}
type querySQLKey struct{}

// SlowQueryTracer logs statements slower than the threshold and bumps the
// slow-query counter. Wired into the pool as a pgx.QueryTracer.
type SlowQueryTracer struct {
	logger        *zap.Logger
	slowThreshold time.Duration
}

func NewSlowQueryTracer(logger *zap.Logger, slowThreshold time.Duration) *SlowQueryTracer {
	if slowThreshold == 0 {
		slowThreshold = 100 * time.Millisecond
	}
	return &SlowQueryTracer{
		logger:        logger,
		slowThreshold: slowThreshold,
	}
}

func (t *SlowQueryTracer) TraceQueryStart(ctx context.Context, conn *pgx.Conn, data pgx.TraceQueryStartData) context.Context {
	// pgx v5 does not hand the SQL to TraceQueryEnd, so stash it here.
	ctx = context.WithValue(ctx, queryStartKey{}, time.Now())
	ctx = context.WithValue(ctx, querySQLKey{}, data.SQL)
	return ctx
}

func (t *SlowQueryTracer) TraceQueryEnd(ctx context.Context, conn *pgx.Conn, data pgx.TraceQueryEndData) {
	startTime, ok := ctx.Value(queryStartKey{}).(time.Time)
	if !ok {
		return
	}

	duration := time.Since(startTime)
	if duration <= t.slowThreshold {
		return
	}

	sql, _ := ctx.Value(querySQLKey{}).(string)
	if sql == "" {
		sql = "unknown"
	}
	if len(sql) > 200 {
		sql = sql[:200] + "..."
	}

	t.logger.Warn("slow-query",
		zap.String("sql", sql),
		zap.Duration("took", duration),
		zap.String("command_tag", data.CommandTag.String()),
	)

	metrics.IncrementSlowQuery(data.CommandTag.String())
}
