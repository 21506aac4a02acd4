package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/honeynil/UdhaarLedger/internal/infrastructure/redis"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	balanceCacheTTL   = 5 * time.Minute
	recentHistorySize = 10
)

func startSpan(ctx context.Context, tracerName, method string) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, method)
}

func spanError(span trace.Span, err error, msg string) {
	span.RecordError(err)
	span.SetStatus(codes.Error, msg)
}

// invalidateBalance bumps the balance generation after a ledger write has
// committed. A reader that summed before the commit caches under the old
// generation, which nobody reads again.
func invalidateBalance(ctx context.Context, redisClient redis.RedisClient, customerID int64) {
	if _, err := redisClient.Incr(ctx, redis.BalanceVersionKey(customerID)); err != nil {
		slog.Warn("failed to invalidate cached balance", "customer_id", customerID, "error", err)
	}
}
