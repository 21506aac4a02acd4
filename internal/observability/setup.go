package observability

import (
	"context"

	"github.com/honeynil/UdhaarLedger/internal/infrastructure/observability"
)

// Setup wires logs, metrics and traces for the service and returns the
// tracer shutdown hook.
func Setup(serviceName, metricsAddr string) func(context.Context) error {
	observability.InitLogger()
	observability.InitMetrics(metricsAddr)
	return observability.InitTracing(serviceName)
}
