package worker

import (
	"context"
	"log/slog"

	"github.com/rezkam/queuectl/internal/domain"
)

// ErrorHandler is a hook for telemetry/alerting integrations; it does
// not influence retry behavior, which follows the job's
// attempts/max_retries accounting regardless of what it does here.
type ErrorHandler interface {
	HandleError(ctx context.Context, job *domain.Job, err error)
	HandlePanic(ctx context.Context, job *domain.Job, panicVal any, stackTrace string)
}

// DefaultErrorHandler logs errors and panics with structured logging.
type DefaultErrorHandler struct{}

func (DefaultErrorHandler) HandleError(ctx context.Context, job *domain.Job, err error) {
	slog.ErrorContext(ctx, "job execution failed",
		slog.String("job_id", job.ID),
		slog.Int("attempts", job.Attempts),
		slog.String("error", err.Error()),
	)
}

func (DefaultErrorHandler) HandlePanic(ctx context.Context, job *domain.Job, panicVal any, stackTrace string) {
	slog.ErrorContext(ctx, "job execution panicked",
		slog.String("job_id", job.ID),
		slog.Any("panic_value", panicVal),
		slog.String("stack_trace", stackTrace),
	)
}
