package notification

import (
	"context"
	"log/slog"
	"time"

	"github.com/atsflow/atsflow/pkg/models"
	"github.com/atsflow/atsflow/pkg/protocol"
	"github.com/cenkalti/backoff/v4"
)

const (
	DefaultTimeout    = 10 * time.Second
	DefaultMaxRetries = 3
)

// Resilient bounds every call to the wrapped communicator with a per-attempt
// timeout and retries failures with exponential backoff.
type Resilient struct {
	next       protocol.Communicator
	logger     *slog.Logger
	timeout    time.Duration
	maxRetries uint64
	interval   time.Duration
}

type ResilientOption func(*Resilient)

func WithTimeout(timeout time.Duration) ResilientOption {
	return func(r *Resilient) {
		if timeout > 0 {
			r.timeout = timeout
		}
	}
}

func WithMaxRetries(retries int) ResilientOption {
	return func(r *Resilient) {
		if retries >= 0 {
			r.maxRetries = uint64(retries)
		}
	}
}

// WithInitialInterval sets the first backoff delay.
func WithInitialInterval(interval time.Duration) ResilientOption {
	return func(r *Resilient) {
		r.interval = interval
	}
}

func NewResilient(next protocol.Communicator, logger *slog.Logger, opts ...ResilientOption) *Resilient {
	r := &Resilient{
		next:       next,
		logger:     logger.With("module", "resilient_communicator"),
		timeout:    DefaultTimeout,
		maxRetries: DefaultMaxRetries,
		interval:   500 * time.Millisecond,
	}

	for _, opt := range opts {
		opt(r)
	}

	return r
}

func (r *Resilient) SendAlert(ctx context.Context, recipients []string, violation *models.Violation) error {
	return r.do(ctx, "alert", func(ctx context.Context) error {
		return r.next.SendAlert(ctx, recipients, violation)
	})
}

func (r *Resilient) SendEscalation(ctx context.Context, recipients []string, violation *models.Violation) error {
	return r.do(ctx, "escalation", func(ctx context.Context) error {
		return r.next.SendEscalation(ctx, recipients, violation)
	})
}

func (r *Resilient) SendWorkflowEmail(ctx context.Context, templateID, recipientID string, payload map[string]any) error {
	return r.do(ctx, "workflow_email", func(ctx context.Context) error {
		return r.next.SendWorkflowEmail(ctx, templateID, recipientID, payload)
	})
}

func (r *Resilient) do(ctx context.Context, kind string, send func(context.Context) error) error {
	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = r.interval
	policy.MaxElapsedTime = 0

	attempt := 0

	return backoff.RetryNotify(
		func() error {
			attempt++

			attemptCtx, cancel := context.WithTimeout(ctx, r.timeout)
			defer cancel()

			return send(attemptCtx)
		},
		backoff.WithContext(backoff.WithMaxRetries(policy, r.maxRetries), ctx),
		func(err error, wait time.Duration) {
			r.logger.WarnContext(ctx, "Notification attempt failed, retrying",
				"kind", kind, "attempt", attempt, "retry_in", wait, "error", err)
		},
	)
}
