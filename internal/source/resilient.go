package source

import (
	"context"
	"errors"
	"log/slog"

	"github.com/Adithya-Monish-Kumar-K/frame-geometry-index/internal/frame"
	"github.com/Adithya-Monish-Kumar-K/frame-geometry-index/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/frame-geometry-index/pkg/resilience"
	"github.com/Adithya-Monish-Kumar-K/frame-geometry-index/pkg/tracing"
)

// Fetcher is any catalogue source.
type Fetcher interface {
	Name() string
	Fetch(ctx context.Context) ([]frame.Record, error)
}

// Resilient retries transient fetch failures with backoff and stops calling
// a source that keeps failing. Bad payloads and client errors are not
// retried.
type Resilient struct {
	inner   Fetcher
	retry   resilience.RetryConfig
	breaker *resilience.CircuitBreaker
	logger  *slog.Logger
}

func NewResilient(inner Fetcher, retry resilience.RetryConfig, breaker *resilience.CircuitBreaker) *Resilient {
	return &Resilient{
		inner:   inner,
		retry:   retry,
		breaker: breaker,
		logger:  logger.WithComponent("frame-source").With("source", inner.Name()),
	}
}

func (r *Resilient) Name() string {
	return r.inner.Name()
}

func (r *Resilient) Fetch(ctx context.Context) ([]frame.Record, error) {
	ctx, span := tracing.StartChildSpan(ctx, "fetch")
	defer span.End()
	span.SetAttr("source", r.inner.Name())

	var records []frame.Record
	attempts := 0
	err := resilience.Retry(ctx, "fetch-catalogue", r.retry, func() error {
		attempts++
		err := r.breaker.Execute(func() error {
			var err error
			records, err = r.inner.Fetch(ctx)
			if err != nil && !retryable(ctx, err) {
				return resilience.Permanent(err)
			}
			return err
		})
		if errors.Is(err, resilience.ErrCircuitOpen) {
			return resilience.Permanent(err)
		}
		return err
	})
	span.SetAttr("attempts", attempts)
	if err != nil {
		r.logger.Warn("catalogue fetch failed", "error", err, "breaker", r.breaker.GetState().String())
		return nil, err
	}
	span.SetAttr("records", len(records))
	r.logger.Debug("catalogue fetched", "records", len(records))
	return records, nil
}

func retryable(ctx context.Context, err error) bool {
	if ctx.Err() != nil {
		return false
	}
	var validation *ValidationError
	var decode *DecodeError
	if errors.As(err, &validation) || errors.As(err, &decode) {
		return false
	}
	var status *StatusError
	if errors.As(err, &status) {
		return status.Temporary()
	}
	return true
}
