package providers

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sony/gobreaker"

	"github.com/sells-group/pharma-pipeline/pkg/apperr"
	"github.com/sells-group/pharma-pipeline/pkg/models"
)

// Retrying wraps an Adapter with exponential backoff and a per-provider
// circuit breaker, grounded on the gobreaker.Settings shape used in
// jordigilh-kubernaut's notification circuit breaker manager. Only errors
// tagged apperr.TransientExternal are retried; everything else returns
// immediately so client errors and permanent failures don't burn the retry
// budget.
type Retrying struct {
	inner      Adapter
	maxRetries int
	breaker    *gobreaker.CircuitBreaker
}

// NewRetrying builds a resilient wrapper around inner with up to maxRetries
// retries after the first attempt and a circuit that opens after 5
// consecutive failures.
func NewRetrying(inner Adapter, maxRetries int) *Retrying {
	settings := gobreaker.Settings{
		Name:        inner.Name(),
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
	}
	return &Retrying{inner: inner, maxRetries: maxRetries, breaker: gobreaker.NewCircuitBreaker(settings)}
}

func (r *Retrying) Name() string { return r.inner.Name() }

func (r *Retrying) Kind() models.ProviderKind { return r.inner.Kind() }

func (r *Retrying) Call(ctx context.Context, q Query) (Response, error) {
	var resp Response
	op := func() error {
		out, err := r.breaker.Execute(func() (any, error) {
			return r.inner.Call(ctx, q)
		})
		if err != nil {
			if err == gobreaker.ErrOpenState || err == gobreaker.ErrTooManyRequests {
				return apperr.Wrap(apperr.TransientExternal, err, "circuit open for "+r.inner.Name())
			}
			if apperr.Retryable(err) {
				return err
			}
			return backoff.Permanent(err)
		}
		resp = out.(Response)
		return nil
	}

	bo := backoff.WithMaxRetries(backoff.NewExponentialBackOff(), uint64(r.maxRetries))
	bo2 := backoff.WithContext(bo, ctx)
	if err := backoff.Retry(op, bo2); err != nil {
		return Response{}, err
	}
	return resp, nil
}
