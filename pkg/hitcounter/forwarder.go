package hitcounter

import (
	"context"
	"errors"
	"fmt"
	"time"

	logging "github.com/ipfs/go-log/v2"
)

var log = logging.Logger("hitcounter")

// Counter atomically increments a per-key count and returns the new value.
// Concurrent increments of the same key must all apply.
type Counter interface {
	Increment(ctx context.Context, key string) (uint64, error)
}

// Downstream is the handler a Forwarder passes counted requests to.
type Downstream[Req, Res any] interface {
	Invoke(ctx context.Context, req Req) (Res, error)
}

// DownstreamFunc adapts a function to the Downstream interface.
type DownstreamFunc[Req, Res any] func(ctx context.Context, req Req) (Res, error)

// Invoke implements Downstream.
func (f DownstreamFunc[Req, Res]) Invoke(ctx context.Context, req Req) (Res, error) {
	return f(ctx, req)
}

// KeyFunc derives the counter key for a request. It must be deterministic.
type KeyFunc[Req any] func(req Req) (string, error)

// Forwarder counts every request it sees and then hands it to a downstream
// handler. It holds no state besides its collaborators and is safe for
// concurrent use.
type Forwarder[Req, Res any] struct {
	counter    Counter
	downstream Downstream[Req, Res]
	key        KeyFunc[Req]
}

// New creates a Forwarder. All collaborators are required.
func New[Req, Res any](counter Counter, downstream Downstream[Req, Res], key KeyFunc[Req]) (*Forwarder[Req, Res], error) {
	if counter == nil {
		return nil, fmt.Errorf("%w: missing counter store", ErrConfiguration)
	}
	if downstream == nil {
		return nil, fmt.Errorf("%w: missing downstream handler", ErrConfiguration)
	}
	if key == nil {
		return nil, fmt.Errorf("%w: missing key function", ErrConfiguration)
	}
	return &Forwarder[Req, Res]{counter: counter, downstream: downstream, key: key}, nil
}

// Handle counts the request and forwards it unmodified, returning the
// downstream response as is.
//
// The increment always completes before the downstream is invoked. If the
// increment fails the downstream is not invoked. If the downstream fails, or
// ctx is cancelled while it runs, the hit stays counted and a
// *DownstreamError is returned.
func (f *Forwarder[Req, Res]) Handle(ctx context.Context, req Req) (Res, error) {
	var zero Res

	key, err := f.key(req)
	if err != nil {
		RequestsTotal.WithLabelValues(outcomeInvalidRequest).Inc()
		return zero, invalidRequest(err)
	}

	count, err := f.counter.Increment(ctx, key)
	if err != nil {
		RequestsTotal.WithLabelValues(outcomeCounterUnavailable).Inc()
		log.Warnw("counting hit", "key", key, "error", err)
		return zero, fmt.Errorf("%w: incrementing %s: %w", ErrCounterUnavailable, key, err)
	}
	log.Debugw("counted hit", "key", key, "count", count)

	start := time.Now()
	res, err := f.downstream.Invoke(ctx, req)
	elapsed := float64(time.Since(start).Milliseconds())
	if err != nil {
		RequestsTotal.WithLabelValues(outcomeDownstreamError).Inc()
		DownstreamLatency.WithLabelValues(outcomeDownstreamError).Observe(elapsed)
		log.Warnw("forwarding counted hit", "key", key, "count", count, "error", err)
		return zero, &DownstreamError{Key: key, Count: count, Err: err}
	}

	RequestsTotal.WithLabelValues(outcomeForwarded).Inc()
	DownstreamLatency.WithLabelValues(outcomeForwarded).Observe(elapsed)
	return res, nil
}

func invalidRequest(err error) error {
	if errors.Is(err, ErrInvalidRequest) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrInvalidRequest, err)
}
