package fetcher

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/time/rate"
)

// HostLimiter paces requests per host. Sources rarely share a host, but
// a language/since sweep over one listing page does.
type HostLimiter struct {
	limit rate.Limit
	burst int

	mu    sync.Mutex
	hosts map[string]*rate.Limiter
}

// NewHostLimiter allows perSecond requests per host with the given burst.
// A non-positive rate returns nil, which never waits.
func NewHostLimiter(perSecond float64, burst int) *HostLimiter {
	if perSecond <= 0 {
		return nil
	}
	if burst < 1 {
		burst = 1
	}
	return &HostLimiter{
		limit: rate.Limit(perSecond),
		burst: burst,
		hosts: make(map[string]*rate.Limiter),
	}
}

// Wait blocks until a request to host may proceed or ctx is done. A wait
// that could not finish before ctx's deadline fails at once with an error
// wrapping context.DeadlineExceeded.
func (h *HostLimiter) Wait(ctx context.Context, host string) error {
	if h == nil {
		return nil
	}
	err := h.limiter(host).Wait(ctx)
	if err == nil || ctx.Err() != nil {
		return err
	}
	if _, ok := ctx.Deadline(); ok {
		return fmt.Errorf("%w: %v", context.DeadlineExceeded, err)
	}
	return err
}

func (h *HostLimiter) limiter(host string) *rate.Limiter {
	h.mu.Lock()
	defer h.mu.Unlock()
	l, ok := h.hosts[host]
	if !ok {
		l = rate.NewLimiter(h.limit, h.burst)
		h.hosts[host] = l
	}
	return l
}
