package ratelimit

import (
	"context"
	"net/url"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// SleepFunc blocks for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

// Pacer paces outbound calls per upstream host. Calls to one host run one at
// a time, each followed by a fixed pause before the host is released, and an
// optional requests-per-minute ceiling is waited on before each call.
// Different hosts do not wait on each other.
type Pacer struct {
	delay time.Duration
	limit rate.Limit
	sleep SleepFunc

	mu    sync.Mutex
	hosts map[string]*host
}

type host struct {
	gate    chan struct{}
	limiter *rate.Limiter
}

// Option configures a Pacer.
type Option func(*Pacer)

// WithRequestsPerMinute caps the call rate per host. n <= 0 means unlimited.
func WithRequestsPerMinute(n float64) Option {
	return func(p *Pacer) {
		if n > 0 {
			p.limit = rate.Limit(n / 60)
		}
	}
}

// WithSleep replaces the function used for the post-call pause.
func WithSleep(fn SleepFunc) Option {
	return func(p *Pacer) {
		if fn != nil {
			p.sleep = fn
		}
	}
}

// NewPacer creates a Pacer that pauses for delay after every call.
func NewPacer(delay time.Duration, opts ...Option) *Pacer {
	p := &Pacer{
		delay: delay,
		limit: rate.Inf,
		sleep: Sleep,
		hosts: make(map[string]*host),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Delay returns the post-call pause.
func (p *Pacer) Delay() time.Duration { return p.delay }

// Do runs call for host. The pause runs after call returns whatever the
// outcome, while the host is still held.
func (p *Pacer) Do(ctx context.Context, hostname string, call func(ctx context.Context) error) error {
	h := p.host(hostname)

	if err := h.limiter.Wait(ctx); err != nil {
		return err
	}

	select {
	case h.gate <- struct{}{}:
	case <-ctx.Done():
		return ctx.Err()
	}
	defer func() { <-h.gate }()
	defer func() { _ = p.sleep(ctx, p.delay) }()

	return call(ctx)
}

// Pause owes the post-call delay for a call repeated inside Do, such as a
// retried request, and then waits on the host's rate ceiling. The host stays
// held by the enclosing Do.
func (p *Pacer) Pause(ctx context.Context, hostname string) error {
	if err := p.sleep(ctx, p.delay); err != nil {
		return err
	}
	return p.host(hostname).limiter.Wait(ctx)
}

func (p *Pacer) host(name string) *host {
	p.mu.Lock()
	defer p.mu.Unlock()

	h, ok := p.hosts[name]
	if !ok {
		h = &host{
			gate:    make(chan struct{}, 1),
			limiter: rate.NewLimiter(p.limit, 1),
		}
		p.hosts[name] = h
	}
	return h
}

// Sleep is the default SleepFunc.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// HostOf returns the host part of rawURL, or rawURL itself when it does not
// parse as an absolute URL.
func HostOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return rawURL
	}
	return u.Host
}
