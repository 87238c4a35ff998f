package fetcher

import (
	"context"
	"time"

	"resty.dev/v3"

	"b3fundamentals/internal/fieldmap"
)

// Pacer runs one outbound call for a host under the caller's pacing policy.
// ratelimit.Pacer is the production implementation.
type Pacer interface {
	Do(ctx context.Context, host string, call func(ctx context.Context) error) error
	// Pause is owed between two attempts of the same call inside Do.
	Pause(ctx context.Context, host string) error
}

// Options are the dependencies shared by every source implementation.
type Options struct {
	HTTP   HTTPOptions
	Pacer  Pacer
	Mapper *fieldmap.Mapper
	Now    func() time.Time
}

// WithDefaults fills unset dependencies.
func (o Options) WithDefaults() Options {
	if o.Pacer == nil {
		o.Pacer = unpaced{}
	}
	if o.Mapper == nil {
		o.Mapper = fieldmap.Default()
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	return o
}

// NewClient creates the HTTP client of a source. Every retried attempt is
// followed by the pacer's pause before the next one, so each network call
// to a host pays the pacing delay.
func (o Options) NewClient(baseURL string) *resty.Client {
	pacer := o.WithDefaults().Pacer
	return NewHTTPClient(baseURL, o.HTTP).
		AddRetryHooks(func(r *resty.Response, _ error) {
			_ = pacer.Pause(r.Request.Context(), requestHost(r.Request))
		})
}

type unpaced struct{}

func (unpaced) Do(ctx context.Context, _ string, call func(ctx context.Context) error) error {
	return call(ctx)
}

func (unpaced) Pause(context.Context, string) error { return nil }
