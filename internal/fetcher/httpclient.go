package fetcher

import (
	"log/slog"
	"time"

	"resty.dev/v3"
)

const (
	// Default retry configuration.
	defaultRetryCount       = 2
	defaultRetryWaitTime    = 1 * time.Second
	defaultRetryMaxWaitTime = 10 * time.Second

	// DefaultTimeout bounds each request attempt.
	DefaultTimeout = 10 * time.Second

	// DefaultUserAgent identifies this client to upstreams.
	DefaultUserAgent = "b3fundamentals/1.0 (fundamentals research client)"
)

// HTTPOptions configures NewHTTPClient. Zero fields take the defaults.
type HTTPOptions struct {
	Timeout    time.Duration
	UserAgent  string
	Accept     string
	RetryCount *int
	RetryWait  time.Duration
}

// NewHTTPClient creates a new HTTP client with a descriptive user agent, a
// fixed timeout and retry logic with exponential backoff.
func NewHTTPClient(baseURL string, opts HTTPOptions) *resty.Client {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	userAgent := opts.UserAgent
	if userAgent == "" {
		userAgent = DefaultUserAgent
	}
	accept := opts.Accept
	if accept == "" {
		accept = "application/json"
	}
	retries := defaultRetryCount
	if opts.RetryCount != nil {
		retries = *opts.RetryCount
	}
	wait := opts.RetryWait
	if wait <= 0 {
		wait = defaultRetryWaitTime
	}

	client := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout).
		SetHeader("Accept", accept).
		SetHeader("User-Agent", userAgent).
		SetRetryCount(retries).
		SetRetryWaitTime(wait).
		SetRetryMaxWaitTime(max(wait, defaultRetryMaxWaitTime)).
		SetRetryDefaultConditions(false).
		AddRetryConditions(retryCondition).
		AddRetryHooks(retryHook)

	return client
}

// Retries returns a pointer to n for HTTPOptions.RetryCount.
func Retries(n int) *int { return &n }

// retryCondition retries the attempts whose classified error is retryable.
// Rate-limited responses are not retried within a fetch.
func retryCondition(r *resty.Response, err error) bool {
	if err != nil {
		return ClassifyTransportError(err).Retryable
	}
	if r.StatusCode() < 400 {
		return false
	}
	return ClassifyHTTPError(r.StatusCode()).Retryable
}

// retryHook logs retry attempts for observability.
func retryHook(r *resty.Response, err error) {
	if err != nil {
		slog.Debug("retrying request due to error",
			"url", r.Request.URL,
			"attempt", r.Request.Attempt,
			"error", err.Error())
		return
	}

	slog.Debug("retrying request due to status code",
		"url", r.Request.URL,
		"attempt", r.Request.Attempt,
		"status_code", r.StatusCode())
}

// requestHost returns the host an attempt was sent to, port included, as
// the pacer keys it.
func requestHost(r *resty.Request) string {
	if r.RawRequest != nil && r.RawRequest.URL != nil {
		return r.RawRequest.URL.Host
	}
	return ""
}
