package testutil

import (
	"context"
	"sync"
	"time"

	"b3fundamentals/internal/fetcher"
	"b3fundamentals/internal/market"
)

// MockFetcher is a mock implementation of the Fetcher interface for testing.
type MockFetcher struct {
	SourceID  market.Source
	KindID    market.SourceKind
	FetchFunc func(ctx context.Context, ticker market.Ticker) fetcher.Result

	mu    sync.Mutex
	calls []market.Ticker
}

// Source implements the Fetcher interface.
func (m *MockFetcher) Source() market.Source {
	if m.SourceID == "" {
		return "mock"
	}
	return m.SourceID
}

// Kind implements the Fetcher interface.
func (m *MockFetcher) Kind() market.SourceKind {
	if m.KindID == "" {
		return market.KindAPI
	}
	return m.KindID
}

// Fetch implements the Fetcher interface.
func (m *MockFetcher) Fetch(ctx context.Context, ticker market.Ticker) fetcher.Result {
	m.mu.Lock()
	m.calls = append(m.calls, ticker)
	m.mu.Unlock()

	if m.FetchFunc != nil {
		return m.FetchFunc(ctx, ticker)
	}
	return fetcher.NewBuilder(m.Source(), m.Kind(), ticker, time.Now()).Result()
}

// Calls returns the tickers Fetch was called with, in call order.
func (m *MockFetcher) Calls() []market.Ticker {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]market.Ticker(nil), m.calls...)
}

// NewMockFetcher creates a mock fetcher that answers every ticker with values.
func NewMockFetcher(source market.Source, kind market.SourceKind, values map[market.Field]market.Value) *MockFetcher {
	return &MockFetcher{
		SourceID:  source,
		KindID:    kind,
		FetchFunc: func(ctx context.Context, ticker market.Ticker) fetcher.Result {
			return NewResult(source, kind, ticker, values)
		},
	}
}

// NewFailingFetcher creates a mock fetcher whose every fetch fails with err.
func NewFailingFetcher(source market.Source, kind market.SourceKind, err *fetcher.FetchError) *MockFetcher {
	return &MockFetcher{
		SourceID:  source,
		KindID:    kind,
		FetchFunc: func(ctx context.Context, ticker market.Ticker) fetcher.Result {
			return fetcher.NewBuilder(source, kind, ticker, time.Now()).Fail("mock failure", err)
		},
	}
}

// NewResult builds a successful result holding values.
func NewResult(source market.Source, kind market.SourceKind, ticker market.Ticker, values map[market.Field]market.Value) fetcher.Result {
	b := fetcher.NewBuilder(source, kind, ticker, time.Now())
	for f, v := range values {
		b.Set(f, v)
	}
	return b.Result()
}

// RecordingPacer is a fetcher.Pacer that runs calls unpaced and counts them
// per host, including calls that fail or panic. It also counts the pauses
// the real pacer would take: one per Do and one per Pause.
type RecordingPacer struct {
	mu     sync.Mutex
	hosts  map[string]int
	pauses map[string]int
}

// Do implements fetcher.Pacer.
func (p *RecordingPacer) Do(ctx context.Context, host string, call func(ctx context.Context) error) error {
	defer func() {
		p.mu.Lock()
		defer p.mu.Unlock()
		p.init()
		p.hosts[host]++
		p.pauses[host]++
	}()
	return call(ctx)
}

// Pause implements fetcher.Pacer.
func (p *RecordingPacer) Pause(_ context.Context, host string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.init()
	p.pauses[host]++
	return nil
}

func (p *RecordingPacer) init() {
	if p.hosts == nil {
		p.hosts = make(map[string]int)
		p.pauses = make(map[string]int)
	}
}

// Count returns how many calls went through for host.
func (p *RecordingPacer) Count(host string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.hosts[host]
}

// Pauses returns how many pacing pauses host was owed.
func (p *RecordingPacer) Pauses(host string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.pauses[host]
}

// Total returns how many calls went through for all hosts.
func (p *RecordingPacer) Total() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for _, c := range p.hosts {
		n += c
	}
	return n
}
