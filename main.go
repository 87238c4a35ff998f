package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/pflag"

	"b3fundamentals/internal/cache"
	"b3fundamentals/internal/config"
	"b3fundamentals/internal/coordinator"
	"b3fundamentals/internal/fetcher"
	"b3fundamentals/internal/investidor10"
	"b3fundamentals/internal/market"
	"b3fundamentals/internal/metrics"
	"b3fundamentals/internal/ratelimit"
	"b3fundamentals/internal/report"
	"b3fundamentals/internal/statusinvest"
	"b3fundamentals/internal/yahoo"
)

func main() {
	// Create context with cancellation for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle interrupt signals for graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		fmt.Fprintln(os.Stderr, "\nReceived interrupt signal, shutting down...")
		cancel()
	}()

	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	signal.Stop(sigChan)
	os.Exit(code)
}

// run executes one pipeline run. The report goes to stdout; progress and
// logs go to stderr. It returns the process exit code.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	fs := config.Flags()
	fs.SetOutput(stderr)
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return 0
		}
		return 2
	}

	// Load configuration
	cfg, err := config.Load(fs)
	if err != nil {
		fmt.Fprintf(stderr, "Failed to load configuration: %v\n", err)
		return 1
	}

	logger := newLogger(cfg, stderr)
	slog.SetDefault(logger)

	tickers, err := market.ParseTickers(cfg.Tickers)
	if err != nil {
		logger.Error("invalid ticker list", "error", err)
		return 1
	}

	if cfg.MetricsAddr != "" {
		if err := metrics.Init(prometheus.DefaultRegisterer); err != nil {
			logger.Error("failed to register metrics", "error", err)
			return 1
		}
		go func() {
			if err := metrics.ServeHTTP(cfg.MetricsAddr); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("metrics server stopped", "addr", cfg.MetricsAddr, "error", err)
			}
		}()
	}

	coord := newCoordinator(cfg, logger)

	fmt.Fprintf(stderr, "Fetching fundamentals for %d tickers from %d sources...\n", len(tickers), len(cfg.Sources()))
	rep, runErr := coord.Run(ctx, tickers, func(p coordinator.Progress) {
		status := "ok"
		if p.Degraded {
			status = "degraded"
		}
		fmt.Fprintf(stderr, "[%d/%d] %s %s\n", p.Index, p.Total, p.Ticker, status)
	})

	if rep != nil && len(rep.Records) > 0 {
		if err := report.Write(stdout, cfg.Output, rep.Records); err != nil {
			logger.Error("failed to write report", "error", err)
			return 1
		}
	}

	if runErr != nil {
		logger.Error("run failed", "error", runErr)
		return 1
	}
	return 0
}

// newCoordinator wires the enabled sources behind one shared pacer and cache.
func newCoordinator(cfg *config.Config, logger *slog.Logger) *coordinator.Coordinator {
	pacer := ratelimit.NewPacer(cfg.PacingDelay, ratelimit.WithRequestsPerMinute(cfg.RequestsPerMinute))
	opts := fetcher.Options{
		HTTP: fetcher.HTTPOptions{
			Timeout:    cfg.RequestTimeout,
			UserAgent:  cfg.UserAgent,
			RetryCount: fetcher.Retries(cfg.RetryCount),
		},
		Pacer: pacer,
	}

	// Create fetchers for the enabled sources
	sources := cfg.Sources()
	fetchers := make([]fetcher.Fetcher, 0, len(sources))
	for _, src := range sources {
		switch src {
		case market.SourceYahoo:
			fetchers = append(fetchers, yahoo.NewFetcher(cfg.YahooBaseURL, opts, yahoo.WithConsentURL(cfg.YahooConsentURL)))
		case market.SourceStatusInvest:
			fetchers = append(fetchers, statusinvest.NewFetcher(cfg.StatusInvestBaseURL, opts))
		case market.SourceInvestidor10:
			fetchers = append(fetchers, investidor10.NewFetcher(cfg.Investidor10BaseURL, opts))
		}
	}

	c := cache.New(fetchers,
		cache.WithTTL(cfg.CacheTTL),
		cache.WithFailureTTL(cfg.FailureTTL),
		cache.MaxEntries(cfg.CacheMaxEntries),
		cache.WithLogger(logger),
	)

	return coordinator.New(c, sources,
		coordinator.WithWorkers(cfg.Workers),
		coordinator.WithLogger(logger),
	)
}

func newLogger(cfg *config.Config, w io.Writer) *slog.Logger {
	level, _ := config.ParseLevel(cfg.LogLevel)
	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler = slog.NewTextHandler(w, opts)
	if cfg.LogFormat == "json" {
		handler = slog.NewJSONHandler(w, opts)
	}
	return slog.New(handler)
}
