package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/LoayTarek5/Web-Scraper/internal/api"
	"github.com/LoayTarek5/Web-Scraper/internal/clock/system"
	"github.com/LoayTarek5/Web-Scraper/internal/config"
	"github.com/LoayTarek5/Web-Scraper/internal/dispatcher"
	"github.com/LoayTarek5/Web-Scraper/internal/extractor"
	collyfetcher "github.com/LoayTarek5/Web-Scraper/internal/fetcher/colly"
	"github.com/LoayTarek5/Web-Scraper/internal/fetcher/headless"
	"github.com/LoayTarek5/Web-Scraper/internal/frontier"
	"github.com/LoayTarek5/Web-Scraper/internal/logging"
	"github.com/LoayTarek5/Web-Scraper/internal/metrics"
	"github.com/LoayTarek5/Web-Scraper/internal/ratelimit"
	"github.com/LoayTarek5/Web-Scraper/internal/report"
	"github.com/LoayTarek5/Web-Scraper/internal/report/sinks"
	"github.com/LoayTarek5/Web-Scraper/internal/scraper"
	"github.com/LoayTarek5/Web-Scraper/internal/stats"
	"github.com/LoayTarek5/Web-Scraper/internal/store/postgres"
	"github.com/LoayTarek5/Web-Scraper/internal/worker"
)

var scrapeCmd = &cobra.Command{
	Use:   "scrape [urls...]",
	Short: "Scrape the seed URLs and report outcomes",
	RunE:  runScrape,
}

func init() {
	rootCmd.AddCommand(scrapeCmd)
}

func runScrape(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return err
	}

	logger, err := logging.New(cfg.Logging.Development)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	metrics.Init()
	clock := system.New()

	limiter, err := ratelimit.New(ratelimit.Rule{
		Requests: cfg.RateLimit.Requests,
		Period:   cfg.RateLimit.Period,
		MinDelay: cfg.RateLimit.MinDelay,
	}, clock, logger)
	if err != nil {
		return err
	}
	for _, rule := range cfg.RateLimit.Domains {
		if err := limiter.AddRule(rule.Domain, ratelimit.Rule{
			Requests: rule.Requests,
			Period:   rule.Period,
			MinDelay: rule.MinDelay,
		}); err != nil {
			return fmt.Errorf("rate limit rule for %s: %w", rule.Domain, err)
		}
	}

	fetcher, cleanup, err := buildFetcher(cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	ext := extractor.New()
	ext.BookDetails = cfg.Extractor.BookDetails

	runner := &worker.Runner{
		Fetcher:      fetcher,
		Extractor:    ext,
		Admitter:     limiter,
		Clock:        clock,
		Logger:       logger,
		MaxRetries:   cfg.Scraper.MaxRetries,
		BackoffBase:  cfg.Scraper.BackoffBase,
		FetchTimeout: cfg.Scraper.FetchTimeout,
	}
	if err := runner.Validate(); err != nil {
		return err
	}

	tracker := stats.NewTracker(clock)
	hub, err := buildHub(cmd.Context(), cfg, tracker, logger)
	if err != nil {
		return err
	}

	disp, err := dispatcher.New(dispatcher.Config{
		Workers:       cfg.Scraper.Workers,
		PollInterval:  cfg.Scraper.PollInterval,
		ShutdownGrace: cfg.Scraper.ShutdownGrace,
	}, frontier.New(logger), runner, hub, clock, logger)
	if err != nil {
		return err
	}

	seeds := append(append([]string(nil), cfg.Seeds...), args...)
	if accepted := disp.Seed(seeds); accepted == 0 {
		_ = hub.Close(context.Background())
		return fmt.Errorf("no valid seed URLs (got %d)", len(seeds))
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Server.Enabled {
		srv := api.New(cfg.Server.Port, tracker, disp, logger)
		go func() {
			if err := srv.Start(ctx); err != nil {
				logger.Error("status api stopped", zap.Error(err))
			}
		}()
	}

	runErr := disp.Run(ctx)

	closeCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := hub.Close(closeCtx); err != nil {
		logger.Warn("report hub close", zap.Error(err))
	}

	fmt.Fprint(cmd.OutOrStdout(), tracker.Summary())

	if runErr != nil {
		logger.Warn("run interrupted", zap.Error(runErr))
	}
	return nil
}

func buildFetcher(cfg *config.Config) (scraper.Fetcher, func(), error) {
	switch cfg.Fetcher.Mode {
	case "headless":
		f, err := headless.New(headless.Config{
			MaxParallel:       cfg.Fetcher.HeadlessMaxParallel,
			UserAgent:         cfg.Scraper.UserAgent,
			NavigationTimeout: cfg.Fetcher.HeadlessNavTimeout,
		})
		if err != nil {
			return nil, nil, err
		}
		return f, f.Close, nil
	default:
		f := collyfetcher.New(collyfetcher.Config{
			UserAgent: cfg.Scraper.UserAgent,
			Timeout:   cfg.Scraper.FetchTimeout,
		})
		return f, func() {}, nil
	}
}

func buildHub(ctx context.Context, cfg *config.Config, tracker *stats.Tracker, logger *zap.Logger) (*report.Hub, error) {
	var sinkList []report.Sink
	if cfg.Sinks.Log {
		sinkList = append(sinkList, sinks.NewLogSink(logger))
	}
	if cfg.Sinks.Prometheus {
		sinkList = append(sinkList, sinks.NewPrometheusSink())
	}
	if cfg.Sinks.Stats {
		sinkList = append(sinkList, sinks.NewStatsSink(tracker))
	}
	if cfg.Sinks.Postgres {
		store, err := postgres.New(ctx, cfg.Postgres.DSN, logger)
		if err != nil {
			return nil, err
		}
		if err := store.Init(ctx); err != nil {
			store.Close()
			return nil, err
		}
		sinkList = append(sinkList, sinks.NewStoreSink(store))
	}
	if cfg.Sinks.Pubsub {
		sink, err := sinks.NewPubsubSink(ctx, cfg.Pubsub.Project, cfg.Pubsub.Topic, logger)
		if err != nil {
			return nil, err
		}
		sinkList = append(sinkList, sink)
	}
	return report.NewHub(report.Config{Logger: logger}, sinkList...), nil
}
