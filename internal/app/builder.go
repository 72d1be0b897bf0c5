package app

import (
	"context"
	"fmt"
	"strings"

	"financeshub/internal/config"
	"financeshub/internal/gateway/binance"
	"financeshub/internal/gateway/coingecko"
	"financeshub/internal/gateway/yahoo"
	"financeshub/internal/jobspec"
	"financeshub/internal/logger"
	"financeshub/internal/orchestrator"
	"financeshub/internal/persist"
	"financeshub/internal/pkg/errkind"
	"financeshub/internal/scheduler"
	"financeshub/internal/sqlscript"
	"financeshub/internal/store/bronze"
	"financeshub/internal/store/rawfile"
	"financeshub/internal/store/runlog"
	statushttp "financeshub/internal/transport/http/status"

	"gorm.io/gorm"
)

type AppBuilder struct {
	cfg *config.Config

	exchangeFn   func(config.ProvidersConfig) (orchestrator.ExchangeFetcher, error)
	marketDataFn func(config.ProvidersConfig) orchestrator.MarketDataFetcher
	equityFn     func(config.ProvidersConfig) orchestrator.EquityFetcher
	dialector    func(dsn string) gorm.Dialector
}

type AppBuilderOption func(*AppBuilder)

// WithExchange replaces the exchange adapter.
func WithExchange(f orchestrator.ExchangeFetcher) AppBuilderOption {
	return func(b *AppBuilder) {
		b.exchangeFn = func(config.ProvidersConfig) (orchestrator.ExchangeFetcher, error) { return f, nil }
	}
}

func WithMarketData(f orchestrator.MarketDataFetcher) AppBuilderOption {
	return func(b *AppBuilder) {
		b.marketDataFn = func(config.ProvidersConfig) orchestrator.MarketDataFetcher { return f }
	}
}

func WithEquity(f orchestrator.EquityFetcher) AppBuilderOption {
	return func(b *AppBuilder) {
		b.equityFn = func(config.ProvidersConfig) orchestrator.EquityFetcher { return f }
	}
}

// WithDialector swaps the warehouse driver used by the bronze store and the SQL runner.
func WithDialector(d func(dsn string) gorm.Dialector) AppBuilderOption {
	return func(b *AppBuilder) { b.dialector = d }
}

func NewAppBuilder(cfg *config.Config, opts ...AppBuilderOption) *AppBuilder {
	b := &AppBuilder{
		cfg:          cfg,
		exchangeFn:   buildExchange,
		marketDataFn: buildMarketData,
		equityFn:     buildEquity,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(b)
		}
	}
	return b
}

func buildExchange(p config.ProvidersConfig) (orchestrator.ExchangeFetcher, error) {
	client, err := binance.New(binance.Config{
		RESTBaseURL:  p.Binance.BaseURL,
		HTTPTimeout:  p.HTTPTimeout(),
		UserAgent:    p.UserAgent,
		ProxyEnabled: p.Binance.ProxyEnabled,
		RESTProxyURL: p.Binance.ProxyURL,
	})
	if err != nil {
		return nil, err
	}
	return client, nil
}

func buildMarketData(p config.ProvidersConfig) orchestrator.MarketDataFetcher {
	return coingecko.New(coingecko.Config{
		BaseURL:      p.Coingecko.BaseURL,
		APIKey:       p.Coingecko.APIKey,
		APIKeyHeader: p.Coingecko.APIKeyHeader,
		HTTPTimeout:  p.HTTPTimeout(),
		UserAgent:    p.UserAgent,
	})
}

func buildEquity(p config.ProvidersConfig) orchestrator.EquityFetcher {
	return yahoo.New(yahoo.Config{
		BaseURL:     p.Yahoo.BaseURL,
		HTTPTimeout: p.HTTPTimeout(),
		UserAgent:   p.UserAgent,
	})
}

func (b *AppBuilder) Build(ctx context.Context) (*App, error) {
	if b.cfg == nil {
		return nil, fmt.Errorf("nil config")
	}
	cfg := b.cfg

	sink, err := persist.ParseSink(cfg.Storage.Sink)
	if err != nil {
		return nil, err
	}
	exchange, err := b.exchangeFn(cfg.Providers)
	if err != nil {
		return nil, fmt.Errorf("exchange adapter: %w", err)
	}

	warehouse := bronze.New(bronze.Options{DSN: cfg.Storage.PostgresDSN, Dialector: b.dialector})
	router := persist.NewRouter(rawfile.New(cfg.Storage.RawDir), warehouse, sink)

	var ledger *runlog.Store
	if path := strings.TrimSpace(cfg.Storage.RunlogPath); path != "" {
		if ledger, err = runlog.Open(path); err != nil {
			return nil, fmt.Errorf("open run ledger: %w", err)
		}
	}

	var registry *jobspec.Registry
	if path := strings.TrimSpace(cfg.Jobs.Path); path != "" {
		if registry, err = jobspec.NewRegistry(path); err != nil {
			closeLedger(ledger)
			return nil, err
		}
	}

	scripts := sqlscript.NewRunner(cfg.Storage.PostgresDSN, b.dialector)
	deps := orchestrator.Deps{
		Exchange:   exchange,
		MarketData: b.marketDataFn(cfg.Providers),
		Equity:     b.equityFn(cfg.Providers),
		Injector:   router,
		Scripts:    scripts,
		Jobs:       jobProvider(registry),
	}
	if ledger != nil {
		deps.Recorder = ledger
	}

	a := &App{
		cfg:       cfg,
		sink:      sink,
		runner:    orchestrator.NewRunner(deps),
		registry:  registry,
		ledger:    ledger,
		warehouse: warehouse,
		scripts:   scripts,
	}

	if cfg.App.Mode == config.ModeSchedule {
		loop, err := buildRunLoop(cfg.Schedule)
		if err != nil {
			closeLedger(ledger)
			return nil, err
		}
		a.scheduler = loop

		if addr := strings.TrimSpace(cfg.HTTP.StatusAddr); addr != "" {
			if ledger == nil {
				logger.Warnf("status API disabled: storage.runlog_path is empty")
			} else {
				srv, err := statushttp.NewServer(statushttp.ServerConfig{
					Addr:     addr,
					Runs:     ledger,
					JobNames: a.JobNames,
				})
				if err != nil {
					closeLedger(ledger)
					return nil, err
				}
				a.status = srv
			}
		}
	}
	return a, nil
}

func buildRunLoop(sc config.ScheduleConfig) (runLoop, error) {
	if strings.TrimSpace(sc.Cron) != "" {
		c, err := scheduler.NewCronScheduler(sc.Cron)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", errkind.ErrConfig, err)
		}
		c.RunImmediately = sc.RunImmediately
		return c, nil
	}
	aligned := scheduler.NewAlignedScheduler(sc.IntervalDuration(), sc.OffsetDuration())
	aligned.RunImmediately = sc.RunImmediately
	return aligned, nil
}

// jobProvider resolves the job set per run so a reloaded job file applies to the next run.
func jobProvider(registry *jobspec.Registry) func() ([]orchestrator.Job, error) {
	if registry == nil {
		return nil
	}
	return func() ([]orchestrator.Job, error) {
		return orchestrator.FromDescriptors(registry.Jobs())
	}
}

func closeLedger(ledger *runlog.Store) {
	if ledger == nil {
		return
	}
	if err := ledger.Close(); err != nil {
		logger.Warnf("close run ledger: %v", err)
	}
}
