package main

import (
	"fmt"
	"io"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"jobyaari-engine/internal/config"
	"jobyaari-engine/internal/engine"
	"jobyaari-engine/internal/events"
	"jobyaari-engine/internal/kb"
	"jobyaari-engine/internal/logging"
	"jobyaari-engine/internal/metrics"
	"jobyaari-engine/internal/scrape/fetch"
	"jobyaari-engine/internal/scrape/jobyaari"
	"jobyaari-engine/internal/scrape/util"
	"jobyaari-engine/internal/store"
)

// app holds everything one process needs. Close releases what it opened.
type app struct {
	cfg      config.Config
	cfgPath  string
	log      *zap.Logger
	reg      *prometheus.Registry
	db       *store.DB
	breakers *fetch.BreakerRegistry
	hub      *events.Hub
	engine   *engine.Engine

	closers []io.Closer
}

func loadConfig(f *rootFlags) (config.Config, string, error) {
	path, err := config.EnsureUserConfig(f.dataDir, f.configPath)
	if err != nil {
		return config.Config{}, "", fmt.Errorf("config bootstrap: %w", err)
	}
	cfg, err := config.Load(path)
	if err != nil {
		return cfg, path, fmt.Errorf("load config %s: %w", path, err)
	}
	if err := config.OverlayRules(&cfg, f.rulesPath); err != nil {
		return cfg, path, fmt.Errorf("rules overlay %s: %w", f.rulesPath, err)
	}
	cfg, vr := config.NormalizeAndValidate(cfg)
	if !vr.OK() {
		return cfg, path, fmt.Errorf("invalid config: %v", vr.Errors)
	}
	if cfg.App.DataDir == "" || cfg.App.DataDir == "." {
		cfg.App.DataDir = f.dataDir
	}
	return cfg, path, nil
}

func newApp(f *rootFlags) (*app, error) {
	cfg, path, err := loadConfig(f)
	if err != nil {
		return nil, err
	}
	log, err := logging.New(cfg.App.LogLevel, cfg.App.LogFormat)
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}

	a := &app{cfg: cfg, cfgPath: path, log: log, reg: prometheus.NewRegistry(), hub: events.NewHub()}
	m := metrics.NewCollector(a.reg)

	headers := fetch.Headers{UserAgent: cfg.Source.UserAgent, Referer: cfg.Source.Referer}
	var fetcher fetch.Fetcher
	if cfg.Fetch.Renderer == "playwright" {
		rf := fetch.NewRenderFetcher(cfg.FetchTimeout(), headers)
		a.closers = append(a.closers, rf)
		fetcher = rf
	} else {
		fetcher = fetch.NewHTTPFetcher(cfg.FetchTimeout(), headers)
	}

	breakers := fetch.NewBreakerRegistry(fetch.BreakerConfig{
		Threshold: cfg.Breaker.FailureThreshold,
		Cooldown:  cfg.BreakerCooldown(),
		Logger:    log,
		OnStateChange: func(host string, _, to fetch.BreakerState) {
			m.SetBreakerState(host, int(to))
		},
	})
	a.breakers = breakers
	ctrl := fetch.NewController(fetcher, fetch.Options{
		MaxRetries: cfg.Fetch.MaxRetries,
		Backoff:    fetch.Backoff{Base: cfg.BackoffBase(), Max: cfg.BackoffMax(), Jitter: cfg.Jitter()},
		Breakers:   breakers,
		Limiter:    util.NewHostLimiter(cfg.Fetch.RequestsPerSecond, cfg.Fetch.Burst),
		Logger:     log,
		Metrics:    m,
	})

	log.Debug("fetcher ready", zap.String("strategy", ctrl.FetcherName()))

	src, err := jobyaari.New(cfg, ctrl, log, m)
	if err != nil {
		a.Close()
		return nil, err
	}

	var history engine.History
	if cfg.Persistence.HistoryDB != "" {
		db, err := store.Open(config.ResolvePath(cfg.App.DataDir, cfg.Persistence.HistoryDB))
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("open history: %w", err)
		}
		a.db = db
		a.closers = append(a.closers, db)
		history = db
	}

	kbPath := config.ResolvePath(cfg.App.DataDir, cfg.Persistence.OutputPath)
	a.engine = engine.New(engine.Deps{
		Config:  cfg,
		Source:  src,
		Store:   kb.NewStore(kbPath, cfg.Persistence.Backup, log),
		History: history,
		Events:  a.hub,
		Metrics: m,
		Logger:  log,
	})
	return a, nil
}

func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i].Close(); err != nil {
			a.log.Warn("close failed", zap.Error(err))
		}
	}
	_ = a.log.Sync()
}
