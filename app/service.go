package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/telecare/oncall/api/consult"
	"github.com/telecare/oncall/api/responders"
	"github.com/telecare/oncall/config"
	coredirectory "github.com/telecare/oncall/core/directory"
	"github.com/telecare/oncall/core/dispatch"
	"github.com/telecare/oncall/core/dispatch/logging"
	coremetrics "github.com/telecare/oncall/core/metrics"
	"github.com/telecare/oncall/core/ranking"
	infradirectory "github.com/telecare/oncall/infra/directory"
	"github.com/telecare/oncall/infra/logger"
	inframetrics "github.com/telecare/oncall/infra/metrics"
	infranotify "github.com/telecare/oncall/infra/notify"
	infrasession "github.com/telecare/oncall/infra/session"
	"github.com/telecare/oncall/internal/eventbus"
)

// Service wires the dispatch engine to its collaborators and serves the
// public API.
type Service struct {
	Engine      *dispatch.Engine
	dir         coredirectory.Admin
	sender      interface{ Close() error }
	audit       logging.LogStore
	bus         eventbus.EventBus
	log         logger.Logger
	httpAddr    string
	promEnabled bool
	promPort    string
}

// New creates a Service from the configuration.
func New(cfg *config.Config) (*Service, error) {
	logg := logger.New("service")

	var dir coredirectory.Admin
	switch cfg.Directory.Backend {
	case "memory":
		dir = infradirectory.NewMemoryDirectory()
	default:
		d, err := infradirectory.NewSQLiteDirectory(cfg.Directory.Path)
		if err != nil {
			return nil, fmt.Errorf("responder directory: %w", err)
		}
		dir = d
	}

	sender, err := infranotify.NewSender(cfg.Notifier, logger.New("notify"))
	if err != nil {
		return nil, fmt.Errorf("notify sender: %w", err)
	}
	issuer, err := infrasession.NewIssuer(cfg.Session)
	if err != nil {
		return nil, fmt.Errorf("session issuer: %w", err)
	}

	bus := eventbus.New()
	engine, err := dispatch.NewEngine(dir, sender, issuer,
		cfg.Dispatch.ResponseTimeout(), cfg.Dispatch.MaxPasses, bus, logger.New("dispatch"))
	if err != nil {
		return nil, fmt.Errorf("dispatch engine: %w", err)
	}
	engine.SetSendTimeout(cfg.Dispatch.SendTimeout())
	if cfg.Dispatch.RankCandidates {
		rk := ranking.NewLatencyRanker()
		engine.SetRanker(rk)
		engine.SetResponseObserver(rk)
	}
	sinks := []coremetrics.Sink{inframetrics.NewLogSink(logger.New("resolution"))}
	if cfg.Metrics.InfluxEnabled {
		sinks = append(sinks, inframetrics.NewInfluxSinkWithFallback(
			cfg.Metrics.InfluxURL, cfg.Metrics.InfluxToken,
			cfg.Metrics.InfluxOrg, cfg.Metrics.InfluxBucket))
	}
	if len(sinks) == 1 {
		engine.SetMetricsSink(sinks[0])
	} else {
		engine.SetMetricsSink(inframetrics.NewMultiSink(sinks...))
	}

	var audit logging.LogStore
	switch cfg.Audit.Backend {
	case "jsonl":
		audit, err = logging.NewJSONLStore(cfg.Audit.Path)
	case "sqlite":
		audit, err = logging.NewSQLiteStore(cfg.Audit.Path)
	}
	if err != nil {
		return nil, fmt.Errorf("audit store: %w", err)
	}

	svc := &Service{
		Engine:      engine,
		dir:         dir,
		audit:       audit,
		bus:         bus,
		log:         logg,
		httpAddr:    cfg.HTTP.Addr,
		promEnabled: cfg.Metrics.PrometheusEnabled,
		promPort:    cfg.Metrics.PrometheusPort,
	}
	if c, ok := sender.(interface{ Close() error }); ok {
		svc.sender = c
	}
	return svc, nil
}

// Run starts the service and blocks until the context is cancelled.
func (s *Service) Run(ctx context.Context) error {
	if s.audit != nil {
		obs := logging.NewObserver(s.bus, s.audit, logger.New("audit"))
		go obs.Run(ctx)
	}
	if s.promEnabled {
		go func() {
			if err := inframetrics.StartPromServer(ctx, s.promPort, logger.New("metrics")); err != nil {
				s.log.Errorf("prom server: %v", err)
			}
		}()
	}

	mux := http.NewServeMux()
	consultAPI := consult.NewHandler(s.Engine, logger.New("api"))
	mux.Handle("/api/consult", consultAPI)
	mux.Handle("/api/consult/", consultAPI)
	mux.Handle("/api/responders", responders.NewListHandler(s.dir))
	srv := &http.Server{Addr: s.httpAddr, Handler: mux}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			s.log.Errorf("http shutdown: %v", err)
		}
	}()
	s.log.Infof("listening on %s", s.httpAddr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Close releases resources held by the service.
func (s *Service) Close() error {
	s.bus.Close()
	if s.sender != nil {
		if err := s.sender.Close(); err != nil {
			return err
		}
	}
	if s.audit != nil {
		if err := s.audit.Close(); err != nil {
			return err
		}
	}
	if c, ok := s.dir.(interface{ Close() error }); ok {
		return c.Close()
	}
	return nil
}
