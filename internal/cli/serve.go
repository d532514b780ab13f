package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/efreitasn/stocksim/internal/catalog"
	"github.com/efreitasn/stocksim/internal/config"
	"github.com/efreitasn/stocksim/internal/domain"
	"github.com/efreitasn/stocksim/internal/engine"
	"github.com/efreitasn/stocksim/internal/events"
	"github.com/efreitasn/stocksim/internal/handler"
	"github.com/efreitasn/stocksim/internal/journal"
	"github.com/efreitasn/stocksim/internal/logging"
	"github.com/efreitasn/stocksim/internal/metrics"
	"github.com/efreitasn/stocksim/internal/service"
	"github.com/efreitasn/stocksim/internal/store"
	"github.com/efreitasn/stocksim/internal/stream"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

func newServeCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API, event stream and price scheduler",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(opts.configPath)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			logger, sync, err := logging.New(cfg.LogLevel, cfg.LogFormat)
			if err != nil {
				return fmt.Errorf("set up logging: %w", err)
			}
			defer func() { _ = sync() }()

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			ln, err := net.Listen("tcp", fmt.Sprintf(":%d", cfg.Port))
			if err != nil {
				return fmt.Errorf("listen: %w", err)
			}
			return serve(ctx, cfg, logger, ln)
		},
	}
}

// serve runs every component until ctx is cancelled or one of them fails.
func serve(ctx context.Context, cfg *config.Config, logger *slog.Logger, ln net.Listener) error {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	webhookSvc := service.NewWebhookService(store.NewWebhookStore(), cfg.WebhookTimeout, logger)
	fanout := events.Fanout{
		events.NewLogNotifier(logger),
		metrics.New(reg),
		webhookSvc,
	}

	var sink *journal.Sink
	if cfg.JournalPath != "" {
		j, err := journal.NewSQLite(cfg.JournalPath)
		if err != nil {
			return fmt.Errorf("open journal: %w", err)
		}
		defer j.Close()
		sink = journal.NewSink(j, cfg.CommandBuffer, logger)
		fanout = append(fanout, sink)
	}

	e := engine.New(engine.Config{
		Interval:      cfg.TickInterval,
		Points:        cfg.HistoryPoints(),
		InitialCash:   cfg.InitialCash,
		CommandBuffer: cfg.CommandBuffer,
	}, engine.NewSeededWalker(cfg.Seed), &fanout, logger)

	hub := stream.NewHub(e, cfg.StreamBuffer, logger)
	fanout = append(fanout, hub)

	scheduler := engine.NewScheduler(e, cfg.TickInterval, logger)
	marketSvc := service.NewMarketService(e, func() ([]domain.CatalogEntry, error) {
		return catalog.Load(cfg.CatalogPath)
	}, scheduler)

	srv := &http.Server{
		Handler: handler.NewRouter(handler.Routes{
			Market:   marketSvc,
			Webhooks: webhookSvc,
			Stream:   hub,
			Metrics:  promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
		}, logger),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return e.Run(gctx) })
	g.Go(func() error { return hub.Run(gctx) })
	g.Go(func() error {
		err := scheduler.Run(gctx)
		if errors.Is(err, domain.ErrEngineStopped) && gctx.Err() != nil {
			return nil
		}
		return err
	})
	if sink != nil {
		g.Go(func() error { return sink.Run(gctx) })
	}
	if cfg.AutoLoad {
		g.Go(func() error {
			if _, err := marketSvc.Load(gctx); err != nil && gctx.Err() == nil {
				return fmt.Errorf("load catalog: %w", err)
			}
			return nil
		})
	}
	g.Go(func() error {
		logger.Info("server starting", slog.String("addr", ln.Addr().String()))
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serve http: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(gctx), cfg.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown http: %w", err)
		}
		return nil
	})

	err := g.Wait()
	webhookSvc.Wait()
	logger.Info("server stopped")
	return err
}
