package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"zocheckout.com/app/internal/config"
	apphttp "zocheckout.com/app/internal/http"
	"zocheckout.com/app/internal/modules/checkout"
	"zocheckout.com/app/internal/modules/checkoutstate"
	"zocheckout.com/app/internal/modules/payments"
	"zocheckout.com/app/pkg/metrics"
)

func main() {
	configPath := flag.String("config", "", "optional yaml config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	state, err := checkoutstate.FromConfig(ctx, cfg)
	if err != nil {
		log.Fatalf("checkout state: %v", err)
	}
	defer state.Close()

	gateway, err := payments.FromConfig(cfg, logger)
	if err != nil {
		log.Fatalf("payment gateway: %v", err)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.NewServerMetrics(reg, "web")

	coord := checkout.NewCoordinator(
		checkout.NewInlineCheckoutFactory(cfg.Checkout.FrameURL, cfg.Checkout.FrameHeight, logger),
		logger,
		checkout.Options{
			SessionTimeout: cfg.Gateway.Timeout,
			OnOutcome:      m.CardSessionOutcome,
			OnAuthorize: []checkout.EventHandler{func(ctx context.Context, ev checkout.Event, p checkout.EventPayload) {
				logger.InfoContext(ctx, "card payment authorized", "order_id", p.OrderID, "txnid", p.TransactionID)
			}},
			OnCancel: []checkout.EventHandler{func(ctx context.Context, ev checkout.Event, p checkout.EventPayload) {
				logger.InfoContext(ctx, "card payment cancelled", "order_id", p.OrderID)
			}},
			MountedTTL: cfg.State.TTL,
		},
	)

	r := apphttp.NewRouter(apphttp.Deps{
		Logger:      logger,
		Config:      cfg,
		Repo:        state.Repo,
		StateDriver: state.Driver,
		Gateway:     gateway,
		Coordinator: coord,
		Metrics:     m,
		Gatherer:    reg,
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("starting server", "addr", srv.Addr, "state_driver", state.Driver, "gateway", gateway.Name())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server failed", "err", err)
			stop()
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ConnectionTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown failed", "err", err)
	}
	logger.Info("server stopped")
}
