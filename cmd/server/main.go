package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"connectrpc.com/connect"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"
	"golang.org/x/sync/errgroup"

	"github.com/mmynk/kopa/internal/auth"
	"github.com/mmynk/kopa/internal/config"
	"github.com/mmynk/kopa/internal/events"
	"github.com/mmynk/kopa/internal/ledger"
	"github.com/mmynk/kopa/internal/lock"
	"github.com/mmynk/kopa/internal/metrics"
	"github.com/mmynk/kopa/internal/middleware"
	"github.com/mmynk/kopa/internal/registry"
	"github.com/mmynk/kopa/internal/reminder"
	"github.com/mmynk/kopa/internal/rotation"
	"github.com/mmynk/kopa/internal/service"
	"github.com/mmynk/kopa/internal/storage/sqlite"
	"github.com/mmynk/kopa/pkg/api/apiconnect"
	"github.com/mmynk/kopa/pkg/logging"
)

func main() {
	if err := run(); err != nil {
		slog.Error("Server failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		return err
	}

	level, _ := logging.ParseLevel(cfg.LogLevel)
	logging.Setup(level, cfg.LogFormat)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := sqlite.New(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("initialize storage: %w", err)
	}
	defer store.Close()
	slog.Info("Storage initialized", "database", cfg.DBPath)

	m := metrics.New()

	var publisher events.Publisher = events.LogPublisher{}
	if cfg.AMQPURL != "" {
		amqpPublisher, err := events.NewAMQPPublisher(cfg.AMQPURL, cfg.AMQPExchange)
		if err != nil {
			return fmt.Errorf("initialize event publisher: %w", err)
		}
		defer amqpPublisher.Close()
		publisher = amqpPublisher
		slog.Info("Publishing events to AMQP", "exchange", cfg.AMQPExchange)
	}
	publisher = m.Publisher(publisher)

	locks := lock.NewKeyed()
	reg := registry.New(store, locks)
	engine := rotation.New(store, locks, publisher)
	l := ledger.New(store, locks, publisher)

	jwtManager := auth.NewJWTManager(cfg.JWTSecret, cfg.JWTIssuer)
	interceptors := connect.WithInterceptors(
		m.Interceptor(),
		middleware.RequireAuth(jwtManager),
		middleware.LoggingInterceptor(),
	)

	mux := http.NewServeMux()
	mux.Handle(apiconnect.NewGroupServiceHandler(service.NewGroupService(store, reg, engine), interceptors))
	mux.Handle(apiconnect.NewCycleServiceHandler(service.NewCycleService(store, reg, engine, l), interceptors))
	mux.Handle(apiconnect.NewLedgerServiceHandler(service.NewLedgerService(store, reg, l), interceptors))
	mux.Handle(apiconnect.NewRoleServiceHandler(service.NewRoleService(store, reg), interceptors))
	mux.Handle("/metrics", m.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	// h2c serves HTTP/2 without TLS, which gRPC clients need.
	handler := h2c.NewHandler(loggingMiddleware(corsMiddleware(mux)), &http2.Server{})
	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	var scheduler *reminder.Scheduler
	if cfg.RemindersEnabled() {
		scheduler = reminder.New(store, publisher, cfg.ReminderCron, cfg.ReminderLead)
		scheduler.OnSweep = m.SweepDone
		if err := scheduler.Start(); err != nil {
			return err
		}
	} else {
		slog.Info("Reminder scheduler disabled")
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		slog.Info("Connect server starting", "address", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		slog.Info("Shutting down", "timeout", cfg.ShutdownTimeout)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()

		if scheduler != nil {
			scheduler.Stop(shutdownCtx)
		}
		return server.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

// loggingMiddleware logs all incoming requests
func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)

		slog.Debug("Request completed",
			"method", r.Method,
			"path", r.URL.Path,
			"remote_addr", r.RemoteAddr,
			"duration_ms", time.Since(start).Milliseconds(),
		)
	})
}

// corsMiddleware adds CORS headers for browser access
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "POST, GET, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Authorization, Content-Type, Connect-Protocol-Version, Connect-Timeout-Ms")
		w.Header().Set("Access-Control-Expose-Headers", "Connect-Protocol-Version, Connect-Timeout-Ms")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}
