package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/iliyamo/clinic-booking/internal/config"
	"github.com/iliyamo/clinic-booking/internal/database"
	"github.com/iliyamo/clinic-booking/internal/handler"
	"github.com/iliyamo/clinic-booking/internal/middleware"
	"github.com/iliyamo/clinic-booking/internal/router"
	"github.com/iliyamo/clinic-booking/internal/scheduler"
)

func newServeCmd() *cobra.Command {
	var migrateUp bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API, notification workers and retry sweep",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := bootstrap()
			if err != nil {
				return err
			}
			defer func() { _ = log.Sync() }()

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			a, err := newApp(ctx, cfg, log)
			if err != nil {
				return err
			}
			defer a.Close()

			if migrateUp && a.db != nil {
				applied, err := database.Migrate(ctx, a.db)
				if err != nil {
					return err
				}
				for _, name := range applied {
					log.Info("migration applied", zap.String("name", name))
				}
			}
			return serve(ctx, a)
		},
	}
	cmd.Flags().BoolVar(&migrateUp, "migrate", true, "apply database migrations on startup")
	return cmd
}

func serve(ctx context.Context, a *app) error {
	log := a.log
	rdb := config.NewRedisClient()
	if rdb != nil {
		defer func() { _ = rdb.Close() }()
	} else {
		log.Info("redis unavailable; cache, rate limit and sweep lock disabled")
	}

	if a.consumer != nil {
		go func() {
			if err := a.consumer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				log.Error("notification consumer stopped", zap.Error(err))
			}
		}()
	}

	if a.cfg.Notify.RetryCron != "off" {
		var locker scheduler.Locker
		if rdb != nil {
			locker = scheduler.NewRedisLocker(rdb)
		}
		sweep := scheduler.NewRetrySweep(scheduler.SweepConfig{
			Spec:         a.cfg.Notify.RetryCron,
			WindowHours:  a.cfg.Notify.RetryWindowHours,
			Limit:        a.cfg.Notify.RetryLimit,
			PendingAfter: a.cfg.Notify.PendingAfter,
		}, a.dispatcher, locker, log)
		if err := sweep.Start(); err != nil {
			return err
		}
		defer sweep.Stop()
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(echomw.Recover())
	e.Use(echomw.RequestID())
	e.Use(middleware.RequestLogger(log))

	router.RegisterRoutes(e, a.ping)
	router.RegisterAuth(e, handler.NewAuthHandler(a.providers, a.cfg.JWTSecret, a.cfg.AccessTTLMin, log))
	router.RegisterPublic(e,
		handler.NewPublicHandler(a.providers, a.inventory, a.reservations, log),
		middleware.ResponseCache(config.LoadCacheConfig(), rdb),
		middleware.RateLimit(config.LoadRateLimitConfig(), rdb))
	router.RegisterProvider(e,
		handler.NewProviderHandler(a.providers, a.inventory, a.reservations, a.dispatcher, log),
		a.cfg.JWTSecret)

	errCh := make(chan error, 1)
	go func() {
		addr := ":" + a.cfg.Port
		log.Info("listening", zap.String("addr", addr), zap.String("env", a.cfg.Env),
			zap.String("storage", a.cfg.StorageDriver), zap.String("queue", a.cfg.QueueDriver))
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return e.Shutdown(shutdownCtx)
}
