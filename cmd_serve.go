package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata"

	"github.com/thenithin342/Attendance-ios/internal/attendance"
	"github.com/thenithin342/Attendance-ios/internal/database"
	"github.com/thenithin342/Attendance-ios/internal/router"
	"github.com/thenithin342/Attendance-ios/internal/session"
	"github.com/thenithin342/Attendance-ios/internal/util"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API server",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, db, err := bootstrap()
		if err != nil {
			return err
		}
		defer logger.Sync()
		defer database.Close(db)

		if err := database.AutoMigrate(db); err != nil {
			return err
		}

		if cfg.JWT.Secret == "" {
			secret, err := util.RandomString(48)
			if err != nil {
				return fmt.Errorf("generate jwt secret: %w", err)
			}
			cfg.JWT.Secret = secret
			logger.Warn("jwt.secret is empty, using a random secret; tokens will not survive a restart")
		}
		if cfg.Security.EncryptionKey == "" {
			logger.Warn("security.encryption_key is empty, audit logs are stored in plain text")
		}

		loc, err := time.LoadLocation(cfg.App.Timezone)
		if err != nil {
			return fmt.Errorf("load timezone %q: %w", cfg.App.Timezone, err)
		}

		hub := attendance.NewHub()
		defer hub.Close()

		sessions := session.NewStore(db, time.Duration(cfg.JWT.ExpireMinutes)*time.Minute)
		svc := attendance.NewService(db, attendance.ThresholdsFromConfig(cfg.Attendance), hub, logger.Named("attendance"))

		engine := router.SetupRouter(router.Deps{
			Config:   cfg,
			DB:       db,
			Log:      logger,
			Hub:      hub,
			Sessions: sessions,
			Service:  svc,
			Location: loc,
		})

		addr := fmt.Sprintf("%s:%d", cfg.Server.Address, cfg.Server.Port)
		srv := &http.Server{
			Addr:              addr,
			Handler:           engine,
			ReadHeaderTimeout: 10 * time.Second,
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		g, gctx := errgroup.WithContext(ctx)

		g.Go(func() error {
			logger.Info("server listening", zap.String("addr", addr))
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("listen: %w", err)
			}
			return nil
		})

		g.Go(func() error {
			interval := time.Duration(cfg.App.SessionCleanupMinutes) * time.Minute
			return sessions.RunJanitor(gctx, interval, logger.Named("session"))
		})

		g.Go(func() error {
			<-gctx.Done()
			logger.Info("shutting down")

			// close live feeds first so hijacked websocket connections end
			hub.Close()

			timeout := time.Duration(cfg.Server.ShutdownTimeoutSeconds) * time.Second
			shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				return fmt.Errorf("shutdown: %w", err)
			}
			return nil
		})

		if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		logger.Info("server stopped")
		return nil
	},
}
