package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/dukerupert/choreledger/internal/config"
	"github.com/dukerupert/choreledger/internal/database"
	"github.com/dukerupert/choreledger/internal/logging"
	"github.com/dukerupert/choreledger/internal/push"
	"github.com/dukerupert/choreledger/internal/server"
)

type rootOptions struct {
	configPath string
}

// app is what every subcommand needs once config is loaded.
type app struct {
	cfg    config.Config
	logger *slog.Logger
}

func (o *rootOptions) load() (*app, error) {
	cfg, err := config.Load(o.configPath, os.Getenv)
	if err != nil {
		return nil, err
	}
	return &app{cfg: cfg, logger: logging.Setup(cfg.Log.Level, cfg.Log.Format)}, nil
}

func (a *app) openDB() (*sql.DB, error) {
	db, err := database.Open(a.cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	return db, nil
}

func newRootCommand() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:          "choreledger",
		Short:        "Household chores and shared expenses",
		SilenceUsage: true,
	}
	cmd.PersistentFlags().StringVar(&opts.configPath, "config", "", "path to a YAML config file")

	cmd.AddCommand(newServeCommand(opts))
	cmd.AddCommand(newRemindCommand(opts))
	cmd.AddCommand(newBackupCommand(opts))
	cmd.AddCommand(newVAPIDKeysCommand())
	return cmd
}

func newServeCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := opts.load()
			if err != nil {
				return err
			}
			db, err := a.openDB()
			if err != nil {
				return err
			}
			defer db.Close()
			return serve(cmd.Context(), a, db)
		},
	}
}

func serve(ctx context.Context, a *app, db *sql.DB) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	srv := server.New(db, a.cfg, a.logger)

	go srv.RateLimiter().RunCleanup(ctx)

	if a.cfg.Push.ReminderInterval > 0 {
		srv.PushScheduler().Start(ctx)
		defer srv.PushScheduler().Stop()
	}
	if a.cfg.Backup.Interval > 0 {
		srv.BackupManager().Start(ctx, a.cfg.Backup.Interval)
		defer srv.BackupManager().Stop()
	}

	httpServer := &http.Server{
		Addr:         ":" + a.cfg.Port,
		Handler:      srv.Router(),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		a.logger.Info("server listening", "addr", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
		close(errc)
	}()

	select {
	case err := <-errc:
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
	}

	a.logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

func newRemindCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "remind",
		Short: "Send due-chore reminders once, for use from system cron",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := opts.load()
			if err != nil {
				return err
			}
			db, err := a.openDB()
			if err != nil {
				return err
			}
			defer db.Close()

			svc := push.NewService(db, push.Config{
				VAPIDPublicKey:  a.cfg.Push.VAPIDPublicKey,
				VAPIDPrivateKey: a.cfg.Push.VAPIDPrivateKey,
				Subscriber:      a.cfg.Push.Subscriber,
			}, a.logger)
			if !svc.Enabled() {
				return errors.New("push notifications are not configured: set the VAPID keys")
			}
			res, err := push.NewReminder(db, svc, a.cfg.Push.ReminderWindow, a.logger).Sweep(cmd.Context(), time.Now())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "checked %d users, reminded %d (sent %d, expired %d, failed %d)\n",
				res.Checked, res.Reminded, res.Sent, res.Expired, res.Failed)
			return nil
		},
	}
}

func newVAPIDKeysCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "vapid-keys",
		Short: "Generate a VAPID key pair for web push",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			pub, priv, err := push.GenerateVAPIDKeys()
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "CHORELEDGER_VAPID_PUBLIC_KEY=%s\nCHORELEDGER_VAPID_PRIVATE_KEY=%s\n", pub, priv)
			return nil
		},
	}
}
