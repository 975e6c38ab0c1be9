package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/yarko/wwwhisper/internal/api"
	"github.com/yarko/wwwhisper/internal/config"
	"github.com/yarko/wwwhisper/internal/logging"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	var rootCmd = &cobra.Command{
		Use:   "wwwhisper",
		Short: "wwwhisper authorization service",
		Long:  `An authorization service that grants or denies access to site paths based on locations, users and permissions, queried by a frontend for every request`,
		RunE:  run,
	}

	rootCmd.Flags().StringP("config", "c", "", "config file path")
	rootCmd.Flags().String("listen", "", "listen address, overrides config")
	rootCmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, _ []string) error {
	logLevel, _ := cmd.Flags().GetString("log-level")
	level, err := logrus.ParseLevel(logLevel)
	if err != nil {
		return fmt.Errorf("invalid log level: %w", err)
	}
	logrus.SetLevel(level)
	logrus.SetFormatter(&logrus.JSONFormatter{})

	logrus.WithFields(logrus.Fields{
		"version": version,
		"commit":  commit,
		"date":    date,
	}).Info("Starting wwwhisper")

	configFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(configFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if cfg.Sentry.Enabled {
		if err := initSentry(cfg); err != nil {
			// Startup continues without error tracking.
			logrus.WithError(err).Error("Failed to initialize Sentry")
		} else {
			defer sentry.Flush(2 * time.Second)
			logrus.AddHook(logging.NewSentryHook([]logrus.Level{
				logrus.PanicLevel,
				logrus.FatalLevel,
				logrus.ErrorLevel,
				logrus.WarnLevel,
			}))
			logrus.AddHook(logging.NewBreadcrumbHook([]logrus.Level{
				logrus.InfoLevel,
				logrus.WarnLevel,
				logrus.ErrorLevel,
			}))
			logrus.Info("Sentry initialized")
		}
	}

	if listenAddr, _ := cmd.Flags().GetString("listen"); listenAddr != "" {
		cfg.Server.Listen = listenAddr
	}

	logrus.WithFields(logrus.Fields{
		"listen":             cfg.Server.Listen,
		"site_url":           cfg.Site.URL,
		"identity_header":    cfg.Auth.IdentityHeader,
		"unprotected_action": cfg.Auth.UnprotectedAction,
		"database":           cfg.Database.Enabled,
	}).Info("Configuration loaded")

	apiServer, err := api.NewServer(cfg)
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}

	srv := &http.Server{
		Addr:              cfg.Server.Listen,
		Handler:           apiServer,
		ReadTimeout:       cfg.Server.ReadTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
		IdleTimeout:       cfg.Server.IdleTimeout,
		MaxHeaderBytes:    1 << 20,
		ReadHeaderTimeout: 2 * time.Second,
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sig
		logrus.Info("Shutting down server...")
		shutdownCtx, shutdownCancel := context.WithTimeout(ctx, 30*time.Second)
		defer shutdownCancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logrus.WithError(err).Error("Failed to shutdown server gracefully")
		}
		if err := apiServer.Close(); err != nil {
			logrus.WithError(err).Error("Failed to close server resources")
		}
		cancel()
	}()

	logrus.WithField("addr", cfg.Server.Listen).Info("Server listening")
	if err := srv.ListenAndServe(); err != http.ErrServerClosed {
		return fmt.Errorf("server error: %w", err)
	}

	<-ctx.Done()
	logrus.Info("Server stopped")
	return nil
}

func initSentry(cfg *config.Config) error {
	options := sentry.ClientOptions{
		Dsn:              cfg.Sentry.DSN,
		Environment:      cfg.Sentry.Environment,
		Release:          cfg.Sentry.Release,
		SampleRate:       cfg.Sentry.SampleRate,
		AttachStacktrace: cfg.Sentry.AttachStacktrace,
		Debug:            cfg.Sentry.Debug,
		ServerName:       cfg.Sentry.ServerName,
	}

	if options.Release == "" {
		options.Release = fmt.Sprintf("wwwhisper@%s", version)
	}

	options.Tags = map[string]string{
		"server.version": version,
		"server.commit":  commit,
	}

	return sentry.Init(options)
}
