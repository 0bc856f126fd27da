package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/drblury/lambdaflow"
)

func serveCmd() *cobra.Command {
	var (
		configPath   string
		listenAddr   string
		functionName string
		timeout      time.Duration
		logLevel     string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the Runtime API locally",
		Long: "Serve the Runtime API on a local port; function binaries point " +
			"AWS_LAMBDA_RUNTIME_API at it and events are fed in with 'localrun invoke'",
		RunE: func(cmd *cobra.Command, args []string) error {
			conf, err := loadRunnerConfig(configPath)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("listen") {
				conf.Listen = listenAddr
			}
			if cmd.Flags().Changed("function-name") {
				conf.FunctionName = functionName
			}
			if cmd.Flags().Changed("timeout") {
				conf.Timeout = timeout
			}

			logger := newLogger(logLevel)
			em := newEmulator(conf, logger)
			httpServer := &http.Server{Addr: conf.Listen, Handler: em.handler()}

			errCh := make(chan error, 1)
			go func() {
				logger.Info("Runtime API emulator started", lambdaflow.LogFields{
					"addr":         conf.Listen,
					"function_arn": conf.arn(),
					"timeout":      conf.Timeout.String(),
				})
				if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					errCh <- err
				}
			}()

			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

			select {
			case sig := <-sigCh:
				logger.Info("Shutdown signal received", lambdaflow.LogFields{"signal": sig.String()})
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := httpServer.Shutdown(ctx); err != nil {
					return fmt.Errorf("shutdown emulator: %w", err)
				}
				return nil
			case err := <-errCh:
				return fmt.Errorf("emulator server error: %w", err)
			}
		},
	}

	cmd.Flags().StringVar(&configPath, "config", "", "Path to a YAML config file")
	cmd.Flags().StringVar(&listenAddr, "listen", "127.0.0.1:9001", "Emulator listen address")
	cmd.Flags().StringVar(&functionName, "function-name", "local-function", "Emulated function name")
	cmd.Flags().DurationVar(&timeout, "timeout", 30*time.Second, "Invocation deadline")
	cmd.Flags().StringVar(&logLevel, "log-level", "info", "Log level")

	return cmd
}

func newLogger(level string) lambdaflow.ServiceLogger {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = slog.LevelInfo
	}
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl})
	return lambdaflow.NewSlogServiceLogger(slog.New(handler))
}
