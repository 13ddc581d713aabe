package cli

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/tidepool/pkg/cli/config"
	controller "github.com/m-mizutani/tidepool/pkg/controller/http"
	"github.com/m-mizutani/tidepool/pkg/usecase"
	"github.com/urfave/cli/v3"
)

func cmdServe() *cli.Command {
	var (
		serverCfg config.Server
		githubCfg config.GitHub
		authCfg   config.Auth
		slackCfg  config.Slack
		sentryCfg config.Sentry
	)

	var flags []cli.Flag
	flags = append(flags, serverCfg.Flags()...)
	flags = append(flags, githubCfg.Flags()...)
	flags = append(flags, authCfg.Flags()...)
	flags = append(flags, slackCfg.Flags()...)
	flags = append(flags, sentryCfg.Flags()...)

	return &cli.Command{
		Name:    "serve",
		Aliases: []string{"s"},
		Usage:   "Start HTTP server",
		Flags:   flags,
		Before: func(ctx context.Context, c *cli.Command) (context.Context, error) {
			return ctx, config.ApplyFile(c)
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			logger := ctxlog.From(ctx)

			if err := authCfg.Validate(); err != nil {
				return err
			}

			flush, err := sentryCfg.Configure()
			if err != nil {
				return err
			}
			defer flush()

			logger.Info("Starting tidepool server",
				slog.String("addr", serverCfg.Addr),
				slog.Any("github", githubCfg),
				slog.Any("auth", authCfg),
				slog.Bool("slack", slackCfg.Enabled()),
			)

			githubClient, err := githubCfg.NewClient()
			if err != nil {
				return goerr.Wrap(err, "failed to create GitHub client")
			}
			if !githubClient.Authenticated() {
				logger.Warn("No GitHub credential configured; page and image writes will fail")
			}

			idp, err := authCfg.NewProvider(githubCfg.APIURL)
			if err != nil {
				return goerr.Wrap(err, "failed to create OAuth provider")
			}

			// Create use cases
			ucOpts := append(githubCfg.UseCaseOptions(), serverCfg.UseCaseOptions()...)
			if notifier := slackCfg.NewNotifier(); notifier != nil {
				ucOpts = append(ucOpts, usecase.WithNotifier(notifier))
			}
			contentUC := usecase.NewContent(githubClient, ucOpts...)
			imageUC := usecase.NewImage(githubClient, ucOpts...)
			authUC, err := usecase.NewAuth(idp, authCfg.Users(), authCfg.StateKey())
			if err != nil {
				return goerr.Wrap(err, "failed to create auth use case")
			}

			// Create HTTP server with options
			serverOpts := append(serverCfg.ServerOptions(), authCfg.ServerOptions()...)
			server, err := controller.NewServer(ctx, contentUC, imageUC, authUC, serverOpts...)
			if err != nil {
				return goerr.Wrap(err, "failed to create HTTP server")
			}

			// Start server in goroutine
			go func() {
				logger.Info("HTTP server starting", slog.String("addr", serverCfg.Addr))
				if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					logger.Error("HTTP server error", slog.Any("error", err))
				}
			}()

			// Wait for interrupt signal
			sigChan := make(chan os.Signal, 1)
			signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

			select {
			case <-ctx.Done():
				logger.Info("Context cancelled, shutting down...")
			case sig := <-sigChan:
				logger.Info("Signal received, shutting down...", slog.Any("signal", sig))
			}

			// Graceful shutdown
			shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
			defer cancel()

			if err := server.Shutdown(shutdownCtx); err != nil {
				return goerr.Wrap(err, "failed to shutdown server gracefully")
			}

			logger.Info("Server shutdown complete")
			return nil
		},
	}
}
