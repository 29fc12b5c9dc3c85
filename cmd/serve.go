package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/fmuoria/resume-analyzer/internal/api"
)

const shutdownTimeout = 10 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return serve(cmd.Context())
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().IntP("port", "p", 8080, "port to listen on")
	serveCmd.Flags().String("api-key", "", "LLM API key to configure at start")

	mustBind(viper.BindPFlag("server.port", serveCmd.Flags().Lookup("port")))
	mustBind(viper.BindPFlag("llm.api-key", serveCmd.Flags().Lookup("api-key")))
}

// serve runs the API until SIGINT or SIGTERM, then drains open connections.
func serve(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	c, err := setup(ctx)
	if err != nil {
		return err
	}
	defer c.close()

	h := api.NewHandler(c.agent, c.llm, gmailFactory(c.cfg.Gmail, c.logger), c.logger)
	server := api.NewApp(h, api.Options{
		BodyLimit:    c.cfg.Server.BodyLimit,
		AllowOrigins: c.cfg.Server.AllowOrigins,
		Version:      version,
	}, c.logger)

	addr := fmt.Sprintf(":%d", c.cfg.Server.Port)
	status := c.llm.Status()
	c.logger.Info("starting the resume-analyzer",
		zap.String("version", version),
		zap.String("addr", addr),
		zap.String("provider", status.CurrentProvider),
		zap.Bool("llm_configured", status.IsConfigured))

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Listen(addr)
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server stopped: %w", err)
	case <-ctx.Done():
	}

	c.logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.ShutdownWithContext(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down: %w", err)
	}
	return nil
}
