package cmd

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/fmuoria/resume-analyzer/internal/agent"
	"github.com/fmuoria/resume-analyzer/internal/api"
	"github.com/fmuoria/resume-analyzer/internal/config"
	"github.com/fmuoria/resume-analyzer/internal/ingestion"
	"github.com/fmuoria/resume-analyzer/internal/llm"
	"github.com/fmuoria/resume-analyzer/internal/logger"
	"github.com/fmuoria/resume-analyzer/internal/session"
)

const (
	app = "resume-analyzer"
)

var (
	// Used for flags.
	cfgFile string

	rootCmd = &cobra.Command{
		Use:          app,
		Short:        "resume-analyzer scores CVs against a job requirement with an LLM",
		SilenceUsage: true,
	}
)

// Execute executes the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "a config file (default is resume-analyzer.yaml in current directory)")
	rootCmd.PersistentFlags().BoolP("debug", "d", false, "verbose/debug output")
	rootCmd.PersistentFlags().BoolP("json", "j", false, "json format for logging")
	rootCmd.PersistentFlags().String("provider", "", "LLM provider: openai, gemini, qwen or vertex")

	mustBind(viper.BindPFlag("log.debug", rootCmd.PersistentFlags().Lookup("debug")))
	mustBind(viper.BindPFlag("log.json", rootCmd.PersistentFlags().Lookup("json")))
	mustBind(viper.BindPFlag("llm.provider", rootCmd.PersistentFlags().Lookup("provider")))
}

func mustBind(err error) {
	if err != nil {
		log.Fatalf("binding flag: %v", err)
	}
}

// components are the long-lived objects shared by the commands
type components struct {
	cfg    *config.Config
	logger *zap.Logger
	llm    *llm.Client
	agent  *agent.ResumeAgent
}

// setup loads the configuration and builds the logger, the provider client
// and the agent. The client is configured right away when an API key is set.
func setup(ctx context.Context) (*components, error) {
	cfg, err := config.Load(viper.GetViper(), cfgFile)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	lg, err := logger.New(cfg.Log.JSON, cfg.Log.Debug)
	if err != nil {
		return nil, fmt.Errorf("creating a logger: %w", err)
	}

	client := llm.NewClient(cfg.LLMSettings(), cfg.ProviderKind(), lg)
	if cfg.LLM.APIKey != "" {
		if err := client.Configure(ctx, "", cfg.LLM.APIKey); err != nil {
			return nil, fmt.Errorf("configuring %s provider: %w", cfg.LLM.Provider, err)
		}
	}

	return &components{
		cfg:    cfg,
		logger: lg,
		llm:    client,
		agent:  agent.NewResumeAgent(client, session.NewStore(), lg, cfg.Analysis.Concurrency),
	}, nil
}

func (c *components) close() {
	_ = c.llm.Close()
	_ = c.logger.Sync()
}

// gmailFactory opens the configured mailbox per request. It returns nil when
// no OAuth client credentials are present.
func gmailFactory(cfg config.GmailConfig, lg *zap.Logger) api.GmailFactory {
	if _, err := os.Stat(cfg.Credentials); err != nil {
		lg.Info("gmail ingestion disabled", zap.String("credentials", cfg.Credentials))
		return nil
	}

	return func(ctx context.Context) (api.AttachmentSource, error) {
		src, err := ingestion.NewGmailSource(ctx, cfg.Credentials, cfg.Token, lg)
		if err != nil {
			return nil, err
		}
		return src, nil
	}
}
