package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/tripnote/tripnote"
	"github.com/tripnote/tripnote/internal/config"
	logpkg "github.com/tripnote/tripnote/internal/logger"
	"github.com/tripnote/tripnote/internal/version"
)

// globals are the persistent flags shared by every subcommand.
type globals struct {
	configPath string
	env        string
	logLevel   string
	jsonOutput bool
}

func rootCmd() *cobra.Command {
	g := &globals{}
	cmd := &cobra.Command{
		Use:           "tripnote",
		Short:         "Offline-first travel journal with local search",
		Version:       version.String(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.SetVersionTemplate("{{.Version}}\n")

	f := cmd.PersistentFlags()
	f.StringVar(&g.configPath, "config", "", "config file (default: config/<env>.yaml)")
	f.StringVar(&g.env, "env", config.GetEnv(), "environment: local, prod")
	f.StringVar(&g.logLevel, "log-level", "", "override log level: debug, info, warn, error")
	f.BoolVar(&g.jsonOutput, "json", false, "output as JSON")

	cmd.AddCommand(serveCmd(g))
	cmd.AddCommand(searchCmd(g))
	cmd.AddCommand(semanticCmd(g))
	cmd.AddCommand(suggestCmd(g))
	cmd.AddCommand(analyzeCmd(g))
	cmd.AddCommand(planCmd(g))
	cmd.AddCommand(tagsCmd(g))
	cmd.AddCommand(addCmd(g))
	cmd.AddCommand(getCmd(g))
	cmd.AddCommand(listCmd(g))
	cmd.AddCommand(editCmd(g))
	cmd.AddCommand(deleteCmd(g))
	cmd.AddCommand(indexCmd(g))
	return cmd
}

func (g *globals) loadConfig() (config.Config, error) {
	if g.configPath != "" {
		return config.LoadFile(g.configPath)
	}
	return config.Load(g.env)
}

// newLogger builds the server logger for serve and a quiet stderr logger otherwise.
func (g *globals) newLogger(cfg *config.Config, server bool) (*zap.Logger, error) {
	level := cfg.Logging.Level
	if g.logLevel != "" {
		level = g.logLevel
	}
	if !server {
		return logpkg.NewLogger(logpkg.EnvCLI, g.logLevel)
	}
	return logpkg.NewLogger(g.env, level)
}

// openClient loads config and connects a client for one-shot commands.
func (g *globals) openClient(ctx context.Context) (*tripnote.Client, error) {
	cfg, err := g.loadConfig()
	if err != nil {
		return nil, err
	}
	logger, err := g.newLogger(&cfg, false)
	if err != nil {
		return nil, err
	}
	cfg.Index.Watch = false // one-shot commands do not outlive a rebuild
	c, err := tripnote.NewFromConfig(ctx, &cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	return c, nil
}
