package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	json "github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"github.com/red1oon/ADUI"
	"github.com/red1oon/ADUI/pkg/collector"
	"github.com/red1oon/ADUI/pkg/config"
	"github.com/red1oon/ADUI/pkg/logging"
)

// app carries state resolved once in PersistentPreRunE.
type app struct {
	configPath string
	provider   string
	baseURL    string
	logLevel   string
	logic      string

	cfg    config.Config
	logger *slog.Logger
	lookup func(string) (string, bool)
	driver collector.PromptDriver // nil uses the survey terminal driver
}

func newRootCmd() *cobra.Command {
	return newRootCmdWithEnv(os.LookupEnv)
}

// newRootCmdWithEnv builds the command tree reading ADUI_* variables through
// lookup.
func newRootCmdWithEnv(lookup func(string) (string, bool)) *cobra.Command {
	return (&app{lookup: lookup}).rootCmd()
}

func (a *app) rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "adui",
		Short:         "Inspect, import and fill mobile form definitions",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.init(cmd)
		},
	}

	flags := root.PersistentFlags()
	flags.StringVarP(&a.configPath, "config", "c", "", "YAML config file")
	flags.StringVar(&a.provider, "provider", "", "provider kind: mock, external, json-file or api")
	flags.StringVar(&a.baseURL, "base-url", "", "backend base URL for external and api providers")
	flags.StringVar(&a.logLevel, "log-level", "", "debug, info, warn or error")
	flags.StringVar(&a.logic, "display-logic", "", "display logic evaluator: off, expr or cel")

	root.AddCommand(
		a.windowsCmd(),
		a.showCmd(),
		a.importCmd(),
		a.fillCmd(),
		a.validateCmd(),
		a.serveCmd(),
		a.monitorCmd(),
	)
	return root
}

// init resolves configuration: file, then environment, then flags.
func (a *app) init(cmd *cobra.Command) error {
	cfg, err := config.Resolve(a.configPath, a.lookup)
	if err != nil {
		return err
	}
	if a.provider != "" {
		cfg.Provider = a.provider
	}
	if a.baseURL != "" {
		cfg.BaseURL = a.baseURL
	}
	if a.logLevel != "" {
		cfg.LogLevel = a.logLevel
	}
	if a.logic != "" {
		cfg.DisplayLogic = a.logic
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	logCfg := cfg.LoggingConfig()
	logCfg.Output = cmd.ErrOrStderr()
	a.cfg = cfg
	a.logger = logging.New(logCfg)
	return nil
}

func (a *app) openStack(ctx context.Context, opts ...adui.Option) (*adui.Stack, error) {
	opts = append([]adui.Option{adui.WithLogger(a.logger)}, opts...)
	return adui.Open(ctx, a.cfg, opts...)
}

func printJSON(w io.Writer, v any) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode output: %w", err)
	}
	_, err = fmt.Fprintln(w, string(out))
	return err
}
