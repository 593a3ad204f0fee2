package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/charmbracelet/fang"
	"github.com/spf13/cobra"

	"github.com/vito/hilbert/pkg/config"
	"github.com/vito/hilbert/pkg/data"
	"github.com/vito/hilbert/pkg/ioctx"
)

// Config holds the application configuration
type Config struct {
	Debug      bool
	ConfigFile string
}

func main() {
	var cfg Config

	rootCmd := &cobra.Command{
		Use:   "hilbert",
		Short: "Proof module and interface verifier",
		Long: `Hilbert checks modules of formal statements against interfaces.

Interfaces are compiled into a binary form once and then imported or
exported by modules, which must satisfy every parameter they pass along.`,
		Example: `  # Compile an interface into the configured output directory
  hilbert compile prop.hbs

  # Verify modules against the compiled interfaces
  hilbert verify logic.hbm sets.hbm

  # Re-verify whenever a module or interface changes
  hilbert verify --watch logic.hbm

  # Show what a compiled interface contains
  hilbert dump lib/prop.hbi`,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			setupLogging(cfg.Debug)
		},
	}

	rootCmd.PersistentFlags().BoolVarP(&cfg.Debug, "debug", "d", false, "Enable debug logging")
	rootCmd.PersistentFlags().StringVar(&cfg.ConfigFile, "config", "", "Path to hilbert.toml (searched upward from the working directory if not specified)")

	rootCmd.AddCommand(compileCmd(&cfg))
	rootCmd.AddCommand(verifyCmd(&cfg))
	rootCmd.AddCommand(dumpCmd())

	ctx := context.Background()
	ctx = ioctx.StdoutToContext(ctx, os.Stdout)
	ctx = ioctx.StderrToContext(ctx, os.Stderr)
	if err := fang.Execute(ctx, rootCmd,
		fang.WithVersion("v0.1.0"),
		fang.WithCommit("dev"),
		fang.WithErrorHandler(func(w io.Writer, styles fang.Styles, err error) {
			_, _ = fmt.Fprintln(w, err.Error())
		}),
	); err != nil {
		os.Exit(1)
	}
}

func setupLogging(debug bool) {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}

	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})
	slog.SetDefault(slog.New(handler))
}

// loadConfig reads the --config file if given, and otherwise searches for
// hilbert.toml from the working directory.
func loadConfig(cfg *Config) (*config.Config, error) {
	if cfg.ConfigFile != "" {
		return config.Load(cfg.ConfigFile)
	}
	cwd, err := os.Getwd()
	if err != nil {
		return nil, err
	}
	path, conf, err := config.Find(cwd)
	if err != nil {
		return nil, err
	}
	if conf == nil {
		slog.Debug("no hilbert.toml found, using defaults", "dir", cwd)
		return config.Default(), nil
	}
	slog.Debug("using project config", "path", path)
	return conf, nil
}

func newCache(conf *config.Config) *data.Cache {
	return data.NewCache(conf.SearchPath(), conf.Library.Extension)
}
