package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"time"

	"charm.land/lipgloss/v2"
	"github.com/fsnotify/fsnotify"
	"github.com/samber/lo"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/vito/hilbert/pkg/config"
	"github.com/vito/hilbert/pkg/data"
	"github.com/vito/hilbert/pkg/ioctx"
	"github.com/vito/hilbert/pkg/script"
	"github.com/vito/hilbert/pkg/token"
)

var (
	okStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("2")).Bold(true) // green
	failStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("1")).Bold(true) // red
	detailStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))            // gray
)

// watchDebounce collapses the burst of events an editor save produces.
const watchDebounce = 150 * time.Millisecond

func verifyCmd(cfg *Config) *cobra.Command {
	var watch bool

	cmd := &cobra.Command{
		Use:   "verify [flags] file...",
		Short: "Verify module scripts",
		Long: `Verify module scripts against compiled interfaces.

Modules are verified concurrently and share one interface cache. A verdict
is printed for every file; the command fails if any module does.`,
		Example: `  # Verify two modules
  hilbert verify logic.hbm sets.hbm

  # Keep verifying as files change
  hilbert verify --watch logic.hbm`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			conf, err := loadConfig(cfg)
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			if !watch {
				return report(ioctx.StdoutFromContext(ctx), verifyFiles(ctx, newCache(conf), args))
			}
			ctx, stop := signal.NotifyContext(ctx, os.Interrupt)
			defer stop()
			return watchFiles(ctx, conf, args)
		},
	}

	cmd.Flags().BoolVarP(&watch, "watch", "w", false, "Re-verify when modules or interfaces change")

	return cmd
}

type verdict struct {
	File string
	Err  error
}

// verifyFiles verifies every file concurrently against cache. Failures are
// reported per file rather than cancelling the other files.
func verifyFiles(ctx context.Context, cache data.Loader, files []string) []verdict {
	verdicts := make([]verdict, len(files))
	eg, ctx := errgroup.WithContext(ctx)
	eg.SetLimit(runtime.GOMAXPROCS(0))
	for i, file := range files {
		eg.Go(func() error {
			verdicts[i] = verdict{File: file, Err: verifyFile(ctx, cache, file)}
			return nil
		})
	}
	_ = eg.Wait()
	return verdicts
}

func verifyFile(ctx context.Context, cache data.Loader, path string) error {
	ctx, _ = ioctx.WithSession(ctx)
	logger := ioctx.LoggerFromContext(ctx)

	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	start := time.Now()
	m := data.NewModuleData()
	if err := script.RunModule(ctx, token.NewScanner(f, path), m, cache); err != nil {
		logger.Debug("module failed", "file", path, "error", err)
		return err
	}
	logger.Info("verified module", "file", path,
		"statements", len(m.Statements()), "duration", time.Since(start))
	return nil
}

// report prints a verdict per file and returns an error if any failed.
func report(w io.Writer, verdicts []verdict) error {
	failed := 0
	for _, v := range verdicts {
		if v.Err == nil {
			fmt.Fprintf(w, "%s %s\n", okStyle.Render("ok"), v.File)
			continue
		}
		failed++
		fmt.Fprintf(w, "%s %s\n", failStyle.Render("FAIL"), v.File)
		fmt.Fprintf(w, "  %s\n", detailStyle.Render(v.Err.Error()))
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d modules failed verification", failed, len(verdicts))
	}
	return nil
}

// watchFiles verifies files, then again each time one of them or a compiled
// interface on the search path changes, until ctx is cancelled. Each run
// starts from a fresh cache so that changed interfaces are reloaded.
func watchFiles(ctx context.Context, conf *config.Config, files []string) error {
	stdout := ioctx.StdoutFromContext(ctx)
	rerun := func() {
		_ = report(stdout, verifyFiles(ctx, newCache(conf), files))
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	abs := lo.Map(files, func(f string, _ int) string {
		p, err := filepath.Abs(f)
		if err != nil {
			return f
		}
		return p
	})
	dirs := lo.Map(abs, func(f string, _ int) string { return filepath.Dir(f) })
	for _, dir := range lo.Uniq(append(dirs, conf.SearchPath()...)) {
		if err := w.Add(dir); err != nil {
			slog.Warn("not watching directory", "dir", dir, "error", err)
			continue
		}
		slog.Debug("watching directory", "dir", dir)
	}

	relevant := func(ev fsnotify.Event) bool {
		if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) &&
			!ev.Has(fsnotify.Remove) && !ev.Has(fsnotify.Rename) {
			return false
		}
		if filepath.Ext(ev.Name) == conf.Library.Extension {
			return true
		}
		p, err := filepath.Abs(ev.Name)
		return err == nil && lo.Contains(abs, p)
	}

	rerun()

	pending := make(chan struct{}, 1)
	var timer *time.Timer
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if !relevant(ev) {
				continue
			}
			slog.Debug("change detected", "path", ev.Name, "op", ev.Op.String())
			if timer == nil {
				timer = time.AfterFunc(watchDebounce, func() {
					select {
					case pending <- struct{}{}:
					default:
					}
				})
			} else {
				timer.Reset(watchDebounce)
			}
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			slog.Warn("watch error", "error", err)
		case <-pending:
			fmt.Fprintln(stdout, detailStyle.Render("--- re-verifying at "+time.Now().Format(time.TimeOnly)))
			rerun()
		}
	}
}
