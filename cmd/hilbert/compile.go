package main

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/vito/hilbert/pkg/data"
	"github.com/vito/hilbert/pkg/ioctx"
	"github.com/vito/hilbert/pkg/script"
	"github.com/vito/hilbert/pkg/token"
)

func compileCmd(cfg *Config) *cobra.Command {
	var (
		output  string
		locator string
	)

	cmd := &cobra.Command{
		Use:   "compile [flags] file...",
		Short: "Compile interface scripts",
		Long: `Compile interface scripts into their binary form.

Each file is stored as <output>/<locator><extension>, where the locator
defaults to the file name without its extension. Files are compiled in
order, so later files may take earlier ones as parameters.`,
		Example: `  # Compile into the directory configured in hilbert.toml
  hilbert compile prop.hbs pred.hbs

  # Compile under a nested locator
  hilbert compile --locator set.mm/zf zf.hbs -o lib`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if locator != "" && len(args) > 1 {
				return fmt.Errorf("--locator requires a single file, got %d", len(args))
			}
			conf, err := loadConfig(cfg)
			if err != nil {
				return err
			}
			if output == "" {
				output = conf.OutputDir()
			}
			cache := newCache(conf)

			ctx := cmd.Context()
			stdout := ioctx.StdoutFromContext(ctx)
			for _, file := range args {
				out, err := compileFile(ctx, cache, file, locator, output)
				if err != nil {
					return err
				}
				fmt.Fprintf(stdout, "%s %s -> %s\n", okStyle.Render("compiled"), file, out)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "Output directory (defaults to [compile] output)")
	cmd.Flags().StringVar(&locator, "locator", "", "Locator to store the interface under")

	return cmd
}

// compileFile runs the interface script at path and stores the result
// under outDir. The compiled interface is added to cache so that later
// files can use it.
func compileFile(ctx context.Context, cache *data.Cache, path, locator, outDir string) (string, error) {
	if locator == "" {
		locator = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}

	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	d := data.NewInterfaceData(locator)
	if err := script.RunInterface(ctx, token.NewScanner(f, path), d, cache); err != nil {
		return "", err
	}

	var buf bytes.Buffer
	if err := d.Encode(&buf); err != nil {
		return "", errors.Wrapf(err, "encoding %s", locator)
	}
	out := filepath.Join(outDir, filepath.FromSlash(locator)+cache.Extension)
	if err := os.MkdirAll(filepath.Dir(out), 0755); err != nil {
		return "", err
	}
	if err := os.WriteFile(out, buf.Bytes(), 0644); err != nil {
		return "", errors.Wrapf(err, "writing %s", out)
	}

	cache.Put(d)
	ioctx.LoggerFromContext(ctx).Info("compiled interface", "locator", locator, "path", out, "bytes", buf.Len())
	return out, nil
}
