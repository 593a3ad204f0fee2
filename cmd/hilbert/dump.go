package main

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/kr/pretty"
	"github.com/spf13/cobra"

	"github.com/vito/hilbert/pkg/data"
	"github.com/vito/hilbert/pkg/ioctx"
)

func dumpCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "dump file.hbi",
		Short: "Print the contents of a compiled interface",
		Long: `Decode a compiled interface and print its parameters, kinds, terms and
statements. Parameter interfaces are not loaded.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]
			f, err := os.Open(path)
			if err != nil {
				return err
			}
			defer f.Close()

			locator := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
			d, err := data.Decode(f, locator)
			if err != nil {
				return err
			}
			_, err = pretty.Fprintf(ioctx.StdoutFromContext(cmd.Context()), "%# v\n", d.Summary())
			return err
		},
	}
}
