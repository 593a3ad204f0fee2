package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vito/hilbert/pkg/data"
)

var libDir = filepath.Join("..", "..", "pkg", "script", "testdata", "lib")

func TestCompileAndVerify(t *testing.T) {
	ctx := context.Background()
	out := t.TempDir()

	cache := data.NewCache([]string{out}, "")
	for _, name := range []string{"prop", "pred"} {
		path, err := compileFile(ctx, cache, filepath.Join(libDir, name+".hbs"), "", out)
		require.NoError(t, err)
		assert.Equal(t, filepath.Join(out, name+".hbi"), path)
		assert.FileExists(t, path)
	}

	t.Run("compiled interfaces load from disk", func(t *testing.T) {
		modules := t.TempDir()
		good := filepath.Join(modules, "good.hbm")
		bad := filepath.Join(modules, "bad.hbm")
		require.NoError(t, os.WriteFile(good, []byte(`
import (PROP prop () "")
import (PRED pred (PROP) "pred.")
`), 0644))
		require.NoError(t, os.WriteFile(bad, []byte(`
kind (wff)
export (PROP prop () "")
`), 0644))

		verdicts := verifyFiles(ctx, data.NewCache([]string{out}, ""), []string{good, bad})
		require.Len(t, verdicts, 2)
		assert.NoError(t, verdicts[0].Err)
		assert.Error(t, verdicts[1].Err)

		var buf bytes.Buffer
		err := report(&buf, verdicts)
		require.Error(t, err)
		assert.Equal(t, "1 of 2 modules failed verification", err.Error())
		assert.Contains(t, buf.String(), good)
		assert.Contains(t, buf.String(), bad)
	})

	t.Run("nested locators", func(t *testing.T) {
		path, err := compileFile(ctx, cache, filepath.Join(libDir, "prop.hbs"), "classical/prop", out)
		require.NoError(t, err)
		assert.Equal(t, filepath.Join(out, "classical", "prop.hbi"), path)

		iface, err := data.NewCache([]string{out}, "").Interface(ctx, "classical/prop")
		require.NoError(t, err)
		assert.Equal(t, "classical/prop", iface.Locator())
	})
}
