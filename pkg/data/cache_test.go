package data

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/vito/hilbert/pkg/logic"
)

func store(t *testing.T, dir string, d *InterfaceData) {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, d.Encode(&buf))
	path := filepath.Join(dir, filepath.FromSlash(d.Locator())+DefaultExtension)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0644))
}

func TestCache(t *testing.T) {
	ctx := context.Background()

	t.Run("loads from the search path", func(t *testing.T) {
		empty, dir := t.TempDir(), t.TempDir()
		store(t, dir, fooInterface(t))

		cache := NewCache([]string{empty, dir}, "")
		path, err := cache.Path("Foo")
		require.NoError(t, err)
		assert.Equal(t, filepath.Join(dir, "Foo.hbi"), path)

		foo, err := cache.Interface(ctx, "Foo")
		require.NoError(t, err)
		assert.Equal(t, []string{"thm1"}, foo.Statements())

		again, err := cache.Interface(ctx, "Foo")
		require.NoError(t, err)
		assert.Same(t, foo, again)

		cache.Forget("Foo")
		reloaded, err := cache.Interface(ctx, "Foo")
		require.NoError(t, err)
		assert.NotSame(t, foo, reloaded)
	})

	t.Run("missing interface", func(t *testing.T) {
		cache := NewCache([]string{t.TempDir()}, "")
		_, err := cache.Interface(ctx, "Nope")
		require.Error(t, err)
		assert.True(t, logic.IsDataError(err))
	})

	t.Run("corrupt interface", func(t *testing.T) {
		dir := t.TempDir()
		require.NoError(t, os.WriteFile(filepath.Join(dir, "Bad.hbi"), []byte{0, 1, 2}, 0644))
		_, err := NewCache([]string{dir}, "").Interface(ctx, "Bad")
		require.Error(t, err)
		assert.True(t, IsFormatError(err))
	})

	t.Run("parameters are linked on load", func(t *testing.T) {
		dir := t.TempDir()
		pd := gInterface(t, "P", true)
		store(t, dir, pd)
		d, _ := usesInterface(t, pd)
		store(t, dir, d)

		cache := NewCache([]string{dir}, "")
		uses, err := cache.Interface(ctx, d.Locator())
		require.NoError(t, err)
		p, ok := uses.Parameter("P")
		require.True(t, ok)
		linked := uses.ParameterInterface(p)
		require.NotNil(t, linked)

		direct, err := cache.Interface(ctx, "P")
		require.NoError(t, err)
		assert.Same(t, direct, linked)
	})

	t.Run("parameter cycles", func(t *testing.T) {
		dir := t.TempDir()
		a := NewInterfaceData("a")
		require.NoError(t, a.AddParameter(&Parameter{Name: "B", Locator: "b", Prefix: "b."}, nil))
		b := NewInterfaceData("b")
		require.NoError(t, b.AddParameter(&Parameter{Name: "A", Locator: "a", Prefix: "a."}, nil))
		store(t, dir, a)
		store(t, dir, b)

		_, err := NewCache([]string{dir}, "").Interface(ctx, "a")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "parameter cycle a -> b -> a")
	})

	t.Run("concurrent loads share one interface", func(t *testing.T) {
		dir := t.TempDir()
		store(t, dir, fooInterface(t))
		cache := NewCache([]string{dir}, "")

		loaded := make([]*InterfaceData, 8)
		eg, ctx := errgroup.WithContext(ctx)
		for i := range loaded {
			eg.Go(func() error {
				iface, err := cache.Interface(ctx, "Foo")
				loaded[i] = iface
				return err
			})
		}
		require.NoError(t, eg.Wait())
		for _, iface := range loaded[1:] {
			assert.Same(t, loaded[0], iface)
		}
	})
}
