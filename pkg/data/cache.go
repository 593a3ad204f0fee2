package data

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"github.com/kr/pretty"
	"github.com/pkg/errors"
	"golang.org/x/sync/singleflight"

	"github.com/vito/hilbert/pkg/logic"
)

// Loader supplies linked interfaces by locator.
type Loader interface {
	Interface(ctx context.Context, locator string) (*InterfaceData, error)
}

// DefaultExtension is the file extension of compiled interfaces.
const DefaultExtension = ".hbi"

// Cache loads compiled interfaces from a search path on first use and keeps
// them for the rest of the process. Concurrent requests for the same locator
// share one load.
type Cache struct {
	Paths     []string
	Extension string

	mu     sync.Mutex
	loaded map[string]*InterfaceData
	group  singleflight.Group
}

func NewCache(paths []string, ext string) *Cache {
	if ext == "" {
		ext = DefaultExtension
	}
	return &Cache{
		Paths:     paths,
		Extension: ext,
		loaded:    map[string]*InterfaceData{},
	}
}

// Put makes iface available under its locator, replacing any earlier entry.
func (c *Cache) Put(iface *InterfaceData) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.loaded[iface.Locator()] = iface
}

// Forget drops a cached interface so that the next request reloads it.
func (c *Cache) Forget(locator string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.loaded, locator)
}

func (c *Cache) cached(locator string) (*InterfaceData, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	iface, ok := c.loaded[locator]
	return iface, ok
}

type loadingKey struct{}

// loading returns the chain of locators being loaded on behalf of ctx.
func loading(ctx context.Context) []string {
	chain, _ := ctx.Value(loadingKey{}).([]string)
	return chain
}

// Interface returns the interface for locator, loading and linking it on
// first use.
func (c *Cache) Interface(ctx context.Context, locator string) (*InterfaceData, error) {
	if iface, ok := c.cached(locator); ok {
		slog.Debug("interface cache hit", "locator", locator)
		return iface, nil
	}
	chain := loading(ctx)
	if slices.Contains(chain, locator) {
		return nil, logic.NewDataError("load interface", locator,
			"parameter cycle "+strings.Join(append(chain, locator), " -> ")+" at")
	}
	ctx = context.WithValue(ctx, loadingKey{}, append(slices.Clip(chain), locator))

	v, err, _ := c.group.Do(locator, func() (any, error) {
		if iface, ok := c.cached(locator); ok {
			return iface, nil
		}
		iface, err := c.load(ctx, locator)
		if err != nil {
			return nil, err
		}
		c.Put(iface)
		return iface, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*InterfaceData), nil
}

// Path returns the file the interface for locator would be loaded from.
func (c *Cache) Path(locator string) (string, error) {
	name := filepath.FromSlash(locator) + c.Extension
	for _, dir := range c.Paths {
		path := filepath.Join(dir, name)
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
	}
	return "", logic.NewDataError("load interface", locator,
		fmt.Sprintf("interface not found in %v", c.Paths))
}

func (c *Cache) load(ctx context.Context, locator string) (*InterfaceData, error) {
	path, err := c.Path(locator)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "opening interface %s", locator)
	}
	defer f.Close()

	slog.Debug("interface cache miss", "locator", locator, "path", path)
	iface, err := Decode(f, locator)
	if err != nil {
		return nil, err
	}
	if err := iface.Link(ctx, c); err != nil {
		return nil, err
	}
	slog.Info("loaded interface", "locator", locator, "path", path)
	slog.Debug("decoded interface", "locator", locator, "summary", pretty.Sprint(iface.Summary()))
	return iface, nil
}

// Summary is a plain description of an interface, for display.
type Summary struct {
	Locator        string
	Parameters     []string
	UndefinedKinds map[string]string
	Kinds          []string
	UndefinedTerms map[string]string
	Terms          []string
	Statements     []string
}

// Summary describes d for display.
func (d *InterfaceData) Summary() Summary {
	d.mu.RLock()
	defer d.mu.RUnlock()
	s := Summary{
		Locator:        d.locator,
		UndefinedKinds: map[string]string{},
		UndefinedTerms: map[string]string{},
	}
	for _, p := range d.ns.paramOrder {
		s.Parameters = append(s.Parameters, p.String())
	}
	owner := func(pn ParameterizedName) string {
		if pn.Param.IsMain() {
			return "<main> " + pn.Bare
		}
		return pn.Param.Name + " " + pn.Bare
	}
	for _, name := range d.ns.kinds.Names() {
		if pn, owed := d.undefinedKinds[name]; owed {
			s.UndefinedKinds[name] = owner(pn)
			continue
		}
		if d.ns.kinds.IsAlias(name) {
			k, _ := d.ns.kind(name)
			s.Kinds = append(s.Kinds, name+" = "+k.Name())
			continue
		}
		s.Kinds = append(s.Kinds, name)
	}
	for _, name := range d.ns.termOrder {
		if pn, owed := d.undefinedTerms[name]; owed {
			s.UndefinedTerms[name] = owner(pn) + " : " + d.ns.terms[name].String()
			continue
		}
		s.Terms = append(s.Terms, d.ns.terms[name].String())
	}
	for _, name := range d.ns.stmtOrder {
		s.Statements = append(s.Statements, d.ns.statements[name].String())
	}
	return s
}
