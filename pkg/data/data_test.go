package data

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/vito/hilbert/pkg/logic"
)

func apply(t *testing.T, term *logic.Term, children ...*logic.Expression) *logic.Expression {
	t.Helper()
	e, err := logic.Apply(term, children...)
	require.NoError(t, err)
	return e
}

// must unwraps a definition that cannot fail in a well-formed fixture.
func must[T any](v T, err error) T {
	if err != nil {
		panic(err)
	}
	return v
}

// fooInterface defines kind K, functor f : K -> K and
// thm1 : (f x) |- (f (f x)).
func fooInterface(t *testing.T) *InterfaceData {
	t.Helper()
	d := NewInterfaceData("Foo")
	k := must(d.DefineKind("K"))
	f, err := d.DefineFunctor("f", k, []logic.Kind{k})
	require.NoError(t, err)
	x, err := d.DefineVariable("x", k)
	require.NoError(t, err)
	fx := apply(t, f, logic.Var(x))
	_, err = d.DefineStatement("thm1", nil, []*logic.Expression{fx}, apply(t, f, fx))
	require.NoError(t, err)
	return d
}

// gInterface defines kind K and functor g : K -> K.
func gInterface(t *testing.T, locator string, withG bool) *InterfaceData {
	t.Helper()
	d := NewInterfaceData(locator)
	k := must(d.DefineKind("K"))
	if withG {
		_, err := d.DefineFunctor("g", k, []logic.Kind{k})
		require.NoError(t, err)
	}
	return d
}

// usesInterface has a formal parameter P of interface pd mounted at "p."
// and a statement over the owed names p.K and p.g.
func usesInterface(t *testing.T, pd *InterfaceData) (*InterfaceData, *Parameter) {
	t.Helper()
	d := NewInterfaceData("Uses")
	formal := &Parameter{Name: "P", Locator: pd.Locator(), Prefix: "p."}
	require.NoError(t, d.AddParameter(formal, pd))
	k, ok := d.Kind("p.K")
	require.True(t, ok)
	g, err := d.Term("p.g")
	require.NoError(t, err)
	y, err := d.DefineVariable("y", k)
	require.NoError(t, err)
	_, err = d.DefineStatement("s1", nil, nil, apply(t, g, logic.Var(y)))
	require.NoError(t, err)
	return d, formal
}

func TestImport(t *testing.T) {
	ctx := context.Background()

	t.Run("mounts under prefix", func(t *testing.T) {
		m := NewModuleData()
		foo := fooInterface(t)
		require.NoError(t, m.Import(ctx, foo, &Parameter{Name: "foo", Locator: "Foo", Prefix: "foo."}))

		k, ok := m.Kind("foo.K")
		require.True(t, ok)
		f, ok := m.Term("foo.f")
		require.True(t, ok)
		assert.True(t, f.ResultKind().Same(k))
		s, ok := m.Statement("foo.thm1")
		require.True(t, ok)
		require.Len(t, s.Hypotheses, 1)
		assert.Equal(t, "(foo.f x)", s.Hypotheses[0].String())
		assert.Equal(t, "(foo.f (foo.f x))", s.Consequent.String())
		assert.Same(t, f, s.Hypotheses[0].Term())
		_, ok = m.Parameter("foo")
		assert.True(t, ok)
	})

	t.Run("twice under different prefixes", func(t *testing.T) {
		m := NewModuleData()
		foo := fooInterface(t)
		require.NoError(t, m.Import(ctx, foo, &Parameter{Name: "a", Locator: "Foo", Prefix: "a."}))
		require.NoError(t, m.Import(ctx, foo, &Parameter{Name: "b", Locator: "Foo", Prefix: "b."}))

		a, ok := m.Statement("a.thm1")
		require.True(t, ok)
		b, ok := m.Statement("b.thm1")
		require.True(t, ok)
		assert.NotSame(t, a, b)
		assert.Equal(t, "(b.f x)", b.Hypotheses[0].String())
		ka, _ := m.Kind("a.K")
		kb, _ := m.Kind("b.K")
		assert.False(t, ka.Same(kb))
	})

	t.Run("same prefix twice fails and rolls back", func(t *testing.T) {
		m := NewModuleData()
		foo := fooInterface(t)
		require.NoError(t, m.Import(ctx, foo, &Parameter{Name: "a", Locator: "Foo", Prefix: "a."}))
		before := m.Kinds()
		err := m.Import(ctx, foo, &Parameter{Name: "b", Locator: "Foo", Prefix: "a."})
		require.Error(t, err)
		assert.True(t, logic.IsDataError(err))
		assert.Equal(t, before, m.Kinds())
		_, ok := m.Parameter("b")
		assert.False(t, ok)
	})

	t.Run("aliases", func(t *testing.T) {
		d := NewInterfaceData("Alias")
		k := must(d.DefineKind("K"))
		require.NoError(t, d.BindKind(k, "L"))
		m := NewModuleData()
		require.NoError(t, m.Import(ctx, d, &Parameter{Name: "al", Locator: "Alias", Prefix: "al."}))
		mk, _ := m.Kind("al.K")
		ml, ok := m.Kind("al.L")
		require.True(t, ok)
		assert.True(t, mk.Same(ml))
	})

	t.Run("definitions", func(t *testing.T) {
		d := NewInterfaceData("Def")
		k := must(d.DefineKind("K"))
		f, err := d.DefineFunctor("f", k, []logic.Kind{k, k})
		require.NoError(t, err)
		x, _ := d.DefineVariable("x", k)
		dd, err := d.DefineDefinition("dup", []*logic.Variable{x}, apply(t, f, logic.Var(x), logic.Var(x)))
		require.NoError(t, err)
		_, err = d.DefineStatement("refl", nil, nil, apply(t, dd, logic.Var(x)))
		require.NoError(t, err)

		m := NewModuleData()
		require.NoError(t, m.Import(ctx, d, &Parameter{Name: "d", Locator: "Def", Prefix: "d."}))
		mdup, ok := m.Term("d.dup")
		require.True(t, ok)
		assert.Equal(t, logic.DefinitionTerm, mdup.Tag)
		assert.Equal(t, "(d.f x x)", mdup.Definiens.String())
		s, _ := m.Statement("d.refl")
		assert.Equal(t, "(d.dup x)", s.Consequent.String())
	})
}

func TestSatisfaction(t *testing.T) {
	ctx := context.Background()

	t.Run("missing term fails before mounting", func(t *testing.T) {
		p := gInterface(t, "P", true)
		uses, _ := usesInterface(t, p)
		bar := gInterface(t, "Bar", false)

		m := NewModuleData()
		barParam := &Parameter{Name: "bar", Locator: "Bar", Prefix: "bar."}
		require.NoError(t, m.Import(ctx, bar, barParam))
		kinds, terms := m.Kinds(), m.Terms()

		err := m.Import(ctx, uses, &Parameter{Name: "u", Locator: "Uses", Prefix: "u.", Arguments: []*Parameter{barParam}})
		require.Error(t, err)
		assert.True(t, logic.IsDataError(err))
		var de *logic.DataError
		require.True(t, errors.As(errors.Unwrap(err), &de))
		assert.Equal(t, "g", de.Name)

		assert.Equal(t, kinds, m.Kinds())
		assert.Equal(t, terms, m.Terms())
		assert.Empty(t, m.Statements())
		_, ok := m.Parameter("u")
		assert.False(t, ok)
	})

	t.Run("owed names link to the argument", func(t *testing.T) {
		p := gInterface(t, "P", true)
		uses, _ := usesInterface(t, p)

		m := NewModuleData()
		q := &Parameter{Name: "q", Locator: "P", Prefix: "q."}
		require.NoError(t, m.Import(ctx, p, q))
		require.NoError(t, m.Import(ctx, uses, &Parameter{Name: "u", Locator: "Uses", Prefix: "u.", Arguments: []*Parameter{q}}))

		s, ok := m.Statement("u.s1")
		require.True(t, ok)
		assert.Equal(t, "(q.g y)", s.Consequent.String())
		qk, _ := m.Kind("q.K")
		assert.True(t, s.Consequent.Kind().Same(qk))
	})

	t.Run("wrong argument count", func(t *testing.T) {
		p := gInterface(t, "P", true)
		uses, _ := usesInterface(t, p)
		m := NewModuleData()
		err := m.Import(ctx, uses, &Parameter{Name: "u", Locator: "Uses", Prefix: "u."})
		assert.True(t, logic.IsDataError(err))
	})

	t.Run("kind mismatch in owed term", func(t *testing.T) {
		p := gInterface(t, "P", true)
		uses, _ := usesInterface(t, p)

		m := NewModuleData()
		k := must(m.DefineKind("r.K"))
		other := must(m.DefineKind("r.J"))
		_, err := m.DefineFunctor("r.g", other, []logic.Kind{k})
		require.NoError(t, err)
		require.NoError(t, m.Export(ctx, gInterface(t, "Q", false), &Parameter{Name: "r", Locator: "Q", Prefix: "r."}))
		r, _ := m.Parameter("r")

		err = m.Import(ctx, uses, &Parameter{Name: "u", Locator: "Uses", Prefix: "u.", Arguments: []*Parameter{r}})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "result kind mismatch")
	})
}

// dvInterface declares ax : |- (f x y), with x and y distinct if withDV.
func dvInterface(t *testing.T, withDV bool) *InterfaceData {
	t.Helper()
	d := NewInterfaceData("DV")
	k := must(d.DefineKind("K"))
	f, err := d.DefineFunctor("f", k, []logic.Kind{k, k})
	require.NoError(t, err)
	x, _ := d.DefineVariable("x", k)
	y, _ := d.DefineVariable("y", k)
	var dv [][]string
	if withDV {
		dv = [][]string{{"x", "y"}}
	}
	_, err = d.DefineStatement("ax", dv, nil, apply(t, f, logic.Var(x), logic.Var(y)))
	require.NoError(t, err)
	return d
}

// dvModule provides m.ax : |- (m.f a b) with the given DV groups.
func dvModule(t *testing.T, dv [][]string) *ModuleData {
	t.Helper()
	m := NewModuleData()
	k := must(m.DefineKind("m.K"))
	f, err := m.DefineFunctor("m.f", k, []logic.Kind{k, k})
	require.NoError(t, err)
	a, _ := m.DefineVariable("a", k)
	b, _ := m.DefineVariable("b", k)
	_, _ = m.DefineVariable("c", k)
	_, err = m.DefineStatement("m.ax", dv, nil, apply(t, f, logic.Var(a), logic.Var(b)))
	require.NoError(t, err)
	return m
}

func TestExportDV(t *testing.T) {
	ctx := context.Background()
	param := func() *Parameter { return &Parameter{Name: "e", Locator: "DV", Prefix: "m."} }

	t.Run("exact", func(t *testing.T) {
		m := dvModule(t, [][]string{{"a", "b"}})
		require.NoError(t, m.Export(ctx, dvInterface(t, true), param()))
		_, ok := m.Parameter("e")
		assert.True(t, ok)
	})

	t.Run("missing pair", func(t *testing.T) {
		m := dvModule(t, nil)
		err := m.Export(ctx, dvInterface(t, true), param())
		require.Error(t, err)
		assert.True(t, logic.IsDataError(err))
		assert.Contains(t, err.Error(), "missing DV constraint")
		_, ok := m.Parameter("e")
		assert.False(t, ok)
	})

	t.Run("superfluous pair", func(t *testing.T) {
		m := dvModule(t, [][]string{{"a", "b"}})
		err := m.Export(ctx, dvInterface(t, false), param())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "superfluous DV constraints")
	})

	t.Run("pairs with non-mandatory variables are irrelevant", func(t *testing.T) {
		m := dvModule(t, [][]string{{"a", "b", "c"}})
		require.NoError(t, m.Export(ctx, dvInterface(t, true), param()))
	})

	t.Run("renamed variables", func(t *testing.T) {
		m := dvModule(t, [][]string{{"b", "a"}})
		require.NoError(t, m.Export(ctx, dvInterface(t, true), param()))
	})
}

func TestExport(t *testing.T) {
	ctx := context.Background()

	t.Run("import then export", func(t *testing.T) {
		m := NewModuleData()
		foo := fooInterface(t)
		require.NoError(t, m.Import(ctx, foo, &Parameter{Name: "foo", Locator: "Foo", Prefix: "foo."}))
		require.NoError(t, m.Export(ctx, foo, &Parameter{Name: "foo2", Locator: "Foo", Prefix: "foo."}))
	})

	t.Run("definitions survive the round trip", func(t *testing.T) {
		d := NewInterfaceData("Def")
		k := must(d.DefineKind("K"))
		f, _ := d.DefineFunctor("f", k, []logic.Kind{k, k})
		x, _ := d.DefineVariable("x", k)
		z, _ := d.DefineVariable("z", k)
		_, err := d.DefineDefinition("dd", []*logic.Variable{x}, apply(t, f, logic.Var(x), logic.Var(z)))
		require.NoError(t, err)

		m := NewModuleData()
		require.NoError(t, m.Import(ctx, d, &Parameter{Name: "d", Locator: "Def", Prefix: "d."}))
		require.NoError(t, m.Export(ctx, d, &Parameter{Name: "d2", Locator: "Def", Prefix: "d."}))
	})

	t.Run("definition mismatch", func(t *testing.T) {
		d := NewInterfaceData("Def")
		k := must(d.DefineKind("K"))
		f, _ := d.DefineFunctor("f", k, []logic.Kind{k, k})
		x, _ := d.DefineVariable("x", k)
		y, _ := d.DefineVariable("y", k)
		_, err := d.DefineDefinition("dd", []*logic.Variable{x, y}, apply(t, f, logic.Var(x), logic.Var(y)))
		require.NoError(t, err)

		m := NewModuleData()
		mk := must(m.DefineKind("d.K"))
		mf, _ := m.DefineFunctor("d.f", mk, []logic.Kind{mk, mk})
		a, _ := m.DefineVariable("a", mk)
		b, _ := m.DefineVariable("b", mk)
		_, err = m.DefineDefinition("d.dd", []*logic.Variable{a, b}, apply(t, mf, logic.Var(b), logic.Var(a)))
		require.NoError(t, err)

		err = m.Export(ctx, d, &Parameter{Name: "d", Locator: "Def", Prefix: "d."})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "definiens mismatch")
	})

	t.Run("missing statement", func(t *testing.T) {
		m := NewModuleData()
		k := must(m.DefineKind("foo.K"))
		_, err := m.DefineFunctor("foo.f", k, []logic.Kind{k})
		require.NoError(t, err)
		err = m.Export(ctx, fooInterface(t), &Parameter{Name: "foo", Locator: "Foo", Prefix: "foo."})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "thm1")
	})

	t.Run("alias consistency", func(t *testing.T) {
		d := NewInterfaceData("Alias")
		k := must(d.DefineKind("K"))
		require.NoError(t, d.BindKind(k, "L"))

		m := NewModuleData()
		_ = must(m.DefineKind("al.K"))
		_ = must(m.DefineKind("al.L"))
		err := m.Export(ctx, d, &Parameter{Name: "al", Locator: "Alias", Prefix: "al."})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "kind alias mismatch")

		require.NoError(t, m.UnionKinds("al.K", "al.L"))
		require.NoError(t, m.Export(ctx, d, &Parameter{Name: "al", Locator: "Alias", Prefix: "al."}))
	})
}

func TestDefineTwice(t *testing.T) {
	m := NewModuleData()
	k := must(m.DefineKind("K"))
	_, err := m.DefineKind("K")
	assert.True(t, logic.IsDataError(err))
	assert.True(t, logic.IsDataError(m.BindKind(k, "K")))

	_, err = m.DefineFunctor("f", k, nil)
	require.NoError(t, err)
	_, err = m.DefineFunctor("f", k, nil)
	assert.True(t, logic.IsDataError(err))

	_, err = m.DefineVariable("x", k)
	require.NoError(t, err)
	_, err = m.DefineVariable("x", k)
	assert.True(t, logic.IsDataError(err))

	f, _ := m.Term("f")
	_, err = m.DefineStatement("x", nil, nil, apply(t, f))
	assert.True(t, logic.IsDataError(err), "statements share the variable namespace")
	_, err = m.DefineStatement("s", nil, nil, apply(t, f))
	require.NoError(t, err)
	_, err = m.DefineStatement("s", nil, nil, apply(t, f))
	assert.True(t, logic.IsDataError(err))
}

func TestPermissiveResolution(t *testing.T) {
	p := gInterface(t, "P", true)
	d := NewInterfaceData("Uses")
	require.NoError(t, d.AddParameter(&Parameter{Name: "P", Locator: "P", Prefix: "p."}, p))

	t.Run("resolution is pure", func(t *testing.T) {
		r := d.ResolveKind("p.K")
		assert.Equal(t, Owed, r.State)
		assert.Equal(t, "K", r.Owner.Bare)
		assert.Empty(t, d.Kinds())
	})

	t.Run("kinds have no module fallback", func(t *testing.T) {
		assert.Equal(t, Unresolved, d.ResolveKind("nope").State)
		_, ok := d.Kind("nope")
		assert.False(t, ok)
		assert.Equal(t, Unresolved, d.ResolveKind("p.nope").State)
	})

	t.Run("owed term takes its signature from the parameter", func(t *testing.T) {
		g, err := d.Term("p.g")
		require.NoError(t, err)
		assert.Equal(t, 1, g.Arity())
		k, ok := d.Kind("p.K")
		require.True(t, ok)
		assert.True(t, g.ResultKind().Same(k))
		assert.True(t, g.InputKind(0).Same(k))
		pn, ok := d.UndefinedTerm("p.g")
		require.True(t, ok)
		assert.Equal(t, "g", pn.Bare)
		pn, ok = d.UndefinedKind("p.K")
		require.True(t, ok)
		assert.Equal(t, "P", pn.Param.Name)
	})

	t.Run("unclaimed terms are owed to the module", func(t *testing.T) {
		h, err := d.Term("h")
		require.NoError(t, err)
		assert.Equal(t, logic.UnknownArity, h.Arity())
		pn, ok := d.UndefinedTerm("h")
		require.True(t, ok)
		assert.True(t, pn.Param.IsMain())
	})

	t.Run("registration is idempotent", func(t *testing.T) {
		before := d.Terms()
		g1, _ := d.Term("p.g")
		g2, _ := d.Term("p.g")
		assert.Same(t, g1, g2)
		assert.Equal(t, before, d.Terms())
	})

	t.Run("undefined names are write-once", func(t *testing.T) {
		_, err := d.DefineKind("p.K")
		assert.True(t, logic.IsDataError(err))
		k, _ := d.Kind("p.K")
		_, err = d.DefineFunctor("h", k, nil)
		assert.True(t, logic.IsDataError(err))
	})

	t.Run("first applications agree on one arity", func(t *testing.T) {
		k, _ := d.Kind("p.K")
		w, err := d.DefineVariable("w", k)
		require.NoError(t, err)
		box, err := d.Term("box")
		require.NoError(t, err)
		require.Equal(t, logic.UnknownArity, box.Arity())

		var eg errgroup.Group
		for range 8 {
			eg.Go(func() error {
				_, err := d.Apply(box, logic.Var(w))
				return err
			})
		}
		require.NoError(t, eg.Wait())
		assert.Equal(t, 1, box.Arity())

		_, err = d.Apply(box, logic.Var(w), logic.Var(w))
		assert.True(t, logic.IsDataError(err))
		assert.Equal(t, 1, box.Arity())
	})
}

// richInterface has at least one item of every category.
func richInterface(t *testing.T) (*InterfaceData, *InterfaceData) {
	t.Helper()
	p := gInterface(t, "P", true)
	d, _ := usesInterface(t, p)
	pk, _ := d.Kind("p.K")
	k := must(d.DefineKind("K"))
	require.NoError(t, d.BindKind(k, "K2"))
	imp, err := d.DefineFunctor("->", k, []logic.Kind{k, k})
	require.NoError(t, err)
	a, _ := d.DefineVariable("a", k)
	b, _ := d.DefineVariable("b", k)
	_, err = d.DefineVariable("c", k)
	require.NoError(t, err)
	dummy, _ := d.DefineVariable("z", k)
	self, err := d.DefineDefinition("self", []*logic.Variable{a}, apply(t, imp, logic.Var(a), logic.Var(dummy)))
	require.NoError(t, err)
	h, err := d.Term("h")
	require.NoError(t, err)
	y, _ := d.LookupVariable("y")
	_, err = d.DefineStatement("ax1", [][]string{{"a", "b", "c"}},
		[]*logic.Expression{apply(t, self, logic.Var(a))},
		apply(t, imp, logic.Var(a), must(d.Apply(h, logic.Var(b), logic.Var(y)))))
	require.NoError(t, err)
	assert.True(t, pk.Same(y.Kind))
	return d, p
}

func TestCodec(t *testing.T) {
	ctx := context.Background()
	d, p := richInterface(t)

	var buf bytes.Buffer
	require.NoError(t, d.Encode(&buf))
	encoded := buf.Bytes()

	t.Run("round trip", func(t *testing.T) {
		loaded, err := Decode(bytes.NewReader(encoded), "Uses")
		require.NoError(t, err)
		cache := NewCache(nil, "")
		cache.Put(p)
		require.NoError(t, loaded.Link(ctx, cache))

		assert.Equal(t, d.Summary(), loaded.Summary())
		var again bytes.Buffer
		require.NoError(t, loaded.Encode(&again))
		assert.Equal(t, encoded, again.Bytes())

		ax, ok := loaded.Statement("ax1")
		require.True(t, ok)
		assert.Equal(t, 3, ax.DV.Len())
		assert.Equal(t, 1, ax.RelevantDV().Len())
		self, _ := loaded.Term("self")
		require.Equal(t, logic.DefinitionTerm, self.Tag)
		dummies := definitionDummies(self)
		require.Len(t, dummies, 1)
		assert.True(t, dummies[0].Dummy)
	})

	t.Run("partial kinds are checked when mounting", func(t *testing.T) {
		loaded, err := Decode(bytes.NewReader(encoded), "Uses")
		require.NoError(t, err)
		cache := NewCache(nil, "")
		cache.Put(p)
		require.NoError(t, loaded.Link(ctx, cache))

		m := NewModuleData()
		q := &Parameter{Name: "q", Locator: "P", Prefix: "q."}
		require.NoError(t, m.Import(ctx, p, q))
		k0 := must(m.DefineKind("K0"))
		_, err = m.DefineFunctor("h", k0, []logic.Kind{k0, k0})
		require.NoError(t, err)
		before := m.Kinds()

		err = m.Import(ctx, loaded, &Parameter{Name: "u", Locator: "Uses", Prefix: "u.", Arguments: []*Parameter{q}})
		require.Error(t, err)
		var km *logic.KindMismatchError
		require.True(t, errors.As(err, &km))
		assert.Equal(t, "h", km.Term)
		assert.Equal(t, before, m.Kinds())
		_, ok := m.Statement("u.s1")
		assert.False(t, ok)
	})

	t.Run("decoded interface imports", func(t *testing.T) {
		var fooBuf bytes.Buffer
		require.NoError(t, fooInterface(t).Encode(&fooBuf))
		foo, err := Decode(&fooBuf, "Foo")
		require.NoError(t, err)
		require.NoError(t, foo.Link(ctx, NewCache(nil, "")))

		m := NewModuleData()
		require.NoError(t, m.Import(ctx, foo, &Parameter{Name: "foo", Locator: "Foo", Prefix: "foo."}))
		s, ok := m.Statement("foo.thm1")
		require.True(t, ok)
		assert.Equal(t, "(foo.f x)", s.Hypotheses[0].String())
		require.NoError(t, m.Export(ctx, foo, &Parameter{Name: "again", Locator: "Foo", Prefix: "foo."}))
	})

	t.Run("unknown version", func(t *testing.T) {
		bad := append([]byte(nil), encoded...)
		bad[3] ^= 0xff
		_, err := Decode(bytes.NewReader(bad), "Uses")
		var ue *UnknownFormatError
		require.True(t, errors.As(err, &ue))
		assert.Equal(t, FormatVersion, ue.Want)
	})

	t.Run("every truncation fails", func(t *testing.T) {
		for n := 0; n < len(encoded); n++ {
			loaded, err := Decode(bytes.NewReader(encoded[:n]), "Uses")
			require.Error(t, err, "truncated to %d bytes", n)
			assert.Nil(t, loaded)
			assert.True(t, IsFormatError(err) || logic.IsDataError(err), "truncated to %d bytes: %v", n, err)
		}
	})

	t.Run("trailing bytes", func(t *testing.T) {
		_, err := Decode(bytes.NewReader(append(append([]byte(nil), encoded...), 0)), "Uses")
		var fe *FormatError
		require.True(t, errors.As(err, &fe))
		assert.Contains(t, fe.Msg, "trailing")
	})
}

// header writes a version tag and the six category counts.
func header(e *encoder, params, undefinedKinds, undefinedTerms, definedKinds, definedTerms, statements int) {
	e.writeInt(int(FormatVersion))
	for _, n := range []int{params, undefinedKinds, undefinedTerms, definedKinds, definedTerms, statements} {
		e.writeInt(n)
	}
}

func TestDecodeMalformed(t *testing.T) {
	decode := func(e *encoder) (*InterfaceData, error) {
		return Decode(bytes.NewReader(e.buf), "bad")
	}

	t.Run("fresh kind", func(t *testing.T) {
		e := &encoder{}
		header(e, 0, 0, 0, 1, 0, 0)
		e.writeString("K")
		e.writeInt(1)
		d, err := decode(e)
		require.NoError(t, err)
		assert.Equal(t, []string{"K"}, d.Kinds())
	})

	t.Run("kind reference out of range", func(t *testing.T) {
		e := &encoder{}
		header(e, 0, 0, 0, 1, 0, 0)
		e.writeString("K")
		e.writeInt(5)
		_, err := decode(e)
		var fe *FormatError
		require.True(t, errors.As(err, &fe))
	})

	t.Run("forward kind reference", func(t *testing.T) {
		e := &encoder{}
		header(e, 0, 0, 0, 2, 0, 0)
		e.writeString("A")
		e.writeString("B")
		e.writeInt(2)
		e.writeInt(2)
		_, err := decode(e)
		assert.True(t, IsFormatError(err))
	})

	t.Run("duplicate kind", func(t *testing.T) {
		e := &encoder{}
		header(e, 0, 0, 0, 2, 0, 0)
		e.writeString("K")
		e.writeString("K")
		e.writeInt(1)
		e.writeInt(2)
		_, err := decode(e)
		assert.True(t, logic.IsDataError(err))
	})

	t.Run("term used as kind", func(t *testing.T) {
		e := &encoder{}
		header(e, 0, 0, 0, 1, 1, 0)
		e.writeString("K")
		e.writeString("f")
		e.writeInt(1)
		e.writeInt(tagFunctor)
		e.writeInt(2)
		e.writeInt(0)
		_, err := decode(e)
		assert.True(t, IsFormatError(err))
	})

	t.Run("undefined kind needs a parameter", func(t *testing.T) {
		e := &encoder{}
		header(e, 0, 1, 0, 0, 0, 0)
		e.writeString("K")
		e.writeInt(0)
		_, err := decode(e)
		assert.True(t, IsFormatError(err))
	})

	t.Run("definition refers forward", func(t *testing.T) {
		e := &encoder{}
		header(e, 0, 0, 0, 1, 1, 0)
		e.writeString("K")
		e.writeString("d")
		e.writeInt(1)
		e.writeInt(tagDefinition)
		e.writeInt(1)
		e.writeInt(0)
		e.writeString("x")
		e.writeInt(1)
		e.writeInt(2) // itself
		_, err := decode(e)
		assert.True(t, IsFormatError(err))
	})

	t.Run("negative count", func(t *testing.T) {
		e := &encoder{}
		header(e, 0, 0, 0, -1, 0, 0)
		_, err := decode(e)
		assert.True(t, IsFormatError(err))
	})
}
