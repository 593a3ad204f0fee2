package logic

import (
	"fmt"
	"strings"

	"github.com/vito/hilbert/pkg/token"
)

// Expression is an immutable tree whose leaves are variables and whose inner
// nodes are terms applied to exactly Arity() children.
type Expression struct {
	term     *Term
	variable *Variable
	children []*Expression
}

// Var returns the expression consisting of v alone.
func Var(v *Variable) *Expression {
	return &Expression{variable: v}
}

// Apply builds an application of t, checking the place count and the kind
// of every child. Positions whose kinds are unknown on either side are not
// checked. A term with unknown arity has its arity fixed by a successful
// call; callers sharing such a term must serialize their applications, as
// an Applier does.
func Apply(t *Term, children ...*Expression) (*Expression, error) {
	if t.Arity() != UnknownArity {
		if len(children) != t.Arity() {
			return nil, NewDataError("apply", t.Name,
				fmt.Sprintf("wrong number of arguments (want %d, got %d) for term", t.Arity(), len(children)))
		}
		for i, child := range children {
			want, got := t.InputKind(i), child.Kind()
			if want.IsZero() || got.IsZero() {
				continue
			}
			if !want.Same(got) {
				return nil, &KindMismatchError{
					Term:     t.Name,
					Position: i + 1,
					Expected: want.Name(),
					Found:    got.Name(),
				}
			}
		}
	} else {
		t.fixArity(len(children))
	}
	return &Expression{term: t, children: append([]*Expression(nil), children...)}, nil
}

// IsVariable reports whether e is a leaf.
func (e *Expression) IsVariable() bool {
	return e.variable != nil
}

// Variable returns the leaf variable, or nil.
func (e *Expression) Variable() *Variable {
	return e.variable
}

// Term returns the applied term, or nil for a leaf.
func (e *Expression) Term() *Term {
	return e.term
}

func (e *Expression) Children() []*Expression {
	return e.children
}

func (e *Expression) Kind() Kind {
	if e.variable != nil {
		return e.variable.Kind
	}
	return e.term.ResultKind()
}

// Variables returns the distinct variables of e in order of first
// occurrence.
func (e *Expression) Variables() []*Variable {
	var vars []*Variable
	seen := map[*Variable]bool{}
	e.collect(&vars, seen)
	return vars
}

func (e *Expression) collect(vars *[]*Variable, seen map[*Variable]bool) {
	if e.variable != nil {
		if !seen[e.variable] {
			seen[e.variable] = true
			*vars = append(*vars, e.variable)
		}
		return
	}
	for _, c := range e.children {
		c.collect(vars, seen)
	}
}

// Terms calls fn for every term applied in e, outermost first.
func (e *Expression) Terms(fn func(*Term)) {
	if e.term == nil {
		return
	}
	fn(e.term)
	for _, c := range e.children {
		c.Terms(fn)
	}
}

func (e *Expression) String() string {
	if e == nil {
		return "<nil>"
	}
	if e.variable != nil {
		return e.variable.Name
	}
	if len(e.children) == 0 {
		return "(" + e.term.Name + ")"
	}
	var b strings.Builder
	b.WriteByte('(')
	b.WriteString(e.term.Name)
	for _, c := range e.children {
		b.WriteByte(' ')
		b.WriteString(c.String())
	}
	b.WriteByte(')')
	return b.String()
}

// Scope resolves the names an expression may mention.
type Scope interface {
	// LookupTerm resolves a term name. Permissive scopes may create the term
	// on demand.
	LookupTerm(name string) (*Term, error)
	// LookupVariable resolves a variable name.
	LookupVariable(name string) (*Variable, bool)
}

// Applier is implemented by scopes that own terms of unknown arity. Parse
// builds applications through it instead of calling Apply directly.
type Applier interface {
	Apply(t *Term, children ...*Expression) (*Expression, error)
}

// Parse reads one expression from feed. An atom is a variable; a group is
// a term name followed by its arguments.
func Parse(feed token.Feed, scope Scope) (*Expression, error) {
	tok, err := feed.Next()
	if err != nil {
		return nil, &ExpressionError{Msg: "scanner error", Err: err}
	}
	switch tok.Class {
	case token.Atom:
		v, ok := scope.LookupVariable(tok.Text)
		if !ok {
			return nil, &ExpressionError{Pos: tok.Pos, Msg: fmt.Sprintf("variable %q not found", tok.Text)}
		}
		return Var(v), nil
	case token.Begin:
		name, err := token.Expect(feed, token.Atom)
		if err != nil {
			return nil, &ExpressionError{Pos: tok.Pos, Msg: "expected term name", Err: err}
		}
		t, err := scope.LookupTerm(name.Text)
		if err != nil {
			return nil, &ExpressionError{Pos: name.Pos, Msg: "term lookup failed", Err: err}
		}
		var children []*Expression
		for {
			next, err := feed.Peek()
			if err != nil {
				return nil, &ExpressionError{Pos: name.Pos, Msg: "scanner error", Err: err}
			}
			if next.Class == token.End {
				_, _ = feed.Next()
				break
			}
			if next.Class == token.EOF {
				return nil, &ExpressionError{Pos: next.Pos, Msg: "unexpected end of input in expression"}
			}
			child, err := Parse(feed, scope)
			if err != nil {
				return nil, err
			}
			children = append(children, child)
		}
		apply := Apply
		if a, ok := scope.(Applier); ok {
			apply = a.Apply
		}
		expr, err := apply(t, children...)
		if err != nil {
			return nil, &ExpressionError{Pos: name.Pos, Msg: "invalid application", Err: err}
		}
		return expr, nil
	default:
		return nil, &ExpressionError{Pos: tok.Pos, Msg: "expected expression, found " + tok.String()}
	}
}

// Translation carries the maps used to move expressions from one namespace
// into another. Vars grows as variables are first encountered.
type Translation struct {
	// Kinds maps canonical source kinds to target kinds.
	Kinds map[Kind]Kind
	// Terms maps source terms to target terms.
	Terms map[*Term]*Term
	// Vars maps source variables to target variables.
	Vars map[*Variable]*Variable
}

func NewTranslation() *Translation {
	return &Translation{
		Kinds: map[Kind]Kind{},
		Terms: map[*Term]*Term{},
		Vars:  map[*Variable]*Variable{},
	}
}

// Kind translates a source kind.
func (tr *Translation) Kind(k Kind) (Kind, bool) {
	target, ok := tr.Kinds[k.Canonical()]
	return target, ok
}

// Variable returns the target of v, creating a fresh target variable of the
// translated kind on first use.
func (tr *Translation) Variable(v *Variable) (*Variable, error) {
	kind, ok := tr.Kind(v.Kind)
	if !ok {
		return nil, NewDataError("adapt", v.Name, "no translation for kind "+v.Kind.Name()+" of variable")
	}
	if w, found := tr.Vars[v]; found {
		if !w.Kind.Same(kind) {
			panic(fmt.Sprintf("variable %s translated to %s of kind %s, want kind %s",
				v.Name, w.Name, w.Kind.Name(), kind.Name()))
		}
		return w, nil
	}
	var w *Variable
	if v.Dummy {
		w = NewDummyVariable(v.Name, kind)
	} else {
		w = NewVariable(v.Name, kind)
	}
	tr.Vars[v] = w
	return w, nil
}

// Adapt rebuilds e in the target namespace described by tr. Applications are
// re-checked against the target terms' kinds.
func (e *Expression) Adapt(tr *Translation) (*Expression, error) {
	if e.variable != nil {
		w, err := tr.Variable(e.variable)
		if err != nil {
			return nil, err
		}
		return Var(w), nil
	}
	t, ok := tr.Terms[e.term]
	if !ok {
		return nil, NewDataError("adapt", e.term.Name, "no translation for term")
	}
	children := make([]*Expression, len(e.children))
	for i, c := range e.children {
		ac, err := c.Adapt(tr)
		if err != nil {
			return nil, err
		}
		children[i] = ac
	}
	return Apply(t, children...)
}

// EqualityMap checks that e and o are structurally identical up to a
// renaming of variables. corr accumulates the renaming from e's variables to
// o's; it must stay one-to-one and kind-preserving.
func (e *Expression) EqualityMap(o *Expression, corr map[*Variable]*Variable) error {
	inverse := make(map[*Variable]*Variable, len(corr))
	for k, v := range corr {
		inverse[v] = k
	}
	return e.equalityMap(o, corr, inverse)
}

func (e *Expression) equalityMap(o *Expression, corr, inverse map[*Variable]*Variable) error {
	switch {
	case e.variable != nil && o.variable != nil:
		if !e.variable.Kind.Same(o.variable.Kind) {
			return &MismatchError{Left: e, Right: o, Reason: "variable kinds differ"}
		}
		if w, ok := corr[e.variable]; ok {
			if w != o.variable {
				return &MismatchError{Left: e, Right: o,
					Reason: fmt.Sprintf("%s already corresponds to %s", e.variable.Name, w.Name)}
			}
			return nil
		}
		if u, ok := inverse[o.variable]; ok {
			return &MismatchError{Left: e, Right: o,
				Reason: fmt.Sprintf("%s already corresponds to %s", u.Name, o.variable.Name)}
		}
		corr[e.variable] = o.variable
		inverse[o.variable] = e.variable
		return nil
	case e.term != nil && o.term != nil:
		if e.term != o.term {
			return &MismatchError{Left: e, Right: o, Reason: "different terms"}
		}
		for i := range e.children {
			if err := e.children[i].equalityMap(o.children[i], corr, inverse); err != nil {
				return err
			}
		}
		return nil
	default:
		return &MismatchError{Left: e, Right: o, Reason: "variable versus term"}
	}
}
