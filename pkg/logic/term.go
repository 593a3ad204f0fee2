package logic

import (
	"cmp"
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/samber/lo"
)

var nextVariableID uint64

// Variable is a kinded symbol. Variables are compared by identity; Compare
// orders them by name.
type Variable struct {
	Name  string
	Kind  Kind
	Dummy bool

	id uint64
}

// NewVariable creates a fresh variable.
func NewVariable(name string, kind Kind) *Variable {
	return &Variable{Name: name, Kind: kind, id: atomic.AddUint64(&nextVariableID, 1)}
}

// NewDummyVariable creates a fresh variable that may appear in a
// definiens but never in a placeholder list.
func NewDummyVariable(name string, kind Kind) *Variable {
	v := NewVariable(name, kind)
	v.Dummy = true
	return v
}

func (v *Variable) String() string {
	return v.Name
}

// Compare orders variables by name, breaking ties by creation order.
func (v *Variable) Compare(o *Variable) int {
	if c := cmp.Compare(v.Name, o.Name); c != 0 {
		return c
	}
	return cmp.Compare(v.id, o.id)
}

// TermTag distinguishes the two kinds of Term.
type TermTag int

const (
	FunctorTerm TermTag = iota
	DefinitionTerm
)

func (t TermTag) String() string {
	switch t {
	case FunctorTerm:
		return "functor"
	case DefinitionTerm:
		return "definition"
	default:
		return fmt.Sprintf("TermTag(%d)", int(t))
	}
}

// UnknownArity marks a term whose place count has not been fixed yet.
const UnknownArity = -1

// Term is a named operator. A functor has a result kind and input kinds; a
// definition has placeholder variables and a definiens built over them.
//
// Terms owed to a parameter may be partial: their kinds may be unknown (zero)
// and, for terms owed to the enclosing module, even the arity may be
// UnknownArity until the first application fixes it.
type Term struct {
	Name string
	Tag  TermTag

	// functor
	Result Kind
	Inputs []Kind
	arity  int

	// definition
	Placeholders []*Variable
	Definiens    *Expression
}

// NewFunctor creates a fully known functor.
func NewFunctor(name string, result Kind, inputs []Kind) *Term {
	return &Term{
		Name:   name,
		Tag:    FunctorTerm,
		Result: result,
		Inputs: append([]Kind(nil), inputs...),
		arity:  len(inputs),
	}
}

// NewPartialFunctor creates a functor with the given arity whose kinds are
// not known yet. Pass UnknownArity if not even the arity is known.
func NewPartialFunctor(name string, arity int) *Term {
	t := &Term{Name: name, Tag: FunctorTerm, arity: arity}
	if arity > 0 {
		t.Inputs = make([]Kind, arity)
	}
	return t
}

// NewDefinition creates a definition. Placeholders must be distinct and
// must not be dummy variables.
func NewDefinition(name string, placeholders []*Variable, definiens *Expression) (*Term, error) {
	if len(lo.Uniq(placeholders)) != len(placeholders) {
		return nil, NewDataError("define term", name, "placeholder occurs twice")
	}
	for _, p := range placeholders {
		if p.Dummy {
			return nil, NewDataError("define term", name, "dummy variable "+p.Name+" used as placeholder")
		}
	}
	return &Term{
		Name:         name,
		Tag:          DefinitionTerm,
		Placeholders: append([]*Variable(nil), placeholders...),
		Definiens:    definiens,
		arity:        len(placeholders),
	}, nil
}

// Arity returns the place count, or UnknownArity.
func (t *Term) Arity() int {
	return t.arity
}

// ResultKind returns the kind of an application of t.
func (t *Term) ResultKind() Kind {
	if t.Tag == DefinitionTerm {
		return t.Definiens.Kind()
	}
	return t.Result
}

// InputKind returns the kind required at position i.
func (t *Term) InputKind(i int) Kind {
	if t.Tag == DefinitionTerm {
		return t.Placeholders[i].Kind
	}
	return t.Inputs[i]
}

// IsPartial reports whether some part of t's signature is unknown.
func (t *Term) IsPartial() bool {
	if t.Tag == DefinitionTerm {
		return false
	}
	if t.arity == UnknownArity || t.Result.IsZero() {
		return true
	}
	return lo.ContainsBy(t.Inputs, Kind.IsZero)
}

// fixArity sets the arity of a term first used with an unknown one.
func (t *Term) fixArity(n int) {
	t.arity = n
	t.Inputs = make([]Kind, n)
}

func (t *Term) String() string {
	switch t.Tag {
	case DefinitionTerm:
		return fmt.Sprintf("(%s %s) := %s", t.Name,
			strings.Join(lo.Map(t.Placeholders, func(v *Variable, _ int) string { return v.Name }), " "),
			t.Definiens)
	default:
		if t.arity == UnknownArity {
			return t.Name + " : ?"
		}
		return fmt.Sprintf("%s : %s -> %s", t.Name,
			strings.Join(lo.Map(t.Inputs, func(k Kind, _ int) string { return k.Name() }), " "),
			t.Result.Name())
	}
}
