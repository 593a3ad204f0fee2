package logic

import (
	"slices"
	"strings"

	"github.com/hashicorp/go-set/v3"
)

// Pair is an unordered pair of distinct variables, stored with First
// ordered before Second.
type Pair struct {
	First, Second *Variable
}

// MakePair returns the canonical pair of a and b. It panics if a == b.
func MakePair(a, b *Variable) Pair {
	if a == b {
		panic("DV pair of a variable with itself: " + a.Name)
	}
	if a.Compare(b) > 0 {
		a, b = b, a
	}
	return Pair{First: a, Second: b}
}

func (p Pair) String() string {
	return "(" + p.First.Name + " " + p.Second.Name + ")"
}

// DVConstraints is a set of distinct-variable pairs.
type DVConstraints struct {
	pairs *set.Set[Pair]
}

func NewDVConstraints() *DVConstraints {
	return &DVConstraints{pairs: set.New[Pair](0)}
}

// Add requires a and b to be distinct.
func (dv *DVConstraints) Add(a, b *Variable) {
	dv.pairs.Insert(MakePair(a, b))
}

// AddGroup requires every two variables of vars to be distinct.
func (dv *DVConstraints) AddGroup(vars []*Variable) {
	for i := range vars {
		for j := i + 1; j < len(vars); j++ {
			dv.Add(vars[i], vars[j])
		}
	}
}

func (dv *DVConstraints) Contains(a, b *Variable) bool {
	if a == b {
		return false
	}
	return dv.pairs.Contains(MakePair(a, b))
}

// Remove deletes the pair (a, b) and reports whether it was present.
func (dv *DVConstraints) Remove(a, b *Variable) bool {
	if a == nil || b == nil || a == b {
		return false
	}
	return dv.pairs.Remove(MakePair(a, b))
}

func (dv *DVConstraints) Len() int {
	return dv.pairs.Size()
}

func (dv *DVConstraints) Empty() bool {
	return dv.pairs.Empty()
}

// Pairs returns the pairs in a stable order.
func (dv *DVConstraints) Pairs() []Pair {
	pairs := dv.pairs.Slice()
	slices.SortFunc(pairs, func(a, b Pair) int {
		if c := a.First.Compare(b.First); c != 0 {
			return c
		}
		return a.Second.Compare(b.Second)
	})
	return pairs
}

// Variables returns every variable mentioned, in the order of Pairs.
func (dv *DVConstraints) Variables() []*Variable {
	var vars []*Variable
	seen := map[*Variable]bool{}
	for _, p := range dv.Pairs() {
		for _, v := range []*Variable{p.First, p.Second} {
			if !seen[v] {
				seen[v] = true
				vars = append(vars, v)
			}
		}
	}
	return vars
}

func (dv *DVConstraints) Copy() *DVConstraints {
	return &DVConstraints{pairs: dv.pairs.Copy()}
}

// Equal reports whether both sets hold exactly the same pairs.
func (dv *DVConstraints) Equal(o *DVConstraints) bool {
	return dv.pairs.Equal(o.pairs)
}

// Restrict returns the pairs whose variables are both in vars.
func (dv *DVConstraints) Restrict(vars []*Variable) *DVConstraints {
	keep := set.From(vars)
	out := NewDVConstraints()
	for p := range dv.pairs.Items() {
		if keep.Contains(p.First) && keep.Contains(p.Second) {
			out.pairs.Insert(p)
		}
	}
	return out
}

// Adapt translates every pair through tr, creating target variables on
// first use like Expression.Adapt does.
func (dv *DVConstraints) Adapt(tr *Translation) (*DVConstraints, error) {
	out := NewDVConstraints()
	for _, p := range dv.Pairs() {
		a, err := tr.Variable(p.First)
		if err != nil {
			return nil, err
		}
		b, err := tr.Variable(p.Second)
		if err != nil {
			return nil, err
		}
		out.Add(a, b)
	}
	return out, nil
}

func (dv *DVConstraints) String() string {
	var parts []string
	for _, p := range dv.Pairs() {
		parts = append(parts, p.String())
	}
	return "(" + strings.Join(parts, " ") + ")"
}
