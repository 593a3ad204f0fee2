package logic

import (
	"strings"
)

// Statement is a named judgment: hypotheses entail the consequent under the
// DV constraints.
type Statement struct {
	Name       string
	DV         *DVConstraints
	Hypotheses []*Expression
	Consequent *Expression

	mandatory []*Variable
}

// NewStatement assembles a statement from resolved parts.
func NewStatement(name string, dv *DVConstraints, hyps []*Expression, consequent *Expression) *Statement {
	if dv == nil {
		dv = NewDVConstraints()
	}
	s := &Statement{
		Name:       name,
		DV:         dv,
		Hypotheses: append([]*Expression(nil), hyps...),
		Consequent: consequent,
	}
	seen := map[*Variable]bool{}
	for _, e := range append(append([]*Expression(nil), hyps...), consequent) {
		e.collect(&s.mandatory, seen)
	}
	return s
}

// BuildStatement resolves raw DV groups by name and assembles a statement.
// Unknown names and names repeated within one group are rejected.
func BuildStatement(name string, rawDV [][]string, lookup func(string) (*Variable, bool), hyps []*Expression, consequent *Expression) (*Statement, error) {
	dv := NewDVConstraints()
	for _, group := range rawDV {
		var vars []*Variable
		seen := map[*Variable]bool{}
		for _, varName := range group {
			v, ok := lookup(varName)
			if !ok {
				return nil, NewDataError("define statement", varName, "constraint variable not defined")
			}
			if seen[v] {
				return nil, NewDataError("define statement", varName, "constraint variable occurs twice")
			}
			seen[v] = true
			vars = append(vars, v)
		}
		dv.AddGroup(vars)
	}
	return NewStatement(name, dv, hyps, consequent), nil
}

// MandatoryVariables returns the variables of the hypotheses and the
// consequent in order of first occurrence.
func (s *Statement) MandatoryVariables() []*Variable {
	return s.mandatory
}

// RelevantDV returns the DV pairs between mandatory variables.
func (s *Statement) RelevantDV() *DVConstraints {
	return s.DV.Restrict(s.mandatory)
}

// Variables returns the mandatory variables followed by any variables that
// appear only in DV constraints.
func (s *Statement) Variables() []*Variable {
	vars := append([]*Variable(nil), s.mandatory...)
	seen := map[*Variable]bool{}
	for _, v := range vars {
		seen[v] = true
	}
	for _, v := range s.DV.Variables() {
		if !seen[v] {
			seen[v] = true
			vars = append(vars, v)
		}
	}
	return vars
}

func (s *Statement) String() string {
	var b strings.Builder
	b.WriteString(s.Name)
	b.WriteString(" ")
	b.WriteString(s.DV.String())
	b.WriteString(" (")
	for i, h := range s.Hypotheses {
		if i > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(h.String())
	}
	b.WriteString(") ")
	b.WriteString(s.Consequent.String())
	return b.String()
}
