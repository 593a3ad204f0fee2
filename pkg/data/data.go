package data

import (
	"github.com/vito/hilbert/pkg/logic"
)

// namespace holds the symbol tables shared by modules and interfaces. Every
// name is write-once; variables and statements share one symbol space.
//
// Changes are journaled so that a failed command can be rolled back.
type namespace struct {
	kinds *logic.KindTable

	terms     map[string]*logic.Term
	termOrder []string

	variables  map[string]*logic.Variable
	statements map[string]*logic.Statement
	stmtOrder  []string

	params     map[string]*Parameter
	paramOrder []*Parameter

	undo []func()
}

func newNamespace() namespace {
	return namespace{
		kinds:      logic.NewKindTable(),
		terms:      map[string]*logic.Term{},
		variables:  map[string]*logic.Variable{},
		statements: map[string]*logic.Statement{},
		params:     map[string]*Parameter{},
	}
}

type checkpoint struct {
	kinds int
	undo  int
}

func (ns *namespace) mark() checkpoint {
	return checkpoint{kinds: ns.kinds.Mark(), undo: len(ns.undo)}
}

func (ns *namespace) rollback(cp checkpoint) {
	for i := len(ns.undo) - 1; i >= cp.undo; i-- {
		ns.undo[i]()
	}
	ns.undo = ns.undo[:cp.undo]
	ns.kinds.Rollback(cp.kinds)
}

func (ns *namespace) kind(name string) (logic.Kind, bool) {
	return ns.kinds.Lookup(name)
}

func (ns *namespace) term(name string) (*logic.Term, bool) {
	t, ok := ns.terms[name]
	return t, ok
}

func (ns *namespace) addTerm(t *logic.Term) error {
	if _, exists := ns.terms[t.Name]; exists {
		return logic.NewDataError("define term", t.Name, "term already defined or referenced")
	}
	ns.terms[t.Name] = t
	ns.termOrder = append(ns.termOrder, t.Name)
	n := len(ns.termOrder) - 1
	ns.undo = append(ns.undo, func() {
		delete(ns.terms, t.Name)
		ns.termOrder = ns.termOrder[:n]
	})
	return nil
}

func (ns *namespace) defineFunctor(name string, result logic.Kind, inputs []logic.Kind) (*logic.Term, error) {
	if result.IsZero() {
		return nil, logic.NewDataError("define term", name, "result kind is unknown")
	}
	for _, k := range inputs {
		if k.IsZero() {
			return nil, logic.NewDataError("define term", name, "input kind is unknown")
		}
	}
	t := logic.NewFunctor(name, result, inputs)
	if err := ns.addTerm(t); err != nil {
		return nil, err
	}
	return t, nil
}

func (ns *namespace) defineDefinition(name string, placeholders []*logic.Variable, definiens *logic.Expression) (*logic.Term, error) {
	t, err := logic.NewDefinition(name, placeholders, definiens)
	if err != nil {
		return nil, err
	}
	if err := ns.addTerm(t); err != nil {
		return nil, err
	}
	return t, nil
}

func (ns *namespace) symbolTaken(name string) bool {
	if _, ok := ns.variables[name]; ok {
		return true
	}
	_, ok := ns.statements[name]
	return ok
}

func (ns *namespace) defineVariable(name string, kind logic.Kind) (*logic.Variable, error) {
	if ns.symbolTaken(name) {
		return nil, logic.NewDataError("define variable", name, "symbol already defined")
	}
	v := logic.NewVariable(name, kind)
	ns.variables[name] = v
	ns.undo = append(ns.undo, func() { delete(ns.variables, name) })
	return v, nil
}

func (ns *namespace) variable(name string) (*logic.Variable, bool) {
	v, ok := ns.variables[name]
	return v, ok
}

func (ns *namespace) addStatement(s *logic.Statement) error {
	if ns.symbolTaken(s.Name) {
		return logic.NewDataError("define statement", s.Name, "symbol already defined")
	}
	ns.statements[s.Name] = s
	ns.stmtOrder = append(ns.stmtOrder, s.Name)
	n := len(ns.stmtOrder) - 1
	ns.undo = append(ns.undo, func() {
		delete(ns.statements, s.Name)
		ns.stmtOrder = ns.stmtOrder[:n]
	})
	return nil
}

func (ns *namespace) defineStatement(name string, rawDV [][]string, hyps []*logic.Expression, consequent *logic.Expression) (*logic.Statement, error) {
	s, err := logic.BuildStatement(name, rawDV, ns.variable, hyps, consequent)
	if err != nil {
		return nil, err
	}
	if err := ns.addStatement(s); err != nil {
		return nil, err
	}
	return s, nil
}

func (ns *namespace) statement(name string) (*logic.Statement, bool) {
	s, ok := ns.statements[name]
	return s, ok
}

func (ns *namespace) addParameter(p *Parameter) error {
	if p.Name == "" {
		return logic.NewDataError("define parameter", p.Locator, "parameter has no name")
	}
	if _, exists := ns.params[p.Name]; exists {
		return logic.NewDataError("define parameter", p.Name, "parameter already defined")
	}
	ns.params[p.Name] = p
	ns.paramOrder = append(ns.paramOrder, p)
	n := len(ns.paramOrder) - 1
	ns.undo = append(ns.undo, func() {
		delete(ns.params, p.Name)
		ns.paramOrder = ns.paramOrder[:n]
	})
	return nil
}

func (ns *namespace) parameter(name string) (*Parameter, bool) {
	p, ok := ns.params[name]
	return p, ok
}
