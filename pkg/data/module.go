package data

import (
	"context"

	"github.com/vito/hilbert/pkg/logic"
)

// ModuleData is the symbol table of one proof module. It grows as the
// module's commands run and is owned by a single verification session.
type ModuleData struct {
	namespace
}

func NewModuleData() *ModuleData {
	return &ModuleData{namespace: newNamespace()}
}

func (m *ModuleData) DefineKind(name string) (logic.Kind, error) {
	return m.kinds.Define(name)
}

func (m *ModuleData) Kind(name string) (logic.Kind, bool) {
	return m.kind(name)
}

// BindKind makes newName another name for old.
func (m *ModuleData) BindKind(old logic.Kind, newName string) error {
	return m.kinds.Bind(old, newName)
}

// UnionKinds identifies two existing kinds.
func (m *ModuleData) UnionKinds(a, b string) error {
	ka, ok := m.kind(a)
	if !ok {
		return logic.NewDataError("bind kind", a, "kind not found")
	}
	kb, ok := m.kind(b)
	if !ok {
		return logic.NewDataError("bind kind", b, "kind not found")
	}
	return m.kinds.Union(ka, kb)
}

// Kinds returns every kind name, aliases included, in definition order.
func (m *ModuleData) Kinds() []string {
	return m.kinds.Names()
}

func (m *ModuleData) DefineFunctor(name string, result logic.Kind, inputs []logic.Kind) (*logic.Term, error) {
	return m.defineFunctor(name, result, inputs)
}

func (m *ModuleData) DefineDefinition(name string, placeholders []*logic.Variable, definiens *logic.Expression) (*logic.Term, error) {
	return m.defineDefinition(name, placeholders, definiens)
}

func (m *ModuleData) Term(name string) (*logic.Term, bool) {
	return m.term(name)
}

// Terms returns every term name in definition order.
func (m *ModuleData) Terms() []string {
	return append([]string(nil), m.termOrder...)
}

func (m *ModuleData) DefineVariable(name string, kind logic.Kind) (*logic.Variable, error) {
	return m.defineVariable(name, kind)
}

func (m *ModuleData) Variable(name string) (*logic.Variable, bool) {
	return m.variable(name)
}

// DefineStatement resolves the DV groups against the module's variables and
// registers the resulting statement.
func (m *ModuleData) DefineStatement(name string, rawDV [][]string, hyps []*logic.Expression, consequent *logic.Expression) (*logic.Statement, error) {
	return m.defineStatement(name, rawDV, hyps, consequent)
}

func (m *ModuleData) Statement(name string) (*logic.Statement, bool) {
	return m.statement(name)
}

// Statements returns every statement name in definition order.
func (m *ModuleData) Statements() []string {
	return append([]string(nil), m.stmtOrder...)
}

func (m *ModuleData) Parameter(name string) (*Parameter, bool) {
	return m.parameter(name)
}

// Parameters returns the parameters registered by imports and exports.
func (m *ModuleData) Parameters() []*Parameter {
	return append([]*Parameter(nil), m.paramOrder...)
}

// Import mounts iface into the module under p. On failure the module is left
// as it was before the call.
func (m *ModuleData) Import(ctx context.Context, iface *InterfaceData, p *Parameter) error {
	cp := m.mark()
	if err := m.addParameter(p); err != nil {
		return err
	}
	if err := iface.importInto(ctx, m, p); err != nil {
		m.rollback(cp)
		return err
	}
	return nil
}

// Export checks that the module satisfies iface under p and registers p for
// use as an argument of later imports.
func (m *ModuleData) Export(ctx context.Context, iface *InterfaceData, p *Parameter) error {
	if _, exists := m.parameter(p.Name); exists {
		return logic.NewDataError("define parameter", p.Name, "parameter already defined")
	}
	if err := iface.exportFrom(ctx, m, p); err != nil {
		return err
	}
	return m.addParameter(p)
}

// LookupTerm implements logic.Scope.
func (m *ModuleData) LookupTerm(name string) (*logic.Term, error) {
	t, ok := m.term(name)
	if !ok {
		return nil, logic.NewDataError("lookup", name, "term not found")
	}
	return t, nil
}

// LookupVariable implements logic.Scope.
func (m *ModuleData) LookupVariable(name string) (*logic.Variable, bool) {
	return m.variable(name)
}
