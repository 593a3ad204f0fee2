package data

import (
	"context"
	"log/slog"
	"strings"
	"sync"

	"github.com/vito/hilbert/pkg/logic"
)

// InterfaceData is the symbol table of one compiled interface. Names are
// either defined locally or owed to a formal parameter (undefined).
//
// An InterfaceData is shared by every module that imports it. Lookups may
// register new undefined names, so all access goes through mu.
type InterfaceData struct {
	locator string

	mu sync.RWMutex
	ns namespace

	// parameter interfaces, attached by AddParameter or Link
	paramData map[*Parameter]*InterfaceData

	undefinedKinds map[string]ParameterizedName
	undefinedTerms map[string]ParameterizedName
}

func NewInterfaceData(locator string) *InterfaceData {
	return &InterfaceData{
		locator:        locator,
		ns:             newNamespace(),
		paramData:      map[*Parameter]*InterfaceData{},
		undefinedKinds: map[string]ParameterizedName{},
		undefinedTerms: map[string]ParameterizedName{},
	}
}

func (d *InterfaceData) Locator() string {
	return d.locator
}

// AddParameter declares a formal parameter whose interface is iface. The
// parameter's arguments must be earlier parameters of d, one for each formal
// parameter of iface.
func (d *InterfaceData) AddParameter(p *Parameter, iface *InterfaceData) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, arg := range p.Arguments {
		if known, ok := d.ns.parameter(arg.Name); !ok || known != arg {
			return logic.NewDataError("define parameter", arg.Name, "argument is not a parameter of "+d.locator)
		}
	}
	if iface != nil {
		if want := len(iface.Parameters()); want != len(p.Arguments) {
			return logic.NewDataError("define parameter", p.Name, "wrong number of parameters")
		}
	}
	if err := d.ns.addParameter(p); err != nil {
		return err
	}
	if iface != nil {
		d.paramData[p] = iface
	}
	return nil
}

// Link attaches the interfaces of every formal parameter, loading them
// through loader. Decoded interfaces must be linked before use.
func (d *InterfaceData) Link(ctx context.Context, loader Loader) error {
	for _, p := range d.Parameters() {
		if d.ParameterInterface(p) != nil {
			continue
		}
		iface, err := loader.Interface(ctx, p.Locator)
		if err != nil {
			return logic.WrapDataError(err, "link", p.Locator, "unable to obtain interface")
		}
		if want := len(iface.Parameters()); want != len(p.Arguments) {
			return logic.NewDataError("link", p.Name, "wrong number of parameters")
		}
		d.mu.Lock()
		d.paramData[p] = iface
		d.mu.Unlock()
	}
	return nil
}

// Parameters returns the formal parameters in declaration order.
func (d *InterfaceData) Parameters() []*Parameter {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return append([]*Parameter(nil), d.ns.paramOrder...)
}

// Parameter returns the formal parameter with the given name.
func (d *InterfaceData) Parameter(name string) (*Parameter, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.ns.parameter(name)
}

// ParameterInterface returns the interface attached to p, or nil.
func (d *InterfaceData) ParameterInterface(p *Parameter) *InterfaceData {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.paramData[p]
}

// hasDefinedKind reports whether bare is known to d and not itself owed to one
// of d's parameters.
func (d *InterfaceData) hasDefinedKind(bare string) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if _, owed := d.undefinedKinds[bare]; owed {
		return false
	}
	return d.ns.kinds.Has(bare)
}

func (d *InterfaceData) definedTerm(bare string) (*logic.Term, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if _, owed := d.undefinedTerms[bare]; owed {
		return nil, false
	}
	return d.ns.term(bare)
}

// ResolveKind looks name up without changing d. A name that is not local is
// owed to the first parameter, in declaration order, whose prefix it carries
// and whose interface knows the bare name. Kinds never fall back to the
// enclosing module.
func (d *InterfaceData) ResolveKind(name string) Resolution {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.resolveKind(name)
}

func (d *InterfaceData) resolveKind(name string) Resolution {
	if k, ok := d.ns.kind(name); ok {
		return Resolution{State: Local, Kind: k}
	}
	for _, p := range d.ns.paramOrder {
		bare, ok := strings.CutPrefix(name, p.Prefix)
		if !ok {
			continue
		}
		pd := d.paramData[p]
		if pd == nil || !pd.hasDefinedKind(bare) {
			continue
		}
		return Resolution{State: Owed, Owner: ParameterizedName{Param: p, Bare: bare}}
	}
	return Resolution{State: Unresolved}
}

// ResolveTerm looks name up without changing d. Names no parameter claims
// are owed to the enclosing module.
func (d *InterfaceData) ResolveTerm(name string) Resolution {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.resolveTerm(name)
}

func (d *InterfaceData) resolveTerm(name string) Resolution {
	if t, ok := d.ns.term(name); ok {
		return Resolution{State: Local, Term: t}
	}
	for _, p := range d.ns.paramOrder {
		bare, ok := strings.CutPrefix(name, p.Prefix)
		if !ok {
			continue
		}
		pd := d.paramData[p]
		if pd == nil {
			continue
		}
		if _, ok := pd.definedTerm(bare); !ok {
			continue
		}
		return Resolution{State: Owed, Owner: ParameterizedName{Param: p, Bare: bare}}
	}
	return Resolution{State: Owed, Owner: ParameterizedName{Param: Main, Bare: name}}
}

// RegisterExternalKind records name as an undefined kind owed as described
// by r and returns its handle. Registering a name that is already known
// returns the existing kind.
func (d *InterfaceData) RegisterExternalKind(name string, r Resolution) (logic.Kind, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.registerKind(name, r)
}

func (d *InterfaceData) registerKind(name string, r Resolution) (logic.Kind, error) {
	if k, ok := d.ns.kind(name); ok {
		return k, nil
	}
	if r.State != Owed {
		return logic.Kind{}, logic.NewDataError("register kind", name, "kind is not owed to a parameter")
	}
	if r.Owner.Param.IsMain() {
		return logic.Kind{}, logic.NewDataError("register kind", name, "kinds cannot be owed to the module")
	}
	k, err := d.ns.kinds.Define(name)
	if err != nil {
		return logic.Kind{}, err
	}
	d.undefinedKinds[name] = r.Owner
	slog.Debug("registered undefined kind", "interface", d.locator, "name", name, "param", r.Owner.Param.Name)
	return k, nil
}

// RegisterExternalTerm records name as an undefined term owed as described
// by r. Terms owed to a parameter take their arity from the parameter's
// interface and whatever kinds can be resolved here; terms owed to the
// module start with unknown arity.
func (d *InterfaceData) RegisterExternalTerm(name string, r Resolution) (*logic.Term, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.registerTerm(name, r)
}

func (d *InterfaceData) registerTerm(name string, r Resolution) (*logic.Term, error) {
	if t, ok := d.ns.term(name); ok {
		return t, nil
	}
	if r.State != Owed {
		return nil, logic.NewDataError("register term", name, "term is not owed")
	}
	var t *logic.Term
	if r.Owner.Param.IsMain() {
		t = logic.NewPartialFunctor(name, logic.UnknownArity)
	} else {
		t = d.partialSignature(name, r.Owner)
	}
	if err := d.ns.addTerm(t); err != nil {
		return nil, err
	}
	d.undefinedTerms[name] = r.Owner
	slog.Debug("registered undefined term", "interface", d.locator, "name", name, "param", r.Owner.Param.Name)
	return t, nil
}

func (d *InterfaceData) partialSignature(name string, owner ParameterizedName) *logic.Term {
	pd := d.paramData[owner.Param]
	source, ok := pd.definedTerm(owner.Bare)
	if !ok {
		return logic.NewPartialFunctor(name, logic.UnknownArity)
	}
	pd.mu.RLock()
	arity := source.Arity()
	kindName := func(k logic.Kind) string {
		if k.IsZero() {
			return ""
		}
		return k.Name()
	}
	var inputs []string
	for i := 0; i < arity; i++ {
		inputs = append(inputs, kindName(source.InputKind(i)))
	}
	result := kindName(source.ResultKind())
	pd.mu.RUnlock()

	translate := func(sourceName string) logic.Kind {
		if sourceName == "" {
			return logic.Kind{}
		}
		full := owner.Param.Prefix + sourceName
		res := d.resolveKind(full)
		switch res.State {
		case Local:
			return res.Kind
		case Owed:
			k, err := d.registerKind(full, res)
			if err != nil {
				return logic.Kind{}
			}
			return k
		default:
			return logic.Kind{}
		}
	}
	t := logic.NewPartialFunctor(name, arity)
	t.Result = translate(result)
	for i, kn := range inputs {
		t.Inputs[i] = translate(kn)
	}
	return t
}

// Kind resolves name permissively, registering it as an undefined kind if a
// parameter owes it.
func (d *InterfaceData) Kind(name string) (logic.Kind, bool) {
	r := d.ResolveKind(name)
	switch r.State {
	case Local:
		return r.Kind, true
	case Owed:
		k, err := d.RegisterExternalKind(name, r)
		return k, err == nil
	default:
		return logic.Kind{}, false
	}
}

// Term resolves name permissively. It never fails to find a term: unclaimed
// names become terms owed to the enclosing module.
func (d *InterfaceData) Term(name string) (*logic.Term, error) {
	r := d.ResolveTerm(name)
	if r.State == Local {
		return r.Term, nil
	}
	return d.RegisterExternalTerm(name, r)
}

// UndefinedKind reports the owner of an undefined kind.
func (d *InterfaceData) UndefinedKind(name string) (ParameterizedName, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	pn, ok := d.undefinedKinds[name]
	return pn, ok
}

// UndefinedTerm reports the owner of an undefined term.
func (d *InterfaceData) UndefinedTerm(name string) (ParameterizedName, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	pn, ok := d.undefinedTerms[name]
	return pn, ok
}

// Kinds returns every kind name, undefined ones and aliases included, in the
// order they became known.
func (d *InterfaceData) Kinds() []string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.ns.kinds.Names()
}

// Terms returns every term name in the order it became known.
func (d *InterfaceData) Terms() []string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return append([]string(nil), d.ns.termOrder...)
}

// Statements returns every statement name in definition order.
func (d *InterfaceData) Statements() []string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return append([]string(nil), d.ns.stmtOrder...)
}

func (d *InterfaceData) DefineKind(name string) (logic.Kind, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.ns.kinds.Define(name)
}

// BindKind makes newName another name for old.
func (d *InterfaceData) BindKind(old logic.Kind, newName string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.ns.kinds.Bind(old, newName)
}

func (d *InterfaceData) DefineFunctor(name string, result logic.Kind, inputs []logic.Kind) (*logic.Term, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.ns.defineFunctor(name, result, inputs)
}

func (d *InterfaceData) DefineDefinition(name string, placeholders []*logic.Variable, definiens *logic.Expression) (*logic.Term, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.ns.defineDefinition(name, placeholders, definiens)
}

func (d *InterfaceData) DefineVariable(name string, kind logic.Kind) (*logic.Variable, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.ns.defineVariable(name, kind)
}

func (d *InterfaceData) DefineStatement(name string, rawDV [][]string, hyps []*logic.Expression, consequent *logic.Expression) (*logic.Statement, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.ns.defineStatement(name, rawDV, hyps, consequent)
}

func (d *InterfaceData) Statement(name string) (*logic.Statement, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.ns.statement(name)
}

// LookupTerm implements logic.Scope with permissive resolution.
func (d *InterfaceData) LookupTerm(name string) (*logic.Term, error) {
	return d.Term(name)
}

// Apply implements logic.Applier. Terms owed to the enclosing module may
// still have unknown arity, so their first application is made under d's
// lock.
func (d *InterfaceData) Apply(t *logic.Term, children ...*logic.Expression) (*logic.Expression, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return logic.Apply(t, children...)
}

// LookupVariable implements logic.Scope.
func (d *InterfaceData) LookupVariable(name string) (*logic.Variable, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.ns.variable(name)
}
