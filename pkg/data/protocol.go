package data

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/vito/hilbert/pkg/logic"
)

// checkParameters binds d's formal parameters to the arguments of actual.
// Every formal parameter not mounted identically by its argument must be
// satisfied by the module, which is checked by exporting the formal
// parameter's interface from m under the argument.
func (d *InterfaceData) checkParameters(ctx context.Context, m *ModuleData, actual *Parameter) (Bindings, error) {
	if len(actual.Arguments) != len(d.ns.paramOrder) {
		return nil, logic.NewDataError("check parameters", actual.Name,
			fmt.Sprintf("wrong number of parameters (want %d, got %d) for", len(d.ns.paramOrder), len(actual.Arguments)))
	}
	bind := Bindings{}
	for i, formal := range d.ns.paramOrder {
		arg := actual.Arguments[i]
		bind[formal] = arg
		if formal.SameMount(arg) {
			continue
		}
		pd := d.paramData[formal]
		if pd == nil {
			return nil, logic.NewDataError("check parameters", formal.Locator, "parameter interface not linked")
		}
		slog.Debug("checking parameter satisfaction", "interface", d.locator, "formal", formal.Name, "actual", arg.Name)
		if err := pd.exportFrom(ctx, m, arg); err != nil {
			return nil, logic.WrapDataError(err, "check parameters", arg.Name, "parameter satisfaction error")
		}
	}
	return bind, nil
}

// importInto mounts d into m under p. Kinds are mounted before terms and
// terms before statements, since each step translates through the maps the
// previous ones built.
func (d *InterfaceData) importInto(ctx context.Context, m *ModuleData, p *Parameter) error {
	d.mu.RLock()
	defer d.mu.RUnlock()

	bind, err := d.checkParameters(ctx, m, p)
	if err != nil {
		return err
	}

	tr := logic.NewTranslation()
	if err := d.importKinds(m, p, bind, tr); err != nil {
		return err
	}
	if err := d.importTerms(m, p, bind, tr); err != nil {
		return err
	}
	for _, name := range d.ns.stmtOrder {
		s := d.ns.statements[name]
		dv, err := s.DV.Adapt(tr)
		if err != nil {
			return logic.WrapDataError(err, "import", name, "unable to adapt DV constraints of statement")
		}
		hyps := make([]*logic.Expression, len(s.Hypotheses))
		for i, h := range s.Hypotheses {
			if hyps[i], err = h.Adapt(tr); err != nil {
				return logic.WrapDataError(err, "import", name, "unable to adapt hypothesis of statement")
			}
		}
		consequent, err := s.Consequent.Adapt(tr)
		if err != nil {
			return logic.WrapDataError(err, "import", name, "unable to adapt consequent of statement")
		}
		if err := m.addStatement(logic.NewStatement(p.Prefix+name, dv, hyps, consequent)); err != nil {
			return err
		}
	}
	slog.Debug("imported interface", "interface", d.locator, "param", p.Name, "prefix", p.Prefix)
	return nil
}

func (d *InterfaceData) importKinds(m *ModuleData, p *Parameter, bind Bindings, tr *logic.Translation) error {
	var aliases []string
	for _, name := range d.ns.kinds.Names() {
		k, _ := d.ns.kind(name)
		if pn, owed := d.undefinedKinds[name]; owed {
			full := bind.FullName(pn)
			mk, ok := m.kind(full)
			if !ok {
				return logic.NewDataError("import", name, "unable to link kind "+full+" for")
			}
			tr.Kinds[k.Canonical()] = mk
			continue
		}
		if d.ns.kinds.IsAlias(name) {
			aliases = append(aliases, name)
			continue
		}
		mk, err := m.kinds.Define(p.Prefix + name)
		if err != nil {
			return err
		}
		tr.Kinds[k.Canonical()] = mk
	}
	for _, name := range aliases {
		k, _ := d.ns.kind(name)
		target, ok := tr.Kind(k)
		if !ok {
			panic("alias " + name + " of unmounted kind " + k.Name())
		}
		if err := m.kinds.Bind(target, p.Prefix+name); err != nil {
			return err
		}
	}
	return nil
}

func (d *InterfaceData) importTerms(m *ModuleData, p *Parameter, bind Bindings, tr *logic.Translation) error {
	for _, name := range d.ns.termOrder {
		t := d.ns.terms[name]
		if pn, owed := d.undefinedTerms[name]; owed {
			full := bind.FullName(pn)
			mt, ok := m.term(full)
			if !ok {
				return logic.NewDataError("import", name, "unable to link term "+full+" for")
			}
			if err := checkSignature("import", t, mt, tr); err != nil {
				return err
			}
			tr.Terms[t] = mt
			continue
		}
		var mt *logic.Term
		var err error
		switch t.Tag {
		case logic.FunctorTerm:
			result := mustKind(tr, t.Result)
			inputs := make([]logic.Kind, len(t.Inputs))
			for i, k := range t.Inputs {
				inputs[i] = mustKind(tr, k)
			}
			mt, err = m.defineFunctor(p.Prefix+name, result, inputs)
		case logic.DefinitionTerm:
			placeholders := make([]*logic.Variable, len(t.Placeholders))
			for i, v := range t.Placeholders {
				if placeholders[i], err = tr.Variable(v); err != nil {
					return logic.WrapDataError(err, "import", name, "unable to adapt placeholder of definition")
				}
			}
			definiens, aerr := t.Definiens.Adapt(tr)
			if aerr != nil {
				return logic.WrapDataError(aerr, "import", name, "unable to adapt definiens of definition")
			}
			mt, err = m.defineDefinition(p.Prefix+name, placeholders, definiens)
		}
		if err != nil {
			return err
		}
		tr.Terms[t] = mt
	}
	return nil
}

func mustKind(tr *logic.Translation, k logic.Kind) logic.Kind {
	mk, ok := tr.Kind(k)
	if !ok {
		panic("kind " + k.Name() + " was not mounted")
	}
	return mk
}

// checkSignature compares the known parts of the interface term t with the
// module term mt. Unknown arity and unknown kinds are not compared.
func checkSignature(op string, t, mt *logic.Term, tr *logic.Translation) error {
	if t.Arity() == logic.UnknownArity {
		return nil
	}
	if t.Arity() != mt.Arity() {
		return logic.NewDataError(op, t.Name,
			fmt.Sprintf("place count mismatch (want %d, got %d) for term", t.Arity(), mt.Arity()))
	}
	same := func(k, mk logic.Kind) bool {
		if k.IsZero() {
			return true
		}
		want, ok := tr.Kind(k)
		return ok && want.Same(mk)
	}
	if !same(t.ResultKind(), mt.ResultKind()) {
		return logic.NewDataError(op, t.Name, "result kind mismatch for term")
	}
	for i := range t.Arity() {
		if !same(t.InputKind(i), mt.InputKind(i)) {
			return logic.NewDataError(op, t.Name, fmt.Sprintf("input kind mismatch at position %d for term", i+1))
		}
	}
	return nil
}

// exportFrom checks that m provides everything d declares, mounted under p.
// It does not change m.
func (d *InterfaceData) exportFrom(ctx context.Context, m *ModuleData, p *Parameter) error {
	d.mu.RLock()
	defer d.mu.RUnlock()

	bind, err := d.checkParameters(ctx, m, p)
	if err != nil {
		return err
	}

	tr := logic.NewTranslation()
	for _, name := range d.ns.kinds.Names() {
		k, _ := d.ns.kind(name)
		moduleName := p.Prefix + name
		if pn, owed := d.undefinedKinds[name]; owed {
			moduleName = bind.FullName(pn)
		}
		mk, ok := m.kind(moduleName)
		if !ok {
			return logic.NewDataError("export", name, "kind unknown during export: "+moduleName+" missing for")
		}
		if prev, seen := tr.Kind(k); seen {
			if !prev.Same(mk) {
				return logic.NewDataError("export", name, "kind alias mismatch: "+moduleName+" is not "+prev.Name()+" for")
			}
			continue
		}
		tr.Kinds[k.Canonical()] = mk
	}

	for _, name := range d.ns.termOrder {
		t := d.ns.terms[name]
		moduleName := p.Prefix + name
		if pn, owed := d.undefinedTerms[name]; owed {
			moduleName = bind.FullName(pn)
		}
		mt, ok := m.term(moduleName)
		if !ok {
			return logic.NewDataError("export", name, "term unknown during export: "+moduleName+" missing for")
		}
		if err := checkSignature("export", t, mt, tr); err != nil {
			return err
		}
		if t.Tag == logic.DefinitionTerm {
			if err := checkDefinition(t, mt, tr); err != nil {
				return err
			}
		}
		tr.Terms[t] = mt
	}

	for _, name := range d.ns.stmtOrder {
		if err := d.exportStatement(m, p, d.ns.statements[name], tr); err != nil {
			return err
		}
	}
	slog.Debug("exported interface", "interface", d.locator, "param", p.Name, "prefix", p.Prefix)
	return nil
}

// checkDefinition requires mt to be a definition whose definiens equals t's
// once placeholders are matched up by position.
func checkDefinition(t, mt *logic.Term, base *logic.Translation) error {
	if mt.Tag != logic.DefinitionTerm {
		return logic.NewDataError("export", t.Name, "definition expected, found functor for term")
	}
	tr := &logic.Translation{Kinds: base.Kinds, Terms: base.Terms, Vars: map[*logic.Variable]*logic.Variable{}}
	corr := map[*logic.Variable]*logic.Variable{}
	for i, v := range t.Placeholders {
		target := mt.Placeholders[i]
		tr.Vars[v] = target
		corr[target] = target
	}
	definiens, err := t.Definiens.Adapt(tr)
	if err != nil {
		return logic.WrapDataError(err, "export", t.Name, "unable to adapt definiens of definition")
	}
	if err := definiens.EqualityMap(mt.Definiens, corr); err != nil {
		return logic.WrapDataError(err, "export", t.Name, "definiens mismatch for definition")
	}
	return nil
}

func (d *InterfaceData) exportStatement(m *ModuleData, p *Parameter, s *logic.Statement, base *logic.Translation) error {
	ms, ok := m.statement(p.Prefix + s.Name)
	if !ok {
		return logic.NewDataError("export", s.Name, "statement unknown during export")
	}
	tr := &logic.Translation{Kinds: base.Kinds, Terms: base.Terms, Vars: map[*logic.Variable]*logic.Variable{}}
	hyps := make([]*logic.Expression, len(s.Hypotheses))
	for i, h := range s.Hypotheses {
		var err error
		if hyps[i], err = h.Adapt(tr); err != nil {
			return logic.WrapDataError(err, "export", s.Name, "unable to adapt hypothesis of statement")
		}
	}
	consequent, err := s.Consequent.Adapt(tr)
	if err != nil {
		return logic.WrapDataError(err, "export", s.Name, "unable to adapt consequent of statement")
	}

	if len(hyps) != len(ms.Hypotheses) {
		return logic.NewDataError("export", s.Name,
			fmt.Sprintf("hypothesis count mismatch (want %d, got %d) for statement", len(hyps), len(ms.Hypotheses)))
	}
	corr := map[*logic.Variable]*logic.Variable{}
	for i, h := range hyps {
		if err := h.EqualityMap(ms.Hypotheses[i], corr); err != nil {
			return logic.WrapDataError(err, "export", s.Name, fmt.Sprintf("hypothesis %d mismatch for statement", i+1))
		}
	}
	if err := consequent.EqualityMap(ms.Consequent, corr); err != nil {
		return logic.WrapDataError(err, "export", s.Name, "consequent mismatch for statement")
	}

	dv, err := s.RelevantDV().Adapt(tr)
	if err != nil {
		return logic.WrapDataError(err, "export", s.Name, "unable to adapt DV constraints of statement")
	}
	remaining := ms.RelevantDV()
	for _, pair := range dv.Pairs() {
		if !remaining.Remove(corr[pair.First], corr[pair.Second]) {
			return logic.NewDataError("export", s.Name,
				fmt.Sprintf("missing DV constraint %s in export target for statement", pair))
		}
	}
	if !remaining.Empty() {
		return logic.NewDataError("export", s.Name,
			fmt.Sprintf("superfluous DV constraints %s during export of statement", remaining))
	}
	return nil
}
