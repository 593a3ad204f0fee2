package data

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"

	"github.com/pkg/errors"
	"github.com/vito/hilbert/pkg/logic"
)

// FormatVersion is written first in every compiled interface.
const FormatVersion int32 = 0x48420001

const (
	tagFunctor    = 0
	tagDefinition = 1
)

// The name table holds one entry per item, category by category, in the
// order parameters, undefined kinds, defined kinds, undefined terms, defined
// terms, statements. Entry 0 is reserved; a kind reference of 0 means
// "unknown". All integers are big-endian int32 and strings are
// length-prefixed.
type layout struct {
	params, undefinedKinds, definedKinds, undefinedTerms, definedTerms, statements span
}

// span is a half-open range of name table indices.
type span struct{ lo, hi int }

func (s span) contains(i int) bool { return i >= s.lo && i < s.hi }
func (s span) len() int            { return s.hi - s.lo }

func (l layout) kinds() span { return span{l.undefinedKinds.lo, l.definedKinds.hi} }
func (l layout) terms() span { return span{l.undefinedTerms.lo, l.definedTerms.hi} }
func (l layout) total() int  { return l.statements.hi }

func newLayout(nParams, nUndefinedKinds, nUndefinedTerms, nDefinedKinds, nDefinedTerms, nStatements int) layout {
	var l layout
	next := 1
	take := func(n int) span {
		s := span{next, next + n}
		next += n
		return s
	}
	l.params = take(nParams)
	l.undefinedKinds = take(nUndefinedKinds)
	l.definedKinds = take(nDefinedKinds)
	l.undefinedTerms = take(nUndefinedTerms)
	l.definedTerms = take(nDefinedTerms)
	l.statements = take(nStatements)
	return l
}

type encoder struct {
	buf []byte
}

func (e *encoder) writeInt(n int) {
	e.buf = binary.BigEndian.AppendUint32(e.buf, uint32(int32(n)))
}

func (e *encoder) writeString(s string) {
	e.writeInt(len(s))
	e.buf = append(e.buf, s...)
}

// Encode writes d in the compiled interface format. The output depends only
// on d's contents and definition order.
func (d *InterfaceData) Encode(w io.Writer) error {
	d.mu.RLock()
	defer d.mu.RUnlock()

	var undefinedKinds, definedKinds []string
	for _, name := range d.ns.kinds.Names() {
		if _, owed := d.undefinedKinds[name]; owed {
			undefinedKinds = append(undefinedKinds, name)
		} else {
			definedKinds = append(definedKinds, name)
		}
	}
	var undefinedTerms, definedTerms []string
	for _, name := range d.ns.termOrder {
		if _, owed := d.undefinedTerms[name]; owed {
			undefinedTerms = append(undefinedTerms, name)
		} else {
			definedTerms = append(definedTerms, name)
		}
	}
	params := d.ns.paramOrder
	l := newLayout(len(params), len(undefinedKinds), len(undefinedTerms),
		len(definedKinds), len(definedTerms), len(d.ns.stmtOrder))

	paramIdx := map[*Parameter]int{}
	for i, p := range params {
		paramIdx[p] = l.params.lo + i
	}
	kindIdx := map[string]int{}
	for i, name := range undefinedKinds {
		kindIdx[name] = l.undefinedKinds.lo + i
	}
	for i, name := range definedKinds {
		kindIdx[name] = l.definedKinds.lo + i
	}
	termIdx := map[*logic.Term]int{}
	for i, name := range undefinedTerms {
		termIdx[d.ns.terms[name]] = l.undefinedTerms.lo + i
	}
	for i, name := range definedTerms {
		termIdx[d.ns.terms[name]] = l.definedTerms.lo + i
	}
	kindRef := func(k logic.Kind) int {
		if k.IsZero() {
			return 0
		}
		idx, ok := kindIdx[k.Name()]
		if !ok {
			panic("kind " + k.Name() + " is not part of interface " + d.locator)
		}
		return idx
	}

	e := &encoder{}
	e.writeInt(int(FormatVersion))
	for _, n := range []int{len(params), len(undefinedKinds), len(undefinedTerms),
		len(definedKinds), len(definedTerms), len(d.ns.stmtOrder)} {
		e.writeInt(n)
	}

	for _, p := range params {
		e.writeString(p.Name)
	}
	for _, name := range undefinedKinds {
		e.writeString(d.undefinedKinds[name].Bare)
	}
	for _, name := range definedKinds {
		e.writeString(name)
	}
	for _, name := range undefinedTerms {
		e.writeString(d.undefinedTerms[name].Bare)
	}
	for _, name := range definedTerms {
		e.writeString(name)
	}
	for _, name := range d.ns.stmtOrder {
		e.writeString(name)
	}

	for _, p := range params {
		e.writeString(p.Locator)
		e.writeString(p.Prefix)
		e.writeInt(len(p.Arguments))
		for _, arg := range p.Arguments {
			e.writeInt(paramIdx[arg])
		}
	}
	for _, name := range undefinedKinds {
		e.writeInt(paramIdx[d.undefinedKinds[name].Param])
	}
	for _, name := range definedKinds {
		k, _ := d.ns.kind(name)
		e.writeInt(kindRef(k))
	}
	for _, name := range undefinedTerms {
		pn := d.undefinedTerms[name]
		if pn.Param.IsMain() {
			e.writeInt(0)
		} else {
			e.writeInt(paramIdx[pn.Param])
		}
		t := d.ns.terms[name]
		e.writeInt(t.Arity())
		e.writeInt(kindRef(t.Result))
		for _, k := range t.Inputs {
			e.writeInt(kindRef(k))
		}
	}
	for _, name := range definedTerms {
		t := d.ns.terms[name]
		switch t.Tag {
		case logic.FunctorTerm:
			e.writeInt(tagFunctor)
			e.writeInt(kindRef(t.Result))
			e.writeInt(t.Arity())
			for _, k := range t.Inputs {
				e.writeInt(kindRef(k))
			}
		case logic.DefinitionTerm:
			dummies := definitionDummies(t)
			e.writeInt(tagDefinition)
			e.writeInt(len(t.Placeholders))
			e.writeInt(len(dummies))
			vars := append(append([]*logic.Variable(nil), t.Placeholders...), dummies...)
			varIdx := e.varTable(vars, kindRef)
			e.expr(t.Definiens, varIdx, termIdx)
		}
	}
	for _, name := range d.ns.stmtOrder {
		s := d.ns.statements[name]
		vars := s.Variables()
		e.writeInt(len(vars))
		varIdx := e.varTable(vars, kindRef)
		pairs := s.DV.Pairs()
		e.writeInt(len(pairs))
		for _, p := range pairs {
			e.writeInt(varIdx[p.First])
			e.writeInt(varIdx[p.Second])
		}
		e.writeInt(len(s.Hypotheses))
		for _, h := range s.Hypotheses {
			e.expr(h, varIdx, termIdx)
		}
		e.expr(s.Consequent, varIdx, termIdx)
	}

	if _, err := w.Write(e.buf); err != nil {
		return errors.Wrapf(err, "writing interface %s", d.locator)
	}
	return nil
}

func (e *encoder) varTable(vars []*logic.Variable, kindRef func(logic.Kind) int) map[*logic.Variable]int {
	idx := make(map[*logic.Variable]int, len(vars))
	for i, v := range vars {
		e.writeString(v.Name)
		e.writeInt(kindRef(v.Kind))
		idx[v] = i
	}
	return idx
}

// expr writes a variable as -(index)-1 and an application as the term's
// name table index followed by its children.
func (e *encoder) expr(x *logic.Expression, varIdx map[*logic.Variable]int, termIdx map[*logic.Term]int) {
	if x.IsVariable() {
		e.writeInt(-varIdx[x.Variable()] - 1)
		return
	}
	e.writeInt(termIdx[x.Term()])
	for _, c := range x.Children() {
		e.expr(c, varIdx, termIdx)
	}
}

// definitionDummies returns the variables of t's definiens that are not
// placeholders, in order of first occurrence.
func definitionDummies(t *logic.Term) []*logic.Variable {
	isPlaceholder := map[*logic.Variable]bool{}
	for _, v := range t.Placeholders {
		isPlaceholder[v] = true
	}
	var dummies []*logic.Variable
	for _, v := range t.Definiens.Variables() {
		if !isPlaceholder[v] {
			dummies = append(dummies, v)
		}
	}
	return dummies
}

type decoder struct {
	locator string
	buf     []byte
	off     int
}

func (dc *decoder) errorf(format string, args ...any) error {
	return &FormatError{Locator: dc.locator, Offset: dc.off, Msg: fmt.Sprintf(format, args...)}
}

func (dc *decoder) readInt() (int, error) {
	if len(dc.buf)-dc.off < 4 {
		return 0, dc.errorf("unexpected end of input")
	}
	n := int32(binary.BigEndian.Uint32(dc.buf[dc.off:]))
	dc.off += 4
	return int(n), nil
}

// count reads a non-negative integer no larger than limit.
func (dc *decoder) count(what string, limit int) (int, error) {
	n, err := dc.readInt()
	if err != nil {
		return 0, err
	}
	if n < 0 || n > limit {
		return 0, dc.errorf("invalid %s count %d", what, n)
	}
	return n, nil
}

func (dc *decoder) readString() (string, error) {
	n, err := dc.count("string length", len(dc.buf)-dc.off)
	if err != nil {
		return "", err
	}
	s := string(dc.buf[dc.off : dc.off+n])
	dc.off += n
	return s, nil
}

// ref reads a name table index that must fall within s.
func (dc *decoder) ref(s span, what string) (int, error) {
	i, err := dc.readInt()
	if err != nil {
		return 0, err
	}
	if !s.contains(i) {
		return 0, dc.errorf("%s reference %d out of range [%d, %d)", what, i, s.lo, s.hi)
	}
	return i, nil
}

// remaining bounds counts of items that take at least 4 bytes each.
func (dc *decoder) remaining() int {
	return (len(dc.buf) - dc.off) / 4
}

// Decode reads a compiled interface. The result is not linked to the
// interfaces of its parameters; see Link.
func Decode(r io.Reader, locator string) (*InterfaceData, error) {
	buf, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.Wrapf(err, "reading interface %s", locator)
	}
	dc := &decoder{locator: locator, buf: buf}

	version, err := dc.readInt()
	if err != nil {
		return nil, err
	}
	if int32(version) != FormatVersion {
		return nil, &UnknownFormatError{Locator: locator, Got: int32(version), Want: FormatVersion}
	}
	var counts [6]int
	for i := range counts {
		if counts[i], err = dc.count("category", math.MaxInt32); err != nil {
			return nil, err
		}
	}
	total := 0
	for _, n := range counts {
		total += n
	}
	if total > dc.remaining() {
		return nil, dc.errorf("name table of %d entries exceeds input", total)
	}
	l := newLayout(counts[0], counts[1], counts[2], counts[3], counts[4], counts[5])

	names := make([]string, l.total())
	for i := 1; i < l.total(); i++ {
		if names[i], err = dc.readString(); err != nil {
			return nil, err
		}
	}

	ld := &loader{
		dc:    dc,
		l:     l,
		names: names,
		d:     NewInterfaceData(locator),
		kinds: make([]logic.Kind, l.kinds().len()),
		terms: make([]*logic.Term, l.terms().len()),
	}
	for _, step := range []func() error{
		ld.loadParams,
		ld.loadUndefinedKinds,
		ld.loadDefinedKinds,
		ld.loadUndefinedTerms,
		ld.loadDefinedTerms,
		ld.loadStatements,
	} {
		if err := step(); err != nil {
			return nil, err
		}
	}
	if dc.off != len(dc.buf) {
		return nil, dc.errorf("%d trailing bytes after last statement", len(dc.buf)-dc.off)
	}
	return ld.d, nil
}

type loader struct {
	dc     *decoder
	l      layout
	names  []string
	d      *InterfaceData
	params []*Parameter
	kinds  []logic.Kind
	terms  []*logic.Term
}

func (ld *loader) loadParams() error {
	for i := ld.l.params.lo; i < ld.l.params.hi; i++ {
		locator, err := ld.dc.readString()
		if err != nil {
			return err
		}
		prefix, err := ld.dc.readString()
		if err != nil {
			return err
		}
		n, err := ld.dc.count("argument", ld.l.params.len())
		if err != nil {
			return err
		}
		p := &Parameter{Name: ld.names[i], Locator: locator, Prefix: prefix}
		for range n {
			arg, err := ld.dc.ref(span{ld.l.params.lo, i}, "argument parameter")
			if err != nil {
				return err
			}
			p.Arguments = append(p.Arguments, ld.params[arg-ld.l.params.lo])
		}
		if err := ld.d.ns.addParameter(p); err != nil {
			return err
		}
		ld.params = append(ld.params, p)
	}
	return nil
}

func (ld *loader) owner(allowMain bool) (*Parameter, error) {
	if allowMain {
		i, err := ld.dc.readInt()
		if err != nil {
			return nil, err
		}
		if i == 0 {
			return Main, nil
		}
		ld.dc.off -= 4
	}
	i, err := ld.dc.ref(ld.l.params, "parameter")
	if err != nil {
		return nil, err
	}
	return ld.params[i-ld.l.params.lo], nil
}

func (ld *loader) loadUndefinedKinds() error {
	for i := ld.l.undefinedKinds.lo; i < ld.l.undefinedKinds.hi; i++ {
		p, err := ld.owner(false)
		if err != nil {
			return err
		}
		full := p.Prefix + ld.names[i]
		if _, dup := ld.d.undefinedKinds[full]; dup {
			return logic.NewDataError("load", full, "undefined kind specified twice")
		}
		k, err := ld.d.ns.kinds.Define(full)
		if err != nil {
			return err
		}
		ld.d.undefinedKinds[full] = ParameterizedName{Param: p, Bare: ld.names[i]}
		ld.kinds[i-ld.l.kinds().lo] = k
	}
	return nil
}

func (ld *loader) loadDefinedKinds() error {
	for i := ld.l.definedKinds.lo; i < ld.l.definedKinds.hi; i++ {
		name := ld.names[i]
		target, err := ld.dc.ref(ld.l.kinds(), "kind")
		if err != nil {
			return err
		}
		var k logic.Kind
		switch {
		case target == i:
			k, err = ld.d.ns.kinds.Define(name)
		case target < i:
			k = ld.kinds[target-ld.l.kinds().lo]
			err = ld.d.ns.kinds.Bind(k, name)
		default:
			return ld.dc.errorf("kind %q refers forward to kind %d", name, target)
		}
		if err != nil {
			return err
		}
		ld.kinds[i-ld.l.kinds().lo] = k
	}
	return nil
}

func (ld *loader) kind(allowUnknown bool) (logic.Kind, error) {
	if allowUnknown {
		i, err := ld.dc.readInt()
		if err != nil {
			return logic.Kind{}, err
		}
		if i == 0 {
			return logic.Kind{}, nil
		}
		ld.dc.off -= 4
	}
	i, err := ld.dc.ref(ld.l.kinds(), "kind")
	if err != nil {
		return logic.Kind{}, err
	}
	return ld.kinds[i-ld.l.kinds().lo], nil
}

func (ld *loader) loadUndefinedTerms() error {
	for i := ld.l.undefinedTerms.lo; i < ld.l.undefinedTerms.hi; i++ {
		p, err := ld.owner(true)
		if err != nil {
			return err
		}
		full := p.Prefix + ld.names[i]
		if _, dup := ld.d.undefinedTerms[full]; dup {
			return logic.NewDataError("load", full, "undefined term specified twice")
		}
		arity, err := ld.dc.readInt()
		if err != nil {
			return err
		}
		if arity < logic.UnknownArity || arity > ld.dc.remaining() {
			return ld.dc.errorf("invalid arity %d of term %q", arity, full)
		}
		t := logic.NewPartialFunctor(full, arity)
		if t.Result, err = ld.kind(true); err != nil {
			return err
		}
		for j := range t.Inputs {
			if t.Inputs[j], err = ld.kind(true); err != nil {
				return err
			}
		}
		if err := ld.d.ns.addTerm(t); err != nil {
			return err
		}
		ld.d.undefinedTerms[full] = ParameterizedName{Param: p, Bare: ld.names[i]}
		ld.terms[i-ld.l.terms().lo] = t
	}
	return nil
}

func (ld *loader) loadDefinedTerms() error {
	for i := ld.l.definedTerms.lo; i < ld.l.definedTerms.hi; i++ {
		name := ld.names[i]
		tag, err := ld.dc.readInt()
		if err != nil {
			return err
		}
		var t *logic.Term
		switch tag {
		case tagFunctor:
			result, err := ld.kind(false)
			if err != nil {
				return err
			}
			arity, err := ld.dc.count("input kind", ld.dc.remaining())
			if err != nil {
				return err
			}
			inputs := make([]logic.Kind, arity)
			for j := range inputs {
				if inputs[j], err = ld.kind(false); err != nil {
					return err
				}
			}
			t = logic.NewFunctor(name, result, inputs)
		case tagDefinition:
			nPlaceholders, err := ld.dc.count("placeholder", ld.dc.remaining())
			if err != nil {
				return err
			}
			nDummies, err := ld.dc.count("dummy variable", ld.dc.remaining())
			if err != nil {
				return err
			}
			vars, err := ld.varTable(nPlaceholders, nDummies)
			if err != nil {
				return err
			}
			// definitions may only use terms emitted before them
			definiens, err := ld.expr(vars, span{ld.l.terms().lo, i})
			if err != nil {
				return err
			}
			if t, err = logic.NewDefinition(name, vars[:nPlaceholders], definiens); err != nil {
				return err
			}
		default:
			return ld.dc.errorf("unknown term tag %d for %q", tag, name)
		}
		if err := ld.d.ns.addTerm(t); err != nil {
			return err
		}
		ld.terms[i-ld.l.terms().lo] = t
	}
	return nil
}

// varTable reads n variables followed by dummies dummy variables.
func (ld *loader) varTable(n, dummies int) ([]*logic.Variable, error) {
	vars := make([]*logic.Variable, 0, n+dummies)
	for j := range n + dummies {
		name, err := ld.dc.readString()
		if err != nil {
			return nil, err
		}
		k, err := ld.kind(false)
		if err != nil {
			return nil, err
		}
		if j < n {
			vars = append(vars, logic.NewVariable(name, k))
		} else {
			vars = append(vars, logic.NewDummyVariable(name, k))
		}
	}
	return vars, nil
}

func (ld *loader) expr(vars []*logic.Variable, terms span) (*logic.Expression, error) {
	code, err := ld.dc.readInt()
	if err != nil {
		return nil, err
	}
	if code < 0 {
		v := -code - 1
		if v >= len(vars) {
			return nil, ld.dc.errorf("variable reference %d out of range [0, %d)", v, len(vars))
		}
		return logic.Var(vars[v]), nil
	}
	if !terms.contains(code) {
		return nil, ld.dc.errorf("term reference %d out of range [%d, %d)", code, terms.lo, terms.hi)
	}
	t := ld.terms[code-ld.l.terms().lo]
	if t.Arity() == logic.UnknownArity {
		return nil, ld.dc.errorf("term %q of unknown arity applied", t.Name)
	}
	children := make([]*logic.Expression, t.Arity())
	for j := range children {
		if children[j], err = ld.expr(vars, terms); err != nil {
			return nil, err
		}
	}
	e, err := logic.Apply(t, children...)
	if err != nil {
		return nil, logic.WrapDataError(err, "load", t.Name, "invalid application of term")
	}
	return e, nil
}

func (ld *loader) loadStatements() error {
	for i := ld.l.statements.lo; i < ld.l.statements.hi; i++ {
		name := ld.names[i]
		nVars, err := ld.dc.count("variable", ld.dc.remaining())
		if err != nil {
			return err
		}
		vars, err := ld.varTable(nVars, 0)
		if err != nil {
			return err
		}
		nPairs, err := ld.dc.count("DV pair", ld.dc.remaining())
		if err != nil {
			return err
		}
		dv := logic.NewDVConstraints()
		for range nPairs {
			a, err := ld.varRef(vars)
			if err != nil {
				return err
			}
			b, err := ld.varRef(vars)
			if err != nil {
				return err
			}
			if a == b {
				return ld.dc.errorf("DV pair of variable %q with itself in %q", a.Name, name)
			}
			dv.Add(a, b)
		}
		nHyps, err := ld.dc.count("hypothesis", ld.dc.remaining())
		if err != nil {
			return err
		}
		hyps := make([]*logic.Expression, nHyps)
		for j := range hyps {
			if hyps[j], err = ld.expr(vars, ld.l.terms()); err != nil {
				return err
			}
		}
		consequent, err := ld.expr(vars, ld.l.terms())
		if err != nil {
			return err
		}
		if err := ld.d.ns.addStatement(logic.NewStatement(name, dv, hyps, consequent)); err != nil {
			return err
		}
	}
	return nil
}

func (ld *loader) varRef(vars []*logic.Variable) (*logic.Variable, error) {
	i, err := ld.dc.readInt()
	if err != nil {
		return nil, err
	}
	if i < 0 || i >= len(vars) {
		return nil, ld.dc.errorf("variable reference %d out of range [0, %d)", i, len(vars))
	}
	return vars[i], nil
}
