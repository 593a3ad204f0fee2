package data

import (
	"fmt"
	"strings"

	"github.com/samber/lo"
	"github.com/vito/hilbert/pkg/logic"
)

// Parameter references a compiled interface together with the prefix its
// symbols are mounted under and the parameters supplied for its own formal
// parameters.
type Parameter struct {
	Name      string
	Locator   string
	Prefix    string
	Arguments []*Parameter
}

// Main stands for the enclosing module. Names owed to it are supplied
// directly, without a prefix.
var Main = &Parameter{}

// IsMain reports whether p is the implicit main parameter.
func (p *Parameter) IsMain() bool {
	return p == Main
}

// SameMount reports whether p and o mount the same interface under the same
// prefix.
func (p *Parameter) SameMount(o *Parameter) bool {
	return p.Locator == o.Locator && p.Prefix == o.Prefix
}

func (p *Parameter) String() string {
	if p.IsMain() {
		return "<main>"
	}
	args := lo.Map(p.Arguments, func(a *Parameter, _ int) string { return a.Name })
	return fmt.Sprintf("%s %s (%s) %q", p.Name, p.Locator, strings.Join(args, " "), p.Prefix)
}

// ParameterizedName records the formal parameter an undefined name is owed
// to and the name it has inside that parameter's interface.
type ParameterizedName struct {
	Param *Parameter
	Bare  string
}

// Bindings maps the formal parameters of an interface to the actual
// parameters supplied by a module for one import, export or satisfaction
// check.
type Bindings map[*Parameter]*Parameter

// Prefix returns the module-side prefix of names owed to formal.
func (b Bindings) Prefix(formal *Parameter) string {
	if formal.IsMain() {
		return ""
	}
	actual, ok := b[formal]
	if !ok {
		panic("no binding for formal parameter " + formal.Name)
	}
	return actual.Prefix
}

// FullName returns the module-side name of pn.
func (b Bindings) FullName(pn ParameterizedName) string {
	return b.Prefix(pn.Param) + pn.Bare
}

// ResolutionState says where a looked-up name lives.
type ResolutionState int

const (
	Unresolved ResolutionState = iota
	Local
	Owed
)

func (s ResolutionState) String() string {
	switch s {
	case Unresolved:
		return "unresolved"
	case Local:
		return "local"
	case Owed:
		return "owed"
	default:
		return fmt.Sprintf("ResolutionState(%d)", int(s))
	}
}

// Resolution is the result of a pure name lookup in an InterfaceData.
type Resolution struct {
	State ResolutionState

	// Local
	Kind logic.Kind
	Term *logic.Term

	// Owed
	Owner ParameterizedName
}
