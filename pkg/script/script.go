package script

import (
	"context"
	"fmt"

	"github.com/pkg/errors"

	"github.com/vito/hilbert/pkg/data"
	"github.com/vito/hilbert/pkg/ioctx"
	"github.com/vito/hilbert/pkg/logic"
	"github.com/vito/hilbert/pkg/token"
)

// namespace is what module and interface commands have in common.
type namespace interface {
	logic.Scope
	Kind(name string) (logic.Kind, bool)
	DefineKind(name string) (logic.Kind, error)
	BindKind(old logic.Kind, newName string) error
	DefineFunctor(name string, result logic.Kind, inputs []logic.Kind) (*logic.Term, error)
	DefineDefinition(name string, placeholders []*logic.Variable, definiens *logic.Expression) (*logic.Term, error)
	DefineVariable(name string, kind logic.Kind) (*logic.Variable, error)
	DefineStatement(name string, rawDV [][]string, hyps []*logic.Expression, consequent *logic.Expression) (*logic.Statement, error)
}

type command func(ctx context.Context, p *parser) error

// RunModule runs module commands from feed against m until the end of
// input. Interfaces named by import and export are obtained from loader.
func RunModule(ctx context.Context, feed token.Feed, m *data.ModuleData, loader data.Loader) error {
	cmds := common(m)
	cmds["kindunion"] = func(ctx context.Context, p *parser) error {
		names, err := p.atoms(2, 2)
		if err != nil {
			return err
		}
		return m.UnionKinds(names[0], names[1])
	}
	cmds["import"] = func(ctx context.Context, p *parser) error {
		param, iface, err := p.parameter(ctx, m.Parameter, loader)
		if err != nil {
			return err
		}
		return m.Import(ctx, iface, param)
	}
	cmds["export"] = func(ctx context.Context, p *parser) error {
		param, iface, err := p.parameter(ctx, m.Parameter, loader)
		if err != nil {
			return err
		}
		return m.Export(ctx, iface, param)
	}
	return run(ctx, feed, cmds)
}

// RunInterface runs interface commands from feed against d until the end
// of input. Names not defined in d are resolved permissively.
func RunInterface(ctx context.Context, feed token.Feed, d *data.InterfaceData, loader data.Loader) error {
	cmds := common(d)
	cmds["param"] = func(ctx context.Context, p *parser) error {
		param, iface, err := p.parameter(ctx, d.Parameter, loader)
		if err != nil {
			return err
		}
		return d.AddParameter(param, iface)
	}
	return run(ctx, feed, cmds)
}

func run(ctx context.Context, feed token.Feed, cmds map[string]command) error {
	logger := ioctx.LoggerFromContext(ctx)
	for {
		tok, err := feed.Next()
		if err != nil {
			return err
		}
		switch tok.Class {
		case token.EOF:
			return nil
		case token.Atom:
		default:
			return &SyntaxError{Pos: tok.Pos, Context: "script", Err: fmt.Errorf("expected command, found %s", tok)}
		}
		cmd, ok := cmds[tok.Text]
		if !ok {
			return &SyntaxError{Pos: tok.Pos, Context: "script", Err: fmt.Errorf("unknown command %q", tok.Text)}
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		logger.Debug("running command", "command", tok.Text, "pos", tok.Pos.String())
		p := &parser{feed: feed, context: tok.Text}
		if err := cmd(ctx, p); err != nil {
			var se *SyntaxError
			if errors.As(err, &se) {
				return err
			}
			return &CommandError{Pos: tok.Pos, Command: tok.Text, Err: err}
		}
	}
}

func common(ns namespace) map[string]command {
	return map[string]command{
		"kind": func(ctx context.Context, p *parser) error {
			names, err := p.atoms(1, 1)
			if err != nil {
				return err
			}
			_, err = ns.DefineKind(names[0])
			return err
		},
		"kindbind": func(ctx context.Context, p *parser) error {
			names, err := p.atoms(2, 2)
			if err != nil {
				return err
			}
			old, ok := ns.Kind(names[0])
			if !ok {
				return logic.NewDataError("bind kind", names[0], "kind not found")
			}
			return ns.BindKind(old, names[1])
		},
		"var": func(ctx context.Context, p *parser) error {
			names, err := p.atoms(2, -1)
			if err != nil {
				return err
			}
			kind, ok := ns.Kind(names[0])
			if !ok {
				return logic.NewDataError("define variable", names[0], "kind not found")
			}
			for _, name := range names[1:] {
				if _, err := ns.DefineVariable(name, kind); err != nil {
					return err
				}
			}
			return nil
		},
		"term": func(ctx context.Context, p *parser) error {
			if err := p.begin(); err != nil {
				return err
			}
			result, err := p.kind(ns)
			if err != nil {
				return err
			}
			sig, err := p.atoms(1, -1)
			if err != nil {
				return err
			}
			inputs := make([]logic.Kind, 0, len(sig)-1)
			for _, name := range sig[1:] {
				k, ok := ns.Kind(name)
				if !ok {
					return logic.NewDataError("define term", name, "kind not found")
				}
				inputs = append(inputs, k)
			}
			if err := p.end(); err != nil {
				return err
			}
			_, err = ns.DefineFunctor(sig[0], result, inputs)
			return err
		},
		"def": func(ctx context.Context, p *parser) error {
			if err := p.begin(); err != nil {
				return err
			}
			head, err := p.atoms(1, -1)
			if err != nil {
				return err
			}
			placeholders := make([]*logic.Variable, 0, len(head)-1)
			for _, name := range head[1:] {
				v, ok := ns.LookupVariable(name)
				if !ok {
					return logic.NewDataError("define term", name, "placeholder variable not found")
				}
				placeholders = append(placeholders, v)
			}
			definiens, err := logic.Parse(p.feed, ns)
			if err != nil {
				return err
			}
			if err := p.end(); err != nil {
				return err
			}
			_, err = ns.DefineDefinition(head[0], placeholders, definiens)
			return err
		},
		"stmt": func(ctx context.Context, p *parser) error {
			if err := p.begin(); err != nil {
				return err
			}
			name, err := p.atom()
			if err != nil {
				return err
			}
			if err := p.begin(); err != nil {
				return err
			}
			var rawDV [][]string
			for {
				done, err := p.atEnd()
				if err != nil {
					return err
				}
				if done {
					break
				}
				group, err := p.atoms(0, -1)
				if err != nil {
					return err
				}
				rawDV = append(rawDV, group)
			}
			if err := p.begin(); err != nil {
				return err
			}
			var hyps []*logic.Expression
			for {
				done, err := p.atEnd()
				if err != nil {
					return err
				}
				if done {
					break
				}
				h, err := logic.Parse(p.feed, ns)
				if err != nil {
					return err
				}
				hyps = append(hyps, h)
			}
			consequent, err := logic.Parse(p.feed, ns)
			if err != nil {
				return err
			}
			if err := p.end(); err != nil {
				return err
			}
			_, err = ns.DefineStatement(name, rawDV, hyps, consequent)
			return err
		},
	}
}

type parser struct {
	feed    token.Feed
	context string
}

func (p *parser) errorf(tok token.Token, format string, args ...any) error {
	return &SyntaxError{Pos: tok.Pos, Context: p.context, Err: fmt.Errorf(format, args...)}
}

func (p *parser) expect(c token.Class) (token.Token, error) {
	tok, err := p.feed.Next()
	if err != nil {
		return tok, err
	}
	if tok.Class != c {
		return tok, p.errorf(tok, "expected %s, found %s", c, tok)
	}
	return tok, nil
}

func (p *parser) begin() error {
	_, err := p.expect(token.Begin)
	return err
}

func (p *parser) end() error {
	_, err := p.expect(token.End)
	return err
}

func (p *parser) atom() (string, error) {
	tok, err := p.expect(token.Atom)
	return tok.Text, err
}

// atEnd consumes and reports a closing paren if one is next.
func (p *parser) atEnd() (bool, error) {
	tok, err := p.feed.Peek()
	if err != nil {
		return false, err
	}
	if tok.Class == token.End {
		_, err := p.feed.Next()
		return true, err
	}
	return false, nil
}

// atoms reads a parenthesized list of at least lo atoms, and at most hi
// unless hi is negative.
func (p *parser) atoms(lo, hi int) ([]string, error) {
	open, err := p.expect(token.Begin)
	if err != nil {
		return nil, err
	}
	var names []string
	for {
		tok, err := p.feed.Next()
		if err != nil {
			return nil, err
		}
		if tok.Class == token.End {
			break
		}
		if tok.Class != token.Atom {
			return nil, p.errorf(tok, "expected atom, found %s", tok)
		}
		names = append(names, tok.Text)
	}
	if len(names) < lo || (hi >= 0 && len(names) > hi) {
		want := fmt.Sprintf("%d", lo)
		switch {
		case hi < 0:
			want = fmt.Sprintf("at least %d", lo)
		case hi != lo:
			want = fmt.Sprintf("%d to %d", lo, hi)
		}
		return nil, p.errorf(open, "expected %s names, found %d", want, len(names))
	}
	return names, nil
}

func (p *parser) kind(ns namespace) (logic.Kind, error) {
	tok, err := p.expect(token.Atom)
	if err != nil {
		return logic.Kind{}, err
	}
	k, ok := ns.Kind(tok.Text)
	if !ok {
		return logic.Kind{}, logic.NewDataError("lookup", tok.Text, "kind not found")
	}
	return k, nil
}

// parameter reads (NAME LOCATOR (ARG ...) PREFIX) and loads the interface
// named by LOCATOR. PREFIX may be a quoted string.
func (p *parser) parameter(ctx context.Context, lookup func(string) (*data.Parameter, bool), loader data.Loader) (*data.Parameter, *data.InterfaceData, error) {
	if err := p.begin(); err != nil {
		return nil, nil, err
	}
	name, err := p.atom()
	if err != nil {
		return nil, nil, err
	}
	locator, err := p.atom()
	if err != nil {
		return nil, nil, err
	}
	argNames, err := p.atoms(0, -1)
	if err != nil {
		return nil, nil, err
	}
	prefixTok, err := p.feed.Next()
	if err != nil {
		return nil, nil, err
	}
	if prefixTok.Class != token.Atom && prefixTok.Class != token.String {
		return nil, nil, p.errorf(prefixTok, "expected prefix, found %s", prefixTok)
	}
	if err := p.end(); err != nil {
		return nil, nil, err
	}

	param := &data.Parameter{Name: name, Locator: locator, Prefix: prefixTok.Text}
	for _, argName := range argNames {
		arg, ok := lookup(argName)
		if !ok {
			return nil, nil, logic.NewDataError("define parameter", argName, "parameter not found")
		}
		param.Arguments = append(param.Arguments, arg)
	}
	iface, err := loader.Interface(ctx, locator)
	if err != nil {
		return nil, nil, errors.Wrapf(err, "loading %s", locator)
	}
	return param, iface, nil
}
