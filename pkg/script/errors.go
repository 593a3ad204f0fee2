package script

import (
	"fmt"

	"github.com/vito/hilbert/pkg/token"
)

// SyntaxError reports script input that does not follow the command
// grammar.
type SyntaxError struct {
	Pos     token.Pos
	Context string
	Err     error
}

func (e *SyntaxError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: syntax error in %s", e.Pos, e.Context)
	}
	return fmt.Sprintf("%s: syntax error in %s: %s", e.Pos, e.Context, e.Err)
}

func (e *SyntaxError) Unwrap() error {
	return e.Err
}

// CommandError reports a command that failed, with the position of the
// command name.
type CommandError struct {
	Pos     token.Pos
	Command string
	Err     error
}

func (e *CommandError) Error() string {
	return fmt.Sprintf("%s: %s: %s", e.Pos, e.Command, e.Err)
}

func (e *CommandError) Unwrap() error {
	return e.Err
}
