// Package icterrors holds the structured error types produced by grammar
// construction and parsing. Grammar construction errors are aggregated so
// that every problem is reported at once instead of stopping at the first;
// parse-time errors carry the offending token for yacc-style recovery and
// diagnostics.
package icterrors

import (
	"fmt"
	"strings"

	"github.com/finrow/marlin/types"
)

// Severity classifies a grammar Problem. Fatal problems block parser
// construction; Warning problems are counted and reported but do not.
type Severity int

const (
	Warning Severity = iota
	Fatal
)

func (s Severity) String() string {
	if s == Fatal {
		return "error"
	}
	return "warning"
}

// Problem is a single grammar-construction finding.
type Problem struct {
	Severity Severity
	Message  string
}

func (p Problem) String() string {
	return fmt.Sprintf("%s: %s", p.Severity, p.Message)
}

// GrammarError aggregates every Problem found while validating or building
// tables for a Grammar. It implements error; construction refuses to
// proceed if Fatal() returns true (spec §4.1/§7).
type GrammarError struct {
	Problems []Problem
}

func (e *GrammarError) Error() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "grammar has %d problem(s):", len(e.Problems))
	for _, p := range e.Problems {
		sb.WriteString("\n  ")
		sb.WriteString(p.String())
	}
	return sb.String()
}

// Add appends a problem of the given severity.
func (e *GrammarError) Add(sev Severity, format string, args ...any) {
	e.Problems = append(e.Problems, Problem{Severity: sev, Message: fmt.Sprintf(format, args...)})
}

// Fatal returns whether any Problem in the set is Fatal.
func (e *GrammarError) Fatal() bool {
	for _, p := range e.Problems {
		if p.Severity == Fatal {
			return true
		}
	}
	return false
}

// Warnings returns only the Warning-severity problems.
func (e *GrammarError) Warnings() []Problem {
	var out []Problem
	for _, p := range e.Problems {
		if p.Severity == Warning {
			out = append(out, p)
		}
	}
	return out
}

// Errors returns only the Fatal-severity problems.
func (e *GrammarError) Errors() []Problem {
	var out []Problem
	for _, p := range e.Problems {
		if p.Severity == Fatal {
			out = append(out, p)
		}
	}
	return out
}

// AsError returns e as an error if it has any Fatal problem, else nil. This
// lets construction code always build up a GrammarError and decide at the
// end whether it is actually a failure.
func (e *GrammarError) AsError() error {
	if e == nil || !e.Fatal() {
		return nil
	}
	return e
}

// SyntaxError is a parse-time error carrying the offending token. The
// parser's error-recovery machinery (spec §4.5) uses this to drive the
// user-supplied error(tok) hook.
type SyntaxError struct {
	Message string
	Tok     types.Token
}

func (e *SyntaxError) Error() string {
	return e.Message
}

// Token returns the token that triggered the error.
func (e *SyntaxError) Token() types.Token {
	return e.Tok
}

// NewSyntaxErrorFromToken builds a SyntaxError whose message is msg,
// attaching position info from tok for callers that want to format it
// themselves.
func NewSyntaxErrorFromToken(msg string, tok types.Token) *SyntaxError {
	return &SyntaxError{Message: msg, Tok: tok}
}
