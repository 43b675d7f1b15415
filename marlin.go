// Package marlin is a small toolkit for building table-driven parsers in
// the yacc/lex tradition: a regex lexer runtime, an LALR(1) table
// constructor built on the DeRemer-Pennello lookahead algorithm, and a
// table-driven shift-reduce parser runtime with yacc-style error recovery.
//
// It's based off of the name for the marlin due to its relation with
// sailfish-family fish used as mascots by other parser-generator tooling.
// This will probably never be as good as a hand-tuned yacc grammar, so
// consider using that for production compilers; this exists for research
// into LALR(1) construction and does not seek to replace existing
// toolchains in any practical fashion.
package marlin

// HACKING NOTE:
//
// https://jsmachines.sourceforge.net/machines/lalr1.html is an AMAZING tool
// for validating LALR(1) grammars quickly against this package's output.

import (
	"io"
	"strings"

	"github.com/finrow/marlin/grammar"
	"github.com/finrow/marlin/lex"
	"github.com/finrow/marlin/parse"
	"github.com/finrow/marlin/types"
)

// NewGrammar returns an empty Grammar ready for AddTerm/AddProduction calls.
func NewGrammar() *grammar.Grammar {
	return &grammar.Grammar{}
}

// NewLexer returns an empty Lexer with no patterns or classes defined yet.
// Its Lex method produces a lazy token stream: calling Next on the returned
// stream performs only enough scanning to produce that one token, and each
// unmatched character of input surfaces as its own types.TokenError token
// rather than aborting the whole scan.
func NewLexer() *lex.Lexer {
	return lex.NewLexer()
}

// NewLALRParser builds an LALR(1) Parser for g (spec §4.2-§4.4): the
// canonical LR(0) automaton, DeRemer-Pennello lookahead sets, and
// precedence-resolved ACTION/GOTO tables. Returns an error only if g fails
// grammar validation; conflicts are resolved, not returned.
func NewLALRParser(g grammar.Grammar, opts ...parse.BuildOptions) (*parse.Parser, error) {
	return parse.GenerateLALR1Parser(g, opts...)
}

// Frontend wires a Lexer and a Parser together into a single input-to-value
// compiler front end: lexical analysis feeds a lazy token stream to the
// parser, whose bound production Actions synthesize the final value of type
// E directly (no intermediate parse tree or attribute-grammar evaluation
// pass - semantic actions bound via Parser.Bind/BindRule do the work as
// productions reduce, the way yacc's own $$ = ... actions do).
type Frontend[E any] struct {
	Lexer  *lex.Lexer
	Parser *parse.Parser
}

// NewFrontend pairs lx and p into a Frontend producing values of type E.
func NewFrontend[E any](lx *lex.Lexer, p *parse.Parser) *Frontend[E] {
	return &Frontend[E]{Lexer: lx, Parser: p}
}

// AnalyzeString is Analyze over a string, for convenience.
func (fe *Frontend[E]) AnalyzeString(s string) (E, error) {
	return fe.Analyze(strings.NewReader(s))
}

// Analyze lexes r into a token stream and feeds it through the parser,
// returning the value synthesized by the bound actions at the grammar's
// start symbol. If the result isn't of type E, that's a binding mistake in
// the caller's Actions, reported as a plain error (not an
// icterrors.SyntaxError) rather than panicking.
func (fe *Frontend[E]) Analyze(r io.Reader) (result E, err error) {
	tokStream, err := fe.Lexer.Lex(r)
	if err != nil {
		return result, err
	}

	v, err := fe.Parser.Parse(tokStream)
	if err != nil {
		return result, err
	}

	result, ok := v.(E)
	if !ok {
		return result, &badResultTypeError{got: v}
	}

	return result, nil
}

type badResultTypeError struct {
	got any
}

func (e *badResultTypeError) Error() string {
	return "parse completed but the bound start-symbol action did not produce the expected result type"
}

// TokenStream is re-exported here for callers that only need the interface
// name and don't want to import the types package directly.
type TokenStream = types.TokenStream
