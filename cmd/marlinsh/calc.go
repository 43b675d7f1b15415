package main

import (
	"fmt"
	"strconv"

	"github.com/finrow/marlin/grammar"
	"github.com/finrow/marlin/lex"
	"github.com/finrow/marlin/parse"
	"github.com/finrow/marlin/types"
)

// newCalcGrammar builds the calculator grammar from the worked example in
// the design notes: arithmetic over +, -, *, /, parens, and unary minus,
// with "left +,-; left *,/; right UMINUS" precedence so that
// "3 + 5 * (10 - 20)" evaluates to -47 and "-2 + 3" evaluates to 1 (UMINUS
// binding tighter than the later +).
func newCalcGrammar() *grammar.Grammar {
	g := &grammar.Grammar{}

	for _, t := range []string{"NUM", "PLUS", "MINUS", "TIMES", "DIVIDE", "LPAREN", "RPAREN"} {
		g.AddTerm(t, types.MakeDefaultClass(t))
	}

	g.AddProduction("expr", []string{"expr", "PLUS", "expr"}, "")
	g.AddProduction("expr", []string{"expr", "MINUS", "expr"}, "")
	g.AddProduction("expr", []string{"expr", "TIMES", "expr"}, "")
	g.AddProduction("expr", []string{"expr", "DIVIDE", "expr"}, "")
	g.AddProduction("expr", []string{"MINUS", "expr"}, "UMINUS")
	g.AddProduction("expr", []string{"LPAREN", "expr", "RPAREN"}, "")
	g.AddProduction("expr", []string{"NUM"}, "")

	g.SetPrecedence([]grammar.PrecedenceLevel{
		{Assoc: grammar.AssocLeft, Terminals: []string{"PLUS", "MINUS"}},
		{Assoc: grammar.AssocLeft, Terminals: []string{"TIMES", "DIVIDE"}},
		{Assoc: grammar.AssocRight, Terminals: []string{"UMINUS"}},
	})

	return g
}

// newCalcLexer builds the matching lexer: digits as NUM (with Value already
// converted to int), the six operator/paren literals, and plain spaces and
// tabs skipped via the single-character ignore set.
func newCalcLexer() *lex.Lexer {
	lx := lex.NewLexer()
	lx.SetIgnoreChars(" \t")

	lx.AddClass(lex.NewTokenClass("NUM", "number"), "")
	if err := lx.AddPattern(`[0-9]+`, lex.Action{
		Type:    lex.ActionScan,
		ClassID: "NUM",
		Transform: func(lexeme string) (any, bool) {
			n, err := strconv.Atoi(lexeme)
			if err != nil {
				return lexeme, false
			}
			return n, false
		},
	}, ""); err != nil {
		panic(err)
	}

	operators := map[string]string{
		`\+`: "PLUS",
		`-`:  "MINUS",
		`\*`: "TIMES",
		`/`:  "DIVIDE",
		`\(`: "LPAREN",
		`\)`: "RPAREN",
	}
	for pat, id := range operators {
		lx.AddClass(lex.NewTokenClass(id, id), "")
		if err := lx.AddPattern(pat, lex.LexAs(id), ""); err != nil {
			panic(err)
		}
	}

	return lx
}

// newCalcParser builds and binds an LALR(1) parser over newCalcGrammar that
// evaluates expressions directly as productions reduce, returning the final
// int result at accept.
func newCalcParser() (*parse.Parser, error) {
	g := newCalcGrammar()

	p, err := parse.GenerateLALR1Parser(*g)
	if err != nil {
		return nil, err
	}

	bind := func(rhs []string, fn parse.Action) {
		if err := p.BindRule("expr", rhs, fn); err != nil {
			panic(err)
		}
	}

	arith := func(op func(a, b int) int) parse.Action {
		return func(prod *parse.Production) (any, error) {
			a, aok := prod.Get(0).(int)
			b, bok := prod.Get(2).(int)
			if !aok || !bok {
				return nil, fmt.Errorf("expected two int operands")
			}
			return op(a, b), nil
		}
	}

	bind([]string{"expr", "PLUS", "expr"}, arith(func(a, b int) int { return a + b }))
	bind([]string{"expr", "MINUS", "expr"}, arith(func(a, b int) int { return a - b }))
	bind([]string{"expr", "TIMES", "expr"}, arith(func(a, b int) int { return a * b }))
	bind([]string{"expr", "DIVIDE", "expr"}, func(prod *parse.Production) (any, error) {
		a, aok := prod.Get(0).(int)
		b, bok := prod.Get(2).(int)
		if !aok || !bok {
			return nil, fmt.Errorf("expected two int operands")
		}
		if b == 0 {
			return nil, fmt.Errorf("division by zero")
		}
		return a / b, nil
	})
	bind([]string{"MINUS", "expr"}, func(prod *parse.Production) (any, error) {
		v, ok := prod.Get(1).(int)
		if !ok {
			return nil, fmt.Errorf("expected int operand")
		}
		return -v, nil
	})
	bind([]string{"LPAREN", "expr", "RPAREN"}, func(prod *parse.Production) (any, error) {
		return prod.Get(1), nil
	})
	bind([]string{"NUM"}, func(prod *parse.Production) (any, error) {
		return prod.Get(0), nil
	})

	return p, nil
}

// evaluate lexes and parses expr with the calculator grammar, returning the
// computed int result or the first syntax error encountered.
func evaluate(p *parse.Parser, expr string) (int, error) {
	lx := newCalcLexer()

	stream, err := lx.Tokenize(expr)
	if err != nil {
		return 0, err
	}

	result, err := p.Parse(stream)
	if err != nil {
		return 0, err
	}

	v, ok := result.(int)
	if !ok {
		return 0, fmt.Errorf("expression did not evaluate to an integer")
	}
	return v, nil
}
