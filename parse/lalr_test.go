package parse

import (
	"testing"

	"github.com/finrow/marlin/grammar"
	"github.com/finrow/marlin/types"
	"github.com/stretchr/testify/assert"
)

func Test_ConstructLALRParseTable(t *testing.T) {
	testCases := []struct {
		name      string
		grammar   string
		expect    string
		expectErr bool
	}{
		{
			name: "purple dragon LALR(1) example grammar 4.55",
			grammar: `
				S -> C C ;
				C -> c C | d ;
			`,
			expect: `S  |  A:C        A:D        A:$        |  G:C  G:S
--------------------------------------------------
0  |  s2         s4                    |  1    6  
1  |  s2         s4                    |  5       
2  |  s2         s4                    |  3       
3  |  rC -> c C  rC -> c C  rC -> c C  |          
4  |  rC -> d    rC -> d    rC -> d    |          
5  |                        rS -> C C  |          
6  |                        acc        |          `,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// setup
			assert := assert.New(t)
			g := grammar.MustParse(tc.grammar)

			// execute
			actual, gerr := constructLALRParseTable(g, BuildOptions{})

			// assert
			if tc.expectErr {
				assert.True(gerr != nil && gerr.Fatal())
				return
			}
			assert.False(gerr != nil && gerr.Fatal())
			assert.Equal(tc.expect, actual.String())
		})
	}
}

// numTok builds a NUM token carrying an already-converted int value, the
// way the calculator lexer's Transform does.
func numTok(n int) types.Token {
	return mockToken{c: types.MakeDefaultClass("NUM"), v: n, lexeme: "NUM"}
}

func opTok(id string) types.Token {
	return mockToken{c: types.MakeDefaultClass(id), lexeme: id}
}

func eofTok() types.Token {
	return mockToken{c: types.TokenEndOfText, lexeme: types.TokenEndOfText.ID()}
}

func newCalcTestGrammar() grammar.Grammar {
	g := grammar.Grammar{}

	for _, term := range []string{"NUM", "PLUS", "MINUS", "TIMES", "DIVIDE", "LPAREN", "RPAREN"} {
		g.AddTerm(term, types.MakeDefaultClass(term))
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

func newCalcTestParser(t *testing.T) *Parser {
	t.Helper()

	g := newCalcTestGrammar()
	p, err := GenerateLALR1Parser(g)
	assert.NoError(t, err, "generating calculator parser failed")

	bind := func(rhs []string, fn Action) {
		err := p.BindRule("expr", rhs, fn)
		assert.NoError(t, err, "binding expr -> %v failed", rhs)
	}

	arith := func(op func(a, b int) int) Action {
		return func(prod *Production) (any, error) {
			return op(prod.Get(0).(int), prod.Get(2).(int)), nil
		}
	}

	bind([]string{"expr", "PLUS", "expr"}, arith(func(a, b int) int { return a + b }))
	bind([]string{"expr", "MINUS", "expr"}, arith(func(a, b int) int { return a - b }))
	bind([]string{"expr", "TIMES", "expr"}, arith(func(a, b int) int { return a * b }))
	bind([]string{"expr", "DIVIDE", "expr"}, func(prod *Production) (any, error) {
		return prod.Get(0).(int) / prod.Get(2).(int), nil
	})
	bind([]string{"MINUS", "expr"}, func(prod *Production) (any, error) {
		return -prod.Get(1).(int), nil
	})
	bind([]string{"LPAREN", "expr", "RPAREN"}, func(prod *Production) (any, error) {
		return prod.Get(1), nil
	})
	bind([]string{"NUM"}, func(prod *Production) (any, error) {
		return prod.Get(0), nil
	})

	return p
}

// Test_LALRParse_PrecedenceCalculator covers the precedence-driven
// calculator scenario: "3 + 5 * (10 - 20)" must parse as 3 + (5 * (10 -
// 20)) = -47, with * binding tighter than + and the parenthesized
// subtraction evaluated first.
func Test_LALRParse_PrecedenceCalculator(t *testing.T) {
	assert := assert.New(t)
	p := newCalcTestParser(t)

	// 3 + 5 * ( 10 - 20 )
	stream := &mockStream{tokens: []types.Token{
		numTok(3), opTok("PLUS"), numTok(5), opTok("TIMES"),
		opTok("LPAREN"), numTok(10), opTok("MINUS"), numTok(20), opTok("RPAREN"),
		eofTok(),
	}}

	result, err := p.Parse(stream)
	assert.NoError(err)
	assert.Equal(-47, result)
}

// Test_LALRParse_UnaryMinusPrecedence covers the "%prec UMINUS" override:
// "-2 + 3" must bind the unary minus tighter than the following +, giving
// (-2) + 3 = 1 rather than -(2 + 3).
func Test_LALRParse_UnaryMinusPrecedence(t *testing.T) {
	assert := assert.New(t)
	p := newCalcTestParser(t)

	// - 2 + 3
	stream := &mockStream{tokens: []types.Token{
		opTok("MINUS"), numTok(2), opTok("PLUS"), numTok(3),
		eofTok(),
	}}

	result, err := p.Parse(stream)
	assert.NoError(err)
	assert.Equal(1, result)
}

// Test_LALRParse_NonassocConflict builds a tiny "a < b" comparison grammar
// with %nonassoc on "<" and confirms that chaining the operator ("a < b <
// c") produces exactly one syntax error rather than silently associating
// either direction.
func Test_LALRParse_NonassocConflict(t *testing.T) {
	assert := assert.New(t)

	g := grammar.Grammar{}
	g.AddTerm("ID", types.MakeDefaultClass("ID"))
	g.AddTerm("LT", types.MakeDefaultClass("LT"))
	g.AddProduction("expr", []string{"expr", "LT", "expr"}, "")
	g.AddProduction("expr", []string{"ID"}, "")
	g.SetPrecedence([]grammar.PrecedenceLevel{
		{Assoc: grammar.AssocNonAssoc, Terminals: []string{"LT"}},
	})

	p, err := GenerateLALR1Parser(g)
	assert.NoError(err, "generating nonassoc parser failed")

	assert.NoError(p.BindRule("expr", []string{"expr", "LT", "expr"}, func(prod *Production) (any, error) {
		return true, nil
	}))
	assert.NoError(p.BindRule("expr", []string{"ID"}, func(prod *Production) (any, error) {
		return prod.Get(0), nil
	}))

	// a < b
	ok := &mockStream{tokens: []types.Token{opTok("ID"), opTok("LT"), opTok("ID"), eofTok()}}
	_, err = p.Parse(ok)
	assert.NoError(err, "a single comparison should parse without error")

	// a < b < c
	chained := &mockStream{tokens: []types.Token{
		opTok("ID"), opTok("LT"), opTok("ID"), opTok("LT"), opTok("ID"), eofTok(),
	}}
	_, err = p.Parse(chained)
	assert.Error(err, "chained nonassoc comparisons must be a syntax error")
}

// Test_LALRParse_ErrorRecovery builds a "statement : PRINT error SEMI"
// grammar and confirms that a garbage token between PRINT and SEMI is
// reported to the registered error hook exactly once and that the parser
// still resynchronizes and reduces statement once SEMI is reached.
func Test_LALRParse_ErrorRecovery(t *testing.T) {
	assert := assert.New(t)

	g := grammar.Grammar{}
	g.AddTerm("PRINT", types.MakeDefaultClass("PRINT"))
	g.AddTerm("SEMI", types.MakeDefaultClass("SEMI"))
	g.AddTerm("GARBAGE", types.MakeDefaultClass("GARBAGE"))
	g.AddProduction("statement", []string{"PRINT", grammar.ErrorSymbol, "SEMI"}, "")

	p, err := GenerateLALR1Parser(g)
	assert.NoError(err, "generating error-recovery parser failed")

	assert.NoError(p.BindRule("statement", []string{"PRINT", grammar.ErrorSymbol, "SEMI"}, func(prod *Production) (any, error) {
		return "recovered", nil
	}))

	errCount := 0
	p.OnError(func(tok types.Token) {
		errCount++
	})

	stream := &mockStream{tokens: []types.Token{
		opTok("PRINT"), opTok("GARBAGE"), opTok("SEMI"), eofTok(),
	}}

	result, err := p.Parse(stream)
	assert.NoError(err, "parser should resynchronize on SEMI and reduce")
	assert.Equal("recovered", result)
	assert.Equal(1, errCount, "error hook should fire exactly once")
}

// Test_LALRParse_ErrorRecoveryOneHookPerWindow builds a list-of-statements
// grammar ("stmts : stmts statement | statement", "statement : PRINT error
// SEMI") and feeds it two garbage-statements back to back. Fewer than three
// clean shifts occur between the first recovery's resynchronization and the
// second statement's own GARBAGE token, so the second failure lands inside
// the same recovery window as the first (spec §4.5 point 1: "on the first
// error in the current recovery window, invoke error(tok) once"; point 5:
// the hook only fires again once the clean-shift counter has returned to 0).
// The error hook must fire exactly once, not once per failed shift.
func Test_LALRParse_ErrorRecoveryOneHookPerWindow(t *testing.T) {
	assert := assert.New(t)

	g := grammar.Grammar{}
	g.AddTerm("PRINT", types.MakeDefaultClass("PRINT"))
	g.AddTerm("SEMI", types.MakeDefaultClass("SEMI"))
	g.AddTerm("GARBAGE", types.MakeDefaultClass("GARBAGE"))
	g.AddProduction("stmts", []string{"stmts", "statement"}, "")
	g.AddProduction("stmts", []string{"statement"}, "")
	g.AddProduction("statement", []string{"PRINT", grammar.ErrorSymbol, "SEMI"}, "")

	p, err := GenerateLALR1Parser(g)
	assert.NoError(err, "generating error-recovery parser failed")

	noop := func(prod *Production) (any, error) { return nil, nil }
	assert.NoError(p.BindRule("stmts", []string{"stmts", "statement"}, noop))
	assert.NoError(p.BindRule("stmts", []string{"statement"}, noop))
	assert.NoError(p.BindRule("statement", []string{"PRINT", grammar.ErrorSymbol, "SEMI"}, noop))

	errCount := 0
	p.OnError(func(tok types.Token) {
		errCount++
	})

	// PRINT GARBAGE SEMI  PRINT GARBAGE SEMI - two consecutive malformed
	// statements; between them only two real tokens (SEMI, PRINT) are
	// shifted cleanly, never reaching the 3-shift threshold that would
	// close the first recovery window.
	stream := &mockStream{tokens: []types.Token{
		opTok("PRINT"), opTok("GARBAGE"), opTok("SEMI"),
		opTok("PRINT"), opTok("GARBAGE"), opTok("SEMI"),
		eofTok(),
	}}

	_, err = p.Parse(stream)
	assert.NoError(err, "parser should resynchronize on each SEMI and reduce")
	assert.Equal(1, errCount, "error hook must not fire again inside the same recovery window")
}
