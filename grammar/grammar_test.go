package grammar

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func exprGrammar() *Grammar {
	g := &Grammar{}
	g.AddTerminal("id")
	g.AddTerminal("+")
	g.AddTerminal("*")
	g.AddTerminal("(")
	g.AddTerminal(")")

	g.AddRule("E", Production{"E", "+", "T"})
	g.AddRule("E", Production{"T"})
	g.AddRule("T", Production{"T", "*", "F"})
	g.AddRule("T", Production{"F"})
	g.AddRule("F", Production{"(", "E", ")"})
	g.AddRule("F", Production{"id"})

	g.SetPrecedence([]PrecedenceLevel{
		{Assoc: AssocLeft, Terminals: []string{"+"}},
		{Assoc: AssocLeft, Terminals: []string{"*"}},
	})

	return g
}

func Test_Grammar_Validate_ok(t *testing.T) {
	g := exprGrammar()
	assert.NoError(t, g.Validate())
}

func Test_Grammar_Validate_emptyGrammar(t *testing.T) {
	g := &Grammar{}
	err := g.Validate()
	assert.Error(t, err)
}

func Test_Grammar_Validate_noTerminals(t *testing.T) {
	g := &Grammar{}
	g.AddRule("S", Production{"A"})
	g.AddRule("A", Production{})

	err := g.Validate()
	assert.Error(t, err)
}

func Test_Grammar_Validate_undefinedSymbol(t *testing.T) {
	g := &Grammar{}
	g.AddTerminal("a")
	g.AddRule("S", Production{"a", "B"}) // B never declared

	err := g.Validate()
	assert.Error(t, err)
}

func Test_Grammar_Validate_unusedTerminalIsWarningOnly(t *testing.T) {
	g := &Grammar{}
	g.AddTerminal("a")
	g.AddTerminal("unused")
	g.AddRule("S", Production{"a"})

	err := g.Validate()
	assert.NoError(t, err, "unused terminal should only be a warning, not fatal")
}

func Test_Grammar_Validate_unreachableProductivity(t *testing.T) {
	g := &Grammar{}
	g.AddTerminal("a")
	g.AddRule("S", Production{"A"})
	g.AddRule("A", Production{"A"}) // A can never bottom out in terminals

	err := g.Validate()
	assert.Error(t, err)
}

func Test_Grammar_Nullable(t *testing.T) {
	g := &Grammar{}
	g.AddTerminal("a")
	g.AddRule("S", Production{"A", "a"})
	g.AddRule("A", Production{}) // epsilon

	assert.True(t, g.Nullable("A"))
	assert.False(t, g.Nullable("S"))
}

func Test_Grammar_First_simple(t *testing.T) {
	g := exprGrammar()

	first := g.FirstOfSymbol("F")
	assert.True(t, first.Has("("))
	assert.True(t, first.Has("id"))
	assert.Equal(t, 2, first.Len())
}

func Test_Grammar_First_throughNullable(t *testing.T) {
	g := &Grammar{}
	g.AddTerminal("a")
	g.AddTerminal("b")
	g.AddRule("S", Production{"A", "b"})
	g.AddRule("A", Production{"a"})
	g.AddRule("A", Production{}) // A is nullable

	first := g.First("A", "b")
	assert.True(t, first.Has("a"))
	assert.True(t, first.Has("b"))
	assert.False(t, first.Has(""))
}

func Test_Grammar_First_allNullableSequenceIncludesEpsilon(t *testing.T) {
	g := &Grammar{}
	g.AddTerminal("a")
	g.AddRule("S", Production{"A", "B"})
	g.AddRule("A", Production{})
	g.AddRule("B", Production{})

	first := g.First("A", "B")
	assert.True(t, first.Has(""))
}

func Test_Grammar_Augmented(t *testing.T) {
	g := exprGrammar()
	aug := g.Augmented()

	assert.Equal(t, AugmentedStart, aug.StartSymbol())
	assert.Equal(t, 0, aug.Productions()[0].Index)
	assert.Equal(t, Production{"E"}, aug.Productions()[0].Rule)

	// original grammar is untouched
	assert.NotEqual(t, AugmentedStart, g.StartSymbol())
}

func Test_Grammar_ProductionPrecedence_fromRightmostTerminal(t *testing.T) {
	g := exprGrammar()

	prods := g.ProductionsFor("E")
	var plusProd ProductionDef
	for _, p := range prods {
		if len(p.Rule) == 3 {
			plusProd = p
		}
	}

	level, assoc, ok := g.ProductionPrecedence(plusProd)
	assert.True(t, ok)
	assert.Equal(t, AssocLeft, assoc)
	assert.Equal(t, 1, level)
}

func Test_Grammar_ProductionPrecedence_override(t *testing.T) {
	g := &Grammar{}
	g.AddTerminal("id")
	g.AddTerminal("-")
	g.SetPrecedence([]PrecedenceLevel{
		{Assoc: AssocLeft, Terminals: []string{"-"}},
		{Assoc: AssocRight, Terminals: []string{"UMINUS"}},
	})
	idx := g.AddProduction("E", []string{"-", "E"}, "UMINUS")

	pd := g.Productions()[idx-1]
	level, assoc, ok := g.ProductionPrecedence(pd)
	assert.True(t, ok)
	assert.Equal(t, AssocRight, assoc)
	assert.Equal(t, 2, level)
}

func Test_Grammar_GenerateUniqueTerminal(t *testing.T) {
	g := &Grammar{}
	g.AddTerminal("UMINUS")

	unique := g.GenerateUniqueTerminal("UMINUS")
	assert.NotEqual(t, "UMINUS", unique)
	assert.False(t, g.IsTerminal(unique))
}

func Test_Grammar_IsTerminal_reservedSymbols(t *testing.T) {
	g := &Grammar{}
	assert.True(t, g.IsTerminal(EndOfInput))
	assert.True(t, g.IsTerminal(ErrorSymbol))
}
