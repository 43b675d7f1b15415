package automaton

import (
	"testing"

	"github.com/finrow/marlin/grammar"
	"github.com/stretchr/testify/assert"
)

// Test_NewLR0ViablePrefixDFA_MatchesCanonicalCollection cross-validates
// NewLR0ViablePrefixDFA against the CLOSURE/GOTO collection it is built
// from directly: every set in the canonical collection must appear as a
// DFA state keyed by the same StringOrdered name, and the DFA's start
// state must be the closure of the augmented grammar's initial item.
func Test_NewLR0ViablePrefixDFA_MatchesCanonicalCollection(t *testing.T) {
	assert := assert.New(t)

	g := grammar.MustParse(`
		S -> C C ;
		C -> c C | d ;
	`)

	gPrime := g.Augmented()
	collection := gPrime.CanonicalLR0Items()

	dfa := NewLR0ViablePrefixDFA(g)

	assert.Equal(collection.Len(), dfa.States().Len())

	for _, setName := range collection.Elements() {
		assert.True(dfa.States().Has(setName), "collection set %q missing from DFA states", setName)
		assert.True(dfa.IsAccepting(setName), "every LR(0) item-set state should be marked accepting")
	}

	assert.NoError(dfa.Validate())
}

// Test_NewLR0ViablePrefixDFA_SingleProduction walks the automaton for the
// smallest possible grammar by hand: S -> a augments to S' -> S, S -> a,
// giving exactly three item sets (the start set, and one each for shifting
// S and shifting a out of it), neither of the latter two having any
// outgoing transitions of their own.
func Test_NewLR0ViablePrefixDFA_SingleProduction(t *testing.T) {
	assert := assert.New(t)

	g := grammar.MustParse(`S -> a ;`)

	dfa := NewLR0ViablePrefixDFA(g)

	if !assert.Equal(3, dfa.States().Len()) {
		return
	}

	afterS := dfa.Next(dfa.Start, "S")
	afterA := dfa.Next(dfa.Start, "a")

	assert.NotEmpty(afterS)
	assert.NotEmpty(afterA)
	assert.NotEqual(afterS, afterA)

	assert.Empty(dfa.Next(afterS, "a"), "S' -> S . has nothing left to shift")
	assert.Empty(dfa.Next(afterA, "S"), "S -> a . has nothing left to shift")

	assert.NoError(dfa.Validate())
}

// Test_DFA_NumberStates exercises the generic renumbering used once a DFA
// has been finalized for table construction: the start state always ends
// up named "0", and the state count is unaffected.
func Test_DFA_NumberStates(t *testing.T) {
	assert := assert.New(t)

	g := grammar.MustParse(`S -> a ;`)
	dfa := NewLR0ViablePrefixDFA(g)

	origLen := dfa.States().Len()

	dfa.NumberStates()

	assert.Equal("0", dfa.Start)
	assert.Equal(origLen, dfa.States().Len())
	assert.True(dfa.States().Has("0"))
}

// Test_DFA_Validate_CatchesUnreachableState confirms Validate reports a
// state that no transition (and that isn't Start) can ever be reached.
func Test_DFA_Validate_CatchesUnreachableState(t *testing.T) {
	assert := assert.New(t)

	dfa := &DFA[string]{}
	dfa.AddState("start", false)
	dfa.AddState("orphan", true)
	dfa.SetValue("start", "start")
	dfa.SetValue("orphan", "orphan")
	dfa.Start = "start"

	err := dfa.Validate()
	assert.Error(err)
	assert.Contains(err.Error(), "orphan")
}
