package automaton

import (
	"testing"

	"github.com/finrow/marlin/grammar"
	"github.com/stretchr/testify/assert"
)

// Test_NewLR0ViablePrefixNFA_ToDFA cross-validates the subset-construction
// route (build the LR(0) item NFA per item.Right, then collapse it with
// ToDFA's algorithm 3.20) against the direct CLOSURE/GOTO construction used
// by NewLR0ViablePrefixDFA: both describe the same viable-prefix automaton,
// so they must agree on how many states (item sets) the canonical
// collection has.
func Test_NewLR0ViablePrefixNFA_ToDFA(t *testing.T) {
	assert := assert.New(t)

	g := grammar.MustParse(`
		S -> C C ;
		C -> c C | d ;
	`)

	direct := NewLR0ViablePrefixDFA(g)

	nfa := NewLR0ViablePrefixNFA(g)
	viaSubsetConstruction := nfa.ToDFA()

	assert.Equal(direct.States().Len(), viaSubsetConstruction.States().Len())
	assert.True(viaSubsetConstruction.IsAccepting(viaSubsetConstruction.Start))
}

// Test_NFA_Join_NumberStates exercises the generic NFA combinators (neither
// is used by ToDFA's subset construction): Join glues two automata together through an
// explicit transition list, and NumberStates renames the merged result to a
// predictable, start-first numbering.
func Test_NFA_Join_NumberStates(t *testing.T) {
	assert := assert.New(t)

	left := NFA[string]{}
	left.AddState("L0", false)
	left.AddState("L1", true)
	left.SetValue("L0", "L0")
	left.SetValue("L1", "L1")
	left.Start = "L0"
	left.AddTransition("L0", "a", "L1")

	right := NFA[string]{}
	right.AddState("R0", true)
	right.SetValue("R0", "R0")
	right.Start = "R0"

	joined, err := left.Join(right, [][3]string{{"L1", "b", "R0"}}, nil, nil, []string{"1:L1"})
	assert.NoError(err)
	assert.Equal("1:L0", joined.Start)
	assert.True(joined.States().Has("1:L0"))
	assert.True(joined.States().Has("1:L1"))
	assert.True(joined.States().Has("2:R0"))
	assert.False(joined.states["1:L1"].accepting, "removeAccept should have cleared L1's acceptance")

	joined.NumberStates()
	assert.Equal("0", joined.Start)
}
