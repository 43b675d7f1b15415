package automaton

import (
	"github.com/finrow/marlin/grammar"
	"github.com/finrow/marlin/internal/util"
)

// NewLR0ViablePrefixDFA builds the canonical LR(0) automaton for g (spec
// §4.2): g is augmented internally, the canonical collection of sets of
// LR(0) items is computed via CLOSURE/GOTO, and each set becomes a DFA
// state keyed by its item set's ordered string form, with one transition
// per grammar symbol that has a defined GOTO. This is the automaton the
// lalr package computes DeRemer-Pennello lookaheads over (spec §4.3); the
// lookaheads that make it an LALR(1) table are layered on afterward by the
// lalr package rather than by merging a separately-built canonical LR(1)
// automaton.
func NewLR0ViablePrefixDFA(g grammar.Grammar) DFA[util.SVSet[grammar.LR0Item]] {
	gPrime := g.Augmented()
	collection := gPrime.CanonicalLR0Items()

	dfa := DFA[util.SVSet[grammar.LR0Item]]{}

	allSymbols := append(append([]string{}, gPrime.Terminals()...), gPrime.NonTerminals()...)
	allSymbols = append(allSymbols, grammar.EndOfInput, grammar.ErrorSymbol)

	for _, setName := range collection.Elements() {
		I := collection.Get(setName)
		dfa.AddState(setName, true)
		dfa.SetValue(setName, I)
	}

	startItem := grammar.LR0Item{NonTerminal: gPrime.StartSymbol(), Right: grammar.Production{g.StartSymbol()}}
	startKernel := util.NewSVSet[grammar.LR0Item]()
	startKernel.Set(startItem.String(), startItem)
	startSet := gPrime.LR0_CLOSURE(startKernel)
	dfa.Start = startSet.StringOrdered()

	for _, setName := range collection.Elements() {
		I := collection.Get(setName)
		for _, X := range allSymbols {
			if X == grammar.EndOfInput {
				continue
			}
			J := gPrime.LR0_GOTO(I, X)
			if J.Empty() {
				continue
			}
			dfa.AddTransition(setName, X, J.StringOrdered())
		}
	}

	return dfa
}
