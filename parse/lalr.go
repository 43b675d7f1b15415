package parse

import (
	"fmt"
	"sort"

	"github.com/dekarrin/rosed"
	"github.com/finrow/marlin/automaton"
	"github.com/finrow/marlin/grammar"
	"github.com/finrow/marlin/icterrors"
	"github.com/finrow/marlin/internal/util"
	"github.com/finrow/marlin/lalr"
)

// BuildOptions controls non-semantic aspects of LALR(1) table construction.
type BuildOptions struct {
	// DisableDefaultedStates turns off the defaulted-states optimization so
	// every ACTION cell reflects exactly what the LALR lookahead sets say,
	// useful when diagnosing a conflict or a grammar with embedded actions.
	DisableDefaultedStates bool
}

// GenerateLALR1Parser builds the LALR(1) ACTION/GOTO table for g and returns
// a ready-to-bind Parser. Returns an error (via the *icterrors.GrammarError
// wrapped as error) only if g fails validation or lookahead computation;
// LALR(1) conflicts are resolved by precedence or the yacc defaults and
// are not returned.
func GenerateLALR1Parser(g grammar.Grammar, opts ...BuildOptions) (*Parser, error) {
	var o BuildOptions
	if len(opts) > 0 {
		o = opts[0]
	}

	table, ge := constructLALRParseTable(g, o)
	if ge != nil && ge.Fatal() {
		return nil, ge.AsError()
	}

	return NewParser(table, g), nil
}

// constructLALRParseTable builds the ACTION/GOTO table for g (spec §4.3/§4.4):
// the canonical LR(0) automaton supplies shift actions and GOTO entries, the
// lalr package's DeRemer-Pennello lookahead sets supply reduce actions, and
// any shift/reduce or reduce/reduce conflict is resolved using declared
// terminal and production precedence (spec §4.4 "precedence declarations"),
// falling back to yacc's defaults (prefer shift; prefer the earlier-declared
// rule) with a Warning recorded in the returned GrammarError when no
// precedence settles the conflict. States whose sole legal action is a
// single reduction are marked defaulted (spec §4.4's "Defaulted states")
// unless opts.DisableDefaultedStates is set; a state holding an explicit
// nonassoc error entry is never defaulted.
func constructLALRParseTable(g grammar.Grammar, opts BuildOptions) (LRParseTable, *icterrors.GrammarError) {
	ge := &icterrors.GrammarError{}

	if verr := g.Validate(); verr != nil {
		if gErr, ok := verr.(*icterrors.GrammarError); ok {
			return nil, gErr
		}
		ge.Add(icterrors.Fatal, "%s", verr.Error())
		return nil, ge
	}

	lt, err := lalr.Compute(g)
	if err != nil {
		ge.Add(icterrors.Fatal, "%s", err.Error())
		return nil, ge
	}

	dfa := automaton.NewLR0ViablePrefixDFA(g)
	gPrime := g.Augmented()

	allTerms := append(append([]string{}, g.Terminals()...), grammar.EndOfInput, grammar.ErrorSymbol)

	actions := map[string]map[string]LRAction{}
	explicitErr := map[string]bool{}

	for _, stateName := range lt.States.Elements() {
		I := lt.States.Get(stateName)
		row := map[string]LRAction{}

		for _, a := range allTerms {
			var candidates []LRAction

			if shiftTo := dfa.Next(stateName, a); shiftTo != "" {
				candidates = append(candidates, LRAction{Type: LRShift, State: shiftTo})
			}

			for _, itemName := range I.Elements() {
				item := I.Get(itemName)
				if len(item.Right) != 0 && item.Right[0] != grammar.Epsilon[0] {
					continue
				}

				if item.NonTerminal == gPrime.StartSymbol() {
					if a == grammar.EndOfInput {
						candidates = append(candidates, LRAction{Type: LRAccept})
					}
					continue
				}

				la := lt.ReduceLookaheads(stateName, item)
				if !la.Has(a) {
					continue
				}

				candidates = append(candidates, LRAction{
					Type:       LRReduce,
					Symbol:     item.NonTerminal,
					Production: grammar.Production(item.Left),
				})
			}

			act, warning := resolveConflict(g, a, candidates)
			if warning != "" {
				ge.Add(icterrors.Warning, "%s", warning)
			}
			if act != nil {
				row[a] = *act
				if act.Type == LRError {
					explicitErr[stateName] = true
				}
			} else {
				row[a] = LRAction{Type: LRError}
			}
		}

		actions[stateName] = row
	}

	defaulted := map[string]LRAction{}
	if !opts.DisableDefaultedStates {
		for stateName, row := range actions {
			if explicitErr[stateName] {
				continue
			}
			if act, ok := defaultedAction(row); ok {
				defaulted[stateName] = act
			}
		}
	}

	table := &lrTable{
		gPrime:    gPrime,
		gStart:    g.StartSymbol(),
		gTerms:    g.Terminals(),
		gNonTerms: g.NonTerminals(),
		dfa:       dfa,
		defaulted: defaulted,
		actions:   actions,
	}

	return table, ge
}

// defaultedAction reports whether row (one state's full ACTION row) qualifies
// for the defaulted-states optimization: its only non-error entries are all
// the same single reduce action, with no shift or accept present (spec §4.4
// "Defaulted states"). Such a state can reduce unconditionally, without
// ever consulting the current lookahead.
func defaultedAction(row map[string]LRAction) (LRAction, bool) {
	var found LRAction
	haveOne := false

	for _, act := range row {
		if act.Type == LRError {
			continue
		}
		if act.Type != LRReduce {
			return LRAction{}, false
		}
		if !haveOne {
			found = act
			haveOne = true
			continue
		}
		if found.Symbol != act.Symbol || !found.Production.Equal(act.Production) {
			return LRAction{}, false
		}
	}

	return found, haveOne
}

// resolveConflict picks a single LRAction out of every candidate action
// found for (state, a), applying precedence-based shift/reduce and
// reduce/reduce resolution (spec §4.4). Returns a nil action when there are
// no candidates at all (an ordinary ACTION-table error entry). The returned
// string is a human-readable note for any conflict that had to be broken by
// a default rather than an explicit precedence declaration; it is empty
// when there was no conflict or the conflict was resolved by %nonassoc/
// explicit precedence.
func resolveConflict(g grammar.Grammar, a string, candidates []LRAction) (*LRAction, string) {
	if len(candidates) == 0 {
		return nil, ""
	}
	if len(candidates) == 1 {
		return &candidates[0], ""
	}

	var shift *LRAction
	var accept *LRAction
	var reduces []LRAction

	for i := range candidates {
		c := candidates[i]
		switch c.Type {
		case LRShift:
			shift = &c
		case LRAccept:
			accept = &c
		case LRReduce:
			reduces = append(reduces, c)
		}
	}

	var conflictNote string

	if len(reduces) > 1 {
		best := reduces[0]
		bestPd, bestOK := findProductionDef(g, best.Symbol, best.Production)

		for _, r := range reduces[1:] {
			rPd, rOK := findProductionDef(g, r.Symbol, r.Production)
			if rOK && (!bestOK || rPd.Index < bestPd.Index) {
				best, bestPd, bestOK = r, rPd, rOK
			}
		}

		conflictNote = fmt.Sprintf(
			"reduce/reduce conflict on terminal %q between %d rules; chose %s -> %s (declared first)",
			a, len(reduces), best.Symbol, best.Production.String(),
		)
		reduces = []LRAction{best}
	}

	var reduce *LRAction
	if len(reduces) == 1 {
		reduce = &reduces[0]
	}

	switch {
	case shift != nil && reduce != nil:
		termLevel, _, termOK := g.TermPrecedence(a)
		var prodLevel int
		var prodAssoc grammar.Associativity
		var prodOK bool
		if pd, ok := findProductionDef(g, reduce.Symbol, reduce.Production); ok {
			prodLevel, prodAssoc, prodOK = g.ProductionPrecedence(pd)
		}

		if !termOK || !prodOK {
			note := fmt.Sprintf("shift/reduce conflict on terminal %q resolved in favor of shift (no precedence declared)", a)
			if conflictNote != "" {
				note = conflictNote + "; " + note
			}
			return shift, note
		}

		switch {
		case prodLevel > termLevel:
			return reduce, conflictNote
		case termLevel > prodLevel:
			return shift, conflictNote
		default:
			switch prodAssoc {
			case grammar.AssocLeft:
				return reduce, conflictNote
			case grammar.AssocRight:
				return shift, conflictNote
			default:
				errAct := LRAction{Type: LRError}
				return &errAct, conflictNote
			}
		}
	case shift != nil:
		return shift, conflictNote
	case reduce != nil:
		return reduce, conflictNote
	case accept != nil:
		return accept, conflictNote
	}

	return nil, conflictNote
}

func findProductionDef(g grammar.Grammar, lhs string, rhs grammar.Production) (grammar.ProductionDef, bool) {
	for _, pd := range g.ProductionsFor(lhs) {
		if pd.Rule.Equal(rhs) {
			return pd, true
		}
	}
	return grammar.ProductionDef{}, false
}

// lrTable is the concrete LRParseTable backing an LALR(1) parser: the
// canonical LR(0) automaton (for shift/GOTO) plus a precomputed ACTION
// table (shift/reduce/accept/error per state and terminal).
type lrTable struct {
	gPrime    grammar.Grammar
	gStart    string
	gTerms    []string
	gNonTerms []string
	dfa       automaton.DFA[util.SVSet[grammar.LR0Item]]
	actions   map[string]map[string]LRAction
	defaulted map[string]LRAction
}

func (t *lrTable) Action(i, a string) LRAction {
	if act, ok := t.defaulted[i]; ok {
		return act
	}
	row, ok := t.actions[i]
	if !ok {
		return LRAction{Type: LRError}
	}
	act, ok := row[a]
	if !ok {
		return LRAction{Type: LRError}
	}
	return act
}

func (t *lrTable) Goto(state, symbol string) (string, error) {
	next := t.dfa.Next(state, symbol)
	if next == "" {
		return "", fmt.Errorf("GOTO[%q, %q] is an error entry", state, symbol)
	}
	return next, nil
}

func (t *lrTable) Initial() string {
	return t.dfa.Start
}

func (t *lrTable) GetDFA() automaton.DFA[string] {
	return automaton.TransformDFA(t.dfa, func(v util.SVSet[grammar.LR0Item]) string {
		return v.StringOrdered()
	})
}

func (t *lrTable) String() string {
	stateNames := t.dfa.States().Elements()
	sort.Strings(stateNames)

	for i := range stateNames {
		if stateNames[i] == t.dfa.Start {
			stateNames[0], stateNames[i] = stateNames[i], stateNames[0]
			break
		}
	}

	stateRefs := map[string]string{}
	for i := range stateNames {
		stateRefs[stateNames[i]] = fmt.Sprintf("%d", i)
	}

	allTerms := make([]string, len(t.gTerms))
	copy(allTerms, t.gTerms)
	allTerms = append(allTerms, grammar.EndOfInput, grammar.ErrorSymbol)

	data := [][]string{}

	headers := []string{"S", "|"}
	for _, term := range allTerms {
		headers = append(headers, fmt.Sprintf("A:%s", term))
	}
	headers = append(headers, "|")
	for _, nt := range t.gNonTerms {
		headers = append(headers, fmt.Sprintf("G:%s", nt))
	}
	data = append(data, headers)

	for _, i := range stateNames {
		row := []string{stateRefs[i], "|"}

		for _, term := range allTerms {
			act := t.Action(i, term)

			cell := ""
			switch act.Type {
			case LRAccept:
				cell = "acc"
			case LRReduce:
				cell = fmt.Sprintf("r%s -> %s", act.Symbol, act.Production.String())
			case LRShift:
				cell = fmt.Sprintf("s%s", stateRefs[act.State])
			case LRError:
			}

			row = append(row, cell)
		}

		row = append(row, "|")

		for _, nt := range t.gNonTerms {
			cell := ""
			if gotoState, err := t.Goto(i, nt); err == nil {
				cell = stateRefs[gotoState]
			}
			row = append(row, cell)
		}

		data = append(data, row)
	}

	return rosed.
		Edit("").
		InsertTableOpts(0, data, 10, rosed.Options{
			TableHeaders:             true,
			NoTrailingLineSeparators: true,
		}).
		String()
}
