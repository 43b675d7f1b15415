package grammar

import (
	"fmt"
	"sort"
	"strings"

	"github.com/finrow/marlin/internal/util"
)

// Epsilon is the sentinel one-element Production used to represent an
// explicit epsilon symbol inside an LR0Item's Right (as opposed to a
// merely-empty Right, which means "dot is at the end"). Indexing Epsilon[0]
// gives the empty-string symbol itself; see LR0Items.
var Epsilon = Production{""}

// LR0Items returns one LR0Item per (production, dot position) pair across
// every production of g, including the dot-at-zero and dot-at-end items. A
// production with an empty RHS contributes a single item whose Right is
// Epsilon, so that "dot before epsilon" is representable the same way "dot
// before any other symbol" is (spec §4.2 "LR(0) item").
func (g *Grammar) LR0Items() []LR0Item {
	var items []LR0Item

	for _, pd := range g.productions {
		rhs := pd.Rule
		if len(rhs) == 0 {
			items = append(items, LR0Item{NonTerminal: pd.NonTerminal, Right: Production{""}})
			continue
		}
		for dot := 0; dot <= len(rhs); dot++ {
			left := make([]string, dot)
			copy(left, rhs[:dot])
			right := make([]string, len(rhs)-dot)
			copy(right, rhs[dot:])
			items = append(items, LR0Item{NonTerminal: pd.NonTerminal, Left: left, Right: right})
		}
	}

	return items
}

// LR0_CLOSURE computes CLOSURE(I) (spec §4.2 "closure"): starting from
// kernel item set I, repeatedly add, for every item [A -> α.Xβ] where X is a
// non-terminal, every item [X -> .γ] for each production X -> γ, until no
// more items can be added.
func (g *Grammar) LR0_CLOSURE(I util.SVSet[LR0Item]) util.SVSet[LR0Item] {
	closure := util.NewSVSet(I)

	changed := true
	for changed {
		changed = false
		for _, name := range closure.Elements() {
			item := closure.Get(name)
			if len(item.Right) == 0 || item.Right[0] == Epsilon[0] {
				continue
			}
			X := item.Right[0]
			if !g.IsNonTerminal(X) {
				continue
			}
			for _, pd := range g.ProductionsFor(X) {
				var newItem LR0Item
				if len(pd.Rule) == 0 {
					newItem = LR0Item{NonTerminal: X, Right: Production{""}}
				} else {
					right := make([]string, len(pd.Rule))
					copy(right, pd.Rule)
					newItem = LR0Item{NonTerminal: X, Right: right}
				}
				if !closure.Has(newItem.String()) {
					closure.Set(newItem.String(), newItem)
					changed = true
				}
			}
		}
	}

	return closure
}

// LR0_GOTO computes GOTO(I, X) (spec §4.2 "goto"): the closure of every item
// [A -> αX.β] obtained by moving the dot of an item [A -> α.Xβ] in I past X.
func (g *Grammar) LR0_GOTO(I util.SVSet[LR0Item], X string) util.SVSet[LR0Item] {
	moved := util.NewSVSet[LR0Item]()

	for _, name := range I.Elements() {
		item := I.Get(name)
		if len(item.Right) == 0 || item.Right[0] != X {
			continue
		}
		newLeft := make([]string, len(item.Left)+1)
		copy(newLeft, item.Left)
		newLeft[len(item.Left)] = X
		newRight := make([]string, len(item.Right)-1)
		copy(newRight, item.Right[1:])

		newItem := LR0Item{NonTerminal: item.NonTerminal, Left: newLeft, Right: newRight}
		moved.Set(newItem.String(), newItem)
	}

	if moved.Empty() {
		return moved
	}

	return g.LR0_CLOSURE(moved)
}

// CanonicalLR0Items computes the canonical collection of sets of LR(0) items
// for g (spec §4.2 "canonical collection"): starting from
// CLOSURE({[S' -> .S]}), repeatedly apply GOTO with every grammar symbol
// until no new item sets are produced. g must already be augmented.
func (g *Grammar) CanonicalLR0Items() util.VSet[string, util.SVSet[LR0Item]] {
	startItem := LR0Item{NonTerminal: g.StartSymbol(), Right: Production{g.startOfAugmentedInner()}}
	startKernel := util.NewSVSet[LR0Item]()
	startKernel.Set(startItem.String(), startItem)
	startSet := g.LR0_CLOSURE(startKernel)

	collection := util.NewSVSet[util.SVSet[LR0Item]]()
	collection.Set(startSet.StringOrdered(), startSet)

	// error is a reserved terminal (spec §4.5 error recovery) that need not
	// be in g.Terminals(); productions may still shift it, so GOTO must be
	// probed for it alongside the declared symbols.
	allSymbols := append(append([]string{}, g.Terminals()...), g.NonTerminals()...)
	allSymbols = append(allSymbols, ErrorSymbol)

	changed := true
	for changed {
		changed = false
		for _, setName := range collection.Elements() {
			I := collection.Get(setName)
			for _, X := range allSymbols {
				J := g.LR0_GOTO(I, X)
				if J.Empty() {
					continue
				}
				if !collection.Has(J.StringOrdered()) {
					collection.Set(J.StringOrdered(), J)
					changed = true
				}
			}
		}
	}

	return collection
}

// startOfAugmentedInner returns the single RHS symbol of the augmentation
// production S' -> start. Only meaningful on an already-augmented grammar.
func (g *Grammar) startOfAugmentedInner() string {
	for _, pd := range g.productions {
		if pd.Index == 0 {
			return pd.Rule[0]
		}
	}
	panic("startOfAugmentedInner called on a non-augmented grammar")
}

// MustParse parses a simple grammar description of the form used throughout
// the test suite ("LHS -> sym sym | sym ;" rules, one per line, terminals
// inferred as any symbol that is never used as an LHS) and panics on error.
// It exists for test fixtures only; real front ends build a Grammar via
// AddTerm/AddProduction.
func MustParse(src string) Grammar {
	g, err := Parse(src)
	if err != nil {
		panic(err.Error())
	}
	return g
}

// Parse parses the simple grammar notation described by MustParse.
func Parse(src string) (Grammar, error) {
	g := Grammar{}

	rawRules := strings.Split(src, ";")
	var ruleSpecs []Rule
	lhsSeen := util.NewStringSet()

	for _, raw := range rawRules {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		sides := strings.SplitN(raw, "->", 2)
		if len(sides) != 2 {
			return Grammar{}, fmt.Errorf("not a rule of form 'LHS -> alt | alt': %q", raw)
		}
		lhs := strings.TrimSpace(sides[0])
		if lhs == "" {
			return Grammar{}, fmt.Errorf("empty LHS in rule: %q", raw)
		}
		lhsSeen.Add(lhs)

		alts := strings.Split(sides[1], "|")
		r := Rule{NonTerminal: lhs}
		for _, alt := range alts {
			alt = strings.TrimSpace(alt)
			var rhs Production
			if alt != "" && strings.ToLower(alt) != "ε" {
				for _, sym := range strings.Fields(alt) {
					rhs = append(rhs, sym)
				}
			}
			r.Productions = append(r.Productions, rhs)
		}
		ruleSpecs = append(ruleSpecs, r)
	}

	if len(ruleSpecs) == 0 {
		return Grammar{}, fmt.Errorf("no rules found in grammar source")
	}

	// terminals: every symbol used on some RHS that is never an LHS
	termsSeen := util.NewStringSet()
	for _, r := range ruleSpecs {
		for _, p := range r.Productions {
			for _, sym := range p {
				if sym != "" && !lhsSeen.Has(sym) {
					termsSeen.Add(sym)
				}
			}
		}
	}
	orderedTerms := termsSeen.Elements()
	sort.Strings(orderedTerms)
	for _, t := range orderedTerms {
		g.AddTerminal(t)
	}

	for _, r := range ruleSpecs {
		for _, p := range r.Productions {
			g.AddRule(r.NonTerminal, p)
		}
	}

	return g, nil
}
