package lalr

import (
	"github.com/finrow/marlin/grammar"
	"github.com/finrow/marlin/internal/util"
)

// NTPair is a grammar transition (p, A): a canonical LR(0) state p together
// with a non-terminal A for which GOTO(p, A) is defined. These are the nodes
// the digraph algorithm's Read and Follow relations are computed over (spec
// §4.3).
type NTPair struct {
	State string
	Sym   string
}

// Tables holds everything derived from a grammar's canonical LR(0)
// automaton needed to build an ACTION/GOTO table: the automaton itself
// (states keyed the same way automaton.NewLR0ViablePrefixDFA keys its DFA
// states, by the item set's StringOrdered form) and the LALR(1) lookahead
// set for every reduce item in every state.
type Tables struct {
	Augmented grammar.Grammar
	States    util.VSet[string, util.SVSet[grammar.LR0Item]]
	Start     string

	lookaheads map[string]util.StringSet
}

// ReduceLookaheads returns LA(state, item) for a completed item (Right
// empty, or Right[0] the epsilon marker) found in state. Returns an empty
// set if the item is not a completed item known for that state.
func (t *Tables) ReduceLookaheads(state string, item grammar.LR0Item) util.StringSet {
	key := state + "\x00" + item.String()
	if la, ok := t.lookaheads[key]; ok {
		return la
	}
	return util.NewStringSet()
}

func gotoSeq(g grammar.Grammar, I util.SVSet[grammar.LR0Item], seq []string) util.SVSet[grammar.LR0Item] {
	cur := I
	for _, sym := range seq {
		cur = g.LR0_GOTO(cur, sym)
		if cur.Empty() {
			return cur
		}
	}
	return cur
}

func isCompletedItem(item grammar.LR0Item) bool {
	return len(item.Right) == 0 || item.Right[0] == grammar.Epsilon[0]
}

// completedRule returns the symbols actually consumed (ω) by a completed
// item, i.e. item.Left, with the epsilon-production case (dot never having
// moved) correctly reporting a zero-length ω.
func completedRule(item grammar.LR0Item) []string {
	return item.Left
}

// Compute builds the canonical LR(0) automaton for g and computes the
// LALR(1) lookahead set of every reduce item in every state via the
// DeRemer-Pennello digraph algorithm (spec §4.3): DR and READS feed the
// Read relation (terminals immediately shiftable through nullable chains),
// INCLUDES and LOOKBACK feed the Follow relation (propagating Read sets
// backward along production bodies), and LA(q, A -> ω) is the union of
// Follow(p, A) over every (p, A) that LOOKBACK associates with q's
// completed item.
func Compute(g grammar.Grammar) (*Tables, error) {
	if err := g.Validate(); err != nil {
		return nil, err
	}

	gPrime := g.Augmented()
	collection := gPrime.CanonicalLR0Items()

	startItem := grammar.LR0Item{NonTerminal: gPrime.StartSymbol(), Right: grammar.Production{g.StartSymbol()}}
	startKernel := util.NewSVSet[grammar.LR0Item]()
	startKernel.Set(startItem.String(), startItem)
	startSet := gPrime.LR0_CLOSURE(startKernel)
	start := startSet.StringOrdered()

	nonTerms := gPrime.NonTerminals()

	// Every (p, A) for which GOTO(p, A) is defined is a node of the Read and
	// Follow digraphs.
	var nodes []NTPair
	gotoOf := map[NTPair]string{}
	for _, pName := range collection.Elements() {
		I := collection.Get(pName)
		for _, A := range nonTerms {
			r := gPrime.LR0_GOTO(I, A)
			if r.Empty() {
				continue
			}
			pair := NTPair{State: pName, Sym: A}
			nodes = append(nodes, pair)
			gotoOf[pair] = r.StringOrdered()
		}
	}

	// DR(p, A): terminals immediately shiftable in GOTO(p, A), plus the
	// end-of-input marker when that state contains the completed item for
	// the augmented start production (the automaton has no real transition
	// on end-of-input, since it is not a grammar symbol to GOTO over).
	dr := make(map[NTPair]util.StringSet, len(nodes))
	for _, pair := range nodes {
		r := collection.Get(gotoOf[pair])
		set := util.NewStringSet()
		for _, name := range r.Elements() {
			item := r.Get(name)
			if len(item.Right) == 0 {
				if item.NonTerminal == gPrime.StartSymbol() {
					set.Add(grammar.EndOfInput)
				}
				continue
			}
			if item.Right[0] != grammar.Epsilon[0] && gPrime.IsTerminal(item.Right[0]) {
				set.Add(item.Right[0])
			}
		}
		dr[pair] = set
	}

	// READS: (p,A) reads (r,C) when r = GOTO(p,A) and C is a nullable
	// non-terminal with GOTO(r,C) defined.
	reads := make(map[NTPair][]NTPair, len(nodes))
	for _, pair := range nodes {
		r := gotoOf[pair]
		rI := collection.Get(r)
		for _, C := range nonTerms {
			if !gPrime.Nullable(C) {
				continue
			}
			if gPrime.LR0_GOTO(rI, C).Empty() {
				continue
			}
			reads[pair] = append(reads[pair], NTPair{State: r, Sym: C})
		}
	}

	read := digraph(nodes, reads, dr)

	// INCLUDES: (p,A) includes (p',B) when some production B -> βAγ has γ
	// nullable (possibly empty) and GOTO(p', β) = p.
	includes := make(map[NTPair][]NTPair, len(nodes))
	for _, pd := range gPrime.Productions() {
		rhs := pd.Rule
		for i, sym := range rhs {
			if !gPrime.IsNonTerminal(sym) {
				continue
			}
			if !allNullable(gPrime, rhs[i+1:]) {
				continue
			}
			beta := rhs[:i]
			for _, pName := range collection.Elements() {
				pI := collection.Get(pName)
				landed := gotoSeq(gPrime, pI, beta)
				if landed.Empty() {
					continue
				}
				target := NTPair{State: landed.StringOrdered(), Sym: sym}
				if _, ok := gotoOf[target]; !ok {
					continue
				}
				source := NTPair{State: pName, Sym: pd.NonTerminal}
				if _, ok := gotoOf[source]; !ok {
					continue
				}
				includes[target] = append(includes[target], source)
			}
		}
	}

	follow := digraph(nodes, includes, read)

	// LOOKBACK(q, [A -> ω.]): every (p, A) such that GOTO(p, ω) = q. LA(q,
	// [A -> ω.]) is then the union of Follow over that set.
	lookaheads := map[string]util.StringSet{}
	for _, qName := range collection.Elements() {
		q := collection.Get(qName)
		for _, name := range q.Elements() {
			item := q.Get(name)
			if !isCompletedItem(item) {
				continue
			}
			omega := completedRule(item)

			var lookback []NTPair
			if len(omega) == 0 {
				pair := NTPair{State: qName, Sym: item.NonTerminal}
				if _, ok := gotoOf[pair]; ok {
					lookback = append(lookback, pair)
				}
			} else {
				for _, pName := range collection.Elements() {
					pI := collection.Get(pName)
					landed := gotoSeq(gPrime, pI, omega)
					if landed.Empty() || landed.StringOrdered() != qName {
						continue
					}
					pair := NTPair{State: pName, Sym: item.NonTerminal}
					if _, ok := gotoOf[pair]; ok {
						lookback = append(lookback, pair)
					}
				}
			}

			la := util.NewStringSet()
			for _, pair := range lookback {
				la.AddAll(follow[pair])
			}

			lookaheads[qName+"\x00"+item.String()] = la
		}
	}

	return &Tables{
		Augmented:  gPrime,
		States:     collection,
		Start:      start,
		lookaheads: lookaheads,
	}, nil
}

func allNullable(g grammar.Grammar, syms []string) bool {
	for _, s := range syms {
		if !g.Nullable(s) {
			return false
		}
	}
	return true
}
