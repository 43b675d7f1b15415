package parse

import "fmt"

// Production is the view of a reduced grammar rule handed to a semantic
// action (spec §3's "YaccProduction"): the values already synthesized for
// each right-hand-side symbol, reachable positionally (yacc's $1, $2, ...)
// or by the symbol's declared name, plus the source span the production
// covers.
type Production struct {
	// Values holds one entry per right-hand-side symbol, in left-to-right
	// order, each either a token's Value() (for a terminal) or whatever a
	// prior Action returned (for a non-terminal).
	Values []any

	names map[string][]int

	// Lineno is the 1-indexed line the production starts on.
	Lineno int

	// Index is the absolute byte offset the production starts at.
	Index int

	// End is the absolute byte offset one past the production's last byte.
	End int

	errok   *bool
	restart *bool
}

// Get returns the value synthesized for the i'th right-hand-side symbol,
// 0-indexed (yacc's $1 is Get(0)). Returns nil if i is out of range.
func (p *Production) Get(i int) any {
	if i < 0 || i >= len(p.Values) {
		return nil
	}
	return p.Values[i]
}

// GetNamed returns the value(s) synthesized for every occurrence of symbol
// sym on the right-hand side, in left-to-right order. When sym occurs more
// than once, the individual occurrences are also reachable by appending
// their 0-indexed occurrence number to the name (e.g. "expr0", "expr1").
func (p *Production) GetNamed(sym string) []any {
	idxs, ok := p.names[sym]
	if !ok {
		return nil
	}
	vals := make([]any, len(idxs))
	for i, idx := range idxs {
		vals[i] = p.Values[idx]
	}
	return vals
}

// Len returns the number of right-hand-side symbols in the production.
func (p *Production) Len() int {
	return len(p.Values)
}

// Errok tells the parser that the error it is currently recovering from
// should be considered handled: the next token is accepted as though
// three clean shifts had already occurred. Has no effect outside of an
// error-recovery production's action.
func (p *Production) Errok() {
	if p.errok != nil {
		*p.errok = true
	}
}

// Restart discards every state pushed so far and resumes parsing from the
// parser's initial state with the current lookahead token, the way yacc's
// yyerrok/yyclearin-adjacent "restart" primitive does.
func (p *Production) Restart() {
	if p.restart != nil {
		*p.restart = true
	}
}

// buildNames maps each right-hand-side symbol of a production to the
// indices it occupies. When sym occurs only once, it is reachable by its
// bare name; when it occurs more than once, every occurrence is reachable
// only by its disambiguated name, suffixed 0, 1, 2, ... in left-to-right
// order (spec §3 "YaccProduction"), and the bare name maps to the full set
// of indices for GetNamed.
func buildNames(rhs []string) map[string][]int {
	counts := make(map[string]int, len(rhs))
	for _, sym := range rhs {
		counts[sym]++
	}

	names := make(map[string][]int, len(rhs))
	occurrence := make(map[string]int, len(rhs))
	for i, sym := range rhs {
		names[sym] = append(names[sym], i)
		if counts[sym] > 1 {
			suffixed := fmt.Sprintf("%s%d", sym, occurrence[sym])
			occurrence[sym]++
			names[suffixed] = []int{i}
		}
	}

	return names
}

// Action is a semantic action bound to a production. It is invoked at
// reduce time with the values already synthesized for the right-hand
// side and returns the value synthesized for the left-hand side (yacc's
// $$), or an error to abort the parse outright.
type Action func(p *Production) (any, error)
