// Package grammar holds the normalized representation of a context-free
// grammar: terminals, non-terminals, productions, precedence/associativity,
// and the structural validation and FIRST/nullable fixed-point computations
// the LR0 and LALR engines build on. See spec §3, §4.1.
package grammar

import (
	"fmt"
	"sort"
	"strings"

	"github.com/finrow/marlin/icterrors"
	"github.com/finrow/marlin/internal/util"
	"github.com/finrow/marlin/types"
)

// Well-known symbol names (spec §3).
const (
	EndOfInput     = "$"
	ErrorSymbol    = "error"
	AugmentedStart = "S'"
)

// Associativity is the direction used to resolve a shift/reduce conflict
// between two productions (or a production and the current lookahead) at
// the same precedence level.
type Associativity int

const (
	AssocNone Associativity = iota
	AssocLeft
	AssocRight
	AssocNonAssoc
)

func (a Associativity) String() string {
	switch a {
	case AssocLeft:
		return "left"
	case AssocRight:
		return "right"
	case AssocNonAssoc:
		return "nonassoc"
	default:
		return "none"
	}
}

// PrecedenceLevel is one entry of the precedence table (spec §3): a set of
// terminals sharing an associativity, at a level relative to the other
// entries (later entries in Precedence bind tighter).
type PrecedenceLevel struct {
	Assoc     Associativity
	Terminals []string
}

// Production is the ordered sequence of RHS symbols of a grammar rule. A
// nil/empty Production represents an epsilon production (spec §3: "Length-
// zero RHS represents epsilon").
type Production []string

func (p Production) String() string {
	if len(p) == 0 {
		return "ε"
	}
	return strings.Join(p, " ")
}

// Equal compares two productions symbol-for-symbol.
func (p Production) Equal(o Production) bool {
	if len(p) != len(o) {
		return false
	}
	for i := range p {
		if p[i] != o[i] {
			return false
		}
	}
	return true
}

// Rule groups every production sharing a left-hand side, in declaration
// order. It exists mainly for convenient front-end construction and
// debug-dump formatting; the Grammar's canonical storage is the flat,
// indexed ProductionDef list.
type Rule struct {
	NonTerminal string
	Productions []Production
}

func (r Rule) String() string {
	alts := make([]string, len(r.Productions))
	for i, p := range r.Productions {
		alts[i] = p.String()
	}
	return fmt.Sprintf("%s -> %s", r.NonTerminal, strings.Join(alts, " | "))
}

// Equal compares two rules, including production order (priority matters:
// in a reduce/reduce conflict the earlier-declared production wins, spec §4.4).
func (r Rule) Equal(o Rule) bool {
	if r.NonTerminal != o.NonTerminal || len(r.Productions) != len(o.Productions) {
		return false
	}
	for i := range r.Productions {
		if !r.Productions[i].Equal(o.Productions[i]) {
			return false
		}
	}
	return true
}

// ProductionDef is a fully-resolved production: its index (production #0 is
// always the augmentation S' -> start), LHS, RHS, and effective precedence
// (spec §3 "Production").
type ProductionDef struct {
	Index        int
	NonTerminal  string
	Rule         Production
	PrecOverride string // %prec terminal, empty if none given
}

func (pd ProductionDef) String() string {
	return fmt.Sprintf("%s -> %s", pd.NonTerminal, pd.Rule.String())
}

type termPrec struct {
	level int // 1-based; 0 means "no precedence assigned"
	assoc Associativity
}

// Grammar is the normalized, validated grammar description the LR0 and
// LALR engines operate over. A zero-value Grammar is usable; build one with
// AddTerm/AddProduction/SetStart/SetPrecedence in any order, then call
// Validate before handing it to automaton/lalr/parse.
type Grammar struct {
	productions []ProductionDef
	ruleOrder   []string          // non-terminals in first-declared order
	rulesByHead map[string][]int  // non-terminal -> indices into productions
	terminals   []string          // insertion order
	termSet     map[string]bool
	termClasses map[string]types.TokenClass
	prec        map[string]termPrec // terminal -> (level, assoc)
	numPrecLvls int
	start       string
	startSet    bool
}

// AddTerm declares a terminal with the given TokenClass. If id was already
// declared, its class is replaced (grammar_test.go-style "last write wins"
// behavior carried from the teacher).
func (g *Grammar) AddTerm(id string, class types.TokenClass) {
	g.ensureInit()
	if !g.termSet[id] {
		g.termSet[id] = true
		g.terminals = append(g.terminals, id)
	}
	g.termClasses[id] = class
}

// AddTerminal is a convenience wrapper for AddTerm using a plain name as
// its own human-readable class (spec §4.1 "add_terminal(name, precedence?)").
func (g *Grammar) AddTerminal(name string) {
	g.AddTerm(name, types.MakeDefaultClass(name))
}

func (g *Grammar) ensureInit() {
	if g.rulesByHead == nil {
		g.rulesByHead = map[string][]int{}
	}
	if g.termSet == nil {
		g.termSet = map[string]bool{}
	}
	if g.termClasses == nil {
		g.termClasses = map[string]types.TokenClass{}
	}
	if g.prec == nil {
		g.prec = map[string]termPrec{}
	}
}

// SetPrecedence installs the precedence table, ordered lowest to highest
// (spec §3 "Precedence table"). Calling it more than once replaces the
// prior table.
func (g *Grammar) SetPrecedence(levels []PrecedenceLevel) {
	g.ensureInit()
	g.prec = map[string]termPrec{}
	for i, lvl := range levels {
		for _, t := range lvl.Terminals {
			g.prec[t] = termPrec{level: i + 1, assoc: lvl.Assoc}
		}
	}
	g.numPrecLvls = len(levels)
}

// TermPrecedence returns the (level, assoc) of terminal t and whether one
// was assigned. Level is 1-based; higher binds tighter.
func (g *Grammar) TermPrecedence(t string) (level int, assoc Associativity, ok bool) {
	p, ok := g.prec[t]
	if !ok || p.level == 0 {
		return 0, AssocNone, false
	}
	return p.level, p.assoc, true
}

// AddProduction adds lhs -> rhs (spec §4.1 "add_production"), optionally
// overriding its precedence with the %prec terminal precOverride (empty
// string for no override). Returns the new production's index; production
// indices start at 1 (index 0 is reserved for the augmentation, installed
// lazily by Augmented).
func (g *Grammar) AddProduction(lhs string, rhs []string, precOverride string) int {
	g.ensureInit()
	if !g.startSet {
		g.start = lhs
		g.startSet = true
	}
	if len(g.ruleOrder) == 0 || g.rulesByHead[lhs] == nil {
		if _, exists := g.rulesByHead[lhs]; !exists {
			g.ruleOrder = append(g.ruleOrder, lhs)
		}
	}
	idx := len(g.productions) + 1 // production 0 reserved for S' -> start
	rhsCopy := make(Production, len(rhs))
	copy(rhsCopy, rhs)
	pd := ProductionDef{Index: idx, NonTerminal: lhs, Rule: rhsCopy, PrecOverride: precOverride}
	g.productions = append(g.productions, pd)
	g.rulesByHead[lhs] = append(g.rulesByHead[lhs], len(g.productions)-1)
	return idx
}

// AddRule adds a single production under nonTerminal (grammar_test.go-style
// convenience used when iterating a parsed Rule's Productions).
func (g *Grammar) AddRule(nonTerminal string, p Production) int {
	return g.AddProduction(nonTerminal, p, "")
}

// SetStart overrides the start symbol. If never called, the start symbol
// defaults to the LHS of the first added production (spec §4.1).
func (g *Grammar) SetStart(symbol string) {
	g.start = symbol
	g.startSet = true
}

// StartSymbol returns the grammar's start non-terminal.
func (g *Grammar) StartSymbol() string {
	return g.start
}

// Terminals returns the declared terminal names in declaration order.
func (g *Grammar) Terminals() []string {
	out := make([]string, len(g.terminals))
	copy(out, g.terminals)
	return out
}

// NonTerminals returns every non-terminal (LHS) in first-declared order.
func (g *Grammar) NonTerminals() []string {
	out := make([]string, len(g.ruleOrder))
	copy(out, g.ruleOrder)
	return out
}

// IsTerminal reports whether sym was declared as a terminal, or is one of
// the reserved terminals ($end / error).
func (g *Grammar) IsTerminal(sym string) bool {
	if sym == EndOfInput || sym == ErrorSymbol {
		return true
	}
	return g.termSet[sym]
}

// IsNonTerminal reports whether sym is the LHS of some production.
func (g *Grammar) IsNonTerminal(sym string) bool {
	_, ok := g.rulesByHead[sym]
	return ok
}

// Term returns the TokenClass registered for terminal id, if any.
func (g *Grammar) Term(id string) types.TokenClass {
	if c, ok := g.termClasses[id]; ok {
		return c
	}
	return types.MakeDefaultClass(id)
}

// Productions returns every production in index order (1-based; see
// AddProduction).
func (g *Grammar) Productions() []ProductionDef {
	out := make([]ProductionDef, len(g.productions))
	copy(out, g.productions)
	return out
}

// ProductionsFor returns the productions declared for non-terminal lhs, in
// declaration order.
func (g *Grammar) ProductionsFor(lhs string) []ProductionDef {
	idxs := g.rulesByHead[lhs]
	out := make([]ProductionDef, len(idxs))
	for i, idx := range idxs {
		out[i] = g.productions[idx]
	}
	return out
}

// Rule returns the aggregated Rule for non-terminal lhs.
func (g *Grammar) Rule(lhs string) (Rule, bool) {
	idxs, ok := g.rulesByHead[lhs]
	if !ok {
		return Rule{}, false
	}
	r := Rule{NonTerminal: lhs}
	for _, idx := range idxs {
		r.Productions = append(r.Productions, g.productions[idx].Rule)
	}
	return r, true
}

// ProductionPrecedence returns the effective precedence of pd: its %prec
// override if given, else the precedence of the rightmost terminal in its
// RHS (spec §3 "Default precedence"), else (0, AssocNone, false).
func (g *Grammar) ProductionPrecedence(pd ProductionDef) (level int, assoc Associativity, ok bool) {
	if pd.PrecOverride != "" {
		return g.TermPrecedence(pd.PrecOverride)
	}
	for i := len(pd.Rule) - 1; i >= 0; i-- {
		sym := pd.Rule[i]
		if g.IsTerminal(sym) {
			if lvl, as, has := g.TermPrecedence(sym); has {
				return lvl, as, true
			}
			return 0, AssocNone, false
		}
	}
	return 0, AssocNone, false
}

// GenerateUniqueTerminal returns a terminal name starting with prefix that
// is not already used by any terminal or non-terminal in the grammar. Used
// both for fictitious precedence-only tokens (e.g. UMINUS, if the front end
// didn't declare one) and for naming non-terminals synthesized from
// embedded mid-rule actions (spec §9 Open Question).
func (g *Grammar) GenerateUniqueTerminal(prefix string) string {
	if !g.termSet[prefix] && !g.IsNonTerminal(prefix) {
		return prefix
	}
	for i := 0; ; i++ {
		candidate := fmt.Sprintf("%s%d", prefix, i)
		if !g.termSet[candidate] && !g.IsNonTerminal(candidate) {
			return candidate
		}
	}
}

// Augmented returns a copy of g with the augmentation production
// S' -> start prepended as production index 0, per spec §4.1/§3. S' is a
// freshly generated name distinct from every other symbol in g.
func (g *Grammar) Augmented() Grammar {
	primeName := AugmentedStart
	for g.IsNonTerminal(primeName) || g.termSet[primeName] {
		primeName += "'"
	}

	gPrime := Grammar{
		ruleOrder:   append([]string{primeName}, g.ruleOrder...),
		rulesByHead: map[string][]int{},
		terminals:   append([]string{}, g.terminals...),
		termSet:     map[string]bool{},
		termClasses: map[string]types.TokenClass{},
		prec:        map[string]termPrec{},
		numPrecLvls: g.numPrecLvls,
		start:       primeName,
		startSet:    true,
	}
	for k := range g.termSet {
		gPrime.termSet[k] = true
	}
	for k, v := range g.termClasses {
		gPrime.termClasses[k] = v
	}
	for k, v := range g.prec {
		gPrime.prec[k] = v
	}

	augProd := ProductionDef{Index: 0, NonTerminal: primeName, Rule: Production{g.start}}
	gPrime.productions = append(gPrime.productions, augProd)
	gPrime.rulesByHead[primeName] = []int{0}

	for _, pd := range g.productions {
		gPrime.productions = append(gPrime.productions, pd)
		gPrime.rulesByHead[pd.NonTerminal] = append(gPrime.rulesByHead[pd.NonTerminal], len(gPrime.productions)-1)
	}

	return gPrime
}

// String renders the grammar as one "LHS -> rhs | rhs" line per
// non-terminal, in declaration order, for reproducible debug dumps (spec
// §8 round-trip invariant: "Rebuilding tables from the same Grammar is
// deterministic").
func (g *Grammar) String() string {
	var sb strings.Builder
	for i, nt := range g.ruleOrder {
		r, _ := g.Rule(nt)
		sb.WriteString(r.String())
		if i+1 < len(g.ruleOrder) {
			sb.WriteRune('\n')
		}
	}
	return sb.String()
}

// Validate checks the structural invariants of spec §4.1: undefined
// symbols, unused terminals/non-terminals (warnings), and non-terminals
// that can never derive a terminal string (fatal). It returns nil only if
// there is no Fatal problem recorded.
func (g *Grammar) Validate() error {
	ge := &icterrors.GrammarError{}

	if len(g.terminals) == 0 {
		ge.Add(icterrors.Fatal, "grammar declares no terminals")
	}
	if len(g.productions) == 0 {
		ge.Add(icterrors.Fatal, "grammar declares no productions")
	}
	if ge.Fatal() {
		return ge.AsError()
	}

	// undefined symbols on some RHS
	usedTerms := map[string]bool{}
	usedNonTerms := map[string]bool{}
	for _, pd := range g.productions {
		for _, sym := range pd.Rule {
			if sym == "" {
				continue // epsilon marker slot, shouldn't occur but be defensive
			}
			switch {
			case g.termSet[sym]:
				usedTerms[sym] = true
			case g.IsNonTerminal(sym):
				usedNonTerms[sym] = true
			case sym == EndOfInput || sym == ErrorSymbol:
				// always valid
			default:
				ge.Add(icterrors.Fatal, "production %s: symbol %q is neither a declared terminal nor a non-terminal", pd.String(), sym)
			}
		}
	}

	// unused terminals/non-terminals (warnings)
	for _, t := range g.terminals {
		if !usedTerms[t] {
			ge.Add(icterrors.Warning, "terminal %q is declared but never used in any production", t)
		}
	}
	for _, nt := range g.ruleOrder {
		if nt == g.start {
			continue
		}
		if !usedNonTerms[nt] {
			ge.Add(icterrors.Warning, "non-terminal %q is declared but never used in any production", nt)
		}
	}

	// productivity: every non-terminal must derive SOME string of terminals
	// (possibly empty). Fixed point over "derivable" set, seeded by
	// productions whose RHS is entirely terminals/epsilon, then closed over
	// productions whose RHS symbols are all already known derivable.
	derivable := map[string]bool{}
	changed := true
	for changed {
		changed = false
		for _, pd := range g.productions {
			if derivable[pd.NonTerminal] {
				continue
			}
			ok := true
			for _, sym := range pd.Rule {
				if g.IsNonTerminal(sym) && !derivable[sym] {
					ok = false
					break
				}
			}
			if ok {
				derivable[pd.NonTerminal] = true
				changed = true
			}
		}
	}
	for _, nt := range g.ruleOrder {
		if !derivable[nt] {
			ge.Add(icterrors.Fatal, "non-terminal %q cannot derive any string of terminals (infinite recursion or unreachable productivity)", nt)
		}
	}

	return ge.AsError()
}

// Nullable reports whether sym can derive the empty string. Terminals are
// never nullable; $end and error are never nullable.
func (g *Grammar) Nullable(sym string) bool {
	return g.nullableSet()[sym]
}

func (g *Grammar) nullableSet() map[string]bool {
	nullable := map[string]bool{}
	changed := true
	for changed {
		changed = false
		for _, pd := range g.productions {
			if nullable[pd.NonTerminal] {
				continue
			}
			allNullable := true
			for _, sym := range pd.Rule {
				if !(g.IsNonTerminal(sym) && nullable[sym]) {
					allNullable = false
					break
				}
			}
			if allNullable {
				nullable[pd.NonTerminal] = true
				changed = true
			}
		}
	}
	return nullable
}

// First returns FIRST(X1 X2 ... Xn) for the given symbol sequence (spec
// §4.1): the union of FIRST(Xi) for each prefix of nullable symbols, plus
// FIRST of the first non-nullable symbol (or epsilon if the whole sequence
// is nullable).
func (g *Grammar) First(symbols ...string) util.StringSet {
	nullable := g.nullableSet()
	first := g.firstSets(nullable)

	result := util.NewStringSet()
	allNullableSoFar := true
	for _, sym := range symbols {
		if g.IsTerminal(sym) {
			result.Add(sym)
			allNullableSoFar = false
			break
		}
		result.AddAll(first[sym])
		if !nullable[sym] {
			allNullableSoFar = false
			break
		}
	}
	if allNullableSoFar {
		result.Add("") // epsilon
	}
	return result
}

// FirstOfSymbol returns FIRST(X) for a single grammar symbol X. For a
// nullable non-terminal, the returned set additionally contains "" (the
// epsilon marker).
func (g *Grammar) FirstOfSymbol(sym string) util.StringSet {
	if g.IsTerminal(sym) {
		return util.StringSetOf([]string{sym})
	}
	nullable := g.nullableSet()
	result := util.NewStringSet()
	result.AddAll(g.firstSets(nullable)[sym])
	if nullable[sym] {
		result.Add("")
	}
	return result
}

// firstSets computes FIRST(X) for every non-terminal X of g in one pass, as
// a fixed point over the productions (spec §4.1 "FIRST(X)"): FIRST(Yβ) =
// FIRST(Y) ∪ (FIRST(β) if Y nullable). The returned sets never contain the
// epsilon marker; nullability is tracked separately via nullable.
//
// This computes every non-terminal's set together rather than one symbol at
// a time with per-call memoization: a recursive per-symbol approach has to
// return *something* for a non-terminal it's already in the middle of
// computing (e.g. FIRST(B) depending on FIRST(A) depending on FIRST(B) for
// A -> B | a, B -> A | b), and memoizing that provisional, too-small answer
// before the mutual recursion has actually closed would permanently miss
// symbols first found on a later pass. Iterating the whole table to a
// fixed point, the same way nullableSet does, has no such premature-cutoff
// case: every pass can only add terminals, never remove them, so it
// converges on the true union regardless of cycle shape.
func (g *Grammar) firstSets(nullable map[string]bool) map[string]util.StringSet {
	first := make(map[string]util.StringSet, len(g.ruleOrder))
	for _, nt := range g.ruleOrder {
		first[nt] = util.NewStringSet()
	}

	changed := true
	for changed {
		changed = false
		for _, pd := range g.productions {
			before := first[pd.NonTerminal].Len()
			for _, sym := range pd.Rule {
				if g.IsTerminal(sym) {
					first[pd.NonTerminal].Add(sym)
					break
				}
				first[pd.NonTerminal].AddAll(first[sym])
				if !nullable[sym] {
					break
				}
			}
			if first[pd.NonTerminal].Len() != before {
				changed = true
			}
		}
	}

	return first
}

// sortedTerminals is a small helper used by debug-dump code that needs a
// deterministic terminal ordering distinct from declaration order.
func (g *Grammar) sortedTerminals() []string {
	out := append([]string{}, g.terminals...)
	sort.Strings(out)
	return out
}
