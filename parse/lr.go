package parse

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/finrow/marlin/automaton"
	"github.com/finrow/marlin/grammar"
	"github.com/finrow/marlin/icterrors"
	"github.com/finrow/marlin/internal/util"
	"github.com/finrow/marlin/types"
)

// LRParseTable is a table of information passed to an LR parser. These will be
// generated from a grammar for the purposes of performing bottom-up parsing.
type LRParseTable interface {
	// Initial returns the initial state of the parse table, if that is
	// applicable for the table.
	Initial() string

	// Action gets the next action to take based on a state i and terminal a.
	Action(state, symbol string) LRAction

	// Goto maps a state and a grammar symbol to some other state.
	Goto(state, symbol string) (string, error)

	// String prints a string representation of the table. If two LRParseTables
	// produce the same String() output, they are considered equal.
	String() string

	// GetDFA returns the DFA simulated by the table. Some tables may in fact
	// be the DFA itself along with supplementary info.
	GetDFA() automaton.DFA[string]
}

// Position is the source span a synthesized value covers.
type Position struct {
	Lineno int
	Index  int
	End    int
}

// Parser is a table-driven LALR(1) shift-reduce parser (spec §4.3/§4.5): it
// drives an LRParseTable over a token stream, invoking a bound Action at
// every reduce and recovering from syntax errors the way yacc-generated
// parsers do, via the reserved "error" terminal.
type Parser struct {
	table     LRParseTable
	parseType types.ParserType
	gram      grammar.Grammar
	trace     func(s string)

	actions   map[int]Action
	errorHook func(tok types.Token)
	eofHook   func()

	positions map[uintptr]Position
}

// NewParser wraps table (built for g) in a Parser ready to have Actions
// bound to it via Bind/BindRule.
func NewParser(table LRParseTable, g grammar.Grammar) *Parser {
	return &Parser{
		table:     table,
		parseType: types.ParserLALR1,
		gram:      g,
		actions:   map[int]Action{},
		positions: map[uintptr]Position{},
	}
}

// Bind registers action as the semantic action to invoke when the parser
// reduces by the production with the given index (grammar.ProductionDef.Index).
func (p *Parser) Bind(productionIndex int, action Action) {
	p.actions[productionIndex] = action
}

// BindRule looks up the production lhs -> rhs in the bound grammar and
// registers action for it. Returns an error if no such production exists.
func (p *Parser) BindRule(lhs string, rhs []string, action Action) error {
	pd, ok := findProductionDef(p.gram, lhs, grammar.Production(rhs))
	if !ok {
		return fmt.Errorf("no production %s -> %s in grammar", lhs, grammar.Production(rhs).String())
	}
	p.Bind(pd.Index, action)
	return nil
}

// OnError registers a hook invoked with the offending token when the parser
// enters error recovery (spec §4.5's "error(tok)"). It fires once per
// recovery window: further errors before three clean shifts do not call it.
func (p *Parser) OnError(hook func(tok types.Token)) {
	p.errorHook = hook
}

// OnEOF registers a hook invoked if error recovery runs off the end of the
// token stream without resynchronizing (spec §4.5's "eof()").
func (p *Parser) OnEOF(hook func()) {
	p.eofHook = hook
}

// PositionOf returns the source span a previously-synthesized value
// covers, if v is a reference-typed result (pointer, slice, map, or
// channel) that was produced by one of this Parser's Actions. The zero
// Position and false are returned for any other value, including nil and
// plain value types, since those cannot be used as map keys by identity.
func (p *Parser) PositionOf(v any) (Position, bool) {
	addr, ok := refAddr(v)
	if !ok {
		return Position{}, false
	}
	pos, ok := p.positions[addr]
	return pos, ok
}

func (p *Parser) recordPosition(v any, pos Position) {
	addr, ok := refAddr(v)
	if !ok {
		return
	}
	p.positions[addr] = pos
}

// refAddr returns the identity address of v's underlying storage, for the
// kinds of values that have one.
func refAddr(v any) (uintptr, bool) {
	if v == nil {
		return 0, false
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Ptr, reflect.Map, reflect.Chan, reflect.UnsafePointer:
		if rv.IsNil() {
			return 0, false
		}
		return rv.Pointer(), true
	case reflect.Slice:
		if rv.IsNil() {
			return 0, false
		}
		return rv.Pointer(), true
	default:
		return 0, false
	}
}

func (p *Parser) GetDFA() *automaton.DFA[string] {
	dfa := p.table.GetDFA()
	return &dfa
}

func (p *Parser) RegisterTraceListener(listener func(s string)) {
	p.trace = listener
}

func (p *Parser) Type() types.ParserType {
	return p.parseType
}

func (p *Parser) TableString() string {
	return p.table.String()
}

func (p Parser) notifyTraceFn(fn func() string) {
	if p.trace != nil {
		p.trace(fn())
	}
}

func (p Parser) notifyTrace(fmtStr string, args ...interface{}) {
	p.notifyTraceFn(func() string { return fmt.Sprintf(fmtStr, args...) })
}

func (p Parser) notifyStatePeek(s string) {
	p.notifyTrace("states.peek(): %s", s)
}

func (p Parser) notifyStatePush(s string) {
	p.notifyTrace("states.push(): %s", s)
}

func (p Parser) notifyStatePop(s string) {
	if s == "" {
		p.notifyTrace("states.pop()")
	} else {
		p.notifyTrace("states.pop(): %s", s)
	}
}

func (p Parser) notifyAction(act LRAction) {
	p.notifyTrace("Action: %s", act.Type.String())
}

func (p Parser) notifyNextToken(tok types.Token) {
	p.notifyTrace("Got next token: %s", tok.String())
}

func (p Parser) notifyTokenStack(st util.Stack[types.Token]) {
	p.notifyTraceFn(func() string {
		var lexStr strings.Builder
		var tokStr strings.Builder
		for i := range st.Of {
			tok := st.Of[i]
			lexStr.WriteRune('"')
			lexStr.WriteString(tok.Lexeme())
			lexStr.WriteRune('"')

			tokStr.WriteString(strings.ToUpper(tok.Class().ID()))

			if i+1 < len(st.Of) {
				lexStr.WriteString(", ")
				tokStr.WriteString(", ")
			}
		}
		if st.Empty() {
			lexStr.WriteString("(empty)")
			tokStr.WriteString("(empty)")
		}

		str := fmt.Sprintf("Token stack (lexed): %s", lexStr.String())
		str += "\n"
		str += fmt.Sprintf("Token stack (ttype): %s", tokStr.String())

		return str
	})
}

// recoverySession tracks the yacc 3-shift recovery rule across the life of
// a single Parse call; it lives on the stack rather than on Parser so each
// Parse call starts with a fresh recovery state.
type recoverySession struct {
	active      bool
	cleanShifts int
	lastErr     error
}

// Parse drives the bound table over stream, invoking registered Actions at
// each reduce and returning the value synthesized for the grammar's start
// symbol (spec §4.3). On an unrecoverable syntax error it returns the
// *icterrors.SyntaxError describing the first error encountered.
//
// This is an implementation of Algorithm 4.44, "LR-parsing algorithm", from
// the purple dragon book, extended with yacc-style error recovery (spec
// §4.5): on a syntax error, states are popped until one has a valid shift
// on the reserved "error" terminal, then input is discarded until one token
// lets parsing resume; a bound Action may call Production.Errok to consider
// the error already handled, or Production.Restart to reset to the initial
// state outright.
func (p *Parser) Parse(stream types.TokenStream) (any, error) {
	stateStack := util.Stack[string]{Of: []string{p.table.Initial()}}
	tokenBuffer := util.Stack[types.Token]{}
	valueStack := util.Stack[any]{}
	posStack := util.Stack[Position]{}
	// kindStack tracks, one entry per stateStack frame above the bottom,
	// whether that frame came from a terminal shift (true, and so has a
	// matching tokenBuffer entry) or a reduce's goto (false). Error
	// recovery pops an arbitrary number of frames and needs this to keep
	// tokenBuffer in step without assuming anything about production shape.
	kindStack := util.Stack[bool]{}

	var rec recoverySession

	a := stream.Next()
	p.notifyNextToken(a)

	for {
		p.notifyTokenStack(tokenBuffer)

		s := stateStack.Peek()
		p.notifyStatePeek(s)

		ACTION := p.table.Action(s, a.Class().ID())
		p.notifyAction(ACTION)

		switch ACTION.Type {
		case LRShift:
			tokenBuffer.Push(a)
			valueStack.Push(a.Value())
			posStack.Push(Position{Lineno: a.Line(), Index: a.Index(), End: a.End()})

			t := ACTION.State
			stateStack.Push(t)
			kindStack.Push(true)
			p.notifyStatePush(t)

			if rec.active {
				rec.cleanShifts++
				if rec.cleanShifts >= 3 {
					rec.active = false
					rec.cleanShifts = 0
				}
			}

			a = stream.Next()
			p.notifyNextToken(a)
		case LRReduce:
			A := ACTION.Symbol
			beta := ACTION.Production
			n := len(beta)

			values := make([]any, n)
			positions := make([]Position, n)
			for i := n - 1; i >= 0; i-- {
				values[i] = valueStack.Pop()
				positions[i] = posStack.Pop()
				stateStack.Pop()
				p.notifyStatePop("")

				if kindStack.Pop() {
					tokenBuffer.Pop()
				}
			}

			var errokCalled, restartCalled bool
			prod := &Production{
				Values:  values,
				names:   buildNames(beta),
				errok:   &errokCalled,
				restart: &restartCalled,
			}
			if n > 0 {
				prod.Lineno = positions[0].Lineno
				prod.Index = positions[0].Index
				prod.End = positions[n-1].End
			} else {
				prod.Lineno = a.Line()
				prod.Index = a.Index()
				prod.End = a.Index()
			}

			var result any
			if pd, ok := findProductionDef(p.gram, A, beta); ok {
				if action, bound := p.actions[pd.Index]; bound {
					var err error
					result, err = action(prod)
					if err != nil {
						return nil, err
					}
				}
			}

			if restartCalled {
				stateStack = util.Stack[string]{Of: []string{p.table.Initial()}}
				tokenBuffer = util.Stack[types.Token]{}
				valueStack = util.Stack[any]{}
				posStack = util.Stack[Position]{}
				kindStack = util.Stack[bool]{}
				rec = recoverySession{}
				continue
			}

			if errokCalled {
				rec.active = false
				rec.cleanShifts = 0
			}

			resultPos := Position{Lineno: prod.Lineno, Index: prod.Index, End: prod.End}
			valueStack.Push(result)
			posStack.Push(resultPos)
			p.recordPosition(result, resultPos)

			t := stateStack.Peek()
			p.notifyStatePeek(t)

			toPush, err := p.table.Goto(t, A)
			if err != nil {
				return nil, icterrors.NewSyntaxErrorFromToken(fmt.Sprintf("LR parsing error; DFA has no valid transition from here on %q", A), a)
			}
			stateStack.Push(toPush)
			kindStack.Push(false)
			p.notifyStatePush(toPush)
		case LRAccept:
			return valueStack.Pop(), nil
		case LRError:
			resumed, err := p.recover(&stateStack, &valueStack, &posStack, &kindStack, &tokenBuffer, &a, stream, &rec)
			if err != nil {
				return nil, err
			}
			if !resumed {
				return nil, rec.lastErr
			}
		}
	}
}

// recover implements yacc's error-recovery procedure: pop states until one
// accepts a shift on the reserved error terminal, push that shift, then
// discard lookahead tokens until one lets parsing resume. Returns
// (true, nil) when parsing can continue with the (possibly advanced) *a;
// (false, nil) is never returned without also setting rec.lastErr, which
// the caller treats as the fatal error to report.
func (p *Parser) recover(
	stateStack *util.Stack[string],
	valueStack *util.Stack[any],
	posStack *util.Stack[Position],
	kindStack *util.Stack[bool],
	tokenBuffer *util.Stack[types.Token],
	a *types.Token,
	stream types.TokenStream,
	rec *recoverySession,
) (bool, error) {
	tok := *a

	if !rec.active {
		expMessage := p.getExpectedString(stateStack.Peek())
		synErr := icterrors.NewSyntaxErrorFromToken(fmt.Sprintf("unexpected %s; %s", tok.Class().Human(), expMessage), tok)
		rec.lastErr = synErr
		if p.errorHook != nil {
			p.errorHook(tok)
		}
	}

	for {
		if stateStack.Len() == 0 {
			return false, nil
		}
		st := stateStack.Peek()
		act := p.table.Action(st, grammar.ErrorSymbol)
		if act.Type == LRShift {
			stateStack.Push(act.State)
			p.notifyStatePush(act.State)
			valueStack.Push(nil)
			posStack.Push(Position{Lineno: tok.Line(), Index: tok.Index(), End: tok.Index()})
			kindStack.Push(true)
			tokenBuffer.Push(tok)
			break
		}
		if stateStack.Len() <= 1 {
			return false, nil
		}
		stateStack.Pop()
		p.notifyStatePop("")
		valueStack.Pop()
		posStack.Pop()
		if kindStack.Pop() {
			tokenBuffer.Pop()
		}
	}

	for {
		if tok.Class().ID() == grammar.EndOfInput {
			if p.eofHook != nil {
				p.eofHook()
			}
			return false, nil
		}
		st := stateStack.Peek()
		if p.table.Action(st, tok.Class().ID()).Type != LRError {
			break
		}
		tok = stream.Next()
		p.notifyNextToken(tok)
	}

	*a = tok
	rec.active = true
	rec.cleanShifts = 0
	return true, nil
}

func (p Parser) getExpectedString(stateName string) string {
	expected := p.findExpectedTokens(stateName)

	var sb strings.Builder

	sb.WriteString("expected ")

	commas := false
	finalOr := false

	if len(expected) > 1 {
		finalOr = true
		if len(expected) > 2 {
			commas = true
		}
	}
	for i := range expected {
		t := expected[i]

		if i == 0 {
			sb.WriteString(util.ArticleFor(t.Human(), false))
			sb.WriteRune(' ')
		}

		if finalOr && i+1 == len(expected) {
			sb.WriteString(" or ")
		}

		sb.WriteString(t.Human())
		if commas && i+1 < len(expected) {
			sb.WriteString(", ")
		}
	}

	return sb.String()
}

// findExpectedTokens returns all token classes that are allowed/expected
// for the given state, that is, those symbols that result in a non-error
// entry.
func (p Parser) findExpectedTokens(stateName string) []types.TokenClass {
	terms := p.gram.Terminals()

	classes := make([]types.TokenClass, 0)
	for i := range terms {
		t := p.gram.Term(terms[i])
		act := p.table.Action(stateName, t.ID())
		if act.Type != LRError {
			classes = append(classes, t)
		}
	}

	return classes
}
