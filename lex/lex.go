// Package lex implements a regex-driven lexer runtime in the style of a
// yacc-family lex generator: declared patterns (plus a single-character
// ignore set and literal characters) are compiled, per lexer state, into one
// master alternation regex whose named groups preserve declaration order,
// so that on every match the earliest-declared pattern that can match wins
// ties the way a hand-written longest-first lexer would.
package lex

import (
	"fmt"
	"io"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/finrow/marlin/types"
)

type patAct struct {
	src string
	act Action
}

// compiledState is the built master alternation regex for one lexer state,
// plus the action list its named groups map back to, in declaration order.
type compiledState struct {
	re    *regexp.Regexp
	order []Action
}

// Lexer is a reusable collection of lexer states (patterns, classes, the
// ignore set) used to produce independent token streams via Lex/Tokenize.
// It is safe to call Lex/Tokenize from a single Lexer multiple times; each
// call gets its own cursor and state stack.
type Lexer struct {
	patterns   map[string][]patAct
	classes    map[string]map[string]types.TokenClass
	ignore     map[rune]bool
	compiled   map[string]*compiledState
	startState string

	errorHook func(remaining string, index int) (skip int, emit *Token)
	eofHook   func() (more string, ok bool)
}

// NewLexer returns an empty Lexer with no patterns, classes, or states
// defined. The empty string is the default/start state unless SetStartState
// is called.
func NewLexer() *Lexer {
	return &Lexer{
		patterns: map[string][]patAct{},
		classes:  map[string]map[string]types.TokenClass{},
		ignore:   map[rune]bool{},
		compiled: map[string]*compiledState{},
	}
}

// AddClass adds the given token class to the lexer, making it available for
// use in the ClassID of an Action passed to AddPattern for the same state.
// If a class with the same ID already exists for forState, it is replaced.
func (lx *Lexer) AddClass(cl types.TokenClass, forState string) {
	stateClasses, ok := lx.classes[forState]
	if !ok {
		stateClasses = map[string]types.TokenClass{}
	}
	stateClasses[cl.ID()] = cl
	lx.classes[forState] = stateClasses
}

// AddPattern adds a regex pattern and its Action to forState, in the order
// patterns are added; declaration order determines which pattern wins when
// more than one can match the same text (earlier declarations win).
func (lx *Lexer) AddPattern(pat string, action Action, forState string) error {
	stateClasses := lx.classes[forState]

	if _, err := regexp.Compile(pat); err != nil {
		return fmt.Errorf("cannot compile regex: %w", err)
	}

	if action.Type == ActionScan {
		if _, ok := stateClasses[action.ClassID]; !ok {
			return fmt.Errorf("%q is not a defined token class on this lexer; add it with AddClass first", action.ClassID)
		}
	}
	if action.StateOp == StateBegin || action.StateOp == StatePush {
		if action.State == "" {
			return fmt.Errorf("action includes state shift but does not define state to shift to (cannot shift to empty state)")
		}
	}

	lx.patterns[forState] = append(lx.patterns[forState], patAct{src: pat, act: action})
	lx.compiled[forState] = nil

	return nil
}

// AddLiteral registers a single rune as its own terminal: a class whose ID
// is the rune's string form is added (if not already present) and a pattern
// matching exactly that rune is appended to forState.
func (lx *Lexer) AddLiteral(ch rune, forState string) error {
	id := string(ch)
	if _, ok := lx.classes[forState][id]; !ok {
		lx.AddClass(NewTokenClass(id, id), forState)
	}
	return lx.AddPattern(regexp.QuoteMeta(id), LexAs(id), forState)
}

// SetIgnoreChars installs a single-character fast-path ignore set: runs of
// these runes are skipped between tokens without ever reaching the master
// regex. Typical use is plain whitespace that carries no other meaning.
func (lx *Lexer) SetIgnoreChars(chars string) {
	for _, r := range chars {
		lx.ignore[r] = true
	}
}

// SetStartState sets the lexer state a fresh token stream begins in.
func (lx *Lexer) SetStartState(s string) {
	lx.startState = s
}

// StartState returns the configured start state.
func (lx *Lexer) StartState() string {
	return lx.startState
}

// OnError installs a hook invoked when no pattern in the active state
// matches at the current position. remaining is everything left unconsumed
// and index is its absolute byte offset. The hook returns how many bytes of
// remaining to skip (0 for none) and, optionally, a token to emit in place
// of the default single-rune error token.
func (lx *Lexer) OnError(hook func(remaining string, index int) (skip int, emit *Token)) {
	lx.errorHook = hook
}

// OnEOF installs a hook invoked when the input is exhausted, before the
// end-of-text token is produced. If the hook returns ok=true with non-empty
// text, that text is appended to the input and lexing continues.
func (lx *Lexer) OnEOF(hook func() (more string, ok bool)) {
	lx.eofHook = hook
}

func (lx *Lexer) compile(state string) (*compiledState, error) {
	if cs, ok := lx.compiled[state]; ok && cs != nil {
		return cs, nil
	}

	pats := lx.patterns[state]
	if len(pats) == 0 {
		cs := &compiledState{}
		lx.compiled[state] = cs
		return cs, nil
	}

	parts := make([]string, len(pats))
	order := make([]Action, len(pats))
	for i, p := range pats {
		parts[i] = fmt.Sprintf("(?P<p%d>%s)", i, p.src)
		order[i] = p.act
	}

	re, err := regexp.Compile(`\A(?:` + strings.Join(parts, "|") + `)`)
	if err != nil {
		return nil, fmt.Errorf("compiling master regex for state %q: %w", state, err)
	}

	cs := &compiledState{re: re, order: order}
	lx.compiled[state] = cs
	return cs, nil
}

// matchAction returns the Action belonging to whichever named group
// actually participated in the match described by loc, found via the
// regex's own SubexpNames rather than positional counting so that
// capturing groups inside a user-supplied pattern don't throw off the
// mapping back to declaration order.
func (cs *compiledState) matchAction(loc []int) Action {
	names := cs.re.SubexpNames()
	for i, name := range names {
		if name == "" || 2*i+1 >= len(loc) || loc[2*i] < 0 {
			continue
		}
		var idx int
		if _, err := fmt.Sscanf(name, "p%d", &idx); err == nil && idx >= 0 && idx < len(cs.order) {
			return cs.order[idx]
		}
	}
	return Action{}
}

// Lex reads all of r and returns a lazy token stream over it.
func (lx *Lexer) Lex(r io.Reader) (types.TokenStream, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading lexer input: %w", err)
	}
	return lx.Tokenize(string(data))
}

// Tokenize returns a lazy token stream over text: the text is held in full,
// but each token is matched only when the stream is advanced.
func (lx *Lexer) Tokenize(text string) (types.TokenStream, error) {
	for state := range lx.patterns {
		if _, err := lx.compile(state); err != nil {
			return nil, err
		}
	}
	if _, ok := lx.compiled[lx.startState]; !ok {
		if _, err := lx.compile(lx.startState); err != nil {
			return nil, err
		}
	}

	return &stream{
		lx:      lx,
		buf:     text,
		line:    1,
		linePos: 1,
		state:   lx.startState,
	}, nil
}

// stream is the per-parse cursor over a Lexer's configured states: it is
// the lazy types.TokenStream handed back by Lex/Tokenize.
type stream struct {
	lx  *Lexer
	buf string

	index   int
	line    int
	linePos int
	state   string
	stack   []string

	done     bool
	peeked   *types.Token
	hasPeek  bool
}

func (s *stream) Next() types.Token {
	if s.hasPeek {
		t := *s.peeked
		s.hasPeek = false
		s.peeked = nil
		return t
	}
	return s.next()
}

func (s *stream) Peek() types.Token {
	if !s.hasPeek {
		t := s.next()
		s.peeked = &t
		s.hasPeek = true
	}
	return *s.peeked
}

func (s *stream) HasNext() bool {
	return s.hasPeek || !s.done
}

func (s *stream) next() types.Token {
	for {
		for s.index < len(s.buf) {
			r, sz := utf8.DecodeRuneInString(s.buf[s.index:])
			if !s.lx.ignore[r] {
				break
			}
			s.index += sz
			s.linePos++
		}

		if s.index >= len(s.buf) {
			if s.lx.eofHook != nil {
				if more, ok := s.lx.eofHook(); ok && more != "" {
					s.buf += more
					continue
				}
			}
			s.done = true
			return Token{
				class:    types.TokenEndOfText,
				index:    s.index,
				end:      s.index,
				line:     s.line,
				linePos:  s.linePos,
				fullLine: s.fullLineAt(s.index),
			}
		}

		cs, err := s.lx.compile(s.state)
		if err != nil || cs.re == nil {
			return s.lexError()
		}

		loc := cs.re.FindStringSubmatchIndex(s.buf[s.index:])
		if loc == nil {
			return s.lexError()
		}

		matched := s.buf[s.index : s.index+loc[1]]
		act := cs.matchAction(loc)

		tok, emitted := s.apply(act, matched)
		if emitted {
			return tok
		}
	}
}

// apply advances the stream past matched according to act, performing any
// state transition and line-counting it requests, and returns the token to
// emit (if any).
func (s *stream) apply(act Action, matched string) (Token, bool) {
	startIndex := s.index
	startLine := s.line
	startLinePos := s.linePos

	value := any(matched)
	discard := act.Type != ActionScan
	if act.Transform != nil {
		var overrideDiscard bool
		value, overrideDiscard = act.Transform(matched)
		discard = discard || overrideDiscard
	}

	classID := act.ClassID
	if act.Remap != nil {
		if remapped, ok := act.Remap[matched]; ok {
			classID = remapped
		}
	}

	s.index += len(matched)
	if act.CountNewlines {
		n := strings.Count(matched, "\n")
		if n > 0 {
			s.line += n
			s.linePos = len(matched) - strings.LastIndexByte(matched, '\n')
		} else {
			s.linePos += utf8.RuneCountInString(matched)
		}
	} else {
		s.linePos += utf8.RuneCountInString(matched)
	}

	cls := s.lx.classFor(s.state, classID)

	switch act.StateOp {
	case StateBegin:
		s.state = act.State
	case StatePush:
		s.stack = append(s.stack, s.state)
		s.state = act.State
	case StatePop:
		if n := len(s.stack); n > 0 {
			s.state = s.stack[n-1]
			s.stack = s.stack[:n-1]
		}
	}

	if discard {
		return Token{}, false
	}

	return Token{
		class:    cls,
		value:    value,
		lexeme:   matched,
		index:    startIndex,
		end:      startIndex + len(matched),
		line:     startLine,
		linePos:  startLinePos,
		fullLine: s.fullLineAt(startIndex),
	}, true
}

func (lx *Lexer) classFor(state, id string) types.TokenClass {
	if cl, ok := lx.classes[state][id]; ok {
		return cl
	}
	if cl, ok := lx.classes[""][id]; ok {
		return cl
	}
	return NewTokenClass(id, id)
}

// fullLineAt returns the full text of the line containing absolute byte
// offset idx, computed directly from the buffer rather than from the
// stream's own (opt-in) line counter.
func (s *stream) fullLineAt(idx int) string {
	if idx > len(s.buf) {
		idx = len(s.buf)
	}
	start := strings.LastIndexByte(s.buf[:idx], '\n') + 1
	rel := strings.IndexByte(s.buf[idx:], '\n')
	end := len(s.buf)
	if rel >= 0 {
		end = idx + rel
	}
	return s.buf[start:end]
}

// lexError handles the no-pattern-matched case: it defers to the lexer's
// error hook if one is set, or otherwise emits a single-rune error token and
// advances past it so the stream always makes forward progress.
func (s *stream) lexError() types.Token {
	remaining := s.buf[s.index:]

	if s.lx.errorHook != nil {
		skip, emit := s.lx.errorHook(remaining, s.index)
		if skip > len(remaining) {
			skip = len(remaining)
		}
		if skip > 0 {
			s.advanceRaw(remaining[:skip])
		}
		if emit != nil {
			return *emit
		}
		if skip > 0 {
			return s.next()
		}
	}

	r, sz := utf8.DecodeRuneInString(remaining)
	if sz == 0 {
		sz = 1
	}
	tok := Token{
		class:    types.TokenError,
		value:    remaining,
		lexeme:   string(r),
		index:    s.index,
		end:      s.index + sz,
		line:     s.line,
		linePos:  s.linePos,
		fullLine: s.fullLineAt(s.index),
	}
	s.advanceRaw(remaining[:sz])
	return tok
}

func (s *stream) advanceRaw(consumed string) {
	s.index += len(consumed)
	n := strings.Count(consumed, "\n")
	if n > 0 {
		s.line += n
		s.linePos = len(consumed) - strings.LastIndexByte(consumed, '\n')
	} else {
		s.linePos += utf8.RuneCountInString(consumed)
	}
}
