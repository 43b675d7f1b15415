package lex

// ActionType classifies what a matched pattern contributes to the token
// stream once the master alternation regex has picked it as the winning
// branch.
type ActionType int

const (
	// ActionDiscard means the matched text produces no token at all (a
	// whitespace or comment skip pattern).
	ActionDiscard ActionType = iota
	// ActionScan means the matched text is emitted as a token of ClassID.
	ActionScan
)

// StateOp describes a lexer state-stack operation a pattern's action may
// carry out in addition to scanning or discarding.
type StateOp int

const (
	// StateNone performs no state transition.
	StateNone StateOp = iota
	// StateBegin replaces the active state outright, with no push.
	StateBegin
	// StatePush saves the active state on the stack and switches to State.
	StatePush
	// StatePop restores the state on top of the stack, if any.
	StatePop
)

// Action binds a matched pattern to what the lexer does with the match: emit
// a token of some class, switch lexer state (begin/push_state/pop_state),
// both, or discard the match outright (ignore_-style skip patterns).
type Action struct {
	Type    ActionType
	ClassID string

	// Remap overrides ClassID when the exact matched lexeme is present as a
	// key, the mechanism behind keyword lookup (an identifier pattern that
	// remaps "if"/"else" lexemes to their own reserved-word classes instead
	// of the generic identifier class).
	Remap map[string]string

	// Transform, if set, receives the matched lexeme and returns the
	// token's Value and whether to discard the match outright regardless of
	// Type. A nil Transform defaults Value to the lexeme itself.
	Transform func(lexeme string) (value any, discard bool)

	// CountNewlines advances the lexer's line counter by the newlines
	// present in the matched lexeme before any token is produced. Line
	// tracking is otherwise left alone; only actions that opt in via this
	// flag affect Line()/LinePos() bookkeeping.
	CountNewlines bool

	StateOp StateOp
	State   string // target state for StateBegin/StatePush; unused by StatePop
}

// SwapState returns an Action that performs a bare state transition
// (begin(toState)) without producing a token.
func SwapState(toState string) Action {
	return Action{StateOp: StateBegin, State: toState}
}

// PushState returns an Action that saves the current state and switches to
// toState (push_state(toState)), without producing a token.
func PushState(toState string) Action {
	return Action{StateOp: StatePush, State: toState}
}

// PopState returns an Action that restores the previously pushed state
// (pop_state()), without producing a token.
func PopState() Action {
	return Action{StateOp: StatePop}
}

// LexAs returns an Action that emits a token of the given class.
func LexAs(classID string) Action {
	return Action{Type: ActionScan, ClassID: classID}
}

// LexAndSwapState returns an Action that emits a token of the given class
// and then begins newState.
func LexAndSwapState(classID string, newState string) Action {
	return Action{Type: ActionScan, ClassID: classID, StateOp: StateBegin, State: newState}
}

// LexAndPushState returns an Action that emits a token of the given class
// and then pushes the current state, switching to newState.
func LexAndPushState(classID string, newState string) Action {
	return Action{Type: ActionScan, ClassID: classID, StateOp: StatePush, State: newState}
}

// LexAndPopState returns an Action that emits a token of the given class and
// then pops back to the previously pushed state.
func LexAndPopState(classID string) Action {
	return Action{Type: ActionScan, ClassID: classID, StateOp: StatePop}
}

// Discard returns an Action that produces no token and performs no state
// transition, the plain "ignore_" skip pattern.
func Discard() Action {
	return Action{}
}

// DiscardAndCountNewlines returns a Discard action that also advances the
// lexer's line counter, the common "ignore_newline" pattern.
func DiscardAndCountNewlines() Action {
	return Action{CountNewlines: true}
}
