package lex

import (
	"fmt"

	"github.com/finrow/marlin/types"
)

// lexerClass is the TokenClass implementation handed back by AddClass's
// caller-facing helpers for use with this package's lexer.
type lexerClass struct {
	id   string
	name string
}

func (lc lexerClass) ID() string {
	return lc.id
}

func (lc lexerClass) Human() string {
	return lc.name
}

func (lc lexerClass) Equal(o any) bool {
	other, ok := o.(types.TokenClass)
	if !ok {
		otherPtr, ok := o.(*types.TokenClass)
		if !ok {
			return false
		}
		if otherPtr == nil {
			return false
		}
		other = *otherPtr
	}

	return other.ID() == lc.ID()
}

// NewTokenClass builds a TokenClass suitable for AddClass, with id used
// unchanged both as the grammar-facing terminal name and as the comparison
// key.
func NewTokenClass(id string, human string) types.TokenClass {
	return lexerClass{id: id, name: human}
}

// Token is the concrete types.Token produced by this package's Lexer: a
// lexeme plus its class, an application Value (the lexeme itself unless an
// Action.Transform overrides it), and the position metadata needed for
// error reporting.
type Token struct {
	class    types.TokenClass
	value    any
	lexeme   string
	index    int
	end      int
	line     int
	linePos  int
	fullLine string
}

func (t Token) Class() types.TokenClass { return t.class }
func (t Token) Lexeme() string          { return t.lexeme }
func (t Token) Value() any              { return t.value }
func (t Token) Index() int              { return t.index }
func (t Token) End() int                { return t.end }
func (t Token) Line() int               { return t.line }
func (t Token) LinePos() int            { return t.linePos }
func (t Token) FullLine() string        { return t.fullLine }

func (t Token) String() string {
	id := "?"
	if t.class != nil {
		id = t.class.ID()
	}
	return fmt.Sprintf("(%s %q)", id, t.lexeme)
}
