package lex

import (
	"strings"
	"testing"

	"github.com/finrow/marlin/types"
	"github.com/stretchr/testify/assert"
)

// collect drains stream to completion, excluding the trailing end-of-text
// token, returning one Token per produced token in order.
func collect(t *testing.T, stream types.TokenStream) []Token {
	t.Helper()
	var out []Token
	for {
		tok := stream.Next().(Token)
		if tok.Class().ID() == types.TokenEndOfText.ID() {
			break
		}
		out = append(out, tok)
	}
	return out
}

// identLexer builds the lexer from spec §8 scenario 5: an identifier
// pattern remapped to IF/ELSE keyword classes, whitespace ignored.
func identLexer(t *testing.T) *Lexer {
	t.Helper()
	lx := NewLexer()
	lx.SetIgnoreChars(" \t\n")
	lx.AddClass(NewTokenClass("ID", "identifier"), "")
	lx.AddClass(NewTokenClass("IF", "'if'"), "")
	lx.AddClass(NewTokenClass("ELSE", "'else'"), "")

	err := lx.AddPattern(`[a-zA-Z_][a-zA-Z0-9_]*`, Action{
		Type:    ActionScan,
		ClassID: "ID",
		Remap:   map[string]string{"if": "IF", "else": "ELSE"},
	}, "")
	assert.NoError(t, err)

	return lx
}

func Test_Lexer_KeywordRemap(t *testing.T) {
	lx := identLexer(t)

	stream, err := lx.Tokenize("if ifx else")
	assert.NoError(t, err)

	toks := collect(t, stream)
	assert.Len(t, toks, 3)

	assert.Equal(t, "IF", toks[0].Class().ID())
	assert.Equal(t, "ID", toks[1].Class().ID())
	assert.Equal(t, "ifx", toks[1].Value())
	assert.Equal(t, "ELSE", toks[2].Class().ID())
}

// Test_Lexer_DeclarationOrderWins covers spec §8 scenario 6: EQ declared
// before ASSIGN means "===" lexes as [EQ, ASSIGN], not [ASSIGN, ASSIGN, ASSIGN]
// or [ASSIGN, EQ].
func Test_Lexer_DeclarationOrderWins(t *testing.T) {
	lx := NewLexer()
	lx.AddClass(NewTokenClass("EQ", "'=='"), "")
	lx.AddClass(NewTokenClass("ASSIGN", "'='"), "")

	assert.NoError(t, lx.AddPattern(`==`, LexAs("EQ"), ""))
	assert.NoError(t, lx.AddPattern(`=`, LexAs("ASSIGN"), ""))

	stream, err := lx.Tokenize("===")
	assert.NoError(t, err)

	toks := collect(t, stream)
	assert.Len(t, toks, 2)
	assert.Equal(t, "EQ", toks[0].Class().ID())
	assert.Equal(t, "ASSIGN", toks[1].Class().ID())
}

// Test_Lexer_SpanRoundTrip covers spec §8's round-trip invariant: the source
// spans [tok.Index(), tok.End()) of every emitted token, interleaved with the
// ignored whitespace between them, reconstruct the original input exactly.
func Test_Lexer_SpanRoundTrip(t *testing.T) {
	lx := identLexer(t)

	const src = "if   ifx\telse"
	stream, err := lx.Tokenize(src)
	assert.NoError(t, err)

	toks := collect(t, stream)
	assert.Len(t, toks, 3)

	var rebuilt strings.Builder
	prevEnd := 0
	for _, tok := range toks {
		rebuilt.WriteString(src[prevEnd:tok.Index()])
		rebuilt.WriteString(src[tok.Index():tok.End()])
		prevEnd = tok.End()
	}
	rebuilt.WriteString(src[prevEnd:])

	assert.Equal(t, src, rebuilt.String())
}

func Test_Lexer_LiteralsAndIgnore(t *testing.T) {
	lx := NewLexer()
	lx.SetIgnoreChars(" ")
	assert.NoError(t, lx.AddLiteral('+', ""))
	assert.NoError(t, lx.AddLiteral('-', ""))

	stream, err := lx.Tokenize("+ - +")
	assert.NoError(t, err)

	toks := collect(t, stream)
	assert.Len(t, toks, 3)
	assert.Equal(t, "+", toks[0].Class().ID())
	assert.Equal(t, "-", toks[1].Class().ID())
	assert.Equal(t, "+", toks[2].Class().ID())
}

func Test_Lexer_ErrorHookAdvancesOnUnmatchedInput(t *testing.T) {
	lx := NewLexer()
	lx.AddClass(NewTokenClass("ID", "identifier"), "")
	assert.NoError(t, lx.AddPattern(`[a-z]+`, LexAs("ID"), ""))

	var seen []string
	lx.OnError(func(remaining string, index int) (int, *Token) {
		seen = append(seen, remaining)
		return 1, nil
	})

	stream, err := lx.Tokenize("a@b")
	assert.NoError(t, err)

	toks := collect(t, stream)
	assert.Len(t, toks, 2)
	assert.Equal(t, "a", toks[0].Lexeme())
	assert.Equal(t, "b", toks[1].Lexeme())
	assert.Equal(t, []string{"@b"}, seen)
}

func Test_Lexer_StateStack(t *testing.T) {
	lx := NewLexer()
	lx.SetStartState("default")

	lx.AddClass(NewTokenClass("STR_START", "'\"'"), "default")
	lx.AddClass(NewTokenClass("STR_TEXT", "string text"), "instring")
	lx.AddClass(NewTokenClass("STR_END", "'\"'"), "instring")
	lx.AddClass(NewTokenClass("WORD", "word"), "default")

	assert.NoError(t, lx.AddPattern(`"`, LexAndPushState("STR_START", "instring"), "default"))
	assert.NoError(t, lx.AddPattern(`[a-z]+`, LexAs("WORD"), "default"))
	assert.NoError(t, lx.AddPattern(`[^"]+`, LexAs("STR_TEXT"), "instring"))
	assert.NoError(t, lx.AddPattern(`"`, LexAndPopState("STR_END"), "instring"))

	lx.SetIgnoreChars(" ")

	stream, err := lx.Tokenize(`hi "there friend" bye`)
	assert.NoError(t, err)

	toks := collect(t, stream)
	var classes []string
	for _, tok := range toks {
		classes = append(classes, tok.Class().ID())
	}
	assert.Equal(t, []string{"WORD", "STR_START", "STR_TEXT", "STR_END", "WORD"}, classes)
	assert.Equal(t, "there friend", toks[2].Lexeme())
}
