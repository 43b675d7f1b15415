package types

// ParserType identifies which table-construction algorithm produced a
// parser. The core only ships the LALR(1) path (spec §1: "the core — and
// the hard engineering — is the LALR(1) parser generator"); the constant
// still carries a string type so a Table.String() dump can label itself.
type ParserType string

const (
	ParserLALR1 ParserType = "LALR(1)"
)

func (pt ParserType) String() string {
	return string(pt)
}
