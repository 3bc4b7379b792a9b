// Package token defines the lexical token kinds consumed by the parser.
// The lexer/parser pair is treated as an external black box per spec.md §1
// — this package and internal/lexer exist to produce the validated AST and
// diagnostic stream the core phases consume; they are not themselves part
// of the core's design surface.
package token

// Kind enumerates every lexical token kind in the Cursive0 subset grammar.
type Kind uint16

const (
	Invalid Kind = iota
	EOF

	Ident
	IntLit
	FloatLit
	CharLit
	StringLit
	BoolLit

	// Keywords
	KwProcedure
	KwRecord
	KwEnum
	KwModal
	KwState
	KwClass
	KwType
	KwStatic
	KwImport
	KwUsing
	KwExtern
	KwError
	KwLet
	KwMut
	KwMove
	KwReturn
	KwIf
	KwElse
	KwMatch
	KwFor
	KwWhile
	KwLoop
	KwBreak
	KwContinue
	KwTrue
	KwFalse
	KwNull
	KwAs
	KwUnsafe
	KwTransmute
	KwRegion
	KwSpawn
	KwWait
	KwSync
	KwRace
	KwAll
	KwYield
	KwFrom
	KwParallel
	KwDispatch
	KwKey
	KwPub
	KwPublic
	KwInternal
	KwIn
	KwArrow // fn return
	KwSelf
	KwDyn
	KwUnique
	KwShared
	KwConst
	KwRelease

	// Punctuation / operators
	Plus
	Minus
	Star
	Slash
	Percent
	Assign
	EqEq
	BangEq
	Lt
	LtEq
	Gt
	GtEq
	AndAnd
	OrOr
	Bang
	Amp
	Pipe
	Caret
	Shl
	Shr
	Question
	Colon
	ColonColon
	Semicolon
	Comma
	Dot
	DotDot
	DotDotEq
	Arrow
	FatArrow
	LParen
	RParen
	LBrace
	RBrace
	LBracket
	RBracket
	At
	Hash
	Dollar
	PipeEq      // '|=' contract introducer
	Caret_Alloc // '^' allocation sigil, distinct lexeme from Caret (bitwise xor) by context
	LArrow      // '<-'
)

var keywords = map[string]Kind{
	"procedure": KwProcedure,
	"record":    KwRecord,
	"enum":      KwEnum,
	"modal":     KwModal,
	"state":     KwState,
	"class":     KwClass,
	"type":      KwType,
	"static":    KwStatic,
	"import":    KwImport,
	"using":     KwUsing,
	"extern":    KwExtern,
	"error":     KwError,
	"let":       KwLet,
	"mut":       KwMut,
	"move":      KwMove,
	"return":    KwReturn,
	"if":        KwIf,
	"else":      KwElse,
	"match":     KwMatch,
	"for":       KwFor,
	"while":     KwWhile,
	"loop":      KwLoop,
	"break":     KwBreak,
	"continue":  KwContinue,
	"true":      KwTrue,
	"false":     KwFalse,
	"null":      KwNull,
	"as":        KwAs,
	"unsafe":    KwUnsafe,
	"transmute": KwTransmute,
	"region":    KwRegion,
	"spawn":     KwSpawn,
	"wait":      KwWait,
	"sync":      KwSync,
	"race":      KwRace,
	"all":       KwAll,
	"yield":     KwYield,
	"from":      KwFrom,
	"parallel":  KwParallel,
	"dispatch":  KwDispatch,
	"key":       KwKey,
	"pub":       KwPub,
	"public":    KwPublic,
	"internal":  KwInternal,
	"in":        KwIn,
	"self":      KwSelf,
	"dyn":       KwDyn,
	"unique":    KwUnique,
	"shared":    KwShared,
	"const":     KwConst,
	"release":   KwRelease,
}

// LookupKeyword returns the keyword Kind for text, or (Invalid, false) if it
// is not a reserved word.
func LookupKeyword(text string) (Kind, bool) {
	k, ok := keywords[text]
	return k, ok
}

// IsReservedKeyword reports whether text cannot be used as an identifier —
// used by module discovery (spec.md §6, "not reserved keywords").
func IsReservedKeyword(text string) bool {
	_, ok := keywords[text]
	return ok
}
