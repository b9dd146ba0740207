package compiler

import "fmt"

// ---------------------------------------------------------------------------
// Token types for the Kitten lexer
// ---------------------------------------------------------------------------

// TokenType represents the type of a token.
type TokenType int

const (
	// Special tokens
	TokenEOF TokenType = iota
	TokenError

	// Literals
	TokenInteger    // 42
	TokenString     // "hello"
	TokenIdentifier // foo, Bar

	// Operators
	TokenPlus      // +
	TokenMinus     // -
	TokenStar      // *
	TokenSlash     // /
	TokenPercent   // %
	TokenEq        // ==
	TokenNe        // !=
	TokenLt        // <
	TokenLe        // <=
	TokenGt        // >
	TokenGe        // >=
	TokenAnd       // &&
	TokenOr        // ||
	TokenNot       // !
	TokenAssign    // :=
	TokenDot       // .
	TokenComma     // ,
	TokenSemicolon // ;

	// Delimiters
	TokenLParen // (
	TokenRParen // )
	TokenLBrace // {
	TokenRBrace // }

	// Reserved words
	TokenClass
	TokenExtends
	TokenField
	TokenConstructor
	TokenFixture
	TokenTest
	TokenAssert
	TokenIf
	TokenThen
	TokenElse
	TokenReturn
	TokenThis
	TokenTrue
	TokenFalse
	TokenNil
)

var tokenNames = map[TokenType]string{
	TokenEOF:         "EOF",
	TokenError:       "ERROR",
	TokenInteger:     "INTEGER",
	TokenString:      "STRING",
	TokenIdentifier:  "IDENTIFIER",
	TokenPlus:        "+",
	TokenMinus:       "-",
	TokenStar:        "*",
	TokenSlash:       "/",
	TokenPercent:     "%",
	TokenEq:          "==",
	TokenNe:          "!=",
	TokenLt:          "<",
	TokenLe:          "<=",
	TokenGt:          ">",
	TokenGe:          ">=",
	TokenAnd:         "&&",
	TokenOr:          "||",
	TokenNot:         "!",
	TokenAssign:      ":=",
	TokenDot:         ".",
	TokenComma:       ",",
	TokenSemicolon:   ";",
	TokenLParen:      "(",
	TokenRParen:      ")",
	TokenLBrace:      "{",
	TokenRBrace:      "}",
	TokenClass:       "class",
	TokenExtends:     "extends",
	TokenField:       "field",
	TokenConstructor: "constructor",
	TokenFixture:     "fixture",
	TokenTest:        "test",
	TokenAssert:      "assert",
	TokenIf:          "if",
	TokenThen:        "then",
	TokenElse:        "else",
	TokenReturn:      "return",
	TokenThis:        "this",
	TokenTrue:        "true",
	TokenFalse:       "false",
	TokenNil:         "nil",
}

func (t TokenType) String() string {
	if name, ok := tokenNames[t]; ok {
		return name
	}
	return fmt.Sprintf("Token(%d)", t)
}

// Token represents a lexical token.
type Token struct {
	Type    TokenType
	Literal string   // the raw text, or the decoded value of a string
	Pos     Position // start position
	End     Position // position just past the token
}

func (t Token) String() string {
	if t.Type == TokenEOF {
		return "EOF"
	}
	if t.Type == TokenError {
		return fmt.Sprintf("ERROR(%s)", t.Literal)
	}
	if len(t.Literal) > 20 {
		return fmt.Sprintf("%s(%q...)", t.Type, t.Literal[:20])
	}
	return fmt.Sprintf("%s(%q)", t.Type, t.Literal)
}

// Reserved words mapped to their token types.
var reservedWords = map[string]TokenType{
	"class":       TokenClass,
	"extends":     TokenExtends,
	"field":       TokenField,
	"constructor": TokenConstructor,
	"fixture":     TokenFixture,
	"test":        TokenTest,
	"assert":      TokenAssert,
	"if":          TokenIf,
	"then":        TokenThen,
	"else":        TokenElse,
	"return":      TokenReturn,
	"this":        TokenThis,
	"true":        TokenTrue,
	"false":       TokenFalse,
	"nil":         TokenNil,
}
