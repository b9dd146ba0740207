package compiler

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"
)

// ---------------------------------------------------------------------------
// Lexer: Tokenizer for Kitten syntax
// ---------------------------------------------------------------------------

// Lexer tokenizes Kitten source code.
type Lexer struct {
	input     string
	pos       int  // current position in input
	readPos   int  // reading position (after current char)
	ch        rune // current character
	line      int  // current line (1-based)
	lineStart int  // offset of current line start
}

// NewLexer creates a new lexer for the given input.
func NewLexer(input string) *Lexer {
	l := &Lexer{
		input: input,
		line:  1,
	}
	l.readChar()
	return l
}

// readChar reads the next character.
func (l *Lexer) readChar() {
	if l.ch == '\n' {
		l.line++
		l.lineStart = l.readPos
	}
	if l.readPos >= len(l.input) {
		l.ch = 0 // EOF
		l.pos = l.readPos
		return
	}
	r, size := utf8.DecodeRuneInString(l.input[l.readPos:])
	l.ch = r
	l.pos = l.readPos
	l.readPos += size
}

// peekChar returns the next character without consuming it.
func (l *Lexer) peekChar() rune {
	if l.readPos >= len(l.input) {
		return 0
	}
	r, _ := utf8.DecodeRuneInString(l.input[l.readPos:])
	return r
}

// position returns the current position.
func (l *Lexer) position() Position {
	return Position{
		Offset: l.pos,
		Line:   l.line,
		Column: l.pos - l.lineStart + 1,
	}
}

// twoChar returns a two-character operator token when the character after
// the current one is second, and the one-character token otherwise.
func (l *Lexer) twoChar(pos Position, second rune, long, short TokenType) Token {
	first := l.ch
	l.readChar()
	if l.ch == second {
		l.readChar()
		return Token{Type: long, Literal: string([]rune{first, second}), Pos: pos}
	}
	return Token{Type: short, Literal: string(first), Pos: pos}
}

var singleCharTokens = map[rune]TokenType{
	'+': TokenPlus, '-': TokenMinus, '*': TokenStar, '/': TokenSlash,
	'%': TokenPercent, '.': TokenDot, ',': TokenComma, ';': TokenSemicolon,
	'(': TokenLParen, ')': TokenRParen, '{': TokenLBrace, '}': TokenRBrace,
}

// NextToken returns the next token.
func (l *Lexer) NextToken() Token {
	tok := l.scan()
	tok.End = l.position()
	return tok
}

func (l *Lexer) scan() Token {
	l.skipWhitespaceAndComments()

	pos := l.position()

	switch {
	case l.ch == 0:
		return Token{Type: TokenEOF, Literal: "", Pos: pos}

	case l.ch == '=':
		if l.peekChar() == '=' {
			return l.twoChar(pos, '=', TokenEq, TokenError)
		}
		l.readChar()
		return Token{Type: TokenError, Literal: "unexpected character: = (use := or ==)", Pos: pos}

	case l.ch == '!':
		return l.twoChar(pos, '=', TokenNe, TokenNot)

	case l.ch == '<':
		return l.twoChar(pos, '=', TokenLe, TokenLt)

	case l.ch == '>':
		return l.twoChar(pos, '=', TokenGe, TokenGt)

	case l.ch == ':':
		if l.peekChar() == '=' {
			return l.twoChar(pos, '=', TokenAssign, TokenError)
		}
		l.readChar()
		return Token{Type: TokenError, Literal: "unexpected character: :", Pos: pos}

	case l.ch == '&' && l.peekChar() == '&':
		return l.twoChar(pos, '&', TokenAnd, TokenError)

	case l.ch == '|' && l.peekChar() == '|':
		return l.twoChar(pos, '|', TokenOr, TokenError)

	case l.ch == '"':
		return l.readString(pos)

	case isDigit(l.ch):
		return l.readNumber(pos)

	case isLetter(l.ch) || l.ch == '_':
		return l.readIdentifier(pos)
	}

	if t, ok := singleCharTokens[l.ch]; ok {
		ch := l.ch
		l.readChar()
		return Token{Type: t, Literal: string(ch), Pos: pos}
	}

	ch := l.ch
	l.readChar()
	return Token{Type: TokenError, Literal: fmt.Sprintf("unexpected character: %c", ch), Pos: pos}
}

// skipWhitespaceAndComments skips whitespace, // line comments and
// /* block comments */.
func (l *Lexer) skipWhitespaceAndComments() {
	for {
		for l.ch == ' ' || l.ch == '\t' || l.ch == '\n' || l.ch == '\r' {
			l.readChar()
		}

		if l.ch == '/' && l.peekChar() == '/' {
			for l.ch != '\n' && l.ch != 0 {
				l.readChar()
			}
			continue
		}

		if l.ch == '/' && l.peekChar() == '*' {
			l.readChar()
			l.readChar()
			for l.ch != 0 && !(l.ch == '*' && l.peekChar() == '/') {
				l.readChar()
			}
			if l.ch != 0 {
				l.readChar()
				l.readChar()
			}
			continue
		}

		return
	}
}

// readString reads a double-quoted string literal. The token literal holds
// the decoded value.
func (l *Lexer) readString(pos Position) Token {
	l.readChar() // skip opening quote

	var sb strings.Builder
	for l.ch != '"' {
		switch l.ch {
		case 0, '\n':
			return Token{Type: TokenError, Literal: "unterminated string", Pos: pos}
		case '\\':
			l.readChar()
			switch l.ch {
			case 'n':
				sb.WriteRune('\n')
			case 't':
				sb.WriteRune('\t')
			case '"', '\\':
				sb.WriteRune(l.ch)
			default:
				return Token{Type: TokenError, Literal: fmt.Sprintf("unknown escape: \\%c", l.ch), Pos: pos}
			}
		default:
			sb.WriteRune(l.ch)
		}
		l.readChar()
	}
	l.readChar() // skip closing quote

	return Token{Type: TokenString, Literal: sb.String(), Pos: pos}
}

// readNumber reads a decimal integer literal.
func (l *Lexer) readNumber(pos Position) Token {
	start := l.pos
	for isDigit(l.ch) {
		l.readChar()
	}
	return Token{Type: TokenInteger, Literal: l.input[start:l.pos], Pos: pos}
}

// readIdentifier reads an identifier or reserved word.
func (l *Lexer) readIdentifier(pos Position) Token {
	start := l.pos
	for isLetter(l.ch) || isDigit(l.ch) || l.ch == '_' {
		l.readChar()
	}
	literal := l.input[start:l.pos]
	if t, ok := reservedWords[literal]; ok {
		return Token{Type: t, Literal: literal, Pos: pos}
	}
	return Token{Type: TokenIdentifier, Literal: literal, Pos: pos}
}

func isLetter(r rune) bool {
	return unicode.IsLetter(r)
}

func isDigit(r rune) bool {
	return r >= '0' && r <= '9'
}

// Tokenize returns all tokens of input, up to and including EOF.
func Tokenize(input string) []Token {
	l := NewLexer(input)
	var tokens []Token
	for {
		tok := l.NextToken()
		tokens = append(tokens, tok)
		if tok.Type == TokenEOF {
			break
		}
	}
	return tokens
}
