package compiler

import (
	"fmt"
	"strconv"
)

// ---------------------------------------------------------------------------
// Parser: Recursive descent parser for Kitten syntax
// ---------------------------------------------------------------------------

// Parser parses Kitten source code into an AST.
type Parser struct {
	lexer     *Lexer
	curToken  Token
	peekToken Token
	prevEnd   Position // end of the last consumed token
	errors    []error
}

// NewParser creates a new parser for the given input.
func NewParser(input string) *Parser {
	p := &Parser{
		lexer: NewLexer(input),
	}
	// Read two tokens to fill curToken and peekToken
	p.nextToken()
	p.nextToken()
	return p
}

// nextToken advances to the next token.
func (p *Parser) nextToken() {
	if p.curToken.Type != TokenEOF {
		p.prevEnd = p.curToken.End
	}
	p.curToken = p.peekToken
	p.peekToken = p.lexer.NextToken()
	for p.peekToken.Type == TokenError {
		p.errors = append(p.errors, &SyntaxError{Pos: p.peekToken.Pos.Offset, Msg: p.peekToken.Literal})
		p.peekToken = p.lexer.NextToken()
	}
}

// curTokenIs checks if the current token is of the given type.
func (p *Parser) curTokenIs(t TokenType) bool {
	return p.curToken.Type == t
}

// peekTokenIs checks if the peek token is of the given type.
func (p *Parser) peekTokenIs(t TokenType) bool {
	return p.peekToken.Type == t
}

// expect advances if the current token matches, otherwise records an error.
func (p *Parser) expect(t TokenType) bool {
	if p.curTokenIs(t) {
		p.nextToken()
		return true
	}
	p.errorf("expected %s, got %s", t, p.curToken.Type)
	return false
}

// errorf records a parse error at the current token.
func (p *Parser) errorf(format string, args ...interface{}) {
	p.errors = append(p.errors, &SyntaxError{Pos: p.curToken.Pos.Offset, Msg: fmt.Sprintf(format, args...)})
}

// Errors returns accumulated parse errors.
func (p *Parser) Errors() []error {
	return p.errors
}

func (p *Parser) spanFrom(start Position) Span {
	return Span{Start: start, End: p.prevEnd}
}

// ---------------------------------------------------------------------------
// Top-level parsing
// ---------------------------------------------------------------------------

// ParseFile parses every class declaration of a source file.
func ParseFile(path, input string) (*SourceFile, []error) {
	p := NewParser(input)
	file := &SourceFile{Path: path, Text: input}
	for !p.curTokenIs(TokenEOF) {
		before := len(p.errors)
		class := p.ParseClass()
		if class != nil {
			file.Classes = append(file.Classes, class)
		}
		if len(p.errors) > before {
			p.skipToNextClass()
		}
	}
	return file, p.errors
}

// skipToNextClass recovers from an error by skipping to the next top-level
// class keyword.
func (p *Parser) skipToNextClass() {
	for !p.curTokenIs(TokenEOF) && !p.curTokenIs(TokenClass) {
		p.nextToken()
	}
}

// ParseClass parses "class Name [extends Super] { members }".
func (p *Parser) ParseClass() *ClassDecl {
	start := p.curToken.Pos
	if !p.expect(TokenClass) {
		return nil
	}
	if !p.curTokenIs(TokenIdentifier) {
		p.errorf("expected class name, got %s", p.curToken.Type)
		return nil
	}
	class := &ClassDecl{Name: p.curToken.Literal}
	p.nextToken()

	if p.curTokenIs(TokenExtends) {
		p.nextToken()
		if !p.curTokenIs(TokenIdentifier) {
			p.errorf("expected superclass name, got %s", p.curToken.Type)
			return nil
		}
		class.Superclass = p.curToken.Literal
		p.nextToken()
	}

	if !p.expect(TokenLBrace) {
		return nil
	}
	for !p.curTokenIs(TokenRBrace) && !p.curTokenIs(TokenEOF) {
		if !p.parseMember(class) {
			return nil
		}
	}
	if !p.expect(TokenRBrace) {
		return nil
	}
	class.SpanVal = p.spanFrom(start)
	return class
}

func (p *Parser) parseMember(class *ClassDecl) bool {
	start := p.curToken.Pos
	switch p.curToken.Type {
	case TokenField:
		p.nextToken()
		typ := p.parseTypeName()
		if typ == nil {
			return false
		}
		name, ok := p.parseIdentifier("field name")
		if !ok || !p.expect(TokenSemicolon) {
			return false
		}
		class.Fields = append(class.Fields, &FieldDecl{SpanVal: p.spanFrom(start), Type: typ, Name: name})

	case TokenConstructor:
		p.nextToken()
		params, ok := p.parseParams()
		if !ok {
			return false
		}
		body := p.parseBlock()
		if body == nil {
			return false
		}
		class.Constructors = append(class.Constructors, &ConstructorDecl{SpanVal: p.spanFrom(start), Params: params, Body: body})

	case TokenFixture:
		p.nextToken()
		var name string
		if p.curTokenIs(TokenIdentifier) {
			name = p.curToken.Literal
			p.nextToken()
		}
		body := p.parseBlock()
		if body == nil {
			return false
		}
		class.Fixtures = append(class.Fixtures, &FixtureDecl{SpanVal: p.spanFrom(start), Name: name, Body: body})

	case TokenTest:
		p.nextToken()
		name, ok := p.parseIdentifier("test name")
		if !ok {
			return false
		}
		body := p.parseBlock()
		if body == nil {
			return false
		}
		class.Tests = append(class.Tests, &TestDecl{SpanVal: p.spanFrom(start), Name: name, Body: body})

	default:
		p.errorf("expected class member, got %s", p.curToken.Type)
		return false
	}
	return true
}

func (p *Parser) parseIdentifier(what string) (string, bool) {
	if !p.curTokenIs(TokenIdentifier) {
		p.errorf("expected %s, got %s", what, p.curToken.Type)
		return "", false
	}
	name := p.curToken.Literal
	p.nextToken()
	return name, true
}

func (p *Parser) parseTypeName() *TypeName {
	if !p.curTokenIs(TokenIdentifier) {
		p.errorf("expected type, got %s", p.curToken.Type)
		return nil
	}
	t := &TypeName{SpanVal: Span{Start: p.curToken.Pos}, Name: p.curToken.Literal}
	p.nextToken()
	t.SpanVal.End = p.prevEnd
	return t
}

func (p *Parser) parseParams() ([]*Param, bool) {
	if !p.expect(TokenLParen) {
		return nil, false
	}
	var params []*Param
	for !p.curTokenIs(TokenRParen) {
		start := p.curToken.Pos
		typ := p.parseTypeName()
		if typ == nil {
			return nil, false
		}
		name, ok := p.parseIdentifier("parameter name")
		if !ok {
			return nil, false
		}
		params = append(params, &Param{SpanVal: p.spanFrom(start), Type: typ, Name: name})
		if !p.curTokenIs(TokenComma) {
			break
		}
		p.nextToken()
	}
	if !p.expect(TokenRParen) {
		return nil, false
	}
	return params, true
}

// ---------------------------------------------------------------------------
// Commands
// ---------------------------------------------------------------------------

func (p *Parser) parseBlock() *BlockCommand {
	start := p.curToken.Pos
	if !p.expect(TokenLBrace) {
		return nil
	}
	block := &BlockCommand{}
	for !p.curTokenIs(TokenRBrace) && !p.curTokenIs(TokenEOF) {
		cmd := p.ParseCommand()
		if cmd == nil {
			return nil
		}
		block.Commands = append(block.Commands, cmd)
	}
	if !p.expect(TokenRBrace) {
		return nil
	}
	block.SpanVal = p.spanFrom(start)
	return block
}

// ParseCommand parses a single command.
func (p *Parser) ParseCommand() Command {
	start := p.curToken.Pos
	switch p.curToken.Type {
	case TokenLBrace:
		if b := p.parseBlock(); b != nil {
			return b
		}
		return nil

	case TokenSemicolon:
		p.nextToken()
		return &Skip{SpanVal: p.spanFrom(start)}

	case TokenIf:
		return p.parseIf()

	case TokenReturn:
		p.nextToken()
		ret := &Return{}
		if !p.curTokenIs(TokenSemicolon) {
			if ret.Value = p.ParseExpression(); ret.Value == nil {
				return nil
			}
		}
		if !p.expect(TokenSemicolon) {
			return nil
		}
		ret.SpanVal = p.spanFrom(start)
		return ret

	case TokenAssert:
		p.nextToken()
		a := &Assert{}
		if !p.curTokenIs(TokenSemicolon) {
			if a.Condition = p.ParseExpression(); a.Condition == nil {
				return nil
			}
		}
		if !p.expect(TokenSemicolon) {
			return nil
		}
		a.SpanVal = p.spanFrom(start)
		return a

	case TokenIdentifier:
		if p.peekTokenIs(TokenIdentifier) {
			return p.parseLocalDeclaration()
		}
	}

	target := p.parsePostfix()
	if target == nil {
		return nil
	}
	switch target.(type) {
	case *Variable, *FieldAccess:
	default:
		p.errorf("expected assignable expression")
		return nil
	}
	if !p.expect(TokenAssign) {
		return nil
	}
	value := p.ParseExpression()
	if value == nil || !p.expect(TokenSemicolon) {
		return nil
	}
	return &Assignment{SpanVal: p.spanFrom(start), Target: target, Value: value}
}

func (p *Parser) parseIf() Command {
	start := p.curToken.Pos
	p.nextToken() // if
	if !p.expect(TokenLParen) {
		return nil
	}
	cond := p.ParseExpression()
	if cond == nil || !p.expect(TokenRParen) || !p.expect(TokenThen) {
		return nil
	}
	then := p.ParseCommand()
	if then == nil {
		return nil
	}
	n := &IfThenElse{Condition: cond, Then: then}
	if p.curTokenIs(TokenElse) {
		p.nextToken()
		if n.Else = p.ParseCommand(); n.Else == nil {
			return nil
		}
	}
	n.SpanVal = p.spanFrom(start)
	return n
}

func (p *Parser) parseLocalDeclaration() Command {
	start := p.curToken.Pos
	typ := p.parseTypeName()
	name, ok := p.parseIdentifier("variable name")
	if !ok || !p.expect(TokenAssign) {
		return nil
	}
	init := p.ParseExpression()
	if init == nil || !p.expect(TokenSemicolon) {
		return nil
	}
	return &LocalDeclaration{SpanVal: p.spanFrom(start), Type: typ, Name: name, Init: init}
}

// ---------------------------------------------------------------------------
// Expressions
// ---------------------------------------------------------------------------

// Binary operator precedence levels, loosest first.
var precedence = [][]TokenType{
	{TokenOr},
	{TokenAnd},
	{TokenEq, TokenNe},
	{TokenLt, TokenLe, TokenGt, TokenGe},
	{TokenPlus, TokenMinus},
	{TokenStar, TokenSlash, TokenPercent},
}

// ParseExpression parses a single expression.
func (p *Parser) ParseExpression() Expr {
	return p.parseBinary(0)
}

func (p *Parser) parseBinary(level int) Expr {
	if level == len(precedence) {
		return p.parseUnary()
	}
	start := p.curToken.Pos
	left := p.parseBinary(level + 1)
	if left == nil {
		return nil
	}
	for p.curTokenIn(precedence[level]) {
		op := p.curToken.Type
		p.nextToken()
		right := p.parseBinary(level + 1)
		if right == nil {
			return nil
		}
		left = &BinaryExpr{SpanVal: p.spanFrom(start), Op: op, Left: left, Right: right}
	}
	return left
}

func (p *Parser) curTokenIn(ts []TokenType) bool {
	for _, t := range ts {
		if p.curTokenIs(t) {
			return true
		}
	}
	return false
}

func (p *Parser) parseUnary() Expr {
	start := p.curToken.Pos
	if p.curTokenIs(TokenMinus) || p.curTokenIs(TokenNot) {
		op := p.curToken.Type
		p.nextToken()
		operand := p.parseUnary()
		if operand == nil {
			return nil
		}
		return &UnaryExpr{SpanVal: p.spanFrom(start), Op: op, Operand: operand}
	}
	return p.parsePostfix()
}

func (p *Parser) parsePostfix() Expr {
	start := p.curToken.Pos
	e := p.parsePrimary()
	for e != nil && p.curTokenIs(TokenDot) {
		p.nextToken()
		name, ok := p.parseIdentifier("field name")
		if !ok {
			return nil
		}
		e = &FieldAccess{SpanVal: p.spanFrom(start), Receiver: e, Name: name}
	}
	return e
}

func (p *Parser) parsePrimary() Expr {
	start := p.curToken.Pos
	tok := p.curToken
	switch tok.Type {
	case TokenInteger:
		p.nextToken()
		v, err := strconv.ParseInt(tok.Literal, 10, 64)
		if err != nil {
			p.errors = append(p.errors, &SyntaxError{Pos: tok.Pos.Offset, Msg: fmt.Sprintf("invalid integer %s", tok.Literal)})
			return nil
		}
		return &IntLiteral{SpanVal: p.spanFrom(start), Value: v}

	case TokenString:
		p.nextToken()
		return &StringLiteral{SpanVal: p.spanFrom(start), Value: tok.Literal}

	case TokenTrue, TokenFalse:
		p.nextToken()
		return &BoolLiteral{SpanVal: p.spanFrom(start), Value: tok.Type == TokenTrue}

	case TokenNil:
		p.nextToken()
		return &NilLiteral{SpanVal: p.spanFrom(start)}

	case TokenThis:
		p.nextToken()
		return &This{SpanVal: p.spanFrom(start)}

	case TokenIdentifier:
		p.nextToken()
		return &Variable{SpanVal: p.spanFrom(start), Name: tok.Literal}

	case TokenLParen:
		p.nextToken()
		e := p.ParseExpression()
		if e == nil || !p.expect(TokenRParen) {
			return nil
		}
		return e
	}

	p.errorf("expected expression, got %s", tok.Type)
	return nil
}
