package compiler

// ---------------------------------------------------------------------------
// AST: Abstract Syntax Tree for Kitten
// ---------------------------------------------------------------------------

// Position represents a source location.
type Position struct {
	Offset int // byte offset
	Line   int // 1-based line number
	Column int // 1-based column number
}

// Span represents a range in source code.
type Span struct {
	Start Position
	End   Position
}

// Node is the interface implemented by all AST nodes.
type Node interface {
	Span() Span
	node() // marker method
}

// offsetOf returns the start offset of a node.
func offsetOf(n Node) int {
	return n.Span().Start.Offset
}

// ---------------------------------------------------------------------------
// Expression nodes
// ---------------------------------------------------------------------------

// Expr is the interface for expression nodes.
type Expr interface {
	Node
	expr() // marker method
}

// IntLiteral represents an integer literal.
type IntLiteral struct {
	SpanVal Span
	Value   int64
}

func (n *IntLiteral) Span() Span { return n.SpanVal }
func (n *IntLiteral) node()      {}
func (n *IntLiteral) expr()      {}

// BoolLiteral represents true or false.
type BoolLiteral struct {
	SpanVal Span
	Value   bool
}

func (n *BoolLiteral) Span() Span { return n.SpanVal }
func (n *BoolLiteral) node()      {}
func (n *BoolLiteral) expr()      {}

// StringLiteral represents a string literal.
type StringLiteral struct {
	SpanVal Span
	Value   string
}

func (n *StringLiteral) Span() Span { return n.SpanVal }
func (n *StringLiteral) node()      {}
func (n *StringLiteral) expr()      {}

// NilLiteral represents the nil reference.
type NilLiteral struct {
	SpanVal Span
}

func (n *NilLiteral) Span() Span { return n.SpanVal }
func (n *NilLiteral) node()      {}
func (n *NilLiteral) expr()      {}

// This represents the receiver.
type This struct {
	SpanVal Span
}

func (n *This) Span() Span { return n.SpanVal }
func (n *This) node()      {}
func (n *This) expr()      {}

// Variable represents a reference to a local variable or parameter.
type Variable struct {
	SpanVal Span
	Name    string
}

func (n *Variable) Span() Span { return n.SpanVal }
func (n *Variable) node()      {}
func (n *Variable) expr()      {}

// FieldAccess represents receiver.name.
type FieldAccess struct {
	SpanVal  Span
	Receiver Expr
	Name     string
}

func (n *FieldAccess) Span() Span { return n.SpanVal }
func (n *FieldAccess) node()      {}
func (n *FieldAccess) expr()      {}

// UnaryExpr represents -e or !e.
type UnaryExpr struct {
	SpanVal Span
	Op      TokenType // TokenMinus or TokenNot
	Operand Expr
}

func (n *UnaryExpr) Span() Span { return n.SpanVal }
func (n *UnaryExpr) node()      {}
func (n *UnaryExpr) expr()      {}

// BinaryExpr represents an arithmetic, comparison or boolean operation.
type BinaryExpr struct {
	SpanVal Span
	Op      TokenType
	Left    Expr
	Right   Expr
}

func (n *BinaryExpr) Span() Span { return n.SpanVal }
func (n *BinaryExpr) node()      {}
func (n *BinaryExpr) expr()      {}

// ---------------------------------------------------------------------------
// Command nodes
// ---------------------------------------------------------------------------

// Command is the interface for command nodes.
type Command interface {
	Node
	command() // marker method
}

// Skip is the empty command ";".
type Skip struct {
	SpanVal Span
}

func (n *Skip) Span() Span { return n.SpanVal }
func (n *Skip) node()      {}
func (n *Skip) command()   {}

// BlockCommand is a braced sequence of commands with its own scope.
type BlockCommand struct {
	SpanVal  Span
	Commands []Command
}

func (n *BlockCommand) Span() Span { return n.SpanVal }
func (n *BlockCommand) node()      {}
func (n *BlockCommand) command()   {}

// LocalDeclaration declares a local variable: T name := init.
type LocalDeclaration struct {
	SpanVal Span
	Type    *TypeName
	Name    string
	Init    Expr
}

func (n *LocalDeclaration) Span() Span { return n.SpanVal }
func (n *LocalDeclaration) node()      {}
func (n *LocalDeclaration) command()   {}

// Assignment stores into a local variable or a field.
type Assignment struct {
	SpanVal Span
	Target  Expr // *Variable or *FieldAccess
	Value   Expr
}

func (n *Assignment) Span() Span { return n.SpanVal }
func (n *Assignment) node()      {}
func (n *Assignment) command()   {}

// IfThenElse is "if (cond) then c [else c]". Else may be nil.
type IfThenElse struct {
	SpanVal   Span
	Condition Expr
	Then      Command
	Else      Command
}

func (n *IfThenElse) Span() Span { return n.SpanVal }
func (n *IfThenElse) node()      {}
func (n *IfThenElse) command()   {}

// Return leaves the current code. Value is nil for void code.
type Return struct {
	SpanVal Span
	Value   Expr
}

func (n *Return) Span() Span { return n.SpanVal }
func (n *Return) node()      {}
func (n *Return) command()   {}

// Assert is a non-fatal check, only allowed in test bodies. Condition is
// nil when the source omitted it.
type Assert struct {
	SpanVal   Span
	Condition Expr
}

func (n *Assert) Span() Span { return n.SpanVal }
func (n *Assert) node()      {}
func (n *Assert) command()   {}

// ---------------------------------------------------------------------------
// Declarations
// ---------------------------------------------------------------------------

// TypeName is a type written in source: int, boolean, String or a class.
type TypeName struct {
	SpanVal Span
	Name    string
}

func (n *TypeName) Span() Span { return n.SpanVal }
func (n *TypeName) node()      {}

// FieldDecl declares an instance field.
type FieldDecl struct {
	SpanVal Span
	Type    *TypeName
	Name    string
}

func (n *FieldDecl) Span() Span { return n.SpanVal }
func (n *FieldDecl) node()      {}

// Param is a formal parameter.
type Param struct {
	SpanVal Span
	Type    *TypeName
	Name    string
}

func (n *Param) Span() Span { return n.SpanVal }
func (n *Param) node()      {}

// ConstructorDecl declares a constructor.
type ConstructorDecl struct {
	SpanVal Span
	Params  []*Param
	Body    *BlockCommand
}

func (n *ConstructorDecl) Span() Span { return n.SpanVal }
func (n *ConstructorDecl) node()      {}

// FixtureDecl declares a setup routine run before every test. Name may be
// empty.
type FixtureDecl struct {
	SpanVal Span
	Name    string
	Body    *BlockCommand

	decl codeDecl
}

func (n *FixtureDecl) Span() Span { return n.SpanVal }
func (n *FixtureDecl) node()      {}

// TestDecl declares a named test.
type TestDecl struct {
	SpanVal Span
	Name    string
	Body    *BlockCommand

	decl codeDecl
}

func (n *TestDecl) Span() Span { return n.SpanVal }
func (n *TestDecl) node()      {}

// ClassDecl is a class definition.
type ClassDecl struct {
	SpanVal      Span
	Name         string
	Superclass   string // empty when there is none
	Fields       []*FieldDecl
	Constructors []*ConstructorDecl
	Fixtures     []*FixtureDecl
	Tests        []*TestDecl
}

func (n *ClassDecl) Span() Span { return n.SpanVal }
func (n *ClassDecl) node()      {}

// SourceFile is the parse result of one Kitten file.
type SourceFile struct {
	Path    string
	Text    string
	Classes []*ClassDecl
}
