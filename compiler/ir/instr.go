// Package ir is the continuation-passing intermediate representation of the
// Kitten compiler: instructions grouped into immutable basic blocks that name
// their successors explicitly.
//
// Translation runs bottom-up. Every step receives the Block that must run
// after it and returns a new Block that runs its own code first, so a whole
// method body is built from its last instruction backwards.
package ir

import (
	"fmt"
	"strings"
)

// Type is the name of a Kitten type as it appears in symbolic references.
type Type string

const (
	Int    Type = "int"
	Bool   Type = "boolean"
	String Type = "String"
	Void   Type = "void"
	Nil    Type = "nil"
)

// Object returns the reference type of a class.
func Object(class string) Type {
	return Type(class)
}

// FieldRef names a field symbolically.
type FieldRef struct {
	Class string
	Name  string
	Type  Type
}

func (f FieldRef) String() string {
	return fmt.Sprintf("%s.%s:%s", f.Class, f.Name, f.Type)
}

// Key is the qualified name used by the target encoding ("Class.field").
func (f FieldRef) Key() string {
	return f.Class + "." + f.Name
}

// MethodRef names a method symbolically.
type MethodRef struct {
	Class  string
	Name   string
	Params []Type
	Return Type
}

func (m MethodRef) String() string {
	params := make([]string, len(m.Params))
	for i, p := range m.Params {
		params[i] = string(p)
	}
	return fmt.Sprintf("%s.%s(%s):%s", m.Class, m.Name, strings.Join(params, ","), m.Return)
}

// Key is the qualified name used by the target encoding ("Class.method").
func (m MethodRef) Key() string {
	return m.Class + "." + m.Name
}

// CallKind selects the dispatch of a Call.
type CallKind uint8

const (
	CallStatic  CallKind = iota // no receiver
	CallVirtual                 // dispatch on the receiver's runtime class
	CallSpecial                 // exact target, receiver passed (constructors)
)

func (k CallKind) String() string {
	switch k {
	case CallStatic:
		return "static"
	case CallVirtual:
		return "virtual"
	case CallSpecial:
		return "special"
	default:
		return fmt.Sprintf("CallKind(%d)", k)
	}
}

// ArithOp is an integer arithmetic operator.
type ArithOp uint8

const (
	Add ArithOp = iota
	Sub
	Mul
	Div
	Mod
	Neg
)

var arithNames = [...]string{"add", "sub", "mul", "div", "mod", "neg"}

func (op ArithOp) String() string {
	if int(op) < len(arithNames) {
		return arithNames[op]
	}
	return fmt.Sprintf("ArithOp(%d)", op)
}

// CompareOp is a comparison producing a boolean.
type CompareOp uint8

const (
	Eq CompareOp = iota
	Ne
	Lt
	Le
	Gt
	Ge
)

var compareNames = [...]string{"eq", "ne", "lt", "le", "gt", "ge"}

func (op CompareOp) String() string {
	if int(op) < len(compareNames) {
		return compareNames[op]
	}
	return fmt.Sprintf("CompareOp(%d)", op)
}

// Instr is one virtual-machine operation. Instructions are immutable values.
type Instr interface {
	instr()
	String() string
}

// Nop does nothing.
type Nop struct{}

// Const pushes an integer or boolean literal.
type Const struct {
	Type  Type
	Value string
}

// NewString pushes a string literal.
type NewString struct {
	Value string
}

// Load pushes a local variable. Slot 0 holds the receiver or first parameter.
type Load struct {
	Slot uint8
	Type Type
}

// Store pops into a local variable.
type Store struct {
	Slot uint8
	Type Type
}

// GetStatic pushes the value of a static field.
type GetStatic struct {
	Field FieldRef
}

// PutStatic pops into a static field.
type PutStatic struct {
	Field FieldRef
}

// GetField replaces a receiver with the value of one of its fields.
type GetField struct {
	Field FieldRef
}

// PutField pops a value and a receiver and stores the value in the field.
type PutField struct {
	Field FieldRef
}

// New pushes a fresh, unconstructed instance of Class.
type New struct {
	Class string
}

// Arith applies an arithmetic operator to the top operands.
type Arith struct {
	Op ArithOp
}

// Compare replaces the top two operands with the boolean result of Op.
type Compare struct {
	Op CompareOp
}

// Not negates the boolean on top of the stack.
type Not struct{}

// Dup duplicates the top of the stack.
type Dup struct{}

// Pop discards the top of the stack.
type Pop struct{}

// Call invokes Target. The receiver (unless static) and len(Target.Params)
// arguments are taken from the stack; non-void results are pushed.
type Call struct {
	Kind   CallKind
	Target MethodRef
}

// Branch pops a boolean. It ends a block with two successors: the first runs
// when the boolean is true, the second otherwise.
type Branch struct{}

// Return leaves the method, returning the top of the stack unless Type is void.
type Return struct {
	Type Type
}

// Line marks the source position of the code that follows. It produces no
// instruction, only debug information.
type Line struct {
	Line int
	Col  int
}

// Goto transfers control to Target. It only appears in linearized code.
type Goto struct {
	Target *Block
}

func (Nop) instr()       {}
func (Const) instr()     {}
func (NewString) instr() {}
func (Load) instr()      {}
func (Store) instr()     {}
func (GetStatic) instr() {}
func (PutStatic) instr() {}
func (GetField) instr()  {}
func (PutField) instr()  {}
func (New) instr()       {}
func (Arith) instr()     {}
func (Compare) instr()   {}
func (Not) instr()       {}
func (Dup) instr()       {}
func (Pop) instr()       {}
func (Call) instr()      {}
func (Branch) instr()    {}
func (Return) instr()    {}
func (Line) instr()      {}
func (Goto) instr()      {}

func (Nop) String() string         { return "nop" }
func (i Const) String() string     { return fmt.Sprintf("const %s %s", i.Type, i.Value) }
func (i NewString) String() string { return fmt.Sprintf("newstring %q", i.Value) }
func (i Load) String() string      { return fmt.Sprintf("load %d of type %s", i.Slot, i.Type) }
func (i Store) String() string     { return fmt.Sprintf("store %d of type %s", i.Slot, i.Type) }
func (i GetStatic) String() string { return "getstatic " + i.Field.String() }
func (i PutStatic) String() string { return "putstatic " + i.Field.String() }
func (i GetField) String() string  { return "getfield " + i.Field.String() }
func (i PutField) String() string  { return "putfield " + i.Field.String() }
func (i New) String() string       { return "new " + i.Class }
func (i Arith) String() string     { return i.Op.String() }
func (i Compare) String() string   { return "compare " + i.Op.String() }
func (Not) String() string         { return "not" }
func (Dup) String() string         { return "dup" }
func (Pop) String() string         { return "pop" }
func (i Call) String() string      { return fmt.Sprintf("call %s %s", i.Kind, i.Target) }
func (Branch) String() string      { return "branch" }
func (i Return) String() string    { return fmt.Sprintf("return %s", i.Type) }
func (i Line) String() string      { return fmt.Sprintf("line %d.%d", i.Line, i.Col) }
func (Goto) String() string        { return "goto" }
