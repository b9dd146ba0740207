// Package types holds the static types of Kitten programs and the class
// symbols that carry field, constructor, fixture and test signatures.
package types

import (
	"github.com/chazu/kitten/compiler/ir"
)

// Type is a static Kitten type.
type Type interface {
	// String returns the source-level name of the type.
	String() string
	// IR returns the name used in symbolic references.
	IR() ir.Type
	// AssignableTo reports whether a value of this type may be stored where
	// other is expected.
	AssignableTo(other Type) bool
}

// BasicType is a primitive type or String.
type BasicType struct {
	name ir.Type
	zero string
}

func (t *BasicType) String() string { return string(t.name) }

func (t *BasicType) IR() ir.Type { return t.name }

func (t *BasicType) AssignableTo(other Type) bool { return other == Type(t) }

// Zero returns the runtime representation of the type's default value.
func (t *BasicType) Zero() string { return t.zero }

var (
	Int    = &BasicType{name: ir.Int, zero: "0"}
	Bool   = &BasicType{name: ir.Bool, zero: "false"}
	String = &BasicType{name: ir.String, zero: ""}
	Void   = &BasicType{name: ir.Void}
)

// NilType is the type of the nil literal. It is assignable to String and
// to every class.
type NilType struct{}

func (NilType) String() string { return "nil" }

func (NilType) IR() ir.Type { return ir.Nil }

func (NilType) AssignableTo(other Type) bool {
	switch other.(type) {
	case *ClassType, NilType:
		return true
	}
	return other == Type(String)
}

// Nil is the only NilType value.
var Nil Type = NilType{}

// Basic returns the basic type called name, or nil.
func Basic(name string) *BasicType {
	switch name {
	case "int":
		return Int
	case "boolean":
		return Bool
	case "String":
		return String
	case "void":
		return Void
	}
	return nil
}

// IsBoolean reports whether t is the boolean type.
func IsBoolean(t Type) bool {
	return t == Type(Bool)
}
