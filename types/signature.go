package types

import (
	"strconv"

	"github.com/chazu/kitten/compiler/ir"
)

// ConstructorName is the method name constructors are emitted under.
const ConstructorName = "<init>"

// FieldSignature describes an instance field.
type FieldSignature struct {
	Class *ClassType
	Name  string
	Type  Type
}

// Ref returns the symbolic reference to the field.
func (f *FieldSignature) Ref() ir.FieldRef {
	return ir.FieldRef{Class: f.Class.Name(), Name: f.Name, Type: f.Type.IR()}
}

// ConstructorSignature describes a constructor. Code is set once the body
// has been translated.
type ConstructorSignature struct {
	Class  *ClassType
	Params []Type
	Code   *ir.Block
}

// Ref returns the symbolic reference used by special calls.
func (s *ConstructorSignature) Ref() ir.MethodRef {
	return ir.MethodRef{
		Class:  s.Class.Name(),
		Name:   ConstructorName,
		Params: irTypes(s.Params),
		Return: ir.Void,
	}
}

// FixtureSignature describes a fixture. The ordinal is its position among
// the fixtures of the class and disambiguates anonymous or same-named ones.
type FixtureSignature struct {
	Class   *ClassType
	Ordinal int
	Name    string
	Code    *ir.Block
}

// MethodName returns the name of the generated fixture method:
// "fixture<ordinal>" or "fixture<ordinal>$<name>".
func (f *FixtureSignature) MethodName() string {
	name := "fixture" + strconv.Itoa(f.Ordinal)
	if f.Name != "" {
		name += "$" + f.Name
	}
	return name
}

// TestSignature describes a test. Asserts lists the formatted source
// position of every assert in the body, in source order.
type TestSignature struct {
	Class   *ClassType
	Name    string
	Code    *ir.Block
	Asserts []string
}

// MethodName returns the name of the generated test method.
func (t *TestSignature) MethodName() string {
	return "test$" + t.Name
}

func irTypes(ts []Type) []ir.Type {
	if len(ts) == 0 {
		return nil
	}
	out := make([]ir.Type, len(ts))
	for i, t := range ts {
		out[i] = t.IR()
	}
	return out
}
