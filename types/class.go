package types

import (
	"fmt"

	"github.com/chazu/kitten/compiler/ir"
)

// ClassType is the static type and symbol table of a Kitten class.
// Members are kept in declaration order.
type ClassType struct {
	name   string
	super  *ClassType
	source *Source

	fields       []*FieldSignature
	fieldIndex   map[string]*FieldSignature
	constructors []*ConstructorSignature
	fixtures     []*FixtureSignature
	tests        []*TestSignature
	testIndex    map[string]*TestSignature
}

// NewClassType creates a class called name. super may be nil; source may be
// nil for classes that were not read from a file.
func NewClassType(name string, super *ClassType, source *Source) *ClassType {
	return &ClassType{
		name:       name,
		super:      super,
		source:     source,
		fieldIndex: make(map[string]*FieldSignature),
		testIndex:  make(map[string]*TestSignature),
	}
}

func (c *ClassType) String() string { return c.name }

func (c *ClassType) IR() ir.Type { return ir.Object(c.name) }

// AssignableTo holds for the class itself and every superclass.
func (c *ClassType) AssignableTo(other Type) bool {
	o, ok := other.(*ClassType)
	if !ok {
		return false
	}
	return c.IsSubclassOf(o)
}

// IsSubclassOf reports whether other is c or one of its ancestors.
func (c *ClassType) IsSubclassOf(other *ClassType) bool {
	for k := c; k != nil; k = k.super {
		if k == other {
			return true
		}
	}
	return false
}

// Name returns the class name.
func (c *ClassType) Name() string { return c.name }

// Superclass returns the superclass, or nil.
func (c *ClassType) Superclass() *ClassType { return c.super }

// Source returns the source the class was declared in, or nil.
func (c *ClassType) Source() *Source { return c.source }

// ErrorPosition formats a source offset of this class as "<line>.<col>".
func (c *ClassType) ErrorPosition(offset int) string {
	if c.source == nil {
		return fmt.Sprintf("@%d", offset)
	}
	return c.source.Position(offset)
}

// AddField declares a field. It returns nil when the class already declares
// a field with that name.
func (c *ClassType) AddField(name string, t Type) *FieldSignature {
	if _, dup := c.fieldIndex[name]; dup {
		return nil
	}
	f := &FieldSignature{Class: c, Name: name, Type: t}
	c.fields = append(c.fields, f)
	c.fieldIndex[name] = f
	return f
}

// Fields returns the fields declared by this class, in declaration order.
func (c *ClassType) Fields() []*FieldSignature {
	return append([]*FieldSignature(nil), c.fields...)
}

// FieldLookup finds a field in the class or its superclasses.
func (c *ClassType) FieldLookup(name string) *FieldSignature {
	for k := c; k != nil; k = k.super {
		if f, ok := k.fieldIndex[name]; ok {
			return f
		}
	}
	return nil
}

// AddConstructor declares a constructor. It returns nil when a constructor
// with the same parameter types exists.
func (c *ClassType) AddConstructor(params []Type) *ConstructorSignature {
	if c.ConstructorLookup(params...) != nil {
		return nil
	}
	s := &ConstructorSignature{Class: c, Params: append([]Type(nil), params...)}
	c.constructors = append(c.constructors, s)
	return s
}

// Constructors returns the declared constructors in declaration order.
func (c *ClassType) Constructors() []*ConstructorSignature {
	return append([]*ConstructorSignature(nil), c.constructors...)
}

// ConstructorLookup returns the constructor whose parameters are exactly
// params, or nil. Constructors are not inherited.
func (c *ClassType) ConstructorLookup(params ...Type) *ConstructorSignature {
	for _, s := range c.constructors {
		if sameTypes(s.Params, params) {
			return s
		}
	}
	return nil
}

// AddFixture registers a fixture. Ordinals follow registration order.
func (c *ClassType) AddFixture(name string) *FixtureSignature {
	f := &FixtureSignature{Class: c, Ordinal: len(c.fixtures), Name: name}
	c.fixtures = append(c.fixtures, f)
	return f
}

// Fixtures returns the fixtures in declaration order.
func (c *ClassType) Fixtures() []*FixtureSignature {
	return append([]*FixtureSignature(nil), c.fixtures...)
}

// AddTest registers a test. It returns nil when the name is already taken.
func (c *ClassType) AddTest(name string) *TestSignature {
	if _, dup := c.testIndex[name]; dup {
		return nil
	}
	t := &TestSignature{Class: c, Name: name}
	c.tests = append(c.tests, t)
	c.testIndex[name] = t
	return t
}

// Tests returns the tests in declaration order.
func (c *ClassType) Tests() []*TestSignature {
	return append([]*TestSignature(nil), c.tests...)
}

// TestLookup finds a test by name.
func (c *ClassType) TestLookup(name string) *TestSignature {
	return c.testIndex[name]
}

func sameTypes(a, b []Type) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
