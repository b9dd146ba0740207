// Package harness generates the companion class that runs the tests of a
// class under test: one static method per fixture and per test, a static
// accumulator for failed assert positions, and a main that times every test
// and prints a report line for it.
package harness

import (
	"fmt"

	"github.com/tliron/commonlog"

	"github.com/chazu/kitten/classfile"
	"github.com/chazu/kitten/compiler/emit"
	"github.com/chazu/kitten/compiler/ir"
	"github.com/chazu/kitten/types"
)

var log = commonlog.GetLogger("kitten.harness")

const (
	// AccumulatorField is the static field collecting failed assert
	// positions of the running test.
	AccumulatorField = "posAsserts"

	// DefaultSuffix is appended to the class under test to name its harness.
	DefaultSuffix = "$Test"

	// DefaultHeader is printed before the report lines. %s is the harness
	// class name.
	DefaultHeader = "Running tests for class %s:"
)

// Options tunes the generated class.
type Options struct {
	Suffix string
	Header string
}

// DefaultOptions returns the options used when none are configured.
func DefaultOptions() Options {
	return Options{Suffix: DefaultSuffix, Header: DefaultHeader}
}

func (o Options) withDefaults() Options {
	if o.Suffix == "" {
		o.Suffix = DefaultSuffix
	}
	if o.Header == "" {
		o.Header = DefaultHeader
	}
	return o
}

// ClassName returns the name of the harness of class.
func ClassName(class string, opts Options) string {
	return class + opts.withDefaults().Suffix
}

// AccumulatorRef returns the accumulator field of the harness class called
// harnessClass.
func AccumulatorRef(harnessClass string) ir.FieldRef {
	return ir.FieldRef{Class: harnessClass, Name: AccumulatorField, Type: ir.String}
}

// StructuralError reports a class under test that cannot be driven by a
// harness.
type StructuralError struct {
	Class  string
	Reason string
}

func (e *StructuralError) Error() string {
	return fmt.Sprintf("class %s %s", e.Class, e.Reason)
}

// Generate builds the harness of class. Every fixture and test signature
// must already hold its translated code. A class without tests still gets a
// valid harness whose main only prints the header.
func Generate(class *types.ClassType, opts Options) (*classfile.Class, error) {
	opts = opts.withDefaults()
	if class.ConstructorLookup() == nil {
		return nil, &StructuralError{Class: class.Name(), Reason: "has no zero-argument constructor"}
	}

	name := ClassName(class.Name(), opts)
	b := classfile.NewBuilder(name, "")
	if src := class.Source(); src != nil {
		b.SetSource(src.Path)
	}

	if err := b.AddField(classfile.Field{Name: AccumulatorField, Type: string(ir.String), Static: true}); err != nil {
		return nil, err
	}

	for _, f := range class.Fixtures() {
		if err := addInstanceProcedure(b, class, f.MethodName(), f.Code); err != nil {
			return nil, err
		}
	}
	for _, t := range class.Tests() {
		if err := addInstanceProcedure(b, class, t.MethodName(), t.Code); err != nil {
			return nil, err
		}
	}

	chunk, err := emit.Linearize(MainCode(class, opts), emit.WithParams("args"))
	if err != nil {
		return nil, fmt.Errorf("harness %s: main: %w", name, err)
	}
	if err := b.AddMethod(classfile.Method{
		Name:   "main",
		Params: []string{"String[]"},
		Return: string(ir.Void),
		Static: true,
	}, chunk); err != nil {
		return nil, err
	}

	c, err := b.Build()
	if err != nil {
		return nil, err
	}
	log.Infof("generated %s: %d fixtures, %d tests", name, len(class.Fixtures()), len(class.Tests()))
	return c, nil
}

// addInstanceProcedure adds a static void method taking the instance under
// test as its only parameter.
func addInstanceProcedure(b *classfile.Builder, class *types.ClassType, name string, code *ir.Block) error {
	if code == nil {
		return fmt.Errorf("harness: %s.%s has no code", class.Name(), name)
	}
	chunk, err := emit.Linearize(code, emit.WithParams("this"))
	if err != nil {
		return fmt.Errorf("harness: %s.%s: %w", class.Name(), name, err)
	}
	return b.AddMethod(classfile.Method{
		Name:   name,
		Params: []string{class.Name()},
		Return: string(ir.Void),
		Static: true,
	}, chunk)
}
