package compiler

import (
	"errors"
	"fmt"

	"github.com/tliron/commonlog"

	"github.com/chazu/kitten/classfile"
	"github.com/chazu/kitten/harness"
	"github.com/chazu/kitten/types"
)

var log = commonlog.GetLogger("kitten.compiler")

// ---------------------------------------------------------------------------
// Driver: source file to class files
// ---------------------------------------------------------------------------

// Options configures a compilation.
type Options struct {
	Harness harness.Options

	// Debug records the source position of every command in the emitted
	// code.
	Debug bool
}

// Unit is the result of compiling one class declaration. A unit with errors
// has neither a subject nor a harness class.
type Unit struct {
	Decl    *ClassDecl
	Class   *types.ClassType
	Errors  *ErrorList
	Subject *classfile.Class
	Harness *classfile.Class

	resolving bool
	membered  bool
	generated bool
	checker   *TypeChecker
	ctors     []constructor
	fixtures  []*types.FixtureSignature
	tests     []*types.TestSignature
}

// OK reports whether the class compiled.
func (u *Unit) OK() bool {
	return u.Errors.Len() == 0
}

// Compilation is the result of compiling a source file.
type Compilation struct {
	Source *types.Source
	Syntax *ErrorList
	Units  []*Unit
}

// Err returns every diagnostic of the file, or nil when it compiled cleanly.
func (c *Compilation) Err() error {
	var errs []error
	if err := c.Syntax.Err(); err != nil {
		errs = append(errs, err)
	}
	for _, u := range c.Units {
		if err := u.Errors.Err(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// ErrorCount returns the number of diagnostics in the file.
func (c *Compilation) ErrorCount() int {
	n := c.Syntax.Len()
	for _, u := range c.Units {
		n += u.Errors.Len()
	}
	return n
}

// Classes returns the class files produced, each subject followed by its
// harness.
func (c *Compilation) Classes() []*classfile.Class {
	var out []*classfile.Class
	for _, u := range c.Units {
		if u.Subject != nil {
			out = append(out, u.Subject)
		}
		if u.Harness != nil {
			out = append(out, u.Harness)
		}
	}
	return out
}

// CompileSource parses and compiles text read from path. Syntax errors are
// reported in Syntax; classes that parsed are still compiled.
func CompileSource(path, text string, opts Options) *Compilation {
	file, errs := ParseFile(path, text)
	comp := Compile(file, opts)
	for _, err := range errs {
		comp.Syntax.Add(err)
	}
	return comp
}

// Compile compiles every class of file. Classes are compiled independently:
// errors in one class do not prevent the others from producing output,
// unless the class extends one that failed. The declarations of file are
// consumed: a file can only be compiled once.
func Compile(file *SourceFile, opts Options) *Compilation {
	src := types.NewSource(file.Path, file.Text)
	d := &driver{
		opts:    opts,
		comp:    &Compilation{Source: src, Syntax: NewErrorList(src)},
		units:   make(map[string]*Unit),
		classes: make(map[string]*types.ClassType),
	}

	for _, decl := range file.Classes {
		u := &Unit{Decl: decl, Errors: NewErrorList(src)}
		d.comp.Units = append(d.comp.Units, u)
		switch {
		case types.Basic(decl.Name) != nil:
			u.Errors.Add(&SemanticError{Pos: offsetOf(decl), Msg: fmt.Sprintf("%s is a reserved type name", decl.Name)})
		case d.units[decl.Name] != nil:
			u.Errors.Add(&SemanticError{Pos: offsetOf(decl), Msg: fmt.Sprintf("class %s is already defined", decl.Name)})
		default:
			d.units[decl.Name] = u
		}
	}

	for _, u := range d.comp.Units {
		if !u.OK() {
			continue
		}
		if other := d.units[harness.ClassName(u.Decl.Name, opts.Harness)]; other != nil {
			u.Errors.Add(&SemanticError{Pos: offsetOf(u.Decl), Msg: fmt.Sprintf("harness of class %s collides with class %s", u.Decl.Name, other.Decl.Name)})
		}
	}

	for _, u := range d.comp.Units {
		if u.OK() {
			d.declare(u)
		}
	}
	for _, u := range d.comp.Units {
		if u.Class != nil {
			d.members(u)
		}
	}
	for _, u := range d.comp.Units {
		if u.Class != nil {
			d.check(u)
		}
	}
	for _, u := range d.comp.Units {
		if u.Class != nil {
			d.generate(u)
		}
	}

	log.Infof("compiled %s: %d classes, %d errors", src.Path, len(d.comp.Units), d.comp.ErrorCount())
	return d.comp
}

type driver struct {
	opts    Options
	comp    *Compilation
	units   map[string]*Unit
	classes map[string]*types.ClassType
}

func (d *driver) superUnit(u *Unit) *Unit {
	if u.Decl.Superclass == "" {
		return nil
	}
	return d.units[u.Decl.Superclass]
}

// declare creates the class type of u, declaring its superclass first.
func (d *driver) declare(u *Unit) *types.ClassType {
	if u.Class != nil {
		return u.Class
	}
	if u.resolving {
		u.Errors.Add(&SemanticError{Pos: offsetOf(u.Decl), Msg: fmt.Sprintf("cyclic inheritance involving %s", u.Decl.Name)})
		return nil
	}
	u.resolving = true
	defer func() { u.resolving = false }()

	var super *types.ClassType
	if name := u.Decl.Superclass; name != "" {
		su := d.units[name]
		if su == nil {
			u.Errors.Add(&SemanticError{Pos: offsetOf(u.Decl), Msg: fmt.Sprintf("unknown superclass %s", name)})
			return nil
		}
		if super = d.declare(su); super == nil {
			if u.OK() {
				u.Errors.Add(&SemanticError{Pos: offsetOf(u.Decl), Msg: fmt.Sprintf("superclass %s cannot be resolved", name)})
			}
			return nil
		}
	}
	if !u.OK() {
		return nil
	}

	u.Class = types.NewClassType(u.Decl.Name, super, d.comp.Source)
	d.classes[u.Decl.Name] = u.Class
	return u.Class
}

// members declares the fields and constructors of u after those of its
// superclass.
func (d *driver) members(u *Unit) {
	if u.membered {
		return
	}
	u.membered = true
	if su := d.superUnit(u); su != nil {
		d.members(su)
	}

	class := u.Class
	u.checker = NewTypeChecker(class, d.classes, NewInfo(), u.Errors)

	for _, f := range u.Decl.Fields {
		t := u.checker.ResolveType(f.Type)
		if t == nil {
			continue
		}
		if super := class.Superclass(); super != nil && super.FieldLookup(f.Name) != nil {
			u.Errors.Add(&SemanticError{Pos: offsetOf(f), Msg: fmt.Sprintf("field %s is already defined in a superclass", f.Name)})
			continue
		}
		if class.AddField(f.Name, t) == nil {
			u.Errors.Add(&SemanticError{Pos: offsetOf(f), Msg: fmt.Sprintf("field %s is already defined", f.Name)})
		}
	}

	if len(u.Decl.Constructors) == 0 {
		u.ctors = append(u.ctors, constructor{sig: class.AddConstructor(nil)})
		return
	}
	for i, c := range u.Decl.Constructors {
		if i > 0 {
			u.Errors.Add(&SemanticError{Pos: offsetOf(c), Msg: fmt.Sprintf("class %s declares more than one constructor", class.Name())})
			continue
		}
		params := make([]types.Type, 0, len(c.Params))
		for _, p := range c.Params {
			if t := u.checker.ResolveType(p.Type); t != nil {
				params = append(params, t)
			}
		}
		if len(params) != len(c.Params) {
			continue
		}
		u.ctors = append(u.ctors, constructor{sig: class.AddConstructor(params), decl: c})
	}
}

// check type-checks every body of u and registers its fixtures and tests.
func (d *driver) check(u *Unit) {
	class := u.Class
	if super := class.Superclass(); super != nil && super.ConstructorLookup() == nil {
		u.Errors.Add(&SemanticError{Pos: offsetOf(u.Decl), Msg: fmt.Sprintf("superclass %s has no zero-argument constructor", super.Name())})
	}

	for _, c := range u.ctors {
		if c.decl != nil {
			u.checker.CheckBody(c.decl.Body, c.decl.Params, false)
		}
	}
	for _, f := range u.Decl.Fixtures {
		f.TypeCheck(u.checker)
		u.fixtures = append(u.fixtures, f.Register(class))
	}
	for _, t := range u.Decl.Tests {
		t.TypeCheck(u.checker)
		if sig := t.Register(class, u.Errors); sig != nil {
			u.tests = append(u.tests, sig)
		}
	}
}

// generate translates u and builds its subject and harness classes. Nothing
// is produced for a class with errors or whose superclass failed.
func (d *driver) generate(u *Unit) {
	if u.generated {
		return
	}
	u.generated = true
	if su := d.superUnit(u); su != nil {
		d.generate(su)
		if su.Subject == nil && u.OK() {
			u.Errors.Add(&SemanticError{Pos: offsetOf(u.Decl), Msg: fmt.Sprintf("superclass %s failed to compile", su.Decl.Name)})
		}
	}
	if !u.OK() {
		log.Debugf("skipping %s: %d errors", u.Decl.Name, u.Errors.Len())
		return
	}

	class := u.Class
	harnessName := harness.ClassName(class.Name(), d.opts.Harness)
	ctx := Context{
		Class: class,
		Info:  u.checker.Info(),
		Acc:   NewAccumulator(harnessName, harness.AccumulatorField),
		Lines: d.opts.Debug,
	}

	for _, c := range u.ctors {
		c.sig.Code = ctx.TranslateConstructor(c.body())
	}
	for i, f := range u.Decl.Fixtures {
		f.Generate(ctx, u.fixtures[i])
	}
	for i, t := range u.Decl.Tests {
		t.Generate(ctx, u.tests[i])
	}

	subject, err := emitClass(class, u.ctors)
	if err != nil {
		u.Errors.Add(err)
		return
	}

	var h *classfile.Class
	if class.ConstructorLookup() != nil || len(u.fixtures) > 0 || len(u.tests) > 0 {
		if h, err = harness.Generate(class, d.opts.Harness); err != nil {
			u.Errors.Add(err)
			return
		}
	}

	u.Subject, u.Harness = subject, h
	log.Debugf("generated %s (%d fixtures, %d tests)", class.Name(), len(u.fixtures), len(u.tests))
}
