package compiler

import (
	"fmt"

	"github.com/chazu/kitten/compiler/ir"
	"github.com/chazu/kitten/types"
)

// ---------------------------------------------------------------------------
// Fixture and test declarations
// ---------------------------------------------------------------------------

// DeclState is the progress of a fixture or test declaration through the
// compiler. States are only ever entered in order.
type DeclState int

const (
	Declared DeclState = iota
	TypeChecked
	Registered
	CodeGenerated
)

var declStateNames = [...]string{"declared", "type-checked", "registered", "code-generated"}

func (s DeclState) String() string {
	if int(s) < len(declStateNames) {
		return declStateNames[s]
	}
	return fmt.Sprintf("DeclState(%d)", int(s))
}

// codeDecl is the state shared by fixture and test declarations.
type codeDecl struct {
	state   DeclState
	asserts []string
}

func (d *codeDecl) advance(op string, from DeclState) {
	if d.state != from {
		panic(&ir.ContractViolation{Op: op, Reason: fmt.Sprintf("declaration is %s, want %s", d.state, from)})
	}
	d.state++
}

// State returns how far the fixture has been compiled.
func (d *FixtureDecl) State() DeclState { return d.decl.state }

// TypeCheck checks the body with only this in scope. Asserts are rejected.
func (d *FixtureDecl) TypeCheck(tc *TypeChecker) {
	d.decl.advance("FixtureDecl.TypeCheck", Declared)
	tc.CheckBody(d.Body, nil, false)
}

// Register adds the fixture to class. Ordinals follow registration order,
// which is declaration order.
func (d *FixtureDecl) Register(class *types.ClassType) *types.FixtureSignature {
	d.decl.advance("FixtureDecl.Register", TypeChecked)
	return class.AddFixture(d.Name)
}

// Generate translates the body into sig.Code.
func (d *FixtureDecl) Generate(ctx Context, sig *types.FixtureSignature) {
	d.decl.advance("FixtureDecl.Generate", Registered)
	sig.Code = ctx.TranslateBody(d.Body)
}

// State returns how far the test has been compiled.
func (d *TestDecl) State() DeclState { return d.decl.state }

// TypeCheck checks the body with only this in scope. Asserts are allowed.
func (d *TestDecl) TypeCheck(tc *TypeChecker) {
	d.decl.advance("TestDecl.TypeCheck", Declared)
	d.decl.asserts = tc.CheckBody(d.Body, nil, true)
}

// Register adds the test to class. A test whose name is already taken is
// reported to errs and yields nil.
func (d *TestDecl) Register(class *types.ClassType, errs *ErrorList) *types.TestSignature {
	d.decl.advance("TestDecl.Register", TypeChecked)
	sig := class.AddTest(d.Name)
	if sig == nil {
		errs.Add(&DuplicateTestError{Pos: offsetOf(d), Class: class.Name(), Name: d.Name})
		return nil
	}
	sig.Asserts = d.decl.asserts
	return sig
}

// Generate translates the body into sig.Code. ctx must carry the
// accumulator of the harness class the test method will live in.
func (d *TestDecl) Generate(ctx Context, sig *types.TestSignature) {
	d.decl.advance("TestDecl.Generate", Registered)
	sig.Code = ctx.TranslateBody(d.Body)
}
