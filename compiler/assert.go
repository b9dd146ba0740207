package compiler

import (
	"github.com/chazu/kitten/compiler/emit"
	"github.com/chazu/kitten/compiler/ir"
	"github.com/chazu/kitten/types"
)

// ---------------------------------------------------------------------------
// assert: non-fatal checks that record their position on failure
// ---------------------------------------------------------------------------

// Accumulator is the compile-time handle on the static String field in which
// generated code collects the positions of failed asserts of the running
// test.
type Accumulator struct {
	Field ir.FieldRef
}

// NewAccumulator returns the accumulator stored in field name of class.
func NewAccumulator(class, name string) Accumulator {
	return Accumulator{Field: ir.FieldRef{Class: class, Name: name, Type: ir.String}}
}

// Valid reports whether the accumulator names a field.
func (a Accumulator) Valid() bool {
	return a.Field.Name != ""
}

// Record returns a protected block that appends ", <position>" to the
// accumulator and continues with k.
func (a Accumulator) Record(position string, k *ir.Block) *ir.Block {
	return ir.Jump(k,
		ir.GetStatic{Field: a.Field},
		ir.NewString{Value: ", " + position},
		ir.Call{Kind: ir.CallVirtual, Target: emit.StringConcat},
		ir.PutStatic{Field: a.Field},
	).DoNotMerge()
}

// checkAssert type-checks an assert and records its formatted position.
func (c *TypeChecker) checkAssert(a *Assert) {
	if !c.assertAllowed {
		c.errs.Add(&ContextError{Pos: offsetOf(a), Construct: "assert"})
	}
	if a.Condition == nil {
		c.errs.Add(&MissingConditionError{Pos: offsetOf(a)})
		return
	}
	t := c.checkExpr(a.Condition)
	if t != nil && !types.IsBoolean(t) {
		c.errs.Add(&TypeMismatchError{Pos: offsetOf(a), Context: "assert", Expected: types.Bool, Found: t})
	}

	pos := c.class.ErrorPosition(offsetOf(a))
	c.info.Positions[a] = pos
	c.asserts = append(c.asserts, pos)
}

// translateAssert continues with k when the condition holds. Otherwise it
// records the assert's position in the accumulator and then continues with
// k as well, so a failing assert never stops the test.
func (ctx Context) translateAssert(a *Assert, k *ir.Block) *ir.Block {
	if !ctx.Acc.Valid() {
		panic(&ir.ContractViolation{Op: "Translate", Reason: "assert outside a test"})
	}
	k = k.DoNotMerge()
	fail := ctx.Acc.Record(ctx.Info.Positions[a], k)
	return ctx.TranslateAsTest(a.Condition, k, fail)
}
