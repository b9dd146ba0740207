package harness

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/chazu/kitten/compiler/emit"
	"github.com/chazu/kitten/compiler/ir"
	"github.com/chazu/kitten/types"
)

// Local slots of main. Slot 0 holds the program arguments.
const (
	slotInstance uint8 = 1
	slotElapsed  uint8 = 2
	slotCentis   uint8 = 3
)

const (
	nanosPerMilli  = 1_000_000
	nanosPerCentis = 10_000
)

var (
	concat   = ir.Call{Kind: ir.CallVirtual, Target: emit.StringConcat}
	printOut = ir.Call{Kind: ir.CallStatic, Target: emit.Print}
	nanoTime = ir.Call{Kind: ir.CallStatic, Target: emit.NanoTime}
)

func intConst(n int) ir.Const {
	return ir.Const{Type: ir.Int, Value: strconv.Itoa(n)}
}

// MainCode returns the body of the harness entry point of class. The code is
// built from the last test backwards: each test's run is prefixed to the
// code of the tests after it.
func MainCode(class *types.ClassType, opts Options) *ir.Block {
	opts = opts.withDefaults()
	name := ClassName(class.Name(), opts)
	g := &mainGen{
		class:   class,
		harness: name,
		acc:     AccumulatorRef(name),
	}

	k := ir.Jump(ir.ReturnBlock(ir.Void), ir.NewString{Value: "\n"}, printOut)
	tests := class.Tests()
	for i := len(tests) - 1; i >= 0; i-- {
		k = g.runTest(tests[i], k)
	}
	return k.PrefixedByAll(ir.NewString{Value: header(opts.Header, name)}, printOut)
}

func header(template, class string) string {
	if strings.Contains(template, "%s") {
		return fmt.Sprintf(template, class)
	}
	return template
}

type mainGen struct {
	class   *types.ClassType
	harness string
	acc     ir.FieldRef
}

func (g *mainGen) procedure(method string) ir.Call {
	return ir.Call{
		Kind: ir.CallStatic,
		Target: ir.MethodRef{
			Class:  g.harness,
			Name:   method,
			Params: []ir.Type{ir.Object(g.class.Name())},
			Return: ir.Void,
		},
	}
}

func (g *mainGen) constructor() ir.Call {
	return ir.Call{
		Kind:   ir.CallSpecial,
		Target: ir.MethodRef{Class: g.class.Name(), Name: types.ConstructorName, Return: ir.Void},
	}
}

// runTest resets the accumulator, builds a fresh instance, runs the fixtures
// and the timed test on it, then reports and continues with k.
func (g *mainGen) runTest(test *types.TestSignature, k *ir.Block) *ir.Block {
	this := ir.Object(g.class.Name())
	ops := []ir.Instr{
		ir.NewString{},
		ir.PutStatic{Field: g.acc},
		ir.New{Class: g.class.Name()},
		ir.Dup{},
		g.constructor(),
		ir.Store{Slot: slotInstance, Type: this},
	}
	for _, f := range g.class.Fixtures() {
		ops = append(ops, ir.Load{Slot: slotInstance, Type: this}, g.procedure(f.MethodName()))
	}
	ops = append(ops,
		nanoTime,
		ir.Store{Slot: slotElapsed, Type: ir.Int},
		ir.Load{Slot: slotInstance, Type: this},
		g.procedure(test.MethodName()),
		nanoTime,
		ir.Load{Slot: slotElapsed, Type: ir.Int},
		ir.Arith{Op: ir.Sub},
		ir.Store{Slot: slotElapsed, Type: ir.Int},
	)
	return g.report(test.Name, k).PrefixedByAll(ops...)
}

// report leaves the status line of test on the stack, appends the elapsed
// time and prints it. Both status branches converge on the timing code.
func (g *mainGen) report(test string, k *ir.Block) *ir.Block {
	timing := g.elapsed(k)
	passed := ir.Jump(timing, ir.NewString{Value: "\n- test " + test + ": passed"})
	failed := ir.Jump(timing,
		ir.NewString{Value: "\n- test " + test + ": failed"},
		ir.GetStatic{Field: g.acc},
		concat,
	)
	return ir.BranchOn(passed, failed,
		ir.GetStatic{Field: g.acc},
		ir.NewString{},
		ir.Compare{Op: ir.Eq},
	)
}

// elapsed appends "[<ms>.<cc> ms]" to the string on the stack, prints it and
// continues with k. The two-digit fraction is zero-padded by a branch.
func (g *mainGen) elapsed(k *ir.Block) *ir.Block {
	finish := ir.Jump(k,
		ir.Load{Slot: slotCentis, Type: ir.Int},
		concat,
		ir.NewString{Value: " ms]"},
		concat,
		printOut,
	).DoNotMerge()
	pad := ir.Jump(finish, ir.NewString{Value: "0"}, concat)
	return ir.BranchOn(pad, finish,
		ir.NewString{Value: "["},
		concat,
		ir.Load{Slot: slotElapsed, Type: ir.Int},
		intConst(nanosPerMilli),
		ir.Arith{Op: ir.Div},
		concat,
		ir.NewString{Value: "."},
		concat,
		ir.Load{Slot: slotElapsed, Type: ir.Int},
		intConst(nanosPerCentis),
		ir.Arith{Op: ir.Div},
		intConst(100),
		ir.Arith{Op: ir.Mod},
		ir.Store{Slot: slotCentis, Type: ir.Int},
		ir.Load{Slot: slotCentis, Type: ir.Int},
		intConst(10),
		ir.Compare{Op: ir.Lt},
	).DoNotMerge()
}
