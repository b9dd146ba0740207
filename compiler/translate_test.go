package compiler

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/chazu/kitten/compiler/ir"
)

// compileUnit compiles a single-class source and fails on any diagnostic.
func compileUnit(t *testing.T, src string) *Unit {
	t.Helper()
	comp := CompileSource("t.kit", src, Options{})
	if err := comp.Err(); err != nil {
		t.Fatalf("compile: %v", err)
	}
	if len(comp.Units) != 1 {
		t.Fatalf("units = %d, want 1", len(comp.Units))
	}
	return comp.Units[0]
}

func testCode(t *testing.T, u *Unit, name string) string {
	t.Helper()
	sig := u.Class.TestLookup(name)
	if sig == nil || sig.Code == nil {
		t.Fatalf("test %s has no code", name)
	}
	return ir.Dump(sig.Code)
}

func lines(ls ...string) string {
	return strings.Join(ls, "\n") + "\n"
}

func TestTranslateAssertComparison(t *testing.T) {
	u := compileUnit(t, `class A { test t { assert 1 == 2; } }`)
	want := lines(
		"B0:",
		"  const int 1",
		"  const int 2",
		"  compare eq",
		"  branch",
		"  -> B1, B2",
		"B1: [join]",
		"  return void",
		"B2: [join]",
		"  getstatic A$Test.posAsserts:String",
		`  newstring ", 1.20"`,
		"  call virtual String.concat(String):String",
		"  putstatic A$Test.posAsserts:String",
		"  -> B1",
	)
	if diff := cmp.Diff(want, testCode(t, u, "t")); diff != "" {
		t.Errorf("IR mismatch (-want +got):\n%s", diff)
	}
}

func TestTranslateNotSwapsTargets(t *testing.T) {
	u := compileUnit(t, `class A { test t { assert !(1 < 2); } }`)
	want := lines(
		"B0:",
		"  const int 1",
		"  const int 2",
		"  compare lt",
		"  branch",
		"  -> B1, B2",
		"B1: [join]",
		"  getstatic A$Test.posAsserts:String",
		`  newstring ", 1.20"`,
		"  call virtual String.concat(String):String",
		"  putstatic A$Test.posAsserts:String",
		"  -> B2",
		"B2: [join]",
		"  return void",
	)
	if diff := cmp.Diff(want, testCode(t, u, "t")); diff != "" {
		t.Errorf("IR mismatch (-want +got):\n%s", diff)
	}
}

func TestTranslateLiteralConditionsFold(t *testing.T) {
	u := compileUnit(t, `class A {
	test yes { assert true; }
	test no { assert false; }
	test both { assert true && !false; }
}`)
	if got := testCode(t, u, "yes"); strings.Contains(got, "branch") || strings.Contains(got, "posAsserts") {
		t.Errorf("assert true is not folded:\n%s", got)
	}
	if got := testCode(t, u, "both"); strings.Contains(got, "branch") || strings.Contains(got, "posAsserts") {
		t.Errorf("assert true && !false is not folded:\n%s", got)
	}
	no := testCode(t, u, "no")
	if strings.Contains(no, "branch") || !strings.Contains(no, "putstatic") {
		t.Errorf("assert false does not record unconditionally:\n%s", no)
	}
}

func TestTranslateShortCircuitSharesTargets(t *testing.T) {
	u := compileUnit(t, `class A { test t {
	int x := 3;
	assert x > 1 && x < 5 || x == 10;
} }`)
	g := ir.Analyze(u.Class.TestLookup("t").Code)

	branches := 0
	for _, b := range g.Blocks {
		if b.IsBranch() {
			branches++
		}
	}
	if branches != 3 {
		t.Errorf("branches = %d, want one per comparison\n%s", branches, ir.Dump(g.Entry))
	}
	if got := strings.Count(ir.Dump(g.Entry), "putstatic"); got != 1 {
		t.Errorf("failure recorded %d times, want 1", got)
	}
}

func TestTranslateIsIdempotent(t *testing.T) {
	src := `class A {
	field int n;
	test t {
		int i := 2;
		if (i > 1 && !(this.n == 0)) then this.n := i; else this.n := -i;
		assert this.n == 2 || i != 2;
		boolean ok := i < 3 && this.n > 0;
		assert ok;
	}
}`
	u := compileUnit(t, src)
	ctx := Context{Class: u.Class, Info: u.checker.Info(), Acc: NewAccumulator("A$Test", "posAsserts")}
	body := u.Decl.Tests[0].Body

	first := ir.Dump(ctx.TranslateBody(body))
	second := ir.Dump(ctx.TranslateBody(body))
	if diff := cmp.Diff(first, second); diff != "" {
		t.Errorf("translations differ (-first +second):\n%s", diff)
	}
	if diff := cmp.Diff(testCode(t, u, "t"), first); diff != "" {
		t.Errorf("retranslation differs from the compiled test (-compiled +again):\n%s", diff)
	}
}

func TestTranslateAssertWithoutAccumulatorPanics(t *testing.T) {
	u := compileUnit(t, `class A { test t { assert 1 == 1; } }`)
	ctx := Context{Class: u.Class, Info: u.checker.Info()}
	defer func() {
		if _, ok := recover().(*ir.ContractViolation); !ok {
			t.Error("translating an assert without an accumulator did not panic")
		}
	}()
	ctx.TranslateBody(u.Decl.Tests[0].Body)
}

func TestDeclarationStatesAreOrdered(t *testing.T) {
	u := compileUnit(t, `class A { fixture f { } test t { } }`)
	f, tst := u.Decl.Fixtures[0], u.Decl.Tests[0]
	if f.State() != CodeGenerated || tst.State() != CodeGenerated {
		t.Fatalf("states = %s, %s, want code-generated", f.State(), tst.State())
	}

	defer func() {
		cv, ok := recover().(*ir.ContractViolation)
		if !ok {
			t.Fatal("repeated type check did not panic")
		}
		if !strings.Contains(cv.Reason, "code-generated") {
			t.Errorf("reason = %q", cv.Reason)
		}
	}()
	tst.TypeCheck(u.checker)
}

func TestConstructorChainsToSuperclass(t *testing.T) {
	comp := CompileSource("t.kit", `class Base { field int b; constructor() { this.b := 1; } }
class Derived extends Base { field int d; }`, Options{})
	if err := comp.Err(); err != nil {
		t.Fatal(err)
	}
	derived := comp.Units[1].Class.ConstructorLookup()
	got := ir.Dump(derived.Code)
	if !strings.Contains(got, "call special Base.<init>():void") {
		t.Errorf("derived constructor does not chain:\n%s", got)
	}
	base := ir.Dump(comp.Units[0].Class.ConstructorLookup().Code)
	if strings.Contains(base, "call special") {
		t.Errorf("root constructor chains:\n%s", base)
	}
}
