package ir

import (
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func expectViolation(t *testing.T, op string, fn func()) {
	t.Helper()
	defer func() {
		t.Helper()
		r := recover()
		if r == nil {
			t.Fatalf("%s: expected a contract violation", op)
		}
		err, ok := r.(error)
		var cv *ContractViolation
		if !ok || !errors.As(err, &cv) {
			t.Fatalf("%s: panic value %v is not a *ContractViolation", op, r)
		}
		if cv.Op != op {
			t.Errorf("violation op = %q, want %q", cv.Op, op)
		}
	}()
	fn()
}

func TestNewBlockShapeRules(t *testing.T) {
	ret := ReturnBlock(Void)

	expectViolation(t, "NewBlock", func() { NewBlock(nil, ret, ret, ret) })
	expectViolation(t, "NewBlock", func() { NewBlock(nil, nil) })
	expectViolation(t, "NewBlock", func() { NewBlock([]Instr{Nop{}}, ret, ret) })
	expectViolation(t, "NewBlock", func() { NewBlock([]Instr{Branch{}, Nop{}}, ret, ret) })
	expectViolation(t, "NewBlock", func() { NewBlock([]Instr{Return{Type: Void}}, ret) })
	expectViolation(t, "NewBlock", func() { NewBlock([]Instr{Goto{Target: ret}}) })
	expectViolation(t, "NewBlock", func() { NewBlock([]Instr{nil}) })
}

func TestFollowedByRejectsClosedBlocks(t *testing.T) {
	ret := ReturnBlock(Void)
	expectViolation(t, "FollowedBy", func() { ret.FollowedBy(Seq(Nop{})) })

	branch := BranchOn(ret, ret, Const{Type: Bool, Value: "true"})
	expectViolation(t, "FollowedBy", func() { branch.FollowedBy(ret) })

	jump := Jump(ret, Nop{})
	expectViolation(t, "FollowedBy", func() { jump.FollowedBy(ret) })
}

func TestBlockPredicates(t *testing.T) {
	ret := ReturnBlock(Int)
	if !ret.IsTerminal() || ret.IsOpen() || ret.IsBranch() {
		t.Errorf("return block: terminal=%v open=%v branch=%v", ret.IsTerminal(), ret.IsOpen(), ret.IsBranch())
	}
	open := Seq(Nop{})
	if !open.IsOpen() || open.IsTerminal() {
		t.Errorf("open block: open=%v terminal=%v", open.IsOpen(), open.IsTerminal())
	}
	branch := BranchOn(ret, ret, Const{Type: Bool, Value: "false"})
	if !branch.IsBranch() || branch.IsOpen() {
		t.Errorf("branch block: branch=%v open=%v", branch.IsBranch(), branch.IsOpen())
	}
}

func TestPrefixedByMergesUnprotectedBlocks(t *testing.T) {
	k := Jump(ReturnBlock(Void), Load{Slot: 1, Type: Int}, Pop{})
	b := k.PrefixedByAll(Const{Type: Int, Value: "3"}, Store{Slot: 1, Type: Int})

	want := []Instr{
		Const{Type: Int, Value: "3"},
		Store{Slot: 1, Type: Int},
		Load{Slot: 1, Type: Int},
		Pop{},
	}
	if diff := cmp.Diff(want, b.Code()); diff != "" {
		t.Errorf("code mismatch (-want +got):\n%s", diff)
	}
	if b.Follows()[0] != k.Follows()[0] {
		t.Error("prefixed block does not adopt the successor")
	}
	if k.Len() != 2 {
		t.Errorf("original block changed: len = %d", k.Len())
	}
}

func TestPrefixedByLinksProtectedBlocks(t *testing.T) {
	join := Jump(ReturnBlock(Void), Pop{}).DoNotMerge()
	b := join.PrefixedBy(Const{Type: Int, Value: "1"})

	if b == join {
		t.Fatal("PrefixedBy returned the protected block itself")
	}
	if diff := cmp.Diff([]Instr{Const{Type: Int, Value: "1"}}, b.Code()); diff != "" {
		t.Errorf("code mismatch (-want +got):\n%s", diff)
	}
	if f := b.Follows(); len(f) != 1 || f[0] != join {
		t.Errorf("prefix does not link to the join: %v", f)
	}
	if join.DoNotMerge() != join {
		t.Error("DoNotMerge on a protected block made a copy")
	}
}

func TestFollowedBy(t *testing.T) {
	ret := ReturnBlock(Void)
	merged := Seq(Nop{}).FollowedBy(Jump(ret, Pop{}))
	if diff := cmp.Diff([]Instr{Nop{}, Pop{}}, merged.Code()); diff != "" {
		t.Errorf("code mismatch (-want +got):\n%s", diff)
	}

	join := Jump(ret, Pop{}).DoNotMerge()
	linked := Seq(Nop{}).FollowedBy(join)
	if f := linked.Follows(); len(f) != 1 || f[0] != join || linked.Len() != 1 {
		t.Errorf("FollowedBy copied a protected block: %s", Dump(linked))
	}
}

func TestAnalyzeCountsPredecessors(t *testing.T) {
	join := Jump(ReturnBlock(Void), Pop{})
	then := Jump(join, Const{Type: Int, Value: "1"})
	otherwise := Jump(join, Const{Type: Int, Value: "2"})
	entry := BranchOn(then, otherwise, Const{Type: Bool, Value: "true"})

	g := Analyze(entry)
	if len(g.Blocks) != 5 {
		t.Fatalf("reachable blocks = %d, want 5", len(g.Blocks))
	}
	if g.Preds(join) != 2 || !g.IsJoin(join) {
		t.Errorf("join: preds = %d, IsJoin = %v", g.Preds(join), g.IsJoin(join))
	}
	if g.IsJoin(then) {
		t.Error("single-predecessor block reported as a join")
	}
	if g.Index(then) != 1 || g.Index(join) != 2 || g.Index(otherwise) != 4 {
		t.Errorf("unexpected order: then=%d join=%d otherwise=%d", g.Index(then), g.Index(join), g.Index(otherwise))
	}
	if g.Index(Seq(Nop{})) != -1 {
		t.Error("unreachable block has an index")
	}
	if g.Instructions() != 6 {
		t.Errorf("instructions = %d, want 6", g.Instructions())
	}
}

func TestDump(t *testing.T) {
	join := Jump(ReturnBlock(Void), Pop{}).DoNotMerge()
	entry := BranchOn(Jump(join, Nop{}), join, Const{Type: Bool, Value: "true"})

	want := strings.Join([]string{
		"B0:",
		"  const boolean true",
		"  branch",
		"  -> B1, B2",
		"B1:",
		"  nop",
		"  -> B2",
		"B2: [join]",
		"  pop",
		"  -> B3",
		"B3:",
		"  return void",
		"",
	}, "\n")
	if diff := cmp.Diff(want, Dump(entry)); diff != "" {
		t.Errorf("Dump mismatch (-want +got):\n%s", diff)
	}
}

func TestRefStrings(t *testing.T) {
	f := FieldRef{Class: "Adder$Test", Name: "posAsserts", Type: String}
	if f.String() != "Adder$Test.posAsserts:String" || f.Key() != "Adder$Test.posAsserts" {
		t.Errorf("field ref = %s / %s", f, f.Key())
	}
	m := MethodRef{Class: "String", Name: "concat", Params: []Type{String}, Return: String}
	if m.String() != "String.concat(String):String" || m.Key() != "String.concat" {
		t.Errorf("method ref = %s / %s", m, m.Key())
	}
}
