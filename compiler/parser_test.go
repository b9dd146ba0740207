package compiler

import (
	"strconv"
	"strings"
	"testing"
)

func parseExpr(t *testing.T, input string) Expr {
	t.Helper()
	p := NewParser(input)
	e := p.ParseExpression()
	if len(p.Errors()) > 0 {
		t.Fatalf("ParseExpression(%q): %v", input, p.Errors())
	}
	if e == nil {
		t.Fatalf("ParseExpression(%q) = nil", input)
	}
	return e
}

// render prints an expression fully parenthesised.
func render(e Expr) string {
	switch n := e.(type) {
	case *IntLiteral:
		return strconv.FormatInt(n.Value, 10)
	case *BoolLiteral:
		if n.Value {
			return "true"
		}
		return "false"
	case *StringLiteral:
		return `"` + n.Value + `"`
	case *NilLiteral:
		return "nil"
	case *This:
		return "this"
	case *Variable:
		return n.Name
	case *FieldAccess:
		return render(n.Receiver) + "." + n.Name
	case *UnaryExpr:
		return "(" + n.Op.String() + render(n.Operand) + ")"
	case *BinaryExpr:
		return "(" + render(n.Left) + " " + n.Op.String() + " " + render(n.Right) + ")"
	}
	return "?"
}

func TestParseExpressionPrecedence(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"1 + 2 * 3", "(1 + (2 * 3))"},
		{"1 + 1 == 2", "((1 + 1) == 2)"},
		{"a < b && b < c", "((a < b) && (b < c))"},
		{"a || b && c", "(a || (b && c))"},
		{"!a && b", "((!a) && b)"},
		{"-x % 3", "((-x) % 3)"},
		{"(1 + 2) * 3", "((1 + 2) * 3)"},
		{"10 - 4 - 3", "((10 - 4) - 3)"},
		{"this.count.value != nil", "(this.count.value != nil)"},
		{`name == "kitten"`, `(name == "kitten")`},
		{"!(a == b)", "(!(a == b))"},
	}
	for _, tc := range tests {
		if got := render(parseExpr(t, tc.input)); got != tc.want {
			t.Errorf("parse(%q) = %s, want %s", tc.input, got, tc.want)
		}
	}
}

func TestParseCommands(t *testing.T) {
	p := NewParser(`{
		int x := 1;
		x := x + 1;
		this.count := x;
		if (x > 1) then { ; } else return;
		assert x == 2;
		assert;
	}`)
	cmd := p.ParseCommand()
	if len(p.Errors()) > 0 {
		t.Fatalf("parse errors: %v", p.Errors())
	}
	block, ok := cmd.(*BlockCommand)
	if !ok {
		t.Fatalf("command = %T, want *BlockCommand", cmd)
	}
	if len(block.Commands) != 6 {
		t.Fatalf("commands = %d, want 6", len(block.Commands))
	}

	decl, ok := block.Commands[0].(*LocalDeclaration)
	if !ok || decl.Type.Name != "int" || decl.Name != "x" {
		t.Errorf("command 0 = %#v, want int x declaration", block.Commands[0])
	}
	if a, ok := block.Commands[2].(*Assignment); !ok {
		t.Errorf("command 2 = %T, want *Assignment", block.Commands[2])
	} else if _, ok := a.Target.(*FieldAccess); !ok {
		t.Errorf("assignment target = %T, want *FieldAccess", a.Target)
	}
	ite, ok := block.Commands[3].(*IfThenElse)
	if !ok {
		t.Fatalf("command 3 = %T, want *IfThenElse", block.Commands[3])
	}
	if _, ok := ite.Else.(*Return); !ok {
		t.Errorf("else branch = %T, want *Return", ite.Else)
	}
	if a := block.Commands[4].(*Assert); a.Condition == nil {
		t.Error("assert lost its condition")
	}
	if a := block.Commands[5].(*Assert); a.Condition != nil {
		t.Errorf("empty assert has condition %s", render(a.Condition))
	}
}

func TestParseFile(t *testing.T) {
	src := `class Base { }

class Account extends Base {
	field int balance;
	field String owner;

	constructor(int initial, String who) {
		this.balance := initial;
		this.owner := who;
	}

	fixture { this.balance := 10; }
	fixture deposit { this.balance := this.balance + 5; }

	test startsAtFifteen {
		assert this.balance == 15;
	}
}`
	file, errs := ParseFile("account.kit", src)
	if len(errs) > 0 {
		t.Fatalf("parse errors: %v", errs)
	}
	if len(file.Classes) != 2 {
		t.Fatalf("classes = %d, want 2", len(file.Classes))
	}
	c := file.Classes[1]
	if c.Name != "Account" || c.Superclass != "Base" {
		t.Errorf("class = %s extends %s", c.Name, c.Superclass)
	}
	if len(c.Fields) != 2 || c.Fields[1].Type.Name != "String" {
		t.Errorf("fields = %d", len(c.Fields))
	}
	if len(c.Constructors) != 1 || len(c.Constructors[0].Params) != 2 {
		t.Errorf("constructors = %d", len(c.Constructors))
	}
	if len(c.Fixtures) != 2 || c.Fixtures[0].Name != "" || c.Fixtures[1].Name != "deposit" {
		t.Errorf("fixtures = %+v", c.Fixtures)
	}
	if len(c.Tests) != 1 || c.Tests[0].Name != "startsAtFifteen" {
		t.Errorf("tests = %+v", c.Tests)
	}
	if got := src[c.Span().Start.Offset:c.Span().End.Offset]; !strings.HasPrefix(got, "class Account") || !strings.HasSuffix(got, "}") {
		t.Errorf("class span = %q", got)
	}
	if file.Path != "account.kit" || file.Text != src {
		t.Error("source file does not keep its path and text")
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"class { }", "expected class name"},
		{"class A { int x; }", "expected class member"},
		{"class A { test { } }", "expected test name"},
		{"class A { test t { 1 := 2; } }", "expected assignable expression"},
		{"class A { test t { x = 1; } }", "use := or =="},
		{"class A { test t { if x then ; } }", "expected ("},
		{"class A { test t { assert 1 + ; } }", "expected expression"},
		{"class A { test t { assert 99999999999999999999; } }", "invalid integer"},
	}
	for _, tc := range tests {
		_, errs := ParseFile("bad.kit", tc.input)
		if len(errs) == 0 {
			t.Errorf("ParseFile(%q): no errors, want %q", tc.input, tc.want)
			continue
		}
		found := false
		for _, err := range errs {
			if strings.Contains(err.Error(), tc.want) {
				found = true
			}
		}
		if !found {
			t.Errorf("ParseFile(%q) = %v, want an error containing %q", tc.input, errs, tc.want)
		}
	}
}

func TestParseFileRecoversAtNextClass(t *testing.T) {
	file, errs := ParseFile("two.kit", "class Broken { test { } }\nclass Fine { test ok { } }")
	if len(errs) == 0 {
		t.Fatal("expected a syntax error")
	}
	if len(file.Classes) != 1 || file.Classes[0].Name != "Fine" {
		t.Errorf("classes after recovery = %+v", file.Classes)
	}
}
