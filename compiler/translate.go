package compiler

import (
	"fmt"
	"strconv"

	"github.com/chazu/kitten/compiler/ir"
	"github.com/chazu/kitten/types"
)

// ---------------------------------------------------------------------------
// Translation into continuation-passing blocks
// ---------------------------------------------------------------------------

// Context carries what translation needs about the code being translated.
// It is passed by value: nothing in it changes while a body is translated.
type Context struct {
	Class *types.ClassType
	Info  *Info
	Acc   Accumulator

	// Lines marks the start of every command with its source position.
	Lines bool
}

// TranslateBody translates a void body that returns when it falls off the
// end.
func (ctx Context) TranslateBody(body *BlockCommand) *ir.Block {
	return ctx.Translate(body, ir.ReturnBlock(ir.Void))
}

// Translate returns the code that runs cmd and then k.
func (ctx Context) Translate(cmd Command, k *ir.Block) *ir.Block {
	code := ctx.translate(cmd, k)
	if _, block := cmd.(*BlockCommand); ctx.Lines && !block {
		if src := ctx.Class.Source(); src != nil {
			line, col := src.LineCol(offsetOf(cmd))
			code = code.PrefixedBy(ir.Line{Line: line, Col: col})
		}
	}
	return code
}

func (ctx Context) translate(cmd Command, k *ir.Block) *ir.Block {
	switch n := cmd.(type) {
	case *Skip:
		return k

	case *BlockCommand:
		for i := len(n.Commands) - 1; i >= 0; i-- {
			k = ctx.Translate(n.Commands[i], k)
		}
		return k

	case *LocalDeclaration:
		return ctx.TranslateAs(n.Init, k.PrefixedBy(ir.Store{Slot: ctx.Info.Slots[n], Type: ctx.typeOf(n.Init)}))

	case *Assignment:
		switch target := n.Target.(type) {
		case *Variable:
			store := ir.Store{Slot: ctx.Info.Slots[target], Type: ctx.typeOf(target)}
			return ctx.TranslateAs(n.Value, k.PrefixedBy(store))
		case *FieldAccess:
			put := ir.PutField{Field: ctx.field(target)}
			return ctx.TranslateAs(target.Receiver, ctx.TranslateAs(n.Value, k.PrefixedBy(put)))
		}

	case *IfThenElse:
		join := k.DoNotMerge()
		then := ctx.Translate(n.Then, join)
		otherwise := join
		if n.Else != nil {
			otherwise = ctx.Translate(n.Else, join)
		}
		return ctx.TranslateAsTest(n.Condition, then, otherwise)

	case *Return:
		return ir.ReturnBlock(ir.Void)

	case *Assert:
		return ctx.translateAssert(n, k)
	}
	panic(&ir.ContractViolation{Op: "Translate", Reason: fmt.Sprintf("unchecked command %T", cmd)})
}

// TranslateAs returns the code that pushes the value of e and then runs k.
func (ctx Context) TranslateAs(e Expr, k *ir.Block) *ir.Block {
	switch n := e.(type) {
	case *IntLiteral:
		return k.PrefixedBy(ir.Const{Type: ir.Int, Value: strconv.FormatInt(n.Value, 10)})

	case *BoolLiteral:
		return k.PrefixedBy(ir.Const{Type: ir.Bool, Value: strconv.FormatBool(n.Value)})

	case *StringLiteral:
		return k.PrefixedBy(ir.NewString{Value: n.Value})

	case *NilLiteral:
		return k.PrefixedBy(ir.Const{Type: ir.Nil, Value: "nil"})

	case *This:
		return k.PrefixedBy(ir.Load{Slot: 0, Type: ctx.Class.IR()})

	case *Variable:
		return k.PrefixedBy(ir.Load{Slot: ctx.Info.Slots[n], Type: ctx.typeOf(n)})

	case *FieldAccess:
		return ctx.TranslateAs(n.Receiver, k.PrefixedBy(ir.GetField{Field: ctx.field(n)}))

	case *UnaryExpr:
		if n.Op == TokenNot {
			return ctx.TranslateAs(n.Operand, k.PrefixedBy(ir.Not{}))
		}
		return ctx.TranslateAs(n.Operand, k.PrefixedBy(ir.Arith{Op: ir.Neg}))

	case *BinaryExpr:
		if n.Op == TokenAnd || n.Op == TokenOr {
			join := k.DoNotMerge()
			return ctx.TranslateAsTest(n,
				join.PrefixedBy(ir.Const{Type: ir.Bool, Value: "true"}),
				join.PrefixedBy(ir.Const{Type: ir.Bool, Value: "false"}))
		}
		return ctx.TranslateAs(n.Left, ctx.TranslateAs(n.Right, k.PrefixedBy(binaryInstr(n.Op))))
	}
	panic(&ir.ContractViolation{Op: "TranslateAs", Reason: fmt.Sprintf("unchecked expression %T", e)})
}

// TranslateAsTest returns the code that evaluates the boolean e once and
// continues with yes when it holds and with no otherwise. && and || are
// short-circuited through intermediate continuations.
func (ctx Context) TranslateAsTest(e Expr, yes, no *ir.Block) *ir.Block {
	switch n := e.(type) {
	case *BoolLiteral:
		if n.Value {
			return yes
		}
		return no

	case *UnaryExpr:
		if n.Op == TokenNot {
			return ctx.TranslateAsTest(n.Operand, no, yes)
		}

	case *BinaryExpr:
		switch n.Op {
		case TokenAnd:
			no = no.DoNotMerge()
			return ctx.TranslateAsTest(n.Left, ctx.TranslateAsTest(n.Right, yes, no), no)
		case TokenOr:
			yes = yes.DoNotMerge()
			return ctx.TranslateAsTest(n.Left, yes, ctx.TranslateAsTest(n.Right, yes, no))
		case TokenEq, TokenNe, TokenLt, TokenLe, TokenGt, TokenGe:
			test := ir.BranchOn(yes, no, binaryInstr(n.Op))
			return ctx.TranslateAs(n.Left, ctx.TranslateAs(n.Right, test))
		}
	}
	return ctx.TranslateAs(e, ir.BranchOn(yes, no))
}

func (ctx Context) typeOf(e Expr) ir.Type {
	if t, ok := ctx.Info.Types[e]; ok {
		return t.IR()
	}
	panic(&ir.ContractViolation{Op: "Translate", Reason: fmt.Sprintf("no type recorded for %T", e)})
}

func (ctx Context) field(n *FieldAccess) ir.FieldRef {
	if f, ok := ctx.Info.Fields[n]; ok {
		return f.Ref()
	}
	panic(&ir.ContractViolation{Op: "Translate", Reason: "unresolved field " + n.Name})
}

var binaryInstrs = map[TokenType]ir.Instr{
	TokenPlus:    ir.Arith{Op: ir.Add},
	TokenMinus:   ir.Arith{Op: ir.Sub},
	TokenStar:    ir.Arith{Op: ir.Mul},
	TokenSlash:   ir.Arith{Op: ir.Div},
	TokenPercent: ir.Arith{Op: ir.Mod},
	TokenEq:      ir.Compare{Op: ir.Eq},
	TokenNe:      ir.Compare{Op: ir.Ne},
	TokenLt:      ir.Compare{Op: ir.Lt},
	TokenLe:      ir.Compare{Op: ir.Le},
	TokenGt:      ir.Compare{Op: ir.Gt},
	TokenGe:      ir.Compare{Op: ir.Ge},
}

func binaryInstr(op TokenType) ir.Instr {
	if in, ok := binaryInstrs[op]; ok {
		return in
	}
	panic(&ir.ContractViolation{Op: "Translate", Reason: "no instruction for " + op.String()})
}

// ---------------------------------------------------------------------------
// Constructors
// ---------------------------------------------------------------------------

// TranslateConstructor translates a constructor body, chaining to the
// superclass's zero-argument constructor first when there is a superclass.
func (ctx Context) TranslateConstructor(body *BlockCommand) *ir.Block {
	code := ctx.TranslateBody(body)
	if super := ctx.Class.Superclass(); super != nil {
		if chained := super.ConstructorLookup(); chained != nil {
			code = code.PrefixedByAll(
				ir.Load{Slot: 0, Type: ctx.Class.IR()},
				ir.Call{Kind: ir.CallSpecial, Target: chained.Ref()},
			)
		}
	}
	return code
}
