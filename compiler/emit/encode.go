package emit

import (
	"fmt"

	"github.com/chazu/kitten/compiler/ir"
	"github.com/chazu/kitten/pkg/bytecode"
)

// Runtime methods that the target implements as single instructions.
var (
	StringConcat = ir.MethodRef{Class: "String", Name: "concat", Params: []ir.Type{ir.String}, Return: ir.String}
	NanoTime     = ir.MethodRef{Class: "System", Name: "nanoTime", Return: ir.Int}
	Print        = ir.MethodRef{Class: "System", Name: "print", Params: []ir.Type{ir.String}, Return: ir.Void}
)

type intrinsicKey struct {
	kind   ir.CallKind
	target string
}

var intrinsics = map[intrinsicKey]bytecode.Opcode{
	{ir.CallVirtual, StringConcat.Key()}: bytecode.OpConcat,
	{ir.CallStatic, NanoTime.Key()}:      bytecode.OpNanoTime,
	{ir.CallStatic, Print.Key()}:         bytecode.OpPrint,
}

var arithOps = map[ir.ArithOp]bytecode.Opcode{
	ir.Add: bytecode.OpAdd,
	ir.Sub: bytecode.OpSub,
	ir.Mul: bytecode.OpMul,
	ir.Div: bytecode.OpDiv,
	ir.Mod: bytecode.OpMod,
	ir.Neg: bytecode.OpNeg,
}

var compareOps = map[ir.CompareOp]bytecode.Opcode{
	ir.Eq: bytecode.OpEq,
	ir.Ne: bytecode.OpNe,
	ir.Lt: bytecode.OpLt,
	ir.Le: bytecode.OpLe,
	ir.Gt: bytecode.OpGt,
	ir.Ge: bytecode.OpGe,
}

var callOps = map[ir.CallKind]bytecode.Opcode{
	ir.CallStatic:  bytecode.OpInvokeStatic,
	ir.CallVirtual: bytecode.OpInvokeVirtual,
	ir.CallSpecial: bytecode.OpInvokeSpecial,
}

// encodeInstr appends the encoding of one instruction. Branch emits nothing:
// the conditional jump is added by the caller once successors are laid out.
func encodeInstr(c *bytecode.Chunk, in ir.Instr) error {
	switch i := in.(type) {
	case ir.Nop:
		c.Emit(bytecode.OpNop)

	case ir.Const:
		switch {
		case i.Type == ir.Bool && i.Value == "true":
			c.Emit(bytecode.OpConstTrue)
		case i.Type == ir.Bool && i.Value == "false":
			c.Emit(bytecode.OpConstFalse)
		case i.Type == ir.Int && i.Value == "0":
			c.Emit(bytecode.OpConstZero)
		case i.Type == ir.Int && i.Value == "1":
			c.Emit(bytecode.OpConstOne)
		case i.Type == ir.Nil:
			c.Emit(bytecode.OpConstNil)
		default:
			c.EmitConstant(i.Value)
		}

	case ir.NewString:
		if i.Value == "" {
			c.Emit(bytecode.OpConstEmpty)
		} else {
			c.EmitConstant(i.Value)
		}

	case ir.Load:
		c.EmitWithOperand(bytecode.OpLoadLocal, i.Slot)

	case ir.Store:
		c.EmitWithOperand(bytecode.OpStoreLocal, i.Slot)

	case ir.GetStatic:
		c.EmitNamed(bytecode.OpGetStatic, i.Field.Key())

	case ir.PutStatic:
		c.EmitNamed(bytecode.OpPutStatic, i.Field.Key())

	case ir.GetField:
		c.EmitNamed(bytecode.OpGetField, i.Field.Name)

	case ir.PutField:
		c.EmitNamed(bytecode.OpPutField, i.Field.Name)

	case ir.New:
		c.EmitNamed(bytecode.OpNew, i.Class)

	case ir.Arith:
		op, ok := arithOps[i.Op]
		if !ok {
			return fmt.Errorf("unknown arithmetic operator %s", i.Op)
		}
		c.Emit(op)

	case ir.Compare:
		op, ok := compareOps[i.Op]
		if !ok {
			return fmt.Errorf("unknown comparison %s", i.Op)
		}
		c.Emit(op)

	case ir.Not:
		c.Emit(bytecode.OpNot)

	case ir.Dup:
		c.Emit(bytecode.OpDup)

	case ir.Pop:
		c.Emit(bytecode.OpPop)

	case ir.Call:
		if op, ok := intrinsics[intrinsicKey{i.Kind, i.Target.Key()}]; ok {
			c.Emit(op)
			return nil
		}
		op, ok := callOps[i.Kind]
		if !ok {
			return fmt.Errorf("unknown call kind %s", i.Kind)
		}
		if len(i.Target.Params) > 0xFF {
			return fmt.Errorf("too many arguments calling %s", i.Target)
		}
		c.EmitInvoke(op, i.Target.Key(), uint8(len(i.Target.Params)))

	case ir.Branch:
		// Encoded with the block's successors.

	case ir.Return:
		if i.Type == ir.Void {
			c.Emit(bytecode.OpReturnVoid)
		} else {
			c.Flags |= bytecode.ChunkFlagReturnsValue
			c.Emit(bytecode.OpReturn)
		}

	case ir.Line:
		c.AddSourceLocation(uint32(c.CurrentOffset()), uint32(i.Line), uint16(i.Col))

	case ir.Goto:
		return fmt.Errorf("goto in block code")

	default:
		return fmt.Errorf("cannot encode %T", in)
	}
	return nil
}
