package bytecode

import (
	"strings"
	"testing"
)

func TestDisassembleEmpty(t *testing.T) {
	c := NewChunk()

	output := c.Disassemble()

	if !strings.Contains(output, "; Kitten Bytecode v1") {
		t.Error("Disassembly missing header")
	}
	if !strings.Contains(output, "; Code:\n") {
		t.Error("Disassembly missing code section")
	}
	if strings.Contains(output, "Constants:") {
		t.Error("Empty chunk lists a constant pool")
	}
}

func TestDisassembleSimple(t *testing.T) {
	c := NewChunk()
	c.Emit(OpConstZero)
	c.Emit(OpConstOne)
	c.Emit(OpAdd)
	c.Emit(OpReturn)

	want := []string{
		"0000  CONST_ZERO",
		"0001  CONST_ONE",
		"0002  ADD",
		"0003  RETURN",
	}
	got := c.codeLines()
	if strings.Join(got, "\n") != strings.Join(want, "\n") {
		t.Errorf("codeLines() =\n%s\nwant\n%s", strings.Join(got, "\n"), strings.Join(want, "\n"))
	}
}

func TestDisassembleWithConstants(t *testing.T) {
	c := NewChunk()
	c.EmitConstant("hello world")
	c.Emit(OpReturn)

	output := c.Disassemble()

	if !strings.Contains(output, ";   [  0] \"hello world\"") {
		t.Errorf("Missing constant pool entry:\n%s", output)
	}
	if !strings.Contains(output, `0000  CONST 0 ; "hello world"`) {
		t.Errorf("Missing CONST instruction:\n%s", output)
	}
}

func TestDisassembleLongConstant(t *testing.T) {
	c := NewChunk()
	c.EmitConstant(strings.Repeat("x", 50))

	line, n := c.disassembleInstruction(0)
	if n != 3 {
		t.Errorf("length = %d, want 3", n)
	}
	if !strings.HasSuffix(line, `..."`) || len(line) > 40 {
		t.Errorf("long constant not truncated: %q", line)
	}
}

func TestDisassembleWithParamsAndLocals(t *testing.T) {
	c := NewChunk()
	c.ParamCount = 2
	c.ParamNames = []string{"this", "x"}
	c.LocalCount = 3
	c.VarNames = []string{"this", "x", "sum"}

	c.EmitWithOperand(OpLoadLocal, 1)
	c.EmitWithOperand(OpStoreLocal, 2)
	c.Emit(OpReturnVoid)

	output := c.Disassemble()

	if !strings.Contains(output, "; Parameters (2): this, x") {
		t.Errorf("Missing parameters:\n%s", output)
	}
	if !strings.Contains(output, "; Locals: 3 slots") {
		t.Errorf("Missing locals:\n%s", output)
	}
	if !strings.Contains(output, "LOAD_LOCAL 1 ; x") || !strings.Contains(output, "STORE_LOCAL 2 ; sum") {
		t.Errorf("Local operations should name their slots:\n%s", output)
	}
}

func TestDisassembleJumps(t *testing.T) {
	c := NewChunk()
	c.Emit(OpConstTrue)
	j := c.EmitJump(OpJumpTrue)
	c.Emit(OpReturnVoid)
	c.PatchJumpTo(j, c.CurrentOffset())
	c.Emit(OpReturnVoid)

	if got, _ := c.disassembleInstruction(1); got != "JUMP_TRUE +1 (-> 0005)" {
		t.Errorf("jump = %q", got)
	}
}

func TestDisassembleNamedOperands(t *testing.T) {
	c := NewChunk()
	c.EmitNamed(OpNew, "Counter")
	c.Emit(OpDup)
	c.EmitInvoke(OpInvokeSpecial, "Counter.<init>", 0)
	c.EmitNamed(OpGetField, "n")
	c.EmitNamed(OpPutStatic, "Counter$Test.posAsserts")

	want := []string{
		"0000  NEW 0 ; Counter",
		"0003  DUP",
		"0004  INVOKE_SPECIAL 1 (Counter.<init>) argc=0",
		"0008  GET_FIELD 2 ; n",
		"000B  PUT_STATIC 3 ; Counter$Test.posAsserts",
	}
	got := c.codeLines()
	if strings.Join(got, "\n") != strings.Join(want, "\n") {
		t.Errorf("codeLines() =\n%s\nwant\n%s", strings.Join(got, "\n"), strings.Join(want, "\n"))
	}
}

func TestDisassembleWithName(t *testing.T) {
	c := NewChunk()
	c.Flags |= ChunkFlagReturnsValue
	c.Emit(OpConstEmpty)
	c.Emit(OpReturn)

	output := c.DisassembleWithName("A$Test.main")
	if !strings.HasPrefix(output, "; === A$Test.main ===\n") {
		t.Errorf("Missing name header:\n%s", output)
	}
	if !strings.Contains(output, "[VALUE]") {
		t.Errorf("Missing value flag:\n%s", output)
	}
}

func TestDisassembleWithDebugInfo(t *testing.T) {
	c := NewChunk()
	c.Emit(OpConstTrue)
	c.Emit(OpReturn)
	c.AddSourceLocation(0, 5, 3)

	output := c.Disassemble()
	if !strings.Contains(output, "[DEBUG]") {
		t.Errorf("Missing debug flag:\n%s", output)
	}
	if !strings.Contains(output, "; line 5:3") {
		t.Errorf("Missing source location:\n%s", output)
	}
}

func TestDisassembleSourcePositions(t *testing.T) {
	c := NewChunk()
	c.AddSourceLocation(0, 2, 5)
	c.Emit(OpConstTrue)
	c.Emit(OpPop)
	c.AddSourceLocation(uint32(c.CurrentOffset()), 3, 1)
	c.Emit(OpReturnVoid)

	want := []string{
		"0000  CONST_TRUE                     ; line 2:5",
		"0001  POP                            ; line 2:5",
		"0002  RETURN_VOID                    ; line 3:1",
	}
	got := c.codeLines()
	if strings.Join(got, "\n") != strings.Join(want, "\n") {
		t.Errorf("codeLines() =\n%s\nwant\n%s", strings.Join(got, "\n"), strings.Join(want, "\n"))
	}
}

func TestOpcodes(t *testing.T) {
	c := NewChunk()
	c.EmitConstant("a")
	c.EmitWithOperand(OpStoreLocal, 0)
	c.EmitInvoke(OpInvokeStatic, "A.f", 2)
	c.Emit(OpReturnVoid)

	ops := c.Opcodes()
	if len(ops) != 4 || ops[2] != OpInvokeStatic || ops[3] != OpReturnVoid {
		t.Errorf("Opcodes() = %v", ops)
	}
}

func TestDisassembleAllOpcodes(t *testing.T) {
	c := NewChunk()
	c.AddConstant("k")
	for op := range opcodeInfoTable {
		c.Code = append(c.Code, byte(op))
		for i := 0; i < op.OperandLen(); i++ {
			c.Code = append(c.Code, 0)
		}
	}

	lines := c.codeLines()
	if len(lines) != len(opcodeInfoTable) {
		t.Errorf("lines = %d, want %d", len(lines), len(opcodeInfoTable))
	}
	for _, line := range lines {
		if strings.Contains(line, "UNKNOWN") {
			t.Errorf("unknown opcode in %q", line)
		}
	}
}
