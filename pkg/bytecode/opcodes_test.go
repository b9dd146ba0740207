package bytecode

import (
	"strings"
	"testing"
)

func TestAllOpcodesHaveMetadata(t *testing.T) {
	for op := range opcodeInfoTable {
		info := GetOpcodeInfo(op)
		if info.Name == "" || strings.HasPrefix(info.Name, "UNKNOWN") {
			t.Errorf("Opcode 0x%02X has no metadata", byte(op))
		}
		if !op.IsKnown() {
			t.Errorf("%s.IsKnown() = false", op)
		}
	}
}

func TestOpcodeNamesAreUnique(t *testing.T) {
	seen := make(map[string]Opcode)
	for op := range opcodeInfoTable {
		if prev, dup := seen[op.String()]; dup {
			t.Errorf("0x%02X and 0x%02X are both named %s", byte(prev), byte(op), op)
		}
		seen[op.String()] = op
	}
}

func TestOpcodeString(t *testing.T) {
	tests := []struct {
		op   Opcode
		want string
	}{
		{OpNop, "NOP"},
		{OpDup, "DUP"},
		{OpConst, "CONST"},
		{OpConstNil, "CONST_NIL"},
		{OpLoadLocal, "LOAD_LOCAL"},
		{OpGetStatic, "GET_STATIC"},
		{OpPutField, "PUT_FIELD"},
		{OpSub, "SUB"},
		{OpGe, "GE"},
		{OpConcat, "CONCAT"},
		{OpJumpTrue, "JUMP_TRUE"},
		{OpInvokeSpecial, "INVOKE_SPECIAL"},
		{OpNanoTime, "NANOTIME"},
		{OpReturnVoid, "RETURN_VOID"},
	}

	for _, tt := range tests {
		if got := tt.op.String(); got != tt.want {
			t.Errorf("Opcode(0x%02X).String() = %q, want %q", byte(tt.op), got, tt.want)
		}
	}
}

func TestUnknownOpcodeString(t *testing.T) {
	op := Opcode(0xEE)
	if got := op.String(); got != "UNKNOWN(0xEE)" {
		t.Errorf("Unknown opcode should return UNKNOWN(0xEE), got %q", got)
	}
	if op.IsKnown() {
		t.Error("0xEE reported as known")
	}
}

func TestOpcodeInstructionLen(t *testing.T) {
	tests := []struct {
		op   Opcode
		want int
	}{
		{OpNop, 1},
		{OpConst, 3},        // u16 index
		{OpLoadLocal, 2},    // u8 slot
		{OpGetField, 3},     // u16 name
		{OpNew, 3},          // u16 class
		{OpJump, 3},         // i16 offset
		{OpInvokeStatic, 4}, // u16 target + u8 argc
		{OpPrint, 1},
	}

	for _, tt := range tests {
		if got := tt.op.InstructionLen(); got != tt.want {
			t.Errorf("%s.InstructionLen() = %d, want %d", tt.op, got, tt.want)
		}
	}
}

func TestOpcodeClassification(t *testing.T) {
	for op := range opcodeInfoTable {
		wantJump := op == OpJump || op == OpJumpTrue
		if op.IsJump() != wantJump {
			t.Errorf("%s.IsJump() = %v", op, op.IsJump())
		}
		wantInvoke := op == OpInvokeStatic || op == OpInvokeVirtual || op == OpInvokeSpecial
		if op.IsInvoke() != wantInvoke {
			t.Errorf("%s.IsInvoke() = %v", op, op.IsInvoke())
		}
	}
}

func TestStackEffects(t *testing.T) {
	tests := []struct {
		op   Opcode
		pop  int
		push int
	}{
		{OpNop, 0, 0},
		{OpPop, 1, 0},
		{OpDup, 1, 2},
		{OpConst, 0, 1},
		{OpConstNil, 0, 1},
		{OpPutStatic, 1, 0},
		{OpPutField, 2, 0},
		{OpAdd, 2, 1},
		{OpEq, 2, 1},
		{OpNot, 1, 1},
		{OpJumpTrue, 1, 0},
		{OpInvokeVirtual, -1, -1},
		{OpNanoTime, 0, 1},
		{OpReturn, 1, 0},
		{OpReturnVoid, 0, 0},
	}

	for _, tt := range tests {
		info := GetOpcodeInfo(tt.op)
		if info.StackPop != tt.pop {
			t.Errorf("%s.StackPop = %d, want %d", tt.op, info.StackPop, tt.pop)
		}
		if info.StackPush != tt.push {
			t.Errorf("%s.StackPush = %d, want %d", tt.op, info.StackPush, tt.push)
		}
	}
}

func TestOpcodeRanges(t *testing.T) {
	rangeTests := []struct {
		name     string
		ops      []Opcode
		minRange Opcode
		maxRange Opcode
	}{
		{"Stack", []Opcode{OpNop, OpPop, OpDup}, 0x00, 0x0F},
		{"Constants", []Opcode{OpConst, OpConstTrue, OpConstEmpty, OpConstNil}, 0x10, 0x1F},
		{"Locals", []Opcode{OpLoadLocal, OpStoreLocal}, 0x20, 0x2F},
		{"Statics", []Opcode{OpGetStatic, OpPutStatic}, 0x38, 0x3F},
		{"Objects", []Opcode{OpGetField, OpPutField, OpNew}, 0x40, 0x4F},
		{"Arithmetic", []Opcode{OpAdd, OpSub, OpMul, OpDiv, OpMod, OpNeg}, 0x50, 0x5F},
		{"Comparison", []Opcode{OpEq, OpNe, OpLt, OpGt, OpNot}, 0x60, 0x6F},
		{"Control", []Opcode{OpJump, OpJumpTrue}, 0x80, 0x8F},
		{"Invocation", []Opcode{OpInvokeStatic, OpInvokeVirtual, OpInvokeSpecial}, 0x90, 0x9F},
		{"System", []Opcode{OpNanoTime, OpPrint}, 0xC0, 0xCF},
		{"Return", []Opcode{OpReturn, OpReturnVoid}, 0xF0, 0xFF},
	}

	for _, tt := range rangeTests {
		for _, op := range tt.ops {
			if op < tt.minRange || op > tt.maxRange {
				t.Errorf("%s opcode %s (0x%02X) is outside range [0x%02X, 0x%02X]",
					tt.name, op, byte(op), byte(tt.minRange), byte(tt.maxRange))
			}
		}
	}
}
