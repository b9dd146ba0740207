package bytecode

import "fmt"

// Opcode represents a bytecode instruction.
// Opcodes are organized into ranges by category for easy identification.
type Opcode byte

const (
	// ========================================================================
	// Stack manipulation (0x00-0x0F)
	// ========================================================================

	OpNop Opcode = 0x00 // No operation
	OpPop Opcode = 0x01 // Pop top of stack
	OpDup Opcode = 0x02 // Duplicate top of stack

	// ========================================================================
	// Constants (0x10-0x1F)
	// ========================================================================

	OpConst      Opcode = 0x10 // Push constant from pool: OpConst <index:u16>
	OpConstTrue  Opcode = 0x12 // Push "true"
	OpConstFalse Opcode = 0x13 // Push "false"
	OpConstZero  Opcode = 0x14 // Push "0"
	OpConstOne   Opcode = 0x15 // Push "1"
	OpConstEmpty Opcode = 0x16 // Push ""
	OpConstNil   Opcode = 0x17 // Push the nil reference

	// ========================================================================
	// Local variables (0x20-0x2F). Parameters occupy the first slots.
	// ========================================================================

	OpLoadLocal  Opcode = 0x20 // Push local variable: OpLoadLocal <slot:u8>
	OpStoreLocal Opcode = 0x21 // Pop and store to local: OpStoreLocal <slot:u8>

	// ========================================================================
	// Static fields (0x38-0x3F)
	// ========================================================================

	OpGetStatic Opcode = 0x38 // Push static field: OpGetStatic <name_index:u16> ("Class.field")
	OpPutStatic Opcode = 0x39 // Pop and store static field: OpPutStatic <name_index:u16>

	// ========================================================================
	// Objects (0x40-0x4F)
	// ========================================================================

	OpGetField Opcode = 0x40 // receiver -> value: OpGetField <name_index:u16>
	OpPutField Opcode = 0x41 // receiver value -> : OpPutField <name_index:u16>
	OpNew      Opcode = 0x48 // Allocate instance: OpNew <class_index:u16>

	// ========================================================================
	// Arithmetic (0x50-0x5F)
	// ========================================================================

	OpAdd Opcode = 0x50 // Pop two, push sum
	OpSub Opcode = 0x51 // Pop two, push difference (a - b where b is TOS)
	OpMul Opcode = 0x52 // Pop two, push product
	OpDiv Opcode = 0x53 // Pop two, push truncated quotient
	OpMod Opcode = 0x54 // Pop two, push remainder
	OpNeg Opcode = 0x55 // Negate top of stack

	// ========================================================================
	// Comparison (0x60-0x6F)
	// ========================================================================

	OpEq Opcode = 0x60 // Pop two, push "true" if equal, "false" otherwise
	OpNe Opcode = 0x61 // Pop two, push "true" if not equal
	OpLt Opcode = 0x62 // Pop two, push "true" if a < b
	OpLe Opcode = 0x63 // Pop two, push "true" if a <= b
	OpGt Opcode = 0x64 // Pop two, push "true" if a > b
	OpGe Opcode = 0x65 // Pop two, push "true" if a >= b

	OpNot Opcode = 0x68 // Logical NOT of a boolean

	// ========================================================================
	// String operations (0x70-0x7F)
	// ========================================================================

	OpConcat Opcode = 0x70 // Concatenate top two strings

	// ========================================================================
	// Control flow (0x80-0x8F)
	// ========================================================================

	OpJump     Opcode = 0x80 // Unconditional jump: OpJump <offset:i16>
	OpJumpTrue Opcode = 0x81 // Jump if top is "true": OpJumpTrue <offset:i16>

	// ========================================================================
	// Invocation (0x90-0x9F)
	// ========================================================================

	OpInvokeStatic  Opcode = 0x90 // OpInvokeStatic <target:u16> <argc:u8>
	OpInvokeVirtual Opcode = 0x91 // OpInvokeVirtual <target:u16> <argc:u8>, receiver below args
	OpInvokeSpecial Opcode = 0x92 // OpInvokeSpecial <target:u16> <argc:u8>, receiver below args

	// ========================================================================
	// System services (0xC0-0xCF)
	// ========================================================================

	OpNanoTime Opcode = 0xC0 // Push the current monotonic time in nanoseconds
	OpPrint    Opcode = 0xC1 // Pop a string and write it to the output channel

	// ========================================================================
	// Return (0xF0-0xFF)
	// ========================================================================

	OpReturn     Opcode = 0xF0 // Return top of stack
	OpReturnVoid Opcode = 0xF1 // Return nothing
)

// OpcodeInfo provides metadata about each opcode for debugging and validation.
type OpcodeInfo struct {
	Name       string // Human-readable name
	StackPop   int    // How many values popped from stack (-1 = variable)
	StackPush  int    // How many values pushed to stack (-1 = variable)
	OperandLen int    // Number of operand bytes following the opcode
}

// opcodeInfoTable maps opcodes to their metadata.
var opcodeInfoTable = map[Opcode]OpcodeInfo{
	// Stack manipulation
	OpNop: {"NOP", 0, 0, 0},
	OpPop: {"POP", 1, 0, 0},
	OpDup: {"DUP", 1, 2, 0},

	// Constants
	OpConst:      {"CONST", 0, 1, 2},
	OpConstTrue:  {"CONST_TRUE", 0, 1, 0},
	OpConstFalse: {"CONST_FALSE", 0, 1, 0},
	OpConstZero:  {"CONST_ZERO", 0, 1, 0},
	OpConstOne:   {"CONST_ONE", 0, 1, 0},
	OpConstEmpty: {"CONST_EMPTY", 0, 1, 0},
	OpConstNil:   {"CONST_NIL", 0, 1, 0},

	// Local variables
	OpLoadLocal:  {"LOAD_LOCAL", 0, 1, 1},
	OpStoreLocal: {"STORE_LOCAL", 1, 0, 1},

	// Static fields
	OpGetStatic: {"GET_STATIC", 0, 1, 2},
	OpPutStatic: {"PUT_STATIC", 1, 0, 2},

	// Objects
	OpGetField: {"GET_FIELD", 1, 1, 2},
	OpPutField: {"PUT_FIELD", 2, 0, 2},
	OpNew:      {"NEW", 0, 1, 2},

	// Arithmetic
	OpAdd: {"ADD", 2, 1, 0},
	OpSub: {"SUB", 2, 1, 0},
	OpMul: {"MUL", 2, 1, 0},
	OpDiv: {"DIV", 2, 1, 0},
	OpMod: {"MOD", 2, 1, 0},
	OpNeg: {"NEG", 1, 1, 0},

	// Comparison
	OpEq: {"EQ", 2, 1, 0},
	OpNe: {"NE", 2, 1, 0},
	OpLt: {"LT", 2, 1, 0},
	OpLe: {"LE", 2, 1, 0},
	OpGt: {"GT", 2, 1, 0},
	OpGe: {"GE", 2, 1, 0},

	OpNot: {"NOT", 1, 1, 0},

	// String
	OpConcat: {"CONCAT", 2, 1, 0},

	// Control flow
	OpJump:     {"JUMP", 0, 0, 2},
	OpJumpTrue: {"JUMP_TRUE", 1, 0, 2},

	// Invocation: pops argc args (plus receiver for virtual/special),
	// pushes the result unless the target returns void
	OpInvokeStatic:  {"INVOKE_STATIC", -1, -1, 3},
	OpInvokeVirtual: {"INVOKE_VIRTUAL", -1, -1, 3},
	OpInvokeSpecial: {"INVOKE_SPECIAL", -1, -1, 3},

	// System
	OpNanoTime: {"NANOTIME", 0, 1, 0},
	OpPrint:    {"PRINT", 1, 0, 0},

	// Return
	OpReturn:     {"RETURN", 1, 0, 0},
	OpReturnVoid: {"RETURN_VOID", 0, 0, 0},
}

// GetOpcodeInfo returns metadata for an opcode.
// Returns a zero OpcodeInfo with name "UNKNOWN" if the opcode is not recognized.
func GetOpcodeInfo(op Opcode) OpcodeInfo {
	if info, ok := opcodeInfoTable[op]; ok {
		return info
	}
	return OpcodeInfo{Name: fmt.Sprintf("UNKNOWN(0x%02X)", byte(op)), StackPop: 0, StackPush: 0, OperandLen: 0}
}

// String returns the human-readable name of an opcode.
func (op Opcode) String() string {
	return GetOpcodeInfo(op).Name
}

// OperandLen returns the number of operand bytes for this opcode.
func (op Opcode) OperandLen() int {
	return GetOpcodeInfo(op).OperandLen
}

// InstructionLen returns the total length of an instruction (1 + operand bytes).
func (op Opcode) InstructionLen() int {
	return 1 + op.OperandLen()
}

// IsJump returns true if this opcode is a jump instruction.
func (op Opcode) IsJump() bool {
	return op == OpJump || op == OpJumpTrue
}

// IsInvoke returns true if this opcode calls another method.
func (op Opcode) IsInvoke() bool {
	return op >= OpInvokeStatic && op <= OpInvokeSpecial
}

// IsKnown reports whether the opcode is part of the instruction set.
func (op Opcode) IsKnown() bool {
	_, ok := opcodeInfoTable[op]
	return ok
}
