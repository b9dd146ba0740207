package bytecode

import (
	"encoding/binary"
	"fmt"
)

// BytecodeVersion is the current bytecode format version.
// Increment when making incompatible changes to the format.
const BytecodeVersion uint16 = 1

// Magic bytes for bytecode bodies: "KTBC" (Kitten ByteCode)
var BytecodeMagic = []byte{'K', 'T', 'B', 'C'}

// ChunkFlags contains compilation flags for a chunk.
type ChunkFlags uint16

const (
	// ChunkFlagDebug indicates debug information is present.
	ChunkFlagDebug ChunkFlags = 1 << 0

	// ChunkFlagReturnsValue indicates the method leaves a value for its caller.
	ChunkFlagReturnsValue ChunkFlags = 1 << 1
)

// SourceLocation maps bytecode position to source location for debugging.
type SourceLocation struct {
	BytecodeOffset uint32 // Offset in code section
	Line           uint32 // Source line number (1-based)
	Column         uint16 // Source column number (1-based)
}

// Chunk represents the linearized bytecode of one method.
// It is the fundamental unit of bytecode that can be serialized and executed.
type Chunk struct {
	// Header
	Version uint16     // Bytecode format version
	Flags   ChunkFlags // Compilation flags

	// Code section
	Code []byte // Bytecode instructions

	// Constant pool - strings referenced by OpConst, field and call operands
	Constants []string

	// Parameter information
	ParamCount uint8    // Number of parameters, stored in the first local slots
	ParamNames []string // Parameter names (for debugging/reflection)

	// Local variables, parameters included
	LocalCount uint8

	// Debug information (optional, present if ChunkFlagDebug is set)
	SourceMap []SourceLocation // Bytecode offset -> source location
	VarNames  []string         // Local variable names for debugging
}

// NewChunk creates a new empty chunk with the current version.
func NewChunk() *Chunk {
	return &Chunk{
		Version:   BytecodeVersion,
		Code:      make([]byte, 0, 64),
		Constants: make([]string, 0, 8),
	}
}

// AddConstant adds a string constant to the pool and returns its index.
// If the constant already exists, returns the existing index.
func (c *Chunk) AddConstant(value string) uint16 {
	for i, s := range c.Constants {
		if s == value {
			return uint16(i)
		}
	}
	idx := uint16(len(c.Constants))
	c.Constants = append(c.Constants, value)
	return idx
}

// Emit appends a single-byte opcode to the code section.
func (c *Chunk) Emit(op Opcode) int {
	offset := len(c.Code)
	c.Code = append(c.Code, byte(op))
	return offset
}

// EmitWithOperand appends an opcode with operand bytes.
func (c *Chunk) EmitWithOperand(op Opcode, operands ...byte) int {
	offset := len(c.Code)
	c.Code = append(c.Code, byte(op))
	c.Code = append(c.Code, operands...)
	return offset
}

// EmitConstant emits an OpConst instruction for the given value.
// Adds the constant to the pool if not already present.
func (c *Chunk) EmitConstant(value string) int {
	idx := c.AddConstant(value)
	return c.EmitWithOperand(OpConst, byte(idx>>8), byte(idx))
}

// EmitNamed emits an opcode whose u16 operand names a pool entry
// (static fields, instance fields, classes).
func (c *Chunk) EmitNamed(op Opcode, name string) int {
	idx := c.AddConstant(name)
	return c.EmitWithOperand(op, byte(idx>>8), byte(idx))
}

// EmitInvoke emits an invocation of target ("Class.method") with argc arguments.
func (c *Chunk) EmitInvoke(op Opcode, target string, argc uint8) int {
	idx := c.AddConstant(target)
	return c.EmitWithOperand(op, byte(idx>>8), byte(idx), argc)
}

// EmitJump emits a jump instruction with a placeholder offset.
// Returns the offset of the placeholder for later patching.
func (c *Chunk) EmitJump(op Opcode) int {
	offset := len(c.Code)
	c.Code = append(c.Code, byte(op), 0xFF, 0xFF) // Placeholder
	return offset + 1                              // Return offset of the placeholder bytes
}

// PatchJumpTo patches a jump to go to a specific offset.
func (c *Chunk) PatchJumpTo(placeholderOffset int, target int) {
	jumpFrom := placeholderOffset + 2
	delta := target - jumpFrom

	c.Code[placeholderOffset] = byte(delta >> 8)
	c.Code[placeholderOffset+1] = byte(delta)
}

// CurrentOffset returns the current offset in the code section.
func (c *Chunk) CurrentOffset() int {
	return len(c.Code)
}

// CodeLen returns the length of the code section.
func (c *Chunk) CodeLen() int {
	return len(c.Code)
}

// AddSourceLocation adds a debug source location mapping.
func (c *Chunk) AddSourceLocation(bytecodeOffset uint32, line uint32, column uint16) {
	c.Flags |= ChunkFlagDebug
	c.SourceMap = append(c.SourceMap, SourceLocation{
		BytecodeOffset: bytecodeOffset,
		Line:           line,
		Column:         column,
	})
}

// GetSourceLocation returns the source location for a bytecode offset.
// Returns line 0, column 0 if no mapping exists.
func (c *Chunk) GetSourceLocation(offset uint32) (line uint32, column uint16) {
	for i := len(c.SourceMap) - 1; i >= 0; i-- {
		if c.SourceMap[i].BytecodeOffset <= offset {
			return c.SourceMap[i].Line, c.SourceMap[i].Column
		}
	}
	return 0, 0
}

// Verify walks the code section and checks that every instruction is known,
// that operands are in bounds and that every jump lands on an instruction
// boundary.
func (c *Chunk) Verify() error {
	starts := make(map[int]bool)
	var jumps [][2]int
	offset := 0
	for offset < len(c.Code) {
		op := Opcode(c.Code[offset])
		if !op.IsKnown() {
			return fmt.Errorf("unknown opcode 0x%02X at offset %d", byte(op), offset)
		}
		starts[offset] = true
		n := op.InstructionLen()
		if offset+n > len(c.Code) {
			return fmt.Errorf("truncated %s at offset %d", op, offset)
		}
		switch {
		case op.IsJump():
			target := offset + 3 + int(c.readInt16(offset+1))
			jumps = append(jumps, [2]int{offset, target})
		case op == OpConst || op == OpGetStatic || op == OpPutStatic ||
			op == OpGetField || op == OpPutField || op == OpNew || op.IsInvoke():
			if idx := c.readUint16(offset + 1); int(idx) >= len(c.Constants) {
				return fmt.Errorf("%s at offset %d references constant %d of %d", op, offset, idx, len(c.Constants))
			}
		case op == OpLoadLocal || op == OpStoreLocal:
			if slot := c.Code[offset+1]; slot >= c.LocalCount {
				return fmt.Errorf("%s at offset %d uses slot %d of %d", op, offset, slot, c.LocalCount)
			}
		}
		offset += n
	}
	for _, j := range jumps {
		if !starts[j[1]] {
			return fmt.Errorf("jump at offset %d targets %d, not an instruction boundary", j[0], j[1])
		}
	}
	return nil
}

// Serialize encodes the chunk to bytes for storage/transport.
// Format:
//
//	[magic:4] [version:2] [flags:2]
//	[code_len:4] [code:...]
//	[const_count:2] [constants:...]
//	[param_count:1] [param_names:...]
//	[local_count:1]
//	[debug_present:1] [debug_info:...] (if ChunkFlagDebug)
func (c *Chunk) Serialize() ([]byte, error) {
	if len(c.Constants) > 0xFFFF {
		return nil, fmt.Errorf("constant pool too large: %d entries", len(c.Constants))
	}
	estimatedSize := 8 + len(c.Code) + len(c.Constants)*32 + 100
	buf := make([]byte, 0, estimatedSize)

	buf = append(buf, BytecodeMagic...)

	buf = binary.BigEndian.AppendUint16(buf, c.Version)
	buf = binary.BigEndian.AppendUint16(buf, uint16(c.Flags))

	buf = binary.BigEndian.AppendUint32(buf, uint32(len(c.Code)))
	buf = append(buf, c.Code...)

	buf = binary.BigEndian.AppendUint16(buf, uint16(len(c.Constants)))
	for _, s := range c.Constants {
		if len(s) > 0xFFFF {
			return nil, fmt.Errorf("constant too long: %d bytes", len(s))
		}
		buf = binary.BigEndian.AppendUint16(buf, uint16(len(s)))
		buf = append(buf, s...)
	}

	buf = append(buf, c.ParamCount)
	for i := 0; i < int(c.ParamCount); i++ {
		name := ""
		if i < len(c.ParamNames) {
			name = c.ParamNames[i]
		}
		buf = append(buf, byte(len(name)))
		buf = append(buf, name...)
	}

	buf = append(buf, c.LocalCount)

	if c.Flags&ChunkFlagDebug != 0 {
		buf = append(buf, 1)

		buf = binary.BigEndian.AppendUint16(buf, uint16(len(c.SourceMap)))
		for _, loc := range c.SourceMap {
			buf = binary.BigEndian.AppendUint32(buf, loc.BytecodeOffset)
			buf = binary.BigEndian.AppendUint32(buf, loc.Line)
			buf = binary.BigEndian.AppendUint16(buf, loc.Column)
		}

		buf = binary.BigEndian.AppendUint16(buf, uint16(len(c.VarNames)))
		for _, name := range c.VarNames {
			buf = append(buf, byte(len(name)))
			buf = append(buf, name...)
		}
	} else {
		buf = append(buf, 0)
	}

	return buf, nil
}

// Deserialize decodes a chunk from bytes.
func Deserialize(data []byte) (*Chunk, error) {
	if len(data) < 8 {
		return nil, fmt.Errorf("bytecode too short: need at least 8 bytes, got %d", len(data))
	}

	if string(data[0:4]) != string(BytecodeMagic) {
		return nil, fmt.Errorf("invalid bytecode magic: expected %q, got %q", BytecodeMagic, data[0:4])
	}

	c := &Chunk{
		Version: binary.BigEndian.Uint16(data[4:6]),
		Flags:   ChunkFlags(binary.BigEndian.Uint16(data[6:8])),
	}

	pos := 8

	if c.Version > BytecodeVersion {
		return nil, fmt.Errorf("bytecode version %d is newer than supported version %d", c.Version, BytecodeVersion)
	}

	if pos+4 > len(data) {
		return nil, fmt.Errorf("unexpected end of bytecode reading code length at pos %d", pos)
	}
	codeLen := binary.BigEndian.Uint32(data[pos:])
	pos += 4

	if pos+int(codeLen) > len(data) {
		return nil, fmt.Errorf("unexpected end of bytecode reading code section: need %d bytes at pos %d", codeLen, pos)
	}
	c.Code = make([]byte, codeLen)
	copy(c.Code, data[pos:pos+int(codeLen)])
	pos += int(codeLen)

	if pos+2 > len(data) {
		return nil, fmt.Errorf("unexpected end of bytecode reading constant count")
	}
	constCount := binary.BigEndian.Uint16(data[pos:])
	pos += 2

	c.Constants = make([]string, constCount)
	for i := range c.Constants {
		if pos+2 > len(data) {
			return nil, fmt.Errorf("unexpected end of bytecode reading constant %d length", i)
		}
		strLen := binary.BigEndian.Uint16(data[pos:])
		pos += 2

		if pos+int(strLen) > len(data) {
			return nil, fmt.Errorf("unexpected end of bytecode reading constant %d", i)
		}
		c.Constants[i] = string(data[pos : pos+int(strLen)])
		pos += int(strLen)
	}

	if pos >= len(data) {
		return nil, fmt.Errorf("unexpected end of bytecode reading param count")
	}
	c.ParamCount = data[pos]
	pos++

	c.ParamNames = make([]string, c.ParamCount)
	for i := range c.ParamNames {
		if pos >= len(data) {
			return nil, fmt.Errorf("unexpected end of bytecode reading param %d name length", i)
		}
		nameLen := data[pos]
		pos++

		if pos+int(nameLen) > len(data) {
			return nil, fmt.Errorf("unexpected end of bytecode reading param %d name", i)
		}
		c.ParamNames[i] = string(data[pos : pos+int(nameLen)])
		pos += int(nameLen)
	}

	if pos >= len(data) {
		return nil, fmt.Errorf("unexpected end of bytecode reading local count")
	}
	c.LocalCount = data[pos]
	pos++

	if pos >= len(data) {
		return nil, fmt.Errorf("unexpected end of bytecode reading debug marker")
	}
	hasDebug := data[pos]
	pos++

	if hasDebug != 0 {
		if pos+2 > len(data) {
			return nil, fmt.Errorf("unexpected end of bytecode reading source map count")
		}
		sourceMapLen := binary.BigEndian.Uint16(data[pos:])
		pos += 2

		c.SourceMap = make([]SourceLocation, sourceMapLen)
		for i := range c.SourceMap {
			if pos+10 > len(data) {
				return nil, fmt.Errorf("unexpected end of bytecode reading source location %d", i)
			}
			c.SourceMap[i].BytecodeOffset = binary.BigEndian.Uint32(data[pos:])
			pos += 4
			c.SourceMap[i].Line = binary.BigEndian.Uint32(data[pos:])
			pos += 4
			c.SourceMap[i].Column = binary.BigEndian.Uint16(data[pos:])
			pos += 2
		}

		if pos+2 > len(data) {
			return nil, fmt.Errorf("unexpected end of bytecode reading var names count")
		}
		varNamesLen := binary.BigEndian.Uint16(data[pos:])
		pos += 2

		c.VarNames = make([]string, varNamesLen)
		for i := range c.VarNames {
			if pos >= len(data) {
				return nil, fmt.Errorf("unexpected end of bytecode reading var name %d length", i)
			}
			nameLen := data[pos]
			pos++

			if pos+int(nameLen) > len(data) {
				return nil, fmt.Errorf("unexpected end of bytecode reading var name %d", i)
			}
			c.VarNames[i] = string(data[pos : pos+int(nameLen)])
			pos += int(nameLen)
		}
	}

	return c, nil
}
