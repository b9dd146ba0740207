package bytecode

import (
	"encoding/binary"
	"fmt"
	"strings"
)

// Disassemble returns a human-readable bytecode listing for the chunk.
func (c *Chunk) Disassemble() string {
	return c.DisassembleWithName("")
}

// DisassembleWithName returns a human-readable bytecode listing with a name header.
func (c *Chunk) DisassembleWithName(name string) string {
	var sb strings.Builder

	if name != "" {
		sb.WriteString(fmt.Sprintf("; === %s ===\n", name))
	}
	sb.WriteString(fmt.Sprintf("; Kitten Bytecode v%d\n", c.Version))
	sb.WriteString(fmt.Sprintf("; Flags: 0x%04X", c.Flags))
	if c.Flags&ChunkFlagDebug != 0 {
		sb.WriteString(" [DEBUG]")
	}
	if c.Flags&ChunkFlagReturnsValue != 0 {
		sb.WriteString(" [VALUE]")
	}
	sb.WriteString("\n")

	if c.ParamCount > 0 {
		sb.WriteString(fmt.Sprintf("; Parameters (%d): ", c.ParamCount))
		for i, name := range c.ParamNames {
			if i > 0 {
				sb.WriteString(", ")
			}
			sb.WriteString(name)
		}
		sb.WriteString("\n")
	}

	if c.LocalCount > 0 {
		sb.WriteString(fmt.Sprintf("; Locals: %d slots\n", c.LocalCount))
	}

	sb.WriteString("\n")

	if len(c.Constants) > 0 {
		sb.WriteString("; Constants:\n")
		for i, s := range c.Constants {
			display := s
			if len(display) > 40 {
				display = display[:37] + "..."
			}
			sb.WriteString(fmt.Sprintf(";   [%3d] %q\n", i, display))
		}
		sb.WriteString("\n")
	}

	sb.WriteString("; Code:\n")
	for _, line := range c.codeLines() {
		sb.WriteString(line)
		sb.WriteString("\n")
	}

	return sb.String()
}

// disassembleInstruction disassembles a single instruction at the given offset.
// Returns the formatted string and the instruction length.
func (c *Chunk) disassembleInstruction(offset int) (string, int) {
	if offset >= len(c.Code) {
		return "<end of code>", 0
	}

	op := Opcode(c.Code[offset])
	info := GetOpcodeInfo(op)

	switch op {
	case OpConst:
		idx := c.readUint16(offset + 1)
		constVal := c.constantAt(idx)
		if len(constVal) > 20 {
			constVal = constVal[:17] + "..."
		}
		return fmt.Sprintf("CONST %d ; %q", idx, constVal), 3

	case OpLoadLocal, OpStoreLocal:
		slot := c.Code[offset+1]
		if varName := c.getVarName(int(slot)); varName != "" {
			return fmt.Sprintf("%s %d ; %s", info.Name, slot, varName), 2
		}
		return fmt.Sprintf("%s %d", info.Name, slot), 2

	case OpGetStatic, OpPutStatic, OpGetField, OpPutField, OpNew:
		idx := c.readUint16(offset + 1)
		return fmt.Sprintf("%s %d ; %s", info.Name, idx, c.constantAt(idx)), 3

	case OpJump, OpJumpTrue:
		delta := c.readInt16(offset + 1)
		target := offset + 3 + int(delta)
		return fmt.Sprintf("%s %+d (-> %04X)", info.Name, delta, target), 3

	case OpInvokeStatic, OpInvokeVirtual, OpInvokeSpecial:
		idx := c.readUint16(offset + 1)
		argc := byte(0)
		if offset+3 < len(c.Code) {
			argc = c.Code[offset+3]
		}
		return fmt.Sprintf("%s %d (%s) argc=%d", info.Name, idx, c.constantAt(idx), argc), 4

	default:
		instrLen := 1 + info.OperandLen
		if info.OperandLen == 0 {
			return info.Name, instrLen
		}

		operands := make([]string, 0, info.OperandLen)
		for i := 0; i < info.OperandLen; i++ {
			if offset+1+i < len(c.Code) {
				operands = append(operands, fmt.Sprintf("0x%02X", c.Code[offset+1+i]))
			}
		}
		return fmt.Sprintf("%s %s", info.Name, strings.Join(operands, " ")), instrLen
	}
}

func (c *Chunk) constantAt(idx uint16) string {
	if int(idx) < len(c.Constants) {
		return c.Constants[idx]
	}
	return ""
}

// readUint16 reads a big-endian uint16 from the code at the given offset.
func (c *Chunk) readUint16(offset int) uint16 {
	if offset+1 >= len(c.Code) {
		return 0
	}
	return binary.BigEndian.Uint16(c.Code[offset:])
}

// readInt16 reads a big-endian int16 from the code at the given offset.
func (c *Chunk) readInt16(offset int) int16 {
	return int16(c.readUint16(offset))
}

// getVarName returns the variable name for a local slot if available.
func (c *Chunk) getVarName(slot int) string {
	if slot < len(c.VarNames) {
		return c.VarNames[slot]
	}
	return ""
}

// codeLines renders one line per instruction, annotated with its source
// position when the chunk carries debug information.
func (c *Chunk) codeLines() []string {
	var lines []string
	offset := 0
	for offset < len(c.Code) {
		line, instrLen := c.disassembleInstruction(offset)
		if c.Flags&ChunkFlagDebug != 0 {
			if srcLine, srcCol := c.GetSourceLocation(uint32(offset)); srcLine > 0 {
				line = fmt.Sprintf("%-30s ; line %d:%d", line, srcLine, srcCol)
			}
		}
		lines = append(lines, fmt.Sprintf("%04X  %s", offset, line))
		if instrLen == 0 {
			break
		}
		offset += instrLen
	}
	return lines
}

// Opcodes returns the opcode sequence of the chunk, without operands.
func (c *Chunk) Opcodes() []Opcode {
	var ops []Opcode
	offset := 0
	for offset < len(c.Code) {
		op := Opcode(c.Code[offset])
		ops = append(ops, op)
		offset += op.InstructionLen()
	}
	return ops
}
