package ir

import "fmt"

// ContractViolation is the panic value raised when blocks are built or
// composed in a way the IR forbids. It signals a translator bug, never a
// problem in the program being compiled.
type ContractViolation struct {
	Op     string
	Reason string
}

func (e *ContractViolation) Error() string {
	return fmt.Sprintf("ir: %s: %s", e.Op, e.Reason)
}

func violate(op, format string, args ...any) {
	panic(&ContractViolation{Op: op, Reason: fmt.Sprintf(format, args...)})
}

// Block is a basic block: straight-line code followed by zero, one or two
// successors.
//
//   - zero successors: the code ends with Return (terminal), or the block is
//     open and may still be extended with FollowedBy;
//   - one successor: control continues there after the code;
//   - two successors: the code ends with Branch; the first successor is taken
//     on true, the second on false.
//
// Blocks are never mutated once built. Every composition returns a new Block.
type Block struct {
	code    []Instr
	follows []*Block
	noMerge bool
}

// NewBlock builds a block from code and successors, checking the shape rules
// listed on Block.
func NewBlock(code []Instr, follows ...*Block) *Block {
	if len(follows) > 2 {
		violate("NewBlock", "%d successors", len(follows))
	}
	for _, f := range follows {
		if f == nil {
			violate("NewBlock", "nil successor")
		}
	}
	for i, in := range code {
		last := i == len(code)-1
		switch in.(type) {
		case Goto:
			violate("NewBlock", "goto is reserved for linearized code")
		case Branch:
			if !last || len(follows) != 2 {
				violate("NewBlock", "branch must end a block with two successors")
			}
		case Return:
			if !last || len(follows) != 0 {
				violate("NewBlock", "return must end a block without successors")
			}
		case nil:
			violate("NewBlock", "nil instruction at %d", i)
		}
	}
	if len(follows) == 2 {
		if len(code) == 0 {
			violate("NewBlock", "two successors without a branch")
		}
		if _, ok := code[len(code)-1].(Branch); !ok {
			violate("NewBlock", "two successors without a branch")
		}
	}
	return &Block{
		code:    append([]Instr(nil), code...),
		follows: append([]*Block(nil), follows...),
	}
}

// Seq returns an open block holding ops. It must be closed with FollowedBy
// before it reaches the linearizer.
func Seq(ops ...Instr) *Block {
	return NewBlock(ops)
}

// ReturnBlock returns the terminal block that leaves the method.
func ReturnBlock(t Type) *Block {
	return NewBlock([]Instr{Return{Type: t}})
}

// Jump returns a block that runs code and continues with next.
func Jump(next *Block, code ...Instr) *Block {
	return NewBlock(code, next)
}

// BranchOn returns a block that runs code, pops a boolean and continues with
// onTrue or onFalse.
func BranchOn(onTrue, onFalse *Block, code ...Instr) *Block {
	return NewBlock(append(append([]Instr(nil), code...), Branch{}), onTrue, onFalse)
}

// Code returns a copy of the block's instructions.
func (b *Block) Code() []Instr {
	return append([]Instr(nil), b.code...)
}

// Len is the number of instructions in the block.
func (b *Block) Len() int {
	return len(b.code)
}

// Follows returns a copy of the block's successors.
func (b *Block) Follows() []*Block {
	return append([]*Block(nil), b.follows...)
}

// IsTerminal reports whether the block ends with Return.
func (b *Block) IsTerminal() bool {
	if len(b.code) == 0 {
		return false
	}
	_, ok := b.code[len(b.code)-1].(Return)
	return ok
}

// IsBranch reports whether the block ends with a two-way Branch.
func (b *Block) IsBranch() bool {
	return len(b.follows) == 2
}

// IsOpen reports whether the block has no control flow of its own yet.
func (b *Block) IsOpen() bool {
	return len(b.follows) == 0 && !b.IsTerminal()
}

// Protected reports whether DoNotMerge was requested for this block.
func (b *Block) Protected() bool {
	return b.noMerge
}

// DoNotMerge returns a copy of b marked as a join point: the linearizer keeps
// it as a separate jump target, and PrefixedBy/FollowedBy link to it instead
// of copying its code.
func (b *Block) DoNotMerge() *Block {
	if b.noMerge {
		return b
	}
	c := *b
	c.noMerge = true
	return &c
}

// PrefixedBy returns a block that runs op and then b. A protected b is kept
// intact and becomes the successor of a new block holding op.
func (b *Block) PrefixedBy(op Instr) *Block {
	if b.noMerge {
		return NewBlock([]Instr{op}, b)
	}
	code := make([]Instr, 0, len(b.code)+1)
	code = append(code, op)
	code = append(code, b.code...)
	return NewBlock(code, b.follows...)
}

// PrefixedByAll returns a block that runs ops in order and then b.
func (b *Block) PrefixedByAll(ops ...Instr) *Block {
	for i := len(ops) - 1; i >= 0; i-- {
		b = b.PrefixedBy(ops[i])
	}
	return b
}

// FollowedBy returns a block that runs b's code and then next, adopting
// next's successors. b must be open: extending a terminal or branching block
// is a contract violation.
func (b *Block) FollowedBy(next *Block) *Block {
	if b.IsTerminal() {
		violate("FollowedBy", "block already returns")
	}
	if len(b.follows) != 0 {
		violate("FollowedBy", "block already has %d successors", len(b.follows))
	}
	if next.noMerge {
		return NewBlock(b.code, next)
	}
	code := make([]Instr, 0, len(b.code)+len(next.code))
	code = append(code, b.code...)
	code = append(code, next.code...)
	return NewBlock(code, next.follows...)
}
