// Package emit turns block graphs into the concrete bytecode of
// pkg/bytecode. It is the only part of the compiler that knows the target
// encoding.
package emit

import (
	"fmt"
	"math"

	"github.com/tliron/commonlog"

	"github.com/chazu/kitten/compiler/ir"
	"github.com/chazu/kitten/pkg/bytecode"
)

var log = commonlog.GetLogger("kitten.emit")

// Option configures Linearize.
type Option func(*config)

type config struct {
	merge  bool
	params []string
}

// WithoutMerge keeps every block of the graph as its own jump target.
func WithoutMerge() Option {
	return func(c *config) { c.merge = false }
}

// WithParams records the parameter names of the method. Parameters occupy
// the first local slots and are named in the chunk's debug information.
func WithParams(names ...string) Option {
	return func(c *config) { c.params = names }
}

// node is a mutable working copy of an ir.Block used while merging and
// ordering.
type node struct {
	orig    *ir.Block
	code    []ir.Instr
	follows []*node
	join    bool
	merged  bool
	placed  bool
	offset  int
}

type patch struct {
	at     int
	target *node
}

// Linearize lays out the graph reachable from entry and encodes it.
//
// Pass one merges every straight-line successor that has a single
// predecessor, is not a protected join and does not branch into the block
// before it, then orders blocks depth-first so that single successors and
// false branches fall through. Pass two encodes the blocks and backpatches
// every jump once all block offsets are known.
func Linearize(entry *ir.Block, opts ...Option) (*bytecode.Chunk, error) {
	cfg := &config{merge: true}
	for _, opt := range opts {
		opt(cfg)
	}

	g := ir.Analyze(entry)
	nodes := make(map[*ir.Block]*node, len(g.Blocks))
	for _, b := range g.Blocks {
		if b.IsOpen() {
			return nil, fmt.Errorf("block B%d falls off the end of the method", g.Index(b))
		}
		nodes[b] = &node{orig: b, code: b.Code(), join: g.IsJoin(b)}
	}
	for _, b := range g.Blocks {
		n := nodes[b]
		for _, f := range b.Follows() {
			n.follows = append(n.follows, nodes[f])
		}
	}
	root := nodes[entry]
	root.join = true

	if cfg.merge {
		mergeStraightLines(g, nodes)
	}

	order := layout(root)
	addGotos(order)
	chunk, err := encode(order, nodes, cfg)
	if err != nil {
		return nil, err
	}
	if err := chunk.Verify(); err != nil {
		return nil, fmt.Errorf("emitted invalid bytecode: %w", err)
	}
	log.Debugf("linearized %d blocks into %d (%d bytes)", len(g.Blocks), len(order), chunk.CodeLen())
	return chunk, nil
}

func mergeStraightLines(g *ir.Graph, nodes map[*ir.Block]*node) {
	for _, b := range g.Blocks {
		n := nodes[b]
		if n.merged {
			continue
		}
		for len(n.follows) == 1 {
			s := n.follows[0]
			if s == n || s.join || s.merged || len(s.follows) == 2 {
				break
			}
			n.code = append(n.code, s.code...)
			n.follows = s.follows
			s.merged = true
		}
	}
}

func layout(root *node) []*node {
	var order []*node
	var place func(n *node)
	place = func(n *node) {
		if n.placed {
			return
		}
		n.placed = true
		order = append(order, n)
		switch len(n.follows) {
		case 1:
			place(n.follows[0])
		case 2:
			place(n.follows[1])
			place(n.follows[0])
		}
	}
	place(root)
	return order
}

// addGotos closes every block whose successor does not directly follow it in
// the layout with an explicit Goto. The true successor of a branch is reached
// by the conditional jump itself.
func addGotos(order []*node) {
	for i, n := range order {
		var next *node
		if i+1 < len(order) {
			next = order[i+1]
		}
		var fall *node
		switch len(n.follows) {
		case 1:
			fall = n.follows[0]
		case 2:
			fall = n.follows[1]
		default:
			continue
		}
		if fall != next {
			n.code = append(n.code, ir.Goto{Target: fall.orig})
		}
	}
}

func encode(order []*node, nodes map[*ir.Block]*node, cfg *config) (*bytecode.Chunk, error) {
	chunk := bytecode.NewChunk()
	chunk.ParamCount = uint8(len(cfg.params))
	chunk.ParamNames = append([]string(nil), cfg.params...)
	if len(cfg.params) > 0 {
		chunk.VarNames = append([]string(nil), cfg.params...)
		chunk.Flags |= bytecode.ChunkFlagDebug
	}
	locals := len(cfg.params)

	var patches []patch
	for _, n := range order {
		n.offset = chunk.CurrentOffset()
		for _, in := range n.code {
			switch i := in.(type) {
			case ir.Branch:
				patches = append(patches, patch{chunk.EmitJump(bytecode.OpJumpTrue), n.follows[0]})
				continue
			case ir.Goto:
				patches = append(patches, patch{chunk.EmitJump(bytecode.OpJump), nodes[i.Target]})
				continue
			}
			if slot, ok := slotOf(in); ok && int(slot)+1 > locals {
				locals = int(slot) + 1
			}
			if err := encodeInstr(chunk, in); err != nil {
				return nil, err
			}
		}
	}

	for _, p := range patches {
		delta := p.target.offset - (p.at + 2)
		if delta < math.MinInt16 || delta > math.MaxInt16 {
			return nil, fmt.Errorf("jump distance %d out of range", delta)
		}
		chunk.PatchJumpTo(p.at, p.target.offset)
	}

	if locals > math.MaxUint8 {
		return nil, fmt.Errorf("too many local slots: %d", locals)
	}
	chunk.LocalCount = uint8(locals)
	return chunk, nil
}

func slotOf(in ir.Instr) (uint8, bool) {
	switch i := in.(type) {
	case ir.Load:
		return i.Slot, true
	case ir.Store:
		return i.Slot, true
	}
	return 0, false
}
