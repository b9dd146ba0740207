package ir

import (
	"fmt"
	"strings"
)

// Graph is the reachable part of a block graph, in a deterministic
// depth-first order (first successor before second).
type Graph struct {
	Entry  *Block
	Blocks []*Block

	index map[*Block]int
	preds map[*Block]int
}

// Analyze collects every block reachable from entry and counts the control
// edges that enter each one. The entry counts as entered once.
func Analyze(entry *Block) *Graph {
	g := &Graph{
		Entry: entry,
		index: make(map[*Block]int),
		preds: make(map[*Block]int),
	}
	g.preds[entry]++

	stack := []*Block{entry}
	for len(stack) > 0 {
		b := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if _, seen := g.index[b]; seen {
			continue
		}
		g.index[b] = len(g.Blocks)
		g.Blocks = append(g.Blocks, b)
		for _, f := range b.follows {
			g.preds[f]++
		}
		for i := len(b.follows) - 1; i >= 0; i-- {
			if _, seen := g.index[b.follows[i]]; !seen {
				stack = append(stack, b.follows[i])
			}
		}
	}
	return g
}

// Preds returns the number of control edges entering b.
func (g *Graph) Preds(b *Block) int {
	return g.preds[b]
}

// IsJoin reports whether b is a convergence point: it is entered from more
// than one place or was explicitly protected with DoNotMerge.
func (g *Graph) IsJoin(b *Block) bool {
	return b.noMerge || g.preds[b] > 1
}

// Index returns the position of b in Blocks, or -1 when unreachable.
func (g *Graph) Index(b *Block) int {
	if i, ok := g.index[b]; ok {
		return i
	}
	return -1
}

// Instructions counts the instructions of all reachable blocks.
func (g *Graph) Instructions() int {
	n := 0
	for _, b := range g.Blocks {
		n += len(b.code)
	}
	return n
}

// Dump renders the graph reachable from entry as text, one labelled block at
// a time. Labels follow the Analyze order, so equal graphs dump equally.
func Dump(entry *Block) string {
	g := Analyze(entry)
	var sb strings.Builder
	for i, b := range g.Blocks {
		sb.WriteString(fmt.Sprintf("B%d:", i))
		if g.IsJoin(b) {
			sb.WriteString(" [join]")
		}
		sb.WriteString("\n")
		for _, in := range b.code {
			sb.WriteString("  ")
			sb.WriteString(in.String())
			sb.WriteString("\n")
		}
		if len(b.follows) > 0 {
			targets := make([]string, len(b.follows))
			for j, f := range b.follows {
				targets[j] = fmt.Sprintf("B%d", g.index[f])
			}
			sb.WriteString("  -> " + strings.Join(targets, ", ") + "\n")
		}
	}
	return sb.String()
}
