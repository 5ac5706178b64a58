package engine

import (
	"fmt"
	"sort"
	"strings"

	gm "github.com/Ludeme/Ludii-sub005/kriegmg"
)

// Node is a search tree node. A node owns its children; nothing is shared
// between branches, so a subtree can be dropped or handed to another
// goroutine as a whole.
type Node struct {
	State *CompactState
	Move  gm.Move
	// Prob is the estimated chance the umpire accepts Move.
	Prob float64

	// Value is the static evaluation of State.
	Value float64
	// Propagated is the backed-up value of the subtree.
	Propagated float64
	// MinValue is the lowest static value seen on the path from the root.
	MinValue float64

	Children []*Node
}

// NewRoot creates the root node of a tree over s.
func NewRoot(s *CompactState, value float64) *Node {
	return &Node{State: s, Move: gm.NullMove, Prob: 1, Value: value, Propagated: value, MinValue: value}
}

// AddChild attaches a node for move m leading to s.
func (n *Node) AddChild(s *CompactState, m gm.Move, prob, value float64) *Node {
	c := &Node{
		State:      s,
		Move:       m,
		Prob:       prob,
		Value:      value,
		Propagated: value,
		MinValue:   min(n.MinValue, value),
	}
	n.Children = append(n.Children, c)
	return c
}

// Key is the ordering key of a node.
func (n *Node) Key() float64 { return n.Value + n.MinValue }

// SortChildren orders the children by Key, best first. Ties keep insertion
// order.
func (n *Node) SortChildren() {
	sort.SliceStable(n.Children, func(i, j int) bool {
		return n.Children[i].Key() > n.Children[j].Key()
	})
}

// Best returns the child with the highest propagated value, nil for a leaf.
func (n *Node) Best() *Node {
	var best *Node
	for _, c := range n.Children {
		if best == nil || c.Propagated > best.Propagated {
			best = c
		}
	}
	return best
}

// Size counts the nodes of the subtree.
func (n *Node) Size() int {
	total := 1
	for _, c := range n.Children {
		total += c.Size()
	}
	return total
}

// Release drops the snapshots held by the subtree.
func (n *Node) Release() {
	n.State = nil
	for _, c := range n.Children {
		c.Release()
	}
}

// String renders the principal line and the root's children for logs.
func (n *Node) String() string {
	var sb strings.Builder
	for _, c := range n.Children {
		fmt.Fprintf(&sb, "%s p=%.2f v=%.3f prop=%.3f min=%.3f\n", c.Move, c.Prob, c.Value, c.Propagated, c.MinValue)
	}
	sb.WriteString("line:")
	for c := n.Best(); c != nil; c = c.Best() {
		sb.WriteString(" " + c.Move.String())
	}
	return sb.String()
}
