// Package gbt implements the tree trainer (§4.5) and the GBDT trainer
// (§4.6): leaf-wise best-first tree growth over a binned feature matrix,
// and the outer boosting loop that turns a sequence of trees into an
// ensemble.
package gbt

import "github.com/wlattner/gbt/split"

// Node is either a Branch (Feature/Continuous|Discrete/Left/Right set) or a
// Leaf (only Value set).
type Node struct {
	Leaf  bool
	Value float32

	Feature    int
	Continuous *split.Continuous
	Discrete   *split.Discrete
	Left       *Node
	Right      *Node
}

// Predict walks the tree for one row, given a bin-lookup function
// bin(feature) -> bin index.
func (n *Node) Predict(binOf func(feature int) int) float32 {
	cur := n
	for !cur.Leaf {
		b := binOf(cur.Feature)
		var dir split.Direction
		if cur.Continuous != nil {
			dir = cur.Continuous.Route(b)
		} else {
			dir = cur.Discrete.Route(b)
		}
		if dir == split.Left {
			cur = cur.Left
		} else {
			cur = cur.Right
		}
	}
	return cur.Value
}
