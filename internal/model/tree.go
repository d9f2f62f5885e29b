package model

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mindcareai/mindcare/internal/severity"
)

// LeafChild marks a node without children.
const LeafChild = -1

// Node is one decision-tree node. Internal nodes send a row left when
// row[Feature] <= Threshold. Value holds per-class sample weights and is
// only consulted at leaves.
type Node struct {
	Feature   int       `json:"feature"`
	Threshold float64   `json:"threshold"`
	Left      int       `json:"left"`
	Right     int       `json:"right"`
	Value     []float64 `json:"value"`
}

// IsLeaf reports whether the node has no children.
func (n Node) IsLeaf() bool {
	return n.Left == LeafChild && n.Right == LeafChild
}

// TreeArtifact is the on-disk decision-tree format.
type TreeArtifact struct {
	ModelType string   `json:"model_type"`
	Classes   []string `json:"classes"`
	Features  []string `json:"features"`
	Nodes     []Node   `json:"nodes"`
}

// DecisionTree is a trained multi-class decision tree. It is immutable and
// safe for concurrent use.
type DecisionTree struct {
	classes  []severity.Class
	features []string
	nodes    []Node
}

var errEmptyTree = errors.New("tree has no nodes")

// NewDecisionTree validates an artifact and builds a tree from it.
func NewDecisionTree(a TreeArtifact) (*DecisionTree, error) {
	if len(a.Nodes) == 0 {
		return nil, errEmptyTree
	}
	if len(a.Classes) == 0 {
		return nil, errors.New("tree has no classes")
	}
	if len(a.Features) == 0 {
		return nil, errors.New("tree has no features")
	}

	classes := make([]severity.Class, len(a.Classes))
	seen := make(map[severity.Class]bool, len(a.Classes))
	for i, label := range a.Classes {
		c, err := severity.ParseClass(label)
		if err != nil {
			return nil, fmt.Errorf("class %d: %w", i, err)
		}
		if seen[c] {
			return nil, fmt.Errorf("class %d: duplicate class %s", i, c)
		}
		seen[c] = true
		classes[i] = c
	}

	for i, n := range a.Nodes {
		if n.IsLeaf() {
			if len(n.Value) != len(classes) {
				return nil, fmt.Errorf("node %d: leaf has %d values, want %d", i, len(n.Value), len(classes))
			}
			total := 0.0
			for _, v := range n.Value {
				if v < 0 {
					return nil, fmt.Errorf("node %d: negative class weight", i)
				}
				total += v
			}
			if total <= 0 {
				return nil, fmt.Errorf("node %d: leaf has no weight", i)
			}
			continue
		}
		// Children always follow their parent, which rules out cycles.
		if n.Left <= i || n.Right <= i || n.Left >= len(a.Nodes) || n.Right >= len(a.Nodes) {
			return nil, fmt.Errorf("node %d: invalid children %d/%d", i, n.Left, n.Right)
		}
		if n.Feature < 0 || n.Feature >= len(a.Features) {
			return nil, fmt.Errorf("node %d: feature index %d out of range", i, n.Feature)
		}
	}

	return &DecisionTree{
		classes:  classes,
		features: append([]string(nil), a.Features...),
		nodes:    append([]Node(nil), a.Nodes...),
	}, nil
}

// ParseDecisionTree decodes and validates a tree artifact.
func ParseDecisionTree(data []byte) (*DecisionTree, error) {
	var a TreeArtifact
	if err := json.Unmarshal(data, &a); err != nil {
		return nil, fmt.Errorf("decoding tree: %w", err)
	}
	return NewDecisionTree(a)
}

// Classes returns the trained classes in probability order.
func (t *DecisionTree) Classes() []severity.Class {
	return append([]severity.Class(nil), t.classes...)
}

// Features returns the trained column order.
func (t *DecisionTree) Features() []string {
	return append([]string(nil), t.features...)
}

// Depth returns the length of the longest root-to-leaf path.
func (t *DecisionTree) Depth() int {
	depth := make([]int, len(t.nodes))
	deepest := 0
	for i, n := range t.nodes {
		if n.IsLeaf() {
			if depth[i] > deepest {
				deepest = depth[i]
			}
			continue
		}
		depth[n.Left] = depth[i] + 1
		depth[n.Right] = depth[i] + 1
	}
	return deepest
}

// Leaves returns the number of leaf nodes.
func (t *DecisionTree) Leaves() int {
	count := 0
	for _, n := range t.nodes {
		if n.IsLeaf() {
			count++
		}
	}
	return count
}

// Predict walks the tree for one row and returns the leaf's class
// distribution. Ties resolve to the first class in training order.
func (t *DecisionTree) Predict(features []float64) (Prediction, error) {
	if len(features) != len(t.features) {
		return Prediction{}, &ShapeError{Err: fmt.Errorf("got %d features, model expects %d", len(features), len(t.features))}
	}

	i := 0
	for !t.nodes[i].IsLeaf() {
		n := t.nodes[i]
		if features[n.Feature] <= n.Threshold {
			i = n.Left
		} else {
			i = n.Right
		}
	}

	leaf := t.nodes[i]
	total := 0.0
	for _, v := range leaf.Value {
		total += v
	}

	probs := make([]float64, len(leaf.Value))
	best := 0
	for k, v := range leaf.Value {
		probs[k] = v / total
		if probs[k] > probs[best] {
			best = k
		}
	}

	return Prediction{Class: t.classes[best], Probabilities: probs}, nil
}
