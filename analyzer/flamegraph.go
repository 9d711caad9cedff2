package analyzer

import (
	"fmt"
	"sort"

	"github.com/google/pprof/profile"
)

// flameNode is the mutable tree used while aggregating samples. Children are
// keyed by function ID, so all calls of a function under the same parent
// merge regardless of call site.
type flameNode struct {
	node      *FlameGraphNode
	children  map[uint64]*flameNode
	selfValue int64
}

func newFlameNode(name string) *flameNode {
	return &flameNode{
		node:     &FlameGraphNode{Name: name},
		children: make(map[uint64]*flameNode),
	}
}

// BuildFlameGraphTree folds the samples of p into a flame graph rooted at
// "root", weighting each sample by its valueIndex-th value.
func BuildFlameGraphTree(p *profile.Profile, valueIndex int) (*FlameGraphNode, error) {
	if valueIndex < 0 || valueIndex >= len(p.SampleType) {
		return nil, fmt.Errorf("invalid value index %d for profile with %d sample types", valueIndex, len(p.SampleType))
	}

	root := newFlameNode("root")
	var total int64

	for _, sample := range p.Sample {
		if valueIndex >= len(sample.Value) {
			continue
		}
		value := sample.Value[valueIndex]
		if value == 0 {
			continue
		}
		total += value

		// Locations are leaf first; flame graphs grow from the caller.
		current := root
		for i := len(sample.Location) - 1; i >= 0; i-- {
			loc := sample.Location[i]
			if len(loc.Line) == 0 {
				continue
			}
			fn := loc.Line[0].Function
			if fn == nil {
				fn = &profile.Function{Name: fmt.Sprintf("unknown @ 0x%x", loc.Address)}
			}
			child, ok := current.children[fn.ID]
			if !ok {
				child = newFlameNode(fn.Name)
				current.children[fn.ID] = child
			}
			if i == 0 {
				child.selfValue += value
			}
			current = child
		}
	}

	foldValues(root)
	root.node.Value = total
	sortChildrenByValue(root.node)
	return root.node, nil
}

// foldValues sets each node's value to its self value plus its children's,
// dropping children whose total is zero.
func foldValues(n *flameNode) int64 {
	total := n.selfValue
	children := []*FlameGraphNode{}
	for _, child := range n.children {
		v := foldValues(child)
		child.node.Value = v
		if v != 0 {
			children = append(children, child.node)
		}
		total += v
	}
	n.node.Children = children
	return total
}

func sortChildrenByValue(node *FlameGraphNode) {
	if node == nil || len(node.Children) == 0 {
		return
	}
	sort.Slice(node.Children, func(i, j int) bool {
		if node.Children[i].Value != node.Children[j].Value {
			return node.Children[i].Value > node.Children[j].Value
		}
		return node.Children[i].Name < node.Children[j].Name
	})
	for _, child := range node.Children {
		sortChildrenByValue(child)
	}
}
