// File: pkg/amalgam/tree.go
package amalgam

import (
	"fmt"
	"strings"
)

// treeNode is one inlined fragment and the fragments it inlined.
type treeNode struct {
	visit    Visit
	children []*treeNode
}

// RenderTree renders the include tree of a finished merge. Only inlined
// fragments appear; dropped repeats and passthrough includes do not.
func RenderTree(report *Report) string {
	if report == nil || len(report.Visits) == 0 {
		return ""
	}

	root := buildTree(report.Visits)

	var treeBuilder strings.Builder
	treeBuilder.WriteString(root.visit.Fragment.Path() + "\n")
	writeSubtree(&treeBuilder, root, "")
	return treeBuilder.String()
}

// buildTree rebuilds parent links from the pre-order visit list.
func buildTree(visits []Visit) *treeNode {
	root := &treeNode{visit: visits[0]}
	path := []*treeNode{root}

	for _, v := range visits[1:] {
		node := &treeNode{visit: v}
		// The parent is the closest preceding node one level up.
		for len(path) > v.Depth {
			path = path[:len(path)-1]
		}
		parent := path[len(path)-1]
		parent.children = append(parent.children, node)
		path = append(path, node)
	}
	return root
}

// writeSubtree writes the children of node with box-drawing connectors.
func writeSubtree(b *strings.Builder, node *treeNode, prefix string) {
	for i, child := range node.children {
		connector := "├── "
		extension := "│   "
		if i == len(node.children)-1 {
			connector = "└── "
			extension = "    "
		}

		b.WriteString(fmt.Sprintf("%s%s%s\n", prefix, connector, child.visit.Key))
		writeSubtree(b, child, prefix+extension)
	}
}
