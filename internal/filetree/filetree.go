// Package filetree turns flat repository paths into a nested directory tree.
package filetree

import (
	"encoding/json"
	"strings"
)

// NodeType distinguishes files from directories.
type NodeType string

const (
	TypeFile      NodeType = "file"
	TypeDirectory NodeType = "directory"
)

// Node is one entry of the tree. Directories always carry a non-nil
// Children slice; files never do.
type Node struct {
	Name     string   `json:"name"`
	Path     string   `json:"path"`
	Type     NodeType `json:"type"`
	Children []*Node  `json:"children"`
}

// MarshalJSON writes children for every directory, empty ones included,
// and never for files.
func (n Node) MarshalJSON() ([]byte, error) {
	type file struct {
		Name string   `json:"name"`
		Path string   `json:"path"`
		Type NodeType `json:"type"`
	}
	if !n.IsDir() {
		return json.Marshal(file{Name: n.Name, Path: n.Path, Type: n.Type})
	}
	children := n.Children
	if children == nil {
		children = []*Node{}
	}
	return json.Marshal(struct {
		file
		Children []*Node `json:"children"`
	}{file{Name: n.Name, Path: n.Path, Type: n.Type}, children})
}

// IsDir reports whether n is a directory.
func (n *Node) IsDir() bool {
	return n.Type == TypeDirectory
}

// Build converts paths into a forest of top-level nodes. Siblings keep
// first-seen order. Empty segments are dropped, so "a//b" and "/a/b" both
// mean "a/b".
//
// If a path names a directory that was earlier seen as a file, the node is
// promoted to a directory.
func Build(paths []string) []*Node {
	roots := make([]*Node, 0)
	index := make(map[string]*Node)

	for _, p := range paths {
		parts := splitPath(p)
		siblings := &roots

		for i, name := range parts {
			isFile := i == len(parts)-1
			cumulative := strings.Join(parts[:i+1], "/")

			node, ok := index[cumulative]
			if !ok {
				node = &Node{Name: name, Path: cumulative, Type: TypeFile}
				if !isFile {
					node.Type = TypeDirectory
					node.Children = make([]*Node, 0)
				}
				index[cumulative] = node
				*siblings = append(*siblings, node)
			} else if !isFile && !node.IsDir() {
				node.Type = TypeDirectory
				node.Children = make([]*Node, 0)
			}

			if !isFile {
				siblings = &node.Children
			}
		}
	}
	return roots
}

// Flatten returns the file paths of the forest in depth-first order.
func Flatten(nodes []*Node) []string {
	var out []string
	var walk func([]*Node)
	walk = func(ns []*Node) {
		for _, n := range ns {
			if n.IsDir() {
				walk(n.Children)
				continue
			}
			out = append(out, n.Path)
		}
	}
	walk(nodes)
	return out
}

// Stats returns the total node count and the maximum nesting depth
// (a top-level file has depth 1).
func Stats(nodes []*Node) (count, depth int) {
	for _, n := range nodes {
		count++
		d := 1
		if n.IsDir() {
			c, sub := Stats(n.Children)
			count += c
			d += sub
		}
		if d > depth {
			depth = d
		}
	}
	return count, depth
}

func splitPath(p string) []string {
	raw := strings.Split(p, "/")
	parts := raw[:0]
	for _, s := range raw {
		if s != "" {
			parts = append(parts, s)
		}
	}
	return parts
}
