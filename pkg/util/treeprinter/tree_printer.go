// Copyright 2017 The Cockroach Authors.
//
// Use of this software is governed by the CockroachDB Software License
// included in the /LICENSE file.

// Package treeprinter renders trees of text with box-drawing edges.
package treeprinter

import (
	"fmt"
	"strings"
)

// Node is a handle to a position in a tree. Sample usage:
//
//	tp := treeprinter.New()
//	root := tp.Child("root")
//	root.Child("child-1")
//	root.Child("child-2").Child("grandchild\ngrandchild-more-info")
//	root.Child("child-3")
//
//	fmt.Print(tp.String())
//
// Output:
//
//	root
//	 ├── child-1
//	 ├── child-2
//	 │    └── grandchild
//	 │        grandchild-more-info
//	 └── child-3
type Node struct {
	entry *entry
}

type entry struct {
	lines    []string
	children []*entry
}

// New creates a tree printer and returns a sentinel node to which the root
// is added.
func New() Node {
	return Node{entry: &entry{}}
}

// Child adds a node as the last child of n. Multi-line text is indented
// under the first line.
func (n Node) Child(text string) Node {
	e := &entry{lines: strings.Split(text, "\n")}
	n.entry.children = append(n.entry.children, e)
	return Node{entry: e}
}

// Childf adds a node with formatted text.
func (n Node) Childf(format string, args ...interface{}) Node {
	return n.Child(fmt.Sprintf(format, args...))
}

// AddLine adds a line of text to n, below the lines it already has.
func (n Node) AddLine(text string) {
	n.entry.lines = append(n.entry.lines, text)
}

// String renders the tree below the sentinel node. Each top-level child is
// rendered as a separate root.
func (n Node) String() string {
	var b strings.Builder
	for _, root := range n.entry.children {
		for _, l := range root.lines {
			b.WriteString(l)
			b.WriteByte('\n')
		}
		writeChildren(&b, root, "")
	}
	return b.String()
}

func writeChildren(b *strings.Builder, e *entry, prefix string) {
	for i, c := range e.children {
		edge, cont := " ├── ", " │   "
		if i == len(e.children)-1 {
			edge, cont = " └── ", "     "
		}
		for j, l := range c.lines {
			b.WriteString(prefix)
			if j == 0 {
				b.WriteString(edge)
			} else {
				b.WriteString(cont)
			}
			b.WriteString(l)
			b.WriteByte('\n')
		}
		writeChildren(b, c, prefix+cont)
	}
}
