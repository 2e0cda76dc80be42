// Copyright 2024 The Cockroach Authors.
//
// Use of this software is governed by the CockroachDB Software License
// included in the /LICENSE file.

package rel

import (
	"strings"

	"github.com/cockroachdb/polyopt/pkg/sql/opt"
	"github.com/cockroachdb/polyopt/pkg/util/treeprinter"
)

// FormatFlags control the output of Format.
type FormatFlags int

const (
	// FmtTraits shows the trait set of every node.
	FmtTraits FormatFlags = 1 << iota
	// FmtRowType shows the output columns of every node.
	FmtRowType
)

// Format renders the tree rooted at n, one node per line, such as:
//
//	Filter(condition=(= $0 10))
//	 └── Scan(table=a)
func Format(n opt.RelNode, flags FormatFlags) string {
	tp := treeprinter.New()
	formatNode(tp, n, flags)
	return tp.String()
}

func formatNode(tp treeprinter.Node, n opt.RelNode, flags FormatFlags) {
	var b strings.Builder
	b.WriteString(n.Op())
	if flags&FmtTraits != 0 {
		b.WriteByte('.')
		b.WriteString(n.TraitSet().String())
	}
	b.WriteByte('(')
	b.WriteString(n.Attrs())
	b.WriteByte(')')
	child := tp.Child(b.String())
	if flags&FmtRowType != 0 {
		child.AddLine("columns: " + n.RowType().String())
	}
	for _, in := range n.Inputs() {
		formatNode(child, in, flags)
	}
}
