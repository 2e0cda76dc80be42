// Copyright 2024 The Cockroach Authors.
//
// Use of this software is governed by the CockroachDB Software License
// included in the /LICENSE file.

package opt

import (
	"strconv"
	"strings"
	"testing"

	"github.com/cockroachdb/polyopt/pkg/util/leaktest"
	"github.com/cockroachdb/polyopt/pkg/util/log"
	"github.com/stretchr/testify/require"
)

func TestMatchOperand(t *testing.T) {
	defer leaktest.AfterTest(t)()
	defer log.Scope(t).Close(t)

	ts := NewEmptyTraitSet()
	leaf := func(id int, op string) *testRel { return &testRel{id: id, name: op, traits: ts} }
	// The single input of the filter stands for a class of three
	// alternatives.
	class := leaf(10, "Class")
	alternatives := []RelNode{leaf(11, "Join"), leaf(12, "Scan"), leaf(13, "Join")}
	filter := &testRel{id: 1, name: "Filter", traits: ts, inputs: []RelNode{class}}
	expand := func(in RelNode) []RelNode {
		if in == class {
			return alternatives
		}
		return []RelNode{in}
	}

	format := func(bindings [][]RelNode) string {
		var b strings.Builder
		for _, rels := range bindings {
			for i, r := range rels {
				if i > 0 {
					b.WriteByte(' ')
				}
				b.WriteString(r.Op())
				b.WriteByte('#')
				b.WriteString(strconv.Itoa(r.ID()))
			}
			b.WriteByte(';')
		}
		return b.String()
	}

	var bindings [][]RelNode
	emit := func(rels []RelNode) { bindings = append(bindings, rels) }

	MatchOperand(MatchOp("Filter", MatchOp("Join")), filter, expand, emit)
	require.Equal(t, "Filter#1 Join#11;Filter#1 Join#13;", format(bindings))

	bindings = nil
	MatchOperand(MatchOp("Filter", MatchAny()), filter, expand, emit)
	require.Len(t, bindings, 3)

	bindings = nil
	MatchOperand(MatchOp("Filter"), filter, expand, emit)
	require.Equal(t, "Filter#1;", format(bindings))

	bindings = nil
	MatchOperand(MatchOp("Project", MatchAny()), filter, expand, emit)
	require.Empty(t, bindings)

	bindings = nil
	pred := &Operand{Op: "Filter", Predicate: func(rel RelNode) bool { return rel.ID() > 5 }}
	MatchOperand(pred, filter, expand, emit)
	require.Empty(t, bindings)
}

func TestRuleCall(t *testing.T) {
	defer leaktest.AfterTest(t)()
	defer log.Scope(t).Close(t)

	ts := NewEmptyTraitSet()
	root := &testRel{id: 1, name: "Filter", traits: ts}
	replacement := &testRel{id: 2, name: "Scan", traits: ts}

	var registered [][2]RelNode
	r := NewRule("FilterToScan", MatchOp("Filter"), func(call *RuleCall) {
		call.TransformTo(replacement)
	})
	call := NewRuleCall(nil, r, []RelNode{root}, func(rel, equiv RelNode) RelNode {
		registered = append(registered, [2]RelNode{rel, equiv})
		return rel
	})
	r.OnMatch(call)
	require.Equal(t, "FilterToScan", call.Rule().Name())
	require.Equal(t, []RelNode{replacement}, call.Results())
	require.Len(t, registered, 1)
	require.Same(t, root, registered[0][1])
}
