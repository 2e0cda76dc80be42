// Copyright 2024 The Cockroach Authors.
//
// Use of this software is governed by the CockroachDB Software License
// included in the /LICENSE file.

package materialize

import (
	"context"

	"github.com/cockroachdb/polyopt/pkg/sql/opt"
	"github.com/cockroachdb/polyopt/pkg/sql/opt/cat"
	"github.com/cockroachdb/polyopt/pkg/sql/opt/mapping"
	"github.com/cockroachdb/polyopt/pkg/sql/opt/norm"
	"github.com/cockroachdb/polyopt/pkg/sql/opt/rel"
	"github.com/cockroachdb/polyopt/pkg/sql/opt/rex"
	"github.com/cockroachdb/polyopt/pkg/util/log"
)

// ProjectFilterTable is a leaf of a leaf-join tree: a scan, optionally
// projected, optionally filtered.
type ProjectFilterTable struct {
	// Condition filters the output of the projection, or is nil.
	Condition opt.ScalarExpr
	// Mapping maps the columns of the table to the output columns.
	Mapping *mapping.Mapping
	// Scan reads the table.
	Scan *rel.Scan
}

// Table returns the scanned table.
func (p *ProjectFilterTable) Table() cat.Table { return p.Scan.Table }

// ProjectFilterTableOf recognizes Filter(Project(Scan)), where the filter
// and the projection are optional and the projection only references
// distinct columns.
func ProjectFilterTableOf(n opt.RelNode) (*ProjectFilterTable, bool) {
	var cond opt.ScalarExpr
	if f, ok := n.(*rel.Filter); ok {
		cond = f.Condition
		n = f.Input()
	}
	var m *mapping.Mapping
	if p, ok := n.(*rel.Project); ok {
		if m, ok = p.Mapping(); !ok {
			return nil, false
		}
		n = p.Input()
	}
	scan, ok := n.(*rel.Scan)
	if !ok {
		return nil, false
	}
	if m == nil {
		m = mapping.Identity(scan.RowType().Len())
	}
	return &ProjectFilterTable{Condition: cond, Mapping: m, Scan: scan}, true
}

// TryUseStar rewrites rel to read star wherever it joins constituents of
// star. It returns false if rel does not read the star's fact table or no
// join could be folded.
func TryUseStar(ctx context.Context, n opt.RelNode, star *cat.StarTable) (opt.RelNode, bool) {
	s := starRewriter{star: star}
	res := s.rewrite(n)
	if res == n {
		return nil, false
	}
	log.VEventf(ctx, 2, "star %s: rewrote %s", cat.FormatQualifiedName(star), n.Op())
	cleaned, err := norm.Rewrite(ctx, cleanupProgram, res)
	if err != nil {
		log.Warningf(ctx, "cleaning up star rewrite: %v", err)
		return res, true
	}
	return cleaned, true
}

type starRewriter struct {
	star *cat.StarTable
}

// rewrite rebuilds n bottom-up. Scans of the fact table become projections
// of the star table, and inner joins of two leaves that the star table
// covers become filtered projections of it.
func (s *starRewriter) rewrite(n opt.RelNode) opt.RelNode {
	var inputs []opt.RelNode
	for i, in := range n.Inputs() {
		newIn := s.rewrite(in)
		if newIn != in && inputs == nil {
			inputs = append([]opt.RelNode(nil), n.Inputs()...)
		}
		if inputs != nil {
			inputs[i] = newIn
		}
	}

	switch t := n.(type) {
	case *rel.Scan:
		if t.Table != s.star.FirstTable() {
			return n
		}
		starScan := rel.NewScan(t.Cluster(), nil, s.star)
		m := mapping.CreateShiftMapping(s.star.ColumnCount(), 0, 0, t.RowType().Len())
		return rel.NewProjectOfTargets(t.Cluster(), starScan, m.TargetList())

	case *rel.Join:
		if inputs == nil {
			return n
		}
		join := n.Copy(n.TraitSet(), inputs).(*rel.Join)
		if join.Type != rel.InnerJoin {
			return join
		}
		if res, ok := s.match(join); ok {
			return res
		}
		return join
	}

	if inputs == nil {
		return n
	}
	return n.Copy(n.TraitSet(), inputs)
}

// match folds a join of two leaves into one read of the star table. Only
// the side that already reads the star table can absorb the other, so at
// most one orientation applies.
func (s *starRewriter) match(join *rel.Join) (opt.RelNode, bool) {
	left, ok := ProjectFilterTableOf(join.Left())
	if !ok {
		return nil, false
	}
	right, ok := ProjectFilterTableOf(join.Right())
	if !ok {
		return nil, false
	}
	if res, ok := s.foldInto(join, left, right, true /* starIsLeft */); ok {
		return res, true
	}
	return s.foldInto(join, right, left, false /* starIsLeft */)
}

// foldInto folds other into starLeaf, if starLeaf scans the star table and
// the star table contains the table other scans. starIsLeft says which side
// of the join starLeaf is on. It fails if starLeaf already exposes columns
// of other's table: a second row of a constituent is not the star row's.
func (s *starRewriter) foldInto(
	join *rel.Join, starLeaf, other *ProjectFilterTable, starIsLeft bool,
) (opt.RelNode, bool) {
	if starLeaf.Table() != cat.Table(s.star) {
		return nil, false
	}
	offset, ok := s.star.ColumnOffset(other.Table())
	if !ok {
		return nil, false
	}
	for c := offset; c < offset+other.Table().ColumnCount(); c++ {
		if _, ok := starLeaf.Mapping.Target(c); ok {
			return nil, false
		}
	}

	left, right := starLeaf, other
	var m *mapping.Mapping
	if starIsLeft {
		m = mapping.Merge(
			left.Mapping,
			mapping.OffsetTarget(mapping.OffsetSource(right.Mapping, offset), left.Mapping.TargetCount()),
		)
	} else {
		left, right = other, starLeaf
		m = mapping.Merge(
			mapping.OffsetSource(left.Mapping, offset),
			mapping.OffsetTarget(right.Mapping, left.Mapping.TargetCount()),
		)
	}

	var conds []opt.ScalarExpr
	if left.Condition != nil {
		conds = append(conds, left.Condition)
	}
	if right.Condition != nil {
		conds = append(conds, rex.Shift(right.Condition, left.Mapping.TargetCount()))
	}
	if join.Condition != nil {
		conds = append(conds, join.Condition)
	}

	cluster := join.Cluster()
	scan := rel.NewScan(cluster, nil, s.star)
	proj := rel.NewProjectOfTargets(cluster, scan, m.TargetList())
	return rel.NewFilterOrInput(cluster, proj, conds...), true
}
