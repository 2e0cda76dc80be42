// Copyright 2024 The Cockroach Authors.
//
// Use of this software is governed by the CockroachDB Software License
// included in the /LICENSE file.

package materialize

import (
	"context"

	"github.com/cockroachdb/errors"
	"github.com/cockroachdb/polyopt/pkg/sql/opt"
	"github.com/cockroachdb/polyopt/pkg/sql/opt/cat"
	"github.com/cockroachdb/polyopt/pkg/sql/opt/rel"
	"github.com/cockroachdb/polyopt/pkg/sql/opt/rex"
	"github.com/cockroachdb/polyopt/pkg/util/log"
)

// NewMaterialization returns a materialization of queryRel stored in the
// table scanned by tableRel. If the stored column types differ from those of
// the query, the scan is wrapped in a projection that casts each column to
// the query's type. star is the star table the query joins, or nil.
func NewMaterialization(
	tableRel, queryRel opt.RelNode, star *cat.StarTable, qualifiedTableName []string,
) (*opt.Materialization, error) {
	tableFields, queryFields := tableRel.RowType().Fields, queryRel.RowType().Fields
	if len(tableFields) != len(queryFields) {
		return nil, errors.Newf(
			"materialization %v has %d columns but its query has %d",
			qualifiedTableName, len(tableFields), len(queryFields))
	}
	needsCast := false
	exprs := make([]opt.ScalarExpr, len(tableFields))
	for i, f := range tableFields {
		exprs[i] = rex.Coerce(rex.NewInputRef(i, f.Type), queryFields[i].Type)
		if _, ok := exprs[i].(*rex.InputRef); !ok {
			needsCast = true
		}
	}
	if needsCast {
		tableRel = rel.NewProject(
			tableRel.Cluster(), nil, tableRel, exprs, queryRel.RowType().Names(),
		)
	}
	return &opt.Materialization{
		TableRel:           tableRel,
		QueryRel:           queryRel,
		StarTable:          star,
		QualifiedTableName: qualifiedTableName,
	}, nil
}

// NewLattice returns a lattice over star. rootRel is the query joining the
// constituents of star. If m is not nil, it is recorded as the lattice's
// materialization and marked as a star materialization.
func NewLattice(
	name string, star *cat.StarTable, rootRel opt.RelNode, m *opt.Materialization,
) *opt.Lattice {
	if m != nil && m.StarTable == nil {
		m.StarTable = star
	}
	return &opt.Lattice{Name: name, StarTable: star, RootRel: rootRel, Materialization: m}
}

// Substitute replaces every subtree of rel that computes the query of m by
// the scan of m's table. Both rel and the query are compared in leaf-join
// form, so rel should already be in that form. It returns false if no
// subtree matched.
func Substitute(
	ctx context.Context, n opt.RelNode, m *opt.Materialization,
) (opt.RelNode, bool, error) {
	query, err := ToLeafJoinForm(ctx, m.QueryRel)
	if err != nil {
		return nil, false, err
	}
	digest := query.Digest()
	found := false
	var replace func(n opt.RelNode) opt.RelNode
	replace = func(n opt.RelNode) opt.RelNode {
		if n.Digest() == digest {
			found = true
			return m.TableRel
		}
		var inputs []opt.RelNode
		for i, in := range n.Inputs() {
			newIn := replace(in)
			if newIn != in && inputs == nil {
				inputs = append([]opt.RelNode(nil), n.Inputs()...)
			}
			if inputs != nil {
				inputs[i] = newIn
			}
		}
		if inputs == nil {
			return n
		}
		return n.Copy(n.TraitSet(), inputs)
	}
	res := replace(n)
	if !found {
		return nil, false, nil
	}
	log.VEventf(ctx, 2, "substituted materialization %v", m.QualifiedTableName)
	return res, true, nil
}
