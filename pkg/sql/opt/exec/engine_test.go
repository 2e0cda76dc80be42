// Copyright 2024 The Cockroach Authors.
//
// Use of this software is governed by the CockroachDB Software License
// included in the /LICENSE file.

package exec

import (
	"testing"

	"github.com/cockroachdb/polyopt/pkg/sql/opt"
	"github.com/cockroachdb/polyopt/pkg/sql/opt/norm"
	"github.com/cockroachdb/polyopt/pkg/sql/opt/optctx"
	"github.com/cockroachdb/polyopt/pkg/sql/opt/rel"
	"github.com/cockroachdb/polyopt/pkg/sql/opt/rules"
	"github.com/cockroachdb/polyopt/pkg/util/leaktest"
	"github.com/cockroachdb/polyopt/pkg/util/log"
	"github.com/stretchr/testify/require"
)

func TestRowEngine(t *testing.T) {
	defer leaktest.AfterTest(t)()
	defer log.Scope(t).Close(t)

	e := NewRowEngine()
	require.Equal(t, RowEngineName, e.Convention().Name())
	require.False(t, e.Convention().IsNone())
	require.Len(t, e.Rules(), len(RowEngineOps))
	for i, op := range RowEngineOps {
		require.True(t, e.Convention().Executes(op))
		require.Equal(t, "NONETo"+RowEngineName+op+"Rule", e.Rules()[i].Name())
	}
	require.False(t, e.Convention().Executes(rel.SortOp))

	// Each row engine has a convention family of its own.
	require.NotSame(t, e.TraitDef(), NewRowEngine().TraitDef())
}

func TestEngineSharedFamily(t *testing.T) {
	defer leaktest.AfterTest(t)()
	defer log.Scope(t).Close(t)

	def := opt.NewConventionTraitDef()
	sorter := NewEngine(def, opt.ConventionSpec{Name: "SORTER", Ops: []string{rel.SortOp, rel.ScanOp}})
	all := NewEngine(def, opt.ConventionSpec{Name: "ALL"})
	require.Len(t, sorter.Rules(), 2)
	require.Len(t, all.Rules(), len(allOps))
	require.True(t, sorter.TraitDef() == all.TraitDef())

	p := norm.New(nil, optctx.Empty())
	sorter.Prepare(p, rules.FilterMerge)
	all.Prepare(p)
	require.Len(t, p.TraitDefs(), 1)
	require.Len(t, p.Rules(), len(sorter.Rules())+1+len(all.Rules()))
	require.True(t, p.EmptyTraitSet().Contains(def.None()))
}
