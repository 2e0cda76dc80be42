// Copyright 2024 The Cockroach Authors.
//
// Use of this software is governed by the CockroachDB Software License
// included in the /LICENSE file.

package rel_test

import (
	"strings"
	"testing"

	"github.com/cockroachdb/polyopt/pkg/sql/opt"
	"github.com/cockroachdb/polyopt/pkg/sql/opt/norm"
	"github.com/cockroachdb/polyopt/pkg/sql/opt/optctx"
	"github.com/cockroachdb/polyopt/pkg/sql/opt/rel"
	"github.com/cockroachdb/polyopt/pkg/sql/opt/testutils/testcat"
	"github.com/cockroachdb/polyopt/pkg/sql/opt/xform"
	"github.com/cockroachdb/polyopt/pkg/util/leaktest"
	"github.com/cockroachdb/polyopt/pkg/util/log"
	"github.com/stretchr/testify/require"
)

// orderingDef is a family of sort orders, converted by sorting. An order
// satisfies each of its prefixes.
type orderingDef struct {
	opt.BaseTraitDef
}

type ordering struct {
	def  *orderingDef
	cols string
}

func (d *orderingDef) of(cols string) opt.Trait {
	return d.Canonize(&ordering{def: d, cols: cols})
}

func (d *orderingDef) Name() string                                      { return "ordering" }
func (d *orderingDef) Multiple() bool                                    { return false }
func (d *orderingDef) Default() opt.Trait                                { return d.of("") }
func (d *orderingDef) CanConvert(opt.Planner, opt.Trait, opt.Trait) bool { return true }
func (d *orderingDef) Convert(
	_ opt.Planner, n opt.RelNode, to opt.Trait, _ bool,
) (opt.RelNode, bool) {
	return rel.NewSort(n.Cluster(), n, to), true
}

func (o *ordering) TraitDef() opt.TraitDef { return o.def }
func (o *ordering) Register(opt.Planner)   {}
func (o *ordering) String() string         { return "[" + o.cols + "]" }
func (o *ordering) Satisfies(r opt.Trait) bool {
	ro, ok := r.(*ordering)
	return ok && strings.HasPrefix(o.cols, ro.cols)
}

// distributionDef is a family of row distributions, converted by an
// exchange. Every distribution satisfies "any".
type distributionDef struct {
	opt.BaseTraitDef
}

type distribution struct {
	def  *distributionDef
	kind string
}

func (d *distributionDef) of(kind string) opt.Trait {
	return d.Canonize(&distribution{def: d, kind: kind})
}

func (d *distributionDef) Name() string                                      { return "distribution" }
func (d *distributionDef) Multiple() bool                                    { return false }
func (d *distributionDef) Default() opt.Trait                                { return d.of("any") }
func (d *distributionDef) CanConvert(opt.Planner, opt.Trait, opt.Trait) bool { return true }
func (d *distributionDef) Convert(
	_ opt.Planner, n opt.RelNode, to opt.Trait, _ bool,
) (opt.RelNode, bool) {
	return rel.NewExchange(n.Cluster(), n, to), true
}

func (d *distribution) TraitDef() opt.TraitDef { return d.def }
func (d *distribution) Register(opt.Planner)   {}
func (d *distribution) String() string         { return d.kind }
func (d *distribution) Satisfies(r opt.Trait) bool {
	return opt.Trait(d) == r || r.String() == "any"
}

func TestEnforcers(t *testing.T) {
	defer leaktest.AfterTest(t)()
	defer log.Scope(t).Close(t)

	catalog := testcat.New()
	_, err := catalog.ExecuteDDL("CREATE TABLE a (a1 INT NOT NULL, a2 INT) ROWS 100")
	require.NoError(t, err)

	order, dist := &orderingDef{}, &distributionDef{}
	p := norm.New(nil, optctx.Empty())
	p.AddTraitDef(order)
	p.AddTraitDef(dist)

	scan := rel.NewScan(p.Cluster(), nil, catalog.Table("a"))
	want := scan.TraitSet().ReplaceTrait(order.of("0")).ReplaceTrait(dist.of("hash"))
	res := p.ChangeTraits(scan, want)
	require.True(t, res.TraitSet().Equals(want))
	require.Equal(t, `Exchange(distribution=hash)
 └── Sort(collation=[0])
      └── Scan(table=t.a)
`, rel.Format(res, 0))

	s := res.Inputs()[0].(*rel.Sort)
	var conv opt.Converter = s
	require.True(t, conv.InputTraits().Equals(scan.TraitSet()))
	require.Equal(t, scan.RowType(), s.RowType())

	// Copy takes the collation from the new traits.
	copied := s.Copy(s.TraitSet().ReplaceTrait(order.of("1")), s.Inputs()).(*rel.Sort)
	require.True(t, copied.Collation == order.of("1"))
	require.NotEqual(t, s.Digest(), copied.Digest())

	// A stricter order satisfies a prefix, so nothing is converted.
	sorted := rel.NewSort(p.Cluster(), scan, order.of("01"))
	converted, ok := p.ChangeTraitsUsingConverters(sorted, sorted.TraitSet().ReplaceTrait(order.of("0")))
	require.True(t, ok)
	require.True(t, converted == opt.RelNode(sorted))

	// Asking either planner to change traits that are already satisfied is
	// a programming error.
	want = sorted.TraitSet().ReplaceTrait(order.of("0"))
	require.Panics(t, func() { p.ChangeTraits(sorted, want) })

	o := xform.New(optctx.Empty())
	defer o.Close()
	o.AddTraitDef(order)
	oSorted := rel.NewSort(o.Cluster(), rel.NewScan(o.Cluster(), nil, catalog.Table("a")), order.of("01"))
	require.Panics(t, func() { o.ChangeTraits(oSorted, oSorted.TraitSet().ReplaceTrait(order.of("0"))) })
}
