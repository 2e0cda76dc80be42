// Copyright 2024 The Cockroach Authors.
//
// Use of this software is governed by the CockroachDB Software License
// included in the /LICENSE file.

package xform

import (
	"context"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/cockroachdb/logtags"
	"github.com/cockroachdb/polyopt/pkg/sql/opt"
	"github.com/cockroachdb/polyopt/pkg/sql/opt/materialize"
	"github.com/cockroachdb/polyopt/pkg/sql/opt/memo"
	"github.com/cockroachdb/polyopt/pkg/sql/opt/rel"
	"github.com/cockroachdb/polyopt/pkg/util/log"
	"github.com/google/btree"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("github.com/cockroachdb/polyopt/pkg/sql/opt/xform")

// ruleMatch is a binding of a rule waiting in the queue. Matches are
// ordered by decreasing importance, then by the order they were found.
type ruleMatch struct {
	rule       opt.Rule
	rels       []opt.RelNode
	importance float64
	seq        int
}

var _ btree.Item = (*ruleMatch)(nil)

// Less is part of the btree.Item interface.
func (m *ruleMatch) Less(than btree.Item) bool {
	other := than.(*ruleMatch)
	if m.importance != other.importance {
		return m.importance > other.importance
	}
	return m.seq < other.seq
}

func matchKey(r opt.Rule, rels []opt.RelNode) string {
	var b strings.Builder
	b.WriteString(r.Name())
	for _, n := range rels {
		b.WriteByte('|')
		b.WriteString(n.Digest())
	}
	return b.String()
}

// expand returns the expressions an input stands for.
func (o *Optimizer) expand(input opt.RelNode) []opt.RelNode {
	if sub, ok := input.(*memo.Subset); ok {
		return sub.Canonical().Rels()
	}
	return []opt.RelNode{input}
}

// queueMatches queues the bindings of every rule that involve the newly
// registered expression n: those rooted at n, and those rooted at the
// ancestors of n's set that reach n through their child operands.
func (o *Optimizer) queueMatches(n opt.RelNode) {
	roots := []opt.RelNode{n}
	seen := map[opt.RelNode]struct{}{n: {}}
	frontier := roots
	for d := 1; d < o.maxOperandDepth; d++ {
		var next []opt.RelNode
		for _, r := range frontier {
			sub := o.getSubset(r)
			if sub == nil {
				continue
			}
			for _, p := range sub.Set().Parents() {
				if _, ok := seen[p]; ok {
					continue
				}
				seen[p] = struct{}{}
				next = append(next, p)
			}
		}
		roots = append(roots, next...)
		frontier = next
	}
	for _, root := range roots {
		for _, r := range o.rules {
			o.queueRuleMatches(r, root, n)
		}
	}
}

// queueRuleMatches queues the bindings of r rooted at root. If involving is
// set, only bindings that contain it are queued.
func (o *Optimizer) queueRuleMatches(r opt.Rule, root, involving opt.RelNode) {
	opt.MatchOperand(r.Operand(), root, o.expand, func(rels []opt.RelNode) {
		if involving != nil && root != involving && !containsRel(rels, involving) {
			return
		}
		for _, n := range rels {
			if o.importanceOf(n) == 0 {
				return
			}
		}
		key := matchKey(r, rels)
		if _, ok := o.matches[key]; ok {
			return
		}
		o.matches[key] = struct{}{}
		o.seq++
		o.queue.ReplaceOrInsert(&ruleMatch{
			rule:       r,
			rels:       rels,
			importance: o.importanceOf(rels[0]),
			seq:        o.seq,
		})
	})
}

func containsRel(rels []opt.RelNode, n opt.RelNode) bool {
	for _, r := range rels {
		if r == n {
			return true
		}
	}
	return false
}

// dropMatches removes the queued matches for which pred returns true.
func (o *Optimizer) dropMatches(pred func(m *ruleMatch) bool) {
	var drop []btree.Item
	o.queue.Ascend(func(i btree.Item) bool {
		if pred(i.(*ruleMatch)) {
			drop = append(drop, i)
		}
		return true
	})
	for _, i := range drop {
		o.queue.Delete(i)
	}
}

// popMatch returns the most important queued match whose expressions have
// not been pruned since it was queued.
func (o *Optimizer) popMatch() (*ruleMatch, bool) {
	for o.queue.Len() > 0 {
		m := o.queue.DeleteMin().(*ruleMatch)
		pruned := false
		for _, n := range m.rels {
			if o.importanceOf(n) == 0 {
				pruned = true
				break
			}
		}
		if !pruned {
			return m, true
		}
	}
	return nil, false
}

func (o *Optimizer) fire(ctx context.Context, m *ruleMatch) {
	if log.V(2) {
		log.Infof(ctx, "firing %s on %s", m.rule.Name(), m.rels[0].Digest())
	}
	call := opt.NewRuleCall(o, m.rule, m.rels, func(n, equiv opt.RelNode) opt.RelNode {
		return o.ensureRegistered(n, equiv)
	})
	m.rule.OnMatch(call)
	o.metrics.RulesFired.Inc(1)
}

// checkCancel returns an error if cancellation was requested through the
// planner's cancel flag or the context.
func (o *Optimizer) checkCancel(ctx context.Context) error {
	if o.cancel != nil && o.cancel.IsCancelRequested() {
		return opt.NewQueryCanceledError()
	}
	if err := ctx.Err(); err != nil {
		return errors.WithSecondaryError(opt.NewQueryCanceledError(), err)
	}
	return nil
}

// FindBestExp is part of the opt.Planner interface. Materializations are
// registered first, then rules fire until the queue is empty, the firing
// limit is reached, or, in impatient mode, shortly after the root becomes
// implementable.
func (o *Optimizer) FindBestExp(ctx context.Context) (_ opt.RelNode, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = opt.CatchOptimizerError(r)
		}
	}()
	if o.root == nil {
		return nil, errors.AssertionFailedf("no root expression to plan")
	}
	ctx = logtags.AddTag(ctx, "opt", o.id)
	ctx, sp := tracer.Start(ctx, "opt.find-best-exp")
	defer sp.End()
	o.metrics.ActiveSessions.Inc(1)
	defer o.metrics.ActiveSessions.Dec(1)

	if materializationsEnabled.Get(o.sv) && len(o.materializations) > 0 {
		if err := o.useMaterializations(ctx); err != nil {
			return nil, err
		}
	}
	o.ensureRootConverters()

	firings, err := o.search(ctx)
	sp.SetAttributes(
		attribute.Int64("opt.rules.fired", firings),
		attribute.Int("opt.sets", len(o.sets)),
	)
	if err != nil {
		o.metrics.Canceled.Inc(1)
		sp.SetStatus(codes.Error, "canceled")
		return nil, err
	}

	plan, err := o.buildCheapestPlan(o.rootSubset())
	if err != nil {
		if opt.IsCannotPlan(err) {
			o.metrics.CannotPlan.Inc(1)
		}
		sp.RecordError(err)
		sp.SetStatus(codes.Error, "cannot plan")
		log.VEventf(ctx, 1, "%v", err)
		return nil, err
	}
	log.VEventf(ctx, 1, "found plan with cost %s after %d rule firings", o.Cost(plan), firings)
	return plan, nil
}

func (o *Optimizer) search(ctx context.Context) (firings int64, _ error) {
	maxFirings := maxRuleFirings.Get(o.sv)
	impatient := impatientEnabled.Get(o.sv)
	extra := impatientExtraFirings.Get(o.sv)
	var sinceImplementable int64 = -1
	for {
		if err := o.checkCancel(ctx); err != nil {
			return firings, err
		}
		if maxFirings > 0 && firings >= maxFirings {
			if o.limitEvery.ShouldLog() {
				log.Warningf(ctx, "stopped search after %d rule firings with %d matches pending",
					firings, o.queue.Len())
			}
			return firings, nil
		}
		if impatient {
			if sinceImplementable < 0 && !o.rootSubset().BestCost.IsInfinite() {
				sinceImplementable = 0
			}
			if sinceImplementable >= 0 {
				if sinceImplementable >= extra {
					log.VEventf(ctx, 1, "impatient: stopping after %d rule firings", firings)
					return firings, nil
				}
				sinceImplementable++
			}
		}
		m, ok := o.popMatch()
		if !ok {
			return firings, nil
		}
		o.fire(ctx, m)
		firings++
	}
}

// ensureRootConverters adds abstract converters from the other subsets of
// the root's set that differ from the root in exactly one trait.
func (o *Optimizer) ensureRootConverters() {
	root := o.rootSubset()
	for _, sub := range root.Set().Subsets() {
		if sub == root {
			continue
		}
		if len(root.TraitSet().Difference(sub.TraitSet())) != 1 {
			continue
		}
		o.ensureRegistered(rel.NewAbstractConverter(o.cluster, root.TraitSet(), sub), root)
	}
}

// buildCheapestPlan extracts the best expression of the root subset with
// its inputs replaced, recursively, by their best expressions.
func (o *Optimizer) buildCheapestPlan(root *memo.Subset) (opt.RelNode, error) {
	visiting := make(map[*memo.Subset]struct{})
	var build func(sub *memo.Subset) (opt.RelNode, error)
	build = func(sub *memo.Subset) (opt.RelNode, error) {
		sub = sub.Canonical()
		best := sub.Best
		if best == nil || sub.BestCost.IsInfinite() {
			return nil, opt.NewCannotPlanError(sub.TraitSet(), o.originOf(sub))
		}
		if conv, ok := best.TraitSet().Convention(); ok && conv.IsNone() {
			return nil, opt.NewCannotPlanError(sub.TraitSet(), best)
		}
		if best.TraitSet().Size() != len(o.traitDefs) {
			return nil, opt.NewCannotPlanError(sub.TraitSet(), best)
		}
		if _, ok := visiting[sub]; ok {
			return nil, errors.AssertionFailedf("plan for %s depends on itself", sub.Digest())
		}
		visiting[sub] = struct{}{}
		defer delete(visiting, sub)

		var inputs []opt.RelNode
		for i, in := range best.Inputs() {
			inSub, ok := in.(*memo.Subset)
			if !ok {
				continue
			}
			built, err := build(inSub)
			if err != nil {
				return nil, err
			}
			if inputs == nil {
				inputs = append([]opt.RelNode(nil), best.Inputs()...)
			}
			inputs[i] = built
		}
		if inputs == nil {
			return best, nil
		}
		return best.Copy(best.TraitSet(), inputs), nil
	}
	return build(root)
}

// originOf returns the node first registered in the subset's set, for error
// messages.
func (o *Optimizer) originOf(sub *memo.Subset) opt.RelNode {
	if n, ok := o.origins[sub.Set()]; ok {
		return n
	}
	if sub == o.root && o.originalRoot != nil {
		return o.originalRoot
	}
	return sub
}

// logicalRoot returns the root as a tree of the nodes originally registered,
// expanding subsets to the first node registered in their set.
func (o *Optimizer) logicalRoot() opt.RelNode {
	if o.originalRoot != nil {
		if _, ok := o.originalRoot.(*memo.Subset); !ok {
			return o.originalRoot
		}
	}
	var expand func(n opt.RelNode, depth int) opt.RelNode
	expand = func(n opt.RelNode, depth int) opt.RelNode {
		sub, ok := n.(*memo.Subset)
		if !ok {
			return n
		}
		origin, ok := o.origins[sub.Set()]
		if !ok || depth > len(o.sets) {
			return nil
		}
		return opt.VisitInputs(origin, opt.RelShuttleFunc(func(in opt.RelNode) opt.RelNode {
			if e := expand(in, depth+1); e != nil {
				return e
			}
			return in
		}))
	}
	return expand(o.rootSubset(), 0)
}

// useMaterializations registers, as equivalent to the root, every rewrite
// of the root that reads a materialization instead of its query.
func (o *Optimizer) useMaterializations(ctx context.Context) error {
	ctx, sp := tracer.Start(ctx, "opt.use-materializations")
	defer sp.End()

	root := o.logicalRoot()
	if root == nil {
		return nil
	}
	leaf, err := materialize.ToLeafJoinForm(ctx, root)
	if err != nil {
		return err
	}
	used := 0
	for _, m := range o.materializations {
		var rewritten opt.RelNode
		var ok bool
		if m.StarTable != nil {
			rewritten, ok = materialize.TryUseStar(ctx, leaf, m.StarTable)
		} else {
			rewritten, ok, err = materialize.Substitute(ctx, leaf, m)
			if err != nil {
				return err
			}
		}
		if !ok {
			continue
		}
		log.VEventf(ctx, 1, "materialization %s matches the query",
			strings.Join(m.QualifiedTableName, "."))
		o.ensureRegistered(rewritten, o.rootSubset())
		used++
	}
	o.metrics.MaterializationsUsed.Inc(int64(used))
	sp.SetAttributes(attribute.Int("opt.materializations.used", used))
	return nil
}
