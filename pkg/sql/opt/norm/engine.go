// Copyright 2024 The Cockroach Authors.
//
// Use of this software is governed by the CockroachDB Software License
// included in the /LICENSE file.

package norm

import (
	"context"

	"github.com/cockroachdb/errors"
	"github.com/cockroachdb/polyopt/pkg/sql/opt"
	"github.com/cockroachdb/polyopt/pkg/util/log"
)

// programState is the match order and limit in effect while a program runs.
type programState struct {
	order MatchOrder
	limit int
}

func (p *Planner) execute(ctx context.Context, program *Program) error {
	state := programState{order: MatchOrderDepthFirst, limit: int(matchLimit.Get(p.sv))}
	for _, in := range program.instructions {
		switch t := in.(type) {
		case *matchOrderInstruction:
			state.order = t.order
		case *matchLimitInstruction:
			state.limit = t.limit
		case *ruleInstructions:
			if err := p.applyRules(ctx, t.rules, state); err != nil {
				return err
			}
		default:
			return errors.AssertionFailedf("unknown instruction %T", in)
		}
	}
	return nil
}

// applyRules applies the rules to the tree until none of them matches or the
// limit is reached. After each transformation the walk starts over from
// the root.
func (p *Planner) applyRules(ctx context.Context, rules []opt.Rule, state programState) error {
	applied := 0
	for {
		if err := p.checkCancel(ctx); err != nil {
			return err
		}
		if state.limit > 0 && applied >= state.limit {
			log.VEventf(ctx, 1, "rule group stopped at match limit %d", state.limit)
			return nil
		}
		changed := false
		for _, n := range p.walk(state.order) {
			for _, r := range rules {
				if p.applyRule(ctx, r, n) {
					changed = true
					break
				}
			}
			if changed {
				break
			}
		}
		if !changed {
			return nil
		}
		applied++
	}
}

func (p *Planner) checkCancel(ctx context.Context) error {
	if p.cancel != nil && p.cancel.IsCancelRequested() {
		return opt.NewQueryCanceledError()
	}
	if err := ctx.Err(); err != nil {
		return errors.WithSecondaryError(opt.NewQueryCanceledError(), err)
	}
	return nil
}

// walk lists the distinct nodes of the tree in the given order.
func (p *Planner) walk(order MatchOrder) []opt.RelNode {
	var res []opt.RelNode
	seen := make(map[opt.RelNode]struct{})
	var visit func(n opt.RelNode)
	visit = func(n opt.RelNode) {
		if _, ok := seen[n]; ok {
			return
		}
		seen[n] = struct{}{}
		if order != MatchOrderBottomUp {
			res = append(res, n)
		}
		for _, in := range n.Inputs() {
			visit(in)
		}
		if order == MatchOrderBottomUp {
			res = append(res, n)
		}
	}
	visit(p.root)
	return res
}

// applyRule fires r on the first binding rooted at n whose result differs
// from n, and replaces n by the result. When a firing produces several
// results, the cheapest is used.
func (p *Planner) applyRule(ctx context.Context, r opt.Rule, n opt.RelNode) bool {
	var bindings [][]opt.RelNode
	opt.MatchOperand(r.Operand(), n, func(in opt.RelNode) []opt.RelNode {
		return []opt.RelNode{in}
	}, func(rels []opt.RelNode) {
		bindings = append(bindings, rels)
	})
	for _, rels := range bindings {
		call := opt.NewRuleCall(p, r, rels, nil)
		r.OnMatch(call)
		results := call.Results()
		if len(results) == 0 {
			continue
		}
		best := results[0]
		if len(results) > 1 {
			bestCost := p.Cost(best)
			for _, res := range results[1:] {
				if c := p.Cost(res); c.Less(bestCost) {
					best, bestCost = res, c
				}
			}
		}
		if best == n || best.Digest() == n.Digest() {
			continue
		}
		if !best.RowType().Equivalent(n.RowType()) {
			panic(errors.AssertionFailedf("rule %s changed row type %s of %s to %s",
				r.Name(), n.RowType(), n.Op(), best.RowType()))
		}
		if log.V(2) {
			log.Infof(ctx, "%s rewrote %s", r.Name(), n.Digest())
		}
		p.root = replace(p.root, n, best)
		p.markRegistered(best)
		p.transformations++
		p.metrics.Transformations.Inc(1)
		return true
	}
	return false
}

// replace returns root with every occurrence of old replaced by n. The
// ancestors of old are copied.
func replace(root, old, n opt.RelNode) opt.RelNode {
	if root == old {
		return n
	}
	return opt.VisitInputs(root, opt.RelShuttleFunc(func(in opt.RelNode) opt.RelNode {
		return replace(in, old, n)
	}))
}
