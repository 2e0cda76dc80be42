// Copyright 2024 The Cockroach Authors.
//
// Use of this software is governed by the CockroachDB Software License
// included in the /LICENSE file.

package opt

// Rule is a transformation that matches a pattern of operators and
// registers equivalent expressions for the matched root.
type Rule interface {
	// Name identifies the rule. Planners hold at most one rule per name.
	Name() string

	// Operand returns the pattern the rule matches.
	Operand() *Operand

	// OnMatch is called with each binding of the pattern. It may call
	// TransformTo any number of times.
	OnMatch(call *RuleCall)
}

// NewRule builds a rule from a pattern and a match function.
func NewRule(name string, operand *Operand, onMatch func(call *RuleCall)) Rule {
	return &funcRule{name: name, operand: operand, onMatch: onMatch}
}

type funcRule struct {
	name    string
	operand *Operand
	onMatch func(call *RuleCall)
}

func (r *funcRule) Name() string           { return r.name }
func (r *funcRule) Operand() *Operand      { return r.operand }
func (r *funcRule) OnMatch(call *RuleCall) { r.onMatch(call) }
func (r *funcRule) String() string         { return r.name }

// Operand is a node of a rule pattern. It matches a relational expression
// with the given operator and trait that satisfies the predicate, and whose
// inputs match the child operands in order. A nil Children slice matches any
// inputs without binding them.
type Operand struct {
	// Op is the operator to match; empty matches any operator.
	Op string
	// Trait, if set, must be held by the expression's trait set.
	Trait Trait
	// Predicate, if set, must return true for the expression.
	Predicate func(rel RelNode) bool
	// Children match the expression's inputs.
	Children []*Operand
}

// MatchOp returns an operand for op with the given children.
func MatchOp(op string, children ...*Operand) *Operand {
	return &Operand{Op: op, Children: children}
}

// MatchAny returns an operand that matches any expression.
func MatchAny() *Operand {
	return &Operand{}
}

// Matches returns whether the operand accepts rel, ignoring its children.
func (o *Operand) Matches(rel RelNode) bool {
	if o.Op != "" && o.Op != rel.Op() {
		return false
	}
	if o.Trait != nil && !rel.TraitSet().Contains(o.Trait) {
		return false
	}
	return o.Predicate == nil || o.Predicate(rel)
}

// MatchOperand enumerates the bindings of the pattern rooted at o against
// rel. expand returns the candidate expressions for an input, which is more
// than one when the input stands for an equivalence class. Each binding is
// passed to emit in pre-order, with rel first; emit owns the slice.
func MatchOperand(
	o *Operand, rel RelNode, expand func(input RelNode) []RelNode, emit func(rels []RelNode),
) {
	bindOperand(o, rel, expand, nil, emit)
}

func bindOperand(
	o *Operand,
	rel RelNode,
	expand func(input RelNode) []RelNode,
	bound []RelNode,
	emit func(rels []RelNode),
) {
	if !o.Matches(rel) {
		return
	}
	bound = append(bound[:len(bound):len(bound)], rel)
	bindChildren(o.Children, 0, rel.Inputs(), expand, bound, emit)
}

func bindChildren(
	children []*Operand,
	i int,
	inputs []RelNode,
	expand func(input RelNode) []RelNode,
	bound []RelNode,
	emit func(rels []RelNode),
) {
	if i == len(children) {
		emit(append([]RelNode(nil), bound...))
		return
	}
	if i >= len(inputs) {
		return
	}
	for _, cand := range expand(inputs[i]) {
		bindOperand(children[i], cand, expand, bound, func(rels []RelNode) {
			bindChildren(children, i+1, inputs, expand, rels, emit)
		})
	}
}

// RuleCall is one binding of a rule's pattern, passed to Rule.OnMatch.
type RuleCall struct {
	planner     Planner
	rule        Rule
	rels        []RelNode
	onTransform func(rel, equiv RelNode) RelNode
	results     []RelNode
}

// NewRuleCall creates a call of rule with the given binding. onTransform
// registers a result as equivalent to the matched root and returns its
// representative.
func NewRuleCall(
	p Planner, rule Rule, rels []RelNode, onTransform func(rel, equiv RelNode) RelNode,
) *RuleCall {
	return &RuleCall{planner: p, rule: rule, rels: rels, onTransform: onTransform}
}

// Rule returns the rule being fired.
func (c *RuleCall) Rule() Rule { return c.rule }

// Planner returns the planner firing the rule.
func (c *RuleCall) Planner() Planner { return c.planner }

// Rel returns the expression bound to the i-th operand, in pre-order.
func (c *RuleCall) Rel(i int) RelNode { return c.rels[i] }

// Rels returns the binding.
func (c *RuleCall) Rels() []RelNode { return c.rels }

// TransformTo registers rel as equivalent to the matched root.
func (c *RuleCall) TransformTo(rel RelNode) {
	if c.onTransform != nil {
		rel = c.onTransform(rel, c.rels[0])
	}
	c.results = append(c.results, rel)
}

// Results returns the expressions passed to TransformTo.
func (c *RuleCall) Results() []RelNode { return c.results }

// ConverterRule converts expressions of one trait into another trait of the
// same family. Converter rules of the convention family form the edges of
// the convention conversion graph.
type ConverterRule interface {
	Rule

	// InTrait returns the trait the rule consumes.
	InTrait() Trait

	// OutTrait returns the trait the rule produces.
	OutTrait() Trait

	// IsGuaranteed returns whether Convert succeeds for every input.
	IsGuaranteed() bool

	// Convert returns rel converted to OutTrait, or false.
	Convert(rel RelNode) (RelNode, bool)
}

// NewConverterRule builds a converter rule for expressions with operator op
// (any operator if empty) that hold the in trait.
func NewConverterRule(
	name, op string, in, out Trait, guaranteed bool, convert func(rel RelNode) (RelNode, bool),
) ConverterRule {
	return &funcConverterRule{
		name:       name,
		operand:    &Operand{Op: op, Trait: in},
		in:         in,
		out:        out,
		guaranteed: guaranteed,
		convert:    convert,
	}
}

type funcConverterRule struct {
	name       string
	operand    *Operand
	in, out    Trait
	guaranteed bool
	convert    func(rel RelNode) (RelNode, bool)
}

func (r *funcConverterRule) Name() string       { return r.name }
func (r *funcConverterRule) Operand() *Operand  { return r.operand }
func (r *funcConverterRule) InTrait() Trait     { return r.in }
func (r *funcConverterRule) OutTrait() Trait    { return r.out }
func (r *funcConverterRule) IsGuaranteed() bool { return r.guaranteed }
func (r *funcConverterRule) String() string     { return r.name }

func (r *funcConverterRule) Convert(rel RelNode) (RelNode, bool) {
	if !rel.TraitSet().Contains(r.in) {
		return nil, false
	}
	return r.convert(rel)
}

func (r *funcConverterRule) OnMatch(call *RuleCall) {
	if converted, ok := r.Convert(call.Rel(0)); ok {
		call.TransformTo(converted)
	}
}
