// Copyright 2024 The Cockroach Authors.
//
// Use of this software is governed by the CockroachDB Software License
// included in the /LICENSE file.

// Package rex defines the scalar expressions used in filter conditions, join
// conditions and projections: references to input columns, literals and
// calls of built-in operators.
package rex

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/cockroachdb/polyopt/pkg/sql/opt"
	"github.com/cockroachdb/polyopt/pkg/sql/opt/mapping"
	"github.com/cockroachdb/polyopt/pkg/sql/types"
	"github.com/cockroachdb/polyopt/pkg/util"
)

// InputRef references column Index of the input row.
type InputRef struct {
	Index int
	Typ   *types.T
}

var _ opt.ScalarExpr = (*InputRef)(nil)

// NewInputRef returns a reference to column i of the given type.
func NewInputRef(i int, typ *types.T) *InputRef {
	return &InputRef{Index: i, Typ: typ}
}

// Type is part of the opt.ScalarExpr interface.
func (r *InputRef) Type() *types.T { return r.Typ }

// String is part of the opt.ScalarExpr interface.
func (r *InputRef) String() string { return "$" + strconv.Itoa(r.Index) }

// Literal is a constant. Value holds an int64, float64, string or bool, or
// nil for NULL.
type Literal struct {
	Value interface{}
	Typ   *types.T
}

var _ opt.ScalarExpr = (*Literal)(nil)

// True and False are the boolean literals.
var (
	True  = &Literal{Value: true, Typ: types.Bool}
	False = &Literal{Value: false, Typ: types.Bool}
)

// NewLiteral returns a literal for v, typed by its Go type.
func NewLiteral(v interface{}) *Literal {
	switch t := v.(type) {
	case nil:
		return &Literal{Typ: types.Unknown}
	case bool:
		if t {
			return True
		}
		return False
	case int:
		return &Literal{Value: int64(t), Typ: types.Int}
	case int64:
		return &Literal{Value: t, Typ: types.Int}
	case float64:
		return &Literal{Value: t, Typ: types.Float}
	case string:
		return &Literal{Value: t, Typ: types.String}
	default:
		panic(errors.AssertionFailedf("unsupported literal %v of type %T", v, v))
	}
}

// NewNull returns a NULL of the given type.
func NewNull(typ *types.T) *Literal { return &Literal{Typ: typ} }

// Type is part of the opt.ScalarExpr interface.
func (l *Literal) Type() *types.T { return l.Typ }

// IsNull returns whether the literal is NULL.
func (l *Literal) IsNull() bool { return l.Value == nil }

// String is part of the opt.ScalarExpr interface.
func (l *Literal) String() string {
	switch v := l.Value.(type) {
	case nil:
		return "null"
	case string:
		return strconv.Quote(v)
	case float64:
		return strconv.FormatFloat(v, 'g', -1, 64)
	default:
		return fmt.Sprint(v)
	}
}

// Operator identifies the function computed by a Call.
type Operator int

const (
	// AndOp is the conjunction of any number of booleans.
	AndOp Operator = iota
	// OrOp is the disjunction of any number of booleans.
	OrOp
	// NotOp negates a boolean.
	NotOp
	EqOp
	NeOp
	LtOp
	LeOp
	GtOp
	GeOp
	PlusOp
	MinusOp
	MultOp
	// CastOp converts its argument to the type of the call.
	CastOp
	IsNullOp
	IsNotNullOp
)

var opNames = [...]string{
	AndOp:       "and",
	OrOp:        "or",
	NotOp:       "not",
	EqOp:        "=",
	NeOp:        "!=",
	LtOp:        "<",
	LeOp:        "<=",
	GtOp:        ">",
	GeOp:        ">=",
	PlusOp:      "+",
	MinusOp:     "-",
	MultOp:      "*",
	CastOp:      "cast",
	IsNullOp:    "is-null",
	IsNotNullOp: "is-not-null",
}

func (o Operator) String() string { return opNames[o] }

// IsComparison returns whether the operator compares two values.
func (o Operator) IsComparison() bool { return o >= EqOp && o <= GeOp }

// ParseOperator returns the operator with the given name.
func ParseOperator(name string) (Operator, bool) {
	for op, n := range opNames {
		if n == name {
			return Operator(op), true
		}
	}
	return 0, false
}

// Call applies an operator to arguments.
type Call struct {
	Op   Operator
	Args []opt.ScalarExpr
	Typ  *types.T
}

var _ opt.ScalarExpr = (*Call)(nil)

// NewCall returns a call of op, typing it from the operator and arguments.
// Casts are built with NewCast.
func NewCall(op Operator, args ...opt.ScalarExpr) *Call {
	var typ *types.T
	switch op {
	case PlusOp, MinusOp, MultOp:
		typ = args[0].Type()
	case CastOp:
		panic(errors.AssertionFailedf("casts are built with NewCast"))
	default:
		typ = types.Bool
	}
	return &Call{Op: op, Args: args, Typ: typ}
}

// NewCast returns a conversion of e to typ.
func NewCast(e opt.ScalarExpr, typ *types.T) *Call {
	return &Call{Op: CastOp, Args: []opt.ScalarExpr{e}, Typ: typ}
}

// Type is part of the opt.ScalarExpr interface.
func (c *Call) Type() *types.T { return c.Typ }

// String is part of the opt.ScalarExpr interface. Calls are formatted as
// S-expressions, such as "(= $0 10)".
func (c *Call) String() string {
	var b strings.Builder
	b.WriteByte('(')
	b.WriteString(c.Op.String())
	for _, a := range c.Args {
		b.WriteByte(' ')
		b.WriteString(a.String())
	}
	if c.Op == CastOp {
		b.WriteByte(' ')
		b.WriteString(c.Typ.String())
	}
	b.WriteByte(')')
	return b.String()
}

// Equal returns whether two expressions are structurally equal.
func Equal(a, b opt.ScalarExpr) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.String() == b.String()
}

// And returns the conjunction of the given conditions, flattening nested
// conjunctions and dropping TRUE. It returns nil if no condition remains.
func And(conds ...opt.ScalarExpr) opt.ScalarExpr {
	var flat []opt.ScalarExpr
	for _, c := range conds {
		flat = append(flat, Conjunctions(c)...)
	}
	switch len(flat) {
	case 0:
		return nil
	case 1:
		return flat[0]
	}
	return &Call{Op: AndOp, Args: flat, Typ: types.Bool}
}

// Conjunctions splits a condition into its conjuncts. A nil or TRUE
// condition has none.
func Conjunctions(e opt.ScalarExpr) []opt.ScalarExpr {
	if e == nil || IsAlwaysTrue(e) {
		return nil
	}
	if c, ok := e.(*Call); ok && c.Op == AndOp {
		var res []opt.ScalarExpr
		for _, a := range c.Args {
			res = append(res, Conjunctions(a)...)
		}
		return res
	}
	return []opt.ScalarExpr{e}
}

// IsAlwaysTrue returns whether e is the TRUE literal.
func IsAlwaysTrue(e opt.ScalarExpr) bool {
	l, ok := e.(*Literal)
	return ok && l.Value == true
}

// IsAlwaysFalse returns whether e is the FALSE or NULL boolean literal.
func IsAlwaysFalse(e opt.ScalarExpr) bool {
	l, ok := e.(*Literal)
	return ok && (l.Value == false || (l.Value == nil && l.Typ.Family() == types.BoolFamily))
}

// Replace rebuilds e bottom-up, replacing each node for which fn returns
// true. Unchanged subtrees are shared with e.
func Replace(e opt.ScalarExpr, fn func(e opt.ScalarExpr) (opt.ScalarExpr, bool)) opt.ScalarExpr {
	if e == nil {
		return nil
	}
	if c, ok := e.(*Call); ok {
		var args []opt.ScalarExpr
		for i, a := range c.Args {
			newArg := Replace(a, fn)
			if newArg != a && args == nil {
				args = append([]opt.ScalarExpr(nil), c.Args...)
			}
			if args != nil {
				args[i] = newArg
			}
		}
		if args != nil {
			e = &Call{Op: c.Op, Args: args, Typ: c.Typ}
		}
	}
	if res, ok := fn(e); ok {
		return res
	}
	return e
}

// Remap replaces each column reference $i by $f(i).
func Remap(e opt.ScalarExpr, f func(i int) int) opt.ScalarExpr {
	return Replace(e, func(e opt.ScalarExpr) (opt.ScalarExpr, bool) {
		if r, ok := e.(*InputRef); ok {
			if to := f(r.Index); to != r.Index {
				return NewInputRef(to, r.Typ), true
			}
		}
		return nil, false
	})
}

// Shift adds offset to every column reference.
func Shift(e opt.ScalarExpr, offset int) opt.ScalarExpr {
	if offset == 0 {
		return e
	}
	return Remap(e, func(i int) int { return i + offset })
}

// Permute replaces every column reference by its target under m. A
// reference to a column that m does not map is a programming error.
func Permute(e opt.ScalarExpr, m *mapping.Mapping) opt.ScalarExpr {
	return Remap(e, func(i int) int {
		t, ok := m.Target(i)
		if !ok {
			panic(errors.AssertionFailedf("column $%d of %s is not mapped by %s", i, e, m))
		}
		return t
	})
}

// InputRefs returns the columns referenced by e.
func InputRefs(e opt.ScalarExpr) util.FastIntSet {
	var cols util.FastIntSet
	Replace(e, func(e opt.ScalarExpr) (opt.ScalarExpr, bool) {
		if r, ok := e.(*InputRef); ok {
			cols.Add(r.Index)
		}
		return nil, false
	})
	return cols
}

// Coerce returns e converted to typ, wrapping it in a cast unless it
// already has that type.
func Coerce(e opt.ScalarExpr, typ *types.T) opt.ScalarExpr {
	if e.Type().Identical(typ) {
		return e
	}
	return NewCast(e, typ)
}
