// Copyright 2024 The Cockroach Authors.
//
// Use of this software is governed by the CockroachDB Software License
// included in the /LICENSE file.

package rex

import (
	"github.com/cockroachdb/polyopt/pkg/sql/opt"
	"github.com/cockroachdb/polyopt/pkg/sql/types"
)

// ConstantExecutor folds calls whose arguments are all literals, and
// simplifies conjunctions and disjunctions that contain boolean literals.
// Anything else is returned unchanged.
type ConstantExecutor struct{}

var _ opt.Executor = ConstantExecutor{}

// Reduce is part of the opt.Executor interface.
func (ConstantExecutor) Reduce(exprs []opt.ScalarExpr) []opt.ScalarExpr {
	res := make([]opt.ScalarExpr, len(exprs))
	for i, e := range exprs {
		res[i] = Replace(e, fold)
	}
	return res
}

func fold(e opt.ScalarExpr) (opt.ScalarExpr, bool) {
	c, ok := e.(*Call)
	if !ok {
		return nil, false
	}
	switch c.Op {
	case AndOp:
		return foldLogical(c, false)
	case OrOp:
		return foldLogical(c, true)
	}
	lits := make([]*Literal, len(c.Args))
	for i, a := range c.Args {
		l, ok := a.(*Literal)
		if !ok {
			return nil, false
		}
		lits[i] = l
	}
	switch c.Op {
	case NotOp:
		if b, ok := lits[0].Value.(bool); ok {
			return NewLiteral(!b), true
		}
		return NewNull(types.Bool), true
	case IsNullOp:
		return NewLiteral(lits[0].IsNull()), true
	case IsNotNullOp:
		return NewLiteral(!lits[0].IsNull()), true
	case CastOp:
		return foldCast(lits[0], c.Typ)
	}
	if lits[0].IsNull() || lits[1].IsNull() {
		return NewNull(c.Typ), true
	}
	if c.Op.IsComparison() {
		cmp, ok := compare(lits[0].Value, lits[1].Value)
		if !ok {
			return nil, false
		}
		var b bool
		switch c.Op {
		case EqOp:
			b = cmp == 0
		case NeOp:
			b = cmp != 0
		case LtOp:
			b = cmp < 0
		case LeOp:
			b = cmp <= 0
		case GtOp:
			b = cmp > 0
		case GeOp:
			b = cmp >= 0
		}
		return NewLiteral(b), true
	}
	return foldArith(c.Op, lits[0].Value, lits[1].Value)
}

// foldLogical drops the neutral literal of AND (TRUE) or OR (FALSE), and
// reduces the call to the absorbing literal if it appears.
func foldLogical(c *Call, isOr bool) (opt.ScalarExpr, bool) {
	var kept []opt.ScalarExpr
	for _, a := range c.Args {
		if l, ok := a.(*Literal); ok {
			if b, ok := l.Value.(bool); ok {
				if b == isOr {
					return NewLiteral(isOr), true
				}
				continue
			}
		}
		kept = append(kept, a)
	}
	if len(kept) == len(c.Args) {
		return nil, false
	}
	switch len(kept) {
	case 0:
		return NewLiteral(!isOr), true
	case 1:
		return kept[0], true
	}
	return &Call{Op: c.Op, Args: kept, Typ: types.Bool}, true
}

func toFloat(v interface{}) (float64, bool) {
	switch t := v.(type) {
	case int64:
		return float64(t), true
	case float64:
		return t, true
	}
	return 0, false
}

func compare(a, b interface{}) (int, bool) {
	switch x := a.(type) {
	case string:
		y, ok := b.(string)
		if !ok {
			return 0, false
		}
		switch {
		case x < y:
			return -1, true
		case x > y:
			return 1, true
		}
		return 0, true
	case bool:
		y, ok := b.(bool)
		if !ok {
			return 0, false
		}
		switch {
		case x == y:
			return 0, true
		case !x:
			return -1, true
		}
		return 1, true
	}
	x, ok1 := toFloat(a)
	y, ok2 := toFloat(b)
	if !ok1 || !ok2 {
		return 0, false
	}
	switch {
	case x < y:
		return -1, true
	case x > y:
		return 1, true
	}
	return 0, true
}

func foldArith(op Operator, a, b interface{}) (opt.ScalarExpr, bool) {
	if x, ok := a.(int64); ok {
		if y, ok := b.(int64); ok {
			switch op {
			case PlusOp:
				return NewLiteral(x + y), true
			case MinusOp:
				return NewLiteral(x - y), true
			case MultOp:
				return NewLiteral(x * y), true
			}
			return nil, false
		}
	}
	x, ok1 := toFloat(a)
	y, ok2 := toFloat(b)
	if !ok1 || !ok2 {
		return nil, false
	}
	switch op {
	case PlusOp:
		return NewLiteral(x + y), true
	case MinusOp:
		return NewLiteral(x - y), true
	case MultOp:
		return NewLiteral(x * y), true
	}
	return nil, false
}

func foldCast(l *Literal, typ *types.T) (opt.ScalarExpr, bool) {
	if l.IsNull() {
		return NewNull(typ), true
	}
	switch typ.Family() {
	case types.FloatFamily:
		if f, ok := toFloat(l.Value); ok {
			return NewLiteral(f), true
		}
	case types.IntFamily:
		switch v := l.Value.(type) {
		case int64:
			return l, true
		case float64:
			return NewLiteral(int64(v)), true
		}
	}
	if l.Typ.Identical(typ) {
		return l, true
	}
	return nil, false
}
