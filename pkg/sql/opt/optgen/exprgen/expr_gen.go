// Copyright 2024 The Cockroach Authors.
//
// Use of this software is governed by the CockroachDB Software License
// included in the /LICENSE file.

// Package exprgen builds relational expressions from S-expressions, for
// tests and for the command line. For example:
//
//	(Project
//	  (Join inner (Filter (Scan a) (= $0 10)) (Scan b) (= $1 $3))
//	  [$0 (+ $4 1)]
//	)
//
// Relational operators are capitalized and take their inputs first:
//
//	(Scan <table>)
//	(Filter <input> <condition>)
//	(Project <input> [<expr> ...])
//	(Join [inner|left|right|full] <left> <right> [<condition>])
//	(Aggregate <input> [<group col> ...] [(<func> [<col>]) ...])
//	(Values [<type> ...] [[<literal> ...] ...])
//
// Scalar expressions are column references such as $0, literals (10, 1.5,
// 'str', true, false, null) and operator calls such as (= $0 10) or
// (cast $1 float).
package exprgen

import (
	"context"
	"strconv"

	"github.com/cockroachdb/polyopt/pkg/sql/opt"
	"github.com/cockroachdb/polyopt/pkg/sql/opt/cat"
	"github.com/cockroachdb/polyopt/pkg/sql/opt/rel"
	"github.com/cockroachdb/polyopt/pkg/sql/opt/rex"
	"github.com/cockroachdb/polyopt/pkg/sql/pgwire/pgcode"
	"github.com/cockroachdb/polyopt/pkg/sql/pgwire/pgerror"
	"github.com/cockroachdb/polyopt/pkg/sql/types"
)

// Build parses input and builds the expression it describes in cluster.
// Table names are resolved in catalog.
func Build(
	ctx context.Context, cluster *opt.Cluster, catalog cat.Catalog, input string,
) (_ opt.RelNode, err error) {
	eg := exprGen{ctx: ctx, cluster: cluster, catalog: catalog, s: newScanner(input)}
	defer func() {
		if r := recover(); r != nil {
			if be, ok := r.(buildError); ok {
				err = be.error
				return
			}
			err = opt.CatchOptimizerError(r)
		}
	}()
	eg.s.next()
	res := eg.parseRel()
	if eg.s.tok != eof {
		eg.errorf("unexpected %q after expression", eg.s.lit)
	}
	return res, nil
}

type exprGen struct {
	ctx     context.Context
	cluster *opt.Cluster
	catalog cat.Catalog
	s       *scanner
}

// buildError wraps errors raised while parsing, to tell them apart from
// panics in the node constructors.
type buildError struct {
	error
}

func (eg *exprGen) errorf(format string, args ...interface{}) {
	panic(buildError{pgerror.Newf(pgcode.Syntax, format, args...)})
}

func (eg *exprGen) expect(tok token) string {
	if eg.s.tok != tok {
		eg.errorf("expected %s, found %q", tok, eg.s.lit)
	}
	lit := eg.s.lit
	eg.s.next()
	return lit
}

func (eg *exprGen) parseRel() opt.RelNode {
	eg.expect(lparen)
	op := eg.expect(ident)
	var res opt.RelNode
	switch op {
	case rel.ScanOp:
		name := eg.expect(ident)
		tab, err := eg.catalog.ResolveTable(eg.ctx, name)
		if err != nil {
			panic(buildError{err})
		}
		res = rel.NewScan(eg.cluster, nil, tab)

	case rel.FilterOp:
		input := eg.parseRel()
		res = rel.NewFilter(eg.cluster, nil, input, eg.parseScalar(input.RowType()))

	case rel.ProjectOp:
		input := eg.parseRel()
		var exprs []opt.ScalarExpr
		eg.expect(lbracket)
		for eg.s.tok != rbracket {
			exprs = append(exprs, eg.parseScalar(input.RowType()))
		}
		eg.expect(rbracket)
		res = rel.NewProject(eg.cluster, nil, input, exprs, nil)

	case rel.JoinOp:
		typ := rel.InnerJoin
		if eg.s.tok == ident {
			var ok bool
			if typ, ok = rel.ParseJoinType(eg.s.lit); !ok {
				eg.errorf("unknown join type %q", eg.s.lit)
			}
			eg.s.next()
		}
		left := eg.parseRel()
		right := eg.parseRel()
		var cond opt.ScalarExpr
		if eg.s.tok != rparen {
			cond = eg.parseScalar(left.RowType().Concat(right.RowType()))
		}
		res = rel.NewJoin(eg.cluster, nil, left, right, typ, cond)

	case rel.AggregateOp:
		input := eg.parseRel()
		var groupKey []int
		eg.expect(lbracket)
		for eg.s.tok != rbracket {
			groupKey = append(groupKey, eg.parseInt())
		}
		eg.expect(rbracket)
		var aggs []rel.AggCall
		eg.expect(lbracket)
		for eg.s.tok != rbracket {
			eg.expect(lparen)
			name := eg.expect(ident)
			fn, ok := rel.ParseAggFunc(name)
			if !ok {
				eg.errorf("unknown aggregate %q", name)
			}
			call := rel.AggCall{Func: fn}
			for eg.s.tok != rparen {
				call.Args = append(call.Args, eg.parseInt())
			}
			eg.expect(rparen)
			aggs = append(aggs, call)
		}
		eg.expect(rbracket)
		res = rel.NewAggregate(eg.cluster, nil, input, groupKey, aggs)

	case rel.ValuesOp:
		res = eg.parseValues()

	default:
		eg.errorf("unknown operator %q", op)
	}
	eg.expect(rparen)
	return res
}

func (eg *exprGen) parseValues() opt.RelNode {
	var fields []opt.Field
	eg.expect(lbracket)
	for eg.s.tok != rbracket {
		typ, err := types.Parse(eg.expect(ident))
		if err != nil {
			panic(buildError{err})
		}
		name := "column" + strconv.Itoa(len(fields)+1)
		fields = append(fields, opt.Field{Name: name, Type: typ, Nullable: true})
	}
	eg.expect(rbracket)
	var rows [][]*rex.Literal
	eg.expect(lbracket)
	for eg.s.tok != rbracket {
		var row []*rex.Literal
		eg.expect(lbracket)
		for eg.s.tok != rbracket {
			l, ok := eg.parseScalar(opt.RowType{}).(*rex.Literal)
			if !ok {
				eg.errorf("values rows may only contain literals")
			}
			row = append(row, l)
		}
		eg.expect(rbracket)
		rows = append(rows, row)
	}
	eg.expect(rbracket)
	return rel.NewValues(eg.cluster, nil, opt.MakeRowType(fields...), rows)
}

func (eg *exprGen) parseInt() int {
	lit := eg.expect(number)
	i, err := strconv.Atoi(lit)
	if err != nil {
		eg.errorf("expected column ordinal, found %q", lit)
	}
	return i
}

// parseScalar parses a scalar expression over rows of the given type.
func (eg *exprGen) parseScalar(input opt.RowType) opt.ScalarExpr {
	lit := eg.s.lit
	switch eg.s.tok {
	case colref:
		eg.s.next()
		i, err := strconv.Atoi(lit[1:])
		if err != nil || i >= input.Len() {
			eg.errorf("column reference %s out of range for %d columns", lit, input.Len())
		}
		return rex.NewInputRef(i, input.Fields[i].Type)

	case number:
		eg.s.next()
		if i, err := strconv.ParseInt(lit, 10, 64); err == nil {
			return rex.NewLiteral(i)
		}
		f, err := strconv.ParseFloat(lit, 64)
		if err != nil {
			eg.errorf("invalid number %q", lit)
		}
		return rex.NewLiteral(f)

	case str:
		eg.s.next()
		return rex.NewLiteral(lit)

	case ident:
		eg.s.next()
		switch lit {
		case "true":
			return rex.True
		case "false":
			return rex.False
		case "null":
			return rex.NewNull(types.Unknown)
		}
		eg.errorf("unexpected identifier %q in scalar expression", lit)

	case lparen:
		eg.s.next()
		name := eg.expect(ident)
		op, ok := rex.ParseOperator(name)
		if !ok {
			eg.errorf("unknown operator %q", name)
		}
		if op == rex.CastOp {
			arg := eg.parseScalar(input)
			typ, err := types.Parse(eg.expect(ident))
			if err != nil {
				panic(buildError{err})
			}
			eg.expect(rparen)
			return rex.NewCast(arg, typ)
		}
		var args []opt.ScalarExpr
		for eg.s.tok != rparen {
			args = append(args, eg.parseScalar(input))
		}
		eg.expect(rparen)
		if len(args) == 0 {
			eg.errorf("operator %s needs arguments", name)
		}
		return rex.NewCall(op, args...)
	}
	eg.errorf("unexpected %q in scalar expression", lit)
	return nil
}
