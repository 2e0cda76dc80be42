// Copyright 2024 The Cockroach Authors.
//
// Use of this software is governed by the CockroachDB Software License
// included in the /LICENSE file.

package cli

import (
	"context"
	"io"
	"os"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/cockroachdb/polyopt/pkg/settings"
	"github.com/cockroachdb/polyopt/pkg/sql/opt"
	"github.com/cockroachdb/polyopt/pkg/sql/opt/cat"
	"github.com/cockroachdb/polyopt/pkg/sql/opt/materialize"
	"github.com/cockroachdb/polyopt/pkg/sql/opt/optgen/exprgen"
	"github.com/cockroachdb/polyopt/pkg/sql/opt/rel"
	"github.com/cockroachdb/polyopt/pkg/sql/opt/testutils/testcat"
	"github.com/cockroachdb/polyopt/pkg/util/log"
	"gopkg.in/yaml.v3"
)

// viewsDoc lists the materialized views of a schema file. It is decoded
// from the same document as the tables, next to the "tables" and "stars"
// sections:
//
//	materializations:
//	  - table: mv
//	    query: (Filter (Scan a) (= $0 10))
//	lattices:
//	  - name: sales_lattice
//	    star: s
//	    query: (Join inner (Scan a) (Scan b) (= $0 $3))
type viewsDoc struct {
	Materializations []materializationDoc `yaml:"materializations"`
	Lattices         []latticeDoc         `yaml:"lattices"`
}

type materializationDoc struct {
	Table string `yaml:"table"`
	Query string `yaml:"query"`
}

type latticeDoc struct {
	Name  string `yaml:"name"`
	Star  string `yaml:"star"`
	Query string `yaml:"query"`
}

// env is what every command loads before doing its work.
type env struct {
	catalog *testcat.Catalog
	sv      *settings.Values
	views   viewsDoc
}

// loadEnv reads the files named by the --schema and --settings flags.
func loadEnv(ctx context.Context) (*env, error) {
	e := &env{catalog: testcat.New(), sv: new(settings.Values)}
	if cliCtx.schemaPath != "" {
		data, err := os.ReadFile(cliCtx.schemaPath)
		if err != nil {
			return nil, errors.Wrap(err, "reading schema")
		}
		if err := e.catalog.LoadYAML(data); err != nil {
			return nil, errors.Wrapf(err, "loading %s", cliCtx.schemaPath)
		}
		if err := yaml.Unmarshal(data, &e.views); err != nil {
			return nil, errors.Wrapf(err, "loading %s", cliCtx.schemaPath)
		}
		log.VEventf(ctx, 1, "loaded %d tables from %s", len(e.catalog.Tables()), cliCtx.schemaPath)
	}
	if cliCtx.settingsPath != "" {
		data, err := os.ReadFile(cliCtx.settingsPath)
		if err != nil {
			return nil, errors.Wrap(err, "reading settings")
		}
		if err := e.sv.LoadTOML(data); err != nil {
			return nil, errors.Wrapf(err, "loading %s", cliCtx.settingsPath)
		}
	}
	return e, nil
}

// resolveStar returns the star table with the given name.
func (e *env) resolveStar(ctx context.Context, name string) (*cat.StarTable, error) {
	tab, err := e.catalog.ResolveTable(ctx, name)
	if err != nil {
		return nil, err
	}
	star, ok := tab.(*cat.StarTable)
	if !ok {
		return nil, errors.Newf("%s is not a star table", name)
	}
	return star, nil
}

// addViews builds the materializations and lattices of the schema in the
// cluster of p and registers them with p.
func (e *env) addViews(ctx context.Context, p opt.Planner, cluster *opt.Cluster) error {
	for _, d := range e.views.Materializations {
		tab, err := e.catalog.ResolveTable(ctx, d.Table)
		if err != nil {
			return errors.Wrapf(err, "materialization %s", d.Table)
		}
		query, err := exprgen.Build(ctx, cluster, e.catalog, d.Query)
		if err != nil {
			return errors.Wrapf(err, "materialization %s", d.Table)
		}
		m, err := materialize.NewMaterialization(
			rel.NewScan(cluster, nil, tab), query, nil, tab.QualifiedName(),
		)
		if err != nil {
			return err
		}
		p.AddMaterialization(m)
	}
	for _, d := range e.views.Lattices {
		star, err := e.resolveStar(ctx, d.Star)
		if err != nil {
			return errors.Wrapf(err, "lattice %s", d.Name)
		}
		root, err := exprgen.Build(ctx, cluster, e.catalog, d.Query)
		if err != nil {
			return errors.Wrapf(err, "lattice %s", d.Name)
		}
		m, err := materialize.NewMaterialization(
			rel.NewScan(cluster, nil, star), root, star, star.QualifiedName(),
		)
		if err != nil {
			return err
		}
		p.AddLattice(materialize.NewLattice(d.Name, star, root, m))
	}
	return nil
}

// readQueries returns the queries given as arguments, or the queries read
// from in when there are none. Queries read from in are separated by lines
// holding a single semicolon or by blank lines.
func readQueries(args []string, in io.Reader) ([]string, error) {
	if len(args) > 0 {
		return args, nil
	}
	data, err := io.ReadAll(in)
	if err != nil {
		return nil, errors.Wrap(err, "reading queries")
	}
	var queries []string
	var cur strings.Builder
	flush := func() {
		if q := strings.TrimSpace(cur.String()); q != "" {
			queries = append(queries, q)
		}
		cur.Reset()
	}
	for _, line := range strings.Split(string(data), "\n") {
		if t := strings.TrimSpace(line); t == "" || t == ";" {
			flush()
			continue
		}
		cur.WriteString(line)
		cur.WriteByte('\n')
	}
	flush()
	if len(queries) == 0 {
		return nil, newFlagError(errors.New("no queries given"))
	}
	return queries, nil
}
