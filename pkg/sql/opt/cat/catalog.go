// Copyright 2018 The Cockroach Authors.
//
// Use of this software is governed by the CockroachDB Software License
// included in the /LICENSE file.

package cat

import "context"

// Catalog is an interface to a database catalog, exposing only the
// information needed by the query optimizer.
type Catalog interface {
	// ResolveTable locates a table or star table by name. It returns an
	// error with code UndefinedTable if there is no such table.
	ResolveTable(ctx context.Context, name string) (Table, error)

	// Tables returns every table in the catalog, in creation order.
	Tables() []Table
}
