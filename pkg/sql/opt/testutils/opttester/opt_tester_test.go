// Copyright 2024 The Cockroach Authors.
//
// Use of this software is governed by the CockroachDB Software License
// included in the /LICENSE file.

package opttester

import (
	"testing"

	"github.com/cockroachdb/datadriven"
	"github.com/cockroachdb/polyopt/pkg/sql/opt/testutils/testcat"
	"github.com/cockroachdb/polyopt/pkg/util/leaktest"
	"github.com/cockroachdb/polyopt/pkg/util/log"
)

// TestOptTester runs the files under testdata. A single file can be run
// like this:
//
//	go test ./pkg/sql/opt/testutils/opttester -run TestOptTester/star
func TestOptTester(t *testing.T) {
	defer leaktest.AfterTest(t)()
	defer log.Scope(t).Close(t)

	datadriven.Walk(t, "testdata", func(t *testing.T, path string) {
		ot := New(testcat.New())
		datadriven.RunTest(t, path, func(t *testing.T, d *datadriven.TestData) string {
			return ot.RunCommand(t, d)
		})
	})
}
