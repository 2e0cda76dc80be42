// Copyright 2024 The Cockroach Authors.
//
// Use of this software is governed by the CockroachDB Software License
// included in the /LICENSE file.

package opt

import "testing"

func TestCostLess(t *testing.T) {
	testCases := []struct {
		left, right Cost
		expected    bool
	}{
		{Cost{C: 0.0}, Cost{C: 1.0}, true},
		{Cost{C: 0.0}, Cost{C: 1e-20}, true},
		{Cost{C: 0.0}, Cost{C: 0.0}, false},
		{Cost{C: 1.0}, Cost{C: 0.0}, false},
		{Cost{C: 1e-20}, Cost{C: 1.0000000000001e-20}, false},
		{Cost{C: 1e-20}, Cost{C: 1.000001e-20}, true},
		{Cost{C: 1}, Cost{C: 1.00000000000001}, false},
		{Cost{C: 1}, Cost{C: 1.00000001}, true},
		{Cost{C: 1.0}, Cost{C: 1.0, Flags: HugeCostPenalty}, true},
		{Cost{C: 1e9}, Cost{C: 1.0, Flags: HugeCostPenalty}, true},
		{MaxCost, Cost{C: 1.0}, false},
		{Cost{C: 0.0}, MaxCost, true},
		{MaxCost, MaxCost, false},
		{Cost{C: 1.0, Flags: HugeCostPenalty}, MaxCost, true},
		{DefaultCostFactory{}.Huge(), DefaultCostFactory{}.Infinite(), true},
	}
	for _, tc := range testCases {
		if tc.left.Less(tc.right) != tc.expected {
			t.Errorf("expected %v.Less(%v) to be %v", tc.left, tc.right, tc.expected)
		}
	}
}

func TestCostAdd(t *testing.T) {
	testCases := []struct {
		left, right, expected Cost
	}{
		{Cost{C: 1.0}, Cost{C: 2.0}, Cost{C: 3.0}},
		{Cost{C: 0.0}, Cost{C: 0.0}, Cost{C: 0.0}},
		{Cost{C: -1.0}, Cost{C: 1.0}, Cost{C: 0.0}},
		{Cost{C: 1.0}, Cost{C: 2.0, Flags: HugeCostPenalty}, Cost{C: 3.0, Flags: HugeCostPenalty}},
	}
	for _, tc := range testCases {
		tc.left.Add(tc.right)
		if tc.left != tc.expected {
			t.Errorf("expected %v.Add(%v) to be %v, got %v", tc.left, tc.right, tc.expected, tc.left)
		}
	}
	if sum := MaxCost.Plus(Cost{C: 1}); !sum.IsInfinite() {
		t.Errorf("expected %v to be infinite", sum)
	}
}

func TestCostString(t *testing.T) {
	for _, tc := range []struct {
		c        Cost
		expected string
	}{
		{Cost{C: 1.5}, "1.50"},
		{MaxCost, "inf (huge)"},
		{Cost{C: 2, Flags: HugeCostPenalty}, "2.00 (huge)"},
	} {
		if s := tc.c.String(); s != tc.expected {
			t.Errorf("expected %q, got %q", tc.expected, s)
		}
	}
}
