// Copyright 2013 The Cockroach Authors.
//
// Use of this software is governed by the CockroachDB Software License
// included in the /LICENSE file.

package leaktest

import (
	"testing"
	"time"
)

func TestNoLeak(t *testing.T) {
	check := AfterTest(t)
	done := make(chan struct{})
	go func() {
		<-done
	}()
	close(done)
	time.Sleep(10 * time.Millisecond)
	check()
}
