// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package halo_test

import (
	"testing"

	"golang.org/x/sync/errgroup"

	"code.hybscloud.com/halo"
)

// runRanks runs fn once per rank of a fresh fabric, each rank on its own
// goroutine, and fails the test on the first error.
func runRanks(tb testing.TB, n int, fn func(rank int, ep *halo.Endpoint) error) *halo.Fabric {
	tb.Helper()
	f := halo.NewFabric(n)
	var g errgroup.Group
	for r := range n {
		g.Go(func() error {
			return fn(r, f.Endpoint(r))
		})
	}
	if err := g.Wait(); err != nil {
		tb.Fatal(err)
	}
	return f
}

// seq returns [from, from+step, ...] with n elements.
func seq(from, step, n int) []int {
	s := make([]int, n)
	for i := range s {
		s[i] = from + i*step
	}
	return s
}
