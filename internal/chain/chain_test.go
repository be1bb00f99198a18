// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package chain

import (
	"testing"

	"github.com/go-logr/logr"
	"github.com/google/go-cmp/cmp"

	"code.hybscloud.com/halo"
)

func TestLayoutCoversRange(t *testing.T) {
	parts := Layout(4, 10, true)
	// Three ranks share 10 entries, the fourth is left out.
	want := [][2]int{{0, 4}, {4, 7}, {7, 10}, {0, 0}}
	for r, p := range parts {
		if got := [2]int{p.Start, p.End}; got != want[r] {
			t.Errorf("rank %d range %v, want %v", r, got, want[r])
		}
	}
	if diff := cmp.Diff(halo.InterfacePair{Send: []int{3, 4}, Recv: []int{3, 4}}, parts[0].Interfaces[1]); diff != "" {
		t.Errorf("rank 0 interface to rank 1 (-want +got):\n%s", diff)
	}
	if len(parts[3].Interfaces) != 0 {
		t.Errorf("left-out rank has %d peers", len(parts[3].Interfaces))
	}
	if len(parts[1].Interfaces) != 2 {
		t.Errorf("middle rank has %d peers, want 2", len(parts[1].Interfaces))
	}
}

func TestLayoutSingleRank(t *testing.T) {
	parts := Layout(1, 100, true)
	pair := parts[0].Interfaces[0]
	if diff := cmp.Diff([]int{0, 2, 4, 6, 8, 10}, pair.Send); diff != "" {
		t.Fatalf("self send list (-want +got):\n%s", diff)
	}
}

func TestHandleVerifyDetectsMissingScatter(t *testing.T) {
	h := NewHandle(false)
	m := halo.InterfaceMap{1: {Send: []int{2}, Recv: []int{3}}}
	buf := halo.NewMessageBuffer[float64](3)
	h.Gather(buf, 2)
	if err := h.Verify(m, halo.DirForward); err == nil {
		t.Fatal("missing scatter not reported")
	}
	// Records are cleared after Verify.
	if len(h.gathered) != 0 {
		t.Fatal("records kept after Verify")
	}
}

func TestHandleDetectsWrongValue(t *testing.T) {
	h := NewHandle(true)
	buf := halo.NewMessageBuffer[float64](3)
	buf.Write(6)
	buf.Write(0)
	buf.Reset()
	h.Scatter(buf, 7, 2)
	m := halo.InterfaceMap{1: {Recv: []int{7}}}
	if err := h.Verify(m, halo.DirForward); err == nil {
		t.Fatal("wrong value not reported")
	}
}

func TestRun(t *testing.T) {
	skipRace(t)
	for _, variable := range []bool{false, true} {
		rep, err := Run(Options{
			Ranks:      4,
			Entries:    1000,
			BufferSize: 6,
			Variable:   variable,
			EmptyRank:  true,
			Rounds:     2,
		}, logr.Discard())
		if err != nil {
			t.Fatalf("variable=%v: %v", variable, err)
		}
		if rep.Exchanges != 4 {
			t.Errorf("exchanges got %d, want 4", rep.Exchanges)
		}
		// Two borders between three active ranks, two entries each way.
		if rep.Entries != 8 {
			t.Errorf("entries got %d, want 8", rep.Entries)
		}
	}
}

func TestRunRejectsSmallBuffer(t *testing.T) {
	if _, err := Run(Options{Ranks: 2, Entries: 10, BufferSize: 2, Rounds: 1}, logr.Discard()); err == nil {
		t.Fatal("buffer too small for an entry accepted")
	}
}
