// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package halo

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestTrackerSkipsZeroEntries(t *testing.T) {
	tr := newInterfaceTracker(1, []int{4, 5, 6, 7}, 0, true)
	copy(tr.sizes, []int{0, 2, 0, 0})

	tr.skipZeroIndices()
	if tr.index() != 5 || tr.size() != 2 {
		t.Fatalf("after skip: index %d size %d, want 5 and 2", tr.index(), tr.size())
	}
	tr.moveToNextIndex()
	if !tr.finished() {
		t.Fatalf("tracker at offset %d not finished", tr.offset())
	}
	if tr.indicesLeft() != 0 {
		t.Fatalf("indicesLeft got %d, want 0", tr.indicesLeft())
	}
}

func TestTrackerIncrementDoesNotSkip(t *testing.T) {
	tr := newInterfaceTracker(0, []int{1, 2, 3}, 1, true)
	tr.increment(1)
	if tr.offset() != 1 || tr.indicesLeft() != 2 {
		t.Fatalf("offset %d left %d, want 1 and 2", tr.offset(), tr.indicesLeft())
	}
	defer func() {
		if recover() == nil {
			t.Fatal("increment past end did not panic")
		}
	}()
	tr.increment(3)
}

func TestTrackerFinishedAccessPanics(t *testing.T) {
	tr := newInterfaceTracker(0, nil, 1, false)
	if !tr.empty() || !tr.finished() {
		t.Fatal("empty tracker not finished")
	}
	defer func() {
		if recover() == nil {
			t.Fatal("index of finished tracker did not panic")
		}
	}()
	_ = tr.index()
}

func TestPackFixedFragments(t *testing.T) {
	h := &SliceHandle[int]{Data: []int{0, 0, 10, 11, 20, 21, 30, 31}, Width: 2}
	tr := newInterfaceTracker(1, []int{1, 2, 3}, 2, false)
	buf := NewMessageBuffer[int](5)

	if n := packEntries(h, tr, buf); n != 4 {
		t.Fatalf("first fragment packed %d elements, want 4", n)
	}
	if diff := cmp.Diff([]int{10, 11, 20, 21}, buf.Data()); diff != "" {
		t.Fatalf("first fragment (-want +got):\n%s", diff)
	}
	buf.Reset()
	if n := packEntries(h, tr, buf); n != 2 {
		t.Fatalf("second fragment packed %d elements, want 2", n)
	}
	if !tr.finished() {
		t.Fatal("tracker not finished after all entries were packed")
	}
}

func TestPackFixedEntryLargerThanBufferPanics(t *testing.T) {
	h := &SliceHandle[int]{Data: make([]int, 8), Width: 4}
	tr := newInterfaceTracker(1, []int{0}, 4, false)
	defer func() {
		if recover() == nil {
			t.Fatal("oversized fixed entry did not panic")
		}
	}()
	packEntries(h, tr, NewMessageBuffer[int](3))
}

func TestPackUnpackVariableSkipsZeroEntries(t *testing.T) {
	src := &BlockHandle[int]{Blocks: [][]int{{}, {1, 2}, {}, {3, 4, 5}, {6}}}
	send := newInterfaceTracker(1, []int{0, 1, 2, 3, 4}, 0, true)
	for i, index := range send.indices {
		send.sizes[i] = src.Size(index)
	}
	dst := &BlockHandle[int]{Blocks: make([][]int, 5)}
	recv := newInterfaceTracker(0, []int{4, 3, 2, 1, 0}, 0, true)
	copy(recv.sizes, send.sizes)

	buf := NewMessageBuffer[int](4)
	var fragments [][]int
	for !send.finished() {
		buf.Reset()
		if n := packEntries(src, send, buf); n == 0 {
			t.Fatal("no progress packing a non-finished tracker")
		}
		fragments = append(fragments, append([]int(nil), buf.Data()...))
		send.skipZeroIndices()
	}
	if diff := cmp.Diff([][]int{{1, 2}, {3, 4, 5, 6}}, fragments); diff != "" {
		t.Fatalf("fragments (-want +got):\n%s", diff)
	}

	in := NewMessageBuffer[int](4)
	for _, frag := range fragments {
		recv.skipZeroIndices()
		in.load(frag)
		unpackEntries(dst, recv, in, len(frag))
	}
	if !recv.finished() {
		t.Fatal("receive tracker not finished")
	}
	want := [][]int{{6}, {3, 4, 5}, nil, {1, 2}, nil}
	if diff := cmp.Diff(want, dst.Blocks); diff != "" {
		t.Fatalf("scattered blocks (-want +got):\n%s", diff)
	}
}

func TestPackVariableEntryLargerThanBufferPanics(t *testing.T) {
	h := &BlockHandle[int]{Blocks: [][]int{{1, 2, 3}}}
	tr := newInterfaceTracker(1, []int{0}, 0, true)
	tr.sizes[0] = 3
	defer func() {
		if recover() == nil {
			t.Fatal("oversized variable entry did not panic")
		}
	}()
	packEntries(h, tr, NewMessageBuffer[int](2))
}

func TestUnpackFragmentEndingInsideEntryPanics(t *testing.T) {
	h := &BlockHandle[int]{Blocks: make([][]int, 1)}
	tr := newInterfaceTracker(0, []int{0}, 0, true)
	tr.sizes[0] = 3
	buf := NewMessageBuffer[int](4)
	buf.load([]int{1, 2})
	defer func() {
		if recover() == nil {
			t.Fatal("truncated fragment did not panic")
		}
	}()
	unpackEntries(h, tr, buf, 2)
}

func TestGatherCountMismatchPanics(t *testing.T) {
	h := &lyingHandle{}
	tr := newInterfaceTracker(1, []int{0}, 0, true)
	tr.sizes[0] = 2
	defer func() {
		if recover() == nil {
			t.Fatal("gather writing fewer elements than declared did not panic")
		}
	}()
	packEntries[int](h, tr, NewMessageBuffer[int](4))
}

// lyingHandle declares two elements per index but gathers one.
type lyingHandle struct{}

func (lyingHandle) FixedSize() bool { return false }

func (lyingHandle) Size(int) int { return 2 }

func (lyingHandle) Gather(buf *MessageBuffer[int], _ int) { buf.Write(1) }

func (lyingHandle) Scatter(buf *MessageBuffer[int], _ int, n int) {
	for range n {
		buf.Read()
	}
}

func TestUnpackSizesBulk(t *testing.T) {
	tr := newInterfaceTracker(1, []int{0, 1, 2, 3}, 1, false)
	dst := make([]int, 4)
	buf := NewMessageBuffer[int](4)

	buf.load([]int{0, 3})
	unpackSizes(tr, dst, buf)
	buf.load([]int{5, 0})
	unpackSizes(tr, dst, buf)

	if diff := cmp.Diff([]int{0, 3, 5, 0}, dst); diff != "" {
		t.Fatalf("sizes (-want +got):\n%s", diff)
	}
	if !tr.finished() {
		t.Fatal("size tracker not finished")
	}
}

func TestSetupTrackersVariableRecordsSendSizes(t *testing.T) {
	h := &BlockHandle[int]{Blocks: [][]int{{}, {1, 2, 3}}}
	m := InterfaceMap{}
	m.Add(1, 0, 0)
	m.Add(1, 1, 1)
	send, recv := setupTrackers[int](h, m, m.peers(), DirForward)
	if diff := cmp.Diff([]int{0, 3}, send[0].sizes); diff != "" {
		t.Fatalf("send sizes (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]int{0, 0}, recv[0].sizes); diff != "" {
		t.Fatalf("receive sizes before negotiation (-want +got):\n%s", diff)
	}
	if send[0].fixedSize != 0 || recv[0].fixedSize != 0 {
		t.Fatal("variable trackers carry a fixed entry size")
	}
}

func TestInterfaceMapPeersSorted(t *testing.T) {
	m := InterfaceMap{5: {}, 1: {}, 3: {}}
	if diff := cmp.Diff([]int{1, 3, 5}, m.peers()); diff != "" {
		t.Fatalf("peers (-want +got):\n%s", diff)
	}
}

func TestDirectionSwapsLists(t *testing.T) {
	p := InterfacePair{Send: []int{1}, Recv: []int{2}}
	if DirForward.sendList(p)[0] != 1 || DirForward.recvList(p)[0] != 2 {
		t.Fatal("forward does not send Send and receive Recv")
	}
	if DirBackward.sendList(p)[0] != 2 || DirBackward.recvList(p)[0] != 1 {
		t.Fatal("backward does not swap the lists")
	}
}
