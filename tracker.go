// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package halo

// interfaceTracker is the progress cursor over one peer's index list in
// one direction.
//
// fixedSize > 0 selects the fixed-size discipline. With fixedSize == 0,
// sizes holds the element count of every entry, aligned with indices,
// and zero-size entries are skipped when the cursor moves.
type interfaceTracker struct {
	peer      int
	indices   []int
	pos       int
	fixedSize int
	sizes     []int
}

func newInterfaceTracker(peer int, indices []int, fixedSize int, allocateSizes bool) *interfaceTracker {
	t := &interfaceTracker{peer: peer, indices: indices, fixedSize: fixedSize}
	if allocateSizes {
		t.sizes = make([]int, len(indices))
	}
	return t
}

// moveToNextIndex advances to the next entry that has data.
func (t *interfaceTracker) moveToNextIndex() {
	t.pos++
	if t.pos > len(t.indices) {
		panic("halo: tracker advanced past end of interface")
	}
	t.skipZeroIndices()
}

// increment advances by k entries without skipping.
func (t *interfaceTracker) increment(k int) {
	t.pos += k
	if t.pos > len(t.indices) {
		panic("halo: tracker advanced past end of interface")
	}
}

func (t *interfaceTracker) skipZeroIndices() {
	if t.sizes == nil {
		return
	}
	for t.pos != len(t.indices) && t.sizes[t.pos] == 0 {
		t.pos++
	}
}

func (t *interfaceTracker) finished() bool {
	return t.pos == len(t.indices)
}

// index returns the current local index.
func (t *interfaceTracker) index() int {
	if t.finished() {
		panic("halo: index of finished tracker")
	}
	return t.indices[t.pos]
}

// size returns the element count of the current entry.
func (t *interfaceTracker) size() int {
	if t.sizes == nil {
		panic("halo: tracker has no per-entry sizes")
	}
	if t.finished() {
		panic("halo: size of finished tracker")
	}
	return t.sizes[t.pos]
}

func (t *interfaceTracker) empty() bool {
	return len(t.indices) == 0
}

func (t *interfaceTracker) indicesLeft() int {
	return len(t.indices) - t.pos
}

func (t *interfaceTracker) offset() int {
	return t.pos
}
