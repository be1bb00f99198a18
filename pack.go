// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package halo

import "fmt"

// packEntries gathers entries from the tracker's position into buf until
// the interface is exhausted or the next entry does not fit. It returns
// the number of elements packed.
func packEntries[T any](h DataHandle[T], t *interfaceTracker, buf *MessageBuffer[T]) int {
	if t.fixedSize > 0 {
		n := min(buf.Cap()/t.fixedSize, t.indicesLeft())
		if n == 0 && !t.finished() {
			panic(fmt.Sprintf("halo: entry of %d elements exceeds buffer capacity %d", t.fixedSize, buf.Cap()))
		}
		for range n {
			gather(h, buf, t.index(), t.fixedSize)
			t.moveToNextIndex()
		}
		return n * t.fixedSize
	}

	packed := 0
	t.skipZeroIndices()
	for !t.finished() {
		size := t.size()
		if !buf.HasSpaceForItems(size) {
			if packed == 0 {
				panic(fmt.Sprintf("halo: entry %d of %d elements exceeds buffer capacity %d", t.index(), size, buf.Cap()))
			}
			break
		}
		gather(h, buf, t.index(), size)
		packed += size
		t.moveToNextIndex()
	}
	return packed
}

// unpackEntries scatters a received fragment of count elements to the
// entries at the tracker's position. It reports whether the tracker is
// finished afterwards.
func unpackEntries[T any](h DataHandle[T], t *interfaceTracker, buf *MessageBuffer[T], count int) bool {
	if t.fixedSize > 0 {
		n := min(buf.Cap()/t.fixedSize, t.indicesLeft())
		if count != n*t.fixedSize {
			panic(fmt.Sprintf("halo: fragment from rank %d has %d elements, want %d", t.peer, count, n*t.fixedSize))
		}
		for range n {
			scatter(h, buf, t.index(), t.fixedSize)
			t.moveToNextIndex()
		}
		return t.finished()
	}

	if count == 0 {
		panic(fmt.Sprintf("halo: empty fragment from rank %d", t.peer))
	}
	for unpacked := 0; unpacked < count; {
		if t.finished() {
			panic(fmt.Sprintf("halo: fragment from rank %d exceeds interface", t.peer))
		}
		size := t.size()
		if !buf.HasSpaceForItems(size) {
			panic(fmt.Sprintf("halo: fragment from rank %d ends inside entry %d", t.peer, t.index()))
		}
		scatter(h, buf, t.index(), size)
		unpacked += size
		t.moveToNextIndex()
	}
	return t.finished()
}

func gather[T any](h DataHandle[T], buf *MessageBuffer[T], index, want int) {
	before := buf.Position()
	h.Gather(buf, index)
	if got := buf.Position() - before; got != want {
		panic(fmt.Sprintf("halo: gather wrote %d elements for index %d, want %d", got, index, want))
	}
}

func scatter[T any](h DataHandle[T], buf *MessageBuffer[T], index, n int) {
	before := buf.Position()
	h.Scatter(buf, index, n)
	if got := buf.Position() - before; got != n {
		panic(fmt.Sprintf("halo: scatter read %d elements for index %d, want %d", got, index, n))
	}
}
