// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package halo

// SliceHandle exchanges a flat vector in which every local index owns
// Width consecutive elements (Width 0 means 1). Fixed-size discipline.
type SliceHandle[T any] struct {
	Data  []T
	Width int
}

// NewSliceHandle returns a handle with one element per index.
func NewSliceHandle[T any](data []T) *SliceHandle[T] {
	return &SliceHandle[T]{Data: data, Width: 1}
}

func (h *SliceHandle[T]) width() int {
	if h.Width <= 0 {
		return 1
	}
	return h.Width
}

// FixedSize always reports true.
func (h *SliceHandle[T]) FixedSize() bool { return true }

// Size returns Width.
func (h *SliceHandle[T]) Size(int) int { return h.width() }

// Gather writes the elements owned by index.
func (h *SliceHandle[T]) Gather(buf *MessageBuffer[T], index int) {
	w := h.width()
	for _, v := range h.Data[index*w : (index+1)*w] {
		buf.Write(v)
	}
}

// Scatter overwrites the elements owned by index.
func (h *SliceHandle[T]) Scatter(buf *MessageBuffer[T], index int, n int) {
	w := h.width()
	if n != w {
		panic("halo: slice handle scatter count differs from width")
	}
	for k := range w {
		h.Data[index*w+k] = buf.Read()
	}
}

// BlockHandle exchanges one variable-length block per local index.
// Scatter replaces the receiving block. Variable-size discipline.
type BlockHandle[T any] struct {
	Blocks [][]T
}

// FixedSize always reports false.
func (h *BlockHandle[T]) FixedSize() bool { return false }

// Size returns the length of the block at index.
func (h *BlockHandle[T]) Size(index int) int { return len(h.Blocks[index]) }

// Gather writes the block at index.
func (h *BlockHandle[T]) Gather(buf *MessageBuffer[T], index int) {
	for _, v := range h.Blocks[index] {
		buf.Write(v)
	}
}

// Scatter reads n elements into a fresh block at index.
func (h *BlockHandle[T]) Scatter(buf *MessageBuffer[T], index int, n int) {
	block := make([]T, n)
	for k := range block {
		block[k] = buf.Read()
	}
	h.Blocks[index] = block
}
