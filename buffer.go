// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package halo

import "fmt"

// MessageBuffer is a fixed-capacity scratch area for one message fragment.
// Handles append to it in Gather and consume from it in Scatter.
//
// The buffer has a logical size and a single read/write position.
// After Reset the logical size equals the capacity, so a sender can
// fill it; after a receive the logical size is the received length.
type MessageBuffer[T any] struct {
	data []T
	size int
	pos  int
}

// NewMessageBuffer returns an empty buffer holding at most capacity elements.
func NewMessageBuffer[T any](capacity int) *MessageBuffer[T] {
	if capacity <= 0 {
		panic(fmt.Sprintf("halo: message buffer capacity %d must be positive", capacity))
	}
	return &MessageBuffer[T]{data: make([]T, capacity), size: capacity}
}

// Write appends v. Writing past the logical end is a programming error.
func (b *MessageBuffer[T]) Write(v T) {
	if b.pos >= b.size {
		panic("halo: message buffer overflow")
	}
	b.data[b.pos] = v
	b.pos++
}

// Read consumes the next element.
func (b *MessageBuffer[T]) Read() T {
	if b.pos >= b.size {
		panic("halo: read past end of message buffer")
	}
	v := b.data[b.pos]
	b.pos++
	return v
}

// Reset rewinds the buffer to empty.
func (b *MessageBuffer[T]) Reset() {
	b.pos = 0
	b.size = len(b.data)
}

// Finished reports whether the position reached the logical end.
func (b *MessageBuffer[T]) Finished() bool {
	return b.pos == b.size
}

// HasSpaceForItems reports whether n more elements can be read or written.
func (b *MessageBuffer[T]) HasSpaceForItems(n int) bool {
	return b.pos+n <= b.size
}

// Cap returns the fixed capacity.
func (b *MessageBuffer[T]) Cap() int {
	return len(b.data)
}

// Len returns the logical size.
func (b *MessageBuffer[T]) Len() int {
	return b.size
}

// Position returns the read/write cursor.
func (b *MessageBuffer[T]) Position() int {
	return b.pos
}

// Data returns the written prefix. The slice aliases the buffer and is
// only valid until the next Reset or Write.
func (b *MessageBuffer[T]) Data() []T {
	return b.data[:b.pos]
}

// load replaces the contents with a received fragment and positions the
// buffer for reading.
func (b *MessageBuffer[T]) load(msg []T) {
	if len(msg) > len(b.data) {
		panic(fmt.Sprintf("halo: received %d elements into buffer of capacity %d", len(msg), len(b.data)))
	}
	copy(b.data, msg)
	b.size = len(msg)
	b.pos = 0
}
