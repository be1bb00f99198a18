// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package halo

// DataHandle describes the payload attached to local indices and moves it
// in and out of message buffers. The communicator never owns a handle; it
// only calls these methods, and Gather/Scatter may mutate caller state.
//
// FixedSize reports whether every index carries the same number of
// elements. Size is the element count for a local index; for fixed-size
// handles it is only asked for the first send index of each peer.
// Gather must write exactly Size(index) elements. Scatter must read
// exactly n elements.
//
// Gathering into and scattering from the same index may happen in any
// order within one exchange, also when a rank talks to itself.
type DataHandle[T any] interface {
	FixedSize() bool
	Size(index int) int
	Gather(buf *MessageBuffer[T], index int)
	Scatter(buf *MessageBuffer[T], index int, n int)
}
