// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package halo

import (
	"code.hybscloud.com/kont"
	"code.hybscloud.com/lfq"
)

// fabricDispatcher is the structural interface for fabric operations.
// DispatchFabric is non-blocking: it returns iox.ErrWouldBlock at the
// I/O boundary when the bounded lane cannot make progress.
type fabricDispatcher interface {
	DispatchFabric() (kont.Resumed, error)
}

// sent is the resumed value of a completed post.
var sent kont.Resumed = struct{}{}

// Post is the effect operation for handing one message to a lane.
// Perform(Post{...}) completes once the message is queued.
type Post struct {
	kont.Phantom[any]
	lane *lfq.SPSC[any]
	Msg  any
}

// DispatchFabric enqueues the message.
// Non-blocking: returns iox.ErrWouldBlock if the lane is full.
func (p Post) DispatchFabric() (kont.Resumed, error) {
	slot := p.Msg
	if err := p.lane.Enqueue(&slot); err != nil {
		return nil, err
	}
	return sent, nil
}

// Take is the effect operation for taking the next message from a lane.
// Perform(Take{...}) resumes with the message.
type Take struct {
	kont.Phantom[any]
	lane *lfq.SPSC[any]
}

// DispatchFabric dequeues one message.
// Non-blocking: returns iox.ErrWouldBlock if the lane is empty.
func (t Take) DispatchFabric() (kont.Resumed, error) {
	v, err := t.lane.Dequeue()
	if err != nil {
		return nil, err
	}
	return v, nil
}
