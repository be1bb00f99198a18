// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package halo

import (
	"errors"
	"fmt"
)

// Tag separates the message streams of the exchange phases so that
// messages of different phases never match each other.
type Tag uint8

const (
	// TagEntrySize carries the per-entry element count of a fixed-size exchange.
	TagEntrySize Tag = iota + 1
	// TagSizes carries per-index element counts of a variable-size exchange.
	TagSizes
	// TagPayload carries payload fragments.
	TagPayload

	// NumTags is one past the largest tag value.
	NumTags
)

func (t Tag) String() string {
	switch t {
	case TagEntrySize:
		return "entry-size"
	case TagSizes:
		return "sizes"
	case TagPayload:
		return "payload"
	}
	return fmt.Sprintf("tag(%d)", uint8(t))
}

// Request is an in-flight asynchronous send or receive.
// A nil Request in a request slice is an inactive slot.
type Request interface {
	Peer() int
	Tag() Tag
}

// Status reports one completed request: its slot in the slice passed to
// Testsome and, for receives, the received message.
type Status struct {
	Index   int
	Payload any
}

// Transport is the point-to-point substrate the communicator runs on.
//
// Isend and Irecv post operations and never block. Messages between a
// pair of ranks with the same tag are delivered in posting order.
// Isend takes ownership of msg. A transport may defer the work of a
// request until it is tested, so callers keep testing every request
// they posted.
//
// Testsome checks the non-nil requests in reqs without blocking, sets
// the slots of completed requests to nil and returns their statuses.
// Waitall blocks until every non-nil request completed.
type Transport interface {
	Rank() int
	Isend(peer int, tag Tag, msg any) (Request, error)
	Irecv(peer int, tag Tag) (Request, error)
	Testsome(reqs []Request) ([]Status, error)
	Waitall(reqs []Request) error
}

// Decoder is implemented by payloads that arrive encoded, as with
// transports that cross process boundaries.
type Decoder interface {
	Decode(v any) error
}

var (
	// ErrPayloadType reports a received message of unexpected type.
	ErrPayloadType = errors.New("halo: unexpected payload type")
	// ErrUnknownPeer reports a peer rank the transport cannot reach.
	ErrUnknownPeer = errors.New("halo: unknown peer")
	// ErrForeignRequest reports a request tested on a transport other
	// than the one that posted it.
	ErrForeignRequest = errors.New("halo: foreign request")
)

// payloadOf converts a received message into its element slice.
func payloadOf[T any](p any) ([]T, error) {
	switch v := p.(type) {
	case []T:
		return v, nil
	case Decoder:
		var out []T
		if err := v.Decode(&out); err != nil {
			return nil, fmt.Errorf("halo: decode payload: %w", err)
		}
		return out, nil
	}
	return nil, fmt.Errorf("%w: %T", ErrPayloadType, p)
}

func activeRequests(reqs []Request) int {
	n := 0
	for _, r := range reqs {
		if r != nil {
			n++
		}
	}
	return n
}
