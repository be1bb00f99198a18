// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package halo

import (
	"fmt"

	"code.hybscloud.com/iox"
	"code.hybscloud.com/kont"
	"code.hybscloud.com/lfq"
)

// laneCapacity is the bounded capacity of every fabric lane, in messages.
// Small lanes keep a posted send pending until the receiver drains,
// which exercises the continuation path of the exchange.
const laneCapacity = 4

// lane holds one single-producer single-consumer queue per tag for one
// ordered rank pair. Index 0 is unused.
type lane struct {
	q [NumTags]lfq.SPSC[any]
}

// Fabric connects a fixed set of in-process ranks. Each rank drives its
// Endpoint from its own goroutine; a rank may also message itself.
//
// Transport is backed by bounded lock-free SPSC queues from lfq, one per
// ordered rank pair and tag, so the producer of a queue is always the
// sending rank and the consumer always the receiving rank.
type Fabric struct {
	serial    Serial
	size      int
	lanes     []lane
	endpoints []Endpoint
}

// NewFabric creates a fabric of size ranks.
func NewFabric(size int) *Fabric {
	if size <= 0 {
		panic(fmt.Sprintf("halo: fabric size %d must be positive", size))
	}
	f := &Fabric{
		serial:    nextSerial(),
		size:      size,
		lanes:     make([]lane, size*size),
		endpoints: make([]Endpoint, size),
	}
	for i := range f.lanes {
		for t := range f.lanes[i].q {
			f.lanes[i].q[t].Init(laneCapacity)
		}
	}
	for r := range f.endpoints {
		f.endpoints[r] = Endpoint{fabric: f, rank: r}
	}
	return f
}

// Serial returns the serial number assigned to this fabric.
func (f *Fabric) Serial() Serial {
	return f.serial
}

// Size returns the number of ranks.
func (f *Fabric) Size() int {
	return f.size
}

// Endpoint returns the transport of rank.
func (f *Fabric) Endpoint(rank int) *Endpoint {
	return &f.endpoints[rank]
}

func (f *Fabric) lane(src, dst int, tag Tag) *lfq.SPSC[any] {
	return &f.lanes[src*f.size+dst].q[tag]
}

// Endpoint is one rank's view of a Fabric. It implements Transport.
// An Endpoint must only be used from one goroutine.
type Endpoint struct {
	fabric *Fabric
	rank   int
}

// Rank returns the rank of this endpoint.
func (ep *Endpoint) Rank() int {
	return ep.rank
}

func (ep *Endpoint) checkPeer(peer int, tag Tag) error {
	if peer < 0 || peer >= ep.fabric.size {
		return fmt.Errorf("%w: rank %d of fabric size %d", ErrUnknownPeer, peer, ep.fabric.size)
	}
	if tag == 0 || tag >= NumTags {
		return fmt.Errorf("halo: invalid tag %v", tag)
	}
	return nil
}

// Isend posts msg to peer. The post completes once the lane accepted it.
func (ep *Endpoint) Isend(peer int, tag Tag, msg any) (Request, error) {
	if err := ep.checkPeer(peer, tag); err != nil {
		return nil, err
	}
	op := Post{lane: ep.fabric.lane(ep.rank, peer, tag), Msg: msg}
	return ep.stepRequest(peer, tag, true, kont.ExprPerform(op)), nil
}

// Irecv posts a receive of the next message from peer with tag.
func (ep *Endpoint) Irecv(peer int, tag Tag) (Request, error) {
	if err := ep.checkPeer(peer, tag); err != nil {
		return nil, err
	}
	op := Take{lane: ep.fabric.lane(peer, ep.rank, tag)}
	return ep.stepRequest(peer, tag, false, kont.ExprPerform(op)), nil
}

// Testsome advances every active request once and reports the ones that
// completed. It never blocks. Requests posted by another endpoint, of
// this fabric or another one, fail with ErrForeignRequest.
func (ep *Endpoint) Testsome(reqs []Request) ([]Status, error) {
	var done []Status
	for i, r := range reqs {
		if r == nil {
			continue
		}
		fr, ok := r.(*request)
		if !ok {
			return done, fmt.Errorf("%w: %T", ErrForeignRequest, r)
		}
		if fr.serial != ep.fabric.serial || fr.owner != ep.rank {
			return done, fmt.Errorf("%w: posted by rank %d of fabric %d, tested by rank %d of fabric %d",
				ErrForeignRequest, fr.owner, fr.serial, ep.rank, ep.fabric.serial)
		}
		v, ok, err := fr.advance()
		if err != nil {
			return done, fmt.Errorf("halo: %v with rank %d: %w", fr.tag, fr.peer, err)
		}
		if !ok {
			continue
		}
		reqs[i] = nil
		if fr.send {
			v = nil
		}
		done = append(done, Status{Index: i, Payload: v})
	}
	return done, nil
}

// Waitall blocks until every active request completed, backing off on
// iox.ErrWouldBlock with iox.Backoff.
func (ep *Endpoint) Waitall(reqs []Request) error {
	var bo iox.Backoff
	for activeRequests(reqs) > 0 {
		done, err := ep.Testsome(reqs)
		if err != nil {
			return err
		}
		if len(done) == 0 {
			bo.Wait()
		} else {
			bo.Reset()
		}
	}
	return nil
}

var _ Transport = (*Endpoint)(nil)
