// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package halo

import (
	"fmt"

	"github.com/go-logr/logr"
)

// Communicator exchanges data along an InterfaceMap over a Transport.
// Only the sending side needs to know how many elements an index has.
//
// A Communicator is driven by a single goroutine and holds no payload
// state between calls. The interface map is read, never modified.
type Communicator struct {
	transport     Transport
	interfaces    InterfaceMap
	maxBufferSize int
	logger        logr.Logger
}

// New returns a communicator for the rank of tr.
func New(tr Transport, interfaces InterfaceMap, opts ...Option) *Communicator {
	c := &Communicator{
		transport:     tr,
		interfaces:    interfaces,
		maxBufferSize: DefaultMaxBufferSize,
		logger:        logr.Discard(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.maxBufferSize <= 0 {
		panic(fmt.Sprintf("halo: max buffer size %d must be positive", c.maxBufferSize))
	}
	c.logger = c.logger.WithValues("rank", tr.Rank())
	return c
}

// MaxBufferSize returns the message buffer capacity in elements.
func (c *Communicator) MaxBufferSize() int {
	return c.maxBufferSize
}

// Interfaces returns the interface map.
func (c *Communicator) Interfaces() InterfaceMap {
	return c.interfaces
}

// Forward gathers from every peer's Send list and scatters what the
// peers send into the Recv lists. It returns once all data reachable
// through the interface map has been exchanged.
//
// A returned error means the transport failed and the exchange is
// incomplete. Contract violations by the handle panic.
func Forward[T any](c *Communicator, h DataHandle[T]) error {
	return Communicate(c, h, DirForward)
}

// Backward is Forward with the roles of the Send and Recv lists swapped.
func Backward[T any](c *Communicator, h DataHandle[T]) error {
	return Communicate(c, h, DirBackward)
}

// Communicate exchanges data in direction dir.
func Communicate[T any](c *Communicator, h DataHandle[T], dir Direction) error {
	if len(c.interfaces) == 0 {
		return nil
	}
	x := &exchange[T]{
		tr:         c.transport,
		handle:     h,
		dir:        dir,
		interfaces: c.interfaces,
		peers:      c.interfaces.peers(),
		bufferSize: c.maxBufferSize,
		log:        c.logger.WithValues("direction", dir),
	}
	fixed := h.FixedSize()
	x.log.V(1).Info("exchange started", "peers", len(x.peers), "fixedSize", fixed)
	var err error
	if fixed {
		err = x.communicateFixedSize()
	} else {
		err = x.communicateVariableSize()
	}
	if err != nil {
		x.log.Error(err, "exchange failed")
		return err
	}
	x.log.V(1).Info("exchange finished", "fragmentsSent", x.sent, "fragmentsReceived", x.received)
	return nil
}

// exchange is the state of one Forward or Backward call.
type exchange[T any] struct {
	tr         Transport
	handle     DataHandle[T]
	dir        Direction
	interfaces InterfaceMap
	peers      []int
	bufferSize int
	log        logr.Logger

	sent, received int
}

// setupTrackers builds one send and one receive tracker per peer.
// For fixed-size handles the entry size is taken from the first send
// index; for variable-size handles both sides get per-entry sizes, the
// send side from the handle, the receive side zeroed for negotiation.
func setupTrackers[T any](h DataHandle[T], interfaces InterfaceMap, peers []int, dir Direction) (send, recv []*interfaceTracker) {
	fixed := h.FixedSize()
	send = make([]*interfaceTracker, 0, len(peers))
	recv = make([]*interfaceTracker, 0, len(peers))
	for _, peer := range peers {
		pair := interfaces[peer]
		sendList, recvList := dir.sendList(pair), dir.recvList(pair)
		entrySize := 0
		if fixed {
			entrySize = 1
			if len(sendList) > 0 {
				entrySize = h.Size(sendList[0])
				if entrySize <= 0 {
					panic(fmt.Sprintf("halo: fixed-size handle reports %d elements for index %d", entrySize, sendList[0]))
				}
			}
		}
		st := newInterfaceTracker(peer, sendList, entrySize, !fixed)
		for i, index := range st.indices {
			if st.sizes != nil {
				st.sizes[i] = h.Size(index)
			}
		}
		send = append(send, st)
		recv = append(recv, newInterfaceTracker(peer, recvList, entrySize, !fixed))
	}
	return send, recv
}

// communicateFixedSize runs the fixed-size path. Every rank first tells
// its peers the entry size it sends; a receive is only posted once the
// peer's entry size arrived.
func (x *exchange[T]) communicateFixedSize() error {
	sendT, recvT := setupTrackers(x.handle, x.interfaces, x.peers, x.dir)
	send := newSide(x.tr, TagPayload, x.handle, sendT, x.bufferSize)
	recv := newSide(x.tr, TagPayload, x.handle, recvT, x.bufferSize)

	sizeSend := make([]Request, len(x.peers))
	sizeRecv := make([]Request, len(x.peers))
	for i, t := range recvT {
		req, err := x.tr.Irecv(t.peer, TagEntrySize)
		if err != nil {
			return fmt.Errorf("halo: post entry-size receive from rank %d: %w", t.peer, err)
		}
		sizeRecv[i] = req
	}
	for i, t := range sendT {
		req, err := x.tr.Isend(t.peer, TagEntrySize, []int{t.fixedSize})
		if err != nil {
			return fmt.Errorf("halo: post entry-size send to rank %d: %w", t.peer, err)
		}
		sizeSend[i] = req
	}
	for i := range sendT {
		if err := send.postSend(i); err != nil {
			return err
		}
	}

	onEntrySize := func(i int, payload any) error {
		msg, err := payloadOf[int](payload)
		if err != nil {
			return fmt.Errorf("halo: entry size from rank %d: %w", recvT[i].peer, err)
		}
		if len(msg) != 1 || (msg[0] <= 0 && !recvT[i].empty()) {
			panic(fmt.Sprintf("halo: invalid entry size %v from rank %d", msg, recvT[i].peer))
		}
		recvT[i].fixedSize = msg[0]
		return nil
	}

	sizesToRecv := len(x.peers)
	toSend := send.nonEmpty()
	toRecv := recv.nonEmpty()
	var p poller
	for sizesToRecv+toSend+toRecv > 0 {
		progressed := false
		if activeRequests(sizeSend) > 0 {
			done, err := x.tr.Testsome(sizeSend)
			if err != nil {
				return fmt.Errorf("halo: test entry-size sends: %w", err)
			}
			progressed = len(done) > 0
		}
		if sizesToRecv > 0 {
			n, ok, err := checkAndContinue(x.tr, recvT, sizeRecv, onEntrySize, recv.postRecv, false)
			if err != nil {
				return err
			}
			sizesToRecv -= n
			progressed = progressed || ok
		}
		if toSend > 0 {
			n, ok, err := checkAndContinue(x.tr, sendT, send.requests, nil, send.postSend, true)
			if err != nil {
				return err
			}
			toSend -= n
			progressed = progressed || ok
		}
		if activeRequests(recv.requests) > 0 {
			n, ok, err := checkAndContinue(x.tr, recvT, recv.requests, recv.unpack, recv.postRecv, true)
			if err != nil {
				return err
			}
			toRecv -= n
			progressed = progressed || ok
		}
		p.pause(progressed)
	}
	x.sent, x.received = send.fragments, recv.fragments

	if err := x.tr.Waitall(sizeSend); err != nil {
		return fmt.Errorf("halo: complete entry-size sends: %w", err)
	}
	return nil
}

// communicateVariableSize runs the variable-size path: sizes first, then
// the payload.
func (x *exchange[T]) communicateVariableSize() error {
	sendT, recvT := setupTrackers(x.handle, x.interfaces, x.peers, x.dir)
	send := newSide(x.tr, TagPayload, x.handle, sendT, x.bufferSize)
	recv := newSide(x.tr, TagPayload, x.handle, recvT, x.bufferSize)

	if err := x.negotiateSizes(recvT); err != nil {
		return err
	}
	for i := range sendT {
		if err := send.postSend(i); err != nil {
			return err
		}
	}
	for i := range recvT {
		if err := recv.postRecv(i); err != nil {
			return err
		}
	}

	toSend := activeRequests(send.requests)
	toRecv := activeRequests(recv.requests)
	var p poller
	for toSend+toRecv > 0 {
		progressed := false
		if toSend > 0 {
			n, ok, err := checkAndContinue(x.tr, sendT, send.requests, nil, send.postSend, true)
			if err != nil {
				return err
			}
			toSend -= n
			progressed = progressed || ok
		}
		if toRecv > 0 {
			n, ok, err := checkAndContinue(x.tr, recvT, recv.requests, recv.unpack, recv.postRecv, true)
			if err != nil {
				return err
			}
			toRecv -= n
			progressed = progressed || ok
		}
		p.pause(progressed)
	}
	x.sent, x.received = send.fragments, recv.fragments
	return nil
}
