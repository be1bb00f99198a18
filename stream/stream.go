// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package stream implements [halo.Transport] over stream connections, one
// [net.Conn] per peer rank.
//
// Every link runs a reader and a writer goroutine. Messages are CBOR
// frames carrying the tag and the encoded payload. Posting a send
// enqueues a frame into the link's bounded outbox; posting a receive
// takes the next frame of that tag from the link's inbox. Both report
// [code.hybscloud.com/iox.ErrWouldBlock] internally until the queue is
// ready, so Testsome never blocks. Messages a rank sends to itself never
// touch a connection.
package stream

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"maps"
	"net"
	"slices"
	"sync/atomic"

	"code.hybscloud.com/iox"
	"code.hybscloud.com/lfq"
	cbor "github.com/fxamacker/cbor/v2"
	"github.com/go-logr/logr"
	"golang.org/x/sync/errgroup"

	"code.hybscloud.com/halo"
)

// ErrClosed reports use of a closed transport or a link whose peer hung up.
var ErrClosed = errors.New("stream: transport closed")

const defaultQueueCapacity = 16

// frame is the unit on the wire.
type frame struct {
	Tag  uint8           `cbor:"1,keyasint"`
	Data cbor.RawMessage `cbor:"2,keyasint"`
}

// link is the connection to one peer rank.
type link struct {
	peer   int
	conn   net.Conn
	outbox lfq.SPSC[frame]
	inbox  [halo.NumTags]lfq.SPSC[cbor.RawMessage]

	queued  int64
	written atomic.Int64
	// hungUp is set once the peer closed its end. Frames already in the
	// inbox stay readable.
	hungUp atomic.Bool
}

// closedErr reports the peer of l hanging up.
func (l *link) closedErr() error {
	return fmt.Errorf("%w: rank %d hung up", ErrClosed, l.peer)
}

// Transport is a [halo.Transport] over stream connections.
// Isend, Irecv, Testsome and Waitall must be called from one goroutine.
type Transport struct {
	rank   int
	links  map[int]*link
	self   [halo.NumTags]lfq.SPSC[any]
	enc    cbor.EncMode
	dec    cbor.DecMode
	log    logr.Logger
	ctx    context.Context
	cancel context.CancelCauseFunc
	g      *errgroup.Group
}

// Option configures a Transport.
type Option func(*options)

type options struct {
	queueCapacity int
	logger        logr.Logger
}

// WithQueueCapacity sets the capacity of every outbox and inbox queue.
func WithQueueCapacity(n int) Option {
	return func(o *options) {
		o.queueCapacity = n
	}
}

// WithLogger sets the logger.
func WithLogger(l logr.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

// New starts a transport for rank. links maps every peer rank to its
// connection; the transport owns the connections and closes them on
// Close. An entry for rank itself is not allowed.
func New(rank int, links map[int]net.Conn, opts ...Option) (*Transport, error) {
	o := options{queueCapacity: defaultQueueCapacity, logger: logr.Discard()}
	for _, opt := range opts {
		opt(&o)
	}
	if o.queueCapacity <= 0 {
		return nil, fmt.Errorf("stream: queue capacity %d must be positive", o.queueCapacity)
	}
	if _, ok := links[rank]; ok {
		return nil, fmt.Errorf("stream: link from rank %d to itself", rank)
	}
	enc, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		return nil, err
	}
	dec, err := cbor.DecOptions{}.DecMode()
	if err != nil {
		return nil, err
	}

	parent, cancel := context.WithCancelCause(context.Background())
	g, ctx := errgroup.WithContext(parent)
	t := &Transport{
		rank:   rank,
		links:  make(map[int]*link, len(links)),
		enc:    enc,
		dec:    dec,
		log:    o.logger.WithValues("rank", rank),
		ctx:    ctx,
		cancel: cancel,
		g:      g,
	}
	for tag := range t.self {
		t.self[tag].Init(o.queueCapacity)
	}
	for _, peer := range slices.Sorted(maps.Keys(links)) {
		l := &link{peer: peer, conn: links[peer]}
		l.outbox.Init(o.queueCapacity)
		for tag := range l.inbox {
			l.inbox[tag].Init(o.queueCapacity)
		}
		t.links[peer] = l
		g.Go(func() error { return t.write(l) })
		g.Go(func() error { return t.read(l) })
	}
	t.log.V(1).Info("transport started", "links", len(links))
	return t, nil
}

// Rank returns the local rank.
func (t *Transport) Rank() int {
	return t.rank
}

// request is a posted operation. try makes one non-blocking attempt.
type request struct {
	peer int
	tag  halo.Tag
	try  func() (any, error)
}

func (r *request) Peer() int { return r.peer }

func (r *request) Tag() halo.Tag { return r.tag }

func (t *Transport) check(peer int, tag halo.Tag) (*link, error) {
	if err := t.err(); err != nil {
		return nil, err
	}
	if tag == 0 || tag >= halo.NumTags {
		return nil, fmt.Errorf("stream: invalid tag %v", tag)
	}
	if peer == t.rank {
		return nil, nil
	}
	l, ok := t.links[peer]
	if !ok {
		return nil, fmt.Errorf("%w: no link to rank %d", halo.ErrUnknownPeer, peer)
	}
	return l, nil
}

// Isend encodes msg and posts it to peer.
func (t *Transport) Isend(peer int, tag halo.Tag, msg any) (halo.Request, error) {
	l, err := t.check(peer, tag)
	if err != nil {
		return nil, err
	}
	if l == nil {
		q := &t.self[tag]
		return &request{peer: peer, tag: tag, try: func() (any, error) {
			return nil, q.Enqueue(&msg)
		}}, nil
	}
	data, err := t.enc.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("stream: encode %v for rank %d: %w", tag, peer, err)
	}
	f := frame{Tag: uint8(tag), Data: data}
	return &request{peer: peer, tag: tag, try: func() (any, error) {
		if l.hungUp.Load() {
			return nil, l.closedErr()
		}
		if err := l.outbox.Enqueue(&f); err != nil {
			return nil, err
		}
		l.queued++
		return nil, nil
	}}, nil
}

// Irecv posts a receive for the next message with tag from peer. Payloads
// from other ranks arrive encoded and implement [halo.Decoder].
func (t *Transport) Irecv(peer int, tag halo.Tag) (halo.Request, error) {
	l, err := t.check(peer, tag)
	if err != nil {
		return nil, err
	}
	if l == nil {
		q := &t.self[tag]
		return &request{peer: peer, tag: tag, try: q.Dequeue}, nil
	}
	q := &l.inbox[tag]
	return &request{peer: peer, tag: tag, try: func() (any, error) {
		raw, err := q.Dequeue()
		if iox.IsWouldBlock(err) && l.hungUp.Load() {
			// The reader stops enqueueing before it marks the hang-up.
			raw, err = q.Dequeue()
			if iox.IsWouldBlock(err) {
				return nil, l.closedErr()
			}
		}
		if err != nil {
			return nil, err
		}
		return payload{dec: t.dec, data: raw}, nil
	}}, nil
}

// Testsome attempts every non-nil request once.
func (t *Transport) Testsome(reqs []halo.Request) ([]halo.Status, error) {
	var done []halo.Status
	pending := false
	for i, r := range reqs {
		if r == nil {
			continue
		}
		sr, ok := r.(*request)
		if !ok {
			return done, fmt.Errorf("%w: %T", halo.ErrForeignRequest, r)
		}
		v, err := sr.try()
		if err != nil {
			if !iox.IsWouldBlock(err) {
				return done, fmt.Errorf("stream: %v with rank %d: %w", sr.tag, sr.peer, err)
			}
			pending = true
			continue
		}
		reqs[i] = nil
		done = append(done, halo.Status{Index: i, Payload: v})
	}
	if pending && len(done) == 0 {
		if err := t.err(); err != nil {
			return done, err
		}
	}
	return done, nil
}

// Waitall tests reqs with backoff until all of them completed.
func (t *Transport) Waitall(reqs []halo.Request) error {
	var bo iox.Backoff
	for slices.ContainsFunc(reqs, func(r halo.Request) bool { return r != nil }) {
		done, err := t.Testsome(reqs)
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

// Close waits until every completed send has been written to a peer that
// is still connected, then stops all link goroutines and closes the
// connections. Pending requests fail with ErrClosed afterwards.
func (t *Transport) Close() error {
	var bo iox.Backoff
	for _, l := range t.links {
		for l.written.Load() < l.queued && !l.hungUp.Load() && t.ctx.Err() == nil {
			bo.Wait()
		}
	}
	t.cancel(ErrClosed)
	var errs []error
	for _, l := range t.links {
		if err := l.conn.Close(); err != nil && !errors.Is(err, net.ErrClosed) && !errors.Is(err, io.ErrClosedPipe) {
			errs = append(errs, err)
		}
	}
	if err := t.g.Wait(); err != nil && !errors.Is(err, ErrClosed) {
		errs = append(errs, err)
	}
	t.log.V(1).Info("transport closed")
	return errors.Join(errs...)
}

// err reports why the transport stopped, if it did.
func (t *Transport) err() error {
	if t.ctx.Err() == nil {
		return nil
	}
	return context.Cause(t.ctx)
}

// write drains the outbox of l onto its connection.
func (t *Transport) write(l *link) error {
	bw := bufio.NewWriter(l.conn)
	enc := t.enc.NewEncoder(bw)
	var bo iox.Backoff
	for {
		f, err := l.outbox.Dequeue()
		if err != nil {
			if !iox.IsWouldBlock(err) {
				return err
			}
			if t.ctx.Err() != nil || l.hungUp.Load() {
				return nil
			}
			bo.Wait()
			continue
		}
		bo.Reset()
		if err := enc.Encode(f); err != nil {
			return t.linkError(l, "write", err)
		}
		if err := bw.Flush(); err != nil {
			return t.linkError(l, "write", err)
		}
		l.written.Add(1)
	}
}

// read decodes frames from l into the inbox of their tag.
func (t *Transport) read(l *link) error {
	dec := t.dec.NewDecoder(bufio.NewReader(l.conn))
	var bo iox.Backoff
	for {
		var f frame
		if err := dec.Decode(&f); err != nil {
			return t.linkError(l, "read", err)
		}
		if f.Tag == 0 || halo.Tag(f.Tag) >= halo.NumTags {
			return fmt.Errorf("stream: rank %d sent frame with invalid tag %d", l.peer, f.Tag)
		}
		q := &l.inbox[f.Tag]
		for {
			err := q.Enqueue(&f.Data)
			if err == nil {
				break
			}
			if !iox.IsWouldBlock(err) {
				return err
			}
			if t.ctx.Err() != nil {
				return nil
			}
			bo.Wait()
		}
		bo.Reset()
	}
}

// linkError classifies a connection error. Errors after Close are
// expected. A peer hanging up closes its link only; the other links keep
// running.
func (t *Transport) linkError(l *link, op string, err error) error {
	if t.ctx.Err() != nil {
		return nil
	}
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, io.ErrClosedPipe) || errors.Is(err, net.ErrClosed) {
		if !l.hungUp.Swap(true) {
			t.log.V(1).Info("link closed by peer", "peer", l.peer, "op", op)
		}
		return nil
	}
	t.log.Error(err, "link failed", "peer", l.peer, "op", op)
	return fmt.Errorf("stream: %s link to rank %d: %w", op, l.peer, err)
}

// payload is a received message still in its wire encoding.
type payload struct {
	dec  cbor.DecMode
	data cbor.RawMessage
}

// Decode unmarshals the message into v.
func (p payload) Decode(v any) error {
	return p.dec.Unmarshal(p.data, v)
}

var (
	_ halo.Transport = (*Transport)(nil)
	_ halo.Decoder   = payload{}
)
