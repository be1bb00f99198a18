// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package halo

import (
	"fmt"
	"slices"

	"code.hybscloud.com/iox"
)

// side is the per-peer state of one direction of one phase: a tracker,
// a buffer and a request slot for every peer, all indexed alike.
type side[T any] struct {
	tr        Transport
	tag       Tag
	handle    DataHandle[T]
	trackers  []*interfaceTracker
	buffers   []*MessageBuffer[T]
	requests  []Request
	fragments int
}

func newSide[T any](tr Transport, tag Tag, h DataHandle[T], trackers []*interfaceTracker, bufferSize int) *side[T] {
	s := &side[T]{
		tr:       tr,
		tag:      tag,
		handle:   h,
		trackers: trackers,
		buffers:  make([]*MessageBuffer[T], len(trackers)),
		requests: make([]Request, len(trackers)),
	}
	for i := range s.buffers {
		s.buffers[i] = NewMessageBuffer[T](bufferSize)
	}
	return s
}

// nonEmpty counts the peers with a non-empty index list.
func (s *side[T]) nonEmpty() int {
	n := 0
	for _, t := range s.trackers {
		if !t.empty() {
			n++
		}
	}
	return n
}

// postSend packs the next fragment for peer slot i and posts it.
// Nothing is posted when no data is left.
func (s *side[T]) postSend(i int) error {
	t, buf := s.trackers[i], s.buffers[i]
	buf.Reset()
	n := packEntries(s.handle, t, buf)
	t.skipZeroIndices()
	if n == 0 {
		return nil
	}
	req, err := s.tr.Isend(t.peer, s.tag, slices.Clone(buf.Data()))
	if err != nil {
		return fmt.Errorf("halo: post %v send to rank %d: %w", s.tag, t.peer, err)
	}
	s.requests[i] = req
	s.fragments++
	return nil
}

// postRecv posts a receive for peer slot i if data is still expected.
func (s *side[T]) postRecv(i int) error {
	t := s.trackers[i]
	s.buffers[i].Reset()
	t.skipZeroIndices()
	if t.indicesLeft() == 0 {
		return nil
	}
	req, err := s.tr.Irecv(t.peer, s.tag)
	if err != nil {
		return fmt.Errorf("halo: post %v receive from rank %d: %w", s.tag, t.peer, err)
	}
	s.requests[i] = req
	return nil
}

// load moves a received message into the buffer of slot i and returns
// its element count.
func (s *side[T]) load(i int, payload any) (int, error) {
	msg, err := payloadOf[T](payload)
	if err != nil {
		return 0, fmt.Errorf("halo: %v from rank %d: %w", s.tag, s.trackers[i].peer, err)
	}
	s.buffers[i].load(msg)
	s.fragments++
	return len(msg), nil
}

// unpack scatters a received payload fragment of slot i.
func (s *side[T]) unpack(i int, payload any) error {
	count, err := s.load(i, payload)
	if err != nil {
		return err
	}
	unpackEntries(s.handle, s.trackers[i], s.buffers[i], count)
	return nil
}

// checkAndContinue tests reqs once. For every completed request it runs
// onDone (if any) and, when the slot's tracker is not finished, cont to
// issue the next operation for that peer.
//
// It returns the number of peers that completed for good. With valid
// false every completion counts, which is used when cont starts a
// different phase. progressed reports whether anything completed.
func checkAndContinue(tr Transport, trackers []*interfaceTracker, reqs []Request,
	onDone func(i int, payload any) error, cont func(i int) error, valid bool) (completed int, progressed bool, err error) {
	done, err := tr.Testsome(reqs)
	if err != nil {
		return 0, false, fmt.Errorf("halo: test requests: %w", err)
	}
	completed = len(done)
	for _, st := range done {
		t := trackers[st.Index]
		if onDone != nil {
			if err := onDone(st.Index, st.Payload); err != nil {
				return 0, true, err
			}
		}
		t.skipZeroIndices()
		if !t.finished() {
			if err := cont(st.Index); err != nil {
				return 0, true, err
			}
			t.skipZeroIndices()
			if valid {
				completed--
			}
		}
	}
	return completed, len(done) > 0, nil
}

// poller paces a completion loop: it backs off while polls make no
// progress and resets once they do.
type poller struct {
	bo iox.Backoff
}

func (p *poller) pause(progressed bool) {
	if progressed {
		p.bo.Reset()
		return
	}
	p.bo.Wait()
}
