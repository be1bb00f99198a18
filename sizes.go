// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package halo

import "fmt"

// sizeHandle presents the element counts of a variable-size handle as a
// fixed-size exchange of one int per index.
type sizeHandle[T any] struct {
	data DataHandle[T]
}

func (sizeHandle[T]) FixedSize() bool { return true }

func (sizeHandle[T]) Size(int) int { return 1 }

func (h sizeHandle[T]) Gather(buf *MessageBuffer[int], index int) {
	buf.Write(h.data.Size(index))
}

func (sizeHandle[T]) Scatter(*MessageBuffer[int], int, int) {
	panic("halo: sizes are unpacked in bulk")
}

// unpackSizes copies a received fragment of sizes into the entries of
// dst starting at the size tracker's position and advances it. Zero
// sizes are data here, so nothing is skipped.
func unpackSizes(t *interfaceTracker, dst []int, buf *MessageBuffer[int]) {
	n := buf.Len() - buf.Position()
	if n > t.indicesLeft() {
		panic(fmt.Sprintf("halo: %d sizes from rank %d for %d remaining entries", n, t.peer, t.indicesLeft()))
	}
	copy(dst[t.offset():t.offset()+n], buf.data[buf.pos:buf.pos+n])
	buf.pos += n
	t.increment(n)
}

// negotiateSizes tells every receiver how many elements each of its
// entries will get. On return the size arrays of recv are filled.
func (x *exchange[T]) negotiateSizes(recv []*interfaceTracker) error {
	h := sizeHandle[T]{data: x.handle}
	sendT, recvT := setupTrackers[int](h, x.interfaces, x.peers, x.dir)
	send := newSide[int](x.tr, TagSizes, h, sendT, x.bufferSize)
	in := newSide[int](x.tr, TagSizes, h, recvT, x.bufferSize)
	for i := range sendT {
		if err := send.postSend(i); err != nil {
			return err
		}
	}
	for i := range recvT {
		if err := in.postRecv(i); err != nil {
			return err
		}
	}

	onSizes := func(i int, payload any) error {
		if _, err := in.load(i, payload); err != nil {
			return err
		}
		unpackSizes(recvT[i], recv[i].sizes, in.buffers[i])
		return nil
	}

	toSend := activeRequests(send.requests)
	toRecv := activeRequests(in.requests)
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
			n, ok, err := checkAndContinue(x.tr, recvT, in.requests, onSizes, in.postRecv, true)
			if err != nil {
				return err
			}
			toRecv -= n
			progressed = progressed || ok
		}
		p.pause(progressed)
	}
	x.log.V(2).Info("sizes negotiated", "fragmentsSent", send.fragments, "fragmentsReceived", in.fragments)
	return nil
}
