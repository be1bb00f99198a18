// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package halo exchanges data attached to local index sets between
// cooperating ranks through bounded message buffers.
//
// Every rank knows, per peer, an ordered list of local indices it sends
// from and an ordered list it receives into. There is no global index
// space: the i-th entry of a send list is matched with the i-th entry of
// the peer's receive list.
//
// # Architecture
//
//   - Buffers: [MessageBuffer] is a fixed-capacity scratch area. Interfaces larger than one buffer are sent as several fragments.
//   - Trackers: a per-peer cursor over an index list; entries with zero elements are skipped on both sides.
//   - Disciplines: a [DataHandle] reporting [DataHandle.FixedSize] is exchanged directly after an entry-size handshake. Otherwise the per-index element counts are negotiated on a separate tag before the payload.
//   - Progress: one goroutine per rank polls its outstanding requests with [Transport.Testsome] and reissues the next fragment for every peer that completed, backing off with [code.hybscloud.com/iox.Backoff] while nothing progresses.
//
// # Transports
//
//   - In-process: [NewFabric] connects n ranks through lock-free SPSC lanes from [code.hybscloud.com/lfq]. Posted operations are one-effect [code.hybscloud.com/kont] protocols that report [code.hybscloud.com/iox.ErrWouldBlock] until their lane is ready.
//   - Network: package stream runs the same contract over [net.Conn] links with CBOR frames.
//
// # Errors
//
// Contract violations (a handle writing more than it declared, a fragment
// that does not match the receiver's interface) panic with a "halo:"
// prefix. Transport failures are returned and abort the exchange.
//
// # Example
//
//	f := halo.NewFabric(2)
//	m := halo.InterfaceMap{}
//	m.Add(1, 0, 1) // send index 0 to rank 1, receive into index 1
//	c := halo.New(f.Endpoint(0), m)
//	h := halo.NewSliceHandle(values)
//	if err := halo.Forward(c, h); err != nil {
//		return err
//	}
package halo
