// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package halo

import (
	"maps"
	"slices"
)

// InterfacePair holds the two local index lists shared with one peer.
// Forward gathers from Send and the peer scatters into its Recv list;
// Backward uses the lists the other way round.
//
// For data sent from rank A to rank B, A's list and B's matching list
// must enumerate the entries in the same order. There is no global
// index space: list order is the only link between source and target.
type InterfacePair struct {
	Send []int
	Recv []int
}

// InterfaceMap maps a peer rank to the index lists shared with it.
// A rank may list itself; its two lists may differ.
type InterfaceMap map[int]InterfacePair

// Add appends one entry to the lists shared with peer.
func (m InterfaceMap) Add(peer int, send, recv int) {
	p := m[peer]
	p.Send = append(p.Send, send)
	p.Recv = append(p.Recv, recv)
	m[peer] = p
}

// peers returns the peer ranks in ascending order.
func (m InterfaceMap) peers() []int {
	return slices.Sorted(maps.Keys(m))
}

// Direction selects which list of an InterfacePair is sent.
type Direction uint8

const (
	// DirForward sends InterfacePair.Send and receives into InterfacePair.Recv.
	DirForward Direction = iota
	// DirBackward sends InterfacePair.Recv and receives into InterfacePair.Send.
	DirBackward
)

func (d Direction) String() string {
	if d == DirBackward {
		return "backward"
	}
	return "forward"
}

func (d Direction) sendList(p InterfacePair) []int {
	if d == DirBackward {
		return p.Recv
	}
	return p.Send
}

func (d Direction) recvList(p InterfacePair) []int {
	if d == DirBackward {
		return p.Send
	}
	return p.Recv
}
