// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package chain runs a halo exchange on a 1-D decomposition and checks
// that every shared entry went out once and came back with the right
// values.
package chain

import (
	"fmt"
	"maps"
	"slices"

	"github.com/go-logr/logr"
	"golang.org/x/sync/errgroup"

	"code.hybscloud.com/halo"
)

// Partition is the share of one rank.
type Partition struct {
	Start, End int
	Interfaces halo.InterfaceMap
}

// Layout splits [0, entries) over ranks. Every rank shares the two
// entries at each border with the adjacent rank. With emptyRank set and
// more than two ranks, the last rank takes no part and gets an empty
// interface map. A single rank exchanges the even indices up to 10 with
// itself.
func Layout(ranks, entries int, emptyRank bool) []Partition {
	parts := make([]Partition, ranks)
	if ranks == 1 {
		even := []int{0, 2, 4, 6, 8, 10}
		parts[0] = Partition{End: entries, Interfaces: halo.InterfaceMap{0: {Send: even, Recv: even}}}
		return parts
	}

	procs := ranks
	if emptyRank && ranks > 2 {
		procs--
	}
	per := entries / procs
	for r := range parts {
		p := &parts[r]
		p.Interfaces = halo.InterfaceMap{}
		if r >= procs {
			continue
		}
		if r < entries%procs {
			p.Start = r * (per + 1)
			p.End = p.Start + per + 1
		} else {
			p.Start = entries%procs + r*per
			p.End = p.Start + per
		}
		if r > 0 {
			p.Interfaces.Add(r-1, p.Start-1, p.Start-1)
			p.Interfaces.Add(r-1, p.Start, p.Start)
		}
		if r < procs-1 {
			p.Interfaces.Add(r+1, p.End-1, p.End-1)
			p.Interfaces.Add(r+1, p.End, p.End)
		}
	}
	return parts
}

// Handle is a data handle over float64 that derives every value from
// its index and records which indices were gathered and scattered.
// Fixed-size handles send three copies of the index. Variable-size
// handles send index%5 elements index, index+1, and so on.
type Handle struct {
	variable  bool
	gathered  map[int]int
	scattered map[int]int
	err       error
}

// NewHandle returns a handle for the given discipline.
func NewHandle(variable bool) *Handle {
	return &Handle{variable: variable, gathered: map[int]int{}, scattered: map[int]int{}}
}

// FixedSize reports whether the handle uses the fixed-size discipline.
func (h *Handle) FixedSize() bool { return !h.variable }

// Size returns 3, or index%5 for variable-size handles.
func (h *Handle) Size(index int) int {
	if h.variable {
		return index % 5
	}
	return 3
}

func (h *Handle) value(index, k int) float64 {
	if h.variable {
		return float64(index + k)
	}
	return float64(index)
}

// Gather writes the values of index and records the gather.
func (h *Handle) Gather(buf *halo.MessageBuffer[float64], index int) {
	h.gathered[index]++
	for k := range h.Size(index) {
		buf.Write(h.value(index, k))
	}
}

// Scatter reads n values for index, records the scatter and keeps the
// first mismatch for Verify.
func (h *Handle) Scatter(buf *halo.MessageBuffer[float64], index int, n int) {
	h.scattered[index]++
	if n != h.Size(index) && h.err == nil {
		h.err = fmt.Errorf("index %d: scattered %d elements, want %d", index, n, h.Size(index))
	}
	for k := range n {
		if got, want := buf.Read(), h.value(index, k); got != want && h.err == nil {
			h.err = fmt.Errorf("index %d element %d: got %v, want %v", index, k, got, want)
		}
	}
}

// Verify checks the records of one exchange over m and clears them.
// Entries without elements must be neither gathered nor scattered.
func (h *Handle) Verify(m halo.InterfaceMap, dir halo.Direction) error {
	defer func() {
		clear(h.gathered)
		clear(h.scattered)
		h.err = nil
	}()
	if h.err != nil {
		return h.err
	}
	var sent, received []int
	for _, p := range m {
		send, recv := p.Send, p.Recv
		if dir == halo.DirBackward {
			send, recv = recv, send
		}
		for _, i := range send {
			if h.Size(i) > 0 {
				sent = append(sent, i)
			}
		}
		for _, i := range recv {
			if h.Size(i) > 0 {
				received = append(received, i)
			}
		}
	}
	if err := once("gathered", sent, h.gathered); err != nil {
		return err
	}
	return once("scattered", received, h.scattered)
}

func once(what string, want []int, got map[int]int) error {
	slices.Sort(want)
	keys := slices.Sorted(maps.Keys(got))
	if !slices.Equal(want, keys) {
		return fmt.Errorf("%s indices %v, want %v", what, keys, want)
	}
	for i, n := range got {
		if n != 1 {
			return fmt.Errorf("index %d %s %d times", i, what, n)
		}
	}
	return nil
}

// Options select the scenario.
type Options struct {
	Ranks      int
	Entries    int
	BufferSize int
	Variable   bool
	EmptyRank  bool
	Rounds     int
}

// Report summarises a run.
type Report struct {
	Exchanges int
	Entries   int
}

// Run executes the scenario on an in-process fabric, one goroutine per
// rank, and verifies every exchange.
func Run(o Options, log logr.Logger) (Report, error) {
	if widest := 4; o.BufferSize < widest {
		return Report{}, fmt.Errorf("buffer size %d cannot hold an entry of %d elements", o.BufferSize, widest)
	}
	parts := Layout(o.Ranks, o.Entries, o.EmptyRank)
	f := halo.NewFabric(o.Ranks)
	log.Info("running chain exchange", "fabric", f.Serial(), "ranks", o.Ranks,
		"entries", o.Entries, "bufferSize", o.BufferSize, "variable", o.Variable)

	var g errgroup.Group
	for r := range parts {
		g.Go(func() error {
			c := halo.New(f.Endpoint(r), parts[r].Interfaces,
				halo.WithMaxBufferSize(o.BufferSize), halo.WithLogger(log))
			h := NewHandle(o.Variable)
			for round := range o.Rounds {
				for _, dir := range []halo.Direction{halo.DirForward, halo.DirBackward} {
					if err := halo.Communicate[float64](c, h, dir); err != nil {
						return fmt.Errorf("rank %d round %d %v: %w", r, round, dir, err)
					}
					if err := h.Verify(parts[r].Interfaces, dir); err != nil {
						return fmt.Errorf("rank %d round %d %v: %w", r, round, dir, err)
					}
				}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Report{}, err
	}

	rep := Report{Exchanges: 2 * o.Rounds}
	for _, p := range parts {
		for _, pair := range p.Interfaces {
			rep.Entries += len(pair.Send)
		}
	}
	return rep, nil
}
