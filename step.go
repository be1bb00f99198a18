// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package halo

import (
	"code.hybscloud.com/iox"
	"code.hybscloud.com/kont"
)

// request is a posted fabric operation: a one-effect protocol stepped to
// its suspension. Testing the request advances the suspension.
type request struct {
	serial Serial
	owner  int
	peer   int
	tag    Tag
	send   bool
	susp   *kont.Suspension[any]
}

// Peer returns the rank on the other side of the operation.
func (r *request) Peer() int { return r.peer }

// Tag returns the message tag of the operation.
func (r *request) Tag() Tag { return r.tag }

// Op returns the pending operation, Post or Take. Nil once completed.
func (r *request) Op() kont.Operation {
	if r.susp == nil {
		return nil
	}
	return r.susp.Op()
}

// stepRequest evaluates protocol until its first effect suspension.
// Fabric protocols always suspend on their only operation.
func (ep *Endpoint) stepRequest(peer int, tag Tag, send bool, protocol kont.Expr[any]) *request {
	_, susp := kont.StepExpr(protocol)
	if susp == nil {
		panic("halo: fabric operation completed without dispatch")
	}
	return &request{serial: ep.fabric.serial, owner: ep.rank, peer: peer, tag: tag, send: send, susp: susp}
}

// advance dispatches the suspended operation once.
// On iox.ErrWouldBlock the suspension is kept and done is false.
func (r *request) advance() (result any, done bool, err error) {
	sop, ok := r.susp.Op().(fabricDispatcher)
	if !ok {
		panic("halo: unhandled effect in fabric request")
	}
	v, err := sop.DispatchFabric()
	if err != nil {
		if iox.IsWouldBlock(err) {
			return nil, false, nil
		}
		return nil, false, err
	}
	result, next := r.susp.Resume(v)
	if next != nil {
		next.Discard()
		panic("halo: fabric protocol suspended twice")
	}
	r.susp = nil
	return result, true, nil
}
