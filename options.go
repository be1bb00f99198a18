// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package halo

import "github.com/go-logr/logr"

// DefaultMaxBufferSize is the default capacity, in elements, of every
// message buffer. A rank with n peers holds at most 2n payload buffers
// and 2n size buffers of this capacity during one exchange.
const DefaultMaxBufferSize = 32768

// Option configures a Communicator.
type Option func(*Communicator)

// WithMaxBufferSize sets the capacity of the message buffers in elements.
// All ranks of one exchange must use the same value.
func WithMaxBufferSize(n int) Option {
	return func(c *Communicator) {
		c.maxBufferSize = n
	}
}

// WithLogger sets the logger. Exchanges log at V(1) and V(2).
func WithLogger(l logr.Logger) Option {
	return func(c *Communicator) {
		c.logger = l
	}
}
