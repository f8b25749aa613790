// Copyright 2025 The packetd Authors
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package iterator

import "github.com/packetd/dispatchd/buffer"

// pointer tracks a cursor into either a buffer.Chain (a received field) or
// a flat byte slice (a string/binary literal iterator), plus the number of
// octets remaining before the field ends. buf/off track a cursor into a
// chain; raw covers the common case of a cursor into a plain memory block.
type pointer struct {
	chain  *buffer.Chain
	buf    *buffer.Buffer
	off    int
	raw    []byte
	length int
}

func (p pointer) currentByte() byte {
	if p.buf != nil {
		return p.buf.Base()[p.off]
	}
	return p.raw[p.off]
}

// advanceOctet consumes one byte and returns it, handling the chain
// buffer-boundary crossing inline.
func (p *pointer) advanceOctet() byte {
	result := p.currentByte()
	p.off++
	p.length--

	if p.length > 0 && p.buf != nil {
		if p.off == p.buf.Size() {
			p.buf = p.chain.Next(p.buf)
			p.off = 0
			if p.buf == nil {
				p.length = 0
			}
		}
	}
	return result
}
