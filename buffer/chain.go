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

package buffer

// Chain is an ordered FIFO list of Buffers making up one delivery's
// received (or composed) bytes.
type Chain struct {
	buffers []*Buffer
}

// Append adds buf to the tail of the chain.
func (c *Chain) Append(buf *Buffer) {
	c.buffers = append(c.buffers, buf)
}

// First returns the head Buffer, or nil if the chain is empty.
func (c *Chain) First() *Buffer {
	if len(c.buffers) == 0 {
		return nil
	}
	return c.buffers[0]
}

// Last returns the tail Buffer, or nil if the chain is empty.
func (c *Chain) Last() *Buffer {
	if len(c.buffers) == 0 {
		return nil
	}
	return c.buffers[len(c.buffers)-1]
}

// Next returns the Buffer following buf in the chain, or nil if buf is the
// tail or not present.
func (c *Chain) Next(buf *Buffer) *Buffer {
	for i, b := range c.buffers {
		if b == buf {
			if i+1 < len(c.buffers) {
				return c.buffers[i+1]
			}
			return nil
		}
	}
	return nil
}

// Len returns the number of buffers currently in the chain.
func (c *Chain) Len() int { return len(c.buffers) }

// TotalSize returns the sum of Size() across every buffer in the chain.
func (c *Chain) TotalSize() int {
	total := 0
	for _, b := range c.buffers {
		total += b.Size()
	}
	return total
}

// DropLastIfEmpty removes and frees the tail buffer if it is present and
// has zero bytes written, which only happens when a delivery's total
// size is an exact multiple of the buffer capacity.
func (c *Chain) DropLastIfEmpty(pool *Pool) {
	n := len(c.buffers)
	if n == 0 {
		return
	}
	last := c.buffers[n-1]
	if last.Size() != 0 {
		return
	}
	c.buffers = c.buffers[:n-1]
	pool.Free(last)
}

// Release frees every buffer in the chain back to pool and empties it.
func (c *Chain) Release(pool *Pool) {
	for _, b := range c.buffers {
		pool.Free(b)
	}
	c.buffers = nil
}
