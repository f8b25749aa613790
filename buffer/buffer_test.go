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

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBufferInsertAdvancesSizeAndCursor(t *testing.T) {
	pool := NewPool()
	buf := pool.Alloc()
	require.Equal(t, 0, buf.Size())

	n := copy(buf.Cursor(), []byte("hello"))
	buf.Insert(n)

	assert.Equal(t, 5, buf.Size())
	assert.Equal(t, []byte("hello"), buf.Base())
	assert.Equal(t, defaultSize-5, buf.Capacity())
}

func TestBufferInsertOverrunPanics(t *testing.T) {
	pool := NewPool()
	buf := pool.Alloc()

	assert.Panics(t, func() {
		buf.Insert(buf.Capacity() + 1)
	})
}

func TestPoolAllocReusesFreedBuffer(t *testing.T) {
	pool := NewPool()
	first := pool.Alloc()
	first.Insert(10)
	pool.Free(first)

	second := pool.Alloc()
	assert.Same(t, first, second)
	assert.Equal(t, 0, second.Size())
}

func TestChainAppendAndWalk(t *testing.T) {
	pool := NewPool()
	a, b, c := pool.Alloc(), pool.Alloc(), pool.Alloc()

	var chain Chain
	chain.Append(a)
	chain.Append(b)
	chain.Append(c)

	assert.Same(t, a, chain.First())
	assert.Same(t, c, chain.Last())
	assert.Same(t, b, chain.Next(a))
	assert.Same(t, c, chain.Next(b))
	assert.Nil(t, chain.Next(c))
	assert.Equal(t, 3, chain.Len())

	chain.Release(pool)
	assert.Equal(t, 0, chain.Len())
}
