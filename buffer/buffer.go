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

// Package buffer implements the fixed-capacity chain segment that backs
// every delivery's received bytes: a chain of same-sized Buffer nodes,
// pooled through internal/alloc, whose capacity is set once at process
// start and then locked for the process lifetime.
package buffer

import (
	"sync"

	"github.com/packetd/dispatchd/internal/alloc"
)

const defaultSize = 512

var (
	sizeMu     sync.Mutex
	bufferSize = defaultSize
	sizeLocked bool
)

// SetSize configures the capacity every Buffer is allocated with. It
// panics if called after the first Pool has been created (NewPool locks
// the size): capacity is a process-wide constant once any chain depends
// on it.
func SetSize(size int) {
	sizeMu.Lock()
	defer sizeMu.Unlock()
	if sizeLocked {
		panic("buffer: size already locked by first use")
	}
	bufferSize = size
}

// Buffer is one fixed-capacity segment of a delivery's byte stream.
// Size tracks how many of Capacity bytes have been written so far;
// Insert advances it after the caller writes directly into Cursor's slice.
type Buffer struct {
	data []byte
	size int
	item *alloc.Item[*Buffer]
}

var bufferType = alloc.NewType[*Buffer]("buffer", 24, func() int {
	sizeMu.Lock()
	defer sizeMu.Unlock()
	return bufferSize
}, func() *Buffer {
	sizeMu.Lock()
	n := bufferSize
	sizeMu.Unlock()
	return &Buffer{data: make([]byte, n)}
})

func init() {
	alloc.Default.Register(bufferType)
}

// Pool is a worker-owned free list of Buffers. Callers obtain one per
// worker goroutine, mirroring internal/alloc's no-shared-Pool contract.
type Pool struct {
	inner *alloc.Pool[*Buffer]
}

// NewPool creates a fresh worker-local Buffer pool.
func NewPool() *Pool {
	sizeMu.Lock()
	sizeLocked = true
	sizeMu.Unlock()
	return &Pool{inner: bufferType.NewPool()}
}

// Alloc returns a zero-length Buffer ready for writing.
func (p *Pool) Alloc() *Buffer {
	item := p.inner.Alloc()
	item.Value.size = 0
	item.Value.item = item
	return item.Value
}

// Free returns buf to the pool it was allocated from. Reusing a Buffer
// after Free is a programmer error with no detection in release builds.
func (p *Pool) Free(buf *Buffer) {
	p.inner.Dealloc(buf.item)
}

// Base returns the bytes written into buf so far.
func (b *Buffer) Base() []byte { return b.data[:b.size] }

// Cursor returns the writable remainder of buf's storage: the slice a
// reader should fill next.
func (b *Buffer) Cursor() []byte { return b.data[b.size:] }

// Capacity returns how many more bytes buf can hold.
func (b *Buffer) Capacity() int { return len(b.data) - b.size }

// Size returns how many bytes have been written into buf.
func (b *Buffer) Size() int { return b.size }

// Insert records that n more bytes were written at Cursor. It panics if
// that would overrun the buffer's capacity.
func (b *Buffer) Insert(n int) {
	if b.size+n > len(b.data) {
		panic("buffer: insert overruns capacity")
	}
	b.size += n
}
