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

// Package iterator implements the zero-copy field cursor used to read
// message fields straight out of their buffer chain (or, for literals used
// in tests and router bootstrap, out of a flat byte slice), without ever
// materializing the field as a contiguous []byte unless the caller asks
// for one explicitly via Copy.
//
// Besides plain byte-by-byte scanning, an Iterator can apply one of the
// router-address Views, which skip an optional "amqp://host/" prefix and
// emit a synthetic one-byte scope prefix (L/R/A/M) ahead of the node or
// address text: the representation the router's hash-based address table
// looks values up by.
package iterator

import "github.com/packetd/dispatchd/buffer"

// View selects how Reset/Octet-driven scanning interprets the underlying
// field text.
type View int

const (
	// ViewAll returns every octet of the field unmodified.
	ViewAll View = iota
	// ViewNoHost skips a leading "<scheme>://<host>/" prefix if present,
	// returning everything from the node-id onward.
	ViewNoHost
	// ViewNodeID returns just the node-id component (up to the next '/').
	ViewNodeID
	// ViewNodeSpecific returns everything after the node-id's trailing
	// '/', i.e. the node-local address suffix.
	ViewNodeSpecific
	// ViewAddressHash returns a router-address hash key: a scope prefix
	// (L local / R remote-in-area / A remote-area / M mobile) followed
	// by the address text, built on top of ViewNoHost.
	ViewAddressHash
	// ViewNodeHash returns a router-node hash key: a scope prefix
	// (R in-area / A inter-area) followed by the node text.
	ViewNodeHash
)

type scanMode int

const (
	modeToEnd scanMode = iota
	modeToSlash
)

// Iterator is a cursor over one field's bytes. It is not safe for
// concurrent use.
type Iterator struct {
	startPointer     pointer
	viewStartPointer pointer
	pointer          pointer

	view       View
	mode       scanMode
	prefix     byte
	atPrefix   bool
	viewPrefix bool
}

// FromString builds an iterator over a Go string literal, useful for
// router configuration and tests.
func FromString(s string, view View) *Iterator {
	return newIterator(pointer{raw: []byte(s), length: len(s)}, view)
}

// FromBytes builds an iterator over a flat byte slice.
func FromBytes(b []byte, view View) *Iterator {
	return newIterator(pointer{raw: b, length: len(b)}, view)
}

// FromChain builds an iterator over length bytes of chain, starting at
// offset off into buf (buf must belong to chain).
func FromChain(chain *buffer.Chain, buf *buffer.Buffer, off, length int, view View) *Iterator {
	return newIterator(pointer{chain: chain, buf: buf, off: off, length: length}, view)
}

func newIterator(start pointer, view View) *Iterator {
	it := &Iterator{startPointer: start}
	it.ResetView(view)
	return it
}

// ResetView rewinds the iterator to the field's start and re-applies view
// interpretation, exactly as if it had just been constructed with view.
func (it *Iterator) ResetView(view View) {
	it.pointer = it.startPointer
	it.view = view
	it.viewInitialize()
	it.viewStartPointer = it.pointer
}

// Reset rewinds the iterator to the start of its current view (not the
// underlying field) without recomputing view interpretation.
func (it *Iterator) Reset() {
	it.pointer = it.viewStartPointer
	it.atPrefix = it.viewPrefix
}

// End reports whether there are no more octets to read.
func (it *Iterator) End() bool {
	return it.pointer.length == 0
}

// Remaining returns the number of octets left to read in the current view.
func (it *Iterator) Remaining() int {
	return it.pointer.length
}

// Octet consumes and returns the next octet, or 0 past the end.
func (it *Iterator) Octet() byte {
	if it.atPrefix {
		it.atPrefix = false
		return it.prefix
	}
	if it.pointer.length == 0 {
		return 0
	}

	result := it.pointer.advanceOctet()

	if it.pointer.length > 0 && it.mode == modeToSlash && it.pointer.currentByte() == '/' {
		it.pointer.length = 0
	}

	return result
}

// Advance skips the next n octets without returning them.
func (it *Iterator) Advance(n uint32) {
	for i := uint32(0); i < n && !it.End(); i++ {
		it.Octet()
	}
}

// Sub returns a new Iterator over the next length octets of the field,
// starting at the current cursor position, sharing the same view/mode but
// with no prefix of its own.
func (it *Iterator) Sub(length uint32) *Iterator {
	start := it.pointer
	start.length = int(length)

	return &Iterator{
		startPointer:     start,
		viewStartPointer: start,
		pointer:          start,
		view:             it.view,
		mode:             it.mode,
	}
}

// Equal reports whether the remaining field, read from its view start,
// equals s exactly.
func (it *Iterator) Equal(s string) bool {
	it.Reset()
	for i := 0; i < len(s); i++ {
		if it.End() || it.Octet() != s[i] {
			return false
		}
	}
	return it.End()
}

// Prefix reports whether the field (from the current cursor) begins with
// prefix. On a match the cursor advances past prefix; on a mismatch the
// cursor is left unchanged.
func (it *Iterator) Prefix(prefix string) bool {
	save := it.pointer
	saveAtPrefix := it.atPrefix

	for i := 0; i < len(prefix); i++ {
		if it.End() || prefix[i] != it.Octet() {
			it.pointer = save
			it.atPrefix = saveAtPrefix
			return false
		}
	}
	return true
}

// Copy materializes the whole current view as a new byte slice. It rewinds
// to the view start first, so octets already consumed are included.
func (it *Iterator) Copy() []byte {
	it.Reset()
	length := 0
	for !it.End() {
		it.Octet()
		length++
	}

	it.Reset()
	out := make([]byte, length)
	for i := range out {
		out[i] = it.Octet()
	}
	return out
}

// IOVec returns the field's bytes as a list of spans into the underlying
// buffer chain, avoiding a copy. It panics if called on a view that emits
// a synthetic prefix byte, since that byte has no place in the chain.
func (it *Iterator) IOVec() [][]byte {
	if it.viewPrefix {
		panic("iterator: IOVec not supported for prefix-emitting views")
	}

	p := it.viewStartPointer
	if p.buf == nil {
		return [][]byte{p.raw[p.off : p.off+p.length]}
	}

	var spans [][]byte
	buf := p.buf
	off := p.off
	remaining := p.length

	for remaining > 0 {
		base := buf.Base()
		avail := len(base) - off
		n := avail
		if n > remaining {
			n = remaining
		}
		spans = append(spans, base[off:off+n])
		remaining -= n
		if remaining > 0 {
			buf = p.chain.Next(buf)
			if buf == nil {
				return nil
			}
			off = 0
		}
	}
	return spans
}
