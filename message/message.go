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

package message

import (
	"github.com/packetd/dispatchd/buffer"
	"github.com/packetd/dispatchd/iterator"
)

// Field names a lazily-located message field or section.
type Field int

const (
	FieldTo Field = iota
	FieldReplyTo
	FieldCorrelationID
	FieldUserID
	FieldDeliveryAnnotation
	FieldApplicationProperties
	FieldBody
)

// Message is a handle onto shared Content. Multiple handles may share one
// Content (see Copy); the content and its buffers are released back to
// the pool only when the last handle is released.
type Message struct {
	content *Content
}

// New creates a fresh, empty message with one reference.
func New() *Message {
	return &Message{content: &Content{refCount: 1}}
}

// Copy returns a new handle sharing this message's content, incrementing
// its reference count.
func (m *Message) Copy() *Message {
	m.content.mu.Lock()
	m.content.refCount++
	m.content.mu.Unlock()
	return &Message{content: m.content}
}

// Release decrements the reference count and, if it reaches zero, returns
// every buffer the content holds back to pool.
func (m *Message) Release(pool *buffer.Pool) {
	m.content.mu.Lock()
	m.content.refCount--
	rc := m.content.refCount
	m.content.mu.Unlock()

	if rc == 0 {
		m.content.chain.Release(pool)
		m.content.newDeliveryAnnotations.Release(pool)
	}
}

// Check verifies the message is well-formed up to depth, parsing any
// not-yet-visited sections along the way. It is safe to call repeatedly;
// depths already checked are free. It returns false if the bytes seen so
// far are malformed, or if depth requires data not yet received.
func (m *Message) Check(depth Depth) bool {
	m.content.mu.Lock()
	defer m.content.mu.Unlock()
	return checkLH(m.content, depth)
}

func fieldLocation(content *Content, field Field) *FieldLocation {
	switch field {
	case FieldTo:
		for {
			if content.fieldTo.Parsed {
				return &content.fieldTo
			}
			if !content.sectionProperties.Parsed {
				break
			}
			w := walkerAt(&content.chain, content.sectionProperties)
			w.consumeSpans(content.sectionProperties.HdrLength, nil)
			count, ok := startList(&w)
			if !ok || count < 3 {
				break
			}
			if !traverseField(&w, nil) { // message-id
				return nil
			}
			if !traverseField(&w, &content.fieldUserID) {
				return nil
			}
			if !traverseField(&w, &content.fieldTo) {
				return nil
			}
		}

	case FieldReplyTo:
		for {
			if content.fieldReplyTo.Parsed {
				return &content.fieldReplyTo
			}
			if !content.sectionProperties.Parsed {
				break
			}
			w := walkerAt(&content.chain, content.sectionProperties)
			w.consumeSpans(content.sectionProperties.HdrLength, nil)
			count, ok := startList(&w)
			if !ok || count < 5 {
				break
			}
			if !traverseField(&w, nil) { // message-id
				return nil
			}
			if !traverseField(&w, &content.fieldUserID) {
				return nil
			}
			if !traverseField(&w, &content.fieldTo) {
				return nil
			}
			if !traverseField(&w, nil) { // subject
				return nil
			}
			if !traverseField(&w, &content.fieldReplyTo) {
				return nil
			}
		}

	case FieldCorrelationID:
		for {
			if content.fieldCorrelationID.Parsed {
				return &content.fieldCorrelationID
			}
			if !content.sectionProperties.Parsed {
				break
			}
			w := walkerAt(&content.chain, content.sectionProperties)
			w.consumeSpans(content.sectionProperties.HdrLength, nil)
			count, ok := startList(&w)
			if !ok || count < 6 {
				break
			}
			if !traverseField(&w, nil) { // message-id
				return nil
			}
			if !traverseField(&w, &content.fieldUserID) {
				return nil
			}
			if !traverseField(&w, &content.fieldTo) {
				return nil
			}
			if !traverseField(&w, nil) { // subject
				return nil
			}
			if !traverseField(&w, &content.fieldReplyTo) {
				return nil
			}
			if !traverseField(&w, &content.fieldCorrelationID) {
				return nil
			}
		}

	case FieldUserID:
		if content.fieldUserID.Parsed {
			return &content.fieldUserID
		}

	case FieldDeliveryAnnotation:
		if content.sectionDeliveryAnnotations.Parsed {
			return &content.sectionDeliveryAnnotations
		}

	case FieldApplicationProperties:
		if content.sectionApplicationProperties.Parsed {
			return &content.sectionApplicationProperties
		}

	case FieldBody:
		if content.sectionBody.Parsed {
			return &content.sectionBody
		}
	}

	return nil
}

// FieldLocation resolves field's location among sections already located
// by a prior Check call. It does not check the message to any further
// depth itself: a field whose section hasn't been reached yet is absent,
// not an invitation to parse further. Callers that need a field must
// Check to the matching depth first. It returns false if the field is not
// present (or not yet located).
func (m *Message) FieldLocation(field Field) (FieldLocation, bool) {
	m.content.mu.Lock()
	defer m.content.mu.Unlock()

	loc := fieldLocation(m.content, field)
	if loc == nil {
		return FieldLocation{}, false
	}
	return *loc, true
}

// FieldIterator returns a zero-copy iterator over field's body (excluding
// its tag/length header), or false if the field is absent.
func (m *Message) FieldIterator(field Field) (*iterator.Iterator, bool) {
	loc, ok := m.FieldLocation(field)
	if !ok {
		return nil, false
	}

	w := walkerAt(&m.content.chain, loc)
	w.consumeSpans(loc.HdrLength, nil)
	return iterator.FromChain(&m.content.chain, w.buf, w.off, loc.Length, iterator.ViewAll), true
}

// FieldIteratorTyped returns a zero-copy iterator over field's whole
// encoded span, tag header included.
func (m *Message) FieldIteratorTyped(field Field) (*iterator.Iterator, bool) {
	loc, ok := m.FieldLocation(field)
	if !ok {
		return nil, false
	}
	return iterator.FromChain(&m.content.chain, loc.Buffer, loc.Offset, loc.Length+loc.HdrLength, iterator.ViewAll), true
}

// FieldLength returns field's body length, or -1 if absent.
func (m *Message) FieldLength(field Field) int {
	loc, ok := m.FieldLocation(field)
	if !ok {
		return -1
	}
	return loc.Length
}

// FieldCopy materializes field's whole encoded span (tag header and
// body) as a new byte slice, or nil if absent.
func (m *Message) FieldCopy(field Field) []byte {
	it, ok := m.FieldIteratorTyped(field)
	if !ok {
		return nil
	}
	return it.Copy()
}

// SetDeliveryAnnotations replaces the message's delivery-annotations
// section on send with da. The original section, if any, remains in the
// received buffer chain but Send will splice around it.
func (m *Message) SetDeliveryAnnotations(da *buffer.Chain) {
	m.content.newDeliveryAnnotations = *da
	*da = buffer.Chain{}
}
