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

import "github.com/packetd/dispatchd/buffer"

// FieldLocation is a by-reference pointer into a message's buffer chain:
// where a section or properties-list field starts, how long its tag
// header is, and how long its body is. Parsed is set exactly once, the
// first time the field is located, so callers can avoid re-walking the
// properties list on every lookup.
type FieldLocation struct {
	Buffer    *buffer.Buffer
	Offset    int
	Length    int
	HdrLength int
	Parsed    bool
}

// walker is a cursor into a buffer chain used only during parsing; unlike
// iterator.Iterator it has no views or prefixes; it exists to let
// traverseField/startList/checkAndAdvance mutate a cursor by value, so a
// failed attempt costs nothing.
type walker struct {
	chain *buffer.Chain
	buf   *buffer.Buffer
	off   int
}

func walkerAt(chain *buffer.Chain, loc FieldLocation) walker {
	return walker{chain: chain, buf: loc.Buffer, off: loc.Offset}
}

// consumeSpans advances the cursor by consume bytes, invoking fn (if
// non-nil) with each contiguous span as it crosses buffer boundaries. It
// eagerly steps onto the next buffer the instant a buffer's remaining
// bytes are exactly exhausted.
func (w *walker) consumeSpans(consume int, fn func(span []byte)) {
	for consume > 0 {
		if w.buf == nil {
			return
		}
		base := w.buf.Base()
		remaining := len(base) - w.off
		if consume < remaining {
			if fn != nil {
				fn(base[w.off : w.off+consume])
			}
			w.off += consume
			consume = 0
		} else {
			if fn != nil {
				fn(base[w.off:])
			}
			consume -= remaining
			w.buf = w.chain.Next(w.buf)
			if w.buf == nil {
				w.off = 0
				return
			}
			w.off = 0
		}
	}
}

// nextOctet consumes and returns one byte, reporting false if the cursor
// has run out of data.
func (w *walker) nextOctet() (byte, bool) {
	if w.buf == nil {
		return 0, false
	}
	b := w.buf.Base()[w.off]
	w.consumeSpans(1, nil)
	return b, true
}

// traverseField reads one AMQP primitive's tag and length, advances past
// its body, and, if field is non-nil and not already parsed, records its
// location. Passing a nil field skips recording (used for properties the
// router never needs, like message-id).
func traverseField(w *walker, field *FieldLocation) bool {
	startBuf, startOff := w.buf, w.off

	tag, ok := w.nextOctet()
	if !ok {
		return false
	}

	hdrLength := 1
	consume := 0

	switch tag & 0xF0 {
	case 0x40:
		consume = 0
	case 0x50:
		consume = 1
	case 0x60:
		consume = 2
	case 0x70:
		consume = 4
	case 0x80:
		consume = 8
	case 0x90:
		consume = 16

	case 0xB0, 0xD0, 0xF0:
		hdrLength += 3
		for i := 0; i < 3; i++ {
			b, ok := w.nextOctet()
			if !ok {
				return false
			}
			consume = consume<<8 | int(b)
		}
		fallthrough

	case 0xA0, 0xC0, 0xE0:
		hdrLength++
		b, ok := w.nextOctet()
		if !ok {
			return false
		}
		consume = consume<<8 | int(b)
	}

	if field != nil && !field.Parsed {
		field.Buffer = startBuf
		field.Offset = startOff
		field.Length = consume
		field.HdrLength = hdrLength
		field.Parsed = true
	}

	w.consumeSpans(consume, nil)
	return true
}

// startList reads a list's tag and, for list8/list32, its size and
// element count, returning the element count (0 for list0).
func startList(w *walker) (count int, ok bool) {
	tag, ok := w.nextOctet()
	if !ok {
		return 0, false
	}

	switch tag {
	case 0x45: // list0
		return 0, true

	case 0xd0: // list32
		for i := 0; i < 4; i++ { // length, unused
			if _, ok := w.nextOctet(); !ok {
				return 0, false
			}
		}
		for i := 0; i < 4; i++ {
			b, ok := w.nextOctet()
			if !ok {
				return 0, false
			}
			count = count<<8 | int(b)
		}
		return count, true

	case 0xc0: // list8
		if _, ok := w.nextOctet(); !ok { // length, unused
			return 0, false
		}
		b, ok := w.nextOctet()
		if !ok {
			return 0, false
		}
		return int(b), true
	}

	return 0, true
}

// checkAndAdvance tests whether content's current parse cursor begins
// with pattern; if so, it verifies the following tag is one of
// expectedTags, records the section in location, and advances the
// persistent parse cursor past the whole section.
//
// matched reports whether the section was found (false just means the
// pattern didn't match, try the other length form). ok is false only for
// a genuine parse error (unexpected tag, or a duplicate section), which
// should abort the whole check() call.
func checkAndAdvance(content *Content, pattern, expectedTags []byte, location *FieldLocation) (matched, ok bool) {
	if content.parseBuf == nil {
		return false, true
	}

	test := walker{chain: &content.chain, buf: content.parseBuf, off: content.parseOff}

	for idx := 0; idx < len(pattern); idx++ {
		if test.buf == nil {
			return false, true
		}
		if test.buf.Base()[test.off] != pattern[idx] {
			return false, true
		}
		test.consumeSpans(1, nil)
	}

	if test.buf == nil {
		return false, true
	}
	tagByte := test.buf.Base()[test.off]

	found := false
	for _, et := range expectedTags {
		if et == tagByte {
			found = true
			break
		}
	}
	if !found {
		return false, false
	}
	if location.Parsed {
		return false, false
	}

	location.Parsed = true
	location.Buffer = content.parseBuf
	location.Offset = content.parseOff
	location.Length = 0
	location.HdrLength = len(pattern)

	preConsume := 1
	consume := 0
	tag, ok := test.nextOctet()
	if !ok {
		return false, false
	}

	switch tag {
	case 0x45: // list0

	case 0xd0, 0xd1, 0xb0: // list32, map32, vbin32
		preConsume += 3
		for i := 0; i < 3; i++ {
			b, ok := test.nextOctet()
			if !ok {
				return false, false
			}
			consume = consume<<8 | int(b)
		}
		fallthrough

	case 0xc0, 0xc1, 0xa0: // list8, map8, vbin8
		preConsume++
		b, ok := test.nextOctet()
		if !ok {
			return false, false
		}
		consume = consume<<8 | int(b)
	}

	location.Length = preConsume + consume
	if consume > 0 {
		test.consumeSpans(consume, nil)
	}

	content.parseBuf, content.parseOff = test.buf, test.off
	return true, true
}
