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

// Compose assembles a brand new message whose wire bytes are the
// concatenation of sections (each already fully encoded, including its
// section preamble; see HeaderSection/PropertiesSection/BodyDataSection),
// copying them into freshly allocated buffers from pool.
func Compose(pool *buffer.Pool, sections ...[]byte) *Message {
	msg := New()
	buf := pool.Alloc()
	msg.content.chain.Append(buf)

	for _, section := range sections {
		remaining := section
		for len(remaining) > 0 {
			if buf.Capacity() == 0 {
				buf = pool.Alloc()
				msg.content.chain.Append(buf)
			}
			n := copy(buf.Cursor(), remaining)
			buf.Insert(n)
			remaining = remaining[n:]
		}
	}

	return msg
}

// Compose1 builds a minimal non-durable message addressed to "to" and,
// if body is non-nil, carrying it as a single body-data section.
func Compose1(pool *buffer.Pool, to string, body []byte) *Message {
	sections := [][]byte{HeaderSection(false), PropertiesSection(to)}
	if body != nil {
		sections = append(sections, BodyDataSection(body))
	}
	return Compose(pool, sections...)
}
