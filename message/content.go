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

// Package message implements the lazy AMQP 1.0 section parser and the
// shared, refcounted message content it populates: sections are located
// (not decoded) on demand, in the canonical header → ... → footer order,
// and each section's location is cached so repeated checks at the same or
// shallower depth are free.
package message

import (
	"sync"

	"github.com/packetd/dispatchd/buffer"
)

// Depth is how far into a message's canonical section order Check has
// verified the wire bytes are well-formed.
type Depth int

const (
	DepthNone Depth = iota
	DepthHeader
	DepthDeliveryAnnotations
	DepthMessageAnnotations
	DepthProperties
	DepthApplicationProperties
	DepthBody
	DepthAll
)

// Content is the shared, refcounted state behind every Message handle
// pointing at the same delivery. Every field is guarded by mu; the parse
// cursor and depth advance monotonically and are never rewound short of
// Release.
type Content struct {
	mu       sync.Mutex
	refCount int

	chain                  buffer.Chain
	newDeliveryAnnotations buffer.Chain

	parseDepth Depth
	parseBuf   *buffer.Buffer
	parseOff   int

	sectionHeader                FieldLocation
	sectionDeliveryAnnotations   FieldLocation
	sectionMessageAnnotations    FieldLocation
	sectionProperties            FieldLocation
	sectionApplicationProperties FieldLocation
	sectionBody                  FieldLocation
	sectionFooter                FieldLocation

	fieldTo           FieldLocation
	fieldReplyTo       FieldLocation
	fieldCorrelationID FieldLocation
	fieldUserID        FieldLocation
}

func checkFieldLH(content *Content, depth Depth, longP, shortP, expectedTags []byte, location *FieldLocation, more bool) bool {
	if depth > content.parseDepth {
		if _, ok := checkAndAdvance(content, longP, expectedTags, location); !ok {
			return false
		}
		if _, ok := checkAndAdvance(content, shortP, expectedTags, location); !ok {
			return false
		}
		if !more {
			content.parseDepth = depth
		}
	}
	return true
}

// checkLH walks the section chain up to depth, recording each section's
// FieldLocation as it goes. Must be called with content.mu held.
func checkLH(content *Content, depth Depth) bool {
	if content.chain.First() == nil {
		return false
	}
	if depth <= content.parseDepth {
		return true
	}
	if content.parseBuf == nil {
		content.parseBuf = content.chain.First()
		content.parseOff = 0
	}
	if depth == DepthNone {
		return true
	}

	if !checkFieldLH(content, DepthHeader, msgHdrLong, msgHdrShort, tagsList, &content.sectionHeader, false) {
		return false
	}
	if depth == DepthHeader {
		return true
	}

	if !checkFieldLH(content, DepthDeliveryAnnotations, daLong, daShort, tagsMap, &content.sectionDeliveryAnnotations, false) {
		return false
	}
	if depth == DepthDeliveryAnnotations {
		return true
	}

	if !checkFieldLH(content, DepthMessageAnnotations, maLong, maShort, tagsMap, &content.sectionMessageAnnotations, false) {
		return false
	}
	if depth == DepthMessageAnnotations {
		return true
	}

	if !checkFieldLH(content, DepthProperties, propsLong, propsShort, tagsList, &content.sectionProperties, false) {
		return false
	}
	if depth == DepthProperties {
		return true
	}

	if !checkFieldLH(content, DepthApplicationProperties, apLong, apShort, tagsMap, &content.sectionApplicationProperties, false) {
		return false
	}
	if depth == DepthApplicationProperties {
		return true
	}

	if !checkFieldLH(content, DepthBody, bodyDataLong, bodyDataShort, tagsBinary, &content.sectionBody, true) {
		return false
	}
	if !checkFieldLH(content, DepthBody, bodySeqLong, bodySeqShort, tagsList, &content.sectionBody, true) {
		return false
	}
	if !checkFieldLH(content, DepthBody, bodyValLong, bodyValShort, tagsAny, &content.sectionBody, false) {
		return false
	}
	if depth == DepthBody {
		return true
	}

	if !checkFieldLH(content, DepthAll, footerLong, footerShort, tagsMap, &content.sectionFooter, false) {
		return false
	}

	return true
}
