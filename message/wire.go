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

// Section preamble codes, the last byte of both the long and short
// described-type forms.
const (
	sectionHeader               = 0x70
	sectionDeliveryAnnotations  = 0x71
	sectionMessageAnnotations   = 0x72
	sectionProperties           = 0x73
	sectionApplicationProps     = 0x74
	sectionBodyData             = 0x75
	sectionBodySequence         = 0x76
	sectionBodyValue            = 0x77
	sectionFooter               = 0x78
)

func longPattern(code byte) []byte {
	return []byte{0x00, 0x80, 0, 0, 0, 0, 0, 0, 0, code}
}

func shortPattern(code byte) []byte {
	return []byte{0x00, 0x53, code}
}

var (
	msgHdrLong   = longPattern(sectionHeader)
	msgHdrShort  = shortPattern(sectionHeader)
	daLong       = longPattern(sectionDeliveryAnnotations)
	daShort      = shortPattern(sectionDeliveryAnnotations)
	maLong       = longPattern(sectionMessageAnnotations)
	maShort      = shortPattern(sectionMessageAnnotations)
	propsLong    = longPattern(sectionProperties)
	propsShort   = shortPattern(sectionProperties)
	apLong       = longPattern(sectionApplicationProps)
	apShort      = shortPattern(sectionApplicationProps)
	bodyDataLong = longPattern(sectionBodyData)
	bodyDataShort = shortPattern(sectionBodyData)
	bodySeqLong  = longPattern(sectionBodySequence)
	bodySeqShort = shortPattern(sectionBodySequence)
	bodyValLong  = longPattern(sectionBodyValue)
	bodyValShort = shortPattern(sectionBodyValue)
	footerLong   = longPattern(sectionFooter)
	footerShort  = shortPattern(sectionFooter)

	tagsList   = []byte{0x45, 0xc0, 0xd0}
	tagsMap    = []byte{0xc1, 0xd1}
	tagsBinary = []byte{0xa0, 0xb0}
	tagsAny    = []byte{0x45, 0xc0, 0xd0, 0xc1, 0xd1, 0xa0, 0xb0}
)
