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

import "sync"

var (
	addressMu sync.RWMutex
	myArea    = ""
	myRouter  = ""
)

// SetAddress configures this process's area and router identity, used by
// ViewAddressHash and ViewNodeHash to decide whether an address/node is
// local, in-area, or inter-area. It must be called once during daemon
// startup before any hash view is evaluated: area and router are
// process-wide, not per-iterator.
func SetAddress(area, router string) {
	addressMu.Lock()
	defer addressMu.Unlock()
	myArea = area + "/"
	myRouter = router + "/"
}

func currentAddress() (area, router string) {
	addressMu.RLock()
	defer addressMu.RUnlock()
	return myArea, myRouter
}

type scanState int

const (
	stateStart scanState = iota
	stateSlashLeft
	stateSkippingToNextSlash
	stateScanning
	stateColon
	stateColonSlash
	stateAtNodeID
)

// viewInitialize walks the field once to position the cursor on the
// node-id and, for the hash views, to compute the scope prefix.
func (it *Iterator) viewInitialize() {
	it.atPrefix = false
	it.viewPrefix = false
	it.mode = modeToEnd

	if it.view == ViewAll {
		return
	}

	state := stateStart
	var savePointer pointer

	for !it.End() && state != stateAtNodeID {
		octet := it.Octet()
		switch state {
		case stateStart:
			if octet == '/' {
				state = stateSlashLeft
			} else {
				state = stateScanning
			}
		case stateSlashLeft:
			if octet == '/' {
				state = stateSkippingToNextSlash
			} else {
				state = stateAtNodeID
			}
		case stateSkippingToNextSlash:
			if octet == '/' {
				state = stateAtNodeID
			}
		case stateScanning:
			if octet == ':' {
				state = stateColon
			}
		case stateColon:
			if octet == '/' {
				state = stateColonSlash
				savePointer = it.pointer
			} else {
				state = stateScanning
			}
		case stateColonSlash:
			if octet == '/' {
				state = stateSkippingToNextSlash
			} else {
				state = stateAtNodeID
				it.pointer = savePointer
			}
		case stateAtNodeID:
		}
	}

	if state != stateAtNodeID {
		// The address was relative, not absolute: the node-id starts at
		// the beginning of the field.
		it.pointer = it.startPointer
	}

	switch it.view {
	case ViewNodeID:
		it.mode = modeToSlash

	case ViewNoHost:
		it.mode = modeToEnd

	case ViewAddressHash:
		it.mode = modeToEnd
		it.parseAddressView()

	case ViewNodeHash:
		it.mode = modeToEnd
		it.parseNodeView()

	case ViewNodeSpecific:
		it.mode = modeToEnd
		for !it.End() {
			if it.Octet() == '/' {
				break
			}
		}
	}
}

// parseAddressView refines a ViewNoHost-equivalent cursor into the
// router's address-hash scope: local ("_local/..."), topological-all or
// same-area ("L"), same-area-different-router ("R"), different-area
// ("A"), or mobile/plain ("M").
func (it *Iterator) parseAddressView() {
	area, router := currentAddress()

	if it.Prefix("_") {
		if it.Prefix("local/") {
			it.prefix, it.atPrefix, it.viewPrefix = 'L', true, true
			return
		}

		if it.Prefix("topo/") {
			if it.Prefix("all/") || it.Prefix(area) {
				if it.Prefix("all/") || it.Prefix(router) {
					it.prefix, it.atPrefix, it.viewPrefix = 'L', true, true
					return
				}
				it.prefix, it.atPrefix, it.viewPrefix = 'R', true, true
				it.mode = modeToSlash
				return
			}
			it.prefix, it.atPrefix, it.viewPrefix = 'A', true, true
			it.mode = modeToSlash
			return
		}
	}

	it.prefix, it.atPrefix, it.viewPrefix = 'M', true, true
}

// parseNodeView refines a ViewNoHost-equivalent cursor into the router's
// node-hash scope: same-area ("R") or inter-area ("A").
func (it *Iterator) parseNodeView() {
	area, _ := currentAddress()

	if it.Prefix(area) {
		it.prefix, it.atPrefix, it.viewPrefix = 'R', true, true
		it.mode = modeToEnd
		return
	}

	it.prefix, it.atPrefix, it.viewPrefix = 'A', true, true
	it.mode = modeToSlash
}
