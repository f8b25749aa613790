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

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/packetd/dispatchd/buffer"
)

func TestOctetAndEnd(t *testing.T) {
	it := FromString("abc", ViewAll)
	assert.False(t, it.End())
	assert.Equal(t, byte('a'), it.Octet())
	assert.Equal(t, byte('b'), it.Octet())
	assert.Equal(t, byte('c'), it.Octet())
	assert.True(t, it.End())
}

func TestEqualAndCopy(t *testing.T) {
	it := FromString("my-address", ViewAll)
	assert.True(t, it.Equal("my-address"))
	assert.False(t, it.Equal("other"))

	it.Reset()
	assert.Equal(t, []byte("my-address"), it.Copy())
}

func TestPrefixAdvancesOnMatchAndRestoresOnMismatch(t *testing.T) {
	it := FromString("topo/all/foo", ViewAll)
	assert.True(t, it.Prefix("topo/"))
	assert.True(t, it.Prefix("all/"))
	assert.Equal(t, "foo", string(it.Sub(uint32(it.Remaining())).Copy()))

	it2 := FromString("topo/all/foo", ViewAll)
	assert.False(t, it2.Prefix("nope"))
	assert.Equal(t, "topo/all/foo", string(it2.Sub(uint32(it2.Remaining())).Copy()))
}

func TestSubProducesIndependentIterator(t *testing.T) {
	it := FromString("0123456789", ViewAll)
	it.Advance(2)
	sub := it.Sub(3)

	assert.Equal(t, "234", string(sub.Copy()))
	// The parent iterator's cursor is unaffected by reading the sub.
	assert.Equal(t, byte('2'), it.Octet())
}

func TestAddressHashLocalView(t *testing.T) {
	SetAddress("area1", "routerA")
	defer SetAddress("", "")

	it := FromString("_local/my-queue", ViewAddressHash)
	got := it.Copy()
	assert.Equal(t, "Lmy-queue", string(got))
}

func TestAddressHashTopoAllView(t *testing.T) {
	SetAddress("area1", "routerA")
	defer SetAddress("", "")

	it := FromString("_topo/all/all/service", ViewAddressHash)
	assert.Equal(t, "Lservice", string(it.Copy()))
}

func TestAddressHashTopoOtherAreaView(t *testing.T) {
	SetAddress("area1", "routerA")
	defer SetAddress("", "")

	it := FromString("_topo/area2/routerB/service", ViewAddressHash)
	assert.Equal(t, "Aarea2", string(it.Copy()))
}

func TestAddressHashMobileView(t *testing.T) {
	SetAddress("area1", "routerA")
	defer SetAddress("", "")

	it := FromString("my-mobile-address", ViewAddressHash)
	assert.Equal(t, "Mmy-mobile-address", string(it.Copy()))
}

func TestNodeHashSameArea(t *testing.T) {
	SetAddress("area1", "routerA")
	defer SetAddress("", "")

	it := FromString("area1/routerB", ViewNodeHash)
	assert.Equal(t, "RrouterB", string(it.Copy()))
}

func TestIteratorOverBufferChain(t *testing.T) {
	pool := buffer.NewPool()
	a := pool.Alloc()
	b := pool.Alloc()
	a.Insert(copy(a.Cursor(), []byte("hello ")))
	b.Insert(copy(b.Cursor(), []byte("world")))

	var chain buffer.Chain
	chain.Append(a)
	chain.Append(b)

	it := FromChain(&chain, a, 0, 11, ViewAll)
	assert.Equal(t, "hello world", string(it.Copy()))

	spans := it.IOVec()
	assert.Len(t, spans, 2)
	assert.Equal(t, "hello ", string(spans[0]))
	assert.Equal(t, "world", string(spans[1]))
}

func TestIOVecPanicsOnPrefixView(t *testing.T) {
	SetAddress("area1", "routerA")
	defer SetAddress("", "")

	it := FromString("my-mobile-address", ViewAddressHash)
	assert.Panics(t, func() {
		it.IOVec()
	})
}
