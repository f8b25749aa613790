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

package daemon

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"github.com/packetd/dispatchd/common"
	"github.com/packetd/dispatchd/confengine"
	"github.com/packetd/dispatchd/dispatchtest"
	"github.com/packetd/dispatchd/message"
	"github.com/packetd/dispatchd/router"
)

const testConfig = `
logger:
  level: debug
server:
  enabled: false
daemon:
  area: area1
  router: router1
  workers: 2
`

func newTestDaemon(t *testing.T) *Daemon {
	t.Helper()
	conf, err := confengine.LoadContent([]byte(testConfig))
	require.NoError(t, err)

	d, err := New(conf, common.GetBuildInfo())
	require.NoError(t, err)
	require.NoError(t, d.Start())
	t.Cleanup(d.Stop)
	return d
}

func waitForCount(t *testing.T, before float64, get func() float64, timeout time.Duration) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if get() > before {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("counter did not advance past %v within %s", before, timeout)
}

func TestSubmitRoutesBoundAddress(t *testing.T) {
	d := newTestDaemon(t)
	// "M" is the mobile/plain ADDRESS_HASH scope prefix ViewAddressHash
	// produces for an address with no _local/_topo scheme (see
	// iterator.parseAddressView): the router table is keyed by that
	// prefixed form, not the bare address string.
	d.BindLink("Mfixture-addr", router.LinkID(1))

	beforeHandled := testutil.ToFloat64(handledDeliveries)
	beforeRouted := testutil.ToFloat64(routedDeliveries)

	composed := message.Compose1(d.Pool(), "fixture-addr", []byte("payload"))
	out := dispatchtest.NewOutbound()
	require.NoError(t, message.Send(composed, out))
	composed.Release(d.Pool())

	d.Submit(Job{
		ID:       "conn-1",
		Delivery: dispatchtest.NewDelivery(out.Bytes()),
		Outbound: dispatchtest.NewOutbound(),
	})

	waitForCount(t, beforeHandled, func() float64 { return testutil.ToFloat64(handledDeliveries) }, time.Second)
	waitForCount(t, beforeRouted, func() float64 { return testutil.ToFloat64(routedDeliveries) }, time.Second)
}

func TestSubmitUnboundAddressIsUnroutable(t *testing.T) {
	d := newTestDaemon(t)

	beforeUnroutable := testutil.ToFloat64(unroutableDeliveries)

	composed := message.Compose1(d.Pool(), "nobody-home", []byte("payload"))
	out := dispatchtest.NewOutbound()
	require.NoError(t, message.Send(composed, out))
	composed.Release(d.Pool())

	d.Submit(Job{
		ID:       "conn-2",
		Delivery: dispatchtest.NewDelivery(out.Bytes()),
	})

	waitForCount(t, beforeUnroutable, func() float64 { return testutil.ToFloat64(unroutableDeliveries) }, time.Second)
}

func TestSubmitIsStableForSameID(t *testing.T) {
	d := newTestDaemon(t)
	require.Len(t, d.workers, 2)

	h1 := workerIndexFor(d, "same-connection")
	h2 := workerIndexFor(d, "same-connection")
	require.Equal(t, h1, h2)
}

func workerIndexFor(d *Daemon, id string) uint64 {
	h := hashDeliveryID(id)
	return h % uint64(len(d.workers))
}

func TestBindLinkPublishesChangeToSubscribers(t *testing.T) {
	d := newTestDaemon(t)

	queue := d.changes.Subscribe(1)
	defer d.changes.Unsubscribe(queue)

	d.BindLink("watched-addr", router.LinkID(7))

	data, ok := queue.PopTimeout(time.Second)
	require.True(t, ok)
	change, ok := data.(routerChange)
	require.True(t, ok)
	require.Equal(t, routerChange{Address: "watched-addr", Link: router.LinkID(7), Bound: true}, change)

	d.UnbindLink("watched-addr", router.LinkID(7))
	data, ok = queue.PopTimeout(time.Second)
	require.True(t, ok)
	change, ok = data.(routerChange)
	require.True(t, ok)
	require.False(t, change.Bound)
}
