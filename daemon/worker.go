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
	"github.com/packetd/dispatchd/buffer"
	"github.com/packetd/dispatchd/internal/bufbytes"
	"github.com/packetd/dispatchd/internal/labels"
	"github.com/packetd/dispatchd/internal/rescue"
	"github.com/packetd/dispatchd/iterator"
	"github.com/packetd/dispatchd/logger"
	"github.com/packetd/dispatchd/message"
)

// addressPreviewSize bounds how much of an unroutable address this process
// will copy into a log line. The to field comes off the wire verbatim, so
// logging it without a cap risks an unbounded copy of attacker-controlled
// data.
const addressPreviewSize = 64

// Job is one delivery's worth of work: receive its bytes, check it well
// formed, resolve its routing key, and (if Outbound is non-nil) send it
// back out once fully received.
type Job struct {
	// ID identifies the connection/delivery this Job belongs to. Every Job
	// sharing an ID is routed to the same worker, so Submit's consistent
	// hash is the mechanism behind "at most one thread active per
	// connection" rather than a lock on the Message itself.
	ID       string
	Delivery message.Delivery
	Outbound message.Outbound
}

// hashDeliveryID hashes id the same way Submit does, so a Job's routing
// decision is reproducible outside of Submit (tests, introspection).
func hashDeliveryID(id string) uint64 {
	return labels.Labels{{Name: "delivery_id", Value: id}}.Hash()
}

// Submit routes job to a worker by hashing its ID, so every Job for the
// same connection lands on the same worker channel and is therefore
// handled by at most one goroutine at a time.
func (d *Daemon) Submit(job Job) {
	if len(d.workers) == 0 {
		return
	}
	idx := hashDeliveryID(job.ID) % uint64(len(d.workers))
	d.workers[idx] <- job
}

func (d *Daemon) runWorker(jobs <-chan Job) {
	pool := buffer.NewPool()
	for {
		select {
		case job := <-jobs:
			d.handle(job, pool)

		case <-d.ctx.Done():
			return
		}
	}
}

func (d *Daemon) handle(job Job, pool *buffer.Pool) {
	defer rescue.HandleCrash()

	msg := message.New()
	defer msg.Release(pool)

	for {
		done, err := message.Receive(msg, job.Delivery, pool)
		if err != nil {
			return
		}
		if done {
			break
		}
	}

	if !msg.Check(message.DepthProperties) {
		return
	}
	handledDeliveries.Inc()

	d.route(msg)

	if job.Outbound != nil {
		_ = message.Send(msg, job.Outbound)
	}
}

// route resolves the message's to field against the router table using
// the same ADDRESS_HASH view a real next-hop policy layer would consult,
// and records whether anything is bound to it. It does not forward the
// message anywhere; no forwarding/next-hop policy lives in this package.
func (d *Daemon) route(msg *message.Message) {
	it, ok := msg.FieldIterator(message.FieldTo)
	if !ok {
		return
	}
	it.ResetView(iterator.ViewAddressHash)

	links := d.table.LookupIterator(it)
	if len(links) == 0 {
		unroutableDeliveries.Inc()
		logger.Debugf("unroutable delivery, to=%q", addressPreview(it))
		return
	}
	routedDeliveries.Inc()
}

// addressPreview keeps at most addressPreviewSize bytes of it for a log
// line. The whole address is still copied out of the chain first; only the
// logged text is capped.
func addressPreview(it *iterator.Iterator) string {
	preview := bufbytes.New(addressPreviewSize)
	preview.Write(it.Copy())
	return preview.TrimCStringText()
}
