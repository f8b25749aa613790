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

// Package dispatchtest provides fixture implementations of message.Delivery
// and message.Outbound for exercising the receive/send pipeline without a
// real transport driver.
package dispatchtest

import (
	"io"

	"github.com/packetd/dispatchd/common"
	"github.com/packetd/dispatchd/internal/zerocopy"
)

// Delivery feeds a fixed byte slice to message.Receive in chunks of up to
// common.ReadWriteBlockSize, backed by a zerocopy.Buffer: each chunk is a
// sub-slice of the fixture, which Recv then copies into the caller's buf.
type Delivery struct {
	buf zerocopy.Buffer
}

// NewDelivery returns a Delivery that will yield data's bytes and then
// report end-of-stream.
func NewDelivery(data []byte) *Delivery {
	return &Delivery{buf: zerocopy.NewBuffer(data)}
}

// Recv implements message.Delivery.
func (d *Delivery) Recv(buf []byte) (int, bool, error) {
	n := len(buf)
	if n > common.ReadWriteBlockSize {
		n = common.ReadWriteBlockSize
	}

	chunk, err := d.buf.Read(n)
	if err == io.EOF {
		return 0, true, nil
	}
	if err != nil {
		return 0, false, err
	}

	copy(buf, chunk)
	return len(chunk), false, nil
}

// Outbound collects every span message.Send writes, for assertions against
// the wire bytes a real transport driver would have put on the link.
type Outbound struct {
	spans [][]byte
}

// NewOutbound returns an empty Outbound.
func NewOutbound() *Outbound {
	return &Outbound{}
}

// Write implements message.Outbound. It copies p, since callers (message.
// Send) may reuse or free the underlying buffer once Write returns.
func (o *Outbound) Write(p []byte) error {
	o.spans = append(o.spans, append([]byte(nil), p...))
	return nil
}

// Bytes concatenates every span written so far.
func (o *Outbound) Bytes() []byte {
	var total int
	for _, s := range o.spans {
		total += len(s)
	}
	out := make([]byte, 0, total)
	for _, s := range o.spans {
		out = append(out, s...)
	}
	return out
}

// Spans returns the individual spans message.Send wrote, in order: useful
// for asserting that a delivery-annotations splice produced the expected
// number of separate writes rather than one coalesced span.
func (o *Outbound) Spans() [][]byte {
	return o.spans
}
