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

// Delivery is the minimal surface Receive needs from the excluded
// transport/connection driver: pull up to len(buf) bytes of the next
// delivery's content into buf. eos reports that the delivery is complete
// (no more bytes will ever arrive); n may be 0 with eos false to mean "no
// data available right now, try again later".
type Delivery interface {
	Recv(buf []byte) (n int, eos bool, err error)
}

// Outbound is the minimal surface Send needs from the excluded transport
// driver: accept one contiguous span of a message's wire bytes.
type Outbound interface {
	Write(p []byte) error
}

// Receive pulls bytes from delivery into msg's buffer chain until the
// delivery reports end-of-stream (done == true) or has no more data
// available right now (done == false, call Receive again once more bytes
// may have arrived). msg must have been created with New.
func Receive(msg *Message, delivery Delivery, pool *buffer.Pool) (done bool, err error) {
	content := msg.content

	buf := content.chain.Last()
	if buf == nil {
		buf = pool.Alloc()
		content.chain.Append(buf)
	}

	for {
		n, eos, rerr := delivery.Recv(buf.Cursor())
		if rerr != nil {
			return false, rerr
		}

		if eos {
			content.chain.DropLastIfEmpty(pool)
			return true, nil
		}

		if n > 0 {
			buf.Insert(n)
			if buf.Capacity() == 0 {
				buf = pool.Alloc()
				content.chain.Append(buf)
			}
			continue
		}

		return false, nil
	}
}

func writeSpans(w *walker, consume int, out Outbound) error {
	var writeErr error
	w.consumeSpans(consume, func(span []byte) {
		if writeErr != nil || len(span) == 0 {
			return
		}
		writeErr = out.Write(span)
	})
	return writeErr
}

// Send streams msg's wire bytes to out. If SetDeliveryAnnotations was
// called, the message header is sent first, then the replacement
// delivery-annotations buffers, then the rest of the message with the
// original delivery-annotations section skipped over, so the wire image
// never contains both the old and new annotations.
func Send(msg *Message, out Outbound) error {
	content := msg.content

	if content.newDeliveryAnnotations.Len() > 0 {
		ok := msg.Check(DepthDeliveryAnnotations)
		if !ok {
			return ErrIncompleteSplice
		}

		var w walker
		first := content.chain.First()

		if content.sectionHeader.Length > 0 {
			w = walkerAt(&content.chain, content.sectionHeader)
			total := content.sectionHeader.Length + content.sectionHeader.HdrLength
			if err := writeSpans(&w, total, out); err != nil {
				return err
			}
		} else {
			w = walker{chain: &content.chain, buf: first, off: 0}
		}

		for b := content.newDeliveryAnnotations.First(); b != nil; b = content.newDeliveryAnnotations.Next(b) {
			if err := out.Write(b.Base()); err != nil {
				return err
			}
		}

		if content.sectionDeliveryAnnotations.Length > 0 {
			w.consumeSpans(content.sectionDeliveryAnnotations.HdrLength+content.sectionDeliveryAnnotations.Length, nil)
		}

		if w.buf != nil {
			base := w.buf.Base()
			if err := out.Write(base[w.off:]); err != nil {
				return err
			}
			for b := content.chain.Next(w.buf); b != nil; b = content.chain.Next(b) {
				if err := out.Write(b.Base()); err != nil {
					return err
				}
			}
		}
		return nil
	}

	for b := content.chain.First(); b != nil; b = content.chain.Next(b) {
		if err := out.Write(b.Base()); err != nil {
			return err
		}
	}
	return nil
}
