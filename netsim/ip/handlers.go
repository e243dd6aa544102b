// SPDX-License-Identifier: GPL-3.0-or-later

package ip

import (
	"github.com/rbmk-project/lansim/netsim/link"
	"github.com/rbmk-project/lansim/netsim/packet"
)

// DatagramHandler handles a datagram received through an [*Interface].
type DatagramHandler func(datagram *packet.Datagram, frame *packet.Frame, ifc *Interface)

// handlerEntry is a registered [DatagramHandler].
type handlerEntry struct {
	handler DatagramHandler
	id      uint64
}

// handlers is an ordered registry of [DatagramHandler].
//
// The zero value is ready to use.
type handlers struct {
	entries []handlerEntry
	next    uint64
}

// add registers a handler and returns the function removing it.
func (hs *handlers) add(handler DatagramHandler) func() {
	hs.next++
	id := hs.next
	hs.entries = append(hs.entries, handlerEntry{handler: handler, id: id})
	return func() {
		for idx, entry := range hs.entries {
			if entry.id == id {
				hs.entries = append(hs.entries[:idx:idx], hs.entries[idx+1:]...)
				return
			}
		}
	}
}

// invoke calls the handlers in registration order.
func (hs *handlers) invoke(datagram *packet.Datagram, frame *packet.Frame, ifc *Interface) {
	for _, entry := range append([]handlerEntry{}, hs.entries...) {
		entry.handler(datagram, frame, ifc)
	}
}

// frameHandler adapts a frame subscription to an [*Interface].
func (ifc *Interface) frameHandler(frame *packet.Frame, via *link.Link) {
	datagram := frame.Datagram
	if datagram == nil {
		return
	}
	ifc.datagrams.invoke(datagram, frame, ifc)
	if datagram.IsResolution() {
		ifc.resolutions.invoke(datagram, frame, ifc)
	}
}
