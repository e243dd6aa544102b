// SPDX-License-Identifier: GPL-3.0-or-later

package link

import "github.com/rbmk-project/lansim/netsim/packet"

// Endpoint is a [Node] with a single active link and a single bounded
// queue. It consumes the frames addressed to it and never forwards.
//
// Construct using [NewEndpoint].
type Endpoint struct {
	nodeBase

	// queue contains the outgoing frames.
	queue *Queue
}

var _ Node = &Endpoint{}

// NewEndpoint creates a new [*Endpoint] belonging to the given fabric.
func NewEndpoint(fab *Fabric, addr packet.HardwareAddr) *Endpoint {
	ep := &Endpoint{queue: NewQueue(fab.config.QueueCapacity)}
	ep.init(fab, ep, addr)
	return ep
}

// Queue returns the outgoing queue.
func (ep *Endpoint) Queue() *Queue {
	return ep.queue
}

// Link returns the active link, if any.
func (ep *Endpoint) Link() (*Link, bool) {
	links := ep.fabric.adjacency[ep.id]
	if len(links) != 1 {
		return nil, false
	}
	return links[0], true
}

// LinkWith implements [Node]. An endpoint has at most one link:
// linking with a new peer removes the link with the previous peer,
// whichever side creates the new link.
func (ep *Endpoint) LinkWith(peer Node) *Link {
	return ep.fabric.Connect(ep, peer)
}

// SendFrame implements [Node]. The frame is queued and the ingress
// link is ignored. Frames exceeding the queue capacity are dropped.
func (ep *Endpoint) SendFrame(frame *packet.Frame, ingress *Link) {
	if err := ep.queue.Enqueue(frame); err != nil {
		ep.logDrop(frame, err)
	}
}

// ReceiveFrame implements [Node]. Frames addressed to the endpoint and
// broadcast frames are delivered upward, the others are dropped.
func (ep *Endpoint) ReceiveFrame(frame *packet.Frame, via *Link) {
	if !ep.addressed(frame) && !frame.IsBroadcast() {
		ep.logDrop(frame, ErrNotAddressed)
		return
	}
	ep.deliverUp(frame, via)
}

// Update implements [world.Entity]. When the endpoint has exactly one
// link and the slot toward the peer is free, the head frame is
// handed to the link.
func (ep *Endpoint) Update(delta float64) {
	if lnk, ok := ep.Link(); ok {
		ep.transmitHead(lnk, ep.queue)
	}
}

// linkRemoved implements [Node].
func (ep *Endpoint) linkRemoved(lnk *Link) {
	// nothing
}
