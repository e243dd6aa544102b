// SPDX-License-Identifier: GPL-3.0-or-later

package link

import (
	"log/slog"

	"github.com/rbmk-project/common/runtimex"
	"github.com/rbmk-project/lansim/netsim/packet"
)

// Switch is a learning [Node] forwarding frames between its links.
//
// The switch learns on which link each source address lives, unicasts
// frames toward learned destinations and floods the others. Each link
// has its own bounded queue, served head-of-line.
//
// Construct using [NewSwitch].
type Switch struct {
	nodeBase

	// learned maps link-layer addresses to the link toward them.
	learned map[packet.HardwareAddr]*Link

	// queues contains the per-link outgoing queues.
	queues map[*Link]*Queue
}

var _ Node = &Switch{}

// NewSwitch creates a new [*Switch] belonging to the given fabric.
func NewSwitch(fab *Fabric, addr packet.HardwareAddr) *Switch {
	sw := &Switch{
		learned: map[packet.HardwareAddr]*Link{},
		queues:  map[*Link]*Queue{},
	}
	sw.init(fab, sw, addr)
	return sw
}

// LinkWith implements [Node].
func (sw *Switch) LinkWith(peer Node) *Link {
	return sw.fabric.Connect(sw, peer)
}

// Lookup returns the link where the given address was learned.
func (sw *Switch) Lookup(addr packet.HardwareAddr) (*Link, bool) {
	lnk, ok := sw.learned[addr]
	return lnk, ok
}

// QueueFor returns the outgoing queue of the given link, creating it
// if needed. This method panics if lnk is not a link of the switch.
func (sw *Switch) QueueFor(lnk *Link) *Queue {
	lnk.MustIndexOf(sw)
	runtimex.Assert(lnk.Up(), "link: QueueFor called with a removed link")
	queue := sw.queues[lnk]
	if queue == nil {
		queue = NewQueue(sw.fabric.config.QueueCapacity)
		sw.queues[lnk] = queue
	}
	return queue
}

// ReceiveFrame implements [Node]. The switch learns that the frame
// source lives behind via, forwards frames not addressed to itself,
// and delivers upward frames addressed to itself.
func (sw *Switch) ReceiveFrame(frame *packet.Frame, via *Link) {
	if via != nil && !frame.Src.IsBroadcast() {
		sw.learned[frame.Src] = via
	}
	if frame.IsBroadcast() || frame.Dst != sw.addr {
		sw.SendFrame(frame, via)
	}
	if sw.addressed(frame) {
		sw.deliverUp(frame, via)
	}
}

// SendFrame implements [Node]. Frames toward learned destinations are
// queued on the learned link, the others are flooded to every link
// except the ingress link, each link receiving its own copy.
func (sw *Switch) SendFrame(frame *packet.Frame, ingress *Link) {
	if !frame.IsBroadcast() {
		if lnk, ok := sw.learned[frame.Dst]; ok {
			if lnk.Up() {
				sw.enqueue(lnk, frame)
				return
			}
			delete(sw.learned, frame.Dst)
		}
	}
	sw.fabric.world.Log(
		"frameFlooded",
		slog.String("node", string(sw.addr)),
		slog.String("dstMAC", string(frame.Dst)),
	)
	for _, lnk := range sw.fabric.adjacency[sw.id] {
		if lnk != ingress {
			sw.enqueue(lnk, frame.Clone())
		}
	}
}

// enqueue queues the frame on the given link, dropping it if the queue is full.
func (sw *Switch) enqueue(lnk *Link, frame *packet.Frame) {
	if err := sw.QueueFor(lnk).Enqueue(frame); err != nil {
		sw.logDrop(frame, err)
	}
}

// Update implements [world.Entity]. For each link, in creation order,
// the head frame of its queue is transmitted if the slot toward the
// peer is free.
func (sw *Switch) Update(delta float64) {
	for _, lnk := range sw.fabric.LinksOf(sw) {
		if queue := sw.queues[lnk]; queue != nil {
			sw.transmitHead(lnk, queue)
		}
	}
}

// linkRemoved implements [Node] by forgetting the queue of the link
// and the addresses learned on it.
func (sw *Switch) linkRemoved(lnk *Link) {
	delete(sw.queues, lnk)
	for addr, learned := range sw.learned {
		if learned == lnk {
			delete(sw.learned, addr)
		}
	}
}
