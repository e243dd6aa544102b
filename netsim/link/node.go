// SPDX-License-Identifier: GPL-3.0-or-later

package link

import (
	"log/slog"

	"github.com/rbmk-project/lansim/errclass"
	"github.com/rbmk-project/lansim/netsim/packet"
	"github.com/rbmk-project/lansim/netsim/world"
)

// Node is a link-layer node: either an [*Endpoint] or a [*Switch].
type Node interface {
	world.Entity
	world.Drawable

	// Fabric returns the fabric the node belongs to.
	Fabric() *Fabric

	// ID returns the node identity within its fabric.
	ID() NodeID

	// HardwareAddr returns the node link-layer address.
	HardwareAddr() packet.HardwareAddr

	// LinkWith returns the link with peer, creating it if needed.
	LinkWith(peer Node) *Link

	// Unlink removes the link with peer and returns whether it existed.
	Unlink(peer Node) bool

	// SendFrame sends a frame. The ingress link is the link where the
	// frame was received, or nil for frames originated locally.
	SendFrame(frame *packet.Frame, ingress *Link)

	// ReceiveFrame is invoked by the link delivering a frame.
	ReceiveFrame(frame *packet.Frame, via *Link)

	// Subscribe registers a handler for the frames delivered upward
	// and returns the function that unregisters it.
	Subscribe(handler FrameHandler) (unsubscribe func())

	// linkRemoved notifies the node that the fabric removed one of its links.
	linkRemoved(lnk *Link)
}

// FrameHandler handles a frame delivered upward by a [Node].
type FrameHandler func(frame *packet.Frame, via *Link)

// subscription is a registered [FrameHandler].
type subscription struct {
	handler FrameHandler
	id      uint64
}

// nodeBase contains the state shared by all the [Node] kinds.
type nodeBase struct {
	// Membership records the owning world.
	world.Membership

	// Promiscuous causes the node to deliver upward every frame it
	// receives, regardless of its destination address.
	Promiscuous bool

	// addr is the link-layer address.
	addr packet.HardwareAddr

	// fabric is the fabric the node belongs to.
	fabric *Fabric

	// hidden controls [world.Drawable] visibility.
	hidden bool

	// id is the node identity.
	id NodeID

	// nextSub is the identifier of the next subscription.
	nextSub uint64

	// pos is the node position for rendering.
	pos world.Vec2

	// self is the concrete node embedding this struct.
	self Node

	// subs contains the subscriptions in registration order.
	subs []subscription
}

// init initializes the base for the given concrete node.
func (n *nodeBase) init(fab *Fabric, self Node, addr packet.HardwareAddr) {
	n.addr = addr
	n.fabric = fab
	n.id = fab.newNodeID()
	n.self = self
}

// Fabric implements [Node].
func (n *nodeBase) Fabric() *Fabric {
	return n.fabric
}

// ID implements [Node].
func (n *nodeBase) ID() NodeID {
	return n.id
}

// HardwareAddr implements [Node].
func (n *nodeBase) HardwareAddr() packet.HardwareAddr {
	return n.addr
}

// SetHardwareAddr changes the node link-layer address.
func (n *nodeBase) SetHardwareAddr(addr packet.HardwareAddr) {
	n.addr = addr
}

// Unlink implements [Node].
func (n *nodeBase) Unlink(peer Node) bool {
	return n.fabric.Disconnect(n.self, peer)
}

// Links returns the links of the node in creation order.
func (n *nodeBase) Links() []*Link {
	return n.fabric.LinksOf(n.self)
}

// Subscribe implements [Node].
func (n *nodeBase) Subscribe(handler FrameHandler) func() {
	n.nextSub++
	id := n.nextSub
	n.subs = append(n.subs, subscription{handler: handler, id: id})
	return func() {
		for idx, sub := range n.subs {
			if sub.id == id {
				n.subs = append(n.subs[:idx:idx], n.subs[idx+1:]...)
				return
			}
		}
	}
}

// addressed returns whether the frame should be delivered upward.
func (n *nodeBase) addressed(frame *packet.Frame) bool {
	return n.Promiscuous || frame.Dst == n.addr
}

// deliverUp invokes the handlers in registration order.
func (n *nodeBase) deliverUp(frame *packet.Frame, via *Link) {
	for _, sub := range append([]subscription{}, n.subs...) {
		sub.handler(frame, via)
	}
}

// logDrop logs that the node dropped the frame because of err.
func (n *nodeBase) logDrop(frame *packet.Frame, err error) {
	n.fabric.world.Log(
		"frameDropped",
		slog.String("node", string(n.addr)),
		slog.String("srcMAC", string(frame.Src)),
		slog.String("dstMAC", string(frame.Dst)),
		slog.Int("size", frame.Size()),
		slog.Any("err", err),
		slog.String("errClass", errclass.New(err)),
	)
}

// transmitHead hands the head of the queue to the link if the slot
// toward the peer is free.
func (n *nodeBase) transmitHead(lnk *Link, queue *Queue) {
	peer := lnk.Other(n.self)
	if !lnk.Free(peer) {
		return
	}
	frame, ok := queue.Dequeue()
	if !ok {
		return
	}
	if _, err := lnk.Transmit(frame, peer); err != nil {
		n.logDrop(frame, err)
	}
}

// Deactivate implements [world.Deactivator] by removing all the links
// of the node, which aborts their transmissions.
func (n *nodeBase) Deactivate() {
	n.fabric.Isolate(n.self)
}

// SetPosition sets the position used for rendering.
func (n *nodeBase) SetPosition(pos world.Vec2) {
	n.pos = pos
}

// Position implements [world.Drawable].
func (n *nodeBase) Position() world.Vec2 {
	return n.pos
}

// SetVisible sets the visibility used for rendering.
func (n *nodeBase) SetVisible(visible bool) {
	n.hidden = !visible
}

// Visible implements [world.Drawable].
func (n *nodeBase) Visible() bool {
	return !n.hidden
}
