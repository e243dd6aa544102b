// SPDX-License-Identifier: GPL-3.0-or-later

package ip

import (
	"fmt"
	"math/bits"

	"github.com/rbmk-project/lansim/netsim/ipv4"
	"github.com/rbmk-project/lansim/netsim/link"
	"github.com/rbmk-project/lansim/netsim/packet"
)

// DefaultMask is the mask of a new [*Interface].
var DefaultMask = ipv4.MaskFromBits(24)

// Interface is a network interface.
//
// Construct using [NewInterface].
type Interface struct {
	// Addr is the interface address.
	Addr ipv4.Addr

	// Mask is the interface subnet mask.
	Mask ipv4.Addr

	// datagrams contains the handlers for every received datagram.
	datagrams handlers

	// node is the bound link-layer node, if any.
	node link.Node

	// owner is the routable node owning the interface, if any.
	owner *core

	// resolutions contains the handlers for address-resolution datagrams.
	resolutions handlers

	// unsubscribe removes the subscription to node.
	unsubscribe func()
}

// NewInterface creates a new unbound [*Interface].
func NewInterface(addr, mask ipv4.Addr) *Interface {
	return &Interface{Addr: addr, Mask: mask}
}

// Bind binds the interface to the given link-layer node, replacing the
// previous binding. A nil node unbinds the interface. When the owner
// of the interface is live, the node is added to the owner world.
func (ifc *Interface) Bind(node link.Node) {
	if ifc.unsubscribe != nil {
		ifc.unsubscribe()
		ifc.unsubscribe = nil
	}
	ifc.node = node
	if node == nil {
		return
	}
	ifc.unsubscribe = node.Subscribe(ifc.frameHandler)
	if ifc.owner != nil {
		if w := ifc.owner.World(); w != nil {
			w.Add(node)
		}
	}
}

// Node returns the bound link-layer node or nil.
func (ifc *Interface) Node() link.Node {
	return ifc.node
}

// HardwareAddr returns the link-layer address of the bound node or
// the empty string if the interface is unbound.
func (ifc *Interface) HardwareAddr() packet.HardwareAddr {
	if ifc.node == nil {
		return ""
	}
	return ifc.node.HardwareAddr()
}

// InSubnet returns whether addr belongs to the interface subnet.
func (ifc *Interface) InSubnet(addr ipv4.Addr) bool {
	return addr.Matches(ifc.Addr, ifc.Mask)
}

// OnDatagram registers a handler invoked for every datagram received
// by the interface and returns the function that unregisters it.
func (ifc *Interface) OnDatagram(handler DatagramHandler) (unsubscribe func()) {
	return ifc.datagrams.add(handler)
}

// OnResolution registers a handler invoked for every address-resolution
// datagram received by the interface and returns the function that
// unregisters it. Handlers registered with [*Interface.OnDatagram] run first.
func (ifc *Interface) OnResolution(handler DatagramHandler) (unsubscribe func()) {
	return ifc.resolutions.add(handler)
}

// String returns the interface address in CIDR notation followed by
// the link-layer address.
func (ifc *Interface) String() string {
	ones := bits.OnesCount32(uint32(ifc.Mask))
	return fmt.Sprintf("%s/%d %s", ifc.Addr, ones, ifc.HardwareAddr())
}
