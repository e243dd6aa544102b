// SPDX-License-Identifier: GPL-3.0-or-later

package ip

import (
	"log/slog"
	"maps"

	"github.com/rbmk-project/lansim/errclass"
	"github.com/rbmk-project/lansim/netsim/ipv4"
	"github.com/rbmk-project/lansim/netsim/link"
	"github.com/rbmk-project/lansim/netsim/packet"
	"github.com/rbmk-project/lansim/netsim/world"
)

// Routable is a network-layer node: either a [*Host] or a [*Router].
type Routable interface {
	world.Entity

	// Interfaces returns the node interfaces.
	Interfaces() []*Interface

	// Route returns the next hop toward the datagram destination. The
	// from interface is the interface where the datagram arrived, or
	// nil for datagrams originated locally.
	Route(datagram *packet.Datagram, from *Interface) (ipv4.Addr, bool)

	// Dispatch sends the datagram toward the given next hop.
	Dispatch(datagram *packet.Datagram, nextHop ipv4.Addr)

	// SendDatagram routes and dispatches the datagram.
	SendDatagram(datagram *packet.Datagram)

	// Send sends the datagram to nextHop using the given interface.
	Send(datagram *packet.Datagram, nextHop ipv4.Addr, ifc *Interface)

	// OnReceive registers a handler for the datagrams delivered
	// locally and returns the function that unregisters it.
	OnReceive(handler DatagramHandler) (unsubscribe func())
}

// positioner is a [link.Node] whose position is settable.
type positioner interface {
	SetPosition(pos world.Vec2)
}

// core contains the state shared by all the [Routable] kinds.
type core struct {
	// Membership records the owning world.
	world.Membership

	// cache maps network addresses to link-layer addresses.
	cache map[ipv4.Addr]packet.HardwareAddr

	// fabric is the link-layer fabric of the interface nodes.
	fabric *link.Fabric

	// hidden controls [world.Drawable] visibility.
	hidden bool

	// interfaces contains the node interfaces.
	interfaces []*Interface

	// pending maps unresolved next hops to the datagrams awaiting them.
	pending map[ipv4.Addr][]*packet.Datagram

	// pos is the node position for rendering.
	pos world.Vec2

	// receivers contains the handlers for datagrams delivered locally.
	receivers handlers

	// self is the concrete node embedding this struct.
	self Routable
}

// init initializes the core for the given concrete node.
func (c *core) init(fab *link.Fabric, self Routable, onDatagram DatagramHandler, interfaces ...*Interface) {
	c.cache = map[ipv4.Addr]packet.HardwareAddr{}
	c.fabric = fab
	c.pending = map[ipv4.Addr][]*packet.Datagram{}
	c.self = self
	for _, ifc := range interfaces {
		c.interfaces = append(c.interfaces, ifc)
		c.attach(ifc, onDatagram)
	}
}

// attach makes the core the owner of the interface.
func (c *core) attach(ifc *Interface, onDatagram DatagramHandler) {
	ifc.owner = c
	ifc.OnDatagram(onDatagram)
	ifc.OnResolution(c.onResolution)
}

// Interfaces implements [Routable].
func (c *core) Interfaces() []*Interface {
	return append([]*Interface{}, c.interfaces...)
}

// OnReceive implements [Routable].
func (c *core) OnReceive(handler DatagramHandler) func() {
	return c.receivers.add(handler)
}

// SendDatagram implements [Routable]. Datagrams without a route are dropped.
func (c *core) SendDatagram(datagram *packet.Datagram) {
	nextHop, ok := c.self.Route(datagram, nil)
	if !ok {
		c.logDrop(datagram, ErrNoRoute)
		return
	}
	c.self.Dispatch(datagram, nextHop)
}

// Send implements [Routable].
//
// When nextHop is in the cache, the datagram is encapsulated and handed
// to the interface node. Otherwise, the node broadcasts a resolution
// request for nextHop and queues the datagram until the reply arrives.
// Datagrams destined to the interface address are dropped.
func (c *core) Send(datagram *packet.Datagram, nextHop ipv4.Addr, ifc *Interface) {
	if ifc.node == nil {
		c.logDrop(datagram, ErrUnbound)
		return
	}
	if datagram.Dst == ifc.Addr {
		c.logDrop(datagram, ErrSelfDelivery)
		return
	}
	if hwaddr, found := c.cache[nextHop]; found {
		ifc.node.SendFrame(packet.Encapsulate(ifc.HardwareAddr(), hwaddr, datagram), nil)
		return
	}
	request := packet.NewResolution(packet.OpRequest, ifc.Addr, nextHop)
	c.pending[nextHop] = append(c.pending[nextHop], datagram)
	c.log(
		"arpRequest",
		slog.String("iface", ifc.String()),
		slog.String("nextHop", nextHop.String()),
		slog.Int("pending", len(c.pending[nextHop])),
	)
	ifc.node.SendFrame(packet.Encapsulate(ifc.HardwareAddr(), packet.BroadcastHardwareAddr, request), nil)
}

// onResolution handles the address-resolution datagrams.
func (c *core) onResolution(datagram *packet.Datagram, frame *packet.Frame, ifc *Interface) {
	switch datagram.Op {
	case packet.OpRequest:
		c.cache[datagram.Src] = frame.Src
		if ifc.node == nil {
			return
		}
		if datagram.Dst != ifc.Addr && !c.proxies(datagram.Dst, ifc) {
			return
		}
		reply := packet.NewResolution(packet.OpReply, datagram.Dst, datagram.Src)
		c.log(
			"arpReply",
			slog.String("iface", ifc.String()),
			slog.String("to", datagram.Src.String()),
			slog.String("dstMAC", string(frame.Src)),
		)
		ifc.node.SendFrame(packet.Encapsulate(ifc.HardwareAddr(), frame.Src, reply), nil)

	case packet.OpReply:
		c.cache[datagram.Src] = frame.Src
		queue := c.pending[datagram.Src]
		delete(c.pending, datagram.Src)
		c.log(
			"arpResolved",
			slog.String("addr", datagram.Src.String()),
			slog.String("hwaddr", string(frame.Src)),
			slog.Int("pending", len(queue)),
		)
		for _, queued := range queue {
			c.self.SendDatagram(queued)
		}
	}
}

// proxier is a [Routable] answering resolution requests on behalf
// of other nodes.
type proxier interface {
	proxyFor(addr ipv4.Addr, ifc *Interface) bool
}

// proxies returns whether the node answers resolution requests for addr
// received on ifc.
func (c *core) proxies(addr ipv4.Addr, ifc *Interface) bool {
	p, ok := c.self.(proxier)
	return ok && p.proxyFor(addr, ifc)
}

// deliver delivers the datagram to the local handlers.
func (c *core) deliver(datagram *packet.Datagram, frame *packet.Frame, ifc *Interface) {
	c.log(
		"datagramDelivered",
		slog.String("datagram", datagram.String()),
		slog.String("iface", ifc.String()),
	)
	c.receivers.invoke(datagram, frame, ifc)
}

// Cache returns a copy of the address-resolution cache.
func (c *core) Cache() map[ipv4.Addr]packet.HardwareAddr {
	return maps.Clone(c.cache)
}

// Lookup returns the cached link-layer address of addr.
func (c *core) Lookup(addr ipv4.Addr) (packet.HardwareAddr, bool) {
	hwaddr, found := c.cache[addr]
	return hwaddr, found
}

// Learn adds an entry to the address-resolution cache.
func (c *core) Learn(addr ipv4.Addr, hwaddr packet.HardwareAddr) {
	c.cache[addr] = hwaddr
}

// Pending returns a copy of the datagrams awaiting the resolution of
// addr and whether a pending queue exists for addr.
func (c *core) Pending(addr ipv4.Addr) ([]*packet.Datagram, bool) {
	queue, found := c.pending[addr]
	return append([]*packet.Datagram{}, queue...), found
}

// owns returns whether addr is the address of one of the interfaces.
func (c *core) owns(addr ipv4.Addr) bool {
	for _, ifc := range c.interfaces {
		if ifc.Addr == addr {
			return true
		}
	}
	return false
}

// AddChildren implements [world.ChildAdder] by adding the bound
// interface nodes to the world.
func (c *core) AddChildren(w *world.World) {
	for _, ifc := range c.interfaces {
		if ifc.node != nil {
			w.Add(ifc.node)
		}
	}
}

// Deactivate implements [world.Deactivator] by removing the bound
// interface nodes from the world, which unlinks them.
func (c *core) Deactivate() {
	w := c.World()
	if w == nil {
		return
	}
	for _, ifc := range c.interfaces {
		if ifc.node != nil {
			w.Remove(ifc.node)
		}
	}
}

// SetPosition sets the position used for rendering, which the
// interface nodes share.
func (c *core) SetPosition(pos world.Vec2) {
	c.pos = pos
	for _, ifc := range c.interfaces {
		if p, ok := ifc.node.(positioner); ok {
			p.SetPosition(pos)
		}
	}
}

// Position implements [world.Drawable].
func (c *core) Position() world.Vec2 {
	return c.pos
}

// SetVisible sets the visibility used for rendering.
func (c *core) SetVisible(visible bool) {
	c.hidden = !visible
}

// Visible implements [world.Drawable].
func (c *core) Visible() bool {
	return !c.hidden
}

// log emits a structured log event using the fabric world.
func (c *core) log(msg string, attrs ...slog.Attr) {
	c.fabric.World().Log(msg, attrs...)
}

// logDrop logs that the node dropped the datagram because of err.
func (c *core) logDrop(datagram *packet.Datagram, err error) {
	c.log(
		"datagramDropped",
		slog.String("datagram", datagram.String()),
		slog.Any("err", err),
		slog.String("errClass", errclass.New(err)),
	)
}
