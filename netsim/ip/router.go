// SPDX-License-Identifier: GPL-3.0-or-later

package ip

import (
	"errors"
	"fmt"

	"github.com/rbmk-project/common/runtimex"
	"github.com/rbmk-project/lansim/netsim/ipv4"
	"github.com/rbmk-project/lansim/netsim/link"
	"github.com/rbmk-project/lansim/netsim/packet"
	"github.com/rbmk-project/lansim/netsim/rtable"
)

// DefaultRouterInterfaces is the default number of router interfaces.
const DefaultRouterInterfaces = 2

// RouterConfig contains configuration for creating a new [*Router].
type RouterConfig struct {
	// Interfaces is the number of interfaces. Zero means
	// [DefaultRouterInterfaces].
	//
	// The config is invalid if this field is negative.
	Interfaces int

	// ProcessingDelay is the time in seconds the router spends on
	// each forwarded datagram. Zero disables the delay.
	//
	// The config is invalid if this field is negative.
	ProcessingDelay float64

	// Policy is the lookup policy of the routing tables.
	Policy rtable.Policy

	// ProxyResolution enables answering resolution requests for the
	// addresses routed through another interface.
	ProxyResolution bool
}

// validate returns an error if the configuration is not valid.
func (cfg *RouterConfig) validate() error {
	if cfg.Interfaces < 0 {
		return errors.New("number of interfaces must not be negative")
	}
	if cfg.ProcessingDelay < 0 {
		return errors.New("processing delay must not be negative")
	}
	return nil
}

// arrival is a datagram waiting for processing.
type arrival struct {
	datagram *packet.Datagram
	frame    *packet.Frame
	ifc      *Interface
}

// Router is a table-driven [Routable] with several interfaces.
//
// Construct using [NewRouter] or [MustNewRouter]. The interfaces start
// unbound with address 0.0.0.0 and mask [DefaultMask]: configure them
// using [*Router.Attach] or by binding them with [*Interface.Bind].
type Router struct {
	core

	// Routes maps destinations to next hops.
	Routes rtable.Table[ipv4.Addr]

	// InterfaceTable maps next hops to egress interface indexes.
	InterfaceTable rtable.Table[int]

	// Policy is the lookup policy of both tables.
	Policy rtable.Policy

	// ProcessingDelay is the time in seconds the router spends on
	// each forwarded datagram. Zero disables the delay.
	ProcessingDelay float64

	// ProxyResolution enables answering resolution requests received
	// on an interface for the addresses routed through another one.
	ProxyResolution bool

	// backlog contains the datagrams waiting for processing.
	backlog []arrival

	// wait is the time left before processing the next datagram.
	wait float64
}

var _ Routable = &Router{}

// NewRouter creates a new [*Router] whose interface nodes belong to the given fabric.
func NewRouter(fab *link.Fabric, config *RouterConfig) (*Router, error) {
	if config == nil {
		config = &RouterConfig{}
	}
	if err := config.validate(); err != nil {
		return nil, fmt.Errorf("ip: invalid router config: %w", err)
	}
	count := config.Interfaces
	if count == 0 {
		count = DefaultRouterInterfaces
	}
	interfaces := make([]*Interface, 0, count)
	for range count {
		interfaces = append(interfaces, NewInterface(ipv4.Any, DefaultMask))
	}
	r := &Router{
		Policy:          config.Policy,
		ProcessingDelay: config.ProcessingDelay,
		ProxyResolution: config.ProxyResolution,
	}
	r.init(fab, r, r.onDatagram, interfaces...)
	return r, nil
}

// MustNewRouter is like [NewRouter] but panics on error.
func MustNewRouter(fab *link.Fabric, config *RouterConfig) *Router {
	return runtimex.Try1(NewRouter(fab, config))
}

// Interface returns the interface with the given index.
//
// This method panics if the index is out of range.
func (r *Router) Interface(index int) *Interface {
	runtimex.Assert(index >= 0 && index < len(r.interfaces), "ip: interface index out of range")
	return r.interfaces[index]
}

// Attach configures the interface with the given index and binds it
// to the given link-layer node. Returns the interface.
//
// This method panics if the index is out of range.
func (r *Router) Attach(index int, addr, mask ipv4.Addr, node link.Node) *Interface {
	ifc := r.Interface(index)
	ifc.Addr, ifc.Mask = addr, mask
	ifc.Bind(node)
	return ifc
}

// AddInterface appends a new interface bound to the given node and
// returns it. When the router is live, the node is added to its world.
func (r *Router) AddInterface(addr, mask ipv4.Addr, node link.Node) *Interface {
	ifc := NewInterface(addr, mask)
	r.interfaces = append(r.interfaces, ifc)
	r.attach(ifc, r.onDatagram)
	ifc.Bind(node)
	return ifc
}

// AddRoute appends a route to the destination network using nextHop.
func (r *Router) AddRoute(dst, mask, nextHop ipv4.Addr) {
	r.Routes.Insert(dst, mask, nextHop)
}

// AddInterfaceRoute appends an entry sending the next hops in the
// given network through the interface with the given index.
func (r *Router) AddInterfaceRoute(dst, mask ipv4.Addr, index int) {
	r.InterfaceTable.Insert(dst, mask, index)
}

// Route implements [Routable] using the Routes table.
func (r *Router) Route(datagram *packet.Datagram, from *Interface) (ipv4.Addr, bool) {
	return r.Routes.Lookup(datagram.Dst, r.Policy)
}

// Dispatch implements [Routable] using the InterfaceTable to select
// the egress interface. Datagrams without a valid egress interface
// are dropped.
func (r *Router) Dispatch(datagram *packet.Datagram, nextHop ipv4.Addr) {
	index, found := r.InterfaceTable.Lookup(nextHop, r.Policy)
	if !found || index < 0 || index >= len(r.interfaces) {
		r.logDrop(datagram, ErrNoInterface)
		return
	}
	r.Send(datagram, nextHop, r.interfaces[index])
}

// proxyFor returns whether the router answers resolution requests for
// addr received on ifc.
func (r *Router) proxyFor(addr ipv4.Addr, ifc *Interface) bool {
	if !r.ProxyResolution || r.owns(addr) {
		return false
	}
	nextHop, found := r.Routes.Lookup(addr, r.Policy)
	if !found {
		return false
	}
	index, found := r.InterfaceTable.Lookup(nextHop, r.Policy)
	return found && index >= 0 && index < len(r.interfaces) && r.interfaces[index] != ifc
}

// Backlog returns the number of datagrams waiting for processing.
func (r *Router) Backlog() int {
	return len(r.backlog)
}

// onDatagram handles the datagrams received by the interfaces.
func (r *Router) onDatagram(datagram *packet.Datagram, frame *packet.Frame, ifc *Interface) {
	if datagram.IsResolution() {
		return
	}
	if r.ProcessingDelay > 0 {
		if len(r.backlog) <= 0 && r.wait <= 0 {
			r.wait = r.ProcessingDelay
		}
		r.backlog = append(r.backlog, arrival{datagram: datagram, frame: frame, ifc: ifc})
		return
	}
	r.process(datagram, frame, ifc)
}

// process delivers locally the datagrams destined to the router and
// forwards the others.
func (r *Router) process(datagram *packet.Datagram, frame *packet.Frame, ifc *Interface) {
	if r.owns(datagram.Dst) {
		r.deliver(datagram, frame, ifc)
		return
	}
	nextHop, found := r.Route(datagram, ifc)
	if !found {
		r.logDrop(datagram, ErrNoRoute)
		return
	}
	r.Dispatch(datagram, nextHop)
}

// Update implements [world.Entity]. With a processing delay, a datagram
// reaching an idle router waits the whole delay, and the following ones
// leave at least one delay apart. The router processes at most one
// waiting datagram per update. Idle time does not accumulate credit.
func (r *Router) Update(delta float64) {
	if len(r.backlog) <= 0 {
		r.wait = max(r.wait-delta, 0)
		return
	}
	r.wait -= delta
	if r.wait > 0 {
		return
	}
	next := r.backlog[0]
	r.backlog[0] = arrival{}
	r.backlog = r.backlog[1:]
	r.wait = r.ProcessingDelay
	r.process(next.datagram, next.frame, next.ifc)
}
