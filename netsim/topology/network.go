// SPDX-License-Identifier: GPL-3.0-or-later

package topology

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"slices"
	"strconv"
	"strings"

	"github.com/rbmk-project/common/runtimex"
	"github.com/rbmk-project/lansim/netsim/ip"
	"github.com/rbmk-project/lansim/netsim/ipv4"
	"github.com/rbmk-project/lansim/netsim/link"
	"github.com/rbmk-project/lansim/netsim/packet"
	"github.com/rbmk-project/lansim/netsim/rtable"
	"github.com/rbmk-project/lansim/netsim/world"
	"gonum.org/v1/gonum/graph/path"
	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/topo"
)

var (
	// ErrUnknownNode indicates a reference to a node that does not exist.
	ErrUnknownNode = errors.New("topology: unknown node")

	// ErrNoPath indicates that two nodes are not connected.
	ErrNoPath = errors.New("topology: no path between nodes")
)

// Network is an internetwork built from a [*Description].
type Network struct {
	// Fabric is the link-layer fabric.
	Fabric *link.Fabric

	// World is the world containing the network.
	World *world.World

	// graph connects linked nodes and the interfaces of each router.
	graph *simple.WeightedUndirectedGraph

	// hosts maps names to hosts.
	hosts map[string]*ip.Host

	// nodes maps references to link-layer nodes.
	nodes map[string]link.Node

	// order contains the references in declaration order.
	order []string

	// refs maps node identities to references.
	refs map[link.NodeID]string

	// routers maps names to routers.
	routers map[string]*ip.Router

	// switches maps names to switches.
	switches map[string]*link.Switch
}

// builder builds a [*Network].
type builder struct {
	desc    *Description
	linked  map[link.NodeID]string
	names   map[string]bool
	network *Network
}

// Build creates the described network inside the given world, adding
// all its nodes. Links are staged as usual and become live at the next
// world step.
func (desc *Description) Build(w *world.World) (*Network, error) {
	if w == nil {
		return nil, errors.New("topology: nil world")
	}
	if desc.TimeScale < 0 {
		return nil, errors.New("topology: time scale must not be negative")
	}
	config := link.DefaultConfig()
	if desc.Defaults.Bandwidth != 0 {
		config.Bandwidth = desc.Defaults.Bandwidth
	}
	if desc.Defaults.QueueCapacity != 0 {
		config.QueueCapacity = desc.Defaults.QueueCapacity
	}
	fab, err := link.NewFabric(w, config)
	if err != nil {
		return nil, fmt.Errorf("topology: %w", err)
	}
	b := &builder{
		desc:    desc,
		linked:  map[link.NodeID]string{},
		names:   map[string]bool{},
		network: &Network{
			Fabric:   fab,
			World:    w,
			graph:    simple.NewWeightedUndirectedGraph(0, math.Inf(1)),
			hosts:    map[string]*ip.Host{},
			nodes:    map[string]link.Node{},
			refs:     map[link.NodeID]string{},
			routers:  map[string]*ip.Router{},
			switches: map[string]*link.Switch{},
		},
	}
	if err := b.build(); err != nil {
		return nil, err
	}
	if desc.TimeScale > 0 {
		w.TimeScale = desc.TimeScale
	}
	if disconnected := b.network.Disconnected(); len(disconnected) > 0 {
		w.Log("topologyDisconnected", slog.Any("nodes", disconnected))
	}
	return b.network, nil
}

// MustBuild is like [*Description.Build] but panics on error.
func (desc *Description) MustBuild(w *world.World) *Network {
	return runtimex.Try1(desc.Build(w))
}

// build creates the nodes and links and only then adds the
// nodes to the world, so that errors leave the world unchanged.
func (b *builder) build() error {
	var entities []world.Entity
	for _, sd := range b.desc.Switches {
		sw, err := b.newSwitch(sd)
		if err != nil {
			return err
		}
		entities = append(entities, sw)
	}
	for _, hd := range b.desc.Hosts {
		host, err := b.newHost(hd)
		if err != nil {
			return err
		}
		entities = append(entities, host)
	}
	for _, rd := range b.desc.Routers {
		r, err := b.newRouter(rd)
		if err != nil {
			return err
		}
		entities = append(entities, r)
	}
	type pair struct {
		a, b link.Node
		bw   float64
	}
	var pairs []pair
	for _, ld := range b.desc.Links {
		na, nb, err := b.checkLink(ld)
		if err != nil {
			return err
		}
		pairs = append(pairs, pair{na, nb, ld.Bandwidth})
	}
	for _, entity := range entities {
		b.network.World.Add(entity)
	}
	for _, p := range pairs {
		lnk := p.a.LinkWith(p.b)
		if p.bw > 0 {
			lnk.Bandwidth = p.bw
		}
		b.network.graph.SetWeightedEdge(simple.WeightedEdge{
			F: simple.Node(p.a.ID()),
			T: simple.Node(p.b.ID()),
			W: 1,
		})
	}
	return nil
}

// claim reserves a node name.
func (b *builder) claim(name string) error {
	if name == "" || strings.Contains(name, "/") {
		return fmt.Errorf("topology: invalid node name %q", name)
	}
	if b.names[name] {
		return fmt.Errorf("topology: duplicate node name %q", name)
	}
	b.names[name] = true
	return nil
}

// register records a link-layer node under the given reference.
func (b *builder) register(ref string, node link.Node) {
	b.network.nodes[ref] = node
	b.network.order = append(b.network.order, ref)
	b.network.refs[node.ID()] = ref
	b.network.graph.AddNode(simple.Node(node.ID()))
}

// newSwitch creates a switch.
func (b *builder) newSwitch(sd SwitchDesc) (*link.Switch, error) {
	if err := b.claim(sd.Name); err != nil {
		return nil, err
	}
	if sd.MAC == "" {
		return nil, fmt.Errorf("topology: switch %q: empty mac", sd.Name)
	}
	sw := link.NewSwitch(b.network.Fabric, packet.HardwareAddr(sd.MAC))
	sw.Promiscuous = sd.Promiscuous
	b.network.switches[sd.Name] = sw
	b.register(sd.Name, sw)
	return sw, nil
}

// newHost creates a host.
func (b *builder) newHost(hd HostDesc) (*ip.Host, error) {
	if err := b.claim(hd.Name); err != nil {
		return nil, err
	}
	addr, mask, err := ipv4.ParsePrefix(hd.Addr)
	if err != nil {
		return nil, fmt.Errorf("topology: host %q: %w", hd.Name, err)
	}
	gateway := ipv4.Any
	if hd.Gateway != "" {
		if gateway, err = ipv4.ParseAddr(hd.Gateway); err != nil {
			return nil, fmt.Errorf("topology: host %q: %w", hd.Name, err)
		}
	}
	host, err := ip.NewHost(b.network.Fabric, &ip.HostConfig{
		Addr:    addr,
		Mask:    mask,
		Gateway: gateway,
		MAC:     packet.HardwareAddr(hd.MAC),
	})
	if err != nil {
		return nil, fmt.Errorf("topology: host %q: %w", hd.Name, err)
	}
	b.network.hosts[hd.Name] = host
	b.register(hd.Name, host.Endpoint())
	return host, nil
}

// newRouter creates a router.
func (b *builder) newRouter(rd RouterDesc) (*ip.Router, error) {
	if err := b.claim(rd.Name); err != nil {
		return nil, err
	}
	if len(rd.Interfaces) <= 0 {
		return nil, fmt.Errorf("topology: router %q: no interfaces", rd.Name)
	}
	policy := rtable.LongestPrefixMatch
	if rd.LongestPrefixMatch != nil && !*rd.LongestPrefixMatch {
		policy = rtable.FirstMatch
	}
	r, err := ip.NewRouter(b.network.Fabric, &ip.RouterConfig{
		Interfaces:      len(rd.Interfaces),
		ProcessingDelay: rd.ProcessingDelay,
		Policy:          policy,
		ProxyResolution: rd.ProxyResolution,
	})
	if err != nil {
		return nil, fmt.Errorf("topology: router %q: %w", rd.Name, err)
	}
	for index, ifd := range rd.Interfaces {
		addr, mask, err := ipv4.ParsePrefix(ifd.Addr)
		if err != nil {
			return nil, fmt.Errorf("topology: router %q: interface %d: %w", rd.Name, index, err)
		}
		if ifd.MAC == "" {
			return nil, fmt.Errorf("topology: router %q: interface %d: empty mac", rd.Name, index)
		}
		var node link.Node = link.NewEndpoint(b.network.Fabric, packet.HardwareAddr(ifd.MAC))
		if ifd.Switch {
			node = link.NewSwitch(b.network.Fabric, packet.HardwareAddr(ifd.MAC))
		}
		r.Attach(index, addr, mask, node)
		b.register(rd.Name+"/"+strconv.Itoa(index), node)
	}
	for i := range rd.Interfaces {
		for j := i + 1; j < len(rd.Interfaces); j++ {
			b.network.graph.SetWeightedEdge(simple.WeightedEdge{
				F: simple.Node(r.Interface(i).Node().ID()),
				T: simple.Node(r.Interface(j).Node().ID()),
				W: 1,
			})
		}
	}
	for _, route := range rd.Routes {
		dst, mask, err := ipv4.ParsePrefix(route.Dest)
		if err != nil {
			return nil, fmt.Errorf("topology: router %q: route: %w", rd.Name, err)
		}
		nextHop, err := ipv4.ParseAddr(route.NextHop)
		if err != nil {
			return nil, fmt.Errorf("topology: router %q: route: %w", rd.Name, err)
		}
		r.AddRoute(dst, mask, nextHop)
	}
	for _, route := range rd.InterfaceRoutes {
		dst, mask, err := ipv4.ParsePrefix(route.Dest)
		if err != nil {
			return nil, fmt.Errorf("topology: router %q: interface route: %w", rd.Name, err)
		}
		if route.Interface < 0 || route.Interface >= len(rd.Interfaces) {
			return nil, fmt.Errorf("topology: router %q: interface %d out of range", rd.Name, route.Interface)
		}
		r.AddInterfaceRoute(dst, mask, route.Interface)
	}
	b.network.routers[rd.Name] = r
	return r, nil
}

// checkLink resolves and validates the endpoints of a link.
func (b *builder) checkLink(ld LinkDesc) (link.Node, link.Node, error) {
	na, err := b.network.Node(ld.A)
	if err != nil {
		return nil, nil, err
	}
	nb, err := b.network.Node(ld.B)
	if err != nil {
		return nil, nil, err
	}
	if na == nb {
		return nil, nil, fmt.Errorf("topology: cannot link %q with itself", ld.A)
	}
	if ld.Bandwidth < 0 {
		return nil, nil, fmt.Errorf("topology: link %s-%s: negative bandwidth", ld.A, ld.B)
	}
	for _, node := range []link.Node{na, nb} {
		if _, ok := node.(*link.Endpoint); !ok {
			continue
		}
		ref := b.network.refs[node.ID()]
		if _, found := b.linked[node.ID()]; found {
			return nil, nil, fmt.Errorf("topology: %q already has a link", ref)
		}
		b.linked[node.ID()] = ref
	}
	return na, nb, nil
}

// Host returns the host with the given name.
func (nw *Network) Host(name string) (*ip.Host, bool) {
	host, found := nw.hosts[name]
	return host, found
}

// Router returns the router with the given name.
func (nw *Network) Router(name string) (*ip.Router, bool) {
	r, found := nw.routers[name]
	return r, found
}

// Switch returns the switch with the given name.
func (nw *Network) Switch(name string) (*link.Switch, bool) {
	sw, found := nw.switches[name]
	return sw, found
}

// Node returns the link-layer node with the given reference, which is
// either a switch name, a host name or "router/index".
func (nw *Network) Node(ref string) (link.Node, error) {
	node, found := nw.nodes[ref]
	if !found {
		return nil, fmt.Errorf("%w: %q", ErrUnknownNode, ref)
	}
	return node, nil
}

// Refs returns the node references in declaration order.
func (nw *Network) Refs() []string {
	return slices.Clone(nw.order)
}

// Path returns the references of the nodes on a shortest path between
// the given nodes, both included. Each link counts as one hop, and so
// does crossing a router from one of its interfaces to another.
func (nw *Network) Path(from, to string) ([]string, error) {
	src, err := nw.Node(from)
	if err != nil {
		return nil, err
	}
	dst, err := nw.Node(to)
	if err != nil {
		return nil, err
	}
	tree := path.DijkstraFrom(simple.Node(src.ID()), nw.graph)
	nodes, _ := tree.To(int64(dst.ID()))
	if len(nodes) <= 0 {
		return nil, fmt.Errorf("%w: %q and %q", ErrNoPath, from, to)
	}
	out := make([]string, 0, len(nodes))
	for _, node := range nodes {
		out = append(out, nw.refs[link.NodeID(node.ID())])
	}
	return out, nil
}

// Disconnected returns, in declaration order, the references of the
// nodes not connected with the first declared node.
func (nw *Network) Disconnected() []string {
	if len(nw.order) <= 0 {
		return nil
	}
	first := nw.nodes[nw.order[0]].ID()
	reachable := map[int64]bool{}
	for _, component := range topo.ConnectedComponents(nw.graph) {
		ids := make([]int64, 0, len(component))
		for _, node := range component {
			ids = append(ids, node.ID())
		}
		if slices.Contains(ids, int64(first)) {
			for _, id := range ids {
				reachable[id] = true
			}
		}
	}
	var out []string
	for _, ref := range nw.order {
		if !reachable[int64(nw.nodes[ref].ID())] {
			out = append(out, ref)
		}
	}
	return out
}
