// SPDX-License-Identifier: GPL-3.0-or-later

package link

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/rbmk-project/common/runtimex"
	"github.com/rbmk-project/lansim/netsim/world"
)

const (
	// DefaultBandwidth is the default link bandwidth in bits per second.
	DefaultBandwidth = 1 << 12

	// DefaultQueueCapacity is the default queue capacity in bytes.
	DefaultQueueCapacity = 4096
)

// Config contains configuration for creating a new [*Fabric].
type Config struct {
	// Bandwidth is the bandwidth in bits per second of new links.
	//
	// The config is invalid if this field is not positive.
	Bandwidth float64

	// QueueCapacity is the capacity in bytes of new queues.
	//
	// The config is invalid if this field is negative.
	QueueCapacity int
}

// DefaultConfig returns the default [*Config].
func DefaultConfig() *Config {
	return &Config{
		Bandwidth:     DefaultBandwidth,
		QueueCapacity: DefaultQueueCapacity,
	}
}

// validate returns an error if the configuration is not valid.
func (cfg *Config) validate() error {
	if cfg.Bandwidth <= 0 {
		return errors.New("bandwidth must be positive")
	}
	if cfg.QueueCapacity < 0 {
		return errors.New("queue capacity must not be negative")
	}
	return nil
}

// NodeID identifies a [Node] within its [*Fabric].
type NodeID uint64

// pairKey is the unordered pair of node identities owning a link.
type pairKey struct {
	lo, hi NodeID
}

// newPairKey returns the [pairKey] for the given nodes.
func newPairKey(a, b NodeID) pairKey {
	if a > b {
		a, b = b, a
	}
	return pairKey{lo: a, hi: b}
}

// Fabric is the registry of the links connecting a set of [Node].
//
// Nodes never reference each other directly. They hold a reference to
// their fabric, which maps unordered pairs of nodes to links, so that
// linking is symmetric by construction.
//
// Construct using [NewFabric] or [MustNewFabric].
type Fabric struct {
	// adjacency contains, for each node, its links in creation order.
	adjacency map[NodeID][]*Link

	// config is the fabric configuration.
	config Config

	// links maps node pairs to links.
	links map[pairKey]*Link

	// nextID is the next [NodeID] to assign.
	nextID NodeID

	// world is the optional [*world.World] where we register links
	// and transmissions.
	world *world.World
}

// NewFabric creates a new [*Fabric] registering its links and
// transmissions with the given [*world.World], which may be nil. A nil
// config means [DefaultConfig].
func NewFabric(w *world.World, config *Config) (*Fabric, error) {
	if config == nil {
		config = DefaultConfig()
	}
	if err := config.validate(); err != nil {
		return nil, fmt.Errorf("link: invalid config: %w", err)
	}
	fab := &Fabric{
		adjacency: map[NodeID][]*Link{},
		config:    *config,
		links:     map[pairKey]*Link{},
		world:     w,
	}
	return fab, nil
}

// MustNewFabric is like [NewFabric] but panics on error.
func MustNewFabric(w *world.World, config *Config) *Fabric {
	return runtimex.Try1(NewFabric(w, config))
}

// World returns the [*world.World] associated with the fabric.
func (fab *Fabric) World() *world.World {
	return fab.world
}

// Config returns a copy of the fabric [Config].
func (fab *Fabric) Config() Config {
	return fab.config
}

// newNodeID allocates a new [NodeID].
func (fab *Fabric) newNodeID() NodeID {
	fab.nextID++
	return fab.nextID
}

// Connect returns the link between a and b, creating and registering
// it if needed. This method is idempotent. Connecting an [*Endpoint]
// removes its previous link.
//
// This method panics if a and b are the same node or if either
// node belongs to another fabric.
func (fab *Fabric) Connect(a, b Node) *Link {
	return runtimex.Try1(fab.connect(a, b))
}

// connect implements [*Fabric.Connect].
func (fab *Fabric) connect(a, b Node) (*Link, error) {
	if a.Fabric() != fab || b.Fabric() != fab {
		return nil, ErrForeignNode
	}
	if a.ID() == b.ID() {
		return nil, ErrSelfLink
	}
	key := newPairKey(a.ID(), b.ID())
	if lnk := fab.links[key]; lnk != nil {
		return lnk, nil
	}
	fab.releaseEndpoint(a, b)
	fab.releaseEndpoint(b, a)
	lnk := newLink(fab, a, b)
	fab.links[key] = lnk
	fab.adjacency[a.ID()] = append(fab.adjacency[a.ID()], lnk)
	fab.adjacency[b.ID()] = append(fab.adjacency[b.ID()], lnk)
	if fab.world != nil {
		fab.world.Add(lnk)
	}
	fab.world.Log(
		"linkCreated",
		slog.String("a", string(a.HardwareAddr())),
		slog.String("b", string(b.HardwareAddr())),
		slog.Float64("bandwidth", lnk.Bandwidth),
	)
	return lnk, nil
}

// releaseEndpoint removes the links of n, when n is an [*Endpoint],
// except the one with peer. An endpoint has at most one link.
func (fab *Fabric) releaseEndpoint(n, peer Node) {
	if _, ok := n.(*Endpoint); !ok {
		return
	}
	for _, lnk := range fab.LinksOf(n) {
		if other := lnk.Other(n); other != peer {
			fab.Disconnect(n, other)
		}
	}
}

// Disconnect removes the link between a and b, if any, aborting the
// transmissions in flight on the link. Returns whether a link existed.
func (fab *Fabric) Disconnect(a, b Node) bool {
	key := newPairKey(a.ID(), b.ID())
	lnk := fab.links[key]
	if lnk == nil {
		return false
	}
	delete(fab.links, key)
	fab.adjacency[a.ID()] = removeLink(fab.adjacency[a.ID()], lnk)
	fab.adjacency[b.ID()] = removeLink(fab.adjacency[b.ID()], lnk)
	lnk.abort()
	if fab.world != nil {
		fab.world.Remove(lnk)
	}
	fab.world.Log(
		"linkRemoved",
		slog.String("a", string(a.HardwareAddr())),
		slog.String("b", string(b.HardwareAddr())),
	)
	a.linkRemoved(lnk)
	b.linkRemoved(lnk)
	return true
}

// Isolate removes all the links of the given node.
func (fab *Fabric) Isolate(n Node) {
	for _, lnk := range fab.LinksOf(n) {
		fab.Disconnect(n, lnk.Other(n))
	}
}

// removeLink returns links without lnk.
func removeLink(links []*Link, lnk *Link) []*Link {
	out := links[:0]
	for _, candidate := range links {
		if candidate != lnk {
			out = append(out, candidate)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// LinkBetween returns the link between a and b, if any.
func (fab *Fabric) LinkBetween(a, b Node) (*Link, bool) {
	lnk := fab.links[newPairKey(a.ID(), b.ID())]
	return lnk, lnk != nil
}

// LinksOf returns a copy of the links of n in creation order.
func (fab *Fabric) LinksOf(n Node) []*Link {
	return append([]*Link{}, fab.adjacency[n.ID()]...)
}

// NeighborsOf returns the nodes linked with n in link creation order.
func (fab *Fabric) NeighborsOf(n Node) []Node {
	var out []Node
	for _, lnk := range fab.adjacency[n.ID()] {
		out = append(out, lnk.Other(n))
	}
	return out
}
