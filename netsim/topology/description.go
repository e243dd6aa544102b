// SPDX-License-Identifier: GPL-3.0-or-later

// Package topology builds simulated internetworks from YAML descriptions.
//
// A [*Description] lists switches, hosts, routers and the links between
// them. Links refer to switches and hosts by name and to router
// interfaces using the "router/index" syntax:
//
//	timeScale: 1
//	defaults: {bandwidth: 4096, queueCapacity: 4096}
//	switches:
//	  - {name: sw1, mac: "02:00:00:00:00:01"}
//	hosts:
//	  - {name: a, mac: ":A1", addr: 192.168.5.3/24, gateway: 192.168.5.1}
//	routers:
//	  - name: r1
//	    interfaces:
//	      - {mac: ":01", addr: 192.168.5.1/24}
//	links:
//	  - {a: a, b: sw1}
//	  - {a: r1/0, b: sw1, bandwidth: 8192}
//
// Use [Load] to parse a description and [*Description.Build] to create
// the corresponding [*Network] inside a [*world.World].
package topology

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/rbmk-project/common/runtimex"
	"gopkg.in/yaml.v3"
)

// Description describes an internetwork.
type Description struct {
	// TimeScale is the world time scale. Zero keeps the world setting.
	TimeScale float64 `json:"timeScale" yaml:"timeScale"`

	// Defaults contains the link-layer defaults.
	Defaults Defaults `json:"defaults" yaml:"defaults"`

	// Switches contains the switches.
	Switches []SwitchDesc `json:"switches" yaml:"switches"`

	// Hosts contains the hosts.
	Hosts []HostDesc `json:"hosts" yaml:"hosts"`

	// Routers contains the routers.
	Routers []RouterDesc `json:"routers" yaml:"routers"`

	// Links contains the links.
	Links []LinkDesc `json:"links" yaml:"links"`
}

// Defaults contains the link-layer defaults. Zero values select the
// defaults of the link package.
type Defaults struct {
	// Bandwidth is the bandwidth of links in bits per second.
	Bandwidth float64 `json:"bandwidth" yaml:"bandwidth"`

	// QueueCapacity is the capacity of queues in bytes.
	QueueCapacity int `json:"queueCapacity" yaml:"queueCapacity"`
}

// SwitchDesc describes a switch.
type SwitchDesc struct {
	// Name is the unique node name.
	Name string `json:"name" yaml:"name"`

	// MAC is the link-layer address.
	MAC string `json:"mac" yaml:"mac"`

	// Promiscuous delivers upward every received frame.
	Promiscuous bool `json:"promiscuous" yaml:"promiscuous"`
}

// HostDesc describes a host.
type HostDesc struct {
	// Name is the unique node name.
	Name string `json:"name" yaml:"name"`

	// MAC is the link-layer address.
	MAC string `json:"mac" yaml:"mac"`

	// Addr is the host address in CIDR notation.
	Addr string `json:"addr" yaml:"addr"`

	// Gateway is the optional default gateway.
	Gateway string `json:"gateway" yaml:"gateway"`
}

// RouterDesc describes a router.
type RouterDesc struct {
	// Name is the unique node name.
	Name string `json:"name" yaml:"name"`

	// ProcessingDelay is the per-datagram processing delay in seconds.
	ProcessingDelay float64 `json:"processingDelay" yaml:"processingDelay"`

	// LongestPrefixMatch selects the lookup policy. When missing,
	// routers use longest-prefix matching.
	LongestPrefixMatch *bool `json:"longestPrefixMatch" yaml:"longestPrefixMatch"`

	// ProxyResolution makes the router answer resolution requests for
	// the addresses it routes through another interface.
	ProxyResolution bool `json:"proxyResolution" yaml:"proxyResolution"`

	// Interfaces contains the router interfaces.
	Interfaces []InterfaceDesc `json:"interfaces" yaml:"interfaces"`

	// Routes maps destinations to next hops.
	Routes []RouteDesc `json:"routes" yaml:"routes"`

	// InterfaceRoutes maps next hops to interface indexes.
	InterfaceRoutes []InterfaceRouteDesc `json:"interfaceRoutes" yaml:"interfaceRoutes"`
}

// InterfaceDesc describes a router interface.
type InterfaceDesc struct {
	// MAC is the link-layer address.
	MAC string `json:"mac" yaml:"mac"`

	// Addr is the interface address in CIDR notation.
	Addr string `json:"addr" yaml:"addr"`

	// Switch binds the interface to a switch rather than to an endpoint.
	Switch bool `json:"switch" yaml:"switch"`
}

// RouteDesc describes a route.
type RouteDesc struct {
	// Dest is the destination network in CIDR notation.
	Dest string `json:"dest" yaml:"dest"`

	// NextHop is the next hop address.
	NextHop string `json:"nextHop" yaml:"nextHop"`
}

// InterfaceRouteDesc describes an interface-selection entry.
type InterfaceRouteDesc struct {
	// Dest is the next hop network in CIDR notation.
	Dest string `json:"dest" yaml:"dest"`

	// Interface is the egress interface index.
	Interface int `json:"interface" yaml:"interface"`
}

// LinkDesc describes a link.
type LinkDesc struct {
	// A is the first node reference.
	A string `json:"a" yaml:"a"`

	// B is the second node reference.
	B string `json:"b" yaml:"b"`

	// Bandwidth optionally overrides the default bandwidth.
	Bandwidth float64 `json:"bandwidth" yaml:"bandwidth"`
}

// ErrEmptyDescription indicates a document without a description.
var ErrEmptyDescription = errors.New("topology: empty description")

// Load parses a YAML (or JSON) description. Unknown fields are errors.
func Load(r io.Reader) (*Description, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	var desc Description
	if err := dec.Decode(&desc); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, ErrEmptyDescription
		}
		return nil, fmt.Errorf("topology: %w", err)
	}
	return &desc, nil
}

// LoadFile is like [Load] but reads the named file.
func LoadFile(name string) (*Description, error) {
	filep, err := os.Open(name)
	if err != nil {
		return nil, err
	}
	defer filep.Close()
	return Load(filep)
}

// MustLoad is like [Load] but panics on error.
func MustLoad(r io.Reader) *Description {
	return runtimex.Try1(Load(r))
}
