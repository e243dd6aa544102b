// SPDX-License-Identifier: GPL-3.0-or-later

package netsim

import (
	"errors"
	"fmt"

	"github.com/rbmk-project/lansim/netsim/ip"
	"github.com/rbmk-project/lansim/netsim/ipv4"
	"github.com/rbmk-project/lansim/netsim/link"
	"github.com/rbmk-project/lansim/netsim/packet"
)

// StackConfig contains configuration for creating a new host.
type StackConfig struct {
	// Addr is the host address in CIDR notation.
	//
	// The config is invalid if this field is empty.
	Addr string

	// Gateway optionally contains the address of the router interface
	// serving the host. When empty, we use the first address of the
	// host subnet.
	Gateway string

	// MAC optionally contains the host link-layer address. When empty,
	// we generate a random one.
	MAC string

	// Bandwidth optionally overrides the bandwidth of the host link.
	Bandwidth float64
}

// validate returns an error if the configuration is not valid.
func (cfg *StackConfig) validate() error {
	if cfg.Addr == "" {
		return errors.New("the host address is required")
	}
	if cfg.Bandwidth < 0 {
		return errors.New("the bandwidth must not be negative")
	}
	return nil
}

// gateway returns the gateway address for the given host address and mask.
func (cfg *StackConfig) gateway(addr, mask ipv4.Addr) (ipv4.Addr, error) {
	if cfg.Gateway != "" {
		return ipv4.ParseAddr(cfg.Gateway)
	}
	return addr.Mask(mask) + 1, nil
}

// newHost creates the host, the router interface serving it, and the
// host routes of the central router.
func (s *Scenario) newHost(cfg *StackConfig) (*Host, error) {
	addr, mask, err := ipv4.ParsePrefix(cfg.Addr)
	if err != nil {
		return nil, err
	}
	gateway, err := cfg.gateway(addr, mask)
	if err != nil {
		return nil, err
	}
	if gateway == addr {
		return nil, fmt.Errorf("netsim: host %s cannot be its own gateway", addr)
	}
	mac := packet.HardwareAddr(cfg.MAC)
	if mac == "" {
		mac = packet.RandomHardwareAddr(s.rng)
	}
	host, err := ip.NewHost(s.fabric, &ip.HostConfig{
		Addr:    addr,
		Mask:    mask,
		Gateway: gateway,
		MAC:     mac,
	})
	if err != nil {
		return nil, err
	}
	index, ifc := s.newInterface(gateway, mask)
	lnk := host.Endpoint().LinkWith(ifc.Node())
	if cfg.Bandwidth > 0 {
		lnk.Bandwidth = cfg.Bandwidth
	}
	s.router.AddRoute(addr, ipv4.Broadcast, addr)
	s.router.AddInterfaceRoute(addr, ipv4.Broadcast, index)
	return host, nil
}

// newInterface returns a new router interface bound to a new endpoint.
func (s *Scenario) newInterface(addr, mask ipv4.Addr) (int, *ip.Interface) {
	node := link.NewEndpoint(s.fabric, packet.RandomHardwareAddr(s.rng))
	index := s.used
	s.used++
	if index < len(s.router.Interfaces()) {
		return index, s.router.Attach(index, addr, mask, node)
	}
	return index, s.router.AddInterface(addr, mask, node)
}
