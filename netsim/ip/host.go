// SPDX-License-Identifier: GPL-3.0-or-later

package ip

import (
	"errors"
	"fmt"

	"github.com/rbmk-project/common/runtimex"
	"github.com/rbmk-project/lansim/netsim/ipv4"
	"github.com/rbmk-project/lansim/netsim/link"
	"github.com/rbmk-project/lansim/netsim/packet"
)

// HostConfig contains configuration for creating a new [*Host].
type HostConfig struct {
	// Addr is the host address.
	//
	// The config is invalid if this field is [ipv4.Any].
	Addr ipv4.Addr

	// Mask is the subnet mask.
	Mask ipv4.Addr

	// Gateway is the default gateway.
	Gateway ipv4.Addr

	// MAC is the link-layer address of the host interface.
	//
	// The config is invalid if this field is empty.
	MAC packet.HardwareAddr
}

// validate returns an error if the configuration is not valid.
func (cfg *HostConfig) validate() error {
	if cfg.Addr == ipv4.Any {
		return errors.New("host address must not be 0.0.0.0")
	}
	if cfg.MAC == "" {
		return errors.New("host link-layer address must not be empty")
	}
	return nil
}

// Host is a [Routable] with a single interface bound to an [*link.Endpoint].
//
// Construct using [NewHost] or [MustNewHost].
type Host struct {
	core

	// Gateway is the default gateway.
	Gateway ipv4.Addr

	// ifc is the host interface.
	ifc *Interface
}

var _ Routable = &Host{}

// NewHost creates a new [*Host] whose interface node belongs to the given fabric.
func NewHost(fab *link.Fabric, config *HostConfig) (*Host, error) {
	if err := config.validate(); err != nil {
		return nil, fmt.Errorf("ip: invalid host config: %w", err)
	}
	ifc := NewInterface(config.Addr, config.Mask)
	ifc.Bind(link.NewEndpoint(fab, config.MAC))
	host := &Host{Gateway: config.Gateway, ifc: ifc}
	host.init(fab, host, host.onDatagram, ifc)
	return host, nil
}

// MustNewHost is like [NewHost] but panics on error.
func MustNewHost(fab *link.Fabric, config *HostConfig) *Host {
	return runtimex.Try1(NewHost(fab, config))
}

// Interface returns the host interface.
func (h *Host) Interface() *Interface {
	return h.ifc
}

// Endpoint returns the link-layer node of the host interface.
func (h *Host) Endpoint() link.Node {
	return h.ifc.node
}

// Route implements [Routable]. Datagrams destined to the host have no
// next hop, datagrams destined to the host subnet are sent directly,
// and the others are sent to the default gateway.
func (h *Host) Route(datagram *packet.Datagram, from *Interface) (ipv4.Addr, bool) {
	switch {
	case datagram.Dst == h.ifc.Addr:
		return ipv4.Any, false
	case h.ifc.InSubnet(datagram.Dst):
		return datagram.Dst, true
	default:
		return h.Gateway, true
	}
}

// Dispatch implements [Routable] using the host interface.
func (h *Host) Dispatch(datagram *packet.Datagram, nextHop ipv4.Addr) {
	h.Send(datagram, nextHop, h.ifc)
}

// onDatagram delivers the datagrams destined to the host.
func (h *Host) onDatagram(datagram *packet.Datagram, frame *packet.Frame, ifc *Interface) {
	if datagram.IsResolution() {
		return
	}
	if datagram.Dst != ifc.Addr && datagram.Dst != ipv4.Broadcast {
		h.logDrop(datagram, ErrNotLocal)
		return
	}
	h.deliver(datagram, frame, ifc)
}

// Update implements [world.Entity].
func (h *Host) Update(delta float64) {
	// nothing
}
