// SPDX-License-Identifier: GPL-3.0-or-later

package ip_test

import (
	"testing"

	"github.com/rbmk-project/lansim/netsim/ip"
	"github.com/rbmk-project/lansim/netsim/ipv4"
	"github.com/rbmk-project/lansim/netsim/link"
	"github.com/rbmk-project/lansim/netsim/packet"
	"github.com/rbmk-project/lansim/netsim/world"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newIntegrationFabric creates a world and a fabric with default settings.
func newIntegrationFabric() (*world.World, *link.Fabric) {
	w := world.New()
	return w, link.MustNewFabric(w, nil)
}

// newSingleRouter creates a router with one interface bound to an endpoint.
func newSingleRouter(fab *link.Fabric, address string, mac packet.HardwareAddr) *ip.Router {
	r := ip.MustNewRouter(fab, &ip.RouterConfig{Interfaces: 1})
	r.Attach(0, addr(address), mask24, link.NewEndpoint(fab, mac))
	return r
}

func TestIntegration_forwardAcrossRouter(t *testing.T) {
	w, fab := newIntegrationFabric()
	r := ip.MustNewRouter(fab, nil)
	r.Attach(0, ipv4.Any, mask24, link.NewSwitch(fab, "1"))
	r.Attach(1, ipv4.Any, mask24, link.NewSwitch(fab, "2"))
	r.AddRoute(0, 0, addr("8.8.8.8"))
	r.AddInterfaceRoute(addr("8.8.8.8"), 0, 1)

	switchA := link.NewSwitch(fab, "a")
	switchB := link.NewSwitch(fab, "b")
	r.Learn(addr("8.8.8.8"), switchB.HardwareAddr())
	w.Add(r)
	w.Add(switchA)
	w.Add(switchB)
	switchA.LinkWith(r.Interface(0).Node())
	switchB.LinkWith(r.Interface(1).Node())

	var received []*packet.Frame
	switchB.Subscribe(func(frame *packet.Frame, via *link.Link) {
		received = append(received, frame)
	})

	datagram := &packet.Datagram{Dst: addr("8.8.8.8")}
	switchA.SendFrame(packet.Encapsulate("a", "1", datagram), nil)
	w.Step(1, 20)

	require.Len(t, received, 1)
	assert.Same(t, datagram, received[0].Datagram)
}

func TestIntegration_routersResolveEachOther(t *testing.T) {
	cases := []struct {
		macA, macB packet.HardwareAddr
	}{
		{"00:FE:AB:00:02:01", "00:FE:AB:82:FF:FE"},
		{"AA:BB:CC:DD:EE:FF", "11:22:33:44:55:66"},
	}
	for _, tc := range cases {
		t.Run(string(tc.macA), func(t *testing.T) {
			w, fab := newIntegrationFabric()
			routerA := newSingleRouter(fab, "192.168.1.1", tc.macA)
			routerA.AddRoute(0, 0, addr("192.168.1.2"))
			routerA.AddInterfaceRoute(0, 0, 0)
			routerB := newSingleRouter(fab, "192.168.1.2", tc.macB)
			routerB.AddRoute(0, 0, addr("192.168.1.1"))
			routerB.AddInterfaceRoute(0, 0, 0)
			w.Add(routerA)
			w.Add(routerB)
			routerA.Interface(0).Node().LinkWith(routerB.Interface(0).Node())

			var received []*packet.Datagram
			routerB.OnReceive(func(datagram *packet.Datagram, frame *packet.Frame, ifc *ip.Interface) {
				received = append(received, datagram)
			})
			datagram := &packet.Datagram{Src: addr("192.168.1.1"), Dst: addr("192.168.1.2")}
			routerA.SendDatagram(datagram)
			w.Step(1, 20)

			hwaddr, found := routerB.Lookup(addr("192.168.1.1"))
			require.True(t, found)
			assert.Equal(t, tc.macA, hwaddr)
			hwaddr, found = routerA.Lookup(addr("192.168.1.2"))
			require.True(t, found)
			assert.Equal(t, tc.macB, hwaddr)
			assert.Equal(t, []*packet.Datagram{datagram}, received)
			_, found = routerA.Pending(addr("192.168.1.2"))
			assert.False(t, found)
		})
	}
}

func TestIntegration_threeRouters(t *testing.T) {
	w, fab := newIntegrationFabric()

	routerA := newSingleRouter(fab, "192.168.1.34", ":0A")
	routerA.AddRoute(0, 0, addr("192.168.1.1"))
	routerA.AddInterfaceRoute(0, 0, 0)

	routerB := ip.MustNewRouter(fab, nil)
	routerB.Attach(0, addr("192.168.1.1"), mask24, link.NewEndpoint(fab, ":0B"))
	routerB.Attach(1, addr("10.100.100.1"), ipv4.MaskFromBits(8), link.NewEndpoint(fab, ":1B"))
	routerB.AddRoute(addr("10.0.0.0"), ipv4.MaskFromBits(8), addr("10.4.35.2"))
	routerB.AddRoute(0, 0, 0)
	routerB.AddInterfaceRoute(addr("10.0.0.0"), ipv4.MaskFromBits(8), 1)
	routerB.AddInterfaceRoute(0, 0, 0)

	routerC := newSingleRouter(fab, "10.4.35.2", ":0C")
	routerC.AddRoute(0, 0, 0)
	routerC.AddInterfaceRoute(0, 0, 0)

	w.Add(routerA)
	w.Add(routerB)
	w.Add(routerC)
	routerA.Interface(0).Node().LinkWith(routerB.Interface(0).Node())
	routerB.Interface(1).Node().LinkWith(routerC.Interface(0).Node())

	var received []*packet.Datagram
	routerC.OnReceive(func(datagram *packet.Datagram, frame *packet.Frame, ifc *ip.Interface) {
		received = append(received, datagram)
	})
	datagram := &packet.Datagram{
		Src: routerA.Interface(0).Addr,
		Dst: routerC.Interface(0).Addr,
	}
	routerA.SendDatagram(datagram)
	w.Step(1, 40)

	expect := []struct {
		router *ip.Router
		addr   string
		hwaddr packet.HardwareAddr
	}{
		{routerA, "192.168.1.1", ":0B"},
		{routerB, "192.168.1.34", ":0A"},
		{routerB, "10.4.35.2", ":0C"},
		{routerC, "10.100.100.1", ":1B"},
	}
	for _, entry := range expect {
		hwaddr, found := entry.router.Lookup(addr(entry.addr))
		require.True(t, found, entry.addr)
		assert.Equal(t, entry.hwaddr, hwaddr)
	}
	assert.Equal(t, []*packet.Datagram{datagram}, received)
}

func TestIntegration_hostsThroughSwitch(t *testing.T) {
	w, fab := newIntegrationFabric()
	r := ip.MustNewRouter(fab, &ip.RouterConfig{Interfaces: 1})
	sw := link.NewSwitch(fab, ":00")
	r.Attach(0, addr("192.168.5.1"), mask24, sw)
	hostA := ip.MustNewHost(fab, &ip.HostConfig{Addr: addr("192.168.5.3"), Mask: mask24, MAC: ":A0"})
	hostB := ip.MustNewHost(fab, &ip.HostConfig{Addr: addr("192.168.5.8"), Mask: mask24, MAC: ":B0"})
	w.Add(r)
	w.Add(hostA)
	w.Add(hostB)
	hostA.Endpoint().LinkWith(sw)
	hostB.Endpoint().LinkWith(sw)

	var received []*packet.Datagram
	hostB.OnReceive(func(datagram *packet.Datagram, frame *packet.Frame, ifc *ip.Interface) {
		received = append(received, datagram)
	})
	datagram := &packet.Datagram{
		Src: hostA.Interface().Addr,
		Dst: hostB.Interface().Addr,
	}
	hostA.SendDatagram(datagram)
	w.Step(1, 20)

	_, found := hostA.Pending(hostB.Interface().Addr)
	assert.False(t, found)
	assert.Equal(t, []*packet.Datagram{datagram}, received)
}

func TestIntegration_defaultGateway(t *testing.T) {
	w, fab := newIntegrationFabric()
	w.TimeScale = 0.25

	router := ip.MustNewRouter(fab, nil)
	router.Attach(0, addr("192.168.5.1"), mask24, link.NewEndpoint(fab, ":00"))
	router.Attach(1, addr("10.100.1.1"), ipv4.MaskFromBits(8), link.NewEndpoint(fab, ":08"))
	router.AddRoute(addr("10.0.0.0"), ipv4.MaskFromBits(8), addr("10.100.2.1"))
	router.AddInterfaceRoute(addr("10.0.0.0"), ipv4.MaskFromBits(8), 1)

	router2 := newSingleRouter(fab, "10.100.2.1", ":FF")
	router2.AddRoute(0, 0, addr("10.100.1.1"))
	router2.AddInterfaceRoute(0, 0, 0)

	sw := link.NewSwitch(fab, ":5W")
	hostA := ip.MustNewHost(fab, &ip.HostConfig{
		Addr: addr("192.168.5.3"), Mask: mask24, Gateway: addr("192.168.5.1"), MAC: ":A1",
	})
	hostB := ip.MustNewHost(fab, &ip.HostConfig{
		Addr: addr("192.168.5.8"), Mask: mask24, Gateway: addr("192.168.5.1"), MAC: ":B2",
	})

	w.Add(router)
	w.Add(router2)
	w.Add(sw)
	w.Add(hostA)
	w.Add(hostB)
	hostA.Endpoint().LinkWith(sw)
	hostB.Endpoint().LinkWith(sw)
	router.Interface(0).Node().LinkWith(sw)
	router.Interface(1).Node().LinkWith(router2.Interface(0).Node())

	datagram := &packet.Datagram{Src: hostA.Interface().Addr, Dst: addr("10.100.2.1")}
	var received []*packet.Datagram
	router2.Interface(0).OnDatagram(func(d *packet.Datagram, frame *packet.Frame, ifc *ip.Interface) {
		if d == datagram {
			received = append(received, d)
		}
	})
	hostB.SendDatagram(datagram)
	w.Step(1, 200)

	assert.Equal(t, []*packet.Datagram{datagram}, received)
	hwaddr, found := router.Lookup(addr("192.168.5.8"))
	require.True(t, found)
	assert.Equal(t, packet.HardwareAddr(":B2"), hwaddr)
}

func TestIntegration_removingHostUnlinksIt(t *testing.T) {
	w, fab := newIntegrationFabric()
	sw := link.NewSwitch(fab, ":00")
	host := ip.MustNewHost(fab, &ip.HostConfig{Addr: addr("192.168.5.3"), Mask: mask24, MAC: ":A0"})
	w.Add(sw)
	w.Add(host)
	lnk := host.Endpoint().LinkWith(sw)
	w.Step(1, 1)
	require.True(t, w.Contains(host.Endpoint()))

	w.Remove(host)
	w.Step(1, 1)

	assert.False(t, w.Contains(host))
	assert.False(t, w.Contains(host.Endpoint()))
	assert.False(t, w.Contains(lnk))
	assert.Empty(t, fab.LinksOf(sw))
}
