// SPDX-License-Identifier: GPL-3.0-or-later

package netsim

import (
	"math/rand/v2"
	"slices"

	"github.com/rbmk-project/common/runtimex"
	"github.com/rbmk-project/lansim/netsim/ip"
	"github.com/rbmk-project/lansim/netsim/link"
	"github.com/rbmk-project/lansim/netsim/world"
)

// Scenario manages network simulation components using a star topology,
// where all hosts are connected through a central router.
//
// This means:
//
// 1. Each host is linked only to its own interface of the central router;
//
// 2. The router forwards datagrams between hosts using host routes;
//
// 3. The router answers resolution requests for the other hosts, so
// hosts sharing a subnet also talk through the router.
type Scenario struct {
	// entities tracks the entities added to the world.
	entities []world.Entity

	// fabric is the link-layer fabric.
	fabric *link.Fabric

	// rng generates the link-layer addresses.
	rng *rand.Rand

	// router is the star-topology router.
	router *ip.Router

	// used is the number of router interfaces in use.
	used int

	// world is the world containing the scenario.
	world *world.World
}

// NewScenario creates a new network simulation scenario inside the
// given world. The seed makes the generated link-layer addresses
// reproducible.
func NewScenario(w *World, seed uint64) *Scenario {
	fab := runtimex.Try1(link.NewFabric(w, nil))
	r := runtimex.Try1(ip.NewRouter(fab, &ip.RouterConfig{
		Interfaces:      1,
		ProxyResolution: true,
	}))
	w.Add(r)
	return &Scenario{
		entities: []world.Entity{r},
		fabric:   fab,
		rng:      rand.New(rand.NewPCG(seed, seed)),
		router:   r,
		world:    w,
	}
}

// Fabric returns the scenario [*Fabric].
func (s *Scenario) Fabric() *Fabric {
	return s.fabric
}

// Router returns the central [*Router].
func (s *Scenario) Router() *Router {
	return s.router
}

// MustNewHost creates a new host using the given configuration, links
// it with a new interface of the central router and adds it to the world.
//
// This method panics on error.
//
// This method IS NOT goroutine safe.
func (s *Scenario) MustNewHost(config *StackConfig) *Host {
	runtimex.Try0(config.validate())
	host := runtimex.Try1(s.newHost(config))
	s.world.Add(host)
	s.entities = append(s.entities, host)
	return host
}

// Close removes from the world all the entities created by the scenario,
// in backward order. The removal happens at the next world step.
func (s *Scenario) Close() {
	for _, entity := range slices.Backward(s.entities) {
		s.world.Remove(entity)
	}
	s.entities = nil
}
