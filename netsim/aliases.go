//
// SPDX-License-Identifier: GPL-3.0-or-later
//
// Aliases
//

package netsim

import (
	"github.com/rbmk-project/lansim/netsim/ip"
	"github.com/rbmk-project/lansim/netsim/link"
	"github.com/rbmk-project/lansim/netsim/world"
)

// World is an alias for [world.World].
type World = world.World

// Fabric is an alias for [link.Fabric].
type Fabric = link.Fabric

// Link is an alias for [link.Link].
type Link = link.Link

// Switch is an alias for [link.Switch].
type Switch = link.Switch

// Endpoint is an alias for [link.Endpoint].
type Endpoint = link.Endpoint

// Host is an alias for [ip.Host].
type Host = ip.Host

// Router is an alias for [ip.Router].
type Router = ip.Router

// NewWorld is an alias for [world.New].
var NewWorld = world.New

// NewFabric is an alias for [link.NewFabric].
var NewFabric = link.NewFabric
