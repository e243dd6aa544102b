// SPDX-License-Identifier: GPL-3.0-or-later

/*
Package netsim provides a discrete-time internetwork simulator.

# Usage and Features

A [*World] owns the simulation entities and advances them using
[*World.Step]. Structural changes (adding and removing entities) are
staged and applied at the next step boundary. The [*World.TimeScale]
converts the delta passed to [*World.Step] into simulated seconds.

The link layer lives in [netsim/link]. A [*Fabric] records which nodes
are linked. Each [*Link] has a bandwidth and one transmission slot per
direction, so transmitting a frame takes its size in bits divided by
the bandwidth. A [*Switch] learns where link-layer addresses live and
forwards or floods frames. An [*Endpoint] only consumes the frames
addressed to it.

The network layer lives in [netsim/ip]. A [*Host] has one interface,
a subnet and a default gateway. A [*Router] has several interfaces and
routes using ordered tables supporting longest-prefix and first-match
lookups. Both resolve next hops to link-layer addresses by
broadcasting resolution requests and queueing datagrams meanwhile.

The [*Scenario] type builds a star topology where each host reaches
the others through a central router, while the [netsim/topology]
package builds arbitrary topologies from YAML descriptions.

Drops are silent by design: full queues, missing routes and frames
not addressed to a node produce no error for the sender. Set the
[*World.Logger] to observe them as structured logs.

This package contains comprehensive examples showing how to use it.

# Design Documents

This package is experimental and has no design documents for now.
*/
package netsim
