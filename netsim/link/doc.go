// SPDX-License-Identifier: GPL-3.0-or-later

/*
Package link simulates the link layer.

A [*Fabric] keeps track of which [Node] is linked with which. There are
two kinds of [Node]: an [*Endpoint], which has a single active link and
consumes the frames addressed to it, and a [*Switch], which learns where
link-layer addresses live and forwards or floods frames.

Each [*Link] has a bandwidth and two independent transmission slots, one
per direction. Nodes queue outgoing frames in a bounded [*Queue] and hand
the head frame to the link when the slot toward the peer is free. The
link then creates a [*Transmission], registered with the [*world.World],
which delivers the frame to the peer once the simulated transmission
time (size in bits divided by bandwidth) has elapsed.

Drops (full queues, frames not addressed to a node, frames aborted by
unlinking) are silent: they are only visible in the structured logs
emitted through the [*world.World] logger.
*/
package link
