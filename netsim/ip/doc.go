// SPDX-License-Identifier: GPL-3.0-or-later

/*
Package ip simulates the network layer.

An [*Interface] binds an IPv4 address and mask to a [link.Node] and
turns the frames the node delivers upward into datagram and
address-resolution events.

A [*Host] has a single interface and routes using its subnet and its
default gateway. A [*Router] has several interfaces and routes using
two [rtable.Table]: one mapping destinations to next hops and one
mapping next hops to egress interfaces. Routers may delay each
datagram they forward by a fixed processing delay.

Both resolve next hops to link-layer addresses using a cache. On a
cache miss, they broadcast a resolution request and queue the datagram
until the reply arrives. Resolution requests never time out and are
never retried, therefore datagrams may wait forever if a reply is lost.
*/
package ip
