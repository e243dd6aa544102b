// SPDX-License-Identifier: GPL-3.0-or-later

package ip

import "github.com/rbmk-project/lansim/errclass"

var (
	// ErrNoRoute indicates that no route matches the destination.
	ErrNoRoute = errclass.Define(errclass.ENETUNREACH, "no route to destination")

	// ErrNoInterface indicates that no interface leads to the next hop.
	ErrNoInterface = errclass.Define(errclass.EHOSTUNREACH, "no interface toward next hop")

	// ErrSelfDelivery indicates a datagram destined to the sending interface.
	ErrSelfDelivery = errclass.Define(errclass.ELOOP, "datagram destined to the sending interface")

	// ErrUnbound indicates an interface not bound to a link-layer node.
	ErrUnbound = errclass.Define(errclass.EINVAL, "interface not bound to a link-layer node")

	// ErrNotLocal indicates a datagram received by a host that does not own its destination.
	ErrNotLocal = errclass.Define(errclass.EADDRNOTAVAIL, "datagram not addressed to this host")
)
