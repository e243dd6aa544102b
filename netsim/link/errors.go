// SPDX-License-Identifier: GPL-3.0-or-later

package link

import (
	"errors"

	"github.com/rbmk-project/lansim/errclass"
)

var (
	// ErrQueueFull indicates that enqueuing would exceed the queue capacity.
	ErrQueueFull = errclass.Define(errclass.ENOBUFS, "queue full")

	// ErrNotAddressed indicates a frame not addressed to the receiving node.
	ErrNotAddressed = errclass.Define(errclass.EADDRNOTAVAIL, "frame not addressed to this node")

	// ErrLinkDown indicates a frame aborted because its link was removed.
	ErrLinkDown = errclass.Define(errclass.ENOTCONN, "link removed during transmission")

	// ErrSlotBusy indicates that a transmission already occupies the slot.
	ErrSlotBusy = errors.New("link: transmission slot busy")

	// ErrNotEndpoint indicates a node that is not one of the link endpoints.
	ErrNotEndpoint = errors.New("link: node is not an endpoint of this link")

	// ErrSelfLink indicates an attempt to link a node with itself.
	ErrSelfLink = errors.New("link: cannot link a node with itself")

	// ErrForeignNode indicates a node belonging to another [*Fabric].
	ErrForeignNode = errors.New("link: node belongs to another fabric")
)
