// SPDX-License-Identifier: GPL-3.0-or-later

package link

import (
	"log/slog"

	"github.com/rbmk-project/common/runtimex"
	"github.com/rbmk-project/lansim/errclass"
	"github.com/rbmk-project/lansim/netsim/packet"
	"github.com/rbmk-project/lansim/netsim/world"
)

// Link models a bandwidth-limited bidirectional link between two [Node].
//
// The zero value is not ready to use; construct using [*Fabric.Connect].
type Link struct {
	// Membership records the owning world.
	world.Membership

	// Bandwidth is the link bandwidth in bits per second. Changes
	// only affect transmissions that have not started yet.
	Bandwidth float64

	// down is set once the link has been removed from its fabric.
	down bool

	// ends contains the two link endpoints.
	ends [2]Node

	// fabric is the fabric owning the link.
	fabric *Fabric

	// slots contains the transmission toward ends[0] and ends[1].
	slots [2]*Transmission
}

// newLink creates a new [*Link].
func newLink(fab *Fabric, a, b Node) *Link {
	return &Link{
		Bandwidth: fab.config.Bandwidth,
		ends:      [2]Node{a, b},
		fabric:    fab,
	}
}

// Endpoints returns the two nodes connected by the link.
func (lnk *Link) Endpoints() [2]Node {
	return lnk.ends
}

// IndexOf returns the index of n within [*Link.Endpoints].
func (lnk *Link) IndexOf(n Node) (int, error) {
	switch {
	case lnk.ends[0] == n:
		return 0, nil
	case lnk.ends[1] == n:
		return 1, nil
	default:
		return -1, ErrNotEndpoint
	}
}

// MustIndexOf is like [*Link.IndexOf] but panics on error.
func (lnk *Link) MustIndexOf(n Node) int {
	return runtimex.Try1(lnk.IndexOf(n))
}

// Other returns the endpoint at the other end of the link.
//
// This method panics if n is not an endpoint of the link.
func (lnk *Link) Other(n Node) Node {
	return lnk.ends[1-lnk.MustIndexOf(n)]
}

// Up returns whether the link still belongs to its fabric.
func (lnk *Link) Up() bool {
	return !lnk.down
}

// InFlight returns the transmission toward dst, if any.
//
// This method panics if dst is not an endpoint of the link.
func (lnk *Link) InFlight(dst Node) *Transmission {
	return lnk.slots[lnk.MustIndexOf(dst)]
}

// Free returns whether the slot toward dst is free.
//
// This method panics if dst is not an endpoint of the link.
func (lnk *Link) Free(dst Node) bool {
	return lnk.InFlight(dst) == nil
}

// TransmissionTime returns the time in seconds required to transmit
// the given frame. Non-positive bandwidths transmit instantly.
func (lnk *Link) TransmissionTime(frame *packet.Frame) float64 {
	if lnk.Bandwidth <= 0 {
		return 0
	}
	return float64(frame.Size()*8) / lnk.Bandwidth
}

// Transmit starts transmitting the frame toward dst using the slot
// toward dst, and registers the resulting [*Transmission] with the
// world. Once the transmission completes, the slot becomes free and
// the link delivers the frame to dst using [Node.ReceiveFrame].
//
// Returns [ErrSlotBusy] if the slot is not free, [ErrLinkDown] if the
// link has been removed, and [ErrNotEndpoint] if dst is not an endpoint.
func (lnk *Link) Transmit(frame *packet.Frame, dst Node) (*Transmission, error) {
	index, err := lnk.IndexOf(dst)
	if err != nil {
		return nil, err
	}
	if lnk.down {
		return nil, ErrLinkDown
	}
	if lnk.slots[index] != nil {
		return nil, ErrSlotBusy
	}
	duration := lnk.TransmissionTime(frame)
	tx := &Transmission{
		duration:  duration,
		frame:     frame,
		link:      lnk,
		onDone:    lnk.complete,
		remaining: duration,
		to:        index,
	}
	lnk.slots[index] = tx
	if w := lnk.fabric.world; w != nil {
		w.Add(tx)
	}
	lnk.fabric.world.Log(
		"transmissionStarted",
		slog.String("frame", frame.String()),
		slog.String("to", string(dst.HardwareAddr())),
		slog.Float64("duration", duration),
	)
	return tx, nil
}

// complete is the one-shot completion callback of each [*Transmission].
func (lnk *Link) complete(tx *Transmission) {
	if lnk.slots[tx.to] == tx {
		lnk.slots[tx.to] = nil
	}
	if w := lnk.fabric.world; w != nil {
		w.Remove(tx)
	}
	dst := lnk.ends[tx.to]
	lnk.fabric.world.Log(
		"frameDelivered",
		slog.String("frame", tx.frame.String()),
		slog.String("to", string(dst.HardwareAddr())),
	)
	dst.ReceiveFrame(tx.frame, lnk)
}

// abort marks the link as down and drops the transmissions in flight.
func (lnk *Link) abort() {
	lnk.down = true
	for index, tx := range lnk.slots {
		if tx == nil {
			continue
		}
		lnk.slots[index] = nil
		tx.onDone = nil
		if w := lnk.fabric.world; w != nil {
			w.Remove(tx)
		}
		lnk.fabric.world.Log(
			"transmissionAborted",
			slog.String("frame", tx.frame.String()),
			slog.Any("err", ErrLinkDown),
			slog.String("errClass", errclass.New(ErrLinkDown)),
		)
	}
}

// Update implements [world.Entity]. Links are passive: transmissions
// advance themselves.
func (lnk *Link) Update(delta float64) {
	// nothing
}

// Position implements [world.Drawable].
func (lnk *Link) Position() world.Vec2 {
	return world.Lerp(lnk.ends[0].Position(), lnk.ends[1].Position(), 0.5)
}

// Visible implements [world.Drawable].
func (lnk *Link) Visible() bool {
	return !lnk.down
}

// Transmission is a frame in flight on a [*Link].
//
// Construct using [*Link.Transmit].
type Transmission struct {
	// Membership records the owning world.
	world.Membership

	// duration is the total transmission time.
	duration float64

	// frame is the frame being carried.
	frame *packet.Frame

	// link is the link carrying the frame.
	link *Link

	// onDone is the completion callback, cleared after invoking it
	// or when the transmission is aborted.
	onDone func(tx *Transmission)

	// remaining is the remaining transmission time.
	remaining float64

	// to is the index of the destination endpoint.
	to int
}

// Frame returns the frame being carried.
func (tx *Transmission) Frame() *packet.Frame {
	return tx.frame
}

// Link returns the link carrying the frame.
func (tx *Transmission) Link() *Link {
	return tx.link
}

// Destination returns the receiving node.
func (tx *Transmission) Destination() Node {
	return tx.link.ends[tx.to]
}

// Duration returns the total transmission time in seconds.
func (tx *Transmission) Duration() float64 {
	return tx.duration
}

// Remaining returns the remaining transmission time in seconds.
func (tx *Transmission) Remaining() float64 {
	return tx.remaining
}

// Pending returns whether the transmission has neither completed nor been aborted.
func (tx *Transmission) Pending() bool {
	return tx.onDone != nil
}

// Progress returns the completed fraction of the transmission in [0, 1].
func (tx *Transmission) Progress() float64 {
	if tx.duration <= 0 {
		return 1
	}
	return min(max(1-tx.remaining/tx.duration, 0), 1)
}

// Update implements [world.Entity]. The transmission completes during
// the first update where the remaining time reaches zero or less.
func (tx *Transmission) Update(delta float64) {
	if tx.onDone == nil {
		return
	}
	tx.remaining -= delta
	if tx.remaining > 0 {
		return
	}
	done := tx.onDone
	tx.onDone = nil
	done(tx)
}

// Position implements [world.Drawable].
func (tx *Transmission) Position() world.Vec2 {
	from := tx.link.ends[1-tx.to].Position()
	to := tx.link.ends[tx.to].Position()
	return world.Lerp(from, to, tx.Progress())
}

// Visible implements [world.Drawable].
func (tx *Transmission) Visible() bool {
	return tx.Pending()
}
