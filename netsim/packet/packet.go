// SPDX-License-Identifier: GPL-3.0-or-later

// Package packet contains [*Frame], [*Datagram] and the related definitions.
package packet

import (
	"fmt"
	"math/rand/v2"
	"strings"

	"github.com/rbmk-project/lansim/netsim/ipv4"
)

// HardwareAddr is a link-layer address.
//
// The simulation treats link-layer addresses as opaque identifiers: any
// colon- or hyphen-delimited string works, and there is no length check.
type HardwareAddr string

// BroadcastHardwareAddr is the all-ones link-layer broadcast address.
const BroadcastHardwareAddr HardwareAddr = "FF:FF:FF:FF:FF:FF"

// IsBroadcast returns whether this is the broadcast address. The
// comparison ignores case and accepts hyphens as delimiters.
func (a HardwareAddr) IsBroadcast() bool {
	normalized := strings.ReplaceAll(string(a), "-", ":")
	return strings.EqualFold(normalized, string(BroadcastHardwareAddr))
}

// RandomHardwareAddr returns a random, locally administered, unicast
// link-layer address formatted as six colon-separated hex octets.
func RandomHardwareAddr(r *rand.Rand) HardwareAddr {
	value := r.Uint64()
	octets := make([]string, 6)
	for idx := range octets {
		octet := byte(value >> (8 * idx))
		if idx == 0 {
			octet |= 0x02 // locally administered
			octet &= 0xFE // unicast
		}
		octets[idx] = fmt.Sprintf("%02X", octet)
	}
	return HardwareAddr(strings.Join(octets, ":"))
}

// ResolutionOp is the operation carried by an address-resolution datagram.
type ResolutionOp uint16

const (
	// OpNone marks a datagram that is not an address-resolution datagram.
	OpNone ResolutionOp = iota

	// OpRequest asks who owns the datagram's destination address.
	OpRequest

	// OpReply answers an [OpRequest].
	OpReply
)

// String returns the string representation of the operation.
func (op ResolutionOp) String() string {
	switch op {
	case OpRequest:
		return "request"
	case OpReply:
		return "reply"
	default:
		return "none"
	}
}

const (
	// DatagramHeaderSize is the size of the datagram header in bytes.
	DatagramHeaderSize = 20

	// ResolutionSize is the size in bytes of an address-resolution
	// datagram, which replaces the datagram header entirely.
	ResolutionSize = 28

	// FrameHeaderSize is the size of the frame header in bytes.
	FrameHeaderSize = 18
)

// Datagram is a network-layer packet.
//
// When Op is not [OpNone], the datagram is an address-resolution payload
// and Src is "who is asking" while Dst is "who is being asked about".
type Datagram struct {
	// Src is the source address.
	Src ipv4.Addr

	// Dst is the destination address.
	Dst ipv4.Addr

	// Payload is the optional transport payload.
	Payload []byte

	// Op is the address-resolution operation.
	Op ResolutionOp
}

// NewResolution creates a new address-resolution [*Datagram].
func NewResolution(op ResolutionOp, src, dst ipv4.Addr) *Datagram {
	return &Datagram{Src: src, Dst: dst, Op: op}
}

// IsResolution returns whether this is an address-resolution datagram.
func (d *Datagram) IsResolution() bool {
	return d.Op != OpNone
}

// Size returns the size of the datagram in bytes.
func (d *Datagram) Size() int {
	if d.IsResolution() {
		return ResolutionSize
	}
	return DatagramHeaderSize + len(d.Payload)
}

// String returns the string representation of the datagram.
func (d *Datagram) String() string {
	if d.IsResolution() {
		return fmt.Sprintf("%s -> %s arp %s", d.Src, d.Dst, d.Op)
	}
	return fmt.Sprintf("%s -> %s length=%d", d.Src, d.Dst, len(d.Payload))
}

// FrameType tags the content of a [*Frame].
type FrameType uint8

const (
	// FrameData is a frame carrying a regular datagram (or nothing).
	FrameData FrameType = iota

	// FrameResolution is a frame carrying an address-resolution datagram.
	FrameResolution
)

// String returns the string representation of the frame type.
func (t FrameType) String() string {
	if t == FrameResolution {
		return "arp"
	}
	return "data"
}

// Frame is a link-layer packet.
type Frame struct {
	// Src is the source link-layer address.
	Src HardwareAddr

	// Dst is the destination link-layer address.
	Dst HardwareAddr

	// Datagram is the optional encapsulated datagram.
	Datagram *Datagram

	// Type tags the frame content.
	Type FrameType
}

// Encapsulate creates a [*Frame] carrying the given datagram and sets
// the frame type according to the datagram kind.
func Encapsulate(src, dst HardwareAddr, datagram *Datagram) *Frame {
	frame := &Frame{Src: src, Dst: dst, Datagram: datagram, Type: FrameData}
	if datagram != nil && datagram.IsResolution() {
		frame.Type = FrameResolution
	}
	return frame
}

// IsBroadcast returns whether the frame is addressed to [BroadcastHardwareAddr].
func (f *Frame) IsBroadcast() bool {
	return f.Dst.IsBroadcast()
}

// Size returns the size of the frame in bytes.
func (f *Frame) Size() int {
	if f.Datagram == nil {
		return FrameHeaderSize
	}
	return FrameHeaderSize + f.Datagram.Size()
}

// Clone returns a copy of the frame. The copy shares the encapsulated
// datagram, which the simulation never mutates after sending.
func (f *Frame) Clone() *Frame {
	clone := *f
	return &clone
}

// String returns the string representation of the frame.
func (f *Frame) String() string {
	return fmt.Sprintf("%s -> %s %s size=%d", f.Src, f.Dst, f.Type, f.Size())
}
