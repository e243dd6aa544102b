// SPDX-License-Identifier: GPL-3.0-or-later

// Package ipv4 contains the 32-bit network address used by the simulation.
package ipv4

import (
	"fmt"
	"net/netip"

	"github.com/rbmk-project/common/runtimex"
	"github.com/rbmk-project/lansim/netipx"
)

// Addr is a 32-bit IPv4 address. Addresses are plain values:
// compare them with == and use them as map keys.
//
// Masks use the same type: a /24 mask is 0xFFFFFF00.
type Addr uint32

const (
	// Any is the all-zeros address (also the /0 mask).
	Any Addr = 0x00000000

	// Broadcast is the all-ones address (also the /32 mask).
	Broadcast Addr = 0xFFFFFFFF
)

// ParseAddr parses an address in dotted-decimal notation.
func ParseAddr(s string) (Addr, error) {
	na, err := netip.ParseAddr(s)
	if err != nil {
		return 0, fmt.Errorf("ipv4: %w", err)
	}
	value, err := netipx.Uint32FromAddr(na)
	if err != nil {
		return 0, fmt.Errorf("ipv4: %s: %w", s, err)
	}
	return Addr(value), nil
}

// MustParseAddr is like [ParseAddr] but panics on error.
func MustParseAddr(s string) Addr {
	return runtimex.Try1(ParseAddr(s))
}

// ParsePrefix parses an address in CIDR notation (e.g., 10.0.0.0/8)
// and returns the address along with the mask. The address is not
// masked, so "192.168.1.8/24" yields 192.168.1.8 and 255.255.255.0.
func ParsePrefix(s string) (Addr, Addr, error) {
	prefix, err := netip.ParsePrefix(s)
	if err != nil {
		return 0, 0, fmt.Errorf("ipv4: %w", err)
	}
	value, err := netipx.Uint32FromAddr(prefix.Addr())
	if err != nil {
		return 0, 0, fmt.Errorf("ipv4: %s: %w", s, err)
	}
	return Addr(value), MaskFromBits(prefix.Bits()), nil
}

// MaskFromBits returns the mask with the given number of leading ones.
func MaskFromBits(bits int) Addr {
	return Addr(netipx.MaskFromBits(bits))
}

// String returns the dotted-decimal representation.
func (a Addr) String() string {
	return netipx.AddrFromUint32(uint32(a)).String()
}

// Netip converts the address to a [netip.Addr].
func (a Addr) Netip() netip.Addr {
	return netipx.AddrFromUint32(uint32(a))
}

// Mask returns the bitwise AND of the address and the mask.
func (a Addr) Mask(mask Addr) Addr {
	return a & mask
}

// Matches returns whether the address and network are equal
// once both have been masked using the given mask.
func (a Addr) Matches(network, mask Addr) bool {
	return a&mask == network&mask
}
