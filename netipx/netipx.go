// SPDX-License-Identifier: GPL-3.0-or-later

// Package netipx contains [net/netip] extensions.
package netipx

import (
	"encoding/binary"
	"errors"
	"net/netip"
)

// ErrNotIPv4 indicates that an address is not an IPv4 address.
var ErrNotIPv4 = errors.New("netipx: not an IPv4 address")

// Uint32FromAddr converts an IPv4 [netip.Addr] to its big-endian
// 32-bit representation. IPv4-mapped IPv6 addresses are unmapped
// first. Any other address causes [ErrNotIPv4].
func Uint32FromAddr(addr netip.Addr) (uint32, error) {
	addr = addr.Unmap()
	if !addr.Is4() {
		return 0, ErrNotIPv4
	}
	raw := addr.As4()
	return binary.BigEndian.Uint32(raw[:]), nil
}

// AddrFromUint32 is the inverse of [Uint32FromAddr].
func AddrFromUint32(value uint32) netip.Addr {
	var raw [4]byte
	binary.BigEndian.PutUint32(raw[:], value)
	return netip.AddrFrom4(raw)
}

// MaskFromBits returns the 32-bit network mask with the given
// number of leading one bits. Values outside [0, 32] are clamped.
func MaskFromBits(bits int) uint32 {
	switch {
	case bits <= 0:
		return 0
	case bits >= 32:
		return 0xFFFFFFFF
	default:
		return ^uint32(0) << (32 - bits)
	}
}
