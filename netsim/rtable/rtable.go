// SPDX-License-Identifier: GPL-3.0-or-later

// Package rtable implements ordered routing tables.
package rtable

import "github.com/rbmk-project/lansim/netsim/ipv4"

// Entry is a [*Table] entry.
type Entry[V any] struct {
	// Dst is the destination network.
	Dst ipv4.Addr

	// Mask is the destination network mask.
	Mask ipv4.Addr

	// Value is the value associated with the destination.
	Value V
}

// Matches returns whether addr belongs to the entry's network.
func (e Entry[V]) Matches(addr ipv4.Addr) bool {
	return addr.Matches(e.Dst, e.Mask)
}

// Policy selects how [*Table.Lookup] chooses among matching entries.
type Policy int

const (
	// LongestPrefixMatch selects the matching entry with the greatest
	// mask. Among entries with equal masks, the last inserted wins.
	LongestPrefixMatch Policy = iota

	// FirstMatch selects the first inserted matching entry.
	FirstMatch
)

// Table is an append-only, ordered routing table.
//
// The zero value is ready to use.
type Table[V any] struct {
	entries []Entry[V]
}

// Insert appends an entry to the table.
func (t *Table[V]) Insert(dst, mask ipv4.Addr, value V) {
	t.entries = append(t.entries, Entry[V]{Dst: dst, Mask: mask, Value: value})
}

// Entries returns a copy of the table entries in insertion order.
func (t *Table[V]) Entries() []Entry[V] {
	return append([]Entry[V]{}, t.entries...)
}

// Len returns the number of entries.
func (t *Table[V]) Len() int {
	return len(t.entries)
}

// FirstMatch returns the value of the first inserted entry matching addr.
func (t *Table[V]) FirstMatch(addr ipv4.Addr) (V, bool) {
	for _, entry := range t.entries {
		if entry.Matches(addr) {
			return entry.Value, true
		}
	}
	var zero V
	return zero, false
}

// LongestPrefixMatch returns the value of the matching entry having the
// numerically greatest mask. Equal masks prefer the later inserted entry.
func (t *Table[V]) LongestPrefixMatch(addr ipv4.Addr) (V, bool) {
	var (
		best  V
		found bool
		mask  ipv4.Addr
	)
	for _, entry := range t.entries {
		if !entry.Matches(addr) {
			continue
		}
		if !found || entry.Mask >= mask {
			best, mask, found = entry.Value, entry.Mask, true
		}
	}
	return best, found
}

// Lookup uses the given [Policy] to look up addr.
func (t *Table[V]) Lookup(addr ipv4.Addr, policy Policy) (V, bool) {
	if policy == FirstMatch {
		return t.FirstMatch(addr)
	}
	return t.LongestPrefixMatch(addr)
}
