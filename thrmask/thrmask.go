// File: thrmask/thrmask.go
// Package thrmask implements thread membership masks for schedule groups.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package thrmask

import (
	"strings"

	"github.com/bits-and-blooms/bitset"
)

// Mask is a set of thread ids. The zero value is an empty mask.
// A Mask is not safe for concurrent mutation; the scheduler publishes
// immutable copies.
type Mask struct {
	bits bitset.BitSet
}

// New returns a mask with the given thread ids set.
func New(ids ...int) *Mask {
	m := &Mask{}
	for _, id := range ids {
		m.Set(id)
	}
	return m
}

// Set adds thread id to the mask. Negative ids are ignored.
func (m *Mask) Set(id int) {
	if id >= 0 {
		m.bits.Set(uint(id))
	}
}

// Clear removes thread id from the mask.
func (m *Mask) Clear(id int) {
	if id >= 0 {
		m.bits.Clear(uint(id))
	}
}

// IsSet reports whether id is a member.
func (m *Mask) IsSet(id int) bool {
	if m == nil || id < 0 {
		return false
	}
	return m.bits.Test(uint(id))
}

// Zero clears every member.
func (m *Mask) Zero() { m.bits.ClearAll() }

// Count returns the number of members.
func (m *Mask) Count() int {
	if m == nil {
		return 0
	}
	return int(m.bits.Count())
}

// First returns the lowest member or -1.
func (m *Mask) First() int { return m.Next(-1) }

// Next returns the lowest member greater than id or -1.
func (m *Mask) Next(id int) int {
	if m == nil {
		return -1
	}
	i, ok := m.bits.NextSet(uint(id + 1))
	if !ok {
		return -1
	}
	return int(i)
}

// Last returns the highest member or -1.
func (m *Mask) Last() int {
	last := -1
	for i := m.First(); i >= 0; i = m.Next(i) {
		last = i
	}
	return last
}

// Clone returns an independent copy.
func (m *Mask) Clone() *Mask {
	c := &Mask{}
	if m != nil {
		m.bits.CopyFull(&c.bits)
	}
	return c
}

// Or adds every member of o.
func (m *Mask) Or(o *Mask) {
	if o != nil {
		m.bits.InPlaceUnion(&o.bits)
	}
}

// And keeps members also present in o.
func (m *Mask) And(o *Mask) {
	if o == nil {
		m.Zero()
		return
	}
	m.bits.InPlaceIntersection(&o.bits)
}

// AndNot removes every member of o.
func (m *Mask) AndNot(o *Mask) {
	if o != nil {
		m.bits.InPlaceDifference(&o.bits)
	}
}

// Xor toggles every member of o.
func (m *Mask) Xor(o *Mask) {
	if o != nil {
		m.bits.InPlaceSymmetricDifference(&o.bits)
	}
}

// Equal reports whether both masks hold the same members.
func (m *Mask) Equal(o *Mask) bool {
	if m.Count() != o.Count() {
		return false
	}
	for i := m.First(); i >= 0; i = m.Next(i) {
		if !o.IsSet(i) {
			return false
		}
	}
	return true
}

// Members returns the set ids in ascending order.
func (m *Mask) Members() []int {
	out := make([]int, 0, m.Count())
	for i := m.First(); i >= 0; i = m.Next(i) {
		out = append(out, i)
	}
	return out
}

const hexDigits = "0123456789abcdef"

// String renders the mask as a hex number, thread 0 in the lowest bit.
func (m *Mask) String() string {
	last := m.Last()
	if last < 0 {
		return "0x0"
	}
	var sb strings.Builder
	sb.WriteString("0x")
	for nib := last / 4; nib >= 0; nib-- {
		v := 0
		for b := 0; b < 4; b++ {
			if m.IsSet(nib*4 + b) {
				v |= 1 << b
			}
		}
		sb.WriteByte(hexDigits[v])
	}
	return sb.String()
}
