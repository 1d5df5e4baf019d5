/*
Copyright (C) 2026  Loro-Go Contributors

	This program is free software: you can redistribute it and/or modify
	it under the terms of the GNU General Public License as published by
	the Free Software Foundation, either version 3 of the License, or
	(at your option) any later version.

	This program is distributed in the hope that it will be useful,
	but WITHOUT ANY WARRANTY; without even the implied warranty of
	MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
	GNU General Public License for more details.

	You should have received a copy of the GNU General Public License
	along with this program.  If not, see <https://www.gnu.org/licenses/>.
*/

// Package counter implements the Counter container: a single f64
// accumulator where every op is a commutative, associative delta add,
// so no conflict resolution is needed regardless of merge order.
package counter

// Counter is an additive f64 register.
type Counter struct {
	value float64
}

func New() *Counter { return &Counter{} }

// Add applies a delta; safe to apply in any order relative to other
// deltas on the same counter.
func (c *Counter) Add(delta float64) { c.value += delta }

// Value returns the current total.
func (c *Counter) Value() float64 { return c.value }

// Clone returns a copy, used by docstate to checkpoint a container
// before a transaction so it can be restored on abort.
func (c *Counter) Clone() *Counter {
	clone := *c
	return &clone
}
