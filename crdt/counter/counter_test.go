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

package counter

import "testing"

func TestAddOrderIndependent(t *testing.T) {
	a := New()
	a.Add(5)
	a.Add(-2)
	a.Add(10)

	b := New()
	b.Add(10)
	b.Add(5)
	b.Add(-2)

	if a.Value() != b.Value() {
		t.Fatalf("expected order-independent total, got %v vs %v", a.Value(), b.Value())
	}
	if a.Value() != 13 {
		t.Fatalf("expected 13, got %v", a.Value())
	}
}
