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

// Package rleutil provides generic run-length-encoding helpers; its
// user in this module is oplog's causal DAG (runs of DagNode per peer).
// Every user of this package supplies its own Mergeable
// element type; rleutil only handles the generic "merge adjacent
// compatible runs" and "slice a run by length" bookkeeping.
package rleutil

// Mergeable is implemented by RLE-compressible elements: spans of
// identical or contiguous content that should be stored as one run
// rather than N.
type Mergeable[T any] interface {
	// Len returns how many logical units (counters, chars, list slots)
	// this run covers.
	Len() int
	// Mergeable reports whether other can be appended directly after
	// this run to form one larger run.
	Mergeable(other T) bool
	// Merge returns a new run covering this run immediately followed
	// by other. Only called when Mergeable(other) is true.
	Merge(other T) T
	// Slice returns the sub-run covering [start, end) logical units.
	Slice(start, end int) T
}

// Vec is a run-length-compressed sequence: logically a flat sequence
// of units, physically a list of merged runs.
type Vec[T Mergeable[T]] struct {
	runs []T
}

func NewVec[T Mergeable[T]]() *Vec[T] {
	return &Vec[T]{}
}

// Push appends run to the vector, merging it into the last run if
// possible.
func (v *Vec[T]) Push(run T) {
	if run.Len() == 0 {
		return
	}
	if n := len(v.runs); n > 0 && v.runs[n-1].Mergeable(run) {
		v.runs[n-1] = v.runs[n-1].Merge(run)
		return
	}
	v.runs = append(v.runs, run)
}

// Runs returns the underlying runs, in order. Callers must not mutate
// the returned slice.
func (v *Vec[T]) Runs() []T {
	return v.runs
}

// Len returns the total number of logical units across all runs.
func (v *Vec[T]) Len() int {
	n := 0
	for _, r := range v.runs {
		n += r.Len()
	}
	return n
}

// RunCount returns the number of physical runs (post-merge).
func (v *Vec[T]) RunCount() int {
	return len(v.runs)
}

// SliceBetween returns the runs covering logical offsets [start, end),
// splitting boundary runs as needed; the original vector is unchanged.
func (v *Vec[T]) SliceBetween(start, end int) []T {
	if start >= end {
		return nil
	}
	var out []T
	pos := 0
	for _, r := range v.runs {
		rLen := r.Len()
		rStart, rEnd := pos, pos+rLen
		pos = rEnd
		if rEnd <= start || rStart >= end {
			continue
		}
		lo := 0
		if start > rStart {
			lo = start - rStart
		}
		hi := rLen
		if end < rEnd {
			hi = end - rStart
		}
		out = append(out, r.Slice(lo, hi))
	}
	return out
}

// At returns the run covering logical offset pos, and the offset
// within that run, or ok=false if pos is out of range.
func (v *Vec[T]) At(pos int) (run T, offsetInRun int, ok bool) {
	base := 0
	for _, r := range v.runs {
		l := r.Len()
		if pos < base+l {
			return r, pos - base, true
		}
		base += l
	}
	var zero T
	return zero, 0, false
}
