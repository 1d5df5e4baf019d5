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
package codec

import "encoding/binary"

// snapshot.go frames the ModeSnapshot body: a count-prefixed list of
// named sections, each an opaque length-prefixed blob. The format
// itself doesn't know what a section's bytes mean — it stays as
// agnostic of section content as kvblock.go is of value content —
// so callers can grow what a snapshot carries (today: a change-store
// SSTable and a root-container name dictionary; see oplog/snapshot.go)
// without another change to this file.

// SnapshotSection is one named blob inside a snapshot.
type SnapshotSection struct {
	Name string
	Data []byte
}

// EncodeSnapshot frames sections behind the common codec header in
// ModeSnapshot.
func EncodeSnapshot(sections []SnapshotSection) []byte {
	buf := WriteHeader(ModeSnapshot)
	buf = binary.LittleEndian.AppendUint32(buf, uint32(len(sections)))
	for _, s := range sections {
		buf = appendSnapshotString(buf, s.Name)
		buf = appendSnapshotBytes(buf, s.Data)
	}
	return buf
}

// DecodeSnapshot parses a blob produced by EncodeSnapshot.
func DecodeSnapshot(blob []byte) ([]SnapshotSection, error) {
	rest, err := ReadHeader(blob, ModeSnapshot)
	if err != nil {
		return nil, err
	}
	if len(rest) < 4 {
		return nil, &DecodeError{Reason: "snapshot missing section count"}
	}
	count := binary.LittleEndian.Uint32(rest)
	rest = rest[4:]

	sections := make([]SnapshotSection, 0, count)
	for i := uint32(0); i < count; i++ {
		var name string
		var data []byte
		name, rest, err = readSnapshotString(rest)
		if err != nil {
			return nil, err
		}
		data, rest, err = readSnapshotBytes(rest)
		if err != nil {
			return nil, err
		}
		sections = append(sections, SnapshotSection{Name: name, Data: data})
	}
	return sections, nil
}

// SectionByName returns the first section named name, if any.
func SectionByName(sections []SnapshotSection, name string) ([]byte, bool) {
	for _, s := range sections {
		if s.Name == name {
			return s.Data, true
		}
	}
	return nil, false
}

func appendSnapshotString(buf []byte, s string) []byte {
	buf = binary.LittleEndian.AppendUint16(buf, uint16(len(s)))
	return append(buf, s...)
}

func readSnapshotString(buf []byte) (string, []byte, error) {
	if len(buf) < 2 {
		return "", nil, &DecodeError{Reason: "snapshot section name truncated"}
	}
	n := int(binary.LittleEndian.Uint16(buf))
	buf = buf[2:]
	if len(buf) < n {
		return "", nil, &DecodeError{Reason: "snapshot section name body truncated"}
	}
	return string(buf[:n]), buf[n:], nil
}

func appendSnapshotBytes(buf []byte, b []byte) []byte {
	buf = binary.LittleEndian.AppendUint32(buf, uint32(len(b)))
	return append(buf, b...)
}

func readSnapshotBytes(buf []byte) ([]byte, []byte, error) {
	if len(buf) < 4 {
		return nil, nil, &DecodeError{Reason: "snapshot section length truncated"}
	}
	n := int(binary.LittleEndian.Uint32(buf))
	buf = buf[4:]
	if len(buf) < n {
		return nil, nil, &DecodeError{Reason: "snapshot section body truncated"}
	}
	return append([]byte(nil), buf[:n]...), buf[n:], nil
}
