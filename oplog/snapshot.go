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

package oplog

import (
	"encoding/binary"

	"github.com/loro-dev/loro-go/arena"
	"github.com/loro-dev/loro-go/codec"
	"github.com/loro-dev/loro-go/ids"
)

// snapshot.go assembles a full-document snapshot (codec.ModeSnapshot)
// out of two sections: every change in the log, grouped into
// change-store blocks (changestore.go), and a dictionary of every root
// container name any op references. The latter lets a caller list a
// snapshot's containers (loro.Doc's future catalog/inspect support,
// and cmd/loro's "inspect" subcommand) without decoding the former.

const snapshotChangesSection = "changes"
const snapshotRootNamesSection = "root_names"

// BuildSnapshot produces a snapshot blob covering every change
// currently in log.
func BuildSnapshot(log *OpLog, blockSize int) []byte {
	return codec.EncodeSnapshot([]codec.SnapshotSection{
		{Name: snapshotChangesSection, Data: BuildChangeStore(log, blockSize)},
		{Name: snapshotRootNamesSection, Data: encodeStringArena(rootContainerNames(log))},
	})
}

// BuildShallowSnapshot produces a snapshot covering only the changes on
// or after at: a disk-space-bounded trim for a replica that continues
// collaborating from a frontier it already holds state for. Unlike a
// full snapshot, importing this into an empty OpLog does not reproduce
// full history — changes before at are genuinely absent, and any
// change depending on one of them fails RestoreSnapshot/ImportInto
// with DependencyMissing exactly as an ordinary ImportRemote would.
// Loro's own shallow/trimmed snapshot additionally bakes in a
// materialized state-at-F cache so a fresh replica can bootstrap from
// one alone; this port doesn't carry that cache (see DESIGN.md), so
// BuildShallowSnapshot is meant for re-exporting history a peer has
// already reconciled, not for onboarding a brand new replica.
func BuildShallowSnapshot(log *OpLog, at ids.Frontiers, blockSize int) []byte {
	sinceVV := log.VVFromFrontiers(at)
	changes := log.IterChangesBetween(sinceVV, log.VV())
	return codec.EncodeSnapshot([]codec.SnapshotSection{
		{Name: snapshotChangesSection, Data: BuildChangeStoreFromChanges(changes, blockSize)},
		{Name: snapshotRootNamesSection, Data: encodeStringArena(rootContainerNames(log))},
	})
}

// RestoreSnapshot imports every change recorded in a snapshot blob into
// log, the same way ImportRemote would for each one individually.
func RestoreSnapshot(blob []byte, log *OpLog) error {
	sections, err := codec.DecodeSnapshot(blob)
	if err != nil {
		return err
	}
	changesBlob, ok := codec.SectionByName(sections, snapshotChangesSection)
	if !ok {
		return &codec.DecodeError{Reason: "snapshot missing changes section"}
	}
	cs, err := OpenChangeStore(changesBlob, "", nil)
	if err != nil {
		return err
	}
	return cs.ImportInto(log)
}

// SnapshotRootNames returns the root container names recorded in a
// snapshot blob, without importing any of its changes.
func SnapshotRootNames(blob []byte) ([]string, error) {
	sections, err := codec.DecodeSnapshot(blob)
	if err != nil {
		return nil, err
	}
	data, ok := codec.SectionByName(sections, snapshotRootNamesSection)
	if !ok {
		return nil, nil
	}
	return decodeStringArena(data)
}

// rootContainerNames interns every root container name referenced by
// any op in log and returns them in first-seen order, deduplicated.
func rootContainerNames(log *OpLog) []string {
	pool := arena.NewPool()
	log.mu.Lock()
	all := log.changes.GetAll()
	log.mu.Unlock()
	for _, pc := range all {
		for _, c := range pc.list {
			for _, op := range c.Ops {
				if op.Container.IsRoot {
					pool.Strings.Intern(op.Container.Name)
				}
			}
		}
	}
	return pool.Strings.All()
}

func encodeStringArena(names []string) []byte {
	buf := binary.LittleEndian.AppendUint32(nil, uint32(len(names)))
	for _, n := range names {
		buf = appendString(buf, n)
	}
	return buf
}

func decodeStringArena(data []byte) ([]string, error) {
	if len(data) < 4 {
		return nil, &codec.DecodeError{Reason: "root name dictionary truncated"}
	}
	count := binary.LittleEndian.Uint32(data)
	data = data[4:]
	names := make([]string, 0, count)
	for i := uint32(0); i < count; i++ {
		var n string
		var err error
		n, data, err = readString(data)
		if err != nil {
			return nil, err
		}
		names = append(names, n)
	}
	return names, nil
}
