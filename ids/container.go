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
package ids

import "fmt"

// ContainerType names the CRDT kind backing a container.
type ContainerType byte

const (
	ContainerUnknown     ContainerType = 0
	ContainerText        ContainerType = 1
	ContainerList        ContainerType = 2
	ContainerMovableList ContainerType = 3
	ContainerMap         ContainerType = 4
	ContainerTree        ContainerType = 5
	ContainerCounter     ContainerType = 6
)

func (t ContainerType) String() string {
	switch t {
	case ContainerText:
		return "Text"
	case ContainerList:
		return "List"
	case ContainerMovableList:
		return "MovableList"
	case ContainerMap:
		return "Map"
	case ContainerTree:
		return "Tree"
	case ContainerCounter:
		return "Counter"
	default:
		return fmt.Sprintf("Unknown(%d)", byte(t))
	}
}

// ContainerID identifies a container: either a globally-named root
// container (implicitly existing, never deleted) or a "normal"
// container born from the op at (peer, counter).
//
// A ContainerID uniquely identifies its type and its creation op;
// container-parent edges, once set, never change.
type ContainerID struct {
	IsRoot bool

	// Root fields.
	Name string

	// Normal fields.
	Peer    PeerID
	Counter Counter

	Type ContainerType
}

// RootContainerID constructs a root container id.
func RootContainerID(name string, t ContainerType) ContainerID {
	return ContainerID{IsRoot: true, Name: name, Type: t}
}

// NormalContainerID constructs a normal container id from its creation op.
func NormalContainerID(id ID, t ContainerType) ContainerID {
	return ContainerID{Peer: id.Peer, Counter: id.Counter, Type: t}
}

func (c ContainerID) Equal(other ContainerID) bool {
	if c.IsRoot != other.IsRoot || c.Type != other.Type {
		return false
	}
	if c.IsRoot {
		return c.Name == other.Name
	}
	return c.Peer == other.Peer && c.Counter == other.Counter
}

// CreationID returns the op id that created a normal container; only
// meaningful when !IsRoot.
func (c ContainerID) CreationID() ID {
	return ID{Peer: c.Peer, Counter: c.Counter}
}

func (c ContainerID) String() string {
	if c.IsRoot {
		return fmt.Sprintf("cid:root:%s:%s", c.Name, c.Type)
	}
	return fmt.Sprintf("cid:%d:%d:%s", c.Peer, c.Counter, c.Type)
}

// Key returns a string uniquely identifying c, suitable for use as a
// map key or KV-block store key.
func (c ContainerID) Key() string {
	return c.String()
}
