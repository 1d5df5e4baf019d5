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

package arena

import "github.com/loro-dev/loro-go/ids"

// ScalarValue is the comparable subset of the op Value union (the
// `any` carried by MapSetContent/ListSetContent/StyleStartContent):
// everything except []byte, which isn't comparable and so isn't worth
// interning — large byte blobs rarely repeat verbatim anyway.
type ScalarValue struct {
	Kind byte // matches the tag bytes oplog/encode.go uses for values
	S    string
	I    int64
	F    float64
	B    bool
}

// Pool bundles the three interners a document-level arena needs:
// map/style keys and root-container names share the string pool,
// scalar LWW values share the value pool, and every container id an
// op references shares the container pool. A fresh Pool is empty;
// Doc/Doc-like callers own one per document.
type Pool struct {
	Strings    *Arena[string]
	Values     *Arena[ScalarValue]
	Containers *Arena[ids.ContainerID]
}

func NewPool() *Pool {
	return &Pool{
		Strings:    New[string](),
		Values:     New[ScalarValue](),
		Containers: New[ids.ContainerID](),
	}
}

// InternValue interns the comparable subset of op values and returns
// (handle, true); ([]byte payloads, or anything else unhashable,
// return (0, false) and the caller keeps the value inline instead).
func (p *Pool) InternValue(v any) (uint32, bool) {
	sv, ok := toScalar(v)
	if !ok {
		return 0, false
	}
	return p.Values.Intern(sv), true
}

// ValueAt resolves a handle produced by InternValue back to an `any`.
func (p *Pool) ValueAt(h uint32) (any, bool) {
	sv, ok := p.Values.Lookup(h)
	if !ok {
		return nil, false
	}
	return fromScalar(sv), true
}

func toScalar(v any) (ScalarValue, bool) {
	switch x := v.(type) {
	case nil:
		return ScalarValue{Kind: 0}, true
	case bool:
		return ScalarValue{Kind: 1, B: x}, true
	case int64:
		return ScalarValue{Kind: 2, I: x}, true
	case float64:
		return ScalarValue{Kind: 3, F: x}, true
	case string:
		return ScalarValue{Kind: 4, S: x}, true
	default:
		return ScalarValue{}, false
	}
}

func fromScalar(sv ScalarValue) any {
	switch sv.Kind {
	case 0:
		return nil
	case 1:
		return sv.B
	case 2:
		return sv.I
	case 3:
		return sv.F
	case 4:
		return sv.S
	default:
		return nil
	}
}
