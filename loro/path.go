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

package loro

import (
	"encoding/json"
	"sort"
	"strconv"
	"strings"

	"github.com/loro-dev/loro-go/ids"
)

// RootRef names a root container by its registered name and type, the
// entry point GetByPath's first path segment must be (a container id
// alone doesn't say which of the six CRDT kinds backs a given root
// name, and two roots may share a name across types).
type RootRef struct {
	Name string
	Type ids.ContainerType
}

// GetByPath walks path starting from a root container. path[0] must be
// a RootRef; every subsequent segment is a string Map/meta key or an
// int List/MovableList index. Each step resolves a plain value, except
// when the value itself is a nested container reference (see
// ListHandle.InsertContainer), in which case it's followed as a handle
// and the walk continues.
func (d *Doc) GetByPath(path []any) (any, *Error) {
	if len(path) == 0 {
		return nil, newError(OutOfBound, "GetByPath: empty path")
	}
	root, ok := path[0].(RootRef)
	if !ok {
		return nil, newError(OutOfBound, "GetByPath: path[0] must be a RootRef, got %T", path[0])
	}
	var cur any = d.handleFor(ids.RootContainerID(root.Name, root.Type))
	for _, seg := range path[1:] {
		next, err := stepInto(d, cur, seg)
		if err != nil {
			return nil, err
		}
		cur = next
	}
	return cur, nil
}

func stepInto(d *Doc, cur any, seg any) (any, *Error) {
	switch h := cur.(type) {
	case *MapHandle:
		key, ok := seg.(string)
		if !ok {
			return nil, newError(OutOfBound, "GetByPath: expected a string key for a Map, got %T", seg)
		}
		v, ok := h.Get(key)
		if !ok {
			return nil, newError(OutOfBound, "GetByPath: key %q not set", key)
		}
		return resolveContainerValue(d, v), nil
	case *ListHandle:
		idx, err := indexOf(seg)
		if err != nil {
			return nil, err
		}
		v, gErr := h.Get(idx)
		if gErr != nil {
			return nil, gErr
		}
		return resolveContainerValue(d, v), nil
	case *MovableListHandle:
		idx, err := indexOf(seg)
		if err != nil {
			return nil, err
		}
		v, gErr := h.Get(idx)
		if gErr != nil {
			return nil, gErr
		}
		return resolveContainerValue(d, v), nil
	case *TreeHandle:
		target, ok := seg.(ids.ID)
		if !ok {
			return nil, newError(OutOfBound, "GetByPath: expected an ids.ID node target for a Tree, got %T", seg)
		}
		return h.GetMeta(target), nil
	default:
		return nil, newError(OutOfBound, "GetByPath: %T has no children to step into", cur)
	}
}

func indexOf(seg any) (int, *Error) {
	idx, ok := seg.(int)
	if !ok {
		return 0, newError(OutOfBound, "GetByPath: expected an int index, got %T", seg)
	}
	return idx, nil
}

// resolveContainerValue turns a raw element value into a handle if it
// is a nested container reference, or returns it unchanged otherwise.
func resolveContainerValue(d *Doc, v any) any {
	if cid, ok := v.(ids.ContainerID); ok {
		return d.handleFor(cid)
	}
	return v
}

// GetDeepValue recursively materializes every root container this
// document has touched into plain Go values: map[string]any (Map),
// []any (List/MovableList, nested containers resolved), string (Text),
// float64 (Counter), and a []any of {id, meta, children} maps (Tree).
func (d *Doc) GetDeepValue() map[string]any {
	d.mu.Lock()
	roots := d.state.Roots()
	d.mu.Unlock()

	out := make(map[string]any, len(roots))
	for _, cid := range roots {
		out[cid.Name] = deepValue(d, d.handleFor(cid))
	}
	return out
}

func deepValue(d *Doc, h any) any {
	switch v := h.(type) {
	case *TextHandle:
		return v.ToString()
	case *CounterHandle:
		return v.Value()
	case *MapHandle:
		keys := v.Keys()
		sort.Strings(keys)
		m := make(map[string]any, len(keys))
		for _, k := range keys {
			val, _ := v.Get(k)
			m[k] = deepValue(d, resolveContainerValue(d, val))
		}
		return m
	case *ListHandle:
		vals := v.ToSlice()
		out := make([]any, len(vals))
		for i, val := range vals {
			out[i] = deepValue(d, resolveContainerValue(d, val))
		}
		return out
	case *MovableListHandle:
		vals := v.ToSlice()
		out := make([]any, len(vals))
		for i, val := range vals {
			out[i] = deepValue(d, resolveContainerValue(d, val))
		}
		return out
	case *TreeHandle:
		return deepTreeChildren(d, v, nil)
	default:
		return v
	}
}

func deepTreeChildren(d *Doc, t *TreeHandle, parent *ids.ID) []any {
	children := t.Children(parent)
	out := make([]any, len(children))
	for i, id := range children {
		id := id
		out[i] = map[string]any{
			"id":       id,
			"meta":     deepValue(d, t.GetMeta(id)),
			"children": deepTreeChildren(d, t, &id),
		}
	}
	return out
}

// ToJSON renders GetDeepValue as an indented JSON document.
func (d *Doc) ToJSON() ([]byte, error) {
	return json.MarshalIndent(d.GetDeepValue(), "", "  ")
}

// JSONPath evaluates a minimal field/index-only subset of JSONPath
// ("$.foo.bar[2].baz") over GetDeepValue()'s tree: dotted field access
// and bracketed integer indices, nothing else (no wildcards, filters,
// or slices). This mirrors the public API's own out-of-core note on
// JSONPath support: it exists for simple lookups, not as a query
// engine.
func (d *Doc) JSONPath(expr string) (any, *Error) {
	segs, err := parseJSONPath(expr)
	if err != nil {
		return nil, err
	}
	var cur any = d.GetDeepValue()
	for _, seg := range segs {
		switch key := seg.(type) {
		case string:
			m, ok := cur.(map[string]any)
			if !ok {
				return nil, newError(OutOfBound, "JSONPath: %q is not an object", key)
			}
			v, ok := m[key]
			if !ok {
				return nil, newError(OutOfBound, "JSONPath: no field %q", key)
			}
			cur = v
		case int:
			s, ok := cur.([]any)
			if !ok || key < 0 || key >= len(s) {
				return nil, newError(OutOfBound, "JSONPath: index %d out of range", key)
			}
			cur = s[key]
		}
	}
	return cur, nil
}

func parseJSONPath(expr string) ([]any, *Error) {
	expr = strings.TrimPrefix(expr, "$")
	expr = strings.TrimPrefix(expr, ".")
	if expr == "" {
		return nil, nil
	}
	var segs []any
	for _, field := range strings.Split(expr, ".") {
		for field != "" {
			if i := strings.IndexByte(field, '['); i >= 0 {
				if i > 0 {
					segs = append(segs, field[:i])
				}
				end := strings.IndexByte(field, ']')
				if end < i {
					return nil, newError(DecodeError, "JSONPath: unbalanced '[' in %q", expr)
				}
				n, err := strconv.Atoi(field[i+1 : end])
				if err != nil {
					return nil, newError(DecodeError, "JSONPath: bad index in %q: %v", expr, err)
				}
				segs = append(segs, n)
				field = field[end+1:]
				continue
			}
			segs = append(segs, field)
			field = ""
		}
	}
	return segs, nil
}
