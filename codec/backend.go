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

import (
	"encoding/json"
	"io"
)

/*

backend interface

A Loro document's durable storage (snapshot blobs and the KV-block
SSTable pages in kvblock.go) can live behind any of several backends:
 - file system: a directory of named blobs
 - S3 / S3-compatible object storage
 - Ceph RADOS pool (build with -tags=ceph)

A backend must implement the following operations:
 - read a blob by key
 - write a blob by key
 - remove a blob by key
 - list blobs by key prefix (used to enumerate change-store blocks)

*/

// Backend is a pluggable byte-blob store used to page KV-block SSTable
// pages and whole snapshot/update blobs to and from durable storage. It
// deliberately knows nothing about documents, ops or containers: it
// stores bytes under string keys, nothing more.
type Backend interface {
	Read(key string) io.ReadCloser
	Write(key string) io.WriteCloser
	Remove(key string)
	List(prefix string) []string
}

// BackendFactory opens (or creates) a named store within a backend kind,
// e.g. a bucket, a pool, or a base directory.
type BackendFactory interface {
	Open(store string) Backend
}

// BackendRegistry maps a backend kind name ("files", "s3", "ceph") to a
// constructor that turns its JSON configuration into a BackendFactory.
// Concrete backends register themselves here via init().
var BackendRegistry = map[string]func(raw json.RawMessage) BackendFactory{}

// OpenBackend looks up kind in BackendRegistry, configures it from raw,
// and opens the named store.
func OpenBackend(kind string, raw json.RawMessage, store string) Backend {
	ctor, ok := BackendRegistry[kind]
	if !ok {
		panic("codec: unknown backend kind " + kind)
	}
	return ctor(raw).Open(store)
}

// ErrorReader implements io.ReadCloser that always reports err; used for
// "not found" style blob reads so callers can treat a missing key as an
// ordinary (checked) read error instead of a nil special case.
type ErrorReader struct {
	Err error
}

func (e ErrorReader) Read([]byte) (int, error) {
	return 0, e.Err
}
func (e ErrorReader) Close() error {
	return nil
}
