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
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"io"
	"os"
)

type FileBackend struct {
	path string
}

type FileFactory struct {
	Basepath string
}

func init() {
	BackendRegistry["files"] = func(raw json.RawMessage) BackendFactory {
		var cfg struct {
			Basepath string `json:"basepath"`
		}
		if len(raw) > 0 {
			_ = json.Unmarshal(raw, &cfg)
		}
		if cfg.Basepath == "" {
			cfg.Basepath = "data"
		}
		return &FileFactory{Basepath: cfg.Basepath}
	}
}

// blobName turns a long/hierarchical key into a filesystem-safe file
// name, hashing it down when it would otherwise exceed a sane path
// component length.
func blobName(key string) string {
	if len(key) < 128 {
		return key
	}
	hashsum := sha256.Sum256([]byte(key))
	return fmt.Sprintf("%x", hashsum[:16])
}

func (f *FileFactory) Open(store string) Backend {
	return &FileBackend{path: f.Basepath + "/" + store + "/"}
}

func (s *FileBackend) Read(key string) io.ReadCloser {
	f, err := os.Open(s.path + blobName(key))
	if err != nil {
		return ErrorReader{err}
	}
	return f
}

func (s *FileBackend) Write(key string) io.WriteCloser {
	os.MkdirAll(s.path, 0750)
	f, err := os.Create(s.path + blobName(key))
	if err != nil {
		panic(err)
	}
	return f
}

func (s *FileBackend) Remove(key string) {
	os.Remove(s.path + blobName(key))
}

func (s *FileBackend) List(prefix string) []string {
	entries, err := os.ReadDir(s.path)
	if err != nil {
		return nil
	}
	want := blobName(prefix)
	var out []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if len(name) >= len(want) && name[:len(want)] == want {
			out = append(out, name)
		}
	}
	return out
}
