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

// cmd/loro is a small, file-backed CLI over the loro façade: create an
// empty document, import/export update or snapshot blobs, and inspect a
// snapshot's root container names and content (as JSON, or a single
// JSONPath value); it does not print change history. It exists to give the façade a
// runnable entry point, not as a full replacement for embedding the
// package directly.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/loro-dev/loro-go/codec"
	"github.com/loro-dev/loro-go/ids"
	"github.com/loro-dev/loro-go/loro"
	"github.com/loro-dev/loro-go/oplog"
)

func main() {
	fmt.Fprint(os.Stderr, `loro-go Copyright (C) 2026  Loro-Go Contributors
    This program comes with ABSOLUTELY NO WARRANTY;
    This is free software, and you are welcome to redistribute it
    under certain conditions;
`)
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}
	var err error
	switch os.Args[1] {
	case "create":
		err = runCreate(os.Args[2:])
	case "import":
		err = runImport(os.Args[2:])
	case "export":
		err = runExport(os.Args[2:])
	case "inspect":
		err = runInspect(os.Args[2:])
	default:
		usage()
		os.Exit(1)
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, "loro:", err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, `usage: loro <command> [flags]

commands:
  create   -out <path>                          create an empty document snapshot
  import   -out <path> -blob <path>             import a blob into a document, writing the result back as a snapshot
  export   -doc <path> -out <path> [-mode m]    export a document (mode: snapshot|updates, default snapshot)
  inspect  -doc <path> [-path p]                 print a document as JSON, or a single JSONPath value with -path`)
}

func runCreate(args []string) error {
	fs := flag.NewFlagSet("create", flag.ExitOnError)
	out := fs.String("out", "", "output snapshot path")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *out == "" {
		return fmt.Errorf("create: -out is required")
	}
	doc := loro.New()
	return writeFile(*out, doc.Export(loro.ModeSnapshot()))
}

func runImport(args []string) error {
	fs := flag.NewFlagSet("import", flag.ExitOnError)
	out := fs.String("out", "", "output snapshot path")
	blobPath := fs.String("blob", "", "updates or snapshot blob to import")
	docPath := fs.String("doc", "", "existing document snapshot to import into (optional, default new document)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *out == "" || *blobPath == "" {
		return fmt.Errorf("import: -out and -blob are required")
	}
	doc, err := openOrNew(*docPath)
	if err != nil {
		return err
	}
	blob, err := os.ReadFile(*blobPath)
	if err != nil {
		return fmt.Errorf("import: reading blob: %w", err)
	}
	if ierr := doc.Import(blob); ierr != nil {
		return fmt.Errorf("import: %s", ierr.Message)
	}
	return writeFile(*out, doc.Export(loro.ModeSnapshot()))
}

func runExport(args []string) error {
	fs := flag.NewFlagSet("export", flag.ExitOnError)
	docPath := fs.String("doc", "", "document snapshot path")
	out := fs.String("out", "", "output blob path")
	mode := fs.String("mode", "snapshot", "export mode: snapshot|updates")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *docPath == "" || *out == "" {
		return fmt.Errorf("export: -doc and -out are required")
	}
	doc, err := openDoc(*docPath)
	if err != nil {
		return err
	}
	var blob []byte
	switch *mode {
	case "snapshot":
		blob = doc.Export(loro.ModeSnapshot())
	case "updates":
		blob = doc.Export(loro.ModeUpdates(ids.NewVersionVector()))
	default:
		return fmt.Errorf("export: unknown -mode %q", *mode)
	}
	return writeFile(*out, blob)
}

func runInspect(args []string) error {
	fs := flag.NewFlagSet("inspect", flag.ExitOnError)
	docPath := fs.String("doc", "", "document snapshot path")
	jsonPath := fs.String("path", "", "JSONPath expression to evaluate instead of printing the whole document")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *docPath == "" {
		return fmt.Errorf("inspect: -doc is required")
	}
	blob, err := os.ReadFile(*docPath)
	if err != nil {
		return fmt.Errorf("inspect: reading document: %w", err)
	}
	mode, perr := codec.PeekMode(blob)
	if perr != nil {
		return fmt.Errorf("inspect: %w", perr)
	}
	if mode != codec.ModeSnapshot {
		return fmt.Errorf("inspect: %s is not a snapshot blob", *docPath)
	}
	names, rerr := oplog.SnapshotRootNames(blob)
	if rerr != nil {
		return fmt.Errorf("inspect: %w", rerr)
	}
	fmt.Printf("roots: %v\n", names)

	doc, err := openDoc(*docPath)
	if err != nil {
		return err
	}
	if *jsonPath != "" {
		v, jerr := doc.JSONPath(*jsonPath)
		if jerr != nil {
			return fmt.Errorf("inspect: %s", jerr.Message)
		}
		fmt.Printf("%v\n", v)
		return nil
	}
	out, jerr := doc.ToJSON()
	if jerr != nil {
		return fmt.Errorf("inspect: %w", jerr)
	}
	fmt.Println(string(out))
	return nil
}

func openDoc(path string) (*loro.Doc, error) {
	blob, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	doc := loro.New()
	if ierr := doc.Import(blob); ierr != nil {
		return nil, fmt.Errorf("importing %s: %s", path, ierr.Message)
	}
	return doc, nil
}

// openOrNew opens path if given, else returns an empty document; import
// targets accept an absent -doc so a caller can seed a brand-new document
// in one step.
func openOrNew(path string) (*loro.Doc, error) {
	if path == "" {
		return loro.New(), nil
	}
	return openDoc(path)
}

func writeFile(path string, blob []byte) error {
	if err := os.WriteFile(path, blob, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}
