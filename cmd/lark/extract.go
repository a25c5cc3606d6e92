package main

import (
	"context"
	"flag"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/larkfmt/lark"
	"golang.org/x/xerrors"
)

const extractHelp = `lark x [-flags] <archive> [names...]

Extract entries into the output directory (default: current directory).
With no names, every entry is extracted.

Example:
  % lark x -o /tmp/restore backup.ark notes.txt
`

func extract(ctx context.Context, args []string) error {
	fset := flag.NewFlagSet("x", flag.ExitOnError)
	var (
		outDir  = fset.String("o", ".", "output directory")
		verbose = fset.Bool("v", false, "print a line per extracted entry")
	)
	fset.Usage = usage(fset, extractHelp)
	fset.Parse(args)
	if fset.NArg() < 1 {
		return xerrors.Errorf("syntax: x <archive> [names...]")
	}

	a, err := lark.Open(fset.Arg(0))
	if err != nil {
		return err
	}
	defer a.Close()

	names := fset.Args()[1:]
	if len(names) == 0 {
		for _, e := range a.Entries() {
			names = append(names, e.Name)
		}
	}

	for _, name := range names {
		if err := ctx.Err(); err != nil {
			return err
		}
		dest, err := destPath(*outDir, name)
		if err != nil {
			return err
		}
		if err := os.MkdirAll(filepath.Dir(dest), 0755); err != nil {
			return err
		}
		f, err := os.Create(dest)
		if err != nil {
			return err
		}
		if err := a.Extract(name, f); err != nil {
			f.Close()
			return err
		}
		if err := f.Close(); err != nil {
			return err
		}
		if *verbose {
			log.Printf("extracted %s", name)
		}
	}
	return nil
}

// destPath joins an entry name onto the output directory, refusing names
// that would escape it.
func destPath(outDir, name string) (string, error) {
	clean := filepath.Clean(filepath.FromSlash(name))
	if filepath.IsAbs(clean) || clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return "", xerrors.Errorf("refusing to extract %q outside %s", name, outDir)
	}
	return filepath.Join(outDir, clean), nil
}
