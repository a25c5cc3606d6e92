package main

import (
	"context"
	"flag"
	"io/fs"
	"log"
	"os"
	"path/filepath"

	"github.com/larkfmt/lark"
	"github.com/mattn/go-isatty"
	"golang.org/x/xerrors"
)

const addHelp = `lark a [-flags] <archive> <files...>

Add files to an archive, creating it if necessary.

Example:
  % lark a -r -m lzhuf -c 7 backup.ark notes.txt src/
`

func add(ctx context.Context, args []string) error {
	fset := flag.NewFlagSet("a", flag.ExitOnError)
	var (
		recursive = fset.Bool("r", false, "descend into directories")
		level     = fset.Int("c", -1, "compression level (0..9, default: archive default)")
		method    = fset.String("m", "deflate", "compression method (store, lzss, lzhuf, deflate, lzw, lz77)")
		verbose   = fset.Bool("v", false, "print a line per added file")
	)
	fset.Usage = usage(fset, addHelp)
	fset.Parse(args)
	if fset.NArg() < 2 {
		return xerrors.Errorf("syntax: a <archive> <files...>")
	}
	return addOrUpdate(ctx, fset.Arg(0), fset.Args()[1:], *method, *level, *recursive, *verbose, false)
}

// addOrUpdate is shared by the a and u verbs; update replaces entries
// matching by name instead of appending duplicates.
func addOrUpdate(ctx context.Context, archivePath string, files []string, methodName string, level int, recursive, verbose, replace bool) error {
	m, err := lark.ParseMethod(methodName)
	if err != nil {
		return err
	}

	a, err := openOrCreate(archivePath)
	if err != nil {
		return err
	}

	progress := verbose || isatty.IsTerminal(os.Stdout.Fd())
	addOne := func(path string) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		f, err := os.Open(path)
		if err != nil {
			return &lark.IoError{Code: lark.CodeSourceNotFound, Path: path, Err: err}
		}
		defer f.Close()
		st, err := f.Stat()
		if err != nil {
			return &lark.IoError{Code: lark.CodeSourceNotFound, Path: path, Err: err}
		}
		opts := lark.AddOptions{
			Method:     m,
			Level:      level,
			ModTime:    st.ModTime(),
			Attributes: uint32(st.Mode().Perm()),
		}
		name := filepath.ToSlash(path)
		if replace {
			err = a.Update(name, f, opts)
		} else {
			err = a.Add(name, f, opts)
		}
		if err != nil {
			return err
		}
		if progress {
			log.Printf("added %s", name)
		}
		return nil
	}

	for _, file := range files {
		st, err := os.Stat(file)
		if err != nil {
			return &lark.IoError{Code: lark.CodeSourceNotFound, Path: file, Err: err}
		}
		if st.IsDir() {
			if !recursive {
				return xerrors.Errorf("%s is a directory (use -r)", file)
			}
			err := filepath.WalkDir(file, func(path string, d fs.DirEntry, err error) error {
				if err != nil {
					return &lark.IoError{Code: lark.CodeEnumerationFailed, Path: path, Err: err}
				}
				if d.IsDir() {
					return nil
				}
				return addOne(path)
			})
			if err != nil {
				return err
			}
			continue
		}
		if err := addOne(file); err != nil {
			return err
		}
	}
	return a.Close()
}

func openOrCreate(path string) (*lark.Archive, error) {
	if _, err := os.Stat(path); err == nil {
		return lark.Open(path)
	}
	return lark.Create(path), nil
}
