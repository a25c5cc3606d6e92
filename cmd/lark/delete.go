package main

import (
	"context"
	"flag"
	"log"

	"github.com/larkfmt/lark"
	"golang.org/x/xerrors"
)

const deleteHelp = `lark d [-flags] <archive> <names...>

Delete entries by name (case-insensitive). Missing names are ignored.
`

func del(ctx context.Context, args []string) error {
	fset := flag.NewFlagSet("d", flag.ExitOnError)
	verbose := fset.Bool("v", false, "print a line per deleted entry")
	fset.Usage = usage(fset, deleteHelp)
	fset.Parse(args)
	if fset.NArg() < 2 {
		return xerrors.Errorf("syntax: d <archive> <names...>")
	}

	a, err := lark.Open(fset.Arg(0))
	if err != nil {
		return err
	}
	for _, name := range fset.Args()[1:] {
		if a.Delete(name) && *verbose {
			log.Printf("deleted %s", name)
		}
	}
	return a.Close()
}
