package main

import (
	"context"
	"flag"

	"golang.org/x/xerrors"
)

const updateHelp = `lark u [-flags] <archive> <files...>

Update files in an archive: entries matching by name are replaced,
new files are appended.
`

func update(ctx context.Context, args []string) error {
	fset := flag.NewFlagSet("u", flag.ExitOnError)
	var (
		recursive = fset.Bool("r", false, "descend into directories")
		level     = fset.Int("c", -1, "compression level (0..9, default: archive default)")
		method    = fset.String("m", "deflate", "compression method (store, lzss, lzhuf, deflate, lzw, lz77)")
		verbose   = fset.Bool("v", false, "print a line per updated file")
	)
	fset.Usage = usage(fset, updateHelp)
	fset.Parse(args)
	if fset.NArg() < 2 {
		return xerrors.Errorf("syntax: u <archive> <files...>")
	}
	return addOrUpdate(ctx, fset.Arg(0), fset.Args()[1:], *method, *level, *recursive, *verbose, true)
}
