package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/larkfmt/lark"
	"golang.org/x/xerrors"
)

const testHelp = `lark t <archive>

Decompress every entry against a null sink and verify its CRC-32.
`

func test(ctx context.Context, args []string) error {
	fset := flag.NewFlagSet("t", flag.ExitOnError)
	fset.Usage = usage(fset, testHelp)
	fset.Parse(args)
	if fset.NArg() != 1 {
		return xerrors.Errorf("syntax: t <archive>")
	}

	a, err := lark.Open(fset.Arg(0))
	if err != nil {
		return err
	}
	defer a.Close()

	results, ok := a.TestIntegrity()
	for _, r := range results {
		if r.Err != nil {
			fmt.Fprintf(os.Stdout, "FAIL %s: %v\n", r.Name, r.Err)
		} else {
			fmt.Fprintf(os.Stdout, "ok   %s\n", r.Name)
		}
	}
	if !ok {
		return xerrors.Errorf("%s: integrity check failed", fset.Arg(0))
	}
	return nil
}
