package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/larkfmt/lark"
	"golang.org/x/xerrors"
)

const listHelp = `lark l [-flags] <archive>

List archive entries with sizes, ratios and methods.
`

func list(ctx context.Context, args []string) error {
	fset := flag.NewFlagSet("l", flag.ExitOnError)
	verbose := fset.Bool("v", false, "also print per-method totals")
	fset.Usage = usage(fset, listHelp)
	fset.Parse(args)
	if fset.NArg() != 1 {
		return xerrors.Errorf("syntax: l <archive>")
	}

	a, err := lark.Open(fset.Arg(0))
	if err != nil {
		return err
	}
	defer a.Close()

	l := a.List()
	w := tabwriter.NewWriter(os.Stdout, 0, 8, 2, ' ', 0)
	fmt.Fprintf(w, "NAME\tORIGINAL\tCOMPRESSED\tRATIO\tMETHOD\tMODIFIED\n")
	for _, e := range l.Entries {
		mod := ""
		if !e.ModTime.IsZero() {
			mod = e.ModTime.Format("2006-01-02 15:04:05")
		}
		fmt.Fprintf(w, "%s\t%d\t%d\t%.1f%%\t%s\t%s\n",
			e.Name, e.OriginalSize, e.CompressedSize, e.Ratio*100, e.Method, mod)
	}
	fmt.Fprintf(w, "total %d\t%d\t%d\t%.1f%%\t\t\n",
		len(l.Entries), l.TotalOriginalSize, l.TotalCompressedSize, l.Ratio*100)
	if *verbose {
		fmt.Fprintf(w, "\nMETHOD\tENTRIES\tORIGINAL\tCOMPRESSED\t\t\n")
		for m, st := range l.ByMethod {
			fmt.Fprintf(w, "%s\t%d\t%d\t%d\t\t\n", m, st.Entries, st.OriginalSize, st.CompressedSize)
		}
	}
	return w.Flush()
}
