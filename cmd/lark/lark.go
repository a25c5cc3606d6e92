// lark is the command-line front-end for LARK archives. It translates
// the archiver verbs onto the public archive API:
//
//	lark a <archive> <files...>   add files
//	lark x <archive> [names...]   extract entries
//	lark l <archive>              list entries
//	lark d <archive> <names...>   delete entries
//	lark t <archive>              test integrity
//	lark u <archive> <files...>   update (replace or add) files
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
)

// interruptibleContext returns a context which is canceled when the
// program is interrupted (SIGINT or SIGTERM).
func interruptibleContext() (context.Context, context.CancelFunc) {
	ctx, canc := context.WithCancel(context.Background())
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sig
		// Subsequent signals terminate immediately, in case cleanup
		// hangs:
		signal.Stop(sig)
		canc()
	}()
	return ctx, canc
}

func funcmain() error {
	flag.Parse()

	type cmd struct {
		fn func(ctx context.Context, args []string) error
	}
	verbs := map[string]cmd{
		"a": {add},
		"x": {extract},
		"l": {list},
		"d": {del},
		"t": {test},
		"u": {update},
	}

	args := flag.Args()
	if len(args) == 0 {
		printHelp()
		os.Exit(2)
	}
	verb := args[0]
	args = args[1:]

	if verb == "h" || verb == "help" {
		if len(args) != 1 {
			printHelp()
			os.Exit(2)
		}
		verb = args[0]
		args = []string{"-help"}
	}

	ctx, canc := interruptibleContext()
	defer canc()
	v, ok := verbs[verb]
	if !ok {
		fmt.Fprintf(os.Stderr, "unknown command %q\n", verb)
		fmt.Fprintf(os.Stderr, "syntax: lark <command> [options] <archive> [files...]\n")
		os.Exit(2)
	}
	if err := v.fn(ctx, args); err != nil {
		return fmt.Errorf("%s: %v", verb, err)
	}
	return nil
}

func printHelp() {
	fmt.Fprintf(os.Stderr, "lark <command> [-flags] <archive> [files...]\n")
	fmt.Fprintln(os.Stderr)
	fmt.Fprintf(os.Stderr, "To get help on any command, use lark <command> -help or lark help <command>.\n")
	fmt.Fprintln(os.Stderr)
	fmt.Fprintf(os.Stderr, "Commands:\n")
	fmt.Fprintf(os.Stderr, "\ta - add files to an archive\n")
	fmt.Fprintf(os.Stderr, "\tx - extract entries\n")
	fmt.Fprintf(os.Stderr, "\tl - list entries\n")
	fmt.Fprintf(os.Stderr, "\td - delete entries\n")
	fmt.Fprintf(os.Stderr, "\tt - test archive integrity\n")
	fmt.Fprintf(os.Stderr, "\tu - update (replace or add) files\n")
}

func main() {
	if err := funcmain(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
