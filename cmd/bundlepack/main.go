// bundlepack builds, inspects and loads asset bundles.
//
// Usage:
//
//	bundlepack pack -o out.bundle [-c lz4|zstd|none] [--upload --config cfg.yaml] files...
//	bundlepack inspect file.bundle
//	bundlepack load --config cfg.yaml [--mode m] path...
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"
)

type command struct {
	name    string
	summary string
	run     func(ctx context.Context, args []string) error
}

var commands = []command{
	{"pack", "build a bundle from files", runPack},
	{"inspect", "print the manifest of a bundle file", runInspect},
	{"load", "load bundles through the configured backends", runLoad},
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return
		}
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string) error {
	if len(args) == 0 || args[0] == "-h" || args[0] == "--help" || args[0] == "help" {
		printUsage()
		return nil
	}

	for _, c := range commands {
		if c.name == args[0] {
			return c.run(ctx, args[1:])
		}
	}

	printUsage()
	return fmt.Errorf("unknown command %q", args[0])
}

func printUsage() {
	fmt.Fprintln(os.Stderr, "Usage: bundlepack <command> [flags] [args]")
	fmt.Fprintln(os.Stderr)
	fmt.Fprintln(os.Stderr, "Commands:")
	for _, c := range commands {
		fmt.Fprintf(os.Stderr, "  %-8s %s\n", c.name, c.summary)
	}
}

func newFlagSet(name, usage string) *pflag.FlagSet {
	fs := pflag.NewFlagSet("bundlepack "+name, pflag.ContinueOnError)
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: bundlepack %s %s\n\n", name, usage)
		fs.PrintDefaults()
	}
	return fs
}
