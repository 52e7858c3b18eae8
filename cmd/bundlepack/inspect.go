package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/hupe1980/assetload/bundle"
)

func runInspect(_ context.Context, args []string) error {
	fs := newFlagSet("inspect", "file.bundle")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return errors.New("inspect: expected exactly one bundle file")
	}

	data, err := os.ReadFile(fs.Arg(0))
	if err != nil {
		return fmt.Errorf("inspect: %w", err)
	}

	m, err := bundle.ReadManifest(data)
	if err != nil {
		return fmt.Errorf("inspect: %s: %w", fs.Arg(0), err)
	}

	fmt.Printf("%s: version %d, %d entries, %d raw bytes, %d stored bytes\n",
		fs.Arg(0), m.Version, len(m.Entries), m.RawSize(), m.StoredSize())

	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tCOMPRESSION\tRAW\tSTORED\tBLAKE3")
	for _, e := range m.Entries {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%x\n", e.Name, e.Compression, e.RawSize, e.StoredSize, e.Digest[:8])
	}
	return tw.Flush()
}
