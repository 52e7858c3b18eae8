package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/hupe1980/assetload/bundle"
	"github.com/hupe1980/assetload/config"
)

// putter is implemented by writable blob stores.
type putter interface {
	Put(ctx context.Context, name string, data []byte) error
}

func runPack(ctx context.Context, args []string) error {
	fs := newFlagSet("pack", "-o out.bundle [flags] files...")
	out := fs.StringP("output", "o", "", "output bundle path")
	codec := fs.StringP("compression", "c", "lz4", "entry compression: none, lz4 or zstd")
	base := fs.String("base", "", "strip this directory from entry names (default: use base names)")
	upload := fs.Bool("upload", false, "also upload the bundle to a configured backend")
	cfgPath := fs.String("config", "", "config file for --upload")
	location := fs.String("location", "streaming", "backend location for --upload")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if *out == "" {
		return errors.New("pack: --output is required")
	}
	if fs.NArg() == 0 {
		return errors.New("pack: no input files")
	}

	c, err := bundle.ParseCompression(*codec)
	if err != nil {
		return fmt.Errorf("pack: %w", err)
	}

	w := bundle.NewWriter(c)
	for _, file := range fs.Args() {
		data, err := os.ReadFile(file)
		if err != nil {
			return fmt.Errorf("pack: %w", err)
		}
		name, err := entryName(*base, file)
		if err != nil {
			return fmt.Errorf("pack: %w", err)
		}
		if err := w.Add(name, data); err != nil {
			return fmt.Errorf("pack: %s: %w", file, err)
		}
	}

	f, err := os.Create(*out)
	if err != nil {
		return fmt.Errorf("pack: %w", err)
	}
	n, err := w.WriteTo(f)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return fmt.Errorf("pack: write %s: %w", *out, err)
	}
	fmt.Printf("wrote %s: %d entries, %d bytes\n", *out, w.Len(), n)

	if !*upload {
		return nil
	}
	if *cfgPath == "" {
		return errors.New("pack: --upload requires --config")
	}
	return uploadBundle(ctx, *cfgPath, *location, *out)
}

func entryName(base, file string) (string, error) {
	if base == "" {
		return filepath.Base(file), nil
	}
	rel, err := filepath.Rel(base, file)
	if err != nil {
		return "", err
	}
	return filepath.ToSlash(rel), nil
}

func uploadBundle(ctx context.Context, cfgPath, location, file string) error {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return err
	}

	bc, ok := cfg.Backends[location]
	if !ok {
		return fmt.Errorf("upload: no backend configured for %q", location)
	}

	store, err := openStore(ctx, bc)
	if err != nil {
		return fmt.Errorf("upload: %w", err)
	}
	p, ok := store.(putter)
	if !ok {
		return fmt.Errorf("upload: %s backend is read-only", bc.Type)
	}

	data, err := os.ReadFile(file)
	if err != nil {
		return fmt.Errorf("upload: %w", err)
	}
	name := filepath.Base(file)
	if err := p.Put(ctx, name, data); err != nil {
		return fmt.Errorf("upload %s: %w", name, err)
	}
	fmt.Printf("uploaded %s to %s backend\n", name, location)
	return nil
}
