package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/hupe1980/assetload"
	"github.com/hupe1980/assetload/config"
)

func runLoad(ctx context.Context, args []string) error {
	fs := newFlagSet("load", "--config cfg.yaml [flags] path...")
	cfgPath := fs.String("config", "", "config file (required)")
	modeName := fs.StringP("mode", "m", "default", "load mode: default, persistent-sync, streaming-fetch, bundled-async or bundled-sync")
	timeout := fs.Duration("timeout", time.Minute, "give up after this long")
	jsonLogs := fs.Bool("json", false, "log as JSON")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if *cfgPath == "" {
		return errors.New("load: --config is required")
	}
	if fs.NArg() == 0 {
		return errors.New("load: no bundle paths")
	}

	mode, err := assetload.ParseMode(*modeName)
	if err != nil {
		return fmt.Errorf("load: %w", err)
	}

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		return err
	}
	level, err := cfg.SlogLevel()
	if err != nil {
		return err
	}

	logger := assetload.NewTextLogger(level)
	if *jsonLogs {
		logger = assetload.NewJSONLogger(level)
	}

	opts, err := loaderOptions(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("load: %w", err)
	}

	events := assetload.NewEventBus()
	events.OnLoadFailed(func(e assetload.LoadFailedEvent) {
		fmt.Fprintf(os.Stderr, "failed: %s: %v\n", e.Path, e.Err)
	})
	opts = append(opts, assetload.WithEventBus(events))

	l, err := assetload.New(opts...)
	if err != nil {
		return fmt.Errorf("load: %w", err)
	}
	defer l.Close()

	ctx, cancel := context.WithTimeout(ctx, *timeout)
	defer cancel()

	go func() { _ = l.Run(ctx) }()

	handles := make([]*assetload.Handle, fs.NArg())
	for i, p := range fs.Args() {
		handles[i] = l.Load(ctx, p, mode, nil)
	}
	defer func() {
		for _, h := range handles {
			h.Release()
		}
	}()

	if err := reportProgress(ctx, handles, cfg.TickInterval*10); err != nil {
		return err
	}

	var failed int
	for _, h := range handles {
		b, ok := h.Bundle()
		if !ok {
			failed++
			fmt.Printf("%s: %v\n", h.LogicalPath(), h.Err())
			continue
		}
		fmt.Printf("%s: %d entries, %d bytes\n", h.LogicalPath(), b.Len(), b.Size())
	}
	if failed > 0 {
		return fmt.Errorf("load: %d of %d bundles failed", failed, len(handles))
	}
	return nil
}

// reportProgress prints a progress line every interval until all handles
// are terminal.
func reportProgress(ctx context.Context, handles []*assetload.Handle, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		var sum float64
		done := true
		for _, h := range handles {
			sum += h.Progress()
			done = done && h.IsCompleted()
		}
		fmt.Fprintf(os.Stderr, "\rprogress %5.1f%%", sum/float64(len(handles))*100)
		if done {
			fmt.Fprintln(os.Stderr)
			return nil
		}

		select {
		case <-ctx.Done():
			fmt.Fprintln(os.Stderr)
			return fmt.Errorf("load: %w", ctx.Err())
		case <-ticker.C:
		}
	}
}
