package assetload_test

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/hupe1980/assetload"
	"github.com/hupe1980/assetload/blobstore"
	"github.com/hupe1980/assetload/bundle"
)

func exampleStore() *blobstore.MemoryStore {
	data, err := bundle.Encode([]bundle.Entry{
		{Name: "greeting.txt", Data: []byte("hello, bundle")},
	}, bundle.CompressionZstd)
	if err != nil {
		log.Fatal(err)
	}

	store := blobstore.NewMemoryStore()
	if err := store.Put(context.Background(), "ui/hud.bundle", data); err != nil {
		log.Fatal(err)
	}
	return store
}

// Example_load demonstrates loading a bundle and reading one of its entries.
func Example_load() {
	l, err := assetload.New(
		assetload.WithBackend(assetload.LocationStreaming, exampleStore()),
		assetload.WithTickInterval(time.Millisecond),
	)
	if err != nil {
		log.Fatal(err)
	}
	defer l.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	go func() { _ = l.Run(ctx) }()

	h := l.Load(ctx, "ui/hud.bundle", assetload.ModeStreamingFetch, nil)
	defer h.Release()

	if err := h.Wait(ctx); err != nil {
		log.Fatal(err)
	}

	b, _ := h.Bundle()
	data, _ := b.Open("greeting.txt")
	fmt.Println(string(data))
	// Output: hello, bundle
}

// Example_sharedLoad demonstrates two holders sharing one load.
func Example_sharedLoad() {
	l, err := assetload.New(
		assetload.WithBackend(assetload.LocationPersistent, exampleStore()),
		assetload.WithDefaultLocation(assetload.LocationPersistent),
	)
	if err != nil {
		log.Fatal(err)
	}
	defer l.Close()

	first := l.Load(context.Background(), "ui/hud.bundle", assetload.ModeDefault, nil)
	second := l.Load(context.Background(), "ui/hud.bundle", assetload.ModePersistentSync, nil)

	fmt.Println(first.Task() == second.Task())
	fmt.Println(l.Registry().Len())

	first.Release()
	second.Release()
	for l.Tick() > 0 {
	}
	fmt.Println(l.Registry().Len())
	// Output:
	// true
	// 1
	// 0
}
