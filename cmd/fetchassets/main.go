package main

import (
	"flag"
	"io"
	"log"
	"log/slog"
	"os"

	get "github.com/hashicorp/go-getter"

	"github.com/OCharnyshevich/voxel-terrain/internal/server/assets"
	"github.com/OCharnyshevich/voxel-terrain/internal/server/storage"
)

func main() {
	var (
		data = flag.String("data", "data", "data directory")
		name = flag.String("name", "", "pack name under data/packs")
		src  = flag.String("url", "", "go-getter source, e.g. git::https://example.com/packs.git//default")
	)
	flag.Parse()

	if *name == "" {
		log.Fatal("pack name required")
	}
	if *src == "" {
		log.Fatal("source url required")
	}

	store, err := storage.New(*data, slog.New(slog.NewTextHandler(io.Discard, nil)))
	if err != nil {
		log.Fatal(err)
	}

	path := store.PackDir(*name)
	if err := os.RemoveAll(path); err != nil {
		log.Fatal(err)
	}

	log.Default().Printf("start downloading block pack %s", path)
	if err := get.Get(path, *src); err != nil {
		log.Fatalf("download %s: %v", *src, err)
	}

	pack, err := assets.LoadDir(path)
	if err != nil {
		log.Fatalf("downloaded pack is invalid: %v", err)
	}
	log.Default().Printf("done downloading block pack %s (%d blocks, %d textures)",
		path, pack.Registry.Len(), len(pack.Atlas.Names()))
}
