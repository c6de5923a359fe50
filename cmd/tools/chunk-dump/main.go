package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/annel0/blockverse/internal/config"
	"github.com/annel0/blockverse/internal/storage"
	"github.com/annel0/blockverse/internal/vec"
	"github.com/annel0/blockverse/internal/world"
)

func main() {
	var (
		seedFlag   = flag.String("seed", "", "Сид мира (иначе берётся из конфига/хранилища)")
		configPath = flag.String("config", "", "YAML конфиг для чтения сида из хранилища миров")
		mode       = flag.String("mode", "summary", "Режим: summary, map, chunk")
		chunkFlag  = flag.String("chunk", "0,0", "Чанк для режима chunk: cx,cz")
		radius     = flag.Int("radius", 6, "Область [-radius, radius) чанков для summary и map")
	)
	flag.Parse()

	seed, err := resolveSeed(*seedFlag, *configPath)
	if err != nil {
		log.Fatalf("❌ %v", err)
	}
	field := world.NewHeightField(seed)

	region := DefaultRegion
	if *radius > 0 {
		region = Region{MinX: -*radius, MaxX: *radius, MinZ: -*radius, MaxZ: *radius}
	}

	switch *mode {
	case "summary":
		err = WriteSummary(os.Stdout, field, region)
	case "map":
		err = WriteMap(os.Stdout, field, region)
	case "chunk":
		var key vec.Vec2
		key, err = parseChunk(*chunkFlag)
		if err == nil {
			err = WriteChunk(os.Stdout, field, key)
		}
	default:
		fmt.Printf("❌ Unknown mode: %s\n", *mode)
		fmt.Println("Available modes: summary, map, chunk")
		os.Exit(1)
	}
	if err != nil {
		log.Fatalf("❌ %v", err)
	}
}

// resolveSeed: флаг -seed, затем сид из конфига/ENV, затем последний мир хранилища
func resolveSeed(flagValue, configPath string) (int64, error) {
	if flagValue != "" {
		seed, err := strconv.ParseInt(flagValue, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("некорректный сид %q: %w", flagValue, err)
		}
		return seed, nil
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return 0, err
	}
	if seed, ok := cfg.World.ResolveSeed(); ok {
		return seed, nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	repo, err := storage.Open(ctx, cfg.Storage)
	if err != nil {
		return 0, err
	}
	defer repo.Close()

	meta, err := repo.Latest(ctx)
	if errors.Is(err, storage.ErrWorldNotFound) {
		return 0, errors.New("сид не задан: укажите -seed или создайте мир")
	}
	if err != nil {
		return 0, err
	}
	return meta.Seed, nil
}

func parseChunk(s string) (vec.Vec2, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 2 {
		return vec.Vec2{}, fmt.Errorf("ожидается cx,cz, получено %q", s)
	}
	cx, errX := strconv.Atoi(strings.TrimSpace(parts[0]))
	cz, errZ := strconv.Atoi(strings.TrimSpace(parts[1]))
	if errX != nil || errZ != nil {
		return vec.Vec2{}, fmt.Errorf("ожидается cx,cz, получено %q", s)
	}
	return vec.Vec2{X: cx, Y: cz}, nil
}
