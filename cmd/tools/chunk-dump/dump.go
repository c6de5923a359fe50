package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/annel0/blockverse/internal/vec"
	"github.com/annel0/blockverse/internal/world"
	"github.com/annel0/blockverse/internal/world/block"
)

// Region: прямоугольник чанков [MinX, MaxX) × [MinZ, MaxZ)
type Region struct {
	MinX, MaxX int
	MinZ, MaxZ int
}

// DefaultRegion: сетка 12×12 чанков вокруг начала координат
var DefaultRegion = Region{MinX: -6, MaxX: 6, MinZ: -6, MaxZ: 6}

// Keys возвращает чанки области построчно: сначала Z, затем X
func (r Region) Keys() []vec.Vec2 {
	var keys []vec.Vec2
	for cz := r.MinZ; cz < r.MaxZ; cz++ {
		for cx := r.MinX; cx < r.MaxX; cx++ {
			keys = append(keys, vec.Vec2{X: cx, Y: cz})
		}
	}
	return keys
}

// heightGlyphs кодирует высоту относительно MinHeight одним символом
const heightGlyphs = "0123456789abcdefghijklmnopqrstuvwxyz"

func glyph(h int) byte {
	i := h - world.MinHeight
	if i < 0 || i >= len(heightGlyphs) {
		return '?'
	}
	return heightGlyphs[i]
}

// WriteSummary печатает минимальную и максимальную высоту каждого чанка
func WriteSummary(w io.Writer, field *world.HeightField, region Region) error {
	if _, err := fmt.Fprintf(w, "seed %d, чанки x∈[%d,%d) z∈[%d,%d)\n",
		field.Seed(), region.MinX, region.MaxX, region.MinZ, region.MaxZ); err != nil {
		return err
	}
	for _, key := range region.Keys() {
		chunk := world.NewChunk(key, field.GenerateHeights(key))
		lo, hi := minHeight(chunk.Heights), chunk.MaxHeight()
		if _, err := fmt.Fprintf(w, "(%3d,%3d) min=%d max=%d solid=%d\n",
			key.X, key.Y, lo, hi, chunk.SolidBlocks()); err != nil {
			return err
		}
	}
	return nil
}

// WriteMap печатает карту высот всей области: один символ на колонку,
// строка на каждую мировую Z
func WriteMap(w io.Writer, field *world.HeightField, region Region) error {
	width := (region.MaxX - region.MinX) * world.ChunkSize
	var sb strings.Builder
	sb.Grow(width + 1)

	for z := region.MinZ * world.ChunkSize; z < region.MaxZ*world.ChunkSize; z++ {
		sb.Reset()
		for x := region.MinX * world.ChunkSize; x < region.MaxX*world.ChunkSize; x++ {
			sb.WriteByte(glyph(field.HeightAt(x, z)))
		}
		sb.WriteByte('\n')
		if _, err := io.WriteString(w, sb.String()); err != nil {
			return err
		}
	}
	return nil
}

// WriteChunk печатает высоты одного чанка и его вертикальный разрез по блокам
func WriteChunk(w io.Writer, field *world.HeightField, key vec.Vec2) error {
	chunk := world.NewChunk(key, field.GenerateHeights(key))
	if _, err := fmt.Fprintf(w, "chunk (%d,%d) seed %d\n", key.X, key.Y, field.Seed()); err != nil {
		return err
	}
	for lz := 0; lz < world.ChunkSize; lz++ {
		row := make([]string, world.ChunkSize)
		for lx := 0; lx < world.ChunkSize; lx++ {
			row[lx] = fmt.Sprintf("%2d", chunk.Heights.At(lx, lz))
		}
		if _, err := fmt.Fprintln(w, strings.Join(row, " ")); err != nil {
			return err
		}
	}

	// Разрез колонки (0,0) чанка сверху вниз
	origin := key.ChunkOrigin()
	h := chunk.Heights.At(0, 0)
	if _, err := fmt.Fprintf(w, "column (%d,%d) height %d, above %s:", origin.X, origin.Y, h, field.BlockAt(origin.X, h, origin.Y)); err != nil {
		return err
	}
	for y := h - 1; y >= 0 && y >= h-1-block.DirtDepth-1; y-- {
		if _, err := fmt.Fprintf(w, " %s", chunk.BlockAt(vec.Vec2{}, y)); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintln(w, " ...")
	return err
}

func minHeight(heights world.Heights) int {
	lo := heights[0]
	for _, h := range heights[1:] {
		if h < lo {
			lo = h
		}
	}
	return lo
}
