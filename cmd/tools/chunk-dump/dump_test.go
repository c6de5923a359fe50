package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/annel0/blockverse/internal/vec"
	"github.com/annel0/blockverse/internal/world"
)

func TestRegionKeys(t *testing.T) {
	assert.Len(t, DefaultRegion.Keys(), 144)

	keys := Region{MinX: -1, MaxX: 1, MinZ: 0, MaxZ: 2}.Keys()
	assert.Equal(t, []vec.Vec2{{X: -1, Y: 0}, {X: 0, Y: 0}, {X: -1, Y: 1}, {X: 0, Y: 1}}, keys)
}

func TestWriteMap_Deterministic(t *testing.T) {
	region := Region{MinX: -1, MaxX: 1, MinZ: -1, MaxZ: 1}

	var a, b bytes.Buffer
	require.NoError(t, WriteMap(&a, world.NewHeightField(42), region))
	require.NoError(t, WriteMap(&b, world.NewHeightField(42), region))
	assert.Equal(t, a.String(), b.String())

	lines := strings.Split(strings.TrimSuffix(a.String(), "\n"), "\n")
	require.Len(t, lines, 32)
	for _, line := range lines {
		assert.Len(t, line, 32)
		assert.NotContains(t, line, "?")
	}

	// Символ колонки (0,0) соответствует её высоте
	hf := world.NewHeightField(42)
	assert.Equal(t, glyph(hf.HeightAt(0, 0)), lines[16][16])
}

func TestWriteSummary(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteSummary(&buf, world.NewHeightField(7), Region{MinX: 0, MaxX: 2, MinZ: 0, MaxZ: 1}))

	out := buf.String()
	assert.Contains(t, out, "seed 7")
	assert.Contains(t, out, "(  0,  0)")
	assert.Contains(t, out, "(  1,  0)")
}

func TestWriteChunk(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteChunk(&buf, world.NewHeightField(3), vec.Vec2{X: -2, Y: 5}))

	out := buf.String()
	assert.Contains(t, out, "chunk (-2,5) seed 3")
	assert.Contains(t, out, "column (-32,80) height")
	assert.Contains(t, out, "above air: grass dirt dirt dirt stone")
	assert.Len(t, strings.Split(strings.TrimSuffix(out, "\n"), "\n"), 18)
}

func TestParseChunk(t *testing.T) {
	key, err := parseChunk("-3, 4")
	require.NoError(t, err)
	assert.Equal(t, vec.Vec2{X: -3, Y: 4}, key)

	_, err = parseChunk("1")
	assert.Error(t, err)
	_, err = parseChunk("a,b")
	assert.Error(t, err)
}

func TestResolveSeed_Flag(t *testing.T) {
	seed, err := resolveSeed("123", "")
	require.NoError(t, err)
	assert.Equal(t, int64(123), seed)

	_, err = resolveSeed("abc", "")
	assert.Error(t, err)
}
