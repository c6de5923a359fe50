package util

import (
	"github.com/aquilax/go-perlin"
)

// Параметры генератора шума Перлина
const (
	perlinAlpha   = 2.0 // Сглаживание шума
	perlinBeta    = 2.0 // Частота шума
	perlinOctaves = 3   // Количество октав
)

// Noise: сидированный источник 2D шума Перлина.
// Таблицы перестановок заполняются один раз в конструкторе, Noise2D их только
// читает, поэтому один экземпляр можно использовать из нескольких горутин.
type Noise struct {
	seed   int64
	perlin *perlin.Perlin
}

// NewNoise создаёт генератор шума с указанным сидом
func NewNoise(seed int64) *Noise {
	return &Noise{
		seed:   seed,
		perlin: perlin.NewPerlin(perlinAlpha, perlinBeta, perlinOctaves, seed),
	}
}

// Seed возвращает сид генератора
func (n *Noise) Seed() int64 {
	return n.seed
}

// Noise2D возвращает значение шума примерно в диапазоне [-1, 1]
func (n *Noise) Noise2D(x, y float64) float64 {
	return n.perlin.Noise2D(x, y)
}
