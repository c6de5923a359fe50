package protocol

import (
	"errors"
	"fmt"

	"github.com/klauspost/compress/zstd"
	"google.golang.org/protobuf/encoding/protowire"

	"github.com/annel0/blockverse/internal/vec"
	"github.com/annel0/blockverse/internal/world"
)

// ChunkPayloadVersion: версия формата полезной нагрузки чанка
const ChunkPayloadVersion = 1

// Номера полей в protobuf-кодировке
const (
	fieldVersion protowire.Number = 1
	fieldChunkX  protowire.Number = 2
	fieldChunkZ  protowire.Number = 3
	fieldHeights protowire.Number = 4
)

// ErrMalformedPayload возвращается для повреждённых или неполных данных
var ErrMalformedPayload = errors.New("malformed chunk payload")

// ChunkCodec кодирует высоты чанков для внешних потребителей (рендер, шина событий).
// Высоты упаковываются как packed varint и сжимаются zstd; координаты передаются без сжатия.
// Методы безопасны для конкурентного использования.
type ChunkCodec struct {
	encoder *zstd.Encoder
	decoder *zstd.Decoder
}

// NewChunkCodec создаёт кодек со сжатием zstd
func NewChunkCodec() (*ChunkCodec, error) {
	enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return nil, fmt.Errorf("zstd encoder: %w", err)
	}
	dec, err := zstd.NewReader(nil)
	if err != nil {
		enc.Close()
		return nil, fmt.Errorf("zstd decoder: %w", err)
	}
	return &ChunkCodec{encoder: enc, decoder: dec}, nil
}

// Close освобождает ресурсы zstd
func (c *ChunkCodec) Close() {
	c.decoder.Close()
	_ = c.encoder.Close()
}

// EncodeChunk кодирует координаты и высоты резидентного чанка
func (c *ChunkCodec) EncodeChunk(key vec.Vec2, heights world.Heights) []byte {
	var packed []byte
	for _, h := range heights {
		packed = protowire.AppendVarint(packed, uint64(h))
	}

	b := appendHeader(nil, key)
	b = protowire.AppendTag(b, fieldHeights, protowire.BytesType)
	b = protowire.AppendBytes(b, packed)

	return c.encoder.EncodeAll(b, make([]byte, 0, len(b)/2))
}

// DecodeChunk восстанавливает координаты и высоты из EncodeChunk
func (c *ChunkCodec) DecodeChunk(data []byte) (vec.Vec2, world.Heights, error) {
	var heights world.Heights

	raw, err := c.decoder.DecodeAll(data, nil)
	if err != nil {
		return vec.Vec2{}, heights, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}

	var packed []byte
	key, err := decodeFields(raw, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		if num != fieldHeights || typ != protowire.BytesType {
			return -1, nil
		}
		v, n := protowire.ConsumeBytes(b)
		if n < 0 {
			return 0, protowire.ParseError(n)
		}
		packed = v
		return n, nil
	})
	if err != nil {
		return vec.Vec2{}, heights, err
	}

	count := 0
	for len(packed) > 0 {
		if count >= len(heights) {
			return vec.Vec2{}, heights, fmt.Errorf("%w: more than %d heights", ErrMalformedPayload, len(heights))
		}
		v, n := protowire.ConsumeVarint(packed)
		if n < 0 {
			return vec.Vec2{}, heights, fmt.Errorf("%w: %v", ErrMalformedPayload, protowire.ParseError(n))
		}
		heights[count] = int(v)
		count++
		packed = packed[n:]
	}
	if count != len(heights) {
		return vec.Vec2{}, heights, fmt.Errorf("%w: got %d heights, want %d", ErrMalformedPayload, count, len(heights))
	}

	return key, heights, nil
}

// EncodeChunkKey кодирует только координаты чанка (выгрузка, ошибка генерации)
func EncodeChunkKey(key vec.Vec2) []byte {
	return appendHeader(nil, key)
}

// DecodeChunkKey восстанавливает координаты из EncodeChunkKey
func DecodeChunkKey(data []byte) (vec.Vec2, error) {
	return decodeFields(data, nil)
}

func appendHeader(b []byte, key vec.Vec2) []byte {
	b = protowire.AppendTag(b, fieldVersion, protowire.VarintType)
	b = protowire.AppendVarint(b, ChunkPayloadVersion)
	b = protowire.AppendTag(b, fieldChunkX, protowire.VarintType)
	b = protowire.AppendVarint(b, protowire.EncodeZigZag(int64(key.X)))
	b = protowire.AppendTag(b, fieldChunkZ, protowire.VarintType)
	b = protowire.AppendVarint(b, protowire.EncodeZigZag(int64(key.Y)))
	return b
}

// fieldFunc разбирает дополнительное поле; -1 означает "поле не обработано"
type fieldFunc func(num protowire.Number, typ protowire.Type, b []byte) (int, error)

// decodeFields разбирает заголовок и передаёт прочие поля в extra.
// Неизвестные поля пропускаются.
func decodeFields(b []byte, extra fieldFunc) (vec.Vec2, error) {
	var (
		key          vec.Vec2
		version      uint64
		haveX, haveZ bool
	)

	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return vec.Vec2{}, fmt.Errorf("%w: %v", ErrMalformedPayload, protowire.ParseError(n))
		}
		b = b[n:]

		switch {
		case num == fieldVersion && typ == protowire.VarintType:
			version, n = protowire.ConsumeVarint(b)
		case num == fieldChunkX && typ == protowire.VarintType:
			var v uint64
			v, n = protowire.ConsumeVarint(b)
			key.X = int(protowire.DecodeZigZag(v))
			haveX = true
		case num == fieldChunkZ && typ == protowire.VarintType:
			var v uint64
			v, n = protowire.ConsumeVarint(b)
			key.Y = int(protowire.DecodeZigZag(v))
			haveZ = true
		default:
			n = -1
			if extra != nil {
				var err error
				if n, err = extra(num, typ, b); err != nil {
					return vec.Vec2{}, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
				}
			}
			if n == -1 {
				n = protowire.ConsumeFieldValue(num, typ, b)
			}
		}
		if n < 0 {
			return vec.Vec2{}, fmt.Errorf("%w: %v", ErrMalformedPayload, protowire.ParseError(n))
		}
		b = b[n:]
	}

	if version != ChunkPayloadVersion {
		return vec.Vec2{}, fmt.Errorf("%w: unsupported version %d", ErrMalformedPayload, version)
	}
	if !haveX || !haveZ {
		return vec.Vec2{}, fmt.Errorf("%w: missing chunk coordinates", ErrMalformedPayload)
	}
	return key, nil
}
