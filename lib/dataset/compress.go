// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package dataset

import (
	"errors"
	"fmt"
	"strings"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// Compression identifies the band payload compression in a GRC
// container. The string values are stored in the container header.
type Compression string

const (
	CompressNone Compression = "NONE"
	CompressLZ4  Compression = "LZ4"
	CompressZstd Compression = "ZSTD"
)

// ParseCompression parses a COMPRESS creation option value.
func ParseCompression(name string) (Compression, error) {
	switch strings.ToUpper(name) {
	case "", "NONE":
		return CompressNone, nil
	case "LZ4":
		return CompressLZ4, nil
	case "ZSTD":
		return CompressZstd, nil
	default:
		return "", fmt.Errorf("unsupported COMPRESS value %q (expected NONE, LZ4 or ZSTD)", name)
	}
}

// errIncompressible means the compressed form would not be smaller;
// the caller stores the payload uncompressed.
var errIncompressible = errors.New("data is incompressible")

// compressPayload compresses data. An incompressible payload comes
// back unchanged with CompressNone.
func compressPayload(data []byte, compression Compression) ([]byte, Compression, error) {
	var (
		compressed []byte
		err        error
	)
	switch compression {
	case CompressNone:
		return data, CompressNone, nil
	case CompressLZ4:
		compressed, err = compressLZ4(data)
	case CompressZstd:
		compressed, err = compressZstd(data)
	default:
		return nil, "", fmt.Errorf("unsupported compression %q", compression)
	}
	if errors.Is(err, errIncompressible) {
		return data, CompressNone, nil
	}
	if err != nil {
		return nil, "", err
	}
	return compressed, compression, nil
}

// decompressPayload reverses compressPayload. uncompressedSize must
// match the original length exactly.
func decompressPayload(compressed []byte, compression Compression, uncompressedSize int) ([]byte, error) {
	switch compression {
	case CompressNone:
		if len(compressed) != uncompressedSize {
			return nil, fmt.Errorf("uncompressed payload: size %d does not match expected %d",
				len(compressed), uncompressedSize)
		}
		return compressed, nil
	case CompressLZ4:
		return decompressLZ4(compressed, uncompressedSize)
	case CompressZstd:
		return decompressZstd(compressed, uncompressedSize)
	default:
		return nil, fmt.Errorf("unsupported compression %q", compression)
	}
}

func compressLZ4(data []byte) ([]byte, error) {
	destination := make([]byte, lz4.CompressBlockBound(len(data)))
	written, err := lz4.CompressBlock(data, destination, nil)
	if err != nil {
		return nil, fmt.Errorf("lz4 compress: %w", err)
	}
	// CompressBlock returns 0 for incompressible input.
	if written == 0 || written >= len(data) {
		return nil, errIncompressible
	}
	return destination[:written], nil
}

func decompressLZ4(compressed []byte, uncompressedSize int) ([]byte, error) {
	destination := make([]byte, uncompressedSize)
	read, err := lz4.UncompressBlock(compressed, destination)
	if err != nil {
		return nil, fmt.Errorf("lz4 decompress: %w", err)
	}
	if read != uncompressedSize {
		return nil, fmt.Errorf("lz4 decompress: got %d bytes, expected %d", read, uncompressedSize)
	}
	return destination, nil
}

// zstd.Encoder and zstd.Decoder are safe for concurrent use with
// EncodeAll/DecodeAll.
var (
	zstdEncoder *zstd.Encoder
	zstdDecoder *zstd.Decoder
)

func init() {
	var err error
	zstdEncoder, err = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		panic("dataset: zstd encoder initialization failed: " + err.Error())
	}
	zstdDecoder, err = zstd.NewReader(nil)
	if err != nil {
		panic("dataset: zstd decoder initialization failed: " + err.Error())
	}
}

func compressZstd(data []byte) ([]byte, error) {
	compressed := zstdEncoder.EncodeAll(data, nil)
	if len(compressed) >= len(data) {
		return nil, errIncompressible
	}
	return compressed, nil
}

func decompressZstd(compressed []byte, uncompressedSize int) ([]byte, error) {
	result, err := zstdDecoder.DecodeAll(compressed, make([]byte, 0, uncompressedSize))
	if err != nil {
		return nil, fmt.Errorf("zstd decompress: %w", err)
	}
	if len(result) != uncompressedSize {
		return nil, fmt.Errorf("zstd decompress: got %d bytes, expected %d", len(result), uncompressedSize)
	}
	return result, nil
}
