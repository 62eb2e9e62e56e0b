// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package binhash

import (
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"io"
	"math"
	"os"

	"github.com/zeebo/blake3"
)

// Digest is a 32-byte BLAKE3 digest.
type Digest [32]byte

// String returns the hex encoding of the digest.
func (d Digest) String() string { return FormatDigest(d) }

// HashFile computes the digest of the file at path, streaming it
// through the hash so memory use does not depend on file size.
func HashFile(path string) (Digest, error) {
	file, err := os.Open(path)
	if err != nil {
		return Digest{}, fmt.Errorf("opening %s for hashing: %w", path, err)
	}
	defer file.Close()

	hasher := blake3.New()
	if _, err := io.Copy(hasher, file); err != nil {
		return Digest{}, fmt.Errorf("hashing %s: %w", path, err)
	}
	return sum(hasher), nil
}

// Sum returns the digest of data.
func Sum(data []byte) Digest {
	return Digest(blake3.Sum256(data))
}

// SumFloats returns the digest of a sample buffer. Samples are hashed
// as little-endian IEEE 754 doubles so the result does not depend on
// the host byte order.
func SumFloats(samples []float64) Digest {
	hasher := blake3.New()
	var scratch [8]byte
	for _, sample := range samples {
		binary.LittleEndian.PutUint64(scratch[:], math.Float64bits(sample))
		hasher.Write(scratch[:])
	}
	return sum(hasher)
}

// Checksum folds a digest into the 16-bit value reported by
// `raster info --checksum`.
func Checksum(d Digest) uint16 {
	return binary.BigEndian.Uint16(d[:2]) ^ binary.BigEndian.Uint16(d[30:])
}

// FormatDigest returns the hex-encoded form of a digest.
func FormatDigest(digest Digest) string {
	return hex.EncodeToString(digest[:])
}

// ParseDigest parses a hex-encoded digest. The string must be exactly
// 64 hex characters.
func ParseDigest(hexString string) (Digest, error) {
	var digest Digest
	decoded, err := hex.DecodeString(hexString)
	if err != nil {
		return digest, fmt.Errorf("parsing hash digest: %w", err)
	}
	if len(decoded) != len(digest) {
		return digest, fmt.Errorf("hash digest is %d bytes, want %d", len(decoded), len(digest))
	}
	copy(digest[:], decoded)
	return digest, nil
}

func sum(hasher *blake3.Hasher) Digest {
	var digest Digest
	copy(digest[:], hasher.Sum(nil))
	return digest
}
