// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package dataset

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"

	"github.com/bureau-foundation/geoalg/lib/binhash"
	"github.com/bureau-foundation/geoalg/lib/codec"
	"github.com/bureau-foundation/geoalg/lib/progress"
)

// grcMagic opens every GRC container so Identify can recognize files
// without the .grc suffix.
const grcMagic = "GRC1"

type grcContainer struct {
	Magic        string            `cbor:"magic"`
	Width        int               `cbor:"width"`
	Height       int               `cbor:"height"`
	GeoTransform []float64         `cbor:"geo_transform"`
	Metadata     map[string]string `cbor:"metadata,omitempty"`
	Bands        []grcBand         `cbor:"bands"`
}

type grcBand struct {
	DataType    string      `cbor:"data_type"`
	NoData      *float64    `cbor:"nodata,omitempty"`
	Description string      `cbor:"description,omitempty"`
	Compression Compression `cbor:"compression"`
	Size        int         `cbor:"size"`
	Digest      string      `cbor:"blake3"`
	Payload     []byte      `cbor:"payload"`
}

type grcDriver struct{ baseDriver }

func (d *grcDriver) Identify(name string) bool {
	if d.hasExtension(name) {
		return true
	}
	file, err := os.Open(name)
	if err != nil {
		return false
	}
	defer file.Close()
	header := make([]byte, 16)
	n, _ := io.ReadFull(file, header)
	return bytes.Contains(header[:n], []byte(grcMagic))
}

func (d *grcDriver) Open(name string, options OpenOptions) (*Dataset, error) {
	var (
		lock *fileLock
		data []byte
		err  error
	)
	if options.Update {
		lock, err = lockForUpdate(name)
		if err != nil {
			return nil, err
		}
		data, err = readContainer(lock.File())
	} else {
		var file *os.File
		if file, err = os.Open(name); err == nil {
			data, err = readContainer(file)
			file.Close()
		}
	}
	if err != nil {
		if lock != nil {
			lock.Unlock()
		}
		return nil, fmt.Errorf("%s: %w", name, err)
	}

	ds, err := decodeGRC(name, data)
	if err != nil {
		if lock != nil {
			lock.Unlock()
		}
		return nil, err
	}

	if lock != nil {
		ds.update = true
		ds.OnClose(lock.Unlock)
		ds.OnClose(func() error {
			if !ds.Modified() {
				return nil
			}
			options.logger().Debug("flushing updated raster", "name", name)
			return rewriteLocked(lock.File(), ds, CreateOptions{Config: options.Config})
		})
	}
	return ds, nil
}

// maxContainerSize bounds how much of a GRC file is read before
// decoding.
var maxContainerSize int64 = 1 << 30

func readContainer(r io.Reader) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r, maxContainerSize+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > maxContainerSize {
		return nil, fmt.Errorf("container larger than %d bytes", maxContainerSize)
	}
	return data, nil
}

func decodeGRC(name string, data []byte) (*Dataset, error) {
	var container grcContainer
	if err := codec.Unmarshal(data, &container); err != nil {
		return nil, fmt.Errorf("'%s' not recognized as being in a supported file format.", name)
	}
	if container.Magic != grcMagic {
		return nil, fmt.Errorf("%s: not a GRC container (magic %q)", name, container.Magic)
	}
	if container.Width <= 0 || container.Height <= 0 {
		return nil, fmt.Errorf("%s: invalid raster size %dx%d", name, container.Width, container.Height)
	}

	ds := New("GRC", name, Raster)
	for key, value := range container.Metadata {
		ds.metadata[key] = value
	}
	raster := &Grid{Width: container.Width, Height: container.Height, GeoTransform: DefaultGeoTransform}
	copy(raster.GeoTransform[:], container.GeoTransform)

	for i, stored := range container.Bands {
		dataType, err := ParseDataType(stored.DataType)
		if err != nil {
			return nil, fmt.Errorf("%s: band %d: %w", name, i+1, err)
		}
		band := NewLazyBand(dataType, raster.Width, raster.Height, func() ([]float64, error) {
			payload, err := decompressPayload(stored.Payload, stored.Compression, stored.Size)
			if err != nil {
				return nil, fmt.Errorf("%s: band %d: %w", name, i+1, err)
			}
			if digest := binhash.Sum(payload).String(); digest != stored.Digest {
				return nil, fmt.Errorf("%s: band %d: checksum mismatch", name, i+1)
			}
			return decodeSamples(dataType, payload, raster.Width*raster.Height)
		})
		band.NoData = stored.NoData
		band.Description = stored.Description
		raster.Bands = append(raster.Bands, band)
	}
	ds.raster = raster
	return ds, nil
}

func (d *grcDriver) CreateCopy(name string, src *Dataset, options CreateOptions) (*Dataset, error) {
	if src.Raster() == nil {
		return nil, fmt.Errorf("GRC driver only supports raster content, but %s has none", src.Name())
	}
	data, err := encodeGRC(src, options)
	if err != nil {
		return nil, err
	}
	if err := os.WriteFile(name, data, 0o644); err != nil {
		return nil, fmt.Errorf("writing %s: %w", name, err)
	}
	options.logger().Debug("raster written", "name", name, "bytes", len(data))
	return decodeGRC(name, data)
}

func rewriteLocked(file *os.File, ds *Dataset, options CreateOptions) error {
	data, err := encodeGRC(ds, options)
	if err != nil {
		return err
	}
	if err := file.Truncate(0); err != nil {
		return fmt.Errorf("truncating %s: %w", file.Name(), err)
	}
	if _, err := file.WriteAt(data, 0); err != nil {
		return fmt.Errorf("writing %s: %w", file.Name(), err)
	}
	return file.Sync()
}

func encodeGRC(src *Dataset, options CreateOptions) ([]byte, error) {
	compression, err := ParseCompression(option(options.Options, "COMPRESS",
		option(options.Config, "GRC_DEFAULT_COMPRESS", "NONE")))
	if err != nil {
		return nil, err
	}

	raster := src.Raster()
	container := grcContainer{
		Magic:        grcMagic,
		Width:        raster.Width,
		Height:       raster.Height,
		GeoTransform: raster.GeoTransform[:],
		Metadata:     src.Metadata(),
	}
	for i, band := range raster.Bands {
		samples, err := band.Read()
		if err != nil {
			return nil, fmt.Errorf("reading band %d of %s: %w", i+1, src.Name(), err)
		}
		raw := encodeSamples(band.DataType, samples)
		payload, used, err := compressPayload(raw, compression)
		if err != nil {
			return nil, fmt.Errorf("band %d: %w", i+1, err)
		}
		container.Bands = append(container.Bands, grcBand{
			DataType:    string(band.DataType),
			NoData:      band.NoData,
			Description: band.Description,
			Compression: used,
			Size:        len(raw),
			Digest:      binhash.Sum(raw).String(),
			Payload:     payload,
		})
		if err := progress.Report(options.Progress, float64(i+1)/float64(len(raster.Bands)), ""); err != nil {
			return nil, err
		}
	}
	return codec.Marshal(container)
}

func encodeSamples(dataType DataType, samples []float64) []byte {
	size := dataType.Size()
	out := make([]byte, len(samples)*size)
	for i, v := range samples {
		v = dataType.Clamp(v)
		slot := out[i*size:]
		switch dataType {
		case Byte:
			slot[0] = byte(v)
		case Int16:
			binary.LittleEndian.PutUint16(slot, uint16(int16(v)))
		case Int32:
			binary.LittleEndian.PutUint32(slot, uint32(int32(v)))
		case Float32:
			binary.LittleEndian.PutUint32(slot, math.Float32bits(float32(v)))
		default:
			binary.LittleEndian.PutUint64(slot, math.Float64bits(v))
		}
	}
	return out
}

func decodeSamples(dataType DataType, payload []byte, count int) ([]float64, error) {
	size := dataType.Size()
	if len(payload) != count*size {
		return nil, fmt.Errorf("payload has %d bytes, want %d", len(payload), count*size)
	}
	samples := make([]float64, count)
	for i := range samples {
		slot := payload[i*size:]
		switch dataType {
		case Byte:
			samples[i] = float64(slot[0])
		case Int16:
			samples[i] = float64(int16(binary.LittleEndian.Uint16(slot)))
		case Int32:
			samples[i] = float64(int32(binary.LittleEndian.Uint32(slot)))
		case Float32:
			samples[i] = float64(math.Float32frombits(binary.LittleEndian.Uint32(slot)))
		default:
			samples[i] = math.Float64frombits(binary.LittleEndian.Uint64(slot))
		}
	}
	return samples, nil
}
