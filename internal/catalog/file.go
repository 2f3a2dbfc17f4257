package catalog

import (
	"fmt"
	"os"

	"github.com/fxamacker/cbor/v2"
	"github.com/klauspost/compress/zstd"

	"Chisel/internal/merkle"
)

// fileVersion is the current catalog file format version.
const fileVersion = 1

// catalogFile is the on-disk representation: CBOR-encoded, zstd-compressed.
type catalogFile struct {
	Version       uint8          `cbor:"1,keyasint"`
	MaxAttributes uint32         `cbor:"2,keyasint"`
	Entries       []merkle.Entry `cbor:"3,keyasint"`
}

// Save writes the catalog to path as a compressed catalog file.
func (c *Catalog) Save(path string, maxAttributes uint32) error {
	data, err := cbor.Marshal(catalogFile{
		Version:       fileVersion,
		MaxAttributes: maxAttributes,
		Entries:       c.entries,
	})
	if err != nil {
		return fmt.Errorf("encode catalog:\n%w", err)
	}

	encoder, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return fmt.Errorf("create encoder:\n%w", err)
	}
	defer encoder.Close()

	compressed := encoder.EncodeAll(data, nil)

	if err := os.WriteFile(path, compressed, 0644); err != nil {
		return fmt.Errorf("write catalog file:\n%w", err)
	}

	return nil
}

// Load reads a compressed catalog file and rebuilds the catalog,
// revalidating every entry against the recorded attribute bound.
func Load(path string) (*Catalog, uint32, error) {
	compressed, err := os.ReadFile(path)
	if err != nil {
		return nil, 0, fmt.Errorf("read catalog file:\n%w", err)
	}

	decoder, err := zstd.NewReader(nil)
	if err != nil {
		return nil, 0, fmt.Errorf("create decoder:\n%w", err)
	}
	defer decoder.Close()

	data, err := decoder.DecodeAll(compressed, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("decompress catalog:\n%w", err)
	}

	var file catalogFile
	if err := cbor.Unmarshal(data, &file); err != nil {
		return nil, 0, fmt.Errorf("decode catalog:\n%w", err)
	}

	if file.Version != fileVersion {
		return nil, 0, fmt.Errorf("unsupported catalog version %d", file.Version)
	}

	c, err := New(file.Entries, file.MaxAttributes)
	if err != nil {
		return nil, 0, fmt.Errorf("validate catalog:\n%w", err)
	}

	return c, file.MaxAttributes, nil
}
