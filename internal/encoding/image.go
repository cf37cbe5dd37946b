// Package encoding implements the on-disk binary image format: a flat byte
// stream with no header and no checksum, optionally whole-image
// zlib-compressed as a pure storage-layer convenience (spec §6). The format
// intentionally carries no address: where an image loads is a property of
// how it is invoked (load_image's dest parameter), not of the file.
package encoding

import (
	"bytes"
	"compress/zlib"
	"fmt"
	"io"
)

// ImageEncoding implements encoding.BinaryMarshaler and
// encoding.BinaryUnmarshaler over a flat byte image. Grounded on
// smoynes-elsie internal/encoding's HexEncoding Marshal/Unmarshal pairing,
// re-targeted from an Intel-Hex text format to this machine's headerless
// binary one.
type ImageEncoding struct {
	Data []byte

	// Compress selects zlib compression on MarshalBinary. UnmarshalBinary
	// auto-detects a zlib stream by its header regardless of this field.
	Compress bool
}

// MarshalBinary returns the image bytes, zlib-compressed if Compress is set.
func (e *ImageEncoding) MarshalBinary() ([]byte, error) {
	if !e.Compress {
		out := make([]byte, len(e.Data))
		copy(out, e.Data)

		return out, nil
	}

	var buf bytes.Buffer

	zw := zlib.NewWriter(&buf)

	if _, err := zw.Write(e.Data); err != nil {
		return nil, fmt.Errorf("encoding: compress: %w", err)
	}

	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("encoding: compress: %w", err)
	}

	return buf.Bytes(), nil
}

// UnmarshalBinary loads b into Data, transparently inflating it first if it
// looks like a zlib stream.
func (e *ImageEncoding) UnmarshalBinary(b []byte) error {
	if !looksZlib(b) {
		e.Data = make([]byte, len(b))
		copy(e.Data, b)

		return nil
	}

	zr, err := zlib.NewReader(bytes.NewReader(b))
	if err != nil {
		return fmt.Errorf("encoding: decompress: %w", err)
	}

	defer zr.Close()

	data, err := io.ReadAll(zr)
	if err != nil {
		return fmt.Errorf("encoding: decompress: %w", err)
	}

	e.Data = data

	return nil
}

// looksZlib reports whether b begins with a valid zlib header (RFC 1950):
// a CMF byte of 0x78 paired with any FLG byte for which
// (CMF<<8|FLG) % 31 == 0.
func looksZlib(b []byte) bool {
	if len(b) < 2 || b[0] != 0x78 {
		return false
	}

	return (uint16(b[0])<<8|uint16(b[1]))%31 == 0
}
