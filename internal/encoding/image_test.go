package encoding_test

import (
	"bytes"
	"testing"

	"github.com/segvm/segvm/internal/encoding"
)

func TestRoundTripUncompressed(t *testing.T) {
	want := []byte{0x02, 0x41, 0x00, 0x01, 0x05}

	e := &encoding.ImageEncoding{Data: want}

	b, err := e.MarshalBinary()
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	if !bytes.Equal(b, want) {
		t.Fatalf("marshalled = %x, want %x (uncompressed passthrough)", b, want)
	}

	var got encoding.ImageEncoding
	if err := got.UnmarshalBinary(b); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	if !bytes.Equal(got.Data, want) {
		t.Errorf("round trip = %x, want %x", got.Data, want)
	}
}

func TestRoundTripCompressed(t *testing.T) {
	want := bytes.Repeat([]byte{0xAA, 0x00, 0x55, 0xFF}, 64)

	e := &encoding.ImageEncoding{Data: want, Compress: true}

	b, err := e.MarshalBinary()
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	if bytes.Equal(b, want) {
		t.Fatal("compressed output should not equal the input verbatim")
	}

	var got encoding.ImageEncoding
	if err := got.UnmarshalBinary(b); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	if !bytes.Equal(got.Data, want) {
		t.Errorf("round trip = %x, want %x", got.Data, want)
	}
}

func TestUnmarshalAutoDetectsCompression(t *testing.T) {
	want := []byte("hello, machine")

	e := &encoding.ImageEncoding{Data: want, Compress: true}

	b, err := e.MarshalBinary()
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	// Unmarshal without setting Compress: detection is by content, not by
	// a field the caller must remember to set.
	var got encoding.ImageEncoding
	if err := got.UnmarshalBinary(b); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	if !bytes.Equal(got.Data, want) {
		t.Errorf("round trip = %q, want %q", got.Data, want)
	}
}
