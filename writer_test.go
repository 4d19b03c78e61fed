package bincodec

import (
	"bytes"
	"testing"
)

// S2: two 32-bit big-endian integers.
func TestBitWriterPutIntegerBigEndian(t *testing.T) {
	w := NewBitWriter()
	if err := w.PutInteger(0x00000123, 32, BigEndian); err != nil {
		t.Fatal(err)
	}
	if err := w.PutInteger(0x00000456, 32, BigEndian); err != nil {
		t.Fatal(err)
	}
	w.Flush()

	want := []byte{0x00, 0x00, 0x01, 0x23, 0x00, 0x00, 0x04, 0x56}
	if got := w.Array(); !bytes.Equal(got, want) {
		t.Fatalf("got % x, want % x", got, want)
	}
}

// S4: 24-bit unsigned little-endian integer.
func TestBitWriterPutInteger24BitLE(t *testing.T) {
	w := NewBitWriter()
	if err := w.PutInteger(0x7F00FF, 24, LittleEndian); err != nil {
		t.Fatal(err)
	}
	w.Flush()

	want := []byte{0xFF, 0x00, 0x7F}
	if got := w.Array(); !bytes.Equal(got, want) {
		t.Fatalf("got % x, want % x", got, want)
	}
}

func TestBitWriterOverwriteBytes(t *testing.T) {
	w := NewBitWriter()
	if err := w.PutBytes([]byte{0x00, 0x00, 0xAA, 0xBB}); err != nil {
		t.Fatal(err)
	}
	w.overwriteBytes(0, []byte{0x11, 0x22})

	want := []byte{0x11, 0x22, 0xAA, 0xBB}
	if got := w.Array(); !bytes.Equal(got, want) {
		t.Fatalf("got % x, want % x", got, want)
	}
}

func TestBitWriterPutTextNoTerminatorWhenNotConsumed(t *testing.T) {
	w := NewBitWriter()
	term := byte('C')
	if err := w.PutText("123AB", &term, false, "ASCII"); err != nil {
		t.Fatal(err)
	}
	if got := string(w.Array()); got != "123AB" {
		t.Fatalf("got %q, want %q", got, "123AB")
	}
}
