package bincodec

import "testing"

func TestBitReaderGetBits(t *testing.T) {
	r := NewBitReader([]byte{0b10110010, 0b00001111})
	v, err := r.GetBits(4)
	if err != nil {
		t.Fatal(err)
	}
	if v != 0b0010 {
		t.Fatalf("got %b, want %b", v, 0b0010)
	}
	v, err = r.GetBits(4)
	if err != nil {
		t.Fatal(err)
	}
	if v != 0b1011 {
		t.Fatalf("got %b, want %b", v, 0b1011)
	}
}

func TestBitReaderGetIntegerByteOrder(t *testing.T) {
	// 0x00000123 stored big-endian on the wire.
	r := NewBitReader([]byte{0x00, 0x00, 0x01, 0x23})
	v, err := r.GetInteger(32, BigEndian, false)
	if err != nil {
		t.Fatal(err)
	}
	if v != 0x123 {
		t.Fatalf("got %#x, want %#x", v, 0x123)
	}

	r2 := NewBitReader([]byte{0x23, 0x01, 0x00, 0x00})
	v2, err := r2.GetInteger(32, LittleEndian, false)
	if err != nil {
		t.Fatal(err)
	}
	if v2 != 0x123 {
		t.Fatalf("got %#x, want %#x", v2, 0x123)
	}
}

// S4: 24-bit unsigned little-endian integer.
func TestBitReaderGetInteger24BitLE(t *testing.T) {
	r := NewBitReader([]byte{0xFF, 0x00, 0x7F})
	v, err := r.GetInteger(24, LittleEndian, false)
	if err != nil {
		t.Fatal(err)
	}
	if v != 0x7F00FF {
		t.Fatalf("got %#x, want %#x", v, 0x7F00FF)
	}
}

func TestBitReaderFallbackIdempotence(t *testing.T) {
	buf := []byte{0x01, 0x02, 0x03, 0x04}
	r := NewBitReader(buf)
	if _, err := r.GetBits(4); err != nil {
		t.Fatal(err)
	}
	before := r.PositionBits()

	r.CaptureFallback()
	if _, err := r.GetBits(20); err != nil {
		t.Fatal(err)
	}
	r.RestoreFallback()

	if r.PositionBits() != before {
		t.Fatalf("restore did not return to the captured position: got %d, want %d", r.PositionBits(), before)
	}

	// Idempotent regardless of whether the intervening op succeeded.
	r.CaptureFallback()
	if err := r.Skip(1000); err == nil {
		t.Fatal("expected underflow")
	}
	r.RestoreFallback()
	if r.PositionBits() != before {
		t.Fatalf("restore after failed op did not return to the captured position: got %d, want %d", r.PositionBits(), before)
	}
}

func TestBitReaderGetTextUntilNotConsumed(t *testing.T) {
	// S5: terminator 'C' (0x43), consume=false.
	r := NewBitReader([]byte("123ABC"))
	s, err := r.GetTextUntil('C', false, "ASCII")
	if err != nil {
		t.Fatal(err)
	}
	if s != "123AB" {
		t.Fatalf("got %q, want %q", s, "123AB")
	}
	if r.PositionBytes() != 5 {
		t.Fatalf("reader should sit exactly at the terminator, got position %d", r.PositionBytes())
	}
}

func TestBitReaderPositionMonotonicity(t *testing.T) {
	r := NewBitReader([]byte{0x01, 0x02, 0x03, 0x04})
	last := r.PositionBits()
	for i := 0; i < 4; i++ {
		if _, err := r.GetInteger(8, LittleEndian, false); err != nil {
			t.Fatal(err)
		}
		if r.PositionBits() <= last {
			t.Fatalf("position did not strictly increase: %d -> %d", last, r.PositionBits())
		}
		last = r.PositionBits()
	}
}
