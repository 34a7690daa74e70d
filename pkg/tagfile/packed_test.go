package tagfile

import (
	"bytes"
	"errors"
	"testing"
)

func TestWritePacked_Encodings(t *testing.T) {
	tests := []struct {
		value uint32
		want  []byte
	}{
		{0, []byte{0x00}},
		{127, []byte{0x7F}},
		{128, []byte{0x80, 0x80}},
		{0x3FFF, []byte{0xBF, 0xFF}},
		{0x4000, []byte{0xC0, 0x40, 0x00}},
		{0x1FFFFF, []byte{0xDF, 0xFF, 0xFF}},
		{0x200000, []byte{0xE0, 0x20, 0x00, 0x00}},
		{0x1FFFFFFF, []byte{0xFF, 0xFF, 0xFF, 0xFF}},
	}

	for _, tt := range tests {
		got := WritePacked(tt.value)
		if !bytes.Equal(got, tt.want) {
			t.Errorf("WritePacked(0x%x) = % x, want % x", tt.value, got, tt.want)
		}
	}
}

func TestReadPacked_Concrete(t *testing.T) {
	v, next, err := ReadPacked([]byte{0x80, 0x80}, 0)
	if err != nil {
		t.Fatalf("ReadPacked failed: %v", err)
	}
	if v != 128 || next != 2 {
		t.Errorf("ReadPacked = (%d, %d), want (128, 2)", v, next)
	}

	v, next, err = ReadPacked([]byte{0xAA, 0x7F, 0x01}, 1)
	if err != nil {
		t.Fatalf("ReadPacked at offset failed: %v", err)
	}
	if v != 127 || next != 2 {
		t.Errorf("ReadPacked at offset = (%d, %d), want (127, 2)", v, next)
	}
}

func TestPacked_RoundTrip(t *testing.T) {
	check := func(v uint32) {
		enc := WritePacked(v)
		got, next, err := ReadPacked(enc, 0)
		if err != nil {
			t.Fatalf("ReadPacked(WritePacked(0x%x)) failed: %v", v, err)
		}
		if got != v {
			t.Fatalf("round trip 0x%x -> 0x%x", v, got)
		}
		if next != len(enc) {
			t.Fatalf("0x%x: consumed %d of %d bytes", v, next, len(enc))
		}
	}

	for v := uint32(0); v < 0x5000; v++ {
		check(v)
	}
	for v := uint32(0x5000); v <= packedMax4 && v >= 0x5000; v += 0x1F3B {
		check(v)
	}
	for _, v := range []uint32{packedMax1, packedMax2, packedMax2 + 1, packedMax3, packedMax3 + 1, packedMax4} {
		check(v)
	}
}

func TestWritePacked_Clamps(t *testing.T) {
	tests := []uint32{0x20000000, 0x20000001, 0xFFFFFFFF, 0x3FFFFFFF}
	for _, v := range tests {
		got := WritePacked(v)
		want := WritePacked(v & 0x1FFFFFFF)
		if !bytes.Equal(got, want) {
			t.Errorf("WritePacked(0x%x) = % x, want % x", v, got, want)
		}
	}
}

func TestReadPacked_Truncated(t *testing.T) {
	tests := []struct {
		name string
		data []byte
	}{
		{"empty", nil},
		{"two byte prefix only", []byte{0x80}},
		{"three byte prefix", []byte{0xC0, 0x01}},
		{"four byte prefix", []byte{0xE0, 0x01, 0x02}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := ReadPacked(tt.data, 0)
			if !errors.Is(err, ErrTruncated) {
				t.Errorf("expected ErrTruncated, got %v", err)
			}
		})
	}
}
