package tiff_test

import (
	"bytes"
	"encoding/binary"
	"io"
	"strings"
	"testing"

	"github.com/ysh86/lsraw/internal/tifftest"
	"github.com/ysh86/lsraw/tiff"
)

func parse(t *testing.T, b []byte) (*tiff.File, error) {
	t.Helper()
	f, err := tiff.NewFile(io.NewSectionReader(bytes.NewReader(b), 0, int64(len(b))), 0)
	if err != nil {
		t.Fatal(err)
	}
	return f, f.Parse()
}

func TestParseChain(t *testing.T) {
	for _, order := range []binary.ByteOrder{binary.LittleEndian, binary.BigEndian} {
		t.Run(order.String(), func(t *testing.T) {
			b := tifftest.New(order)
			b.IFD().
				ASCII(tiff.Make, "Canon").
				ASCII(tiff.Model, "Canon EOS 5D Mark II").
				Short(tiff.ImageWidth, 160).
				Long(tiff.ImageLength, 120)
			b.IFD().Short(tiff.Compression, tiff.CompressionOldJPEG)

			f, err := parse(t, b.Bytes())
			if err != nil {
				t.Fatalf("Parse failed: %v", err)
			}
			if f.ByteOrder() != order {
				t.Errorf("byte order = %v, want %v", f.ByteOrder(), order)
			}
			if len(f.IFDs) != 2 {
				t.Fatalf("got %d IFDs, want 2", len(f.IFDs))
			}

			ifd0 := f.IFDs[0]
			// "Canon" and its NUL fit in 6 bytes, read from an offset.
			if got := tiff.Find(ifd0, tiff.Make).Text(); got != "Canon" {
				t.Errorf("Make = %q", got)
			}
			if got := tiff.Find(ifd0, tiff.Model).Text(); got != "Canon EOS 5D Mark II" {
				t.Errorf("Model = %q", got)
			}
			if v, ok := tiff.Find(ifd0, tiff.ImageWidth).Uint(0); !ok || v != 160 {
				t.Errorf("ImageWidth = %d, %v", v, ok)
			}
			if v, ok := tiff.Find(ifd0, tiff.ImageLength).Uint(0); !ok || v != 120 {
				t.Errorf("ImageLength = %d, %v", v, ok)
			}
			if v, _ := tiff.Find(f.IFDs[1], tiff.Compression).Uint(0); v != tiff.CompressionOldJPEG {
				t.Errorf("Compression = %d", v)
			}
		})
	}
}

func TestParseSubIFDs(t *testing.T) {
	b := tifftest.New(binary.LittleEndian)
	ifd0 := b.IFD().ASCII(tiff.Make, "NIKON CORPORATION")
	ifd0.Sub().Long(tiff.NewSubfileType, 1).Short(tiff.ImageWidth, 160)
	raw := ifd0.Sub().Long(tiff.NewSubfileType, 0).Short(tiff.ImageWidth, 6048)
	raw.Sub().Short(tiff.ImageWidth, 8)

	f, err := parse(t, b.Bytes())
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if len(f.IFDs) != 1 {
		t.Fatalf("got %d IFDs, want 1", len(f.IFDs))
	}
	if len(f.SubIFDs) != 3 {
		t.Fatalf("got %d SubIFDs, want 3", len(f.SubIFDs))
	}
	if len(f.All()) != 4 {
		t.Errorf("All() = %d IFDs, want 4", len(f.All()))
	}
	if v, _ := tiff.Find(f.SubIFDs[1], tiff.ImageWidth).Uint(0); v != 6048 {
		t.Errorf("SubIFD 1 width = %d, want 6048", v)
	}
	if !strings.Contains(f.String(), "SubIFD: 2") {
		t.Error("String() does not list SubIFDs")
	}
}

func TestParseMultiValue(t *testing.T) {
	b := tifftest.New(binary.BigEndian)
	b.IFD().
		ASCII(tiff.Make, "Sony").
		Byte(tiff.DNGVersion, 1, 4, 0, 0).
		Short(tiff.ActiveArea, 12, 8, 4012, 6008)

	f, err := parse(t, b.Bytes())
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	dng := tiff.Find(f.IFDs[0], tiff.DNGVersion)
	for i, want := range []uint32{1, 4, 0, 0} {
		if v, ok := dng.Uint(i); !ok || v != want {
			t.Errorf("DNGVersion[%d] = %d, %v; want %d", i, v, ok, want)
		}
	}
	area := tiff.Find(f.IFDs[0], tiff.ActiveArea)
	for i, want := range []uint32{12, 8, 4012, 6008} {
		if v, ok := area.Uint(i); !ok || v != want {
			t.Errorf("ActiveArea[%d] = %d, %v; want %d", i, v, ok, want)
		}
	}
	if _, ok := area.Uint(4); ok {
		t.Error("Uint out of range succeeded")
	}
}

func TestFindMissing(t *testing.T) {
	e := tiff.Find(nil, tiff.Make)
	if e != nil {
		t.Fatal("Find on empty IFD returned an entry")
	}
	if e.Text() != "" {
		t.Error("Text of missing entry is not empty")
	}
	if _, ok := e.Uint(0); ok {
		t.Error("Uint of missing entry succeeded")
	}
}

func TestParseErrors(t *testing.T) {
	truncated := []byte{
		'M', 'M', 0, 42, 0, 0, 0, 8,
		0, 50, // 50 entries that are not there
		0, 0,
	}

	tests := []struct {
		name string
		data []byte
	}{
		{"empty", nil},
		{"byte order", []byte("XX*\x00\x08\x00\x00\x00")},
		{"magic", []byte("II\x2b\x00\x08\x00\x00\x00")},
		{"first IFD outside", []byte("II*\x00\xff\x00\x00\x00")},
		{"truncated IFD", truncated},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := parse(t, tt.data); err == nil {
				t.Error("Parse succeeded")
			}
		})
	}
}

func TestParseSkipsBrokenIFDs(t *testing.T) {
	loop := []byte{
		'I', 'I', 42, 0, 8, 0, 0, 0,
		// IFD at 8: one entry, next IFD is itself
		1, 0,
		0x0f, 0x01, 2, 0, 2, 0, 0, 0, 'X', 0, 0, 0,
		8, 0, 0, 0,
	}
	f, err := parse(t, loop)
	if err != nil {
		t.Fatalf("looped chain: Parse failed: %v", err)
	}
	if len(f.IFDs) != 1 {
		t.Errorf("looped chain: got %d IFDs, want 1", len(f.IFDs))
	}

	b := tifftest.New(binary.LittleEndian)
	b.IFD().
		ASCII(tiff.Make, "NIKON CORPORATION").
		Long(tiff.SubIFDs, 0xfff0)
	f, err = parse(t, b.Bytes())
	if err != nil {
		t.Fatalf("bad SubIFD: Parse failed: %v", err)
	}
	if len(f.IFDs) != 1 || len(f.SubIFDs) != 0 {
		t.Errorf("bad SubIFD: got %d IFDs and %d SubIFDs", len(f.IFDs), len(f.SubIFDs))
	}
	if got := tiff.Find(f.IFDs[0], tiff.Make).Text(); got != "NIKON CORPORATION" {
		t.Errorf("Make = %q", got)
	}
}

func TestOutOfRangeValue(t *testing.T) {
	// Model points past the end of the file; the entry is kept without values.
	data := []byte{
		'I', 'I', 42, 0, 8, 0, 0, 0,
		1, 0,
		0x10, 0x01, 2, 0, 32, 0, 0, 0, 0x00, 0x10, 0, 0,
		0, 0, 0, 0,
	}
	f, err := parse(t, data)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	e := tiff.Find(f.IFDs[0], tiff.Model)
	if e == nil {
		t.Fatal("Model entry missing")
	}
	if e.Values != nil || e.Offset != 0x1000 {
		t.Errorf("entry = %+v", e)
	}
}
