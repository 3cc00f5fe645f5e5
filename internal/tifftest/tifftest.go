// Package tifftest builds small TIFF containers in memory for tests.
package tifftest

import (
	"encoding/binary"
	"os"
	"path/filepath"
	"sort"
	"testing"
)

type entry struct {
	tag   uint16
	typ   uint16
	count uint32
	data  []byte
}

// IFD is an image file directory under construction.
type IFD struct {
	order   binary.ByteOrder
	entries []entry
	subs    []*IFD
	exif    *IFD
	strip   []byte
	hasData bool
	nbytes  *uint32
}

// Builder lays out a TIFF file: header, then the IFD chain.
type Builder struct {
	order binary.ByteOrder
	chain []*IFD
}

// New creates a builder with the given byte order.
func New(order binary.ByteOrder) *Builder {
	return &Builder{order: order}
}

// IFD appends a new IFD to the main chain.
func (b *Builder) IFD() *IFD {
	ifd := &IFD{order: b.order}
	b.chain = append(b.chain, ifd)
	return ifd
}

// Sub creates an IFD referenced from i through the SubIFDs tag.
func (i *IFD) Sub() *IFD {
	sub := &IFD{order: i.order}
	i.subs = append(i.subs, sub)
	return sub
}

// Exif creates the IFD referenced from i through the ExifIFD tag.
func (i *IFD) Exif() *IFD {
	if i.exif == nil {
		i.exif = &IFD{order: i.order}
	}
	return i.exif
}

// ASCII adds a NUL terminated string.
func (i *IFD) ASCII(tag uint16, s string) *IFD {
	data := append([]byte(s), 0)
	i.entries = append(i.entries, entry{tag, 2, uint32(len(data)), data})
	return i
}

// Byte adds BYTE values.
func (i *IFD) Byte(tag uint16, v ...byte) *IFD {
	i.entries = append(i.entries, entry{tag, 1, uint32(len(v)), append([]byte{}, v...)})
	return i
}

// Short adds SHORT values.
func (i *IFD) Short(tag uint16, v ...uint16) *IFD {
	data := make([]byte, 2*len(v))
	for n, x := range v {
		i.order.PutUint16(data[2*n:], x)
	}
	i.entries = append(i.entries, entry{tag, 3, uint32(len(v)), data})
	return i
}

// Long adds LONG values.
func (i *IFD) Long(tag uint16, v ...uint32) *IFD {
	data := make([]byte, 4*len(v))
	for n, x := range v {
		i.order.PutUint32(data[4*n:], x)
	}
	i.entries = append(i.entries, entry{tag, 4, uint32(len(v)), data})
	return i
}

// Rational adds RATIONAL values given as numerator, denominator pairs.
func (i *IFD) Rational(tag uint16, v ...uint32) *IFD {
	data := make([]byte, 4*len(v))
	for n, x := range v {
		i.order.PutUint32(data[4*n:], x)
	}
	i.entries = append(i.entries, entry{tag, 5, uint32(len(v) / 2), data})
	return i
}

// Strip attaches image data; StripOffsets and StripByteCounts are filled in
// when the file is built.
func (i *IFD) Strip(data []byte) *IFD {
	i.strip = data
	i.hasData = true
	return i
}

// StripCount overrides the StripByteCounts value written for the strip.
func (i *IFD) StripCount(n uint32) *IFD {
	i.nbytes = &n
	return i
}

// Bytes serializes the file.
func (b *Builder) Bytes() []byte {
	buf := make([]byte, 8)
	if b.order == binary.LittleEndian {
		copy(buf, "II")
	} else {
		copy(buf, "MM")
	}
	b.order.PutUint16(buf[2:], 42)

	nextField := 4
	for _, ifd := range b.chain {
		var pos, next int
		buf, pos, next = ifd.write(buf)
		b.order.PutUint32(buf[nextField:], uint32(pos))
		nextField = next
	}
	return buf
}

// WriteFile writes the file into a temporary directory and returns its path.
func (b *Builder) WriteFile(t testing.TB, name string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, b.Bytes(), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

// write appends the IFD, its strip and its SubIFDs to buf. It returns the
// new buffer, the IFD offset and the position of its next-IFD field.
func (i *IFD) write(buf []byte) ([]byte, int, int) {
	entries := append([]entry{}, i.entries...)

	if i.hasData {
		buf = align(buf)
		off := len(buf)
		buf = append(buf, i.strip...)
		count := uint32(len(i.strip))
		if i.nbytes != nil {
			count = *i.nbytes
		}
		entries = append(entries,
			entry{0x0111, 4, 1, i.u32(uint32(off))},
			entry{0x0117, 4, 1, i.u32(count)})
	}

	if len(i.subs) > 0 {
		offs := make([]byte, 0, 4*len(i.subs))
		for _, sub := range i.subs {
			var pos int
			buf, pos, _ = sub.write(buf)
			offs = append(offs, i.u32(uint32(pos))...)
		}
		entries = append(entries, entry{0x014a, 4, uint32(len(i.subs)), offs})
	}

	if i.exif != nil {
		var pos int
		buf, pos, _ = i.exif.write(buf)
		entries = append(entries, entry{0x8769, 4, 1, i.u32(uint32(pos))})
	}

	sort.Slice(entries, func(a, b int) bool { return entries[a].tag < entries[b].tag })

	buf = align(buf)
	pos := len(buf)
	size := 2 + 12*len(entries) + 4
	buf = append(buf, make([]byte, size)...)
	i.order.PutUint16(buf[pos:], uint16(len(entries)))

	for n, e := range entries {
		p := pos + 2 + 12*n
		i.order.PutUint16(buf[p:], e.tag)
		i.order.PutUint16(buf[p+2:], e.typ)
		i.order.PutUint32(buf[p+4:], e.count)
		if len(e.data) <= 4 {
			copy(buf[p+8:p+12], e.data)
			continue
		}
		buf = align(buf)
		i.order.PutUint32(buf[p+8:], uint32(len(buf)))
		buf = append(buf, e.data...)
	}

	return buf, pos, pos + 2 + 12*len(entries)
}

func (i *IFD) u32(v uint32) []byte {
	b := make([]byte, 4)
	i.order.PutUint32(b, v)
	return b
}

func align(buf []byte) []byte {
	if len(buf)%2 != 0 {
		buf = append(buf, 0)
	}
	return buf
}

// LosslessJPEG returns a lossless JPEG stream header (SOI, DHT, SOF3, SOS)
// followed by a few bytes of entropy coded data and EOI.
func LosslessJPEG(width, height uint16, components int) []byte {
	b := []byte{0xff, 0xd8}

	// DHT with a two byte dummy payload
	b = append(b, 0xff, 0xc4, 0x00, 0x04, 0x00, 0x00)

	sof := []byte{0xff, 0xc3, 0, 0, 14, byte(height >> 8), byte(height), byte(width >> 8), byte(width), byte(components)}
	for c := 0; c < components; c++ {
		sof = append(sof, byte(c+1), 0x11, 0)
	}
	l := len(sof) - 2
	sof[2], sof[3] = byte(l>>8), byte(l)
	b = append(b, sof...)

	sos := []byte{0xff, 0xda, 0, 0, byte(components)}
	for c := 0; c < components; c++ {
		sos = append(sos, byte(c+1), 0)
	}
	sos = append(sos, 1, 0, 0)
	l = len(sos) - 2
	sos[2], sos[3] = byte(l>>8), byte(l)
	b = append(b, sos...)

	b = append(b, 0x12, 0x34, 0x56, 0x78)
	return append(b, 0xff, 0xd9)
}
