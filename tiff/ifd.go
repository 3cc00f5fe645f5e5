package tiff

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// IFD Tag
const (
	InvalidTag uint16 = 0

	NewSubfileType            uint16 = 0x00fe
	ImageWidth                uint16 = 0x0100
	ImageLength               uint16 = 0x0101
	BitsPerSample             uint16 = 0x0102
	Compression               uint16 = 0x0103
	PhotometricInterpretation uint16 = 0x0106
	Make                      uint16 = 0x010f
	Model                     uint16 = 0x0110
	StripOffsets              uint16 = 0x0111
	SamplesPerPixel           uint16 = 0x0115
	StripByteCounts           uint16 = 0x0117
	Software                  uint16 = 0x0131
	TileOffsets               uint16 = 0x0144
	TileByteCounts            uint16 = 0x0145
	SubIFDs                   uint16 = 0x014a
	ExifIFD                   uint16 = 0x8769
	DNGVersion                uint16 = 0xc612
	UniqueCameraModel         uint16 = 0xc614
	ActiveArea                uint16 = 0xc68d
)

// PhotometricInterpretation values of raw data
const (
	PhotometricCFA       = 32803
	PhotometricLinearRaw = 34892
)

// Compression values
const (
	CompressionNone    = 1
	CompressionOldJPEG = 6
	CompressionJPEG    = 7
)

// IFD Type
const (
	InvalidType uint16 = iota

	BYTE      // []uint8
	ASCII     // []byte (NUL terminated)
	SHORT     // []uint16
	LONG      // []uint32
	RATIONAL  // not decoded
	SBYTE     // []int8
	UNDEFINED // []byte
	SSHORT    // []int16
	SLONG     // []int32
	SRATIONAL // not decoded
	// FLOAT
	// DOUBLE
)

// maxValueBytes is the largest out-of-line value that is decoded.
// Bigger ones (maker notes, embedded profiles) keep only their offset.
const maxValueBytes = 64 << 10

// IFDEntry is the IFD entry
type IFDEntry struct {
	Tag     uint16
	IFDType uint16
	Count   uint32
	Offset  uint32

	Values []interface{}

	// for debug
	globalOffset int64

	// cache
	elmSize int64
}

// String makes IFDEntry satisfy the Stringer interface.
func (e *IFDEntry) String() string {
	var buf bytes.Buffer

	buf.WriteString(fmt.Sprintf("    Tag: %xh\n", e.Tag))
	buf.WriteString(fmt.Sprintf("    Type: %d\n", e.IFDType))
	buf.WriteString(fmt.Sprintf("    Count: %d\n", e.Count))
	buf.WriteString(fmt.Sprintf("    Offset: 0x%08x (global: 0x%08x)\n", e.Offset, e.globalOffset))
	buf.WriteString(fmt.Sprintf("    Value: %+v\n", e.Values))

	return buf.String()
}

// Text returns an ASCII value up to its first NUL.
func (e *IFDEntry) Text() string {
	if e == nil {
		return ""
	}
	b := make([]byte, 0, len(e.Values))
	for _, v := range e.Values {
		c, ok := v.(byte)
		if !ok || c == 0 {
			break
		}
		b = append(b, c)
	}
	return string(b)
}

// Uint returns the i-th value of an unsigned integer entry.
func (e *IFDEntry) Uint(i int) (uint32, bool) {
	if e == nil || i < 0 || i >= len(e.Values) {
		return 0, false
	}
	switch v := e.Values[i].(type) {
	case uint8:
		return uint32(v), true
	case uint16:
		return uint32(v), true
	case uint32:
		return v, true
	}
	return 0, false
}

// Find returns the entry with the tag, or nil.
func Find(entries []*IFDEntry, tag uint16) *IFDEntry {
	for _, e := range entries {
		if e.Tag == tag {
			return e
		}
	}
	return nil
}

func parseIFD(sr *io.SectionReader, byteOrder binary.ByteOrder, globalOffset int64) ([]*IFDEntry, int64, error) {
	start, err := sr.Seek(0, io.SeekCurrent)
	if err != nil {
		return nil, 0, err
	}

	var num uint16
	if err := binary.Read(sr, byteOrder, &num); err != nil {
		return nil, 0, err
	}
	if start+2+int64(num)*12+4 > sr.Size() {
		return nil, 0, errors.New("IFD exceeds file")
	}

	entries := make([]*IFDEntry, 0, num)
	for i := num; i > 0; i-- {
		entry := &IFDEntry{}

		if err := binary.Read(sr, byteOrder, &entry.Tag); err != nil {
			return entries, 0, err
		}
		if err := binary.Read(sr, byteOrder, &entry.IFDType); err != nil {
			return entries, 0, err
		}
		if err := binary.Read(sr, byteOrder, &entry.Count); err != nil {
			return entries, 0, err
		}

		var field [4]byte
		if _, err := io.ReadFull(sr, field[:]); err != nil {
			return entries, 0, err
		}

		// Offset or Value
		totalBytes := entry.elementSize() * int64(entry.Count)
		if totalBytes > 4 {
			// Offset
			entry.Offset = byteOrder.Uint32(field[:])
			entry.Values = nil
			end := int64(entry.Offset) + totalBytes
			if totalBytes <= maxValueBytes && end <= sr.Size() {
				if err := entry.parseValues(io.NewSectionReader(sr, int64(entry.Offset), totalBytes), byteOrder); err != nil {
					return entries, 0, err
				}
			}
		} else {
			// Value
			entry.Offset = 0
			if err := entry.parseValues(bytes.NewReader(field[:]), byteOrder); err != nil {
				return entries, 0, err
			}
		}
		entry.globalOffset = globalOffset + int64(entry.Offset)

		entries = append(entries, entry)
	}

	var offsetNext uint32
	if err := binary.Read(sr, byteOrder, &offsetNext); err != nil {
		return entries, 0, err
	}

	return entries, int64(offsetNext), nil
}

func (e *IFDEntry) elementSize() int64 {
	if e.elmSize != 0 {
		return e.elmSize
	}

	switch e.IFDType {
	case BYTE, ASCII, SBYTE, UNDEFINED:
		e.elmSize = 1
	case SHORT, SSHORT:
		e.elmSize = 2
	case LONG, SLONG:
		e.elmSize = 4
	case RATIONAL, SRATIONAL:
		e.elmSize = 4 + 4
	default:
		e.elmSize = 0
	}

	return e.elmSize
}

func (e *IFDEntry) parseValues(r io.Reader, byteOrder binary.ByteOrder) error {
	e.Values = make([]interface{}, 0, e.Count)

	switch e.IFDType {
	case BYTE, ASCII, UNDEFINED:
		var value byte
		for i := e.Count; i > 0; i-- {
			if err := binary.Read(r, byteOrder, &value); err != nil {
				return err
			}
			e.Values = append(e.Values, value)
		}
	case SHORT:
		var value uint16
		for i := e.Count; i > 0; i-- {
			if err := binary.Read(r, byteOrder, &value); err != nil {
				return err
			}
			e.Values = append(e.Values, value)
		}
	case LONG:
		var value uint32
		for i := e.Count; i > 0; i-- {
			if err := binary.Read(r, byteOrder, &value); err != nil {
				return err
			}
			e.Values = append(e.Values, value)
		}
	case SBYTE:
		var value int8
		for i := e.Count; i > 0; i-- {
			if err := binary.Read(r, byteOrder, &value); err != nil {
				return err
			}
			e.Values = append(e.Values, value)
		}
	case SSHORT:
		var value int16
		for i := e.Count; i > 0; i-- {
			if err := binary.Read(r, byteOrder, &value); err != nil {
				return err
			}
			e.Values = append(e.Values, value)
		}
	case SLONG:
		var value int32
		for i := e.Count; i > 0; i-- {
			if err := binary.Read(r, byteOrder, &value); err != nil {
				return err
			}
			e.Values = append(e.Values, value)
		}
	default:
		// RATIONAL, SRATIONAL and unknown types
		e.Values = nil
	}

	return nil
}
