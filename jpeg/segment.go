package jpeg

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// Marker Segment code
const (
	Unknown uint16 = 0

	SOI  uint16 = 0xffd8 // Start of Image
	APP0 uint16 = 0xffe0 // Application Segment 0 (JFIF)
	APP1 uint16 = 0xffe1 // Application Segment 1 (Exif)
	APP2 uint16 = 0xffe2 // Application Segment 2 (Flashpix)
	DQT  uint16 = 0xffdb // Define Quantization Table
	DHT  uint16 = 0xffc4 // Define Huffman Table
	DRI  uint16 = 0xffdd // Define Restart Interval
	SOF0 uint16 = 0xffc0 // Start of Frame (Baseline DCT)
	SOF1 uint16 = 0xffc1 // Start of Frame (Extended sequential DCT)
	SOF2 uint16 = 0xffc2 // Start of Frame (Progressive DCT)
	SOF3 uint16 = 0xffc3 // Start of Frame (Lossless)
	SOS  uint16 = 0xffda // Start of Scan
	EOI  uint16 = 0xffd9 // End of Image
)

var markerSegmentName = map[uint16]string{
	Unknown: "Unknown",

	SOI:  "SOI",
	APP0: "APP0",
	APP1: "APP1",
	APP2: "APP2",
	DQT:  "DQT",
	DHT:  "DHT",
	DRI:  "DRI",
	SOF0: "SOF0",
	SOF1: "SOF1",
	SOF2: "SOF2",
	SOF3: "SOF3",
	SOS:  "SOS",
	EOI:  "EOI",
}

// IsSOF reports whether marker starts a frame. DHT, JPG and DAC share the
// SOFn range and are excluded.
func IsSOF(marker uint16) bool {
	if marker < 0xffc0 || marker > 0xffcf {
		return false
	}
	return marker != DHT && marker != 0xffc8 && marker != 0xffcc
}

// Segment is a marker segment of jpeg.
type Segment struct {
	Marker uint16
	Length int64

	payloadFileOffset int64
	reader            *io.SectionReader
}

// Name generates the name string of the segment.
func (s *Segment) Name() string {
	name, ok := markerSegmentName[s.Marker]
	if !ok {
		name = fmt.Sprintf("%x", s.Marker)
	}
	return name
}

// String makes Segment satisfy the Stringer interface.
func (s *Segment) String() string {
	return fmt.Sprintf("%s: %08x, %d[bytes]", s.Name(), s.payloadFileOffset, s.Length)
}

// FrameHeader is the payload of a SOFn segment.
type FrameHeader struct {
	Marker     uint16
	Precision  uint8
	Height     uint16
	Width      uint16
	Components uint8
}

// Lossless reports whether the frame is a lossless (SOF3) frame.
func (h *FrameHeader) Lossless() bool {
	return h.Marker == SOF3
}

// String makes FrameHeader satisfy the Stringer interface.
func (h *FrameHeader) String() string {
	return fmt.Sprintf("%s: %dx%d, %d bits, %d components",
		markerSegmentName[h.Marker], h.Width, h.Height, h.Precision, h.Components)
}

func parseFrameHeader(s *Segment) (*FrameHeader, error) {
	if s.Length < 6 {
		return nil, errors.New("short SOF")
	}

	h := &FrameHeader{Marker: s.Marker}
	r := s.reader
	if err := binary.Read(r, binary.BigEndian, &h.Precision); err != nil {
		return nil, err
	}
	if err := binary.Read(r, binary.BigEndian, &h.Height); err != nil {
		return nil, err
	}
	if err := binary.Read(r, binary.BigEndian, &h.Width); err != nil {
		return nil, err
	}
	if err := binary.Read(r, binary.BigEndian, &h.Components); err != nil {
		return nil, err
	}
	if s.Length < 6+3*int64(h.Components) {
		return nil, errors.New("short SOF")
	}

	return h, nil
}
