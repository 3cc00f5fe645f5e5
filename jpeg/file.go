package jpeg

import (
	"encoding/binary"
	"errors"
	"io"
)

// File is a JPEG stream scanned up to its first SOS.
type File struct {
	Segments []*Segment
	Frame    *FrameHeader

	reader *io.SectionReader
}

// NewFile creates a new JPEG file struct.
func NewFile(sr *io.SectionReader) (*File, error) {
	f := &File{reader: sr}
	return f, nil
}

func readMarkerLength(r io.Reader) (marker uint16, length uint16, e error) {
	var buf uint16
	if err := binary.Read(r, binary.BigEndian, &buf); err != nil {
		return marker, length, err
	}

	marker = buf
	if marker != SOI && marker != EOI {
		if err := binary.Read(r, binary.BigEndian, &buf); err != nil {
			return marker, length, err
		}
		length = buf
	}

	return marker, length, nil
}

// Parse scans marker segments from SOI to SOS and decodes the frame header.
// Entropy coded data is not read.
func (f *File) Parse() error {
	var offset int64

	// SOI
	marker, length, err := readMarkerLength(f.reader)
	if err != nil || marker != SOI || length != 0 {
		return errors.New("expected SOI")
	}
	offset += 2 // 'marker uint16'
	f.Segments = append(f.Segments, &Segment{marker, 0, offset, io.NewSectionReader(f.reader, offset, 0)})

	for {
		marker, length, err := readMarkerLength(f.reader)
		if err != nil || marker>>8 != 0xff || length < 2 {
			return errors.New("invalid segment")
		}

		length -= 2 // length includes 'length uint16' itself.
		offset += 4 // 'marker uint16' + 'length uint16'
		if offset+int64(length) > f.reader.Size() {
			return errors.New("invalid length of segment")
		}
		seg := &Segment{marker, int64(length), offset, io.NewSectionReader(f.reader, offset, int64(length))}
		f.Segments = append(f.Segments, seg)

		if IsSOF(marker) && f.Frame == nil {
			h, err := parseFrameHeader(seg)
			if err != nil {
				return err
			}
			f.Frame = h
		}

		offset, err = f.reader.Seek(offset+int64(length), io.SeekStart)
		if err != nil {
			return errors.New("invalid length of segment")
		}

		// SOS
		if marker == SOS {
			break
		}
	}

	if f.Frame == nil {
		return errors.New("no frame header")
	}

	return nil
}
