package tiff

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"log/slog"
)

// maxIFDs bounds the number of IFDs followed through next pointers and SubIFDs.
const maxIFDs = 64

// File is a TIFF container: the main IFD chain plus every IFD reached
// through SubIFDs.
type File struct {
	// Header
	byteOrder  binary.ByteOrder
	offsetNext int64

	IFDs    [][]*IFDEntry
	SubIFDs [][]*IFDEntry

	reader       *io.SectionReader
	globalOffset int64
	visited      map[int64]bool
}

// NewFile creates a TIFF file reading from sr. globalOffset is the position of
// sr inside the enclosing file and is only used for dumps.
func NewFile(sr *io.SectionReader, globalOffset int64) (*File, error) {
	f := &File{reader: sr, globalOffset: globalOffset}
	return f, nil
}

// Parse parses the header, the IFD chain and the SubIFDs.
func (f *File) Parse() error {
	err := f.parseFileHeader()
	if err != nil {
		return err
	}
	err = f.parseIFDs()
	if err != nil {
		return err
	}
	err = f.parseSubIFDs()
	if err != nil {
		return err
	}

	return nil
}

// ByteOrder returns the byte order declared by the header.
func (f *File) ByteOrder() binary.ByteOrder {
	return f.byteOrder
}

// Size returns the size of the underlying reader.
func (f *File) Size() int64 {
	return f.reader.Size()
}

// All returns the main chain followed by the SubIFDs.
func (f *File) All() [][]*IFDEntry {
	all := make([][]*IFDEntry, 0, len(f.IFDs)+len(f.SubIFDs))
	all = append(all, f.IFDs...)
	all = append(all, f.SubIFDs...)
	return all
}

// ReadAt reads len(p) bytes at off of the underlying reader.
func (f *File) ReadAt(p []byte, off int64) (int, error) {
	return f.reader.ReadAt(p, off)
}

func (f *File) String() string {
	var buf bytes.Buffer
	buf.WriteString(fmt.Sprintf("  byte order: %s\n", f.byteOrder))
	for i, entries := range f.IFDs {
		buf.WriteString(fmt.Sprintf("    ========= IFD: %d\n", i))
		for _, entry := range entries {
			buf.WriteString(entry.String())
			buf.WriteString("    ----\n")
		}
	}
	for i, entries := range f.SubIFDs {
		buf.WriteString(fmt.Sprintf("    ========= SubIFD: %d\n", i))
		for _, entry := range entries {
			buf.WriteString(entry.String())
			buf.WriteString("    ----\n")
		}
	}
	return buf.String()
}

func (f *File) parseFileHeader() error {
	var endian uint16
	if err := binary.Read(f.reader, binary.BigEndian, &endian); err != nil {
		return err
	}
	var byteOrder binary.ByteOrder
	if endian == 0x4949 {
		byteOrder = binary.LittleEndian
	} else if endian == 0x4d4d {
		byteOrder = binary.BigEndian
	} else {
		return errors.New("invalid byte order")
	}

	// version
	var value42 uint16
	if err := binary.Read(f.reader, byteOrder, &value42); err != nil {
		return err
	}
	if value42 != 0x002a {
		return errors.New("invalid 42")
	}

	var offsetNext uint32
	if err := binary.Read(f.reader, byteOrder, &offsetNext); err != nil {
		return err
	}

	f.byteOrder = byteOrder
	f.offsetNext = int64(offsetNext)
	if f.offsetNext < 8 || f.offsetNext >= f.reader.Size() {
		return errors.New("invalid offset of 0th IFD")
	}
	f.IFDs = [][]*IFDEntry{}
	f.SubIFDs = [][]*IFDEntry{}
	f.visited = map[int64]bool{}

	return nil
}

func (f *File) parseIFDs() error {
	offset := f.offsetNext
	for {
		entries, offsetNext, err := f.parseIFDAt(offset)
		if err != nil {
			if len(f.IFDs) == 0 {
				return fmt.Errorf("IFD0: %w", err)
			}
			// keep the IFDs read so far
			slog.Debug("tiff: chain ends early", "ifd", len(f.IFDs), "err", err)
			break
		}
		if len(entries) == 0 {
			break
		}
		f.IFDs = append(f.IFDs, entries)

		if offsetNext == 0 {
			// 0 means the end of IFDs.
			break
		}
		offset = offsetNext
	}

	return nil
}

// parseSubIFDs skips SubIFDs that cannot be read.
func (f *File) parseSubIFDs() error {
	// SubIFDs may nest; the queue grows while it is walked.
	queue := append([][]*IFDEntry{}, f.IFDs...)
	for len(queue) > 0 {
		entries := queue[0]
		queue = queue[1:]

		e := Find(entries, SubIFDs)
		if e == nil {
			continue
		}
		for i := range e.Values {
			offset, ok := e.Uint(i)
			if !ok {
				continue
			}
			sub, _, err := f.parseIFDAt(int64(offset))
			if err != nil {
				slog.Debug("tiff: skip SubIFD", "offset", offset, "err", err)
				continue
			}
			if len(sub) == 0 {
				continue
			}
			f.SubIFDs = append(f.SubIFDs, sub)
			queue = append(queue, sub)
		}
	}

	return nil
}

func (f *File) parseIFDAt(offset int64) ([]*IFDEntry, int64, error) {
	if offset < 8 || offset >= f.reader.Size() {
		return nil, 0, errors.New("invalid offset of IFD")
	}
	if f.visited[offset] {
		return nil, 0, fmt.Errorf("IFD loop at 0x%08x", offset)
	}
	if len(f.visited) >= maxIFDs {
		return nil, 0, errors.New("too many IFDs")
	}
	f.visited[offset] = true

	if _, err := f.reader.Seek(offset, io.SeekStart); err != nil {
		return nil, 0, err
	}
	return parseIFD(f.reader, f.byteOrder, f.globalOffset)
}
