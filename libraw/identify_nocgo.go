//go:build !cgo || nolibraw

package libraw

import (
	"errors"
	"io"
	"log/slog"
	"strings"

	"github.com/ysh86/lsraw/jpeg"
	"github.com/ysh86/lsraw/tiff"
)

// corp is a maker name as LibRaw spells it, with its
// LibRaw_cameramaker_index value.
type corp struct {
	name  string
	index uint32
}

// corps is searched in order; Minolta comes before Konica so that
// "KONICA MINOLTA" resolves to Minolta.
var corps = []corp{
	{"AgfaPhoto", 1},
	{"Apple", 3},
	{"Canon", 8},
	{"Casio", 9},
	{"DJI", 14},
	{"Epson", 16},
	{"Fujifilm", 18},
	{"Google", 22},
	{"GoPro", 23},
	{"Hasselblad", 24},
	{"Kodak", 29},
	{"Minolta", 40},
	{"Konica", 30},
	{"Leaf", 31},
	{"Leica", 32},
	{"Mamiya", 36},
	{"Nikon", 43},
	{"Olympus", 45},
	{"Panasonic", 47},
	{"Pentax", 49},
	{"Phase One", 50},
	{"Ricoh", 56},
	{"Samsung", 59},
	{"Sigma", 60},
	{"Sinar", 61},
	{"Sony", 63},
}

// normalizeMake maps a manufacturer string to LibRaw's spelling and maker
// index. Unknown makers keep their trimmed name and index 0.
func normalizeMake(s string) (string, uint32) {
	s = strings.TrimSpace(s)
	lower := strings.ToLower(s)
	for _, c := range corps {
		if strings.Contains(lower, strings.ToLower(c.name)) {
			return c.name, c.index
		}
	}
	return s, 0
}

// trimModel drops a leading maker name followed by a space.
func trimModel(model, maker string) string {
	model = strings.TrimSpace(model)
	n := len(maker)
	if n > 0 && len(model) > n && strings.EqualFold(model[:n], maker) && model[n] == ' ' {
		model = strings.TrimSpace(model[n+1:])
	}
	return model
}

// extent is a byte range of the file.
type extent struct {
	offset int64
	length int64
}

// rawImage is the IFD holding the sensor data.
type rawImage struct {
	width  uint16
	height uint16

	// visible area, from ActiveArea when present
	top, left, bottom, right uint16

	colors  int32
	extents []extent
}

func identify(f *tiff.File) (IParams, error) {
	var id IParams
	if len(f.IFDs) == 0 {
		return id, errors.New("no IFD")
	}
	ifd0 := f.IFDs[0]

	maker, index := normalizeMake(tiff.Find(ifd0, tiff.Make).Text())
	if maker == "" {
		return id, errors.New("no make")
	}
	id.Make = maker
	id.MakerIndex = index
	id.Model = trimModel(tiff.Find(ifd0, tiff.Model).Text(), maker)
	id.Software = strings.TrimSpace(tiff.Find(ifd0, tiff.Software).Text())
	id.RawCount = 1

	if e := tiff.Find(ifd0, tiff.DNGVersion); e != nil {
		for i := 0; i < 4; i++ {
			b, _ := e.Uint(i)
			id.DNGVersion = id.DNGVersion<<8 | b&0xff
		}
	}

	return id, nil
}

func uintOf(entries []*tiff.IFDEntry, tag uint16) uint32 {
	v, _ := tiff.Find(entries, tag).Uint(0)
	return v
}

func extentsOf(entries []*tiff.IFDEntry, offsetsTag, countsTag uint16) []extent {
	offsets := tiff.Find(entries, offsetsTag)
	counts := tiff.Find(entries, countsTag)
	if offsets == nil || counts == nil {
		return nil
	}
	var out []extent
	for i := range offsets.Values {
		off, ok1 := offsets.Uint(i)
		n, ok2 := counts.Uint(i)
		if !ok1 || !ok2 {
			break
		}
		out = append(out, extent{int64(off), int64(n)})
	}
	return out
}

// selectRaw picks the IFD holding the sensor data: the largest CFA or
// LinearRaw image, or else a lossless JPEG strip as in CR2.
func selectRaw(f *tiff.File) *rawImage {
	var best *rawImage
	for _, entries := range f.All() {
		photometric := uintOf(entries, tiff.PhotometricInterpretation)
		if photometric != tiff.PhotometricCFA && photometric != tiff.PhotometricLinearRaw {
			continue
		}
		w, h := uintOf(entries, tiff.ImageWidth), uintOf(entries, tiff.ImageLength)
		if w == 0 || h == 0 || w > 0xffff || h > 0xffff {
			continue
		}
		if best != nil && int(w)*int(h) <= int(best.width)*int(best.height) {
			continue
		}

		r := &rawImage{width: uint16(w), height: uint16(h), colors: 3}
		if photometric == tiff.PhotometricLinearRaw {
			if spp := uintOf(entries, tiff.SamplesPerPixel); spp >= 3 && spp <= 4 {
				r.colors = int32(spp)
			}
		}
		r.extents = extentsOf(entries, tiff.StripOffsets, tiff.StripByteCounts)
		if r.extents == nil {
			r.extents = extentsOf(entries, tiff.TileOffsets, tiff.TileByteCounts)
		}
		setActiveArea(r, entries)
		best = r
	}
	if best != nil {
		return best
	}

	// CR2: the last IFD of the main chain carries the raw data as a lossless
	// JPEG strip without ImageWidth/ImageLength.
	for i := len(f.IFDs) - 1; i >= 0; i-- {
		entries := f.IFDs[i]
		if uintOf(entries, tiff.Compression) != tiff.CompressionOldJPEG {
			continue
		}
		extents := extentsOf(entries, tiff.StripOffsets, tiff.StripByteCounts)
		if len(extents) == 0 {
			continue
		}
		frame := losslessFrame(f, extents[0])
		if frame == nil {
			continue
		}
		w := int(frame.Width) * int(frame.Components)
		if w > 0xffff || frame.Height == 0 || w == 0 {
			continue
		}
		r := &rawImage{
			width:   uint16(w),
			height:  frame.Height,
			colors:  3,
			extents: extents,
		}
		r.bottom, r.right = r.height, r.width
		return r
	}

	return nil
}

func losslessFrame(f *tiff.File, e extent) *jpeg.FrameHeader {
	if e.offset < 0 || e.length <= 0 || e.offset+e.length > f.Size() {
		return nil
	}
	jf, err := jpeg.NewFile(io.NewSectionReader(f, e.offset, e.length))
	if err != nil {
		return nil
	}
	if err := jf.Parse(); err != nil {
		return nil
	}
	for _, seg := range jf.Segments {
		slog.Debug("libraw: raw strip", "segment", seg)
	}
	if !jf.Frame.Lossless() {
		return nil
	}
	slog.Debug("libraw: raw frame", "frame", jf.Frame)
	return jf.Frame
}

func setActiveArea(r *rawImage, entries []*tiff.IFDEntry) {
	r.top, r.left, r.bottom, r.right = 0, 0, r.height, r.width

	e := tiff.Find(entries, tiff.ActiveArea)
	if e == nil {
		return
	}
	var v [4]uint32
	for i := range v {
		x, ok := e.Uint(i)
		if !ok {
			return
		}
		v[i] = x
	}
	top, left, bottom, right := v[0], v[1], v[2], v[3]
	if top >= bottom || left >= right || bottom > uint32(r.height) || right > uint32(r.width) {
		return
	}
	r.top, r.left, r.bottom, r.right = uint16(top), uint16(left), uint16(bottom), uint16(right)
}

// sizes fills the geometry record. shrink halves the output size as
// LibRaw does for half_size decoding.
func (r *rawImage) sizes(shrink uint) ImageSizes {
	height := r.bottom - r.top
	width := r.right - r.left
	return ImageSizes{
		RawHeight: r.height,
		RawWidth:  r.width,
		Height:    height,
		Width:     width,
		IHeight:   uint16((uint(height) + shrink) >> shrink),
		IWidth:    uint16((uint(width) + shrink) >> shrink),
	}
}
