//go:build !cgo || nolibraw

package libraw

import (
	"io"
	"log/slog"
	"os"

	"github.com/rwcarlsen/goexif/exif"

	"github.com/ysh86/lsraw/tiff"
)

// Processor is a processing context backed by the TIFF container reader.
// It is not safe for concurrent use.
type Processor struct {
	params OutputParams
	state  state
	path   string

	file  *os.File
	size  int64
	raw   *rawImage
	idata IParams
	sizes ImageSizes
	other ImgOther
}

// New creates a context with LibRaw's default parameters.
func New() (*Processor, error) {
	return &Processor{params: DefaultOutputParams()}, nil
}

// Params returns a copy of the context's output parameters.
func (p *Processor) Params() *OutputParams {
	params := p.params
	return &params
}

// SetParams replaces the output parameters. They apply from the next
// OpenFile.
func (p *Processor) SetParams(params OutputParams) {
	p.params = params
}

// OpenFile opens path and identifies it. An open context is recycled first.
func (p *Processor) OpenFile(path string) error {
	if p.state != unopened {
		p.Recycle()
	}

	stat, err := os.Stat(path)
	if err != nil || stat.IsDir() {
		slog.Debug("libraw: stat failed", "path", path, "err", err)
		return &Error{Op: OpOpen, Path: path, Code: IOError}
	}
	file, err := os.Open(path)
	if err != nil {
		slog.Debug("libraw: open failed", "path", path, "err", err)
		return &Error{Op: OpOpen, Path: path, Code: IOError}
	}

	sr := io.NewSectionReader(file, 0, stat.Size())
	tf, err := tiff.NewFile(sr, 0)
	if err == nil {
		err = tf.Parse()
	}
	if err != nil {
		file.Close()
		slog.Debug("libraw: not a TIFF container", "path", path, "err", err)
		return &Error{Op: OpOpen, Path: path, Code: FileUnsupported}
	}
	slog.Debug("libraw: container", "path", path, "tiff", tf)

	idata, err := identify(tf)
	if err != nil {
		file.Close()
		slog.Debug("libraw: identify failed", "path", path, "err", err)
		return &Error{Op: OpOpen, Path: path, Code: FileUnsupported}
	}
	raw := selectRaw(tf)
	if raw == nil {
		file.Close()
		slog.Debug("libraw: no raw image", "path", path)
		return &Error{Op: OpOpen, Path: path, Code: FileUnsupported}
	}
	idata.Colors = raw.colors
	idata.ColorDesc = "RGBG"

	var shrink uint
	if p.params.HalfSize != 0 {
		shrink = 1
	}

	p.file = file
	p.size = stat.Size()
	p.raw = raw
	p.idata = idata
	p.sizes = raw.sizes(shrink)
	p.other = readOther(io.NewSectionReader(file, 0, stat.Size()))
	p.path = path
	p.state = opened

	slog.Debug("libraw: opened", "path", path,
		"make", idata.Make, "model", idata.Model,
		"raw_width", raw.width, "raw_height", raw.height)
	return nil
}

// Unpack checks that the raw data of the opened file lies inside the file.
// Sensor data is not decoded.
func (p *Processor) Unpack() error {
	if p.state == unopened {
		return &Error{Op: OpUnpack, Code: OutOfOrderCall}
	}

	if len(p.raw.extents) == 0 {
		return &Error{Op: OpUnpack, Path: p.path, Code: DataError}
	}
	for _, e := range p.raw.extents {
		if e.offset <= 0 || e.length <= 0 || e.offset+e.length > p.size {
			slog.Debug("libraw: raw data outside file", "path", p.path,
				"offset", e.offset, "length", e.length, "size", p.size)
			return &Error{Op: OpUnpack, Path: p.path, Code: DataError}
		}
	}

	p.state = unpacked
	slog.Debug("libraw: unpacked", "path", p.path)
	return nil
}

// IParams returns the identification record.
func (p *Processor) IParams() IParams {
	return p.idata
}

// Sizes returns the geometry record.
func (p *Processor) Sizes() ImageSizes {
	return p.sizes
}

// Other returns the shooting information record.
func (p *Processor) Other() ImgOther {
	return p.other
}

// Recycle closes the opened file and clears the records. Parameters are kept.
func (p *Processor) Recycle() {
	if p.file != nil {
		p.file.Close()
	}
	params := p.params
	*p = Processor{params: params}
	slog.Debug("libraw: recycled")
}

// Close releases the context.
func (p *Processor) Close() error {
	p.Recycle()
	return nil
}

// readOther reads the shooting information from the EXIF IFD. Missing or
// malformed fields stay zero.
func readOther(r io.Reader) ImgOther {
	var o ImgOther

	x, err := exif.Decode(r)
	if err != nil {
		slog.Debug("libraw: no EXIF", "err", err)
		return o
	}

	if tag, err := x.Get(exif.ISOSpeedRatings); err == nil {
		if v, err := tag.Int(0); err == nil {
			o.ISOSpeed = float32(v)
		}
	}
	o.Shutter = ratio(x, exif.ExposureTime)
	o.Aperture = ratio(x, exif.FNumber)
	o.FocalLen = ratio(x, exif.FocalLength)
	if t, err := x.DateTime(); err == nil {
		o.Timestamp = t.Unix()
	}

	return o
}

func ratio(x *exif.Exif, name exif.FieldName) float32 {
	tag, err := x.Get(name)
	if err != nil {
		return 0
	}
	num, den, err := tag.Rat2(0)
	if err != nil || den == 0 {
		return 0
	}
	return float32(num) / float32(den)
}
