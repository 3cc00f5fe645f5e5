//go:build !cgo || nolibraw

package libraw

import (
	"bytes"
	"encoding/binary"
	"errors"
	"log/slog"
	"math"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/ysh86/lsraw/internal/tifftest"
	"github.com/ysh86/lsraw/tiff"
)

// dngFile is a DNG with a small preview in IFD0 and the CFA image in a SubIFD.
func dngFile(maker, model string) *tifftest.Builder {
	b, _ := dngWithRaw(maker, model)
	return b
}

func dngWithRaw(maker, model string) (*tifftest.Builder, *tifftest.IFD) {
	b := tifftest.New(binary.LittleEndian)
	ifd0 := b.IFD().
		Long(tiff.NewSubfileType, 1).
		ASCII(tiff.Make, maker).
		ASCII(tiff.Model, model).
		ASCII(tiff.Software, "Adobe DNG Converter 15.0").
		Byte(tiff.DNGVersion, 1, 4, 0, 0).
		Short(tiff.ImageWidth, 16).
		Short(tiff.ImageLength, 12).
		Short(tiff.PhotometricInterpretation, 2).
		Strip(make([]byte, 16*12*3))
	raw := ifd0.Sub().
		Long(tiff.NewSubfileType, 0).
		Short(tiff.ImageWidth, 5634).
		Short(tiff.ImageLength, 3753).
		Short(tiff.PhotometricInterpretation, tiff.PhotometricCFA).
		Long(tiff.ActiveArea, 51, 158, 3753, 5634).
		Strip(make([]byte, 64))
	return b, raw
}

// cr2File mimics a CR2: four IFDs, the last one a lossless JPEG strip.
func cr2File() *tifftest.Builder {
	b := tifftest.New(binary.LittleEndian)
	b.IFD().
		ASCII(tiff.Make, "Canon").
		ASCII(tiff.Model, "Canon EOS 5D Mark II").
		Short(tiff.ImageWidth, 5616).
		Short(tiff.ImageLength, 3744).
		Short(tiff.Compression, tiff.CompressionOldJPEG).
		Strip([]byte{0xff, 0xd8, 0xff, 0xd9})
	b.IFD().Short(tiff.Compression, tiff.CompressionOldJPEG)
	b.IFD().Short(tiff.ImageWidth, 592).Short(tiff.ImageLength, 395).Short(tiff.Compression, tiff.CompressionNone)
	b.IFD().
		Short(tiff.Compression, tiff.CompressionOldJPEG).
		Strip(tifftest.LosslessJPEG(2816, 3804, 2))
	return b
}

func readMeta(t *testing.T, path string) *Metadata {
	t.Helper()
	m, err := ReadMetadata(path)
	if err != nil {
		t.Fatalf("ReadMetadata failed: %v", err)
	}
	return m
}

func TestReadDNG(t *testing.T) {
	m := readMeta(t, dngFile("Canon", "Canon EOS 5D Mark II").WriteFile(t, "sample.dng"))

	want := IParams{
		Make:       "Canon",
		Model:      "EOS 5D Mark II",
		Software:   "Adobe DNG Converter 15.0",
		MakerIndex: 8,
		RawCount:   1,
		IsFoveon:   0,
		DNGVersion: 0x01040000,
		Colors:     3,
		ColorDesc:  "RGBG",
	}
	if m.IData != want {
		t.Errorf("IData = %+v\nwant %+v", m.IData, want)
	}

	wantSizes := ImageSizes{
		RawHeight: 3753,
		RawWidth:  5634,
		Height:    3753 - 51,
		Width:     5634 - 158,
		IHeight:   3753 - 51,
		IWidth:    5634 - 158,
	}
	if m.Sizes != wantSizes {
		t.Errorf("Sizes = %+v\nwant %+v", m.Sizes, wantSizes)
	}
}

func TestReadCR2(t *testing.T) {
	m := readMeta(t, cr2File().WriteFile(t, "sample.cr2"))

	if m.IData.Make != "Canon" || m.IData.Model != "EOS 5D Mark II" {
		t.Errorf("make/model = %q/%q", m.IData.Make, m.IData.Model)
	}
	if m.IData.DNGVersion != 0 {
		t.Errorf("DNGVersion = %d, want 0", m.IData.DNGVersion)
	}
	if m.Sizes.RawWidth != 2816*2 || m.Sizes.RawHeight != 3804 {
		t.Errorf("raw size = %dx%d", m.Sizes.RawWidth, m.Sizes.RawHeight)
	}
	if m.Sizes.Width != m.Sizes.RawWidth || m.Sizes.Height != m.Sizes.RawHeight {
		t.Errorf("visible size = %dx%d", m.Sizes.Width, m.Sizes.Height)
	}
}

func TestNormalizeMake(t *testing.T) {
	tests := []struct {
		make, model string
		wantMake    string
		wantModel   string
		wantIndex   uint32
	}{
		{"NIKON CORPORATION", "NIKON D850", "Nikon", "D850", 43},
		{"SONY ", "ILCE-7RM3", "Sony", "ILCE-7RM3", 63},
		{"FUJIFILM", "X-T4", "Fujifilm", "X-T4", 18},
		{"OLYMPUS IMAGING CORP.  ", "E-M1", "Olympus", "E-M1", 45},
		{"Acme Optics", "Acme Optics R1", "Acme Optics", "R1", 0},
		{"Canon", "Canon", "Canon", "Canon", 8},
		{"KONICA MINOLTA", "DYNAX 7D", "Minolta", "DYNAX 7D", 40},
	}
	for _, tt := range tests {
		t.Run(tt.make, func(t *testing.T) {
			m := readMeta(t, dngFile(tt.make, tt.model).WriteFile(t, "sample.dng"))
			if m.IData.Make != tt.wantMake || m.IData.Model != tt.wantModel || m.IData.MakerIndex != tt.wantIndex {
				t.Errorf("got %q %q %d, want %q %q %d",
					m.IData.Make, m.IData.Model, m.IData.MakerIndex,
					tt.wantMake, tt.wantModel, tt.wantIndex)
			}
		})
	}
}

func TestOpenUnsupported(t *testing.T) {
	// A plain RGB TIFF has a make but no raw image.
	plain := tifftest.New(binary.BigEndian)
	plain.IFD().
		ASCII(tiff.Make, "Canon").
		Short(tiff.ImageWidth, 4).
		Short(tiff.ImageLength, 4).
		Short(tiff.PhotometricInterpretation, 2).
		Strip(make([]byte, 48))

	noMake := tifftest.New(binary.LittleEndian)
	noMake.IFD().
		Short(tiff.ImageWidth, 4).
		Short(tiff.ImageLength, 4).
		Short(tiff.PhotometricInterpretation, tiff.PhotometricCFA).
		Strip(make([]byte, 16))

	for name, b := range map[string]*tifftest.Builder{"plain": plain, "no make": noMake} {
		t.Run(name, func(t *testing.T) {
			_, err := ReadMetadata(b.WriteFile(t, "image.tif"))
			var lerr *Error
			if !errors.As(err, &lerr) || lerr.Op != OpOpen || lerr.Code != FileUnsupported {
				t.Errorf("error = %v, want open FileUnsupported", err)
			}
		})
	}
}

func TestUnpackTruncated(t *testing.T) {
	b, raw := dngWithRaw("Canon", "Canon EOS 5D Mark II")
	raw.StripCount(1 << 20)
	path := b.WriteFile(t, "truncated.dng")

	p, err := New()
	if err != nil {
		t.Fatal(err)
	}
	defer p.Close()

	// The container is intact, so the file is identified...
	if err := p.OpenFile(path); err != nil {
		t.Fatalf("OpenFile failed: %v", err)
	}
	// ...but its raw strip runs past the end of the file.
	err = p.Unpack()
	var lerr *Error
	if !errors.As(err, &lerr) || lerr.Op != OpUnpack || lerr.Code != DataError {
		t.Errorf("Unpack error = %v, want DataError", err)
	}
}

func TestRecycle(t *testing.T) {
	p, err := New()
	if err != nil {
		t.Fatal(err)
	}
	defer p.Close()

	dng := dngFile("Canon", "Canon EOS R5").WriteFile(t, "a.dng")
	cr2 := cr2File().WriteFile(t, "b.cr2")

	if err := p.OpenFile(dng); err != nil {
		t.Fatal(err)
	}
	if err := p.Unpack(); err != nil {
		t.Fatal(err)
	}
	p.Recycle()
	if p.IParams() != (IParams{}) || p.Sizes() != (ImageSizes{}) {
		t.Error("Recycle kept the records")
	}
	if err := p.Unpack(); err == nil {
		t.Error("Unpack after Recycle succeeded")
	}

	// Opening a second file on an open context recycles it first.
	if err := p.OpenFile(dng); err != nil {
		t.Fatal(err)
	}
	if err := p.OpenFile(cr2); err != nil {
		t.Fatal(err)
	}
	if got := p.IParams().DNGVersion; got != 0 {
		t.Errorf("DNGVersion after reopen = %d, want 0", got)
	}
	if !reflect.DeepEqual(*p.Params(), DefaultOutputParams()) {
		t.Error("Recycle lost the parameters")
	}
}

func TestDefaultOutputParams(t *testing.T) {
	p := DefaultOutputParams()
	if p.Greybox != [4]uint32{0, 0, math.MaxUint32, math.MaxUint32} {
		t.Errorf("Greybox = %v", p.Greybox)
	}
	if p.Cropbox != p.Greybox {
		t.Errorf("Cropbox = %v", p.Cropbox)
	}
	if p.Aber != [4]float64{1, 1, 1, 1} {
		t.Errorf("Aber = %v", p.Aber)
	}
	if p.UserCBlack != [4]int{-1000001, -1000001, -1000001, -1000001} {
		t.Errorf("UserCBlack = %v", p.UserCBlack)
	}
	if p.AutoBrightThr != 0.01 || p.AdjustMaximumThr != 0.75 {
		t.Errorf("thresholds = %v %v", p.AutoBrightThr, p.AdjustMaximumThr)
	}
	if p.UseFujiRotate != 1 || p.DCBIterations != -1 || p.ExpShift != 1 {
		t.Errorf("misc = %d %d %v", p.UseFujiRotate, p.DCBIterations, p.ExpShift)
	}
}

func TestHalfSizeShrink(t *testing.T) {
	r := &rawImage{width: 101, height: 51}
	setActiveArea(r, nil)

	full := r.sizes(0)
	if full.IWidth != 101 || full.IHeight != 51 {
		t.Errorf("full = %+v", full)
	}
	half := r.sizes(1)
	if half.IWidth != 51 || half.IHeight != 26 || half.Width != 101 {
		t.Errorf("half = %+v", half)
	}
}

func TestHalfSizeOption(t *testing.T) {
	path := dngFile("Canon", "Canon EOS 5D Mark II").WriteFile(t, "sample.dng")

	full := readMeta(t, path)
	m, err := ReadMetadata(path, WithHalfSize())
	if err != nil {
		t.Fatalf("ReadMetadata failed: %v", err)
	}
	if m.Sizes.Width != full.Sizes.Width || m.Sizes.Height != full.Sizes.Height {
		t.Errorf("visible size changed: %dx%d", m.Sizes.Width, m.Sizes.Height)
	}
	if m.Sizes.IWidth != (5476+1)/2 || m.Sizes.IHeight != (3702+1)/2 {
		t.Errorf("output size = %dx%d", m.Sizes.IWidth, m.Sizes.IHeight)
	}
}

func TestShootingInfo(t *testing.T) {
	const shot = "2024:05:01 12:30:45"

	b := tifftest.New(binary.LittleEndian)
	ifd0 := b.IFD().
		ASCII(tiff.Make, "Canon").
		ASCII(tiff.Model, "Canon EOS 5D Mark II")
	ifd0.Sub().
		Short(tiff.ImageWidth, 64).
		Short(tiff.ImageLength, 48).
		Short(tiff.PhotometricInterpretation, tiff.PhotometricCFA).
		Strip(make([]byte, 32))
	ifd0.Exif().
		Rational(0x829a, 1, 250). // ExposureTime
		Rational(0x829d, 56, 10). // FNumber
		Short(0x8827, 400).       // ISOSpeedRatings
		ASCII(0x9003, shot).      // DateTimeOriginal
		Rational(0x920a, 50, 1)   // FocalLength

	m := readMeta(t, b.WriteFile(t, "exif.dng"))

	want, err := time.ParseInLocation("2006:01:02 15:04:05", shot, time.Local)
	if err != nil {
		t.Fatal(err)
	}
	o := m.Other
	if o.ISOSpeed != 400 || o.Shutter != float32(1)/250 || o.Aperture != float32(56)/10 || o.FocalLen != 50 {
		t.Errorf("Other = %+v", o)
	}
	if o.Timestamp != want.Unix() {
		t.Errorf("Timestamp = %d, want %d", o.Timestamp, want.Unix())
	}
}

func TestShootingInfoBrokenExif(t *testing.T) {
	b := tifftest.New(binary.LittleEndian)
	b.IFD().
		ASCII(tiff.Make, "Canon").
		Long(tiff.ExifIFD, 0xfff0).
		Sub().
		Short(tiff.ImageWidth, 64).
		Short(tiff.ImageLength, 48).
		Short(tiff.PhotometricInterpretation, tiff.PhotometricCFA).
		Strip(make([]byte, 32))

	m := readMeta(t, b.WriteFile(t, "broken.dng"))
	if m.Other != (ImgOther{}) {
		t.Errorf("Other = %+v, want zero", m.Other)
	}
	if m.Sizes.RawWidth != 64 {
		t.Errorf("RawWidth = %d", m.Sizes.RawWidth)
	}
}

func TestDebugDump(t *testing.T) {
	var buf bytes.Buffer
	old := slog.Default()
	slog.SetDefault(slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})))
	defer slog.SetDefault(old)

	readMeta(t, cr2File().WriteFile(t, "sample.cr2"))

	out := buf.String()
	for _, want := range []string{
		"========= IFD: 3",
		"DHT: ",
		"SOF3: 2816x3804, 14 bits, 2 components",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("debug log lacks %q", want)
		}
	}
}
