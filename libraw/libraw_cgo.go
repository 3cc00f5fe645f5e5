//go:build cgo && !nolibraw

package libraw

// #cgo LDFLAGS: -lraw
// #cgo darwin CFLAGS: -I/opt/homebrew/include
// #cgo darwin LDFLAGS: -L/opt/homebrew/lib
// #include <stdlib.h>
// #include "libraw/libraw.h"
import "C"

import (
	"log/slog"
	"unsafe"
)

// Processor is one LibRaw context. It is not safe for concurrent use.
type Processor struct {
	data  *C.libraw_data_t
	state state
	path  string

	// strings handed to params; LibRaw does not own them
	cstrings []*C.char
}

// New creates a context with LibRaw's default parameters.
func New() (*Processor, error) {
	data := C.libraw_init(0)
	if data == nil {
		return nil, &Error{Op: OpInit, Code: InsufficientMemory}
	}
	return &Processor{data: data}, nil
}

// Strerror returns LibRaw's message for a status code.
func Strerror(code Code) string {
	return C.GoString(C.libraw_strerror(C.int(code)))
}

func check(op, path string, ret C.int) error {
	if ret == 0 {
		return nil
	}
	return &Error{Op: op, Path: path, Code: Code(ret)}
}

func goString(b []C.char) string {
	n := 0
	for n < len(b) && b[n] != 0 {
		n++
	}
	if n == 0 {
		return ""
	}
	return C.GoStringN(&b[0], C.int(n))
}

func optString(s *C.char) *string {
	if s == nil {
		return nil
	}
	v := C.GoString(s)
	return &v
}

// Params returns a copy of the context's output parameters.
func (p *Processor) Params() *OutputParams {
	c := &p.data.params

	out := &OutputParams{
		Bright:    float32(c.bright),
		Threshold: float32(c.threshold),

		HalfSize:        int(c.half_size),
		FourColorRGB:    int(c.four_color_rgb),
		Highlight:       int(c.highlight),
		UseAutoWB:       int(c.use_auto_wb),
		UseCameraWB:     int(c.use_camera_wb),
		UseCameraMatrix: int(c.use_camera_matrix),

		OutputColor:   int(c.output_color),
		OutputProfile: optString(c.output_profile),
		CameraProfile: optString(c.camera_profile),
		BadPixels:     optString(c.bad_pixels),
		DarkFrame:     optString(c.dark_frame),

		OutputBPS:   int(c.output_bps),
		OutputTIFF:  int(c.output_tiff),
		OutputFlags: int(c.output_flags),

		UserFlip:  int(c.user_flip),
		UserQual:  int(c.user_qual),
		UserBlack: int(c.user_black),
		UserSat:   int(c.user_sat),

		MedPasses:        int(c.med_passes),
		AutoBrightThr:    float32(c.auto_bright_thr),
		AdjustMaximumThr: float32(c.adjust_maximum_thr),

		NoAutoBright:  int(c.no_auto_bright),
		UseFujiRotate: int(c.use_fuji_rotate),
		GreenMatching: int(c.green_matching),

		DCBIterations: int(c.dcb_iterations),
		DCBEnhanceFL:  int(c.dcb_enhance_fl),
		FBDDNoiseRd:   int(c.fbdd_noiserd),

		ExpCorrect: int(c.exp_correc),
		ExpShift:   float32(c.exp_shift),
		ExpPreser:  float32(c.exp_preser),

		NoAutoScale:     int(c.no_auto_scale),
		NoInterpolation: int(c.no_interpolation),
	}
	for i := 0; i < 4; i++ {
		out.Greybox[i] = uint32(c.greybox[i])
		out.Cropbox[i] = uint32(c.cropbox[i])
		out.Aber[i] = float64(c.aber[i])
		out.UserMul[i] = float32(c.user_mul[i])
		out.UserCBlack[i] = int(c.user_cblack[i])
	}
	for i := 0; i < 6; i++ {
		out.Gamm[i] = float64(c.gamm[i])
	}

	return out
}

// SetParams copies params into the context. They apply from the next
// OpenFile.
func (p *Processor) SetParams(params OutputParams) {
	c := &p.data.params

	for i := 0; i < 4; i++ {
		c.greybox[i] = C.uint(params.Greybox[i])
		c.cropbox[i] = C.uint(params.Cropbox[i])
		c.aber[i] = C.double(params.Aber[i])
		c.user_mul[i] = C.float(params.UserMul[i])
		c.user_cblack[i] = C.int(params.UserCBlack[i])
	}
	for i := 0; i < 6; i++ {
		c.gamm[i] = C.double(params.Gamm[i])
	}
	c.bright = C.float(params.Bright)
	c.threshold = C.float(params.Threshold)

	c.half_size = C.int(params.HalfSize)
	c.four_color_rgb = C.int(params.FourColorRGB)
	c.highlight = C.int(params.Highlight)
	c.use_auto_wb = C.int(params.UseAutoWB)
	c.use_camera_wb = C.int(params.UseCameraWB)
	c.use_camera_matrix = C.int(params.UseCameraMatrix)

	c.output_color = C.int(params.OutputColor)
	old := p.cstrings
	p.cstrings = nil
	c.output_profile = p.cString(params.OutputProfile)
	c.camera_profile = p.cString(params.CameraProfile)
	c.bad_pixels = p.cString(params.BadPixels)
	c.dark_frame = p.cString(params.DarkFrame)
	freeStrings(old)

	c.output_bps = C.int(params.OutputBPS)
	c.output_tiff = C.int(params.OutputTIFF)
	c.output_flags = C.int(params.OutputFlags)

	c.user_flip = C.int(params.UserFlip)
	c.user_qual = C.int(params.UserQual)
	c.user_black = C.int(params.UserBlack)
	c.user_sat = C.int(params.UserSat)

	c.med_passes = C.int(params.MedPasses)
	c.auto_bright_thr = C.float(params.AutoBrightThr)
	c.adjust_maximum_thr = C.float(params.AdjustMaximumThr)

	c.no_auto_bright = C.int(params.NoAutoBright)
	c.use_fuji_rotate = C.int(params.UseFujiRotate)
	c.green_matching = C.int(params.GreenMatching)

	c.dcb_iterations = C.int(params.DCBIterations)
	c.dcb_enhance_fl = C.int(params.DCBEnhanceFL)
	c.fbdd_noiserd = C.int(params.FBDDNoiseRd)

	c.exp_correc = C.int(params.ExpCorrect)
	c.exp_shift = C.float(params.ExpShift)
	c.exp_preser = C.float(params.ExpPreser)

	c.no_auto_scale = C.int(params.NoAutoScale)
	c.no_interpolation = C.int(params.NoInterpolation)
}

func (p *Processor) cString(s *string) *C.char {
	if s == nil {
		return nil
	}
	cs := C.CString(*s)
	p.cstrings = append(p.cstrings, cs)
	return cs
}

func freeStrings(ss []*C.char) {
	for _, s := range ss {
		C.free(unsafe.Pointer(s))
	}
}

// OpenFile opens path and identifies it.
func (p *Processor) OpenFile(path string) error {
	cPath := C.CString(path)
	defer C.free(unsafe.Pointer(cPath))

	if err := check(OpOpen, path, C.libraw_open_file(p.data, cPath)); err != nil {
		slog.Debug("libraw: open failed", "path", path, "err", err)
		return err
	}
	p.state = opened
	p.path = path
	slog.Debug("libraw: opened", "path", path)
	return nil
}

// Unpack decodes the raw data of the opened file.
func (p *Processor) Unpack() error {
	if err := check(OpUnpack, p.path, C.libraw_unpack(p.data)); err != nil {
		slog.Debug("libraw: unpack failed", "path", p.path, "err", err)
		return err
	}
	p.state = unpacked
	slog.Debug("libraw: unpacked", "path", p.path)
	return nil
}

// IParams returns the identification record.
func (p *Processor) IParams() IParams {
	id := &p.data.idata
	return IParams{
		Make:       goString(id.make[:]),
		Model:      goString(id.model[:]),
		Software:   goString(id.software[:]),
		MakerIndex: uint32(id.maker_index),
		RawCount:   uint32(id.raw_count),
		IsFoveon:   uint32(id.is_foveon),
		DNGVersion: uint32(id.dng_version),
		Colors:     int32(id.colors),
		ColorDesc:  goString(id.cdesc[:]),
	}
}

// Sizes returns the geometry record.
func (p *Processor) Sizes() ImageSizes {
	s := &p.data.sizes
	return ImageSizes{
		RawHeight: uint16(s.raw_height),
		RawWidth:  uint16(s.raw_width),
		Height:    uint16(s.height),
		Width:     uint16(s.width),
		IHeight:   uint16(s.iheight),
		IWidth:    uint16(s.iwidth),
	}
}

// Other returns the shooting information record.
func (p *Processor) Other() ImgOther {
	o := C.libraw_get_imgother(p.data)
	return ImgOther{
		ISOSpeed:  float32(o.iso_speed),
		Shutter:   float32(o.shutter),
		Aperture:  float32(o.aperture),
		FocalLen:  float32(o.focal_len),
		Timestamp: int64(o.timestamp),
	}
}

// Recycle frees the buffers of the opened file. The context stays usable.
func (p *Processor) Recycle() {
	if p.data == nil {
		return
	}
	C.libraw_recycle(p.data)
	p.state = unopened
	p.path = ""
	slog.Debug("libraw: recycled")
}

// Close releases the context.
func (p *Processor) Close() error {
	if p.data == nil {
		return nil
	}
	C.libraw_close(p.data)
	p.data = nil
	freeStrings(p.cstrings)
	p.cstrings = nil
	p.state = unopened
	return nil
}
