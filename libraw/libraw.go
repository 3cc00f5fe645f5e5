// Package libraw exposes the LibRaw processing context: its output
// parameters, and the identification and geometry records filled in when a
// raw file is opened and unpacked.
//
// With cgo the context is LibRaw itself. Without cgo, or with the nolibraw
// build tag, a pure Go implementation identifies TIFF based raw containers
// (CR2, NEF, ARW, PEF, DNG, ...) and fills the same records following
// LibRaw's conventions.
package libraw

import "fmt"

// Steps of the context lifecycle, as reported in Error.Op.
const (
	OpInit   = "init"
	OpOpen   = "open"
	OpUnpack = "unpack"
)

type state int

const (
	unopened state = iota
	opened
	unpacked
)

// OutputParams mirrors libraw_output_params_t. Flags keep LibRaw's int
// encoding; absent strings are nil.
type OutputParams struct {
	Greybox   [4]uint32  `json:"greybox" yaml:"greybox"`
	Cropbox   [4]uint32  `json:"cropbox" yaml:"cropbox"`
	Aber      [4]float64 `json:"aber" yaml:"aber"`
	Gamm      [6]float64 `json:"gamm" yaml:"gamm"`
	UserMul   [4]float32 `json:"user_mul" yaml:"user_mul"`
	Bright    float32    `json:"bright" yaml:"bright"`
	Threshold float32    `json:"threshold" yaml:"threshold"`

	HalfSize        int `json:"half_size" yaml:"half_size"`
	FourColorRGB    int `json:"four_color_rgb" yaml:"four_color_rgb"`
	Highlight       int `json:"highlight" yaml:"highlight"`
	UseAutoWB       int `json:"use_auto_wb" yaml:"use_auto_wb"`
	UseCameraWB     int `json:"use_camera_wb" yaml:"use_camera_wb"`
	UseCameraMatrix int `json:"use_camera_matrix" yaml:"use_camera_matrix"`

	OutputColor   int     `json:"output_color" yaml:"output_color"`
	OutputProfile *string `json:"output_profile" yaml:"output_profile"`
	CameraProfile *string `json:"camera_profile" yaml:"camera_profile"`
	BadPixels     *string `json:"bad_pixels" yaml:"bad_pixels"`
	DarkFrame     *string `json:"dark_frame" yaml:"dark_frame"`

	OutputBPS   int `json:"output_bps" yaml:"output_bps"`
	OutputTIFF  int `json:"output_tiff" yaml:"output_tiff"`
	OutputFlags int `json:"output_flags" yaml:"output_flags"`

	UserFlip   int    `json:"user_flip" yaml:"user_flip"`
	UserQual   int    `json:"user_qual" yaml:"user_qual"`
	UserBlack  int    `json:"user_black" yaml:"user_black"`
	UserCBlack [4]int `json:"user_cblack" yaml:"user_cblack"`
	UserSat    int    `json:"user_sat" yaml:"user_sat"`

	MedPasses        int     `json:"med_passes" yaml:"med_passes"`
	AutoBrightThr    float32 `json:"auto_bright_thr" yaml:"auto_bright_thr"`
	AdjustMaximumThr float32 `json:"adjust_maximum_thr" yaml:"adjust_maximum_thr"`

	NoAutoBright  int `json:"no_auto_bright" yaml:"no_auto_bright"`
	UseFujiRotate int `json:"use_fuji_rotate" yaml:"use_fuji_rotate"`
	GreenMatching int `json:"green_matching" yaml:"green_matching"`

	DCBIterations int `json:"dcb_iterations" yaml:"dcb_iterations"`
	DCBEnhanceFL  int `json:"dcb_enhance_fl" yaml:"dcb_enhance_fl"`
	FBDDNoiseRd   int `json:"fbdd_noiserd" yaml:"fbdd_noiserd"`

	ExpCorrect int     `json:"exp_correc" yaml:"exp_correc"`
	ExpShift   float32 `json:"exp_shift" yaml:"exp_shift"`
	ExpPreser  float32 `json:"exp_preser" yaml:"exp_preser"`

	NoAutoScale     int `json:"no_auto_scale" yaml:"no_auto_scale"`
	NoInterpolation int `json:"no_interpolation" yaml:"no_interpolation"`
}

// IParams mirrors the identification part of libraw_iparams_t.
type IParams struct {
	Make       string `json:"make" yaml:"make"`
	Model      string `json:"model" yaml:"model"`
	Software   string `json:"software" yaml:"software"`
	MakerIndex uint32 `json:"maker_index" yaml:"maker_index"`
	RawCount   uint32 `json:"raw_count" yaml:"raw_count"`
	IsFoveon   uint32 `json:"is_foveon" yaml:"is_foveon"`
	DNGVersion uint32 `json:"dng_version" yaml:"dng_version"`
	Colors     int32  `json:"colors" yaml:"colors"`
	ColorDesc  string `json:"cdesc" yaml:"cdesc"`
}

// ImageSizes mirrors the geometry part of libraw_image_sizes_t.
type ImageSizes struct {
	RawHeight uint16 `json:"raw_height" yaml:"raw_height"`
	RawWidth  uint16 `json:"raw_width" yaml:"raw_width"`
	Height    uint16 `json:"height" yaml:"height"`
	Width     uint16 `json:"width" yaml:"width"`
	IHeight   uint16 `json:"iheight" yaml:"iheight"`
	IWidth    uint16 `json:"iwidth" yaml:"iwidth"`
}

// ImgOther mirrors the shooting information of libraw_imgother_t.
type ImgOther struct {
	ISOSpeed  float32 `json:"iso_speed" yaml:"iso_speed"`
	Shutter   float32 `json:"shutter" yaml:"shutter"`
	Aperture  float32 `json:"aperture" yaml:"aperture"`
	FocalLen  float32 `json:"focal_len" yaml:"focal_len"`
	Timestamp int64   `json:"timestamp" yaml:"timestamp"`
}

// Metadata is everything read from an unpacked context.
type Metadata struct {
	IData IParams    `json:"idata" yaml:"idata"`
	Sizes ImageSizes `json:"sizes" yaml:"sizes"`
	Other ImgOther   `json:"other" yaml:"other"`
}

// Metadata copies the records of an unpacked context.
func (p *Processor) Metadata() *Metadata {
	return &Metadata{
		IData: p.IParams(),
		Sizes: p.Sizes(),
		Other: p.Other(),
	}
}

// Option adjusts the output parameters of a context before it opens a file.
type Option func(*OutputParams)

// WithHalfSize halves the output size, as half_size does.
func WithHalfSize() Option {
	return func(p *OutputParams) {
		p.HalfSize = 1
	}
}

// ReadMetadata opens and unpacks path in a fresh context and returns its
// records. The context is released on every return path.
func ReadMetadata(path string, opts ...Option) (*Metadata, error) {
	p, err := New()
	if err != nil {
		return nil, err
	}
	defer p.Close()

	if len(opts) > 0 {
		params := *p.Params()
		for _, opt := range opts {
			opt(&params)
		}
		p.SetParams(params)
	}

	if err := p.OpenFile(path); err != nil {
		return nil, err
	}
	if err := p.Unpack(); err != nil {
		return nil, err
	}

	m := p.Metadata()
	p.Recycle()
	return m, nil
}

// Code is a LibRaw status code.
type Code int

// LibRaw_errors
const (
	Success                        Code = 0
	UnspecifiedError               Code = -1
	FileUnsupported                Code = -2
	RequestForNonexistentImage     Code = -3
	OutOfOrderCall                 Code = -4
	NoThumbnail                    Code = -5
	UnsupportedThumbnail           Code = -6
	InputClosed                    Code = -7
	NotImplemented                 Code = -8
	RequestForNonexistentThumbnail Code = -9
	InsufficientMemory             Code = -100007
	DataError                      Code = -100008
	IOError                        Code = -100009
	CancelledByCallback            Code = -100010
	BadCrop                        Code = -100011
	TooBig                         Code = -100012
	MempoolOverflow                Code = -100013
)

// Error is a failed step of the context lifecycle.
type Error struct {
	Op   string
	Path string
	Code Code
}

func (e *Error) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("libraw: %s: %s", e.Op, Strerror(e.Code))
	}
	return fmt.Sprintf("libraw: %s %s: %s", e.Op, e.Path, Strerror(e.Code))
}
