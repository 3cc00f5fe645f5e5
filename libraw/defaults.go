package libraw

import "math"

// LibRaw's LIBRAW_DEFAULT_* thresholds.
const (
	DefaultAutoBrightnessThreshold = 0.01
	DefaultAdjustMaximumThreshold  = 0.75
)

// unsetCBlack marks a per-channel black level the user has not set.
const unsetCBlack = -1000001

// DefaultOutputParams returns the parameters libraw_init(0) leaves in a new
// context.
func DefaultOutputParams() OutputParams {
	return OutputParams{
		Greybox:   [4]uint32{0, 0, math.MaxUint32, math.MaxUint32},
		Cropbox:   [4]uint32{0, 0, math.MaxUint32, math.MaxUint32},
		Aber:      [4]float64{1, 1, 1, 1},
		Gamm:      [6]float64{0.45, 4.5, 0, 0, 0, 0},
		UserMul:   [4]float32{0, 0, 0, 0},
		Bright:    1,
		Threshold: 0,

		UseCameraMatrix: 1,
		OutputColor:     1,

		OutputBPS: 8,

		UserFlip:   -1,
		UserQual:   -1,
		UserBlack:  -1,
		UserCBlack: [4]int{unsetCBlack, unsetCBlack, unsetCBlack, unsetCBlack},
		UserSat:    -1,

		AutoBrightThr:    DefaultAutoBrightnessThreshold,
		AdjustMaximumThr: DefaultAdjustMaximumThreshold,

		UseFujiRotate: 1,
		DCBIterations: -1,

		ExpShift: 1,
	}
}
