// Package lsraw formats the records of a LibRaw context as reports.
package lsraw

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/ysh86/lsraw/libraw"
)

// Format is a report encoding.
type Format string

// Report encodings
const (
	FormatText Format = "text"
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// ParseFormat parses a format name.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatText, FormatJSON, FormatYAML:
		return f, nil
	}
	return "", fmt.Errorf("unknown format %q (want text, json or yaml)", s)
}

// optional prints an absent string as NULL.
func optional(s *string) string {
	if s == nil {
		return "NULL"
	}
	return *s
}

// WriteParams writes the output parameters, one field per line.
func WriteParams(w io.Writer, p *libraw.OutputParams, format Format) error {
	if format != FormatText {
		return encode(w, p, format)
	}

	var buf bytes.Buffer

	buf.WriteString(fmt.Sprintf("Greybox: %d %d %d %d\n", p.Greybox[0], p.Greybox[1], p.Greybox[2], p.Greybox[3]))
	buf.WriteString(fmt.Sprintf("Cropbox: %d %d %d %d\n", p.Cropbox[0], p.Cropbox[1], p.Cropbox[2], p.Cropbox[3]))
	buf.WriteString(fmt.Sprintf("Aberration Correction: %f %f %f %f\n", p.Aber[0], p.Aber[1], p.Aber[2], p.Aber[3]))
	buf.WriteString(fmt.Sprintf("Gamma: %f %f %f %f %f %f\n", p.Gamm[0], p.Gamm[1], p.Gamm[2], p.Gamm[3], p.Gamm[4], p.Gamm[5]))
	buf.WriteString(fmt.Sprintf("User Multipliers: %f %f %f %f\n",
		float64(p.UserMul[0]), float64(p.UserMul[1]), float64(p.UserMul[2]), float64(p.UserMul[3])))
	buf.WriteString(fmt.Sprintf("Brightness: %f\n", float64(p.Bright)))
	buf.WriteString(fmt.Sprintf("Threshold: %f\n", float64(p.Threshold)))

	buf.WriteString(fmt.Sprintf("Half Size: %d\n", p.HalfSize))
	buf.WriteString(fmt.Sprintf("Four Color RGB: %d\n", p.FourColorRGB))
	buf.WriteString(fmt.Sprintf("Highlight: %d\n", p.Highlight))
	buf.WriteString(fmt.Sprintf("Use Auto WB: %d\n", p.UseAutoWB))
	buf.WriteString(fmt.Sprintf("Use Camera WB: %d\n", p.UseCameraWB))
	buf.WriteString(fmt.Sprintf("Use Camera Matrix: %d\n", p.UseCameraMatrix))

	buf.WriteString(fmt.Sprintf("Output Color: %d\n", p.OutputColor))
	buf.WriteString(fmt.Sprintf("Output Profile: %s\n", optional(p.OutputProfile)))
	buf.WriteString(fmt.Sprintf("Camera Profile: %s\n", optional(p.CameraProfile)))
	buf.WriteString(fmt.Sprintf("Bad Pixels: %s\n", optional(p.BadPixels)))
	buf.WriteString(fmt.Sprintf("Dark Frame: %s\n", optional(p.DarkFrame)))

	buf.WriteString(fmt.Sprintf("Output BPS: %d\n", p.OutputBPS))
	buf.WriteString(fmt.Sprintf("Output TIFF: %d\n", p.OutputTIFF))
	buf.WriteString(fmt.Sprintf("Output Flags: %d\n", p.OutputFlags))

	buf.WriteString(fmt.Sprintf("User Flip: %d\n", p.UserFlip))
	buf.WriteString(fmt.Sprintf("User Quality: %d\n", p.UserQual))
	buf.WriteString(fmt.Sprintf("User Black: %d\n", p.UserBlack))
	buf.WriteString(fmt.Sprintf("User CBlack: %d %d %d %d\n", p.UserCBlack[0], p.UserCBlack[1], p.UserCBlack[2], p.UserCBlack[3]))
	buf.WriteString(fmt.Sprintf("User Saturation: %d\n", p.UserSat))

	buf.WriteString(fmt.Sprintf("Median Filter Passes: %d\n", p.MedPasses))
	buf.WriteString(fmt.Sprintf("Auto Bright Threshold: %f\n", float64(p.AutoBrightThr)))
	buf.WriteString(fmt.Sprintf("Adjust Maximum Threshold: %f\n", float64(p.AdjustMaximumThr)))

	buf.WriteString(fmt.Sprintf("No Auto Bright: %d\n", p.NoAutoBright))
	buf.WriteString(fmt.Sprintf("Use Fuji Rotate: %d\n", p.UseFujiRotate))
	buf.WriteString(fmt.Sprintf("Green Matching: %d\n", p.GreenMatching))

	buf.WriteString(fmt.Sprintf("DCB Iterations: %d\n", p.DCBIterations))
	buf.WriteString(fmt.Sprintf("DCB Enhance FL: %d\n", p.DCBEnhanceFL))
	buf.WriteString(fmt.Sprintf("FBDD Noise Reduction: %d\n", p.FBDDNoiseRd))

	buf.WriteString(fmt.Sprintf("Exposure Correction: %d\n", p.ExpCorrect))
	buf.WriteString(fmt.Sprintf("Exposure Shift: %f\n", float64(p.ExpShift)))
	buf.WriteString(fmt.Sprintf("Exposure Preservation: %f\n", float64(p.ExpPreser)))

	buf.WriteString(fmt.Sprintf("No Auto Scale: %d\n", p.NoAutoScale))
	buf.WriteString(fmt.Sprintf("No Interpolation: %d\n", p.NoInterpolation))

	_, err := w.Write(buf.Bytes())
	return err
}

// WriteMetadata writes the identification and geometry records, one field
// per line. Structured formats also carry the shooting information.
func WriteMetadata(w io.Writer, m *libraw.Metadata, format Format) error {
	if format != FormatText {
		return encode(w, m, format)
	}

	var buf bytes.Buffer
	id := &m.IData
	sizes := &m.Sizes

	// idata
	buf.WriteString(fmt.Sprintf("Make: %s\n", id.Make))
	buf.WriteString(fmt.Sprintf("Model: %s\n", id.Model))
	buf.WriteString(fmt.Sprintf("Software: %s\n", id.Software))

	buf.WriteString(fmt.Sprintf("MakerIndex: %d\n", id.MakerIndex))
	buf.WriteString(fmt.Sprintf("RawCount: %d\n", id.RawCount))
	buf.WriteString(fmt.Sprintf("IsFoveon: %d\n", id.IsFoveon))
	buf.WriteString(fmt.Sprintf("DngVersion: %d\n", id.DNGVersion))

	buf.WriteString(fmt.Sprintf("Colors: %d\n", id.Colors))
	buf.WriteString(fmt.Sprintf("Color descriptions: %s\n", id.ColorDesc))

	// sizes
	buf.WriteString(fmt.Sprintf("RawHeight: %d\n", sizes.RawHeight))
	buf.WriteString(fmt.Sprintf("RawWidth: %d\n", sizes.RawWidth))
	buf.WriteString(fmt.Sprintf("Height: %d\n", sizes.Height))
	buf.WriteString(fmt.Sprintf("Width: %d\n", sizes.Width))
	buf.WriteString(fmt.Sprintf("IHeight: %d\n", sizes.IHeight))
	buf.WriteString(fmt.Sprintf("IWidth: %d\n", sizes.IWidth))

	_, err := w.Write(buf.Bytes())
	return err
}

func encode(w io.Writer, v interface{}, format Format) error {
	switch format {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	}
	return fmt.Errorf("unknown format %q", format)
}
