package camera

import (
	"fmt"
	"slices"
)

// The two delivery formats this hardware supports. Preview frames leave the
// device as packed YUYV and are reported to the client as yuv422sp; video
// frames are converted to yuv420sp; stills are always JPEG.
const (
	FormatYUV422SP = "yuv422sp"
	FormatYUV420SP = "yuv420sp"
	FormatJPEG     = "jpeg"
)

const (
	DefaultWidth     = 320
	DefaultHeight    = 240
	DefaultFrameRate = 30
)

type Size struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

func (s Size) String() string {
	return fmt.Sprintf("%dx%d", s.Width, s.Height)
}

// FPSRange is a (min,max) preview frame-rate pair in thousandths of fps.
type FPSRange struct {
	Min int `json:"min"`
	Max int `json:"max"`
}

// Config is the full parameter set of one camera. It is replaced wholesale
// on a successful SetConfig and read as a snapshot everywhere else.
type Config struct {
	PreviewSize      Size   `json:"previewSize"`
	PreviewFrameRate int    `json:"previewFrameRate"`
	PreviewFormat    string `json:"previewFormat"`

	PictureSize   Size   `json:"pictureSize"`
	PictureFormat string `json:"pictureFormat"`

	SupportedPreviewSizes []Size     `json:"supportedPreviewSizes"`
	SupportedPictureSizes []Size     `json:"supportedPictureSizes"`
	SupportedFPSRanges    []FPSRange `json:"supportedFpsRanges"`
}

func supportedPreviewSizes() []Size {
	return []Size{{320, 240}, {640, 480}}
}

func supportedPictureSizes() []Size {
	return []Size{{320, 240}}
}

func supportedFPSRanges() []FPSRange {
	return []FPSRange{
		{8000, 8000}, {8000, 10000}, {10000, 10000},
		{8000, 15000}, {15000, 15000},
		{8000, 20000}, {20000, 20000},
		{24000, 24000}, {25000, 25000},
		{8000, 30000}, {30000, 30000},
	}
}

func defaultConfig() Config {
	return Config{
		PreviewSize:      Size{DefaultWidth, DefaultHeight},
		PreviewFrameRate: DefaultFrameRate,
		PreviewFormat:    FormatYUV422SP,

		PictureSize:   Size{DefaultWidth, DefaultHeight},
		PictureFormat: FormatJPEG,

		SupportedPreviewSizes: supportedPreviewSizes(),
		SupportedPictureSizes: supportedPictureSizes(),
		SupportedFPSRanges:    supportedFPSRanges(),
	}
}

func (c Config) validate() error {
	if c.PreviewFormat != FormatYUV422SP {
		return fmt.Errorf("%w: only %s preview is supported, got %q", ErrUnsupportedFormat, FormatYUV422SP, c.PreviewFormat)
	}
	if c.PictureFormat != FormatJPEG {
		return fmt.Errorf("%w: only %s still pictures are supported, got %q", ErrUnsupportedFormat, FormatJPEG, c.PictureFormat)
	}
	return nil
}

// clone deep-copies the config so snapshots never alias the live lists.
func (c Config) clone() Config {
	c.SupportedPreviewSizes = slices.Clone(c.SupportedPreviewSizes)
	c.SupportedPictureSizes = slices.Clone(c.SupportedPictureSizes)
	c.SupportedFPSRanges = slices.Clone(c.SupportedFPSRanges)
	return c
}
