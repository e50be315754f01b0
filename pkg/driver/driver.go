// Package driver defines the fixed contract between the camera core and a
// frame source, plus the V4L2 implementation used in production. The core
// never talks to a device except through this interface.
package driver

// PixelFormat is a V4L2-style fourcc.
type PixelFormat uint32

func fourcc(a, b, c, d byte) PixelFormat {
	return PixelFormat(uint32(a) | uint32(b)<<8 | uint32(c)<<16 | uint32(d)<<24)
}

var (
	PixelFormatYUYV = fourcc('Y', 'U', 'Y', 'V')
	PixelFormatJPEG = fourcc('J', 'P', 'E', 'G')
)

// Driver is a single capture device. Implementations are not safe for
// concurrent use; the caller serializes the lifecycle.
//
// The expected call order is Open, Init, StartStreaming, any number of
// grabs, StopStreaming, Uninit, Close. Implementations may assume it.
type Driver interface {
	// Open binds one device node at the given resolution and capture
	// format. The node is rejected if it cannot deliver that mode.
	Open(node string, width, height int, format PixelFormat) error

	// Init prepares capture buffers on the opened node.
	Init() error

	// StartStreaming begins frame delivery.
	StartStreaming() error

	// GrabFrame blocks until the next raw frame and copies it into dst.
	// It returns within roughly one frame period once streaming stops.
	GrabFrame(dst []byte) error

	// GrabJPEGFrame blocks until the next frame and returns it as a
	// JPEG-encoded payload.
	GrabJPEGFrame() ([]byte, error)

	StopStreaming() error
	Uninit() error
	Close() error
}
