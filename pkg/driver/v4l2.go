package driver

import (
	"context"
	"fmt"
	"time"

	"github.com/vladimirvivien/go4vl/device"
	"github.com/vladimirvivien/go4vl/v4l2"

	"usbcamd/pkg/utils"
)

const (
	jpegQuality = 90

	// grace period after cancelling the stream context, so the go4vl
	// capture goroutine has turned streaming off before we close the fd
	stopSettle = 100 * time.Millisecond
)

// V4L2 drives one kernel video device through go4vl. It satisfies Driver
// and is reused across open/close cycles.
type V4L2 struct {
	dev    *device.Device
	cancel context.CancelFunc
	frames <-chan []byte

	width  int
	height int
	format PixelFormat
}

func NewV4L2() *V4L2 {
	return &V4L2{}
}

func (d *V4L2) Open(node string, width, height int, format PixelFormat) error {
	if d.dev != nil {
		return fmt.Errorf("v4l2: %s still open", node)
	}
	fcc, err := v4l2Format(format)
	if err != nil {
		return err
	}
	dev, err := device.Open(
		node,
		device.WithBufferSize(2),
		device.WithPixFormat(v4l2.PixFormat{
			PixelFormat: fcc,
			Width:       uint32(width),
			Height:      uint32(height),
		}),
	)
	if err != nil {
		return err
	}

	// the driver may silently fall back to another mode; treat that as a
	// node that does not accept the requested one
	got, err := dev.GetPixFormat()
	if err != nil {
		dev.Close()
		return err
	}
	if got.PixelFormat != fcc || got.Width != uint32(width) || got.Height != uint32(height) {
		dev.Close()
		return fmt.Errorf("v4l2: %s does not accept %dx%d (format %#x)", node, width, height, uint32(fcc))
	}

	d.dev = dev
	d.width = width
	d.height = height
	d.format = format

	return nil
}

func (d *V4L2) Init() error {
	if d.dev == nil {
		return fmt.Errorf("v4l2: init before open")
	}
	// capture buffers are negotiated by go4vl when streaming starts
	return nil
}

func (d *V4L2) StartStreaming() error {
	ctx, cancel := context.WithCancel(context.Background())
	if err := d.dev.Start(ctx); err != nil {
		cancel()
		return err
	}
	d.cancel = cancel
	d.frames = d.dev.GetOutput()

	return nil
}

func (d *V4L2) GrabFrame(dst []byte) error {
	frame, ok := <-d.frames
	if !ok {
		return fmt.Errorf("v4l2: stream closed")
	}
	copy(dst, frame)

	return nil
}

func (d *V4L2) GrabJPEGFrame() ([]byte, error) {
	frame, ok := <-d.frames
	if !ok {
		return nil, fmt.Errorf("v4l2: stream closed")
	}
	if d.format == PixelFormatJPEG {
		out := make([]byte, len(frame))
		copy(out, frame)
		return out, nil
	}

	return utils.EncodeJPEGBytes(utils.DecodeYUYV(frame, d.width, d.height), jpegQuality)
}

func (d *V4L2) StopStreaming() error {
	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
		time.Sleep(stopSettle)
	}
	d.frames = nil

	return nil
}

func (d *V4L2) Uninit() error {
	// buffers are released together with the stream
	return nil
}

func (d *V4L2) Close() error {
	if d.dev == nil {
		return nil
	}
	err := d.dev.Close()
	d.dev = nil

	return err
}

func v4l2Format(f PixelFormat) (v4l2.FourCCType, error) {
	switch f {
	case PixelFormatYUYV:
		return v4l2.PixelFmtYUYV, nil
	case PixelFormatJPEG:
		return v4l2.PixelFmtJPEG, nil
	}
	return 0, fmt.Errorf("v4l2: unsupported pixel format %#x", uint32(f))
}
