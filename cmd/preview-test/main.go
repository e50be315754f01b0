// Exercises the full capture lifecycle against real hardware: preview for
// a while, take a still, run autofocus, stop.
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"usbcamd/pkg/camera"
	"usbcamd/pkg/driver"
)

func main() {
	width := flag.Int("w", 320, "preview width")
	height := flag.Int("h", 240, "preview height")
	dur := flag.Duration("t", 5*time.Second, "preview duration")
	out := flag.String("o", "still.jpg", "still picture output file")
	flag.Parse()

	module := camera.NewModule(func() driver.Driver { return driver.NewV4L2() })
	hw, err := module.Open(0)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	frames := 0
	stills := make(chan []byte, 1)
	hw.SetCallbacks(
		func(msg camera.Message, status, extra int32, _ any) {
			fmt.Printf("notify %s status=%d\n", msg, status)
		},
		func(msg camera.Message, buf *camera.Buffer, _ any) {
			switch msg {
			case camera.MsgPreviewFrame:
				frames++
				if frames%30 == 0 {
					fmt.Printf("%d preview frames, %d bytes each\n", frames, buf.Size())
				}
			case camera.MsgCompressedImage:
				stills <- append([]byte(nil), buf.Bytes()...)
			}
		},
		nil, nil,
	)
	hw.EnableMessage(camera.MsgPreviewFrame | camera.MsgShutter | camera.MsgCompressedImage | camera.MsgFocus)

	cfg := hw.GetConfig()
	cfg.PreviewSize = camera.Size{Width: *width, Height: *height}
	if err := hw.SetConfig(cfg); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	if err := hw.StartPreview(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	hw.AutoFocus()
	time.Sleep(*dur)

	if err := hw.TakePicture(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	select {
	case data := <-stills:
		if err := os.WriteFile(*out, data, 0660); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		fmt.Printf("saved %s (%d bytes) after %d preview frames\n", *out, len(data), frames)
	case <-time.After(3 * time.Second):
		fmt.Fprintln(os.Stderr, "no still delivered")
		os.Exit(1)
	}

	hw.Release()
}
