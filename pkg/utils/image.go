package utils

import (
	"bytes"
	"image"
	"image/jpeg"
	"io"
	"os"
)

// DecodeYUYV lays a packed YUYV 4:2:2 frame out as planar YCbCr so the
// stdlib encoders can consume it.
func DecodeYUYV(data []byte, width, height int) image.Image {
	img := image.NewYCbCr(image.Rect(0, 0, width, height), image.YCbCrSubsampleRatio422)
	for row := 0; row < height; row++ {
		src := row * width * 2
		y := row * img.YStride
		c := row * img.CStride
		for col := 0; col < width; col += 2 {
			img.Y[y+col] = data[src]
			img.Cb[c+col/2] = data[src+1]
			img.Y[y+col+1] = data[src+2]
			img.Cr[c+col/2] = data[src+3]
			src += 4
		}
	}

	return img
}

// DecodeYUV420SP lays an NV21 frame (full Y plane, then interleaved V/U at
// quarter resolution) out as planar YCbCr 4:2:0.
func DecodeYUV420SP(data []byte, width, height int) image.Image {
	img := image.NewYCbCr(image.Rect(0, 0, width, height), image.YCbCrSubsampleRatio420)
	copy(img.Y, data[:width*height])
	uv := data[width*height:]
	for i := 0; i+1 < len(uv); i += 2 {
		img.Cr[i/2] = uv[i]
		img.Cb[i/2] = uv[i+1]
	}

	return img
}

func EncodeJPEG(img image.Image, dst io.Writer, quality int) error {
	return jpeg.Encode(dst, img, &jpeg.Options{Quality: quality})
}

func EncodeJPEGBytes(img image.Image, quality int) ([]byte, error) {
	var buf bytes.Buffer
	if err := EncodeJPEG(img, &buf, quality); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func EncodeJPEGFile(img image.Image, file string, quality int) error {
	f, err := os.OpenFile(file, os.O_RDWR|os.O_CREATE, 0660)
	if err != nil {
		return err
	}
	defer f.Close()

	return EncodeJPEG(img, f, quality)
}
