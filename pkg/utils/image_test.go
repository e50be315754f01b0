package utils

import (
	"bytes"
	"image"
	"testing"
)

func TestDecodeYUYVPlanes(t *testing.T) {
	// 2x2: row 0 = Y1 U2 Y3 V4, row 1 = Y5 U6 Y7 V8
	data := []byte{
		1, 2, 3, 4,
		5, 6, 7, 8,
	}
	img := DecodeYUYV(data, 2, 2).(*image.YCbCr)

	if img.SubsampleRatio != image.YCbCrSubsampleRatio422 {
		t.Fatalf("subsample ratio = %v", img.SubsampleRatio)
	}
	wantY := []byte{1, 3, 5, 7}
	for i, want := range wantY {
		row, col := i/2, i%2
		if got := img.Y[row*img.YStride+col]; got != want {
			t.Errorf("Y[%d,%d] = %d, want %d", row, col, got, want)
		}
	}
	if img.Cb[0] != 2 || img.Cr[0] != 4 {
		t.Errorf("row 0 chroma = (Cb %d, Cr %d), want (2, 4)", img.Cb[0], img.Cr[0])
	}
	if img.Cb[img.CStride] != 6 || img.Cr[img.CStride] != 8 {
		t.Errorf("row 1 chroma = (Cb %d, Cr %d), want (6, 8)", img.Cb[img.CStride], img.Cr[img.CStride])
	}
}

func TestDecodeYUV420SPPlanes(t *testing.T) {
	// 2x2 NV21: Y plane then V,U
	data := []byte{1, 2, 3, 4, 9, 8}
	img := DecodeYUV420SP(data, 2, 2).(*image.YCbCr)

	if img.SubsampleRatio != image.YCbCrSubsampleRatio420 {
		t.Fatalf("subsample ratio = %v", img.SubsampleRatio)
	}
	for i, want := range []byte{1, 2, 3, 4} {
		row, col := i/2, i%2
		if got := img.Y[row*img.YStride+col]; got != want {
			t.Errorf("Y[%d,%d] = %d, want %d", row, col, got, want)
		}
	}
	if img.Cr[0] != 9 || img.Cb[0] != 8 {
		t.Errorf("chroma = (Cr %d, Cb %d), want (9, 8)", img.Cr[0], img.Cb[0])
	}
}

func TestEncodeJPEGBytes(t *testing.T) {
	data := make([]byte, 8*8*2)
	for i := range data {
		data[i] = 128
	}
	out, err := EncodeJPEGBytes(DecodeYUYV(data, 8, 8), 90)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.HasPrefix(out, []byte{0xff, 0xd8}) {
		t.Errorf("output does not start with the JPEG SOI marker: % x", out[:4])
	}
}
