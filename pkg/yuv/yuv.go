// Package yuv holds the colorspace conversion between the capture format
// and the video delivery format.
package yuv

// YUV420SPSize returns the byte size of a converted frame: a full Y plane
// plus interleaved V/U at quarter resolution, i.e. 3/4 of the raw YUYV size.
func YUV420SPSize(width, height int) int {
	return width*height + width*height/2
}

// YUYVToYUV420SP converts a packed YUYV 4:2:2 frame into YUV420SP (NV21):
// full-resolution Y plane followed by interleaved V/U samples taken from
// every other row. dst must hold YUV420SPSize(width, height) bytes.
func YUYVToYUV420SP(src, dst []byte, width, height int) {
	yi := 0
	for i := 0; i+1 < width*height*2; i += 2 {
		dst[yi] = src[i]
		yi++
	}

	uv := width * height
	for row := 0; row < height; row += 2 {
		base := row * width * 2
		for col := 0; col+3 < width*2; col += 4 {
			dst[uv] = src[base+col+3]   // V
			dst[uv+1] = src[base+col+1] // U
			uv += 2
		}
	}
}
