package video

import (
	"bytes"
	"image"
	"image/jpeg"
)

// Encoder compresses a raster frame into a transmittable image chunk.
type Encoder interface {
	Encode(img image.Image) ([]byte, error)
}

// JPEGEncoder encodes frames with the standard library JPEG encoder.
type JPEGEncoder struct {
	// Quality in 1..100; zero means 80, matching the outbound stream
	// default.
	Quality int
}

func (e *JPEGEncoder) Encode(img image.Image) ([]byte, error) {
	quality := e.Quality
	if quality == 0 {
		quality = 80
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
