package video

import (
	"image"
	"time"
)

// Frame is one decoded raster image sampled from a camera stream.
//
// Frames are immutable after publication: the acquisition loop builds a new
// Frame per read and never touches a published one again, so cache readers
// may hold the reference without copying pixels.
type Frame struct {
	Image image.Image

	// Seq increases monotonically per camera; assigned by the acquisition
	// loop when the frame is published.
	Seq uint64

	// CapturedAt is the wall-clock time the frame was read from the source.
	CapturedAt time.Time
}

// Size returns the frame dimensions in pixels.
func (f *Frame) Size() (w, h int) {
	b := f.Image.Bounds()
	return b.Dx(), b.Dy()
}
