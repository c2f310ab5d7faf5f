package stream

import (
	"context"
	"fmt"
	"image"
	"io"
	"net/http"
	"time"

	"github.com/yourusername/camstream/internal/camera"
	"github.com/yourusername/camstream/internal/video"
	"go.uber.org/zap"
)

// Publisher delivers one camera's frames to one viewer as a multipart JPEG
// sequence. Each viewer gets its own Publisher with independent pacing, so
// a slow or blocked viewer only ever delays itself: the publisher reads the
// frame cache, never the network source.
type Publisher struct {
	cameraName string
	cache      *FrameCache
	encoder    video.Encoder
	interval   time.Duration
	clock      Clock
	logger     *zap.Logger
}

// Serve runs the delivery loop until the viewer disconnects (write failure)
// or ctx is cancelled. While the camera has no live frame the viewer
// receives the synthesized placeholder instead of a stall.
func (p *Publisher) Serve(ctx context.Context, w io.Writer) error {
	flusher, _ := w.(http.Flusher)

	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		var img image.Image
		if frame, ok := p.cache.Get(); ok {
			img = frame.Image
		} else {
			img = video.Placeholder(p.cameraName)
		}

		data, err := p.encoder.Encode(img)
		if err != nil {
			// A single bad frame is skipped; the stream continues.
			p.logger.Warn("chunk skipped", zap.Error(&camera.EncodeError{Cause: err}))
		} else if err := writeChunk(w, data); err != nil {
			return err
		} else if flusher != nil {
			flusher.Flush()
		}

		select {
		case <-p.clock.After(p.interval):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// writeChunk emits one part of the multipart/x-mixed-replace sequence.
func writeChunk(w io.Writer, jpegData []byte) error {
	if _, err := fmt.Fprintf(w, "--frame\r\nContent-Type: image/jpeg\r\n\r\n"); err != nil {
		return err
	}
	if _, err := w.Write(jpegData); err != nil {
		return err
	}
	_, err := io.WriteString(w, "\r\n")
	return err
}
