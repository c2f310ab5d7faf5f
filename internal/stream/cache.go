package stream

import (
	"sync"

	"github.com/yourusername/camstream/internal/video"
)

// FrameCache is the single-slot holder of the last known good frame of one
// camera. The acquisition loop is the sole writer; any number of publishers
// read concurrently. The lock is held only for the reference handoff, never
// across I/O or encoding.
//
// Frames are immutable after Publish, so Get hands out the reference
// directly; readers must not mutate the image.
type FrameCache struct {
	mu    sync.RWMutex
	frame *video.Frame
}

// NewFrameCache returns an empty cache.
func NewFrameCache() *FrameCache {
	return &FrameCache{}
}

// Publish atomically replaces the current frame.
func (c *FrameCache) Publish(f *video.Frame) {
	c.mu.Lock()
	c.frame = f
	c.mu.Unlock()
}

// Get returns the current frame, or false while no frame was ever
// published. It never blocks the writer beyond the handoff.
func (c *FrameCache) Get() (*video.Frame, bool) {
	c.mu.RLock()
	f := c.frame
	c.mu.RUnlock()
	return f, f != nil
}
