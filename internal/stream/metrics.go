package stream

import (
	"math"
	"sync/atomic"
)

// fpsWindow is the number of delivered frames between FPS recomputations.
const fpsWindow = 30

// Metrics carries the per-camera counters. Mutated only by that camera's
// acquisition loop; read lock-free by status queries and publishers.
type Metrics struct {
	frameCount atomic.Uint64
	fpsBits    atomic.Uint64
	connected  atomic.Bool
}

// AddFrame increments the delivered-frame counter and returns the new
// total.
func (m *Metrics) AddFrame() uint64 {
	return m.frameCount.Add(1)
}

// FrameCount returns the number of frames delivered since loop start.
func (m *Metrics) FrameCount() uint64 {
	return m.frameCount.Load()
}

// SetFPS stores the recomputed frame rate.
func (m *Metrics) SetFPS(fps float64) {
	m.fpsBits.Store(math.Float64bits(fps))
}

// FPS returns the last computed frame rate.
func (m *Metrics) FPS() float64 {
	return math.Float64frombits(m.fpsBits.Load())
}

// SetConnected flags whether the upstream source is currently delivering.
func (m *Metrics) SetConnected(connected bool) {
	m.connected.Store(connected)
}

// Connected reports whether the upstream source is currently delivering.
func (m *Metrics) Connected() bool {
	return m.connected.Load()
}
