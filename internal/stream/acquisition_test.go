package stream

import (
	"bytes"
	"context"
	"errors"
	"image/jpeg"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/yourusername/camstream/internal/camera"
)

func newTestLoop(t *testing.T, dialer *fakeDialer, policy RetryPolicy) *Loop {
	t.Helper()
	loop, err := NewLoop(testCameraConfig("cam-1"), dialer, policy, newFakeClock(), zap.NewNop())
	require.NoError(t, err)
	return loop
}

func TestNewLoopInvalidConfig(t *testing.T) {
	cfg := testCameraConfig("cam-1")
	cfg.Host = ""

	loop, err := NewLoop(cfg, &fakeDialer{}, RetryPolicy{}, newFakeClock(), zap.NewNop())
	assert.Nil(t, loop)

	var confErr *camera.ConfigError
	require.ErrorAs(t, err, &confErr)
	assert.Equal(t, "host", confErr.Field)
}

func TestLoopDeliversFrames(t *testing.T) {
	dialer := &fakeDialer{}
	loop := newTestLoop(t, dialer, RetryPolicy{})

	loop.Start()
	defer loop.Stop()

	require.Eventually(t, func() bool {
		return loop.Metrics().FrameCount() > fpsWindow
	}, 5*time.Second, 10*time.Millisecond)

	assert.Equal(t, StateConnected, loop.State())
	assert.True(t, loop.Metrics().Connected())

	frame, ok := loop.Cache().Get()
	require.True(t, ok)
	assert.Greater(t, frame.Seq, uint64(0))
	assert.NotNil(t, frame.Image)

	// FPS recomputes every fpsWindow frames against virtual elapsed time
	assert.InDelta(t, float64(testCameraConfig("cam-1").TargetFPS), loop.Metrics().FPS(), 2.0)
}

func TestLoopSequenceMonotonic(t *testing.T) {
	dialer := &fakeDialer{}
	loop := newTestLoop(t, dialer, RetryPolicy{})

	loop.Start()
	defer loop.Stop()

	var last uint64
	violated := false
	require.Eventually(t, func() bool {
		frame, ok := loop.Cache().Get()
		if !ok {
			return false
		}
		if frame.Seq < last {
			violated = true
			return true
		}
		last = frame.Seq
		return last > 50
	}, 5*time.Second, time.Millisecond)
	assert.False(t, violated, "sequence numbers went backwards")
}

func TestLoopCandidateFallback(t *testing.T) {
	dialer := &fakeDialer{
		acceptURI: func(uri string) bool {
			return strings.Contains(uri, "ISAPI")
		},
	}
	loop := newTestLoop(t, dialer, RetryPolicy{})

	loop.Start()
	defer loop.Stop()

	require.Eventually(t, func() bool {
		return loop.Metrics().Connected()
	}, 5*time.Second, 10*time.Millisecond)

	opened := dialer.openedURIs()
	require.NotEmpty(t, opened)
	assert.Contains(t, opened[0], "ISAPI")
}

func TestLoopBoundedRetryGivesUp(t *testing.T) {
	dialer := &fakeDialer{openErr: errors.New("no route to host")}
	loop := newTestLoop(t, dialer, RetryPolicy{Delay: time.Millisecond, MaxAttempts: 3})

	loop.Start()

	err := loop.Wait()
	require.Error(t, err)

	var connErr *camera.ConnectError
	require.ErrorAs(t, err, &connErr)
	assert.Equal(t, "cam-1", connErr.CameraID)

	assert.Equal(t, StateStopping, loop.State())
	assert.False(t, loop.Metrics().Connected())

	// Each round walks all three candidate addresses
	assert.Equal(t, 9, dialer.attemptCount())
}

func TestLoopConnectsWhenCameraBecomesReachable(t *testing.T) {
	// Three full rounds over the candidate addresses fail before the
	// camera starts answering.
	dialer := &fakeDialer{failFirstN: 9}
	loop := newTestLoop(t, dialer, RetryPolicy{Delay: time.Millisecond})

	loop.Start()
	defer loop.Stop()

	require.Eventually(t, func() bool {
		return loop.Metrics().Connected()
	}, 5*time.Second, 10*time.Millisecond)

	// The tenth attempt is the first that can succeed, so the loop sat
	// disconnected through three retry rounds before flipping to connected.
	assert.Equal(t, 10, dialer.attemptCount())
	assert.Equal(t, StateConnected, loop.State())

	require.Eventually(t, func() bool {
		_, ok := loop.Cache().Get()
		return ok
	}, 5*time.Second, 10*time.Millisecond)

	// A viewer attached after recovery gets a live frame, not the placeholder
	pub := newTestPublisher(loop.Cache())
	w := &chunkLimitWriter{limit: 1}
	require.Error(t, pub.Serve(context.Background(), w))

	img, err := jpeg.Decode(bytes.NewReader(chunkPayload(t, w.buf.Bytes())))
	require.NoError(t, err)
	assert.Equal(t, 160, img.Bounds().Dx())
	assert.Equal(t, 120, img.Bounds().Dy())
}

func TestLoopReconnectsAfterStreamLoss(t *testing.T) {
	dialer := &fakeDialer{framesPerSource: 5}
	loop := newTestLoop(t, dialer, RetryPolicy{Delay: time.Millisecond})

	loop.Start()
	defer loop.Stop()

	// More frames than one source can deliver proves a reconnect happened
	require.Eventually(t, func() bool {
		return loop.Metrics().FrameCount() > 12
	}, 5*time.Second, 10*time.Millisecond)

	assert.GreaterOrEqual(t, len(dialer.openedURIs()), 2)
}

func TestLoopStop(t *testing.T) {
	t.Run("ReleasesConnection", func(t *testing.T) {
		dialer := &fakeDialer{}
		loop := newTestLoop(t, dialer, RetryPolicy{})

		loop.Start()
		require.Eventually(t, func() bool {
			return loop.Metrics().Connected()
		}, 5*time.Second, 10*time.Millisecond)

		loop.Stop()

		assert.Equal(t, StateStopping, loop.State())
		assert.False(t, loop.Metrics().Connected())
		assert.NoError(t, loop.Wait())

		dialer.mu.Lock()
		defer dialer.mu.Unlock()
		require.NotEmpty(t, dialer.sources)
		assert.True(t, dialer.sources[len(dialer.sources)-1].closed)
	})

	t.Run("Idempotent", func(t *testing.T) {
		loop := newTestLoop(t, &fakeDialer{}, RetryPolicy{})
		loop.Start()
		loop.Stop()
		loop.Stop()
		assert.Equal(t, StateStopping, loop.State())
	})

	t.Run("BeforeStart", func(t *testing.T) {
		loop := newTestLoop(t, &fakeDialer{}, RetryPolicy{})
		loop.Stop()
		assert.Equal(t, StateStopping, loop.State())
	})
}
