package stream

import (
	"context"
	"errors"
	"image"
	"sync"
	"time"

	"github.com/yourusername/camstream/internal/camera"
	"github.com/yourusername/camstream/internal/video"
)

// fakeClock advances virtual time on every timer wait and fires the timer
// immediately, so loop tests run without real delays and elapsed-time math
// stays deterministic.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Unix(1700000000, 0)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) After(d time.Duration) <-chan time.Time {
	c.mu.Lock()
	c.now = c.now.Add(d)
	now := c.now
	c.mu.Unlock()

	ch := make(chan time.Time, 1)
	ch <- now
	return ch
}

// fakeSource delivers a fixed number of synthetic frames, then fails the
// read like a dropped connection.
type fakeSource struct {
	mu        sync.Mutex
	remaining int
	readErr   error
	closed    bool
}

func (s *fakeSource) Read() (*video.Frame, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, errors.New("source closed")
	}
	if s.remaining <= 0 {
		if s.readErr != nil {
			return nil, s.readErr
		}
		return nil, errors.New("connection reset")
	}
	s.remaining--

	return &video.Frame{
		Image:      image.NewRGBA(image.Rect(0, 0, 160, 120)),
		CapturedAt: time.Now(),
	}, nil
}

func (s *fakeSource) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// fakeDialer scripts the outcome of successive open attempts.
type fakeDialer struct {
	mu sync.Mutex

	// openErr, when set, fails every attempt.
	openErr error

	// failFirstN fails that many attempts before succeeding.
	failFirstN int

	// framesPerSource is handed to each new fakeSource.
	framesPerSource int

	// acceptURI, when set, fails candidates that do not match.
	acceptURI func(uri string) bool

	opened   []string
	attempts int
	sources  []*fakeSource
}

func (d *fakeDialer) Open(ctx context.Context, uri string) (video.FrameSource, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	d.attempts++
	if d.openErr != nil {
		return nil, d.openErr
	}
	if d.attempts <= d.failFirstN {
		return nil, errors.New("connection refused")
	}
	if d.acceptURI != nil && !d.acceptURI(uri) {
		return nil, errors.New("connection refused")
	}

	frames := d.framesPerSource
	if frames == 0 {
		frames = 1 << 20
	}
	src := &fakeSource{remaining: frames}
	d.opened = append(d.opened, uri)
	d.sources = append(d.sources, src)
	return src, nil
}

func (d *fakeDialer) openedURIs() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.opened...)
}

func (d *fakeDialer) attemptCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.attempts
}

func testCameraConfig(id string) camera.Config {
	return camera.Config{
		ID:        id,
		Name:      "Test Camera",
		Host:      "192.168.0.10",
		Port:      554,
		Username:  "admin",
		Password:  "secret",
		Quality:   camera.QualitySub,
		TargetFPS: 10,
		MaxWidth:  640,
	}
}
