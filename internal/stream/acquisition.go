package stream

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/yourusername/camstream/internal/camera"
	"github.com/yourusername/camstream/internal/video"
	"go.uber.org/zap"
)

// ConnectionState tracks where a camera's acquisition loop is in its
// lifecycle. The loop is the only writer; everyone else only reads.
type ConnectionState int32

const (
	StateDisconnected ConnectionState = iota
	StateConnecting
	StateConnected
	StateStopping
)

func (s ConnectionState) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateStopping:
		return "stopping"
	default:
		return "unknown"
	}
}

// RetryPolicy controls reconnection behavior. A long-running server keeps
// MaxAttempts at zero and retries forever; a one-shot tool sets a cap and
// gets a terminal outcome.
type RetryPolicy struct {
	// Delay between failed connection attempts. Zero means 3 seconds.
	Delay time.Duration

	// MaxAttempts caps consecutive failed connection attempts. Zero
	// means unbounded.
	MaxAttempts int
}

func (p RetryPolicy) delay() time.Duration {
	if p.Delay <= 0 {
		return 3 * time.Second
	}
	return p.Delay
}

// Loop is the per-camera acquisition worker: it owns the source connection,
// pulls frames, normalizes and annotates them, and publishes into the frame
// cache. All network failures are contained here.
type Loop struct {
	cfg    camera.Config
	uris   []string
	dialer video.Dialer
	policy RetryPolicy
	clock  Clock
	logger *zap.Logger

	cache   *FrameCache
	metrics *Metrics

	state     atomicState
	ctx       context.Context
	cancel    context.CancelFunc
	done      chan struct{}
	started   atomic.Bool
	startOnce sync.Once
	stopOnce  sync.Once

	seq       uint64
	startedAt time.Time
	err       error // terminal outcome, set before done closes
}

// NewLoop resolves the camera's candidate URIs and prepares a loop. A
// malformed config fails here with ConfigError; nothing has been started
// yet.
func NewLoop(cfg camera.Config, dialer video.Dialer, policy RetryPolicy, clock Clock, logger *zap.Logger) (*Loop, error) {
	uris, err := camera.Resolve(cfg)
	if err != nil {
		return nil, err
	}

	if clock == nil {
		clock = RealClock()
	}
	ctx, cancel := context.WithCancel(context.Background())

	return &Loop{
		cfg:     cfg,
		uris:    uris,
		dialer:  dialer,
		policy:  policy,
		clock:   clock,
		logger:  logger.With(zap.String("camera_id", cfg.ID)),
		cache:   NewFrameCache(),
		metrics: &Metrics{},
		ctx:     ctx,
		cancel:  cancel,
		done:    make(chan struct{}),
	}, nil
}

// Cache returns the loop's frame cache.
func (l *Loop) Cache() *FrameCache { return l.cache }

// Metrics returns the loop's counters.
func (l *Loop) Metrics() *Metrics { return l.metrics }

// State returns the current connection state.
func (l *Loop) State() ConnectionState { return l.state.load() }

// Start launches the background worker. The call returns immediately;
// connection proceeds asynchronously.
func (l *Loop) Start() {
	l.startOnce.Do(func() {
		l.started.Store(true)
		go l.run()
	})
}

// Stop signals the loop to exit and waits until the source connection is
// released. Safe to call more than once.
func (l *Loop) Stop() {
	l.stopOnce.Do(func() {
		l.state.store(StateStopping)
		l.cancel()
	})
	if l.started.Load() {
		<-l.done
	}
}

// Wait blocks until the loop exits and returns its terminal error: nil
// after an explicit stop, a ConnectError when a bounded policy ran out of
// attempts.
func (l *Loop) Wait() error {
	<-l.done
	return l.err
}

func (l *Loop) run() {
	defer close(l.done)
	l.startedAt = l.clock.Now()

	interval := time.Second / time.Duration(l.cfg.TargetFPS)
	attempts := 0

	for {
		if l.ctx.Err() != nil {
			l.state.store(StateStopping)
			return
		}

		l.state.store(StateConnecting)
		src, err := l.connect()
		if err != nil {
			l.state.store(StateDisconnected)
			l.metrics.SetConnected(false)

			attempts++
			l.logger.Warn("connection attempt failed",
				zap.Int("attempt", attempts),
				zap.Error(err),
			)

			if l.policy.MaxAttempts > 0 && attempts >= l.policy.MaxAttempts {
				l.logger.Error("max connection attempts reached, giving up",
					zap.Int("attempts", attempts),
				)
				l.err = err
				l.state.store(StateStopping)
				return
			}

			select {
			case <-l.clock.After(l.policy.delay()):
			case <-l.ctx.Done():
			}
			continue
		}

		attempts = 0
		l.state.store(StateConnected)
		l.metrics.SetConnected(true)
		l.logger.Info("camera connected")

		l.consume(src, interval)

		src.Close()
		l.metrics.SetConnected(false)

		if l.ctx.Err() != nil {
			l.state.store(StateStopping)
			l.logger.Info("acquisition loop stopped")
			return
		}

		l.state.store(StateDisconnected)
		l.logger.Warn("stream lost, reconnecting")
	}
}

// connect walks the candidate URIs in order and returns the first source
// that opens and decodes. Individual candidate failures are logged and the
// next candidate is tried; only total failure is an error.
func (l *Loop) connect() (video.FrameSource, error) {
	var lastErr error
	for i, uri := range l.uris {
		src, err := l.dialer.Open(l.ctx, uri)
		if err != nil {
			l.logger.Debug("candidate failed",
				zap.Int("candidate", i+1),
				zap.Int("total", len(l.uris)),
				zap.String("url", camera.MaskedURL(uri)),
				zap.Error(err),
			)
			lastErr = err
			if l.ctx.Err() != nil {
				break
			}
			continue
		}
		return src, nil
	}
	return nil, &camera.ConnectError{CameraID: l.cfg.ID, Attempts: len(l.uris), Last: lastErr}
}

// consume pulls frames until a read fails or the loop is stopped.
func (l *Loop) consume(src video.FrameSource, interval time.Duration) {
	for {
		if l.ctx.Err() != nil {
			return
		}

		frame, err := src.Read()
		if err != nil {
			if l.ctx.Err() == nil {
				readErr := &camera.ReadError{Cause: err}
				l.logger.Warn("frame read failed", zap.Error(readErr))
			}
			return
		}

		frame.Image = video.Annotate(
			video.Normalize(frame.Image, l.cfg.MaxWidth),
			l.cfg.Name,
			l.metrics.FPS(),
		)

		l.seq++
		frame.Seq = l.seq

		count := l.metrics.AddFrame()
		if count%fpsWindow == 0 {
			if elapsed := l.clock.Now().Sub(l.startedAt).Seconds(); elapsed > 0 {
				l.metrics.SetFPS(float64(count) / elapsed)
			}
		}

		l.cache.Publish(frame)

		select {
		case <-l.clock.After(interval):
		case <-l.ctx.Done():
			return
		}
	}
}

// atomicState wraps the int32 store so state reads never tear.
type atomicState struct {
	v atomic.Int32
}

func (s *atomicState) load() ConnectionState {
	return ConnectionState(s.v.Load())
}

func (s *atomicState) store(st ConnectionState) {
	s.v.Store(int32(st))
}
