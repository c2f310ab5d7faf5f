package stream

import (
	"fmt"
	"sync"
	"time"

	"github.com/yourusername/camstream/internal/camera"
	"github.com/yourusername/camstream/internal/video"
	"go.uber.org/zap"
)

// Manager is the process-wide registry of camera streams. It is the sole
// mutator of the registry; the HTTP and CRUD layers interact only through
// Start, Stop, Status and ListAll. No ambient globals: independent Manager
// instances coexist, which is what tests rely on.
type Manager struct {
	logger  *zap.Logger
	dialer  video.Dialer
	encoder video.Encoder
	policy  RetryPolicy
	clock   Clock

	mu      sync.RWMutex
	entries map[string]*entry
}

type entry struct {
	cfg  camera.Config
	loop *Loop
}

// Status is the externally visible health of one stream.
type Status struct {
	ID        string  `json:"id"`
	Name      string  `json:"name"`
	Connected bool    `json:"connected"`
	FPS       float64 `json:"fps"`
}

// ManagerConfig wires the manager's collaborators.
type ManagerConfig struct {
	Logger  *zap.Logger
	Dialer  video.Dialer
	Encoder video.Encoder

	// Policy applies to every acquisition loop. The zero value retries
	// forever at 3 second intervals, the behavior a long-running server
	// wants.
	Policy RetryPolicy

	// Clock defaults to the wall clock.
	Clock Clock
}

// NewManager creates an empty stream registry.
func NewManager(cfg ManagerConfig) *Manager {
	clock := cfg.Clock
	if clock == nil {
		clock = RealClock()
	}
	encoder := cfg.Encoder
	if encoder == nil {
		encoder = &video.JPEGEncoder{}
	}

	return &Manager{
		logger:  cfg.Logger,
		dialer:  cfg.Dialer,
		encoder: encoder,
		policy:  cfg.Policy,
		clock:   clock,
		entries: make(map[string]*entry),
	}
}

// Start registers the camera and launches its acquisition loop. It returns
// immediately: connection proceeds in the background, so API responsiveness
// does not depend on camera reachability. A malformed config or duplicate
// id fails without creating a stream.
func (m *Manager) Start(cfg camera.Config) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.entries[cfg.ID]; exists {
		return fmt.Errorf("stream %s already exists", cfg.ID)
	}

	loop, err := NewLoop(cfg, m.dialer, m.policy, m.clock, m.logger)
	if err != nil {
		return err
	}

	m.entries[cfg.ID] = &entry{cfg: cfg, loop: loop}
	loop.Start()

	m.logger.Info("stream started",
		zap.String("camera_id", cfg.ID),
		zap.String("name", cfg.Name),
	)
	return nil
}

// Stop signals the camera's loop to exit, waits for the source connection
// to be released, and removes the registry entry. Stopping an absent camera
// is a no-op, so repeated stops are safe.
func (m *Manager) Stop(cameraID string) {
	m.mu.Lock()
	e, exists := m.entries[cameraID]
	if exists {
		delete(m.entries, cameraID)
	}
	m.mu.Unlock()

	if !exists {
		return
	}

	e.loop.Stop()
	m.logger.Info("stream stopped", zap.String("camera_id", cameraID))
}

// Status reports the health of one stream. The second return value is false
// for cameras not in the registry; for present cameras a value is always
// returned.
func (m *Manager) Status(cameraID string) (Status, bool) {
	m.mu.RLock()
	e, exists := m.entries[cameraID]
	m.mu.RUnlock()

	if !exists {
		return Status{}, false
	}
	return statusOf(e), true
}

// ListAll returns a point-in-time snapshot of every registered stream.
func (m *Manager) ListAll() []Status {
	m.mu.RLock()
	defer m.mu.RUnlock()

	statuses := make([]Status, 0, len(m.entries))
	for _, e := range m.entries {
		statuses = append(statuses, statusOf(e))
	}
	return statuses
}

func statusOf(e *entry) Status {
	return Status{
		ID:        e.cfg.ID,
		Name:      e.cfg.Name,
		Connected: e.loop.Metrics().Connected(),
		FPS:       e.loop.Metrics().FPS(),
	}
}

// Publisher builds a per-viewer delivery loop over the camera's frame
// cache. The bool is false for unknown cameras.
func (m *Manager) Publisher(cameraID string) (*Publisher, bool) {
	m.mu.RLock()
	e, exists := m.entries[cameraID]
	m.mu.RUnlock()

	if !exists {
		return nil, false
	}

	return &Publisher{
		cameraName: e.cfg.Name,
		cache:      e.loop.Cache(),
		encoder:    m.encoder,
		interval:   time.Second / time.Duration(e.cfg.TargetFPS),
		clock:      m.clock,
		logger:     m.logger.With(zap.String("camera_id", cameraID)),
	}, true
}

// Snapshot encodes the camera's current frame (or its placeholder) as one
// JPEG image.
func (m *Manager) Snapshot(cameraID string) ([]byte, error) {
	m.mu.RLock()
	e, exists := m.entries[cameraID]
	m.mu.RUnlock()

	if !exists {
		return nil, fmt.Errorf("stream %s not found", cameraID)
	}

	if frame, ok := e.loop.Cache().Get(); ok {
		return m.encoder.Encode(frame.Image)
	}
	return m.encoder.Encode(video.Placeholder(e.cfg.Name))
}

// Close stops every stream and empties the registry.
func (m *Manager) Close() {
	m.mu.Lock()
	entries := m.entries
	m.entries = make(map[string]*entry)
	m.mu.Unlock()

	for id, e := range entries {
		e.loop.Stop()
		m.logger.Info("stream stopped", zap.String("camera_id", id))
	}
}
