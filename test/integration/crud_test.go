package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"image/jpeg"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/yourusername/camstream/internal/api"
	"github.com/yourusername/camstream/internal/client"
	"github.com/yourusername/camstream/internal/database"
	"github.com/yourusername/camstream/internal/stream"
	"github.com/yourusername/camstream/internal/video"
)

// unreachableDialer fails every connection, so streams register but stay
// disconnected. CRUD behavior must not depend on camera reachability.
type unreachableDialer struct{}

func (unreachableDialer) Open(ctx context.Context, uri string) (video.FrameSource, error) {
	return nil, errors.New("no route to host")
}

type testEnv struct {
	server  *httptest.Server
	client  *client.APIClient
	manager *stream.Manager
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	logger := zap.NewNop()

	db, err := database.New(":memory:", logger)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	manager := stream.NewManager(stream.ManagerConfig{
		Logger: logger,
		Dialer: unreachableDialer{},
		Policy: stream.RetryPolicy{Delay: time.Millisecond},
	})
	t.Cleanup(manager.Close)

	apiServer := api.NewServer(api.ServerConfig{
		Production: true,
		Logger:     logger,
		Manager:    manager,
		Cameras:    database.NewCameraRepository(db, logger),
		Defaults: api.StreamDefaults{
			TargetFPS: 15,
			MaxWidth:  1280,
		},
		SnapshotDir: t.TempDir(),
	})

	server := httptest.NewServer(apiServer.Router())
	t.Cleanup(server.Close)

	return &testEnv{
		server:  server,
		client:  client.NewAPIClient(server.URL),
		manager: manager,
	}
}

func validRequest(id string) client.CameraRequest {
	return client.CameraRequest{
		ID:       id,
		Name:     "Front Gate",
		Host:     "192.168.0.10",
		Username: "admin",
		Password: "secret",
	}
}

func TestCameraCRUD(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	t.Run("Create", func(t *testing.T) {
		cam, err := env.client.CreateCamera(ctx, validRequest("test-1"))
		require.NoError(t, err)

		assert.Equal(t, "test-1", cam.ID)
		assert.Equal(t, "Front Gate", cam.Name)
		assert.Equal(t, 554, cam.Port)
		assert.Equal(t, "sub", cam.Quality)
		assert.True(t, cam.IsActive)

		// The stream registers immediately even though the camera is down
		_, running := env.manager.Status("test-1")
		assert.True(t, running)
	})

	t.Run("CreateGeneratesID", func(t *testing.T) {
		req := validRequest("")
		req.Name = "Generated"

		cam, err := env.client.CreateCamera(ctx, req)
		require.NoError(t, err)
		assert.NotEmpty(t, cam.ID)

		require.NoError(t, env.client.DeleteCamera(ctx, cam.ID))
	})

	t.Run("CreateDuplicate", func(t *testing.T) {
		_, err := env.client.CreateCamera(ctx, validRequest("test-1"))
		assert.Error(t, err)
	})

	t.Run("CreateMissingFields", func(t *testing.T) {
		req := validRequest("test-invalid")
		req.Host = ""

		_, err := env.client.CreateCamera(ctx, req)
		assert.Error(t, err)

		_, running := env.manager.Status("test-invalid")
		assert.False(t, running)
	})

	t.Run("Get", func(t *testing.T) {
		cam, err := env.client.GetCamera(ctx, "test-1")
		require.NoError(t, err)
		assert.Equal(t, "Front Gate", cam.Name)
	})

	t.Run("GetMissing", func(t *testing.T) {
		_, err := env.client.GetCamera(ctx, "no-such-camera")
		assert.Error(t, err)
	})

	t.Run("List", func(t *testing.T) {
		cams, err := env.client.ListCameras(ctx)
		require.NoError(t, err)
		require.Len(t, cams, 2)
	})

	t.Run("Update", func(t *testing.T) {
		body, err := json.Marshal(map[string]string{"name": "Back Door"})
		require.NoError(t, err)

		req, err := http.NewRequest(http.MethodPut, env.server.URL+"/api/cameras/test-1", bytes.NewReader(body))
		require.NoError(t, err)
		req.Header.Set("Content-Type", "application/json")

		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		defer resp.Body.Close()
		require.Equal(t, http.StatusOK, resp.StatusCode)

		cam, err := env.client.GetCamera(ctx, "test-1")
		require.NoError(t, err)
		assert.Equal(t, "Back Door", cam.Name)

		// The stream restarted under the same id
		_, running := env.manager.Status("test-1")
		assert.True(t, running)
	})

	t.Run("Delete", func(t *testing.T) {
		require.NoError(t, env.client.DeleteCamera(ctx, "test-1"))

		// Soft delete keeps the record but stops the stream
		cam, err := env.client.GetCamera(ctx, "test-1")
		require.NoError(t, err)
		assert.False(t, cam.IsActive)

		_, running := env.manager.Status("test-1")
		assert.False(t, running)
	})

	t.Run("RecreateSoftDeletedID", func(t *testing.T) {
		// The id stays reserved by the soft-deleted row; recreating it is
		// a conflict, not a database error.
		body, err := json.Marshal(validRequest("test-1"))
		require.NoError(t, err)

		resp, err := http.Post(env.server.URL+"/api/cameras", "application/json", bytes.NewReader(body))
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusConflict, resp.StatusCode)
	})

	t.Run("DeleteMissing", func(t *testing.T) {
		assert.Error(t, env.client.DeleteCamera(ctx, "no-such-camera"))
	})
}

func TestHealthEndpoint(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.client.CreateCamera(ctx, validRequest("health-1"))
	require.NoError(t, err)

	health, err := env.client.Health(ctx)
	require.NoError(t, err)

	assert.Equal(t, "ok", health.Status)
	require.Len(t, health.Streams, 1)
	assert.Equal(t, "health-1", health.Streams[0].ID)
	assert.False(t, health.Streams[0].Connected)
}

func TestSnapshotEndpoint(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.client.CreateCamera(ctx, validRequest("snap-1"))
	require.NoError(t, err)

	t.Run("PlaceholderWhileDisconnected", func(t *testing.T) {
		data, err := env.client.Snapshot(ctx, "snap-1")
		require.NoError(t, err)

		img, err := jpeg.Decode(bytes.NewReader(data))
		require.NoError(t, err)
		assert.Equal(t, 640, img.Bounds().Dx())
		assert.Equal(t, 480, img.Bounds().Dy())
	})

	t.Run("UnknownCamera", func(t *testing.T) {
		_, err := env.client.Snapshot(ctx, "no-such-camera")
		assert.Error(t, err)
	})

	t.Run("SaveToFile", func(t *testing.T) {
		resp, err := http.Post(env.server.URL+"/api/cameras/snap-1/snapshot", "application/json", nil)
		require.NoError(t, err)
		defer resp.Body.Close()
		require.Equal(t, http.StatusCreated, resp.StatusCode)

		var result struct {
			Path string `json:"path"`
		}
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&result))
		assert.NotEmpty(t, result.Path)
	})
}

func TestStreamEndpointUnknownCamera(t *testing.T) {
	env := newTestEnv(t)

	resp, err := http.Get(env.server.URL + "/api/stream/no-such-camera")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}
