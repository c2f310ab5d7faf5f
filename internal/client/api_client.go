package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Camera mirrors the camera record returned by the bridge API.
type Camera struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Host     string `json:"host"`
	Port     int    `json:"port"`
	Username string `json:"username"`
	Quality  string `json:"quality"`
	IsActive bool   `json:"is_active"`
}

// CameraRequest is the payload for creating a camera.
type CameraRequest struct {
	ID       string `json:"id,omitempty"`
	Name     string `json:"name"`
	Host     string `json:"host"`
	Port     int    `json:"port,omitempty"`
	Username string `json:"username"`
	Password string `json:"password"`
	Quality  string `json:"quality,omitempty"`
}

// StreamStatus mirrors one entry of the health endpoint's stream list.
type StreamStatus struct {
	ID        string  `json:"id"`
	Name      string  `json:"name"`
	Connected bool    `json:"connected"`
	FPS       float64 `json:"fps"`
}

// Health is the bridge health report.
type Health struct {
	Status  string         `json:"status"`
	Uptime  string         `json:"uptime"`
	Streams []StreamStatus `json:"streams"`
}

// APIClient talks to a running camera bridge over HTTP.
type APIClient struct {
	baseURL    string
	httpClient *http.Client
}

// NewAPIClient creates a client for the bridge at baseURL.
func NewAPIClient(baseURL string) *APIClient {
	return &APIClient{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// Health fetches the bridge health report.
func (c *APIClient) Health(ctx context.Context) (*Health, error) {
	var health Health
	if err := c.getJSON(ctx, "/api/health", &health); err != nil {
		return nil, err
	}
	return &health, nil
}

// ListCameras retrieves all stored cameras.
func (c *APIClient) ListCameras(ctx context.Context) ([]Camera, error) {
	var response struct {
		Cameras []Camera `json:"cameras"`
	}
	if err := c.getJSON(ctx, "/api/cameras", &response); err != nil {
		return nil, err
	}
	return response.Cameras, nil
}

// GetCamera retrieves one camera by id.
func (c *APIClient) GetCamera(ctx context.Context, id string) (*Camera, error) {
	var response struct {
		Camera Camera `json:"camera"`
	}
	if err := c.getJSON(ctx, "/api/cameras/"+id, &response); err != nil {
		return nil, err
	}
	return &response.Camera, nil
}

// CreateCamera stores a camera and starts its stream.
func (c *APIClient) CreateCamera(ctx context.Context, req CameraRequest) (*Camera, error) {
	jsonData, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal camera: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"/api/cameras", bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("create camera failed with status %d: %s", resp.StatusCode, string(body))
	}

	var response struct {
		Camera Camera `json:"camera"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	return &response.Camera, nil
}

// DeleteCamera removes a camera and stops its stream.
func (c *APIClient) DeleteCamera(ctx context.Context, id string) error {
	req, err := http.NewRequestWithContext(ctx, "DELETE", c.baseURL+"/api/cameras/"+id, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("delete camera failed with status %d: %s", resp.StatusCode, string(body))
	}

	return nil
}

// Snapshot fetches the camera's current frame as JPEG bytes.
func (c *APIClient) Snapshot(ctx context.Context, id string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", c.baseURL+"/api/snapshot/"+id, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("snapshot failed with status %d: %s", resp.StatusCode, string(body))
	}

	return io.ReadAll(resp.Body)
}

func (c *APIClient) getJSON(ctx context.Context, path string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, "GET", c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("request %s failed with status %d: %s", path, resp.StatusCode, string(body))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	return nil
}
