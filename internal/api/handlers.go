package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/yourusername/camstream/internal/camera"
	"github.com/yourusername/camstream/internal/database"
	"go.uber.org/zap"
)

type cameraRequest struct {
	ID       string `json:"id"`
	Name     string `json:"name" binding:"required"`
	Host     string `json:"host" binding:"required"`
	Port     int    `json:"port"`
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
	Quality  string `json:"quality"`
}

type cameraUpdateRequest struct {
	Name     *string `json:"name"`
	Host     *string `json:"host"`
	Port     *int    `json:"port"`
	Username *string `json:"username"`
	Password *string `json:"password"`
	Quality  *string `json:"quality"`
}

// streamConfig maps a stored camera record onto a stream configuration,
// filling in the server-wide defaults.
func (s *Server) streamConfig(cam *database.Camera) camera.Config {
	return camera.Config{
		ID:        cam.ID,
		Name:      cam.Name,
		Host:      cam.Host,
		Port:      cam.Port,
		Username:  cam.Username,
		Password:  cam.Password,
		Quality:   camera.Quality(cam.Quality),
		TargetFPS: s.defaults.TargetFPS,
		MaxWidth:  s.defaults.MaxWidth,
	}
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"time":    time.Now().UTC(),
		"uptime":  time.Since(s.startedAt).String(),
		"streams": s.manager.ListAll(),
	})
}

func (s *Server) handleListCameras(c *gin.Context) {
	cameras, err := s.cameras.List()
	if err != nil {
		s.logger.Error("Failed to list cameras", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list cameras"})
		return
	}

	if cameras == nil {
		cameras = []*database.Camera{}
	}
	c.JSON(http.StatusOK, gin.H{"cameras": cameras})
}

func (s *Server) handleGetCamera(c *gin.Context) {
	cam, err := s.cameras.Get(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}

	status, running := s.manager.Status(cam.ID)
	c.JSON(http.StatusOK, gin.H{
		"camera":  cam,
		"running": running,
		"status":  status,
	})
}

func (s *Server) handleCreateCamera(c *gin.Context) {
	var req cameraRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if req.ID == "" {
		req.ID = uuid.New().String()
	}
	if req.Port == 0 {
		req.Port = 554
	}
	if req.Quality == "" {
		req.Quality = string(camera.QualitySub)
	}

	cam := &database.Camera{
		ID:       req.ID,
		Name:     req.Name,
		Host:     req.Host,
		Port:     req.Port,
		Username: req.Username,
		Password: req.Password,
		Quality:  req.Quality,
	}

	cfg := s.streamConfig(cam)
	if err := cfg.Validate(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if exists, err := s.cameras.Exists(cam.ID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to check camera"})
		return
	} else if exists {
		c.JSON(http.StatusConflict, gin.H{"error": fmt.Sprintf("camera %s already exists", cam.ID)})
		return
	}

	if err := s.cameras.Create(cam); err != nil {
		s.logger.Error("Failed to create camera", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create camera"})
		return
	}

	if err := s.manager.Start(cfg); err != nil {
		s.logger.Warn("Camera saved but stream did not start",
			zap.String("camera_id", cam.ID),
			zap.Error(err),
		)
	}

	c.JSON(http.StatusCreated, gin.H{"camera": cam})
}

func (s *Server) handleUpdateCamera(c *gin.Context) {
	cam, err := s.cameras.Get(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}

	var req cameraUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if req.Name != nil {
		cam.Name = *req.Name
	}
	if req.Host != nil {
		cam.Host = *req.Host
	}
	if req.Port != nil {
		cam.Port = *req.Port
	}
	if req.Username != nil {
		cam.Username = *req.Username
	}
	if req.Password != nil {
		cam.Password = *req.Password
	}
	if req.Quality != nil {
		cam.Quality = *req.Quality
	}

	cfg := s.streamConfig(cam)
	if err := cfg.Validate(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := s.cameras.Update(cam); err != nil {
		s.logger.Error("Failed to update camera", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update camera"})
		return
	}

	// Restart the stream so the new credentials take effect
	s.manager.Stop(cam.ID)
	if cam.IsActive {
		if err := s.manager.Start(cfg); err != nil {
			s.logger.Warn("Camera updated but stream did not restart",
				zap.String("camera_id", cam.ID),
				zap.Error(err),
			)
		}
	}

	c.JSON(http.StatusOK, gin.H{"camera": cam})
}

func (s *Server) handleDeleteCamera(c *gin.Context) {
	id := c.Param("id")

	if err := s.cameras.Delete(id); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}

	s.manager.Stop(id)

	c.JSON(http.StatusOK, gin.H{"message": fmt.Sprintf("camera %s deleted", id)})
}

// handleStream serves the camera feed as a multipart JPEG stream. The
// response stays open until the viewer disconnects or the server stops.
func (s *Server) handleStream(c *gin.Context) {
	id := c.Param("id")

	pub, ok := s.manager.Publisher(id)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": fmt.Sprintf("stream %s not found", id)})
		return
	}

	c.Header("Content-Type", "multipart/x-mixed-replace; boundary=frame")
	c.Header("Cache-Control", "no-cache, no-store, must-revalidate")
	c.Header("Pragma", "no-cache")
	c.Header("Connection", "close")

	if err := pub.Serve(c.Request.Context(), c.Writer); err != nil && !errors.Is(err, context.Canceled) {
		s.logger.Debug("Viewer disconnected",
			zap.String("camera_id", id),
			zap.Error(err),
		)
	}
}

func (s *Server) handleSnapshot(c *gin.Context) {
	id := c.Param("id")

	data, err := s.manager.Snapshot(id)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}

	c.Data(http.StatusOK, "image/jpeg", data)
}

// handleSaveSnapshot captures the current frame to a file under the
// snapshot directory and returns its path.
func (s *Server) handleSaveSnapshot(c *gin.Context) {
	id := c.Param("id")

	data, err := s.manager.Snapshot(id)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}

	if err := os.MkdirAll(s.snapshotDir, 0755); err != nil {
		s.logger.Error("Failed to create snapshot directory", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to save snapshot"})
		return
	}

	name := fmt.Sprintf("%s_%s.jpg", sanitizeFilename(id), time.Now().Format("20060102_150405"))
	path := filepath.Join(s.snapshotDir, name)

	if err := os.WriteFile(path, data, 0644); err != nil {
		s.logger.Error("Failed to write snapshot", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to save snapshot"})
		return
	}

	s.logger.Info("Snapshot saved",
		zap.String("camera_id", id),
		zap.String("path", path),
	)

	c.JSON(http.StatusCreated, gin.H{"path": path})
}

func sanitizeFilename(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		case r == '-' || r == '_':
			return r
		default:
			return '_'
		}
	}, s)
}
