package database

import (
	"database/sql"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// Camera is a stored camera record. Password never leaves the server in
// API responses; the json tag omits it.
type Camera struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Host      string    `json:"host"`
	Port      int       `json:"port"`
	Username  string    `json:"username"`
	Password  string    `json:"-"`
	Quality   string    `json:"quality"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// CameraRepository is the camera data access layer. Deletes are soft:
// rows are flagged inactive so credentials survive accidental removal.
type CameraRepository struct {
	db     *DB
	logger *zap.Logger
}

// NewCameraRepository creates a repository over db.
func NewCameraRepository(db *DB, logger *zap.Logger) *CameraRepository {
	return &CameraRepository{
		db:     db,
		logger: logger,
	}
}

// Create inserts a new camera record.
func (r *CameraRepository) Create(cam *Camera) error {
	query := `
		INSERT INTO cameras (id, name, host, port, username, password, quality, is_active, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	now := time.Now()
	cam.CreatedAt = now
	cam.UpdatedAt = now
	cam.IsActive = true

	_, err := r.db.Conn().Exec(
		query,
		cam.ID,
		cam.Name,
		cam.Host,
		cam.Port,
		cam.Username,
		cam.Password,
		cam.Quality,
		cam.IsActive,
		cam.CreatedAt,
		cam.UpdatedAt,
	)

	if err != nil {
		return fmt.Errorf("failed to create camera: %w", err)
	}

	r.logger.Info("Camera created",
		zap.String("id", cam.ID),
		zap.String("name", cam.Name),
	)

	return nil
}

// Get returns the camera with the given id, active or not.
func (r *CameraRepository) Get(id string) (*Camera, error) {
	query := `
		SELECT id, name, host, port, username, password, quality, is_active, created_at, updated_at
		FROM cameras
		WHERE id = ?
	`

	cam := &Camera{}
	err := r.db.Conn().QueryRow(query, id).Scan(
		&cam.ID,
		&cam.Name,
		&cam.Host,
		&cam.Port,
		&cam.Username,
		&cam.Password,
		&cam.Quality,
		&cam.IsActive,
		&cam.CreatedAt,
		&cam.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("camera not found: %s", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get camera: %w", err)
	}

	return cam, nil
}

// List returns all cameras, newest first.
func (r *CameraRepository) List() ([]*Camera, error) {
	return r.query(`
		SELECT id, name, host, port, username, password, quality, is_active, created_at, updated_at
		FROM cameras
		ORDER BY created_at DESC
	`)
}

// ListActive returns only cameras whose streams should be running.
func (r *CameraRepository) ListActive() ([]*Camera, error) {
	return r.query(`
		SELECT id, name, host, port, username, password, quality, is_active, created_at, updated_at
		FROM cameras
		WHERE is_active = 1
		ORDER BY created_at DESC
	`)
}

func (r *CameraRepository) query(query string) ([]*Camera, error) {
	rows, err := r.db.Conn().Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to query cameras: %w", err)
	}
	defer rows.Close()

	var cameras []*Camera
	for rows.Next() {
		cam := &Camera{}
		err := rows.Scan(
			&cam.ID,
			&cam.Name,
			&cam.Host,
			&cam.Port,
			&cam.Username,
			&cam.Password,
			&cam.Quality,
			&cam.IsActive,
			&cam.CreatedAt,
			&cam.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan camera: %w", err)
		}
		cameras = append(cameras, cam)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating cameras: %w", err)
	}

	return cameras, nil
}

// Update overwrites the mutable fields of an existing camera.
func (r *CameraRepository) Update(cam *Camera) error {
	query := `
		UPDATE cameras
		SET name = ?, host = ?, port = ?, username = ?, password = ?, quality = ?, is_active = ?, updated_at = ?
		WHERE id = ?
	`

	cam.UpdatedAt = time.Now()

	result, err := r.db.Conn().Exec(
		query,
		cam.Name,
		cam.Host,
		cam.Port,
		cam.Username,
		cam.Password,
		cam.Quality,
		cam.IsActive,
		cam.UpdatedAt,
		cam.ID,
	)

	if err != nil {
		return fmt.Errorf("failed to update camera: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return fmt.Errorf("camera not found: %s", cam.ID)
	}

	r.logger.Info("Camera updated",
		zap.String("id", cam.ID),
		zap.String("name", cam.Name),
	)

	return nil
}

// Delete marks the camera inactive.
func (r *CameraRepository) Delete(id string) error {
	query := `UPDATE cameras SET is_active = 0, updated_at = ? WHERE id = ? AND is_active = 1`

	result, err := r.db.Conn().Exec(query, time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to delete camera: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return fmt.Errorf("camera not found: %s", id)
	}

	r.logger.Info("Camera deleted",
		zap.String("id", id),
	)

	return nil
}

// Exists reports whether any camera row with the id is present, including
// soft-deleted ones. The id stays reserved after Delete, so callers must
// treat it as taken rather than insert over the primary key.
func (r *CameraRepository) Exists(id string) (bool, error) {
	query := `SELECT COUNT(*) FROM cameras WHERE id = ?`

	var count int
	err := r.db.Conn().QueryRow(query, id).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("failed to check camera existence: %w", err)
	}

	return count > 0, nil
}
