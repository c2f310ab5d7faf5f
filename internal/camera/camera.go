package camera

import (
	"fmt"
	"net/url"
)

// Quality selects the camera-side stream variant.
type Quality string

const (
	QualityMain Quality = "main" // high bandwidth
	QualitySub  Quality = "sub"  // low bandwidth, tried by default
)

// Config holds the connection parameters of one camera. It is immutable for
// the lifetime of a stream: the manager takes a snapshot at start time and a
// changed record requires a stop/start cycle.
type Config struct {
	ID       string
	Name     string
	Host     string
	Port     int
	Username string
	Password string

	Quality   Quality
	TargetFPS int
	MaxWidth  int
}

// Validate checks the parameters needed to build candidate URIs.
func (c Config) Validate() error {
	if c.ID == "" {
		return &ConfigError{Field: "id", Reason: "must not be empty"}
	}
	if c.Host == "" {
		return &ConfigError{Field: "host", Reason: "must not be empty"}
	}
	if c.Port <= 0 || c.Port > 65535 {
		return &ConfigError{Field: "port", Reason: fmt.Sprintf("invalid port %d", c.Port)}
	}
	if c.TargetFPS <= 0 {
		return &ConfigError{Field: "target_fps", Reason: "must be positive"}
	}
	if c.MaxWidth <= 0 {
		return &ConfigError{Field: "max_width", Reason: "must be positive"}
	}
	switch c.Quality {
	case QualityMain, QualitySub:
	default:
		return &ConfigError{Field: "quality", Reason: fmt.Sprintf("unknown tier %q", c.Quality)}
	}
	return nil
}

// MaskedURL masks the password portion of an RTSP URL for logging.
func MaskedURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return "***"
	}
	if u.User != nil {
		u.User = url.UserPassword(u.User.Username(), "***")
	}
	return u.String()
}
