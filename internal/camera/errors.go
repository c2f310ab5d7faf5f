package camera

import "fmt"

// ConfigError reports malformed camera parameters. It is fatal to stream
// start: the stream is not created and the error is returned to the caller.
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid camera config: %s: %s", e.Field, e.Reason)
}

// ConnectError reports that every candidate URI failed. The acquisition loop
// recovers from it by retrying after the configured delay.
type ConnectError struct {
	CameraID string
	Attempts int
	Last     error
}

func (e *ConnectError) Error() string {
	return fmt.Sprintf("camera %s: all %d connection candidates failed: %v", e.CameraID, e.Attempts, e.Last)
}

func (e *ConnectError) Unwrap() error { return e.Last }

// ReadError reports a failed frame read on an established connection. The
// acquisition loop recovers from it by reconnecting.
type ReadError struct {
	Cause error
}

func (e *ReadError) Error() string { return fmt.Sprintf("frame read failed: %v", e.Cause) }

func (e *ReadError) Unwrap() error { return e.Cause }

// EncodeError reports a failed frame compression. The affected chunk is
// skipped and the publisher continues.
type EncodeError struct {
	Cause error
}

func (e *EncodeError) Error() string { return fmt.Sprintf("frame encode failed: %v", e.Cause) }

func (e *EncodeError) Unwrap() error { return e.Cause }
