package video

import "context"

// FrameSource is an established connection to one camera. Implementations
// own the underlying capture handle; Read pulls the next decoded frame and
// Close releases the connection. Close is idempotent.
type FrameSource interface {
	Read() (*Frame, error)
	Close() error
}

// Dialer opens a FrameSource for a single candidate URI. Open must return
// only once the connection is established and one decodable frame arrived;
// a URI that connects but never decodes is a failed candidate.
//
// The context bounds the whole open attempt and, once the source is
// returned, cancelling it must interrupt any blocked Read so shutdown
// completes within a bounded time.
type Dialer interface {
	Open(ctx context.Context, uri string) (FrameSource, error)
}
