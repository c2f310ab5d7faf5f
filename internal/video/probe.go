package video

import (
	"context"
	"fmt"
	"time"

	"github.com/bluenviron/gortsplib/v4"
	"github.com/bluenviron/gortsplib/v4/pkg/base"
)

// Prober answers whether a candidate RTSP URI is worth handing to a decoder
// process. A failed probe is not fatal to the camera, only to the candidate.
type Prober interface {
	Probe(ctx context.Context, uri string) error
}

// RTSPProber performs an RTSP DESCRIBE against the candidate URI with a
// short deadline. It never pulls media; it only confirms the endpoint
// speaks RTSP and announces at least one stream.
type RTSPProber struct {
	// Timeout bounds the whole probe. Zero means 5 seconds.
	Timeout time.Duration
}

func (p *RTSPProber) Probe(ctx context.Context, uri string) error {
	timeout := p.Timeout
	if timeout == 0 {
		timeout = 5 * time.Second
	}

	u, err := base.ParseURL(uri)
	if err != nil {
		return fmt.Errorf("failed to parse RTSP URL: %w", err)
	}

	client := &gortsplib.Client{
		ReadTimeout:  timeout,
		WriteTimeout: timeout,
	}

	if err := client.Start(u.Scheme, u.Host); err != nil {
		return fmt.Errorf("failed to connect: %w", err)
	}
	defer client.Close()

	done := make(chan error, 1)
	go func() {
		desc, _, err := client.Describe(u)
		if err != nil {
			done <- fmt.Errorf("describe failed: %w", err)
			return
		}
		if len(desc.Medias) == 0 {
			done <- fmt.Errorf("endpoint announced no media")
			return
		}
		done <- nil
	}()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}
