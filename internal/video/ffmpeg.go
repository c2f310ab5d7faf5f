package video

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"image/jpeg"
	"io"
	"os/exec"
	"sync"
	"time"

	"go.uber.org/zap"
)

const (
	// jpegSOI / jpegEOI delimit one JPEG image inside the MJPEG pipe.
	jpegSOI = "\xff\xd8"
	jpegEOI = "\xff\xd9"

	// maxFrameBytes bounds scanner memory when the pipe carries garbage.
	maxFrameBytes = 10 * 1024 * 1024
)

// FFmpegDialer opens camera streams by spawning an ffmpeg process that
// converts the RTSP elementary stream into an MJPEG pipe. Decoding is fully
// delegated to the subprocess; this package only scans and parses the JPEG
// images it emits.
type FFmpegDialer struct {
	// Binary is the ffmpeg executable, "ffmpeg" when empty.
	Binary string

	// TargetFPS caps the intrinsic acquisition rate of the pipe. Zero
	// leaves the source rate untouched.
	TargetFPS int

	// OpenTimeout bounds how long Open waits for the first decodable
	// frame. Zero means 10 seconds.
	OpenTimeout time.Duration

	// Probe, when set, is consulted before a process is spawned so dead
	// candidates fail fast instead of eating the full open timeout.
	Probe Prober

	Logger *zap.Logger
}

// Open spawns ffmpeg for uri and waits for the first decodable frame.
func (d *FFmpegDialer) Open(ctx context.Context, uri string) (FrameSource, error) {
	if d.Probe != nil {
		if err := d.Probe.Probe(ctx, uri); err != nil {
			return nil, fmt.Errorf("rtsp probe failed: %w", err)
		}
	}

	binary := d.Binary
	if binary == "" {
		binary = "ffmpeg"
	}
	openTimeout := d.OpenTimeout
	if openTimeout == 0 {
		openTimeout = 10 * time.Second
	}

	args := []string{
		"-rtsp_transport", "tcp",
		"-fflags", "nobuffer",
		"-flags", "low_delay",
		"-i", uri,
	}
	if d.TargetFPS > 0 {
		args = append(args, "-vf", fmt.Sprintf("fps=%d", d.TargetFPS))
	}
	args = append(args,
		"-f", "image2pipe",
		"-c:v", "mjpeg",
		"-q:v", "5",
		"-an",
		"pipe:1",
	)

	cmd := exec.CommandContext(ctx, binary, args...)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to get stdout pipe: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to get stderr pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("failed to start %s: %w", binary, err)
	}

	if d.Logger != nil {
		go logStderr(d.Logger, stderr)
	} else {
		go io.Copy(io.Discard, stderr)
	}

	src := &ffmpegSource{
		cmd:    cmd,
		stdout: stdout,
		pool:   make([]byte, 0, 64*1024),
	}

	// The open call succeeds only once one frame decodes. A timer guards
	// against streams that connect but never produce usable output.
	first, err := src.readFirst(openTimeout)
	if err != nil {
		src.Close()
		return nil, err
	}
	src.first = first

	return src, nil
}

func logStderr(l *zap.Logger, r io.Reader) {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		l.Debug("ffmpeg", zap.String("line", scanner.Text()))
	}
}

// ffmpegSource wraps a running ffmpeg process emitting an MJPEG byte
// stream on stdout.
type ffmpegSource struct {
	cmd    *exec.Cmd
	stdout io.ReadCloser

	first *Frame // frame decoded during Open, handed out on the next Read

	pool []byte // scanner carry-over between reads

	closeOnce sync.Once
	closeErr  error
}

// Read returns the next decoded frame from the pipe.
func (s *ffmpegSource) Read() (*Frame, error) {
	if f := s.first; f != nil {
		s.first = nil
		return f, nil
	}

	data, err := s.nextJPEG()
	if err != nil {
		return nil, err
	}
	img, err := jpeg.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("jpeg decode: %w", err)
	}
	return &Frame{Image: img, CapturedAt: time.Now()}, nil
}

// readFirst performs the initial read with its own deadline: the process is
// killed if no decodable frame shows up in time.
func (s *ffmpegSource) readFirst(timeout time.Duration) (*Frame, error) {
	timer := time.AfterFunc(timeout, func() {
		s.cmd.Process.Kill()
	})
	defer timer.Stop()

	frame, err := s.Read()
	if err != nil {
		return nil, fmt.Errorf("no decodable frame within %s: %w", timeout, err)
	}
	return frame, nil
}

// nextJPEG scans the pipe for the next SOI..EOI image.
func (s *ffmpegSource) nextJPEG() ([]byte, error) {
	buf := make([]byte, 32*1024)
	for {
		start := bytes.Index(s.pool, []byte(jpegSOI))
		if start >= 0 {
			if end := bytes.Index(s.pool[start:], []byte(jpegEOI)); end >= 0 {
				end += start + len(jpegEOI)
				frame := make([]byte, end-start)
				copy(frame, s.pool[start:end])
				s.pool = s.pool[:copy(s.pool, s.pool[end:])]
				return frame, nil
			}
		}
		if len(s.pool) > maxFrameBytes {
			return nil, fmt.Errorf("no frame boundary within %d bytes", maxFrameBytes)
		}

		n, err := s.stdout.Read(buf)
		if n > 0 {
			s.pool = append(s.pool, buf[:n]...)
		}
		if err != nil {
			return nil, err
		}
	}
}

// Close kills the ffmpeg process and reaps it. Safe to call more than once.
func (s *ffmpegSource) Close() error {
	s.closeOnce.Do(func() {
		if s.cmd.Process != nil {
			_ = s.cmd.Process.Kill()
		}
		s.closeErr = s.cmd.Wait()
	})
	return s.closeErr
}
