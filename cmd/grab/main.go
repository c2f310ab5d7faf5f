package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/yourusername/camstream/internal/camera"
	"github.com/yourusername/camstream/internal/video"
	"github.com/yourusername/camstream/pkg/logger"
	"go.uber.org/zap"
)

// grab connects to a camera, captures a single frame and writes it as a
// JPEG file. Unlike the server it gives up after a bounded number of
// attempts, so scripted use fails fast instead of retrying forever.
func main() {
	var (
		host     = flag.String("host", "", "camera host")
		port     = flag.Int("port", 554, "camera RTSP port")
		username = flag.String("username", "", "camera username")
		password = flag.String("password", "", "camera password")
		quality  = flag.String("quality", "sub", "stream quality (main or sub)")
		output   = flag.String("output", "snapshot.jpg", "output file path")
		maxWidth = flag.Int("max-width", 1280, "maximum frame width")
		jpegQ    = flag.Int("jpeg-quality", 80, "JPEG encode quality")
		attempts = flag.Int("attempts", 5, "connection attempts before giving up")
		delay    = flag.Duration("delay", 3*time.Second, "delay between attempts")
		timeout  = flag.Duration("timeout", 10*time.Second, "per-attempt open timeout")
		verbose  = flag.Bool("verbose", false, "enable debug logging")
	)
	flag.Parse()

	level := "warn"
	if *verbose {
		level = "debug"
	}
	if err := logger.Init(logger.Config{Level: level, Output: "console"}); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	cfg := camera.Config{
		ID:        "grab",
		Name:      "grab",
		Host:      *host,
		Port:      *port,
		Username:  *username,
		Password:  *password,
		Quality:   camera.Quality(*quality),
		TargetFPS: 1,
		MaxWidth:  *maxWidth,
	}

	uris, err := camera.Resolve(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Invalid camera settings: %v\n", err)
		os.Exit(2)
	}

	dialer := &video.FFmpegDialer{
		OpenTimeout: *timeout,
		Logger:      logger.Log,
	}

	frame, err := grabFrame(dialer, uris, *attempts, *delay)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Capture failed: %v\n", err)
		os.Exit(1)
	}

	encoder := &video.JPEGEncoder{Quality: *jpegQ}
	data, err := encoder.Encode(video.Normalize(frame.Image, *maxWidth))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Encode failed: %v\n", err)
		os.Exit(1)
	}

	if err := os.WriteFile(*output, data, 0644); err != nil {
		fmt.Fprintf(os.Stderr, "Write failed: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Saved %s (%d bytes)\n", *output, len(data))
}

// grabFrame tries each candidate address in turn, up to maxAttempts rounds.
func grabFrame(dialer video.Dialer, uris []string, maxAttempts int, delay time.Duration) (*video.Frame, error) {
	var lastErr error

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		for _, uri := range uris {
			src, err := dialer.Open(context.Background(), uri)
			if err != nil {
				logger.Debug("Connection attempt failed",
					zap.String("uri", camera.MaskedURL(uri)),
					zap.Int("attempt", attempt),
					zap.Error(err),
				)
				lastErr = err
				continue
			}

			frame, err := src.Read()
			src.Close()
			if err != nil {
				lastErr = err
				continue
			}
			return frame, nil
		}

		if attempt < maxAttempts {
			logger.Warn("All addresses failed, retrying",
				zap.Int("attempt", attempt),
				zap.Duration("delay", delay),
			)
			time.Sleep(delay)
		}
	}

	return nil, fmt.Errorf("no frame after %d attempts: %w", maxAttempts, lastErr)
}
