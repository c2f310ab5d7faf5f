package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/yourusername/camstream/internal/api"
	"github.com/yourusername/camstream/internal/camera"
	"github.com/yourusername/camstream/internal/core"
	"github.com/yourusername/camstream/internal/database"
	"github.com/yourusername/camstream/internal/stream"
	"github.com/yourusername/camstream/internal/video"
	"github.com/yourusername/camstream/pkg/logger"
	"go.uber.org/zap"
)

const (
	defaultConfigPath = "configs/config.yaml"
	version           = "0.1.0"
)

func main() {
	configPath := flag.String("config", defaultConfigPath, "config file path")
	showVersion := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Printf("RTSP to MJPEG Camera Bridge v%s\n", version)
		fmt.Printf("Go version: %s\n", runtime.Version())
		fmt.Printf("OS/Arch: %s/%s\n", runtime.GOOS, runtime.GOARCH)
		os.Exit(0)
	}

	config, err := core.LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	if err := logger.Init(logger.Config{
		Level:      config.Logging.Level,
		Output:     config.Logging.Output,
		FilePath:   config.Logging.FilePath,
		MaxSize:    config.Logging.MaxSize,
		MaxBackups: config.Logging.MaxBackups,
		MaxAge:     config.Logging.MaxAge,
	}); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("Starting RTSP to MJPEG camera bridge",
		zap.String("version", version),
		zap.String("go_version", runtime.Version()),
		zap.Int("num_cpu", runtime.NumCPU()),
	)

	logger.Info("Server configuration",
		zap.Int("http_port", config.Server.HTTPPort),
		zap.Bool("production", config.Server.Production),
		zap.Int("target_fps", config.Stream.TargetFPS),
		zap.Int("max_frame_width", config.Stream.MaxFrameWidth),
		zap.String("database", config.Database.Path),
	)

	app, err := initializeApplication(config)
	if err != nil {
		logger.Fatal("Failed to initialize application", zap.Error(err))
	}
	defer app.cleanup()

	logger.Info("All components initialized")

	if err := app.loadCamerasFromDatabase(); err != nil {
		logger.Error("Failed to load cameras from database", zap.Error(err))
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	logger.Info("Server is running. Press Ctrl+C to stop.")

	sig := <-sigChan
	logger.Info("Received shutdown signal",
		zap.String("signal", sig.String()),
	)

	logger.Info("Server stopped gracefully")
}

// Application holds the long-lived components.
type Application struct {
	config    *core.Config
	db        *database.DB
	cameras   *database.CameraRepository
	manager   *stream.Manager
	apiServer *api.Server
}

func initializeApplication(config *core.Config) (*Application, error) {
	app := &Application{config: config}

	db, err := database.New(config.Database.Path, logger.Log)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	app.db = db
	app.cameras = database.NewCameraRepository(db, logger.Log)

	dialer := &video.FFmpegDialer{
		Binary:      config.FFmpeg.Binary,
		TargetFPS:   config.Stream.TargetFPS,
		OpenTimeout: time.Duration(config.FFmpeg.OpenTimeout) * time.Second,
		Probe: &video.RTSPProber{
			Timeout: time.Duration(config.FFmpeg.ProbeTimeout) * time.Second,
		},
		Logger: logger.Log,
	}

	app.manager = stream.NewManager(stream.ManagerConfig{
		Logger:  logger.Log,
		Dialer:  dialer,
		Encoder: &video.JPEGEncoder{Quality: config.Stream.JPEGQuality},
		Policy: stream.RetryPolicy{
			Delay:       config.Stream.ReconnectDelayDuration(),
			MaxAttempts: config.Stream.MaxAttempts,
		},
	})
	logger.Info("Stream manager initialized")

	app.apiServer = api.NewServer(api.ServerConfig{
		Port:       config.Server.HTTPPort,
		Production: config.Server.Production,
		Logger:     logger.Log,
		Manager:    app.manager,
		Cameras:    app.cameras,
		Defaults: api.StreamDefaults{
			TargetFPS: config.Stream.TargetFPS,
			MaxWidth:  config.Stream.MaxFrameWidth,
		},
		SnapshotDir: config.Snapshots.Dir,
	})

	if err := app.apiServer.Start(); err != nil {
		return nil, fmt.Errorf("failed to start API server: %w", err)
	}
	logger.Info("API server started")

	return app, nil
}

// loadCamerasFromDatabase starts a stream for every active camera record.
func (app *Application) loadCamerasFromDatabase() error {
	cameras, err := app.cameras.ListActive()
	if err != nil {
		return err
	}

	logger.Info("Loading cameras from database", zap.Int("count", len(cameras)))

	for _, cam := range cameras {
		cfg := camera.Config{
			ID:        cam.ID,
			Name:      cam.Name,
			Host:      cam.Host,
			Port:      cam.Port,
			Username:  cam.Username,
			Password:  cam.Password,
			Quality:   camera.Quality(cam.Quality),
			TargetFPS: app.config.Stream.TargetFPS,
			MaxWidth:  app.config.Stream.MaxFrameWidth,
		}

		if err := app.manager.Start(cfg); err != nil {
			logger.Error("Failed to start camera stream",
				zap.String("camera_id", cam.ID),
				zap.Error(err),
			)
			continue
		}

		logger.Info("Camera stream started",
			zap.String("camera_id", cam.ID),
			zap.String("name", cam.Name),
		)
	}

	return nil
}

func (app *Application) cleanup() {
	logger.Info("Cleaning up application resources")

	if app.apiServer != nil {
		app.apiServer.Stop()
	}

	if app.manager != nil {
		app.manager.Close()
	}

	if app.db != nil {
		app.db.Close()
	}

	logger.Info("Cleanup completed")
}
