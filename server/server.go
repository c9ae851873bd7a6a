package server

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"AudioScribe/cache"
	"AudioScribe/config"
	"AudioScribe/core/audio"
	"AudioScribe/core/pipeline"
	"AudioScribe/core/progress"
	"AudioScribe/core/recent"
	"AudioScribe/core/recognizer"
	"AudioScribe/core/transcript"
	"AudioScribe/db"
	"AudioScribe/logger"
	"AudioScribe/metrics"
	"AudioScribe/model"
	"AudioScribe/repository"
	"AudioScribe/storage"

	"github.com/gorilla/mux"
)

// App 服务运行所需的全部组件
type App struct {
	Handler      *APIHandler
	Orchestrator *pipeline.Orchestrator
	Processor    *audio.FFmpegProcessor
	watcher      *recent.Watcher
	closers      []func() error
}

// NewApp wires the pipeline from cfg. Redis, MinIO and MySQL are optional:
// when one is configured but unreachable the service starts without it.
func NewApp(ctx context.Context, cfg *config.Config) (*App, error) {
	for _, dir := range []string{cfg.UploadDir, cfg.AudioDir, cfg.TranscriptDir, filepath.Dir(cfg.RecentFile)} {
		if err := ensureDirExists(dir); err != nil {
			return nil, err
		}
	}

	app := &App{}
	var tiers []transcript.Tier

	if cfg.RedisEnabled() {
		if err := cache.ConnectRedis(ctx, cfg); err != nil {
			logger.Warn("Redis 不可用，跳过 Redis 缓存层", logger.ErrorField(err))
		} else {
			tiers = append(tiers, transcript.RedisTier{})
			app.closers = append(app.closers, cache.CloseRedis)
		}
	}

	var archive *storage.Archive
	if cfg.MinioEnabled() {
		a, err := storage.NewArchive(ctx, cfg)
		if err != nil {
			logger.Warn("MinIO 不可用，跳过归档与 MinIO 缓存层", logger.ErrorField(err))
		} else {
			archive = a
			tiers = append(tiers, transcript.MinioTier{Archive: a})
		}
	}

	var history repository.TranscriptRepository
	if cfg.DBEnabled() {
		if err := db.ConnectGormDB(ctx, cfg); err != nil {
			logger.Warn("数据库不可用，不记录转录历史", logger.ErrorField(err))
		} else if err := db.AutoMigrateModels(&model.TranscriptRecord{}); err != nil {
			logger.Warn("转录历史表迁移失败，不记录转录历史", logger.ErrorField(err))
			db.CloseGormDB()
		} else {
			history = repository.NewGormTranscriptRepository(db.GormDB)
			app.closers = append(app.closers, db.CloseGormDB)
		}
	}

	factory, err := recognizer.NewFactory(cfg)
	if err != nil {
		app.Close()
		return nil, err
	}

	processor := audio.NewFFmpegProcessor(cfg.FFmpegPath)
	orchestrator := pipeline.New(pipeline.Options{
		Normalizer:     audio.NewNormalizer(processor, cfg.TargetSampleRate),
		Loader:         recognizer.NewLoader(factory),
		Cache:          transcript.NewCache(cfg.TranscriptDir, tiers...),
		Tracker:        progress.NewTracker(),
		History:        history,
		AudioDir:       cfg.AudioDir,
		TranscriptDir:  cfg.TranscriptDir,
		SegmentSeconds: cfg.SegmentSeconds,
	})

	app.Orchestrator = orchestrator
	app.Processor = processor

	list := recent.NewList(cfg.RecentFile)
	app.Handler = NewAPIHandler(cfg, orchestrator, processor, list, archive)

	if cfg.WatchUploads {
		w := recent.NewWatcher(cfg.UploadDir, list)
		if err := w.Start(ctx); err != nil {
			logger.Warn("上传目录监听启动失败", logger.String("dir", cfg.UploadDir), logger.ErrorField(err))
		} else {
			app.watcher = w
		}
	}

	return app, nil
}

// Close 按创建的逆序释放资源
func (a *App) Close() {
	if a.watcher != nil {
		if err := a.watcher.Close(); err != nil {
			logger.Warn("关闭上传目录监听失败", logger.ErrorField(err))
		}
	}
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			logger.Warn("释放资源失败", logger.ErrorField(err))
		}
	}
}

// NewRouter registers every HTTP route of the service.
func NewRouter(h *APIHandler) *mux.Router {
	router := mux.NewRouter()
	router.Use(requestIDMiddleware, accessLogMiddleware, corsMiddleware)

	router.HandleFunc("/upload", h.UploadHandler).Methods(http.MethodPost, http.MethodOptions)
	router.HandleFunc("/recent", h.RecentHandler).Methods(http.MethodGet)
	router.HandleFunc("/clear-recent", h.ClearRecentHandler).Methods(http.MethodPost, http.MethodOptions)
	router.HandleFunc("/extract-audio/{filename:.+}", h.ExtractAudioHandler).Methods(http.MethodGet)
	router.HandleFunc("/transcribe-audio/{filename:.+}", h.TranscribeHandler).Methods(http.MethodGet)
	router.HandleFunc("/task-status/{taskId:.+}", h.TaskStatusHandler).Methods(http.MethodGet)
	router.HandleFunc("/ws/task-status/{taskId:.+}", h.TaskStatusStreamHandler).Methods(http.MethodGet)
	router.HandleFunc("/clear-transcript-cache/{filename:.+}", h.ClearTranscriptCacheHandler).Methods(http.MethodGet)
	router.Handle("/download-audio/{filename:.+}", NewDownloadHandler(h.cfg.AudioDir)).Methods(http.MethodGet, http.MethodHead)
	router.Handle("/preview/{filename:.+}", NewPreviewHandler(h.cfg.UploadDir)).Methods(http.MethodGet, http.MethodHead)
	router.HandleFunc("/history", h.HistoryHandler).Methods(http.MethodGet)
	router.HandleFunc("/healthz", h.HealthHandler).Methods(http.MethodGet)
	router.Handle("/metrics", metrics.Handler()).Methods(http.MethodGet)

	// Frontend UI serving
	if h.cfg.WebAppDir != "" {
		router.PathPrefix("/").Handler(http.FileServer(http.Dir(h.cfg.WebAppDir)))
	}
	return router
}

// Start initializes and starts the HTTP server, blocking until SIGINT or SIGTERM.
func Start(cfg *config.Config) error {
	app, err := NewApp(context.Background(), cfg)
	if err != nil {
		return err
	}
	defer app.Close()

	server := &http.Server{
		Addr:        ":" + cfg.Port,
		Handler:     NewRouter(app.Handler),
		ReadTimeout: 5 * time.Minute,
		// 转录请求同步返回，长音频需要较长的写超时
		WriteTimeout: 2 * time.Hour,
		IdleTimeout:  120 * time.Second,
	}

	// 创建一个通道来接收操作系统信号
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("Server starting",
			logger.String("addr", server.Addr),
			logger.String("backend", cfg.RecognizerBackend),
			logger.Bool("redis", cfg.RedisEnabled()),
			logger.Bool("minio", cfg.MinioEnabled()),
			logger.Bool("history", cfg.DBEnabled()))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err, ok := <-serveErr:
		if ok {
			return fmt.Errorf("failed to start server: %w", err)
		}
		return nil
	case <-stop:
	}
	logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	logger.Info("Server stopped")
	return nil
}

func ensureDirExists(path string) error {
	if path == "" || path == "." {
		return nil
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		logger.Info("Creating directory", logger.String("path", path))
		if err := os.MkdirAll(path, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", path, err)
		}
	} else if err != nil {
		return fmt.Errorf("failed to check directory %s: %w", path, err)
	}
	return nil
}
