package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"AudioScribe/config"
	"AudioScribe/core/apperr"
	"AudioScribe/core/audio"
	"AudioScribe/core/media"
	"AudioScribe/core/pipeline"
	"AudioScribe/core/recent"
	"AudioScribe/core/utils"
	"AudioScribe/logger"
	"AudioScribe/metrics"
	"AudioScribe/model"
	"AudioScribe/storage"

	"github.com/gorilla/mux"
)

// APIHandler 处理所有API请求
type APIHandler struct {
	cfg          *config.Config
	orchestrator *pipeline.Orchestrator
	processor    audio.Processor
	recent       *recent.List
	archive      *storage.Archive // 未配置 MinIO 时为 nil
}

// NewAPIHandler 创建新的API处理器
func NewAPIHandler(
	cfg *config.Config,
	orchestrator *pipeline.Orchestrator,
	processor audio.Processor,
	recentList *recent.List,
	archive *storage.Archive,
) *APIHandler {
	return &APIHandler{
		cfg:          cfg,
		orchestrator: orchestrator,
		processor:    processor,
		recent:       recentList,
		archive:      archive,
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Warn("写入响应失败", logger.ErrorField(err))
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// UploadHandler 接收 multipart "file" 字段并保存到上传目录
func (h *APIHandler) UploadHandler(w http.ResponseWriter, r *http.Request) {
	if h.cfg.MaxUploadMB > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, int64(h.cfg.MaxUploadMB)<<20)
	}
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "file too large")
			return
		}
		writeError(w, http.StatusBadRequest, "no file uploaded")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "no file uploaded")
		return
	}
	defer file.Close()

	if header.Filename == "" {
		writeError(w, http.StatusBadRequest, "no file selected")
		return
	}
	filename := utils.SafeFilename(header.Filename)
	if filename == "" {
		writeError(w, http.StatusBadRequest, "invalid file name")
		return
	}

	dest := filepath.Join(h.cfg.UploadDir, filename)
	if err := utils.SaveStream(file, dest); err != nil {
		logger.Error("保存上传文件失败", logger.String("path", dest), logger.ErrorField(err))
		writeError(w, http.StatusInternalServerError, "failed to save file")
		return
	}

	mime, err := media.Detect(dest)
	if err != nil {
		logger.Warn("上传文件类型检测失败", logger.String("path", dest), logger.ErrorField(err))
		mime = media.OctetStream
	}

	if err := h.recent.Add(recent.Record{Name: filename, Path: dest, Type: mime}); err != nil {
		logger.Warn("更新最近文件列表失败", logger.ErrorField(err))
	}

	if h.archive != nil {
		if err := h.archive.ArchiveUpload(context.WithoutCancel(r.Context()), dest, mime); err != nil {
			logger.Warn("上传文件归档到 MinIO 失败", logger.String("path", dest), logger.ErrorField(err))
		}
	}

	logger.Info("文件上传成功",
		logger.String("filename", filename),
		logger.String("type", mime),
		logger.Int64("size", header.Size),
		logger.String("requestId", RequestIDFrom(r.Context())))

	writeJSON(w, http.StatusOK, map[string]string{
		"message":  "file uploaded",
		"filename": filename,
		"type":     mime,
	})
}

// RecentHandler 返回最近上传的文件
func (h *APIHandler) RecentHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.recent.Entries())
}

// ClearRecentHandler 清空最近文件列表
func (h *APIHandler) ClearRecentHandler(w http.ResponseWriter, r *http.Request) {
	if err := h.recent.Clear(); err != nil {
		logger.Error("清空最近文件列表失败", logger.ErrorField(err))
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "recent files cleared"})
}

// ExtractAudioHandler extracts the audio track of an uploaded video into
// <audio dir>/<stem>.mp3.
func (h *APIHandler) ExtractAudioHandler(w http.ResponseWriter, r *http.Request) {
	filename := mux.Vars(r)["filename"]

	videoPath, ok := utils.WithinDir(h.cfg.UploadDir, filename)
	if !ok || !utils.Exists(videoPath) {
		writeError(w, http.StatusNotFound, "video file not found")
		return
	}

	mime, err := media.Detect(videoPath)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if !media.IsVideo(mime) {
		writeError(w, http.StatusBadRequest, "not a video file")
		return
	}

	base := filepath.Base(videoPath)
	audioName := strings.TrimSuffix(base, filepath.Ext(base)) + ".mp3"
	audioPath := filepath.Join(h.cfg.AudioDir, audioName)

	if err := h.processor.ExtractAudio(context.WithoutCancel(r.Context()), videoPath, audioPath); err != nil {
		metrics.Extractions.WithLabelValues("error").Inc()
		logger.Error("音频提取失败", logger.String("video", videoPath), logger.ErrorField(err))
		// 返回 ffmpeg 的诊断输出
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	metrics.Extractions.WithLabelValues("success").Inc()

	writeJSON(w, http.StatusOK, map[string]string{
		"message":   "audio extracted",
		"audio_url": "/download-audio/" + audioName,
	})
}

// resolveAudio 依次查找音频输出目录、上传目录以及 .wav 对应的 .mp3
func (h *APIHandler) resolveAudio(filename string) (string, bool) {
	candidates := []struct{ dir, name string }{
		{h.cfg.AudioDir, filename},
		{h.cfg.UploadDir, filename},
		{h.cfg.AudioDir, strings.Replace(filename, ".wav", ".mp3", 1)},
	}
	for _, c := range candidates {
		path, ok := utils.WithinDir(c.dir, c.name)
		if ok && utils.Exists(path) {
			return path, true
		}
	}
	return "", false
}

// TranscribeHandler runs the pipeline synchronously. The task id is the
// requested file name so /task-status/{filename} can be polled meanwhile.
func (h *APIHandler) TranscribeHandler(w http.ResponseWriter, r *http.Request) {
	filename := mux.Vars(r)["filename"]

	audioPath, ok := h.resolveAudio(filename)
	if !ok {
		writeError(w, http.StatusNotFound, "audio file not found")
		return
	}

	// 客户端断开不终止转录
	out, err := h.orchestrator.Run(context.WithoutCancel(r.Context()), audioPath, filename)
	if err != nil {
		status := http.StatusInternalServerError
		if apperr.Is(err, apperr.UnsupportedMediaType) {
			status = http.StatusUnsupportedMediaType
		}
		writeError(w, status, err.Error())
		return
	}

	message := "transcription complete"
	if out.Cached {
		message = "transcription complete (cached)"
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"message":    message,
		"transcript": out.Text,
		"cached":     out.Cached,
	})
}

// TaskStatusHandler 返回任务进度快照
func (h *APIHandler) TaskStatusHandler(w http.ResponseWriter, r *http.Request) {
	taskID := mux.Vars(r)["taskId"]
	writeJSON(w, http.StatusOK, h.orchestrator.Tracker().Get(taskID))
}

// ClearTranscriptCacheHandler drops the cached transcript of a file and its task record.
func (h *APIHandler) ClearTranscriptCacheHandler(w http.ResponseWriter, r *http.Request) {
	filename := mux.Vars(r)["filename"]

	if path, ok := h.resolveAudio(filename); ok {
		if err := h.orchestrator.Cache().Clear(r.Context(), path); err != nil {
			logger.Error("清除转录缓存失败", logger.String("path", path), logger.ErrorField(err))
			writeError(w, apperr.HTTPStatus(err), err.Error())
			return
		}
	}
	h.orchestrator.Tracker().Clear(filename)

	writeJSON(w, http.StatusOK, map[string]string{"message": "cache cleared"})
}

// HistoryHandler 返回最近的转录历史，未配置数据库时返回空列表
func (h *APIHandler) HistoryHandler(w http.ResponseWriter, r *http.Request) {
	history := h.orchestrator.History()
	if history == nil {
		writeJSON(w, http.StatusOK, []*model.TranscriptRecord{})
		return
	}

	limit, err := strconv.Atoi(r.URL.Query().Get("limit"))
	if err != nil || limit <= 0 || limit > 100 {
		limit = 20
	}
	records, err := history.Recent(r.Context(), limit)
	if err != nil {
		logger.Error("查询转录历史失败", logger.ErrorField(err))
		writeError(w, http.StatusInternalServerError, "failed to query history")
		return
	}
	if records == nil {
		records = []*model.TranscriptRecord{}
	}
	writeJSON(w, http.StatusOK, records)
}

// HealthHandler 返回服务与识别后端状态
func (h *APIHandler) HealthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":        "ok",
		"backend_ready": h.orchestrator.BackendReady(),
	})
}
