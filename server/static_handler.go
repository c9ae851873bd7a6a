package server

import (
	"mime"
	"net/http"
	"os"
	"path/filepath"

	"AudioScribe/core/media"
	"AudioScribe/core/utils"
	"AudioScribe/logger"

	"github.com/gorilla/mux"
)

// StaticHandler 从本地目录提供单个文件，inline 时用于预览，否则作为附件下载
type StaticHandler struct {
	dir    string
	inline bool
}

// NewPreviewHandler 创建上传目录预览处理器
func NewPreviewHandler(uploadDir string) *StaticHandler {
	return &StaticHandler{dir: uploadDir, inline: true}
}

// NewDownloadHandler 创建音频下载处理器
func NewDownloadHandler(audioDir string) *StaticHandler {
	return &StaticHandler{dir: audioDir}
}

// ServeHTTP 实现 http.Handler 接口
func (h *StaticHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	filename := mux.Vars(r)["filename"]

	path, ok := utils.WithinDir(h.dir, filename)
	if !ok {
		if h.inline {
			http.Error(w, "Forbidden", http.StatusForbidden)
		} else {
			http.Error(w, "File not found", http.StatusNotFound)
		}
		return
	}

	f, err := os.Open(path)
	if err != nil {
		http.Error(w, "File not found", http.StatusNotFound)
		return
	}
	defer f.Close()

	stat, err := f.Stat()
	if err != nil || stat.IsDir() {
		http.Error(w, "File not found", http.StatusNotFound)
		return
	}

	contentType, err := media.Detect(path)
	if err != nil {
		logger.Warn("文件类型检测失败", logger.String("path", path), logger.ErrorField(err))
		contentType = media.OctetStream
	}
	disposition := "attachment"
	if h.inline {
		disposition = "inline"
	}

	name := filepath.Base(path)
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", mime.FormatMediaType(disposition, map[string]string{"filename": name}))
	w.Header().Set("X-Content-Type-Options", "nosniff")

	http.ServeContent(w, r, name, stat.ModTime(), f)
}
