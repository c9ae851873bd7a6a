package recent

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"AudioScribe/core/media"
	"AudioScribe/logger"

	"github.com/fsnotify/fsnotify"
)

// Watcher adds media files that appear in the upload directory outside the
// HTTP upload path (copied in by hand, synced) to the recent list.
type Watcher struct {
	dir     string
	list    *List
	watcher *fsnotify.Watcher
	done    chan struct{}
}

// NewWatcher 创建上传目录监听器
func NewWatcher(dir string, list *List) *Watcher {
	return &Watcher{dir: dir, list: list, done: make(chan struct{})}
}

// Start begins watching dir. Events are handled in a background goroutine
// until ctx is cancelled or Close is called.
func (w *Watcher) Start(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := fw.Add(w.dir); err != nil {
		fw.Close()
		return err
	}
	w.watcher = fw

	logger.Info("开始监听上传目录", logger.String("dir", w.dir))
	go w.loop(ctx)
	return nil
}

// Close 停止监听并等待事件循环退出
func (w *Watcher) Close() error {
	if w.watcher == nil {
		return nil
	}
	err := w.watcher.Close()
	<-w.done
	return err
}

func (w *Watcher) loop(ctx context.Context) {
	defer close(w.done)
	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Create|fsnotify.Write) != 0 {
				w.handle(event.Name)
			}
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			logger.Warn("上传目录监听错误", logger.ErrorField(err))
		case <-ctx.Done():
			w.watcher.Close()
			return
		}
	}
}

func (w *Watcher) handle(path string) {
	name := filepath.Base(path)
	if strings.HasPrefix(name, ".") {
		return
	}
	info, err := os.Stat(path)
	if err != nil || info.IsDir() || info.Size() == 0 {
		return
	}

	mime, err := media.Detect(path)
	if err != nil || !media.IsMedia(mime) {
		return
	}
	if err := w.list.Add(Record{Name: name, Path: path, Type: mime}); err != nil {
		logger.Warn("添加最近文件失败", logger.String("path", path), logger.ErrorField(err))
		return
	}
	logger.Debug("检测到新上传文件", logger.String("path", path), logger.String("type", mime))
}
