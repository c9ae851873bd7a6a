package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"AudioScribe/core/apperr"
	"AudioScribe/core/audio"
	"AudioScribe/core/media"
	"AudioScribe/core/progress"
	"AudioScribe/core/recognizer"
	"AudioScribe/core/transcript"
	"AudioScribe/core/utils"
	"AudioScribe/logger"
	"AudioScribe/metrics"
	"AudioScribe/model"
	"AudioScribe/repository"

	"github.com/google/uuid"
)

// MessageFromCache 命中缓存时的任务消息
const MessageFromCache = "loaded from cache"

// Options 编排器依赖
type Options struct {
	Normalizer     *audio.Normalizer
	Loader         *recognizer.Loader
	Cache          *transcript.Cache
	Tracker        *progress.Tracker
	History        repository.TranscriptRepository // 可为空
	AudioDir       string                          // 规范化临时文件目录
	TranscriptDir  string                          // <stem>.txt 输出目录
	SegmentSeconds int
}

// Orchestrator runs probe, normalize, split, recognize and cache for one file
// and reports progress to the tracker under the caller's task id.
type Orchestrator struct {
	normalizer     *audio.Normalizer
	loader         *recognizer.Loader
	cache          *transcript.Cache
	tracker        *progress.Tracker
	history        repository.TranscriptRepository
	audioDir       string
	transcriptDir  string
	segmentSeconds int
}

// Outcome 一次转录的结果
type Outcome struct {
	Text     string        `json:"transcript"`
	Cached   bool          `json:"cached"`
	Segments int           `json:"segments"`
	Duration time.Duration `json:"-"`
}

// New 创建编排器
func New(opts Options) *Orchestrator {
	if opts.SegmentSeconds <= 0 {
		opts.SegmentSeconds = audio.DefaultSegmentSeconds
	}
	if opts.Tracker == nil {
		opts.Tracker = progress.NewTracker()
	}
	return &Orchestrator{
		normalizer:     opts.Normalizer,
		loader:         opts.Loader,
		cache:          opts.Cache,
		tracker:        opts.Tracker,
		history:        opts.History,
		audioDir:       opts.AudioDir,
		transcriptDir:  opts.TranscriptDir,
		segmentSeconds: opts.SegmentSeconds,
	}
}

// Tracker 返回进度表
func (o *Orchestrator) Tracker() *progress.Tracker {
	return o.tracker
}

// Cache 返回转录缓存
func (o *Orchestrator) Cache() *transcript.Cache {
	return o.cache
}

// History 返回转录历史仓库，未配置数据库时为 nil
func (o *Orchestrator) History() repository.TranscriptRepository {
	return o.history
}

// BackendReady 报告识别后端是否已加载
func (o *Orchestrator) BackendReady() bool {
	return o.loader.Ready()
}

// Run resets the task, answers from the cache when possible and otherwise
// runs the full pipeline.
func (o *Orchestrator) Run(ctx context.Context, inputPath, taskID string) (*Outcome, error) {
	o.tracker.Clear(taskID)

	text, ok, err := o.cache.Lookup(ctx, inputPath)
	if err != nil {
		o.fail(taskID, inputPath, err)
		return nil, err
	}
	if ok {
		metrics.CacheLookups.WithLabelValues("hit").Inc()
		metrics.TranscriptionRequests.WithLabelValues("cached").Inc()
		o.setComplete(taskID, MessageFromCache)
		logger.Info("使用缓存的转录结果", logger.String("task", taskID), logger.String("input", inputPath))

		out := &Outcome{Text: text, Cached: true}
		o.record(ctx, inputPath, out)
		return out, nil
	}
	metrics.CacheLookups.WithLabelValues("miss").Inc()

	out, err := o.execute(ctx, inputPath, taskID)
	if err != nil {
		return nil, err
	}
	o.record(ctx, inputPath, out)
	return out, nil
}

// Transcribe runs the pipeline without consulting the cache and returns the
// joined transcript. The task is reset first and ends complete or error.
func (o *Orchestrator) Transcribe(ctx context.Context, inputPath, taskID string) (string, error) {
	o.tracker.Clear(taskID)
	out, err := o.execute(ctx, inputPath, taskID)
	if err != nil {
		return "", err
	}
	return out.Text, nil
}

func (o *Orchestrator) execute(ctx context.Context, inputPath, taskID string) (*Outcome, error) {
	start := time.Now()
	out, err := o.transcribe(ctx, inputPath, taskID)
	if err != nil {
		o.fail(taskID, inputPath, err)
		return nil, err
	}

	metrics.TranscriptionDuration.Observe(time.Since(start).Seconds())
	metrics.TranscriptionRequests.WithLabelValues("success").Inc()
	o.setComplete(taskID, "transcription complete")
	logger.Info("转录完成",
		logger.String("task", taskID),
		logger.String("input", inputPath),
		logger.Int("segments", out.Segments),
		logger.Int("characters", len([]rune(out.Text))),
		logger.Duration("elapsed", time.Since(start)))
	return out, nil
}

func (o *Orchestrator) transcribe(ctx context.Context, inputPath, taskID string) (*Outcome, error) {
	o.setProgress(taskID, 10, "loading recognition backend")
	backend, err := o.loader.Get(ctx)
	if err != nil {
		return nil, err
	}

	o.setProgress(taskID, 20, "normalizing audio")
	canonical := filepath.Join(o.audioDir, fmt.Sprintf(".canonical_%s.wav", uuid.NewString()))
	defer utils.RemoveFile(canonical)

	norm, err := o.normalizer.Normalize(ctx, inputPath, canonical)
	if err != nil {
		return nil, err
	}
	duration := norm.Duration()
	metrics.AudioDuration.Observe(duration.Seconds())

	var parts []string
	if duration > time.Duration(o.segmentSeconds)*time.Second {
		o.setProgress(taskID, 30, "splitting audio")
		segments, total, err := audio.Split(canonical, o.segmentSeconds)
		if err != nil {
			return nil, err
		}
		defer func() {
			for _, s := range segments {
				utils.RemoveFile(s.Path)
			}
		}()

		for i, seg := range segments {
			o.setProgress(taskID, 30+60*(i+1)/total, fmt.Sprintf("transcribing segment %d/%d", i+1, total))
			text, err := recognize(ctx, backend, seg.Path)
			utils.RemoveFile(seg.Path)
			if err != nil {
				return nil, err
			}
			metrics.SegmentsRecognized.Inc()
			parts = append(parts, text)
		}
	} else {
		o.setProgress(taskID, 50, "transcribing")
		text, err := recognize(ctx, backend, canonical)
		if err != nil {
			return nil, err
		}
		metrics.SegmentsRecognized.Inc()
		parts = append(parts, text)
	}

	joined := strings.Join(parts, " ")
	if strings.TrimSpace(joined) == "" {
		return nil, apperr.New(apperr.RecognitionFailure, "recognize", "recognized text is empty")
	}

	o.setProgress(taskID, 90, "saving transcript")
	if err := o.writeTranscript(inputPath, joined); err != nil {
		logger.Warn("保存转录文本失败", logger.String("input", inputPath), logger.ErrorField(err))
	}
	if err := o.cache.Store(ctx, inputPath, joined); err != nil {
		logger.Warn("写入转录缓存失败", logger.String("input", inputPath), logger.ErrorField(err))
	}

	return &Outcome{Text: joined, Segments: len(parts), Duration: duration}, nil
}

// recognize 调用后端识别单个文件，空结果视为失败
func recognize(ctx context.Context, backend recognizer.Backend, path string) (string, error) {
	results, err := backend.Generate(ctx, path)
	if err != nil {
		var appErr *apperr.Error
		if errors.As(err, &appErr) {
			return "", err
		}
		return "", apperr.Wrap(apperr.RecognitionFailure, "recognize", err)
	}
	if len(results) == 0 {
		return "", apperr.New(apperr.RecognitionFailure, "recognize", "recognizer returned no result for "+filepath.Base(path))
	}
	return results[0].Text, nil
}

// TranscriptPath 返回 <transcripts>/<stem>.txt
func (o *Orchestrator) TranscriptPath(inputPath string) string {
	base := filepath.Base(inputPath)
	return filepath.Join(o.transcriptDir, strings.TrimSuffix(base, filepath.Ext(base))+".txt")
}

func (o *Orchestrator) writeTranscript(inputPath, text string) error {
	if o.transcriptDir == "" {
		return nil
	}
	if err := os.MkdirAll(o.transcriptDir, 0755); err != nil {
		return err
	}
	return os.WriteFile(o.TranscriptPath(inputPath), []byte(text), 0644)
}

func (o *Orchestrator) setProgress(taskID string, pct int, message string) {
	if err := o.tracker.Update(taskID, pct, message); err != nil {
		logger.Debug("进度更新被忽略", logger.String("task", taskID), logger.ErrorField(err))
	}
}

func (o *Orchestrator) setComplete(taskID, message string) {
	if err := o.tracker.Complete(taskID, message); err != nil {
		logger.Debug("完成状态被忽略", logger.String("task", taskID), logger.ErrorField(err))
	}
}

func (o *Orchestrator) fail(taskID, inputPath string, err error) {
	kind := string(apperr.KindOf(err))
	if kind == "" {
		kind = "unknown"
	}
	metrics.PipelineErrors.WithLabelValues(kind).Inc()
	metrics.TranscriptionRequests.WithLabelValues("error").Inc()
	logger.Error("转录失败",
		logger.String("task", taskID),
		logger.String("input", inputPath),
		logger.String("kind", kind),
		logger.ErrorField(err))

	if ferr := o.tracker.Fail(taskID, err); ferr != nil {
		logger.Debug("失败状态被忽略", logger.String("task", taskID), logger.ErrorField(ferr))
	}
}

// record 写入转录历史，失败只记录日志
func (o *Orchestrator) record(ctx context.Context, inputPath string, out *Outcome) {
	if o.history == nil {
		return
	}
	hash, err := o.cache.Key(inputPath)
	if err != nil {
		logger.Warn("转录历史写入跳过", logger.ErrorField(err))
		return
	}
	mime, _ := media.Detect(inputPath)

	rec := &model.TranscriptRecord{
		ContentHash:     hash,
		Filename:        filepath.Base(inputPath),
		MIME:            mime,
		DurationSeconds: out.Duration.Seconds(),
		Segments:        out.Segments,
		Characters:      len([]rune(out.Text)),
		Cached:          out.Cached,
	}
	if err := o.history.Create(context.WithoutCancel(ctx), rec); err != nil {
		logger.Warn("转录历史写入失败", logger.String("hash", hash), logger.ErrorField(err))
	}
}
