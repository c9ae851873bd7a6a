package audio

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"AudioScribe/core/apperr"
	"AudioScribe/core/utils"
	"AudioScribe/logger"
)

// FFmpegProcessor implements the Processor interface using ffmpeg.
type FFmpegProcessor struct {
	ffmpegPath string
	runner     utils.CommandRunner
}

// NewFFmpegProcessor creates a new FFmpegProcessor.
func NewFFmpegProcessor(ffmpegPath string) *FFmpegProcessor {
	return NewFFmpegProcessorWithRunner(ffmpegPath, utils.ExecRunner{})
}

// NewFFmpegProcessorWithRunner 使用自定义命令执行器，便于测试
func NewFFmpegProcessorWithRunner(ffmpegPath string, runner utils.CommandRunner) *FFmpegProcessor {
	if ffmpegPath == "" {
		ffmpegPath = "ffmpeg"
	}
	return &FFmpegProcessor{ffmpegPath: ffmpegPath, runner: runner}
}

// FFmpegPath 返回 FFmpeg 可执行文件路径
func (p *FFmpegProcessor) FFmpegPath() string {
	return p.ffmpegPath
}

func (p *FFmpegProcessor) ffprobePath() string {
	dir, base := filepath.Split(p.ffmpegPath)
	return dir + strings.Replace(base, "ffmpeg", "ffprobe", 1)
}

// ExtractAudio 从视频中提取音频并压缩为 MP3（单声道、44.1kHz），覆盖已有文件
func (p *FFmpegProcessor) ExtractAudio(ctx context.Context, videoPath, outputPath string) error {
	args := []string{
		"-i", videoPath,
		"-vn",
		"-ac", "1",
		"-codec:a", "libmp3lame",
		"-q:a", "2",
		"-ar", "44100",
		"-y",
		outputPath,
	}
	return p.run(ctx, apperr.ExtractionFailure, "extract audio", videoPath, args)
}

// DecodeToWAV 将任意音视频解码为 PCM WAV，保留原始声道，由调用方负责混音和重采样
func (p *FFmpegProcessor) DecodeToWAV(ctx context.Context, inputPath, outputPath string, sampleRate int) error {
	args := []string{
		"-hide_banner",
		"-nostdin",
		"-i", inputPath,
		"-vn",
		"-acodec", "pcm_s16le",
	}
	if sampleRate > 0 {
		args = append(args, "-ar", strconv.Itoa(sampleRate))
	}
	args = append(args, "-f", "wav", "-y", outputPath)
	return p.run(ctx, apperr.NormalizationFailure, "decode audio", inputPath, args)
}

func (p *FFmpegProcessor) run(ctx context.Context, kind apperr.Kind, op, inputFile string, args []string) error {
	if err := os.MkdirAll(filepath.Dir(args[len(args)-1]), 0755); err != nil {
		return apperr.Wrapf(apperr.IOFailure, op, err, "cannot create output directory")
	}

	logger.Debug("执行 FFmpeg 命令", logger.String("command", utils.CommandLine(p.ffmpegPath, args)))

	result, err := p.runner.Run(ctx, p.ffmpegPath, args...)
	if err != nil {
		logger.Error("FFmpeg 执行失败",
			logger.String("input", inputFile),
			logger.Int("exitCode", result.ExitCode),
			logger.String("stderr", tail(result.Stderr, 2000)))
		return &apperr.Error{
			Kind:    kind,
			Op:      op,
			Message: "ffmpeg execution failed for " + filepath.Base(inputFile),
			Detail:  strings.TrimSpace(result.Stderr),
			Err:     err,
		}
	}
	return nil
}

// ffprobeOutput defines the structure for ffprobe JSON output.
type ffprobeOutput struct {
	Format struct {
		Duration string `json:"duration"`
	} `json:"format"`
}

// GetAudioDuration uses ffprobe to get the duration of a media file in seconds.
func (p *FFmpegProcessor) GetAudioDuration(ctx context.Context, inputFile string) (float64, error) {
	args := []string{
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "json",
		inputFile,
	}

	result, err := p.runner.Run(ctx, p.ffprobePath(), args...)
	if err != nil {
		return 0, &apperr.Error{
			Kind:    apperr.NormalizationFailure,
			Op:      "probe duration",
			Message: "ffprobe execution failed for " + filepath.Base(inputFile),
			Detail:  strings.TrimSpace(result.Stderr),
			Err:     err,
		}
	}

	var probeData ffprobeOutput
	if err := json.Unmarshal([]byte(result.Stdout), &probeData); err != nil {
		return 0, apperr.Wrapf(apperr.NormalizationFailure, "probe duration", err, "failed to unmarshal ffprobe output")
	}
	if probeData.Format.Duration == "" {
		return 0, apperr.New(apperr.NormalizationFailure, "probe duration", "duration not found in ffprobe output")
	}

	duration, err := strconv.ParseFloat(probeData.Format.Duration, 64)
	if err != nil {
		return 0, apperr.Wrapf(apperr.NormalizationFailure, "probe duration", err, "failed to parse duration %q", probeData.Format.Duration)
	}
	return duration, nil
}

func tail(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[len(s)-n:]
}
