package audio

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"AudioScribe/core/apperr"
	"AudioScribe/core/media"
	"AudioScribe/core/utils"
	"AudioScribe/logger"

	"github.com/google/uuid"
)

// DefaultSampleRate 识别后端要求的采样率
const DefaultSampleRate = 16000

// Normalized describes a canonical mono 16-bit WAV written by Normalize.
type Normalized struct {
	Path       string
	SampleRate int
	Samples    int
}

// Duration 返回规范化音频时长
func (n *Normalized) Duration() time.Duration {
	if n.SampleRate <= 0 {
		return 0
	}
	return time.Duration(float64(n.Samples) / float64(n.SampleRate) * float64(time.Second))
}

// Normalizer 将任意音视频转换为目标采样率的单声道 WAV
type Normalizer struct {
	processor  Processor
	targetRate int
}

// NewNormalizer creates a Normalizer. targetRate <= 0 falls back to 16 kHz.
func NewNormalizer(processor Processor, targetRate int) *Normalizer {
	if targetRate <= 0 {
		targetRate = DefaultSampleRate
	}
	return &Normalizer{processor: processor, targetRate: targetRate}
}

// TargetRate 返回输出采样率
func (n *Normalizer) TargetRate() int {
	return n.targetRate
}

// Normalize decodes inputPath, downmixes it to mono, resamples it to the
// target rate and writes a 16-bit PCM WAV to outputPath. Intermediate files
// are removed on every path and outputPath is removed when writing fails.
func (n *Normalizer) Normalize(ctx context.Context, inputPath, outputPath string) (*Normalized, error) {
	const op = "normalize"

	mime, err := media.Detect(inputPath)
	if err != nil {
		return nil, err
	}

	var temps []string
	defer func() {
		for _, t := range temps {
			utils.RemoveFile(t)
		}
	}()

	source := inputPath
	switch {
	case media.IsVideo(mime):
		tmp := tempWAVPath(outputPath, "video")
		temps = append(temps, tmp)
		logger.Debug("视频先解码为音频", logger.String("input", inputPath), logger.String("temp", tmp))
		if err := n.processor.DecodeToWAV(ctx, inputPath, tmp, 0); err != nil {
			return nil, err
		}
		source, mime = tmp, "audio/wav"
	case !media.IsAudio(mime):
		return nil, apperr.New(apperr.UnsupportedMediaType, op,
			fmt.Sprintf("%s is not audio or video (%s)", filepath.Base(inputPath), mime))
	}

	buf, err := n.decode(ctx, source, mime, outputPath, &temps)
	if err != nil {
		var appErr *apperr.Error
		if errors.As(err, &appErr) {
			return nil, err
		}
		return nil, apperr.Wrapf(apperr.NormalizationFailure, op, err, "cannot decode %s", filepath.Base(inputPath))
	}
	if buf.Frames() == 0 {
		return nil, apperr.New(apperr.NormalizationFailure, op, "decoded audio is empty: "+filepath.Base(inputPath))
	}

	mono := Resample(Downmix(buf), n.targetRate)
	if mono.Frames() == 0 {
		return nil, apperr.New(apperr.NormalizationFailure, op, "resampled audio is empty: "+filepath.Base(inputPath))
	}

	if err := os.MkdirAll(filepath.Dir(outputPath), 0755); err != nil {
		return nil, apperr.Wrapf(apperr.IOFailure, op, err, "cannot create output directory")
	}
	if err := WriteWAV(outputPath, mono); err != nil {
		utils.RemoveFile(outputPath)
		return nil, apperr.Wrapf(apperr.NormalizationFailure, op, err, "cannot write %s", filepath.Base(outputPath))
	}

	logger.Debug("音频规范化完成",
		logger.String("input", inputPath),
		logger.String("mime", mime),
		logger.Int("sourceRate", buf.SampleRate),
		logger.Int("channels", buf.Channels),
		logger.Int("samples", mono.Frames()))

	return &Normalized{Path: outputPath, SampleRate: n.targetRate, Samples: mono.Frames()}, nil
}

// decode 按类型选择解码器，无进程内解码器的格式交给 ffmpeg
func (n *Normalizer) decode(ctx context.Context, path, mime, outputPath string, temps *[]string) (*Buffer, error) {
	switch {
	case media.IsWAV(mime):
		buf, err := ReadWAV(path)
		if errors.Is(err, errNonPCMWAV) {
			return n.decodeWithFFmpeg(ctx, path, outputPath, temps)
		}
		return buf, err
	case media.IsOgg(mime):
		buf, err := ReadOgg(path)
		if err != nil {
			// Opus 等非 Vorbis 流
			logger.Debug("OGG Vorbis 解码失败，改用 ffmpeg", logger.String("path", path), logger.ErrorField(err))
			return n.decodeWithFFmpeg(ctx, path, outputPath, temps)
		}
		return buf, nil
	default:
		return n.decodeWithFFmpeg(ctx, path, outputPath, temps)
	}
}

func (n *Normalizer) decodeWithFFmpeg(ctx context.Context, path, outputPath string, temps *[]string) (*Buffer, error) {
	tmp := tempWAVPath(outputPath, "decode")
	*temps = append(*temps, tmp)
	if err := n.processor.DecodeToWAV(ctx, path, tmp, 0); err != nil {
		return nil, err
	}
	return ReadWAV(tmp)
}

func tempWAVPath(outputPath, purpose string) string {
	return filepath.Join(filepath.Dir(outputPath), fmt.Sprintf(".%s_%s.wav", purpose, uuid.NewString()))
}
