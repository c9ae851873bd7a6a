package media

import (
	"errors"
	"io"
	"os"
	"strings"
	"time"

	"AudioScribe/core/apperr"
	"AudioScribe/logger"

	"github.com/gabriel-vasile/mimetype"
	"github.com/tcolgate/mp3"
)

// OctetStream is returned for signatures that match no known type.
const OctetStream = "application/octet-stream"

// Info 描述一个已上传的媒体文件
type Info struct {
	Path     string        `json:"path"`
	MIME     string        `json:"type"`
	Size     int64         `json:"size"`
	Duration time.Duration `json:"duration,omitempty"` // 仅 MP3 通过帧遍历计算
}

// Detect returns the MIME type of path based on its leading signature bytes.
// Parameters such as "; charset=utf-8" are stripped.
func Detect(path string) (string, error) {
	mtype, err := mimetype.DetectFile(path)
	if err != nil {
		return "", apperr.Wrapf(apperr.IOFailure, "probe", err, "cannot read %s", path)
	}
	return baseType(mtype.String()), nil
}

// Inspect 返回文件的类型、大小，MP3 额外返回时长
func Inspect(path string) (Info, error) {
	stat, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Info{}, apperr.Wrapf(apperr.NotFound, "probe", err, "file not found: %s", path)
		}
		return Info{}, apperr.Wrap(apperr.IOFailure, "probe", err)
	}

	mime, err := Detect(path)
	if err != nil {
		return Info{}, err
	}

	info := Info{Path: path, MIME: mime, Size: stat.Size()}
	if mime == "audio/mpeg" {
		d, err := mp3Duration(path)
		if err != nil {
			logger.Warn("MP3 时长计算失败", logger.String("path", path), logger.ErrorField(err))
		} else {
			info.Duration = d
		}
	}
	return info, nil
}

// mp3Duration 遍历 MP3 帧累加时长
func mp3Duration(path string) (time.Duration, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	d := mp3.NewDecoder(f)
	var (
		frame   mp3.Frame
		skipped int
		total   time.Duration
	)
	for {
		if err := d.Decode(&frame, &skipped); err != nil {
			if err == io.EOF {
				break
			}
			return 0, err
		}
		total += frame.Duration()
	}
	return total, nil
}

func baseType(mime string) string {
	if i := strings.IndexByte(mime, ';'); i >= 0 {
		mime = mime[:i]
	}
	mime = strings.TrimSpace(strings.ToLower(mime))
	if mime == "" {
		return OctetStream
	}
	return mime
}

func IsVideo(mime string) bool {
	return strings.HasPrefix(mime, "video/")
}

func IsAudio(mime string) bool {
	return strings.HasPrefix(mime, "audio/") || mime == "application/ogg"
}

// IsMedia reports whether mime can go through the audio pipeline.
func IsMedia(mime string) bool {
	return IsAudio(mime) || IsVideo(mime)
}

// IsWAV 匹配各种 WAV 别名
func IsWAV(mime string) bool {
	switch mime {
	case "audio/wav", "audio/x-wav", "audio/wave", "audio/vnd.wave":
		return true
	}
	return false
}

// IsOgg 匹配 OGG 容器
func IsOgg(mime string) bool {
	switch mime {
	case "audio/ogg", "application/ogg", "audio/x-vorbis+ogg":
		return true
	}
	return false
}
