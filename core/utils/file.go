package utils

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"AudioScribe/logger"
)

var (
	unsafeFilenameChars = regexp.MustCompile(`[^\p{L}\p{N}_\-\.]`)
	repeatedUnderscores = regexp.MustCompile(`_+`)
)

// SafeFilename 保留中文等字母、数字、下划线、连字符和点，其余替换为下划线
func SafeFilename(name string) string {
	name = filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	name = unsafeFilenameChars.ReplaceAllString(name, "_")
	name = repeatedUnderscores.ReplaceAllString(name, "_")
	name = strings.Trim(name, "_")
	if name == "." || name == ".." {
		return ""
	}
	return name
}

// SaveStream 将 reader 的内容写入 destPath
func SaveStream(r io.Reader, destPath string) error {
	destFile, err := os.Create(destPath)
	if err != nil {
		return fmt.Errorf("创建文件失败 %s: %w", destPath, err)
	}

	if _, err := io.Copy(destFile, r); err != nil {
		destFile.Close()
		os.Remove(destPath)
		return fmt.Errorf("保存文件失败 %s: %w", destPath, err)
	}
	return destFile.Close()
}

// RemoveFile 删除临时文件，失败只记录日志
func RemoveFile(path string) {
	if path == "" {
		return
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		logger.Warn("清理临时文件失败", logger.String("path", path), logger.ErrorField(err))
	}
}

// Exists 判断文件是否存在
func Exists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

// WithinDir resolves name under dir and reports false when the cleaned result
// escapes dir (path traversal).
func WithinDir(dir, name string) (string, bool) {
	base, err := filepath.Abs(dir)
	if err != nil {
		return "", false
	}
	target, err := filepath.Abs(filepath.Join(base, filepath.FromSlash(strings.ReplaceAll(name, "\\", "/"))))
	if err != nil {
		return "", false
	}
	rel, err := filepath.Rel(base, target)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", false
	}
	return target, true
}
