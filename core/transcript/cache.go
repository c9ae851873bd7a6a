package transcript

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"errors"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"AudioScribe/core/apperr"
	"AudioScribe/logger"
)

// hashChunkSize 流式计算摘要时每次读取的字节数
const hashChunkSize = 4096

// Tier is a secondary transcript store consulted when the file tier misses.
// A miss is reported as ok == false with a nil error.
type Tier interface {
	Name() string
	Get(ctx context.Context, hash string) (text string, ok bool, err error)
	Put(ctx context.Context, hash, text string) error
	Delete(ctx context.Context, hash string) error
}

type fileHash struct {
	size    int64
	modTime time.Time
	sum     string
}

// Cache maps the MD5 of a source file's bytes to its transcript. The file
// tier <dir>/<hash>.txt is authoritative; extra tiers are best effort.
// Concurrent writers of the same hash overwrite each other.
type Cache struct {
	dir   string
	tiers []Tier

	mu   sync.Mutex
	memo map[string]fileHash
}

// NewCache 创建转录缓存，dir 为文件层目录
func NewCache(dir string, tiers ...Tier) *Cache {
	return &Cache{dir: dir, tiers: tiers, memo: make(map[string]fileHash)}
}

// Dir 返回文件层目录
func (c *Cache) Dir() string {
	return c.dir
}

// EntryPath 返回哈希对应的缓存文件路径
func (c *Cache) EntryPath(hash string) string {
	return filepath.Join(c.dir, hash+".txt")
}

// Key returns the hex MD5 of the file at path. Results are memoized per path
// and reused only while the file's size and modification time are unchanged.
func (c *Cache) Key(path string) (string, error) {
	const op = "hash"

	stat, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", apperr.Wrapf(apperr.NotFound, op, err, "file not found: %s", filepath.Base(path))
		}
		return "", apperr.Wrap(apperr.IOFailure, op, err)
	}

	c.mu.Lock()
	cached, ok := c.memo[path]
	c.mu.Unlock()
	if ok && cached.size == stat.Size() && cached.modTime.Equal(stat.ModTime()) {
		return cached.sum, nil
	}

	sum, err := hashFile(path)
	if err != nil {
		return "", apperr.Wrapf(apperr.IOFailure, op, err, "cannot hash %s", filepath.Base(path))
	}

	c.mu.Lock()
	c.memo[path] = fileHash{size: stat.Size(), modTime: stat.ModTime(), sum: sum}
	c.mu.Unlock()
	return sum, nil
}

func hashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := md5.New()
	if _, err := io.CopyBuffer(h, f, make([]byte, hashChunkSize)); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// Lookup returns the cached transcript for the content of sourcePath.
// A miss is ok == false with a nil error; tier failures are logged only.
func (c *Cache) Lookup(ctx context.Context, sourcePath string) (string, bool, error) {
	hash, err := c.Key(sourcePath)
	if err != nil {
		return "", false, err
	}

	data, err := os.ReadFile(c.EntryPath(hash))
	switch {
	case err == nil:
		logger.Debug("转录缓存命中", logger.String("hash", hash), logger.String("tier", "file"))
		return string(data), true, nil
	case !errors.Is(err, os.ErrNotExist):
		logger.Warn("读取转录缓存文件失败", logger.String("hash", hash), logger.ErrorField(err))
	}

	for _, tier := range c.tiers {
		text, ok, err := tier.Get(ctx, hash)
		if err != nil {
			logger.Warn("转录缓存层读取失败",
				logger.String("tier", tier.Name()),
				logger.String("hash", hash),
				logger.ErrorField(err))
			continue
		}
		if !ok {
			continue
		}

		logger.Debug("转录缓存命中", logger.String("hash", hash), logger.String("tier", tier.Name()))
		if err := c.writeEntry(hash, text); err != nil {
			logger.Warn("回填转录缓存文件失败", logger.String("hash", hash), logger.ErrorField(err))
		}
		return text, true, nil
	}
	return "", false, nil
}

// Store writes text under the content hash of sourcePath. Only a failed
// file-tier write is returned as an error.
func (c *Cache) Store(ctx context.Context, sourcePath, text string) error {
	hash, err := c.Key(sourcePath)
	if err != nil {
		return err
	}
	if err := c.writeEntry(hash, text); err != nil {
		return apperr.Wrapf(apperr.IOFailure, "cache store", err, "cannot write transcript cache %s", hash)
	}

	for _, tier := range c.tiers {
		if err := tier.Put(ctx, hash, text); err != nil {
			logger.Warn("转录缓存层写入失败",
				logger.String("tier", tier.Name()),
				logger.String("hash", hash),
				logger.ErrorField(err))
		}
	}
	logger.Info("转录结果已缓存", logger.String("hash", hash), logger.String("source", filepath.Base(sourcePath)))
	return nil
}

// Clear 删除 sourcePath 内容对应的缓存条目，条目不存在不算错误
func (c *Cache) Clear(ctx context.Context, sourcePath string) error {
	hash, err := c.Key(sourcePath)
	if err != nil {
		return err
	}

	if err := os.Remove(c.EntryPath(hash)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return apperr.Wrapf(apperr.IOFailure, "cache clear", err, "cannot remove transcript cache %s", hash)
	}
	for _, tier := range c.tiers {
		if err := tier.Delete(ctx, hash); err != nil {
			logger.Warn("转录缓存层删除失败",
				logger.String("tier", tier.Name()),
				logger.String("hash", hash),
				logger.ErrorField(err))
		}
	}

	c.mu.Lock()
	delete(c.memo, sourcePath)
	c.mu.Unlock()
	return nil
}

func (c *Cache) writeEntry(hash, text string) error {
	if err := os.MkdirAll(c.dir, 0755); err != nil {
		return err
	}
	return os.WriteFile(c.EntryPath(hash), []byte(text), 0644)
}
