package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"AudioScribe/logger"

	"github.com/go-redis/redis/v8"
)

// TranscriptKeyPrefix 转录缓存键前缀，完整键为 transcript:<hash>
const TranscriptKeyPrefix = "transcript:"

var errRedisNotInitialized = errors.New("redis client not initialized")

// TranscriptKey 返回内容哈希对应的 Redis 键
func TranscriptKey(hash string) string {
	return TranscriptKeyPrefix + hash
}

// SetTranscriptCache 写入转录文本，expiration 为 0 表示不过期
func SetTranscriptCache(ctx context.Context, hash, text string, expiration time.Duration) error {
	if RedisClient == nil {
		return errRedisNotInitialized
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	key := TranscriptKey(hash)
	if err := RedisClient.Set(ctx, key, text, expiration).Err(); err != nil {
		logger.Error("设置转录缓存失败",
			logger.String("key", key),
			logger.Int("textLength", len(text)),
			logger.ErrorField(err))
		return err
	}

	logger.Debug("转录缓存设置成功", logger.String("key", key), logger.Int("textLength", len(text)))
	return nil
}

// GetTranscriptCache 读取转录文本。键不存在时返回 "", false, nil
func GetTranscriptCache(ctx context.Context, hash string) (string, bool, error) {
	if RedisClient == nil {
		return "", false, errRedisNotInitialized
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	key := TranscriptKey(hash)
	text, err := RedisClient.Get(ctx, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			logger.Debug("转录缓存不存在", logger.String("key", key))
			return "", false, nil
		}
		return "", false, fmt.Errorf("get %s: %w", key, err)
	}
	return text, true, nil
}

// DeleteTranscriptCache 删除转录缓存
func DeleteTranscriptCache(ctx context.Context, hash string) error {
	if RedisClient == nil {
		return errRedisNotInitialized
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	key := TranscriptKey(hash)
	if err := RedisClient.Del(ctx, key).Err(); err != nil {
		logger.Error("删除转录缓存失败", logger.String("key", key), logger.ErrorField(err))
		return err
	}
	logger.Debug("转录缓存删除成功", logger.String("key", key))
	return nil
}
