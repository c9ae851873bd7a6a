package transcript

import (
	"context"

	"AudioScribe/cache"
	"AudioScribe/storage"
)

// RedisTier stores transcripts under transcript:<hash> using the shared Redis client.
type RedisTier struct{}

func (RedisTier) Name() string { return "redis" }

func (RedisTier) Get(ctx context.Context, hash string) (string, bool, error) {
	return cache.GetTranscriptCache(ctx, hash)
}

func (RedisTier) Put(ctx context.Context, hash, text string) error {
	return cache.SetTranscriptCache(ctx, hash, text, 0)
}

func (RedisTier) Delete(ctx context.Context, hash string) error {
	return cache.DeleteTranscriptCache(ctx, hash)
}

// MinioTier 将转录文本归档到 transcripts/<hash>.txt
type MinioTier struct {
	Archive *storage.Archive
}

func (t MinioTier) Name() string { return "minio" }

func (t MinioTier) Get(ctx context.Context, hash string) (string, bool, error) {
	return t.Archive.GetText(ctx, storage.TranscriptKey(hash))
}

func (t MinioTier) Put(ctx context.Context, hash, text string) error {
	return t.Archive.PutText(ctx, storage.TranscriptKey(hash), text)
}

func (t MinioTier) Delete(ctx context.Context, hash string) error {
	return t.Archive.RemoveObject(ctx, storage.TranscriptKey(hash))
}
