package storage

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"AudioScribe/logger"

	"github.com/minio/minio-go/v7"
)

// BucketStats 存储桶统计信息
type BucketStats struct {
	TotalObjects int64
	TotalSize    int64
	LastModified time.Time
	TypeCounts   map[string]int64
}

// ObjectInfo 文件信息
type ObjectInfo struct {
	Key          string
	Size         int64
	LastModified time.Time
	ContentType  string
	ETag         string
}

// ListObjects 列出前缀下的对象并汇总统计信息
func (a *Archive) ListObjects(ctx context.Context, prefix string, recursive bool) ([]ObjectInfo, *BucketStats, error) {
	stats := &BucketStats{TypeCounts: make(map[string]int64)}
	var objects []ObjectInfo

	objectCh := a.client.ListObjects(ctx, a.bucket, minio.ListObjectsOptions{
		Prefix:    prefix,
		Recursive: recursive,
	})
	for object := range objectCh {
		if object.Err != nil {
			return nil, nil, fmt.Errorf("列出对象时出错: %w", object.Err)
		}

		stats.TotalObjects++
		stats.TotalSize += object.Size
		stats.TypeCounts[fileExtension(object.Key)]++
		if object.LastModified.After(stats.LastModified) {
			stats.LastModified = object.LastModified
		}

		objects = append(objects, ObjectInfo{
			Key:          object.Key,
			Size:         object.Size,
			LastModified: object.LastModified,
			ContentType:  object.ContentType,
			ETag:         object.ETag,
		})
	}

	sort.Slice(objects, func(i, j int) bool { return objects[i].Key < objects[j].Key })
	return objects, stats, nil
}

// DeleteDirectory 递归删除前缀下的所有对象，返回删除数量
func (a *Archive) DeleteDirectory(ctx context.Context, prefix string) (int, error) {
	if strings.TrimSpace(prefix) == "" {
		return 0, fmt.Errorf("删除操作需要指定目录前缀")
	}

	objectCh := a.client.ListObjects(ctx, a.bucket, minio.ListObjectsOptions{
		Prefix:    prefix,
		Recursive: true,
	})

	var toDelete []minio.ObjectInfo
	for object := range objectCh {
		if object.Err != nil {
			logger.Warn("列出对象时出错", logger.ErrorField(object.Err))
			continue
		}
		toDelete = append(toDelete, object)
	}
	if len(toDelete) == 0 {
		return 0, fmt.Errorf("目录 %s 为空或不存在", prefix)
	}

	objectsCh := make(chan minio.ObjectInfo, len(toDelete))
	go func() {
		defer close(objectsCh)
		for _, obj := range toDelete {
			objectsCh <- obj
		}
	}()

	for rmErr := range a.client.RemoveObjects(ctx, a.bucket, objectsCh, minio.RemoveObjectsOptions{}) {
		if rmErr.Err != nil {
			return 0, fmt.Errorf("删除对象 %s 失败: %w", rmErr.ObjectName, rmErr.Err)
		}
	}
	return len(toDelete), nil
}

// FormatSize 格式化文件大小
func FormatSize(size int64) string {
	const unit = 1024
	if size < unit {
		return fmt.Sprintf("%d B", size)
	}
	div, exp := int64(unit), 0
	for n := size / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(size)/float64(div), "KMGTPE"[exp])
}

// fileExtension 获取小写扩展名，没有扩展名时返回 "unknown"
func fileExtension(key string) string {
	base := key[strings.LastIndex(key, "/")+1:]
	if i := strings.LastIndex(base, "."); i >= 0 && i < len(base)-1 {
		return strings.ToLower(base[i+1:])
	}
	return "unknown"
}
