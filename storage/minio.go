package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"AudioScribe/config"
	"AudioScribe/logger"

	"github.com/cenkalti/backoff/v4"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// 对象键前缀
const (
	UploadPrefix     = "uploads/"
	TranscriptPrefix = "transcripts/"
)

// Archive 封装了 MinIO 客户端和存储桶
type Archive struct {
	client *minio.Client
	bucket string
	region string
}

// NewArchive 连接 MinIO 并确保存储桶存在，启动阶段失败会按指数退避重试
func NewArchive(ctx context.Context, cfg *config.Config) (*Archive, error) {
	logger.Info("正在连接 MinIO 服务器...",
		logger.String("endpoint", cfg.MinioEndpoint),
		logger.String("bucket", cfg.MinioBucket),
		logger.Bool("ssl", cfg.MinioUseSSL))

	client, err := minio.New(cfg.MinioEndpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.MinioAccessKey, cfg.MinioSecretKey, ""),
		Secure: cfg.MinioUseSSL,
		Region: cfg.MinioRegion,
	})
	if err != nil {
		return nil, fmt.Errorf("创建 MinIO 客户端失败: %w", err)
	}

	a := &Archive{client: client, bucket: cfg.MinioBucket, region: cfg.MinioRegion}

	operation := func() error {
		opCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		return a.ensureBucket(opCtx)
	}
	notify := func(err error, wait time.Duration) {
		logger.Warn("MinIO 连接失败，准备重试", logger.Duration("wait", wait), logger.ErrorField(err))
	}
	b := backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 3)
	if err := backoff.RetryNotify(operation, backoff.WithContext(b, ctx), notify); err != nil {
		return nil, fmt.Errorf("连接 MinIO 失败: %w", err)
	}

	logger.Info("✅ MinIO 客户端初始化成功", logger.String("bucket", a.bucket))
	return a, nil
}

func (a *Archive) ensureBucket(ctx context.Context) error {
	exists, err := a.client.BucketExists(ctx, a.bucket)
	if err != nil {
		return fmt.Errorf("检查存储桶失败: %w", err)
	}
	if exists {
		return nil
	}
	if err := a.client.MakeBucket(ctx, a.bucket, minio.MakeBucketOptions{Region: a.region}); err != nil {
		return fmt.Errorf("创建存储桶失败: %w", err)
	}
	logger.Info("✅ 成功创建存储桶", logger.String("bucket", a.bucket))
	return nil
}

// Bucket 返回存储桶名称
func (a *Archive) Bucket() string {
	return a.bucket
}

// UploadKey 返回上传文件的对象键
func UploadKey(filename string) string {
	return UploadPrefix + path.Base(filepath.ToSlash(filename))
}

// TranscriptKey 返回转录缓存的对象键 transcripts/<hash>.txt
func TranscriptKey(hash string) string {
	return TranscriptPrefix + hash + ".txt"
}

// PutObject 上传任意数据
func (a *Archive) PutObject(ctx context.Context, key string, r io.Reader, size int64, contentType string) error {
	_, err := a.client.PutObject(ctx, a.bucket, key, r, size, minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		return fmt.Errorf("上传对象 %s 失败: %w", key, err)
	}
	return nil
}

// PutFile 上传本地文件
func (a *Archive) PutFile(ctx context.Context, key, localPath, contentType string) error {
	_, err := a.client.FPutObject(ctx, a.bucket, key, localPath, minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		return fmt.Errorf("上传文件 %s 失败: %w", localPath, err)
	}
	logger.Debug("文件已归档", logger.String("key", key), logger.String("path", localPath))
	return nil
}

// PutText 上传文本对象
func (a *Archive) PutText(ctx context.Context, key, text string) error {
	return a.PutObject(ctx, key, strings.NewReader(text), int64(len(text)), "text/plain; charset=utf-8")
}

// GetText 读取文本对象。对象不存在时返回 "", false, nil
func (a *Archive) GetText(ctx context.Context, key string) (string, bool, error) {
	obj, err := a.client.GetObject(ctx, a.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		if isNoSuchKey(err) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("读取对象 %s 失败: %w", key, err)
	}
	defer obj.Close()

	// GetObject 是惰性的，NoSuchKey 在第一次读取时才返回
	data, err := io.ReadAll(obj)
	if err != nil {
		if isNoSuchKey(err) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("读取对象 %s 内容失败: %w", key, err)
	}
	return string(data), true, nil
}

// RemoveObject 删除单个对象，不存在时不报错
func (a *Archive) RemoveObject(ctx context.Context, key string) error {
	if err := a.client.RemoveObject(ctx, a.bucket, key, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("删除对象 %s 失败: %w", key, err)
	}
	return nil
}

// ArchiveUpload 将上传文件归档到 uploads/ 前缀下
func (a *Archive) ArchiveUpload(ctx context.Context, localPath, contentType string) error {
	if _, err := os.Stat(localPath); err != nil {
		return err
	}
	return a.PutFile(ctx, UploadKey(localPath), localPath, contentType)
}

func isNoSuchKey(err error) bool {
	resp := minio.ToErrorResponse(err)
	return resp.Code == "NoSuchKey" || strings.Contains(err.Error(), "NoSuchKey")
}
