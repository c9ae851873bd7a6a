package repository

import (
	"context"
	"errors"

	"AudioScribe/model"

	"gorm.io/gorm"
)

// TranscriptRepository 转录历史数据访问接口
type TranscriptRepository interface {
	Create(ctx context.Context, record *model.TranscriptRecord) error
	Recent(ctx context.Context, limit int) ([]*model.TranscriptRecord, error)
	LatestByHash(ctx context.Context, hash string) (*model.TranscriptRecord, error)
	DeleteByHash(ctx context.Context, hash string) error
}

// gormTranscriptRepository GORM 实现
type gormTranscriptRepository struct {
	db *gorm.DB
}

// NewGormTranscriptRepository 创建 GORM 转录历史仓库
func NewGormTranscriptRepository(db *gorm.DB) TranscriptRepository {
	return &gormTranscriptRepository{db: db}
}

// Create 写入一条记录
func (r *gormTranscriptRepository) Create(ctx context.Context, record *model.TranscriptRecord) error {
	return r.db.WithContext(ctx).Create(record).Error
}

// Recent 按时间倒序返回最近的记录
func (r *gormTranscriptRepository) Recent(ctx context.Context, limit int) ([]*model.TranscriptRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	var records []*model.TranscriptRecord
	err := r.db.WithContext(ctx).
		Order("created_at DESC").
		Limit(limit).
		Find(&records).Error
	return records, err
}

// LatestByHash 返回某内容最近一次转录记录，不存在时返回 nil, nil
func (r *gormTranscriptRepository) LatestByHash(ctx context.Context, hash string) (*model.TranscriptRecord, error) {
	var record model.TranscriptRecord
	err := r.db.WithContext(ctx).
		Where("content_hash = ?", hash).
		Order("created_at DESC").
		First(&record).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &record, nil
}

// DeleteByHash 删除某内容的全部历史
func (r *gormTranscriptRepository) DeleteByHash(ctx context.Context, hash string) error {
	return r.db.WithContext(ctx).
		Where("content_hash = ?", hash).
		Delete(&model.TranscriptRecord{}).Error
}
