package model

import "time"

// TranscriptRecord 一次转录请求的历史记录
type TranscriptRecord struct {
	ID              uint      `json:"id" gorm:"primaryKey;autoIncrement"`
	ContentHash     string    `json:"contentHash" gorm:"size:32;index;not null"`
	Filename        string    `json:"filename" gorm:"size:255;not null"`
	MIME            string    `json:"mime" gorm:"column:mime;size:100"`
	DurationSeconds float64   `json:"durationSeconds"`
	Segments        int       `json:"segments"`
	Characters      int       `json:"characters"`
	Cached          bool      `json:"cached" gorm:"index"`
	CreatedAt       time.Time `json:"createdAt" gorm:"index"`
}

// TableName 指定表名
func (TranscriptRecord) TableName() string {
	return "transcript_records"
}
