package recent

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"AudioScribe/logger"
)

// MaxEntries 最近文件列表长度上限
const MaxEntries = 10

// Record is one entry of the recent-files list.
type Record struct {
	Name string `json:"name"`
	Path string `json:"path"`
	Type string `json:"type"`
}

// List persists the most recently uploaded files as a JSON array,
// newest first, without duplicates.
type List struct {
	path string
	mu   sync.Mutex
}

// NewList 创建最近文件列表，path 为 JSON 文件路径
func NewList(path string) *List {
	return &List{path: path}
}

// Entries returns the stored records. A missing or corrupt file reads as empty.
func (l *List) Entries() []Record {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.load()
}

// Add inserts r at the front unless an identical record is already present.
func (l *List) Add(r Record) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	records := l.load()
	for _, existing := range records {
		if existing == r {
			return nil
		}
	}
	records = append([]Record{r}, records...)
	if len(records) > MaxEntries {
		records = records[:MaxEntries]
	}
	return l.save(records)
}

// Clear 清空列表
func (l *List) Clear() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.save([]Record{})
}

func (l *List) load() []Record {
	data, err := os.ReadFile(l.path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			logger.Warn("读取最近文件列表失败", logger.String("path", l.path), logger.ErrorField(err))
		}
		return []Record{}
	}

	var records []Record
	if err := json.Unmarshal(data, &records); err != nil {
		logger.Warn("最近文件列表格式错误，按空列表处理", logger.String("path", l.path), logger.ErrorField(err))
		return []Record{}
	}
	if records == nil {
		records = []Record{}
	}
	return records
}

func (l *List) save(records []Record) error {
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return err
	}
	if dir := filepath.Dir(l.path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("create recent list dir: %w", err)
		}
	}
	if err := os.WriteFile(l.path, data, 0644); err != nil {
		return fmt.Errorf("write recent list: %w", err)
	}
	return nil
}
