package recognizer

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"AudioScribe/core/apperr"
)

// StubBackend produces deterministic transcripts without a model.
type StubBackend struct {
	model string
}

// NewStubBackend 创建占位识别后端
func NewStubBackend(model string) *StubBackend {
	return &StubBackend{model: model}
}

// Generate implements Backend.
func (s *StubBackend) Generate(_ context.Context, audioPath string) ([]Result, error) {
	stat, err := os.Stat(audioPath)
	if err != nil {
		return nil, apperr.Wrap(apperr.RecognitionFailure, "recognize", err)
	}
	return []Result{{
		Text: fmt.Sprintf("[stub:%s] %s %d bytes", s.model, filepath.Base(audioPath), stat.Size()),
	}}, nil
}
