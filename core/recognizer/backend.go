package recognizer

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

// Result is one recognized utterance returned by a backend.
type Result struct {
	Text string `json:"text"`
}

// Backend turns a canonical WAV file into text.
type Backend interface {
	Generate(ctx context.Context, audioPath string) ([]Result, error)
}

// Options 识别后端通用参数
type Options struct {
	Model       string
	Punctuation bool
}

type rawResult struct {
	Text *string `json:"text"`
}

// parseResults accepts either [{"text": ...}, ...] or a single {"text": ...}.
// An element without a text field is malformed.
func parseResults(data []byte) ([]Result, error) {
	trimmed := strings.TrimSpace(string(data))
	if trimmed == "" {
		return nil, fmt.Errorf("empty recognizer output")
	}

	var raw []rawResult
	switch trimmed[0] {
	case '[':
		if err := json.Unmarshal([]byte(trimmed), &raw); err != nil {
			return nil, fmt.Errorf("parse recognizer output: %w", err)
		}
	case '{':
		var single rawResult
		if err := json.Unmarshal([]byte(trimmed), &single); err != nil {
			return nil, fmt.Errorf("parse recognizer output: %w", err)
		}
		raw = []rawResult{single}
	default:
		return nil, fmt.Errorf("unexpected recognizer output: %.120s", trimmed)
	}

	results := make([]Result, 0, len(raw))
	for i, r := range raw {
		if r.Text == nil {
			return nil, fmt.Errorf("recognizer result %d has no text field", i)
		}
		results = append(results, Result{Text: *r.Text})
	}
	return results, nil
}
