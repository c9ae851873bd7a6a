package recognizer

import (
	"context"
	"fmt"

	"AudioScribe/config"
)

// NewFactory selects a backend from cfg.RecognizerBackend.
func NewFactory(cfg *config.Config) (Factory, error) {
	opts := Options{Model: cfg.RecognizerModel, Punctuation: cfg.RecognizerPunctuation}

	switch cfg.RecognizerBackend {
	case "command":
		return func(ctx context.Context) (Backend, error) {
			b := NewCommandBackend(cfg.RecognizerCommand, opts, nil)
			if err := b.Load(ctx); err != nil {
				return nil, err
			}
			return b, nil
		}, nil
	case "http":
		if cfg.RecognizerURL == "" {
			return nil, fmt.Errorf("recognizer: RECOGNIZER_URL is required for the http backend")
		}
		return func(ctx context.Context) (Backend, error) {
			b := NewHTTPBackend(cfg.RecognizerURL, opts, nil)
			if err := b.Load(ctx); err != nil {
				return nil, err
			}
			return b, nil
		}, nil
	case "stub":
		return func(context.Context) (Backend, error) {
			return NewStubBackend(opts.Model), nil
		}, nil
	default:
		return nil, fmt.Errorf("recognizer: unknown backend %q", cfg.RecognizerBackend)
	}
}
