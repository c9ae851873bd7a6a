package recognizer

import (
	"context"
	"sync"

	"AudioScribe/core/apperr"
	"AudioScribe/logger"
)

// Factory builds and initializes a backend. It may be slow.
type Factory func(ctx context.Context) (Backend, error)

type loadCall struct {
	done    chan struct{}
	backend Backend
	err     error
}

// Loader initializes a backend lazily with single-flight semantics: at most
// one initialization runs at a time, concurrent callers share its outcome,
// a success is kept and a failure is retried by the next caller.
type Loader struct {
	factory Factory

	mu       sync.Mutex
	backend  Backend
	inflight *loadCall
}

// NewLoader 创建懒加载器
func NewLoader(factory Factory) *Loader {
	return &Loader{factory: factory}
}

// NewStaticLoader 包装一个已就绪的后端
func NewStaticLoader(b Backend) *Loader {
	return &Loader{backend: b}
}

// Ready 报告后端是否已初始化
func (l *Loader) Ready() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.backend != nil
}

// Get returns the initialized backend, running the factory if needed.
// Failures are reported as BackendUnavailable.
func (l *Loader) Get(ctx context.Context) (Backend, error) {
	l.mu.Lock()
	if l.backend != nil {
		b := l.backend
		l.mu.Unlock()
		return b, nil
	}
	if c := l.inflight; c != nil {
		l.mu.Unlock()
		select {
		case <-c.done:
			return c.backend, c.err
		case <-ctx.Done():
			return nil, apperr.Wrap(apperr.BackendUnavailable, "load backend", ctx.Err())
		}
	}

	c := &loadCall{done: make(chan struct{})}
	l.inflight = c
	l.mu.Unlock()

	logger.Info("正在初始化识别后端")
	b, err := l.factory(ctx)
	if err == nil && b == nil {
		err = apperr.New(apperr.BackendUnavailable, "load backend", "factory returned no backend")
	}
	if err != nil {
		if !apperr.Is(err, apperr.BackendUnavailable) {
			err = apperr.Wrapf(apperr.BackendUnavailable, "load backend", err, "recognition backend failed to initialize")
		}
		b = nil
		logger.Error("识别后端初始化失败", logger.ErrorField(err))
	} else {
		logger.Info("识别后端初始化完成")
	}

	l.mu.Lock()
	if err == nil {
		l.backend = b
	}
	l.inflight = nil
	c.backend, c.err = b, err
	close(c.done)
	l.mu.Unlock()

	return b, err
}
