package recognizer

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"AudioScribe/core/apperr"
)

type fixedBackend struct{ text string }

func (f fixedBackend) Generate(context.Context, string) ([]Result, error) {
	return []Result{{Text: f.text}}, nil
}

func TestLoaderInitializesOnce(t *testing.T) {
	var calls int32
	release := make(chan struct{})
	l := NewLoader(func(context.Context) (Backend, error) {
		atomic.AddInt32(&calls, 1)
		<-release
		return fixedBackend{text: "ok"}, nil
	})

	const callers = 16
	var wg sync.WaitGroup
	errs := make(chan error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			b, err := l.Get(context.Background())
			if err == nil && b == nil {
				err = errors.New("nil backend")
			}
			errs <- err
		}()
	}

	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()
	close(errs)

	for err := range errs {
		if err != nil {
			t.Fatal(err)
		}
	}
	if n := atomic.LoadInt32(&calls); n != 1 {
		t.Fatalf("factory ran %d times", n)
	}
	if !l.Ready() {
		t.Fatal("loader should be ready")
	}
}

func TestLoaderRetriesAfterFailure(t *testing.T) {
	var calls int32
	l := NewLoader(func(context.Context) (Backend, error) {
		if atomic.AddInt32(&calls, 1) == 1 {
			return nil, errors.New("model files missing")
		}
		return fixedBackend{}, nil
	})

	_, err := l.Get(context.Background())
	if !apperr.Is(err, apperr.BackendUnavailable) {
		t.Fatalf("err = %v, want BackendUnavailable", err)
	}
	if l.Ready() {
		t.Fatal("failed load must not be cached")
	}

	if _, err := l.Get(context.Background()); err != nil {
		t.Fatalf("second Get: %v", err)
	}
	if _, err := l.Get(context.Background()); err != nil {
		t.Fatal(err)
	}
	if n := atomic.LoadInt32(&calls); n != 2 {
		t.Fatalf("factory ran %d times, want 2", n)
	}
}

func TestLoaderWaiterHonorsContext(t *testing.T) {
	release := make(chan struct{})
	defer close(release)
	l := NewLoader(func(context.Context) (Backend, error) {
		<-release
		return fixedBackend{}, nil
	})

	go l.Get(context.Background())
	time.Sleep(10 * time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if _, err := l.Get(ctx); !apperr.Is(err, apperr.BackendUnavailable) {
		t.Fatalf("err = %v", err)
	}
}

func TestStaticLoader(t *testing.T) {
	l := NewStaticLoader(fixedBackend{text: "x"})
	if !l.Ready() {
		t.Fatal("static loader should be ready")
	}
	b, err := l.Get(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	res, _ := b.Generate(context.Background(), "a.wav")
	if res[0].Text != "x" {
		t.Fatalf("res = %v", res)
	}
}
