package transcript

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"AudioScribe/core/apperr"
)

type memTier struct {
	mu      sync.Mutex
	entries map[string]string
	err     error
}

func newMemTier() *memTier { return &memTier{entries: make(map[string]string)} }

func (m *memTier) Name() string { return "mem" }

func (m *memTier) Get(_ context.Context, hash string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return "", false, m.err
	}
	text, ok := m.entries[hash]
	return text, ok, nil
}

func (m *memTier) Put(_ context.Context, hash, text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.entries[hash] = text
	return nil
}

func (m *memTier) Delete(_ context.Context, hash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, hash)
	return m.err
}

func write(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestRoundTripAndMiss(t *testing.T) {
	dir := t.TempDir()
	c := NewCache(filepath.Join(dir, "txt_output"))
	ctx := context.Background()

	src := filepath.Join(dir, "talk.wav")
	write(t, src, "some audio bytes")

	if _, ok, err := c.Lookup(ctx, src); ok || err != nil {
		t.Fatalf("fresh lookup: ok=%v err=%v", ok, err)
	}

	const text = "你好 world\n第二行"
	if err := c.Store(ctx, src, text); err != nil {
		t.Fatal(err)
	}
	got, ok, err := c.Lookup(ctx, src)
	if err != nil || !ok || got != text {
		t.Fatalf("Lookup = %q %v %v", got, ok, err)
	}

	hash, _ := c.Key(src)
	if _, err := os.Stat(c.EntryPath(hash)); err != nil {
		t.Fatalf("cache file missing: %v", err)
	}

	if err := c.Clear(ctx, src); err != nil {
		t.Fatal(err)
	}
	if _, ok, _ := c.Lookup(ctx, src); ok {
		t.Fatal("entry should be gone after Clear")
	}
}

func TestKeyDependsOnContentOnly(t *testing.T) {
	dir := t.TempDir()
	c := NewCache(dir)

	a := filepath.Join(dir, "a.mp3")
	b := filepath.Join(dir, "renamed copy.mp3")
	d := filepath.Join(dir, "d.mp3")
	content := string(make([]byte, 10000)) + "tail"
	write(t, a, content)
	write(t, b, content)
	write(t, d, content[:len(content)-1]+"X")

	ka, _ := c.Key(a)
	kb, _ := c.Key(b)
	kd, _ := c.Key(d)
	if ka != kb {
		t.Fatalf("identical bytes, different keys: %s %s", ka, kb)
	}
	if ka == kd {
		t.Fatal("one differing byte must change the key")
	}
	if len(ka) != 32 {
		t.Fatalf("key %q is not hex md5", ka)
	}
}

func TestKeyRecomputedWhenFileChanges(t *testing.T) {
	dir := t.TempDir()
	c := NewCache(dir)
	src := filepath.Join(dir, "a.wav")

	write(t, src, "first")
	first, _ := c.Key(src)

	write(t, src, "other")
	later := time.Now().Add(time.Hour)
	if err := os.Chtimes(src, later, later); err != nil {
		t.Fatal(err)
	}
	second, _ := c.Key(src)
	if first == second {
		t.Fatal("stale hash reused after the file changed")
	}
}

func TestKeyMissingFile(t *testing.T) {
	c := NewCache(t.TempDir())
	_, err := c.Key(filepath.Join(t.TempDir(), "nope"))
	if !apperr.Is(err, apperr.NotFound) {
		t.Fatalf("err = %v", err)
	}
}

func TestTierFallbackBackfillsFile(t *testing.T) {
	dir := t.TempDir()
	tier := newMemTier()
	c := NewCache(filepath.Join(dir, "cache"), tier)
	ctx := context.Background()

	src := filepath.Join(dir, "a.wav")
	write(t, src, "bytes")
	hash, _ := c.Key(src)
	tier.entries[hash] = "from tier"

	got, ok, err := c.Lookup(ctx, src)
	if err != nil || !ok || got != "from tier" {
		t.Fatalf("Lookup = %q %v %v", got, ok, err)
	}
	data, err := os.ReadFile(c.EntryPath(hash))
	if err != nil || string(data) != "from tier" {
		t.Fatalf("file tier not backfilled: %q %v", data, err)
	}
}

func TestTierErrorsAreNotFatal(t *testing.T) {
	dir := t.TempDir()
	tier := newMemTier()
	tier.err = errors.New("connection refused")
	c := NewCache(filepath.Join(dir, "cache"), tier)
	ctx := context.Background()

	src := filepath.Join(dir, "a.wav")
	write(t, src, "bytes")

	if _, ok, err := c.Lookup(ctx, src); ok || err != nil {
		t.Fatalf("lookup with failing tier: ok=%v err=%v", ok, err)
	}
	if err := c.Store(ctx, src, "text"); err != nil {
		t.Fatalf("store with failing tier: %v", err)
	}
	if got, ok, _ := c.Lookup(ctx, src); !ok || got != "text" {
		t.Fatalf("Lookup = %q %v", got, ok)
	}
}

func TestStoreWritesThroughTiers(t *testing.T) {
	dir := t.TempDir()
	tier := newMemTier()
	c := NewCache(filepath.Join(dir, "cache"), tier)

	src := filepath.Join(dir, "a.wav")
	write(t, src, "bytes")
	if err := c.Store(context.Background(), src, "hello"); err != nil {
		t.Fatal(err)
	}
	hash, _ := c.Key(src)
	if tier.entries[hash] != "hello" {
		t.Fatalf("tier entries = %v", tier.entries)
	}
}

func TestStoreFailsWhenFileTierUnwritable(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "cache")
	write(t, blocker, "a file where the cache dir should be")
	c := NewCache(blocker)

	src := filepath.Join(dir, "a.wav")
	write(t, src, "bytes")
	if err := c.Store(context.Background(), src, "x"); !apperr.Is(err, apperr.IOFailure) {
		t.Fatalf("err = %v, want IOFailure", err)
	}
}
