package progress

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"
)

func TestLazyPending(t *testing.T) {
	tr := NewTracker()
	s := tr.Get("a.mp4")
	if s.Status != StatusPending || s.Progress != 0 || s.Error != nil {
		t.Fatalf("snapshot = %+v", s)
	}
	if tr.Len() != 1 {
		t.Fatalf("Len = %d", tr.Len())
	}
}

func TestProgressIsMonotonic(t *testing.T) {
	tr := NewTracker()
	steps := []int{10, 20, 15, 30, 5, 90, 120}
	prev := 0
	for _, p := range steps {
		if err := tr.Update("job", p, fmt.Sprintf("step %d", p)); err != nil {
			t.Fatal(err)
		}
		s := tr.Get("job")
		if s.Progress < prev {
			t.Fatalf("progress went from %d to %d", prev, s.Progress)
		}
		if s.Message != fmt.Sprintf("step %d", p) {
			t.Fatalf("message = %q", s.Message)
		}
		if s.Status != StatusRunning || s.Progress > 99 {
			t.Fatalf("snapshot = %+v", s)
		}
		prev = s.Progress
	}

	if err := tr.Complete("job", "done"); err != nil {
		t.Fatal(err)
	}
	if s := tr.Get("job"); s.Progress != 100 || s.Status != StatusComplete {
		t.Fatalf("snapshot = %+v", s)
	}
}

func TestTerminalStatesAreFinal(t *testing.T) {
	tr := NewTracker()
	_ = tr.Update("job", 40, "working")
	if err := tr.Fail("job", errors.New("decoder exploded")); err != nil {
		t.Fatal(err)
	}

	if err := tr.Update("job", 50, "again"); !errors.Is(err, ErrTaskFinished) {
		t.Fatalf("err = %v", err)
	}
	if err := tr.Complete("job", "done"); !errors.Is(err, ErrTaskFinished) {
		t.Fatalf("err = %v", err)
	}

	s := tr.Get("job")
	if s.Status != StatusError || s.Error == nil || *s.Error != "decoder exploded" || s.Progress != 40 {
		t.Fatalf("snapshot = %+v", s)
	}
}

func TestClearGivesFreshPending(t *testing.T) {
	tr := NewTracker()
	_ = tr.Update("job", 70, "working")
	_ = tr.Complete("job", "done")

	tr.Clear("job")
	s := tr.Get("job")
	if s.Status != StatusPending || s.Progress != 0 || s.Message != "" {
		t.Fatalf("snapshot after clear = %+v", s)
	}
}

func TestSnapshotJSON(t *testing.T) {
	tr := NewTracker()
	_ = tr.Update("job", 20, "normalizing audio")

	data, err := json.Marshal(tr.Get("job"))
	if err != nil {
		t.Fatal(err)
	}
	want := `{"status":"running","progress":20,"message":"normalizing audio","error":null}`
	if string(data) != want {
		t.Fatalf("json = %s", data)
	}
}

func TestConcurrentTasks(t *testing.T) {
	tr := NewTracker()
	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			for p := 0; p <= 99; p++ {
				_ = tr.Update(id, p, "tick")
				_ = tr.Get(id)
			}
			_ = tr.Complete(id, "done")
		}(fmt.Sprintf("task-%d", i))
	}
	wg.Wait()

	for i := 0; i < 32; i++ {
		if s := tr.Get(fmt.Sprintf("task-%d", i)); s.Status != StatusComplete {
			t.Fatalf("task-%d = %+v", i, s)
		}
	}
}
