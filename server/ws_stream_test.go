package server

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"AudioScribe/core/progress"

	"github.com/gorilla/websocket"
)

func dialStatus(t *testing.T, srv *httptest.Server, taskID string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/task-status/" + taskID
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial %s: %v", url, err)
	}
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	return conn
}

func TestTaskStatusStreamPushesChangesUntilTerminal(t *testing.T) {
	f := newFixture(t)
	srv := httptest.NewServer(f.router)
	defer srv.Close()

	tracker := f.handler.orchestrator.Tracker()
	if err := tracker.Update("job-1", 40, "transcribing"); err != nil {
		t.Fatal(err)
	}

	conn := dialStatus(t, srv, "job-1")
	defer conn.Close()

	var snap progress.Snapshot
	if err := conn.ReadJSON(&snap); err != nil {
		t.Fatalf("read running snapshot: %v", err)
	}
	if snap.Status != progress.StatusRunning || snap.Progress != 40 {
		t.Fatalf("first snapshot = %+v", snap)
	}

	if err := tracker.Complete("job-1", "transcription complete"); err != nil {
		t.Fatal(err)
	}
	if err := conn.ReadJSON(&snap); err != nil {
		t.Fatalf("read complete snapshot: %v", err)
	}
	if snap.Status != progress.StatusComplete || snap.Progress != 100 {
		t.Fatalf("second snapshot = %+v", snap)
	}

	if _, _, err := conn.ReadMessage(); !websocket.IsCloseError(err, websocket.CloseNormalClosure) {
		t.Fatalf("expected normal close after terminal state, got %v", err)
	}
}

func TestTaskStatusStreamFinishedTask(t *testing.T) {
	f := newFixture(t)
	srv := httptest.NewServer(f.router)
	defer srv.Close()

	f.handler.orchestrator.Tracker().Fail("job-2", errTest("backend crashed"))

	conn := dialStatus(t, srv, "job-2")
	defer conn.Close()

	var snap progress.Snapshot
	if err := conn.ReadJSON(&snap); err != nil {
		t.Fatalf("read snapshot: %v", err)
	}
	if snap.Status != progress.StatusError || snap.Error == nil || *snap.Error != "backend crashed" {
		t.Fatalf("snapshot = %+v", snap)
	}
	if _, _, err := conn.ReadMessage(); !websocket.IsCloseError(err, websocket.CloseNormalClosure) {
		t.Fatalf("expected normal close, got %v", err)
	}
}

func TestSameSnapshot(t *testing.T) {
	a, b := "x", "x"
	c := "y"
	base := progress.Snapshot{Status: progress.StatusError, Progress: 20, Message: "x"}

	withA, withB, withC := base, base, base
	withA.Error, withB.Error, withC.Error = &a, &b, &c

	if !sameSnapshot(withA, withB) {
		t.Fatal("equal error strings behind different pointers should match")
	}
	if sameSnapshot(withA, withC) || sameSnapshot(base, withA) {
		t.Fatal("different errors should not match")
	}
}

type errTest string

func (e errTest) Error() string { return string(e) }
