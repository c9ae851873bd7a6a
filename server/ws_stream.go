package server

import (
	"net/http"
	"time"

	"AudioScribe/core/progress"
	"AudioScribe/logger"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
)

const (
	statusPollInterval = 250 * time.Millisecond
	wsWriteWait        = 10 * time.Second
)

var wsUpgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// TaskStatusStreamHandler pushes the task snapshot over a websocket every
// time it changes and closes the connection once the task is terminal.
func (h *APIHandler) TaskStatusStreamHandler(w http.ResponseWriter, r *http.Request) {
	taskID := mux.Vars(r)["taskId"]

	conn, err := wsUpgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Error("websocket upgrade failed", logger.ErrorField(err))
		return
	}
	defer conn.Close()

	// 读循环只用于感知客户端断开
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(statusPollInterval)
	defer ticker.Stop()

	tracker := h.orchestrator.Tracker()
	var last *progress.Snapshot
	for {
		snap := tracker.Get(taskID)
		if last == nil || !sameSnapshot(*last, snap) {
			conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := conn.WriteJSON(snap); err != nil {
				logger.Debug("websocket write", logger.String("task", taskID), logger.ErrorField(err))
				return
			}
			last = &snap
		}

		if snap.Terminal() {
			msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, string(snap.Status))
			if err := conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(wsWriteWait)); err != nil {
				logger.Debug("websocket close", logger.String("task", taskID), logger.ErrorField(err))
			}
			return
		}

		select {
		case <-closed:
			return
		case <-ticker.C:
		}
	}
}

func sameSnapshot(a, b progress.Snapshot) bool {
	if a.Status != b.Status || a.Progress != b.Progress || a.Message != b.Message {
		return false
	}
	if a.Error == nil || b.Error == nil {
		return a.Error == b.Error
	}
	return *a.Error == *b.Error
}
