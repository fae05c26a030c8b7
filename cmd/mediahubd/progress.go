package main

import (
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"mediahub/internal/pipeline"
	"mediahub/pkg/logging"
)

// progressHub fans out Pipeline Executor progress ticks to every
// websocket subscriber watching a given recording. Concrete websocket
// wiring stays here rather than in an internal package: the core
// packages only know about pipeline.ProgressFunc.
type progressHub struct {
	logger logging.Logger

	mu   sync.Mutex
	subs map[string]map[chan int]struct{} // recording id -> set of subscriber channels
}

func newProgressHub(logger logging.Logger) *progressHub {
	return &progressHub{logger: logger, subs: map[string]map[chan int]struct{}{}}
}

func (h *progressHub) subscribe(recordingID string) chan int {
	ch := make(chan int, 8)
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.subs[recordingID] == nil {
		h.subs[recordingID] = map[chan int]struct{}{}
	}
	h.subs[recordingID][ch] = struct{}{}
	return ch
}

func (h *progressHub) unsubscribe(recordingID string, ch chan int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.subs[recordingID], ch)
	close(ch)
}

// publish implements the shape needed to adapt into pipeline.ProgressFunc
// for one recording's run.
func (h *progressHub) publish(recordingID string, percent int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.subs[recordingID] {
		select {
		case ch <- percent:
		default:
			// slow subscriber drops a tick rather than blocking the run
		}
	}
}

// progressFunc adapts one recording's run progress into the hub.
func (h *progressHub) progressFunc(recordingID string) pipeline.ProgressFunc {
	return func(percent int) { h.publish(recordingID, percent) }
}

var progressUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// serveProgress upgrades GET /recordings/:id/progress to a websocket and
// streams percent-complete ticks until the client disconnects or the run
// finishes publishing.
func (h *progressHub) serveProgress(c *gin.Context) {
	recordingID := c.Param("id")
	conn, err := progressUpgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.WithError(err).Warn("progress websocket upgrade failed")
		return
	}
	defer conn.Close()

	ch := h.subscribe(recordingID)
	defer h.unsubscribe(recordingID, ch)

	for percent := range ch {
		if err := conn.WriteJSON(gin.H{"recording_id": recordingID, "percent": percent}); err != nil {
			return
		}
		if percent >= 100 {
			return
		}
	}
}
