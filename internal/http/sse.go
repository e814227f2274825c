package httpapi

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/fairyhunter13/gng-store/internal/feed"
	"github.com/fairyhunter13/gng-store/internal/model"
	"github.com/fairyhunter13/gng-store/internal/obs"
)

const keepAliveInterval = 15 * time.Second

// eventsHandler streams store changes as server-sent events. The first
// event, "hello", carries the current summary so a client can render
// before any mutation happens.
func (a *App) eventsHandler(w http.ResponseWriter, r *http.Request) {
	if a.closing.Load() {
		WriteJSONError(w, http.StatusServiceUnavailable, "shutting_down", "")
		return
	}
	rc := http.NewResponseController(w)
	ch, cancel := a.Feed.Subscribe()
	defer cancel()

	_ = rc.SetWriteDeadline(time.Time{})
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	hello := feed.Event{Seq: a.Feed.LastSeq(), Op: "hello", At: time.Now().UTC().Format(model.DateLayout), Summary: a.Store.Summary()}
	if err := writeEvent(w, hello); err != nil {
		return
	}
	if err := rc.Flush(); err != nil {
		obs.L().Warn("sse_flush_unsupported", "error", err)
		return
	}

	ticker := time.NewTicker(keepAliveInterval)
	defer ticker.Stop()
	for {
		select {
		case <-r.Context().Done():
			return
		case <-ticker.C:
			if _, err := fmt.Fprint(w, ": ping\n\n"); err != nil {
				return
			}
		case ev, ok := <-ch:
			if !ok {
				return
			}
			if err := writeEvent(w, ev); err != nil {
				return
			}
		}
		if err := rc.Flush(); err != nil {
			return
		}
	}
}

func writeEvent(w http.ResponseWriter, ev feed.Event) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "id: %d\nevent: %s\ndata: %s\n\n", ev.Seq, ev.Op, data)
	return err
}
