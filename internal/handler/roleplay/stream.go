package roleplay

import (
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/zhouzirui/novel-roleplay/backend/pkg/utils"
)

const sseHeartbeat = 15 * time.Second

// handleStream 通过 SSE 推送查看器的 snapshot/notice 事件，直到客户端断开或查看器关闭。
func (h *Handler) handleStream(w http.ResponseWriter, r *http.Request) {
	viewerID := chi.URLParam(r, "viewerID")
	viewer, err := h.svc.Get(viewerID)
	if err != nil {
		utils.RespondError(w, statusFor(err), err.Error())
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		utils.RespondError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	events, cancel := viewer.Hub.Subscribe()
	defer cancel()

	utils.SetupSSEHeaders(w)
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	ctx := r.Context()
	log.Printf("[sse] opening stream viewer=%s", viewerID)

	ticker := time.NewTicker(sseHeartbeat)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Printf("[sse] client gone viewer=%s", viewerID)
			return
		case evt, ok := <-events:
			if !ok {
				_ = utils.SendSSEEvent(w, flusher, "closed", map[string]string{"viewerId": viewerID})
				log.Printf("[sse] viewer closed, ending stream viewer=%s", viewerID)
				return
			}
			var payload interface{} = evt.Snapshot
			if evt.Notice != nil {
				payload = evt.Notice
			}
			if err := utils.SendSSEEvent(w, flusher, evt.Name(), payload); err != nil {
				log.Printf("[sse] write failed viewer=%s: %v", viewerID, err)
				return
			}
		case <-ticker.C:
			if err := utils.SendSSEComment(w, flusher, "heartbeat"); err != nil {
				return
			}
		}
	}
}
