package roleplay

import (
	"context"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	roleplayService "github.com/zhouzirui/novel-roleplay/backend/internal/service/roleplay"
	"github.com/zhouzirui/novel-roleplay/backend/pkg/utils"
)

const (
	wsReadTimeout  = 60 * time.Second
	wsPingInterval = 54 * time.Second
	wsWriteTimeout = 10 * time.Second
)

type inboundMessage struct {
	Type      string `json:"type"`
	Timestamp int64  `json:"timestamp"`
}

type outgoingMessage struct {
	Type      string      `json:"type"`
	ViewerID  string      `json:"viewerId,omitempty"`
	Data      interface{} `json:"data,omitempty"`
	Timestamp int64       `json:"timestamp"`
}

// wsConn 串行化对同一连接的写操作，gorilla 连接不支持并发写。
type wsConn struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (c *wsConn) send(msg outgoingMessage) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	msg.Timestamp = time.Now().Unix()
	_ = c.conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
	return c.conn.WriteJSON(msg)
}

func (c *wsConn) ping() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	_ = c.conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
	return c.conn.WriteMessage(websocket.PingMessage, nil)
}

// handleWebSocket 推送查看器事件并接收 start/confirm/continue/retry 指令
func (h *Handler) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	viewerID := chi.URLParam(r, "viewerID")
	viewer, err := h.svc.Get(viewerID)
	if err != nil {
		utils.RespondError(w, statusFor(err), err.Error())
		return
	}

	raw, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[websocket] upgrade failed: %v", err)
		return
	}
	defer raw.Close()
	conn := &wsConn{conn: raw}

	log.Printf("[websocket] new connection for viewer: %s", viewerID)

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	_ = raw.SetReadDeadline(time.Now().Add(wsReadTimeout))
	raw.SetPongHandler(func(string) error {
		return raw.SetReadDeadline(time.Now().Add(wsReadTimeout))
	})

	events, unsubscribe := viewer.Hub.Subscribe()
	defer unsubscribe()

	go h.pushLoop(ctx, cancel, conn, viewerID, events)
	go pingLoop(ctx, conn)

	for {
		var msg inboundMessage
		if err := raw.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("[websocket] read error viewer=%s: %v", viewerID, err)
			}
			return
		}
		_ = raw.SetReadDeadline(time.Now().Add(wsReadTimeout))

		if err := dispatch(viewer.Sequencer, msg.Type); err != nil {
			h.sendError(conn, viewerID, msg.Type, err)
			continue
		}
		if err := conn.send(outgoingMessage{Type: "ack", ViewerID: viewerID, Data: map[string]string{"action": msg.Type}}); err != nil {
			log.Printf("[websocket] write ack failed: %v", err)
			return
		}
	}
}

// pushLoop 转发 hub 事件；查看器关闭时发送 closed 并结束连接。
func (h *Handler) pushLoop(ctx context.Context, cancel context.CancelFunc, conn *wsConn, viewerID string, events <-chan roleplayService.Event) {
	defer cancel()
	for {
		select {
		case <-ctx.Done():
			return
		case evt, ok := <-events:
			if !ok {
				_ = conn.send(outgoingMessage{Type: "closed", ViewerID: viewerID})
				conn.mu.Lock()
				_ = conn.conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, "viewer closed"),
					time.Now().Add(wsWriteTimeout))
				conn.mu.Unlock()
				return
			}
			var data interface{} = evt.Snapshot
			if evt.Notice != nil {
				data = evt.Notice
			}
			if err := conn.send(outgoingMessage{Type: evt.Name(), ViewerID: viewerID, Data: data}); err != nil {
				log.Printf("[websocket] write event failed viewer=%s: %v", viewerID, err)
				return
			}
		}
	}
}

func (h *Handler) sendError(conn *wsConn, viewerID, action string, err error) {
	msg := outgoingMessage{
		Type:     "error",
		ViewerID: viewerID,
		Data: map[string]any{
			"action":  action,
			"status":  statusFor(err),
			"message": err.Error(),
		},
	}
	if err := conn.send(msg); err != nil {
		log.Printf("[websocket] write error failed: %v", err)
	}
}

// pingLoop 定期发送ping消息
func pingLoop(ctx context.Context, conn *wsConn) {
	ticker := time.NewTicker(wsPingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := conn.ping(); err != nil {
				return
			}
		}
	}
}
