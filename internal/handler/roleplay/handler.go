package roleplay

import (
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/zhouzirui/novel-roleplay/backend/internal/model/novel"
	"github.com/zhouzirui/novel-roleplay/backend/internal/service/novelapi"
	roleplayService "github.com/zhouzirui/novel-roleplay/backend/internal/service/roleplay"
	"github.com/zhouzirui/novel-roleplay/backend/pkg/utils"
)

var errUnknownAction = errors.New("unknown action")

// Handler 主角扮演查看器的HTTP处理器
type Handler struct {
	svc      *roleplayService.Service
	upgrader websocket.Upgrader
}

// New 创建查看器处理器
func New(svc *roleplayService.Service) *Handler {
	return &Handler{
		svc: svc,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
}

// RegisterRoutes 注册查看器相关的路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/roleplay", func(rp chi.Router) {
		rp.Get("/viewers", h.handleListViewers)
		rp.Post("/viewers", h.handleOpenViewer)
		rp.Get("/viewers/{viewerID}", h.handleGetViewer)
		rp.Delete("/viewers/{viewerID}", h.handleCloseViewer)
		rp.Post("/viewers/{viewerID}/{action}", h.handleAction)
		rp.Get("/stream/{viewerID}", h.handleStream)
		rp.Get("/ws/{viewerID}", h.handleWebSocket)
	})
}

// viewerResponse 查看器信息，章节正文不随响应返回。
type viewerResponse struct {
	ID        string                   `json:"id"`
	Novel     novel.Novel              `json:"novel"`
	Chapter   novel.Chapter            `json:"chapter"`
	CreatedAt time.Time                `json:"createdAt"`
	Snapshot  roleplayService.Snapshot `json:"snapshot"`
}

func newViewerResponse(v *roleplayService.Viewer) viewerResponse {
	chapter := v.Chapter
	chapter.Content = ""
	return viewerResponse{
		ID:        v.ID,
		Novel:     v.Novel,
		Chapter:   chapter,
		CreatedAt: v.CreatedAt,
		Snapshot:  v.Sequencer.Snapshot(),
	}
}

func (h *Handler) handleListViewers(w http.ResponseWriter, r *http.Request) {
	viewers := h.svc.List()
	resp := make([]viewerResponse, 0, len(viewers))
	for _, v := range viewers {
		resp = append(resp, newViewerResponse(v))
	}
	utils.RespondJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleOpenViewer(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		NovelID       string `json:"novelId"`
		ChapterNumber int    `json:"chapterNumber"`
	}
	if err := utils.DecodeJSON(r, &payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	viewer, err := h.svc.Open(r.Context(), payload.NovelID, payload.ChapterNumber)
	if err != nil {
		log.Printf("[roleplay] open viewer novel=%s chapter=%d failed: %v", payload.NovelID, payload.ChapterNumber, err)
		utils.RespondError(w, statusFor(err), err.Error())
		return
	}

	utils.RespondJSON(w, http.StatusCreated, newViewerResponse(viewer))
}

func (h *Handler) handleGetViewer(w http.ResponseWriter, r *http.Request) {
	viewer, err := h.svc.Get(chi.URLParam(r, "viewerID"))
	if err != nil {
		utils.RespondError(w, statusFor(err), err.Error())
		return
	}
	utils.RespondJSON(w, http.StatusOK, newViewerResponse(viewer))
}

func (h *Handler) handleCloseViewer(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Close(chi.URLParam(r, "viewerID")); err != nil {
		utils.RespondError(w, statusFor(err), err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleAction 处理 start/confirm/continue/retry；抓取在后台进行，结果通过 stream/ws 推送。
func (h *Handler) handleAction(w http.ResponseWriter, r *http.Request) {
	viewer, err := h.svc.Get(chi.URLParam(r, "viewerID"))
	if err != nil {
		utils.RespondError(w, statusFor(err), err.Error())
		return
	}

	if err := dispatch(viewer.Sequencer, chi.URLParam(r, "action")); err != nil {
		utils.RespondError(w, statusFor(err), err.Error())
		return
	}

	utils.RespondJSON(w, http.StatusAccepted, viewer.Sequencer.Snapshot())
}

// dispatch 把动作名映射到序列器的人工操作。
func dispatch(seq *roleplayService.Sequencer, action string) error {
	switch action {
	case "start":
		return seq.Start()
	case "confirm":
		return seq.Confirm()
	case "continue":
		return seq.Continue()
	case "retry":
		return seq.Retry()
	default:
		return errUnknownAction
	}
}

func statusFor(err error) int {
	var te *novelapi.TransportError
	switch {
	case errors.Is(err, roleplayService.ErrViewerNotFound), errors.Is(err, errUnknownAction):
		return http.StatusNotFound
	case errors.Is(err, roleplayService.ErrClosed):
		return http.StatusGone
	case errors.Is(err, roleplayService.ErrInvalidPhase),
		errors.Is(err, roleplayService.ErrBusy),
		errors.Is(err, roleplayService.ErrMissingSession),
		errors.Is(err, roleplayService.ErrChapterNotReady):
		return http.StatusConflict
	case errors.Is(err, roleplayService.ErrNovelRequired), errors.Is(err, roleplayService.ErrInvalidChapter):
		return http.StatusBadRequest
	case errors.As(err, &te) && te.StatusCode == http.StatusNotFound:
		return http.StatusNotFound
	case errors.As(err, &te):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
