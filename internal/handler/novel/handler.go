package novel

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/zhouzirui/novel-roleplay/backend/internal/model/novel"
	"github.com/zhouzirui/novel-roleplay/backend/internal/service/novelapi"
	"github.com/zhouzirui/novel-roleplay/backend/pkg/utils"
)

const (
	defaultLimit = 20
	maxLimit     = 100
)

// Catalog 小说与章节的只读数据源，novelapi.Client 实现了该接口。
type Catalog interface {
	ListNovels(ctx context.Context, skip, limit int) ([]novel.Novel, error)
	GetNovel(ctx context.Context, novelID string) (novel.Novel, error)
	ListChapters(ctx context.Context, novelID string) ([]novel.Chapter, error)
	GetChapter(ctx context.Context, novelID string, chapterNumber int) (novel.Chapter, error)
}

// Handler 小说目录的HTTP处理器
type Handler struct {
	catalog Catalog
}

// New 创建小说目录处理器
func New(catalog Catalog) *Handler {
	return &Handler{catalog: catalog}
}

// RegisterRoutes 注册小说目录相关的路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/novels", h.handleListNovels)
	r.Get("/novels/{novelID}", h.handleGetNovel)
	r.Get("/novels/{novelID}/chapters", h.handleListChapters)
	r.Get("/novels/{novelID}/chapters/{chapter}", h.handleGetChapter)
}

func (h *Handler) handleListNovels(w http.ResponseWriter, r *http.Request) {
	skip, err := queryInt(r, "skip", 0)
	if err != nil || skip < 0 {
		utils.RespondError(w, http.StatusBadRequest, "skip must be a non-negative integer")
		return
	}
	limit, err := queryInt(r, "limit", defaultLimit)
	if err != nil || limit < 1 {
		utils.RespondError(w, http.StatusBadRequest, "limit must be a positive integer")
		return
	}
	if limit > maxLimit {
		limit = maxLimit
	}

	novels, err := h.catalog.ListNovels(r.Context(), skip, limit)
	if err != nil {
		respondUpstreamError(w, err)
		return
	}
	if novels == nil {
		novels = []novel.Novel{}
	}
	utils.RespondJSON(w, http.StatusOK, novels)
}

func (h *Handler) handleGetNovel(w http.ResponseWriter, r *http.Request) {
	n, err := h.catalog.GetNovel(r.Context(), chi.URLParam(r, "novelID"))
	if err != nil {
		respondUpstreamError(w, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, n)
}

func (h *Handler) handleListChapters(w http.ResponseWriter, r *http.Request) {
	chapters, err := h.catalog.ListChapters(r.Context(), chi.URLParam(r, "novelID"))
	if err != nil {
		respondUpstreamError(w, err)
		return
	}
	if chapters == nil {
		chapters = []novel.Chapter{}
	}
	utils.RespondJSON(w, http.StatusOK, chapters)
}

func (h *Handler) handleGetChapter(w http.ResponseWriter, r *http.Request) {
	number, err := strconv.Atoi(chi.URLParam(r, "chapter"))
	if err != nil || number < 1 {
		utils.RespondError(w, http.StatusBadRequest, "chapter must be a positive integer")
		return
	}

	chapter, err := h.catalog.GetChapter(r.Context(), chi.URLParam(r, "novelID"), number)
	if err != nil {
		respondUpstreamError(w, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, chapter)
}

func queryInt(r *http.Request, key string, fallback int) (int, error) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return fallback, nil
	}
	return strconv.Atoi(raw)
}

// respondUpstreamError 将后端错误映射为HTTP状态码：后端404透传，其余视为网关错误。
func respondUpstreamError(w http.ResponseWriter, err error) {
	var te *novelapi.TransportError
	if errors.As(err, &te) && te.StatusCode == http.StatusNotFound {
		message := te.Detail
		if message == "" {
			message = "not found"
		}
		utils.RespondError(w, http.StatusNotFound, message)
		return
	}
	utils.RespondError(w, http.StatusBadGateway, err.Error())
}
