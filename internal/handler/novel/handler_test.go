package novel

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/zhouzirui/novel-roleplay/backend/internal/model/novel"
	"github.com/zhouzirui/novel-roleplay/backend/internal/service/novelapi"
)

type fakeCatalog struct {
	skip, limit int
	err         error
}

func (f *fakeCatalog) ListNovels(_ context.Context, skip, limit int) ([]novel.Novel, error) {
	f.skip, f.limit = skip, limit
	if f.err != nil {
		return nil, f.err
	}
	return []novel.Novel{{ID: "n1", Title: "星河"}}, nil
}

func (f *fakeCatalog) GetNovel(_ context.Context, id string) (novel.Novel, error) {
	if f.err != nil {
		return novel.Novel{}, f.err
	}
	return novel.Novel{ID: id}, nil
}

func (f *fakeCatalog) ListChapters(context.Context, string) ([]novel.Chapter, error) {
	return nil, f.err
}

func (f *fakeCatalog) GetChapter(_ context.Context, id string, n int) (novel.Chapter, error) {
	if f.err != nil {
		return novel.Chapter{}, f.err
	}
	return novel.Chapter{NovelID: id, ChapterNumber: n}, nil
}

func setupRouter(catalog *fakeCatalog) *chi.Mux {
	r := chi.NewRouter()
	New(catalog).RegisterRoutes(r)
	return r
}

func TestListNovelsClampsLimit(t *testing.T) {
	catalog := &fakeCatalog{}
	r := setupRouter(catalog)

	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/novels?skip=10&limit=500", nil))

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	if catalog.skip != 10 || catalog.limit != maxLimit {
		t.Fatalf("unexpected paging skip=%d limit=%d", catalog.skip, catalog.limit)
	}
}

func TestListNovelsRejectsBadPaging(t *testing.T) {
	r := setupRouter(&fakeCatalog{})

	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/novels?limit=abc", nil))

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.Code)
	}
}

func TestListChaptersEmptyIsArray(t *testing.T) {
	r := setupRouter(&fakeCatalog{})

	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/novels/n1/chapters", nil))

	var chapters []novel.Chapter
	if err := json.NewDecoder(resp.Body).Decode(&chapters); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if chapters == nil || len(chapters) != 0 {
		t.Fatalf("expected empty array, got %v", chapters)
	}
}

func TestGetChapterValidatesNumber(t *testing.T) {
	r := setupRouter(&fakeCatalog{})

	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/novels/n1/chapters/0", nil))
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.Code)
	}

	resp = httptest.NewRecorder()
	r.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/novels/n1/chapters/3", nil))
	var chapter novel.Chapter
	_ = json.NewDecoder(resp.Body).Decode(&chapter)
	if resp.Code != http.StatusOK || chapter.ChapterNumber != 3 || chapter.NovelID != "n1" {
		t.Fatalf("unexpected response %d %+v", resp.Code, chapter)
	}
}

func TestUpstreamNotFoundIsForwarded(t *testing.T) {
	r := setupRouter(&fakeCatalog{err: &novelapi.TransportError{Op: "get novel", StatusCode: http.StatusNotFound, Detail: "小说不存在"}})

	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/novels/missing", nil))

	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.Code)
	}
	var body map[string]string
	_ = json.NewDecoder(resp.Body).Decode(&body)
	if body["error"] != "小说不存在" {
		t.Fatalf("unexpected error body %v", body)
	}
}

func TestUpstreamFailureIsBadGateway(t *testing.T) {
	r := setupRouter(&fakeCatalog{err: errors.New("connection refused")})

	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/novels", nil))

	if resp.Code != http.StatusBadGateway {
		t.Fatalf("expected 502, got %d", resp.Code)
	}
}
