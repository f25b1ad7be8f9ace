package novelapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/zhouzirui/novel-roleplay/backend/internal/model/dialogue"
	"github.com/zhouzirui/novel-roleplay/backend/internal/model/novel"
)

// ErrTransport matches every *TransportError via errors.Is.
var ErrTransport = errors.New("novel api transport error")

// TransportError 表示网络不可达或后端返回了非成功状态码。
type TransportError struct {
	Op         string
	StatusCode int
	Detail     string
	Err        error
}

func (e *TransportError) Error() string {
	switch {
	case e.StatusCode != 0 && e.Detail != "":
		return fmt.Sprintf("%s: status %d: %s", e.Op, e.StatusCode, e.Detail)
	case e.StatusCode != 0:
		return fmt.Sprintf("%s: status %d", e.Op, e.StatusCode)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	default:
		return e.Op + ": transport failure"
	}
}

func (e *TransportError) Unwrap() error { return e.Err }

// Is lets errors.Is(err, ErrTransport) match any transport failure.
func (e *TransportError) Is(target error) bool { return target == ErrTransport }

// Client talks to the novel-generator HTTP API.
type Client struct {
	baseURL string
	client  *http.Client
}

// NewClient 创建后端客户端，timeout 为单次请求超时。
func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
	}
}

type currentRequest struct {
	NovelID       string  `json:"novel_id"`
	ChapterNumber int     `json:"chapter_number"`
	SessionID     *string `json:"session_id"`
}

type sessionRequest struct {
	SessionID string `json:"session_id"`
}

// Current fetches the current dialogue line of a chapter. An empty sessionID
// asks the backend to open a new session; the issued id comes back in
// Line.SessionID.
func (c *Client) Current(ctx context.Context, novelID string, chapterNumber int, sessionID string) (dialogue.Line, error) {
	body := currentRequest{NovelID: novelID, ChapterNumber: chapterNumber}
	if sessionID != "" {
		body.SessionID = &sessionID
	}

	var line dialogue.Line
	err := c.do(ctx, "current dialogue", http.MethodPost, "/api/chapter-dialogue/current", body, &line)
	return line, err
}

// Advance moves a session past a non-protagonist line.
func (c *Client) Advance(ctx context.Context, sessionID string) (dialogue.Line, error) {
	var line dialogue.Line
	err := c.do(ctx, "advance dialogue", http.MethodPost, "/api/chapter-dialogue/advance", sessionRequest{SessionID: sessionID}, &line)
	return line, err
}

// Confirm acknowledges the protagonist line the session is waiting on.
func (c *Client) Confirm(ctx context.Context, sessionID string) (dialogue.Line, error) {
	var line dialogue.Line
	err := c.do(ctx, "confirm dialogue", http.MethodPost, "/api/chapter-dialogue/confirm", sessionRequest{SessionID: sessionID}, &line)
	return line, err
}

// ListNovels 分页获取小说列表。
func (c *Client) ListNovels(ctx context.Context, skip, limit int) ([]novel.Novel, error) {
	query := url.Values{}
	query.Set("skip", strconv.Itoa(skip))
	query.Set("limit", strconv.Itoa(limit))

	var novels []novel.Novel
	err := c.do(ctx, "list novels", http.MethodGet, "/api/novels-v2/?"+query.Encode(), nil, &novels)
	return novels, err
}

// GetNovel 获取小说详情。
func (c *Client) GetNovel(ctx context.Context, novelID string) (novel.Novel, error) {
	var n novel.Novel
	err := c.do(ctx, "get novel", http.MethodGet, "/api/novels-v2/"+url.PathEscape(novelID), nil, &n)
	return n, err
}

// ListChapters 获取小说的章节列表。
func (c *Client) ListChapters(ctx context.Context, novelID string) ([]novel.Chapter, error) {
	var chapters []novel.Chapter
	err := c.do(ctx, "list chapters", http.MethodGet, "/api/novels-v2/"+url.PathEscape(novelID)+"/chapters", nil, &chapters)
	return chapters, err
}

// GetChapter 获取单个章节。
func (c *Client) GetChapter(ctx context.Context, novelID string, chapterNumber int) (novel.Chapter, error) {
	var ch novel.Chapter
	path := fmt.Sprintf("/api/novels-v2/%s/chapters/%d", url.PathEscape(novelID), chapterNumber)
	err := c.do(ctx, "get chapter", http.MethodGet, path, nil, &ch)
	return ch, err
}

// errorResponse is FastAPI's error body.
type errorResponse struct {
	Detail json.RawMessage `json:"detail"`
}

func (c *Client) do(ctx context.Context, op, method, path string, in, out any) error {
	var reader io.Reader
	if in != nil {
		body, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("%s: marshal request: %w", op, err)
		}
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("%s: create request: %w", op, err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return &TransportError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return &TransportError{Op: op, StatusCode: resp.StatusCode, Err: fmt.Errorf("read response: %w", err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &TransportError{Op: op, StatusCode: resp.StatusCode, Detail: extractDetail(respBody)}
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return &TransportError{Op: op, StatusCode: resp.StatusCode, Err: fmt.Errorf("decode response: %w", err)}
	}
	return nil
}

// extractDetail 提取 FastAPI 的 detail 字段；detail 可能是字符串或校验错误数组。
func extractDetail(body []byte) string {
	var errResp errorResponse
	if json.Unmarshal(body, &errResp) != nil || len(errResp.Detail) == 0 {
		return truncate(string(bytes.TrimSpace(body)), 200)
	}

	var text string
	if json.Unmarshal(errResp.Detail, &text) == nil {
		return text
	}
	return truncate(string(errResp.Detail), 200)
}

func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max]) + "..."
}
