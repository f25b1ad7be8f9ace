package roleplay

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/zhouzirui/novel-roleplay/backend/internal/config"
	"github.com/zhouzirui/novel-roleplay/backend/internal/model/dialogue"
	"github.com/zhouzirui/novel-roleplay/backend/internal/model/novel"
)

var (
	ErrNovelRequired   = errors.New("novel id is required")
	ErrInvalidChapter  = errors.New("chapter number must be positive")
	ErrChapterNotReady = errors.New("chapter has no content yet")
)

// Catalog resolves the novel and chapter metadata a viewer needs before it
// may start.
type Catalog interface {
	GetNovel(ctx context.Context, novelID string) (novel.Novel, error)
	GetChapter(ctx context.Context, novelID string, chapterNumber int) (novel.Chapter, error)
}

// API is the full backend surface used by the viewer service.
type API interface {
	Backend
	Catalog
}

// Viewer is one page view of a roleplay walkthrough.
type Viewer struct {
	ID        string
	Novel     novel.Novel
	Chapter   novel.Chapter
	CreatedAt time.Time
	Sequencer *Sequencer
	Hub       *Hub
}

// Service keeps the live viewers in memory; nothing is persisted.
type Service struct {
	api    API
	pacing config.PacingConfig
	opts   []Option

	mu      sync.RWMutex
	viewers map[string]*Viewer
}

// NewService bootstraps the in-memory viewer registry.
func NewService(api API, pacing config.PacingConfig, opts ...Option) *Service {
	return &Service{
		api:     api,
		pacing:  pacing,
		opts:    opts,
		viewers: make(map[string]*Viewer),
	}
}

// Open loads novel and chapter metadata and registers an Idle viewer. The
// walkthrough does not start until the viewer's sequencer is started.
func (s *Service) Open(ctx context.Context, novelID string, chapterNumber int) (*Viewer, error) {
	if novelID == "" {
		return nil, ErrNovelRequired
	}
	if chapterNumber < 1 {
		return nil, ErrInvalidChapter
	}

	n, err := s.api.GetNovel(ctx, novelID)
	if err != nil {
		return nil, fmt.Errorf("load novel %s: %w", novelID, err)
	}
	chapter, err := s.api.GetChapter(ctx, novelID, chapterNumber)
	if err != nil {
		return nil, fmt.Errorf("load chapter %d: %w", chapterNumber, err)
	}
	if !chapter.Playable() {
		return nil, fmt.Errorf("%w: chapter %d status=%s", ErrChapterNotReady, chapterNumber, chapter.Status)
	}

	hub := NewHub(32)
	seq, err := NewSequencer(s.api, hub, dialogue.Session{NovelID: novelID, ChapterNumber: chapterNumber}, s.pacing, s.opts...)
	if err != nil {
		return nil, err
	}

	viewer := &Viewer{
		ID:        uuid.NewString(),
		Novel:     n,
		Chapter:   chapter,
		CreatedAt: time.Now().UTC(),
		Sequencer: seq,
		Hub:       hub,
	}
	hub.Render(seq.Snapshot())

	s.mu.Lock()
	s.viewers[viewer.ID] = viewer
	s.mu.Unlock()

	log.Printf("[roleplay] viewer opened id=%s novel=%s chapter=%d", viewer.ID, novelID, chapterNumber)
	return viewer, nil
}

// Get retrieves a viewer by identifier.
func (s *Service) Get(id string) (*Viewer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	viewer, ok := s.viewers[id]
	if !ok {
		return nil, ErrViewerNotFound
	}
	return viewer, nil
}

// List returns the live viewers, oldest first.
func (s *Service) List() []*Viewer {
	s.mu.RLock()
	viewers := make([]*Viewer, 0, len(s.viewers))
	for _, v := range s.viewers {
		viewers = append(viewers, v)
	}
	s.mu.RUnlock()

	sort.Slice(viewers, func(i, j int) bool {
		return viewers[i].CreatedAt.Before(viewers[j].CreatedAt)
	})
	return viewers
}

// Close tears a viewer down and forgets it.
func (s *Service) Close(id string) error {
	s.mu.Lock()
	viewer, ok := s.viewers[id]
	if ok {
		delete(s.viewers, id)
	}
	s.mu.Unlock()

	if !ok {
		return ErrViewerNotFound
	}
	viewer.Sequencer.Close()
	viewer.Hub.Close()
	log.Printf("[roleplay] viewer closed id=%s", id)
	return nil
}

// Shutdown closes every viewer.
func (s *Service) Shutdown() {
	s.mu.Lock()
	viewers := s.viewers
	s.viewers = make(map[string]*Viewer)
	s.mu.Unlock()

	for _, viewer := range viewers {
		viewer.Sequencer.Close()
		viewer.Hub.Close()
	}
}
