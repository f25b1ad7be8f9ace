package roleplay

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/zhouzirui/novel-roleplay/backend/internal/config"
	"github.com/zhouzirui/novel-roleplay/backend/internal/model/dialogue"
)

// Backend is the dialogue collaborator a Sequencer fetches lines from.
// novelapi.Client satisfies it.
type Backend interface {
	Current(ctx context.Context, novelID string, chapterNumber int, sessionID string) (dialogue.Line, error)
	Advance(ctx context.Context, sessionID string) (dialogue.Line, error)
	Confirm(ctx context.Context, sessionID string) (dialogue.Line, error)
}

// Timer is a pending scheduled task.
type Timer interface {
	Stop() bool
}

// Scheduler runs f once after d has elapsed.
type Scheduler func(d time.Duration, f func()) Timer

func afterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// Option customises a Sequencer.
type Option func(*Sequencer)

// WithScheduler replaces the timer used for auto-advance.
func WithScheduler(s Scheduler) Option {
	return func(q *Sequencer) {
		if s != nil {
			q.schedule = s
		}
	}
}

// WithClock replaces the clock used to stamp lines entering history.
func WithClock(now func() time.Time) Option {
	return func(q *Sequencer) {
		if now != nil {
			q.now = now
		}
	}
}

type requestKind int

const (
	requestCurrent requestKind = iota
	requestAdvance
	requestConfirm
)

func (k requestKind) String() string {
	switch k {
	case requestAdvance:
		return "advance"
	case requestConfirm:
		return "confirm"
	default:
		return "current"
	}
}

// Sequencer owns the turn-taking state of one roleplay session. It decides
// after every backend response whether to wait for a human confirmation or to
// auto-advance after a display delay.
//
// Every line moves from current to history exactly once, at the moment the
// next line is requested, and at most one request is in flight at a time.
type Sequencer struct {
	backend  Backend
	sink     Sink
	pacing   config.PacingConfig
	schedule Scheduler
	now      func() time.Time

	ctx    context.Context
	cancel context.CancelFunc

	mu      sync.Mutex
	session dialogue.Session
	phase   dialogue.Phase
	history []dialogue.Line
	current *dialogue.Line
	guard   int
	busy    bool
	last    requestKind
	task    Timer
	taskGen uint64
}

// NewSequencer creates an Idle sequencer for a (novel, chapter) pair.
func NewSequencer(backend Backend, sink Sink, session dialogue.Session, pacing config.PacingConfig, opts ...Option) (*Sequencer, error) {
	if backend == nil {
		return nil, errors.New("backend is required")
	}
	if session.NovelID == "" {
		return nil, errors.New("novel id is required")
	}
	if session.ChapterNumber < 1 {
		return nil, fmt.Errorf("invalid chapter number %d", session.ChapterNumber)
	}
	if err := pacing.Validate(); err != nil {
		return nil, err
	}
	if sink == nil {
		sink = SinkFuncs{}
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &Sequencer{
		backend:  backend,
		sink:     sink,
		pacing:   pacing,
		schedule: afterFunc,
		now:      time.Now,
		ctx:      ctx,
		cancel:   cancel,
		session:  dialogue.Session{NovelID: session.NovelID, ChapterNumber: session.ChapterNumber},
		phase:    dialogue.PhaseIdle,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Start issues the first fetch of the session. It is valid exactly once, from
// Idle; repeated calls fail with ErrInvalidPhase.
func (s *Sequencer) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.expectLocked(dialogue.PhaseIdle); err != nil {
		return err
	}
	return s.beginLocked(requestCurrent)
}

// Confirm acknowledges the protagonist line the session is waiting on and
// fetches the next line through the confirm endpoint.
func (s *Sequencer) Confirm() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.expectLocked(dialogue.PhaseAwaitingConfirmation); err != nil {
		return err
	}
	s.guard = 0
	return s.beginLocked(requestConfirm)
}

// Continue is the manual step past a stall or a line that neither waits for
// confirmation nor auto-advances.
func (s *Sequencer) Continue() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.expectLocked(dialogue.PhaseDisplaying, dialogue.PhaseStalled); err != nil {
		return err
	}
	s.guard = 0
	return s.beginLocked(requestAdvance)
}

// Retry re-issues the request that failed. History is left untouched.
func (s *Sequencer) Retry() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.expectLocked(dialogue.PhaseInterrupted); err != nil {
		return err
	}
	return s.beginLocked(s.last)
}

// Close tears the session down: the pending auto-advance is cancelled, any
// in-flight request is aborted and its result dropped. Nothing reaches the
// sink afterwards.
func (s *Sequencer) Close() {
	s.mu.Lock()
	if s.phase == dialogue.PhaseClosed {
		s.mu.Unlock()
		return
	}
	s.phase = dialogue.PhaseClosed
	s.stopTaskLocked()
	sessionID := s.session.ID
	s.mu.Unlock()

	s.cancel()
	log.Printf("[roleplay] closed session=%s", sessionID)
}

// Snapshot returns a copy of the current display state.
func (s *Sequencer) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// Phase returns the current phase.
func (s *Sequencer) Phase() dialogue.Phase {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.phase
}

// Busy reports whether a request is in flight.
func (s *Sequencer) Busy() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.busy
}

// Guard returns the number of consecutive automatic advances.
func (s *Sequencer) Guard() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.guard
}

func (s *Sequencer) expectLocked(allowed ...dialogue.Phase) error {
	if s.phase == dialogue.PhaseClosed {
		return ErrClosed
	}
	if s.busy {
		return ErrBusy
	}
	for _, p := range allowed {
		if s.phase == p {
			return nil
		}
	}
	return fmt.Errorf("%w: %s", ErrInvalidPhase, s.phase)
}

// beginLocked moves the current line into history and launches the request.
func (s *Sequencer) beginLocked(kind requestKind) error {
	if s.busy {
		return ErrBusy
	}
	session := s.session
	if kind != requestCurrent && !session.Started() {
		return ErrMissingSession
	}

	s.stopTaskLocked()
	if s.current != nil {
		line := s.current.Clone()
		line.RecordedAt = s.now().UTC()
		s.history = append(s.history, line)
		s.current = nil
	}

	s.busy = true
	s.last = kind
	s.phase = dialogue.PhaseFetching
	s.renderLocked()

	go s.fetch(kind, session)
	return nil
}

// fetch runs without the lock; session is the value resolved when the request
// was issued.
func (s *Sequencer) fetch(kind requestKind, session dialogue.Session) {
	var (
		line dialogue.Line
		err  error
	)
	switch kind {
	case requestAdvance:
		line, err = s.backend.Advance(s.ctx, session.ID)
	case requestConfirm:
		line, err = s.backend.Confirm(s.ctx, session.ID)
	default:
		line, err = s.backend.Current(s.ctx, session.NovelID, session.ChapterNumber, session.ID)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.phase == dialogue.PhaseClosed {
		return
	}
	s.busy = false

	if err != nil {
		log.Printf("[roleplay] %s failed session=%s: %v", kind, session.ID, err)
		s.phase = dialogue.PhaseInterrupted
		s.renderLocked()
		s.sink.Notify(Notice{Level: NoticeError, Message: fmt.Sprintf("获取对白失败，请重试: %v", err), Err: err})
		return
	}

	s.acceptLocked(line)
}

// acceptLocked records a fetched line and picks the pacing policy for it.
func (s *Sequencer) acceptLocked(line dialogue.Line) {
	if !s.session.Started() && line.SessionID != "" {
		s.session.ID = line.SessionID
		log.Printf("[roleplay] session opened id=%s novel=%s chapter=%d", s.session.ID, s.session.NovelID, s.session.ChapterNumber)
	}

	current := line.Clone()
	s.current = &current

	switch {
	case line.EndOfChapter():
		s.phase = dialogue.PhaseChapterComplete
		s.guard = 0
		s.renderLocked()
		log.Printf("[roleplay] chapter complete session=%s lines=%d", s.session.ID, len(s.history))

	case line.WaitingConfirmation:
		s.phase = dialogue.PhaseAwaitingConfirmation
		s.guard = 0
		s.renderLocked()

	case line.ShouldAutoAdvance():
		s.scheduleAdvanceLocked()

	default:
		s.phase = dialogue.PhaseDisplaying
		s.guard = 0
		s.renderLocked()
	}
}

func (s *Sequencer) scheduleAdvanceLocked() {
	if !s.session.Started() {
		s.phase = dialogue.PhaseInterrupted
		s.last = requestCurrent
		s.renderLocked()
		s.sink.Notify(Notice{Level: NoticeError, Message: "后端未返回会话ID，无法自动推进", Err: ErrMissingSession})
		return
	}

	next := s.guard + 1
	if next >= s.pacing.AdvanceCeiling {
		runaway := &RunawayAdvanceError{Ceiling: s.pacing.AdvanceCeiling}
		log.Printf("[roleplay] stalled session=%s: %v", s.session.ID, runaway)
		s.guard = 0
		s.phase = dialogue.PhaseStalled
		s.renderLocked()
		s.sink.Notify(Notice{Level: NoticeWarning, Message: "检测到过多连续对话，已暂停自动推进，请手动继续", Err: runaway})
		return
	}

	s.guard = next
	delay := s.pacing.NextDelay
	if s.guard == 1 {
		delay = s.pacing.FirstDelay
	}

	s.phase = dialogue.PhaseAutoAdvancing
	s.taskGen++
	gen := s.taskGen
	sessionID := s.session.ID
	s.task = s.schedule(delay, func() { s.autoAdvance(gen, sessionID) })
	s.renderLocked()
}

// autoAdvance fires from the scheduled task. sessionID was resolved when the
// task was scheduled.
func (s *Sequencer) autoAdvance(gen uint64, sessionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.phase != dialogue.PhaseAutoAdvancing || gen != s.taskGen || s.busy {
		return
	}
	s.task = nil
	if sessionID != s.session.ID {
		return
	}
	if err := s.beginLocked(requestAdvance); err != nil {
		log.Printf("[roleplay] auto-advance skipped session=%s: %v", sessionID, err)
	}
}

func (s *Sequencer) stopTaskLocked() {
	if s.task != nil {
		s.task.Stop()
		s.task = nil
	}
	s.taskGen++
}

func (s *Sequencer) renderLocked() {
	s.sink.Render(s.snapshotLocked())
}

func (s *Sequencer) snapshotLocked() Snapshot {
	snap := Snapshot{
		Session: s.session,
		History: make([]dialogue.Line, len(s.history)),
		Phase:   s.phase,
		Guard:   s.guard,
		Busy:    s.busy,
	}
	for i, line := range s.history {
		snap.History[i] = line.Clone()
	}
	if s.current != nil {
		current := s.current.Clone()
		snap.Current = &current
	}
	return snap
}
