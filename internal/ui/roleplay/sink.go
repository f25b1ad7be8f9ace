package roleplay

import (
	"sync"

	tea "github.com/charmbracelet/bubbletea"

	roleplayService "github.com/zhouzirui/novel-roleplay/backend/internal/service/roleplay"
)

// SnapshotMsg carries a sequencer snapshot into the program.
type SnapshotMsg struct {
	Snapshot roleplayService.Snapshot
}

// NoticeMsg carries a sequencer notice into the program.
type NoticeMsg struct {
	Notice roleplayService.Notice
}

// ProgramSink forwards sequencer output to a bubbletea program. Output that
// arrives before Attach is dropped.
type ProgramSink struct {
	mu sync.RWMutex
	p  *tea.Program
}

// Attach binds the sink to a running program.
func (s *ProgramSink) Attach(p *tea.Program) {
	s.mu.Lock()
	s.p = p
	s.mu.Unlock()
}

func (s *ProgramSink) send(msg tea.Msg) {
	s.mu.RLock()
	p := s.p
	s.mu.RUnlock()
	if p != nil {
		p.Send(msg)
	}
}

// Render implements roleplay.Sink.
func (s *ProgramSink) Render(snap roleplayService.Snapshot) {
	s.send(SnapshotMsg{Snapshot: snap})
}

// Notify implements roleplay.Sink.
func (s *ProgramSink) Notify(n roleplayService.Notice) {
	s.send(NoticeMsg{Notice: n})
}
