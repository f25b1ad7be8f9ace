package roleplay

import (
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/zhouzirui/novel-roleplay/backend/internal/model/dialogue"
	roleplayService "github.com/zhouzirui/novel-roleplay/backend/internal/service/roleplay"
)

type fakeController struct {
	calls  []string
	closed bool
	err    error
}

func (f *fakeController) record(name string) error {
	f.calls = append(f.calls, name)
	return f.err
}

func (f *fakeController) Start() error { return f.record("start") }
func (f *fakeController) Confirm() error { return f.record("confirm") }
func (f *fakeController) Continue() error { return f.record("continue") }
func (f *fakeController) Retry() error { return f.record("retry") }
func (f *fakeController) Close() { f.closed = true }

func (f *fakeController) Snapshot() roleplayService.Snapshot {
	return roleplayService.Snapshot{
		Session: dialogue.Session{NovelID: "novel-1", ChapterNumber: 2},
		Phase:   dialogue.PhaseIdle,
	}
}

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func press(t *testing.T, m tea.Model, key tea.KeyMsg) (tea.Model, tea.Msg) {
	t.Helper()
	next, cmd := m.Update(key)
	if cmd == nil {
		return next, nil
	}
	return next, cmd()
}

func TestKeysDriveController(t *testing.T) {
	ctrl := &fakeController{}
	var m tea.Model = New(ctrl, "星河", 20)

	keys := []tea.KeyMsg{runes("s"), {Type: tea.KeyEnter}, runes("c"), runes("r")}
	for _, k := range keys {
		var msg tea.Msg
		m, msg = press(t, m, k)
		if _, ok := msg.(actionDoneMsg); !ok {
			t.Fatalf("expected actionDoneMsg for %q, got %T", k.String(), msg)
		}
	}

	want := []string{"start", "confirm", "continue", "retry"}
	if strings.Join(ctrl.calls, ",") != strings.Join(want, ",") {
		t.Fatalf("unexpected calls %v", ctrl.calls)
	}
}

func TestIdleViewPromptsStart(t *testing.T) {
	m := New(&fakeController{}, "星河", 20)
	view := m.View()
	if !strings.Contains(view, "星河") || !strings.Contains(view, "按 s 开始") {
		t.Fatalf("unexpected idle view:\n%s", view)
	}
}

func TestSnapshotRendersPrompt(t *testing.T) {
	var m tea.Model = New(&fakeController{}, "星河", 20)
	m, _ = m.Update(SnapshotMsg{Snapshot: roleplayService.Snapshot{
		Session: dialogue.Session{ID: "s-1", NovelID: "novel-1", ChapterNumber: 2},
		History: []dialogue.Line{{Speaker: "旁白", Text: "夜色渐深"}},
		Current: &dialogue.Line{
			Speaker:             "林默",
			Text:                "我们出发吧",
			IsProtagonist:       true,
			WaitingConfirmation: true,
			Message:             "请确认主角台词",
			RequiredCharsUsed:   []string{"发"},
		},
		Phase: dialogue.PhaseAwaitingConfirmation,
	}})

	view := m.View()
	for _, want := range []string{"夜色渐深", "林默（主角）", "请确认主角台词", "[发]", "等待确认主角台词"} {
		if !strings.Contains(view, want) {
			t.Fatalf("view missing %q:\n%s", want, view)
		}
	}

	m, _ = press(t, m, runes("p"))
	if strings.Contains(m.View(), "[发]") {
		t.Fatal("required chars must be hidden after toggle")
	}
}

func TestNoticeShownUntilNextFetch(t *testing.T) {
	var m tea.Model = New(&fakeController{}, "星河", 20)
	m, _ = m.Update(NoticeMsg{Notice: roleplayService.Notice{Level: roleplayService.NoticeError, Message: "获取对白失败"}})
	if !strings.Contains(m.View(), "获取对白失败") {
		t.Fatal("expected error notice in view")
	}

	m, _ = m.Update(SnapshotMsg{Snapshot: roleplayService.Snapshot{Phase: dialogue.PhaseFetching}})
	if strings.Contains(m.View(), "获取对白失败") {
		t.Fatal("notice must clear when a new fetch starts")
	}
}

func TestRejectedActionIsReported(t *testing.T) {
	ctrl := &fakeController{err: roleplayService.ErrInvalidPhase}
	var m tea.Model = New(ctrl, "星河", 20)

	m, msg := press(t, m, runes("c"))
	m, _ = m.Update(msg)
	if !strings.Contains(m.View(), "continue") {
		t.Fatalf("expected rejected action in view:\n%s", m.View())
	}
}

func TestQuitClosesController(t *testing.T) {
	ctrl := &fakeController{}
	var m tea.Model = New(ctrl, "星河", 20)

	m, cmd := m.Update(runes("q"))
	if cmd == nil {
		t.Fatal("expected quit command")
	}
	if m.View() != "" {
		t.Fatal("expected empty view while quitting")
	}

	if _, ok := closeCmd(ctrl)().(closedMsg); !ok {
		t.Fatal("expected closedMsg")
	}
	if !ctrl.closed {
		t.Fatal("controller must be closed on quit")
	}
}
