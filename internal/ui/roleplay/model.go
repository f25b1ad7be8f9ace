package roleplay

import (
	"errors"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/zhouzirui/novel-roleplay/backend/internal/model/dialogue"
	roleplayService "github.com/zhouzirui/novel-roleplay/backend/internal/service/roleplay"
)

// Controller is the part of a Sequencer the terminal viewer drives.
type Controller interface {
	Start() error
	Confirm() error
	Continue() error
	Retry() error
	Close()
	Snapshot() roleplayService.Snapshot
}

// actionDoneMsg reports the outcome of a human action. Actions run inside
// commands so the sequencer lock is never taken on the update goroutine.
type actionDoneMsg struct {
	action string
	err    error
}

var phaseLabels = map[dialogue.Phase]string{
	dialogue.PhaseIdle:                 "未开始",
	dialogue.PhaseFetching:             "加载中…",
	dialogue.PhaseDisplaying:           "等待继续",
	dialogue.PhaseAwaitingConfirmation: "等待确认主角台词",
	dialogue.PhaseAutoAdvancing:        "自动推进中",
	dialogue.PhaseStalled:              "自动推进已暂停",
	dialogue.PhaseChapterComplete:      "本章结束",
	dialogue.PhaseInterrupted:          "请求失败",
	dialogue.PhaseClosed:               "已关闭",
}

// Model is the bubbletea model of the roleplay viewer.
type Model struct {
	ctrl      Controller
	title     string
	ceiling   int
	snap      roleplayService.Snapshot
	notice    *roleplayService.Notice
	showChars bool
	quitting  bool
	width     int
	height    int
}

// New creates a viewer model. title is shown in the header; ceiling is the
// configured auto-advance limit shown next to the guard counter.
func New(ctrl Controller, title string, ceiling int) Model {
	return Model{
		ctrl:      ctrl,
		title:     title,
		ceiling:   ceiling,
		snap:      ctrl.Snapshot(),
		showChars: true,
	}
}

func (m Model) Init() tea.Cmd { return nil }

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case SnapshotMsg:
		m.snap = msg.Snapshot
		if m.snap.Phase == dialogue.PhaseFetching {
			m.notice = nil
		}

	case NoticeMsg:
		n := msg.Notice
		m.notice = &n

	case actionDoneMsg:
		if msg.err != nil && !errors.Is(msg.err, roleplayService.ErrBusy) {
			m.notice = &roleplayService.Notice{
				Level:   roleplayService.NoticeInfo,
				Message: fmt.Sprintf("%s: %v", msg.action, msg.err),
				Err:     msg.err,
			}
		}

	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c", "q", "esc":
		m.quitting = true
		return m, tea.Sequence(closeCmd(m.ctrl), tea.Quit)
	case "s":
		return m, m.run("start", m.ctrl.Start)
	case "enter", " ":
		return m, m.run("confirm", m.ctrl.Confirm)
	case "c":
		return m, m.run("continue", m.ctrl.Continue)
	case "r":
		return m, m.run("retry", m.ctrl.Retry)
	case "p":
		m.showChars = !m.showChars
	}
	return m, nil
}

type closedMsg struct{}

func closeCmd(ctrl Controller) tea.Cmd {
	return func() tea.Msg {
		ctrl.Close()
		return closedMsg{}
	}
}

func (m Model) run(action string, fn func() error) tea.Cmd {
	return func() tea.Msg {
		return actionDoneMsg{action: action, err: fn()}
	}
}

func (m Model) View() string {
	if m.quitting {
		return ""
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render(m.title))
	b.WriteString(mutedStyle.Render(fmt.Sprintf("  第%d章", m.snap.Session.ChapterNumber)))
	if m.snap.Session.Started() {
		b.WriteString(mutedStyle.Render("  session " + m.snap.Session.ID))
	}
	b.WriteString("\n\n")

	for _, line := range m.visibleHistory() {
		b.WriteString(m.renderLine(line))
		b.WriteString("\n")
	}

	if m.snap.Current != nil {
		pane := currentPane
		body := m.renderLine(*m.snap.Current)
		if m.snap.Phase == dialogue.PhaseAwaitingConfirmation {
			pane = promptPane
			prompt := m.snap.Current.Message
			if prompt == "" {
				prompt = "这是主角的台词，按 Enter 确认后继续"
			}
			body += "\n" + heroStyle.Render("› "+prompt)
		}
		if m.width > 4 {
			pane = pane.Width(m.width - 4)
		}
		b.WriteString("\n")
		b.WriteString(pane.Render(body))
		b.WriteString("\n")
	} else if m.snap.Phase == dialogue.PhaseIdle {
		b.WriteString(mutedStyle.Render("按 s 开始本章的主角扮演"))
		b.WriteString("\n")
	}

	if m.notice != nil {
		b.WriteString("\n")
		b.WriteString(renderNotice(*m.notice))
		b.WriteString("\n")
	}

	b.WriteString(statusBar.Render(m.statusLine()))
	return b.String()
}

// visibleHistory trims history to what fits on screen.
func (m Model) visibleHistory() []dialogue.Line {
	history := m.snap.History
	if m.height <= 0 {
		return history
	}
	room := m.height - 12
	if room < 1 {
		room = 1
	}
	if len(history) > room {
		history = history[len(history)-room:]
	}
	return history
}

func (m Model) renderLine(line dialogue.Line) string {
	speaker := speakerStyle.Render(line.Speaker)
	if line.IsProtagonist {
		speaker = heroStyle.Render(line.Speaker + "（主角）")
	}
	out := speaker + "：" + textStyle.Render(line.Text)
	if m.showChars && len(line.RequiredCharsUsed) > 0 {
		out += " " + charsStyle.Render("["+strings.Join(line.RequiredCharsUsed, " ")+"]")
	}
	return out
}

func renderNotice(n roleplayService.Notice) string {
	switch n.Level {
	case roleplayService.NoticeError:
		return errorStyle.Render("✗ " + n.Message + "（按 r 重试）")
	case roleplayService.NoticeWarning:
		return warnStyle.Render("! " + n.Message)
	default:
		return mutedStyle.Render(n.Message)
	}
}

func (m Model) statusLine() string {
	label, ok := phaseLabels[m.snap.Phase]
	if !ok {
		label = string(m.snap.Phase)
	}
	parts := []string{
		label,
		fmt.Sprintf("自动 %d/%d", m.snap.Guard, m.ceiling),
		fmt.Sprintf("已读 %d", len(m.snap.History)),
	}
	keys := []string{"s 开始", "enter 确认", "c 继续", "r 重试", "p 汉字", "q 退出"}
	return lipgloss.JoinHorizontal(lipgloss.Top,
		strings.Join(parts, " · "),
		"    ",
		strings.Join(keys, "  "),
	)
}
