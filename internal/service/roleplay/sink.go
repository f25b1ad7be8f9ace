package roleplay

import "github.com/zhouzirui/novel-roleplay/backend/internal/model/dialogue"

// Snapshot is the display state of one roleplay session.
type Snapshot struct {
	Session dialogue.Session `json:"session"`
	History []dialogue.Line  `json:"history"`
	Current *dialogue.Line   `json:"current"`
	Phase   dialogue.Phase   `json:"phase"`
	Guard   int              `json:"guard"`
	Busy    bool             `json:"busy"`
}

// NoticeLevel 区分错误与警告。
type NoticeLevel string

const (
	NoticeError   NoticeLevel = "error"
	NoticeWarning NoticeLevel = "warning"
	NoticeInfo    NoticeLevel = "info"
)

// Notice is a user-visible message about a failure or a stall.
type Notice struct {
	Level   NoticeLevel `json:"level"`
	Message string      `json:"message"`
	Err     error       `json:"-"`
}

// Sink receives display updates from a Sequencer. Calls arrive in order and
// are made while the sequencer holds its lock, so implementations must return
// promptly and must not call back into the sequencer.
type Sink interface {
	Render(Snapshot)
	Notify(Notice)
}

// SinkFuncs adapts plain functions to Sink. Nil fields are ignored.
type SinkFuncs struct {
	RenderFunc func(Snapshot)
	NotifyFunc func(Notice)
}

func (f SinkFuncs) Render(s Snapshot) {
	if f.RenderFunc != nil {
		f.RenderFunc(s)
	}
}

func (f SinkFuncs) Notify(n Notice) {
	if f.NotifyFunc != nil {
		f.NotifyFunc(n)
	}
}
