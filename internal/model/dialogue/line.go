package dialogue

import "time"

// Line is one utterance returned by the chapter dialogue endpoints.
type Line struct {
	Speaker             string    `json:"speaker"`
	Text                string    `json:"text"`
	IsProtagonist       bool      `json:"is_protagonist_dialogue"`
	RequiredCharsUsed   []string  `json:"required_chars_used"`
	AutoAdvance         bool      `json:"auto_advance,omitempty"`
	WaitingConfirmation bool      `json:"waiting_confirmation,omitempty"`
	Message             string    `json:"message,omitempty"`
	IsEndOfChapter      bool      `json:"is_end_of_chapter,omitempty"`
	SessionID           string    `json:"session_id,omitempty"`
	RecordedAt          time.Time `json:"recorded_at,omitempty"`
}

// EndOfChapter 表示后端已经没有更多对白。
func (l Line) EndOfChapter() bool {
	return l.IsEndOfChapter
}

// ShouldAutoAdvance reports whether the line proceeds without human input.
// Protagonist lines never auto-advance, whatever the server hints.
func (l Line) ShouldAutoAdvance() bool {
	return l.AutoAdvance && !l.IsProtagonist
}

// Clone returns a copy that shares no slices with l.
func (l Line) Clone() Line {
	if l.RequiredCharsUsed != nil {
		l.RequiredCharsUsed = append([]string(nil), l.RequiredCharsUsed...)
	}
	return l
}
