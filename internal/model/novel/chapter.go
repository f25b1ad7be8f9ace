package novel

// Chapter status values.
const (
	ChapterPlanned   = "planned"
	ChapterWriting   = "writing"
	ChapterCompleted = "completed"
	ChapterFailed    = "failed"
)

// Chapter is one generated chapter of a novel.
type Chapter struct {
	ID            string `json:"id,omitempty"`
	NovelID       string `json:"novel_id,omitempty"`
	ChapterNumber int    `json:"chapter_number"`
	Title         string `json:"title"`
	Summary       string `json:"summary,omitempty"`
	Content       string `json:"content,omitempty"`
	WordCount     int    `json:"word_count"`
	Status        string `json:"status"`
	CreatedAt     string `json:"created_at,omitempty"`
	UpdatedAt     string `json:"updated_at,omitempty"`
}

// Playable reports whether the chapter has content to walk through.
func (c Chapter) Playable() bool {
	return c.Status == ChapterCompleted || c.Content != ""
}
