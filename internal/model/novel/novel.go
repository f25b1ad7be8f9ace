package novel

// Status values reported by the novels-v2 API.
const (
	StatusPlanning  = "planning"
	StatusOutlined  = "outlined"
	StatusWriting   = "writing"
	StatusCompleted = "completed"
)

// Character is an outline entry for a main character.
type Character struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// OutlineChapter summarises one planned chapter.
type OutlineChapter struct {
	Number  int    `json:"number"`
	Title   string `json:"title"`
	Summary string `json:"summary"`
}

// Outline is the generated plan of a novel.
type Outline struct {
	Title          string           `json:"title"`
	Summary        string           `json:"summary"`
	MainCharacters []Character      `json:"main_characters"`
	Chapters       []OutlineChapter `json:"chapters"`
}

// Novel captures the metadata the viewer needs about a generated novel.
type Novel struct {
	ID                string   `json:"id"`
	Title             string   `json:"title"`
	Description       string   `json:"description,omitempty"`
	Outline           *Outline `json:"outline,omitempty"`
	TotalChapters     int      `json:"total_chapters"`
	CompletedChapters int      `json:"completed_chapters"`
	Status            string   `json:"status"`
	MaterialIDs       []string `json:"material_ids,omitempty"`
	CreatedAt         string   `json:"created_at,omitempty"`
	UpdatedAt         string   `json:"updated_at,omitempty"`
}
