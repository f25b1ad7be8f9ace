package dialogue

// Session identifies one roleplay walkthrough of a novel chapter.
// ID stays empty until the backend issues one on the first fetch.
type Session struct {
	ID            string `json:"sessionId,omitempty"`
	NovelID       string `json:"novelId"`
	ChapterNumber int    `json:"chapterNumber"`
}

// Started reports whether the backend has issued a session id.
func (s Session) Started() bool {
	return s.ID != ""
}
