package dialogue

// Phase is the authoritative state of a dialogue sequencer.
type Phase string

const (
	PhaseIdle                 Phase = "idle"
	PhaseFetching             Phase = "fetching"
	PhaseDisplaying           Phase = "displaying"
	PhaseAwaitingConfirmation Phase = "awaiting_confirmation"
	PhaseAutoAdvancing        Phase = "auto_advancing"
	PhaseStalled              Phase = "stalled"
	PhaseChapterComplete      Phase = "chapter_complete"
	// PhaseInterrupted is the quiescent state after a failed fetch.
	PhaseInterrupted Phase = "interrupted"
	PhaseClosed      Phase = "closed"
)

// Terminal reports whether no further fetch can ever happen in this phase.
func (p Phase) Terminal() bool {
	return p == PhaseChapterComplete || p == PhaseClosed
}
