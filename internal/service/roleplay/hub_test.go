package roleplay

import (
	"testing"

	"github.com/zhouzirui/novel-roleplay/backend/internal/model/dialogue"
)

func TestHubReplaysLastSnapshot(t *testing.T) {
	hub := NewHub(4)
	hub.Render(Snapshot{Phase: dialogue.PhaseIdle})
	hub.Render(Snapshot{Phase: dialogue.PhaseFetching})

	events, cancel := hub.Subscribe()
	defer cancel()

	evt := <-events
	if evt.Snapshot == nil || evt.Snapshot.Phase != dialogue.PhaseFetching {
		t.Fatalf("expected latest snapshot, got %+v", evt)
	}
	if evt.Name() != "snapshot" {
		t.Fatalf("unexpected event name %s", evt.Name())
	}
}

func TestHubDeliversNotices(t *testing.T) {
	hub := NewHub(4)
	events, cancel := hub.Subscribe()
	defer cancel()

	hub.Notify(Notice{Level: NoticeWarning, Message: "paused"})
	evt := <-events
	if evt.Notice == nil || evt.Notice.Message != "paused" || evt.Name() != "notice" {
		t.Fatalf("unexpected event %+v", evt)
	}
}

func TestHubSlowSubscriberKeepsNewest(t *testing.T) {
	hub := NewHub(2)
	events, cancel := hub.Subscribe()
	defer cancel()

	for i := 0; i < 10; i++ {
		hub.Render(Snapshot{Guard: i})
	}

	var last Snapshot
	for i := 0; i < 2; i++ {
		evt := <-events
		last = *evt.Snapshot
	}
	if last.Guard != 9 {
		t.Fatalf("expected newest snapshot to survive, got guard=%d", last.Guard)
	}
}

func TestHubCloseEndsSubscriptions(t *testing.T) {
	hub := NewHub(1)
	events, cancel := hub.Subscribe()
	hub.Close()

	if _, ok := <-events; ok {
		t.Fatal("expected closed channel")
	}
	cancel()

	late, _ := hub.Subscribe()
	if _, ok := <-late; ok {
		t.Fatal("subscribing to a closed hub must yield a closed channel")
	}
	hub.Render(Snapshot{})
}
