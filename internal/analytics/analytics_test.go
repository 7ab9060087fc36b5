package analytics

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"synthpop/internal/journal"
)

func TestAnalyzeDay(t *testing.T) {
	day := time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)

	events := []journal.Event{
		{Timestamp: day.Add(1 * time.Hour), Kind: journal.KindCycle, Cycle: 1},
		{Timestamp: day.Add(1 * time.Hour), Kind: journal.KindActorCreated, ActorID: "b1"},
		{Timestamp: day.Add(2 * time.Hour), Kind: journal.KindReply, ActorID: "b1", TargetID: "h1", PostID: "p1"},
		{Timestamp: day.Add(2 * time.Hour), Kind: journal.KindLike, ActorID: "b2", PostID: "p1"},
		{Timestamp: day.Add(3 * time.Hour), Kind: journal.KindPost, ActorID: "b1", TargetID: "h2", PostID: "p2"},
		{Timestamp: day.Add(3 * time.Hour), Kind: journal.KindProfile, ActorID: "h1"},
		{Timestamp: day.Add(3 * time.Hour), Kind: journal.KindProfileFailed, ActorID: "h2"},
		// next day, ignored
		{Timestamp: day.AddDate(0, 0, 1), Kind: journal.KindReply, ActorID: "b9", TargetID: "h9"},
	}

	stats := AnalyzeDay(events, day)

	if stats.Date != "2024-01-15" {
		t.Errorf("Expected date '2024-01-15', got '%s'", stats.Date)
	}
	if stats.Cycles != 1 || stats.ActorsCreated != 1 {
		t.Errorf("Expected 1 cycle and 1 actor, got %d and %d", stats.Cycles, stats.ActorsCreated)
	}
	if stats.Posts != 1 || stats.Replies != 1 || stats.Likes != 1 {
		t.Errorf("Unexpected interaction counts: %+v", stats)
	}
	if stats.ProfilesUpdated != 1 || stats.ProfileFailures != 1 {
		t.Errorf("Unexpected profile counts: %+v", stats)
	}
	if stats.ActiveBots != 2 {
		t.Errorf("Expected 2 active bots, got %d", stats.ActiveBots)
	}
	if stats.TargetedActors != 2 {
		t.Errorf("Expected 2 targeted actors, got %d", stats.TargetedActors)
	}
	b1 := stats.BotStats["b1"]
	if b1.Posts != 1 || b1.Replies != 1 || b1.Likes != 0 {
		t.Errorf("Unexpected stats for b1: %+v", b1)
	}
}

func TestAnalyzeDayEmpty(t *testing.T) {
	stats := AnalyzeDay(nil, time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC))
	if stats.Date != "2024-01-15" {
		t.Errorf("Expected date '2024-01-15', got '%s'", stats.Date)
	}
	if stats.Cycles != 0 || stats.ActiveBots != 0 {
		t.Errorf("Expected empty stats, got %+v", stats)
	}
}

func TestSummary(t *testing.T) {
	stats := &DailyStats{
		Date:    "2024-01-15",
		Cycles:  7,
		Replies: 3,
		Likes:   2,
		BotStats: map[string]ActorStats{
			"bot-a": {ActorID: "bot-a", Replies: 3},
			"bot-b": {ActorID: "bot-b", Likes: 2},
		},
	}

	summary := stats.Summary()
	for _, want := range []string{"2024-01-15", "Cycles run: 7", "replies: 3", "bot-a", "bot-b"} {
		if !strings.Contains(summary, want) {
			t.Errorf("Expected summary to contain '%s'. Summary: %s", want, summary)
		}
	}
	if strings.Index(summary, "bot-a") > strings.Index(summary, "bot-b") {
		t.Errorf("Expected most active bot first. Summary: %s", summary)
	}
}

func TestToJSON(t *testing.T) {
	stats := &DailyStats{Date: "2024-01-15", Likes: 1, BotStats: map[string]ActorStats{}}
	out, err := stats.ToJSON()
	if err != nil {
		t.Fatalf("ToJSON: %v", err)
	}
	var decoded DailyStats
	if err := json.Unmarshal([]byte(out), &decoded); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if decoded.Likes != 1 {
		t.Errorf("Expected 1 like, got %d", decoded.Likes)
	}
}
