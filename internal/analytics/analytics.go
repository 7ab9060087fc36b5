// Package analytics folds a day of journal events into a report.
package analytics

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"synthpop/internal/journal"
)

// DailyStats summarizes one UTC day of simulation activity.
type DailyStats struct {
	Date            string                `json:"date"`
	Cycles          int                   `json:"cycles"`
	ActorsCreated   int                   `json:"actors_created"`
	Posts           int                   `json:"posts"`
	Replies         int                   `json:"replies"`
	Likes           int                   `json:"likes"`
	ProfilesUpdated int                   `json:"profiles_updated"`
	ProfileFailures int                   `json:"profile_failures"`
	StepFailures    int                   `json:"step_failures"`
	ActiveBots      int                   `json:"active_bots"`
	TargetedActors  int                   `json:"targeted_actors"`
	BotStats        map[string]ActorStats `json:"bot_stats"`
}

// ActorStats is what a single synthetic actor did during the day.
type ActorStats struct {
	ActorID string `json:"actor_id"`
	Posts   int    `json:"posts"`
	Replies int    `json:"replies"`
	Likes   int    `json:"likes"`
}

func (a ActorStats) total() int { return a.Posts + a.Replies + a.Likes }

// AnalyzeDay counts the events whose timestamp falls on day.
func AnalyzeDay(events []journal.Event, day time.Time) *DailyStats {
	startOfDay := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, day.Location())
	endOfDay := startOfDay.Add(24 * time.Hour)

	stats := &DailyStats{
		Date:     startOfDay.Format("2006-01-02"),
		BotStats: make(map[string]ActorStats),
	}
	targets := make(map[string]bool)

	for _, ev := range events {
		if ev.Timestamp.Before(startOfDay) || !ev.Timestamp.Before(endOfDay) {
			continue
		}
		switch ev.Kind {
		case journal.KindCycle:
			stats.Cycles++
		case journal.KindActorCreated:
			stats.ActorsCreated++
		case journal.KindProfile:
			stats.ProfilesUpdated++
		case journal.KindProfileFailed:
			stats.ProfileFailures++
		case journal.KindStepFailed:
			stats.StepFailures++
		case journal.KindPost, journal.KindReply, journal.KindLike:
			bot := stats.BotStats[ev.ActorID]
			bot.ActorID = ev.ActorID
			switch ev.Kind {
			case journal.KindPost:
				stats.Posts++
				bot.Posts++
			case journal.KindReply:
				stats.Replies++
				bot.Replies++
			default:
				stats.Likes++
				bot.Likes++
			}
			stats.BotStats[ev.ActorID] = bot
			if ev.TargetID != "" {
				targets[ev.TargetID] = true
			}
		}
	}

	stats.ActiveBots = len(stats.BotStats)
	stats.TargetedActors = len(targets)
	return stats
}

// Summary renders the report sent to the operator.
func (ds *DailyStats) Summary() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Synthetic population report for %s:\n\n", ds.Date)
	fmt.Fprintf(&b, "Cycles run: %d\n", ds.Cycles)
	fmt.Fprintf(&b, "Synthetic actors created: %d\n", ds.ActorsCreated)
	fmt.Fprintf(&b, "Posts: %d, replies: %d, likes: %d\n", ds.Posts, ds.Replies, ds.Likes)
	fmt.Fprintf(&b, "Profiles updated: %d (failed: %d)\n", ds.ProfilesUpdated, ds.ProfileFailures)
	if ds.StepFailures > 0 {
		fmt.Fprintf(&b, "Failed steps: %d\n", ds.StepFailures)
	}
	fmt.Fprintf(&b, "Active bots: %d, targeted actors: %d\n", ds.ActiveBots, ds.TargetedActors)

	if len(ds.BotStats) > 0 {
		bots := make([]ActorStats, 0, len(ds.BotStats))
		for _, s := range ds.BotStats {
			bots = append(bots, s)
		}
		sort.Slice(bots, func(i, j int) bool {
			if bots[i].total() != bots[j].total() {
				return bots[i].total() > bots[j].total()
			}
			return bots[i].ActorID < bots[j].ActorID
		})
		if len(bots) > 5 {
			bots = bots[:5]
		}
		b.WriteString("\nMost active bots:\n")
		for _, s := range bots {
			fmt.Fprintf(&b, "- %s: %d posts, %d replies, %d likes\n", s.ActorID, s.Posts, s.Replies, s.Likes)
		}
	}
	return b.String()
}

func (ds *DailyStats) ToJSON() (string, error) {
	data, err := json.MarshalIndent(ds, "", "  ")
	if err != nil {
		return "", err
	}
	return string(data), nil
}
