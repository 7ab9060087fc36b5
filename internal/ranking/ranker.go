// Package ranking orders actors by how recently they posted or replied.
package ranking

import (
	"context"
	"fmt"
	"math/rand"
	"sort"
	"time"

	"synthpop/internal/models"
	"synthpop/internal/store"
)

// Ranked is one actor with its latest activity.
type Ranked struct {
	ActorID    string
	Kind       models.Kind
	LastActive time.Time
}

// Ranker lists recently active actors, humans ahead of synthetic actors.
// With probability collapseProb per call the split is dropped and everyone
// is ranked in a single pool.
type Ranker struct {
	store        store.Store
	collapseProb float64
	rng          *rand.Rand
}

func NewRanker(s store.Store, collapseProb float64, rng *rand.Rand) *Ranker {
	return &Ranker{store: s, collapseProb: collapseProb, rng: rng}
}

// LastActivity returns, per actor, the newest createdAt across posts and
// replies. A createdAt that cannot be parsed fails the whole computation.
func (r *Ranker) LastActivity(ctx context.Context) (map[string]time.Time, error) {
	posts, err := r.store.PostActivity(ctx)
	if err != nil {
		return nil, fmt.Errorf("post activity: %w", err)
	}
	replies, err := r.store.ReplyActivity(ctx)
	if err != nil {
		return nil, fmt.Errorf("reply activity: %w", err)
	}
	last := make(map[string]time.Time)
	for _, batch := range [][]models.Activity{posts, replies} {
		for _, a := range batch {
			t, err := models.ParseTimestamp(a.CreatedAt)
			if err != nil {
				return nil, fmt.Errorf("activity of %s: %w", a.ActorID, err)
			}
			if prev, ok := last[a.ActorID]; !ok || t.After(prev) {
				last[a.ActorID] = t
			}
		}
	}
	return last, nil
}

// RecentActive returns up to limit actors: humans by recency, then synthetic
// actors by recency, unless this call collapses the partition. Ties keep the
// store's return order.
func (r *Ranker) RecentActive(ctx context.Context, limit int) ([]Ranked, error) {
	last, err := r.LastActivity(ctx)
	if err != nil {
		return nil, err
	}
	collapse := r.rng.Float64() < r.collapseProb

	ids := make([]string, 0, len(last))
	for id := range last {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	kinds, err := r.store.ActorKinds(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("actor kinds: %w", err)
	}

	var humans, bots []Ranked
	for _, k := range kinds {
		item := Ranked{ActorID: k.ID, Kind: k.Kind, LastActive: last[k.ID]}
		if k.Kind == models.KindSynthetic && !collapse {
			bots = append(bots, item)
			continue
		}
		humans = append(humans, item)
	}
	byRecency(humans)
	byRecency(bots)

	out := append(humans, bots...)
	if limit >= 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func byRecency(items []Ranked) {
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].LastActive.After(items[j].LastActive)
	})
}

// IDs extracts actor ids in order.
func IDs(items []Ranked) []string {
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = it.ActorID
	}
	return out
}
