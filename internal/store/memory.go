package store

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"synthpop/internal/models"
)

// MemoryStore keeps every table in process memory, in insertion order. It
// backs dry runs and tests.
type MemoryStore struct {
	mu        sync.RWMutex
	actors    []models.Actor
	profiles  []models.Profile
	posts     []models.Post
	replies   []models.Reply
	likes     []models.Like
	retweets  []models.Retweet
	bookmarks []models.Bookmark
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

var _ Store = (*MemoryStore)(nil)

func (m *MemoryStore) CountActors(_ context.Context, kind models.Kind) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n := 0
	for _, a := range m.actors {
		if a.Kind() == kind {
			n++
		}
	}
	return n, nil
}

func (m *MemoryStore) ListActorIDs(_ context.Context, kind models.Kind, limit int) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var ids []string
	for _, a := range m.actors {
		if a.Kind() != kind {
			continue
		}
		ids = append(ids, a.ID)
		if limit > 0 && len(ids) == limit {
			break
		}
	}
	return ids, nil
}

func (m *MemoryStore) ActorKinds(_ context.Context, ids []string) ([]models.ActorKind, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	want := make(map[string]bool, len(ids))
	for _, id := range ids {
		want[id] = true
	}
	var out []models.ActorKind
	for _, a := range m.actors {
		if want[a.ID] {
			out = append(out, models.ActorKind{ID: a.ID, Kind: a.Kind()})
		}
	}
	return out, nil
}

func (m *MemoryStore) GetActor(_ context.Context, id string) (models.Actor, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, a := range m.actors {
		if a.ID == id {
			return a, nil
		}
	}
	return models.Actor{}, fmt.Errorf("actor %s: %w", id, ErrNotFound)
}

func (m *MemoryStore) InsertActor(_ context.Context, a models.Actor) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.actors {
		if existing.ID == a.ID {
			return fmt.Errorf("actor %s already exists", a.ID)
		}
	}
	m.actors = append(m.actors, a)
	return nil
}

func (m *MemoryStore) GetProfile(_ context.Context, actorID string) (models.Profile, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, p := range m.profiles {
		if p.ActorID == actorID {
			return cloneProfile(p), nil
		}
	}
	return models.Profile{}, fmt.Errorf("profile for %s: %w", actorID, ErrNotFound)
}

func (m *MemoryStore) InsertProfile(_ context.Context, p models.Profile) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.profiles {
		if existing.ActorID == p.ActorID {
			return fmt.Errorf("profile for %s already exists", p.ActorID)
		}
	}
	m.profiles = append(m.profiles, cloneProfile(p))
	return nil
}

func (m *MemoryStore) UpdateProfile(_ context.Context, p models.Profile) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, existing := range m.profiles {
		if existing.ActorID == p.ActorID {
			p.ID = existing.ID
			m.profiles[i] = cloneProfile(p)
			return nil
		}
	}
	return fmt.Errorf("profile for %s: %w", p.ActorID, ErrNotFound)
}

func (m *MemoryStore) GetPost(_ context.Context, id string) (models.Post, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if p, ok := m.postByID(id); ok {
		return p, nil
	}
	return models.Post{}, fmt.Errorf("post %s: %w", id, ErrNotFound)
}

func (m *MemoryStore) RecentPosts(_ context.Context, limit int) ([]models.Post, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return recent(m.posts, func(p models.Post) string { return p.CreatedAt }, nil, limit), nil
}

func (m *MemoryStore) PostsByActor(_ context.Context, actorID string, limit int) ([]models.Post, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return recent(m.posts,
		func(p models.Post) string { return p.CreatedAt },
		func(p models.Post) bool { return p.AuthorID == actorID },
		limit), nil
}

func (m *MemoryStore) RepliesByActor(_ context.Context, actorID string, limit int) ([]models.Reply, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := recent(m.replies,
		func(r models.Reply) string { return r.CreatedAt },
		func(r models.Reply) bool { return r.AuthorID == actorID },
		limit)
	for i := range out {
		if p, ok := m.postByID(out[i].PostID); ok {
			out[i].Parent = &p
		}
	}
	return out, nil
}

func (m *MemoryStore) LikesByActor(_ context.Context, actorID string, limit int) ([]models.Like, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := recent(m.likes,
		func(l models.Like) string { return l.CreatedAt },
		func(l models.Like) bool { return l.ActorID == actorID },
		limit)
	for i := range out {
		if p, ok := m.postByID(out[i].PostID); ok {
			out[i].Post = &p
		}
	}
	return out, nil
}

func (m *MemoryStore) InsertPost(_ context.Context, p models.Post) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.postByID(p.ID); ok {
		return fmt.Errorf("post %s already exists", p.ID)
	}
	p.Images = append([]string(nil), p.Images...)
	m.posts = append(m.posts, p)
	return nil
}

func (m *MemoryStore) SetPostCounter(_ context.Context, postID string, c Counter, value int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.posts {
		if m.posts[i].ID != postID {
			continue
		}
		switch c {
		case CounterLikes:
			m.posts[i].LikeCount = value
		case CounterRetweets:
			m.posts[i].RetweetCount = value
		case CounterReplies:
			m.posts[i].ReplyCount = value
		default:
			return fmt.Errorf("unknown counter %q", c)
		}
		return nil
	}
	return fmt.Errorf("post %s: %w", postID, ErrNotFound)
}

func (m *MemoryStore) InsertReply(_ context.Context, r models.Reply) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	r.Parent = nil
	m.replies = append(m.replies, r)
	return nil
}

func (m *MemoryStore) InsertLike(_ context.Context, l models.Like) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	l.Post = nil
	m.likes = append(m.likes, l)
	return nil
}

func (m *MemoryStore) InsertRetweet(_ context.Context, r models.Retweet) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.retweets = append(m.retweets, r)
	return nil
}

func (m *MemoryStore) InsertBookmark(_ context.Context, b models.Bookmark) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.bookmarks = append(m.bookmarks, b)
	return nil
}

func (m *MemoryStore) PostActivity(_ context.Context) ([]models.Activity, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	posts := recent(m.posts, func(p models.Post) string { return p.CreatedAt }, nil, 0)
	out := make([]models.Activity, 0, len(posts))
	for _, p := range posts {
		out = append(out, models.Activity{ActorID: p.AuthorID, CreatedAt: p.CreatedAt})
	}
	return out, nil
}

func (m *MemoryStore) ReplyActivity(_ context.Context) ([]models.Activity, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	replies := recent(m.replies, func(r models.Reply) string { return r.CreatedAt }, nil, 0)
	out := make([]models.Activity, 0, len(replies))
	for _, r := range replies {
		out = append(out, models.Activity{ActorID: r.AuthorID, CreatedAt: r.CreatedAt})
	}
	return out, nil
}

// Replies returns a copy of every stored reply, oldest first.
func (m *MemoryStore) Replies() []models.Reply {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]models.Reply(nil), m.replies...)
}

// Likes returns a copy of every stored like, oldest first.
func (m *MemoryStore) Likes() []models.Like {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]models.Like(nil), m.likes...)
}

// Retweets returns a copy of every stored retweet, oldest first.
func (m *MemoryStore) Retweets() []models.Retweet {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]models.Retweet(nil), m.retweets...)
}

// Bookmarks returns a copy of every stored bookmark, oldest first.
func (m *MemoryStore) Bookmarks() []models.Bookmark {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]models.Bookmark(nil), m.bookmarks...)
}

// Actors returns a copy of every stored actor, oldest first.
func (m *MemoryStore) Actors() []models.Actor {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]models.Actor(nil), m.actors...)
}

func (m *MemoryStore) postByID(id string) (models.Post, bool) {
	for _, p := range m.posts {
		if p.ID == id {
			p.Images = append([]string(nil), p.Images...)
			return p, true
		}
	}
	return models.Post{}, false
}

// recent filters rows, orders them newest first and applies limit. The sort is
// stable so equal timestamps keep insertion order.
func recent[T any](rows []T, createdAt func(T) string, keep func(T) bool, limit int) []T {
	out := make([]T, 0, len(rows))
	for _, r := range rows {
		if keep == nil || keep(r) {
			out = append(out, r)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return createdAt(out[i]) > createdAt(out[j])
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

func cloneProfile(p models.Profile) models.Profile {
	p.Interests = append([]string(nil), p.Interests...)
	p.Facts = append([]string(nil), p.Facts...)
	return p
}
