package scheduler

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"synthpop/internal/journal"
	"synthpop/internal/logging"
	"synthpop/internal/models"
	"synthpop/internal/profile"
	"synthpop/internal/ranking"
	"synthpop/internal/store"
)

type fakeClock struct {
	now    time.Time
	sleeps int
	stopAt int
	cancel context.CancelFunc
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) Sleep(ctx context.Context, d time.Duration) error {
	c.sleeps++
	c.now = c.now.Add(d)
	if c.stopAt > 0 && c.sleeps >= c.stopAt {
		c.cancel()
	}
	return ctx.Err()
}

type stubPopulation struct {
	err   error
	calls int
	s     store.Store
}

func (p *stubPopulation) MaintainRatio(context.Context, float64) ([]models.Actor, error) {
	p.calls++
	return nil, p.err
}

func (p *stubPopulation) Census(ctx context.Context) (int, int, error) {
	h, err := p.s.CountActors(ctx, models.KindHuman)
	if err != nil {
		return 0, 0, err
	}
	b, err := p.s.CountActors(ctx, models.KindSynthetic)
	return h, b, err
}

type stubWriter struct {
	err     error
	targets []string
}

func (w *stubWriter) Targeted(_ context.Context, authorID, targetID, topic string) (string, error) {
	if w.err != nil {
		return "", w.err
	}
	w.targets = append(w.targets, targetID)
	return fmt.Sprintf("%s to %s", authorID, targetID), nil
}

func (w *stubWriter) ReplyTopic(post models.Post) string { return "comment on " + post.Body }

type stubProfiles struct {
	seen []string
	fail string
}

func (p *stubProfiles) RefreshAll(_ context.Context, ids []string) []profile.Result {
	out := make([]profile.Result, 0, len(ids))
	for _, id := range ids {
		p.seen = append(p.seen, id)
		r := profile.Result{ActorID: id}
		if id == p.fail {
			r.Err = errors.New("refused")
		}
		out = append(out, r)
	}
	return out
}

type stubImages struct{ calls int }

func (i *stubImages) Publish(context.Context, string) (string, error) {
	i.calls++
	return "http://img/post.png", nil
}

type memJournal struct{ events []journal.Event }

func (m *memJournal) Append(ev journal.Event) error {
	m.events = append(m.events, ev)
	return nil
}

func (m *memJournal) Load() ([]journal.Event, error) { return m.events, nil }

func (m *memJournal) count(k journal.Kind) int {
	n := 0
	for _, ev := range m.events {
		if ev.Kind == k {
			n++
		}
	}
	return n
}

type world struct {
	store    *store.MemoryStore
	pop      *stubPopulation
	writer   *stubWriter
	profiles *stubProfiles
	images   *stubImages
	journal  *memJournal
	clock    *fakeClock
}

func ts(sec int) string {
	return models.FormatTimestamp(time.Date(2024, 1, 1, 0, 0, sec, 0, time.UTC))
}

func newWorld(t *testing.T) *world {
	t.Helper()
	ctx := context.Background()
	s := store.NewMemoryStore()
	for _, a := range []models.Actor{
		{ID: "h1", Provider: "google"},
		{ID: "h2", Provider: "github"},
		{ID: "b1", Provider: models.SyntheticProvider},
		{ID: "b2", Provider: models.SyntheticProvider},
		{ID: "b3", Provider: models.SyntheticProvider},
	} {
		require.NoError(t, s.InsertActor(ctx, a))
	}
	require.NoError(t, s.InsertPost(ctx, models.Post{ID: "p1", AuthorID: "h1", Body: "hello", CreatedAt: ts(1)}))
	require.NoError(t, s.InsertPost(ctx, models.Post{ID: "p2", AuthorID: "h2", Body: "cats", CreatedAt: ts(2)}))
	require.NoError(t, s.InsertPost(ctx, models.Post{ID: "p3", AuthorID: "b1", Body: "bot", CreatedAt: ts(3)}))

	return &world{
		store:    s,
		pop:      &stubPopulation{s: s},
		writer:   &stubWriter{},
		profiles: &stubProfiles{fail: "h2"},
		images:   &stubImages{},
		journal:  &memJournal{},
		clock:    &fakeClock{now: time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)},
	}
}

func (w *world) scheduler(seed int64) *Scheduler {
	rng := rand.New(rand.NewSource(seed))
	return New(Deps{
		Store:      w.store,
		Population: w.pop,
		Ranker:     ranking.NewRanker(w.store, 0.5, rng),
		Writer:     w.writer,
		Profiles:   w.profiles,
		Images:     w.images,
		Journal:    w.journal,
		Clock:      w.clock,
		Rand:       rng,
		Log:        logging.Discard(),
	}, Settings{
		TargetRatio:       1.5,
		RecentPostsWindow: 100,
		RecentActiveLimit: 10,
		AuthorPoolSize:    2,
		PostImageProb:     0.25,
		CycleInterval:     45 * time.Second,
	})
}

func TestRunCycle_InteractsWithHumanPostsOnly(t *testing.T) {
	ctx := context.Background()
	w := newWorld(t)
	s := w.scheduler(7)

	for i := 0; i < 30; i++ {
		require.NoError(t, s.RunCycle(ctx))
		w.clock.now = w.clock.now.Add(time.Minute)
	}

	replies := w.store.Replies()
	likes := w.store.Likes()
	require.NotEmpty(t, replies)
	require.NotEmpty(t, likes)

	perPost := map[string][2]int{}
	for _, r := range replies {
		assert.Contains(t, []string{"p1", "p2"}, r.PostID, "only human posts get replies")
		assert.Contains(t, []string{"b1", "b2", "b3"}, r.AuthorID)
		c := perPost[r.PostID]
		c[0]++
		perPost[r.PostID] = c
	}
	for _, l := range likes {
		assert.Contains(t, []string{"p1", "p2"}, l.PostID, "only human posts get likes")
		c := perPost[l.PostID]
		c[1]++
		perPost[l.PostID] = c
	}
	for id, c := range perPost {
		post, err := w.store.GetPost(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, c[0], post.ReplyCount, id)
		assert.Equal(t, c[1], post.LikeCount, id)
	}

	assert.Equal(t, 30, w.journal.count(journal.KindCycle))
	assert.Equal(t, len(replies), w.journal.count(journal.KindReply))
	assert.Equal(t, 30, w.journal.count(journal.KindPost))
}

func TestRunCycle_AtMostOneReplyAndLikePerPost(t *testing.T) {
	ctx := context.Background()
	w := newWorld(t)
	s := w.scheduler(11)

	for i := 0; i < 200; i++ {
		require.NoError(t, s.RunCycle(ctx))
		w.clock.now = w.clock.now.Add(time.Minute)
	}

	type key struct {
		cycle int
		post  string
	}
	replies := map[key]int{}
	likes := map[key]int{}
	for _, ev := range w.journal.events {
		switch ev.Kind {
		case journal.KindReply:
			replies[key{ev.Cycle, ev.PostID}]++
		case journal.KindLike:
			likes[key{ev.Cycle, ev.PostID}]++
		}
	}
	require.NotEmpty(t, replies)
	require.NotEmpty(t, likes)
	for k, n := range replies {
		assert.LessOrEqual(t, n, 1, "replies on %s in cycle %d", k.post, k.cycle)
	}
	for k, n := range likes {
		assert.LessOrEqual(t, n, 1, "likes on %s in cycle %d", k.post, k.cycle)
	}
}

func TestRunCycle_AuthorWithoutActorRowCountsAsHuman(t *testing.T) {
	ctx := context.Background()
	w := newWorld(t)
	require.NoError(t, w.store.InsertPost(ctx, models.Post{ID: "p4", AuthorID: "ghost", Body: "orphan", CreatedAt: ts(4)}))
	s := w.scheduler(5)

	for i := 0; i < 30; i++ {
		require.NoError(t, s.RunCycle(ctx))
		w.clock.now = w.clock.now.Add(time.Minute)
	}

	post, err := w.store.GetPost(ctx, "p4")
	require.NoError(t, err)
	assert.Positive(t, post.ReplyCount+post.LikeCount)

	for _, r := range w.store.Replies() {
		assert.NotEqual(t, "p3", r.PostID, "synthetic posts stay excluded")
	}
}

func TestRunCycle_TargetedPost(t *testing.T) {
	ctx := context.Background()
	w := newWorld(t)
	s := w.scheduler(3)

	require.NoError(t, s.RunCycle(ctx))

	posts, err := w.store.RecentPosts(ctx, 1)
	require.NoError(t, err)
	require.Len(t, posts, 1)
	newest := posts[0]
	assert.Contains(t, []string{"b1", "b2"}, newest.AuthorID, "author comes from the author pool prefix")
	assert.Equal(t, "2024-02-01T00:00:00.000000", newest.CreatedAt)

	last := w.writer.targets[len(w.writer.targets)-1]
	assert.Contains(t, []string{"h1", "h2", "b1"}, last)
	assert.Equal(t, newest.AuthorID+" to "+last, newest.Body)
}

func TestRunCycle_RefreshesEveryHuman(t *testing.T) {
	w := newWorld(t)
	s := w.scheduler(1)

	require.NoError(t, s.RunCycle(context.Background()))

	assert.ElementsMatch(t, []string{"h1", "h2"}, w.profiles.seen)
	assert.Equal(t, 1, w.journal.count(journal.KindProfile))
	assert.Equal(t, 1, w.journal.count(journal.KindProfileFailed))
}

func TestRun_StopsOnPopulationError(t *testing.T) {
	w := newWorld(t)
	w.pop.err = errors.New("seed batch failed")
	s := w.scheduler(1)

	err := s.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "seed batch failed")
	assert.Equal(t, 1, w.pop.calls)
	assert.Zero(t, w.clock.sleeps)
	assert.Empty(t, w.profiles.seen, "no step runs after a population failure")
}

func TestRun_ContinuesPastStepFailures(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	w := newWorld(t)
	w.writer.err = errors.New("provider down")
	w.clock.stopAt = 3
	w.clock.cancel = cancel
	s := w.scheduler(1)

	require.NoError(t, s.Run(ctx))

	assert.Equal(t, 3, w.pop.calls)
	assert.Equal(t, 3, w.clock.sleeps)
	assert.Equal(t, 3, w.journal.count(journal.KindStepFailed), "targeted post fails each cycle")
	assert.Empty(t, w.store.Replies())
	assert.Len(t, w.profiles.seen, 6)
}

func TestSample(t *testing.T) {
	s := New(Deps{Rand: rand.New(rand.NewSource(9))}, Settings{})
	ids := []string{"a", "b", "c", "d"}

	assert.Nil(t, s.sample(ids, 0))
	assert.Equal(t, ids, s.sample(ids, 4))
	assert.Equal(t, ids, s.sample(ids, 9), "uses everyone when there are too few")

	got := s.sample(ids, 2)
	require.Len(t, got, 2)
	assert.NotEqual(t, got[0], got[1])
}
