package ranking

import (
	"context"
	"errors"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"synthpop/internal/models"
	"synthpop/internal/store"
)

func populate(t *testing.T) *store.MemoryStore {
	t.Helper()
	ctx := context.Background()
	s := store.NewMemoryStore()
	for _, a := range []models.Actor{
		{ID: "A"}, {ID: "B"}, {ID: "C"},
		{ID: "X", Provider: models.SyntheticProvider},
		{ID: "Y", Provider: models.SyntheticProvider},
		{ID: "Z", Provider: models.SyntheticProvider},
	} {
		require.NoError(t, s.InsertActor(ctx, a))
	}
	posts := []models.Post{
		{ID: "1", AuthorID: "A", CreatedAt: "2024-01-01T00:00:01"},
		{ID: "2", AuthorID: "B", CreatedAt: "2024-01-01T00:00:02.500000"},
		{ID: "3", AuthorID: "C", CreatedAt: "2024-01-01T00:00:03"},
		{ID: "4", AuthorID: "X", CreatedAt: "2024-01-01T00:00:04"},
		{ID: "5", AuthorID: "Y", CreatedAt: "2024-01-01T00:00:05"},
		{ID: "6", AuthorID: "Z", CreatedAt: "2024-01-01T00:00:06"},
	}
	for _, p := range posts {
		require.NoError(t, s.InsertPost(ctx, p))
	}
	return s
}

func TestRecentActive_PartitionedHumansFirst(t *testing.T) {
	r := NewRanker(populate(t), 0, rand.New(rand.NewSource(1)))

	got, err := r.RecentActive(context.Background(), 10)
	require.NoError(t, err)
	assert.Equal(t, []string{"C", "B", "A", "Z", "Y", "X"}, IDs(got))
	assert.Equal(t, models.KindSynthetic, got[3].Kind)
}

func TestRecentActive_CollapsedPool(t *testing.T) {
	r := NewRanker(populate(t), 1, rand.New(rand.NewSource(1)))

	got, err := r.RecentActive(context.Background(), 4)
	require.NoError(t, err)
	assert.Equal(t, []string{"Z", "Y", "X", "C"}, IDs(got))
}

func TestRecentActive_TiesKeepStoreOrder(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemoryStore()
	for _, a := range []models.Actor{
		{ID: "Q"}, {ID: "P"},
		{ID: "W", Provider: models.SyntheticProvider},
		{ID: "V", Provider: models.SyntheticProvider},
	} {
		require.NoError(t, s.InsertActor(ctx, a))
	}
	for i, author := range []string{"P", "Q", "V", "W"} {
		require.NoError(t, s.InsertPost(ctx, models.Post{ID: string(rune('1' + i)), AuthorID: author, CreatedAt: "2024-01-01T00:00:07"}))
	}
	kinds, err := s.ActorKinds(ctx, []string{"P", "Q", "V", "W"})
	require.NoError(t, err)
	var humans, bots []string
	for _, k := range kinds {
		if k.Kind == models.KindSynthetic {
			bots = append(bots, k.ID)
			continue
		}
		humans = append(humans, k.ID)
	}

	assert.Equal(t, []string{"Q", "P"}, humans)
	want := append(append([]string{}, humans...), bots...)

	r := NewRanker(s, 0, rand.New(rand.NewSource(1)))
	for i := 0; i < 5; i++ {
		got, err := r.RecentActive(ctx, 10)
		require.NoError(t, err)
		assert.Equal(t, want, IDs(got))
	}
}

func TestRecentActive_ReplyNewerThanPost(t *testing.T) {
	s := populate(t)
	require.NoError(t, s.InsertReply(context.Background(), models.Reply{ID: "r", AuthorID: "A", PostID: "3", CreatedAt: "2024-01-01T00:00:09.000001"}))
	r := NewRanker(s, 0, rand.New(rand.NewSource(1)))

	got, err := r.RecentActive(context.Background(), 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "C"}, IDs(got))
}

func TestRecentActive_MalformedTimestampIsHardError(t *testing.T) {
	s := populate(t)
	require.NoError(t, s.InsertPost(context.Background(), models.Post{ID: "bad", AuthorID: "A", CreatedAt: "not-a-timestamp"}))
	r := NewRanker(s, 0, rand.New(rand.NewSource(1)))

	_, err := r.RecentActive(context.Background(), 10)
	require.Error(t, err)
	assert.True(t, errors.Is(err, models.ErrMalformedTimestamp))
}

func TestRecentActive_CollapseFrequency(t *testing.T) {
	r := NewRanker(populate(t), 0.5, rand.New(rand.NewSource(42)))
	collapsed := 0
	for i := 0; i < 400; i++ {
		got, err := r.RecentActive(context.Background(), 1)
		require.NoError(t, err)
		if got[0].ActorID == "Z" {
			collapsed++
		}
	}
	assert.InDelta(t, 200, collapsed, 60)
}
