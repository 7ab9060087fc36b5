package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"synthpop/internal/models"
)

func ts(sec int) string {
	return models.FormatTimestamp(time.Date(2024, 1, 1, 0, 0, sec, 0, time.UTC))
}

// failingCounters fails every counter write, to observe partial failures.
type failingCounters struct {
	*MemoryStore
}

func (f failingCounters) SetPostCounter(context.Context, string, Counter, int) error {
	return errors.New("counter write rejected")
}

func TestAddReply_IncrementsReplyCount(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	require.NoError(t, s.InsertPost(ctx, models.Post{ID: "p1", AuthorID: "h1", ReplyCount: 2, CreatedAt: ts(1)}))

	require.NoError(t, AddReply(ctx, s, models.Reply{ID: "r1", AuthorID: "b1", PostID: "p1", Body: "meh", CreatedAt: ts(2)}))

	post, err := s.GetPost(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, 3, post.ReplyCount)
	assert.Len(t, s.Replies(), 1)
}

func TestAddReply_CounterFailureKeepsReply(t *testing.T) {
	ctx := context.Background()
	mem := NewMemoryStore()
	require.NoError(t, mem.InsertPost(ctx, models.Post{ID: "p1", AuthorID: "h1", ReplyCount: 4, CreatedAt: ts(1)}))

	err := AddReply(ctx, failingCounters{mem}, models.Reply{ID: "r1", AuthorID: "b1", PostID: "p1", CreatedAt: ts(2)})
	require.Error(t, err)

	replies := mem.Replies()
	require.Len(t, replies, 1, "reply must stay visible after the counter write fails")
	assert.Equal(t, "r1", replies[0].ID)

	post, err := mem.GetPost(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, 4, post.ReplyCount)
}

func TestAddLike_AndRetweet_AndBookmark(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	require.NoError(t, s.InsertPost(ctx, models.Post{ID: "p1", AuthorID: "h1", CreatedAt: ts(1)}))

	require.NoError(t, AddLike(ctx, s, models.Like{ID: "l1", ActorID: "b1", PostID: "p1", CreatedAt: ts(2)}))
	require.NoError(t, AddLike(ctx, s, models.Like{ID: "l2", ActorID: "b2", PostID: "p1", CreatedAt: ts(3)}))
	require.NoError(t, AddRetweet(ctx, s, models.Retweet{ID: "rt1", ActorID: "b1", PostID: "p1", RetweetDate: ts(4)}))
	require.NoError(t, AddBookmark(ctx, s, models.Bookmark{ID: "bm1", ActorID: "b1", PostID: "p1", CreatedAt: ts(5)}))

	post, err := s.GetPost(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, 2, post.LikeCount)
	assert.Equal(t, 1, post.RetweetCount)
	assert.Len(t, s.Likes(), 2)
	assert.Len(t, s.Retweets(), 1)
	assert.Len(t, s.Bookmarks(), 1)

	err = AddLike(ctx, s, models.Like{ID: "l3", ActorID: "b1", PostID: "missing"})
	require.ErrorIs(t, err, ErrNotFound)
	assert.Len(t, s.Likes(), 2)
}

func TestMemoryStore_KindsAndCounts(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	for _, a := range []models.Actor{
		{ID: "h1", Provider: "google"},
		{ID: "b1", Provider: models.SyntheticProvider},
		{ID: "h2"},
		{ID: "b2", Provider: models.SyntheticProvider},
		{ID: "b3", Provider: models.SyntheticProvider},
	} {
		require.NoError(t, s.InsertActor(ctx, a))
	}

	humans, err := s.CountActors(ctx, models.KindHuman)
	require.NoError(t, err)
	bots, err := s.CountActors(ctx, models.KindSynthetic)
	require.NoError(t, err)
	assert.Equal(t, 2, humans)
	assert.Equal(t, 3, bots)

	ids, err := s.ListActorIDs(ctx, models.KindSynthetic, 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"b1", "b2"}, ids)

	kinds, err := s.ActorKinds(ctx, []string{"b2", "h1", "nope"})
	require.NoError(t, err)
	assert.Equal(t, []models.ActorKind{{ID: "h1", Kind: models.KindHuman}, {ID: "b2", Kind: models.KindSynthetic}}, kinds)

	require.Error(t, s.InsertActor(ctx, models.Actor{ID: "h1"}))
}

func TestMemoryStore_RecentQueriesAndJoins(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	require.NoError(t, s.InsertPost(ctx, models.Post{ID: "old", AuthorID: "h1", Body: "old", CreatedAt: ts(1)}))
	require.NoError(t, s.InsertPost(ctx, models.Post{ID: "new", AuthorID: "h2", Body: "new", Images: []string{"", "u"}, CreatedAt: ts(3)}))
	require.NoError(t, s.InsertPost(ctx, models.Post{ID: "mid", AuthorID: "h1", Body: "mid", CreatedAt: ts(2)}))
	require.NoError(t, s.InsertReply(ctx, models.Reply{ID: "r1", AuthorID: "h1", PostID: "new", Body: "nice", CreatedAt: ts(4)}))
	require.NoError(t, s.InsertLike(ctx, models.Like{ID: "l1", ActorID: "h1", PostID: "new", CreatedAt: ts(5)}))

	posts, err := s.RecentPosts(ctx, 2)
	require.NoError(t, err)
	require.Len(t, posts, 2)
	assert.Equal(t, "new", posts[0].ID)
	assert.Equal(t, "mid", posts[1].ID)

	mine, err := s.PostsByActor(ctx, "h1", 0)
	require.NoError(t, err)
	require.Len(t, mine, 2)
	assert.Equal(t, "mid", mine[0].ID)

	replies, err := s.RepliesByActor(ctx, "h1", 3)
	require.NoError(t, err)
	require.Len(t, replies, 1)
	require.NotNil(t, replies[0].Parent)
	assert.Equal(t, "new", replies[0].Parent.Body)

	likes, err := s.LikesByActor(ctx, "h1", 3)
	require.NoError(t, err)
	require.Len(t, likes, 1)
	require.NotNil(t, likes[0].Post)
	assert.Equal(t, []string{"", "u"}, likes[0].Post.Images)

	activity, err := s.PostActivity(ctx)
	require.NoError(t, err)
	assert.Equal(t, []models.Activity{
		{ActorID: "h2", CreatedAt: ts(3)},
		{ActorID: "h1", CreatedAt: ts(2)},
		{ActorID: "h1", CreatedAt: ts(1)},
	}, activity)
}

func TestMemoryStore_ProfileReplace(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	_, err := s.GetProfile(ctx, "h1")
	require.ErrorIs(t, err, ErrNotFound)
	require.ErrorIs(t, s.UpdateProfile(ctx, models.Profile{ActorID: "h1"}), ErrNotFound)

	require.NoError(t, s.InsertProfile(ctx, models.Profile{ID: "p1", ActorID: "h1", Gender: "female", Interests: []string{"cats"}}))
	require.NoError(t, s.UpdateProfile(ctx, models.Profile{ActorID: "h1", Location: "Oslo"}))

	got, err := s.GetProfile(ctx, "h1")
	require.NoError(t, err)
	assert.Equal(t, "p1", got.ID)
	assert.Equal(t, "Oslo", got.Location)
	assert.Empty(t, got.Gender, "update replaces every field")
	assert.Empty(t, got.Interests)
}
