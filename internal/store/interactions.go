package store

import (
	"context"
	"fmt"

	"synthpop/internal/models"
)

// The helpers below create an interaction record and then bump the matching
// post counter with a read-then-write. The record is never rolled back: if the
// counter write fails the record stays and the counter keeps its old value.
// Two writers running these concurrently can lose increments.

// AddReply inserts r and increments the parent post's replyCount.
func AddReply(ctx context.Context, s Store, r models.Reply) error {
	post, err := s.GetPost(ctx, r.PostID)
	if err != nil {
		return fmt.Errorf("load post %s: %w", r.PostID, err)
	}
	if err := s.InsertReply(ctx, r); err != nil {
		return fmt.Errorf("insert reply: %w", err)
	}
	if err := s.SetPostCounter(ctx, r.PostID, CounterReplies, post.ReplyCount+1); err != nil {
		return fmt.Errorf("increment replyCount: %w", err)
	}
	return nil
}

// AddLike inserts l and increments the post's likeCount.
func AddLike(ctx context.Context, s Store, l models.Like) error {
	post, err := s.GetPost(ctx, l.PostID)
	if err != nil {
		return fmt.Errorf("load post %s: %w", l.PostID, err)
	}
	if err := s.InsertLike(ctx, l); err != nil {
		return fmt.Errorf("insert like: %w", err)
	}
	if err := s.SetPostCounter(ctx, l.PostID, CounterLikes, post.LikeCount+1); err != nil {
		return fmt.Errorf("increment likeCount: %w", err)
	}
	return nil
}

// AddRetweet inserts r and increments the post's retweetCount. The
// simulation loop never retweets; this exists for callers seeding or
// importing a world through the store.
func AddRetweet(ctx context.Context, s Store, r models.Retweet) error {
	post, err := s.GetPost(ctx, r.PostID)
	if err != nil {
		return fmt.Errorf("load post %s: %w", r.PostID, err)
	}
	if err := s.InsertRetweet(ctx, r); err != nil {
		return fmt.Errorf("insert retweet: %w", err)
	}
	if err := s.SetPostCounter(ctx, r.PostID, CounterRetweets, post.RetweetCount+1); err != nil {
		return fmt.Errorf("increment retweetCount: %w", err)
	}
	return nil
}

// AddBookmark inserts b. Bookmarks have no counter. Like AddRetweet it is
// only reached from outside the simulation loop.
func AddBookmark(ctx context.Context, s Store, b models.Bookmark) error {
	if _, err := s.GetPost(ctx, b.PostID); err != nil {
		return fmt.Errorf("load post %s: %w", b.PostID, err)
	}
	if err := s.InsertBookmark(ctx, b); err != nil {
		return fmt.Errorf("insert bookmark: %w", err)
	}
	return nil
}
