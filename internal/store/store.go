// Package store is the typed boundary to the record store. Implementations map
// the external field names (followersCount, incomeRange, ...) onto the models
// package so the rest of the code never handles untyped rows.
package store

import (
	"context"
	"errors"

	"synthpop/internal/models"
)

// ErrNotFound is returned when a single-row lookup matches nothing.
var ErrNotFound = errors.New("record not found")

// Counter names a post counter column.
type Counter string

const (
	CounterLikes    Counter = "likeCount"
	CounterRetweets Counter = "retweetCount"
	CounterReplies  Counter = "replyCount"
)

// Store lists every record-store operation the simulation needs. Queries that
// return "recent" rows order by createdAt descending. Limits <= 0 mean no
// limit. Implementations must be safe for use from one goroutine at a time;
// nothing here guards read-modify-write sequences against concurrent writers.
type Store interface {
	CountActors(ctx context.Context, kind models.Kind) (int, error)
	ListActorIDs(ctx context.Context, kind models.Kind, limit int) ([]string, error)
	ActorKinds(ctx context.Context, ids []string) ([]models.ActorKind, error)
	GetActor(ctx context.Context, id string) (models.Actor, error)
	InsertActor(ctx context.Context, a models.Actor) error

	GetProfile(ctx context.Context, actorID string) (models.Profile, error)
	InsertProfile(ctx context.Context, p models.Profile) error
	UpdateProfile(ctx context.Context, p models.Profile) error

	GetPost(ctx context.Context, id string) (models.Post, error)
	RecentPosts(ctx context.Context, limit int) ([]models.Post, error)
	PostsByActor(ctx context.Context, actorID string, limit int) ([]models.Post, error)
	RepliesByActor(ctx context.Context, actorID string, limit int) ([]models.Reply, error)
	LikesByActor(ctx context.Context, actorID string, limit int) ([]models.Like, error)
	InsertPost(ctx context.Context, p models.Post) error
	SetPostCounter(ctx context.Context, postID string, c Counter, value int) error

	InsertReply(ctx context.Context, r models.Reply) error
	InsertLike(ctx context.Context, l models.Like) error
	InsertRetweet(ctx context.Context, r models.Retweet) error
	InsertBookmark(ctx context.Context, b models.Bookmark) error

	PostActivity(ctx context.Context) ([]models.Activity, error)
	ReplyActivity(ctx context.Context) ([]models.Activity, error)
}
