package store

import (
	"context"
	"fmt"
)

// schema is the minimal table set the simulation touches. It is only applied
// on request (local SQLite runs and tests); hosted databases own their schema.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS "User" (
		id TEXT PRIMARY KEY,
		username TEXT NOT NULL,
		name TEXT,
		bio TEXT,
		provider TEXT,
		"profileImage" TEXT,
		"bgImage" TEXT,
		badge TEXT,
		"followersCount" INTEGER NOT NULL DEFAULT 0,
		"followingCount" INTEGER NOT NULL DEFAULT 0,
		"createdAt" TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS "UserProfile" (
		id TEXT PRIMARY KEY,
		"userId" TEXT NOT NULL UNIQUE,
		"ageGroup" TEXT,
		gender TEXT,
		race TEXT,
		location TEXT,
		"incomeRange" TEXT,
		"relationshipStatus" TEXT,
		education TEXT,
		occupation TEXT,
		interests TEXT,
		facts TEXT
	)`,
	`CREATE TABLE IF NOT EXISTS "Tweet" (
		id TEXT PRIMARY KEY,
		"userId" TEXT NOT NULL,
		body TEXT,
		images TEXT,
		"likeCount" INTEGER NOT NULL DEFAULT 0,
		"retweetCount" INTEGER NOT NULL DEFAULT 0,
		"replyCount" INTEGER NOT NULL DEFAULT 0,
		"createdAt" TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS "Reply" (
		id TEXT PRIMARY KEY,
		"userId" TEXT NOT NULL,
		"tweetId" TEXT NOT NULL,
		body TEXT,
		images TEXT,
		"createdAt" TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS "Like" (
		id TEXT PRIMARY KEY,
		"userId" TEXT NOT NULL,
		"tweetId" TEXT NOT NULL,
		"createdAt" TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS "Retweet" (
		id TEXT PRIMARY KEY,
		"userId" TEXT NOT NULL,
		"tweetId" TEXT NOT NULL,
		"retweetDate" TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS "Bookmark" (
		id TEXT PRIMARY KEY,
		"userId" TEXT NOT NULL,
		"tweetId" TEXT NOT NULL,
		"createdAt" TEXT NOT NULL
	)`,
}

// InitSchema creates any missing tables.
func (s *SQLStore) InitSchema(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("init schema: %w", err)
		}
	}
	return nil
}
