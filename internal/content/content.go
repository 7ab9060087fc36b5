// Package content writes targeted posts and replies on behalf of synthetic
// actors.
package content

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"synthpop/internal/llm"
	"synthpop/internal/models"
	"synthpop/internal/prompts"
	"synthpop/internal/store"
)

const maxTokens = 50

type Generator struct {
	writer  llm.Client
	store   store.Store
	prompts prompts.Set
}

func NewGenerator(writer llm.Client, s store.Store, p prompts.Set) *Generator {
	return &Generator{writer: writer, store: s, prompts: p}
}

// Targeted writes a short post in the author's voice shaped toward the
// target's profile. topic is optional. A target without a stored profile is
// described with unknown fields.
func (g *Generator) Targeted(ctx context.Context, authorID, targetID, topic string) (string, error) {
	author, err := g.store.GetActor(ctx, authorID)
	if err != nil {
		return "", fmt.Errorf("load author: %w", err)
	}
	target, err := g.store.GetActor(ctx, targetID)
	if err != nil {
		return "", fmt.Errorf("load target: %w", err)
	}
	profile, err := g.store.GetProfile(ctx, targetID)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return "", fmt.Errorf("load target profile: %w", err)
	}

	resp, err := g.writer.Generate(ctx, []llm.Message{
		{Role: llm.RoleSystem, Content: g.prompts.ContentSystem},
		{Role: llm.RoleUser, Content: g.Prompt(author, target, profile, topic)},
	}, llm.WithMaxTokens(maxTokens))
	if err != nil {
		return "", fmt.Errorf("generate content: %w", err)
	}
	return strings.TrimSpace(resp.Content), nil
}

// Prompt renders the targeted-content prompt.
func (g *Generator) Prompt(author, target models.Actor, profile models.Profile, topic string) string {
	name := author.Name
	if name == "" {
		name = "Anonymous"
	}
	var b strings.Builder
	b.WriteString(prompts.Fill(g.prompts.ContentBody,
		"author_name", name,
		"author_bio", author.Bio,
		"target_name", orDefault(target.Name, "Anonymous"),
		"target_username", orDefault(target.Username, "Anonymous"),
		"target_bio", target.Bio,
		"age_group", orDefault(profile.AgeGroup, "unknown"),
		"gender", orDefault(profile.Gender, "unknown"),
		"race", orDefault(profile.Race, "unknown"),
		"location", orDefault(profile.Location, "unknown"),
		"income_range", orDefault(profile.IncomeRange, "unknown"),
		"relationship_status", orDefault(profile.RelationshipStatus, "unknown"),
		"education", orDefault(profile.Education, "unknown"),
		"occupation", orDefault(profile.Occupation, "unknown"),
		"interests", strings.Join(profile.Interests, ", "),
		"facts", strings.Join(profile.Facts, ", "),
	))
	if topic != "" {
		b.WriteString(prompts.Fill(g.prompts.ContentTopic, "topic", topic))
	}
	b.WriteString(g.prompts.ContentStyle)
	return b.String()
}

// ReplyTopic is the topic handed to Targeted when commenting on post.
func (g *Generator) ReplyTopic(post models.Post) string {
	topic := prompts.Fill(g.prompts.ReplyTopic, "body", post.Body)
	if len(post.ImageRefs()) > 0 {
		topic += g.prompts.ReplyImages
	}
	return topic + g.prompts.ReplyAlignment
}

func orDefault(v, def string) string {
	if strings.TrimSpace(v) == "" {
		return def
	}
	return v
}
