package population

import (
	"context"
	"fmt"
	"strconv"

	"synthpop/internal/llm"
	"synthpop/internal/prompts"
)

// Seed is the starting identity of a synthetic actor.
type Seed struct {
	Name     string `json:"name" description:"User's full name"`
	Username string `json:"username" description:"User's username (must be unique)"`
	Bio      string `json:"bio" description:"a short description of who the user is and what they do"`
}

type seedList struct {
	Contents []Seed `json:"contents"`
}

// SeedGenerator returns up to n seeds. Any error fails the whole batch.
type SeedGenerator interface {
	Generate(ctx context.Context, n int) ([]Seed, error)
}

// LLMSeedGenerator asks a structured-output model for seeds.
type LLMSeedGenerator struct {
	model   llm.StructuredClient
	prompts prompts.Set
}

func NewLLMSeedGenerator(model llm.StructuredClient, p prompts.Set) *LLMSeedGenerator {
	return &LLMSeedGenerator{model: model, prompts: p}
}

func (g *LLMSeedGenerator) Generate(ctx context.Context, n int) ([]Seed, error) {
	count := strconv.Itoa(n)
	var out seedList
	err := g.model.GenerateStructured(ctx, []llm.Message{
		{Role: llm.RoleSystem, Content: prompts.Fill(g.prompts.SeedSystem, "n", count)},
		{Role: llm.RoleUser, Content: prompts.Fill(g.prompts.SeedUser, "n", count)},
	}, "user_seed_list", &out)
	if err != nil {
		return nil, fmt.Errorf("generate %d seeds: %w", n, err)
	}
	return out.Contents, nil
}
