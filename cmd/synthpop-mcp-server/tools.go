package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"synthpop/internal/models"
	"synthpop/internal/population"
	"synthpop/internal/ranking"
	"synthpop/internal/store"
)

type PopulationStatsParams struct{}

type RecentActiveParams struct {
	Limit int `json:"limit,omitempty" mcp:"Number of actors to return (default 10)"`
}

type ProfileParams struct {
	ActorID string `json:"actor_id" mcp:"Actor ID"`
}

type Census interface {
	Census(ctx context.Context) (humans, synthetic int, err error)
}

type Ranker interface {
	RecentActive(ctx context.Context, limit int) ([]ranking.Ranked, error)
}

type Inferer interface {
	Infer(ctx context.Context, actorID string) (models.Profile, error)
}

// SynthpopMCPServer exposes read-mostly operator tools over the simulation.
type SynthpopMCPServer struct {
	store       store.Store
	census      Census
	ranker      Ranker
	profiles    Inferer
	targetRatio float64
}

func (s *SynthpopMCPServer) PopulationStats(ctx context.Context, _ *mcp.ServerSession, _ *mcp.CallToolParamsFor[PopulationStatsParams]) (*mcp.CallToolResultFor[any], error) {
	humans, synthetic, err := s.census.Census(ctx)
	if err != nil {
		return errorResult("census failed: %v", err), nil
	}
	return jsonResult(map[string]any{
		"humans":       humans,
		"synthetic":    synthetic,
		"ratio":        population.Ratio(humans, synthetic),
		"target_ratio": s.targetRatio,
		"needed":       population.Needed(s.targetRatio, humans, synthetic),
	})
}

func (s *SynthpopMCPServer) RecentActive(ctx context.Context, _ *mcp.ServerSession, params *mcp.CallToolParamsFor[RecentActiveParams]) (*mcp.CallToolResultFor[any], error) {
	limit := params.Arguments.Limit
	if limit <= 0 {
		limit = 10
	}
	items, err := s.ranker.RecentActive(ctx, limit)
	if err != nil {
		return errorResult("ranking failed: %v", err), nil
	}
	out := make([]map[string]string, 0, len(items))
	for _, it := range items {
		out = append(out, map[string]string{
			"actor_id":    it.ActorID,
			"kind":        string(it.Kind),
			"last_active": models.FormatTimestamp(it.LastActive),
		})
	}
	return jsonResult(out)
}

func (s *SynthpopMCPServer) GetProfile(ctx context.Context, _ *mcp.ServerSession, params *mcp.CallToolParamsFor[ProfileParams]) (*mcp.CallToolResultFor[any], error) {
	id := params.Arguments.ActorID
	if id == "" {
		return errorResult("actor_id is required"), nil
	}
	p, err := s.store.GetProfile(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return errorResult("no profile stored for %s", id), nil
	}
	if err != nil {
		return errorResult("load profile: %v", err), nil
	}
	return jsonResult(p)
}

func (s *SynthpopMCPServer) InferProfile(ctx context.Context, _ *mcp.ServerSession, params *mcp.CallToolParamsFor[ProfileParams]) (*mcp.CallToolResultFor[any], error) {
	id := params.Arguments.ActorID
	if id == "" {
		return errorResult("actor_id is required"), nil
	}
	p, err := s.profiles.Infer(ctx, id)
	if err != nil {
		return errorResult("inference failed for %s: %v", id, err), nil
	}
	return jsonResult(p)
}

func jsonResult(v any) (*mcp.CallToolResultFor[any], error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode result: %w", err)
	}
	return &mcp.CallToolResultFor[any]{
		Content: []mcp.Content{&mcp.TextContent{Text: string(data)}},
	}, nil
}

func errorResult(format string, args ...any) *mcp.CallToolResultFor[any] {
	return &mcp.CallToolResultFor[any]{
		IsError: true,
		Content: []mcp.Content{&mcp.TextContent{Text: fmt.Sprintf(format, args...)}},
	}
}
