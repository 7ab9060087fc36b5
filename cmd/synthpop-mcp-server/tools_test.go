package main

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"synthpop/internal/models"
	"synthpop/internal/ranking"
	"synthpop/internal/store"
)

type fixedCensus struct{ h, s int }

func (f fixedCensus) Census(context.Context) (int, int, error) { return f.h, f.s, nil }

type fixedRanker []ranking.Ranked

func (f fixedRanker) RecentActive(_ context.Context, limit int) ([]ranking.Ranked, error) {
	if limit < len(f) {
		return f[:limit], nil
	}
	return f, nil
}

type stubInferer struct{ err error }

func (s stubInferer) Infer(_ context.Context, id string) (models.Profile, error) {
	if s.err != nil {
		return models.Profile{}, s.err
	}
	return models.Profile{ActorID: id, Occupation: "baker", Interests: []string{"bread"}, Facts: []string{}}, nil
}

func text(t *testing.T, res *mcp.CallToolResultFor[any]) string {
	t.Helper()
	require.Len(t, res.Content, 1)
	tc, ok := res.Content[0].(*mcp.TextContent)
	require.True(t, ok)
	return tc.Text
}

func newTools(t *testing.T) *SynthpopMCPServer {
	t.Helper()
	s := store.NewMemoryStore()
	require.NoError(t, s.InsertProfile(context.Background(), models.Profile{ID: "p1", ActorID: "h1", Location: "Lima"}))
	return &SynthpopMCPServer{
		store:  s,
		census: fixedCensus{h: 10, s: 5},
		ranker: fixedRanker{
			{ActorID: "h1", Kind: models.KindHuman, LastActive: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)},
			{ActorID: "b1", Kind: models.KindSynthetic, LastActive: time.Date(2023, 12, 31, 0, 0, 0, 0, time.UTC)},
		},
		profiles:    stubInferer{},
		targetRatio: 1.5,
	}
}

func TestPopulationStats(t *testing.T) {
	res, err := newTools(t).PopulationStats(context.Background(), nil, &mcp.CallToolParamsFor[PopulationStatsParams]{})
	require.NoError(t, err)
	require.False(t, res.IsError)

	var body map[string]float64
	require.NoError(t, json.Unmarshal([]byte(text(t, res)), &body))
	assert.Equal(t, 10.0, body["needed"])
	assert.Equal(t, 0.5, body["ratio"])
}

func TestRecentActive(t *testing.T) {
	res, err := newTools(t).RecentActive(context.Background(), nil, &mcp.CallToolParamsFor[RecentActiveParams]{Arguments: RecentActiveParams{Limit: 1}})
	require.NoError(t, err)

	var body []map[string]string
	require.NoError(t, json.Unmarshal([]byte(text(t, res)), &body))
	require.Len(t, body, 1)
	assert.Equal(t, "h1", body[0]["actor_id"])
	assert.Equal(t, "human", body[0]["kind"])
}

func TestGetProfile(t *testing.T) {
	tools := newTools(t)

	res, err := tools.GetProfile(context.Background(), nil, &mcp.CallToolParamsFor[ProfileParams]{Arguments: ProfileParams{ActorID: "h1"}})
	require.NoError(t, err)
	assert.False(t, res.IsError)
	assert.Contains(t, text(t, res), "Lima")

	res, err = tools.GetProfile(context.Background(), nil, &mcp.CallToolParamsFor[ProfileParams]{Arguments: ProfileParams{ActorID: "h2"}})
	require.NoError(t, err)
	assert.True(t, res.IsError)

	res, err = tools.GetProfile(context.Background(), nil, &mcp.CallToolParamsFor[ProfileParams]{})
	require.NoError(t, err)
	assert.True(t, res.IsError)
}

func TestInferProfile(t *testing.T) {
	tools := newTools(t)
	res, err := tools.InferProfile(context.Background(), nil, &mcp.CallToolParamsFor[ProfileParams]{Arguments: ProfileParams{ActorID: "h1"}})
	require.NoError(t, err)
	assert.Contains(t, text(t, res), "baker")

	tools.profiles = stubInferer{err: errors.New("refused")}
	res, err = tools.InferProfile(context.Background(), nil, &mcp.CallToolParamsFor[ProfileParams]{Arguments: ProfileParams{ActorID: "h1"}})
	require.NoError(t, err)
	assert.True(t, res.IsError)
	assert.Contains(t, text(t, res), "refused")
}
