package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"synthpop/internal/app"
	"synthpop/internal/config"
	"synthpop/internal/logging"
)

func main() {
	log := logging.NewLogger("info")
	// stdout carries the MCP protocol.
	log.SetOutput(os.Stderr)

	if err := config.LoadEnv(); err != nil {
		log.WithError(err).Warn("failed to load .env")
	}
	cfg, err := config.New()
	if err != nil {
		log.WithError(err).Fatal("invalid configuration")
	}
	log.SetLevel(logging.ParseLevel(cfg.LogLevel))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, log)
	if err != nil {
		log.WithError(err).Fatal("failed to build application")
	}
	defer a.Close()

	tools := &SynthpopMCPServer{
		store:       a.Store,
		census:      a.Population,
		ranker:      a.Ranker,
		profiles:    a.Profiles,
		targetRatio: cfg.TargetRatio,
	}

	server := mcp.NewServer(&mcp.Implementation{
		Name:    "synthpop-mcp",
		Version: "1.0.0",
	}, nil)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "population_stats",
		Description: "Returns human and synthetic actor counts, the current ratio and how many actors the next pass would add",
	}, tools.PopulationStats)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "recent_active_actors",
		Description: "Lists recently active actors in the order the simulation picks targets",
	}, tools.RecentActive)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "get_profile",
		Description: "Returns the stored inferred profile of an actor",
	}, tools.GetProfile)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "infer_profile",
		Description: "Re-infers and stores the profile of an actor from their recent activity",
	}, tools.InferProfile)

	log.Info("synthpop MCP server listening on stdio")
	if err := server.Run(ctx, mcp.NewStdioTransport()); err != nil && ctx.Err() == nil {
		log.WithError(err).Fatal("MCP server failed")
	}
}
