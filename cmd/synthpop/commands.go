package main

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"synthpop/internal/api"
	"synthpop/internal/models"
	"synthpop/internal/ranking"
)

func newRunCmd() *cobra.Command {
	var noAdmin, noReport bool
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the simulation loop until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := setup(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()
			g, ctx := errgroup.WithContext(ctx)

			if !noReport {
				report := a.ReportScheduler()
				if err := report.Start(); err != nil {
					return err
				}
				defer report.Stop()
			}
			if !noAdmin {
				router := api.NewRouter(api.Options{
					Census:      a.Population,
					TargetRatio: a.Config.TargetRatio,
					Metrics:     a.Metrics.Handler(),
					ImageDir:    a.Config.ImageDir,
					Log:         a.Log,
				})
				srv := api.NewServer(a.Config.AdminAddr, router, a.Log)
				g.Go(func() error { return srv.Run(ctx) })
			}
			g.Go(func() error {
				defer cancel()
				return a.Scheduler.Run(ctx)
			})
			return g.Wait()
		},
	}
	cmd.Flags().BoolVar(&noAdmin, "no-admin", false, "Do not serve the admin HTTP endpoints")
	cmd.Flags().BoolVar(&noReport, "no-report", false, "Do not schedule the daily report")
	return cmd
}

func newOnceCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "once",
		Short: "Run a single simulation cycle",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := setup(cmd)
			if err != nil {
				return err
			}
			defer a.Close()
			return a.Scheduler.RunCycle(cmd.Context())
		},
	}
}

func newMaintainCmd() *cobra.Command {
	var target float64
	cmd := &cobra.Command{
		Use:   "maintain",
		Short: "Grow the synthetic population to the target ratio and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := setup(cmd)
			if err != nil {
				return err
			}
			defer a.Close()
			if !cmd.Flags().Changed("target") {
				target = a.Config.TargetRatio
			}
			created, err := a.Population.MaintainRatio(cmd.Context(), target)
			if err != nil {
				return err
			}
			humans, synthetic, err := a.Population.Census(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "created %d synthetic actors; humans=%d synthetic=%d\n", len(created), humans, synthetic)
			return nil
		},
	}
	cmd.Flags().Float64Var(&target, "target", 0, "Synthetic per human ratio (defaults to TARGET_RATIO)")
	return cmd
}

func newInferCmd() *cobra.Command {
	var all bool
	cmd := &cobra.Command{
		Use:   "infer [actor-id...]",
		Short: "Infer and store profiles for the given actors, or every human with --all",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !all && len(args) == 0 {
				return fmt.Errorf("pass actor ids or --all")
			}
			a, err := setup(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			ids := args
			if all {
				ids, err = a.Store.ListActorIDs(cmd.Context(), models.KindHuman, 0)
				if err != nil {
					return err
				}
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			failed := 0
			for _, r := range a.Profiles.RefreshAll(cmd.Context(), ids) {
				if r.Err != nil {
					failed++
					fmt.Fprintf(cmd.ErrOrStderr(), "%s: %v\n", r.ActorID, r.Err)
					continue
				}
				if err := enc.Encode(map[string]any{"actor_id": r.ActorID, "profile": r.Profile}); err != nil {
					return err
				}
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d profiles failed", failed, len(ids))
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&all, "all", false, "Refresh every human actor")
	return cmd
}

func newRankCmd() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "rank",
		Short: "List recently active actors the way the loop picks targets",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := setup(cmd)
			if err != nil {
				return err
			}
			defer a.Close()
			if !cmd.Flags().Changed("limit") {
				limit = a.Config.RecentActiveLimit
			}
			items, err := a.Ranker.RecentActive(cmd.Context(), limit)
			if err != nil {
				return err
			}
			printRanked(cmd, items)
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 0, "Number of actors (defaults to RECENT_ACTIVE_LIMIT)")
	return cmd
}

func printRanked(cmd *cobra.Command, items []ranking.Ranked) {
	for i, it := range items {
		fmt.Fprintf(cmd.OutOrStdout(), "%2d  %-36s  %-9s  %s\n", i+1, it.ActorID, it.Kind, models.FormatTimestamp(it.LastActive))
	}
}
