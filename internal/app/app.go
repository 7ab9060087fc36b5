// Package app assembles the simulation from configuration. Both binaries
// build on it.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"time"

	"synthpop/internal/blob"
	"synthpop/internal/config"
	"synthpop/internal/content"
	"synthpop/internal/contentcache"
	"synthpop/internal/enrich"
	"synthpop/internal/httpx"
	"synthpop/internal/imagegen"
	"synthpop/internal/journal"
	"synthpop/internal/llm"
	"synthpop/internal/logging"
	"synthpop/internal/metrics"
	"synthpop/internal/notify"
	"synthpop/internal/population"
	"synthpop/internal/profile"
	"synthpop/internal/prompts"
	"synthpop/internal/ranking"
	"synthpop/internal/scheduler"
	"synthpop/internal/store"
)

// App holds every long-lived component.
type App struct {
	Config     *config.Config
	Log        logging.Logger
	Store      store.Store
	Cache      *contentcache.Cache
	Metrics    *metrics.Collector
	Journal    journal.Recorder
	Population *population.Controller
	Ranker     *ranking.Ranker
	Profiles   *profile.Engine
	Writer     *content.Generator
	Images     *imagegen.Publisher
	Notifier   scheduler.Notifier
	Scheduler  *scheduler.Scheduler

	closers []io.Closer
}

// New wires the components. Close releases what it opened.
func New(ctx context.Context, cfg *config.Config, log logging.Logger) (*App, error) {
	a := &App{Config: cfg, Log: log, Metrics: metrics.New()}
	if err := a.build(ctx); err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

func (a *App) build(ctx context.Context) error {
	cfg := a.Config

	ps, err := prompts.Load(cfg.PromptsPath)
	if err != nil {
		return err
	}

	if err := a.openStore(ctx); err != nil {
		return err
	}

	cacheOpts := []contentcache.Option{contentcache.WithHooks(a.Metrics.CacheHooks())}
	if cfg.RedisURL != "" {
		tier, err := contentcache.NewRedisTierFromURL(cfg.RedisURL)
		if err != nil {
			return err
		}
		a.closers = append(a.closers, tier)
		cacheOpts = append(cacheOpts, contentcache.WithTier(tier))
	}
	a.Cache = contentcache.New(cacheOpts...)

	if cfg.JournalPath != "" {
		rec, err := journal.NewFileRecorder(cfg.JournalPath)
		if err != nil {
			return err
		}
		a.Journal = rec
	} else {
		a.Journal = journal.Nop{}
	}

	httpCfg := httpx.DefaultConfig()
	httpCfg.Timeout = cfg.RequestTimeout
	httpCfg.MaxRetries = cfg.HTTPMaxRetries
	hc := httpx.New(httpCfg)

	factory := llm.NewFactory(cfg, hc.HTTP())
	openai := factory.OpenAI()
	writer, err := factory.CreateClient(string(cfg.LLMProvider))
	if err != nil {
		return err
	}

	files, err := blob.NewFileStore(cfg.ImageDir, cfg.ImageBaseURL)
	if err != nil {
		return err
	}
	var gen imagegen.Generator
	switch cfg.ImageProvider {
	case config.ImageStability:
		gen = imagegen.NewStability(hc, cfg.StabilityURL, cfg.StabilityAPIKey)
	case config.ImageOpenAI:
		gen = imagegen.NewOpenAI(cfg.OpenAIAPIKey, cfg.OpenAIBaseURL, cfg.ImageModel, hc.HTTP())
	default:
		gen = imagegen.Disabled{}
	}
	a.Images = imagegen.NewPublisher(gen, files)

	var keywords enrich.KeywordExtractor = enrich.NoKeywords{}
	if cfg.KeywordsAPIKey != "" {
		keywords = enrich.NewAyfieExtractor(hc, enrich.AyfieOptions{
			URL:      cfg.KeywordsURL,
			APIKey:   cfg.KeywordsAPIKey,
			TopN:     cfg.KeywordsTopN,
			NgramMin: cfg.KeywordsNgramMin,
			NgramMax: cfg.KeywordsNgramMax,
		}, a.Log)
	}
	describer := enrich.NewDescriber(enrich.NewHTTPFetcher(hc), openai, a.Cache, cfg.ImageMaxSide, a.Log)

	rng := rand.New(rand.NewSource(time.Now().UnixNano()))

	a.Profiles = profile.NewEngine(a.Store, keywords, describer, openai, ps, profile.Windows{
		Posts:   cfg.ProfilePosts,
		Replies: cfg.ProfileReplies,
		Likes:   cfg.ProfileLikes,
	}, a.Log)
	a.Ranker = ranking.NewRanker(a.Store, cfg.PartitionCollapseProb, rng)
	a.Writer = content.NewGenerator(writer, a.Store, ps)
	a.Population = population.NewController(a.Store, population.NewLLMSeedGenerator(openai, ps), a.Images, ps, population.Settings{
		BatchSize:           cfg.SeedBatchSize,
		ProfileImageProb:    cfg.ProfileImageProb,
		BackgroundImageProb: cfg.BackgroundImageProb,
		BadgeProb:           cfg.BadgeProb,
	}, rng, time.Now, a.Log)

	if cfg.TelegramBotToken != "" && cfg.AdminChatID != 0 {
		tg, err := notify.NewTelegram(cfg.TelegramBotToken, cfg.AdminChatID)
		if err != nil {
			return err
		}
		a.Notifier = tg
	} else {
		a.Notifier = notify.NewLog(a.Log)
	}

	a.Scheduler = scheduler.New(scheduler.Deps{
		Store:      a.Store,
		Population: a.Population,
		Ranker:     a.Ranker,
		Writer:     a.Writer,
		Profiles:   a.Profiles,
		Images:     a.Images,
		Journal:    a.Journal,
		Metrics:    a.Metrics,
		Clock:      scheduler.RealClock(),
		Rand:       rng,
		Log:        a.Log,
	}, scheduler.Settings{
		TargetRatio:       cfg.TargetRatio,
		RecentPostsWindow: cfg.RecentPostsWindow,
		RecentActiveLimit: cfg.RecentActiveLimit,
		AuthorPoolSize:    cfg.AuthorPoolSize,
		PostImageProb:     cfg.PostImageProb,
		CycleInterval:     cfg.CycleInterval,
	})
	return nil
}

func (a *App) openStore(ctx context.Context) error {
	cfg := a.Config
	if cfg.StoreDriver == "memory" {
		a.Store = store.NewMemoryStore()
		a.Log.Warn("using the in-memory store, nothing will persist")
		return nil
	}
	s, err := store.Open(cfg.StoreDriver, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	a.closers = append(a.closers, s)
	if err := s.Ping(ctx); err != nil {
		return fmt.Errorf("ping %s store: %w", cfg.StoreDriver, err)
	}
	if cfg.StoreInitSchema {
		if err := s.InitSchema(ctx); err != nil {
			return err
		}
	}
	a.Store = s
	return nil
}

// ReportScheduler builds the daily report job on the app's journal.
func (a *App) ReportScheduler() *scheduler.ReportScheduler {
	return scheduler.NewReportScheduler(a.Config.ReportCron, a.Journal, a.Notifier, a.Log)
}

func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i].Close(); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
