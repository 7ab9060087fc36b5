// Package scheduler drives the simulation: the interaction loop and the daily
// report job.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"

	"synthpop/internal/journal"
	"synthpop/internal/logging"
	"synthpop/internal/models"
	"synthpop/internal/profile"
	"synthpop/internal/ranking"
	"synthpop/internal/store"
)

// Populator keeps the synthetic population at its target size.
type Populator interface {
	MaintainRatio(ctx context.Context, target float64) ([]models.Actor, error)
	Census(ctx context.Context) (humans, synthetic int, err error)
}

type Ranker interface {
	RecentActive(ctx context.Context, limit int) ([]ranking.Ranked, error)
}

// Writer produces targeted copy for a synthetic author.
type Writer interface {
	Targeted(ctx context.Context, authorID, targetID, topic string) (string, error)
	ReplyTopic(post models.Post) string
}

type Profiler interface {
	RefreshAll(ctx context.Context, ids []string) []profile.Result
}

type ImagePublisher interface {
	Publish(ctx context.Context, prompt string) (string, error)
}

// Metrics receives cycle outcomes. *metrics.Collector satisfies it.
type Metrics interface {
	CycleDone(d time.Duration, err error)
	Interaction(kind string, err error)
	ActorsCreated(n int)
	ProfileInferred(err error)
	Population(humans, synthetic int)
}

type Settings struct {
	TargetRatio       float64
	RecentPostsWindow int
	RecentActiveLimit int
	AuthorPoolSize    int
	PostImageProb     float64
	CycleInterval     time.Duration
}

type Deps struct {
	Store      store.Store
	Population Populator
	Ranker     Ranker
	Writer     Writer
	Profiles   Profiler
	Images     ImagePublisher
	Journal    journal.Recorder
	Metrics    Metrics
	Clock      Clock
	Rand       *rand.Rand
	Log        logging.Logger
}

// Scheduler runs cycles one after another on a single goroutine.
type Scheduler struct {
	Deps
	settings Settings
	cycle    int
}

func New(d Deps, s Settings) *Scheduler {
	if d.Journal == nil {
		d.Journal = journal.Nop{}
	}
	if d.Metrics == nil {
		d.Metrics = nopMetrics{}
	}
	if d.Clock == nil {
		d.Clock = RealClock()
	}
	if d.Rand == nil {
		d.Rand = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	if d.Log == nil {
		d.Log = logging.Discard()
	}
	return &Scheduler{Deps: d, settings: s}
}

// Run repeats cycles until ctx is cancelled or population maintenance fails.
// Failures in the other steps are logged and the next cycle starts on time.
func (s *Scheduler) Run(ctx context.Context) error {
	for {
		if err := s.RunCycle(ctx); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		if err := s.Clock.Sleep(ctx, s.settings.CycleInterval); err != nil {
			return nil
		}
	}
}

// RunCycle performs one pass. Only a population error is returned.
func (s *Scheduler) RunCycle(ctx context.Context) error {
	s.cycle++
	start := s.Clock.Now()
	log := s.Log.WithField("cycle", s.cycle)
	log.Info("cycle started")

	if err := s.maintain(ctx); err != nil {
		log.WithError(err).Error("population maintenance failed, stopping")
		s.Metrics.CycleDone(s.Clock.Now().Sub(start), err)
		return fmt.Errorf("cycle %d: %w", s.cycle, err)
	}

	steps := []struct {
		name string
		run  func(context.Context) error
	}{
		{"interactions", s.interact},
		{"targeted_post", s.targetedPost},
		{"profiles", s.refreshProfiles},
	}
	var failed error
	for _, step := range steps {
		if ctx.Err() != nil {
			break
		}
		if err := step.run(ctx); err != nil {
			log.WithError(err).WithField("step", step.name).Warn("cycle step failed")
			s.record(journal.Event{Kind: journal.KindStepFailed, Detail: step.name + ": " + err.Error()})
			failed = errors.Join(failed, err)
		}
	}

	s.Metrics.CycleDone(s.Clock.Now().Sub(start), failed)
	s.record(journal.Event{Kind: journal.KindCycle})
	log.Info("cycle finished")
	return nil
}

func (s *Scheduler) maintain(ctx context.Context) error {
	created, err := s.Population.MaintainRatio(ctx, s.settings.TargetRatio)
	for _, a := range created {
		s.record(journal.Event{Kind: journal.KindActorCreated, ActorID: a.ID, Detail: a.Username})
	}
	s.Metrics.ActorsCreated(len(created))
	if err != nil {
		return err
	}
	if h, b, err := s.Population.Census(ctx); err == nil {
		s.Metrics.Population(h, b)
	}
	return nil
}

// humanPosts keeps the posts in the recent window that humans wrote.
func (s *Scheduler) humanPosts(ctx context.Context) ([]models.Post, error) {
	posts, err := s.Store.RecentPosts(ctx, s.settings.RecentPostsWindow)
	if err != nil {
		return nil, fmt.Errorf("recent posts: %w", err)
	}
	authors := make([]string, 0, len(posts))
	for _, p := range posts {
		authors = append(authors, p.AuthorID)
	}
	kinds, err := s.Store.ActorKinds(ctx, authors)
	if err != nil {
		return nil, fmt.Errorf("author kinds: %w", err)
	}
	// Authors missing from the actor table count as human.
	synthetic := make(map[string]bool, len(kinds))
	for _, k := range kinds {
		synthetic[k.ID] = k.Kind == models.KindSynthetic
	}
	out := posts[:0]
	for _, p := range posts {
		if !synthetic[p.AuthorID] {
			out = append(out, p)
		}
	}
	return out, nil
}

func (s *Scheduler) interact(ctx context.Context) error {
	posts, err := s.humanPosts(ctx)
	if err != nil {
		return err
	}
	bots, err := s.Store.ListActorIDs(ctx, models.KindSynthetic, 0)
	if err != nil {
		return fmt.Errorf("list synthetic actors: %w", err)
	}
	if len(bots) == 0 {
		return nil
	}

	for _, post := range posts {
		comments := s.Rand.Intn(4) / 3
		likes := s.Rand.Intn(3) / 2
		picked := s.sample(bots, comments+likes)

		for i, botID := range picked {
			if i < comments {
				s.reply(ctx, botID, post)
				continue
			}
			s.like(ctx, botID, post)
		}
	}
	return nil
}

// sample draws n ids without replacement, or returns all of them when there
// are not enough.
func (s *Scheduler) sample(ids []string, n int) []string {
	if n <= 0 {
		return nil
	}
	if n >= len(ids) {
		return ids
	}
	perm := s.Rand.Perm(len(ids))
	out := make([]string, n)
	for i := range out {
		out[i] = ids[perm[i]]
	}
	return out
}

func (s *Scheduler) reply(ctx context.Context, botID string, post models.Post) {
	log := s.Log.WithFields(logging.Fields{"cycle": s.cycle, "actor_id": botID, "post_id": post.ID})
	body, err := s.Writer.Targeted(ctx, botID, post.AuthorID, s.Writer.ReplyTopic(post))
	if err == nil {
		err = store.AddReply(ctx, s.Store, models.Reply{
			ID:        uuid.NewString(),
			AuthorID:  botID,
			PostID:    post.ID,
			Body:      body,
			Images:    []string{},
			CreatedAt: models.FormatTimestamp(s.Clock.Now()),
		})
	}
	s.Metrics.Interaction("reply", err)
	if err != nil {
		log.WithError(err).Warn("reply failed")
		return
	}
	s.record(journal.Event{Kind: journal.KindReply, ActorID: botID, TargetID: post.AuthorID, PostID: post.ID})
	log.Debug("replied")
}

func (s *Scheduler) like(ctx context.Context, botID string, post models.Post) {
	err := store.AddLike(ctx, s.Store, models.Like{
		ID:        uuid.NewString(),
		ActorID:   botID,
		PostID:    post.ID,
		CreatedAt: models.FormatTimestamp(s.Clock.Now()),
	})
	s.Metrics.Interaction("like", err)
	if err != nil {
		s.Log.WithError(err).WithFields(logging.Fields{"cycle": s.cycle, "actor_id": botID, "post_id": post.ID}).Warn("like failed")
		return
	}
	s.record(journal.Event{Kind: journal.KindLike, ActorID: botID, TargetID: post.AuthorID, PostID: post.ID})
}

func (s *Scheduler) targetedPost(ctx context.Context) error {
	recent, err := s.Ranker.RecentActive(ctx, s.settings.RecentActiveLimit)
	if err != nil {
		return fmt.Errorf("rank recent actors: %w", err)
	}
	authors, err := s.Store.ListActorIDs(ctx, models.KindSynthetic, s.settings.AuthorPoolSize)
	if err != nil {
		return fmt.Errorf("list authors: %w", err)
	}
	if len(recent) == 0 || len(authors) == 0 {
		return nil
	}
	author := authors[s.Rand.Intn(len(authors))]
	target := recent[s.Rand.Intn(len(recent))].ActorID

	body, err := s.Writer.Targeted(ctx, author, target, "")
	if err != nil {
		s.Metrics.Interaction("post", err)
		return fmt.Errorf("write post: %w", err)
	}
	images := []string{}
	if s.Rand.Float64() < s.settings.PostImageProb {
		url, err := s.Images.Publish(ctx, body)
		if err != nil {
			s.Log.WithError(err).WithField("actor_id", author).Warn("post image failed, posting without it")
		} else {
			images = append(images, url)
		}
	}

	post := models.Post{
		ID:        uuid.NewString(),
		AuthorID:  author,
		Body:      body,
		Images:    images,
		CreatedAt: models.FormatTimestamp(s.Clock.Now()),
	}
	err = s.Store.InsertPost(ctx, post)
	s.Metrics.Interaction("post", err)
	if err != nil {
		return fmt.Errorf("insert post: %w", err)
	}
	s.record(journal.Event{Kind: journal.KindPost, ActorID: author, TargetID: target, PostID: post.ID})
	s.Log.WithFields(logging.Fields{"cycle": s.cycle, "actor_id": author, "target_id": target, "post_id": post.ID}).Info("posted targeted content")
	return nil
}

func (s *Scheduler) refreshProfiles(ctx context.Context) error {
	humans, err := s.Store.ListActorIDs(ctx, models.KindHuman, 0)
	if err != nil {
		return fmt.Errorf("list humans: %w", err)
	}
	for _, r := range s.Profiles.RefreshAll(ctx, humans) {
		s.Metrics.ProfileInferred(r.Err)
		if r.Err != nil {
			s.record(journal.Event{Kind: journal.KindProfileFailed, ActorID: r.ActorID, Detail: r.Err.Error()})
			continue
		}
		s.record(journal.Event{Kind: journal.KindProfile, ActorID: r.ActorID})
	}
	return nil
}

func (s *Scheduler) record(ev journal.Event) {
	ev.Timestamp = s.Clock.Now().UTC()
	ev.Cycle = s.cycle
	if err := s.Journal.Append(ev); err != nil {
		s.Log.WithError(err).Warn("journal append failed")
	}
}

type nopMetrics struct{}

func (nopMetrics) CycleDone(time.Duration, error) {}
func (nopMetrics) Interaction(string, error)      {}
func (nopMetrics) ActorsCreated(int)              {}
func (nopMetrics) ProfileInferred(error)          {}
func (nopMetrics) Population(int, int)            {}
