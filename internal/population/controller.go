// Package population keeps the number of synthetic actors proportional to
// the number of human actors.
package population

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"time"

	"github.com/google/uuid"

	"synthpop/internal/logging"
	"synthpop/internal/models"
	"synthpop/internal/prompts"
	"synthpop/internal/store"
)

// ErrSeedGeneration wraps a failed seed batch. No actor is created in a pass
// that returns it.
var ErrSeedGeneration = errors.New("seed generation failed")

// ImagePublisher turns a prompt into a public image URL.
type ImagePublisher interface {
	Publish(ctx context.Context, prompt string) (string, error)
}

type Settings struct {
	BatchSize           int
	ProfileImageProb    float64
	BackgroundImageProb float64
	BadgeProb           float64
}

type Controller struct {
	store    store.Store
	seeds    SeedGenerator
	images   ImagePublisher
	prompts  prompts.Set
	settings Settings
	rng      *rand.Rand
	now      func() time.Time
	log      logging.Logger
}

func NewController(s store.Store, seeds SeedGenerator, images ImagePublisher, p prompts.Set, settings Settings, rng *rand.Rand, now func() time.Time, log logging.Logger) *Controller {
	if settings.BatchSize <= 0 {
		settings.BatchSize = 5
	}
	if now == nil {
		now = time.Now
	}
	return &Controller{store: s, seeds: seeds, images: images, prompts: p, settings: settings, rng: rng, now: now, log: log}
}

// Census counts human and synthetic actors.
func (c *Controller) Census(ctx context.Context) (humans, synthetic int, err error) {
	humans, err = c.store.CountActors(ctx, models.KindHuman)
	if err != nil {
		return 0, 0, fmt.Errorf("count humans: %w", err)
	}
	synthetic, err = c.store.CountActors(ctx, models.KindSynthetic)
	if err != nil {
		return 0, 0, fmt.Errorf("count synthetic: %w", err)
	}
	return humans, synthetic, nil
}

// Ratio is synthetic per human, with the human count floored at one.
func Ratio(humans, synthetic int) float64 {
	return float64(synthetic) / float64(max(humans, 1))
}

// Needed is how many synthetic actors bring the population to target.
func Needed(target float64, humans, synthetic int) int {
	n := int(math.Round(target*float64(humans))) - synthetic
	if n < 0 {
		return 0
	}
	return n
}

// MaintainRatio creates synthetic actors until synthetic/humans reaches
// target. It is a no-op when the ratio already meets target. All seeds are
// generated before any actor is written, so a failed batch leaves the
// population unchanged.
func (c *Controller) MaintainRatio(ctx context.Context, target float64) ([]models.Actor, error) {
	humans, synthetic, err := c.Census(ctx)
	if err != nil {
		return nil, err
	}
	if Ratio(humans, synthetic) >= target {
		return nil, nil
	}
	needed := Needed(target, humans, synthetic)
	if needed == 0 {
		return nil, nil
	}

	seeds, err := c.generateSeeds(ctx, needed)
	if err != nil {
		return nil, err
	}
	c.log.WithFields(logging.Fields{"humans": humans, "synthetic": synthetic, "needed": needed, "seeds": len(seeds)}).Info("growing synthetic population")

	total := humans + synthetic
	created := make([]models.Actor, 0, len(seeds))
	for _, seed := range seeds {
		a, err := c.createActor(ctx, seed, total)
		if err != nil {
			return created, err
		}
		created = append(created, a)
	}
	return created, nil
}

func (c *Controller) generateSeeds(ctx context.Context, needed int) ([]Seed, error) {
	batch := c.settings.BatchSize
	sizes := make([]int, 0, needed/batch+1)
	for i := 0; i < needed/batch; i++ {
		sizes = append(sizes, batch)
	}
	if rem := needed % batch; rem > 0 {
		sizes = append(sizes, rem)
	}
	var seeds []Seed
	for _, n := range sizes {
		got, err := c.seeds.Generate(ctx, n)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrSeedGeneration, err)
		}
		if len(got) > n {
			got = got[:n]
		}
		seeds = append(seeds, got...)
	}
	return seeds, nil
}

func (c *Controller) createActor(ctx context.Context, seed Seed, total int) (models.Actor, error) {
	withProfile := c.rng.Float64() < c.settings.ProfileImageProb
	withBackground := c.rng.Float64() < c.settings.BackgroundImageProb

	a := models.Actor{
		ID:             uuid.NewString(),
		Username:       seed.Username,
		Name:           seed.Name,
		Bio:            seed.Bio,
		Provider:       models.SyntheticProvider,
		CreatedAt:      models.FormatTimestamp(c.now()),
		FollowersCount: c.randBetween(total/4, 3*total/4),
		FollowingCount: c.randBetween(total/4, 3*total/4),
	}
	if withProfile {
		a.ProfileImage = c.image(ctx, seed, prompts.Fill(c.prompts.ProfileImage, "name", seed.Name, "bio", seed.Bio), "profile")
	}
	if withBackground {
		a.BackgroundImage = c.image(ctx, seed, prompts.Fill(c.prompts.BackgroundImage, "bio", seed.Bio), "background")
	}
	if c.rng.Float64() < c.settings.BadgeProb {
		a.Badge = models.BlueBadge
	}

	if err := c.store.InsertActor(ctx, a); err != nil {
		return models.Actor{}, fmt.Errorf("insert synthetic actor %s: %w", seed.Username, err)
	}
	c.log.WithFields(logging.Fields{"actor_id": a.ID, "username": a.Username}).Info("created synthetic actor")
	return a, nil
}

// image returns "" when generation fails; the actor is created without it.
func (c *Controller) image(ctx context.Context, seed Seed, prompt, kind string) string {
	url, err := c.images.Publish(ctx, prompt)
	if err != nil {
		c.log.WithError(err).WithFields(logging.Fields{"username": seed.Username, "image": kind}).Warn("image generation failed, continuing without it")
		return ""
	}
	return url
}

// randBetween draws uniformly from [lo, hi].
func (c *Controller) randBetween(lo, hi int) int {
	if hi <= lo {
		return lo
	}
	return lo + c.rng.Intn(hi-lo+1)
}
