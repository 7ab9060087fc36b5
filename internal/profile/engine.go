// Package profile infers demographic profiles of actors from their recent
// activity.
package profile

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"synthpop/internal/enrich"
	"synthpop/internal/llm"
	"synthpop/internal/logging"
	"synthpop/internal/models"
	"synthpop/internal/prompts"
	"synthpop/internal/store"
)

// ImageDescriber is satisfied by *enrich.Describer.
type ImageDescriber interface {
	Describe(ctx context.Context, ref string) enrich.ImageResult
	DescribeAll(ctx context.Context, refs []string) []enrich.ImageResult
}

// Windows bounds how much history is read per actor.
type Windows struct {
	Posts   int
	Replies int
	Likes   int
}

// inferred is the schema requested from the model. Every field is required
// by the schema; unknown scalars come back empty.
type inferred struct {
	AgeGroup           string   `json:"ageGroup" description:"e.g., 18-25, 25-34, 43, etc."`
	Gender             string   `json:"gender" description:"e.g., male, female, etc."`
	Race               string   `json:"race" description:"e.g., Caucasian, Asian, African American"`
	Location           string   `json:"location" description:"e.g., City, Country, etc."`
	IncomeRange        string   `json:"incomeRange" description:"e.g., $30,000-$50,000, etc."`
	RelationshipStatus string   `json:"relationshipStatus" description:"single, married, etc."`
	Education          string   `json:"education" description:"e.g., High school, masters, etc."`
	Occupation         string   `json:"occupation" description:"McDonald's worker, VP of customer relations at McKinsey, etc."`
	Interests          []string `json:"interests" description:"e.g., ['technology', 'gaming', 'sports']"`
	Facts              []string `json:"facts" description:"Any other interesting or notable facts"`
}

func (in inferred) toProfile(actorID string) models.Profile {
	p := models.Profile{
		ActorID:            actorID,
		AgeGroup:           in.AgeGroup,
		Gender:             in.Gender,
		Race:               in.Race,
		Location:           in.Location,
		IncomeRange:        in.IncomeRange,
		RelationshipStatus: in.RelationshipStatus,
		Education:          in.Education,
		Occupation:         in.Occupation,
		Interests:          in.Interests,
		Facts:              in.Facts,
	}
	if p.Interests == nil {
		p.Interests = []string{}
	}
	if p.Facts == nil {
		p.Facts = []string{}
	}
	return p
}

type Engine struct {
	store    store.Store
	keywords enrich.KeywordExtractor
	images   ImageDescriber
	model    llm.StructuredClient
	prompts  prompts.Set
	windows  Windows
	log      logging.Logger
}

func NewEngine(s store.Store, kw enrich.KeywordExtractor, images ImageDescriber, model llm.StructuredClient, p prompts.Set, w Windows, log logging.Logger) *Engine {
	return &Engine{store: s, keywords: kw, images: images, model: model, prompts: p, windows: w, log: log}
}

// Gather reads and enriches the actor's recent activity. Keyword and image
// failures degrade to empty values; store failures are returned.
func (e *Engine) Gather(ctx context.Context, actorID string) (Evidence, error) {
	var ev Evidence

	prev, err := e.store.GetProfile(ctx, actorID)
	switch {
	case err == nil:
		ev.Previous, ev.HasPrevious = prev, true
	case errors.Is(err, store.ErrNotFound):
	default:
		return ev, fmt.Errorf("load previous profile: %w", err)
	}

	posts, err := e.store.PostsByActor(ctx, actorID, e.windows.Posts)
	if err != nil {
		return ev, fmt.Errorf("load posts: %w", err)
	}
	replies, err := e.store.RepliesByActor(ctx, actorID, e.windows.Replies)
	if err != nil {
		return ev, fmt.Errorf("load replies: %w", err)
	}
	likes, err := e.store.LikesByActor(ctx, actorID, e.windows.Likes)
	if err != nil {
		return ev, fmt.Errorf("load likes: %w", err)
	}
	actor, err := e.store.GetActor(ctx, actorID)
	if err != nil {
		return ev, fmt.Errorf("load actor: %w", err)
	}

	for _, p := range posts {
		ev.Posts = append(ev.Posts, e.item(ctx, "Tweet", p.Body, "", p.ImageRefs()))
	}
	for _, r := range replies {
		var parentBody string
		var parentImages []string
		if r.Parent != nil {
			parentBody, parentImages = r.Parent.Body, r.Parent.ImageRefs()
		}
		ev.Replies = append(ev.Replies, e.item(ctx, "Reply", r.Body, parentBody, parentImages))
	}
	for _, l := range likes {
		if l.Post == nil {
			continue
		}
		ev.Likes = append(ev.Likes, e.item(ctx, "Liked Tweet", l.Post.Body, "", l.Post.ImageRefs()))
	}

	ev.Bio = actor.Bio
	ev.BioKeywords = e.keywords.Extract(ctx, actor.Bio)
	ev.ProfileImage = e.images.Describe(ctx, actor.ProfileImage)
	return ev, nil
}

func (e *Engine) item(ctx context.Context, kind, text, parentBody string, refs []string) Item {
	return Item{
		Kind:     kind,
		Text:     text,
		Context:  parentBody,
		Keywords: e.keywords.Extract(ctx, text),
		Images:   e.images.DescribeAll(ctx, refs),
	}
}

// Infer gathers evidence, asks the model for a profile and stores it,
// inserting on first inference and replacing every field afterwards.
func (e *Engine) Infer(ctx context.Context, actorID string) (models.Profile, error) {
	ev, err := e.Gather(ctx, actorID)
	if err != nil {
		return models.Profile{}, err
	}
	for _, s := range ev.Skipped() {
		e.log.WithFields(logging.Fields{"actor_id": actorID, "image": s.Ref, "reason": s.Reason}).Debug("image skipped")
	}

	var out inferred
	msgs := []llm.Message{
		{Role: llm.RoleSystem, Content: e.prompts.ProfileSystem},
		{Role: llm.RoleUser, Content: prompts.Fill(e.prompts.ProfileUser, "evidence", ev.Document())},
	}
	if err := e.model.GenerateStructured(ctx, msgs, "user_profile", &out); err != nil {
		return models.Profile{}, fmt.Errorf("infer profile for %s: %w", actorID, err)
	}

	p := out.toProfile(actorID)
	if ev.HasPrevious {
		p.ID = ev.Previous.ID
		if err := e.store.UpdateProfile(ctx, p); err != nil {
			return models.Profile{}, fmt.Errorf("update profile: %w", err)
		}
		return p, nil
	}
	p.ID = uuid.NewString()
	if err := e.store.InsertProfile(ctx, p); err != nil {
		return models.Profile{}, fmt.Errorf("insert profile: %w", err)
	}
	return p, nil
}

// Result reports one actor's refresh outcome.
type Result struct {
	ActorID string
	Profile models.Profile
	Err     error
}

// RefreshAll infers profiles for ids in order. A failure is recorded for that
// actor and the pass moves on. Once ctx is done the pass stops, and actors
// not yet attempted get no result.
func (e *Engine) RefreshAll(ctx context.Context, ids []string) []Result {
	out := make([]Result, 0, len(ids))
	for _, id := range ids {
		if ctx.Err() != nil {
			break
		}
		p, err := e.Infer(ctx, id)
		if err != nil {
			e.log.WithError(err).WithField("actor_id", id).Warn("profile refresh failed")
		}
		out = append(out, Result{ActorID: id, Profile: p, Err: err})
	}
	return out
}
