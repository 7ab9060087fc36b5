// Package imagegen turns prompts into published image URLs.
package imagegen

import (
	"context"
	"errors"
	"fmt"

	"synthpop/internal/blob"
)

// Generator returns encoded image bytes for a prompt.
type Generator interface {
	Generate(ctx context.Context, prompt string) ([]byte, error)
}

// ErrDisabled is returned when no image provider is configured.
var ErrDisabled = errors.New("image generation disabled")

type Disabled struct{}

func (Disabled) Generate(context.Context, string) ([]byte, error) { return nil, ErrDisabled }

// Publisher generates an image and stores it, returning the public URL.
type Publisher struct {
	gen   Generator
	store blob.Store
}

func NewPublisher(gen Generator, store blob.Store) *Publisher {
	return &Publisher{gen: gen, store: store}
}

func (p *Publisher) Publish(ctx context.Context, prompt string) (string, error) {
	data, err := p.gen.Generate(ctx, prompt)
	if err != nil {
		return "", fmt.Errorf("generate image: %w", err)
	}
	url, err := p.store.Put(ctx, data)
	if err != nil {
		return "", fmt.Errorf("publish image: %w", err)
	}
	return url, nil
}
