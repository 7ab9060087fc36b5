package enrich

import (
	"context"
	"fmt"

	"synthpop/internal/contentcache"
	"synthpop/internal/llm"
	"synthpop/internal/logging"
)

// Skip reasons reported on ImageResult.
const (
	ReasonFetchFailed    = "fetch_failed"
	ReasonDescribeFailed = "describe_failed"
	ReasonEmptyReference = "empty_reference"
)

// ImageResult is the outcome of describing one image reference: either a
// description or a skip with its reason.
type ImageResult struct {
	Ref         string
	Description string
	Skipped     bool
	Reason      string
	Err         error
}

func skipped(ref, reason string, err error) ImageResult {
	return ImageResult{Ref: ref, Skipped: true, Reason: reason, Err: err}
}

// Describer turns image references into descriptions, consulting the content
// cache keyed by the raw downloaded bytes.
type Describer struct {
	fetcher ImageFetcher
	vision  llm.VisionClient
	cache   *contentcache.Cache
	maxSide int
	log     logging.Logger
}

func NewDescriber(fetcher ImageFetcher, vision llm.VisionClient, cache *contentcache.Cache, maxSide int, log logging.Logger) *Describer {
	return &Describer{fetcher: fetcher, vision: vision, cache: cache, maxSide: maxSide, log: log}
}

// Describe never returns an error; failures come back as skipped results.
func (d *Describer) Describe(ctx context.Context, ref string) ImageResult {
	if ref == "" {
		return skipped(ref, ReasonEmptyReference, nil)
	}
	data, err := d.fetcher.Fetch(ctx, ref)
	if err != nil {
		d.log.WithError(err).WithField("image", ref).Warn("image fetch failed, skipping")
		return skipped(ref, ReasonFetchFailed, err)
	}
	desc, err := d.cache.GetOrCompute(ctx, contentcache.Key(data), func(ctx context.Context) (string, error) {
		payload, mime, err := Downscale(data, d.maxSide)
		if err != nil {
			return "", err
		}
		return d.vision.DescribeImage(ctx, payload, mime)
	})
	if err != nil {
		d.log.WithError(err).WithField("image", ref).Warn("image description failed, skipping")
		return skipped(ref, ReasonDescribeFailed, fmt.Errorf("describe %s: %w", ref, err))
	}
	return ImageResult{Ref: ref, Description: desc}
}

// DescribeAll describes refs in order, one result per reference.
func (d *Describer) DescribeAll(ctx context.Context, refs []string) []ImageResult {
	out := make([]ImageResult, 0, len(refs))
	for _, ref := range refs {
		out = append(out, d.Describe(ctx, ref))
	}
	return out
}

// Descriptions keeps only the successful descriptions.
func Descriptions(results []ImageResult) []string {
	out := make([]string, 0, len(results))
	for _, r := range results {
		if !r.Skipped {
			out = append(out, r.Description)
		}
	}
	return out
}
