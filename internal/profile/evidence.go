package profile

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"synthpop/internal/enrich"
	"synthpop/internal/models"
)

// Item is one piece of authored or liked content with its enrichment.
type Item struct {
	Kind     string // "Tweet", "Reply" or "Liked Tweet"
	Text     string
	Context  string // replied-to post body, replies only
	Keywords enrich.Keywords
	Images   []enrich.ImageResult
}

// Evidence is everything known about an actor, in priority order: previous
// profile first, then posts, replies, likes and finally the bio.
type Evidence struct {
	Previous     models.Profile
	HasPrevious  bool
	Posts        []Item
	Replies      []Item
	Likes        []Item
	Bio          string
	BioKeywords  enrich.Keywords
	ProfileImage enrich.ImageResult
}

// Skipped lists every image that could not be described.
func (e Evidence) Skipped() []enrich.ImageResult {
	var out []enrich.ImageResult
	for _, group := range [][]Item{e.Posts, e.Replies, e.Likes} {
		for _, it := range group {
			for _, img := range it.Images {
				if img.Skipped {
					out = append(out, img)
				}
			}
		}
	}
	if e.ProfileImage.Skipped {
		out = append(out, e.ProfileImage)
	}
	return out
}

// Document renders the evidence as the text handed to the model.
func (e Evidence) Document() string {
	var b strings.Builder
	prev := "{}"
	if e.HasPrevious && !e.Previous.IsEmpty() {
		if raw, err := json.Marshal(e.Previous); err == nil {
			prev = string(raw)
		}
	}
	fmt.Fprintf(&b, "Previous user profile data: \n%s\n\n\n", prev)

	for _, group := range [][]Item{e.Posts, e.Replies, e.Likes} {
		for _, it := range group {
			fmt.Fprintf(&b, "%s: %s \n", it.Kind, it.Text)
			if it.Context != "" {
				fmt.Fprintf(&b, "In reply to: %s \n", it.Context)
			}
			fmt.Fprintf(&b, "Keywords: %s \n", formatKeywords(it.Keywords))
			fmt.Fprintf(&b, "Images: %s \n\n", formatImages(enrich.Descriptions(it.Images)))
		}
	}

	fmt.Fprintf(&b, "User Bio: %s \n", e.Bio)
	fmt.Fprintf(&b, "User Bio Keywords: %s \n", formatKeywords(e.BioKeywords))
	desc := e.ProfileImage.Description
	if e.ProfileImage.Skipped {
		desc = "none (" + e.ProfileImage.Reason + ")"
	}
	fmt.Fprintf(&b, "Profile Image Description: %s \n", desc)
	return b.String()
}

// formatKeywords lists keywords by descending score, ties alphabetical.
func formatKeywords(kw enrich.Keywords) string {
	words := make([]string, 0, len(kw))
	for w := range kw {
		words = append(words, w)
	}
	sort.Slice(words, func(i, j int) bool {
		if kw[words[i]] != kw[words[j]] {
			return kw[words[i]] > kw[words[j]]
		}
		return words[i] < words[j]
	})
	return "[" + strings.Join(words, ", ") + "]"
}

func formatImages(descs []string) string {
	if len(descs) == 0 {
		return "[]"
	}
	quoted := make([]string, len(descs))
	for i, d := range descs {
		quoted[i] = fmt.Sprintf("%q", d)
	}
	return "[" + strings.Join(quoted, ", ") + "]"
}
