package enrich

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"synthpop/internal/httpx"
	"synthpop/internal/logging"
)

// Keywords maps an extracted keyword to its relevance score.
type Keywords map[string]float64

// KeywordExtractor never fails: a transport or decode problem yields an empty
// set so the caller's pipeline keeps going.
type KeywordExtractor interface {
	Extract(ctx context.Context, text string) Keywords
}

// AyfieExtractor calls the Ayfie keyword endpoint.
type AyfieExtractor struct {
	http     *httpx.Client
	url      string
	apiKey   string
	topN     int
	ngramMin int
	ngramMax int
	log      logging.Logger
}

type AyfieOptions struct {
	URL      string
	APIKey   string
	TopN     int
	NgramMin int
	NgramMax int
}

func NewAyfieExtractor(client *httpx.Client, o AyfieOptions, log logging.Logger) *AyfieExtractor {
	return &AyfieExtractor{
		http:     client,
		url:      o.URL,
		apiKey:   o.APIKey,
		topN:     o.TopN,
		ngramMin: o.NgramMin,
		ngramMax: o.NgramMax,
		log:      log,
	}
}

type ayfieRequest struct {
	Text       string  `json:"text"`
	TopN       int     `json:"top_n"`
	NgramRange [2]int  `json:"ngram_range"`
	Diversify  bool    `json:"diversify"`
	Diversity  float64 `json:"diversity"`
}

type ayfieResponse struct {
	Result json.RawMessage `json:"result"`
}

func (e *AyfieExtractor) Extract(ctx context.Context, text string) Keywords {
	kw, err := e.extract(ctx, text)
	if err != nil {
		e.log.WithError(err).Warn("keyword extraction failed, continuing without keywords")
		return Keywords{}
	}
	return kw
}

func (e *AyfieExtractor) extract(ctx context.Context, text string) (Keywords, error) {
	payload, err := json.Marshal(ayfieRequest{
		Text:       text,
		TopN:       e.topN,
		NgramRange: [2]int{e.ngramMin, e.ngramMax},
		Diversity:  0.7,
	})
	if err != nil {
		return nil, err
	}
	resp, err := e.http.Do(ctx, func(ctx context.Context) (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.url, bytes.NewReader(payload))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Accept", "application/json")
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("X-API-KEY", e.apiKey)
		return req, nil
	})
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		return nil, fmt.Errorf("keyword service returned %d", resp.StatusCode)
	}
	var body ayfieResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("decode keywords: %w", err)
	}
	return decodeKeywords(body.Result)
}

// decodeKeywords accepts either an object of keyword scores or a list of
// [keyword, score] pairs.
func decodeKeywords(raw json.RawMessage) (Keywords, error) {
	out := Keywords{}
	if len(raw) == 0 || string(raw) == "null" {
		return out, nil
	}
	if err := json.Unmarshal(raw, &out); err == nil {
		return out, nil
	}
	var pairs [][2]json.RawMessage
	if err := json.Unmarshal(raw, &pairs); err != nil {
		return nil, fmt.Errorf("unexpected keyword result: %s", raw)
	}
	for _, p := range pairs {
		var word string
		var score float64
		if err := json.Unmarshal(p[0], &word); err != nil {
			return nil, fmt.Errorf("keyword: %w", err)
		}
		if err := json.Unmarshal(p[1], &score); err != nil {
			return nil, fmt.Errorf("keyword score: %w", err)
		}
		out[word] = score
	}
	return out, nil
}

// NoKeywords is used when no keyword service is configured.
type NoKeywords struct{}

func (NoKeywords) Extract(context.Context, string) Keywords { return Keywords{} }
