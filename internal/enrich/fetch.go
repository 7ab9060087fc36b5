package enrich

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"synthpop/internal/httpx"
)

// maxImageBytes bounds a single downloaded image.
const maxImageBytes = 20 << 20

type ImageFetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

type HTTPFetcher struct {
	http *httpx.Client
}

func NewHTTPFetcher(client *httpx.Client) *HTTPFetcher {
	return &HTTPFetcher{http: client}
}

func (f *HTTPFetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	resp, err := f.http.Do(ctx, func(ctx context.Context) (*http.Request, error) {
		return http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	})
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch %s: status %d", url, resp.StatusCode)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxImageBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", url, err)
	}
	if len(data) > maxImageBytes {
		return nil, fmt.Errorf("image %s exceeds %d bytes", url, maxImageBytes)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("image %s is empty", url)
	}
	return data, nil
}
