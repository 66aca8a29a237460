// Package search adapts a live-search HTTP API to the providers.Adapter
// interface. It has no official Go SDK in the example pack, so it follows
// the hand-rolled net/http client shape used by sells-group-research-cli's
// pkg/google and pkg/jina clients. Classified "news" tier by default (spec
// §4.3 -- weight 1), the lowest tier that still contributes evidence.
package search

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/sells-group/pharma-pipeline/pkg/apperr"
	"github.com/sells-group/pharma-pipeline/pkg/models"
	"github.com/sells-group/pharma-pipeline/pkg/providers"
)

const defaultBaseURL = "https://api.tavily.com"

// Adapter performs a single-shot search query and returns the aggregated
// result snippets as RawText with their source URLs as CitedURLs.
type Adapter struct {
	apiKey  string
	baseURL string
	http    *http.Client
}

// Option configures the Adapter.
type Option func(*Adapter)

// WithBaseURL overrides the default API base URL.
func WithBaseURL(url string) Option {
	return func(a *Adapter) { a.baseURL = url }
}

// WithHTTPClient overrides the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(a *Adapter) { a.http = hc }
}

// New builds a search Adapter.
func New(apiKey string, opts ...Option) *Adapter {
	a := &Adapter{apiKey: apiKey, baseURL: defaultBaseURL, http: &http.Client{Timeout: 15 * time.Second}}
	for _, o := range opts {
		o(a)
	}
	return a
}

func (a *Adapter) Name() string              { return "tavily_search" }
func (a *Adapter) Kind() models.ProviderKind { return models.ProviderNews }

type searchRequest struct {
	APIKey  string `json:"api_key"`
	Query   string `json:"query"`
	MaxDocs int    `json:"max_results"`
}

type searchResult struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Content string `json:"content"`
}

type searchResponse struct {
	Results []searchResult `json:"results"`
}

func (a *Adapter) Call(ctx context.Context, q providers.Query) (providers.Response, error) {
	start := time.Now()
	body, err := json.Marshal(searchRequest{APIKey: a.apiKey, Query: q.Prompt, MaxDocs: 5})
	if err != nil {
		return providers.Response{}, apperr.Wrap(apperr.FatalInternal, err, "marshal search request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+"/search", bytes.NewReader(body))
	if err != nil {
		return providers.Response{}, apperr.Wrap(apperr.FatalInternal, err, "create search request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.http.Do(req)
	if err != nil {
		return providers.Response{}, apperr.Wrap(apperr.TransientExternal, err, "search request failed")
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return providers.Response{}, apperr.Wrap(apperr.TransientExternal, err, "read search response")
	}
	if resp.StatusCode >= 500 {
		return providers.Response{}, apperr.Newf(apperr.TransientExternal, "search provider returned %d", resp.StatusCode)
	}
	if resp.StatusCode >= 400 {
		return providers.Response{}, apperr.Newf(apperr.ClientBadRequest, "search provider returned %d", resp.StatusCode)
	}

	var parsed searchResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return providers.Response{}, apperr.Wrap(apperr.TransientExternal, err, "decode search response")
	}

	var text string
	urls := make([]string, 0, len(parsed.Results))
	for _, r := range parsed.Results {
		text += r.Title + ": " + r.Content + "\n"
		urls = append(urls, r.URL)
	}

	return providers.Response{
		Provider:  a.Name(),
		RawText:   text,
		CitedURLs: urls,
		LatencyMS: time.Since(start).Milliseconds(),
	}, nil
}
