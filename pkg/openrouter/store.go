// Package openrouter checks model ids against the OpenRouter model listing.
package openrouter

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"golang.org/x/sync/singleflight"

	"github.com/docker/model-switcher/pkg/httpclient"
)

const (
	ModelsAPIURL    = "https://openrouter.ai/api/v1/models"
	DefaultCacheTTL = time.Hour

	// Provider is the model id prefix of models served through OpenRouter.
	Provider = "openrouter"

	cacheKey = "models"
)

// ErrNotListed is returned by Check when OpenRouter does not list the model.
var ErrNotListed = errors.New("model not listed on OpenRouter")

// Model is an entry of the listing. Only the fields we use are decoded.
type Model struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	ContextLength int    `json:"context_length"`
}

type listResponse struct {
	Data []Model `json:"data"`
}

// Store fetches the listing and keeps it in memory for the cache TTL.
// Concurrent fetches are collapsed into one request.
type Store struct {
	url    string
	apiKey string
	client *http.Client
	cache  *gocache.Cache
	group  singleflight.Group
}

type Opt func(*Store)

func WithURL(url string) Opt {
	return func(s *Store) {
		if url != "" {
			s.url = url
		}
	}
}

func WithAPIKey(apiKey string) Opt {
	return func(s *Store) {
		s.apiKey = apiKey
	}
}

func WithCacheTTL(ttl time.Duration) Opt {
	return func(s *Store) {
		if ttl > 0 {
			s.cache = gocache.New(ttl, 2*ttl)
		}
	}
}

func WithHTTPClient(client *http.Client) Opt {
	return func(s *Store) {
		s.client = client
	}
}

func NewStore(opts ...Opt) *Store {
	s := &Store{
		url:    ModelsAPIURL,
		client: httpclient.NewHttpClient(20 * time.Second),
		cache:  gocache.New(DefaultCacheTTL, 2*DefaultCacheTTL),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Models returns the listing keyed by OpenRouter model id.
func (s *Store) Models(ctx context.Context) (map[string]Model, error) {
	if cached, ok := s.cache.Get(cacheKey); ok {
		return cached.(map[string]Model), nil
	}

	v, err, _ := s.group.Do(cacheKey, func() (any, error) {
		models, err := s.fetch(ctx)
		if err != nil {
			return nil, err
		}
		s.cache.SetDefault(cacheKey, models)
		return models, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(map[string]Model), nil
}

// Check returns nil when id is listed, ErrNotListed when it is not, and any
// other error when the listing could not be fetched. Ids of other providers
// are not OpenRouter's to judge and always pass.
func (s *Store) Check(ctx context.Context, id string) error {
	rest, ok := strings.CutPrefix(id, Provider+"/")
	if !ok {
		return nil
	}

	models, err := s.Models(ctx)
	if err != nil {
		return err
	}

	if _, found := models[rest]; !found {
		return fmt.Errorf("%w: %s", ErrNotListed, rest)
	}
	return nil
}

// SetModelsForTesting primes the cache so tests do not hit the network.
func (s *Store) SetModelsForTesting(models ...Model) {
	byID := make(map[string]Model, len(models))
	for _, m := range models {
		byID[m.ID] = m
	}
	s.cache.SetDefault(cacheKey, byID)
}

func (s *Store) fetch(ctx context.Context) (map[string]Model, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if s.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+s.apiKey)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch OpenRouter models: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("OpenRouter models API returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	var list listResponse
	if err := json.Unmarshal(body, &list); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %w", err)
	}

	models := make(map[string]Model, len(list.Data))
	for _, m := range list.Data {
		if m.ID != "" {
			models[m.ID] = m
		}
	}

	slog.Debug("Fetched OpenRouter model listing", "count", len(models))
	return models, nil
}
