package analytics

import (
	"context"
	"fmt"
	"net/url"
	"time"

	pkgcache "StockSense/pkg/cache"
)

// WikipediaPhotoResolver finds the lead image of a person's Wikipedia article.
type WikipediaPhotoResolver struct {
	base  *HTTPServiceBase
	cache pkgcache.Service
	ttl   time.Duration
}

// NewWikipediaPhotoResolver creates the resolver. Wikipedia rejects requests without a User-Agent.
func NewWikipediaPhotoResolver(baseURL, userAgent string, timeout time.Duration, cache pkgcache.Service, ttl time.Duration) *WikipediaPhotoResolver {
	if baseURL == "" {
		baseURL = "https://en.wikipedia.org"
	}
	return &WikipediaPhotoResolver{
		base:  NewHTTPServiceBase(baseURL, timeout, WithHeader("User-Agent", userAgent)),
		cache: cache,
		ttl:   ttl,
	}
}

type wikiResponse struct {
	Query struct {
		Pages map[string]struct {
			Original *struct {
				Source string `json:"source"`
			} `json:"original"`
		} `json:"pages"`
	} `json:"query"`
}

// PhotoURL returns "" without error when the article has no image.
func (r *WikipediaPhotoResolver) PhotoURL(ctx context.Context, name string) (string, error) {
	key := pkgcache.Key("photo", pkgcache.HashKey(name))
	if r.cache != nil {
		var cached string
		if err := r.cache.Get(ctx, key, &cached); err == nil {
			return cached, nil
		}
	}

	query := url.Values{
		"action": {"query"},
		"format": {"json"},
		"titles": {name},
		"prop":   {"pageimages"},
		"piprop": {"original"},
	}
	var resp wikiResponse
	if err := r.base.GetJSON(ctx, "/w/api.php", query, &resp); err != nil {
		return "", fmt.Errorf("wikipedia photo: %w", err)
	}

	var photo string
	for _, page := range resp.Query.Pages {
		if page.Original != nil && page.Original.Source != "" {
			photo = page.Original.Source
			break
		}
	}

	if r.cache != nil {
		_ = r.cache.Set(ctx, key, photo, r.ttl)
	}
	return photo, nil
}

var _ PhotoResolver = (*WikipediaPhotoResolver)(nil)
