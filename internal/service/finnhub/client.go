// Package finnhub is a small REST client for the Finnhub sentiment endpoints.
package finnhub

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	xhttp "StockSense/pkg/http"
)

// DefaultBaseURL is the public Finnhub API root.
const DefaultBaseURL = "https://finnhub.io/api/v1"

// ErrNoSentiment is returned when Finnhub answers without a sentiment block.
var ErrNoSentiment = errors.New("finnhub: no sentiment in response")

// Client calls Finnhub with an API token.
type Client struct {
	baseURL string
	apiKey  string
	http    *xhttp.Client
}

// New creates a Finnhub client.
func New(baseURL, apiKey string, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		http:    xhttp.NewClient(xhttp.WithTimeout(timeout)),
	}
}

// NewsSentiment is the /news-sentiment payload.
type NewsSentiment struct {
	Symbol    string `json:"symbol"`
	Sentiment *struct {
		BullishPercent float64 `json:"bullishPercent"`
		BearishPercent float64 `json:"bearishPercent"`
	} `json:"sentiment"`
	CompanyNewsScore float64 `json:"companyNewsScore"`
}

// SocialSentiment is the /stock/social-sentiment payload.
type SocialSentiment struct {
	Symbol string `json:"symbol"`
	Data   []struct {
		AtTime  string  `json:"atTime"`
		Mention int     `json:"mention"`
		Score   float64 `json:"score"`
	} `json:"data"`
}

// NewsSentiment fetches aggregated news sentiment for symbol.
func (c *Client) NewsSentiment(ctx context.Context, symbol string) (*NewsSentiment, error) {
	var out NewsSentiment
	if err := c.get(ctx, "/news-sentiment", symbol, &out); err != nil {
		return nil, err
	}
	if out.Sentiment == nil {
		return nil, ErrNoSentiment
	}
	return &out, nil
}

// SocialSentiment fetches recent social media sentiment for symbol.
func (c *Client) SocialSentiment(ctx context.Context, symbol string) (*SocialSentiment, error) {
	var out SocialSentiment
	if err := c.get(ctx, "/stock/social-sentiment", symbol, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) get(ctx context.Context, path, symbol string, dest interface{}) error {
	if c.apiKey == "" {
		return fmt.Errorf("finnhub %s: api key not set", path)
	}
	err := c.http.SendAndParse(ctx, &xhttp.RequestOptions{
		Method: xhttp.MethodGet,
		URL:    c.baseURL + path,
		Headers: map[string]string{
			"X-Finnhub-Token": c.apiKey,
		},
		QueryParams: map[string][]string{"symbol": {symbol}},
	}, dest)
	if err != nil {
		return fmt.Errorf("finnhub %s: %w", path, err)
	}
	return nil
}
