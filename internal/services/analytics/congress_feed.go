package analytics

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"StockSense/internal/domain/models"
	domsvc "StockSense/internal/domain/service"
	pkgcache "StockSense/pkg/cache"
	applogger "StockSense/pkg/logger"

	"golang.org/x/sync/errgroup"
)

// ErrMalformedFeed is returned when the feed body does not carry data.data as an array.
var ErrMalformedFeed = errors.New("malformed congress feed")

// CongressConfig configures AInvestCongressFeed.
type CongressConfig struct {
	BaseURL  string
	Token    string
	Timeout  time.Duration
	CacheTTL time.Duration
}

// PhotoResolver looks up a portrait URL for a member of congress.
type PhotoResolver interface {
	PhotoURL(ctx context.Context, name string) (string, error)
}

// AInvestCongressFeed reads congressional trades from the AInvest ownership API.
type AInvestCongressFeed struct {
	base   *HTTPServiceBase
	cache  pkgcache.Service
	ttl    time.Duration
	photos PhotoResolver
	logger *applogger.Logger
}

// NewAInvestCongressFeed creates the feed client. cache and photos may be nil.
func NewAInvestCongressFeed(cfg CongressConfig, cache pkgcache.Service, photos PhotoResolver) *AInvestCongressFeed {
	return &AInvestCongressFeed{
		base:   NewHTTPServiceBase(cfg.BaseURL, cfg.Timeout, WithBearerToken(cfg.Token)),
		cache:  cache,
		ttl:    cfg.CacheTTL,
		photos: photos,
	}
}

// SetLogger injects logger.
func (f *AInvestCongressFeed) SetLogger(l *applogger.Logger) { f.logger = l }

type congressEnvelope struct {
	Data *struct {
		Data *[]json.RawMessage `json:"data"`
	} `json:"data"`
}

type congressRow struct {
	ID           flexString `json:"id"`
	Name         flexString `json:"name"`
	Party        flexString `json:"party"`
	State        flexString `json:"state"`
	TradeType    flexString `json:"trade_type"`
	Size         flexString `json:"size"`
	TradeDate    flexString `json:"trade_date"`
	FilingDate   flexString `json:"filing_date"`
	ReportingGap flexString `json:"reporting_gap"`
}

// Trades returns one page of trades for ticker. Rows that fail to decode are skipped.
func (f *AInvestCongressFeed) Trades(ctx context.Context, ticker string, page, size int) ([]models.CongressTrade, error) {
	key := pkgcache.Key("congress", ticker, page, size)
	if f.cache != nil {
		var cached []models.CongressTrade
		if err := f.cache.Get(ctx, key, &cached); err == nil {
			return cached, nil
		}
	}

	query := url.Values{
		"ticker": {ticker},
		"page":   {strconv.Itoa(page)},
		"size":   {strconv.Itoa(size)},
	}
	var env congressEnvelope
	if err := f.base.GetJSON(ctx, "/open/ownership/congress", query, &env); err != nil {
		return nil, fmt.Errorf("congress feed: %w", err)
	}
	if env.Data == nil || env.Data.Data == nil {
		return nil, fmt.Errorf("congress feed: %w", ErrMalformedFeed)
	}

	trades := make([]models.CongressTrade, 0, len(*env.Data.Data))
	for i, raw := range *env.Data.Data {
		var row congressRow
		if err := json.Unmarshal(raw, &row); err != nil {
			f.debug("congress row skipped", applogger.String("ticker", ticker), applogger.Int("index", i))
			continue
		}
		trades = append(trades, row.trade())
	}

	f.attachPhotos(ctx, trades)

	if f.cache != nil {
		if err := f.cache.Set(ctx, key, trades, f.ttl); err != nil {
			f.debug("congress cache write failed", applogger.Error(err))
		}
	}
	return trades, nil
}

func (f *AInvestCongressFeed) attachPhotos(ctx context.Context, trades []models.CongressTrade) {
	if f.photos == nil || len(trades) == 0 {
		return
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for i := range trades {
		i := i
		if trades[i].Name == "" {
			continue
		}
		g.Go(func() error {
			photo, err := f.photos.PhotoURL(gctx, trades[i].Name)
			if err != nil {
				f.debug("photo lookup failed", applogger.String("name", trades[i].Name), applogger.Error(err))
				return nil
			}
			trades[i].PhotoURL = photo
			return nil
		})
	}
	_ = g.Wait()
}

func (f *AInvestCongressFeed) debug(msg string, fields ...applogger.Field) {
	if f.logger != nil {
		f.logger.Debug(msg, fields...)
	}
}

func (r congressRow) trade() models.CongressTrade {
	return models.CongressTrade{
		ID:           string(r.ID),
		Name:         string(r.Name),
		Party:        string(r.Party),
		State:        string(r.State),
		TradeType:    string(r.TradeType),
		Size:         string(r.Size),
		TradeDate:    string(r.TradeDate),
		FilingDate:   string(r.FilingDate),
		ReportingGap: string(r.ReportingGap),
	}
}

// flexString accepts a JSON string, number or null.
type flexString string

func (s *flexString) UnmarshalJSON(b []byte) error {
	raw := strings.TrimSpace(string(b))
	switch {
	case raw == "null":
		*s = ""
	case strings.HasPrefix(raw, `"`):
		var v string
		if err := json.Unmarshal(b, &v); err != nil {
			return err
		}
		*s = flexString(v)
	default:
		var n json.Number
		if err := json.Unmarshal(b, &n); err != nil {
			return fmt.Errorf("expected string or number, got %s", raw)
		}
		*s = flexString(n.String())
	}
	return nil
}

var _ domsvc.CongressFeed = (*AInvestCongressFeed)(nil)
