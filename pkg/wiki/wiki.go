// Package wiki looks up concepts on Wikipedia through the MediaWiki API
// and scores the candidate pages, so callers can tell a confident match
// from an ambiguous one. API responses are cached with a TTL and
// fetched with retries.
package wiki

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/pkg/errors"

	"github.com/jlevy/kash-media/pkg/logger"
)

const (
	// DefaultTTL is how long cached API responses stay fresh.
	DefaultTTL = 24 * time.Hour
	// DefaultMaxResults bounds how many search hits are fetched and scored.
	DefaultMaxResults = 5

	defaultLanguage = "en"
	backlinkLimit   = 500
	apiRetries      = 5
	apiMaxDelay     = 10 * time.Second
)

// APICache is the part of the media cache the client needs.
type APICache interface {
	CacheAPIResponse(ctx context.Context, url string, ttl time.Duration) ([]byte, bool, error)
}

// Client queries the MediaWiki API of one Wikipedia language edition.
type Client struct {
	cache      APICache
	language   string
	ttl        time.Duration
	maxResults int

	retryDelay  time.Duration
	retryJitter time.Duration
}

// Option configures a Client.
type Option func(*Client)

// WithLanguage selects the Wikipedia language edition, default "en".
func WithLanguage(lang string) Option {
	return func(c *Client) {
		c.language = lang
	}
}

// WithTTL overrides how long API responses are cached.
func WithTTL(ttl time.Duration) Option {
	return func(c *Client) {
		c.ttl = ttl
	}
}

// WithMaxResults overrides how many search hits are scored.
func WithMaxResults(n int) Option {
	return func(c *Client) {
		c.maxResults = n
	}
}

// New creates a client that routes all API calls through store.
func New(store APICache, opts ...Option) *Client {
	c := &Client{
		cache:       store,
		language:    defaultLanguage,
		ttl:         DefaultTTL,
		maxResults:  DefaultMaxResults,
		retryDelay:  time.Second,
		retryJitter: time.Second,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Search finds Wikipedia pages for a concept and scores how well they
// match. A concept with no usable results yields empty SearchResults,
// not an error.
func (c *Client) Search(ctx context.Context, concept string) (*SearchResults, error) {
	concept = strings.TrimSpace(concept)
	if concept == "" {
		return nil, errors.New("empty search concept")
	}

	titles, err := c.searchTitles(ctx, concept)
	if err != nil {
		return nil, errors.Wrapf(err, "searching Wikipedia for %q", concept)
	}
	if len(titles) == 0 {
		logger.G(ctx).WithField("concept", concept).Warn("no Wikipedia search results")
		return &SearchResults{}, nil
	}

	pages := make([]*Page, 0, len(titles))
	for _, title := range titles {
		page, err := c.fetchPage(ctx, title)
		if err != nil {
			return nil, errors.Wrapf(err, "fetching Wikipedia page %q", title)
		}
		if page == nil {
			logger.G(ctx).WithField("title", title).Debug("skipping missing Wikipedia page")
			continue
		}
		pages = append(pages, page)
	}
	return AssembleResults(ctx, concept, pages), nil
}

func (c *Client) searchTitles(ctx context.Context, concept string) ([]string, error) {
	body, err := c.apiGet(ctx, url.Values{
		"action":        {"query"},
		"format":        {"json"},
		"formatversion": {"2"},
		"list":          {"search"},
		"srsearch":      {concept},
		"srlimit":       {strconv.Itoa(c.maxResults)},
	})
	if err != nil {
		return nil, err
	}

	var parsed struct {
		Query struct {
			Search []struct {
				Title string `json:"title"`
			} `json:"search"`
		} `json:"query"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, errors.Wrap(err, "failed to parse search response")
	}

	titles := make([]string, 0, len(parsed.Query.Search))
	for _, hit := range parsed.Query.Search {
		titles = append(titles, hit.Title)
	}
	return titles, nil
}

// fetchPage loads the page details used for scoring. It returns nil for
// pages that do not exist (typically stale search index entries).
func (c *Client) fetchPage(ctx context.Context, title string) (*Page, error) {
	body, err := c.apiGet(ctx, url.Values{
		"action":        {"query"},
		"format":        {"json"},
		"formatversion": {"2"},
		"redirects":     {"1"},
		"titles":        {title},
		"prop":          {"info|pageprops|langlinks"},
		"inprop":        {"url"},
		"lllimit":       {"max"},
	})
	if err != nil {
		return nil, err
	}

	var parsed struct {
		Query struct {
			Pages []struct {
				PageID    int64             `json:"pageid"`
				Namespace int               `json:"ns"`
				Title     string            `json:"title"`
				Missing   bool              `json:"missing"`
				Length    int64             `json:"length"`
				FullURL   string            `json:"fullurl"`
				PageProps map[string]string `json:"pageprops"`
				Langlinks []struct {
					Lang string `json:"lang"`
				} `json:"langlinks"`
			} `json:"pages"`
		} `json:"query"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, errors.Wrap(err, "failed to parse page response")
	}
	if len(parsed.Query.Pages) == 0 {
		return nil, nil
	}

	info := parsed.Query.Pages[0]
	if info.Missing {
		return nil, nil
	}

	backlinks, err := c.countBacklinks(ctx, info.Title)
	if err != nil {
		return nil, err
	}

	page := &Page{
		Title:     info.Title,
		PageID:    info.PageID,
		Namespace: info.Namespace,
		Length:    info.Length,
		Langlinks: len(info.Langlinks),
		Backlinks: backlinks,
		URL:       info.FullURL,
	}
	_, page.Disambig = info.PageProps["disambiguation"]
	return page, nil
}

// countBacklinks counts incoming links, capped at backlinkLimit. The cap
// keeps one API call per page and is plenty for the log-scaled score.
func (c *Client) countBacklinks(ctx context.Context, title string) (int, error) {
	body, err := c.apiGet(ctx, url.Values{
		"action":        {"query"},
		"format":        {"json"},
		"formatversion": {"2"},
		"list":          {"backlinks"},
		"bltitle":       {title},
		"bllimit":       {strconv.Itoa(backlinkLimit)},
	})
	if err != nil {
		return 0, err
	}

	var parsed struct {
		Query struct {
			Backlinks []struct {
				Title string `json:"title"`
			} `json:"backlinks"`
		} `json:"query"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil {
		return 0, errors.Wrap(err, "failed to parse backlinks response")
	}
	return len(parsed.Query.Backlinks), nil
}

func (c *Client) apiGet(ctx context.Context, params url.Values) ([]byte, error) {
	endpoint := fmt.Sprintf("https://%s.wikipedia.org/w/api.php?%s", c.language, params.Encode())

	var body []byte
	err := retry.Do(
		func() error {
			b, cached, err := c.cache.CacheAPIResponse(ctx, endpoint, c.ttl)
			if err != nil {
				return err
			}
			if cached {
				logger.G(ctx).WithField("url", endpoint).Debug("Wikipedia API cache hit")
			}
			body = b
			return nil
		},
		retry.Attempts(apiRetries),
		retry.Delay(c.retryDelay),
		retry.MaxDelay(apiMaxDelay),
		retry.MaxJitter(c.retryJitter),
		retry.DelayType(retry.CombineDelay(retry.BackOffDelay, retry.RandomDelay)),
		retry.Context(ctx),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(n uint, err error) {
			logger.G(ctx).WithField("attempt", n+1).WithError(err).Warn("retrying Wikipedia API request")
		}),
	)
	if err != nil {
		return nil, errors.Wrap(err, "Wikipedia API request failed")
	}
	return body, nil
}
