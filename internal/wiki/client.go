package wiki

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/m-mizutani/goerr/v2"

	"convoqa/internal/domain"
	"convoqa/internal/summarizer"
)

var (
	ErrEmptyQuery     = errors.New("empty query")
	ErrNotFound       = errors.New("no matching article")
	ErrDisambiguation = errors.New("query is ambiguous")
)

// Config configures the MediaWiki client.
type Config struct {
	BaseURL   string
	Language  string
	Sentences int
	Timeout   time.Duration
	UserAgent string
}

// Client fetches short article summaries from a MediaWiki API.
type Client struct {
	baseURL   string
	sentences int
	timeout   time.Duration
	userAgent string
	client    *http.Client
}

// NewClient creates a client for the configured wiki.
func NewClient(cfg Config) *Client {
	if cfg.Language == "" {
		cfg.Language = "en"
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = fmt.Sprintf("https://%s.wikipedia.org/w/api.php", cfg.Language)
	}
	if cfg.Sentences <= 0 {
		cfg.Sentences = 2
	}
	t := cfg.Timeout
	if t <= 0 {
		t = 10 * time.Second
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = "convoqa/1.0"
	}
	return &Client{
		baseURL:   cfg.BaseURL,
		sentences: cfg.Sentences,
		timeout:   t,
		userAgent: cfg.UserAgent,
		client:    &http.Client{Timeout: t},
	}
}

// Lookup resolves query to the best matching article and returns its lead
// sentences. ErrNotFound and ErrDisambiguation mark an absent summary;
// other errors are transport or decoding failures.
func (c *Client) Lookup(ctx context.Context, query string) (*domain.Summary, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, ErrEmptyQuery
	}
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	title, err := c.search(ctx, query)
	if err != nil {
		return nil, err
	}
	return c.extract(ctx, title)
}

func (c *Client) search(ctx context.Context, query string) (string, error) {
	params := url.Values{
		"action":   {"query"},
		"list":     {"search"},
		"srsearch": {query},
		"srlimit":  {"1"},
	}
	var out struct {
		Query struct {
			Search []struct {
				Title string `json:"title"`
			} `json:"search"`
		} `json:"query"`
	}
	if err := c.getJSON(ctx, params, &out); err != nil {
		return "", err
	}
	if len(out.Query.Search) == 0 {
		return "", goerr.Wrap(ErrNotFound, "search returned no results", goerr.V("query", query))
	}
	return out.Query.Search[0].Title, nil
}

func (c *Client) extract(ctx context.Context, title string) (*domain.Summary, error) {
	params := url.Values{
		"action":      {"query"},
		"prop":        {"extracts|pageprops|info"},
		"inprop":      {"url"},
		"exintro":     {"1"},
		"explaintext": {"1"},
		"exsentences": {strconv.Itoa(c.sentences)},
		"redirects":   {"1"},
		"titles":      {title},
	}
	var out struct {
		Query struct {
			Pages []struct {
				Title     string                     `json:"title"`
				Missing   bool                       `json:"missing"`
				Extract   string                     `json:"extract"`
				FullURL   string                     `json:"fullurl"`
				PageProps map[string]json.RawMessage `json:"pageprops"`
			} `json:"pages"`
		} `json:"query"`
	}
	if err := c.getJSON(ctx, params, &out); err != nil {
		return nil, err
	}
	if len(out.Query.Pages) == 0 || out.Query.Pages[0].Missing {
		return nil, goerr.Wrap(ErrNotFound, "article is missing", goerr.V("title", title))
	}
	page := out.Query.Pages[0]
	if _, ok := page.PageProps["disambiguation"]; ok {
		return nil, goerr.Wrap(ErrDisambiguation, "article is a disambiguation page", goerr.V("title", title))
	}
	text := summarizer.LeadSentences(page.Extract, c.sentences)
	if text == "" {
		return nil, goerr.Wrap(ErrNotFound, "article has no extract", goerr.V("title", title))
	}
	return &domain.Summary{Title: page.Title, Extract: text, URL: page.FullURL}, nil
}

func (c *Client) getJSON(ctx context.Context, params url.Values, out any) error {
	params.Set("format", "json")
	params.Set("formatversion", "2")
	endpoint := c.baseURL + "?" + params.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return goerr.Wrap(err, "failed to build request")
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return goerr.Wrap(err, "wiki request failed")
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusNotFound {
		return goerr.Wrap(ErrNotFound, "wiki returned 404")
	}
	if resp.StatusCode >= 300 {
		return goerr.New("wiki request failed", goerr.V("status", resp.Status))
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return goerr.Wrap(err, "failed to decode wiki response")
	}
	return nil
}

// IsAbsent reports whether err only means that no article was found, as
// opposed to a transport failure.
func IsAbsent(err error) bool {
	return errors.Is(err, ErrNotFound) || errors.Is(err, ErrDisambiguation) || errors.Is(err, ErrEmptyQuery)
}
