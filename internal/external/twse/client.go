package twse

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/wonny/movers/internal/movers"
	"github.com/wonny/movers/pkg/config"
	"github.com/wonny/movers/pkg/httputil"
	"github.com/wonny/movers/pkg/logger"
)

// Response formats served by MI_INDEX
const (
	FormatJSON = "json"
	FormatHTML = "html"
)

// Source identifies this feed in errors and logs
const Source = "twse/MI_INDEX"

// maxBodySize bounds a single MI_INDEX response
const maxBodySize = 32 << 20

// Client fetches the TWSE daily closing quotes (MI_INDEX)
// ⭐ SSOT: TWSE 시세 호출은 이 클라이언트에서만
type Client struct {
	httpClient *httputil.Client
	logger     *logger.Logger
	baseURL    string
	format     string
	marketType string
	date       time.Time
}

// NewClient creates a new TWSE client
func NewClient(httpClient *httputil.Client, cfg config.TWSEConfig, log *logger.Logger) *Client {
	format := strings.ToLower(cfg.Format)
	if format == "" {
		format = FormatJSON
	}
	marketType := cfg.Type
	if marketType == "" {
		marketType = "ALLBUTOTC"
	}
	return &Client{
		httpClient: httpClient,
		logger:     log.Component("twse"),
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		format:     format,
		marketType: marketType,
	}
}

// WithDate pins the trading date. The zero time requests the latest session.
func (c *Client) WithDate(date time.Time) *Client {
	c.date = date
	return c
}

// WithFormat switches between the JSON and HTML renditions
func (c *Client) WithFormat(format string) *Client {
	c.format = strings.ToLower(format)
	return c
}

// URL returns the MI_INDEX request URL
func (c *Client) URL() string {
	q := url.Values{}
	q.Set("response", c.format)
	q.Set("type", c.marketType)
	if !c.date.IsZero() {
		q.Set("date", c.date.Format("20060102"))
	}
	return fmt.Sprintf("%s/exchangeReport/MI_INDEX?%s", c.baseURL, q.Encode())
}

// Fetch downloads and decodes one MI_INDEX response.
// Transport failures are returned as *movers.FetchError; decode failures keep
// the typed errors of the parsers.
func (c *Client) Fetch(ctx context.Context) (*movers.RawFeed, error) {
	reqURL := c.URL()

	resp, err := c.httpClient.Get(ctx, reqURL)
	if err != nil {
		return nil, &movers.FetchError{Source: Source, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, &movers.FetchError{
			Source: Source,
			Err:    fmt.Errorf("unexpected status code %d: %s", resp.StatusCode, strings.TrimSpace(string(body))),
		}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, &movers.FetchError{Source: Source, Err: fmt.Errorf("read response body: %w", err)}
	}

	var feed *movers.RawFeed
	switch c.format {
	case FormatHTML:
		feed, err = ParseHTML(body)
	default:
		feed, err = ParseJSON(body)
	}
	if err != nil {
		return nil, err
	}

	c.logger.WithFields(map[string]interface{}{
		"url":    reqURL,
		"format": c.format,
		"fields": len(feed.Fields),
		"rows":   len(feed.Rows),
	}).Debug("Fetched MI_INDEX")

	return feed, nil
}
