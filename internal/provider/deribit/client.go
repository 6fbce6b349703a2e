package deribit

import (
	"net/http"
	"time"

	"optionflow/internal/logger"
	"optionflow/internal/provider"
)

const (
	baseURL            = "https://www.deribit.com"
	defaultSummaryPath = "/api/v2/public/get_book_summary_by_currency"
	defaultIndexPath   = "/api/v2/public/get_index_price"
)

// Client is an adapter for the Deribit public API.
type Client struct {
	// baseURL is the base URL for the API.
	baseURL string
	// summaryPath lists book summaries for every option of a currency.
	summaryPath string
	// indexPath returns the index price of a currency pair.
	indexPath string
	// httpClient is the HTTP client.
	httpClient provider.HTTPClient
	// header contains additional headers to be sent with each request.
	header http.Header
	// timeout bounds each of the two calls independently.
	timeout time.Duration

	now func() time.Time
	log *logger.Entry
}

// Option is a configuration option for the Deribit client.
type Option func(*Client)

// WithBaseURL sets the base URL for the API.
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		if baseURL != "" {
			c.baseURL = baseURL
		}
	}
}

// WithPaths overrides the listing and index endpoint paths. Empty keeps the default.
func WithPaths(summaryPath, indexPath string) Option {
	return func(c *Client) {
		if summaryPath != "" {
			c.summaryPath = summaryPath
		}
		if indexPath != "" {
			c.indexPath = indexPath
		}
	}
}

// WithHTTPClient sets the HTTP client for the API.
func WithHTTPClient(httpClient provider.HTTPClient) Option {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithHeader sets additional headers to be sent with each request.
func WithHeader(header http.Header) Option {
	return func(c *Client) {
		for key, values := range header {
			for _, value := range values {
				c.header.Add(key, value)
			}
		}
	}
}

// WithTimeout sets the per-call timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

func WithLogger(l *logger.Log) Option {
	return func(c *Client) {
		if l != nil {
			c.log = l.WithComponent("deribit")
		}
	}
}

// New creates a new Deribit client.
func New(options ...Option) *Client {
	c := &Client{
		baseURL:     baseURL,
		summaryPath: defaultSummaryPath,
		indexPath:   defaultIndexPath,
		httpClient:  http.DefaultClient,
		header:      http.Header{},
		timeout:     provider.DefaultTimeout,
		now:         time.Now,
		log:         logger.GetLogger().WithComponent("deribit"),
	}
	for _, option := range options {
		option(c)
	}
	return c
}
