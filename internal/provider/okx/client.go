package okx

import (
	"net/http"
	"time"

	"optionflow/internal/logger"
	"optionflow/internal/provider"
)

const (
	baseURL            = "https://www.okx.com"
	defaultTickersPath = "/api/v5/market/tickers"
	defaultIndexPath   = "/api/v5/market/index-tickers"
	defaultFamilyParam = "instFamily"
	defaultQuote       = "USD"
)

// Client is an adapter for the OKX v5 public market API.
type Client struct {
	// baseURL is the base URL for the API.
	baseURL     string
	tickersPath string
	indexPath   string
	// familyParam names the query parameter carrying the option family
	// (instFamily on v5, uly on older gateways).
	familyParam string
	// quote is the settlement side of the family, BTC-USD by default.
	quote string
	// httpClient is the HTTP client.
	httpClient provider.HTTPClient
	// header contains additional headers to be sent with each request.
	header  http.Header
	timeout time.Duration

	now func() time.Time
	log *logger.Entry
}

// Option is a configuration option for the OKX client.
type Option func(*Client)

// WithBaseURL sets the base URL for the API.
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		if baseURL != "" {
			c.baseURL = baseURL
		}
	}
}

// WithPaths overrides the tickers and index endpoint paths. Empty keeps the default.
func WithPaths(tickersPath, indexPath string) Option {
	return func(c *Client) {
		if tickersPath != "" {
			c.tickersPath = tickersPath
		}
		if indexPath != "" {
			c.indexPath = indexPath
		}
	}
}

// WithFamilyParam renames the option family query parameter.
func WithFamilyParam(name string) Option {
	return func(c *Client) {
		if name != "" {
			c.familyParam = name
		}
	}
}

// WithQuote sets the quote currency of the option family (USD, USDC).
func WithQuote(quote string) Option {
	return func(c *Client) {
		if quote != "" {
			c.quote = quote
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
			c.log = l.WithComponent("okx")
		}
	}
}

// New creates a new OKX client.
func New(options ...Option) *Client {
	c := &Client{
		baseURL:     baseURL,
		tickersPath: defaultTickersPath,
		indexPath:   defaultIndexPath,
		familyParam: defaultFamilyParam,
		quote:       defaultQuote,
		httpClient:  http.DefaultClient,
		header:      http.Header{},
		timeout:     provider.DefaultTimeout,
		now:         time.Now,
		log:         logger.GetLogger().WithComponent("okx"),
	}
	for _, option := range options {
		option(c)
	}
	return c
}
