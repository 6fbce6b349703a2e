package deribit

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"optionflow/internal/logger"
	"optionflow/internal/market"
	"optionflow/internal/provider"
)

// bookSummary is one element of get_book_summary_by_currency.
//
//	{
//	  "instrument_name": "BTC-29MAR24-70000-C",
//	  "volume": 12.3,
//	  "mark_price": 0.0415,
//	  "underlying_price": 67012.5,
//	  ...
//	}
//
// strike and option_type are not part of the documented payload but some
// gateways add them; when present they win over the instrument name.
type bookSummary struct {
	InstrumentName string        `json:"instrument_name"`
	Strike         provider.Text `json:"strike"`
	OptionType     provider.Text `json:"option_type"`
	Volume         provider.Text `json:"volume"`
	Volume24h      provider.Text `json:"volume_24h"`
	MarkPrice      provider.Text `json:"mark_price"`
}

type apiError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type summaryResponse struct {
	Result *[]bookSummary `json:"result"`
	Error  *apiError      `json:"error"`
}

type indexResponse struct {
	Result *struct {
		IndexPrice provider.Text `json:"index_price"`
	} `json:"result"`
	Error *apiError `json:"error"`
}

func (c *Client) Exchange() market.ExchangeID { return market.Deribit }

// Fetch pulls the option book summaries and the index price. The index call
// runs alongside the listing; its failure leaves IndexPrice empty instead of
// failing the fetch.
func (c *Client) Fetch(ctx context.Context, currency market.Currency) (provider.RawPayload, error) {
	type indexResult struct {
		price string
		err   error
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	idx := make(chan indexResult, 1)
	go func() {
		p, err := c.IndexPrice(ctx, currency)
		idx <- indexResult{price: p, err: err}
	}()

	records, err := c.BookSummaries(ctx, currency)
	if err != nil {
		cancel()
		<-idx
		return provider.RawPayload{}, err
	}
	ir := <-idx

	payload := provider.RawPayload{
		Exchange:   market.Deribit,
		Currency:   currency,
		Records:    records,
		IndexPrice: ir.price,
		IndexErr:   ir.err,
		FetchedAt:  c.now().UTC(),
	}
	if ir.err != nil {
		c.log.WithError(ir.err).WithFields(logger.Fields{"currency": currency}).Warn("index price unavailable")
	}
	c.log.WithFields(logger.Fields{"currency": currency, "records": len(records)}).Debug("fetched book summaries")
	return payload, nil
}

// BookSummaries lists every option of currency as raw records.
func (c *Client) BookSummaries(ctx context.Context, currency market.Currency) ([]provider.RawRecord, error) {
	endpoint := c.baseURL + c.summaryPath
	query := url.Values{}
	query.Set("currency", string(currency))
	query.Set("kind", "option")

	var body summaryResponse
	if err := provider.GetJSON(ctx, c.httpClient, endpoint, query, c.header, c.timeout, &body); err != nil {
		return nil, err
	}
	if body.Error != nil {
		return nil, &provider.ParseError{URL: endpoint, Reason: fmt.Sprintf("api error code=%d msg=%q", body.Error.Code, body.Error.Message)}
	}
	if body.Result == nil {
		return nil, &provider.ParseError{URL: endpoint, Reason: "missing result"}
	}

	out := make([]provider.RawRecord, 0, len(*body.Result))
	for _, s := range *body.Result {
		volume := s.Volume
		if volume == "" {
			volume = s.Volume24h
		}
		out = append(out, provider.RawRecord{
			InstrumentID: strings.TrimSpace(s.InstrumentName),
			Strike:       s.Strike.String(),
			Side:         s.OptionType.String(),
			Volume:       volume.String(),
			MarkPrice:    s.MarkPrice.String(),
		})
	}
	return out, nil
}

// IndexPrice returns the {currency}_usd index as exchange text.
func (c *Client) IndexPrice(ctx context.Context, currency market.Currency) (string, error) {
	endpoint := c.baseURL + c.indexPath
	query := url.Values{}
	query.Set("index_name", strings.ToLower(string(currency))+"_usd")

	var body indexResponse
	if err := provider.GetJSON(ctx, c.httpClient, endpoint, query, c.header, c.timeout, &body); err != nil {
		return "", err
	}
	if body.Error != nil {
		return "", &provider.ParseError{URL: endpoint, Reason: fmt.Sprintf("api error code=%d msg=%q", body.Error.Code, body.Error.Message)}
	}
	if body.Result == nil || body.Result.IndexPrice == "" {
		return "", &provider.ParseError{URL: endpoint, Reason: "missing index_price"}
	}
	return body.Result.IndexPrice.String(), nil
}
