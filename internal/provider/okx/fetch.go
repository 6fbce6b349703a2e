package okx

import (
	"context"
	"fmt"
	"net/url"

	"optionflow/internal/logger"
	"optionflow/internal/market"
	"optionflow/internal/provider"
)

// envelope is the v5 response wrapper: code "0" means success.
type envelope[T any] struct {
	Code provider.Text `json:"code"`
	Msg  string        `json:"msg"`
	Data []T           `json:"data"`
}

// ticker is one option from /market/tickers. stk, optType and expTime come
// from instrument-style listings; plain tickers only carry instId.
type ticker struct {
	InstID  string        `json:"instId"`
	Stk     provider.Text `json:"stk"`
	OptType provider.Text `json:"optType"`
	ExpTime provider.Text `json:"expTime"`
	Vol24h  provider.Text `json:"vol24h"`
	MarkPx  provider.Text `json:"markPx"`
}

type indexTicker struct {
	InstID string        `json:"instId"`
	IdxPx  provider.Text `json:"idxPx"`
}

func (c *Client) Exchange() market.ExchangeID { return market.OKX }

// family is the OKX option family for currency, e.g. BTC-USD.
func (c *Client) family(currency market.Currency) string {
	return string(currency) + "-" + c.quote
}

// Fetch pulls the option tickers and the index ticker concurrently. A failed
// index call is reported on the payload, not as an error.
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

	records, err := c.Tickers(ctx, currency)
	if err != nil {
		cancel()
		<-idx
		return provider.RawPayload{}, err
	}
	ir := <-idx

	log := c.log.WithFields(logger.Fields{"currency": currency, "family": c.family(currency)})
	if ir.err != nil {
		log.WithError(ir.err).Warn("index price unavailable")
	}
	log.WithFields(logger.Fields{"records": len(records)}).Debug("fetched option tickers")

	return provider.RawPayload{
		Exchange:   market.OKX,
		Currency:   currency,
		Records:    records,
		IndexPrice: ir.price,
		IndexErr:   ir.err,
		FetchedAt:  c.now().UTC(),
	}, nil
}

// Tickers lists the options of currency's family as raw records.
func (c *Client) Tickers(ctx context.Context, currency market.Currency) ([]provider.RawRecord, error) {
	endpoint := c.baseURL + c.tickersPath
	query := url.Values{}
	query.Set("instType", "OPTION")
	query.Set(c.familyParam, c.family(currency))

	var body envelope[ticker]
	if err := provider.GetJSON(ctx, c.httpClient, endpoint, query, c.header, c.timeout, &body); err != nil {
		return nil, err
	}
	if err := checkEnvelope(endpoint, body.Code, body.Msg); err != nil {
		return nil, err
	}

	out := make([]provider.RawRecord, 0, len(body.Data))
	for _, t := range body.Data {
		out = append(out, provider.RawRecord{
			InstrumentID: t.InstID,
			Strike:       t.Stk.String(),
			Side:         t.OptType.String(),
			Expiration:   t.ExpTime.String(),
			Volume:       t.Vol24h.String(),
			MarkPrice:    t.MarkPx.String(),
		})
	}
	return out, nil
}

// IndexPrice returns idxPx of the {currency}-{quote} index ticker.
func (c *Client) IndexPrice(ctx context.Context, currency market.Currency) (string, error) {
	endpoint := c.baseURL + c.indexPath
	query := url.Values{}
	query.Set("instId", c.family(currency))

	var body envelope[indexTicker]
	if err := provider.GetJSON(ctx, c.httpClient, endpoint, query, c.header, c.timeout, &body); err != nil {
		return "", err
	}
	if err := checkEnvelope(endpoint, body.Code, body.Msg); err != nil {
		return "", err
	}
	if len(body.Data) == 0 || body.Data[0].IdxPx == "" {
		return "", &provider.ParseError{URL: endpoint, Reason: "no index ticker in data"}
	}
	return body.Data[0].IdxPx.String(), nil
}

func checkEnvelope(endpoint string, code provider.Text, msg string) error {
	switch code {
	case "0":
		return nil
	case "":
		return &provider.ParseError{URL: endpoint, Reason: "missing code"}
	}
	return &provider.ParseError{URL: endpoint, Reason: fmt.Sprintf("api error code=%s msg=%q", code, msg)}
}
