// Package normalize turns raw exchange payloads into canonical snapshots.
package normalize

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"optionflow/internal/logger"
	"optionflow/internal/market"
	"optionflow/internal/metrics"
	"optionflow/internal/provider"
)

// Drop reasons, also used as the metrics label.
const (
	ReasonBadIdentifier = "bad_identifier"
	ReasonBadStrike     = "bad_strike"
	ReasonBadSide       = "bad_side"
	ReasonBadDate       = "bad_date"
)

// RecordError says why one raw record produced no quote.
type RecordError struct {
	InstrumentID string
	Reason       string
	Err          error
}

func (e *RecordError) Error() string {
	return fmt.Sprintf("%s: %s: %v", e.InstrumentID, e.Reason, e.Err)
}

func (e *RecordError) Unwrap() error { return e.Err }

// Report counts what happened to the records of one payload.
type Report struct {
	Total   int
	Kept    int
	Dropped map[string]int
}

// DroppedTotal sums Dropped over all reasons.
func (r Report) DroppedTotal() int {
	n := 0
	for _, v := range r.Dropped {
		n += v
	}
	return n
}

type variantParser func(provider.RawRecord) (market.OptionQuote, error)

// parsers is closed: adding an exchange means adding an entry here.
var parsers = map[market.ExchangeID]variantParser{
	market.Deribit: parseDeribit,
	market.OKX:     parseOKX,
}

// Normalizer maps RawPayloads onto market.Snapshot.
type Normalizer struct {
	log     *logger.Entry
	metrics *metrics.Metrics
	newID   func() string
}

type Option func(*Normalizer)

func WithLogger(l *logger.Log) Option {
	return func(n *Normalizer) {
		if l != nil {
			n.log = l.WithComponent("normalizer")
		}
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(n *Normalizer) { n.metrics = m }
}

func New(opts ...Option) *Normalizer {
	n := &Normalizer{
		log:   logger.GetLogger().WithComponent("normalizer"),
		newID: uuid.NewString,
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Normalize converts every record it can. Records that cannot yield a valid
// quote are dropped and counted in the report; they never fail the snapshot.
// The only error is an exchange with no registered parser.
func (n *Normalizer) Normalize(p provider.RawPayload) (market.Snapshot, Report, error) {
	parse, ok := parsers[p.Exchange]
	if !ok {
		return market.Snapshot{}, Report{}, fmt.Errorf("normalize: no parser for exchange %q", p.Exchange)
	}

	rep := Report{Total: len(p.Records), Dropped: map[string]int{}}
	quotes := make([]market.OptionQuote, 0, len(p.Records))
	for _, rec := range p.Records {
		q, err := parse(rec)
		if err != nil {
			reason := ReasonBadIdentifier
			var re *RecordError
			if errors.As(err, &re) {
				reason = re.Reason
			}
			rep.Dropped[reason]++
			n.log.WithError(err).WithFields(logger.Fields{
				"exchange":   p.Exchange,
				"instrument": rec.InstrumentID,
				"reason":     reason,
			}).Debug("dropping record")
			continue
		}
		quotes = append(quotes, q)
	}
	rep.Kept = len(quotes)

	for reason, count := range rep.Dropped {
		n.metrics.Dropped(string(p.Exchange), reason, count)
	}

	snap := market.Snapshot{
		ID:         n.newID(),
		Exchange:   p.Exchange,
		Currency:   p.Currency,
		Quotes:     quotes,
		IndexPrice: n.indexPrice(p),
		FetchedAt:  p.FetchedAt,
		Dropped:    rep.DroppedTotal(),
	}
	return snap, rep, nil
}

func (n *Normalizer) indexPrice(p provider.RawPayload) decimal.NullDecimal {
	if p.IndexPrice == "" {
		return decimal.NullDecimal{}
	}
	v, err := decimal.NewFromString(strings.TrimSpace(p.IndexPrice))
	if err != nil || !v.IsPositive() {
		n.log.WithFields(logger.Fields{"exchange": p.Exchange, "index_price": p.IndexPrice}).Warn("ignoring unusable index price")
		return decimal.NullDecimal{}
	}
	return decimal.NewNullDecimal(v)
}

// parseDeribit handles BTC-29MAR24-70000-C style records. strike and
// option_type fields win over identifier tokens when present.
func parseDeribit(r provider.RawRecord) (market.OptionQuote, error) {
	tok, err := splitIdentifier(r.InstrumentID)
	if err != nil {
		return market.OptionQuote{}, &RecordError{InstrumentID: r.InstrumentID, Reason: ReasonBadIdentifier, Err: err}
	}
	q, err := common(r, tok)
	if err != nil {
		return market.OptionQuote{}, err
	}
	exp, err := parseDateToken(tok.date)
	if err != nil {
		return market.OptionQuote{}, &RecordError{InstrumentID: r.InstrumentID, Reason: ReasonBadDate, Err: err}
	}
	q.Expiration = exp
	return q, nil
}

// parseOKX handles BTC-USD-240329-70000-C style records. stk, optType and
// expTime win over identifier tokens when present.
func parseOKX(r provider.RawRecord) (market.OptionQuote, error) {
	tok, err := splitIdentifier(r.InstrumentID)
	if err != nil {
		return market.OptionQuote{}, &RecordError{InstrumentID: r.InstrumentID, Reason: ReasonBadIdentifier, Err: err}
	}
	q, err := common(r, tok)
	if err != nil {
		return market.OptionQuote{}, err
	}
	// expTime wins; the identifier date covers a missing or garbled one
	var exp time.Time
	if r.Expiration != "" {
		exp, err = parseEpochMillis(r.Expiration)
	}
	if r.Expiration == "" || err != nil {
		exp, err = parseDateToken(tok.date)
	}
	if err != nil {
		return market.OptionQuote{}, &RecordError{InstrumentID: r.InstrumentID, Reason: ReasonBadDate, Err: err}
	}
	q.Expiration = exp
	return q, nil
}

// common fills the fields both exchanges map the same way.
func common(r provider.RawRecord, tok tokens) (market.OptionQuote, error) {
	strikeText := r.Strike
	if strikeText == "" {
		strikeText = tok.strike
	}
	strike, err := parseStrike(strikeText)
	if err != nil {
		return market.OptionQuote{}, &RecordError{InstrumentID: r.InstrumentID, Reason: ReasonBadStrike, Err: err}
	}

	sideText := r.Side
	if sideText == "" {
		sideText = tok.side
	}
	side, err := market.ParseSide(sideText)
	if err != nil {
		return market.OptionQuote{}, &RecordError{InstrumentID: r.InstrumentID, Reason: ReasonBadSide, Err: err}
	}

	return market.OptionQuote{
		InstrumentID: r.InstrumentID,
		Strike:       strike,
		Side:         side,
		Volume24h:    parseVolume(r.Volume),
		MarkPrice:    parseOptional(r.MarkPrice),
	}, nil
}

// parseVolume never fails: missing, unparseable and negative all read as zero.
func parseVolume(s string) decimal.Decimal {
	v, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil || v.IsNegative() {
		return decimal.Zero
	}
	return v
}

func parseOptional(s string) decimal.NullDecimal {
	v, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return decimal.NullDecimal{}
	}
	return decimal.NewNullDecimal(v)
}
