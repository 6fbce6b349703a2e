// Package aggregate derives chart-ready views from a snapshot. Every function
// here is pure: snapshots are read, never modified.
package aggregate

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"optionflow/internal/market"
)

var (
	fallbackLow  = decimal.RequireFromString("0.8")
	fallbackHigh = decimal.RequireFromString("1.2")
)

// Bar is one strike's volume on one side.
type Bar struct {
	Strike       decimal.Decimal     `json:"strike"`
	Volume       decimal.Decimal     `json:"volume"`
	InstrumentID string              `json:"instrument_id"`
	MarkPrice    decimal.NullDecimal `json:"mark_price"`
}

// Point is an endpoint of the reference line.
type Point struct {
	Strike decimal.Decimal `json:"strike"`
	Price  decimal.Decimal `json:"price"`
}

// Summary totals one expiration. PutCallRatio is absent when no call volume traded.
type Summary struct {
	CallVolume   decimal.Decimal     `json:"call_volume"`
	PutVolume    decimal.Decimal     `json:"put_volume"`
	PutCallRatio decimal.NullDecimal `json:"put_call_ratio"`
	Instruments  int                 `json:"instruments"`
}

// View is the aggregate for one (snapshot, expiration).
type View struct {
	Expiration time.Time           `json:"expiration"`
	IndexPrice decimal.NullDecimal `json:"index_price"`
	// Domain is empty or [min, max].
	Domain []decimal.Decimal `json:"domain"`
	// ReferenceLine is empty or the two domain endpoints at the index price.
	ReferenceLine []Point `json:"reference_line"`
	Calls         []Bar   `json:"calls"`
	Puts          []Bar   `json:"puts"`
	Summary       Summary `json:"summary"`
}

// Empty reports whether no quote matched the expiration.
func (v View) Empty() bool { return len(v.Calls) == 0 && len(v.Puts) == 0 }

// BuildView partitions the quotes expiring on expiration into calls and puts,
// each ascending by strike with instrument id breaking ties.
func BuildView(s market.Snapshot, expiration time.Time) View {
	exp := market.Day(expiration)
	v := View{
		Expiration:    exp,
		IndexPrice:    s.IndexPrice,
		Domain:        []decimal.Decimal{},
		ReferenceLine: []Point{},
		Calls:         []Bar{},
		Puts:          []Bar{},
		Summary:       Summary{CallVolume: decimal.Zero, PutVolume: decimal.Zero},
	}

	var lo, hi decimal.Decimal
	for _, q := range Filter(s, exp) {
		b := Bar{Strike: q.Strike, Volume: q.Volume24h, InstrumentID: q.InstrumentID, MarkPrice: q.MarkPrice}
		switch q.Side {
		case market.Call:
			v.Calls = append(v.Calls, b)
			v.Summary.CallVolume = v.Summary.CallVolume.Add(q.Volume24h)
		case market.Put:
			v.Puts = append(v.Puts, b)
			v.Summary.PutVolume = v.Summary.PutVolume.Add(q.Volume24h)
		default:
			continue
		}
		if v.Summary.Instruments == 0 || q.Strike.LessThan(lo) {
			lo = q.Strike
		}
		if v.Summary.Instruments == 0 || q.Strike.GreaterThan(hi) {
			hi = q.Strike
		}
		v.Summary.Instruments++
	}

	switch {
	case v.Summary.Instruments > 0:
		v.Domain = []decimal.Decimal{lo, hi}
	case s.HasIndex():
		idx := s.IndexPrice.Decimal
		v.Domain = []decimal.Decimal{idx.Mul(fallbackLow), idx.Mul(fallbackHigh)}
	}

	if s.HasIndex() && len(v.Domain) == 2 {
		idx := s.IndexPrice.Decimal
		v.ReferenceLine = []Point{
			{Strike: v.Domain[0], Price: idx},
			{Strike: v.Domain[1], Price: idx},
		}
	}

	if v.Summary.CallVolume.IsPositive() {
		v.Summary.PutCallRatio = decimal.NewNullDecimal(v.Summary.PutVolume.Div(v.Summary.CallVolume))
	}
	return v
}

// Filter returns copies of the quotes expiring on expiration, ordered by
// strike, then side (calls first), then instrument id.
func Filter(s market.Snapshot, expiration time.Time) []market.OptionQuote {
	exp := market.Day(expiration)
	out := make([]market.OptionQuote, 0, len(s.Quotes))
	for _, q := range s.Quotes {
		if q.Expiration.Equal(exp) {
			out = append(out, q)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if c := out[i].Strike.Cmp(out[j].Strike); c != 0 {
			return c < 0
		}
		if out[i].Side != out[j].Side {
			return out[i].Side == market.Call
		}
		return out[i].InstrumentID < out[j].InstrumentID
	})
	return out
}

// Expirations lists the distinct expiration dates of s in ascending order.
func Expirations(s market.Snapshot) []time.Time {
	seen := make(map[time.Time]struct{}, 16)
	out := make([]time.Time, 0, 16)
	for _, q := range s.Quotes {
		d := market.Day(q.Expiration)
		if _, ok := seen[d]; ok {
			continue
		}
		seen[d] = struct{}{}
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Before(out[j]) })
	return out
}
