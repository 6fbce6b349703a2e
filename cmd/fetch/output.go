package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/gocarina/gocsv"
	"github.com/olekukonko/tablewriter"
	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"optionflow/internal/aggregate"
	"optionflow/internal/board"
	"optionflow/internal/market"
)

const (
	formatTable = "table"
	formatCSV   = "csv"
	formatJSON  = "json"
)

var printer = message.NewPrinter(language.English)

func validFormat(f string) error {
	switch f {
	case formatTable, formatCSV, formatJSON:
		return nil
	}
	return fmt.Errorf("unknown format %q: want table, csv or json", f)
}

type quoteRow struct {
	InstrumentID string `csv:"instrument_id"`
	Expiration   string `csv:"expiration"`
	Strike       string `csv:"strike"`
	Side         string `csv:"side"`
	Volume24h    string `csv:"volume_24h"`
	MarkPrice    string `csv:"mark_price"`
}

type strikeRow struct {
	Strike     string `csv:"strike"`
	CallVolume string `csv:"call_volume"`
	PutVolume  string `csv:"put_volume"`

	strike decimal.Decimal `csv:"-"`
	calls  decimal.Decimal `csv:"-"`
	puts   decimal.Decimal `csv:"-"`
}

type expirationRow struct {
	Expiration string `csv:"expiration"`
}

func render(w io.Writer, format string, res board.Result) error {
	if format == formatJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	}

	switch {
	case res.View != nil:
		rows := strikeRows(*res.View)
		if format == formatCSV {
			return gocsv.Marshal(rows, w)
		}
		fmt.Fprintln(w, heading(res))
		table := tablewriter.NewWriter(w)
		table.SetHeader([]string{"Strike", "Call Vol", "Put Vol"})
		for _, r := range rows {
			table.Append([]string{r.Strike, r.CallVolume, r.PutVolume})
		}
		s := res.View.Summary
		table.SetFooter([]string{"Total", s.CallVolume.String(), s.PutVolume.String()})
		table.Render()
		if s.PutCallRatio.Valid {
			fmt.Fprintf(w, "put/call ratio: %s\n", s.PutCallRatio.Decimal.StringFixed(3))
		}
		return nil

	case res.Quotes != nil:
		rows := quoteRows(res.Quotes)
		if format == formatCSV {
			return gocsv.Marshal(rows, w)
		}
		fmt.Fprintln(w, heading(res))
		table := tablewriter.NewWriter(w)
		table.SetHeader([]string{"Instrument", "Expiration", "Strike", "Side", "Volume 24h", "Mark"})
		for _, r := range rows {
			table.Append([]string{r.InstrumentID, r.Expiration, r.Strike, r.Side, r.Volume24h, r.MarkPrice})
		}
		table.Render()
		return nil

	default:
		rows := make([]expirationRow, len(res.Expirations))
		for i, e := range res.Expirations {
			rows[i] = expirationRow{Expiration: e}
		}
		if format == formatCSV {
			return gocsv.Marshal(rows, w)
		}
		fmt.Fprintln(w, heading(res))
		table := tablewriter.NewWriter(w)
		table.SetHeader([]string{"Expiration"})
		for _, r := range rows {
			table.Append([]string{r.Expiration})
		}
		table.Render()
		return nil
	}
}

// heading is the one-line context printed above a table.
func heading(res board.Result) string {
	parts := []string{strings.ToUpper(string(res.Exchange)), string(res.Currency)}
	if res.Expiration != "" {
		parts = append(parts, res.Expiration)
	}
	parts = append(parts, "index "+formatIndex(res.IndexPrice))
	if res.Dropped > 0 {
		parts = append(parts, printer.Sprintf("%d dropped", res.Dropped))
	}
	return strings.Join(parts, "  ")
}

func formatIndex(p decimal.NullDecimal) string {
	if !p.Valid {
		return "n/a"
	}
	return printer.Sprintf("%.2f", p.Decimal.InexactFloat64())
}

// strikeRows merges calls and puts into one row per strike, ascending. Bars
// sharing a strike and side are summed.
func strikeRows(v aggregate.View) []strikeRow {
	var rows []strikeRow
	add := func(b aggregate.Bar, call bool) {
		if len(rows) == 0 || !b.Strike.Equal(rows[len(rows)-1].strike) {
			rows = append(rows, strikeRow{strike: b.Strike})
		}
		r := &rows[len(rows)-1]
		if call {
			r.calls = r.calls.Add(b.Volume)
		} else {
			r.puts = r.puts.Add(b.Volume)
		}
	}
	// Calls and puts are each sorted by strike; merging keeps that order.
	ci, pi := 0, 0
	for ci < len(v.Calls) || pi < len(v.Puts) {
		switch {
		case pi >= len(v.Puts) || (ci < len(v.Calls) && !v.Puts[pi].Strike.LessThan(v.Calls[ci].Strike)):
			add(v.Calls[ci], true)
			ci++
		default:
			add(v.Puts[pi], false)
			pi++
		}
	}
	for i := range rows {
		rows[i].Strike = rows[i].strike.String()
		rows[i].CallVolume = rows[i].calls.String()
		rows[i].PutVolume = rows[i].puts.String()
	}
	return rows
}

func quoteRows(quotes []market.OptionQuote) []quoteRow {
	rows := make([]quoteRow, len(quotes))
	for i, q := range quotes {
		mark := ""
		if q.MarkPrice.Valid {
			mark = q.MarkPrice.Decimal.String()
		}
		rows[i] = quoteRow{
			InstrumentID: q.InstrumentID,
			Expiration:   q.Expiration.Format(market.DateLayout),
			Strike:       q.Strike.String(),
			Side:         string(q.Side),
			Volume24h:    q.Volume24h.String(),
			MarkPrice:    mark,
		}
	}
	return rows
}
