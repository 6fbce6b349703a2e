package main

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"optionflow/internal/aggregate"
	"optionflow/internal/board"
	"optionflow/internal/market"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func viewResult() board.Result {
	return board.Result{
		Exchange:   market.Deribit,
		Currency:   market.BTC,
		Expiration: "2024-03-29",
		IndexPrice: decimal.NewNullDecimal(d("67012.5")),
		Dropped:    2,
		View: &aggregate.View{
			Calls: []aggregate.Bar{
				{Strike: d("60000"), Volume: d("1")},
				{Strike: d("70000"), Volume: d("12.5")},
			},
			Puts: []aggregate.Bar{
				{Strike: d("55000"), Volume: d("4")},
				{Strike: d("60000.0"), Volume: d("3")},
			},
			Summary: aggregate.Summary{
				CallVolume:   d("13.5"),
				PutVolume:    d("7"),
				PutCallRatio: decimal.NewNullDecimal(d("7").Div(d("13.5"))),
			},
		},
	}
}

func TestStrikeRows_MergesSidesByStrike(t *testing.T) {
	rows := strikeRows(*viewResult().View)

	require.Len(t, rows, 3)
	require.Equal(t, "55000", rows[0].Strike)
	require.Equal(t, "0", rows[0].CallVolume)
	require.Equal(t, "4", rows[0].PutVolume)
	require.Equal(t, "60000", rows[1].Strike)
	require.Equal(t, "1", rows[1].CallVolume)
	require.Equal(t, "3", rows[1].PutVolume)
	require.Equal(t, "12.5", rows[2].CallVolume)
}

func TestStrikeRows_SumsBarsSharingAStrike(t *testing.T) {
	v := aggregate.View{
		Calls: []aggregate.Bar{
			{Strike: d("65000"), Volume: d("8"), InstrumentID: "BTC-29MAR24-65000-C"},
			{Strike: d("65000"), Volume: d("2"), InstrumentID: "BTC-USD-240329-65000-C"},
		},
		Puts: []aggregate.Bar{
			{Strike: d("65000"), Volume: d("1.5"), InstrumentID: "BTC-29MAR24-65000-P"},
		},
	}

	rows := strikeRows(v)

	require.Len(t, rows, 1)
	require.Equal(t, "65000", rows[0].Strike)
	require.Equal(t, "10", rows[0].CallVolume)
	require.Equal(t, "1.5", rows[0].PutVolume)
}

func TestRender_ViewTable(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, render(&buf, formatTable, viewResult()))

	out := buf.String()
	require.Contains(t, out, "DERIBIT  BTC  2024-03-29  index 67,012.50  2 dropped")
	require.Contains(t, out, "CALL VOL")
	require.Contains(t, out, "put/call ratio: 0.519")
}

func TestRender_ViewCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, render(&buf, formatCSV, viewResult()))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Equal(t, "strike,call_volume,put_volume", lines[0])
	require.Equal(t, "55000,0,4", lines[1])
	require.Len(t, lines, 4)
}

func TestRender_QuotesCSV(t *testing.T) {
	res := board.Result{
		Exchange: market.OKX,
		Currency: market.ETH,
		Quotes: []market.OptionQuote{{
			InstrumentID: "ETH-USD-240329-3500-C",
			Strike:       d("3500"),
			Side:         market.Call,
			Expiration:   time.Date(2024, 3, 29, 0, 0, 0, 0, time.UTC),
			Volume24h:    d("10"),
		}},
	}
	var buf bytes.Buffer
	require.NoError(t, render(&buf, formatCSV, res))

	require.Equal(t,
		"instrument_id,expiration,strike,side,volume_24h,mark_price\nETH-USD-240329-3500-C,2024-03-29,3500,CALL,10,\n",
		buf.String())
}

func TestRender_JSON(t *testing.T) {
	var buf bytes.Buffer
	res := board.Result{Exchange: market.OKX, Currency: market.BTC, Expirations: []string{"2024-03-29"}}
	require.NoError(t, render(&buf, formatJSON, res))

	var back board.Result
	require.NoError(t, json.Unmarshal(buf.Bytes(), &back))
	require.Equal(t, res.Expirations, back.Expirations)
}

func TestHeading_WithoutIndex(t *testing.T) {
	require.Equal(t, "OKX  ETH  index n/a", heading(board.Result{Exchange: market.OKX, Currency: market.ETH}))
}

func TestValidFormat(t *testing.T) {
	require.NoError(t, validFormat("csv"))
	require.Error(t, validFormat("xml"))
}

func TestRootCommand_HasSubcommands(t *testing.T) {
	root := newRootCmd()
	for _, name := range []string{"expirations", "view", "quotes"} {
		cmd, _, err := root.Find([]string{name})
		require.NoError(t, err)
		require.Equal(t, name, cmd.Name())
	}
	view, _, _ := root.Find([]string{"view"})
	require.NotNil(t, view.Flags().Lookup("expiration"))
}
