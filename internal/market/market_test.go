package market

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestParseSide(t *testing.T) {
	for in, want := range map[string]Side{"C": Call, "c": Call, "call": Call, " CALL ": Call, "P": Put, "put": Put, "Put": Put} {
		got, err := ParseSide(in)
		require.NoErrorf(t, err, "input %q", in)
		require.Equalf(t, want, got, "input %q", in)
	}
	for _, in := range []string{"", "X", "straddle", "CP"} {
		_, err := ParseSide(in)
		require.Errorf(t, err, "input %q", in)
	}
}

func TestParseCurrency(t *testing.T) {
	c, err := ParseCurrency("btc")
	require.NoError(t, err)
	require.Equal(t, BTC, c)

	c, err = ParseCurrency(" ETH ")
	require.NoError(t, err)
	require.Equal(t, ETH, c)

	_, err = ParseCurrency("DOGE")
	require.Error(t, err)
}

func TestParseExchange(t *testing.T) {
	ex, err := ParseExchange("Deribit")
	require.NoError(t, err)
	require.Equal(t, Deribit, ex)

	ex, err = ParseExchange("OKX")
	require.NoError(t, err)
	require.Equal(t, OKX, ex)

	_, err = ParseExchange("binance")
	require.Error(t, err)
}

func TestDay_DropsTimeOfDayAndZone(t *testing.T) {
	loc := time.FixedZone("UTC+9", 9*3600)
	// 2024-03-30 02:00 in UTC+9 is still 2024-03-29 in UTC.
	in := time.Date(2024, 3, 30, 2, 0, 0, 0, loc)
	require.Equal(t, time.Date(2024, 3, 29, 0, 0, 0, 0, time.UTC), Day(in))
}

func TestParseDate(t *testing.T) {
	d, err := ParseDate("2024-03-29")
	require.NoError(t, err)
	require.Equal(t, time.Date(2024, 3, 29, 0, 0, 0, 0, time.UTC), d)

	_, err = ParseDate("29/03/2024")
	require.Error(t, err)
}
