package normalize

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/shopspring/decimal"

	"optionflow/internal/market"
)

var errShortIdentifier = errors.New("identifier has fewer than four dash-separated tokens")

// tokens are the trailing parts of {BASE}[-{QUOTE}]-{DATE}-{STRIKE}-{C|P}.
type tokens struct {
	date   string
	strike string
	side   string
}

// splitIdentifier reads the grammar from the right, so BTC-29MAR24-70000-C and
// BTC-USD-240329-70000-C both resolve.
func splitIdentifier(id string) (tokens, error) {
	parts := strings.Split(strings.TrimSpace(id), "-")
	n := len(parts)
	if n < 4 {
		return tokens{}, errShortIdentifier
	}
	return tokens{date: parts[n-3], strike: parts[n-2], side: parts[n-1]}, nil
}

// parseStrike accepts plain decimals and the d-for-point form used in
// fractional strikes (0d625). Result is strictly positive.
func parseStrike(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, errors.New("empty strike")
	}
	s = strings.Replace(s, "d", ".", 1)
	v, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("strike %q: %w", s, err)
	}
	if !v.IsPositive() {
		return decimal.Zero, fmt.Errorf("strike %s is not positive", v)
	}
	return v, nil
}

// parseDateToken accepts YYMMDD (240329) and DDMonYY in any case (29MAR24, 5Apr24).
func parseDateToken(tok string) (time.Time, error) {
	tok = strings.TrimSpace(tok)
	if len(tok) == 6 && isDigits(tok) {
		t, err := time.Parse("060102", tok)
		if err != nil {
			return time.Time{}, fmt.Errorf("date %q: %w", tok, err)
		}
		return market.Day(t), nil
	}

	i := strings.IndexFunc(tok, unicode.IsLetter)
	if i < 1 || len(tok) < i+3 {
		return time.Time{}, fmt.Errorf("date %q: unrecognized encoding", tok)
	}
	mon := tok[i : i+3]
	s := tok[:i] + strings.ToUpper(mon[:1]) + strings.ToLower(mon[1:]) + tok[i+3:]
	t, err := time.Parse("2Jan06", s)
	if err != nil {
		return time.Time{}, fmt.Errorf("date %q: %w", tok, err)
	}
	return market.Day(t), nil
}

// parseEpochMillis reads an expiry timestamp and keeps only its UTC date.
func parseEpochMillis(s string) (time.Time, error) {
	ms, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil {
		return time.Time{}, fmt.Errorf("expiry %q: %w", s, err)
	}
	if ms <= 0 {
		return time.Time{}, fmt.Errorf("expiry %q is not a timestamp", s)
	}
	return market.Day(time.UnixMilli(ms)), nil
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
