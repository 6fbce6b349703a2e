package deribit_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"optionflow/internal/logger"
	"optionflow/internal/market"
	"optionflow/internal/provider"
	"optionflow/internal/provider/deribit"
	"optionflow/internal/provider/mocks"
)

var summaryFixture = map[string]any{
	"jsonrpc": "2.0",
	"result": []map[string]any{
		{"instrument_name": "BTC-29MAR24-70000-C", "volume": 12.5, "mark_price": 0.0415},
		{"instrument_name": "BTC-29MAR24-60000-P", "volume": "3", "mark_price": nil},
		{"instrument_name": "BTC-5APR24-0d625-C", "volume": nil, "volume_24h": 7},
	},
}

var indexFixture = map[string]any{
	"jsonrpc": "2.0",
	"result":  map[string]any{"index_price": 67012.34, "estimated_delivery_price": 67012.34},
}

func respond(t *testing.T, status int, v any) *http.Response {
	t.Helper()
	buffer := &bytes.Buffer{}
	require.NoError(t, json.NewEncoder(buffer).Encode(v))
	return &http.Response{StatusCode: status, Body: io.NopCloser(buffer)}
}

func TestFetch(t *testing.T) {
	t.Parallel()

	// Arrange: create a mock controller and HTTP client
	ctrl := gomock.NewController(t)
	httpClient := mocks.NewMockHTTPClient(ctrl)

	// Assert: one listing call and one index call, served by path
	httpClient.EXPECT().
		Do(gomock.Any()).
		DoAndReturn(func(req *http.Request) (*http.Response, error) {
			switch {
			case strings.HasSuffix(req.URL.Path, "/get_book_summary_by_currency"):
				require.Equal(t, "BTC", req.URL.Query().Get("currency"))
				require.Equal(t, "option", req.URL.Query().Get("kind"))
				return respond(t, http.StatusOK, summaryFixture), nil
			case strings.HasSuffix(req.URL.Path, "/get_index_price"):
				require.Equal(t, "btc_usd", req.URL.Query().Get("index_name"))
				return respond(t, http.StatusOK, indexFixture), nil
			}
			t.Fatalf("unexpected request %s", req.URL)
			return nil, nil
		}).
		Times(2)

	client := deribit.New(deribit.WithHTTPClient(httpClient), deribit.WithLogger(logger.Discard()))

	// Act
	payload, err := client.Fetch(t.Context(), market.BTC)

	// Assert
	require.NoError(t, err)
	require.Equal(t, market.Deribit, payload.Exchange)
	require.Equal(t, market.BTC, payload.Currency)
	require.Equal(t, "67012.34", payload.IndexPrice)
	require.NoError(t, payload.IndexErr)
	require.False(t, payload.FetchedAt.IsZero())
	require.Len(t, payload.Records, 3)

	require.Equal(t, provider.RawRecord{
		InstrumentID: "BTC-29MAR24-70000-C",
		Volume:       "12.5",
		MarkPrice:    "0.0415",
	}, payload.Records[0])
	require.Equal(t, "3", payload.Records[1].Volume)
	require.Empty(t, payload.Records[1].MarkPrice)
	require.Equal(t, "7", payload.Records[2].Volume, "volume_24h is used when volume is absent")
}

func TestFetch_IndexTimeoutKeepsListing(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	httpClient := mocks.NewMockHTTPClient(ctrl)
	httpClient.EXPECT().
		Do(gomock.Any()).
		DoAndReturn(func(req *http.Request) (*http.Response, error) {
			if strings.HasSuffix(req.URL.Path, "/get_index_price") {
				return nil, &url.Error{Op: "Get", URL: req.URL.String(), Err: context.DeadlineExceeded}
			}
			return respond(t, http.StatusOK, summaryFixture), nil
		}).
		Times(2)

	client := deribit.New(deribit.WithHTTPClient(httpClient), deribit.WithLogger(logger.Discard()))

	payload, err := client.Fetch(t.Context(), market.BTC)
	require.NoError(t, err)
	require.Len(t, payload.Records, 3)
	require.Empty(t, payload.IndexPrice)

	var timeoutErr *provider.TimeoutError
	require.ErrorAs(t, payload.IndexErr, &timeoutErr)
}

func TestFetch_ListingHTTPError(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	httpClient := mocks.NewMockHTTPClient(ctrl)
	httpClient.EXPECT().
		Do(gomock.Any()).
		DoAndReturn(func(req *http.Request) (*http.Response, error) {
			if strings.HasSuffix(req.URL.Path, "/get_index_price") {
				return respond(t, http.StatusOK, indexFixture), nil
			}
			return respond(t, http.StatusBadRequest, map[string]any{
				"error": map[string]any{"code": 10001, "message": "bad currency"},
			}), nil
		}).
		Times(2)

	client := deribit.New(deribit.WithHTTPClient(httpClient), deribit.WithLogger(logger.Discard()))

	_, err := client.Fetch(t.Context(), market.BTC)

	var httpErr *provider.HTTPError
	require.ErrorAs(t, err, &httpErr)
	require.Equal(t, http.StatusBadRequest, httpErr.Status)
	require.Contains(t, httpErr.Body, "bad currency")
}

func TestBookSummaries_ErrorEnvelope(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	httpClient := mocks.NewMockHTTPClient(ctrl)
	httpClient.EXPECT().
		Do(gomock.Any()).
		Return(respond(t, http.StatusOK, map[string]any{
			"error": map[string]any{"code": 11050, "message": "bad_request"},
		}), nil).
		Times(1)

	client := deribit.New(deribit.WithHTTPClient(httpClient))

	_, err := client.BookSummaries(t.Context(), market.ETH)

	var parseErr *provider.ParseError
	require.ErrorAs(t, err, &parseErr)
	require.Contains(t, err.Error(), "11050")
}

func TestBookSummaries_MissingResult(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	httpClient := mocks.NewMockHTTPClient(ctrl)
	httpClient.EXPECT().
		Do(gomock.Any()).
		Return(respond(t, http.StatusOK, map[string]any{"jsonrpc": "2.0"}), nil).
		Times(1)

	client := deribit.New(deribit.WithHTTPClient(httpClient))

	_, err := client.BookSummaries(t.Context(), market.BTC)

	var parseErr *provider.ParseError
	require.ErrorAs(t, err, &parseErr)
}

func TestBookSummaries_EmptyListing(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	httpClient := mocks.NewMockHTTPClient(ctrl)
	httpClient.EXPECT().
		Do(gomock.Any()).
		Return(respond(t, http.StatusOK, map[string]any{"result": []any{}}), nil).
		Times(1)

	client := deribit.New(deribit.WithHTTPClient(httpClient))

	records, err := client.BookSummaries(t.Context(), market.BTC)
	require.NoError(t, err)
	require.Empty(t, records)
}

func TestIndexPrice_ETH(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	httpClient := mocks.NewMockHTTPClient(ctrl)
	httpClient.EXPECT().
		Do(gomock.Any()).
		DoAndReturn(func(req *http.Request) (*http.Response, error) {
			require.Equal(t, "eth_usd", req.URL.Query().Get("index_name"))
			return respond(t, http.StatusOK, map[string]any{"result": map[string]any{"index_price": "3120.5"}}), nil
		}).
		Times(1)

	client := deribit.New(deribit.WithHTTPClient(httpClient))

	price, err := client.IndexPrice(t.Context(), market.ETH)
	require.NoError(t, err)
	require.Equal(t, "3120.5", price)
}

func TestWithBaseURLAndHeader(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	httpClient := mocks.NewMockHTTPClient(ctrl)

	baseURL := "http://localhost:8080"
	httpClient.EXPECT().
		Do(gomock.Any()).
		DoAndReturn(func(req *http.Request) (*http.Response, error) {
			require.Truef(t, strings.HasPrefix(req.URL.String(), baseURL+"/custom/summary"), "unexpected url: %s", req.URL)
			require.Equal(t, "bar", req.Header.Get("foo"))
			return respond(t, http.StatusOK, map[string]any{"result": []any{}}), nil
		}).
		Times(1)

	client := deribit.New(
		deribit.WithHTTPClient(httpClient),
		deribit.WithBaseURL(baseURL),
		deribit.WithPaths("/custom/summary", ""),
		deribit.WithHeader(http.Header{"foo": []string{"bar"}}),
	)

	_, err := client.BookSummaries(t.Context(), market.BTC)
	require.NoError(t, err)
}

func TestExchange(t *testing.T) {
	t.Parallel()
	require.Equal(t, market.Deribit, deribit.New().Exchange())
}
