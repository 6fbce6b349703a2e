package main

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"optionflow/internal/board"
	"optionflow/internal/logger"
	"optionflow/internal/market"
	"optionflow/internal/metrics"
)

type handlers struct {
	board   *board.Board
	timeout time.Duration
}

type exchangesResponse struct {
	Exchanges  []market.ExchangeID `json:"exchanges"`
	Currencies []market.Currency   `json:"currencies"`
}

func newRouter(b *board.Board, m *metrics.Metrics, l *logger.Log, timeout time.Duration) http.Handler {
	h := &handlers{board: b, timeout: timeout}

	r := mux.NewRouter()
	r.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}).Methods(http.MethodGet)
	r.Handle("/metrics", m.Handler()).Methods(http.MethodGet)

	api := r.PathPrefix("/api/v1").Subrouter()
	api.HandleFunc("/exchanges", h.exchanges).Methods(http.MethodGet)
	api.HandleFunc("/{exchange}/{currency}/expirations", h.expirations).Methods(http.MethodGet)
	api.HandleFunc("/{exchange}/{currency}/view", h.view).Methods(http.MethodGet)
	api.HandleFunc("/{exchange}/{currency}/quotes", h.quotes).Methods(http.MethodGet)

	log := l.WithComponent("server")
	return withJSONHeaders(withGzip(recoverPanic(log, logRequests(log, r))))
}

func (h *handlers) exchanges(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, exchangesResponse{Exchanges: h.board.Exchanges(), Currencies: market.Currencies})
}

func (h *handlers) expirations(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := h.context(r)
	defer cancel()
	vars := mux.Vars(r)
	writeResult(w, h.board.Expirations(ctx, vars["exchange"], vars["currency"]))
}

func (h *handlers) view(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := h.context(r)
	defer cancel()
	vars := mux.Vars(r)
	writeResult(w, h.board.View(ctx, vars["exchange"], vars["currency"], r.URL.Query().Get("expiration")))
}

func (h *handlers) quotes(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := h.context(r)
	defer cancel()
	vars := mux.Vars(r)
	writeResult(w, h.board.Quotes(ctx, vars["exchange"], vars["currency"], r.URL.Query().Get("expiration")))
}

func (h *handlers) context(r *http.Request) (context.Context, context.CancelFunc) {
	if h.timeout <= 0 {
		return context.WithCancel(r.Context())
	}
	return context.WithTimeout(r.Context(), h.timeout)
}

// writeResult answers 200 for data and notices, 400 for bad input,
// 504 for timeouts and 502 for other upstream failures.
func writeResult(w http.ResponseWriter, res board.Result) {
	writeJSON(w, res.Error.HTTPStatus(), res)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(v)
}
