package main

import (
	"compress/gzip"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"optionflow/internal/board"
	"optionflow/internal/logger"
)

// apiHeaders go on every response, preflight included.
var apiHeaders = http.Header{
	"Content-Type":                 {"application/json; charset=utf-8"},
	"Access-Control-Allow-Origin":  {"*"},
	"Access-Control-Allow-Methods": {"GET,OPTIONS"},
	"Access-Control-Allow-Headers": {"Content-Type"},
}

func withJSONHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		for k, v := range apiHeaders {
			w.Header()[k] = v
		}
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// gzipPool recycles BestSpeed writers between responses.
type gzipPool struct {
	pool sync.Pool
}

func newGzipPool() *gzipPool {
	p := &gzipPool{}
	p.pool.New = func() any {
		gz, _ := gzip.NewWriterLevel(io.Discard, gzip.BestSpeed)
		return gz
	}
	return p
}

func (p *gzipPool) get(w io.Writer) *gzip.Writer {
	gz := p.pool.Get().(*gzip.Writer)
	gz.Reset(w)
	return gz
}

// put flushes the gzip trailer and returns the writer.
func (p *gzipPool) put(gz *gzip.Writer) {
	_ = gz.Close()
	gz.Reset(io.Discard)
	p.pool.Put(gz)
}

func acceptsGzip(r *http.Request) bool {
	return strings.Contains(r.Header.Get("Accept-Encoding"), "gzip")
}

// withGzip compresses the body when the client accepts gzip.
func withGzip(next http.Handler) http.Handler {
	pool := newGzipPool()
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Add("Vary", "Accept-Encoding")
		if !acceptsGzip(r) {
			next.ServeHTTP(w, r)
			return
		}
		gz := pool.get(w)
		defer pool.put(gz)
		w.Header().Set("Content-Encoding", "gzip")
		next.ServeHTTP(&gzipResponseWriter{ResponseWriter: w, gz: gz}, r)
	})
}

type gzipResponseWriter struct {
	http.ResponseWriter
	gz *gzip.Writer
}

// WriteHeader drops any Content-Length set for the uncompressed body.
func (g *gzipResponseWriter) WriteHeader(code int) {
	g.Header().Del("Content-Length")
	g.ResponseWriter.WriteHeader(code)
}

func (g *gzipResponseWriter) Write(b []byte) (int, error) {
	return g.gz.Write(b)
}

// recoverPanic protects handlers from panics.
func recoverPanic(log *logger.Entry, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				log.WithFields(logger.Fields{"panic": rec, "path": r.URL.Path}).Error("handler panicked")
				writeJSON(w, http.StatusInternalServerError, board.Result{Error: &board.ErrorDescriptor{Kind: board.KindInternal, Message: "internal server error"}})
			}
		}()
		next.ServeHTTP(w, r)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

func logRequests(log *logger.Entry, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		log.WithFields(logger.Fields{
			"method":   r.Method,
			"path":     r.URL.Path,
			"status":   rec.status,
			"duration": time.Since(start).Milliseconds(),
		}).Debug("request served")
	})
}
