package main

import (
	"net/http"
	"time"

	"github.com/rs/zerolog/log"
)

func registerRoutes(mux *http.ServeMux, rl *relay) {
	mux.HandleFunc("/api/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	mux.HandleFunc("/api/vehicles", rl.handleRoster)
	mux.HandleFunc("/ws", rl.handleWebSocket)
}

func withLogging(h http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		h.ServeHTTP(w, r)
		log.Debug().Str("method", r.Method).Str("path", r.URL.Path).Dur("took", time.Since(start)).Msg("HTTP request")
	})
}
