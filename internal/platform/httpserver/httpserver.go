// Package httpserver builds the process HTTP server. Timeouts are set
// here once so every deployment gets the same slow-client protection.
package httpserver

import (
	"net/http"
	"time"
)

// New builds an HTTP server for the sale API. Write timeout stays
// generous because purchase and claim hold the ledger lock across
// storage round trips.
func New(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
}
