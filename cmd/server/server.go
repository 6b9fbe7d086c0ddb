package main

import (
	"context"
	"net"
	"net/http"
	"time"
)

// newHTTPServer builds the API server. Request contexts derive from a base
// context that is cancelled when Shutdown starts, so long-lived event streams
// return instead of holding the drain open.
func newHTTPServer(addr string, handler http.Handler) *http.Server {
	base, cancel := context.WithCancel(context.Background())
	server := &http.Server{
		Addr:        addr,
		Handler:     handler,
		ReadTimeout: 30 * time.Second,
		// No WriteTimeout: session event streams stay open.
		IdleTimeout: 120 * time.Second,
		BaseContext: func(net.Listener) context.Context { return base },
	}
	server.RegisterOnShutdown(cancel)
	return server
}
