package main

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/resolva"
)

type serverOption func(*server)

func withAddr(addr string) serverOption {
	return func(s *server) {
		s.addr = addr
	}
}

func withLogger(logger *slog.Logger) serverOption {
	return func(s *server) {
		s.logger = logger
	}
}

type server struct {
	addr   string
	engine *resolva.Engine
	logger *slog.Logger
	mux    *http.ServeMux
}

func newServer(engine *resolva.Engine, opts ...serverOption) *server {
	s := &server{
		addr:   ":8080",
		engine: engine,
		logger: slog.New(slog.DiscardHandler),
		mux:    http.NewServeMux(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.setupRoutes()
	return s
}

func (s *server) setupRoutes() {
	s.mux.HandleFunc("GET /health", s.handleHealth)
	s.mux.HandleFunc("GET /v1/agent/tools", s.handleListTools)
	s.mux.HandleFunc("POST /v1/agent/resolve", s.handleResolve)
	s.mux.HandleFunc("POST /v1/agent/compare", s.handleCompare)
	s.mux.HandleFunc("POST /v1/agent/tool", s.handleTool)
}

func (s *server) handler() http.Handler {
	return s.mux
}

func (s *server) start(ctx context.Context) error {
	listener, err := net.Listen("tcp", s.addr)
	if err != nil {
		return goerr.Wrap(err, "failed to listen", goerr.V("addr", s.addr))
	}

	s.logger.Info("starting resolution server", "addr", listener.Addr().String())

	srv := &http.Server{
		Handler:           s.mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		_ = srv.Close()
	}()

	if err := srv.Serve(listener); err != nil && err != http.ErrServerClosed {
		return goerr.Wrap(err, "server error")
	}

	return nil
}
