// Package api is the HTTP JSON surface over the conversation store,
// identity layer, and model proxy.
//
// Middleware order is recovery → tracing → request ID → logging → CORS
// → rate limit → auth; the probe routes skip everything but recovery so
// they stay reachable when a client exhausts its rate budget.
package api

import (
	"errors"
	"net/http"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/goalchat/goalchat/internal/auth"
	"github.com/goalchat/goalchat/internal/conversation"
	"github.com/goalchat/goalchat/internal/docstore"
	"github.com/goalchat/goalchat/internal/log"
)

// Server routes API requests. It implements http.Handler.
type Server struct {
	handler http.Handler
}

// ServerConfig carries the dependencies for NewServer.
type ServerConfig struct {
	DB          docstore.DB         // Required: document store backing all persistence
	Store       *conversation.Store // Required: conversation repository
	Signer      *auth.Signer        // Required: identity token signer
	Generator   Generator           // Optional: nil disables the chat proxy
	Logger      log.Logger          // Optional: nil discards logs
	CORSOrigins []string            // Optional: allowed browser origins
	RateBurst   int                 // Per-IP requests per minute; 0 disables limiting
	TrustProxy  bool                // Trust X-Forwarded-For for client identity
}

// NewServer creates a server with all routes and middleware configured.
func NewServer(cfg ServerConfig) (*Server, error) {
	if cfg.DB == nil {
		return nil, errors.New("DB is required")
	}
	if cfg.Store == nil {
		return nil, errors.New("Store is required")
	}
	if cfg.Signer == nil {
		return nil, errors.New("Signer is required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = log.NewNop()
	}

	login := NewLogin(cfg.DB, cfg.Signer, logger)
	convs := NewConversations(cfg.Store, logger)
	chatHandler := NewChat(cfg.Generator, logger)
	health := NewHealth(cfg.DB, logger)

	limiter := newRateLimiter(cfg.RateBurst, cfg.TrustProxy)
	requireAuth := authMiddleware(cfg.Signer)

	authed := func(h http.HandlerFunc) http.Handler {
		return requireAuth(h)
	}

	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", health.Live)
	mux.HandleFunc("GET /ready", health.Ready)

	mux.HandleFunc("POST /api/auth/login", login.Handle)

	mux.Handle("GET /api/conversations", authed(convs.List))
	mux.Handle("POST /api/conversations", authed(convs.Create))
	mux.Handle("GET /api/conversations/{id}", authed(convs.Get))
	mux.Handle("DELETE /api/conversations/{id}", authed(convs.Delete))
	mux.Handle("GET /api/conversations/{id}/messages", authed(convs.Messages))
	mux.Handle("POST /api/conversations/{id}/messages", authed(convs.Append))

	mux.Handle("POST /api/chat", authed(chatHandler.Handle))

	// otelhttp wraps the whole API chain so every request gets a server
	// span; the probe routes stay outside it to keep traces quiet.
	apiHandler := otelhttp.NewHandler(chain(mux,
		requestIDMiddleware(),
		loggingMiddleware(logger),
		corsMiddleware(cfg.CORSOrigins),
		limiter.middleware(),
	), "goalchat.api", otelhttp.WithSpanNameFormatter(func(_ string, r *http.Request) string {
		return r.Method + " " + r.URL.Path
	}))

	var root http.Handler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" || r.URL.Path == "/ready" {
			mux.ServeHTTP(w, r)
			return
		}
		apiHandler.ServeHTTP(w, r)
	})
	root = recoveryMiddleware(logger)(root)

	return &Server{handler: root}, nil
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}
