package http

import (
	"context"
	"io/fs"
	"net/http"
	"sync"
	"time"

	"brokemate/internal/auth"
	"brokemate/internal/log"
	"brokemate/internal/middleware/ratelimit"
	"brokemate/internal/middleware/security"
	"brokemate/internal/middleware/trace"
	"brokemate/internal/services"
	"brokemate/internal/session"
	appweb "brokemate/web"
)

// maxBodyBytes bounds JSON request bodies.
const maxBodyBytes = 1 << 20

// Pinger reports whether a dependency is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Options carries the collaborators the server routes to.
type Options struct {
	Auth               *auth.Service
	Transactions       *services.TransactionService
	Codec              *session.Codec
	CookieSecure       bool
	RateLimitPerMinute int
	Logger             *log.Logger
	// Ready lists dependencies checked by /readyz.
	Ready map[string]Pinger
}

type Server struct {
	http.Server
	auth         *auth.Service
	transactions *services.TransactionService
	codec        *session.Codec
	cookieSecure bool
	ready        map[string]Pinger
	pages        fs.FS
	limiter      *ratelimit.Limiter
	shutdownOnce sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run server.
func NewServer(addr string, opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}

	s := &Server{
		auth:         opts.Auth,
		transactions: opts.Transactions,
		codec:        opts.Codec,
		cookieSecure: opts.CookieSecure,
		ready:        opts.Ready,
		pages:        appweb.PagesFS,
		limiter: ratelimit.NewLimiter(ratelimit.Config{
			RequestsPerMinute: opts.RateLimitPerMinute,
		}),
	}

	mux := http.NewServeMux()

	// Auth
	mux.Handle("POST /register", security.NoStore(http.HandlerFunc(s.handleRegister)))
	mux.Handle("POST /login", security.NoStore(http.HandlerFunc(s.handleLogin)))
	mux.Handle("POST /logout", security.NoStore(http.HandlerFunc(s.handleLogout)))

	// Authenticated API
	mux.Handle("GET /summary", s.authenticated(s.handleSummary))
	mux.Handle("POST /transaction", s.authenticated(s.handleCreateTransaction))
	mux.Handle("DELETE /transaction/{id}", s.authenticated(s.handleDeleteTransaction))
	mux.Handle("GET /spending-by-category", s.authenticated(s.handleSpendingByCategory))
	mux.Handle("POST /budget", s.authenticated(s.handleUpdateBudget))

	// Pages
	mux.HandleFunc("GET /{$}", s.handleDashboard)
	mux.HandleFunc("GET /login.html", s.servePage("login.html"))
	mux.HandleFunc("GET /register.html", s.servePage("register.html"))
	if sub, err := fs.Sub(appweb.StaticFS, "static"); err == nil {
		static := http.StripPrefix("/static/", http.FileServer(http.FS(sub)))
		mux.Handle("GET /static/", security.StaticAssetMiddleware(3600)(static))
	} else {
		logger.Warn("Failed to mount embedded static FS", "error", err)
	}

	// Probes
	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)

	ips := security.NewIPExtractor()
	var handler http.Handler = mux
	handler = s.limiter.Middleware(ips.ClientIP, s.onRateLimited, http.MethodPost, http.MethodDelete)(handler)
	handler = security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware(handler)
	handler = trace.NewMiddleware(logger, ips.ClientIP).Middleware(handler)

	s.Server = http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	return s
}

// Shutdown stops accepting requests, waits for in-flight ones and stops the
// rate limiter's cleanup goroutine.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.limiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

func (s *Server) onRateLimited(w http.ResponseWriter, r *http.Request) {
	log.FromContext(r.Context()).WithComponent(log.ComponentRateLimit).WarnContext(r.Context(), "Rate limit exceeded",
		log.FieldMethod, r.Method,
		log.FieldPath, r.URL.Path)
	writeError(w, http.StatusTooManyRequests, "Rate limit exceeded. Please try again later.")
}
