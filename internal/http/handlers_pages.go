package http

import (
	"context"
	"io/fs"
	"net/http"
	"time"

	"brokemate/internal/log"
)

// handleDashboard serves the dashboard to logged-in users and sends everyone
// else to the login page.
func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	user, err := s.currentUser(r)
	if err != nil {
		log.FromContext(r.Context()).ErrorContext(r.Context(), "Failed to resolve session", log.FieldError, err)
	}
	if user == nil {
		http.Redirect(w, r, "/login.html", http.StatusSeeOther)
		return
	}

	w.Header().Set("Cache-Control", "no-store")
	s.writePage(w, r, "index.html")
}

func (s *Server) servePage(name string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.writePage(w, r, name)
	}
}

func (s *Server) writePage(w http.ResponseWriter, r *http.Request, name string) {
	body, err := fs.ReadFile(s.pages, "pages/"+name)
	if err != nil {
		log.FromContext(r.Context()).ErrorContext(r.Context(), "Page not found in embedded FS",
			"page", name,
			log.FieldError, err)
		http.Error(w, "page not available", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(body)
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// handleReady pings every registered dependency and reports 503 if any fails.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	for name, p := range s.ready {
		if err := p.Ping(ctx); err != nil {
			log.FromContext(ctx).WarnContext(ctx, "Readiness check failed",
				"dependency", name,
				log.FieldError, err)
			http.Error(w, name+" unavailable", http.StatusServiceUnavailable)
			return
		}
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}
