package http

import (
	"net/http"

	"brokemate/internal/log"
	"brokemate/internal/session"
)

type credentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if _, err := s.auth.Register(r.Context(), req.Email, req.Password); err != nil {
		log.FromContext(r.Context()).WithComponent(log.ComponentAuth).InfoContext(r.Context(), "Registration rejected",
			log.FieldOperation, log.OpRegister,
			log.FieldError, err)
		s.writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, messageResponse{Message: "User created successfully"})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	value, _, err := s.auth.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		log.FromContext(r.Context()).WithComponent(log.ComponentAuth).InfoContext(r.Context(), "Login rejected",
			log.FieldOperation, log.OpLogin,
			log.FieldError, err)
		s.writeServiceError(w, r, err)
		return
	}

	http.SetCookie(w, s.codec.Cookie(value, s.cookieSecure))
	writeJSON(w, http.StatusOK, messageResponse{Message: "Login successful"})
}

// handleLogout always succeeds and always clears the cookie.
func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if err := s.auth.Logout(r.Context(), session.FromRequest(r)); err != nil {
		log.FromContext(r.Context()).WithComponent(log.ComponentSession).WarnContext(r.Context(), "Failed to delete session",
			log.FieldOperation, log.OpLogout,
			log.FieldError, err)
	}

	http.SetCookie(w, session.ExpiredCookie(s.cookieSecure))
	writeJSON(w, http.StatusOK, messageResponse{Message: "Logout successful"})
}
