package http

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"brokemate/internal/core"
	"brokemate/internal/log"
	"brokemate/internal/session"
)

type errorResponse struct {
	Detail string `json:"detail"`
}

type messageResponse struct {
	Message string `json:"message"`
}

// writeJSON encodes v before writing the status so an encoding failure can
// still be reported as a 500.
func writeJSON(w http.ResponseWriter, status int, v any) {
	body, err := json.Marshal(v)
	if err != nil {
		slog.Error("Failed to encode response", log.FieldStatusCode, status, log.FieldError, err)
		status = http.StatusInternalServerError
		body, _ = json.Marshal(errorResponse{Detail: "Internal server error"})
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := w.Write(append(body, '\n')); err != nil {
		slog.Debug("Failed to write response", log.FieldError, err)
	}
}

func writeError(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, errorResponse{Detail: detail})
}

// decodeJSON reads a bounded JSON body into dst. Unknown fields are ignored.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		var maxErr *http.MaxBytesError
		switch {
		case errors.As(err, &maxErr):
			return errors.New("request body too large")
		case errors.Is(err, io.EOF):
			return errors.New("request body is empty")
		default:
			return errors.New("malformed JSON body")
		}
	}
	return nil
}

// validationDetails are the messages safe to echo back for a validation failure.
var validationDetails = []error{
	core.ErrInvalidEmail,
	core.ErrPasswordTooShort,
	core.ErrInvalidAmount,
	core.ErrEmptyDescription,
	core.ErrDescriptionTooLong,
	core.ErrInvalidBudget,
}

// errorStatus maps the core error taxonomy to a status code and client message.
func errorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, core.ErrConflict):
		return http.StatusBadRequest, "User with this email already exists."
	case errors.Is(err, core.ErrInvalidCredentials):
		return http.StatusBadRequest, "Invalid email or password."
	case errors.Is(err, core.ErrUnauthorized):
		return http.StatusUnauthorized, "Not authenticated"
	case errors.Is(err, core.ErrNotFound):
		return http.StatusNotFound, "Transaction not found"
	case errors.Is(err, core.ErrValidation):
		for _, d := range validationDetails {
			if errors.Is(err, d) {
				return http.StatusBadRequest, d.Error()
			}
		}
		return http.StatusBadRequest, "Invalid request"
	}
	return http.StatusInternalServerError, "Internal server error"
}

func (s *Server) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	status, detail := errorStatus(err)
	if status >= http.StatusInternalServerError {
		log.FromContext(r.Context()).ErrorContext(r.Context(), "Request failed",
			log.FieldPath, r.URL.Path,
			log.FieldError, err)
	}
	writeError(w, status, detail)
}

// currentUser resolves the session cookie. A nil user means not logged in.
func (s *Server) currentUser(r *http.Request) (*core.User, error) {
	return s.auth.CurrentUser(r.Context(), session.FromRequest(r))
}

// authenticated rejects requests without a valid session with 401 and passes
// the resolved user to h.
func (s *Server) authenticated(h func(http.ResponseWriter, *http.Request, *core.User)) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "no-store")

		user, err := s.currentUser(r)
		if err != nil {
			s.writeServiceError(w, r, err)
			return
		}
		if user == nil {
			s.writeServiceError(w, r, core.ErrUnauthorized)
			return
		}

		logger := log.FromContext(r.Context()).With(log.FieldUserID, user.ID)
		ctx := log.NewContext(r.Context(), logger)
		h(w, r.WithContext(ctx), user)
	})
}
