package handler

import (
	"errors"
	"fmt"
	"net/http"
)

// handleAuthMe returns the authenticated principal's profile.
func (a *API) handleAuthMe(w http.ResponseWriter, r *http.Request) {
	principal, ok := PrincipalFromContext(r.Context())
	if !ok {
		writeError(w, r, errors.New("no principal in request context"), http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, Response{
		Success:    true,
		StatusCode: http.StatusOK,
		RequestID:  requestID(r),
		Data:       principal,
	})
}

// handleAuthSession reports the session the presented token belongs to.
func (a *API) handleAuthSession(w http.ResponseWriter, r *http.Request) {
	principal, ok := PrincipalFromContext(r.Context())
	if !ok {
		writeError(w, r, errors.New("no principal in request context"), http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, Response{
		Success:    true,
		StatusCode: http.StatusOK,
		RequestID:  requestID(r),
		Data: map[string]any{
			"session_id": principal.SessionID,
			"user_id":    principal.ID,
			"issued_at":  principal.IssuedAt,
			"expires_at": principal.ExpiresAt,
			"active":     principal.IsActive,
		},
	})
}

// handleAuthVerify confirms the presented token is valid. Reaching this
// handler at all means the gate accepted it.
func (a *API) handleAuthVerify(w http.ResponseWriter, r *http.Request) {
	principal, ok := PrincipalFromContext(r.Context())
	if !ok {
		writeError(w, r, errors.New("no principal in request context"), http.StatusInternalServerError)
		return
	}

	who := principal.Email
	if who == "" {
		who = principal.ID
	}

	writeJSON(w, http.StatusOK, Response{
		Success:    true,
		StatusCode: http.StatusOK,
		RequestID:  requestID(r),
		Message:    fmt.Sprintf("Token is valid for user: %s", who),
	})
}
