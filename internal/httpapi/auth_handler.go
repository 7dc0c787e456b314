package httpapi

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/itirp/gateway/internal/apierr"
)

type loginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type loginResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apierr.Wrap(apierr.KindValidationFailed, "malformed request body", err))
		return
	}
	if err := s.validate.Struct(req); err != nil {
		writeError(w, apierr.Wrap(apierr.KindValidationFailed, "username and password are required", err))
		return
	}

	user, err := s.users.Authenticate(req.Username, req.Password)
	if err != nil {
		writeError(w, err)
		return
	}

	token, expiresAt, err := s.tokens.Issue(user)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, loginResponse{
		AccessToken: token,
		TokenType:   "Bearer",
		ExpiresIn:   int(time.Until(expiresAt).Seconds()),
	})
}
