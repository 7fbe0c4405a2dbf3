package auth

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-catalog/internal/apperr"
	"github.com/ovaphlow/pitchfork/service-catalog/pkg/utilities"
)

// Handler exposes the token endpoints.
type Handler struct {
	svc    *Service
	logger *zap.SugaredLogger
}

func NewHandler(svc *Service, logger *zap.SugaredLogger) *Handler {
	return &Handler{svc: svc, logger: logger}
}

// Token implements the OAuth2 password form: username carries the email.
func (h *Handler) Token(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		apperr.Write(w, h.logger, apperr.New(apperr.ErrInvalidInput, "invalid form"))
		return
	}
	username := r.PostForm.Get("username")
	password := r.PostForm.Get("password")
	if username == "" || password == "" {
		apperr.Write(w, h.logger, apperr.New(apperr.ErrInvalidInput, "username and password are required"))
		return
	}
	tok, err := h.svc.Login(r.Context(), username, password)
	if err != nil {
		apperr.Write(w, h.logger, err)
		return
	}
	utilities.WriteJSON(w, http.StatusOK, tok)
}

func (h *Handler) RefreshToken(w http.ResponseWriter, r *http.Request) {
	bearer, err := BearerToken(r)
	if err != nil {
		apperr.Write(w, h.logger, err)
		return
	}
	tok, err := h.svc.Refresh(r.Context(), bearer)
	if err != nil {
		apperr.Write(w, h.logger, err)
		return
	}
	utilities.WriteJSON(w, http.StatusOK, tok)
}
