package account

import (
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-catalog/internal/apperr"
	"github.com/ovaphlow/pitchfork/service-catalog/internal/auth"
	"github.com/ovaphlow/pitchfork/service-catalog/pkg/utilities"
)

// Handler exposes HTTP endpoints for account operations.
type Handler struct {
	svc    *Service
	logger *zap.SugaredLogger
}

func NewHandler(svc *Service, logger *zap.SugaredLogger) *Handler {
	return &Handler{svc: svc, logger: logger}
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var in Input
	if err := utilities.DecodeJSON(r, &in); err != nil {
		h.logger.Debugw("invalid account payload", "err", err)
		apperr.Write(w, h.logger, apperr.New(apperr.ErrInvalidInput, "invalid payload"))
		return
	}
	a, err := h.svc.Register(r.Context(), in)
	if err != nil {
		apperr.Write(w, h.logger, err)
		return
	}
	h.logger.Infow("account registered", "id", a.ID)
	utilities.WriteJSON(w, http.StatusCreated, a.Public())
}

func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	bearer, err := auth.BearerToken(r)
	if err != nil {
		apperr.Write(w, h.logger, err)
		return
	}
	a, err := h.svc.Me(r.Context(), bearer)
	if err != nil {
		apperr.Write(w, h.logger, err)
		return
	}
	utilities.WriteJSON(w, http.StatusOK, a.Public())
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	bearer, id, ok := h.target(w, r)
	if !ok {
		return
	}
	var in Input
	if err := utilities.DecodeJSON(r, &in); err != nil {
		apperr.Write(w, h.logger, apperr.New(apperr.ErrInvalidInput, "invalid payload"))
		return
	}
	a, err := h.svc.Update(r.Context(), bearer, id, in)
	if err != nil {
		apperr.Write(w, h.logger, err)
		return
	}
	utilities.WriteJSON(w, http.StatusOK, a.Public())
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	bearer, id, ok := h.target(w, r)
	if !ok {
		return
	}
	if err := h.svc.Delete(r.Context(), bearer, id); err != nil {
		apperr.Write(w, h.logger, err)
		return
	}
	h.logger.Infow("account deleted", "id", id)
	utilities.WriteJSON(w, http.StatusOK, utilities.MessageResponse{Message: "User successfully removed"})
}

// target reads the bearer token and the {id} path value. Authentication is
// checked before the id so anonymous callers learn nothing about the path.
func (h *Handler) target(w http.ResponseWriter, r *http.Request) (string, int64, bool) {
	bearer, err := auth.BearerToken(r)
	if err != nil {
		apperr.Write(w, h.logger, err)
		return "", 0, false
	}
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		apperr.Write(w, h.logger, apperr.New(apperr.ErrInvalidInput, "invalid account id"))
		return "", 0, false
	}
	return bearer, id, true
}
