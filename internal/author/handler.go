package author

import (
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-catalog/internal/apperr"
	"github.com/ovaphlow/pitchfork/service-catalog/internal/auth"
	"github.com/ovaphlow/pitchfork/service-catalog/internal/author/entity"
	"github.com/ovaphlow/pitchfork/service-catalog/internal/author/repo"
	"github.com/ovaphlow/pitchfork/service-catalog/pkg/utilities"
)

// ListResponse wraps a page of authors.
type ListResponse struct {
	Authors []*entity.Author `json:"authors"`
}

type Handler struct {
	svc    *Service
	logger *zap.SugaredLogger
}

func NewHandler(svc *Service, logger *zap.SugaredLogger) *Handler {
	return &Handler{svc: svc, logger: logger}
}

// List serves GET /authors?name=&offset=&limit=.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, bad, ok := utilities.ParsePage(q)
	if !ok {
		apperr.Write(w, h.logger, apperr.New(apperr.ErrInvalidInput, "invalid %s", bad))
		return
	}
	authors, err := h.svc.List(r.Context(), repo.Filter{Name: q.Get("name"), Page: page})
	if err != nil {
		apperr.Write(w, h.logger, err)
		return
	}
	utilities.WriteJSON(w, http.StatusOK, ListResponse{Authors: authors})
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	a, err := h.svc.Get(r.Context(), id)
	if err != nil {
		apperr.Write(w, h.logger, err)
		return
	}
	utilities.WriteJSON(w, http.StatusOK, a)
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	bearer, err := auth.BearerToken(r)
	if err != nil {
		apperr.Write(w, h.logger, err)
		return
	}
	var in Input
	if err := utilities.DecodeJSON(r, &in); err != nil {
		apperr.Write(w, h.logger, apperr.New(apperr.ErrInvalidInput, "invalid payload"))
		return
	}
	a, err := h.svc.Create(r.Context(), bearer, in)
	if err != nil {
		apperr.Write(w, h.logger, err)
		return
	}
	h.logger.Infow("author created", "id", a.ID, "name", a.Name)
	utilities.WriteJSON(w, http.StatusCreated, a)
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	bearer, err := auth.BearerToken(r)
	if err != nil {
		apperr.Write(w, h.logger, err)
		return
	}
	id, ok := h.pathID(w, r)
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
	utilities.WriteJSON(w, http.StatusOK, a)
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	bearer, err := auth.BearerToken(r)
	if err != nil {
		apperr.Write(w, h.logger, err)
		return
	}
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	if err := h.svc.Delete(r.Context(), bearer, id); err != nil {
		apperr.Write(w, h.logger, err)
		return
	}
	h.logger.Infow("author deleted", "id", id)
	utilities.WriteJSON(w, http.StatusOK, utilities.MessageResponse{Message: "Author successfully removed"})
}

func (h *Handler) pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		apperr.Write(w, h.logger, apperr.New(apperr.ErrInvalidInput, "invalid author id"))
		return 0, false
	}
	return id, true
}
