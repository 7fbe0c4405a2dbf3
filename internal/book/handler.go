package book

import (
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-catalog/internal/apperr"
	"github.com/ovaphlow/pitchfork/service-catalog/internal/auth"
	"github.com/ovaphlow/pitchfork/service-catalog/internal/book/entity"
	"github.com/ovaphlow/pitchfork/service-catalog/internal/book/repo"
	"github.com/ovaphlow/pitchfork/service-catalog/pkg/utilities"
)

// ListResponse wraps a page of books.
type ListResponse struct {
	Books []*entity.Book `json:"books"`
}

type Handler struct {
	svc    *Service
	logger *zap.SugaredLogger
}

func NewHandler(svc *Service, logger *zap.SugaredLogger) *Handler {
	return &Handler{svc: svc, logger: logger}
}

// List serves GET /books?title=&year=&author_id=&offset=&limit=.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, bad, ok := utilities.ParsePage(q)
	if !ok {
		apperr.Write(w, h.logger, apperr.New(apperr.ErrInvalidInput, "invalid %s", bad))
		return
	}
	year, ok := utilities.QueryInt(q, "year")
	if !ok {
		apperr.Write(w, h.logger, apperr.New(apperr.ErrInvalidInput, "invalid year"))
		return
	}
	authorID, ok := utilities.QueryInt(q, "author_id")
	if !ok {
		apperr.Write(w, h.logger, apperr.New(apperr.ErrInvalidInput, "invalid author_id"))
		return
	}
	books, err := h.svc.List(r.Context(), repo.Filter{
		Title:    q.Get("title"),
		Year:     year,
		AuthorID: int64(authorID),
		Page:     page,
	})
	if err != nil {
		apperr.Write(w, h.logger, err)
		return
	}
	utilities.WriteJSON(w, http.StatusOK, ListResponse{Books: books})
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	b, err := h.svc.Get(r.Context(), id)
	if err != nil {
		apperr.Write(w, h.logger, err)
		return
	}
	utilities.WriteJSON(w, http.StatusOK, b)
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
	b, err := h.svc.Create(r.Context(), bearer, in)
	if err != nil {
		apperr.Write(w, h.logger, err)
		return
	}
	h.logger.Infow("book created", "id", b.ID, "author_id", b.AuthorID)
	utilities.WriteJSON(w, http.StatusCreated, b)
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
	var p Patch
	if err := utilities.DecodeJSON(r, &p); err != nil {
		apperr.Write(w, h.logger, apperr.New(apperr.ErrInvalidInput, "invalid payload"))
		return
	}
	b, err := h.svc.Update(r.Context(), bearer, id, p)
	if err != nil {
		apperr.Write(w, h.logger, err)
		return
	}
	utilities.WriteJSON(w, http.StatusOK, b)
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
	h.logger.Infow("book deleted", "id", id)
	utilities.WriteJSON(w, http.StatusOK, utilities.MessageResponse{Message: "Book successfully removed"})
}

func (h *Handler) pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		apperr.Write(w, h.logger, apperr.New(apperr.ErrInvalidInput, "invalid book id"))
		return 0, false
	}
	return id, true
}
