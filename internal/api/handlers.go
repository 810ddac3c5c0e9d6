package api

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/giyikalim/smart-notes/internal/models"
	"github.com/giyikalim/smart-notes/internal/notes"
)

// List filters accepted by GET /api/notes.
const (
	FilterAI     = "ai"
	FilterEdited = "edited"
)

// Handler holds API route handlers.
type Handler struct {
	svc *notes.Service
}

// NewHandler creates a new Handler.
func NewHandler(svc *notes.Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) respond(n *models.Note) NoteResponse {
	return NoteResponse{Note: *n, Expiry: n.ExpiryStatus(h.svc.Now())}
}

func (h *Handler) respondPage(p *models.NotePage) NoteListResponse {
	out := NoteListResponse{
		Notes:    make([]NoteResponse, 0, len(p.Notes)),
		Total:    p.Total,
		Page:     p.Page,
		PageSize: p.PageSize,
	}
	for i := range p.Notes {
		out.Notes = append(out.Notes, h.respond(&p.Notes[i]))
	}
	return out
}

func paging(r *http.Request) (page, size int) {
	q := r.URL.Query()
	page, _ = strconv.Atoi(q.Get("page"))
	size, _ = strconv.Atoi(q.Get("page_size"))
	return page, size
}

// ListNotes handles GET /api/notes.
//
//	@Summary		List live notes, newest first
//	@Tags			notes
//	@Produce		json
//	@Param			page		query		int		false	"Page number (1-based)"
//	@Param			page_size	query		int		false	"Page size"
//	@Param			language	query		string	false	"Only notes in this language"
//	@Param			filter		query		string	false	"AI provenance filter"	Enums(ai, edited)
//	@Success		200			{object}	NoteListResponse
//	@Security		BearerAuth
//	@Router			/notes [get]
func (h *Handler) ListNotes(w http.ResponseWriter, r *http.Request) {
	owner := OwnerID(r)
	page, size := paging(r)
	q := r.URL.Query()

	var (
		res *models.NotePage
		err error
	)
	switch {
	case q.Get("language") != "":
		res, err = h.svc.ListByLanguage(r.Context(), owner, q.Get("language"), page, size)
	case q.Get("filter") == FilterAI:
		res, err = h.svc.ListAIFlagged(r.Context(), owner, page, size)
	case q.Get("filter") == FilterEdited:
		res, err = h.svc.ListUserEdited(r.Context(), owner, page, size)
	case q.Get("filter") != "":
		writeJSON(w, http.StatusBadRequest, errorBody("filter must be one of: ai, edited"))
		return
	default:
		res, err = h.svc.List(r.Context(), owner, page, size)
	}
	if err != nil {
		writeError(w, "list notes", err)
		return
	}
	writeJSON(w, http.StatusOK, h.respondPage(res))
}

// GetNote handles GET /api/notes/{id}.
//
//	@Summary		Get a note by store id or application id
//	@Tags			notes
//	@Produce		json
//	@Param			id	path		string	true	"Note id"
//	@Success		200	{object}	NoteResponse
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/notes/{id} [get]
func (h *Handler) GetNote(w http.ResponseWriter, r *http.Request) {
	n, err := h.svc.Get(r.Context(), OwnerID(r), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, "get note", err)
		return
	}
	writeJSON(w, http.StatusOK, h.respond(n))
}

// CreateNote handles POST /api/notes.
//
//	@Summary		Create a note
//	@Tags			notes
//	@Accept			json
//	@Produce		json
//	@Param			body	body		CreateNoteRequest	true	"Note to create"
//	@Success		201		{object}	NoteResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/notes [post]
func (h *Handler) CreateNote(w http.ResponseWriter, r *http.Request) {
	var req CreateNoteRequest
	if !decodeBody(w, r, &req) {
		return
	}
	n, err := h.svc.Create(r.Context(), req.input(OwnerID(r)))
	if err != nil {
		writeError(w, "create note", err)
		return
	}
	writeJSON(w, http.StatusCreated, h.respond(n))
}

// UpdateNote handles PATCH /api/notes/{id}.
//
//	@Summary		Partially update a note
//	@Tags			notes
//	@Accept			json
//	@Produce		json
//	@Param			id		path		string				true	"Note id"
//	@Param			body	body		UpdateNoteRequest	true	"Changed fields"
//	@Success		200		{object}	NoteResponse
//	@Failure		400		{object}	errResponse
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/notes/{id} [patch]
func (h *Handler) UpdateNote(w http.ResponseWriter, r *http.Request) {
	var req UpdateNoteRequest
	if !decodeBody(w, r, &req) {
		return
	}
	n, err := h.svc.Update(r.Context(), OwnerID(r), chi.URLParam(r, "id"), req.patch())
	if err != nil {
		writeError(w, "update note", err)
		return
	}
	writeJSON(w, http.StatusOK, h.respond(n))
}

// DeleteNote handles DELETE /api/notes/{id}.
//
//	@Summary		Delete a note
//	@Tags			notes
//	@Param			id	path	string	true	"Note id"
//	@Success		204	"Note deleted"
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/notes/{id} [delete]
func (h *Handler) DeleteNote(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Delete(r.Context(), OwnerID(r), chi.URLParam(r, "id")); err != nil {
		writeError(w, "delete note", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ExtendNote handles POST /api/notes/{id}/extend.
//
//	@Summary		Restart a note's retention window
//	@Tags			notes
//	@Produce		json
//	@Param			id	path		string	true	"Note id"
//	@Success		200	{object}	NoteResponse
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/notes/{id}/extend [post]
func (h *Handler) ExtendNote(w http.ResponseWriter, r *http.Request) {
	n, err := h.svc.ExtendExpiry(r.Context(), OwnerID(r), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, "extend note", err)
		return
	}
	writeJSON(w, http.StatusOK, h.respond(n))
}

// ResetNote handles POST /api/notes/{id}/reset-ai.
//
//	@Summary		Restore fields from the stored AI suggestion
//	@Tags			notes
//	@Accept			json
//	@Produce		json
//	@Param			id		path		string			true	"Note id"
//	@Param			body	body		ResetRequest	false	"Fields to restore"
//	@Success		200		{object}	NoteResponse
//	@Failure		400		{object}	errResponse
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/notes/{id}/reset-ai [post]
func (h *Handler) ResetNote(w http.ResponseWriter, r *http.Request) {
	var req ResetRequest
	if r.ContentLength != 0 && !decodeBody(w, r, &req) {
		return
	}
	n, err := h.svc.ResetToAI(r.Context(), OwnerID(r), chi.URLParam(r, "id"), req.Fields)
	if err != nil {
		writeError(w, "reset note", err)
		return
	}
	writeJSON(w, http.StatusOK, h.respond(n))
}

// Search handles GET /api/search.
//
//	@Summary		Relevance-ranked search across live notes
//	@Tags			search
//	@Produce		json
//	@Param			q			query		string	true	"Search text"
//	@Param			page		query		int		false	"Page number (1-based)"
//	@Param			page_size	query		int		false	"Page size"
//	@Success		200			{object}	NoteListResponse
//	@Security		BearerAuth
//	@Router			/search [get]
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	page, size := paging(r)
	res, err := h.svc.Search(r.Context(), OwnerID(r), r.URL.Query().Get("q"), page, size)
	if err != nil {
		writeError(w, "search", err)
		return
	}
	writeJSON(w, http.StatusOK, h.respondPage(res))
}

// Stats handles GET /api/stats.
//
//	@Summary		Aggregate statistics for the caller's notes
//	@Tags			stats
//	@Produce		json
//	@Success		200	{object}	models.Stats
//	@Security		BearerAuth
//	@Router			/stats [get]
func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	st, err := h.svc.Stats(r.Context(), OwnerID(r))
	if err != nil {
		writeError(w, "stats", err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

// Suggest handles POST /api/suggest.
//
//	@Summary		Propose a title and summary for text
//	@Tags			ai
//	@Accept			json
//	@Produce		json
//	@Param			body	body		SuggestRequest	true	"Text to summarise"
//	@Success		200		{object}	ai.Suggestion
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/suggest [post]
func (h *Handler) Suggest(w http.ResponseWriter, r *http.Request) {
	var req SuggestRequest
	if !decodeBody(w, r, &req) {
		return
	}
	sug, err := h.svc.Suggest(r.Context(), req.Text)
	if err != nil {
		writeError(w, "suggest", err)
		return
	}
	writeJSON(w, http.StatusOK, sug)
}
