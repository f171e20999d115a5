package media

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/mediavault/service/internal/auth"
	"github.com/mediavault/service/internal/response"
	"github.com/mediavault/service/internal/storage"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// Handler holds HTTP handlers for media endpoints.
type Handler struct {
	svc       *Service
	store     storage.Storage
	maxUpload int64
}

// NewHandler creates a new media Handler. store is used directly only by
// the admin audit listing; everything else goes through the service.
func NewHandler(svc *Service, store storage.Storage, maxUpload int64) *Handler {
	return &Handler{svc: svc, store: store, maxUpload: maxUpload}
}

type updateRequest struct {
	Title       *string  `json:"title"`
	Description *string  `json:"description"`
	Category    *string  `json:"category"`
	Tags        []string `json:"tags"`
}

type downloadData struct {
	URL string `json:"url"`
}

// Upload godoc
//
//	@Summary		Upload media
//	@Description	Multipart upload: "file" part plus string fields title (required), description, category, and tags (JSON array of strings, comma-separated accepted).
//	@Tags			media
//	@Accept			multipart/form-data
//	@Produce		json
//	@Security		BearerAuth
//	@Param			file	formData	file	true	"Media bytes"
//	@Param			title	formData	string	true	"Display title"
//	@Success		201		{object}	response.Envelope{data=Media}
//	@Failure		400		{object}	response.Envelope
//	@Failure		401		{object}	response.Envelope
//	@Failure		413		{object}	response.Envelope
//	@Failure		503		{object}	response.Envelope
//	@Router			/media [post]
func (h *Handler) Upload(w http.ResponseWriter, r *http.Request) {
	p, ok := auth.PrincipalFromContext(r.Context())
	if !ok {
		response.Unauthorized(w, "authorization required")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.maxUpload)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			response.PayloadTooLarge(w, "upload exceeds size limit")
			return
		}
		response.BadRequest(w, "invalid multipart body")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		response.BadRequest(w, "file part is required")
		return
	}
	defer file.Close()

	title := strings.TrimSpace(r.FormValue("title"))
	if title == "" {
		response.BadRequest(w, "title is required")
		return
	}

	meta := UploadMeta{
		FileName:    header.Filename,
		Title:       title,
		Description: optionalField(r.FormValue("description")),
		Category:    optionalField(r.FormValue("category")),
		Tags:        parseTags(r.FormValue("tags")),
	}

	contentType := header.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	rec, err := h.svc.Upload(r.Context(), p, file, header.Size, contentType, meta)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	response.Created(w, rec)
}

// List godoc
//
//	@Summary		List media
//	@Description	Paginated listing of the caller's media, with optional category/type/search filters. Every item carries a fresh access URL.
//	@Tags			media
//	@Produce		json
//	@Security		BearerAuth
//	@Param			category	query		string	false	"Exact category"
//	@Param			type		query		string	false	"Content type or class prefix, e.g. image"
//	@Param			search		query		string	false	"Substring over title, description, and tags"
//	@Param			page		query		int		false	"Page number (1-based)"
//	@Param			limit		query		int		false	"Page size"
//	@Success		200			{object}	response.Envelope{data=Page}
//	@Failure		401			{object}	response.Envelope
//	@Router			/media [get]
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	p, ok := auth.PrincipalFromContext(r.Context())
	if !ok {
		response.Unauthorized(w, "authorization required")
		return
	}

	q := r.URL.Query()
	page := queryInt(q.Get("page"), 1)
	limit := queryInt(q.Get("limit"), defaultPageSize)
	if limit > maxPageSize {
		limit = maxPageSize
	}

	f := Filter{
		Category: q.Get("category"),
		Type:     q.Get("type"),
		Search:   q.Get("search"),
	}

	records, total, err := h.svc.List(r.Context(), p, f, page, limit)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	response.OK(w, NewPage(records, page, limit, total))
}

// Get godoc
//
//	@Summary		Get one media record
//	@Tags			media
//	@Produce		json
//	@Security		BearerAuth
//	@Param			id	path		string	true	"Media id"
//	@Success		200	{object}	response.Envelope{data=Media}
//	@Failure		404	{object}	response.Envelope
//	@Router			/media/{id} [get]
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	p, id, ok := h.principalAndID(w, r)
	if !ok {
		return
	}

	rec, err := h.svc.Get(r.Context(), p, id)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	response.OK(w, rec)
}

// Download godoc
//
//	@Summary		Get a short-lived download URL
//	@Description	Issues a presigned URL with a download TTL shorter than the browsing TTL.
//	@Tags			media
//	@Produce		json
//	@Security		BearerAuth
//	@Param			id	path		string	true	"Media id"
//	@Success		200	{object}	response.Envelope{data=downloadData}
//	@Failure		404	{object}	response.Envelope
//	@Router			/media/{id}/download [get]
func (h *Handler) Download(w http.ResponseWriter, r *http.Request) {
	p, id, ok := h.principalAndID(w, r)
	if !ok {
		return
	}

	url, err := h.svc.Download(r.Context(), p, id)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	response.OK(w, downloadData{URL: url})
}

// Update godoc
//
//	@Summary		Update media metadata
//	@Description	Partial update of title, description, category, and tags. The stored object is never touched.
//	@Tags			media
//	@Accept			json
//	@Produce		json
//	@Security		BearerAuth
//	@Param			id		path		string			true	"Media id"
//	@Param			request	body		updateRequest	true	"Fields to update"
//	@Success		200		{object}	response.Envelope{data=Media}
//	@Failure		404		{object}	response.Envelope
//	@Router			/media/{id} [patch]
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	p, id, ok := h.principalAndID(w, r)
	if !ok {
		return
	}

	var req updateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "invalid request body")
		return
	}

	rec, err := h.svc.Update(r.Context(), p, id, Update{
		Title:       req.Title,
		Description: req.Description,
		Category:    req.Category,
		Tags:        req.Tags,
	})
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	response.OK(w, rec)
}

// Delete godoc
//
//	@Summary		Delete media
//	@Description	Removes the stored object (idempotently) and the catalog record.
//	@Tags			media
//	@Produce		json
//	@Security		BearerAuth
//	@Param			id	path	string	true	"Media id"
//	@Success		204	"deleted"
//	@Failure		404	{object}	response.Envelope
//	@Router			/media/{id} [delete]
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	p, id, ok := h.principalAndID(w, r)
	if !ok {
		return
	}

	if err := h.svc.Delete(r.Context(), p, id); err != nil {
		h.writeServiceError(w, err)
		return
	}
	response.NoContent(w)
}

// ListObjects godoc
//
//	@Summary		List raw stored objects
//	@Description	Admin-only audit/recovery listing straight from the object store. Ordering is not stable under concurrent mutation; the catalog is the primary listing path.
//	@Tags			admin
//	@Produce		json
//	@Security		BearerAuth
//	@Param			prefix	query		string	false	"Key prefix"
//	@Success		200		{object}	response.Envelope{data=[]storage.ObjectDescriptor}
//	@Failure		403		{object}	response.Envelope
//	@Failure		503		{object}	response.Envelope
//	@Router			/admin/objects [get]
func (h *Handler) ListObjects(w http.ResponseWriter, r *http.Request) {
	it := h.store.List(r.Context(), r.URL.Query().Get("prefix"))

	objects := []storage.ObjectDescriptor{}
	for {
		desc, ok := it.Next()
		if !ok {
			break
		}
		objects = append(objects, desc)
	}
	if it.Err() != nil {
		response.StoreUnavailable(w)
		return
	}

	response.OK(w, objects)
}

func (h *Handler) principalAndID(w http.ResponseWriter, r *http.Request) (auth.Principal, string, bool) {
	p, ok := auth.PrincipalFromContext(r.Context())
	if !ok {
		response.Unauthorized(w, "authorization required")
		return auth.Principal{}, "", false
	}

	id := chi.URLParam(r, "id")
	if _, err := uuid.Parse(id); err != nil {
		response.BadRequest(w, "invalid media id")
		return auth.Principal{}, "", false
	}
	return p, id, true
}

func (h *Handler) writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		response.NotFound(w, "media not found")
	case errors.Is(err, storage.ErrSizeMismatch):
		response.BadRequest(w, "uploaded bytes do not match declared size")
	case errors.Is(err, ErrStoreUnavailable):
		response.StoreUnavailable(w)
	default:
		response.InternalError(w)
	}
}

// parseTags accepts a JSON array of strings, falling back to a
// comma-separated list.
func parseTags(raw string) []string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}

	var tags []string
	if err := json.Unmarshal([]byte(raw), &tags); err == nil {
		return tags
	}

	for _, t := range strings.Split(raw, ",") {
		if t = strings.TrimSpace(t); t != "" {
			tags = append(tags, t)
		}
	}
	return tags
}

func optionalField(v string) *string {
	v = strings.TrimSpace(v)
	if v == "" {
		return nil
	}
	return &v
}

func queryInt(raw string, fallback int) int {
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return fallback
	}
	return n
}
