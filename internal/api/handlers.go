package api

import (
	"net/http"
	"net/url"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/starford/schemakit/internal/bsonschema"
	"github.com/starford/schemakit/internal/checksum"
	"github.com/starford/schemakit/internal/docservice"
	"github.com/starford/schemakit/internal/models"
	"github.com/starford/schemakit/internal/variant"
	"github.com/starford/schemakit/internal/version"
)

// Handler holds API route handlers.
type Handler struct {
	svc *docservice.Service
}

// NewHandler creates a new Handler.
func NewHandler(svc *docservice.Service) *Handler {
	return &Handler{svc: svc}
}

// target extracts the document kind and file name from the URL.
// Supports encoded file names from OpenAPI clients.
func target(r *http.Request) (models.DocumentKind, string, error) {
	kind, err := models.ParseDocumentKind(chi.URLParam(r, "kind"))
	if err != nil {
		return "", "", err
	}
	raw := chi.URLParam(r, "file")
	if decoded, err := url.PathUnescape(raw); err == nil {
		raw = decoded
	}
	if _, err := models.FamilyOf(kind, raw); err != nil {
		return "", "", err
	}
	return kind, raw, nil
}

// ifMatch reads the If-Match header, stripping ETag quotes.
func ifMatch(r *http.Request) string {
	return checksum.FromETag(r.Header.Get("If-Match"))
}

func writeDocument(w http.ResponseWriter, status int, d *DocumentDetail) {
	w.Header().Set("ETag", checksum.ETag(d.Checksum))
	writeJSON(w, status, d)
}

// ListDocuments handles GET /api/documents/{kind}.
//
//	@Summary		List stored documents of one kind
//	@Tags			documents
//	@Produce		json
//	@Param			kind	path		string	true	"Document kind"	Enums(dictionaries, types, enumerators)
//	@Param			name	query		string	false	"Restrict to one family"
//	@Success		200		{object}	DocumentListResponse
//	@Security		BearerAuth
//	@Router			/documents/{kind} [get]
func (h *Handler) ListDocuments(w http.ResponseWriter, r *http.Request) {
	kind, err := models.ParseDocumentKind(chi.URLParam(r, "kind"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	var items []models.Listing
	if name := r.URL.Query().Get("name"); name != "" {
		items, err = h.svc.ListFamily(r.Context(), models.Family{Kind: kind, Name: name})
	} else {
		items, err = h.svc.List(r.Context(), kind)
	}
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, DocumentListResponse{Documents: items, Total: len(items)})
}

// GetDocument handles GET /api/documents/{kind}/{file}.
//
//	@Summary		Get a single document
//	@Tags			documents
//	@Produce		json
//	@Param			kind	path		string	true	"Document kind"
//	@Param			file	path		string	true	"File name"
//	@Success		200		{object}	DocumentDetail
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/documents/{kind}/{file} [get]
func (h *Handler) GetDocument(w http.ResponseWriter, r *http.Request) {
	kind, file, err := target(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	d, err := h.svc.Get(r.Context(), kind, file)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeDocument(w, http.StatusOK, d)
}

// RawDocument handles GET /api/documents/{kind}/{file}/raw.
//
//	@Summary		Download the stored YAML of a document
//	@Tags			documents
//	@Produce		application/yaml
//	@Param			kind	path	string	true	"Document kind"
//	@Param			file	path	string	true	"File name"
//	@Success		200
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/documents/{kind}/{file}/raw [get]
func (h *Handler) RawDocument(w http.ResponseWriter, r *http.Request) {
	kind, file, err := target(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	raw, err := h.svc.Raw(r.Context(), kind, file)
	if err != nil {
		writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/yaml")
	w.Header().Set("ETag", checksum.ETag(raw.Checksum))
	w.Header().Set("Content-Disposition", `attachment; filename="`+file+`"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(raw.Data)
}

// PutDocument handles PUT /api/documents/{kind}/{file}.
//
//	@Summary		Create or replace a document with optimistic concurrency
//	@Tags			documents
//	@Accept			json
//	@Produce		json
//	@Param			kind		path	string				true	"Document kind"
//	@Param			file		path	string				true	"File name"
//	@Param			If-Match	header	string				false	"SHA-256 checksum for optimistic concurrency"
//	@Param			body		body	PutDocumentRequest	true	"Document body"
//	@Success		200			{object}	DocumentDetail
//	@Success		201			{object}	DocumentDetail
//	@Failure		400			{object}	errResponse
//	@Failure		409			{object}	errResponse
//	@Failure		423			{object}	errResponse
//	@Security		BearerAuth
//	@Router			/documents/{kind}/{file} [put]
func (h *Handler) PutDocument(w http.ResponseWriter, r *http.Request) {
	kind, file, err := target(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req PutDocumentRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := req.Validate(kind); err != nil {
		writeError(w, r, err)
		return
	}

	var (
		d       *DocumentDetail
		created bool
	)
	if kind == models.DocEnumerators {
		d, created, err = h.svc.PutEnumerators(r.Context(), file, &models.EnumeratorDocument{
			FileName:     file,
			Enumerations: req.Enumerations,
		}, ifMatch(r))
	} else {
		d, created, err = h.svc.PutDocument(r.Context(), kind, file, &models.Document{
			FileName: file,
			Root:     req.Root,
		}, ifMatch(r))
	}
	if err != nil {
		writeError(w, r, err)
		return
	}
	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	writeDocument(w, status, d)
}

// DeleteDocument handles DELETE /api/documents/{kind}/{file}.
//
//	@Summary		Delete an unlocked document
//	@Tags			documents
//	@Param			kind	path	string	true	"Document kind"
//	@Param			file	path	string	true	"File name"
//	@Success		204		"Document deleted"
//	@Failure		404		{object}	errResponse
//	@Failure		423		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/documents/{kind}/{file} [delete]
func (h *Handler) DeleteDocument(w http.ResponseWriter, r *http.Request) {
	kind, file, err := target(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.svc.Delete(r.Context(), kind, file); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ApplyOps handles POST /api/documents/{kind}/{file}/ops.
//
//	@Summary		Apply a batch of tree edits and save
//	@Tags			documents
//	@Accept			json
//	@Produce		json
//	@Param			kind		path	string		true	"Document kind"
//	@Param			file		path	string		true	"File name"
//	@Param			If-Match	header	string		false	"SHA-256 checksum for optimistic concurrency"
//	@Param			body		body	OpsRequest	true	"Edit batch"
//	@Success		200			{object}	OpsResponse
//	@Failure		400			{object}	errResponse
//	@Failure		404			{object}	errResponse
//	@Failure		422			{object}	errResponse
//	@Failure		423			{object}	errResponse
//	@Security		BearerAuth
//	@Router			/documents/{kind}/{file}/ops [post]
func (h *Handler) ApplyOps(w http.ResponseWriter, r *http.Request) {
	kind, file, err := target(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req OpsRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := req.Validate(); err != nil {
		writeError(w, r, err)
		return
	}
	d, res, err := h.svc.ApplyOps(r.Context(), kind, file, req.Ops, ifMatch(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	w.Header().Set("ETag", checksum.ETag(d.Checksum))
	writeJSON(w, http.StatusOK, OpsResponse{Document: d, Events: res.Events, Added: res.Added})
}

// LockDocument handles POST /api/documents/{kind}/{file}/lock.
//
//	@Summary		Lock a document
//	@Tags			versions
//	@Produce		json
//	@Param			kind	path		string	true	"Document kind"
//	@Param			file	path		string	true	"File name"
//	@Success		200		{object}	DocumentDetail
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/documents/{kind}/{file}/lock [post]
func (h *Handler) LockDocument(w http.ResponseWriter, r *http.Request) {
	kind, file, err := target(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	d, err := h.svc.Lock(r.Context(), kind, file)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeDocument(w, http.StatusOK, d)
}

// UnlockDocument handles POST /api/documents/{kind}/{file}/unlock.
//
//	@Summary		Unlock the newest version of a family
//	@Tags			versions
//	@Produce		json
//	@Param			kind	path		string	true	"Document kind"
//	@Param			file	path		string	true	"File name"
//	@Success		200		{object}	DocumentDetail
//	@Failure		404		{object}	errResponse
//	@Failure		409		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/documents/{kind}/{file}/unlock [post]
func (h *Handler) UnlockDocument(w http.ResponseWriter, r *http.Request) {
	kind, file, err := target(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	d, err := h.svc.Unlock(r.Context(), kind, file)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeDocument(w, http.StatusOK, d)
}

// BSONSchema handles GET /api/documents/{kind}/{file}/bson-schema.
//
//	@Summary		Export a document as a MongoDB $jsonSchema validator
//	@Tags			export
//	@Produce		json
//	@Produce		application/bson
//	@Param			kind	path	string	true	"Document kind"	Enums(dictionaries, types)
//	@Param			file	path	string	true	"File name"
//	@Param			format	query	string	false	"Output format"	Enums(json, bson)
//	@Success		200
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/documents/{kind}/{file}/bson-schema [get]
func (h *Handler) BSONSchema(w http.ResponseWriter, r *http.Request) {
	kind, file, err := target(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	validator, err := h.svc.BSONSchema(r.Context(), kind, file)
	if err != nil {
		writeError(w, r, err)
		return
	}

	var (
		data        []byte
		contentType string
	)
	switch r.URL.Query().Get("format") {
	case "", "json":
		data, err = bsonschema.MarshalJSON(validator)
		contentType = "application/json; charset=utf-8"
	case "bson":
		data, err = bsonschema.Marshal(validator)
		contentType = "application/bson"
	default:
		writeJSON(w, http.StatusBadRequest, errorBody("format must be json or bson"))
		return
	}
	if err != nil {
		writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

// CreateVersion handles POST /api/families/{kind}/{name}/versions.
//
//	@Summary		Lock the newest version and store its successor
//	@Tags			versions
//	@Accept			json
//	@Produce		json
//	@Param			kind	path		string			true	"Document kind"
//	@Param			name	path		string			true	"Family name"
//	@Param			body	body		VersionRequest	false	"Components to bump"
//	@Success		201		{object}	DocumentDetail
//	@Failure		400		{object}	errResponse
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/families/{kind}/{name}/versions [post]
func (h *Handler) CreateVersion(w http.ResponseWriter, r *http.Request) {
	kind, err := models.ParseDocumentKind(chi.URLParam(r, "kind"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req VersionRequest
	if kind != models.DocEnumerators && !decodeJSON(w, r, &req) {
		return
	}
	d, err := h.svc.CreateVersion(r.Context(), kind, chi.URLParam(r, "name"), version.Bump{
		Major:       req.Major,
		Minor:       req.Minor,
		Patch:       req.Patch,
		Enumerators: req.Enumerators,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeDocument(w, http.StatusCreated, d)
}

// Variants handles GET /api/variants.
//
//	@Summary		List the property kinds offered at a position
//	@Tags			editor
//	@Produce		json
//	@Param			kind	query		string	true	"Document kind"	Enums(dictionaries, types)
//	@Param			slot	query		string	true	"Position"		Enums(root, property, items)
//	@Success		200		{object}	VariantsResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/variants [get]
func (h *Handler) Variants(w http.ResponseWriter, r *http.Request) {
	q := VariantsQuery{Kind: r.URL.Query().Get("kind"), Slot: r.URL.Query().Get("slot")}
	if err := q.Validate(); err != nil {
		writeError(w, r, err)
		return
	}
	kinds := h.svc.Variants(models.DocumentKind(q.Kind), variant.Slot(q.Slot))
	writeJSON(w, http.StatusOK, VariantsResponse{Kinds: kinds})
}

// Search handles GET /api/search.
//
//	@Summary		Full-text search across documents
//	@Tags			search
//	@Produce		json
//	@Param			q		query		string	true	"Search query"
//	@Param			limit	query		int		false	"Max results"
//	@Success		200		{object}	SearchResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/search [get]
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	if q == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("query parameter 'q' is required"))
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	results, err := h.svc.Search(r.Context(), q, limit)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, SearchResponse{Results: results})
}

// References handles GET /api/references/{name}.
//
//	@Summary		List the documents that use a type, dictionary or enumeration
//	@Tags			search
//	@Produce		json
//	@Param			name	path		string	true	"Referenced name"
//	@Success		200		{object}	ReferencesResponse
//	@Security		BearerAuth
//	@Router			/references/{name} [get]
func (h *Handler) References(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	refs, err := h.svc.References(r.Context(), name)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ReferencesResponse{Name: name, References: refs})
}
