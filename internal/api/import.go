package api

import (
	"fmt"
	"io"
	"net/http"
	"path/filepath"

	"github.com/go-chi/chi/v5"

	"github.com/starford/schemakit/internal/apperr"
	"github.com/starford/schemakit/internal/models"
)

const maxUploadBytes = 5 << 20

// importName validates that the uploaded file name is a plain document
// file name (no path separators, no traversal) for kind.
func importName(kind models.DocumentKind, name string) (string, error) {
	if name == "" {
		return "", fmt.Errorf("%w: filename is required", apperr.ErrInvalidOperation)
	}
	cleaned := filepath.Clean(name)
	if cleaned != filepath.Base(cleaned) || cleaned != name {
		return "", fmt.Errorf("%w: invalid filename: %s", apperr.ErrInvalidOperation, name)
	}
	if _, err := models.FamilyOf(kind, cleaned); err != nil {
		return "", err
	}
	return cleaned, nil
}

// ImportDocument handles POST /api/documents/{kind}/import (multipart/form-data, field "file").
//
//	@Summary		Import a YAML document file
//	@Tags			documents
//	@Accept			multipart/form-data
//	@Produce		json
//	@Param			kind	path		string	true	"Document kind"
//	@Param			file	formData	file	true	"YAML document named <name>.M.m.p.e.yaml or enumerations.N.yaml"
//	@Success		200		{object}	DocumentDetail
//	@Success		201		{object}	DocumentDetail
//	@Failure		400		{object}	errResponse
//	@Failure		423		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/documents/{kind}/import [post]
func (h *Handler) ImportDocument(w http.ResponseWriter, r *http.Request) {
	kind, err := models.ParseDocumentKind(chi.URLParam(r, "kind"))
	if err != nil {
		writeError(w, r, err)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("file too large or invalid multipart"))
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("missing 'file' field in multipart form"))
		return
	}
	defer file.Close()

	name, err := importName(kind, header.Filename)
	if err != nil {
		writeError(w, r, err)
		return
	}

	data, err := io.ReadAll(file)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("failed to read file"))
		return
	}

	d, created, err := h.svc.Import(r.Context(), kind, name, data)
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
