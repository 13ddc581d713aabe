package http

import (
	"encoding/json"
	"net/http"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/tidepool/pkg/domain/interfaces"
	"github.com/m-mizutani/tidepool/pkg/domain/model"
	"github.com/m-mizutani/tidepool/pkg/domain/types"
)

// maxJSONBody bounds page update and preview bodies
const maxJSONBody = 5 << 20

type pageHandler struct {
	contentUC interfaces.ContentUseCase
}

func (h *pageHandler) listPages(w http.ResponseWriter, r *http.Request) {
	list, err := h.contentUC.ListPages(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, list)
}

func (h *pageHandler) readPage(w http.ResponseWriter, r *http.Request) {
	slug := types.Slug(r.URL.Query().Get("slug"))

	page, err := h.contentUC.ReadPage(r.Context(), slug)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, page)
}

func (h *pageHandler) updatePage(w http.ResponseWriter, r *http.Request) {
	slug := types.Slug(r.URL.Query().Get("slug"))

	var input model.UpdatePageInput
	if err := decodeJSON(w, r, &input); err != nil {
		writeError(w, r, err)
		return
	}

	result, err := h.contentUC.UpdatePage(r.Context(), userFrom(r.Context()), slug, &input)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, result)
}

func (h *pageHandler) previewPage(w http.ResponseWriter, r *http.Request) {
	var input model.PreviewInput
	if err := decodeJSON(w, r, &input); err != nil {
		writeError(w, r, err)
		return
	}

	preview, err := h.contentUC.PreviewPage(r.Context(), &input)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, preview)
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	body := http.MaxBytesReader(w, r.Body, maxJSONBody)
	if err := json.NewDecoder(body).Decode(v); err != nil {
		return goerr.Wrap(err, "Invalid JSON body", goerr.T(types.ErrTagBadRequest))
	}
	return nil
}
