package http

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/tidepool/pkg/domain/interfaces"
	"github.com/m-mizutani/tidepool/pkg/domain/model"
	"github.com/m-mizutani/tidepool/pkg/domain/types"
)

// multipart overhead allowed on top of the image itself
const multipartSlack = 1 << 20

type imageHandler struct {
	imageUC       interfaces.ImageUseCase
	maxUploadSize int64
}

func (h *imageHandler) uploadImage(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadSize+multipartSlack)

	file, header, err := r.FormFile("file")
	if err != nil {
		var maxErr *http.MaxBytesError
		switch {
		case errors.As(err, &maxErr):
			err = goerr.New(fmt.Sprintf("File too large (max %dMB)", h.maxUploadSize>>20), goerr.T(types.ErrTagBadRequest))
		case errors.Is(err, http.ErrMissingFile), errors.Is(err, http.ErrNotMultipart):
			err = goerr.Wrap(err, "No file uploaded", goerr.T(types.ErrTagBadRequest))
		default:
			err = goerr.Wrap(err, "Invalid multipart body", goerr.T(types.ErrTagBadRequest))
		}
		writeError(w, r, err)
		return
	}
	defer func() { _ = file.Close() }()

	uploaded, err := h.imageUC.UploadImage(r.Context(), userFrom(r.Context()), &model.UploadImageInput{
		FileName: types.ImageName(header.Filename),
		MimeType: header.Header.Get("Content-Type"),
		Size:     header.Size,
		Body:     file,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, uploaded)
}

func (h *imageHandler) listImages(w http.ResponseWriter, r *http.Request) {
	names, err := h.imageUC.ListImages(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, names)
}
