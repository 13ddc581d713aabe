package model

import (
	"io"

	"github.com/m-mizutani/tidepool/pkg/domain/types"
)

// UploadImageInput is a single uploaded file taken from a multipart form
type UploadImageInput struct {
	FileName types.ImageName
	MimeType string
	Size     int64
	Body     io.Reader
}

// UploadedImage is the response of an image upload
type UploadedImage struct {
	URL      string `json:"url"`
	FileName string `json:"fileName"`
	MimeType string `json:"mimeType"`
}
