package controllers

import (
	"context"
	"encoding/json"
	"net/http"

	"carechat_server/services"
)

// MediaAPI is the upload collaborator surface used by the REST façade.
type MediaAPI interface {
	CreateUploadURL(ctx context.Context, fileName, mimeType string, sizeBytes int64) (*services.UploadTicket, error)
}

// MediaController hands out presigned upload tickets for attachments.
type MediaController struct {
	Media MediaAPI
}

// NewMediaController initializes the media controller
func NewMediaController(media MediaAPI) *MediaController {
	return &MediaController{Media: media}
}

// HandleCreateUploadURL - POST /api/media/upload-url
func (c *MediaController) HandleCreateUploadURL(w http.ResponseWriter, r *http.Request) {
	var request struct {
		FileName  string `json:"fileName" validate:"required"`
		MimeType  string `json:"mimeType" validate:"required"`
		SizeBytes int64  `json:"sizeBytes"`
	}
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		WriteValidationError(w, "Invalid request body")
		return
	}
	if err := validate.Struct(request); err != nil {
		WriteValidationError(w, "Missing required fields: fileName or mimeType")
		return
	}

	ticket, err := c.Media.CreateUploadURL(r.Context(), request.FileName, request.MimeType, request.SizeBytes)
	if err != nil {
		WriteError(w, err)
		return
	}

	WriteSuccess(w, http.StatusOK, "Upload URL created", ticket)
}
