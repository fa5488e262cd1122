package api

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/okian/formcoach/internal/adapters/media"
	"github.com/okian/formcoach/internal/domain/apperr"
)

// UploadDependencies stores uploaded videos.
type UploadDependencies interface {
	SaveUpload(ctx context.Context, name string, r io.Reader) (string, error)
}

// UploadsHandler accepts multipart video uploads.
type UploadsHandler struct {
	deps     UploadDependencies
	maxBytes int64
}

// NewUploadsHandler creates a new uploads handler.
func NewUploadsHandler(deps UploadDependencies, maxBytes int64) *UploadsHandler {
	return &UploadsHandler{deps: deps, maxBytes: maxBytes}
}

// UploadResponse carries the stored path, to be echoed back as filePath
// on a later analysis.
type UploadResponse struct {
	FilePath string `json:"filePath"`
}

// HandleUpload handles POST /v1/uploads requests. The video is read from
// the "file" form field.
func (h *UploadsHandler) HandleUpload(w http.ResponseWriter, r *http.Request) {
	// Multipart framing adds a little on top of the file itself.
	r.Body = http.MaxBytesReader(w, r.Body, h.maxBytes+1<<20)

	file, header, err := r.FormFile("file")
	if err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			writeJSON(w, http.StatusRequestEntityTooLarge, errorResponse{Error: ErrUploadTooLarge.Error()})
			return
		}
		writeError(w, apperr.Wrap("api.upload", apperr.ErrValidation, errors.New("multipart field \"file\" is required")))
		return
	}
	defer func() { _ = file.Close() }()

	path, err := h.deps.SaveUpload(r.Context(), header.Filename, file)
	if err != nil {
		if errors.Is(err, media.ErrTooLarge) {
			writeJSON(w, http.StatusRequestEntityTooLarge, errorResponse{Error: ErrUploadTooLarge.Error()})
			return
		}
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, UploadResponse{FilePath: path})
}
