package handler

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/semmidev/cloudvault/internal/domain"
	"github.com/semmidev/cloudvault/internal/infrastructure/logger"
	"github.com/semmidev/cloudvault/internal/usecase"
)

// FileHandler exposes the storage gateway over HTTP.
type FileHandler struct {
	files          *usecase.Files
	logger         *logger.Logger
	maxUploadBytes int64
}

func NewFileHandler(files *usecase.Files, log *logger.Logger, maxUploadBytes int64) *FileHandler {
	return &FileHandler{files: files, logger: log, maxUploadBytes: maxUploadBytes}
}

func (h *FileHandler) Upload(w http.ResponseWriter, r *http.Request) {
	if h.maxUploadBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			Text(w, http.StatusRequestEntityTooLarge, "File too large.")
			return
		}
		Text(w, http.StatusBadRequest, "No file uploaded.")
		return
	}
	defer file.Close()

	// mime/multipart has already reduced the client filename to its base name.
	if _, err := h.files.Upload(r.Context(), header.Filename, file, header.Size); err != nil {
		h.fail(w, err, "Error uploading file.")
		return
	}

	Text(w, http.StatusOK, "File uploaded successfully!")
}

func (h *FileHandler) Download(w http.ResponseWriter, r *http.Request) {
	filename, ok := filenameParam(r)
	if !ok {
		Text(w, http.StatusBadRequest, "Invalid filename.")
		return
	}

	data, err := h.files.Download(r.Context(), filename)
	if err != nil {
		h.fail(w, err, "Error downloading file.")
		return
	}

	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%s", filename))
	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func (h *FileHandler) List(w http.ResponseWriter, r *http.Request) {
	keys, err := h.files.List(r.Context())
	if err != nil {
		h.logger.Errorf("List files: %v", err)
		Text(w, http.StatusInternalServerError, "Unable to list files")
		return
	}

	JSON(w, http.StatusOK, keys)
}

func (h *FileHandler) Delete(w http.ResponseWriter, r *http.Request) {
	filename, ok := filenameParam(r)
	if !ok {
		Text(w, http.StatusBadRequest, "Invalid filename.")
		return
	}

	if _, err := h.files.Delete(r.Context(), filename); err != nil {
		h.fail(w, err, "Error deleting file.")
		return
	}

	Text(w, http.StatusOK, "File deleted successfully!")
}

// fail logs err and answers with message under the status its class maps to.
func (h *FileHandler) fail(w http.ResponseWriter, err error, message string) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		h.logger.Errorf("%s %v", message, err)
	} else {
		h.logger.Warnf("%s %v", message, err)
	}
	Text(w, status, message)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrInvalidArgument):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// chi matches on RawPath when the request carried escapes, so the param
// arrives escaped in that case.
func filenameParam(r *http.Request) (string, bool) {
	name := chi.URLParam(r, "filename")
	if r.URL.RawPath == "" {
		return name, true
	}
	unescaped, err := url.PathUnescape(name)
	if err != nil {
		return "", false
	}
	return unescaped, true
}
