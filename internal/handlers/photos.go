package handlers

import (
	"io"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"eventbook-backend/internal/web"
)

const maxPhotoSize = 10 << 20 // 10 MiB

// UploadEventPhoto stores the uploaded image on the file store and points the
// event's photo column at it. No transcoding; the file is written as-is.
func (h *Handler) UploadEventPhoto(w http.ResponseWriter, r *http.Request) {
	event, ok := EventFromContext(r.Context())
	if !ok {
		web.Error(w, http.StatusInternalServerError, "internal_error", "internal server error")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxPhotoSize)
	if err := r.ParseMultipartForm(maxPhotoSize); err != nil {
		web.Error(w, http.StatusBadRequest, "validation_error", "invalid multipart body")
		return
	}

	file, _, err := r.FormFile("photo")
	if err != nil {
		web.Error(w, http.StatusBadRequest, "validation_error", "photo field is required")
		return
	}
	defer file.Close()

	head := make([]byte, 512)
	n, err := file.Read(head)
	if err != nil && err != io.EOF {
		web.Error(w, http.StatusBadRequest, "validation_error", "unreadable upload")
		return
	}
	if !strings.HasPrefix(http.DetectContentType(head[:n]), "image/") {
		web.Error(w, http.StatusBadRequest, "validation_error", "not an image, please upload a valid image type")
		return
	}

	if err := os.MkdirAll(h.photoDir, 0o755); err != nil {
		log.Printf("Error creating photo dir: %v", err)
		web.Error(w, http.StatusInternalServerError, "internal_error", "internal server error")
		return
	}

	filename := event.ID + ".jpg"
	dst, err := os.Create(filepath.Join(h.photoDir, filename))
	if err != nil {
		log.Printf("Error creating photo file: %v", err)
		web.Error(w, http.StatusInternalServerError, "internal_error", "internal server error")
		return
	}
	defer dst.Close()

	if _, err := dst.Write(head[:n]); err == nil {
		_, err = io.Copy(dst, file)
	}
	if err != nil {
		log.Printf("Error writing photo file: %v", err)
		web.Error(w, http.StatusInternalServerError, "internal_error", "internal server error")
		return
	}

	if err := h.store.UpdateEventPhoto(r.Context(), event.ID, filename); err != nil {
		log.Printf("Error updating event photo: %v", err)
		web.Error(w, http.StatusInternalServerError, "internal_error", "internal server error")
		return
	}

	event.Photo = filename
	h.publish(event, "", "updated")
	web.JSON(w, http.StatusOK, event)
}
