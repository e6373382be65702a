package httpx

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/tuttiservices/wholesale-backend/internal/uploads"
)

type UploadsHandler struct {
	Storage *uploads.Storage
}

func (h *UploadsHandler) upload(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(uploads.MaxFileSize); err != nil {
		badRequest(w, "invalid multipart form")
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		badRequest(w, "file field is required")
		return
	}
	defer file.Close()

	name, err := h.Storage.Save(header.Filename, file)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{
		"filename": name,
		"url":      "/uploads/" + name,
	})
}

func (h *UploadsHandler) serve(w http.ResponseWriter, r *http.Request) {
	p, err := h.Storage.Path(chi.URLParam(r, "filename"))
	if err != nil {
		writeError(w, err)
		return
	}
	http.ServeFile(w, r, p)
}
