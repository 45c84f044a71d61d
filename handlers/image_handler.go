package handlers

import (
	"net/http"

	"conhub/middleware"
	"conhub/models"
	"conhub/services"
	"conhub/utils/errors"
)

type ImageHandler struct {
	imageService *services.ImageService
}

type UploadResponse struct {
	ID   string           `json:"id"`
	Type models.ImageType `json:"type"`
}

func NewImageHandler(imageService *services.ImageService) *ImageHandler {
	return &ImageHandler{imageService: imageService}
}

// Upload accepts a multipart form with the file in the "image" field and
// the kind in the "type" query parameter.
func (h *ImageHandler) Upload(w http.ResponseWriter, r *http.Request) {
	userID, err := sessionUser(r)
	if err != nil {
		middleware.WriteError(w, err)
		return
	}
	kind := models.ImageType(r.URL.Query().Get("type"))
	if !kind.Valid() {
		middleware.WriteError(w, errors.Invalid("type must be one of: profile post"))
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, services.MaxImageSize+1<<20)
	file, _, err := r.FormFile("image")
	if err != nil {
		middleware.WriteError(w, errors.NewAPIError(errors.ErrInvalidInput.Code, "image file is required", http.StatusBadRequest, err.Error()))
		return
	}
	defer file.Close()

	image, err := h.imageService.Upload(r.Context(), userID, kind, file)
	if err != nil {
		middleware.WriteError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, UploadResponse{ID: image.ID.Hex(), Type: image.Type})
}

func (h *ImageHandler) Serve(w http.ResponseWriter, r *http.Request) {
	imageID, err := pathID(r, "id")
	if err != nil {
		middleware.WriteError(w, err)
		return
	}
	path, err := h.imageService.Path(r.Context(), imageID)
	if err != nil {
		middleware.WriteError(w, err)
		return
	}
	w.Header().Set("Cache-Control", "public, max-age=86400")
	http.ServeFile(w, r, path)
}
