package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/akinalp/atelier/models"
	"github.com/akinalp/atelier/pkg"
	"github.com/akinalp/atelier/services"
)

// multipartOverhead is allowed on top of the file limit for the form framing.
const multipartOverhead = 1 << 20

// ArtworkHandler serves /api/admin/artworks and the image upload.
type ArtworkHandler struct {
	artworkService services.ArtworkService
	uploadService  services.UploadService
	maxUploadSize  int64
}

func NewArtworkHandler(artworkService services.ArtworkService, uploadService services.UploadService, maxUploadSize int64) *ArtworkHandler {
	return &ArtworkHandler{
		artworkService: artworkService,
		uploadService:  uploadService,
		maxUploadSize:  maxUploadSize,
	}
}

// List godoc
// GET /api/admin/artworks
// Every artwork, published or not, in display order.
func (h *ArtworkHandler) List(w http.ResponseWriter, r *http.Request) {
	artworks, err := h.artworkService.ListAll(r.Context())
	if err != nil {
		pkg.Error(w, err)
		return
	}

	pkg.JSON(w, http.StatusOK, artworks)
}

// Get godoc
// GET /api/admin/artworks/{id}
func (h *ArtworkHandler) Get(w http.ResponseWriter, r *http.Request) {
	artwork, err := h.artworkService.GetByID(r.Context(), r.PathValue("id"))
	if err != nil {
		pkg.Error(w, err)
		return
	}

	pkg.JSON(w, http.StatusOK, artwork)
}

// Create godoc
// POST /api/admin/artworks
func (h *ArtworkHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req models.CreateArtworkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkg.ErrorWithMessage(w, http.StatusBadRequest, "invalid request body")
		return
	}

	artwork, err := h.artworkService.Create(r.Context(), &req)
	if err != nil {
		pkg.Error(w, err)
		return
	}

	pkg.JSON(w, http.StatusCreated, artwork)
}

// Update godoc
// PATCH /api/admin/artworks/{id}
// Partial update: absent fields are left alone.
func (h *ArtworkHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req models.UpdateArtworkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkg.ErrorWithMessage(w, http.StatusBadRequest, "invalid request body")
		return
	}

	artwork, err := h.artworkService.Update(r.Context(), r.PathValue("id"), &req)
	if err != nil {
		pkg.Error(w, err)
		return
	}

	pkg.JSON(w, http.StatusOK, artwork)
}

// Delete godoc
// DELETE /api/admin/artworks/{id}
// 409 while an open order holds the artwork.
func (h *ArtworkHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.artworkService.Delete(r.Context(), r.PathValue("id")); err != nil {
		pkg.Error(w, err)
		return
	}

	pkg.JSON(w, http.StatusOK, map[string]string{"message": "artwork deleted"})
}

// Reorder godoc
// PATCH /api/admin/artworks/reorder
// Body: { "items": [{ "id": "...", "position": 0 }, ...] }
func (h *ArtworkHandler) Reorder(w http.ResponseWriter, r *http.Request) {
	var req models.ReorderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkg.ErrorWithMessage(w, http.StatusBadRequest, "invalid request body")
		return
	}

	artworks, err := h.artworkService.Reorder(r.Context(), &req)
	if err != nil {
		pkg.Error(w, err)
		return
	}

	pkg.JSON(w, http.StatusOK, artworks)
}

// Upload godoc
// POST /api/admin/uploads
// Content-Type: multipart/form-data, image in the "file" field.
// Response: { "url": "/uploads/..." , ... }
func (h *ArtworkHandler) Upload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadSize+multipartOverhead)
	if err := r.ParseMultipartForm(h.maxUploadSize); err != nil {
		pkg.ErrorWithMessage(w, http.StatusBadRequest, "file too large or invalid form data")
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		pkg.ErrorWithMessage(w, http.StatusBadRequest, "file field is required")
		return
	}
	defer file.Close()

	upload, err := h.uploadService.Upload(r.Context(), file, header.Filename)
	if err != nil {
		pkg.Error(w, err)
		return
	}

	pkg.JSON(w, http.StatusCreated, upload)
}
