package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/akinalp/atelier/models"
	"github.com/akinalp/atelier/pkg"
	"github.com/akinalp/atelier/services"
)

// PressHandler serves /api/admin/press.
type PressHandler struct {
	pressService services.PressService
}

func NewPressHandler(pressService services.PressService) *PressHandler {
	return &PressHandler{pressService: pressService}
}

// List godoc
// GET /api/admin/press
func (h *PressHandler) List(w http.ResponseWriter, r *http.Request) {
	items, err := h.pressService.ListAll(r.Context())
	if err != nil {
		pkg.Error(w, err)
		return
	}

	pkg.JSON(w, http.StatusOK, items)
}

// Create godoc
// POST /api/admin/press
// Body: { "kind": "press", "url": "https://..." } plus optional overrides.
// Empty fields are filled from the article's Open Graph tags.
func (h *PressHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req models.CreatePressRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkg.ErrorWithMessage(w, http.StatusBadRequest, "invalid request body")
		return
	}

	item, err := h.pressService.Create(r.Context(), &req)
	if err != nil {
		pkg.Error(w, err)
		return
	}

	pkg.JSON(w, http.StatusCreated, item)
}

// Update godoc
// PATCH /api/admin/press/{id}
func (h *PressHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req models.UpdatePressRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkg.ErrorWithMessage(w, http.StatusBadRequest, "invalid request body")
		return
	}

	item, err := h.pressService.Update(r.Context(), r.PathValue("id"), &req)
	if err != nil {
		pkg.Error(w, err)
		return
	}

	pkg.JSON(w, http.StatusOK, item)
}

// Delete godoc
// DELETE /api/admin/press/{id}
func (h *PressHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.pressService.Delete(r.Context(), r.PathValue("id")); err != nil {
		pkg.Error(w, err)
		return
	}

	pkg.JSON(w, http.StatusOK, map[string]string{"message": "press item deleted"})
}

// Preview godoc
// POST /api/admin/press/preview
// Body: { "url": "https://..." }
// Lets the editor show what Create would fill in.
func (h *PressHandler) Preview(w http.ResponseWriter, r *http.Request) {
	var req models.PreviewRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkg.ErrorWithMessage(w, http.StatusBadRequest, "invalid request body")
		return
	}

	preview, err := h.pressService.Preview(r.Context(), req.URL)
	if err != nil {
		pkg.Error(w, err)
		return
	}

	pkg.JSON(w, http.StatusOK, preview)
}

// Refresh godoc
// POST /api/admin/press/{id}/refresh
func (h *PressHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	item, err := h.pressService.Refresh(r.Context(), r.PathValue("id"))
	if err != nil {
		pkg.Error(w, err)
		return
	}

	pkg.JSON(w, http.StatusOK, item)
}

// RefreshAll godoc
// POST /api/admin/press/refresh
// Response: { "refreshed": 12, "failed": 1 }
func (h *PressHandler) RefreshAll(w http.ResponseWriter, r *http.Request) {
	result, err := h.pressService.RefreshAll(r.Context())
	if err != nil {
		pkg.Error(w, err)
		return
	}

	pkg.JSON(w, http.StatusOK, result)
}
