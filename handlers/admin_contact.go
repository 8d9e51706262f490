package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/akinalp/atelier/pkg"
	"github.com/akinalp/atelier/services"
)

const defaultMessageLimit = 100

// ContactHandler serves the inbox under /api/admin/messages.
type ContactHandler struct {
	contactService services.ContactService
}

func NewContactHandler(contactService services.ContactService) *ContactHandler {
	return &ContactHandler{contactService: contactService}
}

// List godoc
// GET /api/admin/messages?limit=100
// Unread first, newest first.
func (h *ContactHandler) List(w http.ResponseWriter, r *http.Request) {
	limit := defaultMessageLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			pkg.ErrorWithMessage(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = n
	}

	messages, err := h.contactService.List(r.Context(), limit)
	if err != nil {
		pkg.Error(w, err)
		return
	}

	pkg.JSON(w, http.StatusOK, messages)
}

// MarkRead godoc
// PATCH /api/admin/messages/{id}
// Body: { "read": true }
func (h *ContactHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Read bool `json:"read"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkg.ErrorWithMessage(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.contactService.MarkRead(r.Context(), r.PathValue("id"), req.Read); err != nil {
		pkg.Error(w, err)
		return
	}

	pkg.JSON(w, http.StatusOK, map[string]bool{"read": req.Read})
}

// Delete godoc
// DELETE /api/admin/messages/{id}
func (h *ContactHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.contactService.Delete(r.Context(), r.PathValue("id")); err != nil {
		pkg.Error(w, err)
		return
	}

	pkg.JSON(w, http.StatusOK, map[string]string{"message": "message deleted"})
}
