package handlers

import (
	"io"
	"net/http"

	"github.com/akinalp/atelier/models"
	"github.com/akinalp/atelier/pkg"
	"github.com/akinalp/atelier/pkg/i18n"
	"github.com/akinalp/atelier/services"
)

// maxSectionBody bounds a section payload; the largest schema (about with
// twenty paragraphs) stays well below it.
const maxSectionBody = 256 << 10

// SectionHandler serves the CMS section editor under /api/admin/sections.
type SectionHandler struct {
	sectionService services.SectionService
}

func NewSectionHandler(sectionService services.SectionService) *SectionHandler {
	return &SectionHandler{sectionService: sectionService}
}

// List godoc
// GET /api/admin/sections?locale=fr
// Without ?locale the request language is used.
func (h *SectionHandler) List(w http.ResponseWriter, r *http.Request) {
	locale := r.URL.Query().Get("locale")
	if locale == "" {
		locale = i18n.LangFromContext(r.Context())
	}

	sections, err := h.sectionService.List(r.Context(), locale)
	if err != nil {
		pkg.Error(w, err)
		return
	}

	pkg.JSON(w, http.StatusOK, sections)
}

// Schema godoc
// GET /api/admin/sections/schema
func (h *SectionHandler) Schema(w http.ResponseWriter, r *http.Request) {
	pkg.JSON(w, http.StatusOK, h.sectionService.Schema())
}

// Get godoc
// GET /api/admin/sections/{key}/{locale}
// Falls back to the default locale like the public pages do.
func (h *SectionHandler) Get(w http.ResponseWriter, r *http.Request) {
	section, err := h.sectionService.Get(r.Context(), models.SectionKey(r.PathValue("key")), r.PathValue("locale"))
	if err != nil {
		pkg.Error(w, err)
		return
	}

	pkg.JSON(w, http.StatusOK, section)
}

// Upsert godoc
// PUT /api/admin/sections/{key}/{locale}
// Body: the section JSON, e.g. {"title": "...", "subtitle": "..."} for hero.
func (h *SectionHandler) Upsert(w http.ResponseWriter, r *http.Request) {
	raw, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxSectionBody))
	if err != nil {
		pkg.ErrorWithMessage(w, http.StatusBadRequest, "invalid request body")
		return
	}

	section, err := h.sectionService.Upsert(r.Context(), models.SectionKey(r.PathValue("key")), r.PathValue("locale"), raw)
	if err != nil {
		pkg.Error(w, err)
		return
	}

	pkg.JSON(w, http.StatusOK, section)
}

// Delete godoc
// DELETE /api/admin/sections/{key}/{locale}
func (h *SectionHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.sectionService.Delete(r.Context(), models.SectionKey(r.PathValue("key")), r.PathValue("locale")); err != nil {
		pkg.Error(w, err)
		return
	}

	pkg.JSON(w, http.StatusOK, map[string]string{"message": "section deleted"})
}
