package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/akinalp/atelier/models"
	"github.com/akinalp/atelier/pkg"
	"github.com/akinalp/atelier/services"
)

// OrderHandler serves the store back office under /api/admin/orders.
// Orders are settled by hand: the artist confirms payment and shipping here.
type OrderHandler struct {
	storeService services.StoreService
}

func NewOrderHandler(storeService services.StoreService) *OrderHandler {
	return &OrderHandler{storeService: storeService}
}

// List godoc
// GET /api/admin/orders?status=pending&limit=50
func (h *OrderHandler) List(w http.ResponseWriter, r *http.Request) {
	filter := models.OrderFilter{Status: models.OrderStatus(r.URL.Query().Get("status"))}
	if filter.Status != "" && !filter.Status.Valid() {
		pkg.ErrorWithMessage(w, http.StatusBadRequest, "invalid status")
		return
	}
	if v := r.URL.Query().Get("limit"); v != "" {
		limit, err := strconv.Atoi(v)
		if err != nil || limit < 1 {
			pkg.ErrorWithMessage(w, http.StatusBadRequest, "invalid limit")
			return
		}
		filter.Limit = limit
	}

	orders, err := h.storeService.List(r.Context(), filter)
	if err != nil {
		pkg.Error(w, err)
		return
	}

	pkg.JSON(w, http.StatusOK, orders)
}

// Get godoc
// GET /api/admin/orders/{id}
func (h *OrderHandler) Get(w http.ResponseWriter, r *http.Request) {
	order, err := h.storeService.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		pkg.Error(w, err)
		return
	}

	pkg.JSON(w, http.StatusOK, order)
}

// MarkPaid godoc
// POST /api/admin/orders/{id}/paid
// pending -> paid, the artwork becomes sold.
func (h *OrderHandler) MarkPaid(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.storeService.MarkPaid)
}

// MarkShipped godoc
// POST /api/admin/orders/{id}/shipped
func (h *OrderHandler) MarkShipped(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.storeService.MarkShipped)
}

// Cancel godoc
// POST /api/admin/orders/{id}/cancel
// pending -> cancelled, the artwork is available again.
func (h *OrderHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.storeService.Cancel)
}

func (h *OrderHandler) transition(
	w http.ResponseWriter,
	r *http.Request,
	fn func(ctx context.Context, id string) (*models.Order, error),
) {
	order, err := fn(r.Context(), r.PathValue("id"))
	if err != nil {
		pkg.Error(w, err)
		return
	}

	pkg.JSON(w, http.StatusOK, order)
}
