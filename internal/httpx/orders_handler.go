package httpx

import (
	"encoding/json"
	"net/http"

	"github.com/tuttiservices/wholesale-backend/internal/orders"
)

type OrdersHandler struct {
	Service *orders.Service
}

type orderRequest struct {
	Items []orders.ItemInput `json:"items"`
	Notes string             `json:"notes"`
}

func (h *OrdersHandler) create(w http.ResponseWriter, r *http.Request) {
	var in orderRequest
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		badRequest(w, "invalid request body")
		return
	}
	actor := IdentityFrom(r.Context())
	o, err := h.Service.Create(r.Context(), orders.CreateInput{
		UserID: &actor.ID,
		Items:  in.Items,
		Notes:  in.Notes,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, o)
}

func (h *OrdersHandler) createGuest(w http.ResponseWriter, r *http.Request) {
	var in struct {
		orders.GuestProfile
		Items []orders.ItemInput `json:"items"`
		Notes string             `json:"notes"`
	}
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		badRequest(w, "invalid request body")
		return
	}
	o, err := h.Service.Create(r.Context(), orders.CreateInput{
		Guest: &in.GuestProfile,
		Items: in.Items,
		Notes: in.Notes,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, o)
}

// createForUser places an order on behalf of a registered client,
// bypassing per-product minimums.
func (h *OrdersHandler) createForUser(w http.ResponseWriter, r *http.Request) {
	var in struct {
		UserID int64 `json:"user_id"`
		orderRequest
	}
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		badRequest(w, "invalid request body")
		return
	}
	if in.UserID <= 0 {
		badRequest(w, "user_id is required")
		return
	}
	o, err := h.Service.Create(r.Context(), orders.CreateInput{
		UserID:        &in.UserID,
		Items:         in.Items,
		Notes:         in.Notes,
		PlacedByAdmin: true,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, o)
}

func (h *OrdersHandler) list(w http.ResponseWriter, r *http.Request) {
	var status *orders.Status
	if v := r.URL.Query().Get("status"); v != "" {
		s := orders.Status(v)
		if !s.Valid() {
			badRequest(w, "unknown status")
			return
		}
		status = &s
	}
	os, err := h.Service.List(r.Context(), IdentityFrom(r.Context()), status)
	if err != nil {
		writeError(w, err)
		return
	}
	if os == nil {
		os = []orders.Order{}
	}
	writeJSON(w, http.StatusOK, os)
}

func (h *OrdersHandler) get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		badRequest(w, "invalid order id")
		return
	}
	o, err := h.Service.Get(r.Context(), IdentityFrom(r.Context()), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, o)
}

func (h *OrdersHandler) updateStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		badRequest(w, "invalid order id")
		return
	}
	var in struct {
		Status orders.Status `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		badRequest(w, "invalid request body")
		return
	}
	o, err := h.Service.UpdateStatus(r.Context(), id, in.Status)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, o)
}

func (h *OrdersHandler) cancel(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		badRequest(w, "invalid order id")
		return
	}
	if err := h.Service.Cancel(r.Context(), IdentityFrom(r.Context()), id); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "order cancelled"})
}

func (h *OrdersHandler) deletePermanent(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		badRequest(w, "invalid order id")
		return
	}
	if err := h.Service.DeletePermanent(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "order deleted"})
}
