package http

import (
	"net/http"

	"neighbor-storage-backend/internal/domain"
	"neighbor-storage-backend/internal/service"
)

type RentalHandler struct {
	rentals service.RentalService
	reviews service.ReviewService
}

func NewRentalHandler(rentals service.RentalService, reviews service.ReviewService) *RentalHandler {
	return &RentalHandler{rentals: rentals, reviews: reviews}
}

type createRentalRequest struct {
	ItemID     int64 `json:"item_id"`
	Days       int   `json:"days"`
	IsDelivery bool  `json:"is_delivery"`
}

func (h *RentalHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createRentalRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	rt, err := h.rentals.CreateRental(r.Context(), UserIDFromContext(r.Context()), req.ItemID, req.Days, req.IsDelivery)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, rt)
}

func (h *RentalHandler) List(w http.ResponseWriter, r *http.Request) {
	rentals, err := h.rentals.ListRentals(r.Context(), UserIDFromContext(r.Context()))
	if err != nil {
		writeError(w, r, err)
		return
	}
	if rentals == nil {
		rentals = []domain.Rental{}
	}
	writeJSON(w, http.StatusOK, rentals)
}

func (h *RentalHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	rt, err := h.rentals.GetRental(r.Context(), UserIDFromContext(r.Context()), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rt)
}

func (h *RentalHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req struct {
		Status string `json:"status"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	to, err := domain.ParseRentalStatus(req.Status)
	if err != nil {
		writeError(w, r, err)
		return
	}
	rt, err := h.rentals.ApplyTransition(r.Context(), id, to, UserIDFromContext(r.Context()))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rt)
}

func (h *RentalHandler) Review(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req struct {
		Score   int    `json:"score"`
		Comment string `json:"comment"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	review, err := h.reviews.CreateReview(r.Context(), UserIDFromContext(r.Context()), id, req.Score, req.Comment)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, review)
}
