package http

import (
	"net/http"

	"neighbor-storage-backend/internal/domain"
	"neighbor-storage-backend/internal/repository"
	"neighbor-storage-backend/internal/service"
)

type ItemHandler struct {
	items   service.ItemService
	reviews service.ReviewService
}

func NewItemHandler(items service.ItemService, reviews service.ReviewService) *ItemHandler {
	return &ItemHandler{items: items, reviews: reviews}
}

func (h *ItemHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	items, err := h.items.ListItems(r.Context(), repository.ItemFilter{OwnerID: q.Get("owner"), Category: q.Get("category")})
	if err != nil {
		writeError(w, r, err)
		return
	}
	if items == nil {
		items = []domain.Item{}
	}
	writeJSON(w, http.StatusOK, items)
}

func (h *ItemHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	item, err := h.items.GetItem(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, item)
}

func (h *ItemHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req service.CreateItemRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	item, err := h.items.CreateItem(r.Context(), UserIDFromContext(r.Context()), req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, item)
}

func (h *ItemHandler) UpdateTerms(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req struct {
		PricePerDay int64 `json:"price_per_day"`
		Deposit     int64 `json:"deposit"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	item, err := h.items.UpdateItemTerms(r.Context(), UserIDFromContext(r.Context()), id, req.PricePerDay, req.Deposit)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, item)
}

func (h *ItemHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.items.DeleteItem(r.Context(), UserIDFromContext(r.Context()), id); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *ItemHandler) Reviews(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	reviews, err := h.reviews.ListItemReviews(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if reviews == nil {
		reviews = []domain.Review{}
	}
	writeJSON(w, http.StatusOK, reviews)
}
