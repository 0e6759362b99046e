package http

import (
	"net/http"

	"neighbor-storage-backend/internal/service"
)

type WalletHandler struct {
	ledger service.LedgerService
}

func NewWalletHandler(ledger service.LedgerService) *WalletHandler {
	return &WalletHandler{ledger: ledger}
}

type amountRequest struct {
	Amount int64 `json:"amount"`
}

func (h *WalletHandler) Get(w http.ResponseWriter, r *http.Request) {
	wallet, err := h.ledger.GetWallet(r.Context(), UserIDFromContext(r.Context()))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, wallet)
}

// TopUp accepts an empty body, which tops up the default amount.
func (h *WalletHandler) TopUp(w http.ResponseWriter, r *http.Request) {
	var req amountRequest
	if r.ContentLength != 0 {
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, r, err)
			return
		}
	}
	wallet, err := h.ledger.TopUp(r.Context(), UserIDFromContext(r.Context()), req.Amount)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, wallet)
}

func (h *WalletHandler) Withdraw(w http.ResponseWriter, r *http.Request) {
	var req amountRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	wallet, err := h.ledger.Withdraw(r.Context(), UserIDFromContext(r.Context()), req.Amount)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, wallet)
}
