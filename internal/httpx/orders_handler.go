package httpx

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/yashdave727/csc301-a2/internal/orders"
)

type placeOrderReq struct {
	Command   string `json:"command"`
	UserID    int64  `json:"user_id"`
	ProductID int64  `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

type placeOrderResp struct {
	Status  string `json:"status"`
	OrderID int64  `json:"order_id,omitempty"`
	Error   string `json:"error,omitempty"`
}

func (h *Handlers) placeOrder(w http.ResponseWriter, r *http.Request) {
	var req placeOrderReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, placeOrderResp{Status: "Invalid Request", Error: "invalid json"})
		return
	}
	if req.Command != "place order" {
		writeJSON(w, http.StatusBadRequest, placeOrderResp{Status: "Invalid Request", Error: "unknown command"})
		return
	}

	ctx, cancel := reqCtx(r)
	defer cancel()

	orderID, err := h.Engine.PlaceOrder(ctx, req.UserID, req.ProductID, req.Quantity)
	if err != nil {
		code := http.StatusInternalServerError
		if errors.Is(err, orders.ErrInvalidQuantity) ||
			errors.Is(err, orders.ErrUnknownUser) ||
			errors.Is(err, orders.ErrUnknownProduct) ||
			errors.Is(err, orders.ErrInsufficientStock) {
			code = http.StatusBadRequest
		}
		writeJSON(w, code, placeOrderResp{Status: "Invalid Request", Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, placeOrderResp{Status: "Success", OrderID: orderID})
}

func (h *Handlers) getPurchased(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		errJSON(w, http.StatusBadRequest, "invalid id")
		return
	}

	ctx, cancel := reqCtx(r)
	defer cancel()

	view, err := h.Engine.Purchased(ctx, id)
	if err != nil {
		errJSON(w, http.StatusInternalServerError, "aggregate failed")
		return
	}
	// An empty view is a 404, matching the original service: no orders
	// and no such user look the same here.
	if len(view) == 0 {
		writeJSON(w, http.StatusNotFound, map[string]any{})
		return
	}
	writeJSON(w, http.StatusOK, view)
}
