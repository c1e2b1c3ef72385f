package httpx

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/yashdave727/csc301-a2/internal/cache"
	"github.com/yashdave727/csc301-a2/internal/records"
	"github.com/yashdave727/csc301-a2/internal/store"
)

type productCommandReq struct {
	Command     string  `json:"command"`
	ID          int64   `json:"id"`
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Price       float64 `json:"price"`
	Quantity    int     `json:"quantity"`
}

func (h *Handlers) productCommand(w http.ResponseWriter, r *http.Request) {
	var req productCommandReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errJSON(w, http.StatusBadRequest, "invalid json")
		return
	}
	if req.Price < 0 || req.Quantity < 0 {
		errJSON(w, http.StatusBadRequest, "price and quantity must be non-negative")
		return
	}

	ctx, cancel := reqCtx(r)
	defer cancel()

	p := records.Product{
		ID: req.ID, Name: req.Name, Description: req.Description,
		Price: req.Price, Quantity: req.Quantity,
	}

	switch req.Command {
	case "create":
		if req.Name == "" {
			errJSON(w, http.StatusBadRequest, "missing fields")
			return
		}
		if err := h.Admin.CreateProduct(ctx, p); err != nil {
			if errors.Is(err, store.ErrDuplicate) {
				errJSON(w, http.StatusConflict, "product already exists")
				return
			}
			errJSON(w, http.StatusInternalServerError, "create failed")
			return
		}
		writeJSON(w, http.StatusOK, p)

	case "update":
		if err := h.Admin.UpdateProduct(ctx, p); err != nil {
			if errors.Is(err, records.ErrNotFound) {
				errJSON(w, http.StatusNotFound, "product not found")
				return
			}
			errJSON(w, http.StatusInternalServerError, "update failed")
			return
		}
		h.invalidate(r, cache.ProductKey(req.ID))
		writeJSON(w, http.StatusOK, p)

	case "delete":
		if err := h.Admin.DeleteProduct(ctx, req.ID); err != nil {
			if errors.Is(err, records.ErrNotFound) {
				errJSON(w, http.StatusNotFound, "product not found")
				return
			}
			errJSON(w, http.StatusInternalServerError, "delete failed")
			return
		}
		h.invalidate(r, cache.ProductKey(req.ID))
		writeJSON(w, http.StatusOK, map[string]any{"id": req.ID, "status": "deleted"})

	default:
		errJSON(w, http.StatusBadRequest, "unknown command")
	}
}

func (h *Handlers) getProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		errJSON(w, http.StatusBadRequest, "invalid id")
		return
	}

	ctx, cancel := reqCtx(r)
	defer cancel()

	p, err := h.Reader.Product(ctx, id)
	if err != nil {
		if errors.Is(err, records.ErrNotFound) {
			errJSON(w, http.StatusNotFound, "product not found")
			return
		}
		errJSON(w, http.StatusInternalServerError, "lookup failed")
		return
	}
	writeJSON(w, http.StatusOK, p)
}
