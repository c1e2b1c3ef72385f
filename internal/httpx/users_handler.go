package httpx

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/yashdave727/csc301-a2/internal/cache"
	"github.com/yashdave727/csc301-a2/internal/records"
	"github.com/yashdave727/csc301-a2/internal/store"
)

type userCommandReq struct {
	Command  string `json:"command"`
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *Handlers) userCommand(w http.ResponseWriter, r *http.Request) {
	var req userCommandReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errJSON(w, http.StatusBadRequest, "invalid json")
		return
	}

	ctx, cancel := reqCtx(r)
	defer cancel()

	switch req.Command {
	case "create":
		if req.Username == "" || req.Email == "" || req.Password == "" {
			errJSON(w, http.StatusBadRequest, "missing fields")
			return
		}
		hash, err := records.HashPassword(req.Password)
		if err != nil {
			errJSON(w, http.StatusInternalServerError, "hash failed")
			return
		}
		u := records.User{ID: req.ID, Username: req.Username, Email: req.Email, PasswordHash: hash}
		if err := h.Admin.CreateUser(ctx, u); err != nil {
			if errors.Is(err, store.ErrDuplicate) {
				errJSON(w, http.StatusConflict, "user already exists")
				return
			}
			errJSON(w, http.StatusInternalServerError, "create failed")
			return
		}
		writeJSON(w, http.StatusOK, u)

	case "update":
		u := records.User{ID: req.ID, Username: req.Username, Email: req.Email}
		if req.Password != "" {
			hash, err := records.HashPassword(req.Password)
			if err != nil {
				errJSON(w, http.StatusInternalServerError, "hash failed")
				return
			}
			u.PasswordHash = hash
		}
		if err := h.Admin.UpdateUser(ctx, u); err != nil {
			if errors.Is(err, records.ErrNotFound) {
				errJSON(w, http.StatusNotFound, "user not found")
				return
			}
			errJSON(w, http.StatusInternalServerError, "update failed")
			return
		}
		h.invalidate(r, cache.UserKey(req.ID))
		writeJSON(w, http.StatusOK, map[string]any{"id": req.ID, "status": "updated"})

	case "delete":
		// Deletion requires the caller to present matching
		// credentials, as the original service did.
		current, err := h.Admin.GetUser(ctx, req.ID)
		if err != nil {
			if errors.Is(err, records.ErrNotFound) {
				errJSON(w, http.StatusNotFound, "user not found")
				return
			}
			errJSON(w, http.StatusInternalServerError, "delete failed")
			return
		}
		if current.Username != req.Username || current.Email != req.Email ||
			!records.CheckPassword(current.PasswordHash, req.Password) {
			errJSON(w, http.StatusNotFound, "user details do not match")
			return
		}
		if err := h.Admin.DeleteUser(ctx, req.ID); err != nil {
			if errors.Is(err, records.ErrNotFound) {
				errJSON(w, http.StatusNotFound, "user not found")
				return
			}
			errJSON(w, http.StatusInternalServerError, "delete failed")
			return
		}
		h.invalidate(r, cache.UserKey(req.ID))
		writeJSON(w, http.StatusOK, map[string]any{"id": req.ID, "status": "deleted"})

	default:
		errJSON(w, http.StatusBadRequest, "unknown command")
	}
}

func (h *Handlers) getUser(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		errJSON(w, http.StatusBadRequest, "invalid id")
		return
	}

	ctx, cancel := reqCtx(r)
	defer cancel()

	u, err := h.Reader.User(ctx, id)
	if err != nil {
		if errors.Is(err, records.ErrNotFound) {
			errJSON(w, http.StatusNotFound, "user not found")
			return
		}
		errJSON(w, http.StatusInternalServerError, "lookup failed")
		return
	}
	writeJSON(w, http.StatusOK, u)
}

// invalidate drops cache keys after an administrative write. Failure is
// soft: the entry goes stale until the next write, same policy as the
// engine.
func (h *Handlers) invalidate(r *http.Request, keys ...string) {
	if err := h.Cache.Delete(r.Context(), keys...); err != nil {
		logger.Warn().Err(err).Strs("keys", keys).Msg("cache invalidation failed")
	}
}
