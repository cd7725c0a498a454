package api

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/ayusman/mjolnir/internal/store"
)

// DefaultListLimit is the number of throws listed when no limit is given.
const DefaultListLimit = 50

// ThrowHandler handles HTTP requests for the throw log.
type ThrowHandler struct {
	store *store.Store
}

// NewThrowHandler creates a new ThrowHandler with the given store.
func NewThrowHandler(s *store.Store) *ThrowHandler {
	return &ThrowHandler{store: s}
}

// ServeHTTP routes /api/throws, /api/throws/stats and /api/throws/{id}.
func (h *ThrowHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/api/throws")
	path = strings.TrimPrefix(path, "/")

	switch {
	case path == "":
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		h.list(w, r)

	case path == "stats":
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		h.stats(w, r)

	default:
		switch r.Method {
		case http.MethodGet:
			h.get(w, r, path)
		case http.MethodDelete:
			h.delete(w, r, path)
		default:
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
	}
}

type listThrowsResponse struct {
	Throws []*store.Throw `json:"throws"`
}

// list handles GET /api/throws?limit=N, newest first.
func (h *ThrowHandler) list(w http.ResponseWriter, r *http.Request) {
	limit := DefaultListLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}

	throws, err := h.store.Throws().List(limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list throws")
		return
	}

	writeJSON(w, http.StatusOK, listThrowsResponse{Throws: throws})
}

// stats handles GET /api/throws/stats.
func (h *ThrowHandler) stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.store.Throws().Stats()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to compute stats")
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// get handles GET /api/throws/{id}.
func (h *ThrowHandler) get(w http.ResponseWriter, r *http.Request, id string) {
	t, err := h.store.Throws().GetByID(id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Throw not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to get throw")
		return
	}
	writeJSON(w, http.StatusOK, t)
}

// delete handles DELETE /api/throws/{id}.
func (h *ThrowHandler) delete(w http.ResponseWriter, r *http.Request, id string) {
	if err := h.store.Throws().Delete(id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Throw not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to delete throw")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
