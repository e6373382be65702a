package httpx

import (
	"encoding/json"
	"net/http"

	"github.com/tuttiservices/wholesale-backend/internal/apperr"
	"github.com/tuttiservices/wholesale-backend/internal/auth"
	"github.com/tuttiservices/wholesale-backend/internal/users"
)

// UsersHandler is the admin-only account management surface.
type UsersHandler struct {
	Repo   *users.Repo
	Hasher *auth.Hasher
}

func (h *UsersHandler) list(w http.ResponseWriter, r *http.Request) {
	f := users.Filter{
		Role:   r.URL.Query().Get("role"),
		Search: r.URL.Query().Get("search"),
	}
	if f.Role != "" && !users.ValidRole(f.Role) {
		badRequest(w, "unknown role")
		return
	}
	us, err := h.Repo.List(r.Context(), f)
	if err != nil {
		writeError(w, err)
		return
	}
	if us == nil {
		us = []users.User{}
	}
	writeJSON(w, http.StatusOK, us)
}

func (h *UsersHandler) get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		badRequest(w, "invalid user id")
		return
	}
	u, err := h.Repo.ByID(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	if u == nil {
		writeError(w, apperr.E(apperr.KindNotFound, "user not found"))
		return
	}
	writeJSON(w, http.StatusOK, u)
}

func (h *UsersHandler) create(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Email          string  `json:"email"`
		Password       string  `json:"password"`
		Name           string  `json:"name"`
		Phone          *string `json:"phone"`
		Address        *string `json:"address"`
		City           *string `json:"city"`
		PurchaseVolume *string `json:"purchase_volume"`
		Role           string  `json:"role"`
	}
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		badRequest(w, "invalid request body")
		return
	}
	if in.Email == "" || in.Password == "" || in.Name == "" {
		badRequest(w, "email, password and name are required")
		return
	}
	if in.Role == "" {
		in.Role = users.RoleBuyer
	}
	if !users.ValidRole(in.Role) {
		badRequest(w, "unknown role")
		return
	}
	existing, err := h.Repo.ByEmail(r.Context(), in.Email)
	if err != nil {
		writeError(w, err)
		return
	}
	if existing != nil {
		badRequest(w, "email is already registered")
		return
	}
	hash, err := h.Hasher.Hash(in.Password)
	if err != nil {
		writeError(w, err)
		return
	}
	u := &users.User{
		Email:          in.Email,
		PasswordHash:   hash,
		Name:           in.Name,
		Phone:          in.Phone,
		Address:        in.Address,
		City:           in.City,
		PurchaseVolume: in.PurchaseVolume,
		Role:           in.Role,
	}
	if err := h.Repo.Create(r.Context(), u); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, u)
}

func (h *UsersHandler) update(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		badRequest(w, "invalid user id")
		return
	}
	var p users.Patch
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		badRequest(w, "invalid request body")
		return
	}
	if p.Role != nil && !users.ValidRole(*p.Role) {
		badRequest(w, "unknown role")
		return
	}
	if err := h.Repo.Update(r.Context(), id, p); err != nil {
		writeError(w, err)
		return
	}
	u, err := h.Repo.ByID(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, u)
}

// deactivate is a soft delete; the account's orders stay attributed to it.
func (h *UsersHandler) deactivate(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		badRequest(w, "invalid user id")
		return
	}
	if u := UserFrom(r.Context()); u != nil && u.ID == id {
		badRequest(w, "cannot deactivate your own account")
		return
	}
	if err := h.Repo.Deactivate(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "user deactivated"})
}
