package handler

import (
	"net/http"

	"github.com/hitoshi/workboard/internal/metrics"
	"github.com/hitoshi/workboard/internal/model"
	"github.com/hitoshi/workboard/internal/repository"
)

// UserHandler はユーザー管理のHTTPハンドラー。
type UserHandler struct {
	repo   repository.UserRepository
	result resultWriter
}

// NewUserHandler はUserHandlerを生成する。
func NewUserHandler(repo repository.UserRepository, collector metrics.MetricsCollector) *UserHandler {
	return &UserHandler{
		repo:   repo,
		result: resultWriter{entity: "user", metrics: collector},
	}
}

type createUserRequest struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

type updateUserRequest struct {
	Name string `json:"name"`
}

type userResponse struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// Create はユーザーを作成する。
// POST /api/users
func (h *UserHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createUserRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := model.ValidateName(req.Name); err != nil {
		writeValidationError(w, err)
		return
	}
	if err := model.ValidateEmail(req.Email); err != nil {
		writeValidationError(w, err)
		return
	}

	res, id, err := h.repo.Create(r.Context(), model.UserCreate{Name: req.Name, Email: req.Email})
	if err != nil {
		h.result.failed(w, r, "create", err)
		return
	}
	h.result.created(w, res, id)
}

// List は全ユーザーを名前順で返す。
// GET /api/users
func (h *UserHandler) List(w http.ResponseWriter, r *http.Request) {
	users, err := h.repo.Read(r.Context())
	if err != nil {
		h.result.failed(w, r, "read", err)
		return
	}

	out := make([]userResponse, 0, len(users))
	for _, u := range users {
		out = append(out, userResponse{ID: u.ID, Name: u.Name, Email: u.Email})
	}
	writeJSON(w, http.StatusOK, out)
}

// Get は指定IDのユーザーを返す。
// GET /api/users/{id}
func (h *UserHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	user, err := h.repo.Find(r.Context(), id)
	if err != nil {
		h.result.failed(w, r, "find", err)
		return
	}
	if user == nil {
		h.result.notFound(w, id)
		return
	}
	writeJSON(w, http.StatusOK, userResponse{ID: user.ID, Name: user.Name, Email: user.Email})
}

// Update はユーザー名を変更する。メールアドレスは変更できない。
// PUT /api/users/{id}
func (h *UserHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req updateUserRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := model.ValidateName(req.Name); err != nil {
		writeValidationError(w, err)
		return
	}

	res, err := h.repo.Update(r.Context(), model.UserUpdate{ID: id, Name: req.Name})
	if err != nil {
		h.result.failed(w, r, "update", err)
		return
	}
	h.result.changed(w, "update", res, id, "同じ名前のユーザーが既に存在します。")
}

// Delete はユーザーを削除する。担当ワークアイテムがある場合は409を返す。
// DELETE /api/users/{id}
func (h *UserHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	res, err := h.repo.Delete(r.Context(), id, false)
	if err != nil {
		h.result.failed(w, r, "delete", err)
		return
	}
	h.result.changed(w, "delete", res, id, "ユーザーはワークアイテムの担当者に指定されています。")
}
