package handler

import (
	"net/http"
	"strconv"

	"github.com/hitoshi/workboard/internal/metrics"
	"github.com/hitoshi/workboard/internal/middleware"
	"github.com/hitoshi/workboard/internal/model"
	"github.com/hitoshi/workboard/internal/repository"
)

// TagHandler はタグ管理のHTTPハンドラー。
type TagHandler struct {
	repo   repository.TagRepository
	result resultWriter
}

// NewTagHandler はTagHandlerを生成する。
func NewTagHandler(repo repository.TagRepository, collector metrics.MetricsCollector) *TagHandler {
	return &TagHandler{
		repo:   repo,
		result: resultWriter{entity: "tag", metrics: collector},
	}
}

type tagRequest struct {
	Name string `json:"name"`
}

type tagResponse struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// Create はタグを作成する。
// POST /api/tags
func (h *TagHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req tagRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := model.ValidateName(req.Name); err != nil {
		writeValidationError(w, err)
		return
	}

	res, id, err := h.repo.Create(r.Context(), model.TagCreate{Name: req.Name})
	if err != nil {
		h.result.failed(w, r, "create", err)
		return
	}
	h.result.created(w, res, id)
}

// List は全タグをID順で返す。
// GET /api/tags
func (h *TagHandler) List(w http.ResponseWriter, r *http.Request) {
	tags, err := h.repo.Read(r.Context())
	if err != nil {
		h.result.failed(w, r, "read", err)
		return
	}

	out := make([]tagResponse, 0, len(tags))
	for _, t := range tags {
		out = append(out, tagResponse{ID: t.ID, Name: t.Name})
	}
	writeJSON(w, http.StatusOK, out)
}

// Get は指定IDのタグを返す。
// GET /api/tags/{id}
func (h *TagHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	tag, err := h.repo.Find(r.Context(), id)
	if err != nil {
		h.result.failed(w, r, "find", err)
		return
	}
	if tag == nil {
		h.result.notFound(w, id)
		return
	}
	writeJSON(w, http.StatusOK, tagResponse{ID: tag.ID, Name: tag.Name})
}

// Update はタグ名を変更する。
// PUT /api/tags/{id}
func (h *TagHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req tagRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := model.ValidateName(req.Name); err != nil {
		writeValidationError(w, err)
		return
	}

	res, err := h.repo.Update(r.Context(), model.TagUpdate{ID: id, Name: req.Name})
	if err != nil {
		h.result.failed(w, r, "update", err)
		return
	}
	h.result.changed(w, "update", res, id, "同じ名前のタグが既に存在します。")
}

// Delete はタグを削除する。?force=true の場合はワークアイテムとの関連を外してから削除する。
// DELETE /api/tags/{id}
func (h *TagHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	force := false
	if v := r.URL.Query().Get("force"); v != "" {
		parsed, err := strconv.ParseBool(v)
		if err != nil {
			middleware.WriteErrorResponse(w, http.StatusBadRequest, model.NewInvalidRequestError("force must be a boolean"))
			return
		}
		force = parsed
	}

	res, err := h.repo.Delete(r.Context(), id, force)
	if err != nil {
		h.result.failed(w, r, "delete", err)
		return
	}
	h.result.changed(w, "delete", res, id, "タグはワークアイテムで使用されています。force=trueで関連を外して削除できます。")
}
