package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/hitoshi/workboard/internal/metrics"
	"github.com/hitoshi/workboard/internal/middleware"
	"github.com/hitoshi/workboard/internal/model"
	"github.com/hitoshi/workboard/internal/repository"
	"github.com/hitoshi/workboard/internal/security"
)

// WorkItemHandler はワークアイテム管理のHTTPハンドラー。
// 説明文はリポジトリに渡す前にサニタイズする。
type WorkItemHandler struct {
	repo      repository.WorkItemRepository
	sanitizer security.DescriptionSanitizer
	result    resultWriter
}

// NewWorkItemHandler はWorkItemHandlerを生成する。
func NewWorkItemHandler(repo repository.WorkItemRepository, sanitizer security.DescriptionSanitizer, collector metrics.MetricsCollector) *WorkItemHandler {
	return &WorkItemHandler{
		repo:      repo,
		sanitizer: sanitizer,
		result:    resultWriter{entity: "work_item", metrics: collector},
	}
}

// workItemRequest は作成・更新リクエストのボディ。Stateは更新時のみ必須。
type workItemRequest struct {
	Title        string   `json:"title"`
	AssignedToID *int64   `json:"assigned_to_id"`
	Description  string   `json:"description"`
	Tags         []string `json:"tags"`
	State        string   `json:"state,omitempty"`
}

type workItemResponse struct {
	ID             int64    `json:"id"`
	Title          string   `json:"title"`
	AssignedToName string   `json:"assigned_to_name"`
	Tags           []string `json:"tags"`
	State          string   `json:"state"`
}

type workItemDetailsResponse struct {
	ID             int64     `json:"id"`
	Title          string    `json:"title"`
	Description    string    `json:"description"`
	Created        time.Time `json:"created"`
	AssignedToName string    `json:"assigned_to_name"`
	Tags           []string  `json:"tags"`
	State          string    `json:"state"`
	StateUpdated   time.Time `json:"state_updated"`
}

// Create はワークアイテムをNew状態で作成する。
// POST /api/workitems
func (h *WorkItemHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req workItemRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := validateWorkItem(req); err != nil {
		writeValidationError(w, err)
		return
	}

	res, id, err := h.repo.Create(r.Context(), model.WorkItemCreate{
		Title:        req.Title,
		AssignedToID: req.AssignedToID,
		Description:  h.sanitizer.Sanitize(req.Description),
		Tags:         req.Tags,
	})
	if err != nil {
		h.result.failed(w, r, "create", err)
		return
	}
	h.result.created(w, res, id)
}

// List はワークアイテム一覧を返す。
// state / tag / user のいずれか1つでフィルタできる。指定なしの場合は全件をタイトル順で返す。
// GET /api/workitems
func (h *WorkItemHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	state, tag, user := q.Get("state"), q.Get("tag"), q.Get("user")

	filters := 0
	for _, v := range []string{state, tag, user} {
		if v != "" {
			filters++
		}
	}
	if filters > 1 {
		middleware.WriteErrorResponse(w, http.StatusBadRequest,
			model.NewInvalidRequestError("only one of state, tag, user may be specified"))
		return
	}

	var (
		items []model.WorkItemDTO
		err   error
	)
	switch {
	case state != "":
		s, ok := model.ParseState(state)
		if !ok {
			middleware.WriteErrorResponse(w, http.StatusBadRequest, model.NewValidationError("unknown state: "+state))
			return
		}
		items, err = h.repo.ReadByState(r.Context(), s)
	case tag != "":
		items, err = h.repo.ReadByTag(r.Context(), tag)
	case user != "":
		userID, parseErr := strconv.ParseInt(user, 10, 64)
		if parseErr != nil || userID <= 0 {
			middleware.WriteErrorResponse(w, http.StatusBadRequest,
				model.NewInvalidRequestError("user must be a positive integer"))
			return
		}
		items, err = h.repo.ReadByUser(r.Context(), userID)
	default:
		items, err = h.repo.Read(r.Context())
	}
	if err != nil {
		h.result.failed(w, r, "read", err)
		return
	}
	writeJSON(w, http.StatusOK, toWorkItemResponses(items))
}

// ListRemoved はRemoved状態のワークアイテムを返す。
// GET /api/workitems/removed
func (h *WorkItemHandler) ListRemoved(w http.ResponseWriter, r *http.Request) {
	items, err := h.repo.ReadRemoved(r.Context())
	if err != nil {
		h.result.failed(w, r, "read", err)
		return
	}
	writeJSON(w, http.StatusOK, toWorkItemResponses(items))
}

// Get はワークアイテムの詳細を返す。
// GET /api/workitems/{id}
func (h *WorkItemHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	item, err := h.repo.Find(r.Context(), id)
	if err != nil {
		h.result.failed(w, r, "find", err)
		return
	}
	if item == nil {
		h.result.notFound(w, id)
		return
	}

	writeJSON(w, http.StatusOK, workItemDetailsResponse{
		ID:             item.ID,
		Title:          item.Title,
		Description:    item.Description,
		Created:        item.Created,
		AssignedToName: item.AssignedToName,
		Tags:           nonNil(item.Tags),
		State:          string(item.State),
		StateUpdated:   item.StateUpdated,
	})
}

// Update はワークアイテムを全項目置き換えで更新する。
// PUT /api/workitems/{id}
func (h *WorkItemHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req workItemRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := validateWorkItem(req); err != nil {
		writeValidationError(w, err)
		return
	}
	state, valid := model.ParseState(req.State)
	if !valid {
		middleware.WriteErrorResponse(w, http.StatusBadRequest, model.NewValidationError("unknown state: "+req.State))
		return
	}

	res, err := h.repo.Update(r.Context(), model.WorkItemUpdate{
		ID:           id,
		Title:        req.Title,
		AssignedToID: req.AssignedToID,
		Description:  h.sanitizer.Sanitize(req.Description),
		Tags:         req.Tags,
		State:        state,
	})
	if err != nil {
		h.result.failed(w, r, "update", err)
		return
	}
	h.result.changed(w, "update", res, id, "ワークアイテムを更新できません。")
}

// Delete は状態に応じてワークアイテムを削除する。
// New状態は物理削除、Active状態はRemovedへ遷移し、それ以外は409を返す。
// DELETE /api/workitems/{id}
func (h *WorkItemHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	res, err := h.repo.Delete(r.Context(), id)
	if err != nil {
		h.result.failed(w, r, "delete", err)
		return
	}
	h.result.changed(w, "delete", res, id, "New・Active以外の状態のワークアイテムは削除できません。")
}

func validateWorkItem(req workItemRequest) error {
	if err := model.ValidateTitle(req.Title); err != nil {
		return err
	}
	if req.AssignedToID != nil && *req.AssignedToID <= 0 {
		return model.NewValidationError("assigned_to_id must be a positive integer")
	}
	for _, tag := range req.Tags {
		if err := model.ValidateName(tag); err != nil {
			return model.NewValidationError("invalid tag name: " + tag)
		}
	}
	return nil
}

func toWorkItemResponses(items []model.WorkItemDTO) []workItemResponse {
	out := make([]workItemResponse, 0, len(items))
	for _, it := range items {
		out = append(out, workItemResponse{
			ID:             it.ID,
			Title:          it.Title,
			AssignedToName: it.AssignedToName,
			Tags:           nonNil(it.Tags),
			State:          string(it.State),
		})
	}
	return out
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
