package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/workboard/internal/model"
)

// --- モック定義 ---

type mockTagRepo struct {
	createFn func(ctx context.Context, tag model.TagCreate) (model.Response, int64, error)
	findFn   func(ctx context.Context, id int64) (*model.TagDTO, error)
	readFn   func(ctx context.Context) ([]model.TagDTO, error)
	updateFn func(ctx context.Context, tag model.TagUpdate) (model.Response, error)
	deleteFn func(ctx context.Context, id int64, force bool) (model.Response, error)
}

func (m *mockTagRepo) Create(ctx context.Context, tag model.TagCreate) (model.Response, int64, error) {
	if m.createFn != nil {
		return m.createFn(ctx, tag)
	}
	return model.ResponseCreated, 1, nil
}

func (m *mockTagRepo) Find(ctx context.Context, id int64) (*model.TagDTO, error) {
	if m.findFn != nil {
		return m.findFn(ctx, id)
	}
	return nil, nil
}

func (m *mockTagRepo) Read(ctx context.Context) ([]model.TagDTO, error) {
	if m.readFn != nil {
		return m.readFn(ctx)
	}
	return []model.TagDTO{}, nil
}

func (m *mockTagRepo) Update(ctx context.Context, tag model.TagUpdate) (model.Response, error) {
	if m.updateFn != nil {
		return m.updateFn(ctx, tag)
	}
	return model.ResponseUpdated, nil
}

func (m *mockTagRepo) Delete(ctx context.Context, id int64, force bool) (model.Response, error) {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, id, force)
	}
	return model.ResponseDeleted, nil
}

type mockUserRepo struct {
	createFn func(ctx context.Context, user model.UserCreate) (model.Response, int64, error)
	findFn   func(ctx context.Context, id int64) (*model.UserDTO, error)
	readFn   func(ctx context.Context) ([]model.UserDTO, error)
	updateFn func(ctx context.Context, user model.UserUpdate) (model.Response, error)
	deleteFn func(ctx context.Context, id int64, force bool) (model.Response, error)
}

func (m *mockUserRepo) Create(ctx context.Context, user model.UserCreate) (model.Response, int64, error) {
	if m.createFn != nil {
		return m.createFn(ctx, user)
	}
	return model.ResponseCreated, 1, nil
}

func (m *mockUserRepo) Find(ctx context.Context, id int64) (*model.UserDTO, error) {
	if m.findFn != nil {
		return m.findFn(ctx, id)
	}
	return nil, nil
}

func (m *mockUserRepo) Read(ctx context.Context) ([]model.UserDTO, error) {
	if m.readFn != nil {
		return m.readFn(ctx)
	}
	return []model.UserDTO{}, nil
}

func (m *mockUserRepo) Update(ctx context.Context, user model.UserUpdate) (model.Response, error) {
	if m.updateFn != nil {
		return m.updateFn(ctx, user)
	}
	return model.ResponseUpdated, nil
}

func (m *mockUserRepo) Delete(ctx context.Context, id int64, force bool) (model.Response, error) {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, id, force)
	}
	return model.ResponseDeleted, nil
}

type mockWorkItemRepo struct {
	createFn      func(ctx context.Context, item model.WorkItemCreate) (model.Response, int64, error)
	findFn        func(ctx context.Context, id int64) (*model.WorkItemDetails, error)
	readFn        func(ctx context.Context) ([]model.WorkItemDTO, error)
	readByStateFn func(ctx context.Context, state model.State) ([]model.WorkItemDTO, error)
	readByTagFn   func(ctx context.Context, tag string) ([]model.WorkItemDTO, error)
	readByUserFn  func(ctx context.Context, userID int64) ([]model.WorkItemDTO, error)
	readRemovedFn func(ctx context.Context) ([]model.WorkItemDTO, error)
	updateFn      func(ctx context.Context, item model.WorkItemUpdate) (model.Response, error)
	deleteFn      func(ctx context.Context, id int64) (model.Response, error)
}

func (m *mockWorkItemRepo) Create(ctx context.Context, item model.WorkItemCreate) (model.Response, int64, error) {
	if m.createFn != nil {
		return m.createFn(ctx, item)
	}
	return model.ResponseCreated, 1, nil
}

func (m *mockWorkItemRepo) Find(ctx context.Context, id int64) (*model.WorkItemDetails, error) {
	if m.findFn != nil {
		return m.findFn(ctx, id)
	}
	return nil, nil
}

func (m *mockWorkItemRepo) Read(ctx context.Context) ([]model.WorkItemDTO, error) {
	if m.readFn != nil {
		return m.readFn(ctx)
	}
	return []model.WorkItemDTO{}, nil
}

func (m *mockWorkItemRepo) ReadByState(ctx context.Context, state model.State) ([]model.WorkItemDTO, error) {
	if m.readByStateFn != nil {
		return m.readByStateFn(ctx, state)
	}
	return []model.WorkItemDTO{}, nil
}

func (m *mockWorkItemRepo) ReadByTag(ctx context.Context, tag string) ([]model.WorkItemDTO, error) {
	if m.readByTagFn != nil {
		return m.readByTagFn(ctx, tag)
	}
	return []model.WorkItemDTO{}, nil
}

func (m *mockWorkItemRepo) ReadByUser(ctx context.Context, userID int64) ([]model.WorkItemDTO, error) {
	if m.readByUserFn != nil {
		return m.readByUserFn(ctx, userID)
	}
	return []model.WorkItemDTO{}, nil
}

func (m *mockWorkItemRepo) ReadRemoved(ctx context.Context) ([]model.WorkItemDTO, error) {
	if m.readRemovedFn != nil {
		return m.readRemovedFn(ctx)
	}
	return []model.WorkItemDTO{}, nil
}

func (m *mockWorkItemRepo) Update(ctx context.Context, item model.WorkItemUpdate) (model.Response, error) {
	if m.updateFn != nil {
		return m.updateFn(ctx, item)
	}
	return model.ResponseUpdated, nil
}

func (m *mockWorkItemRepo) Delete(ctx context.Context, id int64) (model.Response, error) {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, id)
	}
	return model.ResponseDeleted, nil
}

// fakeCollector はリポジトリ結果の記録だけを保持する。
type fakeCollector struct {
	results []string
}

func (f *fakeCollector) RecordRepositoryResult(entity, operation, result string) {
	f.results = append(f.results, entity+"/"+operation+"/"+result)
}

func (f *fakeCollector) RecordHTTPRequest(string, int, time.Duration) {}

// upperSanitizer はサニタイザーが呼ばれたことを確認するための置き換え。
type upperSanitizer struct{}

func (upperSanitizer) Sanitize(s string) string { return strings.ToUpper(s) }

type mockHealthChecker struct {
	err error
}

func (m mockHealthChecker) PingContext(context.Context) error { return m.err }

// --- テストヘルパー ---

// withChiURLParam はテスト用にchiのURLパラメータを注入する。
func withChiURLParam(r *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	ctx := context.WithValue(r.Context(), chi.RouteCtxKey, rctx)
	return r.WithContext(ctx)
}

func newJSONRequest(method, target, body string) *http.Request {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

// parseErrorBody はレスポンスボディを汎用マップとしてパースする。
func parseErrorBody(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var result map[string]any
	if err := json.NewDecoder(w.Body).Decode(&result); err != nil {
		t.Fatalf("failed to decode error response: %v", err)
	}
	return result
}

func itoa(id int64) string {
	return strconv.FormatInt(id, 10)
}
