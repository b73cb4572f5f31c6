// Package handler はワークボードのHTTP APIハンドラーを提供する。
package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/workboard/internal/metrics"
	"github.com/hitoshi/workboard/internal/middleware"
	"github.com/hitoshi/workboard/internal/model"
)

// maxBodyBytes はリクエストボディの最大サイズ。
const maxBodyBytes = 1 << 20

// idResponse は作成成功時のレスポンス。
type idResponse struct {
	ID int64 `json:"id"`
}

// resultWriter はリポジトリの結果コードをHTTPレスポンスに変換し、メトリクスに記録する。
type resultWriter struct {
	entity  string
	metrics metrics.MetricsCollector
}

// created は作成系の結果を書き込む。Conflict時は既存IDをボディに含める。
func (rw resultWriter) created(w http.ResponseWriter, res model.Response, id int64) {
	rw.record("create", res)

	switch res {
	case model.ResponseCreated:
		writeJSON(w, http.StatusCreated, idResponse{ID: id})
	case model.ResponseConflict:
		middleware.WriteConflictWithID(w,
			model.NewConflictError(fmt.Sprintf("同じ名前の%sが既に存在します。", rw.label())), id)
	default:
		rw.unexpected(w, "create", res)
	}
}

// changed は更新・削除系の結果を書き込む。成功時は204を返す。
func (rw resultWriter) changed(w http.ResponseWriter, operation string, res model.Response, id int64, conflictReason string) {
	rw.record(operation, res)

	switch res {
	case model.ResponseUpdated, model.ResponseDeleted:
		w.WriteHeader(http.StatusNoContent)
	case model.ResponseNotFound:
		middleware.WriteErrorResponse(w, http.StatusNotFound, model.NewNotFoundError(rw.label(), id))
	case model.ResponseConflict:
		middleware.WriteErrorResponse(w, http.StatusConflict, model.NewConflictError(conflictReason))
	case model.ResponseBadRequest:
		middleware.WriteErrorResponse(w, http.StatusBadRequest, model.NewAssigneeNotFoundError())
	default:
		rw.unexpected(w, operation, res)
	}
}

// failed はインフラ起因のエラーをログに記録して500を返す。
func (rw resultWriter) failed(w http.ResponseWriter, r *http.Request, operation string, err error) {
	rw.record(operation, "error")
	slog.Error("repository operation failed",
		slog.String("entity", rw.entity),
		slog.String("operation", operation),
		slog.String("request_id", middleware.RequestIDFromContext(r.Context())),
		slog.String("error", err.Error()),
	)
	middleware.WriteInternalServerError(w)
}

func (rw resultWriter) notFound(w http.ResponseWriter, id int64) {
	middleware.WriteErrorResponse(w, http.StatusNotFound, model.NewNotFoundError(rw.label(), id))
}

func (rw resultWriter) unexpected(w http.ResponseWriter, operation string, res model.Response) {
	slog.Error("unexpected repository result",
		slog.String("entity", rw.entity),
		slog.String("operation", operation),
		slog.String("result", res.String()),
	)
	middleware.WriteInternalServerError(w)
}

func (rw resultWriter) record(operation string, res model.Response) {
	if rw.metrics != nil {
		rw.metrics.RecordRepositoryResult(rw.entity, operation, res.String())
	}
}

// label はエラーメッセージ用のエンティティ名を返す。
func (rw resultWriter) label() string {
	switch rw.entity {
	case "tag":
		return "タグ"
	case "user":
		return "ユーザー"
	case "work_item":
		return "ワークアイテム"
	default:
		return rw.entity
	}
}

// writeJSON はJSONレスポンスを書き込む。
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// decodeJSON はリクエストボディをvにデコードする。
// 失敗時は400レスポンスを書き込みfalseを返す。
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		middleware.WriteErrorResponse(w, http.StatusBadRequest, model.NewInvalidRequestError("malformed JSON body"))
		return false
	}
	return true
}

// pathID はURLパラメータ{id}を正の整数として取り出す。
// 不正な場合は400レスポンスを書き込みfalseを返す。
func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		middleware.WriteErrorResponse(w, http.StatusBadRequest, model.NewInvalidRequestError("id must be a positive integer"))
		return 0, false
	}
	return id, true
}

// writeValidationError はバリデーションエラーを400として書き込む。
func writeValidationError(w http.ResponseWriter, err error) {
	var apiErr *model.APIError
	if !errors.As(err, &apiErr) {
		apiErr = model.NewValidationError(err.Error())
	}
	middleware.WriteErrorResponse(w, http.StatusBadRequest, apiErr)
}

func notFoundRoute() *model.APIError {
	return &model.APIError{
		Code:     model.ErrCodeNotFound,
		Message:  "指定されたパスは存在しません。",
		Category: "not_found",
		Action:   "URLを確認してください。",
	}
}

func methodNotAllowed() *model.APIError {
	return &model.APIError{
		Code:     model.ErrCodeInvalidRequest,
		Message:  "このパスでは指定されたメソッドを使用できません。",
		Category: "validation",
		Action:   "HTTPメソッドを確認してください。",
	}
}
