package middleware

import (
	"errors"
	"log/slog"
	"net/http"
	"runtime/debug"
)

// NewRecoveryMiddleware はハンドラーのpanicを回収し、統一エラーフォーマットの500に変換する。
//
// RequestIDミドルウェアより外側に置くため、リクエストIDはレスポンスヘッダーから拾う。
// http.ErrAbortHandler はnet/httpへの中断指示なので回収せず再送出する。
func NewRecoveryMiddleware(logger *slog.Logger) func(next http.Handler) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			rec := newStatusRecorder(w)
			defer func() {
				v := recover()
				if v == nil {
					return
				}
				if err, ok := v.(error); ok && errors.Is(err, http.ErrAbortHandler) {
					panic(v)
				}

				logger.Error("handler panicked", panicAttrs(rec, r, v)...)
				// ステータス送信後は書き換えられない
				if !rec.written {
					WriteInternalServerError(rec)
				}
			}()
			next.ServeHTTP(rec, r)
		})
	}
}

func panicAttrs(w http.ResponseWriter, r *http.Request, v any) []any {
	id := RequestIDFromContext(r.Context())
	if id == "" {
		id = w.Header().Get(RequestIDHeader)
	}
	return []any{
		slog.Any("panic", v),
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path),
		slog.String("request_id", id),
		slog.String("stack", string(debug.Stack())),
	}
}
