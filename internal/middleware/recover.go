package middleware

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/Oniqq60/grant_tracker/internal/dto"
	"go.uber.org/zap"
)

func Recover(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			rec := newStatusRecorder(w)
			defer func() {
				p := recover()
				if p == nil {
					return
				}
				if err, ok := p.(error); ok && errors.Is(err, http.ErrAbortHandler) {
					panic(p)
				}

				logger.Error("panic while serving request",
					zap.String("request_id", RequestIDFromContext(r.Context())),
					zap.String("method", r.Method),
					zap.String("path", r.URL.Path),
					zap.Any("panic", p),
					zap.StackSkip("stack", 1),
				)

				// если ответ уже начат, поправить его нельзя
				if rec.written {
					return
				}
				rec.Header().Set("Content-Type", "application/json")
				rec.WriteHeader(http.StatusInternalServerError)
				_ = json.NewEncoder(rec).Encode(dto.ErrorResponse{Error: dto.MessageInternalError})
			}()

			next.ServeHTTP(rec, r)
		})
	}
}
