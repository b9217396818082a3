package proof

import (
	"encoding/json"
	"net/http"

	"github.com/Oniqq60/grant_tracker/internal/dto"
	"go.uber.org/zap"
)

func writeJSON(w http.ResponseWriter, logger *zap.Logger, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logger.Debug("write json error", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, logger *zap.Logger, status int, message string) {
	if message == "" {
		message = http.StatusText(status)
	}
	writeJSON(w, logger, status, dto.ErrorResponse{Error: message})
}
