package proof

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/Oniqq60/grant_tracker/internal/dto"
	"github.com/Oniqq60/grant_tracker/internal/ipfs"
	"github.com/Oniqq60/grant_tracker/internal/metrics"
	"github.com/Oniqq60/grant_tracker/internal/middleware"
	"go.uber.org/zap"
)

// ReadinessChecker проверяет, что нода отвечает на /api/v0/version
type ReadinessChecker interface {
	Version(ctx context.Context) (string, error)
}

type Handler struct {
	intake  *Intake
	relay   *Relay
	ready   ReadinessChecker
	metrics *metrics.Collectors
	logger  *zap.Logger
}

func NewHandler(intake *Intake, relay *Relay, ready ReadinessChecker, m *metrics.Collectors, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		intake:  intake,
		relay:   relay,
		ready:   ready,
		metrics: m,
		logger:  logger,
	}
}

func (h *Handler) RegisterHandlers(mux *http.ServeMux) {
	mux.HandleFunc("POST /upload-proof", h.UploadProof)
	mux.HandleFunc("GET /{$}", h.Root)
	mux.HandleFunc("GET /readyz", h.Ready)
}

func (h *Handler) UploadProof(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.RequestIDFromContext(r.Context())

	upload, err := h.intake.Receive(r)
	if err != nil {
		h.rejectIntake(w, requestID, err)
		return
	}
	defer upload.Cleanup()

	receipt, err := h.relay.Submit(r.Context(), upload)
	if err != nil {
		h.metrics.UploadOutcome(metrics.OutcomeUpstreamFailure)
		fields := []zap.Field{
			zap.String("request_id", requestID),
			zap.String("filename", upload.OriginalName),
			zap.Int64("size", upload.Size),
			zap.Error(err),
		}
		var upErr *ipfs.UpstreamError
		if errors.As(err, &upErr) && upErr.Body != "" {
			fields = append(fields, zap.String("upstream_body", upErr.Body))
		}
		h.logger.Error("ipfs upload failed", fields...)
		writeError(w, h.logger, http.StatusInternalServerError, dto.MessageUploadFailed)
		return
	}

	h.metrics.UploadOutcome(metrics.OutcomeSuccess)
	h.logger.Info("proof uploaded",
		zap.String("request_id", requestID),
		zap.String("cid", receipt.Hash),
		zap.String("filename", upload.OriginalName),
		zap.Int64("size", upload.Size),
	)

	writeJSON(w, h.logger, http.StatusOK, dto.UploadProofResponse{
		Message:  dto.MessageUploaded,
		IPFSHash: receipt.Hash,
		IPFSURL:  h.relay.URL(receipt.Hash),
	})
}

func (h *Handler) rejectIntake(w http.ResponseWriter, requestID string, err error) {
	if !errors.Is(err, ErrInvalidRequest) {
		// локальный сбой записи временного файла
		h.metrics.UploadOutcome(metrics.OutcomeUpstreamFailure)
		h.logger.Error("failed to store upload", zap.String("request_id", requestID), zap.Error(err))
		writeError(w, h.logger, http.StatusInternalServerError, dto.MessageUploadFailed)
		return
	}

	h.metrics.UploadOutcome(metrics.OutcomeInvalidRequest)
	h.logger.Warn("upload rejected", zap.String("request_id", requestID), zap.Error(err))
	writeError(w, h.logger, http.StatusBadRequest, intakeMessage(err))
}

func intakeMessage(err error) string {
	switch {
	case errors.Is(err, ErrMissingFile):
		return dto.MessageNoProofFile
	case errors.Is(err, ErrNotMultipart):
		return "Request must be multipart/form-data."
	case errors.Is(err, ErrUnexpectedFile):
		return "Only one file in field proofFile is accepted."
	case errors.Is(err, ErrTooLarge):
		return "Upload is too large."
	default:
		return "Malformed upload request."
	}
}

func (h *Handler) Root(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = io.WriteString(w, dto.MessageRelayIsUp)
}

func (h *Handler) Ready(w http.ResponseWriter, r *http.Request) {
	if h.ready == nil {
		writeJSON(w, h.logger, http.StatusOK, dto.ReadinessResponse{Status: "ready"})
		return
	}
	version, err := h.ready.Version(r.Context())
	if err != nil {
		h.logger.Warn("ipfs node not ready", zap.Error(err))
		writeError(w, h.logger, http.StatusServiceUnavailable, "storage node unavailable")
		return
	}
	writeJSON(w, h.logger, http.StatusOK, dto.ReadinessResponse{Status: "ready", NodeVersion: version})
}
