package proof

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/Oniqq60/grant_tracker/internal/events"
	"github.com/Oniqq60/grant_tracker/internal/ipfs"
	"github.com/Oniqq60/grant_tracker/internal/metrics"
	"github.com/Oniqq60/grant_tracker/internal/middleware"
	"go.uber.org/zap"
)

// Storage: узел контент-адресуемого хранилища
type Storage interface {
	Add(ctx context.Context, name string, r io.Reader) (ipfs.Receipt, error)
}

type RelayOptions struct {
	Storage        Storage
	Publisher      events.Publisher
	GatewayURL     string
	PublishTimeout time.Duration
	Metrics        *metrics.Collectors
	Logger         *zap.Logger
}

type Relay struct {
	storage        Storage
	publisher      events.Publisher
	gateway        string
	publishTimeout time.Duration
	metrics        *metrics.Collectors
	logger         *zap.Logger
}

func NewRelay(opts RelayOptions) (*Relay, error) {
	if opts.Storage == nil {
		return nil, fmt.Errorf("storage is required")
	}
	if opts.GatewayURL == "" {
		return nil, fmt.Errorf("gateway url is required")
	}
	publisher := opts.Publisher
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	timeout := opts.PublishTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Relay{
		storage:        opts.Storage,
		publisher:      publisher,
		gateway:        opts.GatewayURL,
		publishTimeout: timeout,
		metrics:        opts.Metrics,
		logger:         logger,
	}, nil
}

// Submit отправляет временный файл на ноду одним вызовом add.
// Удаление временного файла остаётся за вызывающим (Upload.Cleanup).
func (s *Relay) Submit(ctx context.Context, upload *Upload) (ipfs.Receipt, error) {
	f, err := os.Open(upload.Path)
	if err != nil {
		return ipfs.Receipt{}, fmt.Errorf("open scratch file: %w", err)
	}
	defer f.Close()

	start := time.Now()
	receipt, err := s.storage.Add(ctx, upload.OriginalName, f)
	if s.metrics != nil {
		s.metrics.IPFSAddDuration.Observe(time.Since(start).Seconds())
	}
	if err != nil {
		return ipfs.Receipt{}, err
	}
	if s.metrics != nil {
		s.metrics.UploadedBytes.Add(float64(upload.Size))
	}

	s.publish(ctx, upload, receipt)
	return receipt, nil
}

func (s *Relay) URL(cid string) string {
	return ipfs.GatewayURL(s.gateway, cid)
}

// publish не влияет на результат загрузки: ошибки только логируются
func (s *Relay) publish(ctx context.Context, upload *Upload, receipt ipfs.Receipt) {
	requestID := middleware.RequestIDFromContext(ctx)
	event := events.ProofUploaded{
		CID:               receipt.Hash,
		GatewayURL:        s.URL(receipt.Hash),
		Filename:          upload.OriginalName,
		Size:              upload.Size,
		Description:       upload.Description,
		Amount:            upload.Amount,
		ContractorAddress: upload.ContractorAddress,
		RequestID:         requestID,
		Timestamp:         time.Now().UTC(),
	}

	pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.publishTimeout)
	defer cancel()

	if err := s.publisher.PublishProofUploaded(pubCtx, event); err != nil {
		if s.metrics != nil {
			s.metrics.EventsFailed.Inc()
		}
		s.logger.Warn("failed to publish proof event",
			zap.String("request_id", requestID),
			zap.String("cid", receipt.Hash),
			zap.Error(err),
		)
	}
}
