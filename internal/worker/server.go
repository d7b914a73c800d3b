package worker

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/dunamismax/pixelprops/internal/config"
	"github.com/dunamismax/pixelprops/internal/domain"
	"github.com/dunamismax/pixelprops/internal/queue"
	"github.com/dunamismax/pixelprops/internal/store"
	"github.com/dunamismax/pixelprops/internal/webhook"
	"github.com/hibiken/asynq"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

type Server struct {
	logger        *zap.Logger
	server        *asynq.Server
	exports       exportStorage
	store         store.Store
	webhookClient webhookSender
	metrics       *metrics
	tracer        trace.Tracer
	now           func() time.Time
}

type exportStorage interface {
	OpenExport(ctx context.Context, exportKey string) (io.ReadCloser, error)
	WriteReport(ctx context.Context, importID string, lines []byte) (string, error)
}

type webhookSender interface {
	Send(ctx context.Context, endpoint, event string, payload any) error
}

func NewServer(
	logger *zap.Logger,
	queueCfg config.QueueConfig,
	workerCfg config.WorkerConfig,
	exports exportStorage,
	assetStore store.Store,
	webhookClient webhookSender,
) (*Server, error) {
	if exports == nil {
		return nil, fmt.Errorf("export storage is required")
	}
	if assetStore == nil {
		return nil, fmt.Errorf("asset store is required")
	}
	logger = logger.Named("worker")

	s := &Server{
		logger:        logger,
		exports:       exports,
		store:         assetStore,
		webhookClient: webhookClient,
		metrics:       newMetrics(),
		tracer:        otel.Tracer("pixelprops/worker"),
		now:           time.Now,
	}
	s.server = asynq.NewServer(
		queueCfg.RedisClientOpt(),
		asynq.Config{
			Concurrency: max(1, workerCfg.Concurrency),
			Queues: map[string]int{
				queueCfg.Name: 1,
			},
			Logger:   logger.Named("asynq").Sugar(),
			LogLevel: asynq.InfoLevel,
			ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
				retried, _ := asynq.GetRetryCount(ctx)
				maxRetry, _ := asynq.GetMaxRetry(ctx)
				logger.Warn("task failed",
					zap.String("type", task.Type()),
					zap.Int("retry", retried),
					zap.Int("max_retry", maxRetry),
					zap.Error(err),
				)
			}),
		},
	)
	return s, nil
}

// Start begins processing in the background. Unlike asynq's Run it does
// not install signal handlers; the caller decides when to Shutdown.
func (s *Server) Start() error {
	mux := asynq.NewServeMux()
	mux.HandleFunc(queue.TypeImportAssets, s.handleImportAssets)
	return s.server.Start(mux)
}

// Shutdown stops fetching tasks and waits for active imports to finish.
func (s *Server) Shutdown() {
	s.server.Shutdown()
}

func (s *Server) MetricsHandler() http.Handler {
	return s.metrics.Handler()
}

func (s *Server) handleImportAssets(ctx context.Context, task *asynq.Task) error {
	startedAt := s.now()
	outcome := domain.ImportStatusFailed

	payload, err := queue.ParseImportAssetsPayload(task)
	if err != nil {
		return fmt.Errorf("parse payload: %v: %w", err, asynq.SkipRetry)
	}

	ctx, span := s.tracer.Start(ctx, "worker.import_assets", trace.WithSpanKind(trace.SpanKindConsumer))
	span.SetAttributes(
		attribute.String("import.id", payload.ImportID),
		attribute.String("import.object_key", payload.ObjectKey),
	)
	defer span.End()

	s.metrics.activeImports.Inc()
	defer func() {
		s.metrics.activeImports.Dec()
		s.metrics.importDuration.WithLabelValues(outcome).Observe(time.Since(startedAt).Seconds())
		s.metrics.importsTotal.WithLabelValues(outcome).Inc()
	}()

	log := s.logger.With(zap.String("import_id", payload.ImportID), zap.String("object_key", payload.ObjectKey))
	log.Info("import started")
	s.updateImport(ctx, payload.ImportID, domain.ImportStatusProcessing, domain.ImportSummary{})

	result, err := s.importExport(ctx, payload)
	if err != nil {
		s.updateImport(ctx, payload.ImportID, domain.ImportStatusFailed, result.Summary)
		span.RecordError(err)
		span.SetStatus(codes.Error, "import failed")
		log.Error("import failed", zap.Error(err))
		_ = s.dispatchWebhook(ctx, payload, webhook.EventImportFailed, map[string]any{
			"import_id":    payload.ImportID,
			"status":       domain.ImportStatusFailed,
			"object_key":   payload.ObjectKey,
			"requested_at": payload.RequestedAt,
			"failed_at":    s.now().UTC(),
			"error":        err.Error(),
		})
		return fmt.Errorf("import export: %w", err)
	}

	reportKey := s.writeReport(ctx, payload.ImportID, result.Rejected)
	s.updateImport(ctx, payload.ImportID, domain.ImportStatusSucceeded, result.Summary)
	span.SetAttributes(
		attribute.Int("import.imported", result.Summary.Imported),
		attribute.Int("import.skipped", result.Summary.Skipped),
		attribute.Int("import.failed", result.Summary.Failed),
	)
	log.Info("import finished",
		zap.Int("imported", result.Summary.Imported),
		zap.Int("skipped", result.Summary.Skipped),
		zap.Int("failed", result.Summary.Failed),
	)

	body := map[string]any{
		"import_id":    payload.ImportID,
		"status":       domain.ImportStatusSucceeded,
		"object_key":   payload.ObjectKey,
		"requested_at": payload.RequestedAt,
		"completed_at": s.now().UTC(),
		"summary":      result.Summary,
	}
	if reportKey != "" {
		body["report_key"] = reportKey
	}
	if err := s.dispatchWebhook(ctx, payload, webhook.EventImportCompleted, body); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "webhook dispatch failed")
		return err
	}

	outcome = domain.ImportStatusSucceeded
	span.SetStatus(codes.Ok, "imported")
	return nil
}

// writeReport stores rejected lines next to the export so they can be fixed
// and re-imported. It returns the report key, or "" when nothing was written.
func (s *Server) writeReport(ctx context.Context, importID string, rejected []rejection) string {
	if len(rejected) == 0 {
		return ""
	}

	var buf []byte
	for _, r := range rejected {
		line, err := json.Marshal(r)
		if err != nil {
			continue
		}
		buf = append(buf, line...)
		buf = append(buf, '\n')
	}

	key, err := s.exports.WriteReport(ctx, importID, buf)
	if err != nil {
		s.logger.Warn("import report write failed", zap.String("import_id", importID), zap.Error(err))
		return ""
	}
	return key
}

func (s *Server) updateImport(ctx context.Context, id, status string, summary domain.ImportSummary) {
	if _, err := s.store.UpdateImport(ctx, id, status, summary); err != nil {
		s.logger.Warn("import status update failed", zap.String("import_id", id), zap.String("status", status), zap.Error(err))
	}
}

func (s *Server) dispatchWebhook(ctx context.Context, payload queue.ImportAssetsPayload, event string, body map[string]any) error {
	if payload.WebhookURL == "" || s.webhookClient == nil {
		return nil
	}

	if err := s.webhookClient.Send(ctx, payload.WebhookURL, event, body); err != nil {
		s.logger.Warn("webhook delivery failed", zap.String("import_id", payload.ImportID), zap.String("event", event), zap.Error(err))
		return fmt.Errorf("dispatch webhook: %w", err)
	}
	return nil
}
