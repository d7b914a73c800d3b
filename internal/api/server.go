package api

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/dunamismax/pixelprops/internal/domain"
	"github.com/dunamismax/pixelprops/internal/imageprops"
	"github.com/dunamismax/pixelprops/internal/presets"
	"github.com/dunamismax/pixelprops/internal/queue"
	"github.com/dunamismax/pixelprops/internal/resolver"
	"github.com/dunamismax/pixelprops/internal/store"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	jsoniter "github.com/json-iterator/go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

type Server struct {
	logger                *zap.Logger
	resolver              *resolver.Service
	store                 store.Store
	queueClient           queueEnqueuer
	storage               objectStorage
	validate              *validator.Validate
	metrics               *metrics
	tracer                trace.Tracer
	rateLimiter           RateLimiter
	rateLimitUserIDHeader string
	mux                   *http.ServeMux
}

type queueEnqueuer interface {
	EnqueueImportAssets(ctx context.Context, payload queue.ImportAssetsPayload) (*asynq.TaskInfo, error)
}

type objectStorage interface {
	ExportExists(ctx context.Context, exportKey string) (bool, error)
}

// Deps are the collaborators of a Server. Resolver and Store are required;
// without Queue and Storage the import routes answer 503.
type Deps struct {
	Logger       *zap.Logger
	Resolver     *resolver.Service
	Store        store.Store
	Queue        queueEnqueuer
	Storage      objectStorage
	RateLimiter  RateLimiter
	UserIDHeader string
}

func NewServer(deps Deps) *Server {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	storage := deps.Storage
	if storage == nil {
		storage = unavailableObjectStorage{}
	}
	userIDHeader := deps.UserIDHeader
	if userIDHeader == "" {
		userIDHeader = "X-User-ID"
	}

	s := &Server{
		logger:                logger.Named("api"),
		resolver:              deps.Resolver,
		store:                 deps.Store,
		queueClient:           deps.Queue,
		storage:               storage,
		validate:              validator.New(validator.WithRequiredStructEnabled()),
		metrics:               newMetrics(),
		tracer:                otel.Tracer("pixelprops/api"),
		rateLimiter:           deps.RateLimiter,
		rateLimitUserIDHeader: userIDHeader,
		mux:                   http.NewServeMux(),
	}
	s.routes()
	return s
}

type unavailableObjectStorage struct{}

func (unavailableObjectStorage) ExportExists(_ context.Context, _ string) (bool, error) {
	return false, errors.New("object storage is unavailable")
}

func (s *Server) Handler() http.Handler {
	return s.metrics.withHTTPMetrics(s.withTracing(s.withRateLimit(s.mux)))
}

func (s *Server) routes() {
	s.mux.HandleFunc("GET /healthz", s.handleHealthz)
	s.mux.HandleFunc("POST /v1/props", s.handleProps)
	s.mux.HandleFunc("POST /v1/props/url", s.handlePropsURL)
	s.mux.HandleFunc("GET /v1/assets/{key}/props", s.handleAssetProps)
	s.mux.HandleFunc("POST /v1/imports", s.handleCreateImport)
	s.mux.HandleFunc("GET /v1/imports/{id}", s.handleGetImport)
	s.mux.Handle("GET /metrics", s.metrics.metricsHandler())
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleProps(w http.ResponseWriter, r *http.Request) {
	var req resolver.Request
	if !s.bind(w, r, &req) {
		return
	}

	props, err := s.resolver.Resolve(req)
	s.writeProps(w, props, err)
}

type propsURLRequest struct {
	resolver.Request
	Width   int `json:"width" validate:"required,gt=0,lte=8192"`
	Quality int `json:"quality,omitempty" validate:"gte=0,lte=100"`
}

func (s *Server) handlePropsURL(w http.ResponseWriter, r *http.Request) {
	var req propsURLRequest
	if !s.bind(w, r, &req) {
		return
	}

	url, err := s.resolver.LoaderURL(req.Request, req.Width, req.Quality)
	switch {
	case errors.Is(err, resolver.ErrNoImage):
		s.metrics.propsResolved.WithLabelValues("no_image").Inc()
		w.WriteHeader(http.StatusNoContent)
		return
	case err != nil:
		s.writeResolveError(w, err)
		return
	}

	s.metrics.propsResolved.WithLabelValues("ok").Inc()
	writeJSON(w, http.StatusOK, map[string]any{
		"url":   url,
		"width": req.Width,
	})
}

func (s *Server) handleAssetProps(w http.ResponseWriter, r *http.Request) {
	key := r.PathValue("key")
	doc, ok, err := s.store.GetAsset(r.Context(), key)
	if err != nil {
		s.logger.Error("load asset failed", zap.String("key", key), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to load asset")
		return
	}
	if !ok {
		writeError(w, http.StatusNotFound, "asset not found")
		return
	}

	query := r.URL.Query()
	props, err := s.resolver.Resolve(resolver.Request{
		Image:  &doc.Source,
		Preset: query.Get("preset"),
		Shape:  imageprops.Shape(query.Get("shape")),
	})
	s.writeProps(w, props, err)
}

func (s *Server) writeProps(w http.ResponseWriter, props *imageprops.Props, err error) {
	if err != nil {
		s.writeResolveError(w, err)
		return
	}
	if props == nil {
		s.metrics.propsResolved.WithLabelValues("no_image").Inc()
		w.WriteHeader(http.StatusNoContent)
		return
	}
	s.metrics.propsResolved.WithLabelValues("ok").Inc()
	writeJSON(w, http.StatusOK, props)
}

func (s *Server) writeResolveError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrMalformedIdentifier),
		errors.Is(err, resolver.ErrInvalidRequest),
		errors.Is(err, presets.ErrUnknownPreset):
		s.metrics.propsResolved.WithLabelValues("invalid").Inc()
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		s.logger.Error("resolve props failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to resolve image props")
	}
}

func (s *Server) handleCreateImport(w http.ResponseWriter, r *http.Request) {
	if s.queueClient == nil {
		writeError(w, http.StatusServiceUnavailable, "imports are unavailable")
		return
	}

	var req domain.CreateImportRequest
	if !s.bind(w, r, &req) {
		return
	}
	if err := req.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	objectKey := strings.TrimSpace(req.ObjectKey)
	exists, err := s.storage.ExportExists(r.Context(), objectKey)
	if err != nil {
		s.logger.Error("export lookup failed", zap.String("object_key", objectKey), zap.Error(err))
		writeError(w, http.StatusConflict, fmt.Sprintf("export object check failed: %v", err))
		return
	}
	if !exists {
		writeError(w, http.StatusConflict, fmt.Sprintf("export object is missing: %s", objectKey))
		return
	}

	now := time.Now().UTC()
	imp := domain.Import{
		ID:         uuid.NewString(),
		Status:     domain.ImportStatusCreated,
		ObjectKey:  objectKey,
		KeyPrefix:  req.KeyPrefix,
		WebhookURL: req.WebhookURL,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := s.store.CreateImport(r.Context(), imp); err != nil {
		s.logger.Error("create import failed", zap.String("import_id", imp.ID), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to create import")
		return
	}

	taskInfo, err := s.queueClient.EnqueueImportAssets(r.Context(), queue.ImportAssetsPayload{
		ImportID:    imp.ID,
		ObjectKey:   imp.ObjectKey,
		KeyPrefix:   imp.KeyPrefix,
		WebhookURL:  imp.WebhookURL,
		RequestedAt: now,
	})
	if err != nil {
		s.logger.Error("enqueue import failed", zap.String("import_id", imp.ID), zap.Error(err))
		if _, updateErr := s.store.UpdateImport(r.Context(), imp.ID, domain.ImportStatusFailed, domain.ImportSummary{}); updateErr != nil {
			s.logger.Warn("mark import failed", zap.String("import_id", imp.ID), zap.Error(updateErr))
		}
		writeError(w, http.StatusInternalServerError, "failed to enqueue import")
		return
	}
	s.metrics.importsEnqueued.WithLabelValues(taskInfo.Queue).Inc()

	if _, err := s.store.UpdateImport(r.Context(), imp.ID, domain.ImportStatusQueued, domain.ImportSummary{}); err != nil {
		s.logger.Warn("update import status failed", zap.String("import_id", imp.ID), zap.Error(err))
	}

	writeJSON(w, http.StatusAccepted, map[string]any{
		"import_id":   imp.ID,
		"status":      domain.ImportStatusQueued,
		"queue":       taskInfo.Queue,
		"task_id":     taskInfo.ID,
		"state":       taskInfo.State.String(),
		"enqueued_at": taskInfo.NextProcessAt,
		"status_url":  "/v1/imports/" + imp.ID,
	})
}

func (s *Server) handleGetImport(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	imp, ok, err := s.store.GetImport(r.Context(), id)
	if err != nil {
		s.logger.Error("load import failed", zap.String("import_id", id), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to load import")
		return
	}
	if !ok {
		writeError(w, http.StatusNotFound, "import not found")
		return
	}
	writeJSON(w, http.StatusOK, imp)
}

// bind decodes and validates the JSON body, answering 400 itself on failure.
func (s *Server) bind(w http.ResponseWriter, r *http.Request, into any) bool {
	if err := decodeJSON(r, into); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return false
	}
	if err := s.validate.Struct(into); err != nil {
		writeError(w, http.StatusBadRequest, validationMessage(err))
		return false
	}
	return true
}

func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return err.Error()
	}
	fields := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, fmt.Sprintf("%s failed %s", fe.Namespace(), fe.Tag()))
	}
	return "invalid request: " + strings.Join(fields, "; ")
}

func decodeJSON(r *http.Request, into any) error {
	const maxBodyBytes = 1 << 20
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		return fmt.Errorf("read body: %w", err)
	}
	if len(body) == 0 {
		return errors.New("invalid JSON body: empty")
	}
	if err := json.Unmarshal(body, into); err != nil {
		return fmt.Errorf("invalid JSON body: %w", err)
	}
	return nil
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}
