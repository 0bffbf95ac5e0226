// Package api serves cron previews and saved schedules over HTTP.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"github.com/djlord-it/cronpeek/internal/cron"
	"github.com/djlord-it/cronpeek/internal/domain"
	"github.com/djlord-it/cronpeek/internal/preview"
)

// Pagination defaults and limits.
const (
	DefaultLimit = 100
	MaxLimit     = 1000
)

type Store interface {
	CreateSchedule(ctx context.Context, schedule domain.Schedule) error
	GetSchedule(ctx context.Context, id uuid.UUID) (domain.Schedule, error)
	ListSchedules(ctx context.Context, limit, offset int) ([]domain.Schedule, error)
	DeleteSchedule(ctx context.Context, id uuid.UUID) error
}

// Previewer computes upcoming runs.
type Previewer interface {
	Preview(ctx context.Context, req preview.Request) (*preview.Result, error)
	Runs(ctx context.Context, expression, timezone string, count int) ([]time.Time, error)
}

// HealthChecker provides database health status for the /health endpoint.
type HealthChecker interface {
	PingContext(ctx context.Context) error
}

// AnalyticsChecker reports the analytics backend in verbose /health.
type AnalyticsChecker interface {
	Ping(ctx context.Context) error
	BreakerState() string
}

// MetricsSink is the subset of metrics.Sink the handler reports to.
type MetricsSink interface {
	PreviewRateLimited()
	SchedulesStored(delta int)
}

type Handler struct {
	previewer Previewer
	store     Store            // optional, nil = saved schedules disabled
	db        HealthChecker    // optional
	analytics AnalyticsChecker // optional
	metrics   MetricsSink      // optional
	limiter   *rate.Limiter    // optional, nil = unlimited
	random    func() string
	now       func() time.Time
}

func NewHandler(previewer Previewer) *Handler {
	return &Handler{
		previewer: previewer,
		random:    func() string { return preview.Random(nil) },
		now:       time.Now,
	}
}

// WithStore enables the /schedules routes.
func (h *Handler) WithStore(store Store) *Handler {
	h.store = store
	return h
}

// WithHealthChecker sets the database health checker for verbose /health responses.
func (h *Handler) WithHealthChecker(db HealthChecker) *Handler {
	h.db = db
	return h
}

// WithAnalyticsChecker adds the analytics backend to verbose /health responses.
func (h *Handler) WithAnalyticsChecker(a AnalyticsChecker) *Handler {
	h.analytics = a
	return h
}

// WithMetrics attaches a metrics sink to the handler.
func (h *Handler) WithMetrics(sink MetricsSink) *Handler {
	h.metrics = sink
	return h
}

// WithRateLimit limits the preview routes to rps requests per second with
// the given burst. rps <= 0 leaves them unlimited.
func (h *Handler) WithRateLimit(rps, burst int) *Handler {
	if rps <= 0 {
		h.limiter = nil
		return h
	}
	if burst < 1 {
		burst = 1
	}
	h.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	return h
}

// WithRandom replaces the expression generator behind /random.
func (h *Handler) WithRandom(fn func() string) *Handler {
	h.random = fn
	return h
}

// WithClock replaces the time source used for schedule timestamps.
func (h *Handler) WithClock(now func() time.Time) *Handler {
	h.now = now
	return h
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Path

	switch {
	case path == "/health" && r.Method == http.MethodGet:
		h.health(w, r)

	case path == "/preview" && r.Method == http.MethodPost:
		h.preview(w, r)

	case path == "/random" && r.Method == http.MethodGet:
		h.randomPreview(w, r)

	case path == "/schedules" && r.Method == http.MethodPost:
		h.createSchedule(w, r)

	case path == "/schedules" && r.Method == http.MethodGet:
		h.listSchedules(w, r)

	case strings.HasPrefix(path, "/schedules/") && strings.HasSuffix(path, "/next") && r.Method == http.MethodGet:
		h.nextRuns(w, r)

	case strings.HasPrefix(path, "/schedules/") && r.Method == http.MethodGet:
		h.getSchedule(w, r)

	case strings.HasPrefix(path, "/schedules/") && r.Method == http.MethodDelete:
		h.deleteSchedule(w, r)

	default:
		writeError(w, http.StatusNotFound, "not found")
	}
}

// HealthResponse represents the /health endpoint response.
type HealthResponse struct {
	Status     string            `json:"status"`
	Components map[string]string `json:"components,omitempty"`
}

func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	verbose := r.URL.Query().Get("verbose") == "true"

	if !verbose || (h.db == nil && h.analytics == nil) {
		writeJSON(w, http.StatusOK, HealthResponse{Status: "ok"})
		return
	}

	resp := HealthResponse{
		Status:     "ok",
		Components: make(map[string]string),
	}

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	if h.db != nil {
		if err := h.db.PingContext(ctx); err != nil {
			resp.Status = "degraded"
			resp.Components["database"] = "unhealthy: " + err.Error()
		} else {
			resp.Components["database"] = "healthy"
		}
	}

	// Analytics is best effort and never degrades the service.
	if h.analytics != nil {
		if err := h.analytics.Ping(ctx); err != nil {
			resp.Components["analytics"] = "unhealthy: " + err.Error()
		} else {
			resp.Components["analytics"] = "healthy"
		}
		resp.Components["analytics_breaker"] = h.analytics.BreakerState()
	}

	statusCode := http.StatusOK
	if resp.Status == "degraded" {
		statusCode = http.StatusServiceUnavailable
	}

	writeJSON(w, statusCode, resp)
}

// maxRequestBodySize is the maximum allowed request body size (1MB).
const maxRequestBodySize = 1 << 20

// decodeBody reads a size-limited JSON body into v. On failure it writes
// the error response and returns false.
func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)

	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
			return false
		}
		writeError(w, http.StatusBadRequest, "invalid json")
		return false
	}
	return true
}

// allowPreview applies the preview rate limit.
func (h *Handler) allowPreview(w http.ResponseWriter) bool {
	if h.limiter == nil || h.limiter.Allow() {
		return true
	}
	if h.metrics != nil {
		h.metrics.PreviewRateLimited()
	}
	w.Header().Set("Retry-After", "1")
	writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
	return false
}

func (h *Handler) preview(w http.ResponseWriter, r *http.Request) {
	if !h.allowPreview(w) {
		return
	}

	var body PreviewRequest
	if !decodeBody(w, r, &body) {
		return
	}

	req, err := validatePreview(body)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	res, err := h.previewer.Preview(r.Context(), req)
	if err != nil {
		writePreviewError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toPreviewResponse(res))
}

func (h *Handler) randomPreview(w http.ResponseWriter, r *http.Request) {
	if !h.allowPreview(w) {
		return
	}

	count := 0
	if s := r.URL.Query().Get("count"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "invalid count")
			return
		}
		count = n
	}

	res, err := h.previewer.Preview(r.Context(), preview.Request{
		Expression: h.random(),
		Count:      count,
		Timezone:   r.URL.Query().Get("timezone"),
	})
	if err != nil {
		writePreviewError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toPreviewResponse(res))
}

func (h *Handler) createSchedule(w http.ResponseWriter, r *http.Request) {
	if !h.requireStore(w) {
		return
	}

	var req CreateScheduleRequest
	if !decodeBody(w, r, &req) {
		return
	}

	expr, err := validateCreateSchedule(req)
	if err != nil {
		writeErrorKind(w, http.StatusBadRequest, err)
		return
	}

	tz := req.Timezone
	if tz == "" {
		tz = "UTC"
	}

	now := h.now().UTC()
	schedule := domain.Schedule{
		ID:         uuid.New(),
		Name:       strings.TrimSpace(req.Name),
		Expression: expr,
		Timezone:   tz,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	if err := h.store.CreateSchedule(r.Context(), schedule); err != nil {
		if errors.Is(err, domain.ErrDuplicateName) {
			writeError(w, http.StatusConflict, err.Error())
			return
		}
		log.Error().Str("component", "api").Err(err).Msg("create schedule failed")
		writeError(w, http.StatusInternalServerError, "failed to create schedule")
		return
	}
	if h.metrics != nil {
		h.metrics.SchedulesStored(1)
	}

	writeJSON(w, http.StatusCreated, toScheduleResponse(schedule))
}

func (h *Handler) listSchedules(w http.ResponseWriter, r *http.Request) {
	if !h.requireStore(w) {
		return
	}

	limit, offset, err := parsePagination(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	schedules, err := h.store.ListSchedules(r.Context(), limit, offset)
	if err != nil {
		log.Error().Str("component", "api").Err(err).Msg("list schedules failed")
		writeError(w, http.StatusInternalServerError, "failed to list schedules")
		return
	}

	resp := ListSchedulesResponse{Schedules: make([]ScheduleResponse, len(schedules))}
	for i, s := range schedules {
		resp.Schedules[i] = toScheduleResponse(s)
	}

	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) getSchedule(w http.ResponseWriter, r *http.Request) {
	if !h.requireStore(w) {
		return
	}

	// Extract schedule ID from path: /schedules/{id}
	id, ok := scheduleID(w, r.URL.Path, "")
	if !ok {
		return
	}

	schedule, ok := h.loadSchedule(r.Context(), w, id)
	if !ok {
		return
	}

	writeJSON(w, http.StatusOK, toScheduleResponse(schedule))
}

func (h *Handler) nextRuns(w http.ResponseWriter, r *http.Request) {
	if !h.requireStore(w) {
		return
	}

	// Extract schedule ID from path: /schedules/{id}/next
	id, ok := scheduleID(w, r.URL.Path, "next")
	if !ok {
		return
	}

	count := 0
	if s := r.URL.Query().Get("count"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "invalid count")
			return
		}
		count = n
	}

	schedule, ok := h.loadSchedule(r.Context(), w, id)
	if !ok {
		return
	}

	runs, err := h.previewer.Runs(r.Context(), schedule.Expression, schedule.Timezone, count)
	if err != nil {
		writePreviewError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, NextRunsResponse{
		Schedule: toScheduleResponse(schedule),
		Runs:     toRunResponses(runs),
	})
}

func (h *Handler) deleteSchedule(w http.ResponseWriter, r *http.Request) {
	if !h.requireStore(w) {
		return
	}

	// Extract schedule ID from path: /schedules/{id}
	id, ok := scheduleID(w, r.URL.Path, "")
	if !ok {
		return
	}

	if err := h.store.DeleteSchedule(r.Context(), id); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeError(w, http.StatusNotFound, "schedule not found")
			return
		}
		log.Error().Str("component", "api").Err(err).Msg("delete schedule failed")
		writeError(w, http.StatusInternalServerError, "failed to delete schedule")
		return
	}
	if h.metrics != nil {
		h.metrics.SchedulesStored(-1)
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) requireStore(w http.ResponseWriter) bool {
	if h.store == nil {
		writeError(w, http.StatusServiceUnavailable, "saved schedules are disabled (DATABASE_URL not set)")
		return false
	}
	return true
}

func (h *Handler) loadSchedule(ctx context.Context, w http.ResponseWriter, id uuid.UUID) (domain.Schedule, bool) {
	schedule, err := h.store.GetSchedule(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeError(w, http.StatusNotFound, "schedule not found")
			return domain.Schedule{}, false
		}
		log.Error().Str("component", "api").Err(err).Str("schedule", id.String()).Msg("get schedule failed")
		writeError(w, http.StatusInternalServerError, "failed to get schedule")
		return domain.Schedule{}, false
	}
	return schedule, true
}

// scheduleID parses /schedules/{id} or, with a suffix, /schedules/{id}/{suffix}.
func scheduleID(w http.ResponseWriter, path, suffix string) (uuid.UUID, bool) {
	parts := strings.Split(strings.Trim(path, "/"), "/")
	want := 2
	if suffix != "" {
		want = 3
	}
	if len(parts) != want || parts[0] != "schedules" || (suffix != "" && parts[2] != suffix) {
		writeError(w, http.StatusNotFound, "not found")
		return uuid.Nil, false
	}

	id, err := uuid.Parse(parts[1])
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid schedule id")
		return uuid.Nil, false
	}
	return id, true
}

// writePreviewError maps preview and engine errors to HTTP statuses.
func writePreviewError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, cron.ErrSearchExhausted):
		writeErrorKind(w, http.StatusUnprocessableEntity, err)
	case cron.KindOf(err) != "":
		writeErrorKind(w, http.StatusBadRequest, err)
	case errors.Is(err, preview.ErrInvalidCount), errors.Is(err, preview.ErrInvalidTimezone):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		writeError(w, http.StatusServiceUnavailable, "search timed out")
	default:
		log.Error().Str("component", "api").Err(err).Msg("preview failed")
		writeError(w, http.StatusInternalServerError, "preview failed")
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Str("component", "api").Err(err).Msg("json encode failed")
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, ErrorResponse{Error: msg})
}

// writeErrorKind writes err with its cron error kind, if it has one.
func writeErrorKind(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, ErrorResponse{Error: err.Error(), Kind: string(cron.KindOf(err))})
}

func toPreviewResponse(res *preview.Result) PreviewResponse {
	return PreviewResponse{
		Expression: res.Expression,
		Timezone:   res.Timezone,
		Summary:    res.Summary,
		Time:       res.Time,
		Runs:       toRunResponses(res.Runs),
	}
}

func toRunResponses(runs []time.Time) []RunResponse {
	out := make([]RunResponse, len(runs))
	for i, t := range runs {
		out[i] = RunResponse{
			At:      t.Format(time.RFC3339),
			Display: preview.FormatRun(t),
		}
	}
	return out
}

func toScheduleResponse(s domain.Schedule) ScheduleResponse {
	return ScheduleResponse{
		ID:         s.ID.String(),
		Name:       s.Name,
		Expression: s.Expression,
		Timezone:   s.Timezone,
		CreatedAt:  formatTime(s.CreatedAt),
		UpdatedAt:  formatTime(s.UpdatedAt),
	}
}

// parsePagination reads ?limit and ?offset. A missing or zero limit means
// DefaultLimit.
func parsePagination(r *http.Request) (limit, offset int, err error) {
	q := r.URL.Query()

	limit, err = queryInt(q, "limit")
	if err != nil {
		return 0, 0, err
	}
	if limit > MaxLimit {
		return 0, 0, fmt.Errorf("limit exceeds maximum of %d", MaxLimit)
	}
	if limit == 0 {
		limit = DefaultLimit
	}

	offset, err = queryInt(q, "offset")
	if err != nil {
		return 0, 0, err
	}
	return limit, offset, nil
}

// queryInt returns the non-negative integer parameter name, or 0 when absent.
func queryInt(q url.Values, name string) (int, error) {
	s := q.Get(name)
	if s == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("%s must be a non-negative integer", name)
	}
	return n, nil
}
