package api

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shopspring/decimal"

	"github.com/punchamoorthee/debtops/internal/domain"
	"github.com/punchamoorthee/debtops/internal/jobs"
)

// Metrics
var (
	httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "debtops_http_requests_total",
		Help: "Total HTTP requests processed, labeled by status code",
	}, []string{"method", "endpoint", "status"})

	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "debtops_http_request_duration_seconds",
		Help:    "Latency distribution of HTTP requests",
		Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 5},
	}, []string{"method", "endpoint"})
)

type Settler interface {
	Settle(ctx context.Context, externalID string, paidAmount decimal.Decimal, paidBy string) (*domain.Debt, error)
}

type OutstandingSelector interface {
	SelectOutstanding(ctx context.Context) ([]string, error)
}

type DebtLookup interface {
	FindByExternalID(ctx context.Context, externalID string) (*domain.Debt, error)
}

type Stager interface {
	Save(r io.Reader) (string, error)
	Remove(path string) error
}

type Enqueuer interface {
	Enqueue(job jobs.Job) error
}

type ImportScheduler interface {
	Job(path string) jobs.Job
}

type ReminderScheduler interface {
	Job(debtIDs []string) jobs.Job
}

// Deps wires the handler to the rest of the application.
type Deps struct {
	Debts       DebtLookup
	Settlement  Settler
	Outstanding OutstandingSelector
	Staging     Stager
	Queue       Enqueuer
	Importer    ImportScheduler
	Reminders   ReminderScheduler
	Log         *slog.Logger
}

type Handler struct {
	deps Deps
	log  *slog.Logger
}

func NewHandler(d Deps) *Handler {
	logger := d.Log
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{deps: d, log: logger}
}

// Router mounts every endpoint, plus /health and /metrics.
func (h *Handler) Router() *mux.Router {
	r := mux.NewRouter()
	r.Use(h.logRequests)
	r.Handle("/metrics", promhttp.Handler())
	r.HandleFunc("/health", h.HealthCheckHandler).Methods("GET")

	debts := r.PathPrefix("/api/v1/debts").Subrouter()
	debts.HandleFunc("/import_debts_csv", h.ImportDebtsCSVHandler).Methods("POST")
	debts.HandleFunc("/generate_invoices", h.GenerateInvoicesHandler).Methods("POST")
	debts.HandleFunc("/webhook_payment", h.WebhookPaymentHandler).Methods("POST")
	debts.HandleFunc("/{debtId}", h.GetDebtHandler).Methods("GET")
	return r
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

func (h *Handler) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		attrs := []any{"method", r.Method, "path", r.URL.Path, "status", rec.status,
			"duration_ms", time.Since(start).Milliseconds()}
		switch {
		case rec.status >= 500:
			h.log.Error("request", attrs...)
		case rec.status >= 400:
			h.log.Warn("request", attrs...)
		default:
			h.log.Info("request", attrs...)
		}
	})
}

// Helpers
func respondJSON(w http.ResponseWriter, code int, payload interface{}, method, endpoint string) {
	httpRequestsTotal.WithLabelValues(method, endpoint, strconv.Itoa(code)).Inc()
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if payload != nil {
		json.NewEncoder(w).Encode(payload)
	}
}

func respondError(w http.ResponseWriter, code int, msg, method, endpoint string) {
	respondJSON(w, code, map[string]string{"error": msg}, method, endpoint)
}
