package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"path/filepath"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/punchamoorthee/debtops/internal/jobs"
	"github.com/punchamoorthee/debtops/internal/models"
	"github.com/punchamoorthee/debtops/internal/service"
)

const (
	epImport    = "/api/v1/debts/import_debts_csv"
	epInvoices  = "/api/v1/debts/generate_invoices"
	epWebhook   = "/api/v1/debts/webhook_payment"
	epGetDebt   = "/api/v1/debts/{debtId}"
	maxUploadMB = 64
)

func (h *Handler) HealthCheckHandler(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"}, "GET", "/health")
}

// ImportDebtsCSVHandler stages the uploaded file and queues its import. The
// row-level report is written to the log by the import job.
func (h *Handler) ImportDebtsCSVHandler(w http.ResponseWriter, r *http.Request) {
	timer := prometheus.NewTimer(httpRequestDuration.WithLabelValues("POST", epImport))
	defer timer.ObserveDuration()

	if err := r.ParseMultipartForm(maxUploadMB << 20); err != nil && !errors.Is(err, http.ErrNotMultipart) {
		respondError(w, http.StatusBadRequest, "Malformed multipart body", "POST", epImport)
		return
	}
	file, _, err := r.FormFile("file")
	if err != nil {
		respondError(w, http.StatusBadRequest, "File is required", "POST", epImport)
		return
	}
	defer file.Close()

	path, err := h.deps.Staging.Save(file)
	if err != nil {
		h.log.Error("upload staging failed", "error", err)
		respondError(w, http.StatusUnprocessableEntity, "Failed to process CSV: "+err.Error(), "POST", epImport)
		return
	}

	if err := h.deps.Queue.Enqueue(h.deps.Importer.Job(path)); err != nil {
		if rmErr := h.deps.Staging.Remove(path); rmErr != nil {
			h.log.Warn("failed to remove staged upload", "path", path, "error", rmErr)
		}
		if errors.Is(err, jobs.ErrQueueFull) {
			respondError(w, http.StatusServiceUnavailable, "Import queue is full, retry later", "POST", epImport)
			return
		}
		respondError(w, http.StatusInternalServerError, "Internal Server Error", "POST", epImport)
		return
	}

	respondJSON(w, http.StatusOK, models.ImportAcceptedResponse{
		Message: "CSV accepted for import",
		File:    filepath.Base(path),
	}, "POST", epImport)
}

func (h *Handler) GenerateInvoicesHandler(w http.ResponseWriter, r *http.Request) {
	timer := prometheus.NewTimer(httpRequestDuration.WithLabelValues("POST", epInvoices))
	defer timer.ObserveDuration()

	ids, err := h.deps.Outstanding.SelectOutstanding(r.Context())
	if err != nil {
		h.log.Error("pending debt lookup failed", "error", err)
		respondError(w, http.StatusInternalServerError, "Internal Server Error", "POST", epInvoices)
		return
	}
	if len(ids) == 0 {
		respondJSON(w, http.StatusOK, models.MessageResponse{Message: "No pending debts found"}, "POST", epInvoices)
		return
	}

	if err := h.deps.Queue.Enqueue(h.deps.Reminders.Job(ids)); err != nil {
		if errors.Is(err, jobs.ErrQueueFull) {
			respondError(w, http.StatusServiceUnavailable, "Job queue is full, retry later", "POST", epInvoices)
			return
		}
		respondError(w, http.StatusInternalServerError, "Internal Server Error", "POST", epInvoices)
		return
	}

	respondJSON(w, http.StatusOK, models.RemindersResponse{Message: "Reminders started", Debts: len(ids)}, "POST", epInvoices)
}

func (h *Handler) WebhookPaymentHandler(w http.ResponseWriter, r *http.Request) {
	timer := prometheus.NewTimer(httpRequestDuration.WithLabelValues("POST", epWebhook))
	defer timer.ObserveDuration()

	var req models.PaymentWebhookRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Malformed JSON body", "POST", epWebhook)
		return
	}

	amountText, err := req.AmountText()
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid parameters", "POST", epWebhook)
		return
	}
	amount, err := service.ParseAmount(amountText)
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid parameters", "POST", epWebhook)
		return
	}

	_, err = h.deps.Settlement.Settle(r.Context(), req.DebtID, amount, req.PaidBy)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidArguments):
			respondError(w, http.StatusBadRequest, "Invalid parameters", "POST", epWebhook)
		case errors.Is(err, service.ErrDebtNotFound):
			respondError(w, http.StatusNotFound, "Debt not found", "POST", epWebhook)
		case errors.Is(err, service.ErrAlreadySettled):
			respondError(w, http.StatusUnprocessableEntity, "Debt already paid", "POST", epWebhook)
		default:
			h.log.Error("payment failed", "debt_id", req.DebtID, "error", err)
			respondError(w, http.StatusUnprocessableEntity, "Failed to process payment: "+err.Error(), "POST", epWebhook)
		}
		return
	}

	h.log.Info("payment registered", "debt_id", req.DebtID, "paid_by", req.PaidBy, "amount", amount.String())
	respondJSON(w, http.StatusOK, models.MessageResponse{Message: "Payment registered"}, "POST", epWebhook)
}

func (h *Handler) GetDebtHandler(w http.ResponseWriter, r *http.Request) {
	timer := prometheus.NewTimer(httpRequestDuration.WithLabelValues("GET", epGetDebt))
	defer timer.ObserveDuration()

	debt, err := h.deps.Debts.FindByExternalID(r.Context(), mux.Vars(r)["debtId"])
	if err != nil {
		h.log.Error("debt lookup failed", "error", err)
		respondError(w, http.StatusInternalServerError, "Internal Server Error", "GET", epGetDebt)
		return
	}
	if debt == nil {
		respondError(w, http.StatusNotFound, "Debt not found", "GET", epGetDebt)
		return
	}

	respondJSON(w, http.StatusOK, models.NewDebtResponse(debt), "GET", epGetDebt)
}
