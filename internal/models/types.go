package models

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/punchamoorthee/debtops/internal/domain"
)

// PaymentWebhookRequest is the payload sent by the payment provider.
type PaymentWebhookRequest struct {
	DebtID     string          `json:"debtId"`
	PaidAmount json.RawMessage `json:"paidAmount"`
	PaidBy     string          `json:"paidBy"`
}

// AmountText returns paidAmount as text whether it was sent as a JSON number
// or a JSON string. Null or missing yields "".
func (r PaymentWebhookRequest) AmountText() (string, error) {
	raw := strings.TrimSpace(string(r.PaidAmount))
	if raw == "" || raw == "null" {
		return "", nil
	}
	if strings.HasPrefix(raw, `"`) {
		var s string
		if err := json.Unmarshal(r.PaidAmount, &s); err != nil {
			return "", fmt.Errorf("paidAmount: %w", err)
		}
		return s, nil
	}
	var n json.Number
	if err := json.Unmarshal(r.PaidAmount, &n); err != nil {
		return "", fmt.Errorf("paidAmount must be a number or string")
	}
	return n.String(), nil
}

// MessageResponse is the body of every successful non-resource reply.
type MessageResponse struct {
	Message string `json:"message"`
}

// ImportAcceptedResponse acknowledges an upload that was queued for import.
type ImportAcceptedResponse struct {
	Message string `json:"message"`
	File    string `json:"file"`
}

// RemindersResponse acknowledges a reminder round.
type RemindersResponse struct {
	Message string `json:"message"`
	Debts   int    `json:"debts"`
}

// DebtResponse is the public view of a debt.
type DebtResponse struct {
	DebtID       string  `json:"debtId"`
	Name         string  `json:"name"`
	GovernmentID string  `json:"governmentId"`
	Email        string  `json:"email"`
	DebtAmount   string  `json:"debtAmount"`
	DebtDueDate  string  `json:"debtDueDate"`
	Status       string  `json:"status"`
	PaidAmount   *string `json:"paidAmount,omitempty"`
	PaidBy       *string `json:"paidBy,omitempty"`
	PaidAt       *string `json:"paidAt,omitempty"`
}

func NewDebtResponse(d *domain.Debt) DebtResponse {
	resp := DebtResponse{
		DebtID:       d.ExternalID,
		Name:         d.HolderName,
		GovernmentID: d.HolderGovernmentID,
		Email:        d.HolderEmail,
		DebtAmount:   d.Amount.String(),
		DebtDueDate:  d.DueDate.Format(domain.DateLayout),
		Status:       string(d.Status),
		PaidBy:       d.PaidBy,
	}
	if d.PaidAmount != nil {
		s := d.PaidAmount.String()
		resp.PaidAmount = &s
	}
	if d.PaidAt != nil {
		s := d.PaidAt.UTC().Format(time.RFC3339)
		resp.PaidAt = &s
	}
	return resp
}
