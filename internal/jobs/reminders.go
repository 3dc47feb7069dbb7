package jobs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"github.com/punchamoorthee/debtops/internal/domain"
)

// DebtLookup loads a debt by its external id; nil, nil means not found.
type DebtLookup interface {
	FindByExternalID(ctx context.Context, externalID string) (*domain.Debt, error)
}

// Reminder is the invoice summary sent to a debt holder.
type Reminder struct {
	DebtID       string
	Name         string
	Email        string
	GovernmentID string
	Amount       decimal.Decimal
	DueDate      time.Time
	DaysOverdue  int
}

// Subject is the reminder's message subject line.
func (r Reminder) Subject() string {
	return "Payment reminder - debt " + r.DebtID
}

// Notifier delivers a reminder to the debt holder.
type Notifier interface {
	Notify(ctx context.Context, r Reminder) error
}

// LogNotifier writes reminders to the log instead of delivering them.
type LogNotifier struct {
	Log *slog.Logger
}

func (n LogNotifier) Notify(_ context.Context, r Reminder) error {
	n.Log.Info("payment reminder",
		"to", r.Email,
		"subject", r.Subject(),
		"debt_id", r.DebtID,
		"amount", r.Amount.StringFixed(2),
		"due_date", r.DueDate.Format(domain.DateLayout),
		"days_overdue", r.DaysOverdue,
	)
	return nil
}

// Reminders builds and sends reminders for a set of debts.
type Reminders struct {
	debts    DebtLookup
	notifier Notifier
	now      func() time.Time
	log      *slog.Logger
}

func NewReminders(debts DebtLookup, notifier Notifier, now func() time.Time, logger *slog.Logger) *Reminders {
	return &Reminders{debts: debts, notifier: notifier, now: now, log: logger}
}

// Send notifies every listed debt that is still pending and returns how many
// reminders went out. A failure for one debt is logged and skipped; only a
// cancelled context stops the round early.
func (r *Reminders) Send(ctx context.Context, debtIDs []string) (int, error) {
	today := r.now()
	sent := 0
	for _, id := range debtIDs {
		if err := ctx.Err(); err != nil {
			return sent, err
		}
		ok, err := r.sendOne(ctx, id, today)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return sent, err
			}
			reminderFailuresTotal.Inc()
			r.log.Error("reminder failed", "debt_id", id, "error", err)
			continue
		}
		if !ok {
			r.log.Info("reminder skipped, debt already settled", "debt_id", id)
			continue
		}
		sent++
		remindersSentTotal.Inc()
	}
	return sent, nil
}

// sendOne reports false without error when the debt was settled after the
// round was scheduled.
func (r *Reminders) sendOne(ctx context.Context, id string, today time.Time) (bool, error) {
	d, err := r.debts.FindByExternalID(ctx, id)
	if err != nil {
		return false, err
	}
	if d == nil {
		return false, fmt.Errorf("debt %s not found", id)
	}
	if d.Status != domain.StatusPending {
		return false, nil
	}

	err = r.notifier.Notify(ctx, Reminder{
		DebtID:       d.ExternalID,
		Name:         d.HolderName,
		Email:        d.HolderEmail,
		GovernmentID: d.HolderGovernmentID,
		Amount:       d.Amount,
		DueDate:      d.DueDate,
		DaysOverdue:  d.DaysOverdue(today),
	})
	return err == nil, err
}

// Job wraps one reminder round for the queue.
func (r *Reminders) Job(debtIDs []string) Job {
	return Job{
		Name: fmt.Sprintf("reminders (%d debts)", len(debtIDs)),
		Run: func(ctx context.Context) error {
			sent, err := r.Send(ctx, debtIDs)
			r.log.Info("reminder round finished", "requested", len(debtIDs), "sent", sent)
			return err
		},
	}
}
