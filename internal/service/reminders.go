package service

import (
	"context"
	"fmt"
)

// ReminderService selects debts that still need a payment reminder.
type ReminderService struct {
	repo DebtRepository
}

func NewReminderService(repo DebtRepository) *ReminderService {
	return &ReminderService{repo: repo}
}

// SelectOutstanding returns the external IDs of all pending debts in no
// particular order. An empty result is not an error.
func (s *ReminderService) SelectOutstanding(ctx context.Context) ([]string, error) {
	ids, err := s.repo.ListPending(ctx)
	if err != nil {
		return nil, fmt.Errorf("list pending debts: %w", err)
	}
	if ids == nil {
		ids = []string{}
	}
	return ids, nil
}
