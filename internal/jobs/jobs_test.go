package jobs_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/punchamoorthee/debtops/internal/domain"
	"github.com/punchamoorthee/debtops/internal/ingest"
	"github.com/punchamoorthee/debtops/internal/jobs"
	mock_service "github.com/punchamoorthee/debtops/internal/service/mocks"
	"github.com/punchamoorthee/debtops/internal/staging"
	"github.com/punchamoorthee/debtops/internal/store/sqlite"
	"github.com/punchamoorthee/debtops/pkg/logging"
)

func TestQueue_RunsJobsInOrder(t *testing.T) {
	q := jobs.NewQueue(4, logging.Discard())

	var (
		mu  sync.Mutex
		ran []string
	)
	done := make(chan struct{})
	add := func(name string, err error) {
		require.NoError(t, q.Enqueue(jobs.Job{Name: name, Run: func(context.Context) error {
			mu.Lock()
			ran = append(ran, name)
			mu.Unlock()
			if name == "last" {
				close(done)
			}
			return err
		}}))
	}
	add("first", nil)
	add("failing", errors.New("boom"))
	add("last", nil)

	ctx, cancel := context.WithCancel(context.Background())
	stopped := make(chan error)
	go func() { stopped <- q.Run(ctx) }()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("jobs did not run")
	}
	cancel()
	assert.NoError(t, <-stopped)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"first", "failing", "last"}, ran)
}

func TestQueue_Full(t *testing.T) {
	q := jobs.NewQueue(1, logging.Discard())
	noop := jobs.Job{Name: "noop", Run: func(context.Context) error { return nil }}

	require.NoError(t, q.Enqueue(noop))
	assert.ErrorIs(t, q.Enqueue(noop), jobs.ErrQueueFull)
	assert.Equal(t, 1, q.Len())
}

func TestImporter_ImportsStagedFile(t *testing.T) {
	store, err := sqlite.New(filepath.Join(t.TempDir(), "debts.db"))
	require.NoError(t, err)
	defer store.Close()

	dir := staging.NewDir(t.TempDir())
	f, err := os.Open(filepath.Join("testdata", "debts.csv"))
	require.NoError(t, err)
	path, err := dir.Save(f)
	f.Close()
	require.NoError(t, err)

	im := jobs.NewImporter(ingest.NewPipeline(store, ingest.WithBatchSize(2)), dir, logging.Discard())
	report, err := im.Import(context.Background(), path)
	require.NoError(t, err)

	assert.Equal(t, 4, report.TotalRows)
	assert.Equal(t, 3, report.Committed)
	require.Len(t, report.Errors, 1)
	assert.Equal(t, 3, report.Errors[0].Row)
	assert.Equal(t, domain.KindParse, report.Errors[0].Kind)

	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err), "staged file is removed after import")

	ids, err := store.ListPending(context.Background())
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"1adb6ccf", "2bcd7dde", "4def9ffa"}, ids)
}

func TestImporter_MissingFile(t *testing.T) {
	im := jobs.NewImporter(ingest.NewPipeline(nil), nil, logging.Discard())
	job := im.Job(filepath.Join(t.TempDir(), "nope.csv"))

	assert.Error(t, job.Run(context.Background()))
}

type recordingNotifier struct {
	sent []jobs.Reminder
	fail map[string]bool
}

func (n *recordingNotifier) Notify(_ context.Context, r jobs.Reminder) error {
	if n.fail[r.DebtID] {
		return errors.New("smtp unavailable")
	}
	n.sent = append(n.sent, r)
	return nil
}

func TestReminders_Send(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	today := time.Date(2025, 3, 11, 15, 0, 0, 0, time.UTC)
	due := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	pending := func(id string) *domain.Debt {
		return domain.NewPendingDebt(id, "Holder "+id, "123", id+"@example.com", decimal.RequireFromString("99.9"), due)
	}

	repo := mock_service.NewMockDebtRepository(ctrl)
	repo.EXPECT().FindByExternalID(gomock.Any(), "D1").Return(pending("D1"), nil)
	repo.EXPECT().FindByExternalID(gomock.Any(), "GONE").Return(nil, nil)
	repo.EXPECT().FindByExternalID(gomock.Any(), "ERR").Return(nil, errors.New("db down"))
	repo.EXPECT().FindByExternalID(gomock.Any(), "PAID").Return(
		pending("PAID").MarkPaid(decimal.NewFromInt(1), "x", today), nil)
	repo.EXPECT().FindByExternalID(gomock.Any(), "BOUNCE").Return(pending("BOUNCE"), nil)
	repo.EXPECT().FindByExternalID(gomock.Any(), "D2").Return(pending("D2"), nil)

	notifier := &recordingNotifier{fail: map[string]bool{"BOUNCE": true}}
	r := jobs.NewReminders(repo, notifier, func() time.Time { return today }, logging.Discard())

	sent, err := r.Send(context.Background(), []string{"D1", "GONE", "ERR", "PAID", "BOUNCE", "D2"})
	require.NoError(t, err)
	assert.Equal(t, 2, sent)

	require.Len(t, notifier.sent, 2)
	first := notifier.sent[0]
	assert.Equal(t, "D1", first.DebtID)
	assert.Equal(t, "D1@example.com", first.Email)
	assert.Equal(t, 10, first.DaysOverdue)
	assert.Equal(t, "Payment reminder - debt D1", first.Subject())
	assert.Equal(t, "D2", notifier.sent[1].DebtID)
}

func TestReminders_StopsOnCancel(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	repo := mock_service.NewMockDebtRepository(ctrl)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	r := jobs.NewReminders(repo, jobs.LogNotifier{Log: logging.Discard()}, time.Now, logging.Discard())
	sent, err := r.Send(ctx, []string{"D1", "D2"})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, sent)
}
