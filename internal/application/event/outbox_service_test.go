package event

import (
	"context"
	"errors"
	"slices"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/opsdash/purchasing/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeOutboxRepo struct {
	entries   []*shared.OutboxEntry
	updateErr error
}

func (r *fakeOutboxRepo) Save(_ context.Context, entries ...*shared.OutboxEntry) error {
	r.entries = append(r.entries, entries...)
	return nil
}

func (r *fakeOutboxRepo) FindPending(context.Context, int) ([]*shared.OutboxEntry, error) {
	return nil, nil
}

func (r *fakeOutboxRepo) FindRetryable(context.Context, time.Time, int) ([]*shared.OutboxEntry, error) {
	return nil, nil
}

func (r *fakeOutboxRepo) FindDead(_ context.Context, page, pageSize int) ([]*shared.OutboxEntry, int64, error) {
	var dead []*shared.OutboxEntry
	for _, e := range r.entries {
		if e.IsDead() {
			dead = append(dead, e)
		}
	}
	start := (page - 1) * pageSize
	if start >= len(dead) {
		return nil, int64(len(dead)), nil
	}
	end := min(start+pageSize, len(dead))
	return slices.Clone(dead[start:end]), int64(len(dead)), nil
}

func (r *fakeOutboxRepo) FindByID(_ context.Context, id uuid.UUID) (*shared.OutboxEntry, error) {
	for _, e := range r.entries {
		if e.ID == id {
			return e, nil
		}
	}
	return nil, shared.NewDomainError(shared.CodeNotFound, "Outbox entry not found")
}

func (r *fakeOutboxRepo) MarkProcessing(context.Context, []uuid.UUID) ([]*shared.OutboxEntry, error) {
	return nil, nil
}

func (r *fakeOutboxRepo) Update(context.Context, *shared.OutboxEntry) error {
	return r.updateErr
}

func (r *fakeOutboxRepo) DeleteOlderThan(context.Context, time.Time) (int64, error) {
	return 0, nil
}

func (r *fakeOutboxRepo) CountByStatus(context.Context) (map[shared.OutboxStatus]int64, error) {
	counts := make(map[shared.OutboxStatus]int64)
	for _, e := range r.entries {
		counts[e.Status]++
	}
	return counts, nil
}

func newEntry(status shared.OutboxStatus) *shared.OutboxEntry {
	return &shared.OutboxEntry{
		ID:            uuid.New(),
		EventID:       uuid.New(),
		EventType:     "PurchaseOrderSent",
		AggregateID:   uuid.New(),
		AggregateType: "PurchaseOrder",
		Status:        status,
		RetryCount:    5,
		MaxRetries:    5,
		LastError:     "inventory unavailable",
	}
}

func TestOutboxService_ListDead(t *testing.T) {
	repo := &fakeOutboxRepo{}
	for range 25 {
		repo.entries = append(repo.entries, newEntry(shared.OutboxStatusDead))
	}
	repo.entries = append(repo.entries, newEntry(shared.OutboxStatusSent))
	svc := NewOutboxService(repo, zap.NewNop())

	t.Run("defaults", func(t *testing.T) {
		page, err := svc.ListDead(context.Background(), OutboxFilter{})
		require.NoError(t, err)
		assert.Len(t, page.Items, 20)
		assert.Equal(t, int64(25), page.Total)
		assert.Equal(t, 2, page.TotalPages)
		assert.Equal(t, "DEAD", page.Items[0].Status)
	})

	t.Run("second page", func(t *testing.T) {
		page, err := svc.ListDead(context.Background(), OutboxFilter{Page: 2, PageSize: 20})
		require.NoError(t, err)
		assert.Len(t, page.Items, 5)
	})
}

func TestOutboxService_RetryDead(t *testing.T) {
	dead := newEntry(shared.OutboxStatusDead)
	sent := newEntry(shared.OutboxStatusSent)
	repo := &fakeOutboxRepo{entries: []*shared.OutboxEntry{dead, sent}}
	svc := NewOutboxService(repo, zap.NewNop())

	dto, err := svc.RetryDead(context.Background(), dead.ID)
	require.NoError(t, err)
	assert.Equal(t, "PENDING", dto.Status)
	assert.Zero(t, dto.RetryCount)
	assert.Empty(t, dto.LastError)

	_, err = svc.RetryDead(context.Background(), sent.ID)
	assert.True(t, shared.IsCode(err, shared.CodeInvalidState))

	_, err = svc.RetryDead(context.Background(), uuid.New())
	assert.True(t, shared.IsCode(err, shared.CodeNotFound))
}

func TestOutboxService_RetryAllDead(t *testing.T) {
	repo := &fakeOutboxRepo{}
	for range 130 {
		repo.entries = append(repo.entries, newEntry(shared.OutboxStatusDead))
	}
	svc := NewOutboxService(repo, zap.NewNop())

	count, err := svc.RetryAllDead(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(130), count)

	stats, err := svc.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(130), stats.Pending)
	assert.Zero(t, stats.Dead)
}

func TestOutboxService_RetryAllDead_StopsOnPersistentFailure(t *testing.T) {
	repo := &fakeOutboxRepo{updateErr: errors.New("db down")}
	repo.entries = append(repo.entries, newEntry(shared.OutboxStatusDead))
	svc := NewOutboxService(repo, zap.NewNop())

	count, err := svc.RetryAllDead(context.Background())
	assert.Error(t, err)
	assert.Zero(t, count)
}

func TestOutboxService_Stats(t *testing.T) {
	repo := &fakeOutboxRepo{entries: []*shared.OutboxEntry{
		newEntry(shared.OutboxStatusPending),
		newEntry(shared.OutboxStatusFailed),
		newEntry(shared.OutboxStatusDead),
		newEntry(shared.OutboxStatusSent),
		newEntry(shared.OutboxStatusSent),
	}}
	svc := NewOutboxService(repo, nil)

	stats, err := svc.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, &OutboxStatsDTO{Pending: 1, Failed: 1, Dead: 1, Sent: 2, Total: 5}, stats)
}
