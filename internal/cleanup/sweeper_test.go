package cleanup

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/fairwaylabs/teesheet/internal/model"
)

type memStore struct {
	mu         sync.Mutex
	expired    []model.ExpiredRegistration
	reclaimed  []int64
	failFor    map[int64]error
	expiredErr error
}

func (m *memStore) Expired(_ context.Context, _ time.Time) ([]model.ExpiredRegistration, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.expiredErr != nil {
		return nil, m.expiredErr
	}
	out := make([]model.ExpiredRegistration, len(m.expired))
	copy(out, m.expired)
	return out, nil
}

func (m *memStore) Reclaim(_ context.Context, reg model.ExpiredRegistration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failFor[reg.ID]; err != nil {
		return err
	}
	for i, e := range m.expired {
		if e.ID == reg.ID {
			m.expired = append(m.expired[:i], m.expired[i+1:]...)
			break
		}
	}
	m.reclaimed = append(m.reclaimed, reg.ID)
	return nil
}

type memPayments struct {
	byReg     map[int64][]int64
	deleted   []int64
	deleteErr error
}

func (m *memPayments) PaymentIDs(_ context.Context, regID int64) ([]int64, error) {
	return m.byReg[regID], nil
}

func (m *memPayments) DeletePaymentAndFees(_ context.Context, paymentID int64) error {
	if m.deleteErr != nil {
		return m.deleteErr
	}
	m.deleted = append(m.deleted, paymentID)
	return nil
}

type memNotifier struct {
	mu     sync.Mutex
	events []int64
}

func (m *memNotifier) NotifyChange(eventID int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, eventID)
}

func newSweeper(store *memStore, payments *memPayments, notifier *memNotifier) *Sweeper {
	return New(store, payments, notifier, zap.NewNop(), time.Minute)
}

func TestSweepReclaimsExpired(t *testing.T) {
	store := &memStore{expired: []model.ExpiredRegistration{
		{ID: 1, EventID: 10, Choosable: true, SlotIDs: []int64{100, 101}},
		{ID: 2, EventID: 11, Choosable: false, SlotIDs: []int64{200}},
	}}
	payments := &memPayments{byReg: map[int64][]int64{1: {500}}}
	notifier := &memNotifier{}

	n, err := newSweeper(store, payments, notifier).Sweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.ElementsMatch(t, []int64{1, 2}, store.reclaimed)
	assert.Equal(t, []int64{500}, payments.deleted)

	// Only the choosable event's grid needs a refresh.
	assert.Equal(t, []int64{10}, notifier.events)
}

func TestSweepIdempotent(t *testing.T) {
	store := &memStore{expired: []model.ExpiredRegistration{
		{ID: 1, EventID: 10, Choosable: true, SlotIDs: []int64{100}},
	}}
	sweeper := newSweeper(store, &memPayments{}, &memNotifier{})

	n, err := sweeper.Sweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	n, err = sweeper.Sweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, n)
	assert.Equal(t, []int64{1}, store.reclaimed, "no double release")
}

func TestSweepIsolatesFailures(t *testing.T) {
	store := &memStore{
		expired: []model.ExpiredRegistration{
			{ID: 1, EventID: 10, Choosable: true},
			{ID: 2, EventID: 10, Choosable: true},
			{ID: 3, EventID: 11, Choosable: true},
		},
		failFor: map[int64]error{2: errors.New("deadlock")},
	}
	notifier := &memNotifier{}

	n, err := newSweeper(store, &memPayments{}, notifier).Sweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.ElementsMatch(t, []int64{1, 3}, store.reclaimed)
	assert.Len(t, notifier.events, 2)
}

func TestSweepPaymentCleanupBestEffort(t *testing.T) {
	store := &memStore{expired: []model.ExpiredRegistration{
		{ID: 1, EventID: 10, Choosable: false, SlotIDs: []int64{100}},
	}}
	payments := &memPayments{
		byReg:     map[int64][]int64{1: {500}},
		deleteErr: errors.New("gateway down"),
	}

	n, err := newSweeper(store, payments, &memNotifier{}).Sweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n, "payment failure does not block slot reclaim")
	assert.Equal(t, []int64{1}, store.reclaimed)
}

func TestSweepQueryError(t *testing.T) {
	store := &memStore{expiredErr: errors.New("db down")}
	_, err := newSweeper(store, &memPayments{}, &memNotifier{}).Sweep(context.Background())
	assert.Error(t, err)
}
