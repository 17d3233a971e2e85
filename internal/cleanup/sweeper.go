// Package cleanup reclaims abandoned reservations.  A registration is
// abandoned when its expiry has passed while its slots are still
// pending; the sweeper releases the slots, removes unconfirmed payment
// records and deletes the registration.
package cleanup

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/fairwaylabs/teesheet/internal/model"
)

// Store is the persistence surface the sweeper needs.
type Store interface {
	// Expired returns every registration whose expiry is non-null and
	// in the past, with the ids of its still-pending slots.
	Expired(ctx context.Context, now time.Time) ([]model.ExpiredRegistration, error)

	// Reclaim releases or deletes the registration's slots and deletes
	// the registration, all in one transaction.
	Reclaim(ctx context.Context, reg model.ExpiredRegistration) error
}

// Payments looks up and removes unconfirmed payment records tied to a
// registration being reclaimed.
type Payments interface {
	PaymentIDs(ctx context.Context, regID int64) ([]int64, error)
	DeletePaymentAndFees(ctx context.Context, paymentID int64) error
}

// Notifier receives change signals for live grid subscribers.
type Notifier interface {
	NotifyChange(eventID int64)
}

// Sweeper finds and reclaims expired registrations on a timer.
type Sweeper struct {
	store    Store
	payments Payments
	notifier Notifier
	log      *zap.Logger
	interval time.Duration
	now      func() time.Time
}

// New builds a Sweeper that sweeps every interval when driven by Run.
func New(store Store, payments Payments, notifier Notifier, log *zap.Logger, interval time.Duration) *Sweeper {
	return &Sweeper{
		store:    store,
		payments: payments,
		notifier: notifier,
		log:      log,
		interval: interval,
		now:      time.Now,
	}
}

// Run sweeps on the configured interval until ctx is cancelled.
func (s *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := s.Sweep(ctx); err != nil {
				s.log.Error("sweep failed", zap.Error(err))
			}
		}
	}
}

// Sweep reclaims every currently-expired registration and returns the
// number successfully reclaimed. One registration's failure is logged
// and skipped; the rest of the sweep continues.
func (s *Sweeper) Sweep(ctx context.Context) (int, error) {
	expired, err := s.store.Expired(ctx, s.now())
	if err != nil {
		return 0, err
	}
	reclaimed := 0
	for _, reg := range expired {
		if err := s.reclaim(ctx, reg); err != nil {
			s.log.Error("reclaim failed",
				zap.Int64("registration_id", reg.ID),
				zap.Int64("event_id", reg.EventID),
				zap.Error(err))
			continue
		}
		reclaimed++
		if reg.Choosable {
			s.notifier.NotifyChange(reg.EventID)
		}
	}
	if reclaimed > 0 {
		s.log.Info("sweep reclaimed registrations", zap.Int("count", reclaimed))
	}
	return reclaimed, nil
}

func (s *Sweeper) reclaim(ctx context.Context, reg model.ExpiredRegistration) error {
	// Payment record cleanup is best-effort: a failure here is logged
	// and the slots are still reclaimed.
	paymentIDs, err := s.payments.PaymentIDs(ctx, reg.ID)
	if err != nil {
		s.log.Warn("payment lookup failed",
			zap.Int64("registration_id", reg.ID), zap.Error(err))
	}
	for _, id := range paymentIDs {
		if err := s.payments.DeletePaymentAndFees(ctx, id); err != nil {
			s.log.Warn("payment cleanup failed",
				zap.Int64("registration_id", reg.ID),
				zap.Int64("payment_id", id),
				zap.Error(err))
		}
	}
	return s.store.Reclaim(ctx, reg)
}
