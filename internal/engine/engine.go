// Package engine orchestrates slot state transitions as atomic store
// transactions.  Every mutating operation re-validates its precondition
// under row locks inside one transaction; no transition is ever based
// on a stale read.  The engine is the only writer of slot and
// registration linkage.
package engine

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/fairwaylabs/teesheet/internal/model"
	"github.com/fairwaylabs/teesheet/internal/wave"
)

// Reservation expiry horizons. Choosable reservations hold specific
// slots other players may want, so they time out faster.
const (
	choosableExpiry    = 5 * time.Minute
	nonChoosableExpiry = 15 * time.Minute
)

// Engine performs all reservation mutations. Construct with New.
type Engine struct {
	store    Store
	payments Payments
	notifier Notifier
	log      *zap.Logger
	now      func() time.Time
}

// New builds an Engine. All dependencies must be non-nil.
func New(store Store, payments Payments, notifier Notifier, log *zap.Logger) *Engine {
	if store == nil || payments == nil || notifier == nil || log == nil {
		panic("nil dependency passed to engine.New")
	}
	return &Engine{
		store:    store,
		payments: payments,
		notifier: notifier,
		log:      log,
		now:      time.Now,
	}
}

// ReserveRequest describes a reservation attempt. SlotIDs is required
// for choosable events and ignored for non-choosable ones. CourseID is
// required when the event spans more than one course.
type ReserveRequest struct {
	EventID    int64
	SlotIDs    []int64
	PlayerID   int64
	CourseID   *int64
	SignedUpBy string
}

// Reserve claims slots for a player. For choosable events it locks the
// requested slots and fails with ErrSlotConflict if any is taken; for
// non-choosable events it checks capacity under the occupied-slot locks
// and creates a fresh pending group. Either way the live grid is
// signalled on success.
func (e *Engine) Reserve(ctx context.Context, req ReserveRequest) (*model.RegistrationWithSlots, error) {
	ev, err := e.store.Event(ctx, req.EventID)
	if err != nil {
		return nil, err
	}
	now := e.now()
	win := wave.WindowFor(ev, now)
	if win != wave.WindowRegistration && win != wave.WindowPriority {
		return nil, ErrRegistrationNotOpen
	}
	if ev.CourseCount > 1 && req.CourseID == nil {
		return nil, ErrCourseRequired
	}
	if ev.CanChoose {
		return e.reserveChoosable(ctx, ev, req, win, now)
	}
	return e.reserveNonChoosable(ctx, ev, req, now)
}

func (e *Engine) reserveChoosable(ctx context.Context, ev *model.Event, req ReserveRequest, win wave.Window, now time.Time) (*model.RegistrationWithSlots, error) {
	if len(req.SlotIDs) == 0 {
		return nil, ErrNoSlotsRequested
	}
	slotIDs := dedupe(req.SlotIDs)

	// Wave eligibility is checked outside the transaction. The wave of
	// a slot depends only on immutable layout columns, so a stale read
	// is safe here.
	if win == wave.WindowPriority {
		current := wave.Current(ev, now)
		for _, id := range slotIDs {
			detail, err := e.store.SlotDetail(ctx, id)
			if err != nil {
				return nil, err
			}
			hole := 0
			if detail.HoleNumber != nil {
				hole = *detail.HoleNumber
			}
			if w := wave.Starting(ev, detail.StartingOrder, hole); w > current {
				return nil, &WaveNotOpenError{Wave: w}
			}
		}
	}

	// A registration the player already owns blocks a new reserve only
	// once a slot has moved past pending; a pending-only attempt is
	// reused for the new selection instead.
	existing, err := e.store.RegistrationForPlayer(ctx, ev.ID, req.PlayerID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		for _, s := range existing.Slots {
			if s.Status == model.SlotAwaitingPayment || s.Status == model.SlotReserved {
				return nil, &AlreadyRegisteredError{PlayerID: req.PlayerID, EventID: ev.ID}
			}
		}
	}

	var regID int64
	err = e.store.InTx(ctx, func(tx Tx) error {
		locked, err := tx.LockSlots(ctx, ev.ID, slotIDs)
		if err != nil {
			return err
		}
		if len(locked) != len(slotIDs) {
			return ErrNotFound
		}
		for _, s := range locked {
			if s.Status != model.SlotAvailable {
				return ErrSlotConflict
			}
		}
		expires := now.Add(choosableExpiry)
		if existing != nil {
			regID = existing.ID
			if err := tx.RefreshRegistration(ctx, regID, req.CourseID, expires); err != nil {
				return err
			}
		} else {
			regID, err = tx.CreateRegistration(ctx, &model.Registration{
				EventID:    ev.ID,
				CourseID:   req.CourseID,
				PlayerID:   &req.PlayerID,
				SignedUpBy: req.SignedUpBy,
				Expires:    &expires,
				CreatedAt:  now,
			})
			if err != nil {
				return err
			}
		}
		// The requesting player takes the lowest-numbered slot.
		first := lowestNumbered(locked)
		for _, s := range locked {
			var playerID *int64
			if s.ID == first {
				playerID = &req.PlayerID
			}
			if err := tx.ClaimSlot(ctx, s.ID, regID, playerID); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	e.notifier.NotifyChange(ev.ID)
	e.log.Info("reservation created",
		zap.Int64("event_id", ev.ID),
		zap.Int64("registration_id", regID),
		zap.Int64("player_id", req.PlayerID),
		zap.Int("slots", len(slotIDs)))
	return e.store.Registration(ctx, regID)
}

func (e *Engine) reserveNonChoosable(ctx context.Context, ev *model.Event, req ReserveRequest, now time.Time) (*model.RegistrationWithSlots, error) {
	groupSize := ev.GroupSize()
	var regID int64
	err := e.store.InTx(ctx, func(tx Tx) error {
		occupied, err := tx.LockOccupiedSlots(ctx, ev.ID)
		if err != nil {
			return err
		}
		if ev.RegistrationMaximum > 0 && len(occupied)+groupSize > ev.RegistrationMaximum {
			return ErrEventFull
		}
		// A confirmed registration blocks a second signup. A stale
		// unpaid one is orphaned, not deleted: a payment confirmation
		// may be in flight for it, so the sweeper reclaims it once it
		// expires.
		stale, err := tx.RegistrationByOwner(ctx, ev.ID, req.PlayerID)
		if err != nil {
			return err
		}
		if stale != 0 {
			for _, s := range occupied {
				if s.RegistrationID != nil && *s.RegistrationID == stale && s.Status == model.SlotReserved {
					return &AlreadyRegisteredError{PlayerID: req.PlayerID, EventID: ev.ID}
				}
			}
			if err := tx.DetachRegistrationOwner(ctx, stale); err != nil {
				return err
			}
		}
		expires := now.Add(nonChoosableExpiry)
		regID, err = tx.CreateRegistration(ctx, &model.Registration{
			EventID:    ev.ID,
			CourseID:   req.CourseID,
			PlayerID:   &req.PlayerID,
			SignedUpBy: req.SignedUpBy,
			Expires:    &expires,
			CreatedAt:  now,
		})
		if err != nil {
			return err
		}
		for i := 0; i < groupSize; i++ {
			slot := &model.Slot{
				EventID:        ev.ID,
				RegistrationID: &regID,
				SlotNumber:     i + 1,
				Status:         model.SlotPending,
			}
			if i == 0 {
				slot.PlayerID = &req.PlayerID
			}
			if _, err := tx.CreateSlot(ctx, slot); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	e.notifier.NotifyChange(ev.ID)
	e.log.Info("reservation created",
		zap.Int64("event_id", ev.ID),
		zap.Int64("registration_id", regID),
		zap.Int64("player_id", req.PlayerID),
		zap.Int("slots", groupSize))
	return e.store.Registration(ctx, regID)
}

// AddPlayers assigns players to the registration's empty slots, lowest
// slot number first. The requesting player must already hold a slot in
// the group. The whole batch fails on the first player who is already
// registered elsewhere in the event.
func (e *Engine) AddPlayers(ctx context.Context, regID int64, playerIDs []int64, requestingPlayerID int64) (*model.RegistrationWithSlots, error) {
	reg, err := e.store.Registration(ctx, regID)
	if err != nil {
		return nil, err
	}
	if !reg.HasPlayer(requestingPlayerID) {
		return nil, ErrNotGroupMember
	}
	if len(playerIDs) > len(reg.EmptySlots()) {
		return nil, &SlotOverflowError{Requested: len(playerIDs), Open: len(reg.EmptySlots())}
	}
	err = e.store.InTx(ctx, func(tx Tx) error {
		// Lock the group and recompute the empty slots from the locked
		// rows: a concurrent add that won the lock first may have
		// filled some of them since the read above.
		locked, err := tx.LockSlots(ctx, reg.EventID, reg.SlotIDs())
		if err != nil {
			return err
		}
		empty := emptyOf(locked)
		if len(playerIDs) > len(empty) {
			return &SlotOverflowError{Requested: len(playerIDs), Open: len(empty)}
		}
		for i, playerID := range playerIDs {
			other, err := tx.RegistrationIDBySlotPlayer(ctx, reg.EventID, playerID)
			if err != nil {
				return err
			}
			if other != 0 && other != regID {
				return &AlreadyRegisteredError{PlayerID: playerID, EventID: reg.EventID}
			}
			pid := playerID
			if err := tx.SetSlotPlayer(ctx, empty[i].ID, &pid); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	e.notifier.NotifyChange(reg.EventID)
	return e.store.Registration(ctx, regID)
}

// DropPlayers removes reserved players from the group and records a
// timestamped note on the registration. Choosable slots revert to
// available; non-choosable slots are deleted. Returns the number of
// slots dropped.
func (e *Engine) DropPlayers(ctx context.Context, regID int64, slotIDs []int64, notes string) (int, error) {
	reg, err := e.store.Registration(ctx, regID)
	if err != nil {
		return 0, err
	}
	ev, err := e.store.Event(ctx, reg.EventID)
	if err != nil {
		return 0, err
	}
	slotIDs = dedupe(slotIDs)
	targets, err := dropTargets(reg, slotIDs)
	if err != nil {
		return 0, err
	}
	note := e.dropNote(targets, notes)
	err = e.store.InTx(ctx, func(tx Tx) error {
		if err := tx.DetachSlotFees(ctx, regID, slotIDs); err != nil {
			return err
		}
		if ev.CanChoose {
			if err := tx.ReleaseSlots(ctx, slotIDs); err != nil {
				return err
			}
		} else {
			if err := tx.DeleteSlots(ctx, slotIDs); err != nil {
				return err
			}
		}
		return tx.SetRegistrationNotes(ctx, regID, appendNote(reg.Notes, note))
	})
	if err != nil {
		return 0, err
	}
	e.notifier.NotifyChange(reg.EventID)
	e.log.Info("players dropped",
		zap.Int64("event_id", reg.EventID),
		zap.Int64("registration_id", regID),
		zap.Int("slots", len(slotIDs)))
	return len(slotIDs), nil
}

// Cancel deletes the registration and frees its slots. Any pending
// payment record is removed first, before the transaction opens, so no
// external call ever happens while row locks are held.
func (e *Engine) Cancel(ctx context.Context, regID, requestingPlayerID int64, paymentID *int64) error {
	reg, err := e.store.Registration(ctx, regID)
	if err != nil {
		return err
	}
	if !reg.HasPlayer(requestingPlayerID) {
		return ErrNotGroupMember
	}
	ev, err := e.store.Event(ctx, reg.EventID)
	if err != nil {
		return err
	}
	if paymentID != nil {
		if err := e.payments.DeletePaymentAndFees(ctx, *paymentID); err != nil {
			return fmt.Errorf("delete payment %d: %w", *paymentID, err)
		}
	}
	slotIDs := reg.SlotIDs()
	err = e.store.InTx(ctx, func(tx Tx) error {
		if len(slotIDs) > 0 {
			if err := tx.DetachSlotFees(ctx, regID, slotIDs); err != nil {
				return err
			}
			if ev.CanChoose {
				if err := tx.ReleaseSlots(ctx, slotIDs); err != nil {
					return err
				}
			} else {
				if err := tx.DeleteSlots(ctx, slotIDs); err != nil {
					return err
				}
			}
		}
		return tx.DeleteRegistration(ctx, regID)
	})
	if err != nil {
		return err
	}
	// Non-choosable events render no grid, so occupancy changes there
	// do not need a live refresh.
	if ev.CanChoose {
		e.notifier.NotifyChange(reg.EventID)
	}
	e.log.Info("registration cancelled",
		zap.Int64("event_id", reg.EventID),
		zap.Int64("registration_id", regID))
	return nil
}

// UpdateNotes replaces the registration's notes text.
func (e *Engine) UpdateNotes(ctx context.Context, regID, requestingPlayerID int64, notes string) (*model.RegistrationWithSlots, error) {
	reg, err := e.store.Registration(ctx, regID)
	if err != nil {
		return nil, err
	}
	if !reg.HasPlayer(requestingPlayerID) {
		return nil, ErrNotGroupMember
	}
	err = e.store.InTx(ctx, func(tx Tx) error {
		return tx.SetRegistrationNotes(ctx, regID, notes)
	})
	if err != nil {
		return nil, err
	}
	return e.store.Registration(ctx, regID)
}

// dropTargets validates that every slot id belongs to the registration
// and is reserved with a player, returning the matched slot details.
func dropTargets(reg *model.RegistrationWithSlots, slotIDs []int64) ([]model.SlotDetail, error) {
	byID := make(map[int64]model.SlotDetail, len(reg.Slots))
	for _, s := range reg.Slots {
		byID[s.ID] = s
	}
	targets := make([]model.SlotDetail, 0, len(slotIDs))
	for _, id := range slotIDs {
		s, ok := byID[id]
		if !ok {
			return nil, ErrSlotsNotInRegistration
		}
		if s.Status != model.SlotReserved || s.PlayerID == nil {
			return nil, ErrSlotsNotDroppable
		}
		targets = append(targets, s)
	}
	return targets, nil
}

func (e *Engine) dropNote(targets []model.SlotDetail, notes string) string {
	names := make([]string, 0, len(targets))
	for _, s := range targets {
		if s.Player != nil {
			names = append(names, s.Player.Name())
		}
	}
	line := fmt.Sprintf("Dropped %s on %s",
		strings.Join(names, ", "), e.now().Format("Jan 2, 2006"))
	if notes != "" {
		line += ": " + notes
	}
	return line
}

func appendNote(existing, line string) string {
	if existing == "" {
		return line
	}
	return existing + "\n" + line
}

// emptyOf returns the unassigned slots ordered by slot number, lowest
// first.
func emptyOf(slots []model.Slot) []model.Slot {
	var empty []model.Slot
	for _, s := range slots {
		if s.PlayerID == nil {
			empty = append(empty, s)
		}
	}
	sort.Slice(empty, func(i, j int) bool { return empty[i].SlotNumber < empty[j].SlotNumber })
	return empty
}

func lowestNumbered(slots []model.Slot) int64 {
	best := slots[0]
	for _, s := range slots[1:] {
		if s.SlotNumber < best.SlotNumber {
			best = s
		}
	}
	return best.ID
}

func dedupe(ids []int64) []int64 {
	seen := make(map[int64]struct{}, len(ids))
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
