package repository

import (
	"context"
	"database/sql"

	"github.com/fairwaylabs/teesheet/internal/engine"
	"github.com/fairwaylabs/teesheet/internal/model"
)

const slotDetailQuery = `SELECT s.id, s.event_id, s.registration_id, s.player_id,
	s.hole_id, s.slot_number, s.starting_order, s.status,
	p.id, p.first_name, p.last_name, p.email, p.is_member,
	h.hole_number
FROM registration_slots s
LEFT JOIN players p ON p.id = s.player_id
LEFT JOIN holes h ON h.id = s.hole_id`

// SlotDetail loads one slot with its joined player and hole.
func (s *Store) SlotDetail(ctx context.Context, id int64) (*model.SlotDetail, error) {
	rows, err := s.db.QueryContext(ctx, slotDetailQuery+` WHERE s.id = ?`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, err
		}
		return nil, engine.ErrNotFound
	}
	detail, err := scanSlotDetail(rows)
	if err != nil {
		return nil, err
	}
	return &detail, rows.Err()
}

// EventSlots returns every slot of the event in layout order, enriched
// for snapshot assembly.
func (s *Store) EventSlots(ctx context.Context, eventID int64) ([]model.SlotDetail, error) {
	rows, err := s.db.QueryContext(ctx,
		slotDetailQuery+` WHERE s.event_id = ? ORDER BY s.starting_order, s.slot_number, s.id`,
		eventID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.SlotDetail
	for rows.Next() {
		detail, err := scanSlotDetail(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, detail)
	}
	return out, rows.Err()
}

// registrationSlots returns the slots owned by a registration, lowest
// slot number first.
func (s *Store) registrationSlots(ctx context.Context, regID int64) ([]model.SlotDetail, error) {
	rows, err := s.db.QueryContext(ctx,
		slotDetailQuery+` WHERE s.registration_id = ? ORDER BY s.slot_number, s.id`,
		regID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.SlotDetail
	for rows.Next() {
		detail, err := scanSlotDetail(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, detail)
	}
	return out, rows.Err()
}

func scanSlotDetail(rows *sql.Rows) (model.SlotDetail, error) {
	var d model.SlotDetail
	var regID, playerID, holeID, pID sql.NullInt64
	var first, last, email sql.NullString
	var isMember sql.NullBool
	var holeNumber sql.NullInt64
	err := rows.Scan(
		&d.ID, &d.EventID, &regID, &playerID,
		&holeID, &d.SlotNumber, &d.StartingOrder, &d.Status,
		&pID, &first, &last, &email, &isMember,
		&holeNumber,
	)
	if err != nil {
		return model.SlotDetail{}, err
	}
	d.RegistrationID = int64Ptr(regID)
	d.PlayerID = int64Ptr(playerID)
	d.HoleID = int64Ptr(holeID)
	if pID.Valid {
		d.Player = &model.Player{
			ID:        pID.Int64,
			FirstName: first.String,
			LastName:  last.String,
			Email:     email.String,
			IsMember:  isMember.Bool,
		}
	}
	if holeNumber.Valid {
		n := int(holeNumber.Int64)
		d.HoleNumber = &n
	}
	return d, nil
}

const slotColumns = `id, event_id, registration_id, player_id, hole_id,
	slot_number, starting_order, status`

// LockSlots locks the named slots with FOR UPDATE. Ascending id order
// keeps concurrent transactions touching overlapping slot sets from
// deadlocking.
func (t *txStore) LockSlots(ctx context.Context, eventID int64, slotIDs []int64) ([]model.Slot, error) {
	if len(slotIDs) == 0 {
		return nil, nil
	}
	args := append([]any{eventID}, int64Args(slotIDs)...)
	rows, err := t.tx.QueryContext(ctx,
		`SELECT `+slotColumns+` FROM registration_slots
		 WHERE event_id = ? AND id IN (`+placeholders(len(slotIDs))+`)
		 ORDER BY id FOR UPDATE`, args...)
	if err != nil {
		return nil, err
	}
	return scanSlots(rows)
}

// LockOccupiedSlots locks every pending, awaiting-payment or reserved
// slot of the event, ascending by id.
func (t *txStore) LockOccupiedSlots(ctx context.Context, eventID int64) ([]model.Slot, error) {
	rows, err := t.tx.QueryContext(ctx,
		`SELECT `+slotColumns+` FROM registration_slots
		 WHERE event_id = ? AND status IN ('P', 'X', 'R')
		 ORDER BY id FOR UPDATE`, eventID)
	if err != nil {
		return nil, err
	}
	return scanSlots(rows)
}

func scanSlots(rows *sql.Rows) ([]model.Slot, error) {
	defer rows.Close()
	var out []model.Slot
	for rows.Next() {
		var sl model.Slot
		var regID, playerID, holeID sql.NullInt64
		err := rows.Scan(&sl.ID, &sl.EventID, &regID, &playerID, &holeID,
			&sl.SlotNumber, &sl.StartingOrder, &sl.Status)
		if err != nil {
			return nil, err
		}
		sl.RegistrationID = int64Ptr(regID)
		sl.PlayerID = int64Ptr(playerID)
		sl.HoleID = int64Ptr(holeID)
		out = append(out, sl)
	}
	return out, rows.Err()
}

// ClaimSlot marks a slot pending for the registration.
func (t *txStore) ClaimSlot(ctx context.Context, slotID, regID int64, playerID *int64) error {
	_, err := t.tx.ExecContext(ctx,
		`UPDATE registration_slots SET status = 'P', registration_id = ?, player_id = ?
		 WHERE id = ?`, regID, playerID, slotID)
	return err
}

// SetSlotPlayer assigns a player to a slot.
func (t *txStore) SetSlotPlayer(ctx context.Context, slotID int64, playerID *int64) error {
	_, err := t.tx.ExecContext(ctx,
		`UPDATE registration_slots SET player_id = ? WHERE id = ?`, playerID, slotID)
	return err
}

// CreateSlot inserts a slot row, used by the non-choosable flow where
// slots are not pre-provisioned.
func (t *txStore) CreateSlot(ctx context.Context, slot *model.Slot) (int64, error) {
	res, err := t.tx.ExecContext(ctx,
		`INSERT INTO registration_slots
		 (event_id, registration_id, player_id, hole_id, slot_number, starting_order, status)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		slot.EventID, slot.RegistrationID, slot.PlayerID, slot.HoleID,
		slot.SlotNumber, slot.StartingOrder, slot.Status)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// ReleaseSlots resets slots to available and clears their links.
func (t *txStore) ReleaseSlots(ctx context.Context, slotIDs []int64) error {
	if len(slotIDs) == 0 {
		return nil
	}
	_, err := t.tx.ExecContext(ctx,
		`UPDATE registration_slots
		 SET status = 'A', registration_id = NULL, player_id = NULL
		 WHERE id IN (`+placeholders(len(slotIDs))+`)`, int64Args(slotIDs)...)
	return err
}

// DeleteSlots removes slot rows outright.
func (t *txStore) DeleteSlots(ctx context.Context, slotIDs []int64) error {
	if len(slotIDs) == 0 {
		return nil
	}
	_, err := t.tx.ExecContext(ctx,
		`DELETE FROM registration_slots WHERE id IN (`+placeholders(len(slotIDs))+`)`,
		int64Args(slotIDs)...)
	return err
}

// DetachSlotFees unlinks fee rows from slots about to be released or
// deleted. Fee rows themselves are kept for accounting.
func (t *txStore) DetachSlotFees(ctx context.Context, regID int64, slotIDs []int64) error {
	if len(slotIDs) == 0 {
		return nil
	}
	args := append([]any{regID}, int64Args(slotIDs)...)
	_, err := t.tx.ExecContext(ctx,
		`UPDATE registration_fees SET registration_slot_id = NULL
		 WHERE registration_id = ? AND registration_slot_id IN (`+placeholders(len(slotIDs))+`)`,
		args...)
	return err
}
