package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/fairwaylabs/teesheet/internal/engine"
	"github.com/fairwaylabs/teesheet/internal/model"
)

// Registration loads a registration hydrated with its slots, players
// and holes.
func (s *Store) Registration(ctx context.Context, id int64) (*model.RegistrationWithSlots, error) {
	var reg model.Registration
	var courseID, playerID sql.NullInt64
	var expires sql.NullTime
	var notes sql.NullString
	err := s.db.QueryRowContext(ctx,
		`SELECT id, event_id, course_id, player_id, signed_up_by, expires, notes, created_at
		 FROM registrations WHERE id = ?`, id).
		Scan(&reg.ID, &reg.EventID, &courseID, &playerID, &reg.SignedUpBy,
			&expires, &notes, &reg.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, engine.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	reg.CourseID = int64Ptr(courseID)
	reg.PlayerID = int64Ptr(playerID)
	reg.Expires = timePtr(expires)
	reg.Notes = notes.String

	slots, err := s.registrationSlots(ctx, id)
	if err != nil {
		return nil, err
	}
	return &model.RegistrationWithSlots{Registration: reg, Slots: slots}, nil
}

// RegistrationForPlayer loads the registration the player owns for the
// event, hydrated with its slots, or nil when the player owns none.
func (s *Store) RegistrationForPlayer(ctx context.Context, eventID, playerID int64) (*model.RegistrationWithSlots, error) {
	var id int64
	err := s.db.QueryRowContext(ctx,
		`SELECT id FROM registrations WHERE event_id = ? AND player_id = ? LIMIT 1`,
		eventID, playerID).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return s.Registration(ctx, id)
}

// Expired returns registrations whose expiry has passed, each with its
// slots still pending. Registrations whose slots have all moved past
// pending are not reclaimable.
func (s *Store) Expired(ctx context.Context, now time.Time) ([]model.ExpiredRegistration, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT r.id, r.event_id, e.can_choose, sl.id
		 FROM registrations r
		 JOIN events e ON e.id = r.event_id
		 JOIN registration_slots sl ON sl.registration_id = r.id AND sl.status = 'P'
		 WHERE r.expires IS NOT NULL AND r.expires < ?
		 ORDER BY r.id, sl.id`, now.UTC())
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.ExpiredRegistration
	for rows.Next() {
		var regID, eventID, slotID int64
		var choosable bool
		if err := rows.Scan(&regID, &eventID, &choosable, &slotID); err != nil {
			return nil, err
		}
		if len(out) == 0 || out[len(out)-1].ID != regID {
			out = append(out, model.ExpiredRegistration{
				ID: regID, EventID: eventID, Choosable: choosable,
			})
		}
		last := &out[len(out)-1]
		last.SlotIDs = append(last.SlotIDs, slotID)
	}
	return out, rows.Err()
}

// Reclaim releases or deletes an expired registration's slots and
// removes the registration, in one transaction.
func (s *Store) Reclaim(ctx context.Context, reg model.ExpiredRegistration) error {
	return s.InTx(ctx, func(tx engine.Tx) error {
		if err := tx.DetachSlotFees(ctx, reg.ID, reg.SlotIDs); err != nil {
			return err
		}
		if reg.Choosable {
			if err := tx.ReleaseSlots(ctx, reg.SlotIDs); err != nil {
				return err
			}
		} else {
			if err := tx.DeleteSlots(ctx, reg.SlotIDs); err != nil {
				return err
			}
		}
		return tx.DeleteRegistration(ctx, reg.ID)
	})
}

// RegistrationIDBySlotPlayer returns the registration holding a slot
// for the player in this event, locking the row, or 0 when the player
// holds none.
func (t *txStore) RegistrationIDBySlotPlayer(ctx context.Context, eventID, playerID int64) (int64, error) {
	var regID sql.NullInt64
	err := t.tx.QueryRowContext(ctx,
		`SELECT registration_id FROM registration_slots
		 WHERE event_id = ? AND player_id = ? AND status IN ('P', 'X', 'R')
		 LIMIT 1 FOR UPDATE`, eventID, playerID).Scan(&regID)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return regID.Int64, nil
}

// RegistrationByOwner returns the id of the registration owned by the
// player for this event, locking the row, or 0.
func (t *txStore) RegistrationByOwner(ctx context.Context, eventID, playerID int64) (int64, error) {
	var id int64
	err := t.tx.QueryRowContext(ctx,
		`SELECT id FROM registrations
		 WHERE event_id = ? AND player_id = ?
		 LIMIT 1 FOR UPDATE`, eventID, playerID).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return id, nil
}

// CreateRegistration inserts a registration row and returns its id.
func (t *txStore) CreateRegistration(ctx context.Context, reg *model.Registration) (int64, error) {
	res, err := t.tx.ExecContext(ctx,
		`INSERT INTO registrations
		 (event_id, course_id, player_id, signed_up_by, expires, notes, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		reg.EventID, reg.CourseID, reg.PlayerID, reg.SignedUpBy,
		reg.Expires, reg.Notes, reg.CreatedAt.UTC())
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// RefreshRegistration points a reused registration at the new slot
// selection's course and pushes its expiry out.
func (t *txStore) RefreshRegistration(ctx context.Context, regID int64, courseID *int64, expires time.Time) error {
	_, err := t.tx.ExecContext(ctx,
		`UPDATE registrations SET course_id = ?, expires = ? WHERE id = ?`,
		courseID, expires.UTC(), regID)
	return err
}

// SetRegistrationNotes replaces the registration's notes.
func (t *txStore) SetRegistrationNotes(ctx context.Context, regID int64, notes string) error {
	_, err := t.tx.ExecContext(ctx,
		`UPDATE registrations SET notes = ? WHERE id = ?`, notes, regID)
	return err
}

// DetachRegistrationOwner orphans a registration: the owning player is
// cleared from the row and from all of its slots so the player can
// start over while the sweeper reclaims this one after expiry.
func (t *txStore) DetachRegistrationOwner(ctx context.Context, regID int64) error {
	if _, err := t.tx.ExecContext(ctx,
		`UPDATE registrations SET player_id = NULL WHERE id = ?`, regID); err != nil {
		return err
	}
	_, err := t.tx.ExecContext(ctx,
		`UPDATE registration_slots SET player_id = NULL WHERE registration_id = ?`, regID)
	return err
}

// DeleteRegistration removes the registration row.
func (t *txStore) DeleteRegistration(ctx context.Context, regID int64) error {
	_, err := t.tx.ExecContext(ctx,
		`DELETE FROM registrations WHERE id = ?`, regID)
	return err
}
