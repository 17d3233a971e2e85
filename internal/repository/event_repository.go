package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/fairwaylabs/teesheet/internal/engine"
	"github.com/fairwaylabs/teesheet/internal/model"
)

const eventColumns = `id, name, start_type, registration_type, can_choose,
	priority_signup_start, signup_start, signup_end, signup_waves,
	course_count, total_groups, registration_maximum,
	minimum_signup_group_size, maximum_signup_group_size`

// Event loads an event by id.
func (s *Store) Event(ctx context.Context, id int64) (*model.Event, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+eventColumns+` FROM events WHERE id = ?`, id)
	return scanEvent(row)
}

func scanEvent(row *sql.Row) (*model.Event, error) {
	var ev model.Event
	var prio, start, end sql.NullTime
	err := row.Scan(
		&ev.ID, &ev.Name, &ev.StartType, &ev.RegistrationType, &ev.CanChoose,
		&prio, &start, &end, &ev.SignupWaves,
		&ev.CourseCount, &ev.TotalGroups, &ev.RegistrationMaximum,
		&ev.MinimumGroupSize, &ev.MaximumGroupSize,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, engine.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	ev.PrioritySignupStart = timePtr(prio)
	ev.SignupStart = timePtr(start)
	ev.SignupEnd = timePtr(end)
	return &ev, nil
}
