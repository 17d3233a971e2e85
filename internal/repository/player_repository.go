package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/fairwaylabs/teesheet/internal/engine"
	"github.com/fairwaylabs/teesheet/internal/model"
)

// PlayerRepo provides read access to the players table for login and
// profile lookups.
type PlayerRepo struct {
	db *sql.DB
}

// NewPlayerRepo returns a PlayerRepo bound to the provided database.
func NewPlayerRepo(db *sql.DB) *PlayerRepo { return &PlayerRepo{db: db} }

// FindByEmail returns the player and their password hash for login.
func (r *PlayerRepo) FindByEmail(ctx context.Context, email string) (*model.Player, string, error) {
	var p model.Player
	var hash string
	err := r.db.QueryRowContext(ctx,
		`SELECT id, first_name, last_name, email, is_member, password_hash
		 FROM players WHERE email = ?`, email).
		Scan(&p.ID, &p.FirstName, &p.LastName, &p.Email, &p.IsMember, &hash)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, "", engine.ErrNotFound
	}
	if err != nil {
		return nil, "", err
	}
	return &p, hash, nil
}

// FindByID returns the player by primary key.
func (r *PlayerRepo) FindByID(ctx context.Context, id int64) (*model.Player, error) {
	var p model.Player
	err := r.db.QueryRowContext(ctx,
		`SELECT id, first_name, last_name, email, is_member
		 FROM players WHERE id = ?`, id).
		Scan(&p.ID, &p.FirstName, &p.LastName, &p.Email, &p.IsMember)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, engine.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}
