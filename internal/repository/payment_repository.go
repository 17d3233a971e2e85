package repository

import (
	"context"
	"database/sql"
)

// PaymentRepo cleans up payment records tied to abandoned or cancelled
// registrations. This subsystem never initiates a charge; it only
// removes unconfirmed payment rows and their fee details.
type PaymentRepo struct {
	db *sql.DB
}

// NewPaymentRepo returns a PaymentRepo bound to the provided database.
func NewPaymentRepo(db *sql.DB) *PaymentRepo { return &PaymentRepo{db: db} }

// PaymentIDs returns the ids of unconfirmed payments on a registration.
func (r *PaymentRepo) PaymentIDs(ctx context.Context, regID int64) ([]int64, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id FROM payments WHERE registration_id = ? AND confirmed_at IS NULL`,
		regID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// DeletePaymentAndFees removes a payment and the fee rows attached to
// it, fee rows first.
func (r *PaymentRepo) DeletePaymentAndFees(ctx context.Context, paymentID int64) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM registration_fees WHERE payment_id = ?`, paymentID); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM payments WHERE id = ?`, paymentID); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}
