package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"tradorr/api/internal/models"
)

var ErrCheckoutNotFound = errors.New("checkout not found")

type CheckoutRepository struct {
	pool *pgxpool.Pool
}

func NewCheckoutRepository(pool *pgxpool.Pool) *CheckoutRepository {
	return &CheckoutRepository{pool: pool}
}

const checkoutColumns = `id, user_id, plan_id, method, trial, amount_minor, currency, status, provider_name, provider_ref, failure_reason, created_at, updated_at`

func scanCheckout(row pgx.Row) (models.CheckoutSession, error) {
	var s models.CheckoutSession
	if err := row.Scan(
		&s.ID,
		&s.UserID,
		&s.PlanID,
		&s.Method,
		&s.Trial,
		&s.AmountMinor,
		&s.Currency,
		&s.Status,
		&s.ProviderName,
		&s.ProviderRef,
		&s.FailureReason,
		&s.CreatedAt,
		&s.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.CheckoutSession{}, ErrCheckoutNotFound
		}
		return models.CheckoutSession{}, err
	}
	return s, nil
}

func (r *CheckoutRepository) Create(ctx context.Context, s models.CheckoutSession) error {
	const query = `
		INSERT INTO checkout_sessions (
			id, user_id, plan_id, method, trial, amount_minor, currency, status, provider_name, provider_ref, failure_reason, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, NOW(), NOW()
		)
	`

	_, err := r.pool.Exec(ctx, query,
		s.ID,
		s.UserID,
		s.PlanID,
		s.Method,
		s.Trial,
		s.AmountMinor,
		s.Currency,
		s.Status,
		s.ProviderName,
		s.ProviderRef,
		s.FailureReason,
	)
	return err
}

func (r *CheckoutRepository) GetByID(ctx context.Context, id string) (models.CheckoutSession, error) {
	const query = `SELECT ` + checkoutColumns + ` FROM checkout_sessions WHERE id = $1`
	return scanCheckout(r.pool.QueryRow(ctx, query, id))
}

// SetMethod records the chosen payment method and provider handoff. Legal
// from plan_selected and, for retries after a provider error, from
// method_selected.
func (r *CheckoutRepository) SetMethod(ctx context.Context, id string, method models.PaymentMethod, trial bool, providerName string, providerRef string) (models.CheckoutSession, error) {
	const query = `
		UPDATE checkout_sessions
		SET method = $2, trial = $3, provider_name = $4, provider_ref = $5,
		    status = 'method_selected', failure_reason = '', updated_at = NOW()
		WHERE id = $1 AND status IN ('plan_selected', 'method_selected')
		RETURNING ` + checkoutColumns

	return scanCheckout(r.pool.QueryRow(ctx, query, id, method, trial, providerName, providerRef))
}

// Complete performs the one-shot transition out of method_selected. The
// boolean is false when the session was already completed or cancelled, so
// a duplicate provider callback can never grant twice.
func (r *CheckoutRepository) Complete(ctx context.Context, id string) (models.CheckoutSession, bool, error) {
	const query = `
		UPDATE checkout_sessions
		SET status = 'completed', failure_reason = '', updated_at = NOW()
		WHERE id = $1 AND status = 'method_selected'
		RETURNING ` + checkoutColumns

	s, err := scanCheckout(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, ErrCheckoutNotFound) {
			return models.CheckoutSession{}, false, nil
		}
		return models.CheckoutSession{}, false, err
	}
	return s, true, nil
}

func (r *CheckoutRepository) Cancel(ctx context.Context, id string) (models.CheckoutSession, bool, error) {
	const query = `
		UPDATE checkout_sessions
		SET status = 'cancelled', updated_at = NOW()
		WHERE id = $1 AND status IN ('plan_selected', 'method_selected')
		RETURNING ` + checkoutColumns

	s, err := scanCheckout(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, ErrCheckoutNotFound) {
			return models.CheckoutSession{}, false, nil
		}
		return models.CheckoutSession{}, false, err
	}
	return s, true, nil
}

// RecordFailure notes a provider error without leaving method_selected, so
// the user can retry with the method already chosen.
func (r *CheckoutRepository) RecordFailure(ctx context.Context, id string, reason string) error {
	const query = `
		UPDATE checkout_sessions
		SET failure_reason = $2, updated_at = NOW()
		WHERE id = $1 AND status = 'method_selected'
	`
	_, err := r.pool.Exec(ctx, query, id, reason)
	return err
}

func (r *CheckoutRepository) List(ctx context.Context, limit int, offset int) ([]models.CheckoutSession, error) {
	const query = `
		SELECT ` + checkoutColumns + `
		FROM checkout_sessions
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2
	`

	rows, err := r.pool.Query(ctx, query, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sessions []models.CheckoutSession
	for rows.Next() {
		s, err := scanCheckout(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, s)
	}
	return sessions, rows.Err()
}
