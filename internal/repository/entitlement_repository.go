package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"tradorr/api/internal/models"
)

var ErrEntitlementNotFound = errors.New("entitlement not found")

type EntitlementRepository struct {
	pool *pgxpool.Pool
}

func NewEntitlementRepository(pool *pgxpool.Pool) *EntitlementRepository {
	return &EntitlementRepository{pool: pool}
}

const entitlementColumns = `user_id, active, plan_id, expires_at, token_balance, updated_at`

func scanEntitlement(row pgx.Row) (models.Entitlement, error) {
	var ent models.Entitlement
	if err := row.Scan(
		&ent.UserID,
		&ent.Active,
		&ent.PlanID,
		&ent.ExpiresAt,
		&ent.TokenBalance,
		&ent.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Entitlement{}, ErrEntitlementNotFound
		}
		return models.Entitlement{}, err
	}
	return ent, nil
}

func (r *EntitlementRepository) Get(ctx context.Context, userID string) (models.Entitlement, error) {
	const query = `SELECT ` + entitlementColumns + ` FROM entitlements WHERE user_id = $1`
	return scanEntitlement(r.pool.QueryRow(ctx, query, userID))
}

// InitStarter seeds the row with the registration grant. A no-op if the
// user already has an entitlement row.
func (r *EntitlementRepository) InitStarter(ctx context.Context, userID string, tokens int64) error {
	const query = `
		INSERT INTO entitlements (user_id, active, plan_id, expires_at, token_balance, updated_at)
		VALUES ($1, FALSE, NULL, NULL, $2, NOW())
		ON CONFLICT (user_id) DO NOTHING
	`
	_, err := r.pool.Exec(ctx, query, userID, tokens)
	return err
}

// Grant activates the plan and adds its token total in one statement.
func (r *EntitlementRepository) Grant(ctx context.Context, userID string, planID string, tokens int64, expiresAt time.Time) (models.Entitlement, error) {
	const query = `
		INSERT INTO entitlements (user_id, active, plan_id, expires_at, token_balance, updated_at)
		VALUES ($1, TRUE, $2, $3, $4, NOW())
		ON CONFLICT (user_id)
		DO UPDATE SET
			active = TRUE,
			plan_id = EXCLUDED.plan_id,
			expires_at = EXCLUDED.expires_at,
			token_balance = entitlements.token_balance + EXCLUDED.token_balance,
			updated_at = NOW()
		RETURNING ` + entitlementColumns

	return scanEntitlement(r.pool.QueryRow(ctx, query, userID, planID, expiresAt, tokens))
}

// Consume decrements atomically; the balance predicate makes a shortfall a
// zero-row update, so the balance can never go negative.
func (r *EntitlementRepository) Consume(ctx context.Context, userID string, cost int64) (models.Entitlement, bool, error) {
	const query = `
		UPDATE entitlements
		SET token_balance = token_balance - $2, updated_at = NOW()
		WHERE user_id = $1 AND token_balance >= $2
		RETURNING ` + entitlementColumns

	ent, err := scanEntitlement(r.pool.QueryRow(ctx, query, userID, cost))
	if err != nil {
		if errors.Is(err, ErrEntitlementNotFound) {
			return models.Entitlement{}, false, nil
		}
		return models.Entitlement{}, false, err
	}
	return ent, true, nil
}

// AdjustTokens applies an admin delta, clamped at zero.
func (r *EntitlementRepository) AdjustTokens(ctx context.Context, userID string, delta int64) (models.Entitlement, error) {
	const query = `
		INSERT INTO entitlements (user_id, active, plan_id, expires_at, token_balance, updated_at)
		VALUES ($1, FALSE, NULL, NULL, GREATEST($2, 0), NOW())
		ON CONFLICT (user_id)
		DO UPDATE SET
			token_balance = GREATEST(entitlements.token_balance + $2, 0),
			updated_at = NOW()
		RETURNING ` + entitlementColumns

	return scanEntitlement(r.pool.QueryRow(ctx, query, userID, delta))
}

// Clear resets the row to defaults.
func (r *EntitlementRepository) Clear(ctx context.Context, userID string) error {
	const query = `
		UPDATE entitlements
		SET active = FALSE, plan_id = NULL, expires_at = NULL, token_balance = 0, updated_at = NOW()
		WHERE user_id = $1
	`
	_, err := r.pool.Exec(ctx, query, userID)
	return err
}

// ExpireStale deactivates lapsed entitlements and returns the affected
// user ids so the sweep can broadcast the change.
func (r *EntitlementRepository) ExpireStale(ctx context.Context, now time.Time) ([]string, error) {
	const query = `
		UPDATE entitlements
		SET active = FALSE, updated_at = NOW()
		WHERE active = TRUE AND expires_at IS NOT NULL AND expires_at < $1
		RETURNING user_id
	`

	rows, err := r.pool.Query(ctx, query, now)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var userIDs []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		userIDs = append(userIDs, id)
	}
	return userIDs, rows.Err()
}
