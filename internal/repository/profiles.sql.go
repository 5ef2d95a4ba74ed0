package repository

import (
	"context"
)

const profileColumns = `id, email, stripe_customer_id, stripe_subscription_id, subscription_status, plan, created_at, updated_at`

func scanProfile(row interface{ Scan(...any) error }) (Profile, error) {
	var p Profile
	err := row.Scan(
		&p.ID,
		&p.Email,
		&p.StripeCustomerID,
		&p.StripeSubscriptionID,
		&p.SubscriptionStatus,
		&p.Plan,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	return p, err
}

const getProfile = `SELECT ` + profileColumns + ` FROM profiles WHERE id = $1`

func (q *Queries) GetProfile(ctx context.Context, id string) (Profile, error) {
	return scanProfile(q.db.QueryRow(ctx, getProfile, id))
}

const getProfileBySubscriptionID = `SELECT ` + profileColumns + ` FROM profiles WHERE stripe_subscription_id = $1`

func (q *Queries) GetProfileBySubscriptionID(ctx context.Context, subscriptionID string) (Profile, error) {
	return scanProfile(q.db.QueryRow(ctx, getProfileBySubscriptionID, subscriptionID))
}

// The email is only overwritten when a non-empty value is supplied.
const upsertProfileSubscription = `
INSERT INTO profiles (id, email, stripe_customer_id, stripe_subscription_id, subscription_status, plan)
VALUES ($1, $2, $3, $4, $5, $6)
ON CONFLICT (id) DO UPDATE
SET email = CASE WHEN EXCLUDED.email <> '' THEN EXCLUDED.email ELSE profiles.email END,
    stripe_customer_id = EXCLUDED.stripe_customer_id,
    stripe_subscription_id = EXCLUDED.stripe_subscription_id,
    subscription_status = EXCLUDED.subscription_status,
    plan = EXCLUDED.plan,
    updated_at = now()
RETURNING ` + profileColumns

type UpsertProfileSubscriptionParams struct {
	ID                   string
	Email                string
	StripeCustomerID     *string
	StripeSubscriptionID *string
	SubscriptionStatus   *string
	Plan                 *string
}

func (q *Queries) UpsertProfileSubscription(ctx context.Context, arg UpsertProfileSubscriptionParams) (Profile, error) {
	row := q.db.QueryRow(ctx, upsertProfileSubscription,
		arg.ID,
		arg.Email,
		arg.StripeCustomerID,
		arg.StripeSubscriptionID,
		arg.SubscriptionStatus,
		arg.Plan,
	)
	return scanProfile(row)
}

const updateProfileSubscriptionState = `
UPDATE profiles
SET subscription_status = $2, plan = $3, updated_at = now()
WHERE stripe_subscription_id = $1
RETURNING ` + profileColumns

type UpdateProfileSubscriptionStateParams struct {
	StripeSubscriptionID string
	SubscriptionStatus   *string
	Plan                 *string
}

func (q *Queries) UpdateProfileSubscriptionState(ctx context.Context, arg UpdateProfileSubscriptionStateParams) (Profile, error) {
	row := q.db.QueryRow(ctx, updateProfileSubscriptionState, arg.StripeSubscriptionID, arg.SubscriptionStatus, arg.Plan)
	return scanProfile(row)
}
