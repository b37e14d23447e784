package checkout

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrEntryNotFound = errors.New("journal entry not found")

const (
	StatusCreated   = "created"
	StatusVerified  = "verified"
	StatusFinalized = "finalized"
	StatusFailed    = "failed"
)

// Entry records one placement attempt, keyed by the payment provider's order
// handle. It is what makes a captured-but-unfinalized payment recoverable.
type Entry struct {
	ProviderOrderID string
	UserID          string
	Email           string
	Amount          string // NUMERIC -> string
	Currency        string
	Status          string
	PaymentID       string
	OrderRef        string
	FailureReason   string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

type Journal interface {
	Create(ctx context.Context, e *Entry) error
	MarkVerified(ctx context.Context, providerOrderID, paymentID string) error
	// MarkFinalized only fires on entries still in the verified status, so a
	// racing reconciler and callback cannot finalize the same payment twice.
	MarkFinalized(ctx context.Context, providerOrderID, orderRef string) error
	MarkFailed(ctx context.Context, providerOrderID, reason string) error
	Verified(ctx context.Context) ([]Entry, error)
}

type PGJournal struct{ db *pgxpool.Pool }

func NewPGJournal(db *pgxpool.Pool) *PGJournal { return &PGJournal{db: db} }

func (j *PGJournal) Create(ctx context.Context, e *Entry) error {
	_, err := j.db.Exec(ctx, `
    INSERT INTO payment_journal (provider_order_id, user_id, email, amount, currency, status, created_at, updated_at)
    VALUES ($1,$2,$3,$4,$5,$6,NOW(),NOW())
  `, e.ProviderOrderID, e.UserID, e.Email, e.Amount, e.Currency, StatusCreated)
	return err
}

func (j *PGJournal) MarkVerified(ctx context.Context, providerOrderID, paymentID string) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	tag, err := j.db.Exec(ctx, `
    UPDATE payment_journal
    SET status = $2, payment_id = $3, updated_at = NOW()
    WHERE provider_order_id = $1 AND status = $4
  `, providerOrderID, StatusVerified, paymentID, StatusCreated)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrEntryNotFound
	}
	return nil
}

func (j *PGJournal) MarkFinalized(ctx context.Context, providerOrderID, orderRef string) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	tag, err := j.db.Exec(ctx, `
    UPDATE payment_journal
    SET status = $2, order_ref = $3, updated_at = NOW()
    WHERE provider_order_id = $1 AND status = $4
  `, providerOrderID, StatusFinalized, orderRef, StatusVerified)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrEntryNotFound
	}
	return nil
}

func (j *PGJournal) MarkFailed(ctx context.Context, providerOrderID, reason string) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	tag, err := j.db.Exec(ctx, `
    UPDATE payment_journal
    SET status = $2, failure_reason = $3, updated_at = NOW()
    WHERE provider_order_id = $1
  `, providerOrderID, StatusFailed, reason)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrEntryNotFound
	}
	return nil
}

func (j *PGJournal) Verified(ctx context.Context) ([]Entry, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	rows, err := j.db.Query(ctx, `
    SELECT provider_order_id, user_id, email, amount::text, currency, status,
           COALESCE(payment_id,''), COALESCE(order_ref,''), COALESCE(failure_reason,''),
           created_at, updated_at
    FROM payment_journal
    WHERE status = $1
    ORDER BY created_at ASC
  `, StatusVerified)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.ProviderOrderID, &e.UserID, &e.Email, &e.Amount, &e.Currency,
			&e.Status, &e.PaymentID, &e.OrderRef, &e.FailureReason, &e.CreatedAt, &e.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
