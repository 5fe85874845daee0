package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"lanyard/internal/domain"
)

const leadColumns = `id, captured_by_user_id,
	COALESCE(lead_name, ''), COALESCE(lead_email, ''), COALESCE(lead_phone, ''),
	COALESCE(notes, ''), sentiment, marketing_consent, created_at`

// FindByEmail returns the user's existing lead for the given email, if any.
// The (captured_by_user_id, lead_email) pair is a loose key: the schema does
// not enforce uniqueness, the gate does.
func (db *DB) FindByEmail(ctx context.Context, userID, email string) (domain.Lead, bool, error) {
	lead, err := scanLead(db.Pool.QueryRow(ctx, `
		SELECT `+leadColumns+`
		FROM leads
		WHERE captured_by_user_id = $1 AND lead_email = $2
		ORDER BY created_at
		LIMIT 1
	`, userID, email))
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Lead{}, false, nil
	}
	if err != nil {
		return domain.Lead{}, false, err
	}
	return lead, true, nil
}

// Insert creates one lead row. Empty contact fields land as NULL.
func (db *DB) Insert(ctx context.Context, lead domain.Lead) (string, error) {
	var id string
	err := db.Pool.QueryRow(ctx, `
		INSERT INTO leads (captured_by_user_id, lead_name, lead_email, lead_phone, notes, sentiment, marketing_consent)
		VALUES ($1, NULLIF($2, ''), NULLIF($3, ''), NULLIF($4, ''), NULLIF($5, ''), $6, $7)
		RETURNING id
	`, lead.CapturedByUserID, lead.Name, lead.Email, lead.Phone, lead.Notes, string(lead.Sentiment), lead.MarketingConsent).Scan(&id)
	return id, err
}

func (db *DB) ListByUser(ctx context.Context, userID string, limit int) ([]domain.Lead, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := db.Pool.Query(ctx, `
		SELECT `+leadColumns+`
		FROM leads
		WHERE captured_by_user_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Lead
	for rows.Next() {
		lead, err := scanLead(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, lead)
	}
	return out, rows.Err()
}

func scanLead(row pgx.Row) (domain.Lead, error) {
	var l domain.Lead
	var sentiment string
	err := row.Scan(&l.ID, &l.CapturedByUserID, &l.Name, &l.Email, &l.Phone, &l.Notes, &sentiment, &l.MarketingConsent, &l.CreatedAt)
	l.Sentiment = domain.Sentiment(sentiment)
	return l, err
}
