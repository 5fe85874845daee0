package ports

import (
	"context"

	"lanyard/internal/domain"
)

// LeadRepository stores and fetches durable lead records. The scan pipeline
// only creates and reads leads; there are no update or delete operations on
// this boundary.
type LeadRepository interface {
	// FindByEmail looks up an existing lead captured by the given user with
	// the given email. Zero or one record.
	FindByEmail(ctx context.Context, userID, email string) (lead domain.Lead, found bool, err error)

	// Insert creates one lead record and returns its id.
	Insert(ctx context.Context, lead domain.Lead) (leadID string, err error)

	// ListByUser returns the user's captured leads, newest first.
	ListByUser(ctx context.Context, userID string, limit int) ([]domain.Lead, error)
}
