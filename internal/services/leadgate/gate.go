// Package leadgate guards the durable lead store: one duplicate check by
// (capturing user, email) followed by an insert with conservative defaults.
package leadgate

import (
	"context"
	"strings"

	"github.com/rs/zerolog"

	"lanyard/internal/domain"
	"lanyard/internal/ports"
)

// channelTag marks leads captured via badge scanning in the notes field.
const channelTag = "[Lanyard-Scan]"

type Gate struct {
	leads ports.LeadRepository
	log   zerolog.Logger
}

func New(leads ports.LeadRepository, log zerolog.Logger) *Gate {
	return &Gate{leads: leads, log: log.With().Str("component", "leadgate").Logger()}
}

// Commit checks the store for a conflicting lead and inserts a new record if
// none exists. It never returns an error: every failure becomes a Failed
// outcome so the scanning loop keeps running.
//
// Duplicate detection is keyed on email only. Contacts without an email are
// always inserted; two scans of the same phone-only badge produce two leads.
func (g *Gate) Commit(ctx context.Context, contact domain.ParsedContact, userID string) domain.ScanOutcome {
	if contact.Email != "" {
		existing, found, err := g.leads.FindByEmail(ctx, userID, contact.Email)
		if err != nil {
			g.log.Error().Err(err).Str("user_id", userID).Msg("duplicate check failed")
			return domain.OutcomeFailed(err.Error())
		}
		if found {
			return domain.OutcomeDuplicate(existing.ID)
		}
	}

	lead := domain.Lead{
		CapturedByUserID: userID,
		Name:             contact.Name,
		Email:            contact.Email,
		Phone:            contact.Phone,
		Notes:            buildNotes(contact),
		Sentiment:        domain.SentimentWarm,
		// Consent must be affirmative; a badge scan alone never establishes it.
		MarketingConsent: false,
	}
	id, err := g.leads.Insert(ctx, lead)
	if err != nil {
		g.log.Error().Err(err).Str("user_id", userID).Msg("lead insert failed")
		return domain.OutcomeFailed(err.Error())
	}
	g.log.Debug().Str("lead_id", id).Str("user_id", userID).Msg("lead created")
	return domain.OutcomeCreated(id)
}

// buildNotes concatenates the contact fields that have no column of their
// own, then appends the capture-channel tag.
func buildNotes(c domain.ParsedContact) string {
	parts := make([]string, 0, 4)
	if c.Title != "" {
		parts = append(parts, "Position: "+c.Title)
	}
	if c.Company != "" {
		parts = append(parts, "Firma: "+c.Company)
	}
	if c.Website != "" {
		parts = append(parts, "Web: "+c.Website)
	}
	parts = append(parts, channelTag)
	return strings.Join(parts, " | ")
}
