package domain

import "time"

// Core domain models used internally. API request/response shapes live in the
// http adapter; keep these decoupled where helpful.

// ParsedContact is the structured, best-effort extraction from one decoded
// badge payload. Raw is always populated; every other field may be empty.
type ParsedContact struct {
	Name    string
	Email   string
	Phone   string
	Company string
	Title   string
	Website string
	Raw     string
}

// ScanStatus classifies the outcome of one processed payload.
type ScanStatus string

const (
	ScanSuccess   ScanStatus = "success"
	ScanDuplicate ScanStatus = "duplicate"
	ScanError     ScanStatus = "error"
)

// ScanResult is one immutable entry in a session's result feed.
type ScanResult struct {
	ID        string
	Contact   ParsedContact
	Status    ScanStatus
	Message   string
	Timestamp time.Time
}

// ScanOutcome is the tagged result of a persistence-gate commit. Exactly one
// branch applies: Created carries the new lead id, Duplicate the conflicting
// lead id, Failed the underlying error message.
type ScanOutcome struct {
	Created   bool
	Duplicate bool
	LeadID    string
	Err       string
}

func OutcomeCreated(leadID string) ScanOutcome   { return ScanOutcome{Created: true, LeadID: leadID} }
func OutcomeDuplicate(leadID string) ScanOutcome { return ScanOutcome{Duplicate: true, LeadID: leadID} }
func OutcomeFailed(msg string) ScanOutcome       { return ScanOutcome{Err: msg} }

// Sentiment grades a captured lead.
type Sentiment string

const (
	SentimentHot  Sentiment = "hot"
	SentimentWarm Sentiment = "warm"
	SentimentCold Sentiment = "cold"
)

// Lead is the durable contact record. This subsystem only creates and reads
// leads; updates (sentiment, notes edits) belong to the dashboard.
type Lead struct {
	ID               string
	CapturedByUserID string
	Name             string
	Email            string
	Phone            string
	Notes            string
	Sentiment        Sentiment
	MarketingConsent bool
	CreatedAt        time.Time
}

// SessionState is the scan session controller's lifecycle state.
type SessionState string

const (
	StateIdle     SessionState = "idle"
	StateStarting SessionState = "starting"
	StateActive   SessionState = "active"
	StatePaused   SessionState = "paused"
	StateStopping SessionState = "stopping"
	StateError    SessionState = "error"
)

// SessionCounters are the running totals a session exposes to the hosting UI.
type SessionCounters struct {
	Created    int
	Duplicates int
	Processed  int
}
