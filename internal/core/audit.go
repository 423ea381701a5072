package core

import "time"

// AuditEntry records the outcome of a single exchange. Token values are
// never part of an entry; only identifiers and the error classification are.
type AuditEntry struct {
	// ID is the unique request ID (X-Correlation-ID).
	ID string `json:"id"`

	// Time is the timestamp of the event.
	Time time.Time `json:"time"`

	// Action describes what happened (e.g. "token.exchange").
	Action string `json:"action"`

	// RunID is the caller-supplied run identifier.
	RunID string `json:"run_id,omitempty"`

	// Subject is the introspected owner of the caller token.
	Subject string `json:"subject,omitempty"`

	// Workspace is the resolved "{organization}/{workspace}" slug.
	Workspace string `json:"workspace,omitempty"`

	// ServiceAccount is the mapped identity a token was minted for.
	ServiceAccount string `json:"service_account,omitempty"`

	// Granted indicates whether a token was minted.
	Granted bool `json:"granted"`

	// ExpiresAt is the minted token's expiry, if one was minted.
	ExpiresAt time.Time `json:"expires_at,omitzero"`

	// Error holds the failure classification message, if any.
	Error string `json:"error,omitempty"`
}

// Auditor persists audit entries.
type Auditor interface {
	Log(entry AuditEntry) error
	Close() error
}

// AuditReader is implemented by auditors that can list recent entries.
type AuditReader interface {
	Recent(limit int) ([]AuditEntry, error)
}
