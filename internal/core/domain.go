package core

import "time"

// SubjectKind classifies the principal a caller token belongs to.
// Only service accounts are allowed to exchange credentials; user, team and
// organization tokens are categorically rejected even when they are valid.
type SubjectKind string

const (
	SubjectServiceAccount SubjectKind = "service-account"
	SubjectUser           SubjectKind = "user"
	SubjectTeam           SubjectKind = "team"
	SubjectOrganization   SubjectKind = "organization"
)

// TokenIdentity is the result of introspecting a caller token upstream.
type TokenIdentity struct {
	// Kind is the class of the token's owner.
	Kind SubjectKind

	// ID is the subject identifier (e.g. the account username).
	ID string
}

// RunStatus is the lifecycle state of an automation run. The set of states
// is open: the upstream platform may introduce new ones, all of which are
// treated as inactive.
type RunStatus string

const (
	RunPending  RunStatus = "pending"
	RunPlanning RunStatus = "planning"
	RunApplying RunStatus = "applying"
	RunApplied  RunStatus = "applied"
	RunErrored  RunStatus = "errored"
	RunCanceled RunStatus = "canceled"
)

// Active reports whether a run in this status may exchange credentials.
// Only planning and applying qualify. A finished run is rejected even if its
// token is still technically valid, so a token cannot be replayed after the
// run it belongs to has completed.
func (s RunStatus) Active() bool {
	return s == RunPlanning || s == RunApplying
}

// RunRecord is a single execution instance of a workspace.
type RunRecord struct {
	ID          string
	Status      RunStatus
	WorkspaceID string
}

// Workspace is an organization-scoped configuration unit whose runs share
// state and identity.
type Workspace struct {
	ID           string
	Organization string
	Name         string
}

// Slug returns the "{organization}/{workspace}" key used for mapping lookups.
func (w Workspace) Slug() string {
	return w.Organization + "/" + w.Name
}

// TokenArtifact is the result of a successful Mint operation.
type TokenArtifact struct {
	// Value is the minted access token. It must never be logged; only its
	// presence and expiry may appear in logs or audit entries.
	Value string `json:"token"`

	// ServiceAccount is the identity the token was minted for.
	ServiceAccount string `json:"service_account"`

	// ExpiresAt indicates when the token becomes invalid.
	ExpiresAt time.Time `json:"expires_at"`
}
