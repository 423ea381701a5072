package core

import "context"

// RunVerifier is the narrow view of the automation platform API the exchange
// pipeline needs: who owns a token, what a run is doing, and which workspace
// the run belongs to.
// Implementation: the Terraform Cloud client in internal/upstream/tfc.
type RunVerifier interface {
	// IntrospectToken validates the caller token against the platform and
	// returns the identity it belongs to.
	IntrospectToken(ctx context.Context, token string) (*TokenIdentity, error)

	// GetRun fetches the run record for the given run ID.
	GetRun(ctx context.Context, token, runID string) (*RunRecord, error)

	// GetWorkspace resolves a workspace ID to its organization and name.
	GetWorkspace(ctx context.Context, token, workspaceID string) (*Workspace, error)
}

// TokenMinter mints short-lived access tokens for a service identity.
// Implementation: the IAM Credentials client in internal/upstream/gcp.
type TokenMinter interface {
	Mint(ctx context.Context, serviceAccount string) (*TokenArtifact, error)
}
