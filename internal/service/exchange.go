package service

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/larsfn/minterra/internal/api/middleware"
	"github.com/larsfn/minterra/internal/audit"
	"github.com/larsfn/minterra/internal/core"
	"github.com/larsfn/minterra/internal/mapping"
)

// ExchangeRequest is the per-call input to the pipeline. It is never
// persisted.
type ExchangeRequest struct {
	// RunID identifies the automation run the caller claims to be.
	RunID string

	// Token is the caller's platform API token. Never logged.
	Token string
}

// ExchangeService runs the validation-and-minting pipeline: it proves the
// caller is a legitimate, currently-executing run, resolves the run to a
// credential mapping and mints a short-lived token for the mapped identity.
type ExchangeService struct {
	verifier core.RunVerifier
	minter   core.TokenMinter
	mappings *mapping.Store
	auditor  core.Auditor
}

func NewExchangeService(
	verifier core.RunVerifier,
	minter core.TokenMinter,
	mappings *mapping.Store,
	auditor core.Auditor,
) *ExchangeService {
	if auditor == nil {
		auditor = audit.NewNoopAuditor()
	}
	return &ExchangeService{
		verifier: verifier,
		minter:   minter,
		mappings: mappings,
		auditor:  auditor,
	}
}

// Exchange runs a strictly ordered, fail-fast sequence. The order must not
// change: every stage assumes the invariants established by the stages
// before it. Each failure carries exactly one core.Kind; nothing
// unclassified leaves this method.
func (s *ExchangeService) Exchange(ctx context.Context, req ExchangeRequest) (*core.TokenArtifact, error) {
	logger := log.Ctx(ctx)

	entry := core.AuditEntry{
		ID:     middleware.CorrelationCtx(ctx),
		Time:   time.Now(),
		Action: "token.exchange",
		RunID:  req.RunID,
	}
	defer func() {
		if err := s.auditor.Log(entry); err != nil {
			logger.Error().Err(err).Msg("failed to write audit log entry")
		}
	}()

	// 1. both fields must be present; there is nothing to check otherwise
	if req.RunID == "" || req.Token == "" {
		return nil, s.reject(&entry, core.Errf(core.KindValidation, "run id and token are required"))
	}

	// 2. authenticate the token. Anything that is not a service account
	// bound to automated execution is rejected, closing the path where a
	// human's personal credential mints cloud access.
	identity, err := s.verifier.IntrospectToken(ctx, req.Token)
	if err != nil {
		return nil, s.reject(&entry, classify(err, "token introspection failed"))
	}
	entry.Subject = identity.ID
	if identity.Kind != core.SubjectServiceAccount {
		return nil, s.reject(&entry, core.Errf(core.KindAuthentication, "token does not belong to a service account"))
	}

	logger.UpdateContext(func(c zerolog.Context) zerolog.Context {
		return c.Str("run_id", req.RunID).Str("sub", identity.ID)
	})

	// 3. the run must be actively planning or applying. A completed run is
	// rejected even though its token may still be valid: the token's usable
	// window is bounded by the run's lifetime, not the token's own expiry.
	run, err := s.verifier.GetRun(ctx, req.Token, req.RunID)
	if err != nil {
		return nil, s.reject(&entry, classify(err, "run lookup failed"))
	}
	if !run.Status.Active() {
		logger.Warn().Str("status", string(run.Status)).Msg("run is not in an active state")
		return nil, s.reject(&entry, core.Errf(core.KindAuthorization, "run is not planning or applying"))
	}

	// 4. resolve the run's workspace and owning organization
	ws, err := s.verifier.GetWorkspace(ctx, req.Token, run.WorkspaceID)
	if err != nil {
		return nil, s.reject(&entry, classify(err, "workspace lookup failed"))
	}
	slug := ws.Slug()
	entry.Workspace = slug

	// 5. the mapping must be explicit; a miss never falls back to a default
	identityEmail, ok := s.mappings.Lookup(ws.Organization, ws.Name)
	if !ok {
		return nil, s.reject(&entry, core.Errf(core.KindNotFound, "no identity for workspace: %s", slug))
	}
	entry.ServiceAccount = identityEmail

	// 6. mint a fresh short-lived token for the mapped identity
	artifact, err := s.minter.Mint(ctx, identityEmail)
	if err != nil {
		return nil, s.reject(&entry, classify(err, "minting failed"))
	}

	entry.Granted = true
	entry.ExpiresAt = artifact.ExpiresAt
	logger.Info().
		Str("workspace", slug).
		Str("service_account", identityEmail).
		Time("expires_at", artifact.ExpiresAt).
		Msg("token minted")

	return artifact, nil
}

func (s *ExchangeService) reject(entry *core.AuditEntry, err error) error {
	entry.Error = core.Public(err)
	return err
}

// classify guarantees an error carries a Kind before it crosses the service
// boundary. Upstream clients already classify their failures; anything else
// is treated as an upstream fault.
func classify(err error, message string) error {
	if core.KindOf(err) != "" {
		return err
	}
	return core.Wrap(core.KindUpstream, message, err)
}
