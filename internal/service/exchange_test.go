package service

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/larsfn/minterra/internal/audit"
	"github.com/larsfn/minterra/internal/core"
	"github.com/larsfn/minterra/internal/mapping"
)

type fakeVerifier struct {
	identity *core.TokenIdentity
	run      *core.RunRecord
	ws       *core.Workspace

	introspectErr error
	runErr        error
	wsErr         error

	runCalls int
	wsCalls  int
}

func (f *fakeVerifier) IntrospectToken(ctx context.Context, token string) (*core.TokenIdentity, error) {
	if f.introspectErr != nil {
		return nil, f.introspectErr
	}
	return f.identity, nil
}

func (f *fakeVerifier) GetRun(ctx context.Context, token, runID string) (*core.RunRecord, error) {
	f.runCalls++
	if f.runErr != nil {
		return nil, f.runErr
	}
	return f.run, nil
}

func (f *fakeVerifier) GetWorkspace(ctx context.Context, token, workspaceID string) (*core.Workspace, error) {
	f.wsCalls++
	if f.wsErr != nil {
		return nil, f.wsErr
	}
	return f.ws, nil
}

type fakeMinter struct {
	calls int
	err   error
}

func (f *fakeMinter) Mint(ctx context.Context, serviceAccount string) (*core.TokenArtifact, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return &core.TokenArtifact{
		Value:          fmt.Sprintf("minted-token-%d", f.calls),
		ServiceAccount: serviceAccount,
		ExpiresAt:      time.Now().Add(time.Hour),
	}, nil
}

func validVerifier() *fakeVerifier {
	return &fakeVerifier{
		identity: &core.TokenIdentity{Kind: core.SubjectServiceAccount, ID: "api-ci"},
		run:      &core.RunRecord{ID: "run-ABC123", Status: core.RunPlanning, WorkspaceID: "ws-XYZ"},
		ws:       &core.Workspace{ID: "ws-XYZ", Organization: "my-org", Name: "dynamic-creds-workspace"},
	}
}

func testStore(t *testing.T) *mapping.Store {
	t.Helper()
	store, err := mapping.New(map[string]string{
		"my-org/dynamic-creds-workspace": "deployer@project.iam.gserviceaccount.com",
	})
	if err != nil {
		t.Fatalf("mapping.New() error: %v", err)
	}
	return store
}

func TestExchange_HappyPath(t *testing.T) {
	verifier := validVerifier()
	minter := &fakeMinter{}
	auditor := audit.NewMemoryAuditor()
	svc := NewExchangeService(verifier, minter, testStore(t), auditor)

	artifact, err := svc.Exchange(context.Background(), ExchangeRequest{RunID: "run-ABC123", Token: "tfc-token"})
	if err != nil {
		t.Fatalf("Exchange() unexpected error: %v", err)
	}
	if artifact.Value != "minted-token-1" {
		t.Errorf("Value = %q", artifact.Value)
	}
	if artifact.ServiceAccount != "deployer@project.iam.gserviceaccount.com" {
		t.Errorf("ServiceAccount = %q", artifact.ServiceAccount)
	}
	if ttl := time.Until(artifact.ExpiresAt); ttl < 59*time.Minute || ttl > 61*time.Minute {
		t.Errorf("token ttl = %v, want about an hour", ttl)
	}

	entries, _ := auditor.Recent(1)
	if len(entries) != 1 {
		t.Fatalf("audit entries = %d, want 1", len(entries))
	}
	e := entries[0]
	if !e.Granted || e.RunID != "run-ABC123" || e.Workspace != "my-org/dynamic-creds-workspace" {
		t.Errorf("audit entry = %+v", e)
	}
}

func TestExchange_AppliesStatusAllowed(t *testing.T) {
	verifier := validVerifier()
	verifier.run.Status = core.RunApplying
	svc := NewExchangeService(verifier, &fakeMinter{}, testStore(t), nil)

	if _, err := svc.Exchange(context.Background(), ExchangeRequest{RunID: "run-ABC123", Token: "t"}); err != nil {
		t.Fatalf("Exchange() with applying run: %v", err)
	}
}

func TestExchange_Failures(t *testing.T) {
	upstreamTimeout := core.Wrap(core.KindUpstream, "automation platform unreachable",
		fmt.Errorf("get: %w", context.DeadlineExceeded))

	tests := []struct {
		name     string
		req      ExchangeRequest
		mutate   func(v *fakeVerifier, m *fakeMinter)
		wantKind core.Kind

		// stages that must never have been reached
		wantNoRunLookup bool
		wantNoMint      bool
	}{
		{
			name:            "missing run id",
			req:             ExchangeRequest{Token: "t"},
			wantKind:        core.KindValidation,
			wantNoRunLookup: true,
			wantNoMint:      true,
		},
		{
			name:            "missing token",
			req:             ExchangeRequest{RunID: "run-ABC123"},
			wantKind:        core.KindValidation,
			wantNoRunLookup: true,
			wantNoMint:      true,
		},
		{
			name: "user token rejected regardless of run state",
			req:  ExchangeRequest{RunID: "run-ABC123", Token: "t"},
			mutate: func(v *fakeVerifier, m *fakeMinter) {
				v.identity = &core.TokenIdentity{Kind: core.SubjectUser, ID: "alice"}
			},
			wantKind:        core.KindAuthentication,
			wantNoRunLookup: true,
			wantNoMint:      true,
		},
		{
			name: "team token rejected",
			req:  ExchangeRequest{RunID: "run-ABC123", Token: "t"},
			mutate: func(v *fakeVerifier, m *fakeMinter) {
				v.identity = &core.TokenIdentity{Kind: core.SubjectTeam, ID: "team-ops"}
			},
			wantKind:        core.KindAuthentication,
			wantNoRunLookup: true,
			wantNoMint:      true,
		},
		{
			name: "completed run rejected",
			req:  ExchangeRequest{RunID: "run-ABC123", Token: "t"},
			mutate: func(v *fakeVerifier, m *fakeMinter) {
				v.run.Status = core.RunApplied
			},
			wantKind:   core.KindAuthorization,
			wantNoMint: true,
		},
		{
			name: "errored run rejected",
			req:  ExchangeRequest{RunID: "run-ABC123", Token: "t"},
			mutate: func(v *fakeVerifier, m *fakeMinter) {
				v.run.Status = core.RunErrored
			},
			wantKind:   core.KindAuthorization,
			wantNoMint: true,
		},
		{
			name: "unknown run",
			req:  ExchangeRequest{RunID: "run-NOPE", Token: "t"},
			mutate: func(v *fakeVerifier, m *fakeMinter) {
				v.runErr = core.Errf(core.KindNotFound, "run not found")
			},
			wantKind:   core.KindNotFound,
			wantNoMint: true,
		},
		{
			name: "unmapped workspace",
			req:  ExchangeRequest{RunID: "run-ABC123", Token: "t"},
			mutate: func(v *fakeVerifier, m *fakeMinter) {
				v.ws = &core.Workspace{ID: "ws-2", Organization: "other-org", Name: "unmapped-ws"}
			},
			wantKind:   core.KindNotFound,
			wantNoMint: true,
		},
		{
			name: "upstream outage stops the pipeline",
			req:  ExchangeRequest{RunID: "run-ABC123", Token: "t"},
			mutate: func(v *fakeVerifier, m *fakeMinter) {
				v.introspectErr = upstreamTimeout
			},
			wantKind:        core.KindUpstream,
			wantNoRunLookup: true,
			wantNoMint:      true,
		},
		{
			name: "unclassified verifier error becomes upstream",
			req:  ExchangeRequest{RunID: "run-ABC123", Token: "t"},
			mutate: func(v *fakeVerifier, m *fakeMinter) {
				v.runErr = errors.New("connection reset")
			},
			wantKind:   core.KindUpstream,
			wantNoMint: true,
		},
		{
			name: "mint denied",
			req:  ExchangeRequest{RunID: "run-ABC123", Token: "t"},
			mutate: func(v *fakeVerifier, m *fakeMinter) {
				m.err = core.Errf(core.KindAuthorization, "broker is not permitted to mint for the mapped identity")
			},
			wantKind: core.KindAuthorization,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			verifier := validVerifier()
			minter := &fakeMinter{}
			if tt.mutate != nil {
				tt.mutate(verifier, minter)
			}
			auditor := audit.NewMemoryAuditor()
			svc := NewExchangeService(verifier, minter, testStore(t), auditor)

			artifact, err := svc.Exchange(context.Background(), tt.req)
			if err == nil {
				t.Fatal("Exchange() expected error, got nil")
			}
			if artifact != nil {
				t.Error("Exchange() returned artifact alongside error; no partial success allowed")
			}
			if kind := core.KindOf(err); kind != tt.wantKind {
				t.Errorf("error kind = %q, want %q", kind, tt.wantKind)
			}
			if tt.wantNoRunLookup && verifier.runCalls != 0 {
				t.Error("run lookup happened after an earlier stage failed")
			}
			if tt.wantNoMint && minter.calls != 0 {
				t.Error("mint happened after an earlier stage failed")
			}

			entries, _ := auditor.Recent(1)
			if len(entries) != 1 {
				t.Fatalf("audit entries = %d, want 1", len(entries))
			}
			if entries[0].Granted {
				t.Error("audit entry marked granted for a rejected exchange")
			}
			if entries[0].Error == "" {
				t.Error("audit entry missing failure classification")
			}
		})
	}
}

func TestExchange_FreshTokenPerRequest(t *testing.T) {
	verifier := validVerifier()
	minter := &fakeMinter{}
	svc := NewExchangeService(verifier, minter, testStore(t), nil)

	req := ExchangeRequest{RunID: "run-ABC123", Token: "t"}
	first, err := svc.Exchange(context.Background(), req)
	if err != nil {
		t.Fatalf("first Exchange() error: %v", err)
	}
	second, err := svc.Exchange(context.Background(), req)
	if err != nil {
		t.Fatalf("second Exchange() error: %v", err)
	}
	if first.Value == second.Value {
		t.Error("identical requests produced the same token; the broker must hold no memory of prior requests")
	}
	if minter.calls != 2 {
		t.Errorf("mint calls = %d, want 2", minter.calls)
	}
}

func TestExchange_DeadlineMapsToGatewayTimeout(t *testing.T) {
	verifier := validVerifier()
	verifier.introspectErr = core.Wrap(core.KindUpstream, "automation platform unreachable",
		fmt.Errorf("get: %w", context.DeadlineExceeded))
	svc := NewExchangeService(verifier, &fakeMinter{}, testStore(t), nil)

	_, err := svc.Exchange(context.Background(), ExchangeRequest{RunID: "run-ABC123", Token: "t"})
	if got := core.HTTPStatus(err); got != 504 {
		t.Errorf("HTTPStatus() = %d, want 504", got)
	}
}
