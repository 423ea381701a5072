package tfc

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/larsfn/minterra/internal/core"
)

// DefaultAddress is the HCP Terraform (Terraform Cloud) API base URL.
const DefaultAddress = "https://app.terraform.io"

// DefaultTimeout bounds every upstream call. There are no retries; a failed
// or timed-out call surfaces immediately as a classified error.
const DefaultTimeout = 10 * time.Second

const (
	accountDetailsPath = "/api/v2/account/details"
	runsPath           = "/api/v2/runs/"
	workspacesPath     = "/api/v2/workspaces/"
)

// Client is a thin client for the automation platform's token-introspection,
// run and workspace endpoints. It holds no mutable state and is safe for
// concurrent use.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

func New(baseURL string, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = DefaultAddress
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// JSON:API envelopes, reduced to the fields the broker reads.

type accountResponse struct {
	Data struct {
		ID         string `json:"id"`
		Attributes struct {
			Username         string `json:"username"`
			IsServiceAccount bool   `json:"is-service-account"`
		} `json:"attributes"`
	} `json:"data"`
}

type runResponse struct {
	Data struct {
		ID         string `json:"id"`
		Attributes struct {
			Status string `json:"status"`
		} `json:"attributes"`
		Relationships struct {
			Workspace struct {
				Data struct {
					ID string `json:"id"`
				} `json:"data"`
			} `json:"workspace"`
		} `json:"relationships"`
	} `json:"data"`
}

type workspaceResponse struct {
	Data struct {
		ID         string `json:"id"`
		Attributes struct {
			Name string `json:"name"`
		} `json:"attributes"`
		Relationships struct {
			Organization struct {
				Data struct {
					ID string `json:"id"`
				} `json:"data"`
			} `json:"organization"`
		} `json:"relationships"`
	} `json:"data"`
}

// IntrospectToken validates the caller token against the account details
// endpoint and reports the class of principal it belongs to. Team and
// organization tokens do not identify an account and are rejected here.
func (c *Client) IntrospectToken(ctx context.Context, token string) (*core.TokenIdentity, error) {
	var resp accountResponse
	if err := c.getJSON(ctx, token, accountDetailsPath, &resp, introspectStatus); err != nil {
		return nil, err
	}

	kind := core.SubjectUser
	if resp.Data.Attributes.IsServiceAccount {
		kind = core.SubjectServiceAccount
	}
	return &core.TokenIdentity{
		Kind: kind,
		ID:   resp.Data.Attributes.Username,
	}, nil
}

// GetRun fetches the run record for runID.
func (c *Client) GetRun(ctx context.Context, token, runID string) (*core.RunRecord, error) {
	var resp runResponse
	if err := c.getJSON(ctx, token, runsPath+runID, &resp, lookupStatus("run")); err != nil {
		return nil, err
	}
	return &core.RunRecord{
		ID:          resp.Data.ID,
		Status:      core.RunStatus(resp.Data.Attributes.Status),
		WorkspaceID: resp.Data.Relationships.Workspace.Data.ID,
	}, nil
}

// GetWorkspace resolves workspaceID to its organization and name.
func (c *Client) GetWorkspace(ctx context.Context, token, workspaceID string) (*core.Workspace, error) {
	var resp workspaceResponse
	if err := c.getJSON(ctx, token, workspacesPath+workspaceID, &resp, lookupStatus("workspace")); err != nil {
		return nil, err
	}
	return &core.Workspace{
		ID:           resp.Data.ID,
		Organization: resp.Data.Relationships.Organization.Data.ID,
		Name:         resp.Data.Attributes.Name,
	}, nil
}

// statusClassifier turns a non-2xx status code into a classified error.
type statusClassifier func(status int) error

// introspectStatus: any 4xx means the token does not identify a valid
// service-account-class principal. 5xx is the platform's problem.
func introspectStatus(status int) error {
	if status >= 400 && status < 500 {
		return core.Errf(core.KindAuthentication, "caller token rejected by automation platform")
	}
	return core.Errf(core.KindUpstream, "automation platform error (%d)", status)
}

func lookupStatus(entity string) statusClassifier {
	return func(status int) error {
		switch {
		case status == http.StatusNotFound:
			return core.Errf(core.KindNotFound, "%s not found", entity)
		case status == http.StatusUnauthorized || status == http.StatusForbidden:
			return core.Errf(core.KindAuthentication, "caller token rejected by automation platform")
		default:
			return core.Errf(core.KindUpstream, "automation platform error (%d)", status)
		}
	}
}

func (c *Client) getJSON(ctx context.Context, token, path string, out any, classify statusClassifier) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return core.Wrap(core.KindUpstream, "creating request", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/vnd.api+json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return core.Wrap(core.KindUpstream, "automation platform unreachable", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return classify(resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return core.Wrap(core.KindUpstream, "decoding automation platform response", fmt.Errorf("GET %s: %w", path, err))
	}
	return nil
}
