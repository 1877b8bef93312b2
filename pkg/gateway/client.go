// Package gateway is the typed client for the onboarding backend. One method
// per backend operation, no retries and no caching. Sequencing and retry
// decisions belong to the caller.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/soctierzero/soc-onboarding/pkg/api/dtos"
	"github.com/soctierzero/soc-onboarding/pkg/domain/entities"
)

const basePath = "/api/v1/onboarding"

// APIError is a non-success response from the backend. Detail carries the
// backend's message verbatim when one was present, otherwise the operation's
// fixed fallback string.
type APIError struct {
	StatusCode int
	Detail     string
}

func (e *APIError) Error() string {
	return e.Detail
}

type Client struct {
	baseURL    string
	httpClient *http.Client
}

type Option func(*Client)

func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) { c.httpClient = httpClient }
}

func NewClient(baseURL string, opts ...Option) *Client {
	client := &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 60 * time.Second},
	}
	for _, opt := range opts {
		opt(client)
	}
	return client
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body any, fallback string, out any) error {
	requestURL := c.baseURL + basePath + path
	if len(query) > 0 {
		requestURL += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request body: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	request, err := http.NewRequestWithContext(ctx, method, requestURL, reader)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	if body != nil {
		request.Header.Set("Content-Type", "application/json")
	}

	response, err := c.httpClient.Do(request)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer response.Body.Close()

	raw, err := io.ReadAll(response.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	if response.StatusCode < 200 || response.StatusCode >= 300 {
		detail := fallback
		var errBody struct {
			Detail string `json:"detail"`
		}
		if err := json.Unmarshal(raw, &errBody); err == nil && errBody.Detail != "" {
			detail = errBody.Detail
		}
		return &APIError{StatusCode: response.StatusCode, Detail: detail}
	}

	if out != nil {
		if err := json.Unmarshal(raw, out); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}
	return nil
}

// CustomerStatus reports whether a customer already exists for the tenant.
func (c *Client) CustomerStatus(ctx context.Context, tenantID string) (*entities.CustomerStatus, error) {
	query := url.Values{"tenant_id": {tenantID}}
	var status entities.CustomerStatus
	if err := c.do(ctx, http.MethodGet, "/customer-status", query, nil, "Failed to check customer status", &status); err != nil {
		return nil, err
	}
	return &status, nil
}

// RegenerateAPIKey issues a fresh key for the tenant and invalidates the old
// one.
func (c *Client) RegenerateAPIKey(ctx context.Context, tenantID string) (*entities.OnboardingResult, error) {
	query := url.Values{"tenant_id": {tenantID}}
	var result entities.OnboardingResult
	if err := c.do(ctx, http.MethodPost, "/regenerate-api-key", query, nil, "Failed to regenerate API key", &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// ListWorkspaces returns the candidate workspaces visible to the token.
func (c *Client) ListWorkspaces(ctx context.Context, accessToken string) (*entities.WorkspaceList, error) {
	query := url.Values{"access_token": {accessToken}}
	var list entities.WorkspaceList
	if err := c.do(ctx, http.MethodGet, "/workspaces", query, nil, "Failed to load workspaces", &list); err != nil {
		return nil, err
	}
	return &list, nil
}

// ListSubscriptions returns the enabled billing subscriptions.
func (c *Client) ListSubscriptions(ctx context.Context, accessToken string) ([]entities.Subscription, error) {
	query := url.Values{"access_token": {accessToken}}
	var subscriptions []entities.Subscription
	if err := c.do(ctx, http.MethodGet, "/subscriptions", query, nil, "Failed to load subscriptions", &subscriptions); err != nil {
		return nil, err
	}
	return subscriptions, nil
}

// ListRegions returns the deployable regions.
func (c *Client) ListRegions(ctx context.Context) ([]entities.Region, error) {
	var regions []entities.Region
	if err := c.do(ctx, http.MethodGet, "/regions", nil, nil, "Failed to load regions", &regions); err != nil {
		return nil, err
	}
	return regions, nil
}

// CreateWorkspace provisions a new workspace (and resource group).
func (c *Client) CreateWorkspace(ctx context.Context, accessToken string, request *dtos.CreateWorkspaceRequest) (*entities.Workspace, error) {
	query := url.Values{"access_token": {accessToken}}
	var workspace entities.Workspace
	if err := c.do(ctx, http.MethodPost, "/create-workspace", query, request, "Failed to create workspace", &workspace); err != nil {
		return nil, err
	}
	return &workspace, nil
}

// WorkspaceTemplateURL returns the external deploy template for manual
// workspace creation.
func (c *Client) WorkspaceTemplateURL(ctx context.Context) (*entities.TemplateInfo, error) {
	var info entities.TemplateInfo
	if err := c.do(ctx, http.MethodGet, "/workspace-template-url", nil, nil, "Failed to load workspace template", &info); err != nil {
		return nil, err
	}
	return &info, nil
}

// CompleteOnboarding finalizes onboarding and issues the API key.
func (c *Client) CompleteOnboarding(ctx context.Context, request *dtos.OnboardingCompleteRequest) (*entities.OnboardingResult, error) {
	var result entities.OnboardingResult
	if err := c.do(ctx, http.MethodPost, "/complete", nil, request, "Failed to complete onboarding", &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// DeployInfo computes the deployment launch parameters.
func (c *Client) DeployInfo(ctx context.Context, query *dtos.DeployURLQuery) (*entities.DeployInfo, error) {
	values := url.Values{
		"workspace_name": {query.WorkspaceName},
		"resource_group": {query.ResourceGroup},
		"api_key":        {query.APIKey},
	}
	if query.SubscriptionID != "" {
		values.Set("subscription_id", query.SubscriptionID)
	}
	if query.Location != "" {
		values.Set("location", query.Location)
	}
	if query.TenantID != "" {
		values.Set("tenant_id", query.TenantID)
	}
	var info entities.DeployInfo
	if err := c.do(ctx, http.MethodGet, "/deploy-url", values, nil, "Failed to generate deployment URL", &info); err != nil {
		return nil, err
	}
	return &info, nil
}

// CreateAutomationRule registers the downstream automation rule.
func (c *Client) CreateAutomationRule(ctx context.Context, accessToken string, request *dtos.CreateAutomationRuleRequest) (*entities.AutomationRuleResult, error) {
	query := url.Values{"access_token": {accessToken}}
	var result entities.AutomationRuleResult
	if err := c.do(ctx, http.MethodPost, "/create-automation-rule", query, request, "Failed to create automation rule", &result); err != nil {
		return nil, err
	}
	return &result, nil
}
