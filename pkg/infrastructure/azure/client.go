package azure

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/soctierzero/soc-onboarding/internal/utils"
	"github.com/soctierzero/soc-onboarding/pkg/metrics"
)

const DefaultBaseURL = "https://management.azure.com"

// API versions pinned per resource provider.
const (
	apiVersionSubscriptions   = "2022-12-01"
	apiVersionResourceGroups  = "2021-04-01"
	apiVersionWorkspaces      = "2023-09-01"
	apiVersionSolutions       = "2015-11-01-preview"
	apiVersionOnboardingState = "2024-03-01"
	apiVersionRoleAssignments = "2022-04-01"
	apiVersionAutomationRules = "2024-03-01"
	apiVersionLogicApps       = "2019-05-01"
)

// APIError is a non-success response from the management API.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("azure management API returned HTTP %d: %s", e.StatusCode, e.Body)
}

// Client is a thin REST client over the Azure Management API. Every call is
// bearer-authenticated with a caller-supplied delegated token; the client
// holds no credentials of its own.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

type Option func(*Client)

func WithBaseURL(baseURL string) Option {
	return func(c *Client) { c.baseURL = baseURL }
}

func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) { c.httpClient = httpClient }
}

func NewClient(opts ...Option) *Client {
	c := &Client{
		baseURL:    DefaultBaseURL,
		httpClient: &http.Client{Timeout: 120 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) do(
	ctx context.Context,
	method, path, apiVersion, token, endpoint string,
	body any,
) (int, []byte, error) {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return 0, nil, fmt.Errorf("failed to marshal request body: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	url := c.baseURL + path + "?api-version=" + apiVersion
	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return 0, nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	metrics.AzureAPIDuration.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.AzureAPICalls.WithLabelValues(endpoint, "error").Inc()
		return 0, nil, err
	}
	defer resp.Body.Close()
	metrics.AzureAPICalls.WithLabelValues(endpoint, strconv.Itoa(resp.StatusCode)).Inc()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, nil, err
	}
	return resp.StatusCode, data, nil
}

type subscriptionList struct {
	Value []struct {
		SubscriptionID string `json:"subscriptionId"`
		DisplayName    string `json:"displayName"`
		State          string `json:"state"`
	} `json:"value"`
}

// Subscription is a billing subscription visible to the token's principal.
type Subscription struct {
	SubscriptionID string
	DisplayName    string
	State          string
}

func (c *Client) ListSubscriptions(ctx context.Context, token string) ([]Subscription, error) {
	status, body, err := c.do(ctx, http.MethodGet, "/subscriptions", apiVersionSubscriptions, token, "subscriptions", nil)
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		return nil, &APIError{StatusCode: status, Body: string(body)}
	}

	var list subscriptionList
	if err := json.Unmarshal(body, &list); err != nil {
		return nil, fmt.Errorf("failed to decode subscription list: %w", err)
	}

	subs := make([]Subscription, 0, len(list.Value))
	for _, s := range list.Value {
		displayName := s.DisplayName
		if displayName == "" {
			displayName = s.SubscriptionID
		}
		subs = append(subs, Subscription{
			SubscriptionID: s.SubscriptionID,
			DisplayName:    displayName,
			State:          s.State,
		})
	}
	return subs, nil
}

type workspaceList struct {
	Value []struct {
		ID         string `json:"id"`
		Name       string `json:"name"`
		Location   string `json:"location"`
		Properties struct {
			CustomerID string `json:"customerId"`
		} `json:"properties"`
	} `json:"value"`
}

// WorkspaceResource is a raw Log Analytics workspace as returned by ARM.
type WorkspaceResource struct {
	ID         string
	Name       string
	Location   string
	CustomerID string
}

func (c *Client) ListWorkspaces(ctx context.Context, token, subscriptionID string) ([]WorkspaceResource, error) {
	path := fmt.Sprintf("/subscriptions/%s/providers/Microsoft.OperationalInsights/workspaces", subscriptionID)
	status, body, err := c.do(ctx, http.MethodGet, path, apiVersionWorkspaces, token, "workspaces", nil)
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		return nil, &APIError{StatusCode: status, Body: string(body)}
	}

	var list workspaceList
	if err := json.Unmarshal(body, &list); err != nil {
		return nil, fmt.Errorf("failed to decode workspace list: %w", err)
	}

	workspaces := make([]WorkspaceResource, 0, len(list.Value))
	for _, ws := range list.Value {
		workspaces = append(workspaces, WorkspaceResource{
			ID:         ws.ID,
			Name:       ws.Name,
			Location:   ws.Location,
			CustomerID: ws.Properties.CustomerID,
		})
	}
	return workspaces, nil
}

// SentinelEnabled reports whether Sentinel is onboarded on a workspace. The
// SecurityInsights solution alone is not enough; the onboarding state must
// also resolve.
func (c *Client) SentinelEnabled(ctx context.Context, token, subscriptionID, resourceGroup, workspaceName string) (bool, error) {
	solutionPath := fmt.Sprintf(
		"/subscriptions/%s/resourceGroups/%s/providers/Microsoft.OperationsManagement/solutions/SecurityInsights(%s)",
		subscriptionID, resourceGroup, workspaceName,
	)
	status, _, err := c.do(ctx, http.MethodGet, solutionPath, apiVersionSolutions, token, "sentinel_solution", nil)
	if err != nil {
		return false, err
	}
	if status != http.StatusOK {
		return false, nil
	}

	onboardPath := utils.WorkspaceResourceID(subscriptionID, resourceGroup, workspaceName) +
		"/providers/Microsoft.SecurityInsights/onboardingStates/default"
	status, _, err = c.do(ctx, http.MethodGet, onboardPath, apiVersionOnboardingState, token, "sentinel_onboarding", nil)
	if err != nil {
		return false, err
	}
	return status == http.StatusOK, nil
}

func (c *Client) CreateResourceGroup(ctx context.Context, token, subscriptionID, resourceGroup, location string) error {
	path := fmt.Sprintf("/subscriptions/%s/resourceGroups/%s", subscriptionID, resourceGroup)
	payload := map[string]any{
		"location": location,
		"tags": map[string]string{
			"CreatedBy": "SOC-Onboarding",
			"Purpose":   "Sentinel-Workspace",
		},
	}
	status, body, err := c.do(ctx, http.MethodPut, path, apiVersionResourceGroups, token, "resource_group_create", payload)
	if err != nil {
		return err
	}
	if status != http.StatusOK && status != http.StatusCreated {
		return &APIError{StatusCode: status, Body: string(body)}
	}
	return nil
}

// CreateWorkspace provisions a Log Analytics workspace and returns its
// customer ID (the workspace GUID used by ingestion).
func (c *Client) CreateWorkspace(ctx context.Context, token, subscriptionID, resourceGroup, workspaceName, location string) (string, error) {
	path := utils.WorkspaceResourceID(subscriptionID, resourceGroup, workspaceName)
	payload := map[string]any{
		"location": location,
		"properties": map[string]any{
			"sku":             map[string]string{"name": "PerGB2018"},
			"retentionInDays": 90,
			"features": map[string]any{
				"enableLogAccessUsingOnlyResourcePermissions": true,
			},
		},
		"tags": map[string]string{
			"CreatedBy": "SOC-Onboarding",
			"Purpose":   "Sentinel-Workspace",
		},
	}
	status, body, err := c.do(ctx, http.MethodPut, path, apiVersionWorkspaces, token, "workspace_create", payload)
	if err != nil {
		return "", err
	}
	if status != http.StatusOK && status != http.StatusCreated && status != http.StatusAccepted {
		return "", &APIError{StatusCode: status, Body: string(body)}
	}

	var ws struct {
		Properties struct {
			CustomerID string `json:"customerId"`
		} `json:"properties"`
	}
	if err := json.Unmarshal(body, &ws); err != nil {
		return "", fmt.Errorf("failed to decode workspace response: %w", err)
	}
	return ws.Properties.CustomerID, nil
}

func (c *Client) EnableSentinel(ctx context.Context, token, subscriptionID, resourceGroup, workspaceName, location string) error {
	path := fmt.Sprintf(
		"/subscriptions/%s/resourceGroups/%s/providers/Microsoft.OperationsManagement/solutions/SecurityInsights(%s)",
		subscriptionID, resourceGroup, workspaceName,
	)
	payload := map[string]any{
		"location": location,
		"properties": map[string]any{
			"workspaceResourceId": utils.WorkspaceResourceID(subscriptionID, resourceGroup, workspaceName),
		},
		"plan": map[string]any{
			"name":          fmt.Sprintf("SecurityInsights(%s)", workspaceName),
			"publisher":     "Microsoft",
			"product":       "OMSGallery/SecurityInsights",
			"promotionCode": "",
		},
	}
	status, body, err := c.do(ctx, http.MethodPut, path, apiVersionSolutions, token, "sentinel_enable", payload)
	if err != nil {
		return err
	}
	if status != http.StatusOK && status != http.StatusCreated && status != http.StatusAccepted {
		return &APIError{StatusCode: status, Body: string(body)}
	}
	return nil
}

// Azure Security Insights service principal and the Sentinel Automation
// Contributor role it needs to run playbooks.
const (
	sentinelServicePrincipalID = "b91c279d-7753-4d97-ae0e-e11d595c78cd"
	sentinelAutomationRoleID   = "f4c81013-99ee-4d62-a7ee-b3f1f648599a"
)

// GrantAutomationRole assigns the Sentinel Automation Contributor role to the
// Security Insights service principal. An existing assignment (409) is fine.
func (c *Client) GrantAutomationRole(ctx context.Context, token, subscriptionID, resourceGroup, assignmentName string) error {
	path := fmt.Sprintf(
		"/subscriptions/%s/resourceGroups/%s/providers/Microsoft.Authorization/roleAssignments/%s",
		subscriptionID, resourceGroup, assignmentName,
	)
	payload := map[string]any{
		"properties": map[string]any{
			"roleDefinitionId": fmt.Sprintf(
				"/subscriptions/%s/providers/Microsoft.Authorization/roleDefinitions/%s",
				subscriptionID, sentinelAutomationRoleID,
			),
			"principalId":   sentinelServicePrincipalID,
			"principalType": "ServicePrincipal",
		},
	}
	status, body, err := c.do(ctx, http.MethodPut, path, apiVersionRoleAssignments, token, "role_assignment", payload)
	if err != nil {
		return err
	}
	if status != http.StatusOK && status != http.StatusCreated && status != http.StatusConflict {
		return &APIError{StatusCode: status, Body: string(body)}
	}
	return nil
}

// AutomationRuleSpec describes the Sentinel automation rule wired to the
// customer's deployed playbook.
type AutomationRuleSpec struct {
	SubscriptionID     string
	ResourceGroup      string
	WorkspaceName      string
	RuleName           string
	DisplayName        string
	LogicAppResourceID string
	TenantID           string
}

func (c *Client) CreateAutomationRule(ctx context.Context, token string, spec AutomationRuleSpec) error {
	path := utils.WorkspaceResourceID(spec.SubscriptionID, spec.ResourceGroup, spec.WorkspaceName) +
		"/providers/Microsoft.SecurityInsights/automationRules/" + spec.RuleName
	payload := map[string]any{
		"properties": map[string]any{
			"displayName": spec.DisplayName,
			"order":       1,
			"triggeringLogic": map[string]any{
				"isEnabled":    true,
				"triggersOn":   "Incidents",
				"triggersWhen": "Created",
				"conditions":   []any{},
			},
			"actions": []any{
				map[string]any{
					"order":      1,
					"actionType": "RunPlaybook",
					"actionConfiguration": map[string]any{
						"logicAppResourceId": spec.LogicAppResourceID,
						"tenantId":           spec.TenantID,
					},
				},
			},
		},
	}
	status, body, err := c.do(ctx, http.MethodPut, path, apiVersionAutomationRules, token, "automation_rule", payload)
	if err != nil {
		return err
	}
	if status != http.StatusOK && status != http.StatusCreated && status != http.StatusAccepted {
		return &APIError{StatusCode: status, Body: string(body)}
	}
	return nil
}

// ResourceExists issues a GET for an ARM resource ID and reports whether it
// resolves. Used to detect that the customer's template deployment finished.
func (c *Client) ResourceExists(ctx context.Context, token, resourceID, apiVersion string) (bool, error) {
	if apiVersion == "" {
		apiVersion = apiVersionLogicApps
	}
	status, _, err := c.do(ctx, http.MethodGet, resourceID, apiVersion, token, "resource_get", nil)
	if err != nil {
		return false, err
	}
	return status == http.StatusOK, nil
}

// LogicAppExists reports whether a Logic App workflow with the given name has
// been deployed into the subscription and resource group.
func (c *Client) LogicAppExists(ctx context.Context, token, subscriptionID, resourceGroup, name string) (bool, error) {
	resourceID := utils.LogicAppResourceID(subscriptionID, resourceGroup, name)
	return c.ResourceExists(ctx, token, resourceID, apiVersionLogicApps)
}
