package azure

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestListSubscriptionsDecodesARMEnvelope(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/subscriptions", r.URL.Path)
		assert.Equal(t, "2022-12-01", r.URL.Query().Get("api-version"))
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"value": [
			{"subscriptionId": "sub-1", "displayName": "Primary", "state": "Enabled"},
			{"subscriptionId": "sub-2", "state": "Enabled"}
		]}`))
	}))
	defer server.Close()

	client := NewClient(WithBaseURL(server.URL))
	subs, err := client.ListSubscriptions(context.Background(), "tok")
	require.NoError(t, err)

	require.Len(t, subs, 2)
	assert.Equal(t, "Primary", subs[0].DisplayName)
	// A subscription without a display name falls back to its id.
	assert.Equal(t, "sub-2", subs[1].DisplayName)
}

func TestSentinelEnabledRequiresBothChecks(t *testing.T) {
	tests := []struct {
		name            string
		solutionStatus  int
		onboardedStatus int
		want            bool
	}{
		{name: "fully onboarded", solutionStatus: 200, onboardedStatus: 200, want: true},
		{name: "solution missing", solutionStatus: 404, onboardedStatus: 200, want: false},
		{name: "solution only", solutionStatus: 200, onboardedStatus: 404, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.URL.Path == "/subscriptions/sub-1/resourceGroups/rg-1/providers/Microsoft.OperationsManagement/solutions/SecurityInsights(ws-1)" {
					w.WriteHeader(tt.solutionStatus)
					return
				}
				w.WriteHeader(tt.onboardedStatus)
			}))
			defer server.Close()

			client := NewClient(WithBaseURL(server.URL))
			enabled, err := client.SentinelEnabled(context.Background(), "tok", "sub-1", "rg-1", "ws-1")
			require.NoError(t, err)
			assert.Equal(t, tt.want, enabled)
		})
	}
}

func TestCreateWorkspaceReturnsCustomerID(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		assert.Equal(t, "/subscriptions/sub-1/resourceGroups/rg-1/providers/Microsoft.OperationalInsights/workspaces/ws-1", r.URL.Path)

		var payload map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		assert.Equal(t, "eastus", payload["location"])
		properties := payload["properties"].(map[string]any)
		assert.Equal(t, float64(90), properties["retentionInDays"])

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"properties": {"customerId": "guid-1"}}`))
	}))
	defer server.Close()

	client := NewClient(WithBaseURL(server.URL))
	customerID, err := client.CreateWorkspace(context.Background(), "tok", "sub-1", "rg-1", "ws-1", "eastus")
	require.NoError(t, err)
	assert.Equal(t, "guid-1", customerID)
}

func TestEnableSentinelReferencesWorkspace(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		assert.Equal(t, "/subscriptions/sub-1/resourceGroups/rg-1/providers/Microsoft.OperationsManagement/solutions/SecurityInsights(ws-1)", r.URL.Path)

		var payload map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		properties := payload["properties"].(map[string]any)
		assert.Equal(t, "/subscriptions/sub-1/resourceGroups/rg-1/providers/Microsoft.OperationalInsights/workspaces/ws-1", properties["workspaceResourceId"])

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{}`))
	}))
	defer server.Close()

	client := NewClient(WithBaseURL(server.URL))
	err := client.EnableSentinel(context.Background(), "tok", "sub-1", "rg-1", "ws-1", "eastus")
	assert.NoError(t, err)
}

func TestGrantAutomationRoleToleratesConflict(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
		w.Write([]byte(`{"error": {"code": "RoleAssignmentExists"}}`))
	}))
	defer server.Close()

	client := NewClient(WithBaseURL(server.URL))
	err := client.GrantAutomationRole(context.Background(), "tok", "sub-1", "rg-1", "assignment-1")
	assert.NoError(t, err)
}

func TestGrantAutomationRoleSurfacesForbidden(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		w.Write([]byte(`{"error": {"code": "AuthorizationFailed"}}`))
	}))
	defer server.Close()

	client := NewClient(WithBaseURL(server.URL))
	err := client.GrantAutomationRole(context.Background(), "tok", "sub-1", "rg-1", "assignment-1")
	require.Error(t, err)
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusForbidden, apiErr.StatusCode)
}

func TestLogicAppExists(t *testing.T) {
	var requestedPath string
	status := http.StatusNotFound
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestedPath = r.URL.Path
		w.WriteHeader(status)
	}))
	defer server.Close()

	client := NewClient(WithBaseURL(server.URL))

	exists, err := client.LogicAppExists(context.Background(), "tok", "sub-1", "rg-1", "soc-t0-auto-analyze")
	require.NoError(t, err)
	assert.False(t, exists)
	assert.Equal(t, "/subscriptions/sub-1/resourceGroups/rg-1/providers/Microsoft.Logic/workflows/soc-t0-auto-analyze", requestedPath)

	status = http.StatusOK
	exists, err = client.LogicAppExists(context.Background(), "tok", "sub-1", "rg-1", "soc-t0-auto-analyze")
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestCreateAutomationRulePayload(t *testing.T) {
	var payload map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{}`))
	}))
	defer server.Close()

	client := NewClient(WithBaseURL(server.URL))
	err := client.CreateAutomationRule(context.Background(), "tok", AutomationRuleSpec{
		SubscriptionID:     "sub-1",
		ResourceGroup:      "rg-1",
		WorkspaceName:      "ws-1",
		RuleName:           "SOC-T0-Auto-Analyze-abcd1234",
		DisplayName:        "SOC T0 SaaS - Auto Analyze All Incidents",
		LogicAppResourceID: "/subscriptions/sub-1/resourceGroups/rg-1/providers/Microsoft.Logic/workflows/wf",
		TenantID:           "tenant-1",
	})
	require.NoError(t, err)

	properties := payload["properties"].(map[string]any)
	assert.Equal(t, "SOC T0 SaaS - Auto Analyze All Incidents", properties["displayName"])
	triggering := properties["triggeringLogic"].(map[string]any)
	assert.Equal(t, "Incidents", triggering["triggersOn"])
	assert.Equal(t, "Created", triggering["triggersWhen"])
}
