package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soctierzero/soc-onboarding/pkg/api/dtos"
)

func TestCreateWorkspaceSurfacesBackendDetail(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(map[string]string{"detail": "quota exceeded"})
	}))
	defer server.Close()

	client := NewClient(server.URL)
	_, err := client.CreateWorkspace(context.Background(), "tok", &dtos.CreateWorkspaceRequest{
		SubscriptionID: "sub-1",
		ResourceGroup:  "rg-1",
		WorkspaceName:  "ws-1",
		Location:       "eastus",
	})

	require.Error(t, err)
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
	assert.Equal(t, "quota exceeded", apiErr.Detail)
	assert.Equal(t, "quota exceeded", err.Error())
}

func TestCreateWorkspaceFallbackWithoutDetail(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		w.Write([]byte("<html>bad gateway</html>"))
	}))
	defer server.Close()

	client := NewClient(server.URL)
	_, err := client.CreateWorkspace(context.Background(), "tok", &dtos.CreateWorkspaceRequest{
		SubscriptionID: "sub-1",
		ResourceGroup:  "rg-1",
		WorkspaceName:  "ws-1",
		Location:       "eastus",
	})

	require.Error(t, err)
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "Failed to create workspace", apiErr.Detail)
}

func TestCustomerStatusRequestShape(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/api/v1/onboarding/customer-status", r.URL.Path)
		assert.Equal(t, "tenant-1", r.URL.Query().Get("tenant_id"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"exists": true, "customer_id": "cust-1", "workspace_name": "ws-1"}`))
	}))
	defer server.Close()

	status, err := NewClient(server.URL).CustomerStatus(context.Background(), "tenant-1")
	require.NoError(t, err)
	assert.True(t, status.Exists)
	assert.Equal(t, "cust-1", status.CustomerID)
	assert.Equal(t, "ws-1", status.WorkspaceName)
}

func TestCompleteOnboardingPostsBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/v1/onboarding/complete", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "tenant-1", body["tenant_id"])
		assert.Equal(t, "ws-1", body["workspace_name"])

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"customer_id": "cust-1", "api_key": "soc_abc", "message": "saved"}`))
	}))
	defer server.Close()

	result, err := NewClient(server.URL).CompleteOnboarding(context.Background(), &dtos.OnboardingCompleteRequest{
		TenantID:       "tenant-1",
		SubscriptionID: "sub-1",
		ResourceGroup:  "rg-1",
		WorkspaceName:  "ws-1",
		WorkspaceID:    "ws-id-1",
	})
	require.NoError(t, err)
	assert.Equal(t, "soc_abc", result.APIKey)
}

func TestListSubscriptionsDecodesBareArray(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[{"subscription_id": "sub-1", "display_name": "Pay-As-You-Go", "state": "Enabled"}]`))
	}))
	defer server.Close()

	subscriptions, err := NewClient(server.URL).ListSubscriptions(context.Background(), "tok")
	require.NoError(t, err)
	require.Len(t, subscriptions, 1)
	assert.Equal(t, "sub-1", subscriptions[0].SubscriptionID)
}

func TestDeployInfoOmitsEmptyOptionalParams(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		query := r.URL.Query()
		assert.Equal(t, "ws-1", query.Get("workspace_name"))
		assert.Equal(t, "soc_abc", query.Get("api_key"))
		assert.False(t, query.Has("tenant_id"))
		assert.False(t, query.Has("location"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"deploy_url": "https://portal.example/deploy", "template_url": "https://templates.example/t.json", "parameters": {"workspaceName": "ws-1"}}`))
	}))
	defer server.Close()

	info, err := NewClient(server.URL).DeployInfo(context.Background(), &dtos.DeployURLQuery{
		WorkspaceName: "ws-1",
		ResourceGroup: "rg-1",
		APIKey:        "soc_abc",
	})
	require.NoError(t, err)
	assert.Equal(t, "https://portal.example/deploy", info.DeployURL)
	assert.Equal(t, "ws-1", info.Parameters.WorkspaceName)
}
