package dtos

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCreateWorkspaceRequestValidate(t *testing.T) {
	valid := CreateWorkspaceRequest{
		SubscriptionID: "sub-1",
		ResourceGroup:  "rg-1",
		WorkspaceName:  "ws-1",
		Location:       "eastus",
	}

	tests := []struct {
		name   string
		mutate func(*CreateWorkspaceRequest)
		errMsg string
	}{
		{name: "valid", mutate: func(r *CreateWorkspaceRequest) {}},
		{
			name:   "missing subscription",
			mutate: func(r *CreateWorkspaceRequest) { r.SubscriptionID = "" },
			errMsg: "subscription_id is required",
		},
		{
			name:   "missing resource group",
			mutate: func(r *CreateWorkspaceRequest) { r.ResourceGroup = "" },
			errMsg: "resource_group is required",
		},
		{
			name:   "missing workspace name",
			mutate: func(r *CreateWorkspaceRequest) { r.WorkspaceName = "" },
			errMsg: "workspace_name is required",
		},
		{
			name:   "missing location",
			mutate: func(r *CreateWorkspaceRequest) { r.Location = "" },
			errMsg: "location is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			request := valid
			tt.mutate(&request)
			err := request.Validate()
			if tt.errMsg == "" {
				assert.NoError(t, err)
			} else {
				assert.EqualError(t, err, tt.errMsg)
			}
		})
	}
}

func TestCreateWorkspaceRequestResourceGroupDefault(t *testing.T) {
	request := CreateWorkspaceRequest{}
	assert.True(t, request.ShouldCreateResourceGroup())

	skip := false
	request.CreateResourceGroup = &skip
	assert.False(t, request.ShouldCreateResourceGroup())

	create := true
	request.CreateResourceGroup = &create
	assert.True(t, request.ShouldCreateResourceGroup())
}

func TestOnboardingCompleteRequestAIAnalysisDefault(t *testing.T) {
	request := OnboardingCompleteRequest{}
	assert.True(t, request.AIAnalysis())

	disabled := false
	request.AIAnalysisEnabled = &disabled
	assert.False(t, request.AIAnalysis())
}

func TestCreateAutomationRuleRequestValidate(t *testing.T) {
	request := CreateAutomationRuleRequest{
		SubscriptionID:     "sub-1",
		ResourceGroup:      "rg-1",
		WorkspaceName:      "ws-1",
		LogicAppResourceID: "/subscriptions/sub-1/resourceGroups/rg-1/providers/Microsoft.Logic/workflows/wf",
		TenantID:           "tenant-1",
	}
	assert.NoError(t, request.Validate())

	missing := request
	missing.LogicAppResourceID = ""
	assert.Error(t, missing.Validate())

	missing = request
	missing.TenantID = ""
	assert.Error(t, missing.Validate())
}
