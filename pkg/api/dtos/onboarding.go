package dtos

import (
	"errors"
)

type AuthURLResponse struct {
	AuthURL string `json:"auth_url"`
	State   string `json:"state"`
}

type CallbackResponse struct {
	AccessToken string `json:"access_token"`
	TenantID    string `json:"tenant_id"`
	ExpiresIn   int64  `json:"expires_in"`
}

type OnboardingCompleteRequest struct {
	TenantID       string `json:"tenant_id"       binding:"required"`
	SubscriptionID string `json:"subscription_id" binding:"required"`
	ResourceGroup  string `json:"resource_group"  binding:"required"`
	WorkspaceName  string `json:"workspace_name"  binding:"required"`
	WorkspaceID    string `json:"workspace_id"    binding:"required"`
	CallbackURL    string `json:"callback_url"`
	// nil means the default (enabled).
	AIAnalysisEnabled *bool `json:"ai_analysis_enabled"`
}

func (r *OnboardingCompleteRequest) AIAnalysis() bool {
	return r.AIAnalysisEnabled == nil || *r.AIAnalysisEnabled
}

type CreateWorkspaceRequest struct {
	SubscriptionID string `json:"subscription_id" binding:"required"`
	ResourceGroup  string `json:"resource_group"  binding:"required"`
	WorkspaceName  string `json:"workspace_name"  binding:"required"`
	Location       string `json:"location"        binding:"required"`
	// nil means the default (create it).
	CreateResourceGroup *bool `json:"create_resource_group"`
}

func (r *CreateWorkspaceRequest) Validate() error {
	if r.SubscriptionID == "" {
		return errors.New("subscription_id is required")
	}
	if r.ResourceGroup == "" {
		return errors.New("resource_group is required")
	}
	if r.WorkspaceName == "" {
		return errors.New("workspace_name is required")
	}
	if r.Location == "" {
		return errors.New("location is required")
	}
	return nil
}

func (r *CreateWorkspaceRequest) ShouldCreateResourceGroup() bool {
	return r.CreateResourceGroup == nil || *r.CreateResourceGroup
}

type CreateAutomationRuleRequest struct {
	SubscriptionID     string `json:"subscription_id"       binding:"required"`
	ResourceGroup      string `json:"resource_group"        binding:"required"`
	WorkspaceName      string `json:"workspace_name"        binding:"required"`
	LogicAppResourceID string `json:"logic_app_resource_id" binding:"required"`
	TenantID           string `json:"tenant_id"             binding:"required"`
}

func (r *CreateAutomationRuleRequest) Validate() error {
	if r.SubscriptionID == "" || r.ResourceGroup == "" || r.WorkspaceName == "" {
		return errors.New("subscription_id, resource_group and workspace_name are required")
	}
	if r.LogicAppResourceID == "" {
		return errors.New("logic_app_resource_id is required")
	}
	if r.TenantID == "" {
		return errors.New("tenant_id is required")
	}
	return nil
}

type DeployURLQuery struct {
	WorkspaceName  string `form:"workspace_name" binding:"required"`
	ResourceGroup  string `form:"resource_group" binding:"required"`
	APIKey         string `form:"api_key"        binding:"required"`
	SubscriptionID string `form:"subscription_id"`
	Location       string `form:"location"`
	TenantID       string `form:"tenant_id"`
}
