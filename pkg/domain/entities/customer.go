package entities

import (
	"github.com/google/uuid"
)

type CustomerEntity struct {
	ID                uuid.UUID `json:"id"`
	TenantID          string    `json:"tenant_id"`
	WorkspaceID       string    `json:"workspace_id"`
	WorkspaceName     string    `json:"workspace_name"`
	SubscriptionID    string    `json:"subscription_id"`
	ResourceGroup     string    `json:"resource_group"`
	CallbackURL       string    `json:"callback_url,omitempty"`
	AIAnalysisEnabled bool      `json:"ai_analysis_enabled"`
	Status            CustomerStatusValue `json:"status"`
}

// CustomerStatus is the backend's answer to "has this tenant onboarded before".
// Identity fields are only populated when Exists is true.
type CustomerStatus struct {
	Exists         bool   `json:"exists"`
	CustomerID     string `json:"customer_id,omitempty"`
	WorkspaceName  string `json:"workspace_name,omitempty"`
	WorkspaceID    string `json:"workspace_id,omitempty"`
	SubscriptionID string `json:"subscription_id,omitempty"`
	ResourceGroup  string `json:"resource_group,omitempty"`
}

// OnboardingResult carries a freshly issued API key. The raw key is returned
// exactly once; only its hash survives server-side.
type OnboardingResult struct {
	CustomerID string `json:"customer_id"`
	APIKey     string `json:"api_key"`
	Message    string `json:"message"`
}

type AuditEvent struct {
	ID         uuid.UUID      `json:"id"`
	CustomerID string         `json:"customer_id"`
	EventType  AuditEventType `json:"event_type"`
	Details    map[string]any `json:"details,omitempty"`
}
