package entities

// Workspace is a candidate Log Analytics workspace discovered through the
// management API, annotated with whether Sentinel is onboarded on it.
type Workspace struct {
	SubscriptionID   string `json:"subscription_id"`
	SubscriptionName string `json:"subscription_name"`
	ResourceGroup    string `json:"resource_group"`
	WorkspaceName    string `json:"workspace_name"`
	WorkspaceID      string `json:"workspace_id"`
	Location         string `json:"location"`
	SentinelEnabled  bool   `json:"sentinel_enabled"`
}

type Subscription struct {
	SubscriptionID string `json:"subscription_id"`
	DisplayName    string `json:"display_name"`
	State          string `json:"state"`
}

type Region struct {
	Name        string `json:"name"`
	DisplayName string `json:"display_name"`
}

// WorkspaceDebug is diagnostic detail attached to workspace listings so
// support can tell an empty tenant from a broken enumeration.
type WorkspaceDebug struct {
	SubscriptionsFound int      `json:"subscriptions_found"`
	SubscriptionNames  []string `json:"subscription_names,omitempty"`
	WorkspacesChecked  int      `json:"workspaces_checked"`
	Errors             []string `json:"errors"`
}

type WorkspaceList struct {
	Workspaces []Workspace     `json:"workspaces"`
	Debug      *WorkspaceDebug `json:"debug,omitempty"`
}
