package entities

// DeployParameters are the values pre-filled into the "Deploy to Azure"
// template launch; they mirror the ARM template's parameter names.
type DeployParameters struct {
	WorkspaceName  string `json:"workspaceName"`
	TenantID       string `json:"tenantId,omitempty"`
	ResourceGroup  string `json:"resourceGroup"`
	CustomerAPIKey string `json:"customerApiKey"`
	SaaSEndpoint   string `json:"saasEndpoint"`
	Location       string `json:"location,omitempty"`
}

type DeployInfo struct {
	DeployURL       string           `json:"deploy_url"`
	SimpleDeployURL string           `json:"simple_deploy_url,omitempty"`
	TemplateURL     string           `json:"template_url"`
	Parameters      DeployParameters `json:"parameters"`
}

// TemplateInfo points at the standalone workspace-creation template, the
// manual alternative to direct workspace provisioning.
type TemplateInfo struct {
	DeployURL   string `json:"deploy_url"`
	TemplateURL string `json:"template_url"`
	Description string `json:"description"`
}

type AutomationRuleResult struct {
	AutomationRuleName string `json:"automation_rule_name"`
	Status             string `json:"status"`
	Message            string `json:"message"`
}
