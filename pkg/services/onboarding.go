package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"encoding/json"

	"github.com/google/uuid"
	"github.com/soctierzero/soc-onboarding/internal/logger"
	"github.com/soctierzero/soc-onboarding/internal/utils"
	"github.com/soctierzero/soc-onboarding/pkg/api/dtos"
	"github.com/soctierzero/soc-onboarding/pkg/domain/entities"
	"github.com/soctierzero/soc-onboarding/pkg/infrastructure/azure"
	"github.com/soctierzero/soc-onboarding/pkg/metrics"
	"go.uber.org/zap"
)

type CustomerRepository interface {
	CreateCustomer(customer *entities.CustomerEntity, keyHash string, keyPrefix string) error
	GetCustomerByTenant(tenantID string) (*entities.CustomerEntity, error)
	UpdateAPIKey(customerID string, keyHash string, keyPrefix string) error
}

type AuditRepository interface {
	CreateAuditEvent(event *entities.AuditEvent) error
}

type ManagementClient interface {
	ListSubscriptions(ctx context.Context, token string) ([]azure.Subscription, error)
	ListWorkspaces(ctx context.Context, token, subscriptionID string) ([]azure.WorkspaceResource, error)
	SentinelEnabled(ctx context.Context, token, subscriptionID, resourceGroup, workspaceName string) (bool, error)
	CreateResourceGroup(ctx context.Context, token, subscriptionID, resourceGroup, location string) error
	CreateWorkspace(ctx context.Context, token, subscriptionID, resourceGroup, workspaceName, location string) (string, error)
	EnableSentinel(ctx context.Context, token, subscriptionID, resourceGroup, workspaceName, location string) error
	GrantAutomationRole(ctx context.Context, token, subscriptionID, resourceGroup, assignmentName string) error
	CreateAutomationRule(ctx context.Context, token string, spec azure.AutomationRuleSpec) error
}

type TaskManager interface {
	Start()
	AddTask(task entities.Task)
	Stop()
}

// Config carries the deployment constants baked into issued deploy links.
type Config struct {
	SaaSEndpoint         string
	DeployTemplateURL    string
	WorkspaceTemplateURL string
}

func (c *Config) withDefaults() Config {
	out := *c
	if out.SaaSEndpoint == "" {
		out.SaaSEndpoint = "https://soc-t0-saas.azurewebsites.net"
	}
	if out.DeployTemplateURL == "" {
		out.DeployTemplateURL = "https://soct0templates.blob.core.windows.net/templates/soc-t0-complete.json"
	}
	if out.WorkspaceTemplateURL == "" {
		out.WorkspaceTemplateURL = "https://soct0templates.blob.core.windows.net/templates/soc-t0-workspace.json"
	}
	return out
}

// Sentinel-capable regions offered for direct workspace creation.
var sentinelRegions = []entities.Region{
	{Name: "australiaeast", DisplayName: "Australia East"},
	{Name: "australiasoutheast", DisplayName: "Australia Southeast"},
	{Name: "eastus", DisplayName: "East US"},
	{Name: "eastus2", DisplayName: "East US 2"},
	{Name: "westus", DisplayName: "West US"},
	{Name: "westus2", DisplayName: "West US 2"},
	{Name: "centralus", DisplayName: "Central US"},
	{Name: "northeurope", DisplayName: "North Europe"},
	{Name: "westeurope", DisplayName: "West Europe"},
	{Name: "uksouth", DisplayName: "UK South"},
	{Name: "ukwest", DisplayName: "UK West"},
	{Name: "southeastasia", DisplayName: "Southeast Asia"},
	{Name: "japaneast", DisplayName: "Japan East"},
	{Name: "canadacentral", DisplayName: "Canada Central"},
}

type OnboardingService struct {
	customerRepo CustomerRepository
	auditRepo    AuditRepository
	management   ManagementClient
	taskManager  TaskManager
	config       Config
}

func NewOnboardingService(
	customerRepo CustomerRepository,
	auditRepo AuditRepository,
	management ManagementClient,
	taskManager TaskManager,
	config Config,
) *OnboardingService {
	srv := &OnboardingService{
		customerRepo: customerRepo,
		auditRepo:    auditRepo,
		management:   management,
		taskManager:  taskManager,
		config:       config.withDefaults(),
	}

	srv.taskManager.Start()

	return srv
}

func (s *OnboardingService) CustomerStatus(tenantID string) (*entities.CustomerStatus, error) {
	existing, err := s.customerRepo.GetCustomerByTenant(tenantID)
	if err != nil {
		logger.Error("failed to look up customer", zap.String("tenantId", tenantID), zap.Error(err))
		return nil, err
	}
	if existing == nil {
		return &entities.CustomerStatus{Exists: false}, nil
	}
	return &entities.CustomerStatus{
		Exists:         true,
		CustomerID:     existing.ID.String(),
		WorkspaceName:  existing.WorkspaceName,
		WorkspaceID:    existing.WorkspaceID,
		SubscriptionID: existing.SubscriptionID,
		ResourceGroup:  existing.ResourceGroup,
	}, nil
}

func (s *OnboardingService) CompleteOnboarding(request *dtos.OnboardingCompleteRequest) (*entities.OnboardingResult, error) {
	existing, err := s.customerRepo.GetCustomerByTenant(request.TenantID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		metrics.OnboardingCompleted.WithLabelValues("conflict").Inc()
		return nil, NewError(http.StatusConflict,
			"A customer already exists for this tenant. Contact support to manage your subscription.")
	}

	rawKey, keyHash, keyPrefix, err := GenerateAPIKey()
	if err != nil {
		return nil, err
	}

	customer := &entities.CustomerEntity{
		ID:                uuid.New(),
		TenantID:          request.TenantID,
		WorkspaceID:       request.WorkspaceID,
		WorkspaceName:     request.WorkspaceName,
		SubscriptionID:    request.SubscriptionID,
		ResourceGroup:     request.ResourceGroup,
		CallbackURL:       request.CallbackURL,
		AIAnalysisEnabled: request.AIAnalysis(),
		Status:            entities.CustomerStatusActive,
	}
	if err := s.customerRepo.CreateCustomer(customer, keyHash, keyPrefix); err != nil {
		logger.Error("failed to create customer", zap.String("tenantId", request.TenantID), zap.Error(err))
		metrics.OnboardingCompleted.WithLabelValues("error").Inc()
		return nil, err
	}

	logger.Info("customer onboarded",
		zap.String("customerId", customer.ID.String()),
		zap.String("tenantId", request.TenantID),
		zap.String("workspaceName", request.WorkspaceName),
	)
	metrics.OnboardingCompleted.WithLabelValues("success").Inc()
	metrics.APIKeyGenerated.WithLabelValues("initial").Inc()

	s.recordAudit(customer.ID.String(), entities.AuditEventCustomerOnboarded, map[string]any{
		"tenant_id":       request.TenantID,
		"workspace_name":  request.WorkspaceName,
		"subscription_id": request.SubscriptionID,
	})

	return &entities.OnboardingResult{
		CustomerID: customer.ID.String(),
		APIKey:     rawKey,
		Message:    "Customer created successfully. Save your API key - it won't be shown again!",
	}, nil
}

func (s *OnboardingService) RegenerateAPIKey(tenantID string) (*entities.OnboardingResult, error) {
	existing, err := s.customerRepo.GetCustomerByTenant(tenantID)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		return nil, NewError(http.StatusNotFound,
			"No customer found for this tenant. Please complete onboarding first.")
	}

	rawKey, keyHash, keyPrefix, err := GenerateAPIKey()
	if err != nil {
		return nil, err
	}
	if err := s.customerRepo.UpdateAPIKey(existing.ID.String(), keyHash, keyPrefix); err != nil {
		logger.Error("failed to rotate api key", zap.String("customerId", existing.ID.String()), zap.Error(err))
		return nil, err
	}

	logger.Info("api key regenerated", zap.String("customerId", existing.ID.String()))
	metrics.APIKeyGenerated.WithLabelValues("regenerated").Inc()

	s.recordAudit(existing.ID.String(), entities.AuditEventAPIKeyRegenerated, map[string]any{
		"tenant_id": tenantID,
	})

	return &entities.OnboardingResult{
		CustomerID: existing.ID.String(),
		APIKey:     rawKey,
		Message:    "New API key generated. Save it securely - it won't be shown again! Your old key has been invalidated.",
	}, nil
}

// ListWorkspaces enumerates every Log Analytics workspace the delegated token
// can see across all subscriptions, and checks Sentinel onboarding per
// workspace. A failing subscription is reported in the debug block instead of
// failing the whole listing.
func (s *OnboardingService) ListWorkspaces(ctx context.Context, accessToken string) (*entities.WorkspaceList, error) {
	start := time.Now()
	defer func() {
		metrics.WorkspaceListDuration.Observe(time.Since(start).Seconds())
	}()

	subs, err := s.management.ListSubscriptions(ctx, accessToken)
	if err != nil {
		metrics.WorkspacesListed.WithLabelValues("error").Inc()
		return nil, azureError(err, "Failed to list subscriptions")
	}

	debug := &entities.WorkspaceDebug{
		SubscriptionsFound: len(subs),
		Errors:             []string{},
	}
	workspaces := []entities.Workspace{}

	for _, sub := range subs {
		debug.SubscriptionNames = append(debug.SubscriptionNames, sub.DisplayName)

		resources, err := s.management.ListWorkspaces(ctx, accessToken, sub.SubscriptionID)
		if err != nil {
			msg := fmt.Sprintf("Failed to list workspaces in %s: %s", sub.DisplayName, err)
			logger.Warn("workspace enumeration error", zap.String("subscription", sub.SubscriptionID), zap.Error(err))
			debug.Errors = append(debug.Errors, msg)
			continue
		}

		for _, resource := range resources {
			debug.WorkspacesChecked++
			resourceGroup := utils.ResourceGroupFromID(resource.ID)

			// Best effort; a failed check just means "not enabled".
			sentinelEnabled, err := s.management.SentinelEnabled(ctx, accessToken, sub.SubscriptionID, resourceGroup, resource.Name)
			if err != nil {
				logger.Debug("sentinel check failed",
					zap.String("workspace", resource.Name),
					zap.Error(err))
				sentinelEnabled = false
			}

			workspaces = append(workspaces, entities.Workspace{
				SubscriptionID:   sub.SubscriptionID,
				SubscriptionName: sub.DisplayName,
				ResourceGroup:    resourceGroup,
				WorkspaceName:    resource.Name,
				WorkspaceID:      resource.CustomerID,
				Location:         resource.Location,
				SentinelEnabled:  sentinelEnabled,
			})
		}
	}

	logger.Info("workspaces listed",
		zap.Int("subscriptions", len(subs)),
		zap.Int("workspaces", len(workspaces)),
	)
	metrics.WorkspacesListed.WithLabelValues("success").Inc()

	return &entities.WorkspaceList{Workspaces: workspaces, Debug: debug}, nil
}

func (s *OnboardingService) ListSubscriptions(ctx context.Context, accessToken string) ([]entities.Subscription, error) {
	subs, err := s.management.ListSubscriptions(ctx, accessToken)
	if err != nil {
		return nil, azureError(err, "Failed to list subscriptions")
	}

	enabled := []entities.Subscription{}
	for _, sub := range subs {
		if sub.State != "Enabled" {
			continue
		}
		enabled = append(enabled, entities.Subscription{
			SubscriptionID: sub.SubscriptionID,
			DisplayName:    sub.DisplayName,
			State:          sub.State,
		})
	}
	return enabled, nil
}

func (s *OnboardingService) Regions() []entities.Region {
	return sentinelRegions
}

// CreateWorkspace provisions resource group, workspace and the Sentinel
// solution in sequence. A Sentinel enablement failure is non-fatal: the
// workspace is still usable.
func (s *OnboardingService) CreateWorkspace(ctx context.Context, accessToken string, request *dtos.CreateWorkspaceRequest) (*entities.Workspace, error) {
	start := time.Now()
	defer func() {
		metrics.WorkspaceCreationDuration.Observe(time.Since(start).Seconds())
	}()

	if request.ShouldCreateResourceGroup() {
		if err := s.management.CreateResourceGroup(ctx, accessToken, request.SubscriptionID, request.ResourceGroup, request.Location); err != nil {
			metrics.WorkspaceCreation.WithLabelValues("error").Inc()
			return nil, azureError(err, "Failed to create resource group")
		}
	}

	workspaceID, err := s.management.CreateWorkspace(ctx, accessToken, request.SubscriptionID, request.ResourceGroup, request.WorkspaceName, request.Location)
	if err != nil {
		metrics.WorkspaceCreation.WithLabelValues("error").Inc()
		return nil, azureError(err, "Failed to create workspace")
	}

	sentinelEnabled := true
	if err := s.management.EnableSentinel(ctx, accessToken, request.SubscriptionID, request.ResourceGroup, request.WorkspaceName, request.Location); err != nil {
		logger.Warn("failed to enable sentinel",
			zap.String("workspace", request.WorkspaceName),
			zap.Error(err))
		sentinelEnabled = false
	}

	logger.Info("workspace created",
		zap.String("workspace", request.WorkspaceName),
		zap.String("resourceGroup", request.ResourceGroup),
		zap.Bool("sentinelEnabled", sentinelEnabled),
	)
	metrics.WorkspaceCreation.WithLabelValues("success").Inc()

	return &entities.Workspace{
		SubscriptionID:  request.SubscriptionID,
		ResourceGroup:   request.ResourceGroup,
		WorkspaceName:   request.WorkspaceName,
		WorkspaceID:     workspaceID,
		Location:        request.Location,
		SentinelEnabled: sentinelEnabled,
	}, nil
}

// DeployInfo computes the "Deploy to Azure" launch URLs with the template
// parameters pre-filled. Pure computation, no I/O.
func (s *OnboardingService) DeployInfo(query *dtos.DeployURLQuery) (*entities.DeployInfo, error) {
	paramsObj := map[string]map[string]string{
		"workspaceName":  {"value": query.WorkspaceName},
		"customerApiKey": {"value": query.APIKey},
		"saasEndpoint":   {"value": s.config.SaaSEndpoint},
	}
	if query.TenantID != "" {
		paramsObj["tenantId"] = map[string]string{"value": query.TenantID}
	}
	if query.Location != "" {
		paramsObj["location"] = map[string]string{"value": query.Location}
	}

	paramsJSON, err := json.Marshal(paramsObj)
	if err != nil {
		return nil, err
	}

	encodedTemplate := url.QueryEscape(s.config.DeployTemplateURL)
	encodedParams := url.QueryEscape(string(paramsJSON))

	return &entities.DeployInfo{
		DeployURL: fmt.Sprintf(
			"https://portal.azure.com/#create/Microsoft.Template/uri/%s/~/%s",
			encodedTemplate, encodedParams,
		),
		SimpleDeployURL: fmt.Sprintf(
			"https://portal.azure.com/#create/Microsoft.Template/uri/%s",
			encodedTemplate,
		),
		TemplateURL: s.config.DeployTemplateURL,
		Parameters: entities.DeployParameters{
			WorkspaceName:  query.WorkspaceName,
			TenantID:       query.TenantID,
			ResourceGroup:  query.ResourceGroup,
			CustomerAPIKey: query.APIKey,
			SaaSEndpoint:   s.config.SaaSEndpoint,
			Location:       query.Location,
		},
	}, nil
}

func (s *OnboardingService) WorkspaceTemplateInfo() *entities.TemplateInfo {
	encodedTemplate := url.QueryEscape(s.config.WorkspaceTemplateURL)
	return &entities.TemplateInfo{
		DeployURL:   "https://portal.azure.com/#create/Microsoft.Template/uri/" + encodedTemplate,
		TemplateURL: s.config.WorkspaceTemplateURL,
		Description: "Creates a Log Analytics Workspace with Microsoft Sentinel enabled",
	}
}

// CreateAutomationRule registers the incident-triggered automation rule that
// runs the customer's deployed playbook. The role grant for the Sentinel
// service principal is attempted first but tolerated on failure: the role may
// already exist or have been granted manually.
func (s *OnboardingService) CreateAutomationRule(ctx context.Context, accessToken string, request *dtos.CreateAutomationRuleRequest) (*entities.AutomationRuleResult, error) {
	assignmentName := uuid.New().String()
	if err := s.management.GrantAutomationRole(ctx, accessToken, request.SubscriptionID, request.ResourceGroup, assignmentName); err != nil {
		logger.Warn("failed to grant automation role", zap.Error(err))
	}

	suffix, err := randomToken(8)
	if err != nil {
		return nil, err
	}
	ruleName := "SOC-T0-Auto-Analyze-" + suffix

	err = s.management.CreateAutomationRule(ctx, accessToken, azure.AutomationRuleSpec{
		SubscriptionID:     request.SubscriptionID,
		ResourceGroup:      request.ResourceGroup,
		WorkspaceName:      request.WorkspaceName,
		RuleName:           ruleName,
		DisplayName:        "SOC T0 SaaS - Auto Analyze All Incidents",
		LogicAppResourceID: request.LogicAppResourceID,
		TenantID:           request.TenantID,
	})
	if err != nil {
		logger.Error("failed to create automation rule", zap.String("rule", ruleName), zap.Error(err))
		metrics.AutomationRule.WithLabelValues("error").Inc()
		return nil, azureError(err, "Failed to create automation rule")
	}

	logger.Info("automation rule created", zap.String("rule", ruleName))
	metrics.AutomationRule.WithLabelValues("success").Inc()

	return &entities.AutomationRuleResult{
		AutomationRuleName: ruleName,
		Status:             "created",
		Message:            "Automation rule created successfully. Incidents will now be automatically analyzed by SOC T0 SaaS.",
	}, nil
}

func (s *OnboardingService) recordAudit(customerID string, eventType entities.AuditEventType, details map[string]any) {
	s.taskManager.AddTask(func() {
		err := s.auditRepo.CreateAuditEvent(&entities.AuditEvent{
			ID:         uuid.New(),
			CustomerID: customerID,
			EventType:  eventType,
			Details:    details,
		})
		if err != nil {
			logger.Error("failed to record audit event",
				zap.String("customerId", customerID),
				zap.String("eventType", string(eventType)),
				zap.Error(err))
		}
	})
}

// azureError maps a management API failure to a 400 with the upstream body
// attached, matching what the wizard surfaces to the operator.
func azureError(err error, prefix string) error {
	var apiErr *azure.APIError
	if errors.As(err, &apiErr) {
		return NewError(http.StatusBadRequest,
			fmt.Sprintf("%s (HTTP %d): %s", prefix, apiErr.StatusCode, apiErr.Body))
	}
	return NewError(http.StatusBadGateway, fmt.Sprintf("%s: %s", prefix, err))
}
