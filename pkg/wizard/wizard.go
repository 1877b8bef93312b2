// Package wizard drives the customer onboarding flow: sign-in, workspace
// selection or provisioning, API key issuance and the deployment handoff.
// The machine owns all sequencing; the gateway and identity adapters stay
// free of retry or ordering logic.
package wizard

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/soctierzero/soc-onboarding/internal/logger"
	"github.com/soctierzero/soc-onboarding/pkg/api/dtos"
	"github.com/soctierzero/soc-onboarding/pkg/domain/entities"
	"github.com/soctierzero/soc-onboarding/pkg/identity"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

type Step string

const (
	StepConnect         Step = "connect"
	StepWorkspace       Step = "workspace"
	StepCreateWorkspace Step = "create_workspace"
	StepAPIKey          Step = "api_key"
	StepDeploy          Step = "deploy"
)

// LogicAppName is the well-known workflow name the customer's template
// deployment creates. Its existence marks the deployment as finished.
const LogicAppName = "soc-t0-auto-analyze"

// DefaultPollInterval is how often the deployment watcher checks for the
// deployed workflow.
const DefaultPollInterval = 10 * time.Second

// Gateway is the backend surface the wizard drives.
type Gateway interface {
	CustomerStatus(ctx context.Context, tenantID string) (*entities.CustomerStatus, error)
	RegenerateAPIKey(ctx context.Context, tenantID string) (*entities.OnboardingResult, error)
	ListWorkspaces(ctx context.Context, accessToken string) (*entities.WorkspaceList, error)
	ListSubscriptions(ctx context.Context, accessToken string) ([]entities.Subscription, error)
	ListRegions(ctx context.Context) ([]entities.Region, error)
	CreateWorkspace(ctx context.Context, accessToken string, request *dtos.CreateWorkspaceRequest) (*entities.Workspace, error)
	WorkspaceTemplateURL(ctx context.Context) (*entities.TemplateInfo, error)
	CompleteOnboarding(ctx context.Context, request *dtos.OnboardingCompleteRequest) (*entities.OnboardingResult, error)
	DeployInfo(ctx context.Context, query *dtos.DeployURLQuery) (*entities.DeployInfo, error)
	CreateAutomationRule(ctx context.Context, accessToken string, request *dtos.CreateAutomationRuleRequest) (*entities.AutomationRuleResult, error)
}

// TokenProvider hands out a fresh management token per operation. Wizard
// sessions outlive token lifetimes, so nothing in the machine caches one.
type TokenProvider interface {
	AcquireToken(ctx context.Context) (string, error)
}

// ResourceChecker detects the customer's deployed workflow.
type ResourceChecker interface {
	LogicAppExists(ctx context.Context, token, subscriptionID, resourceGroup, name string) (bool, error)
}

// State is a snapshot of the wizard session.
type State struct {
	Step     Step
	TenantID string

	Customer      *entities.CustomerStatus
	Workspaces    []entities.Workspace
	WorkspaceList *entities.WorkspaceList
	Subscriptions []entities.Subscription
	Regions       []entities.Region

	Selected   *entities.Workspace
	Onboarding *entities.OnboardingResult
	Deploy     *entities.DeployInfo

	DeploymentComplete bool
	AutomationRule     *entities.AutomationRuleResult
}

type Machine struct {
	gateway   Gateway
	tokens    TokenProvider
	resources ResourceChecker

	pollInterval time.Duration
	logicAppName string

	mu           sync.Mutex
	state        State
	ruleInFlight bool
}

type Option func(*Machine)

func WithPollInterval(interval time.Duration) Option {
	return func(m *Machine) { m.pollInterval = interval }
}

func WithLogicAppName(name string) Option {
	return func(m *Machine) { m.logicAppName = name }
}

func NewMachine(gateway Gateway, tokens TokenProvider, resources ResourceChecker, opts ...Option) *Machine {
	machine := &Machine{
		gateway:      gateway,
		tokens:       tokens,
		resources:    resources,
		pollInterval: DefaultPollInterval,
		logicAppName: LogicAppName,
		state:        State{Step: StepConnect},
	}
	for _, opt := range opts {
		opt(machine)
	}
	return machine
}

// State returns a snapshot of the session.
func (m *Machine) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// acquireToken gets a fresh token for a user-initiated action. A failure
// that needs a new interactive sign-in routes the session back to Connect.
func (m *Machine) acquireToken(ctx context.Context) (string, error) {
	token, err := m.tokens.AcquireToken(ctx)
	if err == nil {
		return token, nil
	}
	if identity.NeedsInteractiveSignIn(err) {
		m.mu.Lock()
		m.state.Step = StepConnect
		m.mu.Unlock()
		return "", fmt.Errorf("session expired, please sign in again: %w", err)
	}
	return "", err
}

// SignedIn completes the Connect step for an authenticated tenant: it
// verifies a token can be acquired silently and checks whether the tenant
// has onboarded before. Failure keeps the session on Connect.
func (m *Machine) SignedIn(ctx context.Context, tenantID string) error {
	m.mu.Lock()
	if m.state.Step != StepConnect {
		m.mu.Unlock()
		return fmt.Errorf("sign-in is only valid on the connect step")
	}
	m.mu.Unlock()

	if _, err := m.tokens.AcquireToken(ctx); err != nil {
		return fmt.Errorf("failed to acquire token: %w", err)
	}

	status, err := m.gateway.CustomerStatus(ctx, tenantID)
	if err != nil {
		return err
	}

	m.mu.Lock()
	m.state.TenantID = tenantID
	m.state.Customer = status
	m.state.Step = StepWorkspace
	m.mu.Unlock()
	return nil
}

// LoadWorkspaces fetches the candidate workspace list if it is not cached
// yet.
func (m *Machine) LoadWorkspaces(ctx context.Context) error {
	m.mu.Lock()
	if m.state.Step != StepWorkspace {
		m.mu.Unlock()
		return fmt.Errorf("workspaces are only loaded on the workspace step")
	}
	if m.state.WorkspaceList != nil {
		m.mu.Unlock()
		return nil
	}
	m.mu.Unlock()

	token, err := m.acquireToken(ctx)
	if err != nil {
		return err
	}
	list, err := m.gateway.ListWorkspaces(ctx, token)
	if err != nil {
		return err
	}

	m.mu.Lock()
	m.state.WorkspaceList = list
	m.state.Workspaces = list.Workspaces
	m.mu.Unlock()
	return nil
}

// StartCreateWorkspace branches into the direct-creation form and loads
// subscriptions and regions concurrently. Both must be present before the
// form is usable, neither depends on the other.
func (m *Machine) StartCreateWorkspace(ctx context.Context) error {
	m.mu.Lock()
	if m.state.Step != StepWorkspace {
		m.mu.Unlock()
		return fmt.Errorf("workspace creation starts from the workspace step")
	}
	m.mu.Unlock()

	token, err := m.acquireToken(ctx)
	if err != nil {
		return err
	}

	var (
		subscriptions []entities.Subscription
		regions       []entities.Region
	)
	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		var err error
		subscriptions, err = m.gateway.ListSubscriptions(groupCtx, token)
		return err
	})
	group.Go(func() error {
		var err error
		regions, err = m.gateway.ListRegions(groupCtx)
		return err
	})
	if err := group.Wait(); err != nil {
		return err
	}

	m.mu.Lock()
	m.state.Subscriptions = subscriptions
	m.state.Regions = regions
	m.state.Step = StepCreateWorkspace
	m.mu.Unlock()
	return nil
}

// Back returns from the creation form to workspace selection. No other
// backward transition exists.
func (m *Machine) Back() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state.Step != StepCreateWorkspace {
		return fmt.Errorf("cannot go back from step %q", m.state.Step)
	}
	m.state.Step = StepWorkspace
	return nil
}

// SelectWorkspace picks a workspace and advances the flow. New tenants are
// onboarded against it and move to the API key step; tenants with an
// existing customer record skip straight to deployment, but only with a
// freshly regenerated key in hand.
func (m *Machine) SelectWorkspace(ctx context.Context, workspace entities.Workspace) error {
	m.mu.Lock()
	if m.state.Step != StepWorkspace {
		m.mu.Unlock()
		return fmt.Errorf("workspace selection is only valid on the workspace step")
	}
	if !workspace.SentinelEnabled {
		m.mu.Unlock()
		return errors.New("Sentinel is not enabled on this workspace. Enable it first, then select the workspace.")
	}
	customer := m.state.Customer
	hasKey := m.state.Onboarding != nil
	m.mu.Unlock()

	if customer != nil && customer.Exists {
		if !hasKey {
			return errors.New("A customer already exists for this tenant. Regenerate an API key first; previously issued keys are never shown again.")
		}
		return m.proceedToDeploy(ctx, &workspace)
	}

	return m.completeOnboarding(ctx, &workspace)
}

// completeOnboarding finalizes onboarding for the selected workspace and
// advances to the API key step.
func (m *Machine) completeOnboarding(ctx context.Context, workspace *entities.Workspace) error {
	m.mu.Lock()
	tenantID := m.state.TenantID
	m.mu.Unlock()

	result, err := m.gateway.CompleteOnboarding(ctx, &dtos.OnboardingCompleteRequest{
		TenantID:       tenantID,
		SubscriptionID: workspace.SubscriptionID,
		ResourceGroup:  workspace.ResourceGroup,
		WorkspaceName:  workspace.WorkspaceName,
		WorkspaceID:    workspace.WorkspaceID,
	})
	if err != nil {
		return err
	}

	m.mu.Lock()
	m.state.Selected = workspace
	m.state.Onboarding = result
	m.state.Step = StepAPIKey
	m.mu.Unlock()
	return nil
}

// RegenerateAPIKey rotates the key for an existing customer. The old key is
// invalidated server-side.
func (m *Machine) RegenerateAPIKey(ctx context.Context) error {
	m.mu.Lock()
	customer := m.state.Customer
	tenantID := m.state.TenantID
	m.mu.Unlock()

	if customer == nil || !customer.Exists {
		return errors.New("no existing customer for this tenant")
	}

	result, err := m.gateway.RegenerateAPIKey(ctx, tenantID)
	if err != nil {
		return err
	}

	m.mu.Lock()
	m.state.Onboarding = result
	m.mu.Unlock()
	return nil
}

// SubmitCreateWorkspace provisions a new workspace with the given
// parameters, makes it the selected workspace and continues with
// onboarding completion.
func (m *Machine) SubmitCreateWorkspace(ctx context.Context, request *dtos.CreateWorkspaceRequest) error {
	m.mu.Lock()
	if m.state.Step != StepCreateWorkspace {
		m.mu.Unlock()
		return fmt.Errorf("workspace creation is only valid on the creation step")
	}
	customer := m.state.Customer
	hasKey := m.state.Onboarding != nil
	m.mu.Unlock()

	if err := request.Validate(); err != nil {
		return err
	}

	token, err := m.acquireToken(ctx)
	if err != nil {
		return err
	}
	created, err := m.gateway.CreateWorkspace(ctx, token, request)
	if err != nil {
		return err
	}

	// The selected record must carry exactly the parameters the workspace
	// was provisioned with.
	workspace := entities.Workspace{
		SubscriptionID:  request.SubscriptionID,
		ResourceGroup:   request.ResourceGroup,
		WorkspaceName:   request.WorkspaceName,
		Location:        request.Location,
		WorkspaceID:     created.WorkspaceID,
		SentinelEnabled: created.SentinelEnabled,
	}

	if customer != nil && customer.Exists {
		if !hasKey {
			return errors.New("A customer already exists for this tenant. Regenerate an API key first; previously issued keys are never shown again.")
		}
		return m.proceedToDeploy(ctx, &workspace)
	}
	return m.completeOnboarding(ctx, &workspace)
}

// ProceedToDeploy moves from the API key step to deployment.
func (m *Machine) ProceedToDeploy(ctx context.Context) error {
	m.mu.Lock()
	if m.state.Step != StepAPIKey {
		m.mu.Unlock()
		return fmt.Errorf("deployment starts from the api key step")
	}
	selected := m.state.Selected
	m.mu.Unlock()

	if selected == nil {
		return errors.New("no workspace selected")
	}
	return m.proceedToDeploy(ctx, selected)
}

// proceedToDeploy computes the deployment launch parameters and enters the
// Deploy step. The step is never entered without deploy info in hand.
func (m *Machine) proceedToDeploy(ctx context.Context, workspace *entities.Workspace) error {
	m.mu.Lock()
	onboarding := m.state.Onboarding
	tenantID := m.state.TenantID
	m.mu.Unlock()

	if onboarding == nil || onboarding.APIKey == "" {
		return errors.New("no API key in session")
	}

	info, err := m.gateway.DeployInfo(ctx, &dtos.DeployURLQuery{
		WorkspaceName:  workspace.WorkspaceName,
		ResourceGroup:  workspace.ResourceGroup,
		APIKey:         onboarding.APIKey,
		SubscriptionID: workspace.SubscriptionID,
		Location:       workspace.Location,
		TenantID:       tenantID,
	})
	if err != nil {
		return err
	}

	m.mu.Lock()
	m.state.Selected = workspace
	m.state.Deploy = info
	m.state.Step = StepDeploy
	m.mu.Unlock()
	return nil
}

// WorkspaceTemplate returns the manual workspace-creation template.
func (m *Machine) WorkspaceTemplate(ctx context.Context) (*entities.TemplateInfo, error) {
	return m.gateway.WorkspaceTemplateURL(ctx)
}

// CreateAutomationRule is the manual retry path, available once the
// deployment has been detected and no rule exists yet.
func (m *Machine) CreateAutomationRule(ctx context.Context) error {
	m.mu.Lock()
	if !m.state.DeploymentComplete {
		m.mu.Unlock()
		return errors.New("deployment has not completed yet")
	}
	if m.state.AutomationRule != nil {
		m.mu.Unlock()
		return errors.New("automation rule already created")
	}
	if m.ruleInFlight {
		m.mu.Unlock()
		return errors.New("automation rule creation already in progress")
	}
	m.ruleInFlight = true
	m.mu.Unlock()

	token, err := m.acquireToken(ctx)
	if err != nil {
		m.clearRuleInFlight()
		return err
	}
	if err := m.createRule(ctx, token); err != nil {
		m.clearRuleInFlight()
		return err
	}
	return nil
}

// createRule calls the backend and records the result. The in-flight flag
// stays set on success so no second creation can fire.
func (m *Machine) createRule(ctx context.Context, token string) error {
	m.mu.Lock()
	selected := m.state.Selected
	tenantID := m.state.TenantID
	m.mu.Unlock()

	if selected == nil {
		return errors.New("no workspace selected")
	}

	result, err := m.gateway.CreateAutomationRule(ctx, token, &dtos.CreateAutomationRuleRequest{
		SubscriptionID:     selected.SubscriptionID,
		ResourceGroup:      selected.ResourceGroup,
		WorkspaceName:      selected.WorkspaceName,
		LogicAppResourceID: m.logicAppResourceID(selected),
		TenantID:           tenantID,
	})
	if err != nil {
		return err
	}

	m.mu.Lock()
	m.state.AutomationRule = result
	m.mu.Unlock()
	logger.Info("automation rule created",
		zap.String("rule", result.AutomationRuleName),
		zap.String("workspace", selected.WorkspaceName))
	return nil
}

func (m *Machine) clearRuleInFlight() {
	m.mu.Lock()
	m.ruleInFlight = false
	m.mu.Unlock()
}
