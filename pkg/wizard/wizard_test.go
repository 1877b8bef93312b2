package wizard

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soctierzero/soc-onboarding/pkg/api/dtos"
	"github.com/soctierzero/soc-onboarding/pkg/domain/entities"
	"github.com/soctierzero/soc-onboarding/pkg/identity"
)

type fakeGateway struct {
	mu sync.Mutex

	status         *entities.CustomerStatus
	statusErr      error
	workspaceList  *entities.WorkspaceList
	subscriptions  []entities.Subscription
	regions        []entities.Region
	created        *entities.Workspace
	createErr      error
	completeResult *entities.OnboardingResult
	completeErr    error
	regenResult    *entities.OnboardingResult
	deployInfo     *entities.DeployInfo
	deployErr      error
	ruleResult     *entities.AutomationRuleResult
	ruleErr        error
	ruleBlock      chan struct{}

	completeCalls int
	ruleCalls     int
	lastComplete  *dtos.OnboardingCompleteRequest
	lastCreate    *dtos.CreateWorkspaceRequest
	lastRule      *dtos.CreateAutomationRuleRequest
}

func (g *fakeGateway) CustomerStatus(_ context.Context, _ string) (*entities.CustomerStatus, error) {
	return g.status, g.statusErr
}

func (g *fakeGateway) RegenerateAPIKey(_ context.Context, _ string) (*entities.OnboardingResult, error) {
	return g.regenResult, nil
}

func (g *fakeGateway) ListWorkspaces(_ context.Context, _ string) (*entities.WorkspaceList, error) {
	return g.workspaceList, nil
}

func (g *fakeGateway) ListSubscriptions(_ context.Context, _ string) ([]entities.Subscription, error) {
	return g.subscriptions, nil
}

func (g *fakeGateway) ListRegions(_ context.Context) ([]entities.Region, error) {
	return g.regions, nil
}

func (g *fakeGateway) CreateWorkspace(_ context.Context, _ string, request *dtos.CreateWorkspaceRequest) (*entities.Workspace, error) {
	g.mu.Lock()
	g.lastCreate = request
	g.mu.Unlock()
	return g.created, g.createErr
}

func (g *fakeGateway) WorkspaceTemplateURL(_ context.Context) (*entities.TemplateInfo, error) {
	return &entities.TemplateInfo{}, nil
}

func (g *fakeGateway) CompleteOnboarding(_ context.Context, request *dtos.OnboardingCompleteRequest) (*entities.OnboardingResult, error) {
	g.mu.Lock()
	g.completeCalls++
	g.lastComplete = request
	g.mu.Unlock()
	return g.completeResult, g.completeErr
}

func (g *fakeGateway) DeployInfo(_ context.Context, _ *dtos.DeployURLQuery) (*entities.DeployInfo, error) {
	return g.deployInfo, g.deployErr
}

func (g *fakeGateway) CreateAutomationRule(_ context.Context, _ string, request *dtos.CreateAutomationRuleRequest) (*entities.AutomationRuleResult, error) {
	if g.ruleBlock != nil {
		<-g.ruleBlock
	}
	g.mu.Lock()
	g.ruleCalls++
	g.lastRule = request
	g.mu.Unlock()
	return g.ruleResult, g.ruleErr
}

func (g *fakeGateway) completed() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.completeCalls
}

func (g *fakeGateway) ruled() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.ruleCalls
}

type fakeTokens struct {
	mu    sync.Mutex
	token string
	err   error
	calls int
}

func (t *fakeTokens) AcquireToken(_ context.Context) (string, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.calls++
	return t.token, t.err
}

func (t *fakeTokens) acquired() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.calls
}

type fakeResources struct {
	mu       sync.Mutex
	exists   bool
	err      error
	calls    int
	lastName string
}

func (r *fakeResources) LogicAppExists(_ context.Context, _, _, _, name string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++
	r.lastName = name
	return r.exists, r.err
}

func (r *fakeResources) polled() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls
}

func (r *fakeResources) polledName() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lastName
}

func enabledWorkspace() entities.Workspace {
	return entities.Workspace{
		SubscriptionID:  "sub-1",
		ResourceGroup:   "rg-1",
		WorkspaceName:   "ws-1",
		WorkspaceID:     "/subscriptions/sub-1/resourceGroups/rg-1/providers/Microsoft.OperationalInsights/workspaces/ws-1",
		Location:        "eastus",
		SentinelEnabled: true,
	}
}

func TestSignedInAdvancesToWorkspace(t *testing.T) {
	gw := &fakeGateway{status: &entities.CustomerStatus{Exists: false}}
	m := NewMachine(gw, &fakeTokens{token: "tok"}, &fakeResources{})

	require.NoError(t, m.SignedIn(context.Background(), "tenant-1"))

	state := m.State()
	assert.Equal(t, StepWorkspace, state.Step)
	assert.Equal(t, "tenant-1", state.TenantID)
	require.NotNil(t, state.Customer)
	assert.False(t, state.Customer.Exists)
}

func TestSignedInTokenFailureStaysOnConnect(t *testing.T) {
	gw := &fakeGateway{status: &entities.CustomerStatus{}}
	m := NewMachine(gw, &fakeTokens{err: errors.New("AADSTS70008: token expired")}, &fakeResources{})

	err := m.SignedIn(context.Background(), "tenant-1")
	require.Error(t, err)
	assert.Equal(t, StepConnect, m.State().Step)
}

func TestTransientTokenFailureKeepsStep(t *testing.T) {
	networkErr := fmt.Errorf("silent refresh failed: %w",
		errors.New("oauth2: cannot fetch token: Post \"https://login.microsoftonline.com/organizations/oauth2/v2.0/token\": dial tcp: connection refused"))
	gw := &fakeGateway{}
	m := NewMachine(gw, &fakeTokens{err: networkErr}, &fakeResources{})
	m.state = State{Step: StepWorkspace, TenantID: "tenant-1", Customer: &entities.CustomerStatus{}}

	err := m.LoadWorkspaces(context.Background())
	require.Error(t, err)
	assert.Equal(t, StepWorkspace, m.State().Step, "a dropped connection is retried in place")
}

func TestLostAccountRoutesBackToConnect(t *testing.T) {
	gw := &fakeGateway{}
	m := NewMachine(gw, &fakeTokens{err: identity.ErrNoAccount}, &fakeResources{})
	m.state = State{Step: StepWorkspace, TenantID: "tenant-1", Customer: &entities.CustomerStatus{}}

	err := m.LoadWorkspaces(context.Background())
	require.Error(t, err)
	assert.Equal(t, StepConnect, m.State().Step)
}

func TestSelectWorkspaceSentinelDisabledRefused(t *testing.T) {
	gw := &fakeGateway{}
	m := NewMachine(gw, &fakeTokens{token: "tok"}, &fakeResources{})
	m.state = State{Step: StepWorkspace, TenantID: "tenant-1", Customer: &entities.CustomerStatus{}}

	workspace := enabledWorkspace()
	workspace.SentinelEnabled = false

	err := m.SelectWorkspace(context.Background(), workspace)
	require.Error(t, err)
	assert.Equal(t, StepWorkspace, m.State().Step)
	assert.Zero(t, gw.completed(), "no network call for an ineligible workspace")
}

func TestSelectWorkspaceNewCustomer(t *testing.T) {
	gw := &fakeGateway{
		completeResult: &entities.OnboardingResult{
			CustomerID: "cust-1",
			APIKey:     "soc_abc",
			Message:    "saved",
		},
	}
	m := NewMachine(gw, &fakeTokens{token: "tok"}, &fakeResources{})
	m.state = State{Step: StepWorkspace, TenantID: "tenant-1", Customer: &entities.CustomerStatus{Exists: false}}

	require.NoError(t, m.SelectWorkspace(context.Background(), enabledWorkspace()))

	state := m.State()
	assert.Equal(t, StepAPIKey, state.Step)
	require.NotNil(t, state.Onboarding)
	assert.Equal(t, "soc_abc", state.Onboarding.APIKey)
	assert.Equal(t, 1, gw.completed())
	assert.Equal(t, "tenant-1", gw.lastComplete.TenantID)
	assert.Equal(t, "ws-1", gw.lastComplete.WorkspaceName)
}

func TestSelectWorkspaceExistingCustomerNeedsFreshKey(t *testing.T) {
	gw := &fakeGateway{}
	m := NewMachine(gw, &fakeTokens{token: "tok"}, &fakeResources{})
	m.state = State{Step: StepWorkspace, TenantID: "tenant-1", Customer: &entities.CustomerStatus{Exists: true}}

	err := m.SelectWorkspace(context.Background(), enabledWorkspace())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Regenerate an API key")
	assert.Equal(t, StepWorkspace, m.State().Step)
	assert.Zero(t, gw.completed())
}

func TestSelectWorkspaceExistingCustomerWithRegeneratedKey(t *testing.T) {
	gw := &fakeGateway{
		regenResult: &entities.OnboardingResult{CustomerID: "cust-1", APIKey: "soc_new"},
		deployInfo:  &entities.DeployInfo{DeployURL: "https://portal.example/deploy"},
	}
	m := NewMachine(gw, &fakeTokens{token: "tok"}, &fakeResources{})
	m.state = State{Step: StepWorkspace, TenantID: "tenant-1", Customer: &entities.CustomerStatus{Exists: true}}

	require.NoError(t, m.RegenerateAPIKey(context.Background()))
	require.NoError(t, m.SelectWorkspace(context.Background(), enabledWorkspace()))

	state := m.State()
	assert.Equal(t, StepDeploy, state.Step)
	require.NotNil(t, state.Deploy, "deploy step is never entered without deploy info")
	assert.Zero(t, gw.completed(), "existing customers are not onboarded again")
}

func TestRegenerateAPIKeyRequiresExistingCustomer(t *testing.T) {
	gw := &fakeGateway{regenResult: &entities.OnboardingResult{APIKey: "soc_new"}}
	m := NewMachine(gw, &fakeTokens{token: "tok"}, &fakeResources{})
	m.state = State{Step: StepWorkspace, TenantID: "tenant-1", Customer: &entities.CustomerStatus{Exists: false}}

	require.Error(t, m.RegenerateAPIKey(context.Background()))
	assert.Nil(t, m.State().Onboarding)
}

func TestStartCreateWorkspaceLoadsFormData(t *testing.T) {
	gw := &fakeGateway{
		subscriptions: []entities.Subscription{{SubscriptionID: "sub-1", DisplayName: "Pay-As-You-Go"}},
		regions:       []entities.Region{{Name: "eastus", DisplayName: "East US"}},
	}
	m := NewMachine(gw, &fakeTokens{token: "tok"}, &fakeResources{})
	m.state = State{Step: StepWorkspace, TenantID: "tenant-1", Customer: &entities.CustomerStatus{}}

	require.NoError(t, m.StartCreateWorkspace(context.Background()))

	state := m.State()
	assert.Equal(t, StepCreateWorkspace, state.Step)
	assert.Len(t, state.Subscriptions, 1)
	assert.Len(t, state.Regions, 1)
}

func TestSubmitCreateWorkspaceRoundTrip(t *testing.T) {
	gw := &fakeGateway{
		created: &entities.Workspace{
			WorkspaceID:     "/subscriptions/sub-1/resourceGroups/rg-new/providers/Microsoft.OperationalInsights/workspaces/ws-new",
			SentinelEnabled: true,
		},
		completeResult: &entities.OnboardingResult{CustomerID: "cust-1", APIKey: "soc_abc"},
	}
	m := NewMachine(gw, &fakeTokens{token: "tok"}, &fakeResources{})
	m.state = State{Step: StepCreateWorkspace, TenantID: "tenant-1", Customer: &entities.CustomerStatus{}}

	request := &dtos.CreateWorkspaceRequest{
		SubscriptionID: "sub-1",
		ResourceGroup:  "rg-new",
		WorkspaceName:  "ws-new",
		Location:       "westeurope",
	}
	require.NoError(t, m.SubmitCreateWorkspace(context.Background(), request))

	// The provisioning parameters must flow unchanged into the selected
	// workspace and the completion call.
	state := m.State()
	require.NotNil(t, state.Selected)
	assert.Equal(t, "sub-1", state.Selected.SubscriptionID)
	assert.Equal(t, "rg-new", state.Selected.ResourceGroup)
	assert.Equal(t, "ws-new", state.Selected.WorkspaceName)
	assert.Equal(t, "westeurope", state.Selected.Location)

	require.NotNil(t, gw.lastComplete)
	assert.Equal(t, "sub-1", gw.lastComplete.SubscriptionID)
	assert.Equal(t, "rg-new", gw.lastComplete.ResourceGroup)
	assert.Equal(t, "ws-new", gw.lastComplete.WorkspaceName)
	assert.Equal(t, StepAPIKey, state.Step)
}

func TestSubmitCreateWorkspaceValidatesBeforeCalling(t *testing.T) {
	gw := &fakeGateway{}
	tokens := &fakeTokens{token: "tok"}
	m := NewMachine(gw, tokens, &fakeResources{})
	m.state = State{Step: StepCreateWorkspace, TenantID: "tenant-1", Customer: &entities.CustomerStatus{}}

	err := m.SubmitCreateWorkspace(context.Background(), &dtos.CreateWorkspaceRequest{
		SubscriptionID: "sub-1",
		WorkspaceName:  "ws-new",
		Location:       "eastus",
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "resource_group")
	assert.Zero(t, tokens.acquired(), "validation failures never reach the network")
}

func TestBackOnlyFromCreateWorkspace(t *testing.T) {
	m := NewMachine(&fakeGateway{}, &fakeTokens{token: "tok"}, &fakeResources{})

	require.Error(t, m.Back())

	m.state.Step = StepCreateWorkspace
	require.NoError(t, m.Back())
	assert.Equal(t, StepWorkspace, m.State().Step)
}

func TestProceedToDeployRequiresAPIKeyStep(t *testing.T) {
	gw := &fakeGateway{deployInfo: &entities.DeployInfo{DeployURL: "https://portal.example/deploy"}}
	m := NewMachine(gw, &fakeTokens{token: "tok"}, &fakeResources{})
	m.state = State{Step: StepWorkspace, TenantID: "tenant-1"}

	require.Error(t, m.ProceedToDeploy(context.Background()))

	selected := enabledWorkspace()
	m.state = State{
		Step:       StepAPIKey,
		TenantID:   "tenant-1",
		Selected:   &selected,
		Onboarding: &entities.OnboardingResult{APIKey: "soc_abc"},
	}
	require.NoError(t, m.ProceedToDeploy(context.Background()))

	state := m.State()
	assert.Equal(t, StepDeploy, state.Step)
	require.NotNil(t, state.Deploy)
}

func TestLoadWorkspacesCachesList(t *testing.T) {
	gw := &fakeGateway{workspaceList: &entities.WorkspaceList{Workspaces: []entities.Workspace{enabledWorkspace()}}}
	tokens := &fakeTokens{token: "tok"}
	m := NewMachine(gw, tokens, &fakeResources{})
	m.state = State{Step: StepWorkspace, TenantID: "tenant-1"}

	require.NoError(t, m.LoadWorkspaces(context.Background()))
	require.NoError(t, m.LoadWorkspaces(context.Background()))

	assert.Equal(t, 1, tokens.acquired(), "cached list is not refetched")
	assert.Len(t, m.State().Workspaces, 1)
}
