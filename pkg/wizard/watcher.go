package wizard

import (
	"context"
	"time"

	"github.com/soctierzero/soc-onboarding/internal/logger"
	"github.com/soctierzero/soc-onboarding/internal/utils"
	"github.com/soctierzero/soc-onboarding/pkg/domain/entities"
	"go.uber.org/zap"
)

// WatchDeployment polls the management API until the deployed workflow is
// detected or the context is cancelled. It is the single owner of the
// deployment poll; callers scope its context to the Deploy step so exiting
// the step cancels it. Poll failures are logged and swallowed, the next
// tick proceeds.
func (m *Machine) WatchDeployment(ctx context.Context) {
	ticker := time.NewTicker(m.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if m.deploymentSettled() {
				return
			}
			m.pollDeployment(ctx)
		}
	}
}

// deploymentSettled reports whether the watcher has nothing left to do.
func (m *Machine) deploymentSettled() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.DeploymentComplete || m.state.AutomationRule != nil
}

// pollDeployment performs one poll tick. Tokens are reacquired fresh each
// tick because the session can sit on the Deploy step far longer than a
// token lifetime.
func (m *Machine) pollDeployment(ctx context.Context) {
	m.mu.Lock()
	selected := m.state.Selected
	m.mu.Unlock()
	if selected == nil {
		return
	}

	token, err := m.tokens.AcquireToken(ctx)
	if err != nil {
		logger.Warn("deployment poll skipped, token acquisition failed", zap.Error(err))
		return
	}

	exists, err := m.resources.LogicAppExists(ctx, token, selected.SubscriptionID, selected.ResourceGroup, m.logicAppName)
	if err != nil {
		logger.Warn("deployment poll failed", zap.Error(err))
		return
	}
	if !exists {
		return
	}

	// The in-flight flag is set before the creation call starts so a
	// concurrent manual trigger cannot start a second one.
	m.mu.Lock()
	m.state.DeploymentComplete = true
	startRule := m.state.AutomationRule == nil && !m.ruleInFlight
	if startRule {
		m.ruleInFlight = true
	}
	m.mu.Unlock()

	logger.Info("deployment detected",
		zap.String("workspace", selected.WorkspaceName),
		zap.String("resource_group", selected.ResourceGroup))

	if !startRule {
		return
	}

	// Fire and forget: a failure is logged and leaves the manual retry
	// path available.
	go func() {
		if err := m.createRule(context.WithoutCancel(ctx), token); err != nil {
			logger.Warn("automatic automation rule creation failed", zap.Error(err))
			m.clearRuleInFlight()
		}
	}()
}

func (m *Machine) logicAppResourceID(workspace *entities.Workspace) string {
	return utils.LogicAppResourceID(workspace.SubscriptionID, workspace.ResourceGroup, m.logicAppName)
}
