// Command wizard is the terminal front end for the onboarding flow. It signs
// a tenant administrator in through the browser, then walks the onboarding
// state machine step by step.
package main

import (
	"bufio"
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/soctierzero/soc-onboarding/internal/logger"
	"github.com/soctierzero/soc-onboarding/pkg/api/dtos"
	"github.com/soctierzero/soc-onboarding/pkg/gateway"
	"github.com/soctierzero/soc-onboarding/pkg/identity"
	"github.com/soctierzero/soc-onboarding/pkg/infrastructure/azure"
	"github.com/soctierzero/soc-onboarding/pkg/wizard"
)

const defaultRedirectAddr = "localhost:8400"

func main() {
	logger.Init()

	if err := godotenv.Load(".env"); err != nil {
		logger.Infof("No .env file found, using environment variables: %s", err)
	}

	backendURL := os.Getenv("BACKEND_URL")
	if backendURL == "" {
		backendURL = "http://localhost:8000"
	}
	redirectAddr := os.Getenv("REDIRECT_ADDR")
	if redirectAddr == "" {
		redirectAddr = defaultRedirectAddr
	}

	ctx := context.Background()

	idClient, err := identity.NewClient(ctx, identity.Config{
		ClientID:     os.Getenv("MULTI_TENANT_APP_CLIENT_ID"),
		ClientSecret: os.Getenv("MULTI_TENANT_APP_CLIENT_SECRET"),
		RedirectURL:  fmt.Sprintf("http://%s/callback", redirectAddr),
		Authority:    os.Getenv("AUTHORITY_URL"),
	})
	if err != nil {
		logger.Fatal("Failed to initialize identity client", zap.Error(err))
	}

	machineOpts := []wizard.Option{}
	if name := os.Getenv("LOGIC_APP_NAME"); name != "" {
		machineOpts = append(machineOpts, wizard.WithLogicAppName(name))
	}
	machine := wizard.NewMachine(
		gateway.NewClient(backendURL),
		idClient,
		azure.NewClient(),
		machineOpts...,
	)

	account, err := signIn(ctx, idClient, redirectAddr)
	if err != nil {
		logger.Fatal("Sign-in failed", zap.Error(err))
	}
	fmt.Printf("Signed in as %s (tenant %s)\n", account.Username, account.TenantID)

	if err := machine.SignedIn(ctx, account.TenantID); err != nil {
		logger.Fatal("Failed to start onboarding", zap.Error(err))
	}

	run(ctx, machine, bufio.NewScanner(os.Stdin))
}

// signIn prints the consent URL, waits for the browser redirect on a local
// listener and completes the code exchange.
func signIn(ctx context.Context, idClient *identity.Client, addr string) (*identity.Account, error) {
	state, err := randomState()
	if err != nil {
		return nil, err
	}

	codes := make(chan string, 1)
	mux := http.NewServeMux()
	mux.HandleFunc("/callback", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("state") != state {
			http.Error(w, "state mismatch", http.StatusBadRequest)
			return
		}
		fmt.Fprintln(w, "Signed in. You can close this tab and return to the terminal.")
		codes <- r.URL.Query().Get("code")
	})
	server := &http.Server{Addr: addr, Handler: mux}
	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("redirect listener failed", zap.Error(err))
		}
	}()
	defer server.Shutdown(ctx)

	fmt.Println("Open this URL in your browser to sign in:")
	fmt.Println(idClient.SignInURL(state))

	select {
	case code := <-codes:
		return idClient.CompleteSignIn(ctx, code)
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func run(ctx context.Context, machine *wizard.Machine, input *bufio.Scanner) {
	for {
		state := machine.State()
		switch state.Step {
		case wizard.StepConnect:
			fmt.Println("Session expired. Restart the wizard to sign in again.")
			return
		case wizard.StepWorkspace:
			stepWorkspace(ctx, machine, input)
		case wizard.StepCreateWorkspace:
			stepCreateWorkspace(ctx, machine, input)
		case wizard.StepAPIKey:
			stepAPIKey(ctx, machine, input)
		case wizard.StepDeploy:
			stepDeploy(ctx, machine, input)
			return
		}
	}
}

func stepWorkspace(ctx context.Context, machine *wizard.Machine, input *bufio.Scanner) {
	if err := machine.LoadWorkspaces(ctx); err != nil {
		fmt.Println("Error:", err)
		return
	}
	state := machine.State()

	if state.Customer != nil && state.Customer.Exists && state.Onboarding == nil {
		fmt.Println("This tenant is already onboarded. A new API key is required to continue.")
		if answer := prompt(input, "Regenerate the API key? Your old key will stop working [y/N]: "); strings.EqualFold(answer, "y") {
			if err := machine.RegenerateAPIKey(ctx); err != nil {
				fmt.Println("Error:", err)
				return
			}
			fmt.Println(machine.State().Onboarding.Message)
			fmt.Println("API key:", machine.State().Onboarding.APIKey)
		} else {
			return
		}
	}

	if len(state.Workspaces) == 0 {
		fmt.Println("No Sentinel workspaces found.")
		if answer := prompt(input, "Create one now? [y/N]: "); strings.EqualFold(answer, "y") {
			if err := machine.StartCreateWorkspace(ctx); err != nil {
				fmt.Println("Error:", err)
			}
			return
		}
		if info, err := machine.WorkspaceTemplate(ctx); err == nil {
			fmt.Println("Alternatively, deploy a workspace manually:", info.DeployURL)
		}
		return
	}

	fmt.Println("Workspaces:")
	for i, workspace := range state.Workspaces {
		marker := " "
		if !workspace.SentinelEnabled {
			marker = "!"
		}
		fmt.Printf("  %d%s %s (%s / %s)\n", i+1, marker, workspace.WorkspaceName, workspace.SubscriptionName, workspace.ResourceGroup)
	}
	answer := prompt(input, "Select a workspace by number, or 'c' to create a new one: ")
	if strings.EqualFold(answer, "c") {
		if err := machine.StartCreateWorkspace(ctx); err != nil {
			fmt.Println("Error:", err)
		}
		return
	}
	index, err := strconv.Atoi(answer)
	if err != nil || index < 1 || index > len(state.Workspaces) {
		fmt.Println("Invalid selection.")
		return
	}
	if err := machine.SelectWorkspace(ctx, state.Workspaces[index-1]); err != nil {
		fmt.Println("Error:", err)
	}
}

func stepCreateWorkspace(ctx context.Context, machine *wizard.Machine, input *bufio.Scanner) {
	state := machine.State()

	fmt.Println("Subscriptions:")
	for i, subscription := range state.Subscriptions {
		fmt.Printf("  %d. %s (%s)\n", i+1, subscription.DisplayName, subscription.SubscriptionID)
	}
	answer := prompt(input, "Subscription number, or 'b' to go back: ")
	if strings.EqualFold(answer, "b") {
		if err := machine.Back(); err != nil {
			fmt.Println("Error:", err)
		}
		return
	}
	index, err := strconv.Atoi(answer)
	if err != nil || index < 1 || index > len(state.Subscriptions) {
		fmt.Println("Invalid selection.")
		return
	}

	fmt.Println("Regions:")
	for _, region := range state.Regions {
		fmt.Printf("  %s (%s)\n", region.Name, region.DisplayName)
	}

	request := &dtos.CreateWorkspaceRequest{
		SubscriptionID: state.Subscriptions[index-1].SubscriptionID,
		Location:       prompt(input, "Region: "),
		ResourceGroup:  prompt(input, "Resource group name: "),
		WorkspaceName:  prompt(input, "Workspace name: "),
	}
	if err := machine.SubmitCreateWorkspace(ctx, request); err != nil {
		fmt.Println("Error:", err)
	}
}

func stepAPIKey(ctx context.Context, machine *wizard.Machine, input *bufio.Scanner) {
	state := machine.State()
	fmt.Println(state.Onboarding.Message)
	fmt.Println("API key:", state.Onboarding.APIKey)
	prompt(input, "Press enter once you have saved the key to continue to deployment.")
	if err := machine.ProceedToDeploy(ctx); err != nil {
		fmt.Println("Error:", err)
	}
}

func stepDeploy(ctx context.Context, machine *wizard.Machine, input *bufio.Scanner) {
	state := machine.State()
	fmt.Println("Open this URL to deploy the automation template into your subscription:")
	fmt.Println(state.Deploy.DeployURL)
	fmt.Println("Waiting for the deployment to finish (checked every 10 seconds)...")

	watchCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	done := make(chan struct{})
	go func() {
		machine.WatchDeployment(watchCtx)
		close(done)
	}()
	<-done

	state = machine.State()
	if state.AutomationRule == nil && state.DeploymentComplete {
		fmt.Println("Deployment detected.")
		for machine.State().AutomationRule == nil {
			if answer := prompt(input, "Create the automation rule now? [Y/n]: "); strings.EqualFold(answer, "n") {
				return
			}
			if err := machine.CreateAutomationRule(ctx); err != nil {
				fmt.Println("Error:", err)
				continue
			}
		}
	}
	if rule := machine.State().AutomationRule; rule != nil {
		fmt.Printf("Automation rule %s is in place. Onboarding complete.\n", rule.AutomationRuleName)
	}
}

func prompt(input *bufio.Scanner, label string) string {
	fmt.Print(label)
	if !input.Scan() {
		return ""
	}
	return strings.TrimSpace(input.Text())
}

func randomState() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
