package handlers

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/lestrrat-go/jwx/v2/jwt"
	"github.com/soctierzero/soc-onboarding/internal/logger"
	"github.com/soctierzero/soc-onboarding/pkg/api/dtos"
	"github.com/soctierzero/soc-onboarding/pkg/api/servers"
	"github.com/soctierzero/soc-onboarding/pkg/infrastructure/azure"
	postgresRepositories "github.com/soctierzero/soc-onboarding/pkg/infrastructure/postgres/repositories"
	"github.com/soctierzero/soc-onboarding/pkg/metrics"
	"github.com/soctierzero/soc-onboarding/pkg/services"
	"github.com/soctierzero/soc-onboarding/pkg/statestore"
	"github.com/soctierzero/soc-onboarding/pkg/taskmanager"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
)

const defaultAuthorityURL = "https://login.microsoftonline.com/organizations"

var consentScopes = []string{
	"https://management.azure.com/.default",
	"openid",
	"profile",
	"email",
}

type OnboardingHandler struct {
	Service *services.OnboardingService
	States  statestore.Store

	clientID     string
	clientSecret string
	authorityURL string
}

func NewOnboardingHandler(server *servers.Server) *OnboardingHandler {
	customerRepo := postgresRepositories.NewCustomerRepository(server.PostgresDB)
	auditRepo := postgresRepositories.NewAuditRepository(server.PostgresDB)
	taskManager := taskmanager.NewTaskManager(5, 20)
	management := azure.NewClient()

	var states statestore.Store
	if server.Config.RedisURL != "" {
		redisStates, err := statestore.NewRedisStore(server.Config.RedisURL, statestore.DefaultTTL)
		if err != nil {
			logger.Fatal("failed to connect to redis state store", zap.Error(err))
		}
		states = redisStates
	} else {
		states = statestore.NewMemoryStore(statestore.DefaultTTL)
	}

	authorityURL := server.Config.AuthorityURL
	if authorityURL == "" {
		authorityURL = defaultAuthorityURL
	}

	return &OnboardingHandler{
		Service: services.NewOnboardingService(
			customerRepo,
			auditRepo,
			management,
			taskManager,
			services.Config{
				SaaSEndpoint:         server.Config.SaaSEndpoint,
				DeployTemplateURL:    server.Config.DeployTemplateURL,
				WorkspaceTemplateURL: server.Config.WorkspaceTemplateURL,
			},
		),
		States:       states,
		clientID:     server.Config.ClientID,
		clientSecret: server.Config.ClientSecret,
		authorityURL: authorityURL,
	}
}

func (h *OnboardingHandler) oauthConfig(redirectURI string) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     h.clientID,
		ClientSecret: h.clientSecret,
		RedirectURL:  redirectURI,
		Scopes:       consentScopes,
		Endpoint: oauth2.Endpoint{
			AuthURL:  h.authorityURL + "/oauth2/v2.0/authorize",
			TokenURL: h.authorityURL + "/oauth2/v2.0/token",
		},
	}
}

// GetAuthURL hands the frontend a consent URL plus a one-shot state token.
func (h *OnboardingHandler) GetAuthURL(c *gin.Context) {
	redirectURI := c.Query("redirect_uri")
	if redirectURI == "" {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "redirect_uri is required"})
		return
	}

	state, err := randomState()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "Failed to generate state token"})
		return
	}
	if err := h.States.Put(c.Request.Context(), state, statestore.Entry{RedirectURI: redirectURI}); err != nil {
		logger.Error("failed to store state token", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "Failed to store state token"})
		return
	}

	metrics.ConsentStarted.Inc()

	authURL := h.oauthConfig(redirectURI).AuthCodeURL(state,
		oauth2.SetAuthURLParam("response_mode", "query"),
		oauth2.SetAuthURLParam("prompt", "consent"),
	)
	c.JSON(http.StatusOK, dtos.AuthURLResponse{AuthURL: authURL, State: state})
}

// Callback finishes the consent round-trip: validates state, exchanges the
// code and returns the delegated access token plus the tenant it belongs to.
func (h *OnboardingHandler) Callback(c *gin.Context) {
	if errParam := c.Query("error"); errParam != "" {
		metrics.ConsentCompleted.WithLabelValues("error").Inc()
		c.JSON(http.StatusBadRequest, gin.H{
			"detail": fmt.Sprintf("%s: %s", errParam, c.Query("error_description")),
		})
		return
	}

	code := c.Query("code")
	state := c.Query("state")
	if code == "" || state == "" {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "code and state are required"})
		return
	}

	entry, ok, err := h.States.Take(c.Request.Context(), state)
	if err != nil {
		logger.Error("state store lookup failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "Failed to validate state token"})
		return
	}
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "Invalid state token"})
		return
	}

	token, err := h.oauthConfig(entry.RedirectURI).Exchange(c.Request.Context(), code)
	if err != nil {
		metrics.ConsentCompleted.WithLabelValues("error").Inc()
		c.JSON(http.StatusBadRequest, gin.H{"detail": fmt.Sprintf("Token exchange failed: %s", err)})
		return
	}

	metrics.ConsentCompleted.WithLabelValues("success").Inc()

	c.JSON(http.StatusOK, dtos.CallbackResponse{
		AccessToken: token.AccessToken,
		TenantID:    tenantFromIDToken(token),
		ExpiresIn:   int64(time.Until(token.Expiry).Seconds()),
	})
}

// tenantFromIDToken pulls the tid claim out of the id_token. The token came
// straight from the authority over TLS, so the signature is not re-verified
// here.
func tenantFromIDToken(token *oauth2.Token) string {
	rawIDToken, ok := token.Extra("id_token").(string)
	if !ok || rawIDToken == "" {
		return ""
	}
	parsed, err := jwt.ParseString(rawIDToken, jwt.WithVerify(false), jwt.WithValidate(false))
	if err != nil {
		logger.Warn("failed to parse id token", zap.Error(err))
		return ""
	}
	tid, _ := parsed.Get("tid")
	tenantID, _ := tid.(string)
	return tenantID
}

func (h *OnboardingHandler) CustomerStatus(c *gin.Context) {
	tenantID := c.Query("tenant_id")
	if tenantID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "tenant_id is required"})
		return
	}
	status, err := h.Service.CustomerStatus(tenantID)
	if err != nil {
		respondError(c, err, "Failed to check customer status")
		return
	}
	c.JSON(http.StatusOK, status)
}

func (h *OnboardingHandler) RegenerateAPIKey(c *gin.Context) {
	tenantID := c.Query("tenant_id")
	if tenantID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "tenant_id is required"})
		return
	}
	result, err := h.Service.RegenerateAPIKey(tenantID)
	if err != nil {
		respondError(c, err, "Failed to regenerate API key")
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *OnboardingHandler) ListWorkspaces(c *gin.Context) {
	accessToken := c.Query("access_token")
	if accessToken == "" {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "access_token is required"})
		return
	}
	list, err := h.Service.ListWorkspaces(c.Request.Context(), accessToken)
	if err != nil {
		respondError(c, err, "Failed to list workspaces")
		return
	}
	c.JSON(http.StatusOK, list)
}

func (h *OnboardingHandler) ListSubscriptions(c *gin.Context) {
	accessToken := c.Query("access_token")
	if accessToken == "" {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "access_token is required"})
		return
	}
	subs, err := h.Service.ListSubscriptions(c.Request.Context(), accessToken)
	if err != nil {
		respondError(c, err, "Failed to list subscriptions")
		return
	}
	c.JSON(http.StatusOK, subs)
}

func (h *OnboardingHandler) ListRegions(c *gin.Context) {
	c.JSON(http.StatusOK, h.Service.Regions())
}

func (h *OnboardingHandler) CreateWorkspace(c *gin.Context) {
	accessToken := c.Query("access_token")
	if accessToken == "" {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "access_token is required"})
		return
	}

	var request dtos.CreateWorkspaceRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": err.Error()})
		return
	}
	if err := request.Validate(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": err.Error()})
		return
	}

	workspace, err := h.Service.CreateWorkspace(c.Request.Context(), accessToken, &request)
	if err != nil {
		respondError(c, err, "Failed to create workspace")
		return
	}
	c.JSON(http.StatusOK, workspace)
}

func (h *OnboardingHandler) WorkspaceTemplateURL(c *gin.Context) {
	c.JSON(http.StatusOK, h.Service.WorkspaceTemplateInfo())
}

func (h *OnboardingHandler) Complete(c *gin.Context) {
	var request dtos.OnboardingCompleteRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": err.Error()})
		return
	}

	result, err := h.Service.CompleteOnboarding(&request)
	if err != nil {
		respondError(c, err, "Failed to complete onboarding")
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *OnboardingHandler) DeployURL(c *gin.Context) {
	var query dtos.DeployURLQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": err.Error()})
		return
	}

	info, err := h.Service.DeployInfo(&query)
	if err != nil {
		respondError(c, err, "Failed to generate deployment URL")
		return
	}
	c.JSON(http.StatusOK, info)
}

func (h *OnboardingHandler) CreateAutomationRule(c *gin.Context) {
	accessToken := c.Query("access_token")
	if accessToken == "" {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "access_token is required"})
		return
	}

	var request dtos.CreateAutomationRuleRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": err.Error()})
		return
	}
	if err := request.Validate(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": err.Error()})
		return
	}

	result, err := h.Service.CreateAutomationRule(c.Request.Context(), accessToken, &request)
	if err != nil {
		respondError(c, err, "Failed to create automation rule")
		return
	}
	c.JSON(http.StatusOK, result)
}

// respondError surfaces a service error's detail verbatim; anything else
// becomes a 500 with the operation's fixed fallback message.
func respondError(c *gin.Context, err error, fallback string) {
	var svcErr *services.Error
	if errors.As(err, &svcErr) {
		c.JSON(svcErr.Code, gin.H{"detail": svcErr.Detail})
		return
	}
	logger.Error("unhandled service error", zap.Error(err))
	c.JSON(http.StatusInternalServerError, gin.H{"detail": fallback})
}

func randomState() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
