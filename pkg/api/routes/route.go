package routes

import (
	"github.com/soctierzero/soc-onboarding/pkg/api/handlers"
	"github.com/soctierzero/soc-onboarding/pkg/api/servers"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

func SetupRoutes(server *servers.Server) {
	apiV1 := server.Router.Group("/api/v1")
	setupV1Routes(apiV1, server)

	healthGroup := server.Router.Group("/health")
	setupHealthRoutes(healthGroup)

	server.Router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	server.Router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
}

func setupV1Routes(router *gin.RouterGroup, server *servers.Server) {
	setupOnboardingRoutes(router.Group("/onboarding"), server)
}

func setupHealthRoutes(router *gin.RouterGroup) {
	handler := handlers.NewHealthHandler()
	router.GET("", handler.GetHealth)
}

func setupOnboardingRoutes(router *gin.RouterGroup, server *servers.Server) {
	handler := handlers.NewOnboardingHandler(server)
	router.GET("/auth-url", handler.GetAuthURL)
	router.GET("/callback", handler.Callback)
	router.GET("/customer-status", handler.CustomerStatus)
	router.POST("/regenerate-api-key", handler.RegenerateAPIKey)
	router.GET("/workspaces", handler.ListWorkspaces)
	router.GET("/subscriptions", handler.ListSubscriptions)
	router.GET("/regions", handler.ListRegions)
	router.POST("/create-workspace", handler.CreateWorkspace)
	router.GET("/workspace-template-url", handler.WorkspaceTemplateURL)
	router.POST("/complete", handler.Complete)
	router.GET("/deploy-url", handler.DeployURL)
	router.POST("/create-automation-rule", handler.CreateAutomationRule)
}
