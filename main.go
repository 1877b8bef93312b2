package main

import (
	"fmt"
	"log"
	"os"

	"github.com/soctierzero/soc-onboarding/docs"
	"github.com/soctierzero/soc-onboarding/internal/logger"
	"github.com/soctierzero/soc-onboarding/pkg/api/routes"
	"github.com/soctierzero/soc-onboarding/pkg/api/servers"
	"github.com/soctierzero/soc-onboarding/pkg/infrastructure/postgres/connection"

	"github.com/gin-contrib/cors"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	_ "github.com/soctierzero/soc-onboarding/docs"
)

// @title           SOC Onboarding
// @version         1.0
// @description     Customer onboarding API for the SOC SaaS platform

// @host      localhost:${PORT}
// @BasePath  /api/v1

// @securityDefinitions.basic  NoAuth
func main() {

	logger.Init()

	// Load .env file if it exists (optional for Docker runtime)
	if err := godotenv.Load(".env"); err != nil {
		logger.Infof("No .env file found, using environment variables: %s", err)
	}

	port := os.Getenv("PORT")

	if port == "" {
		port = "8000"
	}

	postgresUser := os.Getenv("POSTGRES_USER")
	postgresHost := os.Getenv("POSTGRES_HOST")
	postgresPassword := os.Getenv("POSTGRES_PASSWORD")
	postgresDatabase := os.Getenv("POSTGRES_DB")
	postgresPort := os.Getenv("POSTGRES_PORT")

	postgresDB, err := connection.Init(
		postgresUser,
		postgresHost,
		postgresPassword,
		postgresDatabase,
		postgresPort,
	)
	if err != nil {
		logger.Fatal("Failed to connect to postgres", zap.Error(err))
	}

	// programmatically set swagger info
	docs.SwaggerInfo.Title = "SOC Onboarding"
	docs.SwaggerInfo.Description = "Customer onboarding API for the SOC SaaS platform"
	docs.SwaggerInfo.Version = "1.0"
	docs.SwaggerInfo.Schemes = []string{"http"}
	docs.SwaggerInfo.Host = fmt.Sprintf("localhost:%s", port)
	docs.SwaggerInfo.BasePath = "/api/v1"

	serverConfig := servers.Config{
		ClientID:             os.Getenv("MULTI_TENANT_APP_CLIENT_ID"),
		ClientSecret:         os.Getenv("MULTI_TENANT_APP_CLIENT_SECRET"),
		AuthorityURL:         os.Getenv("AUTHORITY_URL"),
		SaaSEndpoint:         os.Getenv("SAAS_ENDPOINT"),
		DeployTemplateURL:    os.Getenv("DEPLOY_TEMPLATE_URL"),
		WorkspaceTemplateURL: os.Getenv("WORKSPACE_TEMPLATE_URL"),
		RedisURL:             os.Getenv("REDIS_URL"),
	}
	if serverConfig.ClientID == "" {
		logger.Warn("MULTI_TENANT_APP_CLIENT_ID is not set, consent flow will fail")
	}

	server := servers.NewServer(postgresDB, serverConfig)
	config := cors.DefaultConfig()
	config.AllowOrigins = []string{"*"}
	config.AllowMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
	config.AllowHeaders = []string{"*"}

	server.Use(cors.New(config))

	routes.SetupRoutes(server)

	err = server.Start(port)
	if err != nil {
		logger.Error("Failed to start server", zap.Error(err))
		log.Fatal(err)
	}
}
