package servers

import (
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// Config is the onboarding-specific wiring main resolves from the
// environment and hands down to the handlers.
type Config struct {
	// Multi-tenant app registration used for the admin consent flow.
	ClientID     string
	ClientSecret string
	AuthorityURL string

	SaaSEndpoint         string
	DeployTemplateURL    string
	WorkspaceTemplateURL string

	// Optional; the in-memory state store is used when empty.
	RedisURL string
}

type Server struct {
	Router     *gin.Engine
	PostgresDB *gorm.DB
	Config     Config
}

func (s *Server) Start(port string) error {
	return s.Router.Run(":" + port)
}

func (s *Server) Use(middleware gin.HandlerFunc) {
	s.Router.Use(middleware)
}

func NewServer(db *gorm.DB, config Config) *Server {
	app := gin.Default()

	return &Server{
		Router:     app,
		PostgresDB: db,
		Config:     config,
	}
}
