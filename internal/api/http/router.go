package http

import (
	"time"

	"github.com/EternisAI/silo-device/internal/api/http/handler"
	"github.com/EternisAI/silo-device/internal/api/http/middleware"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

type Services struct {
	Store      handler.CredentialStore
	Completion handler.Completion
}

func SetupRoute(engine *gin.Engine, srvs *Services) {
	engine.Use(middleware.RequestLogger())

	portalHandler := handler.NewPortalHandler(srvs.Store, srvs.Completion)
	engine.GET("/", portalHandler.Form)
	engine.POST("/provision", portalHandler.Provision)
}

// NewEngine builds the portal engine with its middleware stack.
func NewEngine(cfg Config, srvs *Services) *gin.Engine {
	engine := gin.New()
	if cfg.CORS.Enabled {
		origins := cfg.CORS.AllowOrigins
		if len(origins) == 0 {
			origins = []string{"*"}
		}
		engine.Use(cors.New(cors.Config{
			AllowOrigins:  origins,
			AllowMethods:  []string{"GET", "POST"},
			AllowHeaders:  []string{"Origin", "Content-Length", "Content-Type"},
			ExposeHeaders: []string{"Content-Length"},
			MaxAge:        12 * time.Hour,
		}))
	}
	engine.Use(gin.Recovery())
	SetupRoute(engine, srvs)
	return engine
}
