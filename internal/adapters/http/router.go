package http

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/KoushikPanda1729/lms-english/internal/adapters/ws"
	"github.com/KoushikPanda1729/lms-english/internal/config"
	"github.com/KoushikPanda1729/lms-english/internal/identity"
)

// AuthMiddleware resolves the connection credential to a user id.
// Browsers cannot set headers on WebSocket upgrades, so a "token"
// query parameter is accepted alongside the Authorization header.
func AuthMiddleware(resolver *identity.Resolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		credential := c.GetHeader("Authorization")
		if credential == "" {
			credential = c.Query("token")
		}
		userID, err := resolver.Resolve(credential)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "UNAUTHORIZED"})
			return
		}
		c.Set("user_id", string(userID))
		c.Next()
	}
}

func SetupRouter(ctx context.Context, cfg *config.Config, resolver *identity.Resolver, ctl *ws.Controller) *gin.Engine {
	if cfg.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	if cfg.Mode == "debug" {
		r.Use(gin.Logger())
	}
	r.Use(gin.Recovery())

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := r.Group("/api", AuthMiddleware(resolver))
	api.GET("/ws", func(c *gin.Context) {
		ctl.HandleWS(ctx, c)
	})

	log.Info().Str("module", "adapters.http").Msg("router setup")
	return r
}
