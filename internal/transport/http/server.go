package http

import (
	stdhttp "net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/craftlink/chat-server/internal/auth"
	"github.com/craftlink/chat-server/internal/config"
	"github.com/craftlink/chat-server/internal/core"
)

// NewServer builds the HTTP server: health, the WebSocket endpoint, and
// the optional dev token mint.
func NewServer(cfg config.Config, gateway *auth.Gateway, jwtConfig *auth.JWTConfig,
	registry *core.Registry, dispatcher *Dispatcher, logger *zerolog.Logger) *stdhttp.Server {

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery(), LoggerMiddleware(logger))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(stdhttp.StatusOK, gin.H{
			"status":      "ok",
			"connections": registry.Size(),
		})
	})

	router.GET("/ws", gin.WrapH(NewWSHandler(gateway, registry, dispatcher, logger)))

	if cfg.DevTokenEndpoint {
		tokens := NewTokenHandlers(jwtConfig, logger)
		router.POST("/api/token", tokens.Mint)
		logger.Warn().Msg("dev token endpoint enabled")
	}

	return &stdhttp.Server{
		Addr:              cfg.Addr,
		Handler:           router,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
	}
}
