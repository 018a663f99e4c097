package httpapi

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
)

// RouterConfig wires optional endpoints next to the account routes.
type RouterConfig struct {
	Cookie CookieConfig
	// Metrics is mounted at /metrics when set.
	Metrics http.Handler
	// Ready backs /readyz; nil means always ready.
	Ready  func(ctx context.Context) error
	Logger *slog.Logger
}

// NewRouter returns a gin engine serving the account API under
// /api/v1/account plus /healthz, /readyz and, optionally, /metrics.
func NewRouter(accounts Accounts, cfg RouterConfig) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), RequestContext())

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, statusResponse{Status: "ok"})
	})
	router.GET("/readyz", func(c *gin.Context) {
		if cfg.Ready != nil {
			if err := cfg.Ready(c.Request.Context()); err != nil {
				c.JSON(http.StatusServiceUnavailable, errorResponse{Error: "not ready"})
				return
			}
		}
		c.JSON(http.StatusOK, statusResponse{Status: "ready"})
	})
	if cfg.Metrics != nil {
		router.GET("/metrics", gin.WrapH(cfg.Metrics))
	}

	h := NewAccountHandler(accounts, cfg.Cookie, cfg.Logger)
	api := router.Group("/api/v1/account")
	api.POST("/register", h.Register)
	api.POST("/verify", h.VerifyEmail)
	api.POST("/login", h.Login)
	api.POST("/autologin", h.Autologin)
	api.POST("/logout", h.Logout)
	api.POST("/password-reset/request", h.RequestPasswordReset)
	api.POST("/password-reset/confirm", h.ResetPassword)
	api.GET("/me", RequireSession(accounts), h.Me)

	return router
}
