package modules

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	handlers "github.com/ramadhanik/account-service/internal/interface/http"
	"github.com/ramadhanik/account-service/internal/interface/middleware"
	"github.com/ramadhanik/account-service/pkg/helpers"
)

// AccountModule wires the account HTTP handlers and auth middleware into routes.
// Public: register, login, refresh, resetpassword-mail, resetpassword redeem.
// Protected: profile, changepassword, accounts/search.
type AccountModule struct {
	Handler *handlers.AccountHandler
	JWT     *helpers.JWTManager
	RDB     *redis.Client
}

func NewAccountModule(h *handlers.AccountHandler, jwt *helpers.JWTManager, rdb *redis.Client) *AccountModule {
	return &AccountModule{Handler: h, JWT: jwt, RDB: rdb}
}

func (m *AccountModule) Register(rg *gin.RouterGroup) {
	// Credential endpoints get tight per-IP limits
	registerLimiter := middleware.RateLimit(m.RDB, 10, time.Minute, middleware.KeyByIPAndPath(), nil)
	loginLimiter := middleware.RateLimit(m.RDB, 10, time.Minute, middleware.KeyByIP(), nil)
	refreshLimiter := middleware.RateLimit(m.RDB, 60, time.Minute, middleware.KeyByIP(), middleware.AllowPrivateIP())
	resetMailLimiter := middleware.RateLimit(m.RDB, 5, time.Minute, middleware.KeyByIPAndPath(), nil)
	resetLimiter := middleware.RateLimit(m.RDB, 30, time.Minute, middleware.KeyByIPAndPath(), nil)

	rg.POST("/register", registerLimiter, m.Handler.Register)
	rg.POST("/login", loginLimiter, m.Handler.Login)
	rg.POST("/refresh", refreshLimiter, m.Handler.Refresh)
	rg.POST("/resetpassword-mail", resetMailLimiter, m.Handler.ResetPasswordMail)
	rg.POST("/resetpassword/:uid/:token", resetLimiter, m.Handler.ResetPassword)

	auth := rg.Group("/")
	auth.Use(middleware.Auth(m.JWT))
	auth.Use(middleware.RateLimit(m.RDB, 120, time.Minute, middleware.KeyByAccountID(), nil))
	{
		auth.GET("/profile", m.Handler.Profile)
		auth.POST("/changepassword", m.Handler.ChangePassword)
		auth.GET("/accounts/search", m.Handler.Search)
	}
}
