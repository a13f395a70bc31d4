package router

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	ginzap "github.com/gin-contrib/zap"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"tripbuddy/internal/core/auth"
	"tripbuddy/internal/service"
	"tripbuddy/internal/transport/http/handler"
	mdw "tripbuddy/internal/transport/http/middleware"
)

func NewAPIEngine(l *zap.Logger, svc *service.UserService, jwter *auth.JWTer) *gin.Engine {
	r := gin.New()

	// 中间件
	r.Use(
		mdw.RequestID(),
		cors.Default(),
		mdw.RateLimit(200, 400),
		mdw.ConcurrencyLimit(300),
		mdw.MaxBodyBytes(1<<20),
		mdw.Timeout(10*time.Second),
		ginzap.RecoveryWithZap(l, true),
		mdw.Metrics(),
		mdw.AccessLog(l),
	)

	r.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"ok": 1}) })
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	h := handler.NewUserHandler(svc, l)

	api := r.Group("/api")

	// 公共
	api.POST("/login", h.Login)
	api.POST("/users", h.Create)
	api.GET("/users/:id", h.GetByID)
	api.PUT("/users/:id", h.AdminUpdate)

	// 鉴权分组
	authed := api.Group("")
	authed.Use(mdw.AuthJWT(jwter, ""))
	authed.GET("/profile", h.Profile)
	authed.PUT("/profile", h.UpdateProfile)
	authed.DELETE("/profile", h.DeleteAccount)
	authed.DELETE("/users/:id", h.AdminDelete)

	return r
}
