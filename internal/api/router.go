package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/quietude83/quietude/internal/auth"
	"github.com/quietude83/quietude/internal/middleware"
	"github.com/quietude83/quietude/internal/policy"
	"github.com/quietude83/quietude/internal/repository"
	"go.uber.org/zap"
)

// Handlers bundles everything the router mounts.
type Handlers struct {
	Auth         *AuthHandler
	User         *UserHandler
	Availability *AvailabilityHandler
	RendezVous   *RendezVousHandler
	Message      *MessageHandler
}

// NewRouter assembles the HTTP surface. Only /health, /user/create and
// /user/login are public; everything else sits behind token auth, and
// the superuser-only groups add a policy gate on top.
func NewRouter(
	h Handlers,
	sessions auth.Sessions,
	users repository.UserRepository,
	logger *zap.Logger,
) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	r.POST("/user/create", h.Auth.Signup)
	r.POST("/user/login", h.Auth.Login)

	authed := r.Group("", middleware.TokenAuth(sessions, users, logger))

	authed.POST("/user/logout", h.Auth.Logout)
	authed.GET("/user/me", h.User.GetMe)
	authed.PUT("/user/me", h.User.UpdateMe)
	authed.PATCH("/user/me", h.User.UpdateMe)
	authed.DELETE("/user/me", h.User.DeleteMe)
	authed.PUT("/user/update-password", h.User.UpdatePassword)

	authed.GET("/user/list",
		ScopeMiddleware(policy.ResourceDirectory, policy.ActionRead), h.User.List)
	authed.DELETE("/user/delete/:id",
		ScopeMiddleware(policy.ResourceDirectory, policy.ActionWrite), h.User.Delete)

	// Slot inventory management: every verb, superuser only.
	manage := authed.Group("/availability/superuser",
		ScopeMiddleware(policy.ResourceAvailability, policy.ActionWrite))
	manage.GET("", h.Availability.List)
	manage.POST("", h.Availability.Create)
	manage.GET("/:id", h.Availability.Get)
	manage.PUT("/:id", h.Availability.Update)
	manage.PATCH("/:id", h.Availability.Update)
	manage.DELETE("/:id", h.Availability.Delete)

	// Read-only slot listing for everyone authenticated.
	browse := authed.Group("/availability/user",
		ScopeMiddleware(policy.ResourceAvailability, policy.ActionRead))
	browse.GET("", h.Availability.List)
	browse.GET("/:id", h.Availability.Get)

	rdv := authed.Group("/availability/rendezvous")
	rdv.GET("", h.RendezVous.List)
	rdv.POST("", h.RendezVous.Create)
	rdv.GET("/:id", h.RendezVous.Get)
	rdv.PUT("/:id", h.RendezVous.Update)
	rdv.PATCH("/:id", h.RendezVous.Update)
	rdv.DELETE("/:id", h.RendezVous.Delete)

	msg := authed.Group("/availability/messages")
	msg.GET("", h.Message.List)
	msg.POST("", h.Message.Create)
	msg.GET("/stream", h.Message.Stream)
	msg.GET("/:id", h.Message.Get)
	msg.PUT("/:id", h.Message.Update)
	msg.PATCH("/:id", h.Message.Update)
	msg.DELETE("/:id", h.Message.Delete)

	return r
}
