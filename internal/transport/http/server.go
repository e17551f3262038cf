package http

import (
	stdhttp "net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/edunexus/server/internal/auth"
	"github.com/edunexus/server/internal/config"
	"github.com/edunexus/server/internal/core"
	"github.com/edunexus/server/internal/store"
)

// ErrorResponse is the uniform error body for REST endpoints.
type ErrorResponse struct {
	Error string `json:"error"`
}

// NewServer builds the HTTP server: REST API plus the websocket endpoint.
func NewServer(hub *core.Hub, authService *auth.Service, st store.Store, cfg config.Config, logger *zerolog.Logger) *stdhttp.Server {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()
	router.Use(gin.Recovery(), LoggerMiddleware(logger))

	router.GET("/health", func(c *gin.Context) {
		c.String(stdhttp.StatusOK, "ok")
	})

	authHandlers := NewAuthHandlers(authService, logger)
	courseHandlers := NewCourseHandlers(st, logger)
	adminHandlers := NewAdminHandlers(st, logger)

	api := router.Group("/api")
	api.POST("/auth/register", authHandlers.Register)
	api.POST("/auth/login", authHandlers.Login)

	authorized := api.Group("", AuthMiddleware(authService, logger))
	authorized.GET("/courses", courseHandlers.ListCourses)
	authorized.GET("/courses/:id", courseHandlers.GetCourse)
	authorized.POST("/courses/:id/enroll", courseHandlers.Enroll)
	authorized.GET("/me/courses", courseHandlers.ListEnrolled)

	instructor := authorized.Group("", RequireRole(store.RoleInstructor, store.RoleAdmin))
	instructor.POST("/courses", courseHandlers.CreateCourse)
	instructor.PUT("/courses/:id", courseHandlers.UpdateCourse)
	instructor.DELETE("/courses/:id", courseHandlers.DeleteCourse)
	instructor.GET("/me/teaching", courseHandlers.ListTeaching)

	admin := authorized.Group("/admin", RequireRole(store.RoleAdmin))
	admin.GET("/users", adminHandlers.ListUsers)
	admin.PUT("/users/:id/role", adminHandlers.UpdateUserRole)
	admin.DELETE("/users/:id", adminHandlers.DeleteUser)
	admin.GET("/stats", adminHandlers.GetStats)

	// The websocket upgrade needs to hijack the connection, which gin's
	// response writer refuses once headers are written. Mount /ws on a
	// plain mux beside the API instead of inside the router.
	mux := stdhttp.NewServeMux()
	mux.Handle("/ws", NewWSHandler(hub, authService, st, cfg, logger))
	mux.Handle("/", router)

	return &stdhttp.Server{
		Addr:              cfg.Addr,
		Handler:           mux,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
	}
}
