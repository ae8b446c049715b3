package router

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/yukikurage/synergy-api/internal/auth"
	"github.com/yukikurage/synergy-api/internal/handlers"
	"github.com/yukikurage/synergy-api/internal/middleware"
)

// Deps is everything the HTTP surface needs.
type Deps struct {
	CORSOrigins []string
	Verifier    auth.Verifier
	Users       middleware.UserProvisioner
	// EventsHealthy reports event transport health; nil means always healthy.
	EventsHealthy func() bool

	Auth          *handlers.AuthHandler
	Projects      *handlers.ProjectHandler
	Tasks         *handlers.TaskHandler
	Comments      *handlers.CommentHandler
	Notifications *handlers.NotificationHandler
}

func New(deps Deps) *gin.Engine {
	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery(), middleware.Metrics())

	r.Use(cors.New(cors.Config{
		AllowOrigins:     deps.CORSOrigins,
		AllowMethods:     []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Length", "Content-Type", "Authorization", "Accept"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	r.GET("/health", func(c *gin.Context) {
		if deps.EventsHealthy != nil && !deps.EventsHealthy() {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":  "degraded",
				"message": "Event broker unavailable",
			})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"message": "Synergy API is running",
		})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/api")
	api.Use(middleware.RequireAuth(deps.Verifier, deps.Users))
	{
		api.GET("/me", deps.Auth.Me)

		projects := api.Group("/projects")
		{
			projects.POST("", deps.Projects.CreateProject)
			projects.GET("", deps.Projects.ListProjects)
			projects.GET("/:pid", deps.Projects.GetProject)
			projects.PATCH("/:pid", deps.Projects.UpdateProject)
			projects.POST("/:pid/members", deps.Projects.AddMember)
			projects.DELETE("/:pid/members/:uid", deps.Projects.RemoveMember)

			projects.GET("/:pid/tasks", deps.Tasks.ListTasks)
			projects.POST("/:pid/tasks", deps.Tasks.CreateTask)
			projects.GET("/:pid/tasks/:tid", deps.Tasks.GetTask)
			projects.PATCH("/:pid/tasks/:tid", deps.Tasks.UpdateTask)
			projects.DELETE("/:pid/tasks/:tid", deps.Tasks.DeleteTask)
			projects.PATCH("/:pid/tasks/:tid/attachments", deps.Tasks.AddAttachment)

			projects.GET("/:pid/tasks/:tid/comments", deps.Comments.ListComments)
			projects.POST("/:pid/tasks/:tid/comments", deps.Comments.AddComment)
		}

		notifications := api.Group("/notifications")
		{
			notifications.GET("", deps.Notifications.ListNotifications)
			notifications.POST("/mark-read", deps.Notifications.MarkRead)
		}
	}

	return r
}
