package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http/httptest"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/suite"
	"github.com/yukikurage/synergy-api/internal/constants"
	"github.com/yukikurage/synergy-api/internal/database"
	"github.com/yukikurage/synergy-api/internal/events"
	"github.com/yukikurage/synergy-api/internal/models"
	"github.com/yukikurage/synergy-api/internal/repository"
	"github.com/yukikurage/synergy-api/internal/services"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// syncPublisher delivers events inline so notifications exist once the
// request that caused them has returned.
type syncPublisher struct {
	handler events.Handler
}

func (p *syncPublisher) Publish(ctx context.Context, e events.Event) {
	if p.handler != nil {
		_ = p.handler(ctx, e)
	}
}

// HandlerTestSuite serves every handler from one engine backed by an
// in-memory database.
type HandlerTestSuite struct {
	suite.Suite
	db     *gorm.DB
	router *gin.Engine

	projects *services.ProjectService
	tasks    *services.TaskService
}

func (suite *HandlerTestSuite) SetupTest() {
	var err error

	suite.db, err = gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	suite.Require().NoError(err)

	sqlDB, err := suite.db.DB()
	suite.Require().NoError(err)
	sqlDB.SetMaxOpenConns(1)

	suite.Require().NoError(suite.db.AutoMigrate(database.Models()...))

	log := zap.NewNop()
	store := repository.NewStore(suite.db)
	publisher := &syncPublisher{}

	membership := services.NewMembershipService(store, publisher, time.Second, log)
	suite.projects = services.NewProjectService(store, membership)
	suite.tasks = services.NewTaskService(store, membership, publisher, log, services.TaskServiceOptions{
		LookupTimeout: time.Second,
		UpdateRetries: 3,
	})
	comments := services.NewCommentService(store, membership, publisher)
	notifications := services.NewNotificationService(store.Notifications, log)
	users := services.NewUserService(store.Users)
	publisher.handler = notifications.Handle

	gin.SetMode(gin.TestMode)
	suite.router = gin.New()

	api := suite.router.Group("/api")
	api.Use(suite.authenticate)

	authHandler := NewAuthHandler(users)
	projectHandler := NewProjectHandler(suite.projects, membership)
	taskHandler := NewTaskHandler(suite.tasks)
	commentHandler := NewCommentHandler(comments)
	notificationHandler := NewNotificationHandler(notifications)

	api.GET("/me", authHandler.Me)
	api.POST("/projects", projectHandler.CreateProject)
	api.GET("/projects", projectHandler.ListProjects)
	api.GET("/projects/:pid", projectHandler.GetProject)
	api.PATCH("/projects/:pid", projectHandler.UpdateProject)
	api.POST("/projects/:pid/members", projectHandler.AddMember)
	api.DELETE("/projects/:pid/members/:uid", projectHandler.RemoveMember)
	api.GET("/projects/:pid/tasks", taskHandler.ListTasks)
	api.POST("/projects/:pid/tasks", taskHandler.CreateTask)
	api.GET("/projects/:pid/tasks/:tid", taskHandler.GetTask)
	api.PATCH("/projects/:pid/tasks/:tid", taskHandler.UpdateTask)
	api.DELETE("/projects/:pid/tasks/:tid", taskHandler.DeleteTask)
	api.PATCH("/projects/:pid/tasks/:tid/attachments", taskHandler.AddAttachment)
	api.GET("/projects/:pid/tasks/:tid/comments", commentHandler.ListComments)
	api.POST("/projects/:pid/tasks/:tid/comments", commentHandler.AddComment)
	api.GET("/notifications", notificationHandler.ListNotifications)
	api.POST("/notifications/mark-read", notificationHandler.MarkRead)
}

func (suite *HandlerTestSuite) TearDownTest() {
	sqlDB, err := suite.db.DB()
	suite.Require().NoError(err)
	sqlDB.Close()
}

const testUserHeader = "X-Test-User"

// authenticate stands in for RequireAuth: the caller is named by a header
// holding a user ID.
func (suite *HandlerTestSuite) authenticate(c *gin.Context) {
	if raw := c.GetHeader(testUserHeader); raw != "" {
		if userID, err := strconv.ParseUint(raw, 10, 64); err == nil {
			c.Set(constants.ContextKeyUserID, userID)
		}
	}
	c.Next()
}

func (suite *HandlerTestSuite) createTestUser(name string) *models.User {
	email := name + "@example.com"
	user := &models.User{
		ExternalUID: "uid-" + name,
		Name:        name,
		Email:       &email,
	}
	suite.Require().NoError(suite.db.Create(user).Error)
	return user
}

func (suite *HandlerTestSuite) createTestProject(owner *models.User, members ...*models.User) *models.Project {
	project, err := suite.projects.CreateProject(context.Background(), services.CreateProjectInput{
		ActorID: owner.ID,
		Name:    "Test Project",
	})
	suite.Require().NoError(err)

	for _, m := range members {
		suite.Require().NoError(suite.db.Create(&models.ProjectMember{
			ProjectID:   project.ID,
			UserID:      m.ID,
			Role:        models.RoleMember,
			DisplayName: m.Name,
			Email:       m.EmailOrEmpty(),
			JoinedAt:    time.Now(),
		}).Error)
	}
	return project
}

// request performs an HTTP call as userID; zero sends no identity.
func (suite *HandlerTestSuite) request(method, path string, userID uint64, body any) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	switch b := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(b))
	default:
		raw, err := json.Marshal(b)
		suite.Require().NoError(err)
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if userID != 0 {
		req.Header.Set(testUserHeader, strconv.FormatUint(userID, 10))
	}

	w := httptest.NewRecorder()
	suite.router.ServeHTTP(w, req)
	return w
}

func (suite *HandlerTestSuite) decode(w *httptest.ResponseRecorder, v any) {
	suite.Require().NoError(json.Unmarshal(w.Body.Bytes(), v), w.Body.String())
}

func (suite *HandlerTestSuite) openTasks(userID uint64) int64 {
	var user models.User
	suite.Require().NoError(suite.db.First(&user, userID).Error)
	return user.OpenTasksCount
}
