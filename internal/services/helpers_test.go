package services

import (
	"context"
	"sync"
	"time"

	"github.com/stretchr/testify/suite"
	"github.com/yukikurage/synergy-api/internal/database"
	"github.com/yukikurage/synergy-api/internal/events"
	"github.com/yukikurage/synergy-api/internal/models"
	"github.com/yukikurage/synergy-api/internal/repository"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// recordingPublisher keeps every published event and hands it to handler
// synchronously, so fan-out results are visible as soon as a call returns.
type recordingPublisher struct {
	mu      sync.Mutex
	events  []events.Event
	handler events.Handler
}

func (p *recordingPublisher) Publish(ctx context.Context, e events.Event) {
	p.mu.Lock()
	p.events = append(p.events, e)
	handler := p.handler
	p.mu.Unlock()

	if handler != nil {
		_ = handler(ctx, e)
	}
}

func (p *recordingPublisher) ofType(eventType models.NotificationType) []events.Event {
	p.mu.Lock()
	defer p.mu.Unlock()

	var matched []events.Event
	for _, e := range p.events {
		if e.Type == eventType {
			matched = append(matched, e)
		}
	}
	return matched
}

// serviceSuite wires every service against an in-memory database.
type serviceSuite struct {
	suite.Suite
	ctx context.Context
	db  *gorm.DB

	store         *repository.Store
	publisher     *recordingPublisher
	membership    *MembershipService
	projects      *ProjectService
	users         *UserService
	tasks         *TaskService
	comments      *CommentService
	notifications *NotificationService
	ledger        *LedgerService
}

func (s *serviceSuite) SetupTest() {
	var err error

	s.ctx = context.Background()
	s.db, err = gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	s.Require().NoError(err)

	// One connection: every goroutine sees the same in-memory database and
	// transactions are serialised.
	sqlDB, err := s.db.DB()
	s.Require().NoError(err)
	sqlDB.SetMaxOpenConns(1)

	s.Require().NoError(s.db.AutoMigrate(database.Models()...))

	log := zap.NewNop()
	s.store = repository.NewStore(s.db)
	s.publisher = &recordingPublisher{}
	s.membership = NewMembershipService(s.store, s.publisher, time.Second, log)
	s.projects = NewProjectService(s.store, s.membership)
	s.users = NewUserService(s.store.Users)
	s.tasks = NewTaskService(s.store, s.membership, s.publisher, log, TaskServiceOptions{
		LookupTimeout: time.Second,
		UpdateRetries: 3,
	})
	s.comments = NewCommentService(s.store, s.membership, s.publisher)
	s.notifications = NewNotificationService(s.store.Notifications, log)
	s.ledger = NewLedgerService(s.store, log)

	s.publisher.handler = s.notifications.Handle
}

func (s *serviceSuite) TearDownTest() {
	sqlDB, err := s.db.DB()
	s.Require().NoError(err)
	sqlDB.Close()
}

func (s *serviceSuite) createUser(name string) *models.User {
	email := name + "@example.com"
	user := &models.User{
		ExternalUID: "uid-" + name,
		Name:        name,
		Email:       &email,
	}
	s.Require().NoError(s.db.Create(user).Error)
	return user
}

func (s *serviceSuite) createProject(owner *models.User, name string) *models.Project {
	project, err := s.projects.CreateProject(s.ctx, CreateProjectInput{ActorID: owner.ID, Name: name})
	s.Require().NoError(err)
	return project
}

func (s *serviceSuite) addMember(project *models.Project, owner, user *models.User) {
	_, err := s.membership.AddMember(s.ctx, AddMemberInput{
		ProjectID: project.ID,
		ActorID:   owner.ID,
		Email:     user.EmailOrEmpty(),
	})
	s.Require().NoError(err)
}

func (s *serviceSuite) openTasks(user *models.User) int64 {
	var fresh models.User
	s.Require().NoError(s.db.First(&fresh, user.ID).Error)
	return fresh.OpenTasksCount
}

func (s *serviceSuite) totalTasks(project *models.Project) int64 {
	var fresh models.Project
	s.Require().NoError(s.db.First(&fresh, project.ID).Error)
	return fresh.TotalTasks
}

func (s *serviceSuite) notificationsFor(user *models.User, eventType models.NotificationType) []models.Notification {
	var notifications []models.Notification
	s.Require().NoError(s.db.Where("recipient_id = ? AND type = ?", user.ID, eventType).Find(&notifications).Error)
	return notifications
}

// requireLedgerConsistent recomputes every counter from the task rows.
func (s *serviceSuite) requireLedgerConsistent() {
	report, err := s.ledger.Reconcile(s.ctx, false)
	s.Require().NoError(err)
	s.Require().Empty(report.Drifts)
}

func ptr[T any](v T) *T {
	return &v
}
