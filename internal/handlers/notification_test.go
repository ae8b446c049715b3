package handlers

import (
	"net/http"

	"github.com/yukikurage/synergy-api/internal/dto"
	"github.com/yukikurage/synergy-api/internal/models"
)

func (suite *HandlerTestSuite) TestNotifications_ListAndMarkRead() {
	owner := suite.createTestUser("owner")
	bob := suite.createTestUser("bob")
	project := suite.createTestProject(owner, bob)
	suite.createTask(project.ID, owner.ID, map[string]any{"title": "Ship it", "assignee": bob.ID})

	w := suite.request(http.MethodGet, "/api/notifications?unread=true", bob.ID, nil)
	suite.Require().Equal(http.StatusOK, w.Code)

	var page dto.NotificationListResponse
	suite.decode(w, &page)
	suite.Require().Len(page.Notifications, 1)
	suite.EqualValues(1, page.Pagination.Total)
	n := page.Notifications[0]
	suite.Equal(models.NotificationTaskAssigned, n.Type)
	suite.Equal(`You were assigned to task "Ship it"`, n.Text)
	suite.False(n.Read)

	w = suite.request(http.MethodPost, "/api/notifications/mark-read", bob.ID, map[string]any{"ids": []uint64{}})
	suite.Equal(http.StatusOK, w.Code)

	w = suite.request(http.MethodPost, "/api/notifications/mark-read", bob.ID, map[string]any{"ids": "all"})
	suite.Equal(http.StatusBadRequest, w.Code)

	w = suite.request(http.MethodPost, "/api/notifications/mark-read", bob.ID, map[string]any{})
	suite.Equal(http.StatusBadRequest, w.Code)

	// Another user's ids are ignored.
	w = suite.request(http.MethodPost, "/api/notifications/mark-read", owner.ID, map[string]any{"ids": []uint64{n.ID}})
	suite.Require().Equal(http.StatusOK, w.Code)

	w = suite.request(http.MethodGet, "/api/notifications?unread=true", bob.ID, nil)
	suite.decode(w, &page)
	suite.Len(page.Notifications, 1)

	w = suite.request(http.MethodPost, "/api/notifications/mark-read", bob.ID, map[string]any{"ids": []uint64{n.ID}})
	suite.Require().Equal(http.StatusOK, w.Code)

	w = suite.request(http.MethodGet, "/api/notifications?unread=true", bob.ID, nil)
	suite.decode(w, &page)
	suite.Empty(page.Notifications)

	w = suite.request(http.MethodGet, "/api/notifications", bob.ID, nil)
	suite.decode(w, &page)
	suite.Require().Len(page.Notifications, 1)
	suite.True(page.Notifications[0].Read)
}

func (suite *HandlerTestSuite) TestNotifications_SelfAssignmentIsSilent() {
	owner := suite.createTestUser("owner")
	project := suite.createTestProject(owner)
	suite.createTask(project.ID, owner.ID, map[string]any{"title": "mine", "assignee": owner.ID})

	w := suite.request(http.MethodGet, "/api/notifications", owner.ID, nil)
	suite.Require().Equal(http.StatusOK, w.Code)

	var page dto.NotificationListResponse
	suite.decode(w, &page)
	suite.Empty(page.Notifications)
}
