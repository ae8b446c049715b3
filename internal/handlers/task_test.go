package handlers

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"
	"github.com/yukikurage/synergy-api/internal/dto"
	apierrors "github.com/yukikurage/synergy-api/internal/errors"
)

func tasksPath(projectID uint64) string {
	return fmt.Sprintf("/api/projects/%d/tasks", projectID)
}

func taskPath(projectID, taskID uint64) string {
	return fmt.Sprintf("/api/projects/%d/tasks/%d", projectID, taskID)
}

func (suite *HandlerTestSuite) createTask(projectID, actorID uint64, body map[string]any) dto.TaskDTO {
	w := suite.request(http.MethodPost, tasksPath(projectID), actorID, body)
	suite.Require().Equal(http.StatusCreated, w.Code, w.Body.String())

	var task dto.TaskDTO
	suite.decode(w, &task)
	return task
}

// TestCreateTask_Success checks the camelCase response and the assignee ledger
func (suite *HandlerTestSuite) TestCreateTask_Success() {
	owner := suite.createTestUser("owner")
	bob := suite.createTestUser("bob")
	project := suite.createTestProject(owner, bob)

	w := suite.request(http.MethodPost, tasksPath(project.ID), owner.ID, map[string]any{
		"title":    "  Write docs  ",
		"assignee": bob.ID,
		"dueDate":  "2030-01-15",
	})
	suite.Require().Equal(http.StatusCreated, w.Code, w.Body.String())

	var raw map[string]any
	suite.decode(w, &raw)
	assert.Equal(suite.T(), "Write docs", raw["title"])
	assert.Equal(suite.T(), "todo", raw["status"])
	assert.EqualValues(suite.T(), project.ID, raw["projectId"])
	assert.EqualValues(suite.T(), bob.ID, raw["assignee"])
	assert.Contains(suite.T(), raw, "dueDate")
	assert.Equal(suite.T(), []any{}, raw["attachments"])

	assert.EqualValues(suite.T(), 1, suite.openTasks(bob.ID))
}

func (suite *HandlerTestSuite) TestCreateTask_Validation() {
	owner := suite.createTestUser("owner")
	project := suite.createTestProject(owner)

	cases := []struct {
		name string
		body any
	}{
		{"blank title", map[string]any{"title": "   "}},
		{"unknown assignee", map[string]any{"title": "t", "assignee": 9999}},
		{"non numeric assignee", `{"title":"t","assignee":"bob"}`},
		{"bad date", map[string]any{"title": "t", "dueDate": "tomorrow"}},
		{"malformed json", `{"title":`},
	}

	for _, tc := range cases {
		suite.Run(tc.name, func() {
			w := suite.request(http.MethodPost, tasksPath(project.ID), owner.ID, tc.body)
			suite.Equal(http.StatusBadRequest, w.Code, w.Body.String())

			var apiErr apierrors.APIError
			suite.decode(w, &apiErr)
			suite.Equal(apierrors.ErrCodeInvalidInput, apiErr.Code)
		})
	}
}

func (suite *HandlerTestSuite) TestListTasks_Unauthorized() {
	owner := suite.createTestUser("owner")
	project := suite.createTestProject(owner)

	w := suite.request(http.MethodGet, tasksPath(project.ID), 0, nil)
	assert.Equal(suite.T(), http.StatusUnauthorized, w.Code)
}

func (suite *HandlerTestSuite) TestListTasks_NotProjectMember() {
	owner := suite.createTestUser("owner")
	outsider := suite.createTestUser("outsider")
	project := suite.createTestProject(owner)

	w := suite.request(http.MethodGet, tasksPath(project.ID), outsider.ID, nil)
	assert.Equal(suite.T(), http.StatusForbidden, w.Code)
}

func (suite *HandlerTestSuite) TestListTasks_UnknownProject() {
	owner := suite.createTestUser("owner")

	w := suite.request(http.MethodGet, tasksPath(4242), owner.ID, nil)
	assert.Equal(suite.T(), http.StatusNotFound, w.Code)
}

func (suite *HandlerTestSuite) TestListTasks_InvalidProjectID() {
	owner := suite.createTestUser("owner")

	w := suite.request(http.MethodGet, "/api/projects/abc/tasks", owner.ID, nil)
	assert.Equal(suite.T(), http.StatusBadRequest, w.Code)
}

func (suite *HandlerTestSuite) TestListTasks_Success() {
	owner := suite.createTestUser("owner")
	project := suite.createTestProject(owner)
	suite.createTask(project.ID, owner.ID, map[string]any{"title": "first"})
	suite.createTask(project.ID, owner.ID, map[string]any{"title": "second"})

	w := suite.request(http.MethodGet, tasksPath(project.ID), owner.ID, nil)
	suite.Require().Equal(http.StatusOK, w.Code)

	var tasks []dto.TaskDTO
	suite.decode(w, &tasks)
	suite.Require().Len(tasks, 2)
}

// TestUpdateTask_ExplicitNullClearsAssignee distinguishes null from absent
func (suite *HandlerTestSuite) TestUpdateTask_ExplicitNullClearsAssignee() {
	owner := suite.createTestUser("owner")
	bob := suite.createTestUser("bob")
	project := suite.createTestProject(owner, bob)
	task := suite.createTask(project.ID, owner.ID, map[string]any{
		"title":    "t",
		"assignee": bob.ID,
		"dueDate":  "2030-01-15T10:00:00Z",
	})

	// Absent assignee leaves it untouched.
	w := suite.request(http.MethodPatch, taskPath(project.ID, task.ID), owner.ID, map[string]any{"title": "renamed"})
	suite.Require().Equal(http.StatusOK, w.Code, w.Body.String())
	var updated dto.TaskDTO
	suite.decode(w, &updated)
	suite.Equal("renamed", updated.Title)
	suite.Require().NotNil(updated.Assignee)
	suite.EqualValues(1, suite.openTasks(bob.ID))

	w = suite.request(http.MethodPatch, taskPath(project.ID, task.ID), owner.ID, `{"assignee":null,"dueDate":null}`)
	suite.Require().Equal(http.StatusOK, w.Code, w.Body.String())

	var raw map[string]any
	suite.decode(w, &raw)
	suite.Nil(raw["assignee"])
	suite.Nil(raw["dueDate"])
	suite.EqualValues(0, suite.openTasks(bob.ID))
}

func (suite *HandlerTestSuite) TestUpdateTask_StatusTransitions() {
	owner := suite.createTestUser("owner")
	bob := suite.createTestUser("bob")
	project := suite.createTestProject(owner, bob)
	task := suite.createTask(project.ID, owner.ID, map[string]any{"title": "t", "assignee": bob.ID})

	w := suite.request(http.MethodPatch, taskPath(project.ID, task.ID), bob.ID, map[string]any{"status": "done"})
	suite.Require().Equal(http.StatusOK, w.Code)
	suite.EqualValues(0, suite.openTasks(bob.ID))

	w = suite.request(http.MethodPatch, taskPath(project.ID, task.ID), bob.ID, map[string]any{"status": "finished"})
	suite.Equal(http.StatusBadRequest, w.Code)
	suite.EqualValues(0, suite.openTasks(bob.ID))
}

func (suite *HandlerTestSuite) TestGetTask_NotFound() {
	owner := suite.createTestUser("owner")
	project := suite.createTestProject(owner)

	w := suite.request(http.MethodGet, taskPath(project.ID, 77), owner.ID, nil)
	suite.Equal(http.StatusNotFound, w.Code)

	var apiErr apierrors.APIError
	suite.decode(w, &apiErr)
	suite.Equal(apierrors.ErrCodeNotFound, apiErr.Code)
}

func (suite *HandlerTestSuite) TestGetTask_OtherProject() {
	owner := suite.createTestUser("owner")
	first := suite.createTestProject(owner)
	second := suite.createTestProject(owner)
	task := suite.createTask(first.ID, owner.ID, map[string]any{"title": "t"})

	w := suite.request(http.MethodGet, taskPath(second.ID, task.ID), owner.ID, nil)
	suite.Equal(http.StatusNotFound, w.Code)
}

func (suite *HandlerTestSuite) TestAddAttachment() {
	owner := suite.createTestUser("owner")
	project := suite.createTestProject(owner)
	task := suite.createTask(project.ID, owner.ID, map[string]any{"title": "t"})
	path := taskPath(project.ID, task.ID) + "/attachments"

	w := suite.request(http.MethodPatch, path, owner.ID, map[string]any{})
	suite.Equal(http.StatusBadRequest, w.Code)

	w = suite.request(http.MethodPatch, path, owner.ID, map[string]any{
		"attachment": map[string]any{"url": "https://files.example.com/a"},
	})
	suite.Equal(http.StatusBadRequest, w.Code)

	w = suite.request(http.MethodPatch, path, owner.ID, map[string]any{
		"attachment": map[string]any{"url": "https://files.example.com/a", "externalId": "f-1"},
	})
	suite.Require().Equal(http.StatusOK, w.Code, w.Body.String())

	var updated dto.TaskDTO
	suite.decode(w, &updated)
	suite.Require().Len(updated.Attachments, 1)
	att := updated.Attachments[0]
	suite.Equal("Unknown", att.Name)
	suite.Equal("application/octet-stream", att.Mime)
	suite.Equal(owner.ID, att.UploaderID)
	suite.Equal("owner", att.UploaderName)
}

func (suite *HandlerTestSuite) TestDeleteTask() {
	owner := suite.createTestUser("owner")
	bob := suite.createTestUser("bob")
	project := suite.createTestProject(owner, bob)
	task := suite.createTask(project.ID, owner.ID, map[string]any{"title": "t", "assignee": bob.ID})

	w := suite.request(http.MethodDelete, taskPath(project.ID, task.ID), owner.ID, nil)
	suite.Require().Equal(http.StatusOK, w.Code)
	suite.EqualValues(0, suite.openTasks(bob.ID))

	w = suite.request(http.MethodGet, taskPath(project.ID, task.ID), owner.ID, nil)
	suite.Equal(http.StatusNotFound, w.Code)
}

func TestHandlerTestSuite(t *testing.T) {
	suite.Run(t, new(HandlerTestSuite))
}
