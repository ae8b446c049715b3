package handlers

import (
	"fmt"
	"net/http"

	"github.com/yukikurage/synergy-api/internal/dto"
	"github.com/yukikurage/synergy-api/internal/models"
)

func (suite *HandlerTestSuite) TestCreateProject() {
	owner := suite.createTestUser("owner")

	w := suite.request(http.MethodPost, "/api/projects", owner.ID, map[string]any{"name": " "})
	suite.Equal(http.StatusBadRequest, w.Code)

	w = suite.request(http.MethodPost, "/api/projects", owner.ID, map[string]any{
		"name":        "Launch",
		"description": "Q3 launch",
	})
	suite.Require().Equal(http.StatusCreated, w.Code, w.Body.String())

	var project dto.ProjectDTO
	suite.decode(w, &project)
	suite.Equal("Launch", project.Name)
	suite.Equal(owner.ID, project.CreatedBy)

	w = suite.request(http.MethodGet, "/api/projects", owner.ID, nil)
	suite.Require().Equal(http.StatusOK, w.Code)
	var projects []dto.ProjectDTO
	suite.decode(w, &projects)
	suite.Len(projects, 1)
}

func (suite *HandlerTestSuite) TestGetProject_DetailCounters() {
	owner := suite.createTestUser("owner")
	project := suite.createTestProject(owner)
	suite.createTask(project.ID, owner.ID, map[string]any{"title": "late", "dueDate": "2001-01-01"})
	suite.createTask(project.ID, owner.ID, map[string]any{"title": "later", "dueDate": "2999-01-01"})

	w := suite.request(http.MethodGet, fmt.Sprintf("/api/projects/%d", project.ID), owner.ID, nil)
	suite.Require().Equal(http.StatusOK, w.Code)

	var detail dto.ProjectDTO
	suite.decode(w, &detail)
	suite.EqualValues(2, detail.TotalTasks)
	suite.Require().NotNil(detail.OverdueCount)
	suite.EqualValues(1, *detail.OverdueCount)
	suite.Require().Len(detail.Members, 1)
	suite.Equal(models.RoleOwner, detail.Members[0].Role)
}

func (suite *HandlerTestSuite) TestUpdateProject_OwnerOnly() {
	owner := suite.createTestUser("owner")
	bob := suite.createTestUser("bob")
	project := suite.createTestProject(owner, bob)
	path := fmt.Sprintf("/api/projects/%d", project.ID)

	w := suite.request(http.MethodPatch, path, bob.ID, map[string]any{"name": "Hijacked"})
	suite.Equal(http.StatusForbidden, w.Code)

	w = suite.request(http.MethodPatch, path, owner.ID, map[string]any{"name": "Renamed"})
	suite.Require().Equal(http.StatusOK, w.Code)
	var updated dto.ProjectDTO
	suite.decode(w, &updated)
	suite.Equal("Renamed", updated.Name)
}

func (suite *HandlerTestSuite) TestMembers_AddAndRemove() {
	owner := suite.createTestUser("owner")
	carol := suite.createTestUser("carol")
	project := suite.createTestProject(owner)
	membersPath := fmt.Sprintf("/api/projects/%d/members", project.ID)

	w := suite.request(http.MethodPost, membersPath, owner.ID, map[string]any{"email": "nobody@example.com"})
	suite.Equal(http.StatusNotFound, w.Code)

	w = suite.request(http.MethodPost, membersPath, owner.ID, map[string]any{"email": "CAROL@example.com"})
	suite.Require().Equal(http.StatusCreated, w.Code, w.Body.String())
	var member dto.MemberDTO
	suite.decode(w, &member)
	suite.Equal(carol.ID, member.UserID)
	suite.Equal(models.RoleMember, member.Role)

	w = suite.request(http.MethodPost, membersPath, owner.ID, map[string]any{"email": "carol@example.com"})
	suite.Equal(http.StatusBadRequest, w.Code)

	w = suite.request(http.MethodDelete, fmt.Sprintf("%s/%d", membersPath, owner.ID), owner.ID, nil)
	suite.Equal(http.StatusBadRequest, w.Code)

	w = suite.request(http.MethodDelete, fmt.Sprintf("%s/%d", membersPath, carol.ID), owner.ID, nil)
	suite.Equal(http.StatusOK, w.Code)

	w = suite.request(http.MethodGet, tasksPath(project.ID), carol.ID, nil)
	suite.Equal(http.StatusForbidden, w.Code)
}
