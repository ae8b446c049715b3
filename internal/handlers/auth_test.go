package handlers

import (
	"net/http"

	"github.com/yukikurage/synergy-api/internal/dto"
)

func (suite *HandlerTestSuite) TestMe() {
	owner := suite.createTestUser("owner")
	bob := suite.createTestUser("bob")
	project := suite.createTestProject(owner, bob)
	suite.createTask(project.ID, owner.ID, map[string]any{"title": "t", "assignee": bob.ID})

	w := suite.request(http.MethodGet, "/api/me", bob.ID, nil)
	suite.Require().Equal(http.StatusOK, w.Code)

	var me dto.UserDTO
	suite.decode(w, &me)
	suite.Equal(bob.ID, me.ID)
	suite.Equal("bob@example.com", me.Email)
	suite.EqualValues(1, me.OpenTasksCount)
}

func (suite *HandlerTestSuite) TestMe_Unauthenticated() {
	w := suite.request(http.MethodGet, "/api/me", 0, nil)
	suite.Equal(http.StatusUnauthorized, w.Code)
}
