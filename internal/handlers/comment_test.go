package handlers

import (
	"net/http"

	"github.com/yukikurage/synergy-api/internal/dto"
)

func (suite *HandlerTestSuite) TestComments_Tree() {
	owner := suite.createTestUser("owner")
	bob := suite.createTestUser("bob")
	project := suite.createTestProject(owner, bob)
	task := suite.createTask(project.ID, owner.ID, map[string]any{"title": "t"})
	path := taskPath(project.ID, task.ID) + "/comments"

	w := suite.request(http.MethodPost, path, owner.ID, map[string]any{"text": "  "})
	suite.Equal(http.StatusBadRequest, w.Code)

	w = suite.request(http.MethodPost, path, owner.ID, map[string]any{"text": "root"})
	suite.Require().Equal(http.StatusCreated, w.Code, w.Body.String())
	var root dto.CommentDTO
	suite.decode(w, &root)
	suite.Nil(root.ReplyTo)

	w = suite.request(http.MethodPost, path, bob.ID, map[string]any{"text": "reply", "replyTo": root.ID})
	suite.Require().Equal(http.StatusCreated, w.Code, w.Body.String())

	w = suite.request(http.MethodPost, path, bob.ID, map[string]any{"text": "dangling", "replyTo": 9999})
	suite.Equal(http.StatusNotFound, w.Code)

	w = suite.request(http.MethodGet, path, bob.ID, nil)
	suite.Require().Equal(http.StatusOK, w.Code)

	var tree []dto.CommentNodeDTO
	suite.decode(w, &tree)
	suite.Require().Len(tree, 1)
	suite.Equal("root", tree[0].Text)
	suite.Require().Len(tree[0].Replies, 1)
	suite.Equal("reply", tree[0].Replies[0].Text)
	suite.Equal(bob.ID, tree[0].Replies[0].AuthorID)
}
