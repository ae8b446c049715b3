package services

import "errors"

// Error kinds. Every error returned by this package that is caused by caller
// input or state wraps exactly one of these; anything else is internal.
var (
	ErrInvalidArgument = errors.New("invalid argument")
	ErrNotFound        = errors.New("not found")
	ErrForbidden       = errors.New("forbidden")
	ErrConflict        = errors.New("conflict")
)

type kindError struct {
	kind error
	msg  string
}

func (e *kindError) Error() string { return e.msg }

func (e *kindError) Unwrap() error { return e.kind }

func newError(kind error, msg string) error {
	return &kindError{kind: kind, msg: msg}
}

var (
	ErrProjectNotFound    = newError(ErrNotFound, "project not found")
	ErrNotProjectMember   = newError(ErrForbidden, "user is not a member of the project")
	ErrOwnerRequired      = newError(ErrForbidden, "only project owners can perform this action")
	ErrProjectNameEmpty   = newError(ErrInvalidArgument, "project name is required")
	ErrUserNotFound       = newError(ErrNotFound, "user not found")
	ErrMemberNotFound     = newError(ErrNotFound, "member not found")
	ErrAlreadyMember      = newError(ErrInvalidArgument, "user is already a member of the project")
	ErrInvalidRole        = newError(ErrInvalidArgument, "role must be owner or member")
	ErrCannotRemoveSelf   = newError(ErrInvalidArgument, "owners cannot remove themselves")
	ErrTaskNotFound       = newError(ErrNotFound, "task not found")
	ErrTitleRequired      = newError(ErrInvalidArgument, "title is required")
	ErrInvalidAssignee    = newError(ErrInvalidArgument, "assignee does not exist")
	ErrInvalidStatus      = newError(ErrInvalidArgument, "status must be one of todo, inprogress, done")
	ErrAttachmentURL      = newError(ErrInvalidArgument, "attachment url is required")
	ErrAttachmentID       = newError(ErrInvalidArgument, "attachment externalId is required")
	ErrTaskUpdateConflict = newError(ErrConflict, "task was modified concurrently, retry the request")
	ErrTextRequired       = newError(ErrInvalidArgument, "text is required")
	ErrReplyTargetMissing = newError(ErrNotFound, "reply target comment not found on this task")
)
