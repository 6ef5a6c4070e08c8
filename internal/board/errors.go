package board

import "errors"

var (
	// ErrEmptyTitle is returned when a title is blank after trimming
	ErrEmptyTitle = errors.New("task title cannot be empty")
	// ErrNotFound is returned when no task has the given id
	ErrNotFound = errors.New("task not found")
	// ErrSelfMerge is returned when a task is merged into itself
	ErrSelfMerge = errors.New("cannot merge a task into itself")
	// ErrInvalidColumn is returned for a column outside the board
	ErrInvalidColumn = errors.New("invalid column")
	// ErrNothingToUndo is returned when the undo slot is empty
	ErrNothingToUndo = errors.New("nothing to undo")
	// ErrAlreadyExists is returned when restoring a task whose id is still on the board
	ErrAlreadyExists = errors.New("task already exists")
	// ErrAIDisabled is returned by AI operations when no backend is configured
	ErrAIDisabled = errors.New("AI suggestions are not configured")
)
