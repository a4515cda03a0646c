package ticket

import (
	"errors"

	"github.com/Alijeyrad/destek_backend/internal/model"
	"github.com/Alijeyrad/destek_backend/internal/repo"
)

var (
	ErrNotFound            = errors.New("ticket not found")
	ErrForbidden           = errors.New("not authorized to access this ticket")
	ErrTitleRequired       = errors.New("title is required")
	ErrDescriptionRequired = errors.New("description is required")
	ErrCategoryRequired    = errors.New("category is required")
	ErrLocationRequired    = errors.New("project is required")
	ErrTooManyPhotos       = errors.New("too many photos")
	ErrInvalidPhoto        = errors.New("invalid photo")
	ErrTeamNotFound        = errors.New("team not found")
	ErrTechnicianNotFound  = errors.New("technician not found")
	ErrNotTechnician       = errors.New("user is not a technician")
	ErrReplyEmpty          = errors.New("reply text is required")
	ErrReplyTooLong        = errors.New("reply text is too long")
	ErrInvalidTab          = errors.New("tab must be active or history")
	ErrNotRateable         = errors.New("only resolved or closed tickets can be rated")
	ErrInvalidRating       = errors.New("rating must be between 1 and 5 stars")
	ErrAlreadyRated        = errors.New("ticket has already been rated")

	// Re-exported so handlers only need this package.
	ErrInvalidStatus     = model.ErrInvalidStatus
	ErrInvalidTransition = model.ErrInvalidTransition
	ErrTeamRequired      = model.ErrTeamRequired
	ErrInvalidCursor     = repo.ErrInvalidCursor
)
