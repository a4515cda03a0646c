package user

import "errors"

var (
	ErrUserNotFound       = errors.New("user not found")
	ErrForbidden          = errors.New("not authorized to manage users")
	ErrSelfAction         = errors.New("administrators cannot change or delete their own account this way")
	ErrInvalidEmail       = errors.New("invalid email address")
	ErrInvalidPhone       = errors.New("invalid phone number for the specified region")
	ErrInvalidPushToken   = errors.New("not an Expo push token")
	ErrNameRequired       = errors.New("first name is required")
	ErrEmailAlreadyExists = errors.New("email address is already in use")
	ErrNoUsers            = errors.New("no user ids given")
)
