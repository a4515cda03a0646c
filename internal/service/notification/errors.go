package notification

import "errors"

var (
	ErrNoOperator = errors.New("no operator email addresses configured")
)
