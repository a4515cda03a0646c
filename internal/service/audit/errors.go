package audit

import "errors"

var (
	ErrForbidden     = errors.New("audit log is restricted to administrators")
	ErrInvalidAction = errors.New("unknown audit action")
)
