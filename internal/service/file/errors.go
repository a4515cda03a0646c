package file

import "errors"

var (
	ErrStorageDisabled = errors.New("blob storage is not configured")
	ErrUnsupportedType = errors.New("unsupported image type")
	ErrTooLarge        = errors.New("image too large")
	ErrInvalidDataURI  = errors.New("invalid image data uri")
	ErrInvalidKey      = errors.New("invalid photo key")
	ErrForbidden       = errors.New("access denied")
)
