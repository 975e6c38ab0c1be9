package authz

import "errors"

// Lookup failures on administrative operations. Creation failures are
// the urlpath sentinels, ErrInvalidEmail and the store duplicate
// sentinels; callers tell the two classes apart by call site.
var (
	ErrInvalidEmail       = errors.New("invalid email format")
	ErrUserNotFound       = errors.New("user not found")
	ErrLocationNotFound   = errors.New("location not found")
	ErrPermissionNotFound = errors.New("user can not access location")
)
