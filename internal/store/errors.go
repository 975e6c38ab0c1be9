package store

import "errors"

var (
	ErrDuplicateUser       = errors.New("user already exists")
	ErrDuplicateLocation   = errors.New("location already exists")
	ErrDuplicatePermission = errors.New("permission already exists")
)
