package models

import "errors"

// ErrNotFound is wrapped by every "document does not exist" error.
var ErrNotFound = errors.New("not found")
