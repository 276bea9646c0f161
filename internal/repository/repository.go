package repository

import "errors"

// ErrVersionConflict is returned when an update's expected task version no
// longer matches the persisted row. Callers surface it as a Conflict.
var ErrVersionConflict = errors.New("task version conflict")
