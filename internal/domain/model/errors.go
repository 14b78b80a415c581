package model

import "errors"

// ErrUnknownField is returned when a field name is not part of the record.
var ErrUnknownField = errors.New("unknown field")
