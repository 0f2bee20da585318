package apperrors

import "errors"

var (
	ErrNotFound     = errors.New("not found")
	ErrValidation   = errors.New("validation failed")
	ErrEmptyUpdate  = errors.New("no fields to update")
	ErrUnauthorized = errors.New("not authorized")
	ErrStorage      = errors.New("storage failure")
)
