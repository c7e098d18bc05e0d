package core

import "errors"

var (
	ErrNotFound     = errors.New("not found")
	ErrInvalidState = errors.New("invalid state transition")
	ErrValidation   = errors.New("validation error")
	ErrForbidden    = errors.New("forbidden operation")
	ErrUpstream     = errors.New("booking api error")
)
