package service

import (
	"errors"

	"cityfix-service/internal/lifecycle"
)

var (
	ErrNotFound         = errors.New("not found")
	ErrPermissionDenied = lifecycle.ErrPermissionDenied
	ErrInvalidInput     = errors.New("invalid input")
	ErrConflict         = errors.New("conflict")
	ErrUnauthorized     = errors.New("unauthorized")
	ErrUnavailable      = errors.New("service unavailable")

	ErrInvalidStateTransition = lifecycle.ErrInvalidStateTransition
	ErrScopeMismatch          = errors.New("scope mismatch")
	ErrFeedbackAlreadyExists  = errors.New("feedback already exists")
)

// ErrValidation is the name used for schema and field violations.
var ErrValidation = ErrInvalidInput
