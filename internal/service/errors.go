package service

import "errors"

var ( // Define custom errors
	ErrValidation         = errors.New("validation failed")
	ErrInsufficientData   = errors.New("insufficient data")
	ErrAnalysisFailed     = errors.New("analysis failed")
	ErrConflict           = errors.New("conflict")
	ErrNotFound           = errors.New("not found")
	ErrUserAlreadyExists  = errors.New("user already exists")
	ErrInvalidCredentials = errors.New("invalid credentials")
)
