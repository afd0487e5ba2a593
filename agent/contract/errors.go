package contract

import "errors"

var (
	ErrValidation         = errors.New("validation failed")
	ErrInvalidTransition  = errors.New("action not allowed in current conversation state")
	ErrIncompleteCheckout = errors.New("checkout is incomplete")
	ErrPersistence        = errors.New("persistence operation failed")
	ErrGeneration         = errors.New("language generation failed")
)
