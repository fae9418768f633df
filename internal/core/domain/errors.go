package domain

import "errors"

var (
	ErrEmptyCart           = errors.New("cart is empty")
	ErrProductNotFound     = errors.New("product not found")
	ErrEmptyEmail          = errors.New("email is empty")
	ErrInvalidEvent        = errors.New("invalid event")
	ErrSessionNotFound     = errors.New("session not found")
	ErrActivityUnavailable = errors.New("session activity is unavailable")
)
