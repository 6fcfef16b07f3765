package domain

import "errors"

var (
	ErrRange                = errors.New("value out of range")
	ErrDivision             = errors.New("conversion rate must be positive")
	ErrMissingRate          = errors.New("conversion rate not supplied")
	ErrUnrecognizedLocation = errors.New("unrecognized location code")
)
