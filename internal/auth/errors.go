package auth

import "errors"

// ErrInvalidToken is returned when a presented JWT fails validation.
var ErrInvalidToken = errors.New("auth: invalid token")
