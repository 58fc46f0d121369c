package domain

import "errors"

var (
	ErrNotFound            = errors.New("not found")
	ErrUnauthorized        = errors.New("unauthorized")
	ErrEnqueue             = errors.New("enqueue rejected")
	ErrQuotaExceeded       = errors.New("quota exceeded")
	ErrMalformedResponse   = errors.New("malformed provider response")
	ErrUnsupportedProvider = errors.New("unsupported provider")
)
