package apikey

import "errors"

// Public, stable errors for callers.
var (
	ErrNoKeys      = errors.New("admin API keys missing")
	ErrKeyTooShort = errors.New("admin API key too short")
)
