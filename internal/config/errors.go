package config

import "github.com/cockroachdb/errors"

var (
	ErrNotFound = errors.New("config file not found")
	ErrInvalid  = errors.New("invalid configuration")
)
