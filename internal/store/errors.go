package store

import "errors"

var (
	ErrNotFound            = errors.New("transformation not found")
	ErrEmptyTransformation = errors.New("transformation has empty original or transformed content")
	ErrUnsupportedDriver   = errors.New("unsupported database driver")
)
