package storage

import "errors"

const (
	UniqueViolation = "23505"
)

var (
	ErrMonitorNotFound = errors.New("monitor not found")
)
