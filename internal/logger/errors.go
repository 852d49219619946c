package logger

import "errors"

var (
	// ErrServiceNameIsEmpty error if the service name is missing in the log config.
	ErrServiceNameIsEmpty = errors.New("log config service name can not be empty")

	// ErrAppNameIsEmpty error if the app name is missing in the log config.
	ErrAppNameIsEmpty = errors.New("log config app name can not be empty")
)
