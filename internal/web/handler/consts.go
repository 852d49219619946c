// Package handler holds shared constants and the common handler contract.
package handler

const (
	// RootPath is the root path of a route group.
	RootPath = "/"

	// ErrNilACDFatalLogMsg is used if the app, cfg or db pointer is nil.
	ErrNilACDFatalLogMsg = "app, cfg or db is nil"

	// MaskedSecret replaces stored secrets in outward representations.
	MaskedSecret = "***"
)
