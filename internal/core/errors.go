package core

import "errors"

// Ingestion errors. A load attempt that fails with one of these leaves the
// current dataset unchanged.
var (
	ErrUnreadableFile  = errors.New("unreadable file")
	ErrTooFewRows      = errors.New("too few rows")
	ErrMissingHeader   = errors.New("missing header row")
	ErrNoResultColumns = errors.New("no result columns")
)

// ErrColumnNotFound is returned by ColumnResolver for semantic columns that
// the dataset does not contain.
var ErrColumnNotFound = errors.New("column not found")

// Session and selection errors.
var (
	ErrNoDataset          = errors.New("no dataset loaded")
	ErrUnknownRow         = errors.New("unknown row")
	ErrUnknownChemicalSet = errors.New("unknown chemical set")
	ErrUnknownDeviceGroup = errors.New("unknown device group")
)

// Persistence errors.
var (
	ErrStateNotFound   = errors.New("saved state not found")
	ErrStaleGeneration = errors.New("stale dataset generation")
	ErrInvalidState    = errors.New("invalid state")
)
