package core

import "errors"

// Errors
var (
	ErrInvalidPrice  = errors.New("invalid price")
	ErrInvalidVolume = errors.New("invalid volume")
	ErrInvalidSide   = errors.New("invalid side")
	ErrInvalidDepth  = errors.New("invalid depth")
	ErrOrderNotFound = errors.New("order not found")
	ErrOrderExists   = errors.New("order exists")
)

// Snapshot depth bounds. The HTTP boundary maps requests onto these; the
// engine enforces them so every caller gets the same policy.
const (
	DefaultSnapshotDepth = 5
	MaxSnapshotDepth     = 50
)

// DefaultPriceHistoryLimit bounds the mid-price history ring.
const DefaultPriceHistoryLimit = 200
