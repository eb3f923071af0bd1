package service

import "errors"

var (
	// ErrNotClassified means an adjustment was requested for an item that has
	// no classification yet; there is nothing to override.
	ErrNotClassified = errors.New("item has no classification yet")

	// ErrNotPending means a decision was attempted on an adjustment that has
	// already been approved or rejected.
	ErrNotPending = errors.New("adjustment is not pending")

	// ErrAdjustmentNotFound means the adjustment ID does not exist.
	ErrAdjustmentNotFound = errors.New("adjustment not found")

	// ErrRunNotFound means the run ID does not exist.
	ErrRunNotFound = errors.New("run not found")

	// ErrInvalidTier means the proposed tier is not a valid ABC×XYZ code.
	ErrInvalidTier = errors.New("invalid tier code")
)
