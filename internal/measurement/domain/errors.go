package measurement

import "errors"

var (
	// ErrInvalidInput indicates missing or malformed caller input.
	ErrInvalidInput = errors.New("measurement: invalid input")
	// ErrDeviceIDMismatch indicates the payload names a device other than
	// the authenticated one.
	ErrDeviceIDMismatch = errors.New("measurement: device id mismatch")
	// ErrNotFound indicates a referenced record is absent.
	ErrNotFound = errors.New("measurement: not found")
	// ErrRangeViolation indicates a vital sign outside its allowed domain.
	ErrRangeViolation = errors.New("measurement: value out of range")
	// ErrUpstream indicates a storage-layer failure.
	ErrUpstream = errors.New("measurement: query failed")
)
