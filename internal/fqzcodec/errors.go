package fqzcodec

import "errors"

// Sentinel errors returned by Encode/Decode. qual.go wraps these into the
// public API's own sentinels at the package boundary.
var (
	ErrNoParams        = errors.New("fqzcodec: no parameter blocks")
	ErrCorruptStream   = errors.New("fqzcodec: corrupt range-coded stream")
	ErrOutputOverflow  = errors.New("fqzcodec: decoded length exceeds output buffer")
	ErrInvalidSelector = errors.New("fqzcodec: selector resolves to an out-of-range parameter block")
)
